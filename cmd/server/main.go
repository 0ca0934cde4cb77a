package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/skladsync/skladsync/internal/api"
	conf "github.com/skladsync/skladsync/internal/config"
	"github.com/skladsync/skladsync/internal/db"
	"github.com/skladsync/skladsync/internal/logs"
	"github.com/skladsync/skladsync/internal/moysklad"
	"github.com/skladsync/skladsync/internal/syncer"
)

var ver = "1.0.0"

func main() {
	_ = godotenv.Load()

	appDir := mustAppDataDir("skladsync")
	log := logs.New(filepath.Join(appDir, "app.log"), true)

	cfgPath := filepath.Join(appDir, "config.json")
	cfg, firstRun, err := conf.LoadOrCreate(cfgPath)
	if err != nil {
		log.Fatal().Err(err).Msg("config error")
	}
	if firstRun {
		log.Info().Str("path", cfgPath).Msg("default config created, fill in moysklad credentials")
	}

	dbh, err := db.Open(cfg.Database.Driver, cfg.Database.DSN)
	if err != nil {
		log.Fatal().Err(err).Msg("DB open error")
	}
	if err := dbh.Migrate(); err != nil {
		log.Fatal().Err(err).Msg("DB migrate error")
	}
	log.Info().Str("driver", dbh.Driver).Str("dsn", dbh.DSN).Msg("DB ready")
	if sqlDB, err := dbh.DB.DB(); err == nil {
		defer sqlDB.Close()
	}

	client, err := moysklad.New(log, cfg.Moysklad)
	if err != nil {
		if errors.Is(err, moysklad.ErrNoCredentials) {
			log.Fatal().Str("path", cfgPath).Msg("no moysklad credentials: set token or login/password in the config or environment")
		}
		log.Fatal().Err(err).Msg("moysklad client error")
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	engine := syncer.NewEngine(log, dbh.DB, client)
	s := syncer.New(log, engine, cfg.SyncIntervalSeconds)

	if cfg.AutoStart {
		if err := s.Start(ctx); err != nil {
			log.Error().Err(err).Msg("autostart failed")
		} else {
			log.Info().Msgf("skladsync %s — scheduled sync running", ver)
		}
	}

	srv := &http.Server{
		Addr:    cfg.ListenAddr,
		Handler: api.New(log, dbh.DB, engine).Router(),
	}

	go func() {
		<-ctx.Done()
		s.Stop()
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	log.Info().Str("addr", cfg.ListenAddr).Msgf("skladsync %s — api listening", ver)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatal().Err(err).Msg("server error")
	}
}

func mustAppDataDir(name string) string {
	if dir := os.Getenv("SKLADSYNC_DIR"); dir != "" {
		_ = os.MkdirAll(dir, 0o755)
		return dir
	}
	base, err := os.UserConfigDir()
	if err != nil {
		panic(err)
	}
	p := filepath.Join(base, name)
	_ = os.MkdirAll(p, 0o755)
	return p
}
