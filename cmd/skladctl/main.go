package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	conf "github.com/skladsync/skladsync/internal/config"
	"github.com/skladsync/skladsync/internal/db"
	"github.com/skladsync/skladsync/internal/logs"
	"github.com/skladsync/skladsync/internal/moysklad"
	"github.com/skladsync/skladsync/internal/syncer"
)

var ver = "1.0.0"

const usage = `skladsync control %s
Usage: skladctl <command>

Commands:
  sync-products     fetch and reconcile products from MoySklad
  sync-stock        fetch the stock report and update mirrored quantities
  sync-orders       fetch and reconcile customer orders
  sync-categories   fetch and reconcile product folders
  check-connection  verify credentials and base URL, print a sample record
  show-products     dump mirrored products from local storage
`

func main() {
	_ = godotenv.Load()

	if len(os.Args) < 2 {
		fmt.Printf(usage, ver)
		os.Exit(2)
	}

	appDir := mustAppDataDir("skladsync")
	log := logs.New("", true).Level(zerolog.WarnLevel)

	cfg, firstRun, err := conf.LoadOrCreate(filepath.Join(appDir, "config.json"))
	if err != nil {
		fatal("config error: %v", err)
	}
	if firstRun {
		fmt.Println("Created default config:", filepath.Join(appDir, "config.json"))
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	cmd := strings.ToLower(os.Args[1])
	switch cmd {
	case "sync-products", "sync-stock", "sync-orders", "sync-categories":
		runSync(ctx, log, cfg, strings.TrimPrefix(cmd, "sync-"))
	case "check-connection":
		checkConnection(ctx, log, cfg)
	case "show-products":
		showProducts(cfg)
	default:
		fmt.Println("Unknown command:", cmd)
		fmt.Printf(usage, ver)
		os.Exit(2)
	}
}

func runSync(ctx context.Context, log zerolog.Logger, cfg *conf.Config, syncType string) {
	client, err := moysklad.New(log, cfg.Moysklad)
	if err != nil {
		fatal("moysklad: %v", err)
	}

	dbh := openDB(cfg)
	defer closeDB(dbh)

	fmt.Printf("Starting %s sync...\n", syncType)
	engine := syncer.NewEngine(log, dbh.DB, client)
	res, err := engine.Run(ctx, syncType)
	if err != nil {
		fmt.Printf("Sync failed after %d records: %v\n", res.Processed, err)
		os.Exit(1)
	}
	fmt.Printf("Sync finished: %d created, %d updated, %d total\n", res.Created, res.Updated, res.Processed)
}

func checkConnection(ctx context.Context, log zerolog.Logger, cfg *conf.Config) {
	fmt.Println(strings.Repeat("=", 50))
	fmt.Println("MoySklad connectivity check")
	fmt.Println(strings.Repeat("=", 50))

	fmt.Println("\n1. Settings:")
	fmt.Println("   API URL:", cfg.Moysklad.BaseURL)
	switch {
	case cfg.Moysklad.Token != "":
		fmt.Println("   Token:", strings.Repeat("*", 20), "(set)")
	case cfg.Moysklad.Login != "" && cfg.Moysklad.Password != "":
		fmt.Println("   Login:", cfg.Moysklad.Login)
		fmt.Println("   Password:", strings.Repeat("*", len(cfg.Moysklad.Password)), "(set)")
	default:
		fmt.Println("   ERROR: no credentials configured!")
		fmt.Println("   Set MOYSKLAD_TOKEN, or MOYSKLAD_LOGIN and MOYSKLAD_PASSWORD, in .env or the config file")
		os.Exit(1)
	}

	client, err := moysklad.New(log, cfg.Moysklad)
	if err != nil {
		fatal("client: %v", err)
	}

	fmt.Println("\n2. Requesting products (limit=1)...")
	resp, err := client.Products(ctx, 1, 0)
	if err != nil {
		fmt.Println("   Connection FAILED:", err)
		os.Exit(1)
	}
	fmt.Println("   Connection OK")

	fmt.Println("\n3. Stats:")
	fmt.Println("   Total products in MoySklad:", resp.Meta.Size)

	if len(resp.Rows) > 0 {
		rec := resp.Rows[0]
		fmt.Println("\n4. Sample product:")
		fmt.Println("   ID:", rec.ID())
		fmt.Println("   Name:", rec.Name())
		fmt.Println("   Article:", orNone(rec.Str("article")))
		fmt.Println("   Code:", orNone(rec.Str("code")))
		fmt.Println("   Price:", rec.SalePrice().StringFixed(2))
	}
}

func showProducts(cfg *conf.Config) {
	dbh := openDB(cfg)
	defer closeDB(dbh)

	var count int64
	if err := dbh.DB.Model(&db.Product{}).Count(&count).Error; err != nil {
		fatal("count products: %v", err)
	}

	var products []db.Product
	if err := dbh.DB.Order("updated_at DESC").Limit(50).Find(&products).Error; err != nil {
		fatal("list products: %v", err)
	}

	fmt.Printf("Mirrored products: %d (showing up to 50)\n\n", count)
	for _, p := range products {
		flags := ""
		if p.Archived {
			flags = " [archived]"
		}
		fmt.Printf("  %-36s  %-40s  price=%s stock=%.0f%s\n",
			p.MoyskladID, truncate(p.Name, 40), p.Price.StringFixed(2), p.Stock, flags)
	}
}

func openDB(cfg *conf.Config) *db.Handle {
	dbh, err := db.Open(cfg.Database.Driver, cfg.Database.DSN)
	if err != nil {
		fatal("DB open error: %v", err)
	}
	if err := dbh.Migrate(); err != nil {
		fatal("DB migrate error: %v", err)
	}
	return dbh
}

func closeDB(dbh *db.Handle) {
	if sqlDB, err := dbh.DB.DB(); err == nil {
		_ = sqlDB.Close()
	}
}

func orNone(s string) string {
	if s == "" {
		return "(none)"
	}
	return s
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n-1] + "…"
}

func fatal(format string, args ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
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
