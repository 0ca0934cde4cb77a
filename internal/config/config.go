package conf

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/skladsync/skladsync/internal/moysklad"
)

// Config is the whole application config, persisted as a JSON file.
type Config struct {
	ListenAddr          string          `json:"listen_addr"`
	AutoStart           bool            `json:"auto_start"`
	SyncIntervalSeconds int             `json:"sync_interval_seconds"`
	Database            Database        `json:"database"`
	Moysklad            moysklad.Config `json:"moysklad"`
}

type Database struct {
	Driver string `json:"driver"` // sqlite | postgres | mysql
	DSN    string `json:"dsn"`    // file path for sqlite, DSN otherwise
}

// LoadOrCreate reads the config at path. If the file does not exist yet a
// default one is written and firstRun is reported as true.
func LoadOrCreate(path string) (*Config, bool, error) {
	_ = os.MkdirAll(filepath.Dir(path), 0o755)

	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			cfg := Default(filepath.Dir(path))
			if err := Save(path, cfg); err != nil {
				return nil, false, fmt.Errorf("write default config: %w", err)
			}
			return cfg, true, nil
		}
		return nil, false, fmt.Errorf("open config: %w", err)
	}
	defer f.Close()

	var cfg Config
	if err := json.NewDecoder(f).Decode(&cfg); err != nil {
		return nil, false, fmt.Errorf("parse config: %w", err)
	}
	cfg.ApplyEnv()
	return &cfg, false, nil
}

func Default(dataDir string) *Config {
	cfg := &Config{
		ListenAddr:          ":8080",
		AutoStart:           false,
		SyncIntervalSeconds: 3600,
		Database: Database{
			Driver: "sqlite",
			DSN:    filepath.Join(dataDir, "skladsync.db"),
		},
		Moysklad: moysklad.Config{
			BaseURL: "https://api.moysklad.ru/api/remap/1.2",
		},
	}
	cfg.ApplyEnv()
	return cfg
}

func Save(path string, cfg *Config) error {
	_ = os.MkdirAll(filepath.Dir(path), 0o755)
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	return enc.Encode(cfg)
}

// ApplyEnv lets credentials from the environment (or a .env file loaded by
// the entry point) override whatever is stored in the config file.
func (c *Config) ApplyEnv() {
	if v := os.Getenv("MOYSKLAD_API_URL"); v != "" {
		c.Moysklad.BaseURL = v
	}
	if v := os.Getenv("MOYSKLAD_TOKEN"); v != "" {
		c.Moysklad.Token = v
	}
	if v := os.Getenv("MOYSKLAD_LOGIN"); v != "" {
		c.Moysklad.Login = v
	}
	if v := os.Getenv("MOYSKLAD_PASSWORD"); v != "" {
		c.Moysklad.Password = v
	}
}
