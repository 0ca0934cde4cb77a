package db

import (
	"fmt"

	"github.com/glebarez/sqlite"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

type Handle struct {
	DB     *gorm.DB
	Driver string
	DSN    string
}

// Open connects to the configured database. sqlite is the default and needs
// only a file path (":memory:" works for tests).
func Open(driver, dsn string) (*Handle, error) {
	var dial gorm.Dialector
	switch driver {
	case "", "sqlite":
		driver = "sqlite"
		dial = sqlite.Open(dsn)
	case "postgres":
		dial = postgres.Open(dsn)
	case "mysql":
		dial = mysql.Open(dsn)
	default:
		return nil, fmt.Errorf("unknown database driver %q", driver)
	}

	gdb, err := gorm.Open(dial, &gorm.Config{
		// Logger: logger.Default.LogMode(logger.Info), // enable for verbose SQL
	})
	if err != nil {
		return nil, err
	}
	return &Handle{DB: gdb, Driver: driver, DSN: dsn}, nil
}
