package db

import (
	"fmt"           // Error formatting
	"os"            // Directory creation
	"path/filepath" // SQLite path handling
	"strings"       // Driver name matching

	"gorm.io/driver/mysql"  // MySQL driver for GORM
	"gorm.io/driver/sqlite" // SQLite driver for local runs and tests
	"gorm.io/gorm"          // GORM ORM library
	"gorm.io/gorm/logger"   // SQL logging
)

// Config selects and configures the database driver
type Config struct {
	Driver string // mysql or sqlite
	DSN    string // MySQL DSN, or a full SQLite DSN override
	Path   string // SQLite file path when DSN is empty
	Debug  bool   // Log every SQL statement
}

// Open connects to the configured database with duplicate-key errors translated to gorm.ErrDuplicatedKey
func Open(cfg Config) (*gorm.DB, error) {
	gormCfg := &gorm.Config{
		TranslateError: true, // Surface unique violations as gorm.ErrDuplicatedKey
		Logger:         logger.Default.LogMode(logger.Silent),
	}
	if cfg.Debug {
		gormCfg.Logger = logger.Default.LogMode(logger.Info)
	}

	switch strings.ToLower(cfg.Driver) {
	case "", "mysql":
		return gorm.Open(mysql.Open(cfg.DSN), gormCfg)
	case "sqlite":
		return openSQLite(cfg, gormCfg)
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
	}
}

func openSQLite(cfg Config, gormCfg *gorm.Config) (*gorm.DB, error) {
	dsn := cfg.DSN
	if dsn == "" {
		if dir := filepath.Dir(cfg.Path); dir != "." && dir != "" {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, err
			}
		}
		dsn = fmt.Sprintf("file:%s?_foreign_keys=1&_journal_mode=WAL&_busy_timeout=5000", filepath.ToSlash(cfg.Path))
	}
	db, err := gorm.Open(sqlite.Open(dsn), gormCfg)
	if err != nil {
		return nil, err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	// SQLite allows a single writer; one connection keeps transactions strictly serialized.
	sqlDB.SetMaxOpenConns(1)
	return db, nil
}
