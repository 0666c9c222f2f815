package main

import (
	"github.com/sirupsen/logrus" // Logging

	"aigc_platform/internal/config" // Custom import path (Config)
	"aigc_platform/internal/db"     // Custom import path (Database)
)

// Main entry point for migration
func main() {
	cfg := config.LoadConfig() // Load configuration

	dsn := ""
	if cfg.DBDriver != "sqlite" {
		dsn = cfg.MySQLDSN() // Data Source Name for the MySQL connection
	}
	conn, err := db.Open(db.Config{Driver: cfg.DBDriver, DSN: dsn, Path: cfg.DBPath})
	if err != nil {
		logrus.Fatalf("failed to connect to DB: %v", err)
	}
	if err := db.Migrate(conn); err != nil {
		logrus.Fatalf("migration failed: %v", err)
	}
	logrus.WithField("driver", cfg.DBDriver).Info("Migration completed")
}
