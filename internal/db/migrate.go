package db

import (
	"aigc_platform/internal/domain" // Importing domain models

	"github.com/sirupsen/logrus" // Logging
	"gorm.io/gorm"               // GORM ORM library
)

// Models lists every table owned by the platform
func Models() []any {
	return []any{&domain.User{}, &domain.PointRecord{}, &domain.PaymentRecord{}}
}

// Migrate performs automatic migration for the database schema
func Migrate(db *gorm.DB) error {
	// AutoMigrate will create tables, missing foreign keys, constraints, columns and indexes
	if err := db.AutoMigrate(Models()...); err != nil {
		return err
	}
	logrus.Debug("Migration completed.")
	return nil
}
