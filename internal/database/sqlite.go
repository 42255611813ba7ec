package database

import (
	"fmt"

	sqlite "github.com/glebarez/sqlite"
	"github.com/openwagemap/openwagemap/internal/locations"
	"github.com/openwagemap/openwagemap/internal/orgs"
	"github.com/openwagemap/openwagemap/internal/taxonomy"
	"github.com/openwagemap/openwagemap/internal/users"
	"github.com/openwagemap/openwagemap/internal/wages"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// OpenSQLite establishes a SQLite connection and performs schema migrations.
func OpenSQLite(path string, logger *zap.Logger) (*gorm.DB, error) {
	if path == "" {
		return nil, fmt.Errorf("database path is required")
	}

	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{})
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(1)

	if err := db.AutoMigrate(
		&orgs.Organization{},
		&locations.Location{},
		&taxonomy.Industry{},
		&taxonomy.PositionCategory{},
		&users.User{},
		&wages.WageReport{},
		&migrationRecord{},
	); err != nil {
		return nil, err
	}

	if err := applyMigrations(db, logger); err != nil {
		return nil, err
	}

	if logger != nil {
		logger.Info("database initialized", zap.String("path", path))
	}

	return db, nil
}
