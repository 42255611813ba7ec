package database

import (
	"errors"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

const migrationBackfillWageReportCounters = "2026-08-12_backfill_wage_report_counters"

type migrationRecord struct {
	Name             string `gorm:"column:name;primaryKey;size:190;not null"`
	AppliedAtSeconds int64  `gorm:"column:applied_at_s;not null"`
}

func (migrationRecord) TableName() string {
	return "db_migrations"
}

type migrationDefinition struct {
	name  string
	apply func(*gorm.DB) error
}

func applyMigrations(db *gorm.DB, logger *zap.Logger) error {
	migrations := []migrationDefinition{
		{name: migrationBackfillWageReportCounters, apply: backfillWageReportCounters},
	}

	for _, migration := range migrations {
		var record migrationRecord
		err := db.Where("name = ?", migration.name).Take(&record).Error
		if err == nil {
			continue
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}
		if err := migration.apply(db); err != nil {
			return err
		}
		appliedAt := time.Now().UTC().Unix()
		if err := db.Create(&migrationRecord{Name: migration.name, AppliedAtSeconds: appliedAt}).Error; err != nil {
			return err
		}
		if logger != nil {
			logger.Info("database migration applied", zap.String("migration", migration.name))
		}
	}
	return nil
}

// backfillWageReportCounters recomputes the denormalized counters from the
// approved, non-deleted reports. Repairs drift left behind by versions that
// adjusted counters outside the write path.
func backfillWageReportCounters(db *gorm.DB) error {
	recountLocations := `
		UPDATE locations SET wage_reports_count = (
			SELECT COUNT(*) FROM wage_reports w
			WHERE w.location_id = locations.id
			  AND w.status = 'approved'
			  AND w.deleted_at IS NULL
		);`
	if err := db.Exec(recountLocations).Error; err != nil {
		return err
	}
	recountOrganizations := `
		UPDATE organizations SET wage_reports_count = (
			SELECT COUNT(*) FROM wage_reports w
			WHERE w.organization_id = organizations.id
			  AND w.status = 'approved'
			  AND w.deleted_at IS NULL
		);`
	return db.Exec(recountOrganizations).Error
}
