package database

import (
	"fmt"
	"os"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/flightctl/flightctl/internal/model"
)

// MigrateBackups copies every run found in the SQLite dumps under dir into
// target, then renames each dump to <name>.migrated. Runs already present in
// target (same run UUID) are skipped. It returns the dumps migrated.
func (m *Manager) MigrateBackups(dir string) ([]string, error) {
	paths, err := GetBackupDBPaths(dir)
	if err != nil {
		return nil, fmt.Errorf("error getting backup database paths: %w", err)
	}
	if err := Migrate(m.DB); err != nil {
		return nil, err
	}

	var migrated []string
	for _, path := range paths {
		src, err := GetSqliteDB(path)
		if err != nil {
			return migrated, fmt.Errorf("error opening %s: %w", path, err)
		}

		err = m.DB.Transaction(func(tx *gorm.DB) error {
			return migrateRuns(src, tx, m)
		})
		if sqlDB, cerr := src.DB(); cerr == nil {
			_ = sqlDB.Close()
		}
		if err != nil {
			return migrated, fmt.Errorf("error migrating %s: %w", path, err)
		}

		if err := os.Rename(path, path+".migrated"); err != nil {
			m.Logger.Error().Err(err).Str("path", path).Msg("Error renaming migrated backup")
		}
		migrated = append(migrated, path)
	}

	m.Logger.Info().Int("count", len(migrated)).Strs("paths", migrated).
		Msg("Migrated backups, delete them to avoid duplicates")
	return migrated, nil
}

// migrateRuns re-inserts each run with fresh primary keys and rewrites the
// foreign keys of its children.
func migrateRuns(src, dst *gorm.DB, m *Manager) error {
	var runs []model.Run
	if err := src.Find(&runs).Error; err != nil {
		return fmt.Errorf("reading runs: %w", err)
	}

	for _, run := range runs {
		oldID := run.ID
		run.Model = gorm.Model{CreatedAt: run.CreatedAt, UpdatedAt: run.UpdatedAt}

		res := dst.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "run_uuid"}},
			DoNothing: true,
		}).Create(&run)
		if res.Error != nil {
			return fmt.Errorf("inserting run %s: %w", run.RunUUID, res.Error)
		}
		if res.RowsAffected == 0 {
			m.Logger.Info().Str("run", run.RunUUID).Msg("Run already migrated, skipping")
			continue
		}

		if err := copyChildren[model.ScenarioResult](src, dst, oldID, run.ID, func(r *model.ScenarioResult) {
			r.ID, r.RunID = 0, run.ID
		}); err != nil {
			return err
		}
		if err := copyChildren[model.TelemetrySample](src, dst, oldID, run.ID, func(s *model.TelemetrySample) {
			s.ID, s.RunID = 0, run.ID
		}); err != nil {
			return err
		}
		if err := copyChildren[model.WriterPerformance](src, dst, oldID, run.ID, func(p *model.WriterPerformance) {
			p.RunID = run.ID
		}); err != nil {
			return err
		}
		m.Logger.Debug().Str("run", run.RunUUID).Uint("from", oldID).Uint("to", run.ID).Msg("Migrated run")
	}
	return nil
}

func copyChildren[T any](src, dst *gorm.DB, oldRunID, newRunID uint, rekey func(*T)) error {
	var rows []T
	if err := src.Where("run_id = ?", oldRunID).Find(&rows).Error; err != nil {
		return fmt.Errorf("reading %T: %w", rows, err)
	}
	if len(rows) == 0 {
		return nil
	}
	for i := range rows {
		rekey(&rows[i])
	}
	if err := dst.Omit(clause.Associations).Create(&rows).Error; err != nil {
		return fmt.Errorf("inserting %T for run %d: %w", rows, newRunID, err)
	}
	return nil
}
