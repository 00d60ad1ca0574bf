package migrations

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"

	sq "github.com/Masterminds/squirrel"

	"github.com/Notifuse/designer/internal/database"
	"github.com/Notifuse/designer/pkg/logger"
)

const versionKey = "db_version"

// Manager implements MigrationManager
type Manager struct {
	logger   logger.Logger
	driver   string
	registry *MigrationRegistryImpl
}

// NewManager creates a migration manager running the default registry against driver
func NewManager(logger logger.Logger, driver string) *Manager {
	return &Manager{
		logger:   logger,
		driver:   driver,
		registry: DefaultRegistry,
	}
}

// GetCurrentDBVersion retrieves the current schema version from the settings table
func (m *Manager) GetCurrentDBVersion(ctx context.Context, db *sql.DB) (int, bool, error) {
	query, args, err := database.StatementBuilder(m.driver).
		Select("value").
		From("settings").
		Where(sq.Eq{"key": versionKey}).
		ToSql()
	if err != nil {
		return 0, false, fmt.Errorf("failed to build query: %w", err)
	}

	var versionStr string
	if err := db.QueryRowContext(ctx, query, args...).Scan(&versionStr); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, false, nil
		}
		return 0, false, fmt.Errorf("failed to get current database version: %w", err)
	}

	version, err := strconv.Atoi(versionStr)
	if err != nil {
		return 0, false, fmt.Errorf("invalid database version format '%s': %w", versionStr, err)
	}

	return version, true, nil
}

// setVersion upserts the schema version
func (m *Manager) setVersion(ctx context.Context, db DBExecutor, version int) error {
	query, args, err := database.StatementBuilder(m.driver).
		Insert("settings").
		Columns("key", "value").
		Values(versionKey, strconv.Itoa(version)).
		Suffix("ON CONFLICT (key) DO UPDATE SET value = excluded.value, updated_at = CURRENT_TIMESTAMP").
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build query: %w", err)
	}

	if _, err := db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to set database version to %d: %w", version, err)
	}
	return nil
}

// RunMigrations applies every registered migration newer than the stored version.
// A database without a stored version runs them all; migrations are idempotent.
func (m *Manager) RunMigrations(ctx context.Context, db *sql.DB) error {
	m.logger.Info("Starting migration process")

	current, _, err := m.GetCurrentDBVersion(ctx, db)
	if err != nil {
		return err
	}

	var pending []Migration
	for _, migration := range m.registry.GetMigrations() {
		if migration.GetVersion() > current {
			pending = append(pending, migration)
		}
	}

	if len(pending) == 0 {
		m.logger.WithField("db_version", current).Info("Database is up to date, no migrations needed")
		return nil
	}

	m.logger.WithField("count", len(pending)).WithField("db_version", current).Info("Migrations to execute")

	for _, migration := range pending {
		if err := m.executeMigration(ctx, db, migration); err != nil {
			return fmt.Errorf("migration failed for version %d: %w", migration.GetVersion(), err)
		}
	}

	m.logger.WithField("version", pending[len(pending)-1].GetVersion()).Info("Migration process completed successfully")
	return nil
}

// executeMigration runs a single migration and records its version in one transaction
func (m *Manager) executeMigration(ctx context.Context, db *sql.DB, migration Migration) error {
	version := migration.GetVersion()
	m.logger.WithFields(map[string]interface{}{
		"version":     version,
		"description": migration.GetDescription(),
	}).Info("Executing migration")

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to start transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if err := migration.Up(ctx, m.driver, tx); err != nil {
		return err
	}
	if err := m.setVersion(ctx, tx, version); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit migration transaction: %w", err)
	}

	m.logger.WithField("version", version).Info("Migration completed successfully")
	return nil
}
