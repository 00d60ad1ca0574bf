package database

import (
	"context"
	"database/sql"
	"fmt"

	"contrib.go.opencensus.io/integrations/ocsql"

	"github.com/Notifuse/designer/config"
	"github.com/Notifuse/designer/internal/database/schema"
	"github.com/Notifuse/designer/pkg/logger"
)

// Connect opens the configured database, wrapping the driver with OpenCensus
// tracing when traced is set, and applies the pool settings
func Connect(cfg *config.DatabaseConfig, traced bool, log logger.Logger) (*sql.DB, error) {
	if err := EnsureDatabaseExists(cfg); err != nil {
		return nil, err
	}

	driverName := cfg.Driver
	if traced {
		var err error
		driverName, err = ocsql.Register(driverName, ocsql.WithAllTraceOptions())
		if err != nil {
			return nil, fmt.Errorf("failed to register opencensus sql driver: %w", err)
		}
		log.Info("Database driver wrapped with OpenCensus tracing")
	}

	db, err := sql.Open(driverName, GetDSN(cfg))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	maxOpen, maxIdle, maxLifetime := GetConnectionPoolSettings(cfg)
	db.SetMaxOpenConns(maxOpen)
	db.SetMaxIdleConns(maxIdle)
	db.SetConnMaxLifetime(maxLifetime)
	db.SetConnMaxIdleTime(maxLifetime / 2)

	log.WithField("driver", cfg.Driver).Info("Database connection established")
	return db, nil
}

// InitializeDatabase creates all necessary database tables if they don't exist
func InitializeDatabase(ctx context.Context, db *sql.DB, driver string) error {
	for _, query := range schema.TableDefinitions(driver) {
		if _, err := db.ExecContext(ctx, query); err != nil {
			return fmt.Errorf("failed to create table: %w", err)
		}
	}
	return nil
}
