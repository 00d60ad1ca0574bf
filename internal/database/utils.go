package database

import (
	"database/sql"
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"
	_ "github.com/lib/pq" // PostgreSQL driver
	_ "modernc.org/sqlite" // SQLite driver

	"github.com/Notifuse/designer/config"
)

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// GetConnectionPoolSettings returns connection pool settings based on environment.
// Explicit values in cfg win over the environment defaults.
func GetConnectionPoolSettings(cfg *config.DatabaseConfig) (maxOpen, maxIdle int, maxLifetime time.Duration) {
	environment := os.Getenv("ENVIRONMENT")

	// Use smaller pools for test environment to conserve connections
	if environment == "test" || os.Getenv("INTEGRATION_TESTS") == "true" {
		maxOpen, maxIdle, maxLifetime = 10, 5, 2*time.Minute
	} else {
		maxOpen, maxIdle, maxLifetime = 25, 25, 20*time.Minute
	}

	if cfg.MaxOpenConns > 0 {
		maxOpen = cfg.MaxOpenConns
	}
	if cfg.MaxIdleConns > 0 {
		maxIdle = cfg.MaxIdleConns
	}
	if maxIdle > maxOpen {
		maxIdle = maxOpen
	}

	// sqlite serializes writers; one connection avoids SQLITE_BUSY
	if cfg.Driver == DriverSQLite {
		return 1, 1, maxLifetime
	}
	return maxOpen, maxIdle, maxLifetime
}

// GetPostgresDSN returns the DSN of the configured PostgreSQL database
func GetPostgresDSN(cfg *config.DatabaseConfig) string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		url.QueryEscape(cfg.User),
		url.QueryEscape(cfg.Password),
		cfg.Host,
		cfg.Port,
		cfg.DBName,
		cfg.SSLMode,
	)
}

// GetServerDSN returns the DSN for connecting to PostgreSQL server without specifying a database
func GetServerDSN(cfg *config.DatabaseConfig) string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/postgres?sslmode=%s",
		url.QueryEscape(cfg.User),
		url.QueryEscape(cfg.Password),
		cfg.Host,
		cfg.Port,
		cfg.SSLMode,
	)
}

// GetSQLiteDSN returns the DSN of the sqlite file at cfg.Path with foreign keys,
// WAL journaling and a busy timeout enabled
func GetSQLiteDSN(cfg *config.DatabaseConfig) string {
	params := url.Values{}
	params.Add("_pragma", "busy_timeout(5000)")
	params.Add("_pragma", "journal_mode(WAL)")
	params.Add("_pragma", "foreign_keys(1)")
	return "file:" + cfg.Path + "?" + params.Encode()
}

// GetDSN returns the DSN for the configured driver
func GetDSN(cfg *config.DatabaseConfig) string {
	if cfg.Driver == DriverSQLite {
		return GetSQLiteDSN(cfg)
	}
	return GetPostgresDSN(cfg)
}

// Placeholder returns the squirrel placeholder format of a driver
func Placeholder(driver string) sq.PlaceholderFormat {
	if driver == DriverSQLite {
		return sq.Question
	}
	return sq.Dollar
}

// StatementBuilder returns a squirrel builder using the placeholders of driver
func StatementBuilder(driver string) sq.StatementBuilderType {
	return sq.StatementBuilder.PlaceholderFormat(Placeholder(driver))
}

// EnsureDatabaseExists creates the PostgreSQL database if it doesn't exist.
// sqlite creates its file on first open, so nothing is done for it.
func EnsureDatabaseExists(cfg *config.DatabaseConfig) error {
	if cfg.Driver == DriverSQLite {
		return nil
	}

	db, err := sql.Open(DriverPostgres, GetServerDSN(cfg))
	if err != nil {
		return fmt.Errorf("failed to connect to PostgreSQL server: %w", err)
	}
	defer db.Close()

	return createDatabaseIfMissing(db, cfg.DBName)
}

func createDatabaseIfMissing(db *sql.DB, dbName string) error {
	if err := db.Ping(); err != nil {
		return fmt.Errorf("failed to ping PostgreSQL server: %w", err)
	}

	var exists bool
	query := "SELECT EXISTS(SELECT 1 FROM pg_database WHERE datname = $1)"
	if err := db.QueryRow(query, dbName).Scan(&exists); err != nil {
		return fmt.Errorf("failed to check if database exists: %w", err)
	}

	if !exists {
		createDBQuery := fmt.Sprintf(`CREATE DATABASE "%s"`, strings.ReplaceAll(dbName, `"`, `""`))
		if _, err := db.Exec(createDBQuery); err != nil {
			return fmt.Errorf("failed to create database: %w", err)
		}
	}

	return nil
}
