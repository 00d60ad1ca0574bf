// Package schema holds the table definitions of the template store.
// Incremental changes go to internal/migrations.
package schema

import "strings"

// jsonType is replaced by the JSON column type of the driver
const jsonType = "{{json}}"

var tableDefinitions = []string{
	`CREATE TABLE IF NOT EXISTS templates (
		id VARCHAR(64) NOT NULL,
		version INTEGER NOT NULL,
		name VARCHAR(255) NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		category VARCHAR(32) NOT NULL,
		blocks {{json}} NOT NULL,
		styles {{json}},
		metadata {{json}},
		responsive {{json}},
		created_at TIMESTAMP NOT NULL,
		updated_at TIMESTAMP NOT NULL,
		deleted_at TIMESTAMP,
		PRIMARY KEY (id, version)
	)`,
	`CREATE TABLE IF NOT EXISTS settings (
		key VARCHAR(255) PRIMARY KEY,
		value TEXT NOT NULL,
		created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
		updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
	)`,
}

// TableDefinitions returns the CREATE TABLE statements for driver
// ("postgres" or "sqlite")
func TableDefinitions(driver string) []string {
	column := "JSONB"
	if driver == "sqlite" {
		column = "TEXT"
	}

	out := make([]string, len(tableDefinitions))
	for i, def := range tableDefinitions {
		out[i] = strings.ReplaceAll(def, jsonType, column)
	}
	return out
}
