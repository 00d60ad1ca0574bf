package testutil

import (
	"database/sql"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// SetupMockDB creates a mock database connection for testing. The connection is
// closed and unmet expectations fail the test when t finishes.
func SetupMockDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()

	db, mock, err := sqlmock.New()
	require.NoError(t, err)

	t.Cleanup(func() {
		assert.NoError(t, mock.ExpectationsWereMet())
		db.Close()
	})

	return db, mock
}

// TemplateColumns lists the template columns in scan order
var TemplateColumns = []string{
	"id", "version", "name", "description", "category", "blocks",
	"styles", "metadata", "responsive", "created_at", "updated_at", "deleted_at",
}
