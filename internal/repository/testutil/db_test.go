package testutil

import (
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetupMockDB(t *testing.T) {
	db, mock := SetupMockDB(t)
	require.NotNil(t, db)
	require.NotNil(t, mock)

	mock.ExpectExec("DELETE FROM templates").WillReturnResult(sqlmock.NewResult(0, 2))

	result, err := db.Exec("DELETE FROM templates")
	require.NoError(t, err)
	rows, err := result.RowsAffected()
	require.NoError(t, err)
	assert.Equal(t, int64(2), rows)
}

func TestTemplateColumns(t *testing.T) {
	assert.Len(t, TemplateColumns, 12)
	assert.Equal(t, "id", TemplateColumns[0])
	assert.Equal(t, "deleted_at", TemplateColumns[len(TemplateColumns)-1])
}
