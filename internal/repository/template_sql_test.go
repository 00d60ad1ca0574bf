package repository

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Notifuse/designer/internal/database"
	"github.com/Notifuse/designer/internal/domain"
	"github.com/Notifuse/designer/internal/repository/testutil"
	"github.com/Notifuse/designer/pkg/blocks"
	"github.com/Notifuse/designer/pkg/document"
)

var fixedNow = time.Date(2026, 5, 4, 10, 30, 0, 0, time.UTC)

func newTestRepository(t *testing.T, driver string) (*templateRepository, sqlmock.Sqlmock) {
	db, mock := testutil.SetupMockDB(t)
	repo := NewTemplateRepository(db, driver).(*templateRepository)
	repo.now = func() time.Time { return fixedNow }
	return repo, mock
}

// blockOrder matches an encoded blocks column holding the given ids in order
type blockOrder []string

func (b blockOrder) Match(v driver.Value) bool {
	data, ok := v.([]byte)
	if !ok {
		return false
	}
	list, err := blocks.UnmarshalBlocks(data)
	if err != nil || len(list) != len(b) {
		return false
	}
	for i, block := range list {
		if block.ID != b[i] {
			return false
		}
	}
	return true
}

func blockAt(id string, y int) blocks.Block {
	b := blocks.New(blocks.BlockTypeText)
	b.ID = id
	b.Position.Y = y
	return b
}

func templateRow(rows *sqlmock.Rows, id string, version int64, doc document.Document) *sqlmock.Rows {
	data, _ := blocks.MarshalBlocks(doc)
	return rows.AddRow(
		id, version, "Welcome", "", "welcome", data,
		[]byte(`{"max_width":600}`), []byte(`{"subject":"Hi"}`), []byte(`{"breakpoint":480}`),
		fixedNow.Add(-time.Hour), fixedNow, nil,
	)
}

func TestTemplateRepository_CreateTemplate(t *testing.T) {
	t.Run("inserts version 1 with sorted blocks", func(t *testing.T) {
		repo, mock := newTestRepository(t, database.DriverPostgres)

		template := &domain.Template{
			ID:       "tpl_1",
			Name:     "Welcome",
			Category: domain.TemplateCategoryWelcome,
			Blocks:   document.Document{blockAt("b", 100), blockAt("a", 0)},
		}

		mock.ExpectExec(regexp.QuoteMeta("INSERT INTO templates (id,version,name,description,category,blocks,styles,metadata,responsive,created_at,updated_at) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)")).
			WithArgs("tpl_1", int64(1), "Welcome", "", "welcome", blockOrder{"a", "b"},
				sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), fixedNow, fixedNow).
			WillReturnResult(sqlmock.NewResult(0, 1))

		require.NoError(t, repo.CreateTemplate(context.Background(), template))
		assert.Equal(t, int64(1), template.Version)
		assert.Equal(t, fixedNow, template.CreatedAt)
		assert.Equal(t, "b", template.Blocks[0].ID, "the caller's document is not reordered")
	})

	t.Run("sqlite placeholders", func(t *testing.T) {
		repo, mock := newTestRepository(t, database.DriverSQLite)

		mock.ExpectExec(regexp.QuoteMeta("VALUES (?,?,?,?,?,?,?,?,?,?,?)")).
			WillReturnResult(sqlmock.NewResult(0, 1))

		require.NoError(t, repo.CreateTemplate(context.Background(), &domain.Template{ID: "tpl_1", Name: "x", Category: "other"}))
	})

	t.Run("database error", func(t *testing.T) {
		repo, mock := newTestRepository(t, database.DriverPostgres)

		mock.ExpectExec("INSERT INTO templates").WillReturnError(errors.New("duplicate key"))

		err := repo.CreateTemplate(context.Background(), &domain.Template{ID: "tpl_1", Name: "x", Category: "other"})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to create template")
	})
}

func TestTemplateRepository_GetTemplateByID(t *testing.T) {
	selectColumns := "SELECT id, version, name, description, category, blocks, styles, metadata, responsive, created_at, updated_at, deleted_at FROM templates"

	t.Run("latest version", func(t *testing.T) {
		repo, mock := newTestRepository(t, database.DriverPostgres)

		rows := templateRow(sqlmock.NewRows(testutil.TemplateColumns), "tpl_1", 3, document.Document{blockAt("a", 0)})
		mock.ExpectQuery(regexp.QuoteMeta(selectColumns + " WHERE deleted_at IS NULL AND id = $1 ORDER BY version DESC LIMIT 1")).
			WithArgs("tpl_1").
			WillReturnRows(rows)

		template, err := repo.GetTemplateByID(context.Background(), "tpl_1", 0)
		require.NoError(t, err)
		assert.Equal(t, int64(3), template.Version)
		assert.Equal(t, domain.TemplateCategoryWelcome, template.Category)
		assert.Equal(t, 600, template.Styles.MaxWidth)
		assert.Equal(t, "Hi", template.Metadata["subject"])
		assert.Equal(t, 480, template.Responsive.Breakpoint)
		require.Len(t, template.Blocks, 1)
		assert.Equal(t, "a", template.Blocks[0].ID)
		assert.Nil(t, template.DeletedAt)
	})

	t.Run("specific version", func(t *testing.T) {
		repo, mock := newTestRepository(t, database.DriverPostgres)

		rows := templateRow(sqlmock.NewRows(testutil.TemplateColumns), "tpl_1", 2, nil)
		mock.ExpectQuery(regexp.QuoteMeta("WHERE deleted_at IS NULL AND id = $1 AND version = $2")).
			WithArgs("tpl_1", int64(2)).
			WillReturnRows(rows)

		template, err := repo.GetTemplateByID(context.Background(), "tpl_1", 2)
		require.NoError(t, err)
		assert.Equal(t, int64(2), template.Version)
		assert.Empty(t, template.Blocks)
	})

	t.Run("not found", func(t *testing.T) {
		repo, mock := newTestRepository(t, database.DriverPostgres)

		mock.ExpectQuery("SELECT").WillReturnError(sql.ErrNoRows)

		_, err := repo.GetTemplateByID(context.Background(), "tpl_1", 4)
		var notFound *domain.ErrTemplateNotFound
		require.ErrorAs(t, err, &notFound)
		assert.Equal(t, "tpl_1", notFound.ID)
		assert.Equal(t, int64(4), notFound.Version)
	})

	t.Run("corrupt blocks column", func(t *testing.T) {
		repo, mock := newTestRepository(t, database.DriverPostgres)

		rows := sqlmock.NewRows(testutil.TemplateColumns).AddRow(
			"tpl_1", 1, "Welcome", "", "welcome", []byte(`{"not":"an array"}`),
			nil, nil, nil, fixedNow, fixedNow, nil,
		)
		mock.ExpectQuery("SELECT").WillReturnRows(rows)

		_, err := repo.GetTemplateByID(context.Background(), "tpl_1", 0)
		require.Error(t, err)
		assert.ErrorIs(t, err, blocks.ErrInvalidBlocks)
	})
}

func TestTemplateRepository_GetTemplateLatestVersion(t *testing.T) {
	t.Run("found", func(t *testing.T) {
		repo, mock := newTestRepository(t, database.DriverPostgres)

		mock.ExpectQuery(regexp.QuoteMeta("SELECT MAX(version) FROM templates WHERE deleted_at IS NULL AND id = $1")).
			WithArgs("tpl_1").
			WillReturnRows(sqlmock.NewRows([]string{"max"}).AddRow(int64(7)))

		version, err := repo.GetTemplateLatestVersion(context.Background(), "tpl_1")
		require.NoError(t, err)
		assert.Equal(t, int64(7), version)
	})

	t.Run("null max means not found", func(t *testing.T) {
		repo, mock := newTestRepository(t, database.DriverPostgres)

		mock.ExpectQuery("SELECT MAX").
			WillReturnRows(sqlmock.NewRows([]string{"max"}).AddRow(nil))

		_, err := repo.GetTemplateLatestVersion(context.Background(), "tpl_1")
		var notFound *domain.ErrTemplateNotFound
		assert.ErrorAs(t, err, &notFound)
	})
}

func TestTemplateRepository_GetTemplates(t *testing.T) {
	t.Run("with category", func(t *testing.T) {
		repo, mock := newTestRepository(t, database.DriverPostgres)

		rows := sqlmock.NewRows(testutil.TemplateColumns)
		templateRow(rows, "tpl_2", 5, nil)
		templateRow(rows, "tpl_1", 1, nil)

		mock.ExpectQuery(`(?s)WITH latest_versions AS \(.*\) SELECT t\.id, .* FROM templates t JOIN latest_versions lv ON t\.id = lv\.id AND t\.version = lv\.max_version WHERE t\.deleted_at IS NULL AND t\.category = \$1 ORDER BY t\.updated_at DESC, t\.id`).
			WithArgs("welcome").
			WillReturnRows(rows)

		templates, err := repo.GetTemplates(context.Background(), domain.TemplateCategoryWelcome)
		require.NoError(t, err)
		require.Len(t, templates, 2)
		assert.Equal(t, "tpl_2", templates[0].ID)
		assert.Equal(t, int64(5), templates[0].Version)
	})

	t.Run("empty result is an empty slice", func(t *testing.T) {
		repo, mock := newTestRepository(t, database.DriverPostgres)

		mock.ExpectQuery("WITH latest_versions").
			WillReturnRows(sqlmock.NewRows(testutil.TemplateColumns))

		templates, err := repo.GetTemplates(context.Background(), "")
		require.NoError(t, err)
		assert.NotNil(t, templates)
		assert.Empty(t, templates)
	})

	t.Run("query error", func(t *testing.T) {
		repo, mock := newTestRepository(t, database.DriverPostgres)

		mock.ExpectQuery("WITH latest_versions").WillReturnError(errors.New("connection reset"))

		_, err := repo.GetTemplates(context.Background(), "")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to get templates")
	})
}

func TestTemplateRepository_UpdateTemplate(t *testing.T) {
	t.Run("inserts the next version", func(t *testing.T) {
		repo, mock := newTestRepository(t, database.DriverPostgres)
		created := fixedNow.Add(-48 * time.Hour)

		mock.ExpectBegin()
		mock.ExpectQuery(regexp.QuoteMeta("SELECT version, created_at FROM templates WHERE deleted_at IS NULL AND id = $1 ORDER BY version DESC LIMIT 1")).
			WithArgs("tpl_1").
			WillReturnRows(sqlmock.NewRows([]string{"version", "created_at"}).AddRow(int64(2), created))
		mock.ExpectExec("INSERT INTO templates").
			WithArgs("tpl_1", int64(3), "Renamed", "", "welcome", blockOrder{},
				sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), created, fixedNow).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		template := &domain.Template{ID: "tpl_1", Name: "Renamed", Category: domain.TemplateCategoryWelcome}
		require.NoError(t, repo.UpdateTemplate(context.Background(), template))
		assert.Equal(t, int64(3), template.Version)
		assert.Equal(t, created, template.CreatedAt)
		assert.Equal(t, fixedNow, template.UpdatedAt)
	})

	t.Run("missing template", func(t *testing.T) {
		repo, mock := newTestRepository(t, database.DriverPostgres)

		mock.ExpectBegin()
		mock.ExpectQuery("SELECT version, created_at").WillReturnError(sql.ErrNoRows)
		mock.ExpectRollback()

		err := repo.UpdateTemplate(context.Background(), &domain.Template{ID: "tpl_9"})
		var notFound *domain.ErrTemplateNotFound
		assert.ErrorAs(t, err, &notFound)
	})

	t.Run("insert failure rolls back", func(t *testing.T) {
		repo, mock := newTestRepository(t, database.DriverPostgres)

		mock.ExpectBegin()
		mock.ExpectQuery("SELECT version, created_at").
			WillReturnRows(sqlmock.NewRows([]string{"version", "created_at"}).AddRow(int64(1), fixedNow))
		mock.ExpectExec("INSERT INTO templates").WillReturnError(errors.New("duplicate key"))
		mock.ExpectRollback()

		err := repo.UpdateTemplate(context.Background(), &domain.Template{ID: "tpl_1", Name: "x", Category: "other"})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to update template")
	})
}

func TestTemplateRepository_DeleteTemplate(t *testing.T) {
	t.Run("soft deletes", func(t *testing.T) {
		repo, mock := newTestRepository(t, database.DriverPostgres)

		mock.ExpectExec(regexp.QuoteMeta("UPDATE templates SET deleted_at = $1 WHERE deleted_at IS NULL AND id = $2")).
			WithArgs(fixedNow, "tpl_1").
			WillReturnResult(sqlmock.NewResult(0, 3))

		assert.NoError(t, repo.DeleteTemplate(context.Background(), "tpl_1"))
	})

	t.Run("nothing to delete", func(t *testing.T) {
		repo, mock := newTestRepository(t, database.DriverPostgres)

		mock.ExpectExec("UPDATE templates").WillReturnResult(sqlmock.NewResult(0, 0))

		err := repo.DeleteTemplate(context.Background(), "tpl_1")
		var notFound *domain.ErrTemplateNotFound
		assert.ErrorAs(t, err, &notFound)
	})
}
