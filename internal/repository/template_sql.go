package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"

	"github.com/Notifuse/designer/internal/database"
	"github.com/Notifuse/designer/internal/domain"
	"github.com/Notifuse/designer/pkg/blocks"
	"github.com/Notifuse/designer/pkg/document"
)

var templateColumns = []string{
	"id",
	"version",
	"name",
	"description",
	"category",
	"blocks",
	"styles",
	"metadata",
	"responsive",
	"created_at",
	"updated_at",
	"deleted_at",
}

type templateRepository struct {
	db  *sql.DB
	sb  sq.StatementBuilderType
	now func() time.Time
}

// NewTemplateRepository creates a versioned template store on db. driver is
// "postgres" or "sqlite" and selects the placeholder format.
func NewTemplateRepository(db *sql.DB, driver string) domain.TemplateRepository {
	return &templateRepository{
		db:  db,
		sb:  database.StatementBuilder(driver),
		now: func() time.Time { return time.Now().UTC() },
	}
}

func (r *templateRepository) CreateTemplate(ctx context.Context, template *domain.Template) error {
	now := r.now()
	template.CreatedAt = now
	template.UpdatedAt = now

	// Ensure version is at least 1 for creation
	if template.Version == 0 {
		template.Version = 1
	}

	if err := r.insertVersion(ctx, r.db, template); err != nil {
		return fmt.Errorf("failed to create template: %w", err)
	}
	return nil
}

func (r *templateRepository) GetTemplateByID(ctx context.Context, id string, version int64) (*domain.Template, error) {
	builder := r.sb.Select(templateColumns...).
		From("templates").
		Where(sq.Eq{"id": id, "deleted_at": nil})

	if version > 0 {
		builder = builder.Where(sq.Eq{"version": version})
	} else {
		builder = builder.OrderBy("version DESC").Limit(1)
	}

	query, args, err := builder.ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build query: %w", err)
	}

	template, err := scanTemplate(r.db.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, &domain.ErrTemplateNotFound{ID: id, Version: version}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get template: %w", err)
	}

	return template, nil
}

func (r *templateRepository) GetTemplateLatestVersion(ctx context.Context, id string) (int64, error) {
	query, args, err := r.sb.Select("MAX(version)").
		From("templates").
		Where(sq.Eq{"id": id, "deleted_at": nil}).
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("failed to build query: %w", err)
	}

	// MAX over no rows yields NULL rather than sql.ErrNoRows
	var version sql.NullInt64
	if err := r.db.QueryRowContext(ctx, query, args...).Scan(&version); err != nil {
		return 0, fmt.Errorf("failed to get template latest version: %w", err)
	}
	if !version.Valid {
		return 0, &domain.ErrTemplateNotFound{ID: id}
	}

	return version.Int64, nil
}

func (r *templateRepository) GetTemplates(ctx context.Context, category domain.TemplateCategory) ([]*domain.Template, error) {
	// Get only the latest version of each template
	latestVersionsCTE := `WITH latest_versions AS (
		SELECT id, MAX(version) AS max_version
		FROM templates
		WHERE deleted_at IS NULL
		GROUP BY id
	)`

	columns := make([]string, len(templateColumns))
	for i, c := range templateColumns {
		columns[i] = "t." + c
	}

	selectBuilder := r.sb.Select(columns...).
		Prefix(latestVersionsCTE).
		From("templates t").
		Join("latest_versions lv ON t.id = lv.id AND t.version = lv.max_version").
		Where(sq.Eq{"t.deleted_at": nil}).
		OrderBy("t.updated_at DESC", "t.id")

	if category != "" {
		selectBuilder = selectBuilder.Where(sq.Eq{"t.category": category})
	}

	query, args, err := selectBuilder.ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build query: %w", err)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to get templates: %w", err)
	}
	defer rows.Close()

	templates := make([]*domain.Template, 0)
	for rows.Next() {
		template, err := scanTemplate(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan template: %w", err)
		}
		templates = append(templates, template)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating template rows: %w", err)
	}

	return templates, nil
}

// UpdateTemplate stores template as a new version after the latest live one.
// The creation time of the first version is carried over.
func (r *templateRepository) UpdateTemplate(ctx context.Context, template *domain.Template) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	query, args, err := r.sb.Select("version", "created_at").
		From("templates").
		Where(sq.Eq{"id": template.ID, "deleted_at": nil}).
		OrderBy("version DESC").
		Limit(1).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build query: %w", err)
	}

	var (
		latestVersion int64
		createdAt     time.Time
	)
	err = tx.QueryRowContext(ctx, query, args...).Scan(&latestVersion, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return &domain.ErrTemplateNotFound{ID: template.ID}
	}
	if err != nil {
		return fmt.Errorf("failed to get template latest version: %w", err)
	}

	template.Version = latestVersion + 1
	template.CreatedAt = createdAt
	template.UpdatedAt = r.now()

	if err := r.insertVersion(ctx, tx, template); err != nil {
		return fmt.Errorf("failed to update template: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit template update: %w", err)
	}
	return nil
}

// DeleteTemplate soft deletes every version of the template
func (r *templateRepository) DeleteTemplate(ctx context.Context, id string) error {
	query, args, err := r.sb.Update("templates").
		Set("deleted_at", r.now()).
		Where(sq.Eq{"id": id, "deleted_at": nil}).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build query: %w", err)
	}

	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to delete template: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}

	if rows == 0 {
		return &domain.ErrTemplateNotFound{ID: id}
	}

	return nil
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
}

// insertVersion writes one template row with its blocks sorted by position
func (r *templateRepository) insertVersion(ctx context.Context, db execer, template *domain.Template) error {
	blocksJSON, err := blocks.MarshalBlocks(document.SortByPosition(template.Blocks))
	if err != nil {
		return fmt.Errorf("failed to encode blocks: %w", err)
	}

	query, args, err := r.sb.Insert("templates").
		Columns(templateColumns[:len(templateColumns)-1]...).
		Values(
			template.ID,
			template.Version,
			template.Name,
			template.Description,
			template.Category,
			blocksJSON,
			template.Styles,
			template.Metadata,
			template.Responsive,
			template.CreatedAt,
			template.UpdatedAt,
		).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build query: %w", err)
	}

	_, err = db.ExecContext(ctx, query, args...)
	return err
}

// scanTemplate scans a template from a database row
func scanTemplate(scanner interface {
	Scan(dest ...interface{}) error
}) (*domain.Template, error) {
	var (
		template   domain.Template
		blocksJSON []byte
		deletedAt  sql.NullTime
	)

	err := scanner.Scan(
		&template.ID,
		&template.Version,
		&template.Name,
		&template.Description,
		&template.Category,
		&blocksJSON,
		&template.Styles,
		&template.Metadata,
		&template.Responsive,
		&template.CreatedAt,
		&template.UpdatedAt,
		&deletedAt,
	)
	if err != nil {
		return nil, err
	}

	doc, err := blocks.UnmarshalBlocks(blocksJSON)
	if err != nil {
		return nil, fmt.Errorf("template %s version %d: %w", template.ID, template.Version, err)
	}
	template.Blocks = doc

	if deletedAt.Valid {
		template.DeletedAt = &deletedAt.Time
	}

	return &template, nil
}
