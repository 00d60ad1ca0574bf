package migrations

import (
	"context"
	"fmt"
)

// V1Migration indexes the columns used by templates.list
type V1Migration struct{}

func (m *V1Migration) GetVersion() int {
	return 1
}

func (m *V1Migration) GetDescription() string {
	return "index template category and live rows"
}

func (m *V1Migration) Up(ctx context.Context, driver string, db DBExecutor) error {
	statements := []string{
		`CREATE INDEX IF NOT EXISTS idx_templates_category ON templates (category)`,
		`CREATE INDEX IF NOT EXISTS idx_templates_live ON templates (id, version) WHERE deleted_at IS NULL`,
	}
	for _, stmt := range statements {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to create index: %w", err)
		}
	}
	return nil
}

func init() {
	Register(&V1Migration{})
}
