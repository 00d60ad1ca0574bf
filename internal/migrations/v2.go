package migrations

import (
	"context"
	"fmt"

	"github.com/Notifuse/designer/internal/database"
)

// V2Migration adds a GIN index on template metadata. sqlite stores JSON as
// text and has no equivalent, so it only records the version there.
type V2Migration struct{}

func (m *V2Migration) GetVersion() int {
	return 2
}

func (m *V2Migration) GetDescription() string {
	return "index template metadata"
}

func (m *V2Migration) Up(ctx context.Context, driver string, db DBExecutor) error {
	if driver != database.DriverPostgres {
		return nil
	}
	_, err := db.ExecContext(ctx, `CREATE INDEX IF NOT EXISTS idx_templates_metadata ON templates USING GIN (metadata)`)
	if err != nil {
		return fmt.Errorf("failed to create metadata index: %w", err)
	}
	return nil
}

func init() {
	Register(&V2Migration{})
}
