package migrations

import (
	"sort"
	"sync"
)

// DefaultRegistry is the global migration registry
var DefaultRegistry = NewRegistry()

// MigrationRegistryImpl implements MigrationRegistry
type MigrationRegistryImpl struct {
	mu         sync.RWMutex
	migrations map[int]Migration
}

// NewRegistry returns an empty registry
func NewRegistry() *MigrationRegistryImpl {
	return &MigrationRegistryImpl{migrations: make(map[int]Migration)}
}

// Register adds a migration to the registry
func (r *MigrationRegistryImpl) Register(migration Migration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.migrations[migration.GetVersion()] = migration
}

// GetMigrations returns all registered migrations sorted by version
func (r *MigrationRegistryImpl) GetMigrations() []Migration {
	r.mu.RLock()
	defer r.mu.RUnlock()

	migrations := make([]Migration, 0, len(r.migrations))
	for _, migration := range r.migrations {
		migrations = append(migrations, migration)
	}

	sort.Slice(migrations, func(i, j int) bool {
		return migrations[i].GetVersion() < migrations[j].GetVersion()
	})

	return migrations
}

// GetMigration returns a specific migration by version
func (r *MigrationRegistryImpl) GetMigration(version int) (Migration, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	migration, exists := r.migrations[version]
	return migration, exists
}

// LatestVersion returns the highest registered version, 0 when empty
func (r *MigrationRegistryImpl) LatestVersion() int {
	migrations := r.GetMigrations()
	if len(migrations) == 0 {
		return 0
	}
	return migrations[len(migrations)-1].GetVersion()
}

// Register is a convenience function to register migrations with the default registry
func Register(migration Migration) {
	DefaultRegistry.Register(migration)
}
