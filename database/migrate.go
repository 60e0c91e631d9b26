package database

import (
	"context"
	"embed"
	"io/fs"

	"github.com/goliatone/go-errors"
	"github.com/pressly/goose/v3"
	"github.com/uptrace/bun"
)

//go:embed data/sql/migrations
var migrationsFS embed.FS

// GetMigrationsFS returns the migration files for the given driver
func GetMigrationsFS(driver string) (fs.FS, error) {
	dir := "data/sql/migrations/sqlite"
	if driver == DriverPostgres {
		dir = "data/sql/migrations/postgres"
	}
	return fs.Sub(migrationsFS, dir)
}

// MigrationLogger receives one line per applied migration
type MigrationLogger interface {
	Info(msg string, args ...any)
}

// Migrator applies the embedded goose migrations
type Migrator struct {
	provider *goose.Provider
	logger   MigrationLogger
}

// NewMigrator builds a goose provider over db for its dialect
func NewMigrator(db *bun.DB, logger MigrationLogger) (*Migrator, error) {
	driver := DriverOf(db)

	fsys, err := GetMigrationsFS(driver)
	if err != nil {
		return nil, errors.Wrap(err, errors.CategoryInternal, "failed to load migrations")
	}

	dialect := goose.DialectSQLite3
	if driver == DriverPostgres {
		dialect = goose.DialectPostgres
	}

	provider, err := goose.NewProvider(dialect, db.DB, fsys)
	if err != nil {
		return nil, errors.Wrap(err, errors.CategoryInternal, "failed to create migration provider")
	}

	return &Migrator{provider: provider, logger: logger}, nil
}

// Up applies every pending migration
func (m *Migrator) Up(ctx context.Context) error {
	results, err := m.provider.Up(ctx)
	if err != nil {
		return errors.Wrap(err, errors.CategoryInternal, "failed to apply migrations")
	}
	for _, r := range results {
		m.log("migration applied", r)
	}
	return nil
}

// Down rolls back the most recent migration
func (m *Migrator) Down(ctx context.Context) error {
	r, err := m.provider.Down(ctx)
	if err != nil {
		return errors.Wrap(err, errors.CategoryInternal, "failed to roll back migration")
	}
	m.log("migration rolled back", r)
	return nil
}

// MigrationStatus is one line of Status output
type MigrationStatus struct {
	Version int64
	Path    string
	Applied bool
}

// Status lists every known migration and whether it ran
func (m *Migrator) Status(ctx context.Context) ([]MigrationStatus, error) {
	statuses, err := m.provider.Status(ctx)
	if err != nil {
		return nil, errors.Wrap(err, errors.CategoryInternal, "failed to read migration status")
	}

	out := make([]MigrationStatus, 0, len(statuses))
	for _, s := range statuses {
		out = append(out, MigrationStatus{
			Version: s.Source.Version,
			Path:    s.Source.Path,
			Applied: s.State == goose.StateApplied,
		})
	}
	return out, nil
}

func (m *Migrator) log(msg string, r *goose.MigrationResult) {
	if m.logger == nil || r == nil || r.Source == nil {
		return
	}
	m.logger.Info(msg, "version", r.Source.Version, "path", r.Source.Path, "duration", r.Duration.String())
}

// Migrate is the one call startup needs
func Migrate(ctx context.Context, db *bun.DB, logger MigrationLogger) error {
	m, err := NewMigrator(db, logger)
	if err != nil {
		return err
	}
	return m.Up(ctx)
}
