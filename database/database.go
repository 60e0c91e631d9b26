// Package database opens the relational store behind the API and keeps its
// schema current.
package database

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/goliatone/go-errors"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"
)

const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// Config selects and addresses the store
type Config struct {
	Driver string
	DSN    string
}

// Open returns a bun handle for the configured driver. SQLite gets a single
// connection with foreign keys on, so cascades work for every statement.
func Open(ctx context.Context, cfg Config) (*bun.DB, error) {
	switch strings.ToLower(cfg.Driver) {
	case "", DriverSQLite:
		return openSQLite(ctx, cfg.DSN)
	case DriverPostgres:
		return openPostgres(ctx, cfg.DSN)
	default:
		return nil, errors.New(fmt.Sprintf("unsupported database driver %q", cfg.Driver), errors.CategoryBadInput)
	}
}

func openSQLite(ctx context.Context, dsn string) (*bun.DB, error) {
	if dsn == "" {
		dsn = ":memory:"
	}

	sqldb, err := sql.Open(sqliteshim.ShimName, dsn)
	if err != nil {
		return nil, errors.Wrap(err, errors.CategoryInternal, "failed to open sqlite")
	}
	sqldb.SetMaxOpenConns(1)

	db := bun.NewDB(sqldb, sqlitedialect.New())
	if _, err := db.ExecContext(ctx, "PRAGMA foreign_keys = ON;"); err != nil {
		_ = db.Close()
		return nil, errors.Wrap(err, errors.CategoryInternal, "failed to enable sqlite foreign keys")
	}

	return db, nil
}

func openPostgres(ctx context.Context, dsn string) (*bun.DB, error) {
	sqldb, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, errors.Wrap(err, errors.CategoryInternal, "failed to open postgres")
	}

	if err := sqldb.PingContext(ctx); err != nil {
		_ = sqldb.Close()
		return nil, errors.Wrap(err, errors.CategoryInternal, "failed to reach postgres")
	}

	return bun.NewDB(sqldb, pgdialect.New()), nil
}

// DriverOf reports which driver a handle was opened with
func DriverOf(db *bun.DB) string {
	if _, ok := db.Dialect().(*pgdialect.Dialect); ok {
		return DriverPostgres
	}
	return DriverSQLite
}
