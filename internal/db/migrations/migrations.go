// Package migrations embeds the cache schema for both supported backends and applies it
// with goose.
package migrations

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"io/fs"
	"log"

	"github.com/pressly/goose/v3"
)

//go:embed postgres/*.sql sqlite/*.sql
var embedded embed.FS

// Backend names the migration set to apply
type Backend string

const (
	Postgres Backend = "postgres"
	SQLite   Backend = "sqlite3"
)

func (b Backend) gooseDialect() (goose.Dialect, string, error) {
	switch b {
	case Postgres:
		return goose.DialectPostgres, "postgres", nil
	case SQLite:
		return goose.DialectSQLite3, "sqlite", nil
	default:
		return "", "", fmt.Errorf("unsupported migration backend %q", b)
	}
}

// Up applies every pending migration for backend. Safe to call on every start.
func Up(ctx context.Context, db *sql.DB, backend Backend) error {
	dialect, dir, err := backend.gooseDialect()
	if err != nil {
		return err
	}

	fsys, err := fs.Sub(embedded, dir)
	if err != nil {
		return fmt.Errorf("failed to open %s migrations: %w", dir, err)
	}

	provider, err := goose.NewProvider(dialect, db, fsys)
	if err != nil {
		return fmt.Errorf("failed to create migration provider: %w", err)
	}

	results, err := provider.Up(ctx)
	if err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	for _, r := range results {
		log.Printf("Applied migration %s (%s)", r.Source.Path, r.Duration)
	}
	return nil
}
