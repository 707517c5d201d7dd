// Package sqlite opens the local SQLite cache database, the default backend for a
// single-viewer client.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	_ "github.com/mattn/go-sqlite3"

	"Feedsync/internal/core/feeds"
	"Feedsync/internal/db/feedcache"
)

const readerConns = 4

// Open creates or opens the SQLite database at path for writing.
//
// The database is configured with:
//   - WAL mode, so readers opened with OpenReader see the last commit during a merge
//   - a 5-second busy timeout
//   - a single connection, which serializes every writer of every partition
func Open(ctx context.Context, path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := applyPragmas(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to apply pragmas: %w", err)
	}

	return db, nil
}

// OpenReader opens a query-only pool on a database already opened and migrated with
// Open. Each read sees the last committed state and does not wait for the writer.
func OpenReader(ctx context.Context, path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite3", fmt.Sprintf("file:%s?_query_only=true&_busy_timeout=5000", path))
	if err != nil {
		return nil, fmt.Errorf("failed to open reader: %w", err)
	}

	db.SetMaxOpenConns(readerConns)
	db.SetMaxIdleConns(readerConns)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to connect reader: %w", err)
	}
	return db, nil
}

func applyPragmas(ctx context.Context, db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA foreign_keys = ON",
	}

	for _, pragma := range pragmas {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			return fmt.Errorf("failed to execute %q: %w", pragma, err)
		}
	}
	return nil
}

// NewFeedCacheRepository creates the SQLite cache adapter for one feed partition.
// reader comes from OpenReader; with a nil reader every read queues behind the writer.
func NewFeedCacheRepository(db, reader *sql.DB, feed feeds.Kind, logger *slog.Logger) *feedcache.Store {
	return feedcache.New(db, feedcache.SQLite, feed, logger).WithReader(reader)
}
