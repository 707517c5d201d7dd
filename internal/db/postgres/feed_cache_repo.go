package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	_ "github.com/lib/pq"

	"Feedsync/internal/core/feeds"
	"Feedsync/internal/db/feedcache"
)

// Open connects to PostgreSQL and verifies the connection
func Open(ctx context.Context, dsn string) (*sql.DB, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(30 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	return db, nil
}

// NewFeedCacheRepository creates the PostgreSQL cache adapter for one feed partition.
// Writers of the partition serialize on a transaction-scoped advisory lock.
func NewFeedCacheRepository(db *sql.DB, feed feeds.Kind, logger *slog.Logger) *feedcache.Store {
	return feedcache.New(db, feedcache.Postgres, feed, logger)
}
