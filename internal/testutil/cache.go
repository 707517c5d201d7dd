// Package testutil holds helpers shared by package tests: a migrated SQLite cache under
// t.TempDir() and builders for feed items.
package testutil

import (
	"context"
	"database/sql"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"Feedsync/internal/core/feeds"
	"Feedsync/internal/db/feedcache"
	"Feedsync/internal/db/migrations"
	"Feedsync/internal/db/sqlite"
)

// OpenSQLite opens a migrated database in a temp dir plus a reader pool on it, both
// closed on cleanup
func OpenSQLite(t testing.TB) (writer, reader *sql.DB) {
	t.Helper()

	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "cache.db")
	writer, err := sqlite.Open(ctx, path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = writer.Close() })

	require.NoError(t, migrations.Up(ctx, writer, migrations.SQLite))

	reader, err = sqlite.OpenReader(ctx, path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = reader.Close() })
	return writer, reader
}

// NewCaches returns one cache adapter per feed kind over a fresh database
func NewCaches(t testing.TB) map[feeds.Kind]*feedcache.Store {
	t.Helper()

	writer, reader := OpenSQLite(t)
	caches := make(map[feeds.Kind]*feedcache.Store, len(feeds.Kinds))
	for _, kind := range feeds.Kinds {
		caches[kind] = sqlite.NewFeedCacheRepository(writer, reader, kind, nil)
	}
	return caches
}

// NewCache returns the cache adapter for kind over a fresh database
func NewCache(t testing.TB, kind feeds.Kind) *feedcache.Store {
	t.Helper()
	return NewCaches(t)[kind]
}

var baseTime = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

// Item builds a valid feed item with the given id and owner
func Item(id, owner int64) feeds.FeedItem {
	return feeds.FeedItem{
		ItemID:        id,
		ItemUUID:      fmt.Sprintf("uuid-%d", id),
		OwnerID:       owner,
		OwnerNickname: "writer",
		CreatedAt:     baseTime.Add(time.Duration(id) * time.Minute),
		UpdatedAt:     baseTime.Add(time.Duration(id) * time.Minute),
		BodyText:      "story body",
		WriterMood:    feeds.MoodHappy,
		Images:        []string{"https://img.example/a.png"},
		Reactions:     feeds.NewReactions(nil, nil),
	}
}

// Items builds items for ids, all owned by owner
func Items(owner int64, ids ...int64) []feeds.FeedItem {
	out := make([]feeds.FeedItem, 0, len(ids))
	for _, id := range ids {
		out = append(out, Item(id, owner))
	}
	return out
}

// Seed writes items into cache in one transaction
func Seed(t testing.TB, cache feeds.CacheStore, items ...feeds.FeedItem) {
	t.Helper()
	err := cache.RunInTx(context.Background(), func(tx feeds.CacheTx) error {
		return tx.UpsertMany(context.Background(), items)
	})
	require.NoError(t, err)
}

// IDs lists the item ids of the partition in stored order
func IDs(t testing.TB, cache feeds.CacheStore) []int64 {
	t.Helper()
	items, err := cache.List(context.Background(), 0, nil)
	require.NoError(t, err)
	ids := make([]int64, 0, len(items))
	for _, it := range items {
		ids = append(ids, it.ItemID)
	}
	return ids
}
