package postgres

import (
	"context"
	"database/sql"
	"os"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"Feedsync/internal/core/feeds"
	"Feedsync/internal/db/migrations"
	"Feedsync/internal/testutil"
)

func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()

	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("TEST_DATABASE_URL not set, skipping PostgreSQL tests")
	}

	ctx := context.Background()
	db, err := Open(ctx, dsn)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	require.NoError(t, migrations.Up(ctx, db, migrations.Postgres))

	_, err = db.ExecContext(ctx, "DELETE FROM feed_items")
	require.NoError(t, err)
	return db
}

func TestPostgresFeedCache_MergeAndList(t *testing.T) {
	db := setupTestDB(t)
	cache := NewFeedCacheRepository(db, feeds.KindEntire, nil)
	ctx := context.Background()

	testutil.Seed(t, cache, testutil.Items(1, 3, 5, 4)...)
	testutil.Seed(t, cache, testutil.Items(1, 4)...)

	assert.Equal(t, []int64{5, 4, 3}, testutil.IDs(t, cache))

	last, err := cache.LastItem(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(3), last.ItemID)
}

func TestPostgresFeedCache_ConcurrentReactionsDoNotLoseUpdates(t *testing.T) {
	db := setupTestDB(t)
	cache := NewFeedCacheRepository(db, feeds.KindEntire, nil)
	ctx := context.Background()
	testutil.Seed(t, cache, testutil.Item(5, 1))

	const writers = 10
	var wg sync.WaitGroup
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := cache.RunInTx(ctx, func(tx feeds.CacheTx) error {
				item, err := tx.GetByID(ctx, 5)
				if err != nil {
					return err
				}
				item.Reactions.Apply(feeds.ReactionChange{Delta: map[feeds.Mood]int{feeds.MoodHappy: 1}})
				return tx.Update(ctx, item)
			})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	got, err := cache.GetByID(ctx, 5)
	require.NoError(t, err)
	assert.Equal(t, writers, got.Reactions.Count(feeds.MoodHappy))
}

func TestPostgresFeedCache_DeleteByOwnerStaysInPartition(t *testing.T) {
	db := setupTestDB(t)
	entire := NewFeedCacheRepository(db, feeds.KindEntire, nil)
	mine := NewFeedCacheRepository(db, feeds.KindMine, nil)
	ctx := context.Background()

	testutil.Seed(t, entire, testutil.Item(5, 1), testutil.Item(4, 2))
	testutil.Seed(t, mine, testutil.Item(5, 1))

	err := entire.RunInTx(ctx, func(tx feeds.CacheTx) error {
		_, err := tx.DeleteByOwner(ctx, 1)
		return err
	})
	require.NoError(t, err)

	assert.Equal(t, []int64{4}, testutil.IDs(t, entire))
	assert.Equal(t, []int64{5}, testutil.IDs(t, mine))
}
