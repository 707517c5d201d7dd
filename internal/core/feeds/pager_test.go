package feeds_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"Feedsync/internal/core/feeds"
	"Feedsync/internal/testutil"
)

// pagedRemote serves ids in pages of size below the cursor
func pagedRemote(ids ...int64) *mockRemote {
	return &mockRemote{fetchFunc: func(_ context.Context, _ string, q feeds.PageQuery) (*feeds.PageResult, error) {
		var page []int64
		for _, id := range ids {
			if q.Cursor != nil && id >= *q.Cursor {
				continue
			}
			if len(page) == q.PageSize {
				return &feeds.PageResult{Items: testutil.Items(7, page...), HasNext: true}, nil
			}
			page = append(page, id)
		}
		return &feeds.PageResult{Items: testutil.Items(7, page...), HasNext: false}, nil
	}}
}

func TestPager_ScrollsToEndOfPagination(t *testing.T) {
	remote := pagedRemote(9, 8, 7, 6, 5, 4, 3)
	cache := testutil.NewCache(t, feeds.KindEntire)
	cfg := feeds.DefaultConfig(feeds.KindEntire)
	cfg.PageSize = 3
	pager := feeds.NewPager(newMediator(t, cfg, remote, cache), cache)
	ctx := context.Background()

	res, err := pager.Refresh(ctx)
	require.NoError(t, err)
	assert.False(t, res.EndOfPagination)

	res, err = pager.LoadNext(ctx)
	require.NoError(t, err)
	assert.False(t, res.EndOfPagination)

	res, err = pager.LoadNext(ctx)
	require.NoError(t, err)
	assert.True(t, res.EndOfPagination)
	assert.True(t, pager.EndOfPagination())

	state, err := pager.Window(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, state.PageCount())

	items, err := pager.Items(ctx)
	require.NoError(t, err)
	ids := make([]int64, 0, len(items))
	for _, it := range items {
		ids = append(ids, it.ItemID)
	}
	assert.Equal(t, []int64{9, 8, 7, 6, 5, 4, 3}, ids)

	calls := remote.calls()
	require.Len(t, calls, 3)
	assert.Equal(t, nil, cursorOf(calls[0]))
	assert.Equal(t, int64(7), cursorOf(calls[1]))
	assert.Equal(t, int64(4), cursorOf(calls[2]))

	// Exhausted: no further remote calls
	res, err = pager.LoadNext(ctx)
	require.NoError(t, err)
	assert.True(t, res.EndOfPagination)
	assert.Len(t, remote.calls(), 3)
}

func TestPager_RefreshResetsWindow(t *testing.T) {
	remote := pagedRemote(9, 8, 7, 6, 5)
	cache := testutil.NewCache(t, feeds.KindEntire)
	cfg := feeds.DefaultConfig(feeds.KindEntire)
	cfg.PageSize = 2
	pager := feeds.NewPager(newMediator(t, cfg, remote, cache), cache)
	ctx := context.Background()

	_, err := pager.Refresh(ctx)
	require.NoError(t, err)
	_, err = pager.LoadNext(ctx)
	require.NoError(t, err)

	_, err = pager.Refresh(ctx)
	require.NoError(t, err)

	state, err := pager.Window(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, state.PageCount())
	assert.Equal(t, []int64{9, 8}, testutil.IDs(t, cache))
	assert.False(t, pager.EndOfPagination())
}

func TestPager_FailedLoadKeepsWindow(t *testing.T) {
	remote := pagedRemote(9, 8, 7)
	cache := testutil.NewCache(t, feeds.KindEntire)
	cfg := feeds.DefaultConfig(feeds.KindEntire)
	cfg.PageSize = 2
	pager := feeds.NewPager(newMediator(t, cfg, remote, cache), cache)
	ctx := context.Background()

	_, err := pager.Refresh(ctx)
	require.NoError(t, err)

	remote.fetchFunc = func(context.Context, string, feeds.PageQuery) (*feeds.PageResult, error) {
		return nil, kindError{kind: feeds.FailureNetwork}
	}
	_, err = pager.LoadNext(ctx)
	require.Error(t, err)

	state, err := pager.Window(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, state.PageCount())
	assert.False(t, pager.EndOfPagination())
}

func TestPager_LoadsRunInSubmissionOrder(t *testing.T) {
	remote := pagedRemote(9, 8, 7, 6, 5)
	serve := remote.fetchFunc
	entered := make(chan struct{})
	release := make(chan struct{})
	var first sync.Once
	remote.fetchFunc = func(ctx context.Context, token string, q feeds.PageQuery) (*feeds.PageResult, error) {
		first.Do(func() {
			close(entered)
			<-release
		})
		return serve(ctx, token, q)
	}

	cache := testutil.NewCache(t, feeds.KindEntire)
	cfg := feeds.DefaultConfig(feeds.KindEntire)
	cfg.PageSize = 3
	pager := feeds.NewPager(newMediator(t, cfg, remote, cache), cache)
	ctx := context.Background()

	var wg sync.WaitGroup
	submit := func(load func(context.Context) (feeds.Result, error)) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := load(ctx)
			assert.NoError(t, err)
		}()
	}

	submit(pager.Refresh)
	<-entered

	// Queue a second refresh, then an append, behind the blocked fetch
	submit(pager.Refresh)
	time.Sleep(50 * time.Millisecond)
	submit(pager.LoadNext)
	time.Sleep(50 * time.Millisecond)

	close(release)
	wg.Wait()

	calls := remote.calls()
	require.Len(t, calls, 3)
	assert.Equal(t, nil, cursorOf(calls[0]))
	assert.Equal(t, nil, cursorOf(calls[1]))
	assert.Equal(t, int64(7), cursorOf(calls[2]))

	assert.Equal(t, []int64{9, 8, 7, 6, 5}, testutil.IDs(t, cache))
	assert.True(t, pager.EndOfPagination())
}
