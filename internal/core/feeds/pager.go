package feeds

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/sync/semaphore"
)

// Pager is the paging window the presentation layer drives. It tracks how many pages
// are materialized and whether the remote feed is exhausted, and rebuilds the window
// from the cache partition on demand.
type Pager struct {
	mediator *Mediator
	cache    CacheStore
	ops      *semaphore.Weighted
	pageSize int

	mu     sync.Mutex
	loaded int
	ended  bool
}

// NewPager creates a window over mediator's partition
func NewPager(mediator *Mediator, cache CacheStore) *Pager {
	return &Pager{
		mediator: mediator,
		cache:    cache,
		ops:      semaphore.NewWeighted(1),
		pageSize: mediator.Config().PageSize,
	}
}

// Refresh reloads the partition from the refresh cursor and resets the window to one page
func (p *Pager) Refresh(ctx context.Context) (Result, error) {
	return p.load(ctx, TriggerRefresh)
}

// LoadNext appends the next page. Once the end of pagination was reached it returns
// immediately without a remote call.
func (p *Pager) LoadNext(ctx context.Context) (Result, error) {
	if p.EndOfPagination() {
		return Result{EndOfPagination: true}, nil
	}
	return p.load(ctx, TriggerAppend)
}

// EndOfPagination reports whether the last successful load saw hasNext=false
func (p *Pager) EndOfPagination() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.ended
}

// Window returns the materialized pages as they are stored right now
func (p *Pager) Window(ctx context.Context) (*PagingState, error) {
	p.mu.Lock()
	loaded := p.loaded
	p.mu.Unlock()

	if loaded == 0 {
		return &PagingState{}, nil
	}

	items, err := p.cache.List(ctx, loaded*p.pageSize, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to read window: %w", err)
	}

	state := &PagingState{}
	for start := 0; start < len(items); start += p.pageSize {
		end := min(start+p.pageSize, len(items))
		state.Pages = append(state.Pages, items[start:end])
	}
	return state, nil
}

// Items returns the window flattened in descending item id order
func (p *Pager) Items(ctx context.Context) ([]FeedItem, error) {
	state, err := p.Window(ctx)
	if err != nil {
		return nil, err
	}
	var items []FeedItem
	for _, page := range state.Pages {
		items = append(items, page...)
	}
	return items, nil
}

func (p *Pager) load(ctx context.Context, trigger Trigger) (Result, error) {
	if err := p.ops.Acquire(ctx, 1); err != nil {
		return Result{}, err
	}
	defer p.ops.Release(1)

	window, err := p.Window(ctx)
	if err != nil {
		return Result{}, AsFailure("load "+trigger.String(), err)
	}

	res, err := p.mediator.Load(ctx, LoadRequest{
		Trigger:  trigger,
		Window:   window,
		PageSize: p.pageSize,
	})
	if err != nil {
		return Result{}, err
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if trigger == TriggerRefresh {
		p.loaded = 1
	} else {
		p.loaded++
	}
	p.ended = res.EndOfPagination
	return res, nil
}
