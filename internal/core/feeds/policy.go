package feeds

import (
	"context"
	"errors"
	"fmt"
)

// RefreshPolicy decides where a refresh starts and whether the partition is wiped
// before the remote call.
type RefreshPolicy struct {
	// Cursor derives the refresh cursor from the paging window; nil means the top of the feed
	Cursor func(window *PagingState) *int64
	Name   string
	// ClearBeforeFetch wipes the partition in its own transaction before fetching, so the
	// UI scrolls to the top of an empty list. A failed fetch then leaves the partition empty.
	ClearBeforeFetch bool
}

// RefreshFromTop always refetches from the most recent item.
// ClearBeforeFetch is off here: clearing before the fetch gives the whole feed a clean
// scroll to top, but an offline refresh must leave the cached items in place, and the two
// cannot both hold. Without the flag the merge transaction still replaces the partition
// once the page has arrived.
var RefreshFromTop = RefreshPolicy{
	Name:   "from-top",
	Cursor: func(*PagingState) *int64 { return nil },
}

// RefreshResumeFromLastVisible refetches from the last item currently visible, so a
// refresh in the middle of the list does not jump
var RefreshResumeFromLastVisible = RefreshPolicy{
	Name:   "resume-from-last-visible",
	Cursor: lastItemID,
}

// AppendPolicy decides the cursor of the next page
type AppendPolicy struct {
	Name string
	// MinPages is the number of materialized pages the window needs before its last
	// item is trusted as the cursor. Below that the persisted partition decides.
	MinPages int
}

// AppendFromLastItem trusts any non-empty window
var AppendFromLastItem = AppendPolicy{Name: "last-item", MinPages: 1}

// AppendRequireTwoPages only trusts windows holding at least two pages
var AppendRequireTwoPages = AppendPolicy{Name: "require-two-pages", MinPages: 2}

func lastItemID(window *PagingState) *int64 {
	item := window.LastItem()
	if item == nil {
		return nil
	}
	id := item.ItemID
	return &id
}

// appendCursor resolves the append cursor: the window's last item when the window is
// trusted, otherwise the last persisted item, otherwise nil (first page).
func (p AppendPolicy) appendCursor(ctx context.Context, window *PagingState, cache CacheStore) (*int64, error) {
	if window.PageCount() >= max(p.MinPages, 1) {
		if id := lastItemID(window); id != nil {
			return id, nil
		}
	}

	last, err := cache.LastItem(ctx)
	if err != nil {
		if errors.Is(err, ErrItemNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("read last persisted item: %w", err)
	}
	id := last.ItemID
	return &id, nil
}

// ItemMapper adjusts a fetched item before it is written to the partition
type ItemMapper func(FeedItem) FeedItem

// MarkOwnedByViewer is the mapper for the viewer's own feed
func MarkOwnedByViewer(item FeedItem) FeedItem {
	item.IsOwnedByViewer = true
	return item
}
