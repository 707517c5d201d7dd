package feeds

import (
	"fmt"
	"time"
)

// Kind identifies one cache partition. Each kind is backed by its own rows in the
// cache store and its own mediator.
type Kind string

const (
	// KindEntire is the whole feed, newest story first
	KindEntire Kind = "entire"
	// KindMine is the viewer's own stories
	KindMine Kind = "mine"
)

// Kinds lists every supported partition
var Kinds = []Kind{KindEntire, KindMine}

// Valid reports whether k is a known partition
func (k Kind) Valid() bool {
	return k == KindEntire || k == KindMine
}

// ParseKind converts a path or query value into a Kind
func ParseKind(s string) (Kind, error) {
	k := Kind(s)
	if !k.Valid() {
		return "", NewValidationError("feed", fmt.Sprintf("unknown feed %q", s))
	}
	return k, nil
}

// FeedItem is the cached representation of one story.
// Items are append-only once cached except for the reaction fields.
type FeedItem struct {
	CreatedAt         time.Time `json:"createdAt"`
	UpdatedAt         time.Time `json:"updatedAt"`
	Reactions         Reactions `json:"reactions"`
	ItemUUID          string    `json:"itemUuid"`
	OwnerNickname     string    `json:"ownerNickname"`
	OwnerProfileImage string    `json:"ownerProfileImage"`
	BodyText          string    `json:"bodyText"`
	WriterMood        Mood      `json:"writerMood"`
	Images            []string  `json:"images"`
	ItemID            int64     `json:"itemId"`
	OwnerID           int64     `json:"ownerId"`
	IsAnonymous       bool      `json:"isAnonymous"`
	IsModified        bool      `json:"isModified"`
	IsOpened          bool      `json:"isOpened"`
	IsOwnedByViewer   bool      `json:"isOwnedByViewer"`
}

// Clone returns a deep copy so callers can mutate reactions and images freely
func (i FeedItem) Clone() FeedItem {
	out := i
	out.Reactions = i.Reactions.Clone()
	if i.Images != nil {
		out.Images = append([]string(nil), i.Images...)
	}
	return out
}

// Validate checks the cache invariants for a single item
func (i FeedItem) Validate() error {
	if i.ItemID <= 0 {
		return NewValidationError("itemId", "must be positive")
	}
	if i.WriterMood != "" && !i.WriterMood.Valid() {
		return NewValidationError("writerMood", fmt.Sprintf("unknown mood %q", i.WriterMood))
	}
	return i.Reactions.Validate()
}

// PageQuery describes one remote page request
type PageQuery struct {
	Cursor     *int64
	MoodFilter *Mood
	Feed       Kind
	Sort       string
	PageSize   int
}

// PageResult is one page returned by the remote feed service.
// Items are in server order (descending item id).
type PageResult struct {
	Items   []FeedItem
	HasNext bool
}

// Trigger is the reason a load was requested
type Trigger int

const (
	// TriggerRefresh reloads the partition from its refresh cursor
	TriggerRefresh Trigger = iota
	// TriggerPrepend asks for items newer than the top of the cache
	TriggerPrepend
	// TriggerAppend asks for the page after the last known item
	TriggerAppend
)

func (t Trigger) String() string {
	switch t {
	case TriggerRefresh:
		return "refresh"
	case TriggerPrepend:
		return "prepend"
	case TriggerAppend:
		return "append"
	default:
		return fmt.Sprintf("trigger(%d)", int(t))
	}
}

// PagingState is the UI's view of the materialized pages
type PagingState struct {
	Pages [][]FeedItem
}

// PageCount returns the number of materialized pages. Nil-safe.
func (s *PagingState) PageCount() int {
	if s == nil {
		return 0
	}
	return len(s.Pages)
}

// LastItem returns the last materialized item, or nil when no page holds one
func (s *PagingState) LastItem() *FeedItem {
	if s == nil {
		return nil
	}
	for p := len(s.Pages) - 1; p >= 0; p-- {
		page := s.Pages[p]
		if len(page) > 0 {
			item := page[len(page)-1]
			return &item
		}
	}
	return nil
}

// LoadRequest is one page-load request issued by the paging window
type LoadRequest struct {
	Window   *PagingState
	Trigger  Trigger
	PageSize int
}

// Result reports the outcome of a successful load
type Result struct {
	EndOfPagination bool `json:"endOfPagination"`
	Fetched         int  `json:"fetched"`
}
