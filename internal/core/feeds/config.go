package feeds

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
)

const (
	// SortLatest orders by descending item id
	SortLatest = "latest"
	// SortPopular orders by reaction totals on the remote side
	SortPopular = "popular"

	DefaultPageSize = 10
	MaxPageSize     = 50
)

// Config validation errors
var (
	// ErrInvalidPageSize is returned when PageSize is out of range
	ErrInvalidPageSize = errors.New("PageSize must be between 1 and 50")
	// ErrInvalidSort is returned for an unknown sort value
	ErrInvalidSort = errors.New("Sort must be one of: latest, popular")
	// ErrInvalidFeed is returned for an unknown partition
	ErrInvalidFeed = errors.New("Feed must be one of: entire, mine")
)

// MediatorConfig parameterizes one mediator instance. The whole feed and the viewer's
// feed differ only in these values.
type MediatorConfig struct {
	MoodFilter *Mood
	Mapper     ItemMapper
	Refresh    RefreshPolicy
	Append     AppendPolicy
	Feed       Kind
	Sort       string
	PageSize   int
}

// Validate checks the configuration for invalid values
func (c MediatorConfig) Validate() error {
	if !c.Feed.Valid() {
		return fmt.Errorf("%w: got %q", ErrInvalidFeed, c.Feed)
	}
	if c.PageSize < 1 || c.PageSize > MaxPageSize {
		return fmt.Errorf("%w: got %d", ErrInvalidPageSize, c.PageSize)
	}
	if c.Sort != SortLatest && c.Sort != SortPopular {
		return fmt.Errorf("%w: got %q", ErrInvalidSort, c.Sort)
	}
	if c.MoodFilter != nil && !c.MoodFilter.Valid() {
		return NewValidationError("moodFilter", fmt.Sprintf("unknown mood %q", *c.MoodFilter))
	}
	if c.Refresh.Cursor == nil {
		return NewValidationError("refresh", "policy has no cursor function")
	}
	return nil
}

// DefaultConfig returns the configuration used for a partition.
// The whole feed refreshes from the top; the viewer's feed resumes from the last
// visible item and only trusts windows of two pages or more.
func DefaultConfig(feed Kind) MediatorConfig {
	cfg := MediatorConfig{
		Feed:     feed,
		PageSize: DefaultPageSize,
		Sort:     SortLatest,
		Refresh:  RefreshFromTop,
		Append:   AppendFromLastItem,
	}
	if feed == KindMine {
		cfg.Refresh = RefreshResumeFromLastVisible
		cfg.Append = AppendRequireTwoPages
		cfg.Mapper = MarkOwnedByViewer
	}
	return cfg
}

// ConfigFromEnv creates a Config for feed from environment variables.
// Uses defaults for any missing or invalid environment variables.
//
// Environment variables:
//   - FEED_PAGE_SIZE: items per remote page (default: 10)
//   - FEED_SORT: latest or popular (default: latest)
//   - FEED_MOOD_FILTER: only fetch stories with this writer mood (default: none)
//   - FEED_CLEAR_BEFORE_REFRESH: "true"/"1" wipes the whole feed before a refresh fetch (default: false)
func ConfigFromEnv(feed Kind) MediatorConfig {
	cfg := DefaultConfig(feed)

	if v := os.Getenv("FEED_PAGE_SIZE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 1 && n <= MaxPageSize {
			cfg.PageSize = n
		} else {
			slog.Warn("[FEEDS] invalid FEED_PAGE_SIZE value, using default",
				"value", v,
				"default", cfg.PageSize,
				"error", err,
			)
		}
	}

	if v := strings.ToLower(strings.TrimSpace(os.Getenv("FEED_SORT"))); v != "" {
		if v == SortLatest || v == SortPopular {
			cfg.Sort = v
		} else {
			slog.Warn("[FEEDS] invalid FEED_SORT value, using default",
				"value", v,
				"default", cfg.Sort,
			)
		}
	}

	if v := os.Getenv("FEED_MOOD_FILTER"); v != "" {
		if m, err := ParseOptionalMood(v); err == nil {
			cfg.MoodFilter = m
		} else {
			slog.Warn("[FEEDS] invalid FEED_MOOD_FILTER value, ignoring",
				"value", v,
				"error", err,
			)
		}
	}

	if v := os.Getenv("FEED_CLEAR_BEFORE_REFRESH"); v != "" && feed == KindEntire {
		cfg.Refresh.ClearBeforeFetch = v == "true" || v == "1"
	}

	return cfg
}
