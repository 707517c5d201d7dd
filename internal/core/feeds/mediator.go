package feeds

import (
	"context"
	"fmt"
	"log/slog"

	"golang.org/x/sync/semaphore"

	"Feedsync/internal/core/credentials"
)

// Mediator reconciles one remotely paginated feed with its cache partition.
// The whole feed and the viewer's feed run the same mediator with different configs.
type Mediator struct {
	remote RemoteClient
	creds  credentials.Provider
	cache  CacheStore
	logger *slog.Logger
	loads  *semaphore.Weighted
	cfg    MediatorConfig
}

// NewMediator creates a mediator for cfg.Feed.
// If logger is nil, uses slog.Default().
func NewMediator(cfg MediatorConfig, remote RemoteClient, creds credentials.Provider, cache CacheStore, logger *slog.Logger) (*Mediator, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid mediator config: %w", err)
	}
	if remote == nil {
		return nil, fmt.Errorf("remote client is required")
	}
	if cache == nil {
		return nil, fmt.Errorf("cache store is required")
	}
	if cache.Feed() != cfg.Feed {
		return nil, fmt.Errorf("cache serves feed %q, mediator configured for %q", cache.Feed(), cfg.Feed)
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &Mediator{
		remote: remote,
		creds:  creds,
		cache:  cache,
		logger: logger.With("feed", string(cfg.Feed)),
		loads:  semaphore.NewWeighted(1),
		cfg:    cfg,
	}, nil
}

// Config returns the mediator's configuration
func (m *Mediator) Config() MediatorConfig {
	return m.cfg
}

// Load serves one paging request. A failed load returns a *Failure and leaves the
// partition as it was, unless the refresh policy clears before fetching. Cancellation
// is returned as the context error and commits nothing.
func (m *Mediator) Load(ctx context.Context, req LoadRequest) (Result, error) {
	op := "load " + req.Trigger.String()

	switch req.Trigger {
	case TriggerPrepend:
		// Newer items only arrive through a refresh
		return Result{EndOfPagination: true}, nil
	case TriggerRefresh, TriggerAppend:
	default:
		return Result{}, &Failure{Op: op, Kind: FailureUnexpected, Err: NewValidationError("trigger", "unknown trigger")}
	}

	// Acquire is FIFO, so loads run in submission order
	if err := m.loads.Acquire(ctx, 1); err != nil {
		return Result{}, err
	}
	defer m.loads.Release(1)

	token, err := AccessToken(ctx, m.creds, op)
	if err != nil {
		return Result{}, err
	}

	cursor, err := m.cursor(ctx, req)
	if err != nil {
		return Result{}, AsFailure(op, err)
	}

	if req.Trigger == TriggerRefresh && m.cfg.Refresh.ClearBeforeFetch {
		if err := m.clear(ctx); err != nil {
			return Result{}, AsFailure(op, err)
		}
	}

	pageSize := req.PageSize
	if pageSize <= 0 {
		pageSize = m.cfg.PageSize
	}

	page, err := m.remote.FetchPage(ctx, token, PageQuery{
		Feed:       m.cfg.Feed,
		Cursor:     cursor,
		PageSize:   pageSize,
		MoodFilter: m.cfg.MoodFilter,
		Sort:       m.cfg.Sort,
	})
	if err != nil {
		if !IsCancellation(err) {
			m.logger.Error("page fetch failed",
				"trigger", req.Trigger.String(),
				"cursor", cursorAttr(cursor),
				"error", err,
			)
		}
		return Result{}, AsFailure(op, err)
	}
	if page == nil {
		return Result{}, &Failure{Op: op, Kind: FailureProtocol, Err: fmt.Errorf("remote returned no page")}
	}

	// Nothing is committed once the caller has gone away
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}

	items, err := m.prepare(page.Items)
	if err != nil {
		return Result{}, &Failure{Op: op, Kind: FailureProtocol, Err: err}
	}

	err = m.cache.RunInTx(ctx, func(tx CacheTx) error {
		if req.Trigger == TriggerRefresh {
			if _, err := tx.DeleteAll(ctx); err != nil {
				return fmt.Errorf("failed to clear partition: %w", err)
			}
		}
		if err := tx.UpsertMany(ctx, items); err != nil {
			return fmt.Errorf("failed to upsert page: %w", err)
		}
		return nil
	})
	if err != nil {
		if IsCancellation(err) {
			return Result{}, err
		}
		m.logger.Error("page merge failed", "trigger", req.Trigger.String(), "error", err)
		return Result{}, &Failure{Op: op, Kind: FailureUnexpected, Err: err}
	}

	m.logger.Debug("page merged",
		"trigger", req.Trigger.String(),
		"cursor", cursorAttr(cursor),
		"items", len(items),
		"has_next", page.HasNext,
	)

	return Result{EndOfPagination: !page.HasNext, Fetched: len(items)}, nil
}

func (m *Mediator) cursor(ctx context.Context, req LoadRequest) (*int64, error) {
	if req.Trigger == TriggerRefresh {
		return m.cfg.Refresh.Cursor(req.Window), nil
	}
	return m.cfg.Append.appendCursor(ctx, req.Window, m.cache)
}

func (m *Mediator) clear(ctx context.Context) error {
	var removed int64
	err := m.cache.RunInTx(ctx, func(tx CacheTx) error {
		n, err := tx.DeleteAll(ctx)
		removed = n
		return err
	})
	if err != nil {
		return fmt.Errorf("failed to clear partition before refresh: %w", err)
	}
	m.logger.Debug("partition cleared before refresh", "removed", removed)
	return nil
}

// prepare maps and validates a fetched page. A malformed item rejects the whole page.
func (m *Mediator) prepare(fetched []FeedItem) ([]FeedItem, error) {
	items := make([]FeedItem, 0, len(fetched))
	for _, item := range fetched {
		if m.cfg.Mapper != nil {
			item = m.cfg.Mapper(item)
		}
		if err := item.Validate(); err != nil {
			return nil, fmt.Errorf("item %d: %w", item.ItemID, err)
		}
		items = append(items, item)
	}
	return items, nil
}

func cursorAttr(cursor *int64) any {
	if cursor == nil {
		return "none"
	}
	return *cursor
}
