// Package feedsync assembles the per-partition mediators, paging windows and reaction
// coordinators plus the shared moderation service into one engine.
package feedsync

import (
	"context"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"Feedsync/internal/core/credentials"
	"Feedsync/internal/core/feeds"
	"Feedsync/internal/core/moderation"
	"Feedsync/internal/core/reactions"
)

// Remote is everything the engine asks of the remote feed service
type Remote interface {
	feeds.RemoteClient
	reactions.RemoteClient
	moderation.RemoteClient
}

// Partition is one feed kind with its cache and the components that write it
type Partition struct {
	Cache     feeds.CacheStore
	Mediator  *feeds.Mediator
	Pager     *feeds.Pager
	Reactions *reactions.Coordinator
	Kind      feeds.Kind
}

// Engine owns every partition
type Engine struct {
	partitions map[feeds.Kind]*Partition
	moderation *moderation.Service
	logger     *slog.Logger
}

// New builds an engine with one partition per entry of caches. configs may omit a kind,
// in which case feeds.DefaultConfig is used.
// If logger is nil, uses slog.Default().
func New(remote Remote, creds credentials.Provider, caches map[feeds.Kind]feeds.CacheStore, configs map[feeds.Kind]feeds.MediatorConfig, logger *slog.Logger) (*Engine, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if len(caches) == 0 {
		return nil, fmt.Errorf("at least one cache partition is required")
	}

	e := &Engine{
		partitions: make(map[feeds.Kind]*Partition, len(caches)),
		logger:     logger,
	}

	// Stable order keeps the purge order of BlockUser deterministic
	var ordered []feeds.CacheStore
	for _, kind := range feeds.Kinds {
		cache, ok := caches[kind]
		if !ok {
			continue
		}
		cfg, ok := configs[kind]
		if !ok {
			cfg = feeds.DefaultConfig(kind)
		}

		mediator, err := feeds.NewMediator(cfg, remote, creds, cache, logger)
		if err != nil {
			return nil, fmt.Errorf("failed to create %s mediator: %w", kind, err)
		}

		e.partitions[kind] = &Partition{
			Kind:      kind,
			Cache:     cache,
			Mediator:  mediator,
			Pager:     feeds.NewPager(mediator, cache),
			Reactions: reactions.NewCoordinator(remote, creds, cache, logger),
		}
		ordered = append(ordered, cache)
	}
	if len(ordered) != len(caches) {
		return nil, fmt.Errorf("caches contain an unknown feed kind")
	}

	e.moderation = moderation.NewService(remote, creds, logger, ordered...)
	return e, nil
}

// Partition returns the partition serving kind
func (e *Engine) Partition(kind feeds.Kind) (*Partition, error) {
	p, ok := e.partitions[kind]
	if !ok {
		return nil, feeds.NewValidationError("feed", fmt.Sprintf("feed %q is not configured", kind))
	}
	return p, nil
}

// Partitions returns every partition in feeds.Kinds order
func (e *Engine) Partitions() []*Partition {
	out := make([]*Partition, 0, len(e.partitions))
	for _, kind := range feeds.Kinds {
		if p, ok := e.partitions[kind]; ok {
			out = append(out, p)
		}
	}
	return out
}

// Moderation returns the shared moderation service
func (e *Engine) Moderation() *moderation.Service {
	return e.moderation
}

// WarmUp refreshes every partition concurrently. Partitions are independent, so one
// failing does not cancel the others; the first error is returned.
// A missing credential is not an error here: the cache stays as it was.
func (e *Engine) WarmUp(ctx context.Context) error {
	var g errgroup.Group
	for _, p := range e.Partitions() {
		g.Go(func() error {
			res, err := p.Pager.Refresh(ctx)
			if err != nil {
				if feeds.IsFailure(err, feeds.FailureUnauthenticated) {
					e.logger.Info("skipping warm-up, no credentials", "feed", string(p.Kind))
					return nil
				}
				return fmt.Errorf("warm up %s: %w", p.Kind, err)
			}
			e.logger.Info("feed warmed up",
				"feed", string(p.Kind),
				"fetched", res.Fetched,
				"end_of_pagination", res.EndOfPagination,
			)
			return nil
		})
	}
	return g.Wait()
}
