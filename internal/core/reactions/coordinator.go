// Package reactions applies the viewer's emotion reactions to cached feed items.
// The remote service is asked first; the cache only changes after it acknowledged.
package reactions

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"Feedsync/internal/core/credentials"
	"Feedsync/internal/core/feeds"
)

// Coordinator applies confirmed reaction mutations to one cache partition
type Coordinator struct {
	remote RemoteClient
	creds  credentials.Provider
	cache  feeds.CacheStore
	logger *slog.Logger
}

// NewCoordinator creates a coordinator for cache.
// If logger is nil, uses slog.Default().
func NewCoordinator(remote RemoteClient, creds credentials.Provider, cache feeds.CacheStore, logger *slog.Logger) *Coordinator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Coordinator{
		remote: remote,
		creds:  creds,
		cache:  cache,
		logger: logger.With("feed", string(cache.Feed())),
	}
}

// ApplyReaction sets the viewer's reaction on itemID to mood.
// Returns the updated cached item, or nil when the item is not cached.
func (c *Coordinator) ApplyReaction(ctx context.Context, itemID int64, mood feeds.Mood, previous *feeds.Mood) (*feeds.FeedItem, error) {
	return c.Mutate(ctx, Mutation{ItemID: itemID, Action: ActionAdd, Mood: mood, Previous: previous})
}

// RemoveReaction clears the viewer's reaction on itemID.
// Returns the updated cached item, or nil when the item is not cached.
func (c *Coordinator) RemoveReaction(ctx context.Context, itemID int64, previous *feeds.Mood) (*feeds.FeedItem, error) {
	return c.Mutate(ctx, Mutation{ItemID: itemID, Action: ActionRemove, Previous: previous})
}

// Mutate runs one mutation: decide, acknowledge remotely, then apply in one transaction.
// A remote failure leaves the cache untouched.
func (c *Coordinator) Mutate(ctx context.Context, m Mutation) (*feeds.FeedItem, error) {
	op := m.Action.String() + " reaction"

	decision, err := Decide(m)
	if err != nil {
		return nil, err
	}

	if decision.NoOp() {
		c.logger.Debug("reaction unchanged, skipping", "item_id", m.ItemID, "mood", m.Mood)
		return c.cached(ctx, op, m.ItemID)
	}

	token, err := feeds.AccessToken(ctx, c.creds, op)
	if err != nil {
		return nil, err
	}

	switch decision.call {
	case callPost:
		err = c.remote.PostReaction(ctx, token, m.ItemID, m.Mood)
	case callCancel:
		err = c.remote.CancelReaction(ctx, token, m.ItemID)
	}
	if err != nil {
		if !feeds.IsCancellation(err) {
			c.logger.Error("reaction rejected by remote",
				"item_id", m.ItemID,
				"action", m.Action.String(),
				"error", err,
			)
		}
		return nil, feeds.AsFailure(op, err)
	}

	// The server has acknowledged; land the change even if the caller stops waiting
	item, err := c.apply(context.WithoutCancel(ctx), m, decision.Change)
	if err != nil {
		c.logger.Error("failed to apply acknowledged reaction", "item_id", m.ItemID, "error", err)
		return nil, &feeds.Failure{Op: op, Kind: feeds.FailureUnexpected, Err: err}
	}
	return item, nil
}

func (c *Coordinator) apply(ctx context.Context, m Mutation, change feeds.ReactionChange) (*feeds.FeedItem, error) {
	var updated *feeds.FeedItem

	err := c.cache.RunInTx(ctx, func(tx feeds.CacheTx) error {
		item, err := tx.GetByID(ctx, m.ItemID)
		if errors.Is(err, feeds.ErrItemNotFound) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("failed to read item: %w", err)
		}

		if clamped := item.Reactions.Apply(change); len(clamped) > 0 {
			c.logger.Warn("reaction counter would go negative, clamped at zero",
				"item_id", m.ItemID,
				"moods", clamped,
				"action", m.Action.String(),
			)
		}

		if err := tx.Update(ctx, item); err != nil {
			return fmt.Errorf("failed to write item: %w", err)
		}
		updated = item
		return nil
	})
	if err != nil {
		return nil, err
	}

	if updated == nil {
		c.logger.Warn("acknowledged reaction for an item that is no longer cached", "item_id", m.ItemID)
		return nil, nil
	}

	c.logger.Debug("reaction applied",
		"item_id", m.ItemID,
		"action", m.Action.String(),
		"total", updated.Reactions.Total(),
	)
	return updated, nil
}

func (c *Coordinator) cached(ctx context.Context, op string, itemID int64) (*feeds.FeedItem, error) {
	item, err := c.cache.GetByID(ctx, itemID)
	if errors.Is(err, feeds.ErrItemNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, feeds.AsFailure(op, err)
	}
	return item, nil
}
