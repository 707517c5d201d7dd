// Package moderation blocks writers and reports stories. A confirmed block purges the
// writer's stories from every cache partition.
package moderation

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"Feedsync/internal/core/credentials"
	"Feedsync/internal/core/feeds"
)

// ReportCode is the reason attached to a report
type ReportCode string

const (
	ReportSpam    ReportCode = "SPAM"
	ReportAbuse   ReportCode = "ABUSE"
	ReportSexual  ReportCode = "SEXUAL"
	ReportIllegal ReportCode = "ILLEGAL"
	ReportEtc     ReportCode = "ETC"
)

// Valid reports whether c is a known report code
func (c ReportCode) Valid() bool {
	switch c {
	case ReportSpam, ReportAbuse, ReportSexual, ReportIllegal, ReportEtc:
		return true
	}
	return false
}

// ParseReportCode accepts codes case-insensitively
func ParseReportCode(s string) (ReportCode, error) {
	c := ReportCode(strings.ToUpper(strings.TrimSpace(s)))
	if !c.Valid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidReportCode, s)
	}
	return c, nil
}

// Service runs moderation side effects against the remote service and the cache
type Service struct {
	remote RemoteClient
	creds  credentials.Provider
	logger *slog.Logger
	caches []feeds.CacheStore
}

// NewService creates a moderation service purging blocked writers from caches.
// If logger is nil, uses slog.Default().
func NewService(remote RemoteClient, creds credentials.Provider, logger *slog.Logger, caches ...feeds.CacheStore) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		remote: remote,
		creds:  creds,
		caches: caches,
		logger: logger,
	}
}

// BlockUser blocks ownerID remotely and, once acknowledged, deletes the owner's items
// from every partition, each in its own transaction. Returns the number of rows removed.
func (s *Service) BlockUser(ctx context.Context, ownerID int64) (int64, error) {
	const op = "block user"

	if ownerID <= 0 {
		return 0, fmt.Errorf("%w: %d", ErrInvalidOwnerID, ownerID)
	}

	token, err := feeds.AccessToken(ctx, s.creds, op)
	if err != nil {
		return 0, err
	}

	if err := s.remote.BlockUser(ctx, token, ownerID); err != nil {
		if !feeds.IsCancellation(err) {
			s.logger.Error("block rejected by remote", "owner_id", ownerID, "error", err)
		}
		return 0, feeds.AsFailure(op, err)
	}

	// Acknowledged: purge even if the caller stops waiting
	purgeCtx := context.WithoutCancel(ctx)

	var total int64
	for _, cache := range s.caches {
		var removed int64
		err := cache.RunInTx(purgeCtx, func(tx feeds.CacheTx) error {
			n, err := tx.DeleteByOwner(purgeCtx, ownerID)
			removed = n
			return err
		})
		if err != nil {
			s.logger.Error("failed to purge blocked owner",
				"owner_id", ownerID,
				"feed", string(cache.Feed()),
				"error", err,
			)
			return total, &feeds.Failure{Op: op, Kind: feeds.FailureUnexpected, Err: fmt.Errorf("purge %s: %w", cache.Feed(), err)}
		}
		total += removed
	}

	s.logger.Info("blocked owner purged from cache", "owner_id", ownerID, "removed", total)
	return total, nil
}

// ReportItem files a report. The cache is not touched.
func (s *Service) ReportItem(ctx context.Context, itemID int64, code ReportCode) error {
	const op = "report item"

	if itemID <= 0 {
		return fmt.Errorf("%w: %d", ErrInvalidItemID, itemID)
	}
	if !code.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidReportCode, code)
	}

	token, err := feeds.AccessToken(ctx, s.creds, op)
	if err != nil {
		return err
	}

	if err := s.remote.ReportItem(ctx, token, itemID, code); err != nil {
		if !feeds.IsCancellation(err) {
			s.logger.Error("report rejected by remote", "item_id", itemID, "code", string(code), "error", err)
		}
		return feeds.AsFailure(op, err)
	}

	s.logger.Info("item reported", "item_id", itemID, "code", string(code))
	return nil
}
