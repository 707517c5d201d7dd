package reactions

import (
	"context"

	"Feedsync/internal/core/feeds"
)

// RemoteClient sends reaction mutations to the remote feed service.
// A nil error is the server's acknowledgement.
type RemoteClient interface {
	// PostReaction sets the viewer's reaction on itemID to mood, replacing any previous one
	PostReaction(ctx context.Context, accessToken string, itemID int64, mood feeds.Mood) error

	// CancelReaction removes the viewer's reaction on itemID
	CancelReaction(ctx context.Context, accessToken string, itemID int64) error
}
