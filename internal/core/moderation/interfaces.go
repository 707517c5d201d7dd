package moderation

import "context"

// RemoteClient sends moderation requests to the remote feed service
type RemoteClient interface {
	// BlockUser hides every story of ownerID from the viewer server-side
	BlockUser(ctx context.Context, accessToken string, ownerID int64) error

	// ReportItem files a report against itemID
	ReportItem(ctx context.Context, accessToken string, itemID int64, code ReportCode) error
}
