package feeds

import (
	"context"
	"errors"
	"fmt"

	"Feedsync/internal/core/credentials"
)

// RemoteClient fetches pages from the remote feed service
type RemoteClient interface {
	// FetchPage returns one page in server order.
	// Errors implement Classified when the client can tell network from protocol failures.
	FetchPage(ctx context.Context, accessToken string, q PageQuery) (*PageResult, error)
}

// CacheStore is the typed adapter over one feed partition of the local store.
// Every write goes through RunInTx, which serializes writers of the partition.
type CacheStore interface {
	// Feed returns the partition this adapter serves
	Feed() Kind

	// RunInTx runs fn inside one transaction holding the partition's writer lock.
	// fn's error rolls the transaction back and is returned as is.
	RunInTx(ctx context.Context, fn func(tx CacheTx) error) error

	// List returns up to limit items in descending item id order, starting below
	// before when it is non-nil. A limit <= 0 returns every item.
	List(ctx context.Context, limit int, before *int64) ([]FeedItem, error)

	// GetByID reads one item outside any transaction
	GetByID(ctx context.Context, itemID int64) (*FeedItem, error)

	// LastItem returns the item with the smallest id, or ErrItemNotFound when empty
	LastItem(ctx context.Context) (*FeedItem, error)

	// Subscribe returns a channel signalled after every committed write and a
	// function that releases the subscription
	Subscribe() (<-chan struct{}, func())
}

// CacheTx is the write view of a partition inside RunInTx
type CacheTx interface {
	GetByID(ctx context.Context, itemID int64) (*FeedItem, error)
	UpsertMany(ctx context.Context, items []FeedItem) error
	Update(ctx context.Context, item *FeedItem) error
	DeleteAll(ctx context.Context) (int64, error)
	DeleteByOwner(ctx context.Context, ownerID int64) (int64, error)
}

// AccessToken resolves the viewer's token for op, failing with FailureUnauthenticated
// when none is available. Cancellation propagates unchanged.
func AccessToken(ctx context.Context, provider credentials.Provider, op string) (string, error) {
	if provider == nil {
		return "", &Failure{Op: op, Kind: FailureUnauthenticated, Err: credentials.ErrNoCredentials}
	}

	creds, err := provider.Credentials(ctx)
	if err != nil {
		if errors.Is(err, credentials.ErrNoCredentials) {
			return "", &Failure{Op: op, Kind: FailureUnauthenticated, Err: err}
		}
		if IsCancellation(err) {
			return "", err
		}
		return "", &Failure{Op: op, Kind: FailureUnexpected, Err: fmt.Errorf("resolve credentials: %w", err)}
	}
	if creds.AccessToken == "" {
		return "", &Failure{Op: op, Kind: FailureUnauthenticated, Err: credentials.ErrNoCredentials}
	}

	return creds.AccessToken, nil
}
