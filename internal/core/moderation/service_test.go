package moderation

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"Feedsync/internal/core/credentials"
	"Feedsync/internal/core/feeds"
	"Feedsync/internal/testutil"
)

type mockRemote struct {
	mock.Mock
}

func (m *mockRemote) BlockUser(ctx context.Context, accessToken string, ownerID int64) error {
	args := m.Called(ctx, accessToken, ownerID)
	return args.Error(0)
}

func (m *mockRemote) ReportItem(ctx context.Context, accessToken string, itemID int64, code ReportCode) error {
	args := m.Called(ctx, accessToken, itemID, code)
	return args.Error(0)
}

type protocolError struct{}

func (protocolError) Error() string                  { return "403: blocked already" }
func (protocolError) FailureKind() feeds.FailureKind { return feeds.FailureProtocol }

func TestBlockUser_PurgesOwnerFromEveryPartition(t *testing.T) {
	caches := testutil.NewCaches(t)
	entire, mine := caches[feeds.KindEntire], caches[feeds.KindMine]
	testutil.Seed(t, entire, testutil.Item(5, 1), testutil.Item(4, 2), testutil.Item(3, 1))
	testutil.Seed(t, mine, testutil.Item(9, 1), testutil.Item(8, 3))

	remote := &mockRemote{}
	remote.On("BlockUser", mock.Anything, "token-1", int64(1)).Return(nil)
	svc := NewService(remote, credentials.NewStatic("token-1", 3), nil, entire, mine)

	removed, err := svc.BlockUser(context.Background(), 1)

	require.NoError(t, err)
	assert.Equal(t, int64(3), removed)
	assert.Equal(t, []int64{4}, testutil.IDs(t, entire))
	assert.Equal(t, []int64{8}, testutil.IDs(t, mine))
	remote.AssertExpectations(t)
}

func TestBlockUser_RemoteFailureKeepsCache(t *testing.T) {
	caches := testutil.NewCaches(t)
	entire := caches[feeds.KindEntire]
	testutil.Seed(t, entire, testutil.Item(5, 1), testutil.Item(4, 2))

	remote := &mockRemote{}
	remote.On("BlockUser", mock.Anything, "token-1", int64(1)).Return(protocolError{})
	svc := NewService(remote, credentials.NewStatic("token-1", 3), nil, entire)

	_, err := svc.BlockUser(context.Background(), 1)

	require.Error(t, err)
	assert.True(t, feeds.IsFailure(err, feeds.FailureProtocol))
	assert.Equal(t, []int64{5, 4}, testutil.IDs(t, entire))
}

func TestBlockUser_Unauthenticated(t *testing.T) {
	remote := &mockRemote{}
	svc := NewService(remote, credentials.NewStatic("", 0), nil)

	_, err := svc.BlockUser(context.Background(), 1)

	assert.True(t, feeds.IsFailure(err, feeds.FailureUnauthenticated))
	remote.AssertNotCalled(t, "BlockUser", mock.Anything, mock.Anything, mock.Anything)
}

func TestBlockUser_InvalidOwner(t *testing.T) {
	svc := NewService(&mockRemote{}, credentials.NewStatic("token-1", 3), nil)

	_, err := svc.BlockUser(context.Background(), 0)
	assert.ErrorIs(t, err, ErrInvalidOwnerID)
}

func TestReportItem(t *testing.T) {
	caches := testutil.NewCaches(t)
	entire := caches[feeds.KindEntire]
	testutil.Seed(t, entire, testutil.Item(5, 1))

	remote := &mockRemote{}
	remote.On("ReportItem", mock.Anything, "token-1", int64(5), ReportSpam).Return(nil)
	svc := NewService(remote, credentials.NewStatic("token-1", 3), nil, entire)

	require.NoError(t, svc.ReportItem(context.Background(), 5, ReportSpam))
	assert.Equal(t, []int64{5}, testutil.IDs(t, entire), "reports do not touch the cache")
	remote.AssertExpectations(t)
}

func TestReportItem_RejectsUnknownCode(t *testing.T) {
	remote := &mockRemote{}
	svc := NewService(remote, credentials.NewStatic("token-1", 3), nil)

	err := svc.ReportItem(context.Background(), 5, ReportCode("BORING"))

	assert.ErrorIs(t, err, ErrInvalidReportCode)
	remote.AssertNotCalled(t, "ReportItem", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestParseReportCode(t *testing.T) {
	code, err := ParseReportCode("abuse")
	require.NoError(t, err)
	assert.Equal(t, ReportAbuse, code)

	_, err = ParseReportCode("")
	assert.ErrorIs(t, err, ErrInvalidReportCode)
}
