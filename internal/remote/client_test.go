package remote

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"Feedsync/internal/core/feeds"
	"Feedsync/internal/core/moderation"
)

const pageBody = `{
  "isSuccess": true,
  "code": 1000,
  "message": "ok",
  "data": {
    "hasNext": true,
    "storyInfo": [
      {
        "storyId": 12,
        "storyUUID": "0b8d7a52",
        "createdAt": "2024-05-01T09:30:00",
        "updatedAt": "2024-05-01T10:00:00Z",
        "writerId": 3,
        "isMine": false,
        "emotionOfEmpathy": {"totalCount": 6, "happinessCount": 3, "sadnessCount": 1, "surprisedCount": 2, "angryCount": 0},
        "profileInfo": {"nickname": "mina", "profileImg": "https://img.example/p.png"},
        "storyMainContent": {"bodyText": "hello", "photo": [{"photoUrl": "https://img.example/1.png"}], "writerEmotion": "sad"},
        "storyMetaInfo": {"isAnonymous": true, "isModified": false, "isOpened": true},
        "resultOfEmpathize": {"emotionCode": "HAPPY"}
      }
    ]
  }
}`

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	cfg := DefaultConfig()
	cfg.BaseURL = srv.URL
	cfg.Timeout = 2 * time.Second
	cfg.RatePerSecond = 0

	c, err := NewClient(cfg, nil)
	require.NoError(t, err)
	return c
}

func TestFetchPage(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/api/v1/stories", r.URL.Path)
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		assert.NotEmpty(t, r.Header.Get("X-Request-ID"))
		assert.Empty(t, r.Header.Get("Idempotency-Key"))

		q := r.URL.Query()
		assert.Equal(t, "popular", q.Get("sortBy"))
		assert.Equal(t, "SAD", q.Get("emotion"))
		assert.Equal(t, "20", q.Get("lastId"))
		assert.Equal(t, "5", q.Get("size"))

		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, pageBody)
	})

	cursor := int64(20)
	mood := feeds.MoodSad
	page, err := c.FetchPage(context.Background(), "tok", feeds.PageQuery{
		Feed:       feeds.KindEntire,
		Cursor:     &cursor,
		PageSize:   5,
		MoodFilter: &mood,
		Sort:       "popular",
	})
	require.NoError(t, err)
	require.True(t, page.HasNext)
	require.Len(t, page.Items, 1)

	item := page.Items[0]
	assert.Equal(t, int64(12), item.ItemID)
	assert.Equal(t, "0b8d7a52", item.ItemUUID)
	assert.Equal(t, int64(3), item.OwnerID)
	assert.Equal(t, "mina", item.OwnerNickname)
	assert.Equal(t, feeds.MoodSad, item.WriterMood)
	assert.Equal(t, []string{"https://img.example/1.png"}, item.Images)
	assert.Equal(t, 3, item.Reactions.Count(feeds.MoodHappy))
	assert.Equal(t, 2, item.Reactions.Count(feeds.MoodSurprised))
	assert.Equal(t, 6, item.Reactions.Total())
	assert.True(t, item.Reactions.IsSelected(feeds.MoodHappy))
	assert.True(t, item.IsAnonymous)
	assert.True(t, item.IsOpened)
	assert.Equal(t, time.Date(2024, 5, 1, 9, 30, 0, 0, time.UTC), item.CreatedAt)
	assert.Equal(t, time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC), item.UpdatedAt)
}

func TestFetchPage_MineUsesOwnEndpoint(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/stories/me", r.URL.Path)
		assert.Empty(t, r.URL.Query().Get("lastId"))
		_, _ = io.WriteString(w, `{"isSuccess":true,"code":1000,"message":"ok","data":{"hasNext":false,"storyInfo":[]}}`)
	})

	page, err := c.FetchPage(context.Background(), "tok", feeds.PageQuery{Feed: feeds.KindMine, PageSize: 10})
	require.NoError(t, err)
	assert.False(t, page.HasNext)
	assert.Empty(t, page.Items)
}

func TestFetchPage_EnvelopeFailureIsProtocol(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"isSuccess":false,"code":3001,"message":"story filter invalid"}`)
	})

	_, err := c.FetchPage(context.Background(), "tok", feeds.PageQuery{Feed: feeds.KindEntire})

	var perr *ProtocolError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, 3001, perr.Code)
	assert.Equal(t, "story filter invalid", perr.Message)
	assert.ErrorIs(t, err, ErrEnvelope)

	f := feeds.AsFailure("load", err)
	assert.True(t, feeds.IsFailure(f, feeds.FailureProtocol))
}

func TestFetchPage_MissingDataIsProtocol(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"isSuccess":true,"code":1000,"message":"ok","data":null}`)
	})

	_, err := c.FetchPage(context.Background(), "tok", feeds.PageQuery{Feed: feeds.KindEntire})
	assert.ErrorIs(t, err, ErrEnvelope)
}

func TestStatusMapping(t *testing.T) {
	tests := []struct {
		want   error
		status int
	}{
		{status: http.StatusBadRequest, want: ErrBadRequest},
		{status: http.StatusUnauthorized, want: ErrUnauthorized},
		{status: http.StatusForbidden, want: ErrForbidden},
		{status: http.StatusNotFound, want: ErrNotFound},
		{status: http.StatusConflict, want: ErrConflict},
		{status: http.StatusTooManyRequests, want: ErrRateLimited},
		{status: http.StatusBadGateway, want: ErrServer},
	}

	for _, tt := range tests {
		t.Run(http.StatusText(tt.status), func(t *testing.T) {
			c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = io.WriteString(w, `{"isSuccess":false,"code":2001,"message":"nope"}`)
			})

			err := c.CancelReaction(context.Background(), "tok", 7)

			require.Error(t, err)
			assert.ErrorIs(t, err, tt.want)
			var perr *ProtocolError
			require.ErrorAs(t, err, &perr)
			assert.Equal(t, tt.status, perr.Status)
			assert.Equal(t, 2001, perr.Code)
			assert.Equal(t, tt.status == http.StatusUnauthorized || tt.status == http.StatusForbidden, IsAuthError(err))
		})
	}
}

func TestNonJSONErrorBodyIsTruncatedOnRuneBoundary(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		_, _ = io.WriteString(w, strings.Repeat("서버 오류 ", 40))
	})

	err := c.CancelReaction(context.Background(), "tok", 7)

	var perr *ProtocolError
	require.ErrorAs(t, err, &perr)
	assert.True(t, utf8.ValidString(perr.Message))
	assert.True(t, strings.HasSuffix(perr.Message, "..."))
	assert.LessOrEqual(t, len(perr.Message), 200+len("..."))
	assert.True(t, strings.HasPrefix(perr.Message, "서버 오류"))
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 10))
	assert.Equal(t, "abc...", truncate("abcdef", 3))
	// "é" is two bytes; cutting at 2 would split it
	assert.Equal(t, "a...", truncate("aéb", 2))
	assert.Equal(t, "...", truncate("日本", 2))
}

func TestMutations_SendBodiesAndIdempotencyKeys(t *testing.T) {
	type seen struct {
		body   map[string]any
		method string
		path   string
		key    string
	}
	var got []seen

	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		s := seen{method: r.Method, path: r.URL.Path, key: r.Header.Get("Idempotency-Key")}
		if r.Body != nil {
			_ = json.NewDecoder(r.Body).Decode(&s.body)
		}
		got = append(got, s)
		_, _ = io.WriteString(w, `{"isSuccess":true,"code":1000,"message":"ok"}`)
	})
	ctx := context.Background()

	require.NoError(t, c.PostReaction(ctx, "tok", 7, feeds.MoodAngry))
	require.NoError(t, c.BlockUser(ctx, "tok", 3))
	require.NoError(t, c.ReportItem(ctx, "tok", 7, moderation.ReportSpam))

	require.Len(t, got, 3)
	assert.Equal(t, http.MethodPost, got[0].method)
	assert.Equal(t, "/api/v1/stories/7/empathy", got[0].path)
	assert.Equal(t, "ANGRY", got[0].body["emotionCode"])
	assert.Equal(t, "/api/v1/blocks", got[1].path)
	assert.Equal(t, float64(3), got[1].body["blockedId"])
	assert.Equal(t, "/api/v1/stories/7/reports", got[2].path)
	assert.Equal(t, "SPAM", got[2].body["reportCode"])
	for _, s := range got {
		assert.NotEmpty(t, s.key)
	}
	assert.NotEqual(t, got[0].key, got[1].key)
}

func TestNetworkFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	base := srv.URL
	srv.Close()

	cfg := DefaultConfig()
	cfg.BaseURL = base
	c, err := NewClient(cfg, nil)
	require.NoError(t, err)

	_, err = c.FetchPage(context.Background(), "tok", feeds.PageQuery{Feed: feeds.KindEntire})

	require.Error(t, err)
	assert.True(t, IsNetwork(err))
	assert.True(t, feeds.IsFailure(feeds.AsFailure("load", err), feeds.FailureNetwork))
}

func TestCancelledRequestReturnsContextError(t *testing.T) {
	release := make(chan struct{})
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	})
	defer close(release)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(50 * time.Millisecond)
		cancel()
	}()

	_, err := c.FetchPage(ctx, "tok", feeds.PageQuery{Feed: feeds.KindEntire})

	require.Error(t, err)
	assert.True(t, errors.Is(err, context.Canceled))
	assert.False(t, IsNetwork(err))
	assert.False(t, feeds.IsFailure(feeds.AsFailure("load", err)))
}

func TestConfigValidate(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, cfg.Validate())

	cfg.BaseURL = ""
	assert.ErrorIs(t, cfg.Validate(), ErrMissingBaseURL)

	cfg = DefaultConfig()
	cfg.BaseURL = "ftp://example.com"
	assert.ErrorIs(t, cfg.Validate(), ErrInvalidBaseURL)

	cfg = DefaultConfig()
	cfg.Burst = 0
	assert.ErrorIs(t, cfg.Validate(), ErrInvalidBurst)
}

func TestConfigFromEnv(t *testing.T) {
	t.Setenv("REMOTE_BASE_URL", "https://api.example.com")
	t.Setenv("REMOTE_TIMEOUT_SECONDS", "3")
	t.Setenv("REMOTE_RATE_PER_SECOND", "0")
	t.Setenv("REMOTE_BURST", "nope")

	cfg := ConfigFromEnv()
	assert.Equal(t, "https://api.example.com", cfg.BaseURL)
	assert.Equal(t, 3*time.Second, cfg.Timeout)
	assert.Equal(t, float64(0), cfg.RatePerSecond)
	assert.Equal(t, DefaultConfig().Burst, cfg.Burst)
}
