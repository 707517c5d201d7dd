// Package remote is the HTTP client for the remote feed service. It fetches story pages
// and sends reaction and moderation requests, mapping failures to typed errors the
// engine can classify.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"Feedsync/internal/core/feeds"
	"Feedsync/internal/core/moderation"
	"Feedsync/internal/core/reactions"
)

// maxBodyBytes bounds how much of a response body is read
const maxBodyBytes = 4 << 20

// Client talks to the remote feed service over HTTP+JSON
type Client struct {
	http      *http.Client
	limiter   *rate.Limiter
	logger    *slog.Logger
	baseURL   *url.URL
	userAgent string
}

var (
	_ feeds.RemoteClient      = (*Client)(nil)
	_ reactions.RemoteClient  = (*Client)(nil)
	_ moderation.RemoteClient = (*Client)(nil)
)

// NewClient creates a client from a validated config.
// If logger is nil, uses slog.Default().
func NewClient(cfg Config, logger *slog.Logger) (*Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid remote config: %w", err)
	}
	base, err := url.Parse(strings.TrimRight(cfg.BaseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("invalid base URL: %w", err)
	}
	if logger == nil {
		logger = slog.Default()
	}

	limit := rate.Inf
	burst := 0
	if cfg.RatePerSecond > 0 {
		limit = rate.Limit(cfg.RatePerSecond)
		burst = cfg.Burst
	}

	return &Client{
		http:      &http.Client{Timeout: cfg.Timeout},
		limiter:   rate.NewLimiter(limit, burst),
		logger:    logger,
		baseURL:   base,
		userAgent: cfg.UserAgent,
	}, nil
}

// FetchPage implements feeds.RemoteClient
func (c *Client) FetchPage(ctx context.Context, accessToken string, q feeds.PageQuery) (*feeds.PageResult, error) {
	const op = "fetch page"

	path := "/api/v1/stories"
	if q.Feed == feeds.KindMine {
		path = "/api/v1/stories/me"
	}

	params := url.Values{}
	if q.Sort != "" {
		params.Set("sortBy", q.Sort)
	}
	if q.MoodFilter != nil {
		params.Set("emotion", string(*q.MoodFilter))
	}
	if q.Cursor != nil {
		params.Set("lastId", strconv.FormatInt(*q.Cursor, 10))
	}
	if q.PageSize > 0 {
		params.Set("size", strconv.Itoa(q.PageSize))
	}

	var data pageData
	if err := c.do(ctx, op, http.MethodGet, path, params, nil, accessToken, &data); err != nil {
		return nil, err
	}

	items := make([]feeds.FeedItem, 0, len(data.Stories))
	for _, s := range data.Stories {
		item, err := s.toFeedItem()
		if err != nil {
			return nil, &ProtocolError{Op: op, Kind: ErrEnvelope, Status: http.StatusOK, Message: err.Error()}
		}
		items = append(items, item)
	}

	return &feeds.PageResult{Items: items, HasNext: data.HasNext}, nil
}

// PostReaction implements reactions.RemoteClient
func (c *Client) PostReaction(ctx context.Context, accessToken string, itemID int64, mood feeds.Mood) error {
	path := fmt.Sprintf("/api/v1/stories/%d/empathy", itemID)
	return c.do(ctx, "post reaction", http.MethodPost, path, nil, empathyRequest{EmotionCode: string(mood)}, accessToken, nil)
}

// CancelReaction implements reactions.RemoteClient
func (c *Client) CancelReaction(ctx context.Context, accessToken string, itemID int64) error {
	path := fmt.Sprintf("/api/v1/stories/%d/empathy", itemID)
	return c.do(ctx, "cancel reaction", http.MethodDelete, path, nil, nil, accessToken, nil)
}

// BlockUser implements moderation.RemoteClient
func (c *Client) BlockUser(ctx context.Context, accessToken string, ownerID int64) error {
	return c.do(ctx, "block user", http.MethodPost, "/api/v1/blocks", nil, blockRequest{BlockedID: ownerID}, accessToken, nil)
}

// ReportItem implements moderation.RemoteClient
func (c *Client) ReportItem(ctx context.Context, accessToken string, itemID int64, code moderation.ReportCode) error {
	path := fmt.Sprintf("/api/v1/stories/%d/reports", itemID)
	return c.do(ctx, "report item", http.MethodPost, path, nil, reportRequest{ReportCode: string(code)}, accessToken, nil)
}

// do performs one request and decodes the envelope's data into out.
// Cancellation of ctx is returned as ctx.Err(), never as a NetworkError.
func (c *Client) do(ctx context.Context, op, method, path string, params url.Values, body any, accessToken string, out any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		return &NetworkError{Op: op, Err: fmt.Errorf("rate limiter: %w", err)}
	}

	u := c.baseURL.JoinPath(path)
	if len(params) > 0 {
		u.RawQuery = params.Encode()
	}

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("%s: failed to encode request: %w", op, err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, u.String(), reader)
	if err != nil {
		return fmt.Errorf("%s: failed to build request: %w", op, err)
	}

	requestID := uuid.NewString()
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", "Bearer "+accessToken)
	req.Header.Set("X-Request-ID", requestID)
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if method != http.MethodGet {
		req.Header.Set("Idempotency-Key", uuid.NewString())
	}

	resp, err := c.http.Do(req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		return &NetworkError{Op: op, Err: err}
	}
	defer func() {
		if closeErr := resp.Body.Close(); closeErr != nil {
			c.logger.Debug("failed to close response body", "error", closeErr)
		}
	}()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		return &NetworkError{Op: op, Err: fmt.Errorf("read body: %w", err)}
	}

	c.logger.Debug("remote request",
		"op", op,
		"method", method,
		"path", path,
		"status", resp.StatusCode,
		"request_id", requestID,
	)

	var env envelope
	decodeErr := json.Unmarshal(raw, &env)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		perr := &ProtocolError{Op: op, Kind: statusError(resp.StatusCode), Status: resp.StatusCode}
		if decodeErr == nil {
			perr.Code = env.Code
			perr.Message = env.Message
		} else {
			perr.Message = truncate(strings.TrimSpace(string(raw)), 200)
		}
		return perr
	}

	if decodeErr != nil {
		return &ProtocolError{Op: op, Kind: ErrEnvelope, Status: resp.StatusCode, Message: "malformed response: " + decodeErr.Error()}
	}
	if !env.IsSuccess {
		return &ProtocolError{Op: op, Kind: ErrEnvelope, Status: resp.StatusCode, Code: env.Code, Message: env.Message}
	}

	if out == nil {
		return nil
	}
	if !env.hasData() {
		return &ProtocolError{Op: op, Kind: ErrEnvelope, Status: resp.StatusCode, Code: env.Code, Message: "response has no data"}
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return &ProtocolError{Op: op, Kind: ErrEnvelope, Status: resp.StatusCode, Code: env.Code, Message: "malformed data: " + err.Error()}
	}
	return nil
}

// truncate cuts s to at most n bytes without splitting a rune
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n] + "..."
}

// IsNetwork reports whether err is a transport-level failure
func IsNetwork(err error) bool {
	return errors.Is(err, ErrNetwork)
}
