// Package history fetches persisted transcripts from the backend's
// history endpoint. It is independent of the streaming path.
package history

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/marketmind-ai/marketmind/internal/logging"
	"github.com/marketmind-ai/marketmind/pkg/types"
)

const (
	// DefaultLimit is the number of messages requested per hydration.
	DefaultLimit = 50

	retryInitialInterval = 250 * time.Millisecond
	retryMaxInterval     = 2 * time.Second
	maxRetries           = 3
)

// LoadError reports a failed history fetch. The caller's transcript is
// left untouched; the error is recoverable and user-visible.
type LoadError struct {
	SessionID int64
	Err       error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("failed to load history for session %d: %v", e.SessionID, e.Err)
}

func (e *LoadError) Unwrap() error {
	return e.Err
}

// Client talks to the history endpoint.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient overrides the HTTP client, mainly for tests.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// NewClient creates a history client for a base URL.
func NewClient(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: 15 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Fetch retrieves up to limit persisted messages for a session.
// Transient failures are retried with jittered exponential backoff;
// client errors from the backend are not.
func (c *Client) Fetch(ctx context.Context, sessionID int64, limit int) ([]types.HistoryMessage, error) {
	if limit <= 0 {
		limit = DefaultLimit
	}

	u, err := url.Parse(c.baseURL)
	if err != nil {
		return nil, &LoadError{SessionID: sessionID, Err: err}
	}
	q := u.Query()
	q.Set("session_id", strconv.FormatInt(sessionID, 10))
	q.Set("limit", strconv.Itoa(limit))
	u.RawQuery = q.Encode()

	var resp types.HistoryResponse
	operation := func() error {
		return c.fetchOnce(ctx, u.String(), &resp)
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = retryInitialInterval
	b.MaxInterval = retryMaxInterval

	err = backoff.Retry(operation, backoff.WithContext(backoff.WithMaxRetries(b, maxRetries), ctx))
	if err != nil {
		return nil, &LoadError{SessionID: sessionID, Err: err}
	}

	logging.Debug().
		Int64("sessionID", sessionID).
		Int("messages", len(resp.Messages)).
		Msg("history loaded")

	return resp.Messages, nil
}

// fetchOnce performs a single GET. 4xx responses are permanent.
func (c *Client) fetchOnce(ctx context.Context, url string, out *types.HistoryResponse) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return backoff.Permanent(err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		err := fmt.Errorf("unexpected status %d: %s", resp.StatusCode, snippet)
		if resp.StatusCode >= 400 && resp.StatusCode < 500 {
			return backoff.Permanent(err)
		}
		return err
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return backoff.Permanent(fmt.Errorf("failed to decode history: %w", err))
	}
	return nil
}
