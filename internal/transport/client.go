// Package transport opens one streaming turn against an assistant
// endpoint and delivers the backend's events, in arrival order, to a
// consumer callback. It owns the distinction between the three ways a
// turn can end: completed, aborted by the caller, or failed.
package transport

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/marketmind-ai/marketmind/internal/logging"
	"github.com/marketmind-ai/marketmind/pkg/types"
)

// Outcome classifies how a streaming turn ended.
type Outcome int

const (
	// OutcomeDone means the backend finished the turn.
	OutcomeDone Outcome = iota
	// OutcomeAborted means the caller cancelled the turn mid-flight.
	OutcomeAborted
	// OutcomeError means the turn failed, either at the transport level
	// or via an explicit error event from the backend.
	OutcomeError
)

// String returns the outcome name for logging.
func (o Outcome) String() string {
	switch o {
	case OutcomeDone:
		return "done"
	case OutcomeAborted:
		return "aborted"
	case OutcomeError:
		return "error"
	}
	return "unknown"
}

// StreamError is a failure the backend reported inside the event stream.
type StreamError struct {
	Detail string
}

func (e *StreamError) Error() string {
	if e.Detail == "" {
		return "assistant stream failed"
	}
	return e.Detail
}

// EventFunc consumes one stream event. Returning an error stops the
// stream and fails the turn.
type EventFunc func(ev types.StreamEvent) error

// Client streams conversational turns from a single assistant endpoint.
// The same client type serves every logical assistant; which backend it
// talks to is decided purely by the endpoint URL it is constructed with.
type Client struct {
	endpoint   string
	httpClient *http.Client
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient overrides the HTTP client, mainly for tests.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// NewClient creates a streaming client for one endpoint URL.
func NewClient(endpoint string, opts ...Option) *Client {
	c := &Client{
		endpoint: endpoint,
		// No overall timeout: a turn stays open as long as the backend
		// streams. Cancellation happens through the request context.
		httpClient: &http.Client{Timeout: 0},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Endpoint returns the endpoint URL this client posts turns to.
func (c *Client) Endpoint() string {
	return c.endpoint
}

// Stream opens one turn and feeds every event to fn in the order
// received. It returns OutcomeDone with a nil error, OutcomeAborted
// with a nil error when ctx is cancelled, or OutcomeError with the
// cause. Once the context is cancelled no further events are delivered.
func (c *Client) Stream(ctx context.Context, req types.TurnRequest, fn EventFunc) (Outcome, error) {
	if strings.TrimSpace(req.Message) == "" {
		return OutcomeError, fmt.Errorf("turn request: %w", ErrEmptyMessage)
	}

	body, err := json.Marshal(req)
	if err != nil {
		return OutcomeError, fmt.Errorf("failed to encode turn request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return OutcomeError, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "text/event-stream")
	httpReq.Header.Set("Cache-Control", "no-cache")

	start := time.Now()
	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		if ctx.Err() != nil {
			return OutcomeAborted, nil
		}
		return OutcomeError, fmt.Errorf("failed to connect: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return OutcomeError, &StreamError{
			Detail: fmt.Sprintf("unexpected status %d: %s", resp.StatusCode, strings.TrimSpace(string(snippet))),
		}
	}

	outcome, err := c.readEvents(ctx, resp.Body, fn)

	logging.Debug().
		Str("endpoint", c.endpoint).
		Str("outcome", outcome.String()).
		Dur("elapsed", time.Since(start)).
		Msg("turn stream closed")

	return outcome, err
}

// ErrEmptyMessage rejects a turn with no message text before any
// network activity.
var ErrEmptyMessage = errors.New("message is empty")

// readEvents parses the SSE body and dispatches decoded events.
func (c *Client) readEvents(ctx context.Context, body io.Reader, fn EventFunc) (Outcome, error) {
	reader := bufio.NewReader(body)
	var data strings.Builder

	for {
		line, err := reader.ReadString('\n')
		if err != nil {
			if ctx.Err() != nil {
				return OutcomeAborted, nil
			}
			if err == io.EOF {
				// Clean close without a done event: the turn is over.
				return OutcomeDone, nil
			}
			return OutcomeError, fmt.Errorf("stream read failed: %w", err)
		}

		line = strings.TrimRight(line, "\r\n")

		// Blank line terminates one SSE event.
		if line == "" {
			if data.Len() == 0 {
				continue
			}
			payload := data.String()
			data.Reset()

			outcome, done, err := c.dispatch(ctx, payload, fn)
			if done {
				return outcome, err
			}
			continue
		}

		// Comment lines are heartbeats.
		if strings.HasPrefix(line, ":") {
			continue
		}

		if rest, ok := strings.CutPrefix(line, "data:"); ok {
			data.WriteString(strings.TrimSpace(rest))
		}
		// "event:" and "id:" fields are ignored; the event kind lives in
		// the JSON payload's type field.
	}
}

// dispatch decodes one data payload and hands it to fn. The returned
// bool reports whether the stream is finished.
func (c *Client) dispatch(ctx context.Context, payload string, fn EventFunc) (Outcome, bool, error) {
	// A cancelled turn must not leak late-arriving events to the consumer.
	select {
	case <-ctx.Done():
		return OutcomeAborted, true, nil
	default:
	}

	ev, err := types.DecodeStreamEvent([]byte(payload))
	if err != nil {
		logging.Warn().Err(err).Msg("skipping malformed stream event")
		return 0, false, nil
	}

	switch ev.Type {
	case types.EventError:
		// Deliberate asymmetry: every other event is an incremental
		// transcript update, error is control flow.
		return OutcomeError, true, &StreamError{Detail: ev.Message}
	case types.EventDone:
		if err := fn(ev); err != nil {
			return OutcomeError, true, err
		}
		return OutcomeDone, true, nil
	default:
		if err := fn(ev); err != nil {
			return OutcomeError, true, err
		}
		return 0, false, nil
	}
}
