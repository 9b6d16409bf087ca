package chat

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/marketmind-ai/marketmind/internal/event"
	"github.com/marketmind-ai/marketmind/internal/history"
	"github.com/marketmind-ai/marketmind/internal/logging"
	"github.com/marketmind-ai/marketmind/internal/transport"
	"github.com/marketmind-ai/marketmind/pkg/types"
)

// Validation failures, rejected before any side effect.
var (
	ErrEmptyMessage = errors.New("message is empty")
	ErrTurnInFlight = errors.New("a turn is already in flight")
)

// NoticeGenerationStopped is the transient notice set after a
// user-initiated abort. It clears itself after the notice delay.
const NoticeGenerationStopped = "Generation stopped."

// genericErrorMessage is the fallback when a failed turn carries no
// detail at all.
const genericErrorMessage = "Something went wrong. Please try again."

const defaultNoticeDelay = 2 * time.Second

// Streamer opens one conversational turn. Implemented by
// transport.Client; faked in tests.
type Streamer interface {
	Stream(ctx context.Context, req types.TurnRequest, fn transport.EventFunc) (transport.Outcome, error)
}

// HistoryFetcher hydrates a persisted transcript. Implemented by
// history.Client.
type HistoryFetcher interface {
	Fetch(ctx context.Context, sessionID int64, limit int) ([]types.HistoryMessage, error)
}

// SendOptions carries the auxiliary flags of one turn.
type SendOptions struct {
	ChartMode      bool
	DeeperResearch bool
}

// Options configures a Controller.
type Options struct {
	Streamer Streamer
	History  HistoryFetcher
	Bus      *event.Bus

	// Endpoint is the logical assistant name (e.g. "crypto",
	// "markets"), recorded in the session cache. Which backend the
	// Streamer talks to is fixed at construction.
	Endpoint string

	UserID      string
	AnonymousID string

	// NoticeDelay overrides how long the abort notice stays visible.
	NoticeDelay time.Duration
}

// Controller orchestrates turns for one session: it validates input,
// seeds the optimistic messages, drives the transport, folds events
// into the transcript, and performs rollback or finalization when the
// turn ends. It owns the transcript; the display layer only reads it.
type Controller struct {
	mu sync.Mutex

	streamer Streamer
	history  HistoryFetcher
	bus      *event.Bus

	endpoint    string
	userID      string
	anonymousID string
	noticeDelay time.Duration

	sessionID   int64
	transcript  *Transcript
	loading     bool
	token       *transport.CancelToken
	lastError   string
	noticeTimer *time.Timer

	// OnUpdate, when set, is invoked with a transcript snapshot after
	// every state change. It runs outside the controller lock.
	OnUpdate func(msgs []types.Message)
}

// NewController creates a controller for a fresh session: no id, empty
// transcript.
func NewController(opts Options) *Controller {
	delay := opts.NoticeDelay
	if delay <= 0 {
		delay = defaultNoticeDelay
	}
	return &Controller{
		streamer:    opts.Streamer,
		history:     opts.History,
		bus:         opts.Bus,
		endpoint:    opts.Endpoint,
		userID:      opts.UserID,
		anonymousID: opts.AnonymousID,
		noticeDelay: delay,
		transcript:  NewTranscript(),
	}
}

// SessionID returns the adopted session id, or 0 before adoption.
func (c *Controller) SessionID() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sessionID
}

// Loading reports whether a turn is in flight.
func (c *Controller) Loading() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.loading
}

// LastError returns the current user-visible error, or "".
func (c *Controller) LastError() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastError
}

// Messages returns a snapshot of the transcript.
func (c *Controller) Messages() []types.Message {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.transcript.Messages()
}

// Send runs one conversational turn: optimistic user message, thinking
// placeholder, stream, finalize. It blocks until the turn ends and
// returns a non-nil error only for validation failures and the
// transport/server error path; a user-initiated abort returns nil.
func (c *Controller) Send(ctx context.Context, text string, opts SendOptions) error {
	trimmed := strings.TrimSpace(text)

	c.mu.Lock()
	if trimmed == "" {
		c.mu.Unlock()
		return ErrEmptyMessage
	}
	if c.loading {
		c.mu.Unlock()
		return ErrTurnInFlight
	}
	c.loading = true
	c.lastError = ""
	// A stale clear from a previous abort must not fire mid-turn.
	c.stopNoticeTimerLocked()

	now := time.Now().UnixMilli()
	c.transcript.Append(types.Message{Role: types.RoleUser, Content: trimmed, Timestamp: now})
	c.transcript.Append(types.Message{Role: types.RoleAssistant, IsThinking: true, Timestamp: now})

	streamCtx, cancel := context.WithCancel(ctx)
	c.token = transport.NewCancelToken(cancel)
	sessionID := c.sessionID
	c.mu.Unlock()
	defer cancel()

	c.notifyUpdate()

	req := types.TurnRequest{
		Message:        trimmed,
		SessionID:      sessionID,
		UserID:         c.userID,
		ChartMode:      opts.ChartMode,
		DeeperResearch: opts.DeeperResearch,
		AnonymousID:    c.anonymousID,
	}

	logging.Debug().
		Str("endpoint", c.endpoint).
		Int64("sessionID", sessionID).
		Bool("chartMode", opts.ChartMode).
		Msg("turn started")

	outcome, err := c.streamer.Stream(streamCtx, req, c.applyEvent)
	return c.finishTurn(outcome, err)
}

// Stop cancels the in-flight turn. No-op when idle.
func (c *Controller) Stop() {
	c.mu.Lock()
	token := c.token
	c.mu.Unlock()
	token.Cancel()
}

// LoadHistory replaces the transcript with the persisted one for the
// given session and adopts its id. On failure the transcript is left at
// its prior state and a recoverable error is surfaced.
func (c *Controller) LoadHistory(ctx context.Context, sessionID int64) error {
	c.mu.Lock()
	if c.loading {
		c.mu.Unlock()
		return ErrTurnInFlight
	}
	c.loading = true
	c.mu.Unlock()

	msgs, err := c.history.Fetch(ctx, sessionID, history.DefaultLimit)

	c.mu.Lock()
	c.loading = false
	if err != nil {
		c.lastError = "Failed to load conversation history."
		c.mu.Unlock()
		c.notifyUpdate()
		return err
	}

	mapped := make([]types.Message, 0, len(msgs))
	for _, m := range msgs {
		mapped = append(mapped, types.Message{
			Role:      m.Role,
			Content:   m.Content,
			Timestamp: m.Timestamp,
		})
	}
	c.transcript.Replace(mapped)
	c.sessionID = sessionID
	c.lastError = ""
	c.mu.Unlock()

	c.notifyUpdate()
	return nil
}

// applyEvent folds one stream event into the transcript. Events arrive
// strictly in order from the transport, one at a time.
func (c *Controller) applyEvent(ev types.StreamEvent) error {
	var created *types.Session

	c.mu.Lock()
	if ev.SessionID != 0 {
		created = c.adoptLocked(ev.SessionID)
	}
	c.transcript.Apply(ev)
	sessionID := c.sessionID
	c.mu.Unlock()

	if created != nil {
		c.publish(event.Event{Type: event.SessionCreated, Data: event.SessionCreatedData{Info: created}})
	}
	c.publish(event.Event{Type: event.TranscriptUpdated, Data: event.TranscriptUpdatedData{SessionID: sessionID}})
	c.notifyUpdate()
	return nil
}

// adoptLocked resolves session identity. Returns the session record on
// the one adoption transition, nil otherwise.
func (c *Controller) adoptLocked(candidate int64) *types.Session {
	resolved := resolveSessionID(c.sessionID, candidate)
	if resolved == c.sessionID {
		return nil
	}
	c.sessionID = resolved

	title := ""
	for _, m := range c.transcript.Messages() {
		if m.Role == types.RoleUser {
			title = truncateTitle(m.Content)
			break
		}
	}
	return &types.Session{
		ID:       resolved,
		Title:    title,
		Endpoint: c.endpoint,
		Time:     types.SessionTime{Created: time.Now().UnixMilli()},
	}
}

// finishTurn applies the per-outcome rollback and finalization rules.
func (c *Controller) finishTurn(outcome transport.Outcome, err error) error {
	var ret error

	c.mu.Lock()
	c.loading = false
	c.token = nil

	switch outcome {
	case transport.OutcomeDone:
		if last := c.transcript.Last(); last != nil {
			last.IsThinking = false
		}

	case transport.OutcomeAborted:
		// Keep partial content the user already saw; discard a bare
		// thinking placeholder.
		if last := c.transcript.Last(); last != nil && last.Role == types.RoleAssistant {
			if last.Content == "" {
				c.transcript.RemoveLast(1)
			} else {
				last.IsThinking = false
			}
		}
		c.lastError = NoticeGenerationStopped
		c.scheduleNoticeClearLocked()

	case transport.OutcomeError:
		// Full rollback: the question is re-offered as if never sent.
		c.transcript.RemoveLast(2)
		c.lastError = errorDetail(err)
		ret = err
	}

	sessionID := c.sessionID
	c.mu.Unlock()

	logging.Debug().
		Int64("sessionID", sessionID).
		Str("outcome", outcome.String()).
		Err(err).
		Msg("turn finished")

	c.publish(event.Event{Type: event.TurnFinished, Data: event.TurnFinishedData{
		SessionID: sessionID,
		Outcome:   outcome.String(),
	}})
	c.notifyUpdate()
	return ret
}

// scheduleNoticeClearLocked arms the self-healing clear for the abort
// notice. The timer is cancelled if a new turn starts first.
func (c *Controller) scheduleNoticeClearLocked() {
	c.stopNoticeTimerLocked()
	c.noticeTimer = time.AfterFunc(c.noticeDelay, func() {
		c.mu.Lock()
		if c.lastError == NoticeGenerationStopped {
			c.lastError = ""
		}
		c.noticeTimer = nil
		c.mu.Unlock()
		c.notifyUpdate()
	})
}

func (c *Controller) stopNoticeTimerLocked() {
	if c.noticeTimer != nil {
		c.noticeTimer.Stop()
		c.noticeTimer = nil
	}
}

func (c *Controller) publish(e event.Event) {
	if c.bus != nil {
		c.bus.Publish(e)
	}
}

func (c *Controller) notifyUpdate() {
	if c.OnUpdate != nil {
		c.OnUpdate(c.Messages())
	}
}

// errorDetail picks the most specific failure description available:
// server-reported detail, then the error string, then a generic
// fallback.
func errorDetail(err error) string {
	var streamErr *transport.StreamError
	if errors.As(err, &streamErr) && streamErr.Detail != "" {
		return streamErr.Detail
	}
	if err != nil && err.Error() != "" {
		return err.Error()
	}
	return genericErrorMessage
}

func truncateTitle(s string) string {
	const max = 80
	if len(s) <= max {
		return s
	}
	return s[:max-3] + "..."
}
