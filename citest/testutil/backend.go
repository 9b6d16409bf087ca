package testutil

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/marketmind-ai/marketmind/pkg/types"
)

// Scenario is the scripted stream a backend plays for one message.
type Scenario struct {
	// Events are written in order as SSE data frames.
	Events []types.StreamEvent

	// Status, when non-zero and not 200, short-circuits the turn with
	// an HTTP error before any event is written.
	Status int

	// Hold, when set, is closed by the test to release the stream
	// after the first event. Used to keep a turn open for aborts.
	Hold chan struct{}
}

// Backend is a scripted assistant API for integration tests. It
// serves the chat SSE endpoint and the history endpoint, assigns
// session ids, and records every completed turn so history requests
// replay it.
type Backend struct {
	server *httptest.Server

	mu        sync.Mutex
	scenarios map[string]Scenario
	nextID    int64
	history   map[int64][]types.HistoryMessage
	requests  []types.TurnRequest
}

// NewBackend starts a scripted backend on an ephemeral port.
func NewBackend() *Backend {
	b := &Backend{
		scenarios: make(map[string]Scenario),
		nextID:    1000,
		history:   make(map[int64][]types.HistoryMessage),
	}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Post("/v1/chat/crypto", b.handleChat)
	r.Get("/v1/history", b.handleHistory)

	b.server = httptest.NewServer(r)
	return b
}

// URL returns the backend base URL.
func (b *Backend) URL() string {
	return b.server.URL
}

// ChatURL returns the crypto chat endpoint URL.
func (b *Backend) ChatURL() string {
	return b.server.URL + "/v1/chat/crypto"
}

// HistoryURL returns the history endpoint URL.
func (b *Backend) HistoryURL() string {
	return b.server.URL + "/v1/history"
}

// Close shuts the backend down.
func (b *Backend) Close() {
	b.server.Close()
}

// Script registers the scenario played when the given message arrives.
func (b *Backend) Script(message string, sc Scenario) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.scenarios[message] = sc
}

// Seed pre-populates the history store for a session.
func (b *Backend) Seed(sessionID int64, msgs []types.HistoryMessage) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.history[sessionID] = msgs
}

// Requests returns the turn requests received so far.
func (b *Backend) Requests() []types.TurnRequest {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]types.TurnRequest, len(b.requests))
	copy(out, b.requests)
	return out
}

func (b *Backend) handleChat(w http.ResponseWriter, r *http.Request) {
	var req types.TurnRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}

	b.mu.Lock()
	b.requests = append(b.requests, req)
	sc, ok := b.scenarios[req.Message]
	sessionID := req.SessionID
	if sessionID == 0 {
		b.nextID++
		sessionID = b.nextID
	}
	b.mu.Unlock()

	if !ok {
		http.Error(w, fmt.Sprintf("no scenario for %q", req.Message), http.StatusBadRequest)
		return
	}
	if sc.Status != 0 && sc.Status != http.StatusOK {
		http.Error(w, "backend unavailable", sc.Status)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.WriteHeader(http.StatusOK)
	flusher := w.(http.Flusher)

	var answer string
	for i, ev := range sc.Events {
		// The first frame of a fresh session carries the assigned id.
		if i == 0 && req.SessionID == 0 {
			ev.SessionID = sessionID
		}
		if ev.Type == types.EventToken {
			answer += ev.Content
		}

		payload, err := json.Marshal(ev)
		if err != nil {
			return
		}
		fmt.Fprintf(w, "data: %s\n\n", payload)
		flusher.Flush()

		if i == 0 && sc.Hold != nil {
			select {
			case <-sc.Hold:
			case <-r.Context().Done():
				return
			}
		}
	}

	b.mu.Lock()
	b.history[sessionID] = append(b.history[sessionID],
		types.HistoryMessage{Role: types.RoleUser, Content: req.Message},
		types.HistoryMessage{Role: types.RoleAssistant, Content: answer},
	)
	b.mu.Unlock()
}

func (b *Backend) handleHistory(w http.ResponseWriter, r *http.Request) {
	sessionID, err := strconv.ParseInt(r.URL.Query().Get("session_id"), 10, 64)
	if err != nil {
		http.Error(w, "invalid session_id", http.StatusBadRequest)
		return
	}

	b.mu.Lock()
	msgs, ok := b.history[sessionID]
	b.mu.Unlock()
	if !ok {
		http.Error(w, "session not found", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(types.HistoryResponse{Messages: msgs})
}
