package storage

import (
	"encoding/json"
	"sort"
	"strconv"

	"github.com/marketmind-ai/marketmind/internal/event"
	"github.com/marketmind-ai/marketmind/internal/logging"
	"github.com/marketmind-ai/marketmind/pkg/types"
)

// SessionCache keeps the local list of known sessions, fed by
// session.created events from the bus.
type SessionCache struct {
	store *Storage
}

// NewSessionCache wraps a store.
func NewSessionCache(store *Storage) *SessionCache {
	return &SessionCache{store: store}
}

// Attach subscribes the cache to session.created events. Returns the
// unsubscribe function.
func (c *SessionCache) Attach(bus *event.Bus) func() {
	return bus.Subscribe(event.SessionCreated, func(e event.Event) {
		data, ok := e.Data.(event.SessionCreatedData)
		if !ok || data.Info == nil {
			return
		}
		if err := c.Record(data.Info); err != nil {
			logging.Warn().Err(err).Int64("sessionID", data.Info.ID).Msg("failed to cache session")
		}
	})
}

// Record stores one session.
func (c *SessionCache) Record(s *types.Session) error {
	return c.store.Put([]string{"sessions", strconv.FormatInt(s.ID, 10)}, s)
}

// List returns all cached sessions, newest first.
func (c *SessionCache) List() ([]*types.Session, error) {
	var sessions []*types.Session
	err := c.store.Scan([]string{"sessions"}, func(key string, data json.RawMessage) error {
		var s types.Session
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		sessions = append(sessions, &s)
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(sessions, func(i, j int) bool {
		return sessions[i].Time.Created > sessions[j].Time.Created
	})
	return sessions, nil
}
