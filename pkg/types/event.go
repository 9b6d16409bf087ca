package types

import "encoding/json"

// EventType identifies the kind of a stream event.
type EventType string

// Stream event kinds emitted by the assistant backend. Kinds not listed
// here are tolerated and ignored, except that any payload carrying a
// session_id still participates in session identity resolution.
const (
	EventThinking       EventType = "thinking"
	EventThought        EventType = "thought"
	EventSQL            EventType = "sql"
	EventToken          EventType = "token"
	EventChart          EventType = "chart"
	EventToolCall       EventType = "tool_call"
	EventToolResult     EventType = "tool_result"
	EventDone           EventType = "done"
	EventError          EventType = "error"
	EventTierInfo       EventType = "tier_info"
	EventSessionCreated EventType = "session_created"
)

// StreamEvent is one element of the assistant's incremental answer
// stream. Fields are populated according to Type; SessionID may ride
// along on any event.
type StreamEvent struct {
	Type EventType `json:"type"`

	// thought
	Step        int    `json:"step,omitempty"`
	Name        string `json:"name,omitempty"`
	Description string `json:"description,omitempty"`
	Status      string `json:"status,omitempty"`
	Error       string `json:"error,omitempty"`

	// sql
	Query string `json:"query,omitempty"`

	// token
	Content string `json:"content,omitempty"`

	// chart
	Data string `json:"data,omitempty"`

	// tool_call / tool_result
	Tool   string          `json:"tool,omitempty"`
	Input  json.RawMessage `json:"input,omitempty"`
	Source string          `json:"source,omitempty"`

	// error
	Message string `json:"message,omitempty"`

	// Assigned by the backend on the first turn of a new session.
	SessionID int64 `json:"session_id,omitempty"`
}

// DecodeStreamEvent parses one SSE data payload. Unknown fields and
// unknown event kinds are preserved rather than rejected so the client
// stays compatible with newer backends.
func DecodeStreamEvent(data []byte) (StreamEvent, error) {
	var ev StreamEvent
	if err := json.Unmarshal(data, &ev); err != nil {
		return StreamEvent{}, err
	}
	return ev, nil
}

// ThoughtStep converts a thought event into its transcript entry.
func (ev StreamEvent) ThoughtStep() ThoughtStep {
	return ThoughtStep{
		Step:        ev.Step,
		Name:        ev.Name,
		Description: ev.Description,
		Status:      ev.Status,
		Error:       ev.Error,
	}
}
