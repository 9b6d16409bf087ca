// Package types defines the wire vocabulary shared by the transport,
// the transcript reducer, and the display layer.
package types

import "encoding/json"

// Message roles.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// ThoughtStep statuses reported by the backend for a reasoning step.
const (
	ThoughtInProgress = "in_progress"
	ThoughtComplete   = "complete"
	ThoughtFailed     = "failed"
	ThoughtSkipped    = "skipped"
)

// ToolCall statuses.
const (
	ToolCalling  = "calling"
	ToolComplete = "complete"
)

// ToolCall sources.
const (
	SourceCache = "cache"
	SourceAPI   = "api"
)

// ThoughtStep is one entry of an assistant message's reasoning trace.
// Steps are keyed by Step: a later event with the same Step value
// replaces the earlier entry in place.
type ThoughtStep struct {
	Step        int    `json:"step"`
	Name        string `json:"name,omitempty"`
	Description string `json:"description,omitempty"`
	Status      string `json:"status,omitempty"`
	Error       string `json:"error,omitempty"`
}

// ToolCall records one backend tool invocation surfaced during a turn.
type ToolCall struct {
	Tool      string          `json:"tool"`
	Input     json.RawMessage `json:"input,omitempty"`
	Source    string          `json:"source,omitempty"`
	Status    string          `json:"status"`
	Timestamp int64           `json:"timestamp"`
}

// Message is a single user or assistant entry in a transcript.
// ThoughtProcess, SQLQuery, ChartData and ToolCalls are ephemeral to a
// live turn and are not persisted by the backend history store.
type Message struct {
	Role           string        `json:"role"`
	Content        string        `json:"content"`
	Timestamp      int64         `json:"timestamp"`
	IsThinking     bool          `json:"isThinking,omitempty"`
	ThoughtProcess []ThoughtStep `json:"thoughtProcess,omitempty"`
	SQLQuery       string        `json:"sqlQuery,omitempty"`
	ChartData      string        `json:"chartData,omitempty"`
	ToolCalls      []ToolCall    `json:"toolCalls,omitempty"`
}
