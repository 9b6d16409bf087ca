// Package chat implements the streaming assistant session engine: the
// transcript reducer, session identity resolution, and the turn
// orchestrator that ties them to the transport.
package chat

import (
	"time"

	"github.com/marketmind-ai/marketmind/pkg/types"
)

// Transcript is the ordered message history of one session. It is
// append-only except for in-place mutation of the last message while a
// turn is in flight, and is owned exclusively by the Controller.
type Transcript struct {
	messages []types.Message

	// Upsert indexes for the message currently being streamed, keyed
	// into its ThoughtProcess and ToolCalls slices. Reset whenever a
	// message is appended.
	stepIndex    map[int]int
	pendingTools map[string][]int
}

// NewTranscript returns an empty transcript.
func NewTranscript() *Transcript {
	return &Transcript{}
}

// Len returns the number of messages.
func (t *Transcript) Len() int {
	return len(t.messages)
}

// Messages returns a copy of the message history for the display layer.
func (t *Transcript) Messages() []types.Message {
	out := make([]types.Message, len(t.messages))
	copy(out, t.messages)
	return out
}

// Last returns a pointer to the trailing message, or nil when empty.
func (t *Transcript) Last() *types.Message {
	if len(t.messages) == 0 {
		return nil
	}
	return &t.messages[len(t.messages)-1]
}

// Append adds a message and resets the in-flight upsert indexes.
func (t *Transcript) Append(msg types.Message) {
	t.messages = append(t.messages, msg)
	t.stepIndex = nil
	t.pendingTools = nil
}

// RemoveLast drops the trailing n messages.
func (t *Transcript) RemoveLast(n int) {
	if n > len(t.messages) {
		n = len(t.messages)
	}
	t.messages = t.messages[:len(t.messages)-n]
	t.stepIndex = nil
	t.pendingTools = nil
}

// Replace swaps the whole history, used when hydrating from persisted
// storage.
func (t *Transcript) Replace(msgs []types.Message) {
	t.messages = append([]types.Message(nil), msgs...)
	t.stepIndex = nil
	t.pendingTools = nil
}

// Apply folds one stream event into the transcript. All event kinds
// mutate only the last message; error events never reach the reducer
// (the transport turns them into a failed turn), and done is a terminal
// marker with no transcript effect. Unknown kinds are ignored.
func (t *Transcript) Apply(ev types.StreamEvent) {
	msg := t.Last()
	if msg == nil {
		return
	}

	switch ev.Type {
	case types.EventThinking:
		msg.IsThinking = true

	case types.EventThought:
		t.upsertThought(msg, ev.ThoughtStep())
		msg.IsThinking = true

	case types.EventSQL:
		msg.SQLQuery = ev.Query

	case types.EventToken:
		// First token is the transition from reasoning to answering.
		msg.Content += ev.Content
		msg.IsThinking = false

	case types.EventChart:
		msg.ChartData = ev.Data

	case types.EventToolCall:
		t.appendToolCall(msg, ev)
		msg.IsThinking = true

	case types.EventToolResult:
		t.completeToolCall(msg, ev.Tool)

	case types.EventDone:
		// Finalization belongs to the Controller.
	}
}

// upsertThought inserts a step by its key, replacing an existing entry
// in place. Ordering follows first occurrence of each step value.
func (t *Transcript) upsertThought(msg *types.Message, step types.ThoughtStep) {
	if t.stepIndex == nil {
		t.stepIndex = make(map[int]int)
	}
	if i, ok := t.stepIndex[step.Step]; ok {
		msg.ThoughtProcess[i] = step
		return
	}
	t.stepIndex[step.Step] = len(msg.ThoughtProcess)
	msg.ThoughtProcess = append(msg.ThoughtProcess, step)
}

// appendToolCall records a new tool invocation in calling state.
func (t *Transcript) appendToolCall(msg *types.Message, ev types.StreamEvent) {
	if t.pendingTools == nil {
		t.pendingTools = make(map[string][]int)
	}
	t.pendingTools[ev.Tool] = append(t.pendingTools[ev.Tool], len(msg.ToolCalls))
	msg.ToolCalls = append(msg.ToolCalls, types.ToolCall{
		Tool:      ev.Tool,
		Input:     ev.Input,
		Source:    ev.Source,
		Status:    types.ToolCalling,
		Timestamp: time.Now().UnixMilli(),
	})
}

// completeToolCall transitions the earliest calling entry for the tool
// to complete. A result with no matching call is a no-op.
func (t *Transcript) completeToolCall(msg *types.Message, tool string) {
	pending := t.pendingTools[tool]
	if len(pending) == 0 {
		return
	}
	i := pending[0]
	t.pendingTools[tool] = pending[1:]
	msg.ToolCalls[i].Status = types.ToolComplete
}
