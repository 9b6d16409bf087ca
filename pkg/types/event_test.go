package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeStreamEvent(t *testing.T) {
	ev, err := DecodeStreamEvent([]byte(`{
		"type": "thought",
		"step": 2,
		"name": "query candles",
		"description": "fetching OHLC data",
		"status": "in_progress",
		"session_id": 1042
	}`))
	require.NoError(t, err)

	assert.Equal(t, EventThought, ev.Type)
	assert.Equal(t, 2, ev.Step)
	assert.Equal(t, "query candles", ev.Name)
	assert.Equal(t, ThoughtInProgress, ev.Status)
	assert.Equal(t, int64(1042), ev.SessionID)
}

func TestDecodeStreamEvent_UnknownTypeAndFields(t *testing.T) {
	ev, err := DecodeStreamEvent([]byte(`{
		"type": "telemetry",
		"whatever": true,
		"session_id": 9
	}`))
	require.NoError(t, err)

	assert.Equal(t, EventType("telemetry"), ev.Type)
	assert.Equal(t, int64(9), ev.SessionID)
}

func TestDecodeStreamEvent_Malformed(t *testing.T) {
	_, err := DecodeStreamEvent([]byte(`{not json}`))
	assert.Error(t, err)
}

func TestStreamEvent_ThoughtStep(t *testing.T) {
	ev := StreamEvent{
		Type:        EventThought,
		Step:        3,
		Name:        "rank markets",
		Description: "sorting by volume",
		Status:      ThoughtFailed,
		Error:       "timeout",
	}

	step := ev.ThoughtStep()
	assert.Equal(t, ThoughtStep{
		Step:        3,
		Name:        "rank markets",
		Description: "sorting by volume",
		Status:      ThoughtFailed,
		Error:       "timeout",
	}, step)
}
