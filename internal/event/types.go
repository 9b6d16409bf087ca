package event

import "github.com/marketmind-ai/marketmind/pkg/types"

// SessionCreatedData is published exactly once per session, when the
// backend first assigns an id. Observers use it to refresh their
// session lists; it is fire-and-forget with respect to the stream.
type SessionCreatedData struct {
	Info *types.Session `json:"info"`
}

// TranscriptUpdatedData is published after each stream event is folded
// into the transcript.
type TranscriptUpdatedData struct {
	SessionID int64 `json:"sessionID"`
}

// TurnFinishedData is published when a turn ends for any reason.
type TurnFinishedData struct {
	SessionID int64  `json:"sessionID"`
	Outcome   string `json:"outcome"`
}
