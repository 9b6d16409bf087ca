package types

// TurnRequest is the JSON body posted to an assistant endpoint to open
// one conversational turn.
type TurnRequest struct {
	Message        string `json:"message"`
	SessionID      int64  `json:"session_id,omitempty"`
	UserID         string `json:"user_id,omitempty"`
	ChartMode      bool   `json:"chart_mode"`
	DeeperResearch bool   `json:"deeper_research"`
	AnonymousID    string `json:"anonymous_id"`
}

// HistoryMessage is one persisted transcript entry returned by the
// history endpoint. Only role, content and timestamp survive a turn.
type HistoryMessage struct {
	Role      string `json:"role"`
	Content   string `json:"content"`
	Timestamp int64  `json:"timestamp"`
}

// HistoryResponse is the payload of GET history(sessionID, limit).
type HistoryResponse struct {
	Messages []HistoryMessage `json:"messages"`
}
