package types

// Session is the locally cached record of a backend session, written to
// the session-list cache when the backend first assigns an id.
type Session struct {
	ID       int64       `json:"id"`
	Title    string      `json:"title,omitempty"`
	Endpoint string      `json:"endpoint,omitempty"`
	Time     SessionTime `json:"time"`
}

// SessionTime contains timestamps for a session, in Unix milliseconds.
type SessionTime struct {
	Created int64 `json:"created"`
	Updated int64 `json:"updated,omitempty"`
}
