package chat

// resolveSessionID assigns the backend-issued session id at most once.
// A session starts with id 0 (unassigned); the first identity-bearing
// event of a turn locks the id for the lifetime of the session, and any
// later candidate, equal or not, is ignored. Callable from every event
// kind without risk of double adoption.
func resolveSessionID(current, candidate int64) int64 {
	if current != 0 {
		return current
	}
	return candidate
}
