package transport

import (
	"context"
	"sync"
)

// CancelToken aborts one in-flight turn. A token is created when the
// turn starts and is invalidated when the turn ends; Cancel after that
// point is a no-op. Tokens are never reused across turns.
type CancelToken struct {
	once   sync.Once
	cancel context.CancelFunc
}

// NewCancelToken wraps the cancel func of the turn's request context.
func NewCancelToken(cancel context.CancelFunc) *CancelToken {
	return &CancelToken{cancel: cancel}
}

// Cancel closes the underlying connection. Idempotent.
func (t *CancelToken) Cancel() {
	if t == nil {
		return
	}
	t.once.Do(func() {
		if t.cancel != nil {
			t.cancel()
		}
	})
}
