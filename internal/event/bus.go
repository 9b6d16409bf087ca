// Package event provides an in-process pub/sub bus, built on watermill's
// gochannel, for session lifecycle notifications.
package event

import (
	"sync"
	"sync/atomic"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
)

// Type identifies an event on the bus.
type Type string

const (
	SessionCreated    Type = "session.created"
	TranscriptUpdated Type = "transcript.updated"
	TurnFinished      Type = "turn.finished"
)

// Event is one notification.
type Event struct {
	Type Type `json:"type"`
	Data any  `json:"data"`
}

// Subscriber receives events.
type Subscriber func(e Event)

type entry struct {
	id uint64
	fn Subscriber
}

// Bus fans events out to subscribers. Watermill carries the channel
// infrastructure; subscribers are invoked directly so the Data payload
// keeps its concrete type.
type Bus struct {
	mu          sync.RWMutex
	pubsub      *gochannel.GoChannel
	subscribers map[Type][]entry
	global      []entry
	nextID      uint64
	closed      bool
}

// NewBus creates a bus.
func NewBus() *Bus {
	return &Bus{
		pubsub: gochannel.NewGoChannel(
			gochannel.Config{OutputChannelBuffer: 64},
			watermill.NopLogger{},
		),
		subscribers: make(map[Type][]entry),
	}
}

// Subscribe registers fn for one event type and returns an unsubscribe
// function.
func (b *Bus) Subscribe(t Type, fn Subscriber) func() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return func() {}
	}
	id := atomic.AddUint64(&b.nextID, 1)
	b.subscribers[t] = append(b.subscribers[t], entry{id: id, fn: fn})
	return func() { b.unsubscribe(t, id) }
}

// SubscribeAll registers fn for every event type.
func (b *Bus) SubscribeAll(fn Subscriber) func() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return func() {}
	}
	id := atomic.AddUint64(&b.nextID, 1)
	b.global = append(b.global, entry{id: id, fn: fn})
	return func() { b.unsubscribeGlobal(id) }
}

func (b *Bus) unsubscribe(t Type, id uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	subs := b.subscribers[t]
	for i, e := range subs {
		if e.id == id {
			b.subscribers[t] = append(subs[:i], subs[i+1:]...)
			return
		}
	}
}

func (b *Bus) unsubscribeGlobal(id uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i, e := range b.global {
		if e.id == id {
			b.global = append(b.global[:i], b.global[i+1:]...)
			return
		}
	}
}

// collect snapshots the subscribers for an event under the read lock.
func (b *Bus) collect(t Type) []Subscriber {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return nil
	}
	subs := make([]Subscriber, 0, len(b.subscribers[t])+len(b.global))
	for _, e := range b.subscribers[t] {
		subs = append(subs, e.fn)
	}
	for _, e := range b.global {
		subs = append(subs, e.fn)
	}
	return subs
}

// Publish delivers asynchronously; each subscriber runs in its own
// goroutine so a slow observer cannot block the stream.
func (b *Bus) Publish(e Event) {
	for _, fn := range b.collect(e.Type) {
		go fn(e)
	}
}

// PublishSync delivers in the caller's goroutine, in subscription order.
func (b *Bus) PublishSync(e Event) {
	for _, fn := range b.collect(e.Type) {
		fn(e)
	}
}

// Close drops all subscribers and shuts down the channel backend.
func (b *Bus) Close() error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil
	}
	b.closed = true
	b.subscribers = make(map[Type][]entry)
	b.global = nil
	b.mu.Unlock()
	return b.pubsub.Close()
}
