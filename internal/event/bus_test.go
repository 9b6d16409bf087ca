package event

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marketmind-ai/marketmind/pkg/types"
)

func TestBus_PublishSync(t *testing.T) {
	bus := NewBus()
	defer bus.Close()

	var got []Event
	bus.Subscribe(SessionCreated, func(e Event) {
		got = append(got, e)
	})

	bus.PublishSync(Event{Type: SessionCreated, Data: SessionCreatedData{
		Info: &types.Session{ID: 7, Title: "price of BTC"},
	}})
	bus.PublishSync(Event{Type: TurnFinished, Data: TurnFinishedData{SessionID: 7, Outcome: "done"}})

	require.Len(t, got, 1)
	data, ok := got[0].Data.(SessionCreatedData)
	require.True(t, ok)
	assert.Equal(t, int64(7), data.Info.ID)
}

func TestBus_PublishAsync(t *testing.T) {
	bus := NewBus()
	defer bus.Close()

	var count atomic.Int32
	bus.Subscribe(TranscriptUpdated, func(e Event) {
		count.Add(1)
	})

	bus.Publish(Event{Type: TranscriptUpdated, Data: TranscriptUpdatedData{SessionID: 1}})

	assert.Eventually(t, func() bool {
		return count.Load() == 1
	}, time.Second, 5*time.Millisecond)
}

func TestBus_SubscribeAll(t *testing.T) {
	bus := NewBus()
	defer bus.Close()

	var mu sync.Mutex
	var seen []Type
	bus.SubscribeAll(func(e Event) {
		mu.Lock()
		seen = append(seen, e.Type)
		mu.Unlock()
	})

	bus.PublishSync(Event{Type: SessionCreated})
	bus.PublishSync(Event{Type: TurnFinished})

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []Type{SessionCreated, TurnFinished}, seen)
}

func TestBus_Unsubscribe(t *testing.T) {
	bus := NewBus()
	defer bus.Close()

	var count int
	unsub := bus.Subscribe(SessionCreated, func(e Event) { count++ })

	bus.PublishSync(Event{Type: SessionCreated})
	unsub()
	bus.PublishSync(Event{Type: SessionCreated})

	assert.Equal(t, 1, count)
}

func TestBus_ClosedBusDropsEverything(t *testing.T) {
	bus := NewBus()

	var count int
	bus.Subscribe(SessionCreated, func(e Event) { count++ })
	require.NoError(t, bus.Close())

	bus.PublishSync(Event{Type: SessionCreated})
	assert.Zero(t, count)

	unsub := bus.Subscribe(SessionCreated, func(e Event) { count++ })
	unsub()
	bus.PublishSync(Event{Type: SessionCreated})
	assert.Zero(t, count)

	assert.NoError(t, bus.Close())
}
