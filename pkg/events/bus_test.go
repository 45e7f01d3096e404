package events

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBusDeliversToSubscribers(t *testing.T) {
	bus := NewBus(BusConfig{Workers: 1, BufferSize: 8})

	var mu sync.Mutex
	var received []Event
	done := make(chan struct{}, 1)
	bus.Subscribe(PlanningGenerated, func(e Event) {
		mu.Lock()
		received = append(received, e)
		mu.Unlock()
		done <- struct{}{}
	})

	bus.Start(context.Background())
	defer bus.Stop()

	bus.Publish(PlanningGenerated, map[string]interface{}{"site_id": "site-1"})

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("event was not delivered")
	}

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, received, 1)
	assert.Equal(t, PlanningGenerated, received[0].Name)
	assert.Equal(t, "site-1", received[0].Payload["site_id"])
	assert.False(t, received[0].Occurred.IsZero())
}

func TestBusDropsWhenNotStarted(t *testing.T) {
	bus := NewBus(BusConfig{Workers: 1, BufferSize: 1})

	delivered := false
	bus.Subscribe(RulesLoaded, func(Event) { delivered = true })

	bus.Publish(RulesLoaded, nil)
	assert.False(t, delivered, "events before Start are dropped")
}

func TestBusRecoverFromPanickingHandler(t *testing.T) {
	bus := NewBus(BusConfig{Workers: 1, BufferSize: 8})

	done := make(chan struct{}, 1)
	bus.Subscribe(RulesLoaded, func(Event) { panic("boom") })
	bus.Subscribe(RulesLoaded, func(Event) { done <- struct{}{} })

	bus.Start(context.Background())
	defer bus.Stop()

	bus.Publish(RulesLoaded, nil)

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("second handler did not run after panic in first")
	}
}
