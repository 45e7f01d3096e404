package events

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Domain event names emitted by the planning engine.
const (
	RulesLoaded               = "rules.loaded"
	PlanningGenerated         = "planning.generated"
	PlanningGeneratedDetailed = "planning.generated.detailed"
)

// Event is a fire-and-forget domain notification.
type Event struct {
	Name     string
	Payload  map[string]interface{}
	Occurred time.Time
}

// Handler consumes a published event.
type Handler func(Event)

// BusConfig sizes the worker pool behind the bus.
type BusConfig struct {
	Workers    int
	BufferSize int
	Logger     *zap.Logger
}

// Bus is a lightweight in-memory event dispatcher backed by goroutines.
// Publishing never blocks the caller beyond the channel buffer; delivery
// is best-effort, matching the fire-and-forget contract of domain events.
type Bus struct {
	workers    int
	bufferSize int
	logger     *zap.Logger

	mu       sync.RWMutex
	handlers map[string][]Handler

	events  chan Event
	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	started bool
}

// NewBus builds a bus with the provided configuration.
func NewBus(cfg BusConfig) *Bus {
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = cfg.Workers * 16
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}

	return &Bus{
		workers:    cfg.Workers,
		bufferSize: cfg.BufferSize,
		logger:     cfg.Logger,
		handlers:   make(map[string][]Handler),
		events:     make(chan Event, cfg.BufferSize),
	}
}

// Subscribe registers a handler for an event name. Safe before or after Start.
func (b *Bus) Subscribe(name string, handler Handler) {
	if handler == nil {
		return
	}
	b.mu.Lock()
	b.handlers[name] = append(b.handlers[name], handler)
	b.mu.Unlock()
}

// Start begins worker consumption. Safe to call once.
func (b *Bus) Start(ctx context.Context) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.started {
		return
	}
	b.ctx, b.cancel = context.WithCancel(ctx)
	for i := 0; i < b.workers; i++ {
		b.wg.Add(1)
		go b.worker()
	}
	b.started = true
	b.logger.Sugar().Infow("event bus started", "workers", b.workers)
}

// Stop cancels workers and waits for them to exit.
func (b *Bus) Stop() {
	b.mu.Lock()
	if !b.started {
		b.mu.Unlock()
		return
	}
	b.cancel()
	b.started = false
	b.mu.Unlock()
	b.wg.Wait()
	b.logger.Sugar().Infow("event bus stopped")
}

// Publish enqueues an event. Events published while the buffer is full or the
// bus is stopped are dropped with a warning, never surfaced to the publisher.
func (b *Bus) Publish(name string, payload map[string]interface{}) {
	b.mu.RLock()
	started := b.started
	b.mu.RUnlock()

	event := Event{Name: name, Payload: payload, Occurred: time.Now().UTC()}
	if !started {
		b.logger.Sugar().Debugw("event dropped, bus not started", "event", name)
		return
	}

	select {
	case b.events <- event:
	default:
		b.logger.Sugar().Warnw("event dropped, buffer full", "event", name)
	}
}

func (b *Bus) worker() {
	defer b.wg.Done()
	for {
		select {
		case <-b.ctx.Done():
			return
		case event := <-b.events:
			b.dispatch(event)
		}
	}
}

func (b *Bus) dispatch(event Event) {
	b.mu.RLock()
	handlers := b.handlers[event.Name]
	b.mu.RUnlock()

	for _, handler := range handlers {
		func() {
			defer func() {
				if r := recover(); r != nil {
					b.logger.Sugar().Errorw("event handler panicked", "event", event.Name, "panic", r)
				}
			}()
			handler(event)
		}()
	}
}
