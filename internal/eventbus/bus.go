package eventbus

import (
	"context"
	"sync"

	"github.com/rs/zerolog/log"
)

// EventType represents the type of camera event
type EventType string

const (
	EventTypeDeviceConnected    EventType = "device_connected"
	EventTypeDeviceDisconnected EventType = "device_disconnected"
	EventTypeActivityChanged    EventType = "activity_changed"
)

// DefaultQueueSize bounds the event queue when no size is configured.
const DefaultQueueSize = 64

// Event represents a single camera event
type Event struct {
	Type       EventType
	DeviceID   string
	DeviceName string // set for device_connected
	Active     bool   // set for activity_changed
}

// Handler is a function that handles events
type Handler func(Event)

// Bus routes camera events to subscribed handlers through a single worker,
// so handlers observe events in exactly the order they were published.
type Bus struct {
	mu       sync.RWMutex
	handlers map[EventType][]Handler

	queue chan Event
	wg    sync.WaitGroup

	// Shutdown signaling - closing this channel signals publishers to stop
	// Using a channel in select is race-free (unlike mutex + bool)
	closing   chan struct{}
	closeOnce sync.Once
}

// New creates a new event bus with default settings
func New() *Bus {
	return NewWithConfig(DefaultQueueSize)
}

// NewWithConfig creates a new event bus with a custom queue size
func NewWithConfig(queueSize int) *Bus {
	b := &Bus{
		handlers: make(map[EventType][]Handler),
		queue:    make(chan Event, queueSize),
		closing:  make(chan struct{}),
	}

	b.wg.Add(1)
	go b.worker()

	log.Debug().Int("queue_size", queueSize).Msg("Event bus started")
	return b
}

// worker dispatches queued events in publish order.
func (b *Bus) worker() {
	defer b.wg.Done()

	for {
		select {
		case <-b.closing:
			b.drain()
			return
		case event := <-b.queue:
			b.dispatch(event)
		}
	}
}

// drain delivers events already queued at shutdown.
func (b *Bus) drain() {
	for {
		select {
		case event := <-b.queue:
			b.dispatch(event)
		default:
			return
		}
	}
}

func (b *Bus) dispatch(event Event) {
	b.mu.RLock()
	handlers := b.handlers[event.Type]
	b.mu.RUnlock()

	for _, handler := range handlers {
		b.safeCall(handler, event)
	}
}

func (b *Bus) safeCall(handler Handler, event Event) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().
				Interface("panic", r).
				Str("event_type", string(event.Type)).
				Str("device_id", event.DeviceID).
				Msg("Event handler panicked")
		}
	}()

	handler(event)
}

// Subscribe registers a handler for a specific event type
func (b *Bus) Subscribe(eventType EventType, handler Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.handlers[eventType] = append(b.handlers[eventType], handler)
}

// Publish enqueues an event for delivery. It blocks while the queue is full:
// dropping a camera event would leave the tracked activity flags out of sync
// with reality. Publishing during shutdown drops the event with a warning.
func (b *Bus) Publish(event Event) {
	select {
	case <-b.closing:
		log.Warn().Str("event_type", string(event.Type)).Msg("Event bus closing, dropping event")
	case b.queue <- event:
	}
}

// Close shuts down the bus gracefully.
// First signals publishers to stop, then waits for the worker to drain the
// queue. The context bounds how long to wait.
func (b *Bus) Close(ctx context.Context) {
	b.closeOnce.Do(func() {
		close(b.closing)
	})

	done := make(chan struct{})
	go func() {
		b.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		log.Debug().Msg("Event bus stopped gracefully")
	case <-ctx.Done():
		log.Warn().Msg("Event bus shutdown timed out, some events may be lost")
	}
}
