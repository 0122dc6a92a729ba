package eventbus

import (
	"context"
	"sync"
	"time"

	"photoshoot-studio/internal/shared/logger"

	"go.uber.org/zap"
)

// Event represents a generic event
type Event interface {
	Type() string
	Data() interface{}
	Timestamp() time.Time
	Source() string
}

// Handler defines the event handler function type
type Handler func(ctx context.Context, event Event) error

// Unsubscribe detaches a handler registered with Subscribe. Calling it more
// than once is a no-op.
type Unsubscribe func()

// EventBusInterface defines the contract for event bus implementations
type EventBusInterface interface {
	Subscribe(eventType string, handler Handler) Unsubscribe
	Publish(ctx context.Context, event Event) error
	GetSubscriberCount(eventType string) int
}

// Wildcard subscribes a handler to every event type.
const Wildcard = "*"

type subscription struct {
	id      uint64
	handler Handler
}

// EventBus is an in-memory publish/subscribe bus. Handlers are never retried:
// a failing handler is logged and the remaining handlers still run.
type EventBus struct {
	mu       sync.RWMutex
	handlers map[string][]subscription
	nextID   uint64
	logger   logger.Logger
}

// NewEventBus creates a new event bus instance
func NewEventBus(log logger.Logger) *EventBus {
	if log == nil {
		log = logger.NewNopLogger()
	}
	return &EventBus{
		handlers: make(map[string][]subscription),
		logger:   log.WithComponent("eventbus"),
	}
}

// Subscribe adds a handler for a specific event type
func (eb *EventBus) Subscribe(eventType string, handler Handler) Unsubscribe {
	eb.mu.Lock()
	defer eb.mu.Unlock()

	eb.nextID++
	id := eb.nextID
	eb.handlers[eventType] = append(eb.handlers[eventType], subscription{id: id, handler: handler})
	eb.logger.Debug("handler subscribed", zap.String("eventType", eventType), zap.Uint64("subscription", id))

	var once sync.Once
	return func() {
		once.Do(func() { eb.remove(eventType, id) })
	}
}

func (eb *EventBus) remove(eventType string, id uint64) {
	eb.mu.Lock()
	defer eb.mu.Unlock()

	subs := eb.handlers[eventType]
	for i, s := range subs {
		if s.id == id {
			eb.handlers[eventType] = append(subs[:i:i], subs[i+1:]...)
			break
		}
	}
	if len(eb.handlers[eventType]) == 0 {
		delete(eb.handlers, eventType)
	}
}

func (eb *EventBus) snapshot(eventType string) []subscription {
	eb.mu.RLock()
	defer eb.mu.RUnlock()

	subs := make([]subscription, 0, len(eb.handlers[eventType])+len(eb.handlers[Wildcard]))
	subs = append(subs, eb.handlers[eventType]...)
	if eventType != Wildcard {
		subs = append(subs, eb.handlers[Wildcard]...)
	}
	return subs
}

// Publish delivers an event to every handler of its type and to wildcard
// handlers, in subscription order and on the caller's goroutine, so
// subscribers see events in publish order. It returns the first handler
// error, after all handlers ran.
func (eb *EventBus) Publish(ctx context.Context, event Event) error {
	var first error
	for _, s := range eb.snapshot(event.Type()) {
		if err := eb.execute(ctx, event, s); err != nil && first == nil {
			first = err
		}
	}
	return first
}

func (eb *EventBus) execute(ctx context.Context, event Event, s subscription) error {
	if err := s.handler(ctx, event); err != nil {
		eb.logger.Error("event handler failed",
			zap.String("eventType", event.Type()),
			zap.Uint64("subscription", s.id),
			zap.Error(err))
		return err
	}
	return nil
}

// GetSubscriberCount returns the number of handlers for an event type
func (eb *EventBus) GetSubscriberCount(eventType string) int {
	eb.mu.RLock()
	defer eb.mu.RUnlock()
	return len(eb.handlers[eventType])
}

// BasicEvent implements the Event interface
type BasicEvent struct {
	eventType string
	data      interface{}
	timestamp time.Time
	source    string
}

// NewBasicEvent creates a new basic event
func NewBasicEvent(eventType string, data interface{}) Event {
	return NewBasicEventWithSource(eventType, data, "unknown")
}

// NewBasicEventWithSource creates a new basic event with source
func NewBasicEventWithSource(eventType string, data interface{}, source string) Event {
	return &BasicEvent{
		eventType: eventType,
		data:      data,
		timestamp: time.Now(),
		source:    source,
	}
}

func (e *BasicEvent) Type() string         { return e.eventType }
func (e *BasicEvent) Data() interface{}    { return e.data }
func (e *BasicEvent) Timestamp() time.Time { return e.timestamp }
func (e *BasicEvent) Source() string       { return e.source }

var _ EventBusInterface = (*EventBus)(nil)
