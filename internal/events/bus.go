package events

import (
	"sync"
	"time"

	"github.com/traderboter/Back-to-OLD-method-sub000/internal/signal"
)

// EventType represents different types of events in the pipeline
type EventType string

const (
	EventScanStarted      EventType = "SCAN_STARTED"
	EventScanCompleted    EventType = "SCAN_COMPLETED"
	EventSignalGenerated  EventType = "SIGNAL_GENERATED"
	EventSignalValidated  EventType = "SIGNAL_VALIDATED"
	EventSignalRejected   EventType = "SIGNAL_REJECTED"
	EventSignalDispatched EventType = "SIGNAL_DISPATCHED"
	EventOutcomeRecorded  EventType = "OUTCOME_RECORDED"
	EventError            EventType = "ERROR"
)

// Event represents a pipeline event
type Event struct {
	Type      EventType              `json:"type"`
	Timestamp time.Time              `json:"timestamp"`
	Data      map[string]interface{} `json:"data"`
}

// Subscriber is a function that handles events
type Subscriber func(Event)

// EventBus manages event publishing and subscriptions
type EventBus struct {
	mu          sync.RWMutex
	subscribers map[EventType][]Subscriber
	allSubs     []Subscriber
}

// NewEventBus creates a new event bus
func NewEventBus() *EventBus {
	return &EventBus{
		subscribers: make(map[EventType][]Subscriber),
		allSubs:     make([]Subscriber, 0),
	}
}

// Subscribe registers a subscriber for a specific event type
func (eb *EventBus) Subscribe(eventType EventType, subscriber Subscriber) {
	eb.mu.Lock()
	defer eb.mu.Unlock()

	eb.subscribers[eventType] = append(eb.subscribers[eventType], subscriber)
}

// SubscribeAll registers a subscriber for all events
func (eb *EventBus) SubscribeAll(subscriber Subscriber) {
	eb.mu.Lock()
	defer eb.mu.Unlock()

	eb.allSubs = append(eb.allSubs, subscriber)
}

// Publish sends an event to all subscribers. Handlers run in their own
// goroutines so a slow consumer cannot block the pipeline.
func (eb *EventBus) Publish(event Event) {
	eb.mu.RLock()
	defer eb.mu.RUnlock()

	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	if subs, ok := eb.subscribers[event.Type]; ok {
		for _, sub := range subs {
			go sub(event)
		}
	}
	for _, sub := range eb.allSubs {
		go sub(event)
	}
}

// PublishSignal publishes a lifecycle event carrying the full signal
func (eb *EventBus) PublishSignal(eventType EventType, sig *signal.Info) {
	eb.Publish(Event{
		Type: eventType,
		Data: map[string]interface{}{
			"signal": sig,
			"symbol": sig.Symbol,
		},
	})
}

// PublishSignalRejected publishes a rejection with the failing gate
func (eb *EventBus) PublishSignalRejected(sig *signal.Info, gate, reason string) {
	eb.Publish(Event{
		Type: EventSignalRejected,
		Data: map[string]interface{}{
			"symbol": sig.Symbol,
			"gate":   gate,
			"reason": reason,
		},
	})
}

// PublishScanCompleted publishes a scan summary
func (eb *EventBus) PublishScanCompleted(symbols, signals int, elapsed time.Duration) {
	eb.Publish(Event{
		Type: EventScanCompleted,
		Data: map[string]interface{}{
			"symbols":    symbols,
			"signals":    signals,
			"elapsed_ms": elapsed.Milliseconds(),
		},
	})
}

// PublishError publishes a pipeline error
func (eb *EventBus) PublishError(component, symbol string, err error) {
	eb.Publish(Event{
		Type: EventError,
		Data: map[string]interface{}{
			"component": component,
			"symbol":    symbol,
			"error":     err.Error(),
		},
	})
}
