package events

import (
	"sync"
	"time"
)

// EventType represents different types of events in the system
type EventType string

const (
	EventSignalGenerated  EventType = "SIGNAL_GENERATED"
	EventSignalApproved   EventType = "SIGNAL_APPROVED"
	EventSignalRejected   EventType = "SIGNAL_REJECTED"
	EventEvaluationFailed EventType = "EVALUATION_FAILED"
	EventEngineStarted    EventType = "ENGINE_STARTED"
	EventEngineStopped    EventType = "ENGINE_STOPPED"
	EventError            EventType = "ERROR"
)

// Event represents a system event
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
	allSubs     []Subscriber // Subscribers to all events
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

// Publish sends an event to all subscribers
func (eb *EventBus) Publish(event Event) {
	eb.mu.RLock()
	defer eb.mu.RUnlock()

	// Set timestamp if not provided
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	// Notify specific subscribers
	if subs, ok := eb.subscribers[event.Type]; ok {
		for _, sub := range subs {
			go sub(event) // Run in goroutine to avoid blocking
		}
	}

	// Notify all-event subscribers
	for _, sub := range eb.allSubs {
		go sub(event)
	}
}

// PublishSignalGenerated publishes the verdict of one evaluation
func (eb *EventBus) PublishSignalGenerated(signalID, symbol, signalType, decision string, overallScore float64) {
	eb.Publish(Event{
		Type: EventSignalGenerated,
		Data: map[string]interface{}{
			"signal_id":     signalID,
			"symbol":        symbol,
			"signal_type":   signalType,
			"decision":      decision,
			"overall_score": overallScore,
		},
	})
}

// PublishSignalApproved publishes an approved, sized signal
func (eb *EventBus) PublishSignalApproved(signalID, symbol string, quantity int, entryPrice float64) {
	eb.Publish(Event{
		Type: EventSignalApproved,
		Data: map[string]interface{}{
			"signal_id":   signalID,
			"symbol":      symbol,
			"quantity":    quantity,
			"entry_price": entryPrice,
		},
	})
}

// PublishSignalRejected publishes a rejected or deferred signal with its reason
func (eb *EventBus) PublishSignalRejected(signalID, symbol, reason string) {
	eb.Publish(Event{
		Type: EventSignalRejected,
		Data: map[string]interface{}{
			"signal_id": signalID,
			"symbol":    symbol,
			"reason":    reason,
		},
	})
}

// PublishEvaluationFailed publishes an evaluation that errored before a verdict
func (eb *EventBus) PublishEvaluationFailed(symbol, stage string, err error) {
	data := map[string]interface{}{
		"symbol": symbol,
		"stage":  stage,
	}
	if err != nil {
		data["error"] = err.Error()
	}
	eb.Publish(Event{
		Type: EventEvaluationFailed,
		Data: data,
	})
}

// PublishError publishes an error event
func (eb *EventBus) PublishError(source, message string, err error) {
	data := map[string]interface{}{
		"source":  source,
		"message": message,
	}
	if err != nil {
		data["error"] = err.Error()
	}
	eb.Publish(Event{
		Type: EventError,
		Data: data,
	})
}
