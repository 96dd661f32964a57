package events

import (
	"sync"
	"time"

	json "github.com/goccy/go-json"
)

const (
	EventBookingCreated    = "booking_created"
	EventBookingConfirmed  = "booking_confirmed"
	EventBookingInProgress = "booking_in_progress"
	EventBookingCompleted  = "booking_completed"
	EventBookingCancelled  = "booking_cancelled"
	EventBookingDeleted    = "booking_deleted"
)

// BookingEventPayload is the minimal booking snapshot for event
// consumers (logging, metrics, the notifier hook in main).
type BookingEventPayload struct {
	BookingID   int64     `json:"booking_id"`
	ServiceID   int64     `json:"service_id,omitempty"`
	ServiceName string    `json:"service_name"`
	Category    string    `json:"category"`
	FullName    string    `json:"full_name"`
	Phone       string    `json:"phone"`
	Status      string    `json:"status"`
	CreatedAt   time.Time `json:"created_at"`
	ChangedBy   string    `json:"changed_by,omitempty"`
}

// Event is a lightweight domain event.
type Event struct {
	Type      string
	Payload   []byte
	CreatedAt time.Time
}

// EventHandler reacts to an event.
type EventHandler func(event *Event) error

// EventBus provides in-process pub/sub for events.
type EventBus struct {
	subscribers map[string][]EventHandler
	mu          sync.RWMutex
}

// NewEventBus constructs an empty bus.
func NewEventBus() *EventBus {
	return &EventBus{subscribers: make(map[string][]EventHandler)}
}

// Subscribe registers a handler for a given event type.
func (b *EventBus) Subscribe(eventType string, handler EventHandler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subscribers[eventType] = append(b.subscribers[eventType], handler)
}

// Publish notifies subscribers of the event type.
func (b *EventBus) Publish(event *Event) {
	b.mu.RLock()
	handlers := append([]EventHandler(nil), b.subscribers[event.Type]...)
	b.mu.RUnlock()

	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now()
	}

	for _, handler := range handlers {
		// Handlers run synchronously; caller decides concurrency model.
		_ = handler(event)
	}
}

// PublishJSON serializes the payload and publishes an event.
func (b *EventBus) PublishJSON(eventType string, payload interface{}) error {
	if b == nil {
		return nil
	}

	raw, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	b.Publish(&Event{Type: eventType, Payload: raw, CreatedAt: time.Now()})
	return nil
}
