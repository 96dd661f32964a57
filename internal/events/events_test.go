package events

import (
	"errors"
	"testing"
	"time"

	json "github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPublishJSON_DeliversToSubscribers(t *testing.T) {
	bus := NewEventBus()

	var got *Event
	bus.Subscribe(EventBookingCreated, func(e *Event) error {
		got = e
		return nil
	})

	payload := BookingEventPayload{
		BookingID: 12,
		Category:  "delivery",
		Status:    "pending",
		CreatedAt: time.Now(),
	}
	require.NoError(t, bus.PublishJSON(EventBookingCreated, payload))

	require.NotNil(t, got)
	assert.Equal(t, EventBookingCreated, got.Type)
	assert.False(t, got.CreatedAt.IsZero())

	var decoded BookingEventPayload
	require.NoError(t, json.Unmarshal(got.Payload, &decoded))
	assert.Equal(t, int64(12), decoded.BookingID)
	assert.Equal(t, "delivery", decoded.Category)
}

func TestPublish_OnlyMatchingType(t *testing.T) {
	bus := NewEventBus()

	var created, cancelled int
	bus.Subscribe(EventBookingCreated, func(e *Event) error { created++; return nil })
	bus.Subscribe(EventBookingCancelled, func(e *Event) error { cancelled++; return nil })

	require.NoError(t, bus.PublishJSON(EventBookingCreated, BookingEventPayload{BookingID: 1}))

	assert.Equal(t, 1, created)
	assert.Zero(t, cancelled)
}

func TestPublish_MultipleHandlersAllRun(t *testing.T) {
	bus := NewEventBus()

	var calls int
	handler := func(e *Event) error { calls++; return errors.New("handler error ignored") }
	bus.Subscribe(EventBookingConfirmed, handler)
	bus.Subscribe(EventBookingConfirmed, handler)

	require.NoError(t, bus.PublishJSON(EventBookingConfirmed, BookingEventPayload{BookingID: 2}))
	assert.Equal(t, 2, calls)
}

func TestPublishJSON_NilBus(t *testing.T) {
	var bus *EventBus
	assert.NoError(t, bus.PublishJSON(EventBookingCreated, nil))
}
