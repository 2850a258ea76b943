package events

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEventBus_PublishJSON(t *testing.T) {
	bus := NewEventBus()

	var received []ReservationEventPayload
	bus.Subscribe(EventReservationCreated, func(e *Event) error {
		var p ReservationEventPayload
		if err := json.Unmarshal(e.Payload, &p); err != nil {
			return err
		}
		received = append(received, p)
		return nil
	})

	payload := ReservationEventPayload{
		ReservationID: 7,
		UserID:        1,
		TableID:       2,
		TableName:     "Стол 2",
		StartTime:     time.Date(2026, 9, 4, 16, 0, 0, 0, time.Local),
		Status:        "active",
	}
	require.NoError(t, bus.PublishJSON(EventReservationCreated, payload))

	require.Len(t, received, 1)
	assert.Equal(t, int64(7), received[0].ReservationID)
	assert.Equal(t, "Стол 2", received[0].TableName)
}

func TestEventBus_TypeIsolation(t *testing.T) {
	bus := NewEventBus()

	var created, cancelled int
	bus.Subscribe(EventReservationCreated, func(e *Event) error { created++; return nil })
	bus.Subscribe(EventReservationCancelled, func(e *Event) error { cancelled++; return nil })

	require.NoError(t, bus.PublishJSON(EventReservationCreated, struct{}{}))
	require.NoError(t, bus.PublishJSON(EventReservationCreated, struct{}{}))

	assert.Equal(t, 2, created)
	assert.Equal(t, 0, cancelled)
}

func TestEventBus_HandlerErrorDoesNotStopOthers(t *testing.T) {
	bus := NewEventBus()

	var second bool
	bus.Subscribe(EventBlockCreated, func(e *Event) error { return errors.New("boom") })
	bus.Subscribe(EventBlockCreated, func(e *Event) error { second = true; return nil })

	require.NoError(t, bus.PublishJSON(EventBlockCreated, struct{}{}))
	assert.True(t, second)
}

func TestEventBus_NilBusIsNoop(t *testing.T) {
	var bus *EventBus
	assert.NoError(t, bus.PublishJSON(EventReservationUpdated, struct{}{}))
}
