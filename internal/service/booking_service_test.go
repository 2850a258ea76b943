package service

import (
	"context"
	"encoding/json"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kiybot/internal/config"
	"kiybot/internal/database"
	"kiybot/internal/events"
	"kiybot/internal/models"
	"kiybot/internal/schedule"
)

func newTestBookingService(t *testing.T, bus *events.EventBus) (*BookingService, *database.DB) {
	t.Helper()
	logger := zerolog.Nop()

	db, err := database.NewDB(filepath.Join(t.TempDir(), "svc.db"), &logger)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	require.NoError(t, db.SyncTables(context.Background(), []models.Table{
		{ID: 1, Name: "Стол 1", IsActive: true},
		{ID: 2, Name: "Стол 2", IsActive: true},
	}))

	calc, err := schedule.NewCalculator(config.BookingConfig{
		StepMinutes:        60,
		MinHours:           1,
		MaxHours:           4,
		MaxBookingDays:     7,
		EarlyMorningCutoff: 6,
		Hours: config.WeekHours{
			Weekday: config.DayHours{Open: "16:00", Close: "02:00"},
			Friday:  config.DayHours{Open: "16:00", Close: "04:00"},
			Weekend: config.DayHours{Open: "15:00", Close: "04:00"},
			Sunday:  config.DayHours{Open: "15:00", Close: "02:00"},
		},
	})
	require.NoError(t, err)

	return NewBookingService(db, calc, bus, nil, 10, &logger), db
}

// Завтра 16:00 — допустимое начало при любом дне недели.
func tomorrowSlot(hours int) (time.Time, time.Time) {
	now := time.Now()
	start := time.Date(now.Year(), now.Month(), now.Day(), 16, 0, 0, 0, time.Local).AddDate(0, 0, 1)
	return start, start.Add(time.Duration(hours) * time.Hour)
}

func TestHoldSlot_BlocksRival(t *testing.T) {
	svc, _ := newTestBookingService(t, nil)
	ctx := context.Background()
	start, end := tomorrowSlot(2)

	require.NoError(t, svc.HoldSlot(ctx, 1, 1, start, end))

	err := svc.HoldSlot(ctx, 2, 1, start, end)
	assert.ErrorIs(t, err, database.ErrNotAvailable)

	// Владелец может пере-удержать тот же слот.
	require.NoError(t, svc.HoldSlot(ctx, 1, 1, start, end))

	// Другой стол в то же время свободен.
	require.NoError(t, svc.HoldSlot(ctx, 2, 2, start, end))
}

func TestConfirmReservation_ReleasesHolds(t *testing.T) {
	bus := events.NewEventBus()
	var published []string
	bus.Subscribe(events.EventReservationCreated, func(e *events.Event) error {
		published = append(published, e.Type)
		return nil
	})

	svc, db := newTestBookingService(t, bus)
	ctx := context.Background()
	start, end := tomorrowSlot(2)

	require.NoError(t, svc.HoldSlot(ctx, 1, 1, start, end))

	r := &models.Reservation{UserID: 1, Username: "alice", TableID: 1, StartTime: start, EndTime: end, Phone: "+79990000001"}
	require.NoError(t, svc.ConfirmReservation(ctx, r))
	assert.NotZero(t, r.ID)

	holds, err := db.GetUserHolds(ctx, 1)
	require.NoError(t, err)
	assert.Empty(t, holds)

	assert.Equal(t, []string{events.EventReservationCreated}, published)
}

func TestConfirmReservation_RivalWins(t *testing.T) {
	svc, _ := newTestBookingService(t, nil)
	ctx := context.Background()
	start, end := tomorrowSlot(2)

	rival := &models.Reservation{UserID: 2, Username: "bob", TableID: 1, StartTime: start, EndTime: end, Phone: "+79990000002"}
	require.NoError(t, svc.ConfirmReservation(ctx, rival))

	r := &models.Reservation{UserID: 1, Username: "alice", TableID: 1, StartTime: start, EndTime: end, Phone: "+79990000001"}
	assert.ErrorIs(t, svc.ConfirmReservation(ctx, r), database.ErrNotAvailable)
}

func TestCancelReservation_SecondCancelIsNoop(t *testing.T) {
	bus := events.NewEventBus()
	var cancelled []events.ReservationEventPayload
	bus.Subscribe(events.EventReservationCancelled, func(e *events.Event) error {
		var p events.ReservationEventPayload
		if err := json.Unmarshal(e.Payload, &p); err != nil {
			return err
		}
		cancelled = append(cancelled, p)
		return nil
	})

	svc, _ := newTestBookingService(t, bus)
	ctx := context.Background()
	start, end := tomorrowSlot(1)

	r := &models.Reservation{UserID: 1, Username: "alice", TableID: 1, StartTime: start, EndTime: end, Phone: "+79990000001"}
	require.NoError(t, svc.ConfirmReservation(ctx, r))

	ok, got, err := svc.CancelReservation(ctx, r.ID, "user", 1)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, models.StatusCancelled, got.Status)

	ok, _, err = svc.CancelReservation(ctx, r.ID, "user", 1)
	require.NoError(t, err)
	assert.False(t, ok)

	require.Len(t, cancelled, 1, "повторная отмена не публикует событие")
	assert.Equal(t, r.ID, cancelled[0].ReservationID)
	assert.Equal(t, "Стол 1", cancelled[0].TableName)

	_, _, err = svc.CancelReservation(ctx, 999, "user", 1)
	assert.ErrorIs(t, err, database.ErrNotFound)
}

func TestUpdateDuration(t *testing.T) {
	svc, _ := newTestBookingService(t, nil)
	ctx := context.Background()
	start, end := tomorrowSlot(1)

	r := &models.Reservation{UserID: 1, TableID: 1, StartTime: start, EndTime: end, Phone: "+79990000001"}
	require.NoError(t, svc.ConfirmReservation(ctx, r))

	updated, err := svc.UpdateDuration(ctx, r.ID, 3, 99)
	require.NoError(t, err)
	assert.Equal(t, 3, updated.DurationHours())

	// За пределами границ длительности.
	_, err = svc.UpdateDuration(ctx, r.ID, 9, 99)
	assert.ErrorIs(t, err, schedule.ErrBadDuration)

	// Продление упирается в чужую бронь.
	blocker := &models.Reservation{UserID: 2, TableID: 1, StartTime: start.Add(3 * time.Hour), EndTime: start.Add(4 * time.Hour), Phone: "+79990000002"}
	require.NoError(t, svc.ConfirmReservation(ctx, blocker))
	_, err = svc.UpdateDuration(ctx, r.ID, 4, 99)
	assert.ErrorIs(t, err, database.ErrNotAvailable)

	// Отменённую бронь править нельзя.
	ok, _, err := svc.CancelReservation(ctx, r.ID, "admin", 99)
	require.NoError(t, err)
	require.True(t, ok)
	_, err = svc.UpdateDuration(ctx, r.ID, 2, 99)
	assert.ErrorIs(t, err, database.ErrNotFound)
}

func TestCreateBlock_WholeVenue(t *testing.T) {
	svc, db := newTestBookingService(t, nil)
	ctx := context.Background()
	start, end := tomorrowSlot(2)

	created, err := svc.CreateBlock(ctx, 99, nil, start, end)
	require.NoError(t, err)
	assert.Len(t, created, 2, "по одной блокирующей брони на каждый стол")

	free, err := db.CheckAvailability(ctx, nil, start, end, nil)
	require.NoError(t, err)
	assert.False(t, free)

	// Повторная блокировка того же интервала невозможна.
	_, err = svc.CreateBlock(ctx, 99, nil, start, end)
	assert.ErrorIs(t, err, database.ErrNotAvailable)
}

func TestCreateBlock_SingleTable(t *testing.T) {
	svc, db := newTestBookingService(t, nil)
	ctx := context.Background()
	start, end := tomorrowSlot(2)

	created, err := svc.CreateBlock(ctx, 99, []int64{1}, start, end)
	require.NoError(t, err)
	require.Len(t, created, 1)
	assert.Equal(t, "admin", created[0].Username)

	two := int64(2)
	free, err := db.CheckAvailability(ctx, &two, start, end, nil)
	require.NoError(t, err)
	assert.True(t, free, "незатронутый стол остаётся свободным")
}

func TestValidateSelection(t *testing.T) {
	svc, _ := newTestBookingService(t, nil)
	start, _ := tomorrowSlot(2)

	assert.NoError(t, svc.ValidateSelection(start, 2))
	assert.ErrorIs(t, svc.ValidateSelection(start.AddDate(0, 0, -2), 2), schedule.ErrPastTime)
}
