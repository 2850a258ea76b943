package worker

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"kiybot/internal/database"
	"kiybot/internal/models"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestDB(t *testing.T) *database.DB {
	t.Helper()
	path := filepath.Join(t.TempDir(), "worker.db")
	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()
	db, err := database.NewDB(path, &logger)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func testLogger() *zerolog.Logger {
	l := zerolog.New(os.Stdout).With().Timestamp().Logger()
	return &l
}

func TestSweeper_RemovesOnlyExpired(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	now := time.Now()

	require.NoError(t, db.CreateHold(ctx, &models.Hold{
		UserID: 1, TableID: 1,
		StartTime: now.Add(time.Hour), EndTime: now.Add(2 * time.Hour),
		CreatedAt: now.Add(-20 * time.Minute), ExpiresAt: now.Add(-10 * time.Minute),
	}))
	require.NoError(t, db.CreateHold(ctx, &models.Hold{
		UserID: 2, TableID: 2,
		StartTime: now.Add(time.Hour), EndTime: now.Add(2 * time.Hour),
		CreatedAt: now, ExpiresAt: now.Add(10 * time.Minute),
	}))

	var removed int64
	sweeper := NewSweeper(db, time.Minute, testLogger())
	sweeper.OnSweep(func(n int64) { removed = n })

	sweeper.Sweep(ctx)
	assert.Equal(t, int64(1), removed)

	holds, err := db.GetUserHolds(ctx, 2)
	require.NoError(t, err)
	assert.Len(t, holds, 1)
}

func TestSweeper_SecondPassIsNoop(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	now := time.Now()

	require.NoError(t, db.CreateHold(ctx, &models.Hold{
		UserID: 1, TableID: 1,
		StartTime: now.Add(time.Hour), EndTime: now.Add(2 * time.Hour),
		CreatedAt: now.Add(-20 * time.Minute), ExpiresAt: now.Add(-10 * time.Minute),
	}))

	var counts []int64
	sweeper := NewSweeper(db, time.Minute, testLogger())
	sweeper.OnSweep(func(n int64) { counts = append(counts, n) })

	sweeper.Sweep(ctx)
	sweeper.Sweep(ctx)

	require.Len(t, counts, 2)
	assert.Equal(t, int64(1), counts[0])
	assert.Equal(t, int64(0), counts[1])
}

func TestSweeper_StartStopsOnCancel(t *testing.T) {
	db := newTestDB(t)
	sweeper := NewSweeper(db, 10*time.Millisecond, testLogger())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		sweeper.Start(ctx)
		close(done)
	}()

	time.Sleep(30 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("sweeper did not stop after cancel")
	}
}

type fakeWriter struct {
	mu    sync.Mutex
	calls int
	err   error

	lastReservations []models.Reservation
	lastTables       []models.Table
}

func (f *fakeWriter) ReplaceReservations(ctx context.Context, reservations []models.Reservation, tables []models.Table) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.lastReservations = reservations
	f.lastTables = tables
	return f.err
}

func (f *fakeWriter) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func TestSheetsWorker_SyncOnceMirrorsRange(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	require.NoError(t, db.SyncTables(ctx, []models.Table{{ID: 1, Name: "Стол 1", IsActive: true}}))

	now := time.Now()
	require.NoError(t, db.CreateReservation(ctx, &models.Reservation{
		UserID: 1, Username: "tester", TableID: 1,
		StartTime: now.Add(2 * time.Hour), EndTime: now.Add(3 * time.Hour),
		Phone: "+79990000000", Status: models.StatusActive, CreatedAt: now,
	}))
	// За горизонтом зеркала
	require.NoError(t, db.CreateReservation(ctx, &models.Reservation{
		UserID: 2, Username: "later", TableID: 1,
		StartTime: now.AddDate(0, 0, 30), EndTime: now.AddDate(0, 0, 30).Add(time.Hour),
		Phone: "+79990000001", Status: models.StatusActive, CreatedAt: now,
	}))

	writer := &fakeWriter{}
	w := NewSheetsWorker(db, writer, nil, RetryPolicy{MaxRetries: 1}, 7, testLogger())

	require.NoError(t, w.syncOnce(ctx))
	assert.Equal(t, 1, writer.callCount())
	assert.Len(t, writer.lastReservations, 1)
	assert.Len(t, writer.lastTables, 1)
}

func TestSheetsWorker_EnqueueCoalesces(t *testing.T) {
	w := NewSheetsWorker(nil, nil, nil, RetryPolicy{MaxRetries: 1}, 7, testLogger())
	ctx := context.Background()

	require.NoError(t, w.EnqueueSync(ctx))
	require.NoError(t, w.EnqueueSync(ctx))
	require.NoError(t, w.EnqueueSync(ctx))

	assert.Len(t, w.signal, 1)
}

func TestSheetsWorker_RetriesThenGivesUp(t *testing.T) {
	db := newTestDB(t)
	writer := &fakeWriter{err: errors.New("quota exceeded")}
	w := NewSheetsWorker(db, writer, nil, RetryPolicy{
		MaxRetries:   3,
		InitialDelay: time.Millisecond,
		MaxDelay:     2 * time.Millisecond,
	}, 7, testLogger())

	w.syncWithRetry(context.Background())
	assert.Equal(t, 3, writer.callCount())
}

func TestRetryPolicy_NextDelay(t *testing.T) {
	policy := RetryPolicy{InitialDelay: time.Second, BackoffFactor: 2, MaxDelay: 5 * time.Second}

	assert.Equal(t, time.Second, policy.NextDelay(1))
	assert.Equal(t, 2*time.Second, policy.NextDelay(2))
	assert.Equal(t, 5*time.Second, policy.NextDelay(5))
	assert.Equal(t, time.Second, policy.NextDelay(0))
}
