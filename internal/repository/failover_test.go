package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"kiybot/internal/models"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// failingStateRepo имитирует недоступный Redis.
type failingStateRepo struct {
	calls int
}

var errDown = errors.New("connection refused")

func (f *failingStateRepo) GetState(ctx context.Context, userID int64) (*models.UserState, error) {
	f.calls++
	return nil, errDown
}

func (f *failingStateRepo) SetState(ctx context.Context, state *models.UserState) error {
	f.calls++
	return errDown
}

func (f *failingStateRepo) ClearState(ctx context.Context, userID int64) error {
	f.calls++
	return errDown
}

func (f *failingStateRepo) CheckRateLimit(ctx context.Context, userID int64, limit int, window time.Duration) (bool, error) {
	f.calls++
	return false, errDown
}

func TestFailover_FallsBackToMemory(t *testing.T) {
	logger := zerolog.Nop()
	primary := &failingStateRepo{}
	fallback := NewMemoryStateRepository(time.Hour)
	repo := NewFailoverStateRepository(primary, fallback, &logger)
	ctx := context.Background()

	state := &models.UserState{UserID: 1, CurrentStep: models.StateChoosingDate}
	require.NoError(t, repo.SetState(ctx, state))

	got, err := repo.GetState(ctx, 1)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, models.StateChoosingDate, got.CurrentStep)

	require.NoError(t, repo.ClearState(ctx, 1))
	got, err = repo.GetState(ctx, 1)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestFailover_PrimaryNotHammeredWhileDown(t *testing.T) {
	logger := zerolog.Nop()
	primary := &failingStateRepo{}
	fallback := NewMemoryStateRepository(time.Hour)
	repo := NewFailoverStateRepository(primary, fallback, &logger)
	ctx := context.Background()

	_, _ = repo.GetState(ctx, 1)
	callsAfterFirst := primary.calls
	assert.Equal(t, 1, callsAfterFirst)

	// Пока не прошла минута восстановления, основное хранилище не трогаем.
	for i := 0; i < 5; i++ {
		_, err := repo.GetState(ctx, 1)
		require.NoError(t, err)
	}
	assert.Equal(t, callsAfterFirst, primary.calls)
}

func TestFailover_RecoversAfterInterval(t *testing.T) {
	logger := zerolog.Nop()
	primary := &failingStateRepo{}
	fallback := NewMemoryStateRepository(time.Hour)
	repo := NewFailoverStateRepository(primary, fallback, &logger)
	ctx := context.Background()

	_, _ = repo.GetState(ctx, 1)
	require.Equal(t, 1, primary.calls)

	// Отматываем момент последней проверки назад и убеждаемся, что
	// повторная попытка к основному хранилищу состоялась.
	repo.lastCheck = time.Now().Add(-2 * time.Minute)
	_, err := repo.GetState(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, 2, primary.calls)
}

func TestFailover_RateLimitViaFallback(t *testing.T) {
	logger := zerolog.Nop()
	repo := NewFailoverStateRepository(&failingStateRepo{}, NewMemoryStateRepository(time.Hour), &logger)
	ctx := context.Background()

	ok, err := repo.CheckRateLimit(ctx, 1, 2, time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = repo.CheckRateLimit(ctx, 1, 2, time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = repo.CheckRateLimit(ctx, 1, 2, time.Minute)
	require.NoError(t, err)
	assert.False(t, ok)
}
