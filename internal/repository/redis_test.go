package repository

import (
	"context"
	"testing"
	"time"

	"kiybot/internal/models"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMiniredisRepo(t *testing.T) (*miniredis.Miniredis, *RedisStateRepository) {
	t.Helper()
	s, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(s.Close)

	client := redis.NewClient(&redis.Options{Addr: s.Addr()})
	t.Cleanup(func() { client.Close() })

	return s, NewRedisStateRepository(client, time.Hour)
}

func TestRedisStateRepository(t *testing.T) {
	s, repo := newMiniredisRepo(t)
	ctx := context.Background()

	t.Run("SetAndGetState", func(t *testing.T) {
		state := &models.UserState{
			UserID:      123,
			CurrentStep: models.StateChoosingDate,
			TempData:    map[string]interface{}{"table_id": int64(2)},
		}

		require.NoError(t, repo.SetState(ctx, state))

		got, err := repo.GetState(ctx, 123)
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, state.UserID, got.UserID)
		assert.Equal(t, state.CurrentStep, got.CurrentStep)
		assert.Equal(t, int64(2), got.GetInt64("table_id"))
	})

	t.Run("GetNonExistentState", func(t *testing.T) {
		got, err := repo.GetState(ctx, 999)
		require.NoError(t, err)
		assert.Nil(t, got)
	})

	t.Run("ClearState", func(t *testing.T) {
		require.NoError(t, repo.SetState(ctx, &models.UserState{UserID: 456, CurrentStep: models.StateEnteringPhone}))
		require.NoError(t, repo.ClearState(ctx, 456))

		got, err := repo.GetState(ctx, 456)
		require.NoError(t, err)
		assert.Nil(t, got)
	})

	t.Run("StateExpires", func(t *testing.T) {
		require.NoError(t, repo.SetState(ctx, &models.UserState{UserID: 7, CurrentStep: models.StateChoosingTime}))

		s.FastForward(2 * time.Hour)

		got, err := repo.GetState(ctx, 7)
		require.NoError(t, err)
		assert.Nil(t, got)
	})
}

func TestRedisStateRepository_RateLimit(t *testing.T) {
	s, repo := newMiniredisRepo(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		ok, err := repo.CheckRateLimit(ctx, 1, 3, time.Minute)
		require.NoError(t, err)
		assert.True(t, ok)
	}

	ok, err := repo.CheckRateLimit(ctx, 1, 3, time.Minute)
	require.NoError(t, err)
	assert.False(t, ok, "четвёртое сообщение в окне отклоняется")

	// Окно истекло — счётчик начинается заново.
	s.FastForward(2 * time.Minute)
	ok, err = repo.CheckRateLimit(ctx, 1, 3, time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestRedisStateRepository_NilClient(t *testing.T) {
	repo := NewRedisStateRepository(nil, time.Hour)
	ctx := context.Background()

	_, err := repo.GetState(ctx, 1)
	assert.Error(t, err)
	assert.Error(t, repo.SetState(ctx, &models.UserState{UserID: 1}))
	assert.Error(t, repo.ClearState(ctx, 1))
	_, err = repo.CheckRateLimit(ctx, 1, 1, time.Minute)
	assert.Error(t, err)
}
