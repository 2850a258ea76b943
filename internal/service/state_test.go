package service

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kiybot/internal/models"
	"kiybot/internal/repository"
)

func newTestStateService() *StateService {
	logger := zerolog.Nop()
	return NewStateService(repository.NewMemoryStateRepository(time.Hour), &logger)
}

func TestStateService_SetAndGet(t *testing.T) {
	svc := newTestStateService()
	ctx := context.Background()

	require.NoError(t, svc.SetUserState(ctx, 1, models.StateChoosingDate, map[string]interface{}{
		models.KeySelectedDate: "2026-09-04T00:00:00+03:00",
	}))

	state, err := svc.GetUserState(ctx, 1)
	require.NoError(t, err)
	require.NotNil(t, state)
	assert.Equal(t, models.StateChoosingDate, state.CurrentStep)

	require.NoError(t, svc.ClearUserState(ctx, 1))
	state, err = svc.GetUserState(ctx, 1)
	require.NoError(t, err)
	assert.Nil(t, state)
}

func TestStateService_UpdateDataKeepsStep(t *testing.T) {
	svc := newTestStateService()
	ctx := context.Background()

	require.NoError(t, svc.SetUserState(ctx, 1, models.StateChoosingDuration, map[string]interface{}{
		models.KeySelectedTime: "16:00",
	}))
	require.NoError(t, svc.UpdateUserStateData(ctx, 1, models.KeyDuration, 2))

	state, err := svc.GetUserState(ctx, 1)
	require.NoError(t, err)
	require.NotNil(t, state)
	assert.Equal(t, models.StateChoosingDuration, state.CurrentStep)
	assert.Equal(t, "16:00", state.GetString(models.KeySelectedTime))
	assert.Equal(t, int64(2), state.GetInt64(models.KeyDuration))
}

func TestStateService_UpdateDataWithoutState(t *testing.T) {
	svc := newTestStateService()
	ctx := context.Background()

	// Обновление данных при отсутствии состояния создаёт пустое.
	require.NoError(t, svc.UpdateUserStateData(ctx, 5, models.KeyTableID, int64(3)))

	state, err := svc.GetUserState(ctx, 5)
	require.NoError(t, err)
	require.NotNil(t, state)
	assert.Equal(t, int64(3), state.GetInt64(models.KeyTableID))
	assert.Empty(t, state.CurrentStep)
}
