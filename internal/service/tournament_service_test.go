package service

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kiybot/internal/config"
	"kiybot/internal/database"
	"kiybot/internal/models"
)

func newTestTournamentService(t *testing.T, maxParticipants int) *TournamentService {
	t.Helper()
	logger := zerolog.Nop()

	db, err := database.NewDB(filepath.Join(t.TempDir(), "tournament.db"), &logger)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	cfg := config.TournamentConfig{Date: "20.09.2026", MaxParticipants: maxParticipants}
	return NewTournamentService(db, cfg, &logger)
}

func TestTournament_RegisterUntilFull(t *testing.T) {
	svc := newTestTournamentService(t, 2)
	ctx := context.Background()

	free, err := svc.FreeSlots(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, free)

	first := &models.TournamentRegistration{UserID: 1, FullName: "Алиса", Phone: "+79990000001"}
	require.NoError(t, svc.Register(ctx, first))

	assert.ErrorIs(t, svc.Register(ctx, &models.TournamentRegistration{UserID: 1, FullName: "Алиса", Phone: "+79990000001"}),
		database.ErrAlreadyRegistered)

	require.NoError(t, svc.Register(ctx, &models.TournamentRegistration{UserID: 2, FullName: "Боб", Phone: "+79990000002"}))

	assert.ErrorIs(t, svc.Register(ctx, &models.TournamentRegistration{UserID: 3, FullName: "Ева", Phone: "+79990000003"}),
		database.ErrTournamentFull)

	free, err = svc.FreeSlots(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, free)
}

func TestTournament_CancelFreesSlot(t *testing.T) {
	svc := newTestTournamentService(t, 1)
	ctx := context.Background()

	reg := &models.TournamentRegistration{UserID: 1, FullName: "Алиса", Phone: "+79990000001"}
	require.NoError(t, svc.Register(ctx, reg))

	got, err := svc.GetUserRegistration(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, reg.ID, got.ID)

	ok, err := svc.Cancel(ctx, reg.ID)
	require.NoError(t, err)
	assert.True(t, ok)

	_, err = svc.GetUserRegistration(ctx, 1)
	assert.ErrorIs(t, err, database.ErrNotFound)

	require.NoError(t, svc.Register(ctx, &models.TournamentRegistration{UserID: 2, FullName: "Боб", Phone: "+79990000002"}))

	regs, err := svc.ListActive(ctx)
	require.NoError(t, err)
	require.Len(t, regs, 1)
	assert.Equal(t, int64(2), regs[0].UserID)
}
