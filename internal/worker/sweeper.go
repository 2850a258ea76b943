package worker

import (
	"context"
	"time"

	"kiybot/internal/domain"

	"github.com/rs/zerolog"
)

// Sweeper периодически удаляет протухшие временные брони.
// Ошибки не прерывают цикл: следующий тик повторит попытку.
type Sweeper struct {
	repo     domain.Repository
	interval time.Duration
	logger   *zerolog.Logger

	// onSweep вызывается после каждого успешного прохода (метрики).
	onSweep func(removed int64)
}

func NewSweeper(repo domain.Repository, interval time.Duration, logger *zerolog.Logger) *Sweeper {
	if interval <= 0 {
		interval = 2 * time.Minute
	}
	return &Sweeper{
		repo:     repo,
		interval: interval,
		logger:   logger,
	}
}

// OnSweep registers a callback invoked with the number of removed holds.
func (s *Sweeper) OnSweep(fn func(removed int64)) {
	s.onSweep = fn
}

// Start blocks until ctx is cancelled.
func (s *Sweeper) Start(ctx context.Context) {
	s.logger.Info().Dur("interval", s.interval).Msg("Hold sweeper started")
	defer s.logger.Info().Msg("Hold sweeper stopped")

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	// Первый проход сразу, не дожидаясь тика
	s.Sweep(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Sweep(ctx)
		}
	}
}

// Sweep removes expired holds once. Safe to call concurrently with Start.
func (s *Sweeper) Sweep(ctx context.Context) {
	removed, err := s.repo.CleanupExpiredHolds(ctx)
	if err != nil {
		s.logger.Error().Err(err).Msg("Failed to cleanup expired holds")
		return
	}
	if removed > 0 {
		s.logger.Info().Int64("removed", removed).Msg("Expired holds removed")
	}
	if s.onSweep != nil {
		s.onSweep(removed)
	}
}
