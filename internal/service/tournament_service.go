package service

import (
	"context"

	"kiybot/internal/config"
	"kiybot/internal/domain"
	"kiybot/internal/models"

	"github.com/rs/zerolog"
)

// TournamentService — запись на турнир с ограничением вместимости.
type TournamentService struct {
	repo   domain.Repository
	cfg    config.TournamentConfig
	logger *zerolog.Logger
}

func NewTournamentService(repo domain.Repository, cfg config.TournamentConfig, logger *zerolog.Logger) *TournamentService {
	return &TournamentService{
		repo:   repo,
		cfg:    cfg,
		logger: logger,
	}
}

// Date возвращает дату турнира в формате конфигурации.
func (s *TournamentService) Date() string {
	return s.cfg.Date
}

// MaxParticipants возвращает лимит участников.
func (s *TournamentService) MaxParticipants() int {
	return s.cfg.MaxParticipants
}

// Register записывает пользователя. Вместимость и повторная запись
// проверяются хранилищем в одной транзакции со вставкой.
func (s *TournamentService) Register(ctx context.Context, reg *models.TournamentRegistration) error {
	if err := s.repo.CreateTournamentRegistration(ctx, reg, s.cfg.MaxParticipants); err != nil {
		return err
	}
	s.logger.Info().Int64("user_id", reg.UserID).Str("full_name", reg.FullName).Msg("tournament registration created")
	return nil
}

// GetUserRegistration возвращает активную запись пользователя.
func (s *TournamentService) GetUserRegistration(ctx context.Context, userID int64) (*models.TournamentRegistration, error) {
	return s.repo.GetUserTournamentRegistration(ctx, userID)
}

// Cancel отменяет запись.
func (s *TournamentService) Cancel(ctx context.Context, id int64) (bool, error) {
	return s.repo.CancelTournamentRegistration(ctx, id)
}

// FreeSlots возвращает число свободных мест.
func (s *TournamentService) FreeSlots(ctx context.Context) (int, error) {
	active, err := s.repo.CountActiveTournamentRegistrations(ctx)
	if err != nil {
		return 0, err
	}
	free := s.cfg.MaxParticipants - active
	if free < 0 {
		free = 0
	}
	return free, nil
}

// ListActive возвращает активные записи для админского обзора.
func (s *TournamentService) ListActive(ctx context.Context) ([]models.TournamentRegistration, error) {
	return s.repo.GetActiveTournamentRegistrations(ctx)
}
