package service

import (
	"context"
	"time"

	"kiybot/internal/database"
	"kiybot/internal/domain"
	"kiybot/internal/events"
	"kiybot/internal/models"
	"kiybot/internal/schedule"

	"github.com/rs/zerolog"
)

// BookingService — оркестрация бронирования: три независимых рубежа
// проверки доступности (выбор стола, телефон, подтверждение), holds на
// время диалога и админские операции поверх хранилища.
type BookingService struct {
	repo        domain.Repository
	calc        *schedule.Calculator
	eventBus    domain.EventPublisher
	syncWorker  domain.SyncWorker
	holdTimeout time.Duration
	logger      *zerolog.Logger
}

func NewBookingService(
	repo domain.Repository,
	calc *schedule.Calculator,
	eventBus domain.EventPublisher,
	syncWorker domain.SyncWorker,
	holdTimeoutMinutes int,
	logger *zerolog.Logger,
) *BookingService {
	if holdTimeoutMinutes <= 0 {
		holdTimeoutMinutes = 10
	}
	return &BookingService{
		repo:        repo,
		calc:        calc,
		eventBus:    eventBus,
		syncWorker:  syncWorker,
		holdTimeout: time.Duration(holdTimeoutMinutes) * time.Minute,
		logger:      logger,
	}
}

// Calculator возвращает калькулятор расписания для обработчиков меню.
func (s *BookingService) Calculator() *schedule.Calculator {
	return s.calc
}

// ValidateSelection — первый рубеж: выбранный интервал против часов
// работы, шага и горизонта.
func (s *BookingService) ValidateSelection(start time.Time, durationHours int) error {
	return s.calc.ValidateInterval(start, durationHours, time.Now())
}

// CheckSlot перепроверяет доступность интервала. excludeUser позволяет
// пользователю не блокироваться собственным hold.
func (s *BookingService) CheckSlot(ctx context.Context, tableID int64, start, end time.Time, excludeUser int64) (bool, error) {
	return s.repo.CheckAvailability(ctx, &tableID, start, end, &excludeUser)
}

// HoldSlot удерживает слот на время сбора контактов: проверяет
// доступность и создаёт hold, вытесняя прежние holds пользователя.
func (s *BookingService) HoldSlot(ctx context.Context, userID, tableID int64, start, end time.Time) error {
	available, err := s.repo.CheckAvailability(ctx, &tableID, start, end, &userID)
	if err != nil {
		return err
	}
	if !available {
		return database.ErrNotAvailable
	}

	now := time.Now()
	hold := &models.Hold{
		UserID:    userID,
		TableID:   tableID,
		StartTime: start,
		EndTime:   end,
		CreatedAt: now,
		ExpiresAt: now.Add(s.holdTimeout),
	}
	if err := s.repo.CreateHold(ctx, hold); err != nil {
		return err
	}

	s.logger.Debug().Int64("user_id", userID).Int64("table_id", tableID).
		Time("start", start).Time("expires_at", hold.ExpiresAt).Msg("slot held")
	return nil
}

// ReleaseHolds снимает holds пользователя при отмене или уходе из
// диалога. Идемпотентна.
func (s *BookingService) ReleaseHolds(ctx context.Context, userID int64) error {
	return s.repo.DeleteUserHolds(ctx, userID)
}

// ConfirmReservation — финальный рубеж: доступность перепроверяется и
// здесь, и ещё раз внутри транзакции вставки. Hold не гарантирует
// слот, он только снижал вероятность коллизии до этого момента.
func (s *BookingService) ConfirmReservation(ctx context.Context, r *models.Reservation) error {
	available, err := s.repo.CheckAvailability(ctx, &r.TableID, r.StartTime, r.EndTime, &r.UserID)
	if err != nil {
		return err
	}
	if !available {
		return database.ErrNotAvailable
	}

	if err := s.repo.CreateReservationLocked(ctx, r); err != nil {
		return err
	}

	if err := s.repo.DeleteUserHolds(ctx, r.UserID); err != nil {
		s.logger.Error().Err(err).Int64("user_id", r.UserID).Msg("failed to release holds after confirmation")
	}

	s.publishEvent(ctx, events.EventReservationCreated, r, "user", r.UserID)
	s.enqueueSync(ctx)
	return nil
}

// CancelReservation отменяет бронь. Возвращает false без ошибки, если
// бронь уже отменена — это штатный исход, не сбой.
func (s *BookingService) CancelReservation(ctx context.Context, id int64, changedBy string, changedByID int64) (bool, *models.Reservation, error) {
	reservation, err := s.repo.GetReservation(ctx, id)
	if err != nil {
		return false, nil, err
	}

	ok, err := s.repo.CancelReservation(ctx, id)
	if err != nil {
		return false, reservation, err
	}
	if !ok {
		return false, reservation, nil
	}

	reservation.Status = models.StatusCancelled
	s.publishEvent(ctx, events.EventReservationCancelled, reservation, changedBy, changedByID)
	s.enqueueSync(ctx)
	return true, reservation, nil
}

// UpdateDuration — админская правка длительности: заново проверяет
// часы работы и конфликты (исключая саму бронь), затем пишет новый
// конец интервала.
func (s *BookingService) UpdateDuration(ctx context.Context, id int64, newHours int, adminID int64) (*models.Reservation, error) {
	reservation, err := s.repo.GetReservation(ctx, id)
	if err != nil {
		return nil, err
	}
	if reservation.Status != models.StatusActive {
		return nil, database.ErrNotFound
	}

	if err := s.calc.ValidateWindow(reservation.StartTime, newHours); err != nil {
		return nil, err
	}

	newEnd := reservation.StartTime.Add(time.Duration(newHours) * time.Hour)
	conflict, err := s.repo.HasReservationConflict(ctx, reservation.TableID, reservation.StartTime, newEnd, id)
	if err != nil {
		return nil, err
	}
	if conflict {
		return nil, database.ErrNotAvailable
	}

	ok, err := s.repo.UpdateReservationEnd(ctx, id, newEnd)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, database.ErrNotFound
	}

	reservation.EndTime = newEnd
	s.publishEvent(ctx, events.EventReservationUpdated, reservation, "admin", adminID)
	s.enqueueSync(ctx)
	return reservation, nil
}

// CreateBlock создаёт административную блокировку: по одной конкретной
// брони на каждый стол. Пустой список столов блокирует весь зал.
// Блок создаётся только если весь интервал свободен; расписание не
// проверяется — это админский override.
func (s *BookingService) CreateBlock(ctx context.Context, adminID int64, tableIDs []int64, start, end time.Time) ([]models.Reservation, error) {
	if len(tableIDs) == 0 {
		available, err := s.repo.CheckAvailability(ctx, nil, start, end, nil)
		if err != nil {
			return nil, err
		}
		if !available {
			return nil, database.ErrNotAvailable
		}

		tables, err := s.repo.GetActiveTables(ctx)
		if err != nil {
			return nil, err
		}
		for _, table := range tables {
			tableIDs = append(tableIDs, table.ID)
		}
	} else {
		for _, tableID := range tableIDs {
			id := tableID
			available, err := s.repo.CheckAvailability(ctx, &id, start, end, nil)
			if err != nil {
				return nil, err
			}
			if !available {
				return nil, database.ErrNotAvailable
			}
		}
	}

	var created []models.Reservation
	for _, tableID := range tableIDs {
		block := models.Reservation{
			UserID:    adminID,
			Username:  "admin",
			TableID:   tableID,
			StartTime: start,
			EndTime:   end,
			Phone:     "-",
			Status:    models.StatusActive,
		}
		if err := s.repo.CreateReservationLocked(ctx, &block); err != nil {
			return created, err
		}
		created = append(created, block)
		s.publishEvent(ctx, events.EventBlockCreated, &block, "admin", adminID)
	}

	s.enqueueSync(ctx)
	return created, nil
}

// GetReservation возвращает бронь по ID.
func (s *BookingService) GetReservation(ctx context.Context, id int64) (*models.Reservation, error) {
	return s.repo.GetReservation(ctx, id)
}

// GetUserReservations возвращает активные будущие брони пользователя.
func (s *BookingService) GetUserReservations(ctx context.Context, userID int64) ([]models.Reservation, error) {
	return s.repo.GetUserReservations(ctx, userID)
}

// GetReservationsByDate возвращает брони на дату для админского обзора.
func (s *BookingService) GetReservationsByDate(ctx context.Context, date time.Time) ([]models.Reservation, error) {
	return s.repo.GetReservationsByDate(ctx, date)
}

// GetReservationsByRange возвращает активные брони за период.
func (s *BookingService) GetReservationsByRange(ctx context.Context, start, end time.Time) ([]models.Reservation, error) {
	return s.repo.GetReservationsByRange(ctx, start, end)
}

// GetActiveTables возвращает активные столы.
func (s *BookingService) GetActiveTables(ctx context.Context) ([]models.Table, error) {
	return s.repo.GetActiveTables(ctx)
}

// GetTableByID возвращает стол по ID.
func (s *BookingService) GetTableByID(ctx context.Context, id int64) (*models.Table, error) {
	return s.repo.GetTableByID(ctx, id)
}

func (s *BookingService) publishEvent(ctx context.Context, eventType string, r *models.Reservation, changedBy string, changedByID int64) {
	if s.eventBus == nil {
		return
	}

	tableName := ""
	if table, err := s.repo.GetTableByID(ctx, r.TableID); err == nil {
		tableName = table.Name
	}

	payload := events.ReservationEventPayload{
		ReservationID: r.ID,
		UserID:        r.UserID,
		Username:      r.Username,
		TableID:       r.TableID,
		TableName:     tableName,
		StartTime:     r.StartTime,
		EndTime:       r.EndTime,
		Phone:         r.Phone,
		Status:        r.Status,
		ChangedBy:     changedBy,
		ChangedByID:   changedByID,
	}
	if err := s.eventBus.PublishJSON(eventType, payload); err != nil {
		s.logger.Error().Err(err).Str("event", eventType).Msg("failed to publish event")
	}
}

func (s *BookingService) enqueueSync(ctx context.Context) {
	if s.syncWorker == nil {
		return
	}
	if err := s.syncWorker.EnqueueSync(ctx); err != nil {
		s.logger.Error().Err(err).Msg("failed to enqueue sheets sync")
	}
}
