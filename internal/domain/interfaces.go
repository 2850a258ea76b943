package domain

import (
	"context"
	"time"

	"kiybot/internal/models"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// Repository — граница хранилища. Реализуется internal/database.
type Repository interface {
	// Брони
	CreateReservation(ctx context.Context, r *models.Reservation) error
	CreateReservationLocked(ctx context.Context, r *models.Reservation) error
	CancelReservation(ctx context.Context, id int64) (bool, error)
	GetReservation(ctx context.Context, id int64) (*models.Reservation, error)
	GetUserReservations(ctx context.Context, userID int64) ([]models.Reservation, error)
	GetReservationsByDate(ctx context.Context, date time.Time) ([]models.Reservation, error)
	GetReservationsByRange(ctx context.Context, start, end time.Time) ([]models.Reservation, error)
	UpdateReservationEnd(ctx context.Context, id int64, end time.Time) (bool, error)
	CheckAvailability(ctx context.Context, tableID *int64, start, end time.Time, excludeUser *int64) (bool, error)
	HasReservationConflict(ctx context.Context, tableID int64, start, end time.Time, excludeReservation int64) (bool, error)

	// Holds
	CreateHold(ctx context.Context, h *models.Hold) error
	DeleteUserHolds(ctx context.Context, userID int64) error
	CleanupExpiredHolds(ctx context.Context) (int64, error)
	GetUserHolds(ctx context.Context, userID int64) ([]models.Hold, error)

	// Столы
	GetActiveTables(ctx context.Context) ([]models.Table, error)
	GetTableByID(ctx context.Context, id int64) (*models.Table, error)

	// Турнир
	CreateTournamentRegistration(ctx context.Context, reg *models.TournamentRegistration, maxParticipants int) error
	GetUserTournamentRegistration(ctx context.Context, userID int64) (*models.TournamentRegistration, error)
	CancelTournamentRegistration(ctx context.Context, id int64) (bool, error)
	CountActiveTournamentRegistrations(ctx context.Context) (int, error)
	GetActiveTournamentRegistrations(ctx context.Context) ([]models.TournamentRegistration, error)
}

// StateRepository хранит состояние диалога пользователя.
type StateRepository interface {
	GetState(ctx context.Context, userID int64) (*models.UserState, error)
	SetState(ctx context.Context, state *models.UserState) error
	ClearState(ctx context.Context, userID int64) error
	CheckRateLimit(ctx context.Context, userID int64, limit int, window time.Duration) (bool, error)
}

// StateManager — сервисная обёртка над StateRepository.
type StateManager interface {
	GetUserState(ctx context.Context, userID int64) (*models.UserState, error)
	SetUserState(ctx context.Context, userID int64, step string, data map[string]interface{}) error
	UpdateUserStateData(ctx context.Context, userID int64, key string, value interface{}) error
	ClearUserState(ctx context.Context, userID int64) error
	CheckRateLimit(ctx context.Context, userID int64, limit int, window time.Duration) (bool, error)
}

// EventPublisher публикует доменные события.
type EventPublisher interface {
	PublishJSON(eventType string, payload interface{}) error
}

// TelegramSender — минимальная поверхность tgbotapi.BotAPI.
type TelegramSender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
	GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel
	GetSelf() tgbotapi.User
	StopReceivingUpdates()
}

// TelegramService абстрагирует Telegram API для обработчиков и тестов.
type TelegramService interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
	SendMessage(chatID int64, text string) (tgbotapi.Message, error)
	SendWithKeyboard(chatID int64, text string, keyboard tgbotapi.ReplyKeyboardMarkup) (tgbotapi.Message, error)
	SendWithInlineKeyboard(chatID int64, text string, keyboard tgbotapi.InlineKeyboardMarkup) (tgbotapi.Message, error)
	EditMessage(chatID int64, messageID int, text string, keyboard *tgbotapi.InlineKeyboardMarkup) (tgbotapi.Message, error)
	AnswerCallback(callbackID string, text string) error
	GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel
	GetSelf() tgbotapi.User
	StopReceivingUpdates()
}

// SheetsWriter зеркалирует брони во внешнюю таблицу.
type SheetsWriter interface {
	ReplaceReservations(ctx context.Context, reservations []models.Reservation, tables []models.Table) error
}

// SyncWorker принимает задачи на синхронизацию зеркала.
type SyncWorker interface {
	EnqueueSync(ctx context.Context) error
}
