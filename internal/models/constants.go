package models

const (
	StatusActive    = "active"
	StatusCancelled = "cancelled"
)

const (
	StateChoosingDate     = "choosing_date"
	StateChoosingTime     = "choosing_time"
	StateChoosingDuration = "choosing_duration"
	StateChoosingTable    = "choosing_table"
	StateEnteringPhone    = "entering_phone"
	StateConfirming       = "confirming"

	StateTournamentName    = "tournament_name"
	StateTournamentPhone   = "tournament_phone"
	StateTournamentConfirm = "tournament_confirm"

	StateSupportMessage = "support_message"
)

// Ключи TempData диалога бронирования.
const (
	KeySelectedDate = "selected_date"
	KeySelectedTime = "selected_time"
	KeyDuration     = "duration"
	KeyEndTime      = "end_time"
	KeyTableID      = "table_id"
	KeyPhone        = "phone"
	KeyFullName     = "full_name"
)

const (
	// DefaultRedisTTL время жизни состояния пользователя в Redis
	DefaultRedisTTL = 24 * 60 * 60 // 24 часа в секундах

	// RateLimitMessages количество сообщений в окне
	RateLimitMessages = 20

	// RateLimitWindow окно ограничения частоты сообщений
	RateLimitWindow = 60 // 1 минута в секундах

	// WorkerQueueSize размер очереди воркера синхронизации
	WorkerQueueSize = 128

	// ReminderHour час, в который отправляются напоминания
	ReminderHour = 12
)
