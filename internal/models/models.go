package models

import "time"

// Table — бильярдный стол. Создаётся при старте из конфигурации,
// никогда не удаляется физически, только деактивируется флагом.
type Table struct {
	ID       int64  `yaml:"id" json:"id"`
	Name     string `yaml:"name" json:"name"`
	IsActive bool   `yaml:"is_active" json:"is_active"`
}

// Reservation — подтверждённое бронирование стола.
// Интервал полуоткрытый: [StartTime, EndTime).
type Reservation struct {
	ID        int64     `json:"id"`
	UserID    int64     `json:"user_id"`
	Username  string    `json:"username"`
	TableID   int64     `json:"table_id"`
	StartTime time.Time `json:"start_time"`
	EndTime   time.Time `json:"end_time"`
	Phone     string    `json:"phone"`
	Status    string    `json:"status"` // active, cancelled
	CreatedAt time.Time `json:"created_at"`
}

// DurationHours возвращает длительность брони в целых часах.
func (r *Reservation) DurationHours() int {
	return int(r.EndTime.Sub(r.StartTime).Hours())
}

// Hold — временное удержание слота на время диалога бронирования.
// Не гарантирует слот, только снижает вероятность коллизии до expires_at.
type Hold struct {
	ID        int64     `json:"id"`
	UserID    int64     `json:"user_id"`
	TableID   int64     `json:"table_id"`
	StartTime time.Time `json:"start_time"`
	EndTime   time.Time `json:"end_time"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

// TournamentRegistration — запись на турнир.
type TournamentRegistration struct {
	ID        int64     `json:"id"`
	UserID    int64     `json:"user_id"`
	Username  string    `json:"username"`
	FullName  string    `json:"full_name"`
	Phone     string    `json:"phone"`
	Status    string    `json:"status"` // active, cancelled
	CreatedAt time.Time `json:"created_at"`
}
