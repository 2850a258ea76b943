package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"kiybot/internal/models"
)

const reservationColumns = `id, user_id, username, table_id, start_time, end_time, phone, status, created_at`

// CreateReservation вставляет бронь без проверки конфликтов.
// Используется только там, где проверка уже выполнена в той же
// транзакции либо вызывающим кодом.
func (db *DB) CreateReservation(ctx context.Context, r *models.Reservation) error {
	query := `
        INSERT INTO reservations (user_id, username, table_id, start_time, end_time, phone, status, created_at)
        VALUES (?, ?, ?, ?, ?, ?, ?, ?)
    `
	now := time.Now()
	if r.Status == "" {
		r.Status = models.StatusActive
	}
	result, err := db.ExecContext(ctx, query,
		r.UserID, r.Username, r.TableID, r.StartTime, r.EndTime, r.Phone, r.Status, now)
	if err != nil {
		return fmt.Errorf("failed to create reservation: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}
	r.ID = id
	r.CreatedAt = now
	return nil
}

// CreateReservationLocked создаёт бронь, повторно проверяя конфликт
// внутри транзакции. Последний рубеж оптимистичной конкуренции:
// проигранная гонка возвращает ErrNotAvailable, не частичную запись.
func (db *DB) CreateReservationLocked(ctx context.Context, r *models.Reservation) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	var conflicts int
	queryCount := `
        SELECT COUNT(*) FROM reservations
        WHERE status = ? AND table_id = ? AND start_time < ? AND end_time > ?
    `
	err = tx.QueryRowContext(ctx, queryCount, models.StatusActive, r.TableID, r.EndTime, r.StartTime).Scan(&conflicts)
	if err != nil {
		return fmt.Errorf("failed to check availability in tx: %w", err)
	}
	if conflicts > 0 {
		return ErrNotAvailable
	}

	now := time.Now()
	if r.Status == "" {
		r.Status = models.StatusActive
	}
	queryInsert := `
        INSERT INTO reservations (user_id, username, table_id, start_time, end_time, phone, status, created_at)
        VALUES (?, ?, ?, ?, ?, ?, ?, ?)
    `
	result, err := tx.ExecContext(ctx, queryInsert,
		r.UserID, r.Username, r.TableID, r.StartTime, r.EndTime, r.Phone, r.Status, now)
	if err != nil {
		return fmt.Errorf("failed to insert reservation in tx: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id in tx: %w", err)
	}
	r.ID = id
	r.CreatedAt = now

	return tx.Commit()
}

// CancelReservation переводит активную бронь в cancelled.
// Возвращает false, если брони нет или она уже отменена.
func (db *DB) CancelReservation(ctx context.Context, id int64) (bool, error) {
	query := `UPDATE reservations SET status = ? WHERE id = ? AND status = ?`
	result, err := db.ExecContext(ctx, query, models.StatusCancelled, id, models.StatusActive)
	if err != nil {
		return false, fmt.Errorf("failed to cancel reservation: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected > 0, nil
}

// GetReservation возвращает бронь по ID.
func (db *DB) GetReservation(ctx context.Context, id int64) (*models.Reservation, error) {
	query := `SELECT ` + reservationColumns + ` FROM reservations WHERE id = ?`

	var r models.Reservation
	err := db.QueryRowContext(ctx, query, id).Scan(
		&r.ID, &r.UserID, &r.Username, &r.TableID, &r.StartTime, &r.EndTime, &r.Phone, &r.Status, &r.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get reservation: %w", err)
	}
	return &r, nil
}

// GetUserReservations возвращает активные будущие брони пользователя
// в хронологическом порядке.
func (db *DB) GetUserReservations(ctx context.Context, userID int64) ([]models.Reservation, error) {
	query := `
        SELECT ` + reservationColumns + `
        FROM reservations
        WHERE user_id = ? AND status = ? AND end_time > ?
        ORDER BY start_time
    `
	rows, err := db.QueryContext(ctx, query, userID, models.StatusActive, time.Now())
	if err != nil {
		return nil, fmt.Errorf("failed to query user reservations: %w", err)
	}
	defer rows.Close()

	return scanReservations(rows)
}

// GetReservationsByDate возвращает все брони на календарную дату,
// включая отмененные, хронологически; при равном времени начала
// активные идут раньше отмененных.
func (db *DB) GetReservationsByDate(ctx context.Context, date time.Time) ([]models.Reservation, error) {
	dayStart := time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, date.Location())
	dayEnd := dayStart.AddDate(0, 0, 1)

	query := `
        SELECT ` + reservationColumns + `
        FROM reservations
        WHERE start_time >= ? AND start_time < ?
        ORDER BY start_time, status
    `
	rows, err := db.QueryContext(ctx, query, dayStart, dayEnd)
	if err != nil {
		return nil, fmt.Errorf("failed to query reservations by date: %w", err)
	}
	defer rows.Close()

	return scanReservations(rows)
}

// GetReservationsByRange возвращает активные брони, начинающиеся в
// [start, end), хронологически. Используется экспортом и напоминаниями.
func (db *DB) GetReservationsByRange(ctx context.Context, start, end time.Time) ([]models.Reservation, error) {
	query := `
        SELECT ` + reservationColumns + `
        FROM reservations
        WHERE status = ? AND start_time >= ? AND start_time < ?
        ORDER BY start_time
    `
	rows, err := db.QueryContext(ctx, query, models.StatusActive, start, end)
	if err != nil {
		return nil, fmt.Errorf("failed to query reservations by range: %w", err)
	}
	defer rows.Close()

	return scanReservations(rows)
}

// UpdateReservationEnd меняет время окончания брони. Чистая граница
// персистентности: бизнес-валидация выполняется сервисом до вызова.
func (db *DB) UpdateReservationEnd(ctx context.Context, id int64, end time.Time) (bool, error) {
	query := `UPDATE reservations SET end_time = ? WHERE id = ? AND status = ?`
	result, err := db.ExecContext(ctx, query, end, id, models.StatusActive)
	if err != nil {
		return false, fmt.Errorf("failed to update reservation end: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected > 0, nil
}

// CheckAvailability проверяет, свободен ли интервал [start, end).
// Интервал занят активной бронью того же стола либо неистёкшим hold,
// кроме hold самого excludeUser. tableID == nil проверяет все столы
// сразу (блокировка всего зала). Без побочных эффектов.
func (db *DB) CheckAvailability(ctx context.Context, tableID *int64, start, end time.Time, excludeUser *int64) (bool, error) {
	query := `
        SELECT COUNT(*) FROM reservations
        WHERE status = ? AND start_time < ? AND end_time > ?
    `
	params := []interface{}{models.StatusActive, end, start}
	if tableID != nil {
		query += " AND table_id = ?"
		params = append(params, *tableID)
	}

	var count int
	if err := db.QueryRowContext(ctx, query, params...).Scan(&count); err != nil {
		return false, fmt.Errorf("failed to check reservation conflicts: %w", err)
	}
	if count > 0 {
		return false, nil
	}

	query = `
        SELECT COUNT(*) FROM holds
        WHERE expires_at > ? AND start_time < ? AND end_time > ?
    `
	params = []interface{}{time.Now(), end, start}
	if excludeUser != nil {
		query += " AND user_id != ?"
		params = append(params, *excludeUser)
	}
	if tableID != nil {
		query += " AND table_id = ?"
		params = append(params, *tableID)
	}

	if err := db.QueryRowContext(ctx, query, params...).Scan(&count); err != nil {
		return false, fmt.Errorf("failed to check hold conflicts: %w", err)
	}
	return count == 0, nil
}

// HasReservationConflict сообщает, пересекается ли интервал с активной
// бронью стола, не считая саму редактируемую бронь.
func (db *DB) HasReservationConflict(ctx context.Context, tableID int64, start, end time.Time, excludeReservation int64) (bool, error) {
	query := `
        SELECT COUNT(*) FROM reservations
        WHERE status = ? AND table_id = ? AND start_time < ? AND end_time > ? AND id != ?
    `
	var count int
	err := db.QueryRowContext(ctx, query, models.StatusActive, tableID, end, start, excludeReservation).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("failed to check reservation conflict: %w", err)
	}
	return count > 0, nil
}

func scanReservations(rows *sql.Rows) ([]models.Reservation, error) {
	var reservations []models.Reservation
	for rows.Next() {
		var r models.Reservation
		err := rows.Scan(&r.ID, &r.UserID, &r.Username, &r.TableID,
			&r.StartTime, &r.EndTime, &r.Phone, &r.Status, &r.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan reservation: %w", err)
		}
		reservations = append(reservations, r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return reservations, nil
}
