package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"kiybot/internal/models"
)

// CreateTournamentRegistration записывает пользователя на турнир.
// Проверки вместимости и повторной записи выполняются в одной
// транзакции со вставкой.
func (db *DB) CreateTournamentRegistration(ctx context.Context, reg *models.TournamentRegistration, maxParticipants int) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	var existing int
	err = tx.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM tournament_registrations WHERE user_id = ? AND status = ?`,
		reg.UserID, models.StatusActive).Scan(&existing)
	if err != nil {
		return fmt.Errorf("failed to check existing registration: %w", err)
	}
	if existing > 0 {
		return ErrAlreadyRegistered
	}

	var active int
	err = tx.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM tournament_registrations WHERE status = ?`,
		models.StatusActive).Scan(&active)
	if err != nil {
		return fmt.Errorf("failed to count registrations: %w", err)
	}
	if active >= maxParticipants {
		return ErrTournamentFull
	}

	now := time.Now()
	result, err := tx.ExecContext(ctx, `
        INSERT INTO tournament_registrations (user_id, username, full_name, phone, status, created_at)
        VALUES (?, ?, ?, ?, ?, ?)
    `, reg.UserID, reg.Username, reg.FullName, reg.Phone, models.StatusActive, now)
	if err != nil {
		return fmt.Errorf("failed to create registration: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}
	reg.ID = id
	reg.Status = models.StatusActive
	reg.CreatedAt = now

	return tx.Commit()
}

// GetUserTournamentRegistration возвращает активную запись пользователя
// или ErrNotFound.
func (db *DB) GetUserTournamentRegistration(ctx context.Context, userID int64) (*models.TournamentRegistration, error) {
	var reg models.TournamentRegistration
	err := db.QueryRowContext(ctx, `
        SELECT id, user_id, username, full_name, phone, status, created_at
        FROM tournament_registrations WHERE user_id = ? AND status = ?
    `, userID, models.StatusActive).Scan(
		&reg.ID, &reg.UserID, &reg.Username, &reg.FullName, &reg.Phone, &reg.Status, &reg.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get registration: %w", err)
	}
	return &reg, nil
}

// CancelTournamentRegistration отменяет активную запись.
func (db *DB) CancelTournamentRegistration(ctx context.Context, id int64) (bool, error) {
	result, err := db.ExecContext(ctx,
		`UPDATE tournament_registrations SET status = ? WHERE id = ? AND status = ?`,
		models.StatusCancelled, id, models.StatusActive)
	if err != nil {
		return false, fmt.Errorf("failed to cancel registration: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected > 0, nil
}

// CountActiveTournamentRegistrations возвращает число активных записей.
func (db *DB) CountActiveTournamentRegistrations(ctx context.Context) (int, error) {
	var count int
	err := db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM tournament_registrations WHERE status = ?`,
		models.StatusActive).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count registrations: %w", err)
	}
	return count, nil
}

// GetActiveTournamentRegistrations возвращает активные записи в порядке
// создания.
func (db *DB) GetActiveTournamentRegistrations(ctx context.Context) ([]models.TournamentRegistration, error) {
	rows, err := db.QueryContext(ctx, `
        SELECT id, user_id, username, full_name, phone, status, created_at
        FROM tournament_registrations WHERE status = ?
        ORDER BY created_at
    `, models.StatusActive)
	if err != nil {
		return nil, fmt.Errorf("failed to query registrations: %w", err)
	}
	defer rows.Close()

	var regs []models.TournamentRegistration
	for rows.Next() {
		var reg models.TournamentRegistration
		err := rows.Scan(&reg.ID, &reg.UserID, &reg.Username, &reg.FullName, &reg.Phone, &reg.Status, &reg.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan registration: %w", err)
		}
		regs = append(regs, reg)
	}
	return regs, rows.Err()
}
