package database

import (
	"context"
	"fmt"
	"time"

	"kiybot/internal/models"
)

// CreateHold создаёт новое удержание слота, предварительно удаляя все
// прежние holds пользователя: в любой момент у пользователя не больше
// одного живого hold. Обе операции идут в одной транзакции.
func (db *DB) CreateHold(ctx context.Context, h *models.Hold) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if _, err := tx.ExecContext(ctx, `DELETE FROM holds WHERE user_id = ?`, h.UserID); err != nil {
		return fmt.Errorf("failed to delete previous holds: %w", err)
	}

	query := `
        INSERT INTO holds (user_id, table_id, start_time, end_time, created_at, expires_at)
        VALUES (?, ?, ?, ?, ?, ?)
    `
	result, err := tx.ExecContext(ctx, query,
		h.UserID, h.TableID, h.StartTime, h.EndTime, h.CreatedAt, h.ExpiresAt)
	if err != nil {
		return fmt.Errorf("failed to create hold: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}
	h.ID = id

	return tx.Commit()
}

// DeleteUserHolds удаляет все holds пользователя. Идемпотентна.
func (db *DB) DeleteUserHolds(ctx context.Context, userID int64) error {
	if _, err := db.ExecContext(ctx, `DELETE FROM holds WHERE user_id = ?`, userID); err != nil {
		return fmt.Errorf("failed to delete user holds: %w", err)
	}
	return nil
}

// CleanupExpiredHolds удаляет истёкшие holds и возвращает их число.
func (db *DB) CleanupExpiredHolds(ctx context.Context) (int64, error) {
	result, err := db.ExecContext(ctx, `DELETE FROM holds WHERE expires_at < ?`, time.Now())
	if err != nil {
		return 0, fmt.Errorf("failed to cleanup expired holds: %w", err)
	}
	return result.RowsAffected()
}

// GetUserHolds возвращает holds пользователя.
func (db *DB) GetUserHolds(ctx context.Context, userID int64) ([]models.Hold, error) {
	query := `
        SELECT id, user_id, table_id, start_time, end_time, created_at, expires_at
        FROM holds WHERE user_id = ?
        ORDER BY created_at
    `
	rows, err := db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query user holds: %w", err)
	}
	defer rows.Close()

	var holds []models.Hold
	for rows.Next() {
		var h models.Hold
		err := rows.Scan(&h.ID, &h.UserID, &h.TableID, &h.StartTime, &h.EndTime, &h.CreatedAt, &h.ExpiresAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan hold: %w", err)
		}
		holds = append(holds, h)
	}
	return holds, rows.Err()
}
