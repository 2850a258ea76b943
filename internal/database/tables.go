package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"kiybot/internal/models"
)

// SyncTables приводит инвентарь столов к конфигурации: новые столы
// вставляются, существующие обновляются, отсутствующие в конфигурации
// деактивируются. Столы никогда не удаляются физически.
func (db *DB) SyncTables(ctx context.Context, tables []models.Table) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	known := make(map[int64]bool, len(tables))
	for _, table := range tables {
		known[table.ID] = true
		query := `
            INSERT INTO tables (id, name, is_active) VALUES (?, ?, ?)
            ON CONFLICT(id) DO UPDATE SET name = excluded.name, is_active = excluded.is_active
        `
		if _, err := tx.ExecContext(ctx, query, table.ID, table.Name, table.IsActive); err != nil {
			return fmt.Errorf("failed to upsert table %d: %w", table.ID, err)
		}
	}

	rows, err := tx.QueryContext(ctx, `SELECT id FROM tables`)
	if err != nil {
		return fmt.Errorf("failed to list tables: %w", err)
	}
	var stale []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return err
		}
		if !known[id] {
			stale = append(stale, id)
		}
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return err
	}

	for _, id := range stale {
		if _, err := tx.ExecContext(ctx, `UPDATE tables SET is_active = 0 WHERE id = ?`, id); err != nil {
			return fmt.Errorf("failed to deactivate table %d: %w", id, err)
		}
	}

	return tx.Commit()
}

// GetActiveTables возвращает активные столы по возрастанию ID.
func (db *DB) GetActiveTables(ctx context.Context) ([]models.Table, error) {
	rows, err := db.QueryContext(ctx, `SELECT id, name, is_active FROM tables WHERE is_active = 1 ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to query tables: %w", err)
	}
	defer rows.Close()

	var tables []models.Table
	for rows.Next() {
		var t models.Table
		if err := rows.Scan(&t.ID, &t.Name, &t.IsActive); err != nil {
			return nil, fmt.Errorf("failed to scan table: %w", err)
		}
		tables = append(tables, t)
	}
	return tables, rows.Err()
}

// GetTableByID возвращает стол по ID, включая деактивированные.
func (db *DB) GetTableByID(ctx context.Context, id int64) (*models.Table, error) {
	var t models.Table
	err := db.QueryRowContext(ctx, `SELECT id, name, is_active FROM tables WHERE id = ?`, id).
		Scan(&t.ID, &t.Name, &t.IsActive)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get table: %w", err)
	}
	return &t, nil
}
