package database

import (
	"context"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"

	"medstock/internal/models"
)

// CreateNotification stores an in-app reminder.
func (db *DB) CreateNotification(ctx context.Context, n *models.Notification) error {
	if n.CreatedAt.IsZero() {
		n.CreatedAt = time.Now()
	}
	res, err := db.ExecContext(ctx, `
		INSERT INTO notifications (user_id, medicine_id, message, is_read, created_at)
		VALUES (?, ?, ?, ?, ?)`,
		n.UserID, n.MedicineID, n.Message, n.Read, n.CreatedAt.UTC())
	if err != nil {
		return fmt.Errorf("insert notification: %w", err)
	}
	n.ID, err = res.LastInsertId()
	return err
}

// ListNotifications returns the newest notifications of a user first.
func (db *DB) ListNotifications(ctx context.Context, userID string, unreadOnly bool) ([]models.Notification, error) {
	queryBuilder := squirrel.
		Select("id", "user_id", "medicine_id", "message", "is_read", "created_at").
		From("notifications").
		Where(squirrel.Eq{"user_id": userID})

	if unreadOnly {
		queryBuilder = queryBuilder.Where(squirrel.Eq{"is_read": false})
	}

	query, args, err := queryBuilder.OrderBy("created_at DESC", "id DESC").ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build query: %w", err)
	}

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list notifications: %w", err)
	}
	defer rows.Close()

	out := make([]models.Notification, 0)
	for rows.Next() {
		var n models.Notification
		if err := rows.Scan(&n.ID, &n.UserID, &n.MedicineID, &n.Message, &n.Read, &n.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	return out, rows.Err()
}

// MarkNotificationRead flags a notification as read.
func (db *DB) MarkNotificationRead(ctx context.Context, userID string, id int64) error {
	res, err := db.ExecContext(ctx, `
		UPDATE notifications SET is_read = 1
		WHERE id = ? AND user_id = ?`, id, userID)
	if err != nil {
		return fmt.Errorf("mark notification read: %w", err)
	}
	return expectAffected(res)
}

// HasNotificationSince reports whether the medicine already produced a
// notification at or after since.
func (db *DB) HasNotificationSince(ctx context.Context, userID, medicineID string, since time.Time) (bool, error) {
	var exists bool
	err := db.QueryRowContext(ctx, `
		SELECT EXISTS(
			SELECT 1 FROM notifications
			WHERE user_id = ? AND medicine_id = ? AND created_at >= ?
		)`, userID, medicineID, since.UTC()).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check notification: %w", err)
	}
	return exists, nil
}
