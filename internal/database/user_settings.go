package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"medstock/internal/models"
)

// GetUserSettings returns settings for a user, creating the default row on
// first access.
func (db *DB) GetUserSettings(ctx context.Context, userID string) (*models.UserSettings, error) {
	s, err := db.selectUserSettings(ctx, userID)
	if err == nil {
		return s, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("get user settings: %w", err)
	}

	def := models.DefaultUserSettings(userID)
	now := time.Now()
	_, err = db.ExecContext(ctx, `
		INSERT INTO user_settings (user_id, reminder_threshold, reminder_type, email, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(user_id) DO NOTHING`,
		userID, def.ReminderThreshold, def.ReminderType, def.Email, now, now)
	if err != nil {
		return nil, fmt.Errorf("create default user settings: %w", err)
	}

	db.logger.Debug().Str("user_id", userID).Msg("created default user settings")

	s, err = db.selectUserSettings(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("get user settings: %w", err)
	}
	return s, nil
}

func (db *DB) selectUserSettings(ctx context.Context, userID string) (*models.UserSettings, error) {
	row := db.QueryRowContext(ctx, `
		SELECT id, user_id, reminder_threshold, reminder_type, email, created_at, updated_at
		FROM user_settings
		WHERE user_id = ?`, userID)

	var s models.UserSettings
	if err := row.Scan(&s.ID, &s.UserID, &s.ReminderThreshold, &s.ReminderType, &s.Email,
		&s.CreatedAt, &s.UpdatedAt); err != nil {
		return nil, err
	}
	return &s, nil
}

// UpsertUserSettings creates or updates user settings.
func (db *DB) UpsertUserSettings(ctx context.Context, s *models.UserSettings) error {
	now := time.Now()

	_, err := db.ExecContext(ctx, `
		INSERT INTO user_settings (user_id, reminder_threshold, reminder_type, email, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(user_id) DO UPDATE SET
			reminder_threshold = excluded.reminder_threshold,
			reminder_type = excluded.reminder_type,
			email = excluded.email,
			updated_at = excluded.updated_at`,
		s.UserID, s.ReminderThreshold, s.ReminderType, s.Email, now, now)
	if err != nil {
		return fmt.Errorf("upsert user settings: %w", err)
	}
	s.UpdatedAt = now
	return nil
}
