package models

import (
	"fmt"
	"net/mail"
	"time"
)

// ReminderType selects how expiry reminders are delivered.
type ReminderType string

const (
	ReminderEmail ReminderType = "email"
	ReminderInApp ReminderType = "in-app"
	ReminderBoth  ReminderType = "both"
)

// Valid reports whether t is a known delivery mode.
func (t ReminderType) Valid() bool {
	switch t {
	case ReminderEmail, ReminderInApp, ReminderBoth:
		return true
	default:
		return false
	}
}

// WantsEmail reports whether reminders go out by email.
func (t ReminderType) WantsEmail() bool { return t == ReminderEmail || t == ReminderBoth }

// WantsInApp reports whether reminders go to the in-app inbox.
func (t ReminderType) WantsInApp() bool { return t == ReminderInApp || t == ReminderBoth }

const (
	DefaultReminderThreshold = 7
	MinReminderThreshold     = 1
	MaxReminderThreshold     = 90
)

// UserSettings stores user preferences for expiry reminders.
type UserSettings struct {
	ID                int64        `json:"id"`
	UserID            string       `json:"user_id"`
	ReminderThreshold int          `json:"reminder_threshold"`
	ReminderType      ReminderType `json:"reminder_type"`
	Email             string       `json:"email,omitempty"`
	CreatedAt         time.Time    `json:"created_at"`
	UpdatedAt         time.Time    `json:"updated_at"`
}

// DefaultUserSettings returns the settings a user gets on first access.
func DefaultUserSettings(userID string) *UserSettings {
	return &UserSettings{
		UserID:            userID,
		ReminderThreshold: DefaultReminderThreshold,
		ReminderType:      ReminderInApp,
	}
}

// Validate checks threshold bounds and delivery mode.
func (s *UserSettings) Validate() error {
	fields := make(map[string]string)
	if s.ReminderThreshold < MinReminderThreshold || s.ReminderThreshold > MaxReminderThreshold {
		fields["reminder_threshold"] = fmt.Sprintf("Reminder threshold must be between %d and %d days",
			MinReminderThreshold, MaxReminderThreshold)
	}
	if !s.ReminderType.Valid() {
		fields["reminder_type"] = fmt.Sprintf("Unknown reminder type %q", s.ReminderType)
	}
	if s.Email != "" {
		if _, err := mail.ParseAddress(s.Email); err != nil {
			fields["email"] = "Invalid email address"
		}
	}
	if len(fields) > 0 {
		return &ValidationError{Fields: fields}
	}
	return nil
}

// Notification is an in-app reminder shown in the user's inbox.
type Notification struct {
	ID         int64     `json:"id"`
	UserID     string    `json:"user_id"`
	MedicineID string    `json:"medicine_id"`
	Message    string    `json:"message"`
	Read       bool      `json:"read"`
	CreatedAt  time.Time `json:"created_at"`
}
