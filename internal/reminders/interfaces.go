package reminders

import (
	"context"
	"time"

	"medstock/internal/models"
)

// Channel is a reminder delivery channel.
type Channel string

const (
	ChannelInApp Channel = "in-app"
	ChannelEmail Channel = "email"
)

// ChannelsFor returns the channels a reminder type delivers to.
func ChannelsFor(t models.ReminderType) []Channel {
	var out []Channel
	if t.WantsInApp() {
		out = append(out, ChannelInApp)
	}
	if t.WantsEmail() {
		out = append(out, ChannelEmail)
	}
	return out
}

// Reminder is one expiring medicine to tell a user about.
type Reminder struct {
	UserID   string
	Email    string
	Medicine models.Medicine
	DaysLeft int
	Message  string
	Day      time.Time // start of the local day the reminder belongs to
}

// Store provides what the reminder run reads and writes.
type Store interface {
	// ListUserIDs returns users that own at least one active medicine.
	ListUserIDs(ctx context.Context) ([]string, error)
	ListMedicines(ctx context.Context, userID string) ([]models.Medicine, error)
	// GetUserSettings returns the user's settings, creating defaults if missing.
	GetUserSettings(ctx context.Context, userID string) (*models.UserSettings, error)
	// HasNotificationSince reports whether an in-app reminder for the
	// medicine was already stored at or after since.
	HasNotificationSince(ctx context.Context, userID, medicineID string, since time.Time) (bool, error)
	CreateNotification(ctx context.Context, n *models.Notification) error
}

// Notifier delivers a reminder over one channel.
type Notifier interface {
	Channel() Channel
	SendReminder(ctx context.Context, r Reminder) error
}

// Logger interface for logging.
type Logger interface {
	Info(msg string, fields ...interface{})
	Error(msg string, fields ...interface{})
	Debug(msg string, fields ...interface{})
}
