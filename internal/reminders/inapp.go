package reminders

import (
	"context"
	"time"

	"medstock/internal/models"
)

// NotificationWriter stores in-app notifications.
type NotificationWriter interface {
	CreateNotification(ctx context.Context, n *models.Notification) error
}

// InAppNotifier delivers reminders to the user's in-app inbox.
type InAppNotifier struct {
	store NotificationWriter
	now   func() time.Time
}

func NewInAppNotifier(store NotificationWriter) *InAppNotifier {
	return &InAppNotifier{store: store, now: time.Now}
}

func (n *InAppNotifier) Channel() Channel { return ChannelInApp }

func (n *InAppNotifier) SendReminder(ctx context.Context, r Reminder) error {
	return n.store.CreateNotification(ctx, &models.Notification{
		UserID:     r.UserID,
		MedicineID: r.Medicine.ID,
		Message:    r.Message,
		CreatedAt:  n.now(),
	})
}
