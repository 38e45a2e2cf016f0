package reminders

import (
	"context"
	"fmt"
	"strings"
	"time"

	"medstock/internal/expiry"
	"medstock/internal/models"
)

// RunStats summarises one reminder run.
type RunStats struct {
	Users     int
	Reminders int
	Sent      int
	Skipped   int
	Failed    int
}

// Service finds expiring medicines and hands reminders to the notifiers
// each user asked for.
type Service struct {
	store     Store
	notifiers map[Channel]Notifier
	sender    *ReminderSender
	metrics   *Metrics
	logger    Logger
}

// NewService creates a new reminder service. Channels without a notifier are
// skipped at send time.
func NewService(store Store, sender *ReminderSender, metrics *Metrics, logger Logger, notifiers ...Notifier) *Service {
	byChannel := make(map[Channel]Notifier, len(notifiers))
	for _, n := range notifiers {
		if n != nil {
			byChannel[n.Channel()] = n
		}
	}
	return &Service{
		store:     store,
		notifiers: byChannel,
		sender:    sender,
		metrics:   metrics,
		logger:    logger,
	}
}

// StartOfDay returns midnight of t's calendar day in t's location.
func StartOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// Message renders the reminder text for a medicine.
func Message(name string, daysLeft int) string {
	text := expiry.Text(daysLeft)
	return fmt.Sprintf("%s %s", name, strings.ToLower(text[:1])+text[1:])
}

// Collect returns the user's settings and one reminder per medicine that
// expires within the user's threshold.
func (s *Service) Collect(ctx context.Context, userID string, now time.Time) (*models.UserSettings, []Reminder, error) {
	settings, err := s.store.GetUserSettings(ctx, userID)
	if err != nil {
		return nil, nil, fmt.Errorf("get settings for %s: %w", userID, err)
	}
	meds, err := s.store.ListMedicines(ctx, userID)
	if err != nil {
		return nil, nil, fmt.Errorf("list medicines for %s: %w", userID, err)
	}

	day := StartOfDay(now)
	soon := expiry.ExpiringSoon(meds, settings.ReminderThreshold, now)
	out := make([]Reminder, 0, len(soon))
	for _, m := range soon {
		days := expiry.DaysUntil(m.ExpiryDate, now)
		out = append(out, Reminder{
			UserID:   userID,
			Email:    settings.Email,
			Medicine: m,
			DaysLeft: days,
			Message:  Message(m.Name, days),
			Day:      day,
		})
	}
	return settings, out, nil
}

// RunOnce processes reminders for every user as of now.
func (s *Service) RunOnce(ctx context.Context, now time.Time) (RunStats, error) {
	start := time.Now()
	var stats RunStats

	users, err := s.store.ListUserIDs(ctx)
	if err != nil {
		return stats, fmt.Errorf("list users: %w", err)
	}

	for _, userID := range users {
		select {
		case <-ctx.Done():
			s.logger.Info("reminder processing interrupted",
				"processed_users", stats.Users,
				"remaining_users", len(users)-stats.Users)
			return stats, ctx.Err()
		default:
		}

		stats.Users++
		settings, reminders, err := s.Collect(ctx, userID, now)
		if err != nil {
			s.logger.Error("failed to collect reminders", "user_id", userID, "error", err)
			stats.Failed++
			continue
		}

		for _, r := range reminders {
			stats.Reminders++
			for _, ch := range ChannelsFor(settings.ReminderType) {
				switch s.deliver(ctx, ch, r) {
				case outcomeSent:
					stats.Sent++
				case outcomeSkipped:
					stats.Skipped++
				case outcomeFailed:
					stats.Failed++
				}
			}
		}
	}

	s.metrics.ObserveRunDuration(time.Since(start).Seconds())
	s.logger.Info("daily reminders processed",
		"users", stats.Users,
		"reminders", stats.Reminders,
		"sent", stats.Sent,
		"skipped", stats.Skipped,
		"failed", stats.Failed,
		"duration", time.Since(start))

	return stats, nil
}

type outcome int

const (
	outcomeSent outcome = iota
	outcomeSkipped
	outcomeFailed
)

func (s *Service) deliver(ctx context.Context, ch Channel, r Reminder) outcome {
	n, ok := s.notifiers[ch]
	if !ok {
		s.logger.Debug("no notifier for channel", "channel", ch, "user_id", r.UserID)
		s.metrics.IncSent("skipped", ch)
		return outcomeSkipped
	}

	switch ch {
	case ChannelEmail:
		if r.Email == "" {
			s.logger.Debug("user has no email address", "user_id", r.UserID)
			s.metrics.IncSent("skipped", ch)
			return outcomeSkipped
		}
	case ChannelInApp:
		// One in-app notification per medicine per day.
		exists, err := s.store.HasNotificationSince(ctx, r.UserID, r.Medicine.ID, r.Day)
		if err != nil {
			s.logger.Error("failed to check existing notification", "user_id", r.UserID, "error", err)
			s.metrics.IncSent("failed", ch)
			return outcomeFailed
		}
		if exists {
			s.metrics.IncSent("skipped", ch)
			return outcomeSkipped
		}
	}

	if err := s.sender.SendWithRetry(ctx, n, r); err != nil {
		return outcomeFailed
	}
	return outcomeSent
}
