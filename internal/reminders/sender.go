package reminders

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// RetryConfig holds configuration for retry logic.
type RetryConfig struct {
	MaxRetries  int
	RetryDelays []time.Duration
}

// DefaultRetryConfig returns the default retry configuration.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxRetries: 3,
		RetryDelays: []time.Duration{
			1 * time.Second,
			5 * time.Second,
			30 * time.Second,
		},
	}
}

func (c RetryConfig) delay(attempt int) time.Duration {
	if len(c.RetryDelays) == 0 {
		return 0
	}
	if attempt < len(c.RetryDelays) {
		return c.RetryDelays[attempt]
	}
	return c.RetryDelays[len(c.RetryDelays)-1]
}

// DeliveryError is a failed delivery reported by a provider.
type DeliveryError struct {
	Channel    Channel
	StatusCode int
	Message    string
}

func (e *DeliveryError) Error() string {
	return fmt.Sprintf("%s delivery failed with status %d: %s", e.Channel, e.StatusCode, e.Message)
}

// Permanent reports whether retrying cannot help. Rate limiting and server
// errors are retried, other client errors are not.
func (e *DeliveryError) Permanent() bool {
	return e.StatusCode >= 400 && e.StatusCode < 500 && e.StatusCode != 429
}

// IsPermanent reports whether err is a delivery error that must not be retried.
func IsPermanent(err error) bool {
	var dErr *DeliveryError
	return errors.As(err, &dErr) && dErr.Permanent()
}

// ReminderSender handles sending reminders with rate limiting and retry logic.
type ReminderSender struct {
	rateLimiter *RateLimiter
	retryConfig RetryConfig
	metrics     *Metrics
	logger      Logger
}

// ReminderSenderConfig holds configuration for the sender.
type ReminderSenderConfig struct {
	RateLimiter RateLimiterConfig
	Retry       RetryConfig
}

// DefaultReminderSenderConfig returns the default configuration.
func DefaultReminderSenderConfig() ReminderSenderConfig {
	return ReminderSenderConfig{
		RateLimiter: DefaultRateLimiterConfig(),
		Retry:       DefaultRetryConfig(),
	}
}

// NewReminderSender creates a new reminder sender.
func NewReminderSender(config ReminderSenderConfig, metrics *Metrics, logger Logger) *ReminderSender {
	return &ReminderSender{
		rateLimiter: NewRateLimiter(config.RateLimiter),
		retryConfig: config.Retry,
		metrics:     metrics,
		logger:      logger,
	}
}

// SendWithRetry delivers r through n, waiting on the rate limiter first and
// retrying transient failures with the configured delays.
func (s *ReminderSender) SendWithRetry(ctx context.Context, n Notifier, r Reminder) error {
	waited, err := s.rateLimiter.Wait(ctx)
	if waited {
		s.metrics.IncRateLimitWaits()
	}
	if err != nil {
		return fmt.Errorf("rate limiter: %w", err)
	}

	var lastErr error
	maxRetries := s.retryConfig.MaxRetries

	for attempt := 0; attempt <= maxRetries; attempt++ {
		start := time.Now()
		err := n.SendReminder(ctx, r)
		s.metrics.ObserveSendDuration(time.Since(start).Seconds())
		if err == nil {
			s.metrics.IncSent("sent", n.Channel())
			s.logger.Debug("reminder sent",
				"channel", n.Channel(),
				"user_id", r.UserID,
				"medicine_id", r.Medicine.ID)
			return nil
		}

		lastErr = err

		if IsPermanent(err) {
			s.logger.Error("reminder rejected",
				"channel", n.Channel(),
				"user_id", r.UserID,
				"error", err)
			s.metrics.IncSent("failed", n.Channel())
			return err
		}

		if attempt < maxRetries {
			delay := s.retryConfig.delay(attempt)
			s.metrics.IncRetries()
			s.logger.Info("retrying reminder send",
				"attempt", attempt+1,
				"max_retries", maxRetries,
				"delay", delay,
				"error", err)

			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	}

	s.logger.Error("max retries exceeded for reminder",
		"channel", n.Channel(),
		"user_id", r.UserID,
		"medicine_id", r.Medicine.ID,
		"error", lastErr)
	s.metrics.IncSent("failed", n.Channel())

	return fmt.Errorf("max retries exceeded: %w", lastErr)
}
