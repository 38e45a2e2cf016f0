// Package cli holds the medstock subcommands.
package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"medstock/internal/cache"
	"medstock/internal/config"
	"medstock/internal/database"
	"medstock/internal/events"
	"medstock/internal/inventory"
	"medstock/internal/logging"
	"medstock/internal/reminders"
)

// Context is passed to every command's Run method.
type Context struct {
	Config *config.Config
	Logger zerolog.Logger
}

// signalContext is cancelled on SIGINT or SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

func (c *Context) openDB() (*database.DB, error) {
	db, err := database.NewDB(c.Config.Database.Path, c.Logger)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	return db, nil
}

// redisClient returns nil when Redis is not configured.
func (c *Context) redisClient() *redis.Client {
	if c.Config.Redis.Address == "" {
		return nil
	}
	return redis.NewClient(&redis.Options{
		Addr:     c.Config.Redis.Address,
		Password: c.Config.Redis.Password,
		DB:       c.Config.Redis.DB,
	})
}

func (c *Context) inventoryService(db *database.DB, rdb *redis.Client, bus *events.EventBus) *inventory.Service {
	return inventory.NewService(db, cache.New(rdb, c.Config.CacheTTL(), c.Logger), bus, time.Now, c.Logger)
}

// reminderScheduler wires the reminder service with the in-app notifier and,
// when configured, SendGrid email.
func (c *Context) reminderScheduler(db *database.DB, reg prometheus.Registerer) (*reminders.Scheduler, error) {
	rc := c.Config.Reminders
	log := logging.NewKV(c.Logger.With().Str("component", "reminders").Logger())

	var metrics *reminders.Metrics
	if reg != nil {
		metrics = reminders.NewMetrics("medstock", reg)
	}

	senderCfg := reminders.DefaultReminderSenderConfig()
	senderCfg.RateLimiter.Rate = rc.RatePerSecond
	senderCfg.RateLimiter.Burst = rc.Burst
	senderCfg.Retry.MaxRetries = rc.MaxRetries
	sender := reminders.NewReminderSender(senderCfg, metrics, log)

	notifiers := []reminders.Notifier{reminders.NewInAppNotifier(db)}
	if c.Config.EmailEnabled() {
		notifiers = append(notifiers, reminders.NewEmailNotifier(
			c.Config.Email.SendGridAPIKey, c.Config.Email.FromEmail, c.Config.Email.FromName))
	} else {
		c.Logger.Info().Msg("email reminders disabled: sendgrid not configured")
	}

	svc := reminders.NewService(db, sender, metrics, log, notifiers...)
	return reminders.NewScheduler(reminders.SchedulerConfig{
		Timezone:      rc.Timezone,
		DailyHour:     rc.DailyHour,
		DailyMinute:   rc.DailyMinute,
		CheckInterval: time.Minute,
	}, svc, log)
}
