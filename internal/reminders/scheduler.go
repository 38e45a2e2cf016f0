package reminders

import (
	"context"
	"sync"
	"time"
)

// SchedulerConfig holds configuration for the reminder scheduler.
type SchedulerConfig struct {
	// Timezone for scheduling (e.g., "Europe/Berlin")
	Timezone string
	// DailyHour is the hour (0-23) when daily reminders are processed.
	DailyHour int
	// DailyMinute is the minute (0-59) when daily reminders are processed.
	DailyMinute int
	// CheckInterval is how often to check if it's time to run.
	CheckInterval time.Duration
}

// DefaultSchedulerConfig returns the default scheduler configuration.
func DefaultSchedulerConfig() SchedulerConfig {
	return SchedulerConfig{
		Timezone:      "UTC",
		DailyHour:     9,
		DailyMinute:   0,
		CheckInterval: 1 * time.Minute,
	}
}

// Scheduler runs the reminder service once per local day.
type Scheduler struct {
	config      SchedulerConfig
	service     *Service
	location    *time.Location
	now         func() time.Time
	logger      Logger
	mu          sync.Mutex
	lastRunDate string // YYYY-MM-DD of last run
	running     bool
	stopCh      chan struct{}
}

// NewScheduler creates a new reminder scheduler.
func NewScheduler(config SchedulerConfig, service *Service, logger Logger) (*Scheduler, error) {
	loc, err := time.LoadLocation(config.Timezone)
	if err != nil {
		return nil, err
	}
	if config.CheckInterval <= 0 {
		config.CheckInterval = time.Minute
	}

	return &Scheduler{
		config:   config,
		service:  service,
		location: loc,
		now:      time.Now,
		logger:   logger,
		stopCh:   make(chan struct{}),
	}, nil
}

// Start begins the scheduler loop and blocks until ctx is done or Stop is called.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return
	}
	s.running = true
	s.mu.Unlock()

	s.logger.Info("reminder scheduler started",
		"timezone", s.config.Timezone,
		"daily_time", s.formatTime())

	ticker := time.NewTicker(s.config.CheckInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("reminder scheduler stopped by context")
			return
		case <-s.stopCh:
			s.logger.Info("reminder scheduler stopped")
			return
		case <-ticker.C:
			s.checkAndRun(ctx)
		}
	}
}

// Stop stops the scheduler.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if s.running {
		s.running = false
		close(s.stopCh)
	}
	s.mu.Unlock()
}

// checkAndRun runs the daily batch once the configured time of day has been
// reached, at most once per local date. It reports whether a run happened.
func (s *Scheduler) checkAndRun(ctx context.Context) bool {
	now := s.now().In(s.location)
	today := now.Format("2006-01-02")

	s.mu.Lock()
	alreadyRan := s.lastRunDate == today
	s.mu.Unlock()

	if alreadyRan {
		return false
	}

	due := time.Date(now.Year(), now.Month(), now.Day(), s.config.DailyHour, s.config.DailyMinute, 0, 0, s.location)
	if now.Before(due) {
		return false
	}

	s.logger.Info("starting daily reminder processing",
		"date", today,
		"time", now.Format("15:04:05"))

	s.mu.Lock()
	s.lastRunDate = today
	s.mu.Unlock()

	if _, err := s.service.RunOnce(ctx, now); err != nil {
		s.logger.Error("daily reminder run failed", "error", err)
	}
	return true
}

// RunNow forces an immediate run of the reminder processing.
func (s *Scheduler) RunNow(ctx context.Context) (RunStats, error) {
	s.logger.Info("manual reminder processing triggered")
	return s.service.RunOnce(ctx, s.now().In(s.location))
}

// formatTime returns the scheduled time as a string.
func (s *Scheduler) formatTime() string {
	return time.Date(2000, 1, 1, s.config.DailyHour, s.config.DailyMinute, 0, 0, time.UTC).Format("15:04")
}

// IsRunning returns whether the scheduler is currently running.
func (s *Scheduler) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}
