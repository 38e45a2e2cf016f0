package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"medstock/internal/api"
	"medstock/internal/database"
	"medstock/internal/events"
	"medstock/internal/metrics"
)

type ServeCmd struct {
	NoReminders bool `help:"Do not start the daily reminder scheduler."`
}

func (c *ServeCmd) Run(ctx *Context) error {
	cfg := ctx.Config
	logger := ctx.Logger

	db, err := ctx.openDB()
	if err != nil {
		return err
	}
	defer db.Close()

	rdb := ctx.redisClient()
	if rdb != nil {
		defer rdb.Close()
	}

	runCtx, stop := signalContext()
	defer stop()

	bus := events.NewEventBus()
	var reg prometheus.Registerer
	if cfg.Monitoring.PrometheusEnabled {
		metrics.Register()
		metrics.ObserveEvents(bus)
		reg = prometheus.DefaultRegisterer
		go startMetricsServer(runCtx, cfg.Monitoring.PrometheusPort, &logger)
	}

	if cfg.KafkaEnabled() {
		sink := events.NewKafkaSink(cfg.Kafka.Brokers, cfg.Kafka.Topic, logger)
		sink.Attach(bus)
		defer func() {
			if err := sink.Close(); err != nil {
				logger.Error().Err(err).Msg("kafka sink close error")
			}
		}()
	}

	inv := ctx.inventoryService(db, rdb, bus)

	if cfg.Reminders.Enabled && !c.NoReminders {
		scheduler, err := ctx.reminderScheduler(db, reg)
		if err != nil {
			return fmt.Errorf("reminder scheduler: %w", err)
		}
		go scheduler.Start(runCtx)
		defer scheduler.Stop()
	}

	backup := database.NewBackupService(db, cfg.Backup, logger)
	go backup.Start(runCtx)

	go startHealthServer(runCtx, cfg.Monitoring.HealthCheckPort, db, rdb, &logger)

	server := api.NewHTTPServer(api.Config{
		Address:       cfg.HTTP.Address,
		ReadTimeout:   time.Duration(cfg.HTTP.ReadTimeoutSec) * time.Second,
		WriteTimeout:  time.Duration(cfg.HTTP.WriteTimeoutSec) * time.Second,
		APIKeys:       cfg.Auth.APIKeys,
		JWTSecret:     cfg.Auth.JWTSecret,
		UserRate:      cfg.HTTP.UserRatePerSecond,
		UserBurst:     cfg.HTTP.UserBurst,
		EnableMetrics: cfg.Monitoring.PrometheusEnabled,
	}, inv, logger)

	logger.Info().Msg("medstock started")
	return server.Start(runCtx)
}

func startHealthServer(ctx context.Context, port int, db *database.DB, rdb *redis.Client, logger *zerolog.Logger) {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	mux.HandleFunc("/readyz", func(w http.ResponseWriter, _ *http.Request) {
		ctxPing, cancel := context.WithTimeout(ctx, time.Second)
		defer cancel()
		if err := db.PingContext(ctxPing); err != nil {
			http.Error(w, "db not ready", http.StatusServiceUnavailable)
			return
		}
		if rdb != nil {
			if err := rdb.Ping(ctxPing).Err(); err != nil {
				http.Error(w, "redis not ready", http.StatusServiceUnavailable)
				return
			}
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ready"))
	})

	serve(ctx, port, mux, "health", logger)
}

func startMetricsServer(ctx context.Context, port int, logger *zerolog.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	serve(ctx, port, mux, "metrics", logger)
}

func serve(ctx context.Context, port int, h http.Handler, name string, logger *zerolog.Logger) {
	srv := &http.Server{Addr: fmt.Sprintf(":%d", port), Handler: h, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		<-ctx.Done()
		ctxShutdown, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctxShutdown)
	}()
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error().Err(err).Msgf("%s server error", name)
	}
}
