// Package api serves the medicine inventory over HTTP/JSON.
package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"medstock/internal/inventory"
	"medstock/internal/metrics"
)

// Config holds HTTP server settings.
type Config struct {
	Address       string
	ReadTimeout   time.Duration
	WriteTimeout  time.Duration
	APIKeys       []string
	JWTSecret     string
	UserRate      float64
	UserBurst     int
	EnableMetrics bool
}

// HTTPServer exposes the inventory service.
type HTTPServer struct {
	cfg     Config
	inv     *inventory.Service
	auth    *authenticator
	limiter *userLimiter
	server  *http.Server
	logger  zerolog.Logger
}

func NewHTTPServer(cfg Config, inv *inventory.Service, logger zerolog.Logger) *HTTPServer {
	s := &HTTPServer{
		cfg:     cfg,
		inv:     inv,
		auth:    newAuthenticator(cfg.APIKeys, cfg.JWTSecret),
		limiter: newUserLimiter(cfg.UserRate, cfg.UserBurst),
		logger:  logger.With().Str("component", "http_api").Logger(),
	}
	s.server = &http.Server{
		Addr:              cfg.Address,
		Handler:           s.Handler(),
		ReadTimeout:       cfg.ReadTimeout,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      cfg.WriteTimeout,
	}
	return s
}

// Handler returns the routed API with auth and rate limiting applied.
func (s *HTTPServer) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /api/medicines", s.handleListMedicines)
	mux.HandleFunc("POST /api/medicines", s.handleCreateMedicine)
	mux.HandleFunc("GET /api/medicines/expiring", s.handleExpiring)
	mux.HandleFunc("GET /api/medicines/{id}", s.handleGetMedicine)
	mux.HandleFunc("PUT /api/medicines/{id}", s.handleUpdateMedicine)
	mux.HandleFunc("DELETE /api/medicines/{id}", s.handleDeleteMedicine)
	mux.HandleFunc("POST /api/medicines/{id}/donate", s.handleDonate)

	mux.HandleFunc("GET /api/dosages/upcoming", s.handleUpcoming)

	mux.HandleFunc("GET /api/settings", s.handleGetSettings)
	mux.HandleFunc("PUT /api/settings", s.handleUpdateSettings)

	mux.HandleFunc("GET /api/notifications", s.handleNotifications)
	mux.HandleFunc("POST /api/notifications/{id}/read", s.handleMarkRead)

	mux.HandleFunc("GET /api/export.xlsx", s.handleExportExcel)
	mux.HandleFunc("GET /api/export.pdf", s.handleExportPDF)

	var h http.Handler = mux
	if s.cfg.EnableMetrics {
		// Innermost so it sees the route pattern set by the mux.
		h = metrics.Middleware(h)
	}
	h = s.rateLimit(h)
	h = s.authenticate(h)
	return s.recoverPanics(h)
}

// Start serves until ctx is cancelled, then shuts down gracefully.
func (s *HTTPServer) Start(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info().Str("address", s.cfg.Address).Msg("HTTP API listening")
		if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.server.Shutdown(shutdownCtx); err != nil {
		return err
	}
	s.logger.Info().Msg("HTTP API stopped")
	return nil
}

func (s *HTTPServer) recoverPanics(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				s.logger.Error().Interface("panic", rec).Str("path", r.URL.Path).Msg("handler panicked")
				writeError(w, http.StatusInternalServerError, "internal error")
			}
		}()
		next.ServeHTTP(w, r)
	})
}
