package app

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"

	"github.com/dokzlo13/camlightd/internal/config"
	"github.com/dokzlo13/camlightd/internal/ledger"
	"github.com/dokzlo13/camlightd/internal/metrics"
	"github.com/dokzlo13/camlightd/internal/reconcile"
)

// HealthService provides HTTP health, status and metrics endpoints.
type HealthService struct {
	cfg        *config.Config
	reconciler *reconcile.Reconciler
	metrics    *metrics.Metrics
	ledger     *ledger.Ledger // nil when disabled

	ready  atomic.Bool
	server *http.Server
}

// NewHealthService creates a new HealthService.
func NewHealthService(cfg *config.Config, reconciler *reconcile.Reconciler, m *metrics.Metrics, led *ledger.Ledger) *HealthService {
	return &HealthService{
		cfg:        cfg,
		reconciler: reconciler,
		metrics:    m,
		ledger:     led,
	}
}

// MarkReady flips the readiness probe once startup seeding is done.
func (s *HealthService) MarkReady() {
	s.ready.Store(true)
}

// Start begins the health check server if enabled.
func (s *HealthService) Start(ctx context.Context) {
	if !s.cfg.Healthcheck.Enabled {
		return
	}

	go s.run(ctx)
}

func (s *HealthService) run(ctx context.Context) {
	addr := fmt.Sprintf("%s:%d", s.cfg.Healthcheck.Host, s.cfg.Healthcheck.Port)

	mux := http.NewServeMux()

	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"healthy"}`))
	})

	mux.HandleFunc("/ready", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if !s.ready.Load() {
			w.WriteHeader(http.StatusServiceUnavailable)
			w.Write([]byte(`{"status":"starting"}`))
			return
		}
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ready"}`))
	})

	// Current reconciler state and tracked cameras
	mux.HandleFunc("/status", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(s.reconciler.Status()); err != nil {
			log.Error().Err(err).Msg("Failed to encode status")
		}
	})

	if s.ledger != nil {
		mux.HandleFunc("/history", s.handleHistory)
	}

	mux.Handle("/metrics", promhttp.HandlerFor(s.metrics.Registry(), promhttp.HandlerOpts{}))

	s.server = &http.Server{
		Addr:    addr,
		Handler: mux,
	}

	log.Info().Str("addr", addr).Msg("Starting health check server")

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.GetShutdownTimeout())
		defer cancel()
		if err := s.server.Shutdown(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("Health check server shutdown error")
		}
	}()

	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Error().Err(err).Msg("Health check server error")
	}
}

// handleHistory serves the most recent reconciler transitions from the ledger.
func (s *HealthService) handleHistory(w http.ResponseWriter, r *http.Request) {
	limit := 20
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 && n <= 500 {
			limit = n
		}
	}

	entries, err := s.ledger.RecentTransitions(limit)
	if err != nil {
		log.Error().Err(err).Msg("Failed to read transition history")
		http.Error(w, "failed to read history", http.StatusInternalServerError)
		return
	}
	if entries == nil {
		entries = []*ledger.Transition{}
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(entries); err != nil {
		log.Error().Err(err).Msg("Failed to encode transition history")
	}
}
