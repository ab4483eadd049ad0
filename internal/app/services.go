package app

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/dokzlo13/camlightd/internal/camera"
	"github.com/dokzlo13/camlightd/internal/camera/cmio"
	"github.com/dokzlo13/camlightd/internal/camera/webhook"
	"github.com/dokzlo13/camlightd/internal/config"
	"github.com/dokzlo13/camlightd/internal/elgato"
	"github.com/dokzlo13/camlightd/internal/eventbus"
	"github.com/dokzlo13/camlightd/internal/fleet"
	"github.com/dokzlo13/camlightd/internal/ledger"
	"github.com/dokzlo13/camlightd/internal/metrics"
	"github.com/dokzlo13/camlightd/internal/reconcile"
)

// Services is a container for all application services.
// It manages service initialization order and dependencies.
type Services struct {
	cfg *config.Config

	// Core infrastructure
	Metrics *metrics.Metrics
	Bus     *eventbus.Bus
	Ledger  *ledger.Ledger // nil when no path is configured

	// Domain
	Tracker    *camera.Tracker
	Elgato     *elgato.Client
	Fleet      *fleet.Controller
	Reconciler *reconcile.Reconciler
	Sources    []camera.Source

	Health *HealthService
}

// NewServices creates all services with proper dependency injection.
func NewServices(cfg *config.Config) (*Services, error) {
	s := &Services{cfg: cfg}

	s.Metrics = metrics.New()
	s.Bus = eventbus.NewWithConfig(cfg.EventBus.GetQueueSize())
	s.Tracker = camera.NewTracker()

	// The ledger is optional; without it transitions are only logged
	var transitionRecorder reconcile.Recorder
	var commandRecorder fleet.CommandRecorder
	if cfg.Ledger.Path != "" {
		led, err := ledger.Open(cfg.Ledger.Path)
		if err != nil {
			return nil, fmt.Errorf("ledger: %w", err)
		}
		s.Ledger = led
		transitionRecorder = led
		commandRecorder = led
	}

	s.Elgato = elgato.NewClient(cfg.Elgato.Port, cfg.Elgato.Timeout.Duration())

	lights := make([]elgato.Light, 0, len(cfg.Lights))
	for _, lc := range cfg.Lights {
		lights = append(lights, elgato.Light{
			Address:     lc.Address,
			Brightness:  lc.GetBrightness(),
			Temperature: lc.GetTemperature(),
		})
	}
	s.Fleet = fleet.New(lights, s.Elgato, 2*cfg.Elgato.Timeout.Duration(), commandRecorder, s.Metrics)

	s.Reconciler = reconcile.New(s.Tracker, s.Fleet, cfg.Reconciler.OffDelay.Duration(), transitionRecorder, s.Metrics)

	switch cfg.Camera.Source {
	case "webhook":
		s.Sources = append(s.Sources, webhook.NewSource(cfg.Webhook.Host, cfg.Webhook.Port, cfg.GetShutdownTimeout()))
	default:
		s.Sources = append(s.Sources, cmio.NewWithConfig(cmio.Config{
			MinBackoff:  cfg.Camera.MinRetryBackoff.Duration(),
			MaxBackoff:  cfg.Camera.MaxRetryBackoff.Duration(),
			Multiplier:  cfg.Camera.RetryMultiplier,
			MaxRestarts: cfg.Camera.MaxRestarts,
		}))
		// The webhook listener can run alongside the log follower, so a
		// remote machine's camera can drive the same fleet
		if cfg.Webhook.Enabled {
			s.Sources = append(s.Sources, webhook.NewSource(cfg.Webhook.Host, cfg.Webhook.Port, cfg.GetShutdownTimeout()))
		}
	}

	s.Health = NewHealthService(cfg, s.Reconciler, s.Metrics, s.Ledger)

	return s, nil
}

// Start starts all services in the correct order.
// The onFatalError callback is called when the camera source dies for good.
func (s *Services) Start(ctx context.Context, onFatalError func(error)) error {
	s.Reconciler.Subscribe(s.Bus)

	// Seed the tracker with the devices present right now, so a camera that
	// is already streaming turns the lights on without waiting for an edge
	var devices []camera.Device
	for _, source := range s.Sources {
		found, err := source.Devices(ctx)
		if err != nil {
			return fmt.Errorf("failed to enumerate cameras: %w", err)
		}
		devices = append(devices, found...)
	}
	s.Reconciler.Seed(devices)

	// The sources are the daemon's reason to exist: if one dies past its
	// restart limit, take the whole process down
	for _, source := range s.Sources {
		go func(source camera.Source) {
			if err := source.Run(ctx, s.Bus); err != nil {
				log.Error().Err(err).Msg("Camera source terminated")
				if onFatalError != nil {
					onFatalError(err)
				}
			}
		}(source)
	}

	if s.Ledger != nil && s.cfg.Ledger.Retention.Duration() > 0 {
		go s.runLedgerRetention(ctx)
	}

	s.Health.Start(ctx)
	s.Health.MarkReady()

	return nil
}

// runLedgerRetention prunes ledger rows older than the configured retention
// window, once at startup and then hourly.
func (s *Services) runLedgerRetention(ctx context.Context) {
	retention := s.cfg.Ledger.Retention.Duration()

	sweep := func() {
		n, err := s.Ledger.DeleteOlderThan(retention)
		if err != nil {
			log.Warn().Err(err).Msg("Ledger retention sweep failed")
			return
		}
		if n > 0 {
			log.Debug().Int64("rows", n).Dur("retention", retention).Msg("Pruned ledger history")
		}
	}

	sweep()

	ticker := time.NewTicker(time.Hour)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			sweep()
		}
	}
}

// Stop gracefully stops all services.
func (s *Services) Stop() error {
	s.Close()
	return nil
}

// Close releases all resources. Events still queued on the bus are drained
// before the reconciler and fleet shut down.
func (s *Services) Close() {
	timeout := s.cfg.GetShutdownTimeout()

	if s.Bus != nil {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		s.Bus.Close(ctx)
		cancel()
	}
	if s.Reconciler != nil {
		s.Reconciler.Close()
	}
	if s.Fleet != nil {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		if err := s.Fleet.Close(ctx); err != nil {
			log.Warn().Err(err).Msg("Light dispatches still in flight at shutdown")
		}
		cancel()
	}
	if s.Ledger != nil {
		if err := s.Ledger.Close(); err != nil {
			log.Warn().Err(err).Msg("Ledger close error")
		}
	}
}
