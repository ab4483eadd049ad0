// Package cmio watches macOS camera activity by following the unified log.
// The CMIO subsystem logs a line whenever any process starts or stops a
// camera stream, which covers every app without per-app integration.
package cmio

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/dokzlo13/camlightd/internal/camera"
	"github.com/dokzlo13/camlightd/internal/eventbus"
)

// ErrMaxRestartsExceeded is returned when the log stream died more times
// than the configured limit allows.
var ErrMaxRestartsExceeded = errors.New("max restarts exceeded")

// Config controls how the log stream subprocess is restarted after it dies.
type Config struct {
	MinBackoff  time.Duration // Minimum backoff between restarts
	MaxBackoff  time.Duration // Maximum backoff between restarts
	Multiplier  float64       // Backoff multiplier
	MaxRestarts int           // Max restart attempts, 0 = infinite
}

// DefaultConfig returns sensible defaults for the restart loop.
func DefaultConfig() Config {
	return Config{
		MinBackoff:  1 * time.Second,
		MaxBackoff:  2 * time.Minute,
		Multiplier:  2.0,
		MaxRestarts: 0, // infinite
	}
}

// Source follows `log stream` output and publishes camera edges on the bus.
type Source struct {
	config Config
}

// New creates a source with default restart behavior.
func New() *Source {
	return NewWithConfig(DefaultConfig())
}

// NewWithConfig creates a source with custom restart behavior.
func NewWithConfig(config Config) *Source {
	return &Source{config: config}
}

// Devices returns no devices: the unified log only reports edges, so the
// tracker starts empty and fills in as streams start.
func (s *Source) Devices(ctx context.Context) ([]camera.Device, error) {
	return nil, nil
}

// Run follows the log stream with automatic restarts. It returns
// ErrMaxRestartsExceeded when the restart limit is exhausted and nil when
// the context is cancelled.
func (s *Source) Run(ctx context.Context, bus *eventbus.Bus) error {
	retryCount := 0
	currentBackoff := s.config.MinBackoff

	for {
		select {
		case <-ctx.Done():
			return nil
		default:
		}

		err := s.follow(ctx, bus)
		if ctx.Err() != nil {
			return nil
		}

		retryCount++

		if s.config.MaxRestarts > 0 && retryCount > s.config.MaxRestarts {
			log.Error().
				Int("max_restarts", s.config.MaxRestarts).
				Msg("Log stream: max restarts exceeded, terminating")
			return ErrMaxRestartsExceeded
		}

		log.Warn().
			Err(err).
			Dur("backoff", currentBackoff).
			Int("retry", retryCount).
			Int("max_restarts", s.config.MaxRestarts).
			Msg("Log stream died, restarting")

		select {
		case <-ctx.Done():
			return nil
		case <-time.After(currentBackoff):
		}

		nextBackoff := time.Duration(float64(currentBackoff) * s.config.Multiplier)
		if nextBackoff > s.config.MaxBackoff {
			nextBackoff = s.config.MaxBackoff
		}
		currentBackoff = nextBackoff
	}
}

// follow runs one log stream subprocess until it exits. The stream should
// never end on its own, so every return is an error.
func (s *Source) follow(ctx context.Context, bus *eventbus.Bus) error {
	cmd := exec.CommandContext(ctx, "log", "stream",
		"--predicate", `subsystem == "com.apple.cmio"`,
		"--style", "compact",
	)

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return err
	}

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("failed to start log stream: %w", err)
	}

	log.Info().Msg("Following camera activity in the unified log")

	// Device handles already published as connected. The log has no
	// explicit attach events, so the first edge for a handle doubles as
	// its connection.
	announced := make(map[string]bool)

	scanner := bufio.NewScanner(stdout)
	for scanner.Scan() {
		s.handleLine(scanner.Text(), announced, bus)
	}

	if err := scanner.Err(); err != nil {
		_ = cmd.Wait()
		return err
	}
	if err := cmd.Wait(); err != nil {
		return fmt.Errorf("log stream exited: %w", err)
	}
	return errors.New("log stream ended")
}

func (s *Source) handleLine(line string, announced map[string]bool, bus *eventbus.Bus) {
	edge, ok := Parse(line)
	if !ok {
		return
	}

	log.Debug().
		Str("device_id", edge.DeviceID).
		Bool("active", edge.Active).
		Msg("Camera stream edge")

	if !announced[edge.DeviceID] {
		announced[edge.DeviceID] = true
		bus.Publish(eventbus.Event{
			Type:     eventbus.EventTypeDeviceConnected,
			DeviceID: edge.DeviceID,
		})
	}

	bus.Publish(eventbus.Event{
		Type:     eventbus.EventTypeActivityChanged,
		DeviceID: edge.DeviceID,
		Active:   edge.Active,
	})
}
