// Package fleet dispatches power commands to every configured light at once.
package fleet

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/dokzlo13/camlightd/internal/elgato"
	"github.com/dokzlo13/camlightd/internal/metrics"
)

// Driver applies a power state to a single light. *elgato.Client satisfies it.
type Driver interface {
	Apply(ctx context.Context, light elgato.Light, on bool) elgato.Outcome
}

// CommandRecorder persists per-light command outcomes for auditing.
type CommandRecorder interface {
	RecordCommand(broadcastID, address string, on bool, outcome string) error
}

// Controller fans each broadcast out to the whole fleet, one goroutine per
// light. Broadcast returns as soon as dispatch is started: a slow or dead
// light never delays the others and never blocks the event path. Failures
// are logged by the driver and counted, not propagated.
type Controller struct {
	lights []elgato.Light
	driver Driver

	// Bounds each dispatch goroutine. The driver's own HTTP timeout
	// usually fires first.
	commandTimeout time.Duration

	recorder CommandRecorder // optional
	metrics  *metrics.Metrics

	wg sync.WaitGroup
}

// New creates a controller for a fixed set of lights. The recorder and
// metrics may be nil.
func New(lights []elgato.Light, driver Driver, commandTimeout time.Duration, recorder CommandRecorder, m *metrics.Metrics) *Controller {
	if commandTimeout <= 0 {
		commandTimeout = 10 * time.Second
	}

	return &Controller{
		lights:         lights,
		driver:         driver,
		commandTimeout: commandTimeout,
		recorder:       recorder,
		metrics:        m,
	}
}

// Broadcast sends the power state to every light concurrently and returns
// without waiting for any of them.
func (c *Controller) Broadcast(on bool) {
	id := uuid.NewString()

	log.Info().
		Str("broadcast_id", id).
		Bool("on", on).
		Int("lights", len(c.lights)).
		Msg("Broadcasting to light fleet")

	for _, light := range c.lights {
		c.wg.Add(1)
		go func(light elgato.Light) {
			defer c.wg.Done()
			c.dispatch(id, light, on)
		}(light)
	}
}

func (c *Controller) dispatch(broadcastID string, light elgato.Light, on bool) {
	ctx, cancel := context.WithTimeout(context.Background(), c.commandTimeout)
	defer cancel()

	outcome := c.driver.Apply(ctx, light, on)

	if c.metrics != nil {
		c.metrics.LightCommands.WithLabelValues(outcome.String()).Inc()
	}
	if c.recorder != nil {
		if err := c.recorder.RecordCommand(broadcastID, light.Address, on, outcome.String()); err != nil {
			log.Warn().Err(err).Str("address", light.Address).Msg("Failed to record light command")
		}
	}
}

// Close waits for in-flight dispatches to finish or the context to expire.
func (c *Controller) Close(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		c.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
