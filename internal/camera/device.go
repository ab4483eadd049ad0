// Package camera tracks the local camera devices whose activity drives the lights.
package camera

import (
	"context"

	"github.com/dokzlo13/camlightd/internal/eventbus"
)

// Device is one tracked camera.
type Device struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Active bool   `json:"active"`
}

// Source produces camera events. Devices returns the devices present right
// now, used once to seed the tracker at startup. Run pumps events into the
// bus until the context is cancelled.
type Source interface {
	Devices(ctx context.Context) ([]Device, error)
	Run(ctx context.Context, bus *eventbus.Bus) error
}
