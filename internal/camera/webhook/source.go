// Package webhook receives camera events over HTTP, for hosts where the
// unified log is unavailable or when another machine owns the camera.
package webhook

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/dokzlo13/camlightd/internal/camera"
	"github.com/dokzlo13/camlightd/internal/eventbus"
)

// eventPayload is the POST /camera/event body.
type eventPayload struct {
	Type   string `json:"type"`
	ID     string `json:"id"`
	Name   string `json:"name"`
	Active bool   `json:"active"`
}

// Source is an HTTP server that turns posted camera events into bus events.
type Source struct {
	addr            string
	shutdownTimeout time.Duration

	bus        *eventbus.Bus
	httpServer *http.Server
}

// NewSource creates a webhook source listening on host:port.
func NewSource(host string, port int, shutdownTimeout time.Duration) *Source {
	return &Source{
		addr:            fmt.Sprintf("%s:%d", host, port),
		shutdownTimeout: shutdownTimeout,
	}
}

// Devices returns no devices: remote senders announce their cameras with
// connected events once the server is up.
func (s *Source) Devices(ctx context.Context) ([]camera.Device, error) {
	return nil, nil
}

// Run serves camera events until the context is cancelled.
func (s *Source) Run(ctx context.Context, bus *eventbus.Bus) error {
	s.bus = bus

	mux := http.NewServeMux()
	mux.HandleFunc("/camera/event", s.handleEvent)

	s.httpServer = &http.Server{
		Addr:    s.addr,
		Handler: mux,
	}

	log.Info().Str("addr", s.addr).Msg("Starting camera webhook server")

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.shutdownTimeout)
		defer cancel()
		if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("Camera webhook server shutdown error")
		}
	}()

	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}

	return nil
}

func (s *Source) handleEvent(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		log.Error().Err(err).Msg("Failed to read camera event body")
		http.Error(w, "failed to read request body", http.StatusBadRequest)
		return
	}
	defer r.Body.Close()

	var payload eventPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		http.Error(w, "invalid JSON", http.StatusBadRequest)
		return
	}

	event, err := payload.toEvent()
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	log.Debug().
		Str("type", string(event.Type)).
		Str("device_id", event.DeviceID).
		Bool("active", event.Active).
		Msg("Received camera event")

	s.bus.Publish(event)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"ok"}`))
}

func (p *eventPayload) toEvent() (eventbus.Event, error) {
	if p.ID == "" {
		return eventbus.Event{}, fmt.Errorf("id is required")
	}

	switch p.Type {
	case "connected":
		return eventbus.Event{
			Type:       eventbus.EventTypeDeviceConnected,
			DeviceID:   p.ID,
			DeviceName: p.Name,
		}, nil
	case "disconnected":
		return eventbus.Event{
			Type:     eventbus.EventTypeDeviceDisconnected,
			DeviceID: p.ID,
		}, nil
	case "activity":
		return eventbus.Event{
			Type:     eventbus.EventTypeActivityChanged,
			DeviceID: p.ID,
			Active:   p.Active,
		}, nil
	default:
		return eventbus.Event{}, fmt.Errorf("unknown event type %q", p.Type)
	}
}
