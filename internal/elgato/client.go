// Package elgato drives Elgato Key Light accessories over their local HTTP API.
package elgato

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"
)

// Light identifies one target light and its ON settings.
type Light struct {
	Address     string
	Brightness  int // 0-100
	Temperature int // Kelvin
}

// Outcome classifies the result of a single light command. Commands never
// fail the caller; an unreachable or unhappy light is reported here and in
// the logs, and the rest of the fleet is unaffected.
type Outcome int

const (
	OutcomeOK Outcome = iota
	OutcomeUnreachable
	OutcomeDeviceError
)

// String returns a human-readable name for the outcome.
func (o Outcome) String() string {
	switch o {
	case OutcomeOK:
		return "ok"
	case OutcomeUnreachable:
		return "unreachable"
	case OutcomeDeviceError:
		return "device_error"
	default:
		return "unknown"
	}
}

// lightSettings is the wire representation of one light in the accessory API.
// Brightness and temperature are pointers so the OFF payload carries only the
// power bit and the light keeps its last settings for manual use.
type lightSettings struct {
	On          int  `json:"on"`
	Brightness  *int `json:"brightness,omitempty"`
	Temperature *int `json:"temperature,omitempty"`
}

type lightsRequest struct {
	Lights []lightSettings `json:"lights"`
}

// Status mirrors the accessory's GET response.
type Status struct {
	NumberOfLights int          `json:"numberOfLights"`
	Lights         []LightState `json:"lights"`
}

// LightState is the reported state of one light.
type LightState struct {
	On          int `json:"on"`
	Brightness  int `json:"brightness"`
	Temperature int `json:"temperature"` // mireds
}

// Client talks to Elgato lights. All lights share one port and one HTTP
// client whose timeout bounds every request, so a powered-off light cannot
// stall a broadcast.
type Client struct {
	port       int
	httpClient *http.Client
}

// NewClient creates a new light client.
func NewClient(port int, timeout time.Duration) *Client {
	if port == 0 {
		port = 9123
	}
	if timeout == 0 {
		timeout = 3 * time.Second
	}

	return &Client{
		port: port,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

func (c *Client) url(address string) string {
	return fmt.Sprintf("http://%s:%d/elgato/lights", address, c.port)
}

// Apply sets one light to the target power state.
func (c *Client) Apply(ctx context.Context, light Light, on bool) Outcome {
	settings := lightSettings{}
	if on {
		settings.On = 1
		brightness := light.Brightness
		mireds := KelvinToMireds(light.Temperature)
		settings.Brightness = &brightness
		settings.Temperature = &mireds
	}

	body, err := json.Marshal(lightsRequest{Lights: []lightSettings{settings}})
	if err != nil {
		log.Error().Err(err).Str("address", light.Address).Msg("Failed to encode light payload")
		return OutcomeDeviceError
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPut, c.url(light.Address), bytes.NewReader(body))
	if err != nil {
		log.Error().Err(err).Str("address", light.Address).Msg("Failed to build light request")
		return OutcomeDeviceError
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		// Unplugged or sleeping lights are routine, not errors
		log.Debug().Err(err).Str("address", light.Address).Bool("on", on).Msg("Light unreachable")
		return OutcomeUnreachable
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		log.Warn().
			Int("status", resp.StatusCode).
			Str("address", light.Address).
			Bool("on", on).
			Msg("Light rejected command")
		return OutcomeDeviceError
	}

	if on {
		log.Info().
			Str("address", light.Address).
			Int("brightness", *settings.Brightness).
			Int("temperature", *settings.Temperature).
			Msg("Light turned on")
	} else {
		log.Info().Str("address", light.Address).Msg("Light turned off")
	}

	return OutcomeOK
}

// GetStatus fetches the current settings reported by a light.
func (c *Client) GetStatus(ctx context.Context, address string) (*Status, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url(address), nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	var status Status
	if err := json.NewDecoder(resp.Body).Decode(&status); err != nil {
		return nil, err
	}

	return &status, nil
}
