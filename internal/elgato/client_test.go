package elgato

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"testing"
	"time"
)

// testClient builds a client pointed at the test server's port and returns
// the host to use as the light address.
func testClient(t *testing.T, ts *httptest.Server) (*Client, string) {
	t.Helper()

	u, err := url.Parse(ts.URL)
	if err != nil {
		t.Fatalf("parse test server URL: %v", err)
	}
	port, err := strconv.Atoi(u.Port())
	if err != nil {
		t.Fatalf("parse test server port: %v", err)
	}

	return NewClient(port, 2*time.Second), u.Hostname()
}

func TestApplyPayloads(t *testing.T) {
	tests := []struct {
		name     string
		light    Light
		on       bool
		wantBody string
	}{
		{
			name:     "on_with_settings",
			light:    Light{Brightness: 60, Temperature: 5000},
			on:       true,
			wantBody: `{"lights":[{"on":1,"brightness":60,"temperature":200}]}`,
		},
		{
			name:     "on_with_zero_brightness",
			light:    Light{Brightness: 0, Temperature: 7000},
			on:       true,
			wantBody: `{"lights":[{"on":1,"brightness":0,"temperature":143}]}`,
		},
		{
			name:     "off_carries_only_power",
			light:    Light{Brightness: 60, Temperature: 5000},
			on:       false,
			wantBody: `{"lights":[{"on":0}]}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var gotMethod, gotPath, gotContentType, gotBody string
			ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				body, _ := io.ReadAll(r.Body)
				gotMethod = r.Method
				gotPath = r.URL.Path
				gotContentType = r.Header.Get("Content-Type")
				gotBody = string(body)
				w.WriteHeader(http.StatusOK)
			}))
			defer ts.Close()

			client, address := testClient(t, ts)
			light := tt.light
			light.Address = address

			outcome := client.Apply(context.Background(), light, tt.on)
			if outcome != OutcomeOK {
				t.Fatalf("Apply() = %v, want %v", outcome, OutcomeOK)
			}
			if gotMethod != http.MethodPut {
				t.Errorf("method = %s, want PUT", gotMethod)
			}
			if gotPath != "/elgato/lights" {
				t.Errorf("path = %s, want /elgato/lights", gotPath)
			}
			if gotContentType != "application/json" {
				t.Errorf("Content-Type = %q, want application/json", gotContentType)
			}
			if gotBody != tt.wantBody {
				t.Errorf("body = %s, want %s", gotBody, tt.wantBody)
			}
		})
	}
}

func TestApplyDeviceError(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusInternalServerError)
	}))
	defer ts.Close()

	client, address := testClient(t, ts)

	outcome := client.Apply(context.Background(), Light{Address: address, Brightness: 50, Temperature: 5000}, true)
	if outcome != OutcomeDeviceError {
		t.Errorf("Apply() = %v, want %v", outcome, OutcomeDeviceError)
	}
}

func TestApplyUnreachable(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	client, address := testClient(t, ts)
	ts.Close() // nothing listens on the port anymore

	outcome := client.Apply(context.Background(), Light{Address: address, Brightness: 50, Temperature: 5000}, true)
	if outcome != OutcomeUnreachable {
		t.Errorf("Apply() = %v, want %v", outcome, OutcomeUnreachable)
	}
}

func TestGetStatus(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			t.Errorf("method = %s, want GET", r.Method)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"numberOfLights":1,"lights":[{"on":1,"brightness":42,"temperature":250}]}`))
	}))
	defer ts.Close()

	client, address := testClient(t, ts)

	status, err := client.GetStatus(context.Background(), address)
	if err != nil {
		t.Fatalf("GetStatus() error = %v", err)
	}
	if status.NumberOfLights != 1 {
		t.Errorf("NumberOfLights = %d, want 1", status.NumberOfLights)
	}
	if len(status.Lights) != 1 {
		t.Fatalf("len(Lights) = %d, want 1", len(status.Lights))
	}
	got := status.Lights[0]
	if got.On != 1 || got.Brightness != 42 || got.Temperature != 250 {
		t.Errorf("Lights[0] = %+v, want on=1 brightness=42 temperature=250", got)
	}
}

func TestGetStatusErrorCode(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer ts.Close()

	client, address := testClient(t, ts)

	if _, err := client.GetStatus(context.Background(), address); err == nil {
		t.Error("GetStatus() error = nil, want error for non-200 response")
	}
}

func TestOutcomeString(t *testing.T) {
	tests := []struct {
		outcome  Outcome
		expected string
	}{
		{OutcomeOK, "ok"},
		{OutcomeUnreachable, "unreachable"},
		{OutcomeDeviceError, "device_error"},
		{Outcome(99), "unknown"},
	}

	for _, tt := range tests {
		t.Run(tt.expected, func(t *testing.T) {
			if got := tt.outcome.String(); got != tt.expected {
				t.Errorf("Outcome.String() = %v, want %v", got, tt.expected)
			}
		})
	}
}
