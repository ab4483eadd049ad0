// Package metrics exposes the daemon's Prometheus instrumentation.
package metrics

import "github.com/prometheus/client_golang/prometheus"

// Metrics holds the daemon's collectors, registered on a private registry so
// the /metrics endpoint only serves what the daemon itself reports.
type Metrics struct {
	registry *prometheus.Registry

	Transitions    *prometheus.CounterVec
	Broadcasts     *prometheus.CounterVec
	LightCommands  *prometheus.CounterVec
	TrackedCameras prometheus.Gauge
	CameraActive   prometheus.Gauge
}

// New creates the metric set on a fresh registry.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		Transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "camlightd_transitions_total",
			Help: "Reconciler state transitions, labelled by target state.",
		}, []string{"to"}),
		Broadcasts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "camlightd_broadcasts_total",
			Help: "Fleet broadcasts, labelled by power state.",
		}, []string{"state"}),
		LightCommands: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "camlightd_light_commands_total",
			Help: "Individual light commands, labelled by outcome.",
		}, []string{"outcome"}),
		TrackedCameras: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "camlightd_tracked_cameras",
			Help: "Number of camera devices currently tracked.",
		}),
		CameraActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "camlightd_camera_active",
			Help: "Whether any tracked camera is active (0 or 1).",
		}),
	}

	m.registry.MustRegister(
		m.Transitions,
		m.Broadcasts,
		m.LightCommands,
		m.TrackedCameras,
		m.CameraActive,
	)

	return m
}

// Registry returns the registry backing the /metrics endpoint.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}
