// Package reconcile turns camera activity into light fleet state. Any camera
// becoming active turns the lights on immediately; the last camera going
// inactive turns them off after a short debounce window.
package reconcile

import (
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/dokzlo13/camlightd/internal/camera"
	"github.com/dokzlo13/camlightd/internal/eventbus"
	"github.com/dokzlo13/camlightd/internal/metrics"
)

// Broadcaster fans a power state out to the light fleet without blocking.
type Broadcaster interface {
	Broadcast(on bool)
}

// Recorder persists reconciler transitions for auditing.
type Recorder interface {
	RecordTransition(from, to, reason string, anyActive bool) error
}

// Snapshot is the reconciler's externally visible state.
type Snapshot struct {
	State     string          `json:"state"`
	AnyActive bool            `json:"any_active"`
	Devices   []camera.Device `json:"devices"`
}

// Reconciler owns the tracker and drives the fleet from camera events.
// Every event and every timer fire is serialized through one mutex, so
// transitions happen in event order and the off timer races nothing. Only
// light dispatch itself runs in parallel, inside the Broadcaster.
type Reconciler struct {
	mu      sync.Mutex
	tracker *camera.Tracker
	fleet   Broadcaster

	offDelay time.Duration
	state    State

	// At most one off timer exists at a time. The generation counter makes
	// a cancelled or replaced timer's late fire a no-op.
	offTimer *time.Timer
	timerGen uint64

	recorder Recorder // optional
	metrics  *metrics.Metrics
}

// New creates a reconciler in the idle state. The recorder and metrics may
// be nil.
func New(tracker *camera.Tracker, fleet Broadcaster, offDelay time.Duration, recorder Recorder, m *metrics.Metrics) *Reconciler {
	if offDelay <= 0 {
		offDelay = 1 * time.Second
	}

	return &Reconciler{
		tracker:  tracker,
		fleet:    fleet,
		offDelay: offDelay,
		recorder: recorder,
		metrics:  m,
	}
}

// Subscribe registers the reconciler's handlers on the bus.
func (r *Reconciler) Subscribe(bus *eventbus.Bus) {
	bus.Subscribe(eventbus.EventTypeDeviceConnected, r.HandleEvent)
	bus.Subscribe(eventbus.EventTypeDeviceDisconnected, r.HandleEvent)
	bus.Subscribe(eventbus.EventTypeActivityChanged, r.HandleEvent)
}

// Seed installs the devices present at startup and turns the lights on
// immediately if any of them is already active. Startup never debounces and
// never broadcasts off: lights are left as found until the first on edge.
func (r *Reconciler) Seed(devices []camera.Device) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.tracker.Seed(devices)
	anyActive := r.tracker.AnyActive()

	log.Info().
		Int("devices", r.tracker.Len()).
		Bool("any_active", anyActive).
		Msg("Seeded camera state")

	next, action := Step(r.state, anyActive)
	r.applyStep(next, action, "startup_seed")
	r.updateGauges()
}

// HandleEvent applies one camera event. It is the single entry point for
// the bus handlers and safe for concurrent use.
func (r *Reconciler) HandleEvent(event eventbus.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()

	switch event.Type {
	case eventbus.EventTypeDeviceConnected:
		if r.tracker.Connect(event.DeviceID, event.DeviceName) {
			log.Info().
				Str("device_id", event.DeviceID).
				Str("name", event.DeviceName).
				Msg("Camera connected")
		} else {
			log.Debug().Str("device_id", event.DeviceID).Msg("Camera reconnected")
		}

	case eventbus.EventTypeDeviceDisconnected:
		if dev, ok := r.tracker.Disconnect(event.DeviceID); ok {
			log.Info().
				Str("device_id", event.DeviceID).
				Bool("was_active", dev.Active).
				Msg("Camera disconnected")
		} else {
			log.Debug().Str("device_id", event.DeviceID).Msg("Disconnect for untracked camera, ignoring")
		}

	case eventbus.EventTypeActivityChanged:
		if r.tracker.SetActivity(event.DeviceID, event.Active) {
			log.Debug().
				Str("device_id", event.DeviceID).
				Bool("active", event.Active).
				Msg("Camera activity changed")
		} else {
			log.Debug().Str("device_id", event.DeviceID).Msg("Activity for untracked camera, ignoring")
		}

	default:
		return
	}

	anyActive := r.tracker.AnyActive()
	next, action := Step(r.state, anyActive)
	r.applyStep(next, action, string(event.Type))
	r.updateGauges()
}

// Close cancels any pending off timer. Shutdown never broadcasts.
func (r *Reconciler) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.cancelOffTimerLocked()
}

// Status returns a point-in-time snapshot for the status endpoint.
func (r *Reconciler) Status() Snapshot {
	r.mu.Lock()
	defer r.mu.Unlock()

	return Snapshot{
		State:     r.state.String(),
		AnyActive: r.tracker.AnyActive(),
		Devices:   r.tracker.Snapshot(),
	}
}

// applyStep commits a transition and executes its action. Callers hold mu.
func (r *Reconciler) applyStep(next State, action Action, reason string) {
	prev := r.state
	if prev == StatePendingOff && next != StatePendingOff {
		r.cancelOffTimerLocked()
	}
	r.state = next

	if prev != next {
		log.Info().
			Str("from", prev.String()).
			Str("to", next.String()).
			Str("reason", reason).
			Msg("State transition")
		if r.metrics != nil {
			r.metrics.Transitions.WithLabelValues(next.String()).Inc()
		}
		if r.recorder != nil {
			if err := r.recorder.RecordTransition(prev.String(), next.String(), reason, r.tracker.AnyActive()); err != nil {
				log.Warn().Err(err).Msg("Failed to record transition")
			}
		}
	}

	switch action {
	case ActionBroadcastOn:
		r.broadcast(true)
	case ActionBroadcastOff:
		r.broadcast(false)
	case ActionScheduleOff:
		r.scheduleOffLocked()
	}
}

// broadcast hands the fleet the new power state. The Broadcaster returns
// immediately, so the lock is never held across light I/O.
func (r *Reconciler) broadcast(on bool) {
	if r.metrics != nil {
		state := "off"
		if on {
			state = "on"
		}
		r.metrics.Broadcasts.WithLabelValues(state).Inc()
	}

	r.fleet.Broadcast(on)
}

// scheduleOffLocked arms the debounced off timer, replacing any prior timer
// so at most one is ever outstanding.
func (r *Reconciler) scheduleOffLocked() {
	if r.offTimer != nil {
		r.offTimer.Stop()
	}
	r.timerGen++
	gen := r.timerGen
	r.offTimer = time.AfterFunc(r.offDelay, func() { r.fireOff(gen) })

	log.Debug().Dur("delay", r.offDelay).Msg("Scheduled debounced off")
}

// cancelOffTimerLocked stops the off timer if one is armed. Bumping the
// generation also invalidates a fire that already left AfterFunc, so
// cancel-after-fire and double-cancel are both harmless.
func (r *Reconciler) cancelOffTimerLocked() {
	if r.offTimer != nil {
		r.offTimer.Stop()
		r.offTimer = nil
		log.Debug().Msg("Cancelled pending off")
	}
	r.timerGen++
}

// fireOff runs when the off timer elapses. It re-checks activity under the
// lock before turning anything off.
func (r *Reconciler) fireOff(gen uint64) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if gen != r.timerGen {
		// Cancelled or replaced after this fire was already in flight
		return
	}
	r.offTimer = nil

	anyActive := r.tracker.AnyActive()
	next, action := StepTimer(r.state, anyActive)
	r.applyStep(next, action, "off_timer")
}

func (r *Reconciler) updateGauges() {
	if r.metrics == nil {
		return
	}

	r.metrics.TrackedCameras.Set(float64(r.tracker.Len()))
	if r.tracker.AnyActive() {
		r.metrics.CameraActive.Set(1)
	} else {
		r.metrics.CameraActive.Set(0)
	}
}
