package camera

import "sort"

// Tracker holds the devices currently present and their activity flags.
// It is not self-locking: the reconciler owns it and serializes all access.
type Tracker struct {
	devices map[string]*Device
}

// NewTracker creates an empty tracker.
func NewTracker() *Tracker {
	return &Tracker{devices: make(map[string]*Device)}
}

// Seed replaces the tracked set with the devices present at startup.
func (t *Tracker) Seed(devices []Device) {
	t.devices = make(map[string]*Device, len(devices))
	for _, d := range devices {
		dev := d
		t.devices[dev.ID] = &dev
	}
}

// Connect registers a device as present and inactive. Reconnecting a known
// device only refreshes its name, never its activity flag.
// Returns true if the device was not tracked before.
func (t *Tracker) Connect(id, name string) bool {
	if dev, ok := t.devices[id]; ok {
		if name != "" {
			dev.Name = name
		}
		return false
	}

	t.devices[id] = &Device{ID: id, Name: name}
	return true
}

// Disconnect removes a device. Removing an active device implicitly
// deactivates it, since only tracked devices count toward AnyActive.
// Returns the removed device and whether it was tracked.
func (t *Tracker) Disconnect(id string) (Device, bool) {
	dev, ok := t.devices[id]
	if !ok {
		return Device{}, false
	}

	delete(t.devices, id)
	return *dev, true
}

// SetActivity updates a device's activity flag. Events for untracked devices
// are ignored. Returns whether the device was tracked.
func (t *Tracker) SetActivity(id string, active bool) bool {
	dev, ok := t.devices[id]
	if !ok {
		return false
	}

	dev.Active = active
	return true
}

// AnyActive reports whether any tracked device is active.
func (t *Tracker) AnyActive() bool {
	for _, dev := range t.devices {
		if dev.Active {
			return true
		}
	}
	return false
}

// Len returns the number of tracked devices.
func (t *Tracker) Len() int {
	return len(t.devices)
}

// Snapshot returns a copy of the tracked devices, sorted by ID.
func (t *Tracker) Snapshot() []Device {
	devices := make([]Device, 0, len(t.devices))
	for _, dev := range t.devices {
		devices = append(devices, *dev)
	}

	sort.Slice(devices, func(i, j int) bool { return devices[i].ID < devices[j].ID })
	return devices
}
