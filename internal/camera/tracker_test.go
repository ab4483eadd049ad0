package camera

import "testing"

func TestAnyActive(t *testing.T) {
	tests := []struct {
		name     string
		setup    func(tr *Tracker)
		expected bool
	}{
		{
			name:     "no_devices",
			setup:    func(tr *Tracker) {},
			expected: false,
		},
		{
			name: "single_inactive",
			setup: func(tr *Tracker) {
				tr.Connect("cam-1", "FaceTime HD")
			},
			expected: false,
		},
		{
			name: "single_active",
			setup: func(tr *Tracker) {
				tr.Connect("cam-1", "FaceTime HD")
				tr.SetActivity("cam-1", true)
			},
			expected: true,
		},
		{
			name: "mixed_activity",
			setup: func(tr *Tracker) {
				tr.Connect("cam-1", "FaceTime HD")
				tr.Connect("cam-2", "Logitech Brio")
				tr.SetActivity("cam-2", true)
			},
			expected: true,
		},
		{
			name: "activated_then_deactivated",
			setup: func(tr *Tracker) {
				tr.Connect("cam-1", "FaceTime HD")
				tr.SetActivity("cam-1", true)
				tr.SetActivity("cam-1", false)
			},
			expected: false,
		},
		{
			name: "active_device_disconnected",
			setup: func(tr *Tracker) {
				tr.Connect("cam-1", "FaceTime HD")
				tr.SetActivity("cam-1", true)
				tr.Disconnect("cam-1")
			},
			expected: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tr := NewTracker()
			tt.setup(tr)
			if got := tr.AnyActive(); got != tt.expected {
				t.Errorf("AnyActive() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestConnectIdempotent(t *testing.T) {
	tr := NewTracker()

	if !tr.Connect("cam-1", "FaceTime HD") {
		t.Error("Connect() first call = false, want true")
	}
	tr.SetActivity("cam-1", true)

	if tr.Connect("cam-1", "FaceTime HD Camera") {
		t.Error("Connect() repeat call = true, want false")
	}
	if tr.Len() != 1 {
		t.Errorf("Len() = %d, want 1", tr.Len())
	}
	if !tr.AnyActive() {
		t.Error("AnyActive() = false, want true (reconnect must not reset activity)")
	}

	devices := tr.Snapshot()
	if devices[0].Name != "FaceTime HD Camera" {
		t.Errorf("Name = %q, want refreshed name", devices[0].Name)
	}
}

func TestConnectKeepsNameWhenEmpty(t *testing.T) {
	tr := NewTracker()
	tr.Connect("cam-1", "FaceTime HD")
	tr.Connect("cam-1", "")

	if got := tr.Snapshot()[0].Name; got != "FaceTime HD" {
		t.Errorf("Name = %q, want FaceTime HD", got)
	}
}

func TestDisconnectUnknownDevice(t *testing.T) {
	tr := NewTracker()
	tr.Connect("cam-1", "FaceTime HD")

	if _, ok := tr.Disconnect("cam-2"); ok {
		t.Error("Disconnect() unknown device = true, want false")
	}
	if tr.Len() != 1 {
		t.Errorf("Len() = %d, want 1", tr.Len())
	}
}

func TestDisconnectReturnsRemovedDevice(t *testing.T) {
	tr := NewTracker()
	tr.Connect("cam-1", "FaceTime HD")
	tr.SetActivity("cam-1", true)

	dev, ok := tr.Disconnect("cam-1")
	if !ok {
		t.Fatal("Disconnect() = false, want true")
	}
	if !dev.Active {
		t.Error("removed device Active = false, want true (was active when removed)")
	}
	if tr.Len() != 0 {
		t.Errorf("Len() = %d, want 0", tr.Len())
	}
}

func TestSetActivityUnknownIgnored(t *testing.T) {
	tr := NewTracker()
	tr.Connect("cam-1", "FaceTime HD")

	if tr.SetActivity("cam-9", true) {
		t.Error("SetActivity() unknown device = true, want false")
	}
	if tr.AnyActive() {
		t.Error("AnyActive() = true, want false (unknown activity must not count)")
	}
}

func TestSeedAndSnapshot(t *testing.T) {
	tr := NewTracker()
	tr.Connect("old", "stale entry")

	tr.Seed([]Device{
		{ID: "cam-2", Name: "Logitech Brio", Active: true},
		{ID: "cam-1", Name: "FaceTime HD"},
	})

	if tr.Len() != 2 {
		t.Fatalf("Len() = %d, want 2 (seed replaces prior state)", tr.Len())
	}
	if !tr.AnyActive() {
		t.Error("AnyActive() = false, want true from seeded flag")
	}

	devices := tr.Snapshot()
	if devices[0].ID != "cam-1" || devices[1].ID != "cam-2" {
		t.Errorf("Snapshot() order = [%s %s], want sorted by ID", devices[0].ID, devices[1].ID)
	}
}
