package eventbus

import (
	"context"
	"fmt"
	"testing"
)

func TestPublishOrderPreserved(t *testing.T) {
	bus := NewWithConfig(8)

	var got []string
	bus.Subscribe(EventTypeActivityChanged, func(e Event) {
		got = append(got, e.DeviceID)
	})

	const n = 50
	for i := 0; i < n; i++ {
		bus.Publish(Event{Type: EventTypeActivityChanged, DeviceID: fmt.Sprintf("cam-%03d", i)})
	}

	// Close waits for the worker, which establishes the happens-before edge
	// that makes reading got safe.
	bus.Close(context.Background())

	if len(got) != n {
		t.Fatalf("delivered %d events, want %d", len(got), n)
	}
	for i, id := range got {
		want := fmt.Sprintf("cam-%03d", i)
		if id != want {
			t.Fatalf("event %d = %s, want %s (order not preserved)", i, id, want)
		}
	}
}

func TestInterleavedTypesKeepGlobalOrder(t *testing.T) {
	bus := NewWithConfig(8)

	var got []string
	bus.Subscribe(EventTypeDeviceConnected, func(e Event) {
		got = append(got, "connected:"+e.DeviceID)
	})
	bus.Subscribe(EventTypeActivityChanged, func(e Event) {
		got = append(got, "activity:"+e.DeviceID)
	})

	bus.Publish(Event{Type: EventTypeDeviceConnected, DeviceID: "a"})
	bus.Publish(Event{Type: EventTypeActivityChanged, DeviceID: "a", Active: true})
	bus.Publish(Event{Type: EventTypeDeviceConnected, DeviceID: "b"})
	bus.Publish(Event{Type: EventTypeActivityChanged, DeviceID: "a", Active: false})

	bus.Close(context.Background())

	want := []string{"connected:a", "activity:a", "connected:b", "activity:a"}
	if len(got) != len(want) {
		t.Fatalf("delivered %d events, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("event %d = %s, want %s", i, got[i], want[i])
		}
	}
}

func TestMultipleHandlersEachReceive(t *testing.T) {
	bus := New()

	var first, second int
	bus.Subscribe(EventTypeDeviceDisconnected, func(e Event) { first++ })
	bus.Subscribe(EventTypeDeviceDisconnected, func(e Event) { second++ })

	bus.Publish(Event{Type: EventTypeDeviceDisconnected, DeviceID: "cam-1"})
	bus.Close(context.Background())

	if first != 1 || second != 1 {
		t.Errorf("handlers received %d/%d events, want 1/1", first, second)
	}
}

func TestPublishAfterCloseDrops(t *testing.T) {
	bus := New()

	var delivered int
	bus.Subscribe(EventTypeActivityChanged, func(e Event) { delivered++ })

	bus.Close(context.Background())
	bus.Publish(Event{Type: EventTypeActivityChanged, DeviceID: "cam-1", Active: true})

	if delivered != 0 {
		t.Errorf("delivered = %d, want 0 after close", delivered)
	}
}

func TestPanickingHandlerDoesNotStopDelivery(t *testing.T) {
	bus := New()

	var delivered int
	bus.Subscribe(EventTypeActivityChanged, func(e Event) { panic("boom") })
	bus.Subscribe(EventTypeActivityChanged, func(e Event) { delivered++ })

	bus.Publish(Event{Type: EventTypeActivityChanged, DeviceID: "cam-1", Active: true})
	bus.Publish(Event{Type: EventTypeActivityChanged, DeviceID: "cam-1", Active: false})

	bus.Close(context.Background())

	if delivered != 2 {
		t.Errorf("delivered = %d, want 2 despite panicking sibling handler", delivered)
	}
}
