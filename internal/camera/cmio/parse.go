package cmio

import (
	"regexp"
	"strings"
)

// Markers emitted by the CMIO subsystem when a device stream starts or stops.
const (
	startMarker = "CMIODeviceStartStream"
	stopMarker  = "CMIODeviceStopStream"
)

// DefaultDeviceID is used when a log line carries no device handle. Machines
// with a single camera never include one in some OS releases.
const DefaultDeviceID = "cmio-default"

var handlePattern = regexp.MustCompile(`0x[0-9a-fA-F]+`)

// Edge is one camera stream transition extracted from a log line.
type Edge struct {
	DeviceID string
	Active   bool
}

// Parse extracts a stream start or stop edge from one unified log line.
// Lines without a marker are not camera edges and return false.
func Parse(line string) (Edge, bool) {
	markers := []struct {
		token  string
		active bool
	}{
		{startMarker, true},
		{stopMarker, false},
	}

	for _, marker := range markers {
		idx := strings.Index(line, marker.token)
		if idx < 0 {
			continue
		}

		// The handle follows the marker, e.g. CMIODeviceStartStream(0x41d).
		// Searching from the marker skips unrelated hex earlier in the line.
		id := handlePattern.FindString(line[idx:])
		if id == "" {
			id = DefaultDeviceID
		}
		return Edge{DeviceID: id, Active: marker.active}, true
	}

	return Edge{}, false
}
