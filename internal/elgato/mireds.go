package elgato

import "math"

// The accessory API takes color temperature in mireds. The accepted range
// maps to roughly 7000K (coolest) through 2900K (warmest).
const (
	MinMireds = 143
	MaxMireds = 344
)

// KelvinToMireds converts a color temperature in Kelvin to the mired value
// sent on the wire. Non-positive input maps to the coolest supported value.
func KelvinToMireds(kelvin int) int {
	if kelvin <= 0 {
		return MinMireds
	}

	mireds := int(math.Round(1_000_000 / float64(kelvin)))
	if mireds < MinMireds {
		return MinMireds
	}
	if mireds > MaxMireds {
		return MaxMireds
	}
	return mireds
}

// MiredsToKelvin converts a wire mired value back to Kelvin for display.
func MiredsToKelvin(mireds int) int {
	if mireds <= 0 {
		return 0
	}
	return int(math.Round(1_000_000 / float64(mireds)))
}
