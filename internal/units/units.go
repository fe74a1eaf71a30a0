// Package units provides shared constants and validation for detector
// sensitivity levels.
package units

import "fmt"

// Sensitivity is a coarse gain setting applied to the generated signal.
type Sensitivity string

// Sensitivity levels
const (
	Low    Sensitivity = "Low"
	Medium Sensitivity = "Medium"
	High   Sensitivity = "High"
)

// ValidSensitivities contains all valid sensitivity values
var ValidSensitivities = []Sensitivity{Low, Medium, High}

// IsValid checks if the given sensitivity is one of the enumerated levels
func (s Sensitivity) IsValid() bool {
	switch s {
	case Low, Medium, High:
		return true
	}
	return false
}

// Multiplier returns the amplitude scale factor for the sensitivity level.
// Unknown levels scale by 1.0; callers are expected to validate first.
func (s Sensitivity) Multiplier() float64 {
	switch s {
	case Low:
		return 0.7
	case High:
		return 1.3
	default:
		return 1.0
	}
}

// ParseSensitivity validates a raw string and returns the typed level.
func ParseSensitivity(raw string) (Sensitivity, error) {
	s := Sensitivity(raw)
	if !s.IsValid() {
		return "", fmt.Errorf("invalid sensitivity %q: must be one of Low, Medium, High", raw)
	}
	return s, nil
}
