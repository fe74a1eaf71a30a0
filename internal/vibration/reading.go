// Package vibration implements the streaming signal-processing and detection
// pipeline: synthetic tri-axial signal generation, low-pass noise filtering,
// moving-average smoothing, threshold evaluation, and the cadence-driven
// monitoring loop that ties the stages together.
package vibration

import (
	"math"
	"time"

	"github.com/banshee-data/vibration.monitor/internal/units"
)

// Reading is a single tri-axial sample. Magnitude is always the Euclidean
// norm of the three components at the moment the Reading was produced; any
// stage that changes X/Y/Z must recompute it via Norm3 rather than carry a
// stale or independently processed value.
type Reading struct {
	Timestamp time.Time `json:"timestamp"`
	X         float64   `json:"x"`
	Y         float64   `json:"y"`
	Z         float64   `json:"z"`
	Magnitude float64   `json:"magnitude"`
}

// Norm3 returns the Euclidean norm of a three-component vector.
func Norm3(x, y, z float64) float64 {
	return math.Sqrt(x*x + y*y + z*z)
}

// NewReading builds a Reading with the magnitude derived from the components.
func NewReading(ts time.Time, x, y, z float64) Reading {
	return Reading{Timestamp: ts, X: x, Y: y, Z: z, Magnitude: Norm3(x, y, z)}
}

// LogRecord is the per-tick output of the monitoring loop, handed off by
// value to the sink and presentation collaborators.
type LogRecord struct {
	Timestamp          time.Time         `json:"timestamp"`
	SessionID          string            `json:"session_id"`
	RawMagnitude       float64           `json:"raw_magnitude"`
	ProcessedMagnitude float64           `json:"processed_magnitude"`
	X                  float64           `json:"x_axis"`
	Y                  float64           `json:"y_axis"`
	Z                  float64           `json:"z_axis"`
	Alert              bool              `json:"alert"`
	Threshold          float64           `json:"threshold_used"`
	Sensitivity        units.Sensitivity `json:"sensitivity_level"`
	FilterEnabled      bool              `json:"filter_enabled"`
}

// AlertEvent records a single threshold exceedance. ID and Acknowledged are
// assigned by the store; the pipeline emits events with both zero.
type AlertEvent struct {
	ID           int64     `json:"id,omitempty"`
	Timestamp    time.Time `json:"timestamp"`
	SessionID    string    `json:"session_id"`
	Magnitude    float64   `json:"magnitude"`
	Threshold    float64   `json:"threshold"`
	Message      string    `json:"message"`
	Severity     string    `json:"severity"`
	Acknowledged bool      `json:"acknowledged"`
}

// Severity buckets for alert events, based on how far the processed
// magnitude overshoots the threshold.
const (
	SeverityLow    = "low"
	SeverityMedium = "medium"
	SeverityHigh   = "high"
)

// ClassifySeverity maps a magnitude/threshold pair onto a severity bucket.
func ClassifySeverity(magnitude, threshold float64) string {
	switch {
	case magnitude > 2*threshold:
		return SeverityHigh
	case magnitude > 1.5*threshold:
		return SeverityMedium
	default:
		return SeverityLow
	}
}
