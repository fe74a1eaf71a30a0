package vibration

import (
	"fmt"

	"github.com/banshee-data/vibration.monitor/internal/units"
)

// Config is the pipeline's shared mutable configuration. It is owned by the
// Pipeline, mutated through the setter methods, and read once at the start of
// each tick: a change that lands mid-tick takes effect on the following tick,
// never retroactively.
type Config struct {
	Threshold       float64           `json:"threshold"`
	Sensitivity     units.Sensitivity `json:"sensitivity"`
	FilterEnabled   bool              `json:"filter_enabled"`
	SmoothingWindow int               `json:"smoothing_window"`
}

// DefaultConfig returns the reference defaults.
func DefaultConfig() Config {
	return Config{
		Threshold:       2.0,
		Sensitivity:     units.Medium,
		FilterEnabled:   true,
		SmoothingWindow: 5,
	}
}

// Validate checks the configuration invariants. Invalid configurations are
// rejected at the boundary, never coerced.
func (c Config) Validate() error {
	if c.Threshold <= 0 {
		return fmt.Errorf("threshold must be positive, got %g", c.Threshold)
	}
	if !c.Sensitivity.IsValid() {
		return fmt.Errorf("invalid sensitivity %q: must be one of Low, Medium, High", c.Sensitivity)
	}
	if c.SmoothingWindow < 1 {
		return fmt.Errorf("smoothing window must be >= 1, got %d", c.SmoothingWindow)
	}
	return nil
}

// Source extracts the generation-side view of the configuration.
func (c Config) Source() SourceConfig {
	return SourceConfig{Sensitivity: c.Sensitivity}
}

// Detector extracts the comparison-side view of the configuration.
func (c Config) Detector() DetectorConfig {
	return DetectorConfig{Threshold: c.Threshold}
}
