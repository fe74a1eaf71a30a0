// Package config loads optional JSON tuning files for the monitor service.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/banshee-data/vibration.monitor/internal/units"
	"github.com/banshee-data/vibration.monitor/internal/vibration"
)

// MaxConfigFileSize bounds how large a tuning file may be.
const MaxConfigFileSize = 1 << 20 // 1 MiB

// TuningConfig represents startup tuning for the pipeline and store. All
// fields are optional pointers so partial configs are safe: omitted fields
// keep their defaults.
type TuningConfig struct {
	Threshold       *float64 `json:"threshold,omitempty"`
	Sensitivity     *string  `json:"sensitivity,omitempty"`
	FilterEnabled   *bool    `json:"filter_enabled,omitempty"`
	SmoothingWindow *int     `json:"smoothing_window,omitempty"`
	TickInterval    *string  `json:"tick_interval,omitempty"` // duration string like "500ms"
	MaxRows         *int     `json:"max_rows,omitempty"`
}

// LoadTuningConfig loads a TuningConfig from a JSON file. The file must have
// a .json extension and stay under MaxConfigFileSize.
func LoadTuningConfig(path string) (*TuningConfig, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("config file must have .json extension, got %q", ext)
	}

	info, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	if info.Size() > MaxConfigFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", info.Size(), MaxConfigFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg TuningConfig
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}
	return &cfg, nil
}

// Apply overlays the tuning values onto a pipeline config, validating the
// result. The input config is not modified on error.
func (t *TuningConfig) Apply(base vibration.Config) (vibration.Config, error) {
	out := base
	if t.Threshold != nil {
		out.Threshold = *t.Threshold
	}
	if t.Sensitivity != nil {
		level, err := units.ParseSensitivity(*t.Sensitivity)
		if err != nil {
			return base, err
		}
		out.Sensitivity = level
	}
	if t.FilterEnabled != nil {
		out.FilterEnabled = *t.FilterEnabled
	}
	if t.SmoothingWindow != nil {
		out.SmoothingWindow = *t.SmoothingWindow
	}
	if err := out.Validate(); err != nil {
		return base, err
	}
	return out, nil
}

// Interval parses the tick interval, falling back to the given default when
// unset.
func (t *TuningConfig) Interval(fallback time.Duration) (time.Duration, error) {
	if t.TickInterval == nil {
		return fallback, nil
	}
	d, err := time.ParseDuration(*t.TickInterval)
	if err != nil {
		return fallback, fmt.Errorf("invalid tick_interval %q: %w", *t.TickInterval, err)
	}
	if d <= 0 {
		return fallback, fmt.Errorf("tick_interval must be positive, got %s", d)
	}
	return d, nil
}
