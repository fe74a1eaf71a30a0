package db

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/banshee-data/vibration.monitor/internal/units"
	"github.com/banshee-data/vibration.monitor/internal/vibration"
)

// NewTestDB opens a migrated sqlite database in a per-test temp directory and
// closes it when the test ends.
func NewTestDB(t *testing.T) *DB {
	t.Helper()
	path := filepath.Join(t.TempDir(), "vibration-test.db")
	d, err := NewDB(path)
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	t.Cleanup(func() { d.Close() })
	return d
}

// TestRecord builds a deterministic record i ticks after a fixed epoch.
func TestRecord(i int) vibration.LogRecord {
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	mag := 0.5 + 0.1*float64(i)
	return vibration.LogRecord{
		Timestamp:          base.Add(time.Duration(i) * 500 * time.Millisecond),
		SessionID:          "test-session",
		RawMagnitude:       mag + 0.05,
		ProcessedMagnitude: mag,
		X:                  mag,
		Y:                  0,
		Z:                  0,
		Alert:              mag > 2.0,
		Threshold:          2.0,
		Sensitivity:        units.Medium,
		FilterEnabled:      true,
	}
}
