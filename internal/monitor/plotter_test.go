package monitor

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/vibration.monitor/internal/vibration"
)

func plotRecords(n int) []vibration.LogRecord {
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	recs := make([]vibration.LogRecord, n)
	for i := range recs {
		recs[i] = vibration.LogRecord{
			Timestamp:          base.Add(time.Duration(i) * 500 * time.Millisecond),
			ProcessedMagnitude: 1.0 + 0.2*float64(i),
			Threshold:          2.0,
		}
	}
	return recs
}

func TestPlotMagnitude(t *testing.T) {
	path := filepath.Join(t.TempDir(), "magnitude.png")
	require.NoError(t, PlotMagnitude(plotRecords(20), 2.0, path))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Greater(t, info.Size(), int64(0))
}

func TestPlotMagnitudeSVG(t *testing.T) {
	path := filepath.Join(t.TempDir(), "magnitude.svg")
	require.NoError(t, PlotMagnitude(plotRecords(5), 2.0, path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "<svg")
}

func TestPlotMagnitudeEmpty(t *testing.T) {
	err := PlotMagnitude(nil, 2.0, filepath.Join(t.TempDir(), "empty.png"))
	assert.Error(t, err)
}
