package db

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/vibration.monitor/internal/vibration"
)

func TestExportCSV(t *testing.T) {
	recs := []vibration.LogRecord{TestRecord(0), TestRecord(20)}

	var buf bytes.Buffer
	require.NoError(t, ExportCSV(&buf, recs))

	rows, err := csv.NewReader(strings.NewReader(buf.String())).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 3, "header plus one row per record")

	assert.Equal(t, "timestamp", rows[0][0])
	assert.Equal(t, "filter_enabled", rows[0][10])

	assert.Equal(t, "2026-01-01T00:00:00Z", rows[1][0])
	assert.Equal(t, "test-session", rows[1][1])
	assert.Equal(t, "0.5", rows[1][3])
	assert.Equal(t, "false", rows[1][7])

	// Record 20 has magnitude 2.5, above the 2.0 threshold.
	assert.Equal(t, "2.5", rows[2][3])
	assert.Equal(t, "true", rows[2][7])
}

func TestExportCSVEmpty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, ExportCSV(&buf, nil))

	rows, err := csv.NewReader(strings.NewReader(buf.String())).ReadAll()
	require.NoError(t, err)
	assert.Len(t, rows, 1, "header only")
}

func TestExportJSON(t *testing.T) {
	recs := []vibration.LogRecord{TestRecord(0), TestRecord(1)}

	var buf bytes.Buffer
	require.NoError(t, ExportJSON(&buf, recs))

	var decoded []vibration.LogRecord
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	require.Len(t, decoded, 2)
	assert.Equal(t, recs[0].SessionID, decoded[0].SessionID)
	assert.InDelta(t, recs[1].ProcessedMagnitude, decoded[1].ProcessedMagnitude, 1e-12)
}
