package db

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/banshee-data/vibration.monitor/internal/vibration"
)

// ExportCSV writes the given records as CSV with a header row. Timestamps are
// RFC 3339 in UTC.
func ExportCSV(w io.Writer, recs []vibration.LogRecord) error {
	cw := csv.NewWriter(w)

	header := []string{
		"timestamp", "session_id", "raw_magnitude", "processed_magnitude",
		"x_axis", "y_axis", "z_axis", "alert",
		"threshold_used", "sensitivity_level", "filter_enabled",
	}
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("failed to write csv header: %w", err)
	}

	for _, rec := range recs {
		row := []string{
			rec.Timestamp.UTC().Format(time.RFC3339Nano),
			rec.SessionID,
			strconv.FormatFloat(rec.RawMagnitude, 'g', -1, 64),
			strconv.FormatFloat(rec.ProcessedMagnitude, 'g', -1, 64),
			strconv.FormatFloat(rec.X, 'g', -1, 64),
			strconv.FormatFloat(rec.Y, 'g', -1, 64),
			strconv.FormatFloat(rec.Z, 'g', -1, 64),
			strconv.FormatBool(rec.Alert),
			strconv.FormatFloat(rec.Threshold, 'g', -1, 64),
			string(rec.Sensitivity),
			strconv.FormatBool(rec.FilterEnabled),
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("failed to write csv row: %w", err)
		}
	}

	cw.Flush()
	return cw.Error()
}

// ExportJSON writes the given records as an indented JSON array.
func ExportJSON(w io.Writer, recs []vibration.LogRecord) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(recs); err != nil {
		return fmt.Errorf("failed to encode records: %w", err)
	}
	return nil
}
