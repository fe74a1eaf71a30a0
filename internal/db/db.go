// Package db persists vibration records and alert history in sqlite. It is
// the pipeline's sink: the monitoring loop appends, the API layer queries.
package db

import (
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/banshee-data/vibration.monitor/internal/units"
	"github.com/banshee-data/vibration.monitor/internal/vibration"
)

// DefaultMaxRows caps the number of stored vibration records. Oldest rows
// are trimmed once the cap is exceeded.
const DefaultMaxRows = 50000

type DB struct {
	*sql.DB

	// MaxRows is the retention cap for vibration_data. Zero disables trimming.
	MaxRows int
}

// NewDB opens (creating if necessary) the sqlite database at path and brings
// the schema up to date.
func NewDB(path string) (*DB, error) {
	sqlDB, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database %q: %w", path, err)
	}

	db := &DB{DB: sqlDB, MaxRows: DefaultMaxRows}
	if err := db.MigrateUp(); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("failed to migrate database %q: %w", path, err)
	}
	return db, nil
}

// AppendRecord stores one per-tick log record and trims old rows past the
// retention cap.
func (db *DB) AppendRecord(rec vibration.LogRecord) error {
	_, err := db.Exec(`
		INSERT INTO vibration_data (
			timestamp_ms, session_id, raw_magnitude, processed_magnitude,
			x_axis, y_axis, z_axis, alert, threshold_used,
			sensitivity_level, filter_enabled
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.Timestamp.UnixMilli(),
		rec.SessionID,
		rec.RawMagnitude,
		rec.ProcessedMagnitude,
		rec.X,
		rec.Y,
		rec.Z,
		boolToInt(rec.Alert),
		rec.Threshold,
		string(rec.Sensitivity),
		boolToInt(rec.FilterEnabled),
	)
	if err != nil {
		return fmt.Errorf("failed to insert vibration record: %w", err)
	}
	return db.trim()
}

// AppendAlert stores one alert event.
func (db *DB) AppendAlert(ev vibration.AlertEvent) error {
	_, err := db.Exec(`
		INSERT INTO alert_history (timestamp_ms, session_id, message, magnitude, threshold, severity)
		VALUES (?, ?, ?, ?, ?, ?)`,
		ev.Timestamp.UnixMilli(),
		ev.SessionID,
		ev.Message,
		ev.Magnitude,
		ev.Threshold,
		ev.Severity,
	)
	if err != nil {
		return fmt.Errorf("failed to insert alert: %w", err)
	}
	return nil
}

// trim deletes the oldest vibration records beyond MaxRows.
func (db *DB) trim() error {
	if db.MaxRows <= 0 {
		return nil
	}
	_, err := db.Exec(`
		DELETE FROM vibration_data
		WHERE id NOT IN (
			SELECT id FROM vibration_data
			ORDER BY timestamp_ms DESC, id DESC
			LIMIT ?
		)`, db.MaxRows)
	if err != nil {
		return fmt.Errorf("failed to trim vibration records: %w", err)
	}
	return nil
}

const recordColumns = `timestamp_ms, session_id, raw_magnitude, processed_magnitude,
	x_axis, y_axis, z_axis, alert, threshold_used, sensitivity_level, filter_enabled`

// Latest returns the most recent record, or nil when the store is empty.
func (db *DB) Latest() (*vibration.LogRecord, error) {
	row := db.QueryRow(`SELECT ` + recordColumns + `
		FROM vibration_data ORDER BY timestamp_ms DESC, id DESC LIMIT 1`)
	rec, err := scanRecord(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query latest record: %w", err)
	}
	return &rec, nil
}

// Recent returns up to n of the most recent records in chronological order
// (oldest first).
func (db *DB) Recent(n int) ([]vibration.LogRecord, error) {
	rows, err := db.Query(`SELECT `+recordColumns+`
		FROM vibration_data ORDER BY timestamp_ms DESC, id DESC LIMIT ?`, n)
	if err != nil {
		return nil, fmt.Errorf("failed to query recent records: %w", err)
	}
	recs, err := collectRecords(rows)
	if err != nil {
		return nil, err
	}
	// Newest-first from the query; flip to chronological.
	for i, j := 0, len(recs)-1; i < j; i, j = i+1, j-1 {
		recs[i], recs[j] = recs[j], recs[i]
	}
	return recs, nil
}

// Since returns all records at or after t in chronological order.
func (db *DB) Since(t time.Time) ([]vibration.LogRecord, error) {
	rows, err := db.Query(`SELECT `+recordColumns+`
		FROM vibration_data WHERE timestamp_ms >= ?
		ORDER BY timestamp_ms ASC, id ASC`, t.UnixMilli())
	if err != nil {
		return nil, fmt.Errorf("failed to query records since %v: %w", t, err)
	}
	return collectRecords(rows)
}

// Range returns all records within [start, end] in chronological order.
func (db *DB) Range(start, end time.Time) ([]vibration.LogRecord, error) {
	rows, err := db.Query(`SELECT `+recordColumns+`
		FROM vibration_data WHERE timestamp_ms BETWEEN ? AND ?
		ORDER BY timestamp_ms ASC, id ASC`, start.UnixMilli(), end.UnixMilli())
	if err != nil {
		return nil, fmt.Errorf("failed to query record range: %w", err)
	}
	return collectRecords(rows)
}

// Alerts returns up to limit alert events, newest first.
func (db *DB) Alerts(limit int) ([]vibration.AlertEvent, error) {
	rows, err := db.Query(`
		SELECT id, timestamp_ms, session_id, message, magnitude, threshold, severity, acknowledged
		FROM alert_history ORDER BY timestamp_ms DESC, id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query alerts: %w", err)
	}
	defer rows.Close()

	var alerts []vibration.AlertEvent
	for rows.Next() {
		var ev vibration.AlertEvent
		var ms int64
		var acked int
		if err := rows.Scan(&ev.ID, &ms, &ev.SessionID, &ev.Message, &ev.Magnitude, &ev.Threshold, &ev.Severity, &acked); err != nil {
			return nil, fmt.Errorf("failed to scan alert: %w", err)
		}
		ev.Timestamp = time.UnixMilli(ms).UTC()
		ev.Acknowledged = acked != 0
		alerts = append(alerts, ev)
	}
	return alerts, rows.Err()
}

// AcknowledgeAlert marks the alert with the given id as acknowledged.
// Returns sql.ErrNoRows when no such alert exists.
func (db *DB) AcknowledgeAlert(id int64) error {
	res, err := db.Exec(`UPDATE alert_history SET acknowledged = 1 WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to acknowledge alert %d: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to acknowledge alert %d: %w", id, err)
	}
	if n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// Count returns the number of stored vibration records.
func (db *DB) Count() (int, error) {
	var n int
	if err := db.QueryRow(`SELECT COUNT(*) FROM vibration_data`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count records: %w", err)
	}
	return n, nil
}

// Clear deletes all vibration records and alert history.
func (db *DB) Clear() error {
	if _, err := db.Exec(`DELETE FROM vibration_data`); err != nil {
		return fmt.Errorf("failed to clear vibration records: %w", err)
	}
	if _, err := db.Exec(`DELETE FROM alert_history`); err != nil {
		return fmt.Errorf("failed to clear alert history: %w", err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanRecord(row rowScanner) (vibration.LogRecord, error) {
	var rec vibration.LogRecord
	var ms int64
	var alert, filterEnabled int
	var sensitivity string
	err := row.Scan(
		&ms,
		&rec.SessionID,
		&rec.RawMagnitude,
		&rec.ProcessedMagnitude,
		&rec.X,
		&rec.Y,
		&rec.Z,
		&alert,
		&rec.Threshold,
		&sensitivity,
		&filterEnabled,
	)
	if err != nil {
		return rec, err
	}
	rec.Timestamp = time.UnixMilli(ms).UTC()
	rec.Alert = alert != 0
	rec.FilterEnabled = filterEnabled != 0
	rec.Sensitivity = units.Sensitivity(sensitivity)
	return rec, nil
}

func collectRecords(rows *sql.Rows) ([]vibration.LogRecord, error) {
	defer rows.Close()
	var recs []vibration.LogRecord
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan record: %w", err)
		}
		recs = append(recs, rec)
	}
	return recs, rows.Err()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
