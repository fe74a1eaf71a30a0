// Package api exposes the monitoring control surface and data queries over
// HTTP.
package api

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/banshee-data/vibration.monitor/internal/db"
	"github.com/banshee-data/vibration.monitor/internal/httputil"
	"github.com/banshee-data/vibration.monitor/internal/monitor"
	"github.com/banshee-data/vibration.monitor/internal/monitoring"
	"github.com/banshee-data/vibration.monitor/internal/units"
	"github.com/banshee-data/vibration.monitor/internal/vibration"
)

// ANSI escape codes for request logging
const (
	colorReset     = "\033[0m"
	colorYellow    = "\033[33m"
	colorBoldGreen = "\033[1;32m"
	colorBoldRed   = "\033[1;31m"
)

// Server holds the HTTP handlers for the monitoring service.
type Server struct {
	db   *db.DB
	pipe *vibration.Pipeline
}

// NewServer creates a Server backed by the given store and pipeline.
func NewServer(store *db.DB, pipe *vibration.Pipeline) *Server {
	return &Server{db: store, pipe: pipe}
}

// SetupRoutes registers all API routes on the given mux.
func (s *Server) SetupRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/api/monitor/start", s.handleStart)
	mux.HandleFunc("/api/monitor/stop", s.handleStop)
	mux.HandleFunc("/api/monitor/status", s.handleStatus)
	mux.HandleFunc("/api/monitor/config", s.handleConfig)
	mux.HandleFunc("/api/data/latest", s.handleLatest)
	mux.HandleFunc("/api/data/recent", s.handleRecent)
	mux.HandleFunc("/api/data/since", s.handleSince)
	mux.HandleFunc("/api/data/clear", s.handleClear)
	mux.HandleFunc("/api/alerts", s.handleAlerts)
	mux.HandleFunc("/api/alerts/ack", s.handleAckAlert)
	mux.HandleFunc("/api/stats", s.handleStats)
	mux.HandleFunc("/api/trend", s.handleTrend)
	mux.HandleFunc("/api/export", s.handleExport)
	mux.HandleFunc("/charts/magnitude", monitor.MagnitudeChartHandler(s.db))
}

func (s *Server) handleStart(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		httputil.MethodNotAllowed(w)
		return
	}
	if err := s.pipe.Start(); err != nil {
		if errors.Is(err, vibration.ErrAlreadyRunning) {
			httputil.Conflict(w, err.Error())
			return
		}
		httputil.InternalServerError(w, err.Error())
		return
	}
	httputil.WriteJSONOK(w, map[string]string{
		"state":      string(s.pipe.State()),
		"session_id": s.pipe.SessionID(),
	})
}

func (s *Server) handleStop(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		httputil.MethodNotAllowed(w)
		return
	}
	s.pipe.Stop()
	httputil.WriteJSONOK(w, map[string]string{"state": string(s.pipe.State())})
}

type statusResponse struct {
	State     vibration.State  `json:"state"`
	SessionID string           `json:"session_id,omitempty"`
	Ticks     uint64           `json:"ticks"`
	Config    vibration.Config `json:"config"`
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}
	httputil.WriteJSONOK(w, statusResponse{
		State:     s.pipe.State(),
		SessionID: s.pipe.SessionID(),
		Ticks:     s.pipe.Ticks(),
		Config:    s.pipe.Config(),
	})
}

// configUpdate is a partial configuration change. Omitted fields are left
// untouched; invalid values reject the whole request and leave the prior
// configuration intact.
type configUpdate struct {
	Threshold       *float64 `json:"threshold,omitempty"`
	Sensitivity     *string  `json:"sensitivity,omitempty"`
	FilterEnabled   *bool    `json:"filter_enabled,omitempty"`
	SmoothingWindow *int     `json:"smoothing_window,omitempty"`
}

func (s *Server) handleConfig(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		httputil.WriteJSONOK(w, s.pipe.Config())
	case http.MethodPost:
		var upd configUpdate
		if err := json.NewDecoder(r.Body).Decode(&upd); err != nil {
			httputil.BadRequest(w, fmt.Sprintf("invalid config payload: %v", err))
			return
		}

		// Validate everything before applying anything, so a bad field
		// cannot leave the config half-updated.
		var level units.Sensitivity
		if upd.Sensitivity != nil {
			parsed, err := units.ParseSensitivity(*upd.Sensitivity)
			if err != nil {
				httputil.BadRequest(w, err.Error())
				return
			}
			level = parsed
		}
		if upd.Threshold != nil && *upd.Threshold <= 0 {
			httputil.BadRequest(w, fmt.Sprintf("threshold must be positive, got %g", *upd.Threshold))
			return
		}
		if upd.SmoothingWindow != nil && *upd.SmoothingWindow < 1 {
			httputil.BadRequest(w, fmt.Sprintf("smoothing window must be >= 1, got %d", *upd.SmoothingWindow))
			return
		}

		if upd.Threshold != nil {
			if err := s.pipe.SetThreshold(*upd.Threshold); err != nil {
				httputil.BadRequest(w, err.Error())
				return
			}
		}
		if upd.Sensitivity != nil {
			if err := s.pipe.SetSensitivity(level); err != nil {
				httputil.BadRequest(w, err.Error())
				return
			}
		}
		if upd.FilterEnabled != nil {
			s.pipe.SetFilterEnabled(*upd.FilterEnabled)
		}
		if upd.SmoothingWindow != nil {
			if err := s.pipe.SetSmoothingWindow(*upd.SmoothingWindow); err != nil {
				httputil.BadRequest(w, err.Error())
				return
			}
		}
		httputil.WriteJSONOK(w, s.pipe.Config())
	default:
		httputil.MethodNotAllowed(w)
	}
}

func (s *Server) handleLatest(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}
	rec, err := s.db.Latest()
	if err != nil {
		httputil.InternalServerError(w, err.Error())
		return
	}
	if rec == nil {
		httputil.NotFound(w, "no vibration data recorded yet")
		return
	}
	httputil.WriteJSONOK(w, rec)
}

func (s *Server) handleRecent(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}
	n := 100
	if raw := r.URL.Query().Get("n"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil || v < 1 {
			httputil.BadRequest(w, fmt.Sprintf("invalid n %q", raw))
			return
		}
		n = v
	}
	recs, err := s.db.Recent(n)
	if err != nil {
		httputil.InternalServerError(w, err.Error())
		return
	}
	httputil.WriteJSONOK(w, recs)
}

func (s *Server) handleSince(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}
	raw := r.URL.Query().Get("t")
	if raw == "" {
		httputil.BadRequest(w, "missing required parameter t (RFC 3339 timestamp)")
		return
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		httputil.BadRequest(w, fmt.Sprintf("invalid timestamp %q: %v", raw, err))
		return
	}
	recs, err := s.db.Since(t)
	if err != nil {
		httputil.InternalServerError(w, err.Error())
		return
	}
	httputil.WriteJSONOK(w, recs)
}

func (s *Server) handleClear(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		httputil.MethodNotAllowed(w)
		return
	}
	if err := s.db.Clear(); err != nil {
		httputil.InternalServerError(w, err.Error())
		return
	}
	httputil.WriteJSONOK(w, map[string]string{"status": "cleared"})
}

func (s *Server) handleAlerts(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}
	limit := 100
	if raw := r.URL.Query().Get("limit"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil || v < 1 {
			httputil.BadRequest(w, fmt.Sprintf("invalid limit %q", raw))
			return
		}
		limit = v
	}
	alerts, err := s.db.Alerts(limit)
	if err != nil {
		httputil.InternalServerError(w, err.Error())
		return
	}
	httputil.WriteJSONOK(w, alerts)
}

func (s *Server) handleAckAlert(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		httputil.MethodNotAllowed(w)
		return
	}
	raw := r.URL.Query().Get("id")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id < 1 {
		httputil.BadRequest(w, fmt.Sprintf("invalid alert id %q", raw))
		return
	}
	if err := s.db.AcknowledgeAlert(id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			httputil.NotFound(w, fmt.Sprintf("no alert with id %d", id))
			return
		}
		httputil.InternalServerError(w, err.Error())
		return
	}
	httputil.WriteJSONOK(w, map[string]interface{}{"id": id, "acknowledged": true})
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}
	n := 1000
	if raw := r.URL.Query().Get("n"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil || v < 1 {
			httputil.BadRequest(w, fmt.Sprintf("invalid n %q", raw))
			return
		}
		n = v
	}
	recs, err := s.db.Recent(n)
	if err != nil {
		httputil.InternalServerError(w, err.Error())
		return
	}
	summary := vibration.Summarize(recs)
	if summary == nil {
		httputil.NotFound(w, "no vibration data recorded yet")
		return
	}
	httputil.WriteJSONOK(w, summary)
}

func (s *Server) handleTrend(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}
	window := time.Hour
	if raw := r.URL.Query().Get("window"); raw != "" {
		d, err := time.ParseDuration(raw)
		if err != nil || d <= 0 {
			httputil.BadRequest(w, fmt.Sprintf("invalid window %q", raw))
			return
		}
		window = d
	}
	recs, err := s.db.Since(time.Now().Add(-window))
	if err != nil {
		httputil.InternalServerError(w, err.Error())
		return
	}
	trend := vibration.Trend(recs)
	if trend == nil {
		httputil.NotFound(w, "not enough data for trend analysis")
		return
	}
	httputil.WriteJSONOK(w, trend)
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}
	n := db.DefaultMaxRows
	if raw := r.URL.Query().Get("n"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil || v < 1 {
			httputil.BadRequest(w, fmt.Sprintf("invalid n %q", raw))
			return
		}
		n = v
	}
	recs, err := s.db.Recent(n)
	if err != nil {
		httputil.InternalServerError(w, err.Error())
		return
	}

	stamp := time.Now().Format("20060102_150405")
	switch format := r.URL.Query().Get("format"); format {
	case "", "csv":
		w.Header().Set("Content-Type", "text/csv")
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=vibration_data_%s.csv", stamp))
		if err := db.ExportCSV(w, recs); err != nil {
			monitoring.Logf("failed to stream csv export: %v", err)
		}
	case "json":
		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=vibration_data_%s.json", stamp))
		if err := db.ExportJSON(w, recs); err != nil {
			monitoring.Logf("failed to stream json export: %v", err)
		}
	default:
		httputil.BadRequest(w, fmt.Sprintf("unknown export format %q: use csv or json", format))
	}
}

type loggingResponseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (lrw *loggingResponseWriter) WriteHeader(code int) {
	lrw.statusCode = code
	lrw.ResponseWriter.WriteHeader(code)
}

func (lrw *loggingResponseWriter) Flush() {
	if flusher, ok := lrw.ResponseWriter.(http.Flusher); ok {
		flusher.Flush()
	}
}

func statusCodeColor(statusCode int) string {
	switch {
	case statusCode >= 200 && statusCode < 300:
		return colorBoldGreen + strconv.Itoa(statusCode) + colorReset
	case statusCode >= 300 && statusCode < 400:
		return colorYellow + strconv.Itoa(statusCode) + colorReset
	default:
		return colorBoldRed + strconv.Itoa(statusCode) + colorReset
	}
}

// LoggingMiddleware logs method, path, query, status, and duration
func LoggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		lrw := &loggingResponseWriter{w, http.StatusOK}
		next.ServeHTTP(lrw, r)
		query := ""
		if r.URL.RawQuery != "" {
			query = "?" + r.URL.RawQuery
		}
		monitoring.Logf("[%s] %s %s%s %vms",
			statusCodeColor(lrw.statusCode), r.Method, r.URL.Path, query,
			time.Since(start).Milliseconds())
	})
}
