// Package monitor renders the presentation views of the vibration data:
// a live go-echarts HTML chart and static gonum/plot PNG output.
package monitor

import (
	"bytes"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/banshee-data/vibration.monitor/internal/db"
	"github.com/banshee-data/vibration.monitor/internal/httputil"
)

// defaultChartPoints is how many recent records the chart shows when the
// caller does not say otherwise.
const defaultChartPoints = 200

// MagnitudeChartHandler renders an HTML line chart of recent raw and
// processed magnitudes with the configured threshold overlaid.
// Query params:
//   - n (optional; default 200, max 5000) number of recent records to plot
func MagnitudeChartHandler(store *db.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		n := defaultChartPoints
		if raw := r.URL.Query().Get("n"); raw != "" {
			if v, err := strconv.Atoi(raw); err == nil && v > 0 && v <= 5000 {
				n = v
			}
		}

		recs, err := store.Recent(n)
		if err != nil {
			httputil.InternalServerError(w, fmt.Sprintf("failed to load records: %v", err))
			return
		}
		if len(recs) == 0 {
			httputil.NotFound(w, "no vibration data recorded yet")
			return
		}

		xAxis := make([]string, len(recs))
		rawSeries := make([]opts.LineData, len(recs))
		processedSeries := make([]opts.LineData, len(recs))
		thresholdSeries := make([]opts.LineData, len(recs))
		alertCount := 0
		for i, rec := range recs {
			xAxis[i] = rec.Timestamp.Local().Format("15:04:05.000")
			rawSeries[i] = opts.LineData{Value: rec.RawMagnitude}
			processedSeries[i] = opts.LineData{Value: rec.ProcessedMagnitude}
			thresholdSeries[i] = opts.LineData{Value: rec.Threshold}
			if rec.Alert {
				alertCount++
			}
		}

		line := charts.NewLine()
		line.SetGlobalOptions(
			charts.WithInitializationOpts(opts.Initialization{PageTitle: "Vibration Monitor", Theme: "dark", Width: "1200px", Height: "600px"}),
			charts.WithTitleOpts(opts.Title{
				Title:    "Vibration Magnitude",
				Subtitle: fmt.Sprintf("points=%d alerts=%d window=%s", len(recs), alertCount, recs[len(recs)-1].Timestamp.Sub(recs[0].Timestamp).Round(time.Second)),
			}),
			charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "axis"}),
			charts.WithXAxisOpts(opts.XAxis{Name: "time"}),
			charts.WithYAxisOpts(opts.YAxis{Name: "magnitude"}),
			charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true)}),
		)

		line.SetXAxis(xAxis).
			AddSeries("raw", rawSeries).
			AddSeries("processed", processedSeries).
			AddSeries("threshold", thresholdSeries)
		line.SetSeriesOptions(charts.WithLineChartOpts(opts.LineChart{Smooth: opts.Bool(true)}))

		var buf bytes.Buffer
		if err := line.Render(&buf); err != nil {
			httputil.InternalServerError(w, fmt.Sprintf("failed to render chart: %v", err))
			return
		}

		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write(buf.Bytes())
	}
}
