package vibration

import (
	"math"
	"sort"
	"time"

	"gonum.org/v1/gonum/stat"
)

// Summary holds aggregate statistics over a run of log records.
type Summary struct {
	Count      int           `json:"total_entries"`
	Start      time.Time     `json:"start"`
	End        time.Time     `json:"end"`
	Duration   time.Duration `json:"duration"`
	Mean       float64       `json:"mean"`
	StdDev     float64       `json:"std"`
	Min        float64       `json:"min"`
	Max        float64       `json:"max"`
	Median     float64       `json:"median"`
	AlertCount int           `json:"total_alerts"`
	AlertRate  float64       `json:"alert_rate"`
}

// Summarize computes aggregate statistics over the processed magnitudes of
// the given records. Returns nil when there is nothing to summarize.
func Summarize(recs []LogRecord) *Summary {
	if len(recs) == 0 {
		return nil
	}

	mags := make([]float64, len(recs))
	s := &Summary{
		Count: len(recs),
		Start: recs[0].Timestamp,
		End:   recs[0].Timestamp,
		Min:   math.Inf(1),
		Max:   math.Inf(-1),
	}
	for i, r := range recs {
		mags[i] = r.ProcessedMagnitude
		if r.Timestamp.Before(s.Start) {
			s.Start = r.Timestamp
		}
		if r.Timestamp.After(s.End) {
			s.End = r.Timestamp
		}
		if r.ProcessedMagnitude < s.Min {
			s.Min = r.ProcessedMagnitude
		}
		if r.ProcessedMagnitude > s.Max {
			s.Max = r.ProcessedMagnitude
		}
		if r.Alert {
			s.AlertCount++
		}
	}
	s.Duration = s.End.Sub(s.Start)
	s.Mean = stat.Mean(mags, nil)
	s.StdDev = stat.StdDev(mags, nil)
	s.AlertRate = float64(s.AlertCount) / float64(s.Count)

	sorted := append([]float64(nil), mags...)
	sort.Float64s(sorted)
	s.Median = stat.Quantile(0.5, stat.Empirical, sorted, nil)

	return s
}

// Trend directions
const (
	TrendStable     = "stable"
	TrendIncreasing = "increasing"
	TrendDecreasing = "decreasing"
)

// TrendAnalysis describes how the processed magnitude is moving over a
// lookback window.
type TrendAnalysis struct {
	DataPoints   int     `json:"data_points"`
	Slope        float64 `json:"trend_slope"`
	Direction    string  `json:"trend_direction"`
	Volatility   float64 `json:"volatility"`
	CurrentLevel float64 `json:"current_level"`
	AverageLevel float64 `json:"average_level"`
	RecentAlerts int     `json:"recent_alerts"`
}

// slopes flatter than this count as stable
const stableSlopeEpsilon = 0.001

// Trend fits a linear regression to processed magnitude over elapsed seconds
// and classifies the direction. Records are expected in chronological order.
// Returns nil with fewer than two points.
func Trend(recs []LogRecord) *TrendAnalysis {
	if len(recs) < 2 {
		return nil
	}

	xs := make([]float64, len(recs))
	ys := make([]float64, len(recs))
	alerts := 0
	for i, r := range recs {
		xs[i] = r.Timestamp.Sub(recs[0].Timestamp).Seconds()
		ys[i] = r.ProcessedMagnitude
		if r.Alert {
			alerts++
		}
	}

	_, slope := stat.LinearRegression(xs, ys, nil, false)

	direction := TrendStable
	switch {
	case math.Abs(slope) < stableSlopeEpsilon:
		direction = TrendStable
	case slope > 0:
		direction = TrendIncreasing
	default:
		direction = TrendDecreasing
	}

	return &TrendAnalysis{
		DataPoints:   len(recs),
		Slope:        slope,
		Direction:    direction,
		Volatility:   stat.StdDev(ys, nil),
		CurrentLevel: ys[len(ys)-1],
		AverageLevel: stat.Mean(ys, nil),
		RecentAlerts: alerts,
	}
}
