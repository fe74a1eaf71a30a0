// Command gen-viblog runs the signal stages deterministically for a number of
// ticks and writes the resulting log as CSV, with an optional magnitude plot.
package main

import (
	"flag"
	"log"
	"math/rand"
	"os"
	"time"

	"github.com/banshee-data/vibration.monitor/internal/db"
	"github.com/banshee-data/vibration.monitor/internal/monitor"
	"github.com/banshee-data/vibration.monitor/internal/units"
	"github.com/banshee-data/vibration.monitor/internal/vibration"
)

func main() {
	output := flag.String("o", "viblog.csv", "output CSV path")
	plotPath := flag.String("plot", "", "optional plot output path (.png/.svg/.pdf)")
	ticks := flag.Int("n", 200, "number of ticks")
	seed := flag.Int64("seed", 1, "random seed")
	threshold := flag.Float64("threshold", 2.0, "alert threshold")
	sensitivity := flag.String("sensitivity", "Medium", "sensitivity level (Low, Medium, High)")
	window := flag.Int("window", 5, "smoothing window")
	filterOn := flag.Bool("filter", true, "enable noise filtering")
	interval := flag.Duration("interval", 500*time.Millisecond, "simulated tick interval")
	flag.Parse()

	level, err := units.ParseSensitivity(*sensitivity)
	if err != nil {
		log.Fatalf("invalid sensitivity: %v", err)
	}
	cfg := vibration.Config{
		Threshold:       *threshold,
		Sensitivity:     level,
		FilterEnabled:   *filterOn,
		SmoothingWindow: *window,
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("invalid config: %v", err)
	}

	source := vibration.NewSource(rand.New(rand.NewSource(*seed)))
	filter := vibration.NewNoiseFilter()
	smoother := vibration.NewSmoother(cfg.SmoothingWindow)
	detector := vibration.NewDetector(cfg.Threshold)

	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	recs := make([]vibration.LogRecord, 0, *ticks)
	alerts := 0
	for i := 0; i < *ticks; i++ {
		now := start.Add(time.Duration(i) * *interval)
		raw := source.Next(now, cfg.Source())
		processed := smoother.Apply(filter.Apply(raw, cfg.FilterEnabled))
		alert := detector.Check(processed.Magnitude)
		if alert {
			alerts++
		}
		recs = append(recs, vibration.LogRecord{
			Timestamp:          now,
			RawMagnitude:       raw.Magnitude,
			ProcessedMagnitude: processed.Magnitude,
			X:                  processed.X,
			Y:                  processed.Y,
			Z:                  processed.Z,
			Alert:              alert,
			Threshold:          cfg.Threshold,
			Sensitivity:        cfg.Sensitivity,
			FilterEnabled:      cfg.FilterEnabled,
		})
	}

	f, err := os.Create(*output)
	if err != nil {
		log.Fatalf("failed to create %s: %v", *output, err)
	}
	defer f.Close()
	if err := db.ExportCSV(f, recs); err != nil {
		log.Fatalf("failed to write CSV: %v", err)
	}
	log.Printf("✓ Created: %s (%d ticks, %d alerts)", *output, *ticks, alerts)

	if *plotPath != "" {
		if err := monitor.PlotMagnitude(recs, cfg.Threshold, *plotPath); err != nil {
			log.Fatalf("failed to plot: %v", err)
		}
		log.Printf("✓ Created: %s", *plotPath)
	}
}
