package monitor

import (
	"fmt"
	"image/color"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/banshee-data/vibration.monitor/internal/vibration"
)

// PlotMagnitude renders the processed magnitude time series with the alert
// threshold as a dashed horizontal line and saves the result to path. The
// output format follows the file extension (.png, .svg, .pdf).
func PlotMagnitude(recs []vibration.LogRecord, threshold float64, path string) error {
	if len(recs) == 0 {
		return fmt.Errorf("no records to plot")
	}

	p := plot.New()
	p.Title.Text = "Processed Vibration Magnitude"
	p.X.Label.Text = "elapsed (s)"
	p.Y.Label.Text = "magnitude"

	pts := make(plotter.XYs, len(recs))
	start := recs[0].Timestamp
	for i, rec := range recs {
		pts[i].X = rec.Timestamp.Sub(start).Seconds()
		pts[i].Y = rec.ProcessedMagnitude
	}

	magLine, err := plotter.NewLine(pts)
	if err != nil {
		return fmt.Errorf("failed to build magnitude line: %w", err)
	}
	magLine.Color = color.RGBA{R: 31, G: 119, B: 180, A: 255}

	threshPts := plotter.XYs{
		{X: pts[0].X, Y: threshold},
		{X: pts[len(pts)-1].X, Y: threshold},
	}
	threshLine, err := plotter.NewLine(threshPts)
	if err != nil {
		return fmt.Errorf("failed to build threshold line: %w", err)
	}
	threshLine.Color = color.RGBA{R: 214, G: 39, B: 40, A: 255}
	threshLine.Dashes = []vg.Length{vg.Points(4), vg.Points(3)}

	p.Add(plotter.NewGrid(), magLine, threshLine)
	p.Legend.Add("processed", magLine)
	p.Legend.Add("threshold", threshLine)
	p.Legend.Top = true

	if err := p.Save(10*vg.Inch, 4*vg.Inch, path); err != nil {
		return fmt.Errorf("failed to save plot to %s: %w", path, err)
	}
	return nil
}
