package vibration

import "fmt"

// DetectorConfig holds the comparison-side parameters. Sensitivity is
// deliberately not here: it is a source-generation parameter (see
// SourceConfig), and the pipeline joins the two.
type DetectorConfig struct {
	Threshold float64
}

// Detector evaluates the alert condition against a configurable threshold.
type Detector struct {
	threshold float64
}

// NewDetector creates a detector with the given threshold.
func NewDetector(threshold float64) *Detector {
	return &Detector{threshold: threshold}
}

// Check reports whether the magnitude strictly exceeds the threshold.
// Equality does not trigger.
func (d *Detector) Check(magnitude float64) bool {
	return magnitude > d.threshold
}

// Threshold returns the current threshold.
func (d *Detector) Threshold() float64 {
	return d.threshold
}

// SetThreshold replaces the threshold with immediate effect on the next
// Check. Only positive values are accepted; invalid values leave the prior
// threshold intact.
func (d *Detector) SetThreshold(t float64) error {
	if t <= 0 {
		return fmt.Errorf("threshold must be positive, got %g", t)
	}
	d.threshold = t
	return nil
}
