package vibration

import "gonum.org/v1/gonum/stat"

// Smoother applies per-axis moving-average smoothing. Each axis has its own
// bounded buffer of capacity equal to the smoothing window; the output
// magnitude is recomputed from the smoothed component means, never by
// averaging incoming magnitudes.
type Smoother struct {
	x *Ring
	y *Ring
	z *Ring
}

// NewSmoother creates a smoother with the given window size (>= 1).
func NewSmoother(window int) *Smoother {
	if window < 1 {
		window = 1
	}
	return &Smoother{
		x: NewRing(window),
		y: NewRing(window),
		z: NewRing(window),
	}
}

// Window returns the current window size.
func (s *Smoother) Window() int { return s.x.Cap() }

// Resize changes the window size, retaining the most recent buffered samples
// that fit in the new capacity.
func (s *Smoother) Resize(window int) {
	if window < 1 {
		window = 1
	}
	if window == s.x.Cap() {
		return
	}
	s.x.Resize(window)
	s.y.Resize(window)
	s.z.Resize(window)
}

// Reset discards all buffered samples.
func (s *Smoother) Reset() {
	s.x.Reset()
	s.y.Reset()
	s.z.Reset()
}

// Apply buffers the reading's components and returns a new Reading carrying
// the per-axis means and the magnitude recomputed from them. The timestamp is
// preserved. With a window of 1 this is the identity transform.
func (s *Smoother) Apply(in Reading) Reading {
	s.x.Push(in.X)
	s.y.Push(in.Y)
	s.z.Push(in.Z)

	mx := stat.Mean(s.x.Values(), nil)
	my := stat.Mean(s.y.Values(), nil)
	mz := stat.Mean(s.z.Values(), nil)

	return NewReading(in.Timestamp, mx, my, mz)
}
