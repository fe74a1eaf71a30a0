package vibration

import (
	"fmt"
	"math"
	"math/cmplx"

	"gonum.org/v1/gonum/mat"
)

// Filter parameters. The cutoff is a normalized frequency expressed as a
// fraction of Nyquist.
const (
	filterOrder    = 4
	filterCutoff   = 0.3
	historyCap     = 100
	minFilterInput = filterOrder + 1
)

// NoiseFilter removes high-frequency content from the raw signal. It keeps a
// bounded history of recent samples per axis and runs a fourth-order
// Butterworth low-pass as a zero-phase (forward-then-backward) pass over the
// whole buffered history, taking the most recent filtered sample as the
// output for the tick. O(history) work per tick, bounded by historyCap.
type NoiseFilter struct {
	b, a []float64

	histX *Ring
	histY *Ring
	histZ *Ring
}

// NewNoiseFilter designs the Butterworth coefficients once and allocates the
// history buffers.
func NewNoiseFilter() *NoiseFilter {
	b, a, err := butterworthLowPass(filterOrder, filterCutoff)
	if err != nil {
		// Fixed, valid design parameters; reaching here is a programming error.
		panic(fmt.Sprintf("vibration: butterworth design failed: %v", err))
	}
	return &NoiseFilter{
		b:     b,
		a:     a,
		histX: NewRing(historyCap),
		histY: NewRing(historyCap),
		histZ: NewRing(historyCap),
	}
}

// HistoryLen returns the number of buffered raw samples.
func (f *NoiseFilter) HistoryLen() int { return f.histX.Len() }

// Reset discards the buffered history.
func (f *NoiseFilter) Reset() {
	f.histX.Reset()
	f.histY.Reset()
	f.histZ.Reset()
}

// Apply filters the raw reading against the buffered history. With enabled
// false it is a pure passthrough. With fewer than filterOrder+1 buffered
// samples, or on any numerical failure inside the zero-phase pass, the raw
// reading is returned unchanged; errors never propagate to the caller.
func (f *NoiseFilter) Apply(raw Reading, enabled bool) Reading {
	if !enabled {
		return raw
	}

	f.histX.Push(raw.X)
	f.histY.Push(raw.Y)
	f.histZ.Push(raw.Z)

	if f.histX.Len() < minFilterInput {
		return raw
	}

	fx, errX := filtfilt(f.b, f.a, f.histX.Values())
	fy, errY := filtfilt(f.b, f.a, f.histY.Values())
	fz, errZ := filtfilt(f.b, f.a, f.histZ.Values())
	if errX != nil || errY != nil || errZ != nil {
		// Not enough samples for the edge handling, or a singular zi system.
		return raw
	}

	return NewReading(raw.Timestamp, fx[len(fx)-1], fy[len(fy)-1], fz[len(fz)-1])
}

// butterworthLowPass designs digital low-pass Butterworth coefficients for
// the given order and normalized cutoff (fraction of Nyquist, 0 < wn < 1)
// via the bilinear transform. Returns numerator b and denominator a with
// a[0] == 1.
func butterworthLowPass(order int, wn float64) (b, a []float64, err error) {
	if order < 1 {
		return nil, nil, fmt.Errorf("filter order must be >= 1, got %d", order)
	}
	if wn <= 0 || wn >= 1 {
		return nil, nil, fmt.Errorf("normalized cutoff must be in (0, 1), got %g", wn)
	}

	// Pre-warp the cutoff for the bilinear transform.
	warped := math.Tan(math.Pi * wn / 2)

	// Analog prototype poles on the left-half-plane unit circle, scaled to
	// the warped cutoff.
	poles := make([]complex128, order)
	for k := 0; k < order; k++ {
		theta := math.Pi * float64(2*k+order+1) / float64(2*order)
		poles[k] = complex(warped, 0) * cmplx.Exp(complex(0, theta))
	}

	// Bilinear transform: s = (z-1)/(z+1). Each analog pole p maps to
	// (1+p)/(1-p); all zeros land at z = -1. The gain folds the (1-p)
	// denominators into the numerator.
	gain := complex(math.Pow(warped, float64(order)), 0)
	digital := make([]complex128, order)
	for i, p := range poles {
		digital[i] = (1 + p) / (1 - p)
		gain /= (1 - p)
	}

	zeros := make([]complex128, order)
	for i := range zeros {
		zeros[i] = -1
	}

	bc := polyFromRoots(zeros)
	ac := polyFromRoots(digital)

	b = make([]float64, len(bc))
	a = make([]float64, len(ac))
	for i := range bc {
		b[i] = real(bc[i] * gain)
	}
	for i := range ac {
		a[i] = real(ac[i])
	}
	return b, a, nil
}

// polyFromRoots expands prod(z - r_i) into coefficients of descending powers
// of z, leading coefficient first.
func polyFromRoots(roots []complex128) []complex128 {
	coeffs := []complex128{1}
	for _, r := range roots {
		next := make([]complex128, len(coeffs)+1)
		for i, c := range coeffs {
			next[i] += c
			next[i+1] -= c * r
		}
		coeffs = next
	}
	return coeffs
}

// lfilter runs a direct-form II transposed IIR filter over x with initial
// state zi (length len(a)-1). a[0] must be 1.
func lfilter(b, a, x, zi []float64) []float64 {
	n := len(a) - 1
	z := make([]float64, n)
	copy(z, zi)
	y := make([]float64, len(x))
	for i, xv := range x {
		yv := b[0]*xv + z[0]
		for j := 0; j < n-1; j++ {
			z[j] = b[j+1]*xv + z[j+1] - a[j+1]*yv
		}
		z[n-1] = b[n]*xv - a[n]*yv
		y[i] = yv
	}
	return y
}

// lfilterZi computes the initial filter state that corresponds to the
// steady-state of the step response, so the forward and backward passes
// start without edge transients. Solves (I - companion(a)^T) zi = B.
func lfilterZi(b, a []float64) ([]float64, error) {
	n := len(a) - 1
	sys := mat.NewDense(n, n, nil)
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			var comp float64
			// companion(a)^T: first column is -a[1:], superdiagonal is 1.
			if j == 0 {
				comp = -a[i+1]
			} else if i == j-1 {
				comp = 1
			}
			v := -comp
			if i == j {
				v += 1
			}
			sys.Set(i, j, v)
		}
	}

	rhs := mat.NewVecDense(n, nil)
	for i := 0; i < n; i++ {
		rhs.SetVec(i, b[i+1]-a[i+1]*b[0])
	}

	var zi mat.VecDense
	if err := zi.SolveVec(sys, rhs); err != nil {
		return nil, fmt.Errorf("zi system is singular: %w", err)
	}
	out := make([]float64, n)
	for i := 0; i < n; i++ {
		out[i] = zi.AtVec(i)
	}
	return out, nil
}

// filtfilt applies the filter forward then backward so the result has no
// phase delay. The input is extended at both ends with an odd-symmetric
// reflection of length 3*max(len(a), len(b)) before filtering; inputs that
// are not longer than the extension are rejected.
func filtfilt(b, a, x []float64) ([]float64, error) {
	ntaps := len(a)
	if len(b) > ntaps {
		ntaps = len(b)
	}
	padlen := 3 * ntaps
	if len(x) <= padlen {
		return nil, fmt.Errorf("input of length %d is too short for edge padding %d", len(x), padlen)
	}

	zi, err := lfilterZi(b, a)
	if err != nil {
		return nil, err
	}

	// Odd extension at both ends.
	ext := make([]float64, 0, len(x)+2*padlen)
	for i := padlen; i >= 1; i-- {
		ext = append(ext, 2*x[0]-x[i])
	}
	ext = append(ext, x...)
	for i := 1; i <= padlen; i++ {
		ext = append(ext, 2*x[len(x)-1]-x[len(x)-1-i])
	}

	scaled := make([]float64, len(zi))

	// Forward pass.
	for i := range zi {
		scaled[i] = zi[i] * ext[0]
	}
	fwd := lfilter(b, a, ext, scaled)

	// Backward pass over the reversed forward output.
	reverse(fwd)
	for i := range zi {
		scaled[i] = zi[i] * fwd[0]
	}
	bwd := lfilter(b, a, fwd, scaled)
	reverse(bwd)

	return bwd[padlen : padlen+len(x)], nil
}

func reverse(s []float64) {
	for i, j := 0, len(s)-1; i < j; i, j = i+1, j-1 {
		s[i], s[j] = s[j], s[i]
	}
}
