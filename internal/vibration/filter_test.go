package vibration

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testReading(i int, x, y, z float64) Reading {
	ts := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC).Add(time.Duration(i) * 500 * time.Millisecond)
	return NewReading(ts, x, y, z)
}

func TestNoiseFilterDisabledIsIdentity(t *testing.T) {
	f := NewNoiseFilter()
	for i := 0; i < 30; i++ {
		in := testReading(i, float64(i), -float64(i), 0.5)
		out := f.Apply(in, false)
		assert.Equal(t, in, out, "tick %d", i)
	}
	assert.Equal(t, 0, f.HistoryLen(), "disabled filter must not grow history")
}

func TestNoiseFilterShortHistoryPassthrough(t *testing.T) {
	f := NewNoiseFilter()
	// Fewer than filterOrder+1 buffered samples: raw comes back unchanged.
	for i := 0; i < minFilterInput-1; i++ {
		in := testReading(i, 1.0+float64(i), 0, 0)
		out := f.Apply(in, true)
		assert.Equal(t, in, out, "tick %d should pass through", i)
	}
	assert.Equal(t, minFilterInput-1, f.HistoryLen())
}

func TestNoiseFilterEdgePaddingFallback(t *testing.T) {
	// Between 5 samples and the zero-phase padding requirement the filter
	// cannot run; the raw reading is returned rather than an error.
	f := NewNoiseFilter()
	for i := 0; i < 10; i++ {
		in := testReading(i, math.Sin(float64(i)), 0, 0)
		out := f.Apply(in, true)
		assert.Equal(t, in, out, "tick %d should fall back to raw", i)
	}
}

func TestNoiseFilterPreservesDC(t *testing.T) {
	// A constant signal has no high-frequency content; the low-pass filter
	// must return it unchanged to within numerical error.
	f := NewNoiseFilter()
	var out Reading
	for i := 0; i < 40; i++ {
		out = f.Apply(testReading(i, 1.5, -2.0, 0.25), true)
	}
	assert.InDelta(t, 1.5, out.X, 1e-6)
	assert.InDelta(t, -2.0, out.Y, 1e-6)
	assert.InDelta(t, 0.25, out.Z, 1e-6)
	assert.InDelta(t, Norm3(out.X, out.Y, out.Z), out.Magnitude, 1e-12)
}

func TestNoiseFilterAttenuatesHighFrequency(t *testing.T) {
	// An alternating-sign signal sits at the Nyquist frequency, far above
	// the 0.3 cutoff, and should be strongly attenuated once the filter has
	// enough history to run.
	f := NewNoiseFilter()
	var out Reading
	for i := 0; i < 64; i++ {
		v := 1.0
		if i%2 == 1 {
			v = -1.0
		}
		out = f.Apply(testReading(i, v, 0, 0), true)
	}
	assert.Less(t, math.Abs(out.X), 0.1, "Nyquist-rate signal should be attenuated, got %v", out.X)
}

func TestNoiseFilterActiveOutputDiffers(t *testing.T) {
	f := NewNoiseFilter()
	var in, out Reading
	for i := 0; i < 40; i++ {
		v := 1.0
		if i%2 == 1 {
			v = -1.0
		}
		in = testReading(i, v, v, v)
		out = f.Apply(in, true)
	}
	assert.NotEqual(t, in, out, "filter should modify a noisy signal once history is long enough")
	assert.Equal(t, in.Timestamp, out.Timestamp, "timestamp must be preserved")
}

func TestNoiseFilterHistoryBounded(t *testing.T) {
	f := NewNoiseFilter()
	for i := 0; i < historyCap+50; i++ {
		f.Apply(testReading(i, float64(i%7), 0, 0), true)
	}
	assert.Equal(t, historyCap, f.HistoryLen())

	f.Reset()
	assert.Equal(t, 0, f.HistoryLen())
}

func TestButterworthDesign(t *testing.T) {
	b, a, err := butterworthLowPass(filterOrder, filterCutoff)
	require.NoError(t, err)
	require.Len(t, b, filterOrder+1)
	require.Len(t, a, filterOrder+1)

	assert.InDelta(t, 1.0, a[0], 1e-12, "denominator must be normalized")

	// Unity DC gain: sum(b)/sum(a) == 1.
	var sb, sa float64
	for _, v := range b {
		sb += v
	}
	for _, v := range a {
		sa += v
	}
	assert.InDelta(t, 1.0, sb/sa, 1e-9)

	// Numerator of a Butterworth low-pass follows binomial coefficients.
	assert.InDelta(t, b[0]*4, b[1], 1e-12)
	assert.InDelta(t, b[0]*6, b[2], 1e-12)
}

func TestButterworthDesignRejectsBadParams(t *testing.T) {
	tests := []struct {
		name  string
		order int
		wn    float64
	}{
		{"zero order", 0, 0.3},
		{"cutoff too low", 4, 0},
		{"cutoff too high", 4, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := butterworthLowPass(tt.order, tt.wn)
			assert.Error(t, err)
		})
	}
}

func TestFiltfiltRejectsShortInput(t *testing.T) {
	b, a, err := butterworthLowPass(filterOrder, filterCutoff)
	require.NoError(t, err)

	short := make([]float64, 3*(filterOrder+1))
	_, err = filtfilt(b, a, short)
	assert.Error(t, err)
}

func TestFiltfiltZeroPhaseSymmetry(t *testing.T) {
	// Zero-phase filtering of a slow sinusoid should track it with no lag:
	// the filtered midpoint stays close to the input midpoint.
	b, a, err := butterworthLowPass(filterOrder, filterCutoff)
	require.NoError(t, err)

	n := 100
	x := make([]float64, n)
	for i := range x {
		x[i] = math.Sin(2 * math.Pi * 0.02 * float64(i))
	}
	y, err := filtfilt(b, a, x)
	require.NoError(t, err)
	require.Len(t, y, n)

	mid := n / 2
	assert.InDelta(t, x[mid], y[mid], 0.01, "low-frequency content should pass with no phase shift")
}
