package vibration

import (
	"math"
	"math/rand"
	"time"

	"github.com/banshee-data/vibration.monitor/internal/units"
)

// SourceConfig holds the generation-side parameters. Sensitivity lives here
// rather than on the detector: it scales the signal actually sensed, so the
// same threshold sees a louder or quieter world depending on the level.
type SourceConfig struct {
	Sensitivity units.Sensitivity
}

// Source produces one synthetic tri-axial reading per tick. It composes a
// low-frequency ambient signal with Gaussian jitter and, with fixed
// probability per tick, a decaying oscillatory impulse of random amplitude.
// Both the random source and the notion of time are injected so tests can
// replay exact sequences.
type Source struct {
	rng *rand.Rand

	// Ambient signal shape.
	ambientAmpXY   float64
	ambientAmpZ    float64
	jitterSigmaXY  float64
	jitterSigmaZ   float64
	impulseProb    float64
	impulseMinAmp  float64
	impulseMaxAmp  float64
	impulseMinDur  float64
	impulseMaxDur  float64
	impulseFreqX   float64
	impulseFreqY   float64
	impulseFreqZ   float64
}

// NewSource creates a signal source driven by the given random generator.
// Production wiring passes rand.New(rand.NewSource(time.Now().UnixNano()));
// tests pass a fixed seed.
func NewSource(rng *rand.Rand) *Source {
	return &Source{
		rng:           rng,
		ambientAmpXY:  0.1,
		ambientAmpZ:   0.05,
		jitterSigmaXY: 0.05,
		jitterSigmaZ:  0.03,
		impulseProb:   0.05,
		impulseMinAmp: 1.5,
		impulseMaxAmp: 4.0,
		impulseMinDur: 0.5,
		impulseMaxDur: 2.0,
		impulseFreqX:  10,
		impulseFreqY:  8,
		impulseFreqZ:  12,
	}
}

// Next returns the reading for the given instant, scaled by the configured
// sensitivity level. It always succeeds.
func (s *Source) Next(now time.Time, cfg SourceConfig) Reading {
	t := float64(now.UnixNano()) / 1e9

	// Ambient vibration: slow sinusoids per axis plus Gaussian jitter.
	ax := s.ambientAmpXY*math.Sin(2*math.Pi*0.5*t) + s.rng.NormFloat64()*s.jitterSigmaXY
	ay := s.ambientAmpXY*math.Cos(2*math.Pi*0.3*t) + s.rng.NormFloat64()*s.jitterSigmaXY
	az := s.ambientAmpZ*math.Sin(2*math.Pi*0.7*t) + s.rng.NormFloat64()*s.jitterSigmaZ

	// Occasional impulse: a decaying oscillatory transient.
	var ix, iy, iz float64
	if s.rng.Float64() < s.impulseProb {
		amp := s.impulseMinAmp + s.rng.Float64()*(s.impulseMaxAmp-s.impulseMinAmp)
		dur := s.impulseMinDur + s.rng.Float64()*(s.impulseMaxDur-s.impulseMinDur)
		decay := math.Exp(-math.Mod(t, dur))
		ix = amp * math.Sin(2*math.Pi*s.impulseFreqX*t) * decay
		iy = amp * math.Cos(2*math.Pi*s.impulseFreqY*t) * decay
		iz = amp * math.Sin(2*math.Pi*s.impulseFreqZ*t) * decay
	}

	k := cfg.Sensitivity.Multiplier()
	return NewReading(now, (ax+ix)*k, (ay+iy)*k, (az+iz)*k)
}
