package vibration

import (
	"errors"
	"math/rand"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/vibration.monitor/internal/timeutil"
	"github.com/banshee-data/vibration.monitor/internal/units"
)

// recordingSink collects emitted records and signals each append so tests can
// wait for tick completion without sleeping.
type recordingSink struct {
	mu       sync.Mutex
	records  []LogRecord
	alerts   []AlertEvent
	appended chan struct{}
	fail     bool
}

func newRecordingSink() *recordingSink {
	return &recordingSink{appended: make(chan struct{}, 1024)}
}

func (s *recordingSink) AppendRecord(rec LogRecord) error {
	s.mu.Lock()
	fail := s.fail
	if !fail {
		s.records = append(s.records, rec)
	}
	s.mu.Unlock()
	s.appended <- struct{}{}
	if fail {
		return errors.New("sink unavailable")
	}
	return nil
}

func (s *recordingSink) AppendAlert(ev AlertEvent) error {
	s.mu.Lock()
	s.alerts = append(s.alerts, ev)
	s.mu.Unlock()
	return nil
}

func (s *recordingSink) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.records)
}

func (s *recordingSink) all() []LogRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]LogRecord(nil), s.records...)
}

// waitAppend blocks until the sink has seen one append or the timeout fires.
func (s *recordingSink) waitAppend(t *testing.T) {
	t.Helper()
	select {
	case <-s.appended:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for a tick to be recorded")
	}
}

func newTestPipeline(t *testing.T, cfg Config) (*Pipeline, *timeutil.MockClock, *recordingSink) {
	t.Helper()
	clock := timeutil.NewMockClock(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
	sink := newRecordingSink()
	p, err := NewPipeline(cfg, clock, rand.New(rand.NewSource(1)), sink)
	require.NoError(t, err)
	return p, clock, sink
}

func TestNewPipelineRejectsInvalidConfig(t *testing.T) {
	clock := timeutil.NewMockClock(time.Now())
	_, err := NewPipeline(Config{Threshold: -1, Sensitivity: units.Medium, SmoothingWindow: 1},
		clock, rand.New(rand.NewSource(1)), newRecordingSink())
	assert.Error(t, err)
}

func TestPipelineLifecycle(t *testing.T) {
	p, clock, sink := newTestPipeline(t, DefaultConfig())

	assert.Equal(t, StateIdle, p.State())
	require.NoError(t, p.Start())
	assert.Equal(t, StateRunning, p.State())
	assert.NotEmpty(t, p.SessionID())

	for i := 0; i < 3; i++ {
		clock.Advance(DefaultTickInterval)
		sink.waitAppend(t)
	}
	assert.Equal(t, 3, sink.count())
	assert.Equal(t, uint64(3), p.Ticks())

	p.Stop()
	assert.Equal(t, StateIdle, p.State())
}

func TestPipelineStartWhileRunning(t *testing.T) {
	p, clock, sink := newTestPipeline(t, DefaultConfig())
	require.NoError(t, p.Start())
	defer p.Stop()

	err := p.Start()
	assert.ErrorIs(t, err, ErrAlreadyRunning)

	// If a second worker had been spawned, one advance would produce two
	// records.
	clock.Advance(DefaultTickInterval)
	sink.waitAppend(t)
	select {
	case <-sink.appended:
		t.Fatal("second worker produced an extra record")
	case <-time.After(50 * time.Millisecond):
	}
	assert.Equal(t, 1, sink.count())
}

func TestPipelineStopHaltsEmission(t *testing.T) {
	p, clock, sink := newTestPipeline(t, DefaultConfig())
	require.NoError(t, p.Start())

	clock.Advance(DefaultTickInterval)
	sink.waitAppend(t)
	p.Stop()

	before := sink.count()
	for i := 0; i < 5; i++ {
		clock.Advance(DefaultTickInterval)
	}
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, before, sink.count(), "no records may be emitted after Stop returns")
}

func TestPipelineStopIdempotent(t *testing.T) {
	p, _, _ := newTestPipeline(t, DefaultConfig())
	p.Stop() // stop while idle is a no-op

	require.NoError(t, p.Start())
	p.Stop()
	p.Stop()
	assert.Equal(t, StateIdle, p.State())
}

func TestPipelineRestartResumesAndNewSession(t *testing.T) {
	p, clock, sink := newTestPipeline(t, DefaultConfig())

	require.NoError(t, p.Start())
	first := p.SessionID()
	clock.Advance(DefaultTickInterval)
	sink.waitAppend(t)
	p.Stop()

	require.NoError(t, p.Start())
	assert.NotEqual(t, first, p.SessionID(), "each start opens a new session")
	clock.Advance(DefaultTickInterval)
	sink.waitAppend(t)
	p.Stop()

	assert.Equal(t, 2, sink.count())
}

func TestPipelineRecordInvariants(t *testing.T) {
	cfg := DefaultConfig()
	cfg.FilterEnabled = false
	p, clock, sink := newTestPipeline(t, cfg)
	require.NoError(t, p.Start())
	defer p.Stop()

	for i := 0; i < 10; i++ {
		clock.Advance(DefaultTickInterval)
		sink.waitAppend(t)
	}

	for i, rec := range sink.all() {
		assert.InDelta(t, Norm3(rec.X, rec.Y, rec.Z), rec.ProcessedMagnitude, 1e-12,
			"record %d: processed magnitude must be the norm of its components", i)
		assert.Equal(t, cfg.Threshold, rec.Threshold)
		assert.Equal(t, cfg.Sensitivity, rec.Sensitivity)
		assert.False(t, rec.FilterEnabled)
		assert.NotEmpty(t, rec.SessionID)
	}
}

func TestPipelineConfigAppliesNextTick(t *testing.T) {
	p, clock, sink := newTestPipeline(t, DefaultConfig())
	require.NoError(t, p.Start())
	defer p.Stop()

	clock.Advance(DefaultTickInterval)
	sink.waitAppend(t)

	require.NoError(t, p.SetThreshold(9.5))
	require.NoError(t, p.SetSensitivity(units.High))
	p.SetFilterEnabled(false)
	require.NoError(t, p.SetSmoothingWindow(2))

	clock.Advance(DefaultTickInterval)
	sink.waitAppend(t)

	recs := sink.all()
	require.Len(t, recs, 2)
	assert.Equal(t, 2.0, recs[0].Threshold)
	assert.Equal(t, 9.5, recs[1].Threshold)
	assert.Equal(t, units.High, recs[1].Sensitivity)
	assert.False(t, recs[1].FilterEnabled)
}

func TestPipelineConfigValidationAtBoundary(t *testing.T) {
	p, _, _ := newTestPipeline(t, DefaultConfig())

	assert.Error(t, p.SetThreshold(0))
	assert.Error(t, p.SetThreshold(-3))
	assert.Error(t, p.SetSensitivity("Extreme"))
	assert.Error(t, p.SetSmoothingWindow(0))

	// Prior configuration intact after rejected updates.
	assert.Equal(t, DefaultConfig(), p.Config())
}

func TestPipelineSurvivesSinkFailure(t *testing.T) {
	p, clock, sink := newTestPipeline(t, DefaultConfig())
	require.NoError(t, p.Start())
	defer p.Stop()

	sink.mu.Lock()
	sink.fail = true
	sink.mu.Unlock()

	clock.Advance(DefaultTickInterval)
	sink.waitAppend(t)

	sink.mu.Lock()
	sink.fail = false
	sink.mu.Unlock()

	// The loop keeps producing after a failed emission.
	clock.Advance(DefaultTickInterval)
	sink.waitAppend(t)
	assert.Equal(t, 1, sink.count())
	assert.Equal(t, uint64(2), p.Ticks())
}

// TestStagesThresholdScenario drives the smoothing and detection stages with
// known magnitudes: raw x-values [1.0, 2.0, 3.5] through a window of 3 and a
// 2.0 threshold. The smoothed magnitudes are per-axis means, so alerts fire
// [false, false, true].
func TestStagesThresholdScenario(t *testing.T) {
	smoother := NewSmoother(3)
	detector := NewDetector(2.0)
	filter := NewNoiseFilter()

	inputs := []float64{1.0, 2.0, 3.5}
	wantMag := []float64{1.0, 1.5, 6.5 / 3.0}
	wantAlert := []bool{false, false, true}

	for i, v := range inputs {
		raw := testReading(i, v, 0, 0)
		filtered := filter.Apply(raw, false) // filter disabled: identity
		require.Equal(t, raw, filtered)

		processed := smoother.Apply(filtered)
		assert.InDelta(t, wantMag[i], processed.Magnitude, 1e-12, "tick %d", i)
		assert.Equal(t, wantAlert[i], detector.Check(processed.Magnitude), "tick %d", i)
	}
}

// TestStagesFilterPassthroughScenario checks that with the filter enabled but
// fewer than five ticks elapsed, every processed output matches its raw input.
func TestStagesFilterPassthroughScenario(t *testing.T) {
	smoother := NewSmoother(1)
	filter := NewNoiseFilter()

	for i := 0; i < 4; i++ {
		raw := testReading(i, 0.5*float64(i+1), -0.25, 0.1)
		filtered := filter.Apply(raw, true)
		require.Equal(t, raw, filtered, "tick %d should pass through the filter", i)

		processed := smoother.Apply(filtered)
		assert.InDelta(t, raw.Magnitude, processed.Magnitude, 1e-12, "tick %d", i)
	}
}
