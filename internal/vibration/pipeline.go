package vibration

import (
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/banshee-data/vibration.monitor/internal/monitoring"
	"github.com/banshee-data/vibration.monitor/internal/timeutil"
	"github.com/banshee-data/vibration.monitor/internal/units"
)

// DefaultTickInterval is the reference sampling cadence.
const DefaultTickInterval = 500 * time.Millisecond

// ErrAlreadyRunning is returned by Start when a worker is already active.
var ErrAlreadyRunning = errors.New("pipeline already running")

// State is the pipeline's lifecycle state.
type State string

// Pipeline states
const (
	StateIdle    State = "idle"
	StateRunning State = "running"
)

// Recorder is the sink boundary. The pipeline appends finished records and
// alert events; failures are logged and never halt the loop. Query methods
// live on the concrete sink, not here, because the pipeline only produces.
type Recorder interface {
	AppendRecord(rec LogRecord) error
	AppendAlert(ev AlertEvent) error
}

// Pipeline orchestrates the signal stages at a fixed cadence. Exactly one
// worker goroutine executes ticks; the Idle/Running state machine is the
// re-entrancy guard. The processing buffers (filter history, smoothing
// buffers) are owned exclusively by the worker, so the hot path takes no
// locks beyond the per-tick configuration snapshot.
//
// Stop is cooperative: the worker checks the stop channel only at tick
// boundaries, so an in-flight tick always completes. Stop returns only after
// the worker has exited, guaranteeing no further ticks execute afterwards.
// Buffers are not reset on stop; a subsequent Start resumes with the
// existing history, matching the reference behaviour.
type Pipeline struct {
	clock timeutil.Clock
	sink  Recorder

	source   *Source
	filter   *NoiseFilter
	smoother *Smoother
	detector *Detector

	// Interval is the tick cadence, read once at Start. Exposed so tools and
	// tests can run faster or slower than the production default.
	Interval time.Duration

	mu       sync.Mutex
	cfg      Config
	state    State
	stopping bool
	stop     chan struct{}
	done     chan struct{}
	session  string

	ticks atomic.Uint64
}

// NewPipeline wires the signal stages together. The clock and random source
// are injected so tests can replay exact sequences; production passes
// timeutil.RealClock{} and a time-seeded rand.
func NewPipeline(cfg Config, clock timeutil.Clock, rng *rand.Rand, sink Recorder) (*Pipeline, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid pipeline config: %w", err)
	}
	return &Pipeline{
		clock:    clock,
		sink:     sink,
		source:   NewSource(rng),
		filter:   NewNoiseFilter(),
		smoother: NewSmoother(cfg.SmoothingWindow),
		detector: NewDetector(cfg.Threshold),
		Interval: DefaultTickInterval,
		cfg:      cfg,
		state:    StateIdle,
	}, nil
}

// Start transitions Idle -> Running and spawns the cadence worker. Calling
// Start while already running returns ErrAlreadyRunning without spawning a
// second worker.
func (p *Pipeline) Start() error {
	p.mu.Lock()
	if p.state == StateRunning {
		p.mu.Unlock()
		return ErrAlreadyRunning
	}
	p.state = StateRunning
	p.stop = make(chan struct{})
	p.done = make(chan struct{})
	p.session = uuid.NewString()
	stop, done := p.stop, p.done
	interval := p.Interval
	// Create the ticker before the worker goroutine starts so that, once
	// Start returns, the clock already knows about it; otherwise an
	// immediately following mock-clock Advance can race ahead of the
	// worker's registration and its tick is lost.
	ticker := p.clock.NewTicker(interval)
	p.mu.Unlock()

	monitoring.Logf("pipeline started: session=%s interval=%s", p.SessionID(), interval)
	go p.run(ticker, stop, done)
	return nil
}

// Stop signals the worker to end after its current tick and waits for it to
// exit. Safe to call from any goroutine and when already idle; once Stop
// returns, no further records are emitted.
func (p *Pipeline) Stop() {
	p.mu.Lock()
	if p.state != StateRunning || p.stopping {
		p.mu.Unlock()
		return
	}
	p.stopping = true
	close(p.stop)
	done := p.done
	p.mu.Unlock()

	<-done

	p.mu.Lock()
	p.state = StateIdle
	p.stopping = false
	p.mu.Unlock()
	monitoring.Logf("pipeline stopped: session=%s ticks=%d", p.SessionID(), p.Ticks())
}

func (p *Pipeline) run(ticker timeutil.Ticker, stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)

	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case now := <-ticker.C():
			// A stop request that raced the tick wins; the tick is skipped
			// rather than started.
			select {
			case <-stop:
				return
			default:
			}
			p.tick(now)
		}
	}
}

// tick runs one pass of the pipeline: snapshot config, generate, filter,
// smooth, evaluate, emit. Sink failures are logged and the loop carries on.
func (p *Pipeline) tick(now time.Time) {
	p.mu.Lock()
	cfg := p.cfg
	session := p.session
	p.mu.Unlock()

	raw := p.source.Next(now, cfg.Source())
	filtered := p.filter.Apply(raw, cfg.FilterEnabled)

	p.smoother.Resize(cfg.SmoothingWindow)
	processed := p.smoother.Apply(filtered)

	if err := p.detector.SetThreshold(cfg.Threshold); err != nil {
		// Config is validated at the boundary, so this indicates a bug.
		monitoring.Logf("pipeline: refusing threshold %g: %v", cfg.Threshold, err)
	}
	alert := p.detector.Check(processed.Magnitude)

	rec := LogRecord{
		Timestamp:          now,
		SessionID:          session,
		RawMagnitude:       raw.Magnitude,
		ProcessedMagnitude: processed.Magnitude,
		X:                  processed.X,
		Y:                  processed.Y,
		Z:                  processed.Z,
		Alert:              alert,
		Threshold:          cfg.Threshold,
		Sensitivity:        cfg.Sensitivity,
		FilterEnabled:      cfg.FilterEnabled,
	}

	p.ticks.Add(1)

	if err := p.sink.AppendRecord(rec); err != nil {
		monitoring.Logf("pipeline: failed to record tick: %v", err)
	}

	if alert {
		ev := AlertEvent{
			Timestamp: now,
			SessionID: session,
			Magnitude: processed.Magnitude,
			Threshold: cfg.Threshold,
			Message:   fmt.Sprintf("vibration %.3f exceeded threshold %.3f", processed.Magnitude, cfg.Threshold),
			Severity:  ClassifySeverity(processed.Magnitude, cfg.Threshold),
		}
		if err := p.sink.AppendAlert(ev); err != nil {
			monitoring.Logf("pipeline: failed to record alert: %v", err)
		}
		monitoring.Debugf("alert: magnitude=%.3f threshold=%.3f severity=%s", ev.Magnitude, ev.Threshold, ev.Severity)
	}
}

// State returns the current lifecycle state.
func (p *Pipeline) State() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

// SessionID returns the identifier of the current (or most recent) session.
func (p *Pipeline) SessionID() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.session
}

// Ticks returns the number of ticks executed since construction.
func (p *Pipeline) Ticks() uint64 {
	return p.ticks.Load()
}

// Config returns a snapshot of the current configuration.
func (p *Pipeline) Config() Config {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.cfg
}

// SetThreshold updates the alert threshold. Applies from the next tick.
func (p *Pipeline) SetThreshold(t float64) error {
	if t <= 0 {
		return fmt.Errorf("threshold must be positive, got %g", t)
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.cfg.Threshold = t
	return nil
}

// SetSensitivity updates the source sensitivity level. Applies from the next
// tick; invalid levels are rejected and the prior level kept.
func (p *Pipeline) SetSensitivity(level units.Sensitivity) error {
	if !level.IsValid() {
		return fmt.Errorf("invalid sensitivity %q: must be one of Low, Medium, High", level)
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.cfg.Sensitivity = level
	return nil
}

// SetFilterEnabled toggles the noise filter. Applies from the next tick.
func (p *Pipeline) SetFilterEnabled(enabled bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.cfg.FilterEnabled = enabled
}

// SetSmoothingWindow updates the smoothing window. The buffers themselves are
// resized by the worker at the start of the next tick, preserving the most
// recent samples.
func (p *Pipeline) SetSmoothingWindow(n int) error {
	if n < 1 {
		return fmt.Errorf("smoothing window must be >= 1, got %d", n)
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.cfg.SmoothingWindow = n
	return nil
}
