package fidelity

import (
	"errors"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/tphakala/go-audio-fidelity/internal/align"
	"github.com/tphakala/go-audio-fidelity/internal/capture"
	"github.com/tphakala/go-audio-fidelity/internal/classify"
	"github.com/tphakala/go-audio-fidelity/internal/signal"
)

// State is the analyzer lifecycle state.
type State int

const (
	// StateIdle means no capture session is active.
	StateIdle State = iota

	// StateCapturing means pushed samples accumulate toward the next
	// analysis cycle.
	StateCapturing

	// StateAnalyzing means an analysis cycle is running on the worker
	// while capture continues into a fresh buffer.
	StateAnalyzing
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateCapturing:
		return "capturing"
	case StateAnalyzing:
		return "analyzing"
	default:
		return fmt.Sprintf("unknown (%d)", int(s))
	}
}

// Analyzer runs the capture-align-classify pipeline.
//
// Producers push captured chunks with Push; analysis runs on a single
// worker goroutine so the push path stays non-blocking. All methods are
// safe for concurrent use.
type Analyzer struct {
	cfg            Config
	reference      []float64
	requiredLength int
	alignOpts      align.Options
	policy         classify.Policy
	log            Logger

	mu            sync.Mutex
	state         State
	session       string
	cycle         uint64
	acc           *capture.Accumulator
	last          Verdict
	hasLast       bool
	closed        bool
	workerRunning bool

	jobs chan analysisJob
	done chan struct{}
	wg   sync.WaitGroup
}

// analysisJob carries one capture snapshot to the worker. The session
// and cycle stamps let the publish checkpoint discard results whose
// session ended while the analysis ran.
type analysisJob struct {
	captured []float64
	session  string
	cycle    uint64
}

// New creates an analyzer and generates its reference tone.
//
// The returned analyzer is idle; call Start to begin a capture session
// and Close to release the analysis worker when done.
func New(config *Config) (*Analyzer, error) {
	if config == nil {
		return nil, fmt.Errorf("%w: config is nil", ErrInvalidConfig)
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}

	cfg := config.withDefaults()

	reference, err := signal.Sine(cfg.ToneFrequency, cfg.SampleRate, cfg.ToneDuration)
	if err != nil {
		return nil, fmt.Errorf("generate reference tone: %w", err)
	}

	margin := int(math.Round(cfg.CaptureMargin * cfg.SampleRate))
	required := len(reference) + margin

	return &Analyzer{
		cfg:            cfg,
		reference:      reference,
		requiredLength: required,
		alignOpts: align.Options{
			Method:       methodToAlign(cfg.Correlation),
			MinPeakRatio: cfg.MinPeakRatio,
		},
		policy: classify.Policy{
			ClippingThreshold:  cfg.ClippingThreshold,
			MinFlaggedFraction: cfg.MinFlaggedFraction,
		},
		log:   cfg.Logger,
		state: StateIdle,
		acc:   capture.NewAccumulator(required * accumulatorSizeMultiplier),
		jobs:  make(chan analysisJob, 1),
		done:  make(chan struct{}),
	}, nil
}

// Start begins a capture session. The accumulator is cleared, so
// samples pushed before Start never leak into the new session.
func (a *Analyzer) Start() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.closed {
		return ErrClosed
	}
	if a.state != StateIdle {
		return fmt.Errorf("%w: state is %s", ErrAlreadyStarted, a.state)
	}

	if !a.workerRunning {
		a.workerRunning = true
		a.wg.Add(1)
		go a.worker()
	}

	a.acc.Reset()
	a.session = uuid.New().String()[:sessionIDLength]
	a.cycle = 0
	a.state = StateCapturing

	a.log.Info("capture session started",
		"session", a.session,
		"required_samples", a.requiredLength,
		"single_shot", a.cfg.SingleShot)
	return nil
}

// Push appends a captured chunk to the current session.
//
// The chunk is copied; the caller may reuse its slice immediately. Push
// performs no analysis work itself: when enough samples have
// accumulated it hands a snapshot to the worker and returns.
func (a *Analyzer) Push(chunk []float64) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.closed {
		return ErrClosed
	}
	if a.state == StateIdle {
		return ErrNotStarted
	}

	a.acc.Append(chunk)
	a.maybeDispatchLocked()
	return nil
}

// PushFloat32 is Push for float32 capture chunks.
func (a *Analyzer) PushFloat32(chunk []float32) error {
	return a.Push(signal.ToFloat64(chunk))
}

// maybeDispatchLocked starts an analysis cycle if the session is
// capturing and enough samples have accumulated. Caller must hold mu.
//
// The snapshot swap leaves the accumulator empty, so capture continues
// into a fresh buffer while the worker owns the snapshot exclusively.
// At most one cycle is in flight, so the buffered send cannot block.
func (a *Analyzer) maybeDispatchLocked() {
	if a.state != StateCapturing || !a.acc.Ready(a.requiredLength) {
		return
	}

	snapshot := a.acc.TakeSnapshot()
	a.cycle++
	a.state = StateAnalyzing

	a.log.Debug("analysis cycle dispatched",
		"session", a.session,
		"cycle", a.cycle,
		"samples", len(snapshot))

	a.jobs <- analysisJob{captured: snapshot, session: a.session, cycle: a.cycle}
}

// Stop ends the current capture session and discards any samples that
// have not been analyzed. An analysis cycle already in flight completes
// on the worker but its verdict is discarded at the publish checkpoint,
// so no new verdict is recorded once Stop returns. The last recorded
// verdict remains available. Stop is idempotent.
func (a *Analyzer) Stop() {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.state == StateIdle {
		return
	}

	session := a.session
	a.state = StateIdle
	a.session = ""
	a.acc.Reset()

	// Drop a dispatched job the worker has not picked up yet. A job the
	// worker already holds is discarded at the publish checkpoint.
	select {
	case <-a.jobs:
	default:
	}

	a.log.Info("capture session stopped", "session", session)
}

// Close stops the session and shuts down the analysis worker. It blocks
// until the worker exits, so no OnVerdict callback runs after Close
// returns. The analyzer cannot be restarted afterwards.
func (a *Analyzer) Close() {
	a.mu.Lock()
	if a.closed {
		a.mu.Unlock()
		return
	}
	a.closed = true
	a.state = StateIdle
	a.session = ""
	a.acc.Reset()
	close(a.done)
	a.mu.Unlock()

	a.wg.Wait()
}

// State returns the current lifecycle state.
func (a *Analyzer) State() State {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.state
}

// LastVerdict returns the most recent verdict, if any. It survives Stop
// and is only replaced by the next completed cycle.
func (a *Analyzer) LastVerdict() (Verdict, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.last, a.hasLast
}

// Reference returns a copy of the generated reference tone for playback.
func (a *Analyzer) Reference() []float64 {
	out := make([]float64, len(a.reference))
	copy(out, a.reference)
	return out
}

// ReferenceFloat32 returns the reference tone as float32 samples for
// playback backends that consume 32-bit PCM.
func (a *Analyzer) ReferenceFloat32() []float32 {
	return signal.ToFloat32(a.reference)
}

// Info returns the effective analyzer parameters.
func (a *Analyzer) Info() Info {
	return Info{
		SampleRate:         a.cfg.SampleRate,
		ToneFrequency:      a.cfg.ToneFrequency,
		ToneDuration:       a.cfg.ToneDuration,
		ReferenceLength:    len(a.reference),
		RequiredLength:     a.requiredLength,
		CaptureMargin:      a.cfg.CaptureMargin,
		ClippingThreshold:  a.cfg.ClippingThreshold,
		MinFlaggedFraction: a.cfg.MinFlaggedFraction,
		MinPeakRatio:       a.cfg.MinPeakRatio,
		Correlation:        a.cfg.Correlation,
		SingleShot:         a.cfg.SingleShot,
	}
}

// AnalyzeBuffer runs one synchronous analysis cycle on a complete
// captured buffer, bypassing the session state machine. It uses the
// analyzer's reference tone and policy and does not touch session
// state, so it is safe to call on an idle analyzer.
func (a *Analyzer) AnalyzeBuffer(captured []float64) Verdict {
	return a.analyze(analysisJob{captured: captured})
}

// worker consumes analysis jobs until Close.
func (a *Analyzer) worker() {
	defer a.wg.Done()
	for {
		select {
		case <-a.done:
			return
		case job := <-a.jobs:
			verdict := a.analyze(job)
			a.publish(job, verdict)
		}
	}
}

// analyze runs one capture snapshot through the cycle and stamps the
// result with its session identity.
func (a *Analyzer) analyze(job analysisJob) Verdict {
	v := runCycle(job.captured, a.reference, a.alignOpts, a.policy)
	v.Session = job.session
	v.Cycle = job.cycle

	if v.Err != nil && errors.Is(v.Err, align.ErrLagExceedsBufferLength) {
		a.log.Warn("estimated lag discards entire capture, consider a larger capture margin",
			"session", job.session,
			"cycle", job.cycle,
			"err", v.Err)
	}
	return v
}

// runCycle is one complete analysis cycle: align the capture against
// the reference, classify the overlap, and map analysis errors to
// verdict codes. Alignment errors become verdicts rather than being
// returned, so a failed cycle never tears down the pipeline.
func runCycle(captured, reference []float64, opts align.Options, policy classify.Policy) Verdict {
	start := time.Now()
	var v Verdict

	res, err := align.Align(captured, reference, opts)
	if err != nil {
		v.Err = err
		if errors.Is(err, align.ErrInsufficientCapturedLength) {
			v.Code = InsufficientData
		} else {
			v.Code = AlignmentFailed
		}
		v.Elapsed = time.Since(start)
		return v
	}

	v.Lag = res.Lag
	v.Confidence = res.Confidence

	outcome := classify.Clipping(res.Aligned, reference, policy)
	v.FlaggedPercent = outcome.Fraction * percentScale
	v.Elapsed = time.Since(start)

	switch {
	case outcome.Compared == 0:
		v.Code = InsufficientData
	case outcome.Clipped:
		v.Code = ClippingDetected
	default:
		v.Code = NoDistortionDetected
	}
	return v
}

// publish records a finished verdict if its session is still active.
// This is the single checkpoint where Stop takes effect for in-flight
// cycles: a stopped or replaced session discards the result wholesale,
// so a verdict is either fully recorded before Stop returns or never.
func (a *Analyzer) publish(job analysisJob, v Verdict) {
	a.mu.Lock()

	if a.state != StateAnalyzing || a.session != job.session {
		a.mu.Unlock()
		a.log.Debug("verdict discarded, session ended during analysis",
			"session", job.session,
			"cycle", job.cycle)
		return
	}

	a.last = v
	a.hasLast = true

	if a.cfg.SingleShot {
		a.state = StateIdle
		a.session = ""
		a.acc.Reset()
	} else {
		a.state = StateCapturing
		// Capture kept accumulating during analysis; the next cycle may
		// already be ready.
		a.maybeDispatchLocked()
	}
	a.mu.Unlock()

	a.log.Info("verdict",
		"session", job.session,
		"cycle", job.cycle,
		"code", v.Code.String(),
		"flagged_percent", v.FlaggedPercent,
		"lag", v.Lag,
		"confidence", v.Confidence,
		"elapsed", v.Elapsed)

	if cb := a.cfg.OnVerdict; cb != nil {
		cb(v)
	}
}
