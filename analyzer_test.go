package fidelity

import (
	"errors"
	"log/slog"
	"sync"
	"testing"
	"time"
)

// Small, fast session parameters shared by the lifecycle tests:
// 160-sample reference, 80-sample margin, 240 samples per cycle.
func testConfig() *Config {
	return &Config{
		SampleRate:    8000,
		ToneFrequency: 1000,
		ToneDuration:  0.02,
		CaptureMargin: 0.01,
	}
}

const verdictWait = 5 * time.Second

// waitVerdict receives one verdict or fails the test.
func waitVerdict(t *testing.T, ch <-chan Verdict) Verdict {
	t.Helper()
	select {
	case v := <-ch:
		return v
	case <-time.After(verdictWait):
		t.Fatal("timed out waiting for verdict")
		return Verdict{}
	}
}

// TestNew_Validation verifies constructor rejection of bad configs.
func TestNew_Validation(t *testing.T) {
	if _, err := New(nil); !errors.Is(err, ErrInvalidConfig) {
		t.Fatalf("New(nil) error = %v, want ErrInvalidConfig", err)
	}

	cfg := testConfig()
	cfg.SampleRate = -1
	if _, err := New(cfg); !errors.Is(err, ErrInvalidConfig) {
		t.Fatalf("New with negative rate error = %v, want ErrInvalidConfig", err)
	}
}

// TestNew_Defaults verifies zero policy fields resolve to package
// defaults and the required length covers reference plus margin.
func TestNew_Defaults(t *testing.T) {
	a, err := New(&Config{SampleRate: 8000, ToneFrequency: 1000, ToneDuration: 0.02})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	defer a.Close()

	info := a.Info()
	if info.ClippingThreshold != DefaultClippingThreshold {
		t.Errorf("ClippingThreshold = %v, want %v", info.ClippingThreshold, DefaultClippingThreshold)
	}
	if info.MinFlaggedFraction != DefaultMinFlaggedFraction {
		t.Errorf("MinFlaggedFraction = %v, want %v", info.MinFlaggedFraction, DefaultMinFlaggedFraction)
	}
	if info.CaptureMargin != DefaultCaptureMargin {
		t.Errorf("CaptureMargin = %v, want %v", info.CaptureMargin, DefaultCaptureMargin)
	}
	if info.ReferenceLength != 160 {
		t.Errorf("ReferenceLength = %d, want 160", info.ReferenceLength)
	}
	// 160 reference samples + 1s margin at 8 kHz.
	if info.RequiredLength != 160+8000 {
		t.Errorf("RequiredLength = %d, want %d", info.RequiredLength, 160+8000)
	}
}

// TestAnalyzer_Lifecycle verifies the idle/capturing/analyzing state
// machine over a full single-shot session.
func TestAnalyzer_Lifecycle(t *testing.T) {
	verdicts := make(chan Verdict, 1)

	cfg := testConfig()
	cfg.SingleShot = true
	cfg.OnVerdict = func(v Verdict) { verdicts <- v }

	a, err := New(cfg)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	defer a.Close()

	if got := a.State(); got != StateIdle {
		t.Fatalf("initial state = %v, want idle", got)
	}
	if err := a.Push([]float64{0}); !errors.Is(err, ErrNotStarted) {
		t.Fatalf("Push before Start error = %v, want ErrNotStarted", err)
	}
	if _, ok := a.LastVerdict(); ok {
		t.Fatal("LastVerdict before any cycle should report none")
	}

	if err := a.Start(); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	if got := a.State(); got != StateCapturing {
		t.Fatalf("state after Start = %v, want capturing", got)
	}
	if err := a.Start(); !errors.Is(err, ErrAlreadyStarted) {
		t.Fatalf("second Start error = %v, want ErrAlreadyStarted", err)
	}

	// Feed silence until a cycle triggers.
	chunk := make([]float64, 64)
	for i := 0; i < 8; i++ {
		if err := a.Push(chunk); err != nil {
			if errors.Is(err, ErrNotStarted) {
				break // single-shot session already finished
			}
			t.Fatalf("Push failed: %v", err)
		}
	}

	v := waitVerdict(t, verdicts)
	if v.Cycle != 1 {
		t.Errorf("verdict cycle = %d, want 1", v.Cycle)
	}
	if v.Session == "" {
		t.Error("verdict session is empty")
	}

	// Single-shot: the session ended with the verdict.
	if got := a.State(); got != StateIdle {
		t.Errorf("state after single-shot verdict = %v, want idle", got)
	}

	last, ok := a.LastVerdict()
	if !ok {
		t.Fatal("LastVerdict reports none after a completed cycle")
	}
	if last.Code != v.Code || last.Cycle != v.Cycle {
		t.Errorf("LastVerdict = %+v, want %+v", last, v)
	}
}

// TestAnalyzer_DelayedCleanCapture verifies end to end that a delayed,
// faithful playback echo passes with the injected lag recovered.
func TestAnalyzer_DelayedCleanCapture(t *testing.T) {
	const lag = 37

	verdicts := make(chan Verdict, 1)

	cfg := testConfig()
	cfg.SingleShot = true
	cfg.OnVerdict = func(v Verdict) { verdicts <- v }

	a, err := New(cfg)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	defer a.Close()

	ref := a.Reference()
	captured := make([]float64, lag+len(ref)+100)
	copy(captured[lag:], ref)

	if err := a.Start(); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	pushAll(t, a, captured, 64)

	v := waitVerdict(t, verdicts)
	if v.Code != NoDistortionDetected {
		t.Fatalf("verdict = %v, want no distortion", v)
	}
	if v.Lag != lag {
		t.Errorf("lag = %d, want %d", v.Lag, lag)
	}
	if v.FlaggedPercent != 0 {
		t.Errorf("flagged percent = %v, want 0", v.FlaggedPercent)
	}
	if v.Confidence <= 1 {
		t.Errorf("confidence = %v, want > 1", v.Confidence)
	}
}

// TestAnalyzer_OverdrivenCapture verifies end to end that a clipped echo
// is detected and the flagged percentage reported.
func TestAnalyzer_OverdrivenCapture(t *testing.T) {
	const lag = 53

	verdicts := make(chan Verdict, 1)

	cfg := testConfig()
	cfg.SingleShot = true
	cfg.OnVerdict = func(v Verdict) { verdicts <- v }

	a, err := New(cfg)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	defer a.Close()

	// Overdrive the reference 2.4x and clip at full scale, as a speaker
	// driven past its limits would.
	ref := a.Reference()
	captured := make([]float64, lag+len(ref)+100)
	for i, s := range ref {
		s *= 2.4
		if s > 1 {
			s = 1
		} else if s < -1 {
			s = -1
		}
		captured[lag+i] = s
	}

	if err := a.Start(); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	pushAll(t, a, captured, 64)

	v := waitVerdict(t, verdicts)
	if v.Code != ClippingDetected {
		t.Fatalf("verdict = %v, want clipping", v)
	}
	if v.Lag != lag {
		t.Errorf("lag = %d, want %d", v.Lag, lag)
	}
	if v.FlaggedPercent <= 0.5 {
		t.Errorf("flagged percent = %v, want well above reporting threshold", v.FlaggedPercent)
	}
	if !v.Clipped() {
		t.Error("Clipped() = false on a clipping verdict")
	}
}

// TestAnalyzer_ContinuousCycles verifies a continuous session produces
// repeated verdicts with increasing cycle numbers until stopped.
func TestAnalyzer_ContinuousCycles(t *testing.T) {
	verdicts := make(chan Verdict, 8)

	cfg := testConfig()
	cfg.OnVerdict = func(v Verdict) { verdicts <- v }

	a, err := New(cfg)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	defer a.Close()

	if err := a.Start(); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	// Delayed echo with trailing room, replayed over and over.
	ref := a.Reference()
	echo := make([]float64, len(ref)+100)
	copy(echo[20:], ref)

	var got []Verdict
	deadline := time.After(verdictWait)
	for len(got) < 3 {
		if err := a.Push(echo[:64]); err != nil {
			t.Fatalf("Push failed: %v", err)
		}
		if err := a.Push(echo[64:]); err != nil {
			t.Fatalf("Push failed: %v", err)
		}
		select {
		case v := <-verdicts:
			got = append(got, v)
		case <-deadline:
			t.Fatalf("timed out after %d verdicts", len(got))
		default:
		}
	}

	a.Stop()

	for i := 1; i < len(got); i++ {
		if got[i].Cycle != got[i-1].Cycle+1 {
			t.Errorf("cycle numbers not sequential: %d then %d", got[i-1].Cycle, got[i].Cycle)
		}
		if got[i].Session != got[0].Session {
			t.Errorf("session changed mid-run: %q then %q", got[0].Session, got[i].Session)
		}
	}
}

// TestAnalyzer_StopDiscardsInFlightVerdict verifies a cycle still in
// flight when Stop is called never surfaces: the callback is blocked on
// the first verdict, a second cycle is queued, Stop ends the session,
// and only the first verdict is ever delivered.
func TestAnalyzer_StopDiscardsInFlightVerdict(t *testing.T) {
	calls := make(chan Verdict, 4)
	gate := make(chan struct{})

	cfg := testConfig()
	cfg.OnVerdict = func(v Verdict) {
		calls <- v
		<-gate
	}

	a, err := New(cfg)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	if err := a.Start(); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	// First cycle: fills the requirement, worker publishes and then
	// blocks in the callback.
	if err := a.Push(make([]float64, a.Info().RequiredLength)); err != nil {
		t.Fatalf("Push failed: %v", err)
	}
	first := waitVerdict(t, calls)
	if first.Cycle != 1 {
		t.Fatalf("first verdict cycle = %d, want 1", first.Cycle)
	}

	// Second cycle: queued while the worker is blocked.
	if err := a.Push(make([]float64, a.Info().RequiredLength)); err != nil {
		t.Fatalf("Push failed: %v", err)
	}

	// End the session before the worker can publish cycle 2, then
	// release it.
	a.Stop()
	close(gate)
	a.Close()

	select {
	case v := <-calls:
		t.Fatalf("verdict %+v delivered after Stop", v)
	default:
	}

	last, ok := a.LastVerdict()
	if !ok {
		t.Fatal("LastVerdict lost after Stop")
	}
	if last.Cycle != 1 {
		t.Errorf("LastVerdict cycle = %d, want 1 (cycle 2 should be discarded)", last.Cycle)
	}
}

// TestAnalyzer_StopIsIdempotent verifies repeated Stop calls are safe in
// any state.
func TestAnalyzer_StopIsIdempotent(t *testing.T) {
	a, err := New(testConfig())
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	defer a.Close()

	a.Stop()
	a.Stop()

	if err := a.Start(); err != nil {
		t.Fatalf("Start after idle Stop failed: %v", err)
	}
	a.Stop()
	a.Stop()

	if got := a.State(); got != StateIdle {
		t.Errorf("state = %v, want idle", got)
	}
}

// TestAnalyzer_StopDiscardsPartialCapture verifies samples accumulated
// before Stop never leak into the next session.
func TestAnalyzer_StopDiscardsPartialCapture(t *testing.T) {
	verdicts := make(chan Verdict, 1)

	cfg := testConfig()
	cfg.SingleShot = true
	cfg.OnVerdict = func(v Verdict) { verdicts <- v }

	a, err := New(cfg)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	defer a.Close()

	if err := a.Start(); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	// Almost enough to trigger, then abandon.
	if err := a.Push(make([]float64, a.Info().RequiredLength-1)); err != nil {
		t.Fatalf("Push failed: %v", err)
	}
	a.Stop()

	if err := a.Start(); err != nil {
		t.Fatalf("restart failed: %v", err)
	}
	// One sample would complete the old requirement; a fresh session
	// must not fire on it.
	if err := a.Push(make([]float64, 1)); err != nil {
		t.Fatalf("Push failed: %v", err)
	}
	select {
	case v := <-verdicts:
		t.Fatalf("unexpected verdict %+v from stale capture", v)
	case <-time.After(100 * time.Millisecond):
	}
	a.Stop()
}

// TestAnalyzer_CloseRejectsFurtherUse verifies Close is terminal.
func TestAnalyzer_CloseRejectsFurtherUse(t *testing.T) {
	a, err := New(testConfig())
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	if err := a.Start(); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	a.Close()
	a.Close() // idempotent

	if err := a.Start(); !errors.Is(err, ErrClosed) {
		t.Fatalf("Start after Close error = %v, want ErrClosed", err)
	}
	if err := a.Push([]float64{0}); !errors.Is(err, ErrClosed) {
		t.Fatalf("Push after Close error = %v, want ErrClosed", err)
	}
}

// TestAnalyzer_PushFloat32 verifies the float32 capture path produces
// the same judgment as float64.
func TestAnalyzer_PushFloat32(t *testing.T) {
	verdicts := make(chan Verdict, 1)

	cfg := testConfig()
	cfg.SingleShot = true
	cfg.OnVerdict = func(v Verdict) { verdicts <- v }

	a, err := New(cfg)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	defer a.Close()

	const lag = 16
	ref := a.ReferenceFloat32()
	captured := make([]float32, lag+len(ref)+100)
	copy(captured[lag:], ref)

	if err := a.Start(); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	if err := a.PushFloat32(captured); err != nil {
		t.Fatalf("PushFloat32 failed: %v", err)
	}

	v := waitVerdict(t, verdicts)
	if v.Code != NoDistortionDetected {
		t.Fatalf("verdict = %v, want no distortion", v)
	}
	if v.Lag != lag {
		t.Errorf("lag = %d, want %d", v.Lag, lag)
	}
}

// TestAnalyzer_ReferenceReturnsCopy verifies callers cannot corrupt the
// analyzer's reference tone.
func TestAnalyzer_ReferenceReturnsCopy(t *testing.T) {
	a, err := New(testConfig())
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	defer a.Close()

	ref := a.Reference()
	ref[0] = 42

	if again := a.Reference(); again[0] == 42 {
		t.Error("Reference exposes internal storage")
	}
}

// pushAll streams a buffer into the analyzer in fixed-size chunks,
// tolerating the session ending early in single-shot mode.
func pushAll(t *testing.T, a *Analyzer, samples []float64, chunkSize int) {
	t.Helper()
	for start := 0; start < len(samples); start += chunkSize {
		end := start + chunkSize
		if end > len(samples) {
			end = len(samples)
		}
		if err := a.Push(samples[start:end]); err != nil {
			if errors.Is(err, ErrNotStarted) {
				return
			}
			t.Fatalf("Push failed: %v", err)
		}
	}
}

// The analyzer's logging interface must stay satisfiable by the standard
// structured logger.
var _ Logger = (*slog.Logger)(nil)

// recordingLogger captures log messages for assertions.
type recordingLogger struct {
	mu       sync.Mutex
	messages []string
}

func (l *recordingLogger) record(msg string) {
	l.mu.Lock()
	l.messages = append(l.messages, msg)
	l.mu.Unlock()
}

func (l *recordingLogger) snapshot() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.messages...)
}

func (l *recordingLogger) has(msg string) bool {
	for _, m := range l.snapshot() {
		if m == msg {
			return true
		}
	}
	return false
}

func (l *recordingLogger) Debug(msg string, args ...any) { l.record(msg) }
func (l *recordingLogger) Info(msg string, args ...any)  { l.record(msg) }
func (l *recordingLogger) Warn(msg string, args ...any)  { l.record(msg) }
func (l *recordingLogger) Error(msg string, args ...any) { l.record(msg) }

// TestAnalyzer_Logging verifies session lifecycle events flow through
// the configured logger.
func TestAnalyzer_Logging(t *testing.T) {
	log := &recordingLogger{}
	verdicts := make(chan Verdict, 1)

	cfg := testConfig()
	cfg.Logger = log
	cfg.SingleShot = true
	cfg.OnVerdict = func(v Verdict) { verdicts <- v }

	a, err := New(cfg)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	defer a.Close()

	if err := a.Start(); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	pushAll(t, a, make([]float64, a.Info().RequiredLength), 64)
	waitVerdict(t, verdicts)

	for _, want := range []string{"capture session started", "analysis cycle dispatched", "verdict"} {
		if !log.has(want) {
			t.Errorf("missing log message %q; got %v", want, log.snapshot())
		}
	}
}
