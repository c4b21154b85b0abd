package fidelity

import (
	"errors"
	"fmt"

	"github.com/tphakala/go-audio-fidelity/internal/align"
	"github.com/tphakala/go-audio-fidelity/internal/signal"
)

// Configuration and lifecycle errors.
var (
	// ErrInvalidConfig indicates invalid analyzer configuration.
	ErrInvalidConfig = errors.New("invalid analyzer configuration")

	// ErrAlreadyStarted indicates Start was called while a capture
	// session was already running.
	ErrAlreadyStarted = errors.New("analyzer already started")

	// ErrNotStarted indicates samples were pushed without an active
	// capture session.
	ErrNotStarted = errors.New("analyzer not started")

	// ErrClosed indicates the analyzer was closed and cannot be reused.
	ErrClosed = errors.New("analyzer closed")
)

// Analysis errors surfaced by the stateless entry points. The pipeline
// converts these into verdicts instead of returning them.
var (
	// ErrInvalidParameters indicates invalid reference tone parameters.
	ErrInvalidParameters = signal.ErrInvalidParameters

	// ErrInsufficientCapturedLength indicates the captured signal is too
	// short to correlate against the reference.
	ErrInsufficientCapturedLength = align.ErrInsufficientCapturedLength

	// ErrLagExceedsBufferLength indicates the estimated lag would discard
	// the entire captured signal.
	ErrLagExceedsBufferLength = align.ErrLagExceedsBufferLength

	// ErrWeakCorrelation indicates the correlation peak fell below the
	// configured confidence floor.
	ErrWeakCorrelation = align.ErrWeakCorrelation
)

// CorrelationMethod selects the cross-correlation engine.
type CorrelationMethod int

const (
	// CorrelationAuto picks the direct engine for short references and
	// the FFT engine for long ones.
	CorrelationAuto CorrelationMethod = iota

	// CorrelationDirect always uses direct SIMD dot products.
	CorrelationDirect

	// CorrelationFFT always uses the overlap-save FFT engine.
	CorrelationFFT
)

// String returns the method name.
func (m CorrelationMethod) String() string {
	switch m {
	case CorrelationAuto:
		return "auto"
	case CorrelationDirect:
		return "direct"
	case CorrelationFFT:
		return "fft"
	default:
		return fmt.Sprintf("unknown (%d)", int(m))
	}
}

// methodToAlign maps the public enum to the internal alignment engine
// selector.
func methodToAlign(m CorrelationMethod) align.Method {
	switch m {
	case CorrelationDirect:
		return align.MethodDirect
	case CorrelationFFT:
		return align.MethodFFT
	default:
		return align.MethodAuto
	}
}

// Config holds analyzer configuration.
//
// SampleRate, ToneFrequency and ToneDuration are required. The policy
// fields treat zero as "use the package default", so a minimal Config
// carries only the three signal parameters.
type Config struct {
	// SampleRate is the capture and reference sample rate in Hz.
	SampleRate float64

	// ToneFrequency is the reference sine frequency in Hz. It must be
	// below the Nyquist frequency (SampleRate / 2).
	ToneFrequency float64

	// ToneDuration is the reference tone length in seconds.
	ToneDuration float64

	// CaptureMargin is how many seconds of capture beyond the reference
	// duration must accumulate before an analysis cycle starts.
	// Zero selects DefaultCaptureMargin.
	CaptureMargin float64

	// ClippingThreshold is the absolute amplitude at or above which a
	// captured sample counts as clipped. Must be in (0, 1].
	// Zero selects DefaultClippingThreshold.
	ClippingThreshold float64

	// MinFlaggedFraction is the flagged-sample fraction that must be
	// exceeded (strictly) before clipping is reported. Must be below 1.
	// Zero selects DefaultMinFlaggedFraction; to report clipping on any
	// flagged sample, use a tiny positive value instead of zero.
	MinFlaggedFraction float64

	// MinPeakRatio rejects alignments whose correlation peak is weaker
	// than this multiple of the correlation RMS. Zero disables the gate.
	MinPeakRatio float64

	// Correlation selects the cross-correlation engine.
	Correlation CorrelationMethod

	// SingleShot stops the session after the first verdict. When false
	// the analyzer keeps capturing and re-analyzing until Stop.
	SingleShot bool

	// OnVerdict, when non-nil, receives each verdict from the analysis
	// worker goroutine. The callback must not call Close; Push, Stop and
	// LastVerdict are safe.
	OnVerdict func(Verdict)

	// Logger receives structured diagnostics. Nil disables logging.
	Logger Logger
}

// Validate checks configuration values.
func (c *Config) Validate() error {
	if c.SampleRate <= 0 {
		return fmt.Errorf("%w: sample rate must be positive, got %g", ErrInvalidConfig, c.SampleRate)
	}
	if c.ToneFrequency <= 0 {
		return fmt.Errorf("%w: tone frequency must be positive, got %g", ErrInvalidConfig, c.ToneFrequency)
	}
	if c.ToneFrequency >= c.SampleRate/2 {
		return fmt.Errorf("%w: tone frequency %g Hz is not below Nyquist (%g Hz)",
			ErrInvalidConfig, c.ToneFrequency, c.SampleRate/2)
	}
	if c.ToneDuration <= 0 {
		return fmt.Errorf("%w: tone duration must be positive, got %g", ErrInvalidConfig, c.ToneDuration)
	}
	if c.CaptureMargin < 0 {
		return fmt.Errorf("%w: capture margin must not be negative, got %g", ErrInvalidConfig, c.CaptureMargin)
	}
	if c.ClippingThreshold < 0 || c.ClippingThreshold > 1 {
		return fmt.Errorf("%w: clipping threshold must be in (0, 1], got %g", ErrInvalidConfig, c.ClippingThreshold)
	}
	if c.MinFlaggedFraction < 0 || c.MinFlaggedFraction >= 1 {
		return fmt.Errorf("%w: min flagged fraction must be in [0, 1), got %g", ErrInvalidConfig, c.MinFlaggedFraction)
	}
	if c.MinPeakRatio < 0 {
		return fmt.Errorf("%w: min peak ratio must not be negative, got %g", ErrInvalidConfig, c.MinPeakRatio)
	}
	if c.Correlation < CorrelationAuto || c.Correlation > CorrelationFFT {
		return fmt.Errorf("%w: unknown correlation method %d", ErrInvalidConfig, int(c.Correlation))
	}
	return nil
}

// withDefaults returns a copy of the configuration with zero-valued
// policy fields replaced by package defaults.
func (c *Config) withDefaults() Config {
	out := *c
	if out.CaptureMargin == 0 {
		out.CaptureMargin = DefaultCaptureMargin
	}
	if out.ClippingThreshold == 0 {
		out.ClippingThreshold = DefaultClippingThreshold
	}
	if out.MinFlaggedFraction == 0 {
		out.MinFlaggedFraction = DefaultMinFlaggedFraction
	}
	if out.Logger == nil {
		out.Logger = nopLogger{}
	}
	return out
}

// Info describes the effective analyzer parameters after defaults are
// applied.
type Info struct {
	SampleRate         float64
	ToneFrequency      float64
	ToneDuration       float64
	ReferenceLength    int
	RequiredLength     int
	CaptureMargin      float64
	ClippingThreshold  float64
	MinFlaggedFraction float64
	MinPeakRatio       float64
	Correlation        CorrelationMethod
	SingleShot         bool
}
