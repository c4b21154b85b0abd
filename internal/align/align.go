// Package align estimates the integer sample lag between a captured signal
// and a reference signal by cross-correlation, and shifts the captured
// signal so the two are time-synchronous from index 0.
//
// Functions here are stateless: they take signals as input and return new
// values, owning no persistent data.
package align

import (
	"errors"
	"fmt"
	"math"

	"github.com/tphakala/simd/f64"
)

// Method selects the correlation engine.
type Method int

const (
	// MethodAuto selects direct or FFT correlation based on reference length.
	MethodAuto Method = iota

	// MethodDirect always uses sliding-dot-product correlation. O(n*m).
	MethodDirect

	// MethodFFT always uses frequency-domain correlation. O((n+m) log (n+m)).
	MethodFFT
)

// String returns the method name.
func (m Method) String() string {
	switch m {
	case MethodAuto:
		return "auto"
	case MethodDirect:
		return "direct"
	case MethodFFT:
		return "fft"
	default:
		return "unknown"
	}
}

// Common errors returned by alignment.
var (
	// ErrInsufficientCapturedLength indicates the captured signal is shorter
	// than the reference (or the reference is empty), so correlation is not
	// attempted. Recoverable by continuing capture.
	ErrInsufficientCapturedLength = errors.New("captured signal shorter than reference")

	// ErrLagExceedsBufferLength indicates the estimated lag would consume the
	// entire captured buffer. Recoverable by discarding the cycle; repeated
	// occurrence suggests a misconfigured capture margin.
	ErrLagExceedsBufferLength = errors.New("estimated lag exceeds captured buffer length")

	// ErrWeakCorrelation indicates the correlation peak fell below the
	// configured peak-to-RMS confidence threshold.
	ErrWeakCorrelation = errors.New("correlation peak below confidence threshold")
)

// Options controls alignment behavior.
type Options struct {
	// Method selects the correlation engine. MethodAuto switches to FFT
	// once the reference reaches minReferenceForFFT samples.
	Method Method

	// MinPeakRatio, when positive, rejects alignments whose peak-to-RMS
	// correlation ratio falls below it. Zero disables the gate, accepting
	// the global maximum unconditionally.
	MinPeakRatio float64
}

// Result holds the outcome of a successful alignment.
type Result struct {
	// Lag is the sample offset of the correlation peak. Positive means the
	// captured signal trails the reference; negative means it leads.
	Lag int

	// Aligned is the captured signal shifted to be time-synchronous with
	// the reference from index 0. It may share backing storage with the
	// captured input when no shift was needed.
	Aligned []float64

	// Peak is the correlation value at the winning offset.
	Peak float64

	// Confidence is the peak-to-RMS ratio over all correlation
	// coefficients. Higher values indicate a sharper, more trustworthy
	// peak; a flat or silent capture yields values near 1.
	Confidence float64
}

// Align estimates the lag of captured relative to reference and returns the
// lag-compensated captured signal.
//
// The captured signal must be at least as long as the reference. The
// correlation peak is located by scanning all n+m-1 full-overlap
// coefficients; ties are broken by the lowest index, i.e. the most negative
// candidate lag, for determinism across engines.
func Align(captured, reference []float64, opts Options) (Result, error) {
	n, m := len(captured), len(reference)
	if m == 0 {
		return Result{}, fmt.Errorf("%w: reference is empty", ErrInsufficientCapturedLength)
	}
	if n < m {
		return Result{}, fmt.Errorf("%w: captured %d samples, reference %d", ErrInsufficientCapturedLength, n, m)
	}

	corr := Correlate(captured, reference, opts.Method)

	peakIdx, peak := argmax(corr)
	confidence := peakConfidence(corr, peak)

	if opts.MinPeakRatio > 0 && confidence < opts.MinPeakRatio {
		return Result{}, fmt.Errorf("%w: peak ratio %.3f below minimum %.3f",
			ErrWeakCorrelation, confidence, opts.MinPeakRatio)
	}

	lag := peakIdx - (m - 1)

	aligned, err := ApplyLag(captured, lag)
	if err != nil {
		return Result{}, err
	}

	return Result{
		Lag:        lag,
		Aligned:    aligned,
		Peak:       peak,
		Confidence: confidence,
	}, nil
}

// ApplyLag shifts the captured signal by the given lag so it becomes
// time-synchronous with the reference:
//   - lag > 0: the first lag samples are dropped. Fails with
//     ErrLagExceedsBufferLength when lag >= len(captured), since that cannot
//     produce a non-empty aligned signal.
//   - lag < 0: |lag| zero samples are prepended.
//   - lag == 0: the captured signal is returned unchanged.
func ApplyLag(captured []float64, lag int) ([]float64, error) {
	switch {
	case lag > 0:
		if lag >= len(captured) {
			return nil, fmt.Errorf("%w: lag %d, captured %d samples",
				ErrLagExceedsBufferLength, lag, len(captured))
		}
		return captured[lag:], nil

	case lag < 0:
		pad := -lag
		out := make([]float64, pad+len(captured))
		copy(out[pad:], captured)
		return out, nil

	default:
		return captured, nil
	}
}

// argmax returns the index and value of the maximum element.
// Ties keep the lowest index: the scan only advances on a strictly
// greater value, so direct and FFT engines agree on tie-breaking.
func argmax(s []float64) (int, float64) {
	bestIdx, best := 0, s[0]
	for i := 1; i < len(s); i++ {
		if s[i] > best {
			bestIdx, best = i, s[i]
		}
	}
	return bestIdx, best
}

// peakConfidence computes |peak| / RMS over all correlation coefficients.
// Returns 0 for an identically zero correlation.
func peakConfidence(corr []float64, peak float64) float64 {
	energy := f64.DotProductUnsafe(corr, corr)
	if energy == 0 {
		return 0
	}
	rms := math.Sqrt(energy / float64(len(corr)))
	return math.Abs(peak) / rms
}
