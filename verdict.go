package fidelity

import (
	"fmt"
	"time"
)

// VerdictCode identifies the outcome of one analysis cycle.
type VerdictCode int

const (
	// NoDistortionDetected means the aligned capture stayed consistent
	// with the reference within the configured clipping policy.
	NoDistortionDetected VerdictCode = iota

	// ClippingDetected means the flagged-sample fraction exceeded the
	// configured minimum.
	ClippingDetected

	// InsufficientData means there was nothing to compare: the captured
	// buffer was shorter than the reference, or alignment left no
	// overlapping samples.
	InsufficientData

	// AlignmentFailed means the cross-correlation stage could not produce
	// a usable lag estimate.
	AlignmentFailed
)

// String returns a human-readable verdict name.
func (c VerdictCode) String() string {
	switch c {
	case NoDistortionDetected:
		return "no distortion detected"
	case ClippingDetected:
		return "clipping detected"
	case InsufficientData:
		return "insufficient data"
	case AlignmentFailed:
		return "alignment failed"
	default:
		return fmt.Sprintf("unknown verdict (%d)", int(c))
	}
}

// Verdict is the result of one analysis cycle.
type Verdict struct {
	// Code is the outcome category.
	Code VerdictCode

	// FlaggedPercent is the percentage of compared samples flagged as
	// clipped. It is populated for both NoDistortionDetected and
	// ClippingDetected so callers can observe how close a pass was to
	// the reporting threshold.
	FlaggedPercent float64

	// Lag is the estimated capture delay in samples. Positive means the
	// capture device started before the tone arrived.
	Lag int

	// Confidence is the correlation peak magnitude relative to the RMS of
	// the whole correlation sequence. Higher means a sharper, more
	// trustworthy alignment.
	Confidence float64

	// Session identifies the Start/Stop span that produced this verdict.
	Session string

	// Cycle is the 1-based analysis cycle count within the session.
	Cycle uint64

	// Elapsed is how long the analysis cycle took.
	Elapsed time.Duration

	// Err carries the underlying cause for InsufficientData and
	// AlignmentFailed verdicts produced by the pipeline. It is nil for
	// the other codes.
	Err error
}

// Clipped reports whether the verdict indicates audible clipping.
func (v Verdict) Clipped() bool { return v.Code == ClippingDetected }

// Failed reports whether the analysis cycle failed to produce a
// distortion judgment.
func (v Verdict) Failed() bool {
	return v.Code == InsufficientData || v.Code == AlignmentFailed
}

// String formats the verdict for logs and CLI output.
func (v Verdict) String() string {
	switch v.Code {
	case NoDistortionDetected, ClippingDetected:
		return fmt.Sprintf("%s (%.2f%% flagged, lag %d, confidence %.1f)",
			v.Code, v.FlaggedPercent, v.Lag, v.Confidence)
	default:
		if v.Err != nil {
			return fmt.Sprintf("%s: %v", v.Code, v.Err)
		}
		return v.Code.String()
	}
}
