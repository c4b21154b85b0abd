package align

import (
	"github.com/tphakala/simd/f64"
)

// Correlate computes the full-overlap linear cross-correlation of captured
// (length n) against reference (length m), producing n+m-1 coefficients.
// Coefficient k sums captured[i]*reference[i-(k-(m-1))] over valid
// overlapping indices, with the signals treated as zero outside their
// bounds. Accumulation is double precision throughout.
//
// Both engines compute the same sliding dot product over a zero-padded copy
// of the captured signal, so their coefficient layouts are identical:
//
//	padded  = [m-1 zeros] captured [m-1 zeros]
//	corr[k] = sum_j padded[k+j] * reference[j]
//
// Inputs must satisfy len(captured) >= len(reference) >= 1; Align validates
// this before calling.
func Correlate(captured, reference []float64, method Method) []float64 {
	n, m := len(captured), len(reference)

	padded := make([]float64, n+2*(m-1))
	copy(padded[m-1:], captured)

	corr := make([]float64, n+m-1)

	useFFT := method == MethodFFT || (method == MethodAuto && m >= minReferenceForFFT)
	if useFFT {
		if c := NewFFTCorrelator(reference); c != nil {
			c.Correlate(corr, padded)
			return corr
		}
	}

	f64.ConvolveValid(corr, padded, reference)
	return corr
}
