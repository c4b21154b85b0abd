// Package testutil provides reusable helpers for fidelity analysis tests.
package testutil

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

// Default tolerances for various test scenarios.
const (
	DefaultTolerance = 1e-10
	LooseTolerance   = 1e-6
)

const twoPi = 2 * math.Pi

// Sine builds a sine test signal sample by sample, matching the
// reference generator formula.
func Sine(frequency, sampleRate, amplitude float64, n int) []float64 {
	out := make([]float64, n)
	step := twoPi * frequency / sampleRate
	for i := range n {
		out[i] = amplitude * math.Sin(step*float64(i))
	}
	return out
}

// Delay prepends lag zero samples, simulating capture that started
// before the tone arrived.
func Delay(s []float64, lag int) []float64 {
	out := make([]float64, lag+len(s))
	copy(out[lag:], s)
	return out
}

// Amplify scales every sample by gain.
func Amplify(s []float64, gain float64) []float64 {
	out := make([]float64, len(s))
	for i, v := range s {
		out[i] = v * gain
	}
	return out
}

// HardClip limits every sample to [-limit, limit], simulating an
// overdriven playback chain.
func HardClip(s []float64, limit float64) []float64 {
	out := make([]float64, len(s))
	for i, v := range s {
		switch {
		case v > limit:
			out[i] = limit
		case v < -limit:
			out[i] = -limit
		default:
			out[i] = v
		}
	}
	return out
}

// Pad appends n trailing zero samples.
func Pad(s []float64, n int) []float64 {
	out := make([]float64, len(s)+n)
	copy(out, s)
	return out
}

// NaiveCrossCorrelation computes the full linear cross-correlation by
// definition in O(n*m). Coefficient k sums captured[i]*reference[i-d]
// over valid i, where d = k-(len(reference)-1). It is the oracle the
// optimized engines are checked against.
func NaiveCrossCorrelation(captured, reference []float64) []float64 {
	n := len(captured)
	m := len(reference)
	out := make([]float64, n+m-1)
	for k := range out {
		d := k - (m - 1)
		var sum float64
		for i := range captured {
			j := i - d
			if j >= 0 && j < m {
				sum += captured[i] * reference[j]
			}
		}
		out[k] = sum
	}
	return out
}

// AssertNoNaNOrInf verifies that no elements in the slice are NaN or Inf.
func AssertNoNaNOrInf(t *testing.T, s []float64, msgAndArgs ...any) bool {
	t.Helper()
	for i, v := range s {
		if math.IsNaN(v) {
			return assert.Fail(t, "found NaN", "s[%d] is NaN", i)
		}
		if math.IsInf(v, 0) {
			return assert.Fail(t, "found Inf", "s[%d] is Inf", i)
		}
	}
	return true
}

// AssertAllInRange verifies that all elements are within [min, max].
func AssertAllInRange(t *testing.T, s []float64, minVal, maxVal float64, msgAndArgs ...any) bool {
	t.Helper()
	for i, v := range s {
		if v < minVal || v > maxVal {
			return assert.Fail(t, "value out of range",
				"s[%d]=%f is outside range [%f, %f]", i, v, minVal, maxVal)
		}
	}
	return true
}

// AssertInRange verifies that a value is within [min, max].
func AssertInRange(t *testing.T, value, minVal, maxVal float64, msgAndArgs ...any) bool {
	t.Helper()
	if value < minVal || value > maxVal {
		return assert.Fail(t, "value out of range",
			"value %f is outside range [%f, %f]", value, minVal, maxVal)
	}
	return true
}

// AssertSlicesInDelta verifies two slices match element-wise within
// tolerance.
func AssertSlicesInDelta(t *testing.T, expected, actual []float64, tolerance float64, msgAndArgs ...any) bool {
	t.Helper()
	if !assert.Len(t, actual, len(expected), msgAndArgs...) {
		return false
	}
	for i := range expected {
		if !assert.InDelta(t, expected[i], actual[i], tolerance,
			"mismatch at index %d: expected %g, got %g", i, expected[i], actual[i]) {
			return false
		}
	}
	return true
}

// AssertRelativeError verifies that the relative error between actual and expected is within tolerance.
func AssertRelativeError(t *testing.T, expected, actual, tolerance float64, msgAndArgs ...any) bool {
	t.Helper()
	if expected == 0 {
		return assert.InDelta(t, expected, actual, tolerance, msgAndArgs...)
	}
	relError := math.Abs(actual-expected) / math.Abs(expected)
	return assert.LessOrEqual(t, relError, tolerance,
		"relative error %e exceeds tolerance %e (expected=%f, actual=%f)",
		relError, tolerance, expected, actual)
}
