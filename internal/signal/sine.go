// Package signal generates the deterministic reference waveforms used as
// alignment and comparison baselines, and converts between sample precisions
// at the public API boundary.
package signal

import (
	"errors"
	"fmt"
	"math"
)

// Reference tone constants.
const (
	// DefaultAmplitude is the reference tone amplitude. It sits well below
	// typical clipping thresholds (0.95) so a faithfully reproduced
	// reference can never be flagged as clipped.
	DefaultAmplitude = 0.5

	twoPi = 2 * math.Pi
)

// ErrInvalidParameters indicates non-positive or unusable generation parameters.
var ErrInvalidParameters = errors.New("invalid signal parameters")

// Sine generates round(duration*sampleRate) samples of a sine tone at the
// default amplitude:
//
//	sample[i] = DefaultAmplitude * sin(2π * frequency * i / sampleRate)
//
// Generation is deterministic: identical parameters always produce identical
// samples. Frequency and sampleRate are in Hz, duration in seconds.
func Sine(frequency, sampleRate, duration float64) ([]float64, error) {
	return SineAmplitude(frequency, sampleRate, duration, DefaultAmplitude)
}

// SineAmplitude is Sine with a caller-chosen amplitude in (0, 1].
func SineAmplitude(frequency, sampleRate, duration, amplitude float64) ([]float64, error) {
	if frequency <= 0 {
		return nil, fmt.Errorf("%w: frequency must be positive, got %v", ErrInvalidParameters, frequency)
	}
	if sampleRate <= 0 {
		return nil, fmt.Errorf("%w: sample rate must be positive, got %v", ErrInvalidParameters, sampleRate)
	}
	if duration <= 0 {
		return nil, fmt.Errorf("%w: duration must be positive, got %v", ErrInvalidParameters, duration)
	}
	if amplitude <= 0 || amplitude > 1 {
		return nil, fmt.Errorf("%w: amplitude must be in (0, 1], got %v", ErrInvalidParameters, amplitude)
	}

	n := int(math.Round(duration * sampleRate))
	if n < 1 {
		return nil, fmt.Errorf("%w: duration %vs yields no samples at %v Hz", ErrInvalidParameters, duration, sampleRate)
	}

	step := twoPi * frequency / sampleRate
	out := make([]float64, n)
	for i := range n {
		out[i] = amplitude * math.Sin(step*float64(i))
	}
	return out, nil
}
