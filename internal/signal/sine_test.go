package signal

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestSine_Formula verifies each sample follows
// amplitude*sin(2*pi*f*i/rate).
func TestSine_Formula(t *testing.T) {
	freq, rate := 1000.0, 48000.0

	got, err := Sine(freq, rate, 0.01)
	require.NoError(t, err)
	require.Len(t, got, 480)

	step := 2 * math.Pi * freq / rate
	for i, v := range got {
		want := DefaultAmplitude * math.Sin(step*float64(i))
		assert.InDelta(t, want, v, 1e-12, "sample %d", i)
	}
}

// TestSine_FirstSampleIsZero verifies phase starts at zero.
func TestSine_FirstSampleIsZero(t *testing.T) {
	got, err := Sine(440, 44100, 0.1)
	require.NoError(t, err)
	assert.Zero(t, got[0])
}

// TestSine_Deterministic verifies repeated generation yields identical
// buffers.
func TestSine_Deterministic(t *testing.T) {
	a, err := Sine(997, 48000, 0.25)
	require.NoError(t, err)
	b, err := Sine(997, 48000, 0.25)
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

// TestSine_LengthRounding verifies the sample count is
// round(duration*rate), not a truncation.
func TestSine_LengthRounding(t *testing.T) {
	tests := []struct {
		name     string
		rate     float64
		duration float64
		wantLen  int
	}{
		{"exact", 48000, 0.5, 24000},
		{"rounds_down", 44100, 0.0001, 4},   // 4.41 -> 4
		{"rounds_half_up", 1000, 0.0025, 3}, // 2.5 -> 3
		{"single_sample", 1000, 0.001, 1},
		{"fractional_rate", 22050, 1.0, 22050},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Sine(100, tt.rate, tt.duration)
			require.NoError(t, err)
			assert.Len(t, got, tt.wantLen)
		})
	}
}

// TestSine_AmplitudeBound verifies samples never exceed the configured
// amplitude.
func TestSine_AmplitudeBound(t *testing.T) {
	got, err := Sine(1000, 48000, 0.5)
	require.NoError(t, err)
	for i, v := range got {
		assert.LessOrEqual(t, math.Abs(v), DefaultAmplitude, "sample %d", i)
	}
}

// TestSine_InvalidParameters verifies zero and negative parameters are
// rejected with ErrInvalidParameters.
func TestSine_InvalidParameters(t *testing.T) {
	tests := []struct {
		name     string
		freq     float64
		rate     float64
		duration float64
	}{
		{"zero_frequency", 0, 48000, 1},
		{"negative_frequency", -440, 48000, 1},
		{"zero_rate", 1000, 0, 1},
		{"negative_rate", 1000, -48000, 1},
		{"zero_duration", 1000, 48000, 0},
		{"negative_duration", 1000, 48000, -0.5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Sine(tt.freq, tt.rate, tt.duration)
			require.ErrorIs(t, err, ErrInvalidParameters)
			assert.Nil(t, got)
		})
	}
}

// TestSine_RoundsToZeroSamples verifies a duration too short to produce
// a single sample is rejected rather than returning an empty tone.
func TestSine_RoundsToZeroSamples(t *testing.T) {
	_, err := Sine(1000, 1000, 0.0001)
	require.ErrorIs(t, err, ErrInvalidParameters)
}

// TestSineAmplitude_CustomAmplitude verifies the amplitude override.
func TestSineAmplitude_CustomAmplitude(t *testing.T) {
	got, err := SineAmplitude(100, 8000, 0.01, 1.0)
	require.NoError(t, err)

	peak := 0.0
	for _, v := range got {
		if math.Abs(v) > peak {
			peak = math.Abs(v)
		}
	}
	assert.Greater(t, peak, 0.9)
}

// TestSineAmplitude_InvalidAmplitude verifies non-positive amplitudes
// are rejected.
func TestSineAmplitude_InvalidAmplitude(t *testing.T) {
	_, err := SineAmplitude(100, 8000, 0.01, 0)
	require.ErrorIs(t, err, ErrInvalidParameters)

	_, err = SineAmplitude(100, 8000, 0.01, -0.5)
	require.ErrorIs(t, err, ErrInvalidParameters)
}

// TestToFloat64_RoundTrip verifies float32 conversion preserves values
// representable in both widths.
func TestToFloat64_RoundTrip(t *testing.T) {
	src := []float32{0, 0.5, -0.5, 1, -1, 0.25}
	wide := ToFloat64(src)
	require.Len(t, wide, len(src))
	back := ToFloat32(wide)
	assert.Equal(t, src, back)
}

// TestToFloat64_Empty verifies empty input stays empty.
func TestToFloat64_Empty(t *testing.T) {
	assert.Empty(t, ToFloat64(nil))
	assert.Empty(t, ToFloat32(nil))
}
