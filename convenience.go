package fidelity

import (
	"github.com/tphakala/go-audio-fidelity/internal/align"
	"github.com/tphakala/go-audio-fidelity/internal/classify"
	"github.com/tphakala/go-audio-fidelity/internal/signal"
)

// Common sample rates for convenience functions.
const (
	// RateCD is the CD quality sample rate (Red Book standard).
	RateCD = 44100

	// RateDAT is the DAT/DVD sample rate.
	RateDAT = 48000

	// RateHiRes96 is the high-resolution 2x DAT sample rate.
	RateHiRes96 = 96000

	// RateTelephony is the telephony (PSTN narrowband) sample rate.
	RateTelephony = 8000

	// RateVoIP is the VoIP wideband sample rate.
	RateVoIP = 16000
)

// Common reference tone frequencies.
const (
	// ToneStandard is the standard 1 kHz audio test tone.
	ToneStandard = 1000.0

	// ToneA440 is concert pitch A4.
	ToneA440 = 440.0
)

// NewSpeakerCheck creates a single-shot analyzer with the standard
// 1 kHz test tone at 48 kHz and default policy. This is the most common
// smoke-test configuration.
func NewSpeakerCheck(toneDuration float64) (*Analyzer, error) {
	return New(&Config{
		SampleRate:    RateDAT,
		ToneFrequency: ToneStandard,
		ToneDuration:  toneDuration,
		SingleShot:    true,
	})
}

// NewMonitor creates a continuous analyzer that keeps re-analyzing the
// capture stream until stopped, delivering each verdict to onVerdict.
func NewMonitor(sampleRate, toneFrequency, toneDuration float64, onVerdict func(Verdict)) (*Analyzer, error) {
	return New(&Config{
		SampleRate:    sampleRate,
		ToneFrequency: toneFrequency,
		ToneDuration:  toneDuration,
		OnVerdict:     onVerdict,
	})
}

// GenerateReference generates the sine reference tone played back
// during a fidelity check. Sample i is
// amplitude * sin(2*pi*frequency*i/sampleRate) with amplitude 0.5,
// leaving headroom so the playback chain itself does not clip.
func GenerateReference(frequency, sampleRate, duration float64) ([]float64, error) {
	return signal.Sine(frequency, sampleRate, duration)
}

// Align estimates the capture delay against the reference by
// cross-correlation and compensates for it. It returns the estimated
// lag in samples together with the lag-compensated capture.
func Align(captured, reference []float64) (int, []float64, error) {
	res, err := align.Align(captured, reference, align.Options{})
	if err != nil {
		return 0, nil, err
	}
	return res.Lag, res.Aligned, nil
}

// Classify compares an aligned capture against the reference sample by
// sample and reports clipping. Zero-valued policy parameters select
// DefaultClippingThreshold and DefaultMinFlaggedFraction.
func Classify(aligned, reference []float64, clippingThreshold, minFlaggedFraction float64) Verdict {
	if clippingThreshold == 0 {
		clippingThreshold = DefaultClippingThreshold
	}
	if minFlaggedFraction == 0 {
		minFlaggedFraction = DefaultMinFlaggedFraction
	}

	outcome := classify.Clipping(aligned, reference, classify.Policy{
		ClippingThreshold:  clippingThreshold,
		MinFlaggedFraction: minFlaggedFraction,
	})

	v := Verdict{FlaggedPercent: outcome.Fraction * percentScale}
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

// AnalyzeBuffers runs one complete analysis cycle on in-memory buffers
// with default policy: align the capture against the reference, then
// classify the overlap. Alignment failures are reported through the
// verdict code, never as an error, matching the session pipeline.
func AnalyzeBuffers(captured, reference []float64) Verdict {
	return runCycle(captured, reference, align.Options{}, classify.Policy{
		ClippingThreshold:  DefaultClippingThreshold,
		MinFlaggedFraction: DefaultMinFlaggedFraction,
	})
}

// ====== Float32 Native API ======
//
// Capture backends commonly deliver 32-bit float PCM. These mirrors
// convert at the boundary; analysis always runs in float64.

// GenerateReferenceFloat32 is GenerateReference for float32 pipelines.
func GenerateReferenceFloat32(frequency, sampleRate, duration float64) ([]float32, error) {
	ref, err := signal.Sine(frequency, sampleRate, duration)
	if err != nil {
		return nil, err
	}
	return signal.ToFloat32(ref), nil
}

// AlignFloat32 is Align for float32 buffers.
func AlignFloat32(captured, reference []float32) (int, []float32, error) {
	lag, aligned, err := Align(signal.ToFloat64(captured), signal.ToFloat64(reference))
	if err != nil {
		return 0, nil, err
	}
	return lag, signal.ToFloat32(aligned), nil
}

// AnalyzeBuffersFloat32 is AnalyzeBuffers for float32 buffers.
func AnalyzeBuffersFloat32(captured, reference []float32) Verdict {
	return AnalyzeBuffers(signal.ToFloat64(captured), signal.ToFloat64(reference))
}
