// Package fidelity checks loudspeaker playback fidelity in pure Go.
//
// The analyzer plays a known sine reference tone through a speaker,
// captures it back through a microphone, time-aligns the capture
// against the reference by cross-correlation, and classifies the
// aligned overlap to detect clipping distortion.
//
// # Features
//
//   - Deterministic sine reference generation with clipping headroom
//   - Cross-correlation alignment with direct SIMD and overlap-save FFT
//     engines (github.com/tphakala/simd, gonum.org/v1/gonum/dsp/fourier)
//   - Amplitude-threshold clipping classification with tunable policy
//   - Streaming capture pipeline with a non-blocking push path and a
//     single analysis worker
//   - Single-shot smoke tests or continuous monitoring until stopped
//   - Pure Go implementation with no CGO dependencies
//
// # Quick Start
//
// For one-shot analysis of complete buffers:
//
//	verdict := fidelity.AnalyzeBuffers(captured, reference)
//	if verdict.Clipped() {
//	    log.Printf("speaker clipping: %.2f%% of samples", verdict.FlaggedPercent)
//	}
//
// For a live capture session:
//
//	analyzer, err := fidelity.New(&fidelity.Config{
//	    SampleRate:    48000,
//	    ToneFrequency: 1000,
//	    ToneDuration:  0.5,
//	    SingleShot:    true,
//	    OnVerdict: func(v fidelity.Verdict) {
//	        log.Println(v)
//	    },
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer analyzer.Close()
//
//	playback(analyzer.Reference()) // play the tone through the speaker
//
//	if err := analyzer.Start(); err != nil {
//	    log.Fatal(err)
//	}
//	for chunk := range captureChunks {
//	    if err := analyzer.Push(chunk); err != nil {
//	        break
//	    }
//	}
//	analyzer.Stop()
//
// # Architecture
//
// Analysis is a three-stage pipeline:
//
//	Capture -> [Alignment] -> [Classification] -> Verdict
//	           (lag estimate)  (clipping policy)
//
// Alignment computes the full linear cross-correlation between the
// captured signal and the reference, takes the peak coefficient as the
// delay estimate, and compensates the capture: positive lag drops
// leading samples, negative lag prepends silence. Classification then
// walks the aligned overlap and flags samples that sit at clipping
// amplitude in the capture where the reference does not. The flagged
// fraction decides the verdict.
//
// Short references correlate directly with SIMD dot products; long
// references switch to an overlap-save FFT engine. Both produce
// identical lag estimates, including on ties.
//
// # Verdicts
//
// Every analysis cycle produces exactly one [Verdict]:
//
//   - [NoDistortionDetected]: the capture matches the reference within
//     the clipping policy.
//   - [ClippingDetected]: the flagged fraction exceeded the policy
//     minimum. FlaggedPercent carries the measurement.
//   - [InsufficientData]: nothing to compare, such as a capture shorter
//     than the reference.
//   - [AlignmentFailed]: no usable lag estimate.
//
// Failed cycles never tear down a session: the pipeline reports the
// verdict and keeps capturing.
//
// # Thread Safety
//
// All [Analyzer] methods are safe for concurrent use. Push copies its
// chunk and performs no analysis work, so capture callbacks stay
// non-blocking; analysis runs on a dedicated worker goroutine with at
// most one cycle in flight. The stateless entry points are pure
// functions over their inputs.
package fidelity
