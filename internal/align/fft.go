package align

import (
	"github.com/tphakala/simd/c128"
	"github.com/tphakala/simd/f64"
	"gonum.org/v1/gonum/dsp/fourier"
)

// FFT correlation constants.
const (
	// Minimum reference length to use FFT correlation (below this, the
	// direct sliding dot product is faster). The crossover sits around
	// 400-500 samples with gonum FFT; typical test tones run to tens of
	// thousands of samples, well past it.
	minReferenceForFFT = 400

	// Default FFT block size (power of 2 for efficiency)
	defaultFFTBlockSize = 512

	// fftHermitianDivisor is used to calculate unique frequency bins in a
	// real FFT. Due to Hermitian symmetry, a real FFT of size N has
	// N/2 + 1 unique complex coefficients.
	fftHermitianDivisor = 2
)

// FFTCorrelator computes sliding dot products against a fixed reference via
// overlap-save FFT blocks. This is O(N log N) vs O(N×M) for the direct
// engine, beneficial for long references.
//
// Overlap-save method:
//  1. Process the padded signal in blocks of fftSize samples (with
//     refLen-1 overlap)
//  2. Each block produces blockSize = fftSize - refLen + 1 valid coefficients
//  3. The first refLen-1 outputs of each block are discarded (circular wrap)
type FFTCorrelator struct {
	fft       *fourier.FFT
	fftSize   int
	blockSize int // Valid coefficients per block = fftSize - refLen + 1

	// Precomputed reference spectrum
	refFFT []complex128
	refLen int
	fftLen int     // Length of FFT output = fftSize/2 + 1
	scale  float64 // 1/fftSize for IFFT normalization (gonum doesn't normalize)

	// Working buffers (pre-allocated for zero allocation while correlating)
	signalBlock []float64
	signalFFT   []complex128
	productFFT  []complex128
	ifftResult  []float64
}

// NewFFTCorrelator creates an FFT correlator for the given reference.
// The reference spectrum is computed once and reused for all correlations.
func NewFFTCorrelator(reference []float64) *FFTCorrelator {
	refLen := len(reference)
	if refLen == 0 {
		return nil
	}

	// Choose FFT size: next power of 2 >= 2*refLen for good efficiency
	fftSize := defaultFFTBlockSize
	for fftSize < 2*refLen {
		fftSize *= 2
	}

	// Valid coefficients per block (overlap-save method)
	blockSize := fftSize - refLen + 1

	fft := fourier.NewFFT(fftSize)

	// Precompute the reference spectrum (zero-padded to fftSize).
	// IMPORTANT: the reference is time-reversed first. FFT circular
	// convolution computes y[n] = sum(x[(n-k) mod N] * h[k]); the sliding
	// dot product we need is y[n] = sum(x[n+k] * h[k]). Reversing h turns
	// the former into the latter.
	refPadded := make([]float64, fftSize)
	for i := range refLen {
		refPadded[i] = reference[refLen-1-i]
	}
	refFFT := fft.Coefficients(nil, refPadded)

	fftLen := fftSize/fftHermitianDivisor + 1

	return &FFTCorrelator{
		fft:         fft,
		fftSize:     fftSize,
		blockSize:   blockSize,
		refFFT:      refFFT,
		refLen:      refLen,
		fftLen:      fftLen,
		scale:       1.0 / float64(fftSize),
		signalBlock: make([]float64, fftSize),
		signalFFT:   make([]complex128, fftLen),
		productFFT:  make([]complex128, fftLen),
		ifftResult:  make([]float64, fftSize),
	}
}

// Correlate fills dst with the sliding dot products of signal against the
// reference. dst must have length >= len(signal) - refLen + 1.
func (c *FFTCorrelator) Correlate(dst, signal []float64) {
	signalLen := len(signal)
	outputLen := signalLen - c.refLen + 1
	if outputLen <= 0 || len(dst) < outputLen {
		return
	}

	// Overlap-save with the reversed reference:
	// - Each FFT block produces blockSize valid coefficients
	// - Block b reads signal[b*blockSize : b*blockSize + fftSize]
	//   (zero-padded at the end if needed)
	// - Output y[refLen-1 + i] corresponds to the dot product at position
	//   b*blockSize + i
	// - The first (refLen-1) outputs are discarded (circular wrap artifacts)

	outIdx := 0
	overlap := c.refLen - 1

	for outIdx < outputLen {
		// Clear the signal block
		for i := range c.signalBlock {
			c.signalBlock[i] = 0
		}

		// Copy signal starting at position outIdx (which is b*blockSize).
		// We need fftSize samples, but may have fewer near the end.
		copyLen := c.fftSize
		if outIdx+copyLen > signalLen {
			copyLen = signalLen - outIdx
		}
		if copyLen > 0 {
			copy(c.signalBlock, signal[outIdx:outIdx+copyLen])
		}

		// FFT of signal block
		c.signalFFT = c.fft.Coefficients(c.signalFFT, c.signalBlock)

		// Multiply spectra using SIMD
		c128.Mul(c.productFFT, c.signalFFT, c.refFFT)

		// IFFT
		c.ifftResult = c.fft.Sequence(c.ifftResult, c.productFFT)

		// Scale by 1/N (gonum's IFFT doesn't normalize)
		f64.Scale(c.ifftResult, c.ifftResult, c.scale)

		// Valid coefficients start at offset 'overlap' (= refLen - 1)
		validSamples := c.blockSize
		if outIdx+validSamples > outputLen {
			validSamples = outputLen - outIdx
		}

		copy(dst[outIdx:outIdx+validSamples], c.ifftResult[overlap:overlap+validSamples])

		outIdx += validSamples
	}
}
