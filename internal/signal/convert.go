package signal

// ToFloat64 converts float32 samples to float64.
// Correlation and classification run in float64 internally; float32 inputs
// from capture callbacks are widened once at the boundary.
func ToFloat64(src []float32) []float64 {
	dst := make([]float64, len(src))
	for i, v := range src {
		dst[i] = float64(v)
	}
	return dst
}

// ToFloat32 converts float64 samples to float32 for playback and storage
// collaborators that expect single precision.
func ToFloat32(src []float64) []float32 {
	dst := make([]float32, len(src))
	for i, v := range src {
		dst[i] = float32(v)
	}
	return dst
}
