package fidelity

// Default analysis policy values. All of these are configuration: zero
// values in Config select these defaults, explicit values override them.
const (
	// DefaultClippingThreshold is the absolute amplitude at or above which
	// a captured sample counts as clipped.
	DefaultClippingThreshold = 0.95

	// DefaultMinFlaggedFraction is the fraction of flagged samples that
	// must be exceeded before clipping is reported (0.5%).
	DefaultMinFlaggedFraction = 0.005

	// DefaultCaptureMargin is the capture length margin in seconds beyond
	// the reference duration. One second accommodates worst-case acoustic
	// and electronic path delay in typical room setups.
	DefaultCaptureMargin = 1.0
)

// Verdict detail constants
const (
	percentScale = 100 // flagged fraction to percentage
)

// Buffer sizing constants
const (
	// accumulatorSizeMultiplier oversizes the capture accumulator relative
	// to the readiness threshold so chunk arrival during analysis rarely
	// forces a grow.
	accumulatorSizeMultiplier = 2
)

// Session identifier length (truncated UUID).
const sessionIDLength = 12
