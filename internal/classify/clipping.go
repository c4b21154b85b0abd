// Package classify compares an aligned captured signal against the
// reference over their common window and classifies distortion introduced
// by the playback and capture path.
package classify

import (
	"math"
)

// Policy holds the clipping decision parameters. Both values are
// configuration, supplied by the caller; the root package owns defaults
// and validation.
type Policy struct {
	// ClippingThreshold is the absolute amplitude at or above which a
	// captured sample counts as clipped, in (0, 1].
	ClippingThreshold float64

	// MinFlaggedFraction is the fraction of flagged samples that must be
	// strictly exceeded before clipping is reported, in [0, 1].
	MinFlaggedFraction float64
}

// Outcome is the result of one classification pass.
type Outcome struct {
	// Compared is the number of samples examined: the shorter of the two
	// input lengths. Zero means there was nothing to compare.
	Compared int

	// Flagged counts samples clipped in the captured signal but not in the
	// reference at the same index.
	Flagged int

	// Fraction is Flagged / Compared, or 0 when Compared is 0.
	Fraction float64

	// Clipped reports whether Fraction strictly exceeds MinFlaggedFraction.
	Clipped bool
}

// Clipping classifies amplitude clipping over the common prefix of the two
// signals. A sample is flagged when the captured amplitude reaches the
// threshold while the reference amplitude stays below it, which isolates
// distortion added by the playback chain from loud content already present
// in the source.
//
// Classification is pure: identical inputs always yield identical outcomes.
func Clipping(aligned, reference []float64, p Policy) Outcome {
	compared := min(len(aligned), len(reference))
	if compared == 0 {
		return Outcome{}
	}

	flagged := 0
	for i := range compared {
		if math.Abs(aligned[i]) >= p.ClippingThreshold && math.Abs(reference[i]) < p.ClippingThreshold {
			flagged++
		}
	}

	fraction := float64(flagged) / float64(compared)

	return Outcome{
		Compared: compared,
		Flagged:  flagged,
		Fraction: fraction,
		Clipped:  fraction > p.MinFlaggedFraction,
	}
}
