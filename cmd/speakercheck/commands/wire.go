package commands

import (
	fidelity "github.com/tphakala/go-audio-fidelity"
)

// verdictWire is the JSON shape used by `analyze --json` and the serve
// WebSocket stream. Code strings are stable tokens, not display text.
type verdictWire struct {
	Code           string  `json:"code"`
	FlaggedPercent float64 `json:"flagged_percent"`
	Lag            int     `json:"lag"`
	Confidence     float64 `json:"confidence"`
	Session        string  `json:"session,omitempty"`
	Cycle          uint64  `json:"cycle,omitempty"`
	ElapsedMs      float64 `json:"elapsed_ms"`
	Error          string  `json:"error,omitempty"`
}

// wireCode maps verdict codes to their wire tokens.
func wireCode(c fidelity.VerdictCode) string {
	switch c {
	case fidelity.NoDistortionDetected:
		return "no_distortion"
	case fidelity.ClippingDetected:
		return "clipping"
	case fidelity.InsufficientData:
		return "insufficient_data"
	case fidelity.AlignmentFailed:
		return "alignment_failed"
	default:
		return "unknown"
	}
}

// toWire converts a verdict for JSON transport.
func toWire(v fidelity.Verdict) verdictWire {
	w := verdictWire{
		Code:           wireCode(v.Code),
		FlaggedPercent: v.FlaggedPercent,
		Lag:            v.Lag,
		Confidence:     v.Confidence,
		Session:        v.Session,
		Cycle:          v.Cycle,
		ElapsedMs:      float64(v.Elapsed.Microseconds()) / 1000,
	}
	if v.Err != nil {
		w.Error = v.Err.Error()
	}
	return w
}
