package commands

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	fidelity "github.com/tphakala/go-audio-fidelity"
)

// Theme defines the CLI color scheme.
type Theme struct {
	Pass  lipgloss.Color
	Fail  lipgloss.Color
	Warn  lipgloss.Color
	Dim   lipgloss.Color
	Frame lipgloss.Color
}

// DefaultTheme matches terminal conventions: green pass, red fail.
var DefaultTheme = Theme{
	Pass:  lipgloss.Color("#00ff9f"),
	Fail:  lipgloss.Color("#ff5f5f"),
	Warn:  lipgloss.Color("#ffd75f"),
	Dim:   lipgloss.Color("#6e7681"),
	Frame: lipgloss.Color("#3d444d"),
}

// Styles holds all styles derived from a theme.
type Styles struct {
	Pass  lipgloss.Style
	Fail  lipgloss.Style
	Warn  lipgloss.Style
	Label lipgloss.Style
	Value lipgloss.Style
	Panel lipgloss.Style
}

// NewStyles creates styles from a theme.
func NewStyles(t Theme) Styles {
	return Styles{
		Pass:  lipgloss.NewStyle().Bold(true).Foreground(t.Pass),
		Fail:  lipgloss.NewStyle().Bold(true).Foreground(t.Fail),
		Warn:  lipgloss.NewStyle().Bold(true).Foreground(t.Warn),
		Label: lipgloss.NewStyle().Foreground(t.Dim),
		Value: lipgloss.NewStyle(),
		Panel: lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(t.Frame).Padding(0, 1),
	}
}

var styles = NewStyles(DefaultTheme)

// infoRow formats an aligned label/value pair for panel output.
func infoRow(label, value string) string {
	return styles.Label.Render(fmt.Sprintf("%-14s", label)) + styles.Value.Render(value)
}

// headline picks the style and banner text for a verdict.
func headline(v fidelity.Verdict) string {
	switch v.Code {
	case fidelity.NoDistortionDetected:
		return styles.Pass.Render("PASS  " + v.Code.String())
	case fidelity.ClippingDetected:
		return styles.Fail.Render("FAIL  " + v.Code.String())
	default:
		return styles.Warn.Render("INCONCLUSIVE  " + v.Code.String())
	}
}

// renderVerdict renders the verdict panel shown after an analysis run.
func renderVerdict(v fidelity.Verdict, info fidelity.Info) string {
	lines := []string{headline(v), ""}

	switch v.Code {
	case fidelity.NoDistortionDetected, fidelity.ClippingDetected:
		lines = append(lines,
			infoRow("flagged", fmt.Sprintf("%.2f%% of compared samples", v.FlaggedPercent)),
			infoRow("lag", fmt.Sprintf("%d samples (%.1f ms)", v.Lag, 1000*float64(v.Lag)/info.SampleRate)),
			infoRow("confidence", fmt.Sprintf("%.1f peak-to-RMS", v.Confidence)),
		)
	default:
		if v.Err != nil {
			lines = append(lines, infoRow("cause", v.Err.Error()))
		}
	}

	lines = append(lines,
		infoRow("tone", fmt.Sprintf("%g Hz for %gs at %g Hz", info.ToneFrequency, info.ToneDuration, info.SampleRate)),
		infoRow("elapsed", v.Elapsed.String()),
	)

	return styles.Panel.Render(strings.Join(lines, "\n"))
}

// renderToneInfo renders the panel shown by the reference and play
// commands. Extra rows built with infoRow are appended verbatim.
func renderToneInfo(info fidelity.Info, extra ...string) string {
	lines := []string{
		styles.Pass.Render("REFERENCE TONE"),
		"",
		infoRow("frequency", fmt.Sprintf("%g Hz", info.ToneFrequency)),
		infoRow("duration", fmt.Sprintf("%gs (%d samples)", info.ToneDuration, info.ReferenceLength)),
		infoRow("sample rate", fmt.Sprintf("%g Hz", info.SampleRate)),
	}
	lines = append(lines, extra...)

	return styles.Panel.Render(strings.Join(lines, "\n"))
}
