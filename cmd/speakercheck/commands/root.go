// Package commands implements the speakercheck CLI commands.
package commands

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	fidelity "github.com/tphakala/go-audio-fidelity"
	"github.com/tphakala/go-audio-fidelity/cmd/speakercheck/internal/config"
)

var (
	// Global flags
	verbose bool
	cfgFile string

	// Analysis parameter flags. Zero values fall back to the settings
	// file, which in turn falls back to package defaults.
	flagRate      float64
	flagTone      float64
	flagDuration  float64
	flagMargin    float64
	flagThreshold float64
	flagFraction  float64
	flagPeakRatio float64
	flagMethod    string

	// Settings loaded at init time.
	settings    *config.Settings
	settingsErr error
)

var rootCmd = &cobra.Command{
	Use:   "speakercheck",
	Short: "Loudspeaker fidelity analyzer",
	Long: `speakercheck - Check loudspeaker playback fidelity with a test tone.

The workflow plays a known sine reference tone through the speaker under
test, records it with a microphone, and analyzes the recording: the
capture is time-aligned against the reference by cross-correlation and
scanned for clipping distortion.

Examples:
  # Write the reference tone, play it while recording externally,
  # then analyze the recording
  speakercheck reference -o tone.wav
  speakercheck play
  speakercheck analyze capture.wav

  # Continuous monitoring: stream raw float32 PCM into the analyzer and
  # watch verdicts over WebSocket
  sox -d -t raw -e float -b 32 -r 48000 -c 1 - | speakercheck serve

Settings are stored in the OS config directory:
  macOS:   ~/Library/Application Support/speakercheck/config.yaml
  Linux:   ~/.config/speakercheck/config.yaml
  Windows: %AppData%/speakercheck/config.yaml

Flags override the settings file for a single run.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initSettings)

	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "settings file (default: OS config dir)")
	rootCmd.PersistentFlags().Float64Var(&flagRate, "rate", 0, "sample rate in Hz")
	rootCmd.PersistentFlags().Float64Var(&flagTone, "tone", 0, "reference tone frequency in Hz")
	rootCmd.PersistentFlags().Float64Var(&flagDuration, "duration", 0, "reference tone duration in seconds")
	rootCmd.PersistentFlags().Float64Var(&flagMargin, "margin", 0, "capture margin in seconds beyond the tone")
	rootCmd.PersistentFlags().Float64Var(&flagThreshold, "clipping-threshold", 0, "amplitude at which a sample counts as clipped")
	rootCmd.PersistentFlags().Float64Var(&flagFraction, "min-flagged-fraction", 0, "flagged fraction that must be exceeded to report clipping")
	rootCmd.PersistentFlags().Float64Var(&flagPeakRatio, "min-peak-ratio", 0, "minimum correlation peak-to-RMS ratio (0 disables)")
	rootCmd.PersistentFlags().StringVar(&flagMethod, "method", "", "correlation engine: auto, direct or fft")
}

func initSettings() {
	settings, settingsErr = config.Load(cfgFile)
}

// mergedSettings applies command line overrides on top of the settings
// file.
func mergedSettings() (*config.Settings, error) {
	if settingsErr != nil {
		return nil, fmt.Errorf("settings not available: %w", settingsErr)
	}

	s := *settings
	flags := rootCmd.PersistentFlags()
	if flags.Changed("rate") {
		s.SampleRate = flagRate
	}
	if flags.Changed("tone") {
		s.ToneFrequency = flagTone
	}
	if flags.Changed("duration") {
		s.ToneDuration = flagDuration
	}
	if flags.Changed("margin") {
		s.CaptureMargin = flagMargin
	}
	if flags.Changed("clipping-threshold") {
		s.ClippingThreshold = flagThreshold
	}
	if flags.Changed("min-flagged-fraction") {
		s.MinFlaggedFraction = flagFraction
	}
	if flags.Changed("min-peak-ratio") {
		s.MinPeakRatio = flagPeakRatio
	}
	if flags.Changed("method") {
		s.Correlation = flagMethod
	}
	return &s, nil
}

// analyzerConfig merges the settings file with command line overrides
// into an analyzer configuration.
func analyzerConfig() (*fidelity.Config, error) {
	s, err := mergedSettings()
	if err != nil {
		return nil, err
	}

	method, err := parseMethod(s.Correlation)
	if err != nil {
		return nil, err
	}

	return &fidelity.Config{
		SampleRate:         s.SampleRate,
		ToneFrequency:      s.ToneFrequency,
		ToneDuration:       s.ToneDuration,
		CaptureMargin:      s.CaptureMargin,
		ClippingThreshold:  s.ClippingThreshold,
		MinFlaggedFraction: s.MinFlaggedFraction,
		MinPeakRatio:       s.MinPeakRatio,
		Correlation:        method,
		Logger:             newLogger(),
	}, nil
}

// parseMethod maps the settings string to a correlation engine.
func parseMethod(name string) (fidelity.CorrelationMethod, error) {
	switch name {
	case "", "auto":
		return fidelity.CorrelationAuto, nil
	case "direct":
		return fidelity.CorrelationDirect, nil
	case "fft":
		return fidelity.CorrelationFFT, nil
	default:
		return 0, fmt.Errorf("unknown correlation method %q (want auto, direct or fft)", name)
	}
}

// newLogger builds the structured logger handed to the analyzer. Verbose
// mode surfaces per-cycle diagnostics; otherwise only warnings show.
func newLogger() *slog.Logger {
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

// IsVerbose returns whether verbose mode is enabled.
func IsVerbose() bool {
	return verbose
}
