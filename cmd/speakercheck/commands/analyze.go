package commands

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	fidelity "github.com/tphakala/go-audio-fidelity"
	resampling "github.com/tphakala/go-audio-resampling"
)

// Exit codes for scripted use.
const (
	exitClipping       = 1
	exitAnalysisFailed = 2
)

// exitFunc is swapped in tests.
var exitFunc = os.Exit

var analyzeJSON bool

var analyzeCmd = &cobra.Command{
	Use:   "analyze <capture.wav>",
	Short: "Analyze a captured recording against the reference tone",
	Long: `Analyze compares a recorded WAV file against the configured reference
tone and reports whether the playback chain clipped the signal.

The capture should contain the reference tone as played through the
device under test, recorded with enough surrounding headroom to cover
the playback delay. Captures at a different sample rate are resampled
to the configured rate before analysis.

Exit codes: 0 when no distortion is detected, 1 when clipping is
detected, 2 when the analysis itself fails.`,
	Example: `  speakercheck analyze capture.wav
  speakercheck analyze --rate 44100 --tone 440 capture.wav
  speakercheck analyze --json capture.wav | jq .code`,
	Args: cobra.ExactArgs(1),
	RunE: runAnalyze,
}

func init() {
	analyzeCmd.Flags().BoolVar(&analyzeJSON, "json", false, "print the verdict as JSON")
	rootCmd.AddCommand(analyzeCmd)
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	cfg, err := analyzerConfig()
	if err != nil {
		return err
	}

	samples, fileRate, err := readWAVMono(args[0])
	if err != nil {
		return err
	}

	if fileRate != cfg.SampleRate {
		if IsVerbose() {
			fmt.Fprintf(os.Stderr, "resampling capture from %.0f Hz to %.0f Hz\n", fileRate, cfg.SampleRate)
		}
		samples, err = resampling.ResampleMono(samples, fileRate, cfg.SampleRate, resampling.QualityHigh)
		if err != nil {
			return fmt.Errorf("resample capture: %w", err)
		}
	}

	analyzer, err := fidelity.New(cfg)
	if err != nil {
		return err
	}
	info := analyzer.Info()

	verdict := analyzer.AnalyzeBuffer(samples)
	analyzer.Close()

	if analyzeJSON {
		out, err := json.MarshalIndent(toWire(verdict), "", "  ")
		if err != nil {
			return fmt.Errorf("encode verdict: %w", err)
		}
		fmt.Println(string(out))
	} else {
		fmt.Println(renderVerdict(verdict, info))
	}

	switch {
	case verdict.Failed():
		exitFunc(exitAnalysisFailed)
	case verdict.Clipped():
		exitFunc(exitClipping)
	}
	return nil
}
