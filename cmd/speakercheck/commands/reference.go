package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	fidelity "github.com/tphakala/go-audio-fidelity"
)

var referenceOutput string

var referenceCmd = &cobra.Command{
	Use:   "reference",
	Short: "Write the reference tone to a WAV file",
	Long: `Reference generates the configured sine tone and writes it as a
16-bit mono PCM WAV file. Play this file through the device under test
while recording, then feed the recording to the analyze command.`,
	Example: `  speakercheck reference -o tone.wav
  speakercheck reference --tone 440 --duration 2 -o a440.wav`,
	Args: cobra.NoArgs,
	RunE: runReference,
}

func init() {
	referenceCmd.Flags().StringVarP(&referenceOutput, "output", "o", "reference.wav", "output WAV path")
	rootCmd.AddCommand(referenceCmd)
}

func runReference(cmd *cobra.Command, args []string) error {
	cfg, err := analyzerConfig()
	if err != nil {
		return err
	}

	analyzer, err := fidelity.New(cfg)
	if err != nil {
		return err
	}
	samples := analyzer.Reference()
	info := analyzer.Info()
	analyzer.Close()

	if err := writeWAVMono(referenceOutput, samples, int(cfg.SampleRate)); err != nil {
		return err
	}

	fmt.Println(renderToneInfo(info, infoRow("written to", referenceOutput)))
	return nil
}
