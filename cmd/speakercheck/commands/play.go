package commands

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"math"
	"time"

	"github.com/ebitengine/oto/v3"
	"github.com/spf13/cobra"

	fidelity "github.com/tphakala/go-audio-fidelity"
)

const (
	bytesPerFloat32  = 4
	playPollInterval = 50 * time.Millisecond
)

var playCmd = &cobra.Command{
	Use:   "play",
	Short: "Play the reference tone through the default output device",
	Long: `Play renders the configured sine tone on the default audio output.
Start a recording first, run play, then analyze the recording.`,
	Example: `  speakercheck play
  speakercheck play --tone 440 --duration 2`,
	Args: cobra.NoArgs,
	RunE: runPlay,
}

func init() {
	rootCmd.AddCommand(playCmd)
}

func runPlay(cmd *cobra.Command, args []string) error {
	cfg, err := analyzerConfig()
	if err != nil {
		return err
	}

	analyzer, err := fidelity.New(cfg)
	if err != nil {
		return err
	}
	reference := analyzer.ReferenceFloat32()
	info := analyzer.Info()
	analyzer.Close()

	data := make([]byte, len(reference)*bytesPerFloat32)
	for i, s := range reference {
		binary.LittleEndian.PutUint32(data[i*bytesPerFloat32:], math.Float32bits(s))
	}

	op := &oto.NewContextOptions{
		SampleRate:   int(cfg.SampleRate),
		ChannelCount: 1,
		Format:       oto.FormatFloat32LE,
	}
	otoCtx, ready, err := oto.NewContext(op)
	if err != nil {
		return fmt.Errorf("open audio output: %w", err)
	}
	<-ready

	player := otoCtx.NewPlayer(bytes.NewReader(data))
	player.Play()
	for player.IsPlaying() {
		time.Sleep(playPollInterval)
	}
	if err := player.Close(); err != nil {
		return fmt.Errorf("close audio player: %w", err)
	}

	fmt.Println(renderToneInfo(info, infoRow("played", "default output device")))
	return nil
}
