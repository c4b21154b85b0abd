package commands

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	fidelity "github.com/tphakala/go-audio-fidelity"
	resampling "github.com/tphakala/go-audio-resampling"
)

const (
	serveChunkDuration   = 100 * time.Millisecond
	serveDrainTimeout    = 5 * time.Second
	serveDrainInterval   = 20 * time.Millisecond
	serveShutdownTimeout = 3 * time.Second
)

var (
	serveListen string
	serveInput  string
	serveLoop   bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Monitor a capture stream and publish verdicts over websocket",
	Long: `Serve runs the analyzer continuously on a capture stream and publishes
one JSON verdict per completed cycle to websocket clients on /verdicts.

By default the stream is read from stdin as raw mono float32
little-endian PCM at the configured sample rate, which pairs with sox
or arecord. With --input a WAV file is replayed instead, paced at
real-time speed, which is useful for testing dashboards.`,
	Example: `  sox -d -t raw -r 48000 -c 1 -e float -b 32 - | speakercheck serve
  speakercheck serve --input capture.wav --loop --listen :9000`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveListen, "listen", ":8701", "websocket listen address")
	serveCmd.Flags().StringVar(&serveInput, "input", "", "replay a WAV file instead of reading stdin")
	serveCmd.Flags().BoolVar(&serveLoop, "loop", false, "repeat the --input file until interrupted")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := analyzerConfig()
	if err != nil {
		return err
	}

	broadcaster := newHub()
	cfg.SingleShot = false
	cfg.OnVerdict = func(v fidelity.Verdict) {
		broadcaster.broadcast(toWire(v))
		printVerdictLine(v)
		if IsVerbose() {
			fmt.Fprintf(os.Stderr, "broadcast cycle %d to %d clients\n", v.Cycle, broadcaster.clientCount())
		}
	}

	analyzer, err := fidelity.New(cfg)
	if err != nil {
		return err
	}
	info := analyzer.Info()

	mux := http.NewServeMux()
	mux.HandleFunc("/verdicts", broadcaster.handleWS)
	server := &http.Server{Addr: serveListen, Handler: mux}

	ln, err := net.Listen("tcp", serveListen)
	if err != nil {
		analyzer.Close()
		return fmt.Errorf("listen on %s: %w", serveListen, err)
	}

	serverErr := make(chan error, 1)
	go func() {
		if err := server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	source := "stdin (raw mono float32le)"
	if serveInput != "" {
		source = serveInput
	}
	fmt.Println(renderToneInfo(info,
		infoRow("listening", fmt.Sprintf("ws://%s/verdicts", displayAddr(serveListen))),
		infoRow("source", source),
	))

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := analyzer.Start(); err != nil {
		analyzer.Close()
		return err
	}

	feedDone := make(chan error, 1)
	go func() {
		if serveInput != "" {
			feedDone <- feedFile(ctx, analyzer, serveInput, cfg.SampleRate, serveLoop)
		} else {
			feedDone <- feedStdin(ctx, analyzer, info.RequiredLength)
		}
	}()

	var runErr error
	select {
	case <-ctx.Done():
	case err := <-feedDone:
		if err != nil {
			runErr = err
		} else {
			drainInFlight(analyzer)
		}
	case err := <-serverErr:
		runErr = fmt.Errorf("http server: %w", err)
	}

	analyzer.Stop()
	analyzer.Close()
	broadcaster.closeAll()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), serveShutdownTimeout)
	defer cancel()
	_ = server.Shutdown(shutdownCtx)

	return runErr
}

// printVerdictLine writes a one-line colored summary per cycle.
func printVerdictLine(v fidelity.Verdict) {
	tag := styles.Pass.Render("PASS")
	switch {
	case v.Clipped():
		tag = styles.Fail.Render("FAIL")
	case v.Failed():
		tag = styles.Warn.Render("WARN")
	}
	fmt.Printf("%s  cycle %-4d %s\n", tag, v.Cycle, v)
}

// feedStdin pushes raw mono float32 little-endian PCM from stdin until
// EOF. Chunks are sized to one analysis window so a healthy stream
// completes roughly one cycle per read.
func feedStdin(ctx context.Context, analyzer *fidelity.Analyzer, chunkSamples int) error {
	if chunkSamples < 1 {
		chunkSamples = 1
	}
	buf := make([]byte, chunkSamples*bytesPerFloat32)
	chunk := make([]float32, chunkSamples)

	for {
		if ctx.Err() != nil {
			return nil
		}

		n, err := io.ReadFull(os.Stdin, buf)
		if frames := n / bytesPerFloat32; frames > 0 {
			for i := range frames {
				chunk[i] = math.Float32frombits(binary.LittleEndian.Uint32(buf[i*bytesPerFloat32:]))
			}
			if perr := analyzer.PushFloat32(chunk[:frames]); perr != nil {
				return feedPushErr(perr)
			}
		}
		if err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
				return nil
			}
			return fmt.Errorf("read stdin: %w", err)
		}
	}
}

// feedFile replays a WAV file into the analyzer at real-time pace,
// resampling when the file rate differs from the analysis rate.
func feedFile(ctx context.Context, analyzer *fidelity.Analyzer, path string, rate float64, loop bool) error {
	samples, fileRate, err := readWAVMono(path)
	if err != nil {
		return err
	}
	if fileRate != rate {
		samples, err = resampling.ResampleMono(samples, fileRate, rate, resampling.QualityHigh)
		if err != nil {
			return fmt.Errorf("resample input: %w", err)
		}
	}

	chunkSamples := max(int(rate*serveChunkDuration.Seconds()), 1)
	ticker := time.NewTicker(serveChunkDuration)
	defer ticker.Stop()

	for {
		for off := 0; off < len(samples); off += chunkSamples {
			end := min(off+chunkSamples, len(samples))
			if perr := analyzer.Push(samples[off:end]); perr != nil {
				return feedPushErr(perr)
			}
			select {
			case <-ctx.Done():
				return nil
			case <-ticker.C:
			}
		}
		if !loop {
			return nil
		}
	}
}

// feedPushErr maps analyzer shutdown races to a clean exit.
func feedPushErr(err error) error {
	if errors.Is(err, fidelity.ErrNotStarted) || errors.Is(err, fidelity.ErrClosed) {
		return nil
	}
	return fmt.Errorf("push samples: %w", err)
}

// drainInFlight waits briefly for a dispatched analysis to publish its
// verdict before shutdown.
func drainInFlight(analyzer *fidelity.Analyzer) {
	deadline := time.Now().Add(serveDrainTimeout)
	for analyzer.State() == fidelity.StateAnalyzing && time.Now().Before(deadline) {
		time.Sleep(serveDrainInterval)
	}
}

// displayAddr rewrites a bare ":port" listen address into a dialable
// host for log output.
func displayAddr(addr string) string {
	host, port, err := net.SplitHostPort(addr)
	if err != nil {
		return addr
	}
	if host == "" {
		host = "localhost"
	}
	return net.JoinHostPort(host, port)
}
