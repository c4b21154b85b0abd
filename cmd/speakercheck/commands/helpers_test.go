package commands

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	fidelity "github.com/tphakala/go-audio-fidelity"
)

// runCmd executes the root command with args, capturing stdout, stderr
// and the exit code that would have been used.
func runCmd(t *testing.T, args ...string) (stdout, stderr string, exitCode int) {
	t.Helper()

	oldStdout := os.Stdout
	oldStderr := os.Stderr

	rOut, wOut, _ := os.Pipe()
	rErr, wErr, _ := os.Pipe()
	os.Stdout = wOut
	os.Stderr = wErr

	verbose = false
	analyzeJSON = false

	exitFunc = func(code int) {
		if exitCode == 0 {
			exitCode = code
		}
	}
	defer func() { exitFunc = os.Exit }()

	rootCmd.SetArgs(args)
	err := rootCmd.Execute()

	wOut.Close()
	wErr.Close()
	os.Stdout = oldStdout
	os.Stderr = oldStderr

	var outBuf, errBuf bytes.Buffer
	outBuf.ReadFrom(rOut)
	errBuf.ReadFrom(rErr)

	stdout = outBuf.String()
	stderr = errBuf.String()
	if err != nil && exitCode == 0 {
		exitCode = 1
		if stderr == "" {
			stderr = err.Error()
		}
	}

	resetFlags(rootCmd)
	return
}

func resetFlags(cmd *cobra.Command) {
	reset := func(f *pflag.Flag) {
		f.Changed = false
		_ = f.Value.Set(f.DefValue)
	}
	cmd.Flags().VisitAll(reset)
	cmd.PersistentFlags().VisitAll(reset)
	for _, sub := range cmd.Commands() {
		resetFlags(sub)
	}
}

// missingConfig returns a --config path that does not exist, so tests
// run against built-in defaults rather than the developer's settings.
func missingConfig(t *testing.T) string {
	t.Helper()
	return filepath.Join(t.TempDir(), "none.yaml")
}

// Analysis geometry shared by the command tests: a 50 ms 1 kHz tone at
// 8 kHz gives a 400 sample reference.
const (
	testRate     = 8000.0
	testTone     = 1000.0
	testDuration = 0.05
	testRefLen   = 400
)

func testToneArgs(t *testing.T) []string {
	t.Helper()
	return []string{
		"--config", missingConfig(t),
		"--rate", "8000",
		"--tone", "1000",
		"--duration", "0.05",
		"--margin", "0.01",
	}
}

// makeCleanCapture builds a faithful capture: the reference delayed by
// lag samples with trailing headroom.
func makeCleanCapture(t *testing.T, lag int) []float64 {
	t.Helper()
	ref, err := fidelity.GenerateReference(testTone, testRate, testDuration)
	if err != nil {
		t.Fatalf("GenerateReference: %v", err)
	}
	captured := make([]float64, lag+len(ref)+100)
	copy(captured[lag:], ref)
	return captured
}

// makeClippedCapture builds a capture of the reference overdriven past
// full scale, delayed by lag samples.
func makeClippedCapture(t *testing.T, lag int, gain float64) []float64 {
	t.Helper()
	captured := makeCleanCapture(t, lag)
	for i, s := range captured {
		v := s * gain
		if v > 1 {
			v = 1
		} else if v < -1 {
			v = -1
		}
		captured[i] = v
	}
	return captured
}

// writeCapture writes samples as a mono 16-bit WAV and returns the path.
func writeCapture(t *testing.T, samples []float64, rate int) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "capture.wav")
	if err := writeWAVMono(path, samples, rate); err != nil {
		t.Fatalf("writeWAVMono: %v", err)
	}
	return path
}
