// Package main is the entry point for the speakercheck CLI.
//
// Usage:
//
//	speakercheck [flags] <command> [args]
//
// Commands:
//
//	analyze    - Analyze a captured WAV recording against the reference tone
//	reference  - Write the reference tone to a WAV file
//	play       - Play the reference tone through the default output device
//	serve      - Run a continuous analyzer and broadcast verdicts over WebSocket
//	version    - Show version information
package main

import (
	"fmt"
	"os"

	"github.com/tphakala/go-audio-fidelity/cmd/speakercheck/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
