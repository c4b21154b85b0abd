// Package config loads and saves speakercheck settings as YAML in the OS
// config directory.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/goccy/go-yaml"
)

// Settings holds the persistent analyzer parameters. Zero values defer to
// the analyzer's package defaults.
type Settings struct {
	SampleRate         float64 `yaml:"sample_rate"`
	ToneFrequency      float64 `yaml:"tone_frequency"`
	ToneDuration       float64 `yaml:"tone_duration"`
	CaptureMargin      float64 `yaml:"capture_margin,omitempty"`
	ClippingThreshold  float64 `yaml:"clipping_threshold,omitempty"`
	MinFlaggedFraction float64 `yaml:"min_flagged_fraction,omitempty"`
	MinPeakRatio       float64 `yaml:"min_peak_ratio,omitempty"`
	Correlation        string  `yaml:"correlation,omitempty"`
}

// Default returns the standard smoke-test settings: a half-second 1 kHz
// tone at 48 kHz.
func Default() *Settings {
	return &Settings{
		SampleRate:    48000,
		ToneFrequency: 1000,
		ToneDuration:  0.5,
	}
}

// DefaultPath returns the settings file location in the OS config
// directory.
func DefaultPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("locate config directory: %w", err)
	}
	return filepath.Join(dir, "speakercheck", "config.yaml"), nil
}

// Load reads settings from path, or from DefaultPath when path is empty.
// A missing file is not an error: defaults are returned.
func Load(path string) (*Settings, error) {
	if path == "" {
		var err error
		path, err = DefaultPath()
		if err != nil {
			return nil, err
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Default(), nil
		}
		return nil, fmt.Errorf("read %s: %w", path, err)
	}

	s := Default()
	if err := yaml.Unmarshal(data, s); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return s, nil
}

// Save writes settings to path, or to DefaultPath when path is empty,
// creating parent directories as needed.
func Save(path string, s *Settings) error {
	if path == "" {
		var err error
		path, err = DefaultPath()
		if err != nil {
			return err
		}
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}

	data, err := yaml.Marshal(s)
	if err != nil {
		return fmt.Errorf("marshal settings: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}
