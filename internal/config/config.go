// SPDX-License-Identifier: MIT

// Package config loads the engine configuration from YAML, applies
// SOUNDCHECK_* environment overrides, and validates the result.
// Precedence: flags > environment > file > defaults.
package config

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"

	"soundcheck/internal/log"
	"soundcheck/pkg/bitint"
)

// Default values applied before any file, environment, or flag input.
const (
	DefaultHost             = "0.0.0.0"
	DefaultPort             = 8000
	DefaultShutdownTimeoutS = 10
	DefaultLogLevel         = "info"

	DefaultSampleRate    = 44100 // CD-quality audio
	DefaultToneDurationS = 1.0
	DefaultToneVolume    = 0.5
	DefaultFadeMs        = 20.0

	DefaultModelPath = "models/hearing_classifier.json"

	DefaultFFTSize           = 1024
	DefaultHopSize           = 512
	DefaultPublishIntervalMs = 16 // ~60 Hz band frames

	// Hardware and processing limits
	MinSampleRate = 8000   // Minimum usable sample rate (Hz)
	MaxSampleRate = 192000 // Maximum supported sample rate (Hz)
	MaxFFTSize    = 8192   // Maximum FFT window (power of 2)
)

// Config is the root configuration, loaded from YAML.
type Config struct {
	LogLevel string         `yaml:"log_level"` // Logging level ("debug", "info", "warn", "error").
	Server   ServerConfig   `yaml:"server"`    // HTTP server and shutdown settings.
	Audio    AudioConfig    `yaml:"audio"`     // Tone synthesis and playback settings.
	Model    ModelConfig    `yaml:"model"`     // Classifier artifact location.
	Spectrum SpectrumConfig `yaml:"spectrum"`  // Spectrum analysis and publishing settings.
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host             string `yaml:"host"`                  // Listen address (e.g. "0.0.0.0").
	Port             int    `yaml:"port"`                  // Listen port.
	UDPMonitor       string `yaml:"udp_monitor,omitempty"` // Target address for UDP band frames ("" disables).
	ShutdownTimeoutS int    `yaml:"shutdown_timeout_s"`    // Graceful shutdown deadline in seconds.
}

// AudioConfig holds tone synthesis defaults.
type AudioConfig struct {
	SampleRate    int     `yaml:"sample_rate"`     // Sample rate in Hz (e.g. 44100, 48000).
	ToneDurationS float64 `yaml:"tone_duration_s"` // Default tone length in seconds.
	ToneVolume    float64 `yaml:"tone_volume"`     // Default tone amplitude, 0.0-1.0.
	FadeMs        float64 `yaml:"fade_ms"`         // Raised-cosine fade length in milliseconds.
}

// ModelConfig locates the classifier artifact.
type ModelConfig struct {
	Path string `yaml:"path"` // Path to the classifier JSON artifact.
}

// SpectrumConfig holds spectrum analysis settings.
type SpectrumConfig struct {
	FFTSize           int `yaml:"fft_size"`            // STFT window size (power of 2).
	HopSize           int `yaml:"hop_size"`            // STFT hop in samples.
	PublishIntervalMs int `yaml:"publish_interval_ms"` // UDP band-frame publish interval.
}

// NewConfig returns a Config populated with default values. This is
// the base configuration before file, environment, or flag input.
func NewConfig() *Config {
	return &Config{
		LogLevel: DefaultLogLevel,
		Server: ServerConfig{
			Host:             DefaultHost,
			Port:             DefaultPort,
			UDPMonitor:       "",
			ShutdownTimeoutS: DefaultShutdownTimeoutS,
		},
		Audio: AudioConfig{
			SampleRate:    DefaultSampleRate,
			ToneDurationS: DefaultToneDurationS,
			ToneVolume:    DefaultToneVolume,
			FadeMs:        DefaultFadeMs,
		},
		Model: ModelConfig{
			Path: DefaultModelPath,
		},
		Spectrum: SpectrumConfig{
			FFTSize:           DefaultFFTSize,
			HopSize:           DefaultHopSize,
			PublishIntervalMs: DefaultPublishIntervalMs,
		},
	}
}

// LoadConfig loads configuration from a YAML file specified by path.
// If path is empty, it searches default locations and falls back to
// built-in defaults when no file is found. Environment overrides are
// applied after the file, and the final configuration is validated.
func LoadConfig(path string) (*Config, error) {
	cfg := NewConfig()

	if path == "" {
		candidates := []string{
			"config.yaml",
			"config/config.yaml",
		}
		for _, candidate := range candidates {
			if _, err := os.Stat(candidate); err == nil {
				path = candidate
				break
			}
		}
	}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	cfg.applyEnvOverrides()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// Validate bounds-checks the configuration.
func (c *Config) Validate() error {
	if _, ok := log.ParseLevel(c.LogLevel); !ok {
		return fmt.Errorf("log_level %q is not one of debug, info, warn, error", c.LogLevel)
	}

	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port %d out of range 1-65535", c.Server.Port)
	}
	if c.Server.ShutdownTimeoutS <= 0 {
		return fmt.Errorf("server.shutdown_timeout_s must be positive, got %d", c.Server.ShutdownTimeoutS)
	}

	if c.Audio.SampleRate < MinSampleRate || c.Audio.SampleRate > MaxSampleRate {
		return fmt.Errorf("audio.sample_rate %d out of range %d-%d", c.Audio.SampleRate, MinSampleRate, MaxSampleRate)
	}
	if c.Audio.ToneDurationS <= 0 {
		return fmt.Errorf("audio.tone_duration_s must be positive, got %g", c.Audio.ToneDurationS)
	}
	if c.Audio.ToneVolume < 0 || c.Audio.ToneVolume > 1 {
		return fmt.Errorf("audio.tone_volume %g out of range 0.0-1.0", c.Audio.ToneVolume)
	}
	if c.Audio.FadeMs < 0 {
		return fmt.Errorf("audio.fade_ms must not be negative, got %g", c.Audio.FadeMs)
	}

	if c.Model.Path == "" {
		return fmt.Errorf("model.path must be set")
	}

	if !bitint.IsPowerOfTwo(c.Spectrum.FFTSize) || c.Spectrum.FFTSize > MaxFFTSize {
		return fmt.Errorf("spectrum.fft_size %d must be a power of 2 up to %d", c.Spectrum.FFTSize, MaxFFTSize)
	}
	if c.Spectrum.HopSize <= 0 || c.Spectrum.HopSize > c.Spectrum.FFTSize {
		return fmt.Errorf("spectrum.hop_size %d out of range 1-%d", c.Spectrum.HopSize, c.Spectrum.FFTSize)
	}
	if c.Spectrum.PublishIntervalMs <= 0 {
		return fmt.Errorf("spectrum.publish_interval_ms must be positive, got %d", c.Spectrum.PublishIntervalMs)
	}
	return nil
}

// applyEnvOverrides applies SOUNDCHECK_* environment variables on top
// of whatever the file provided.
func (c *Config) applyEnvOverrides() {
	if val, ok := os.LookupEnv("SOUNDCHECK_HOST"); ok {
		c.Server.Host = val
		log.Debugf("configuration: overriding server.host from env: %s", val)
	}
	if val, ok := os.LookupEnv("SOUNDCHECK_PORT"); ok {
		if port, err := strconv.Atoi(val); err == nil {
			c.Server.Port = port
			log.Debugf("configuration: overriding server.port from env: %d", port)
		} else {
			log.Warnf("configuration: ignoring SOUNDCHECK_PORT=%q: %v", val, err)
		}
	}
	if val, ok := os.LookupEnv("SOUNDCHECK_UDP_MONITOR"); ok {
		c.Server.UDPMonitor = val
		log.Debugf("configuration: overriding server.udp_monitor from env: %s", val)
	}
	if val, ok := os.LookupEnv("SOUNDCHECK_MODEL_PATH"); ok {
		c.Model.Path = val
		log.Debugf("configuration: overriding model.path from env: %s", val)
	}
	if val, ok := os.LookupEnv("SOUNDCHECK_LOG_LEVEL"); ok {
		c.LogLevel = val
		log.Debugf("configuration: overriding log_level from env: %s", val)
	}
}
