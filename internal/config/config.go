// SPDX-License-Identifier: MIT
// Package config loads the application configuration from YAML with built-in
// defaults, environment overrides and validation.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Limits for user-supplied values.
const (
	MinDeviceID   = -1 // -1 selects the system default input device
	MinSampleRate = 8000
	MaxSampleRate = 192000
)

// Config is the main application configuration, loaded from YAML.
type Config struct {
	Debug     bool            `yaml:"debug"`     // verbose logging and debug features
	LogLevel  string          `yaml:"log_level"` // "debug", "info", "warn", "error"
	Audio     AudioConfig     `yaml:"audio"`     // capture settings
	Analysis  AnalysisConfig  `yaml:"analysis"`  // onset/rhythm tuning
	Transport TransportConfig `yaml:"transport"` // result fan-out
	Recording RecordingConfig `yaml:"recording"` // raw capture recording
	Snapshot  SnapshotConfig  `yaml:"snapshot"`  // result history
}

// AudioConfig holds capture settings. Analysis is always stereo; the FFT
// sizes and hop are fixed by the engine, not configured here.
type AudioConfig struct {
	InputDevice int `yaml:"input_device"` // PortAudio device index, -1 for default
	SampleRate  int `yaml:"sample_rate"`  // Hz; overridden by the device's actual rate
	ChunkFrames int `yaml:"chunk_frames"` // capture callback size in frames
}

// AnalysisConfig exposes the empirically chosen onset and rhythm constants.
// Zero values fall back to the engine defaults.
type AnalysisConfig struct {
	FluxThreshold  float64 `yaml:"flux_threshold"`   // onset flux threshold
	OnsetCooldown  int     `yaml:"onset_cooldown"`   // hops between onsets
	BeatHistoryLen int     `yaml:"beat_history_len"` // beat-strength ring, hops
	LagMin         int     `yaml:"lag_min"`          // shortest beat period, hops
	LagMax         int     `yaml:"lag_max"`          // longest beat period, exclusive
	ConfidenceNorm float64 `yaml:"confidence_norm"`  // beat confidence normalization
	RolloffFrac    float64 `yaml:"rolloff_fraction"` // spectral rolloff fraction
}

// TransportConfig holds settings for sending per-hop results onward.
type TransportConfig struct {
	UDPEnabled       bool          `yaml:"udp_enabled"`        // send SR packets over UDP
	UDPTargetAddress string        `yaml:"udp_target_address"` // e.g. "192.168.1.50:11988"
	UDPSendInterval  time.Duration `yaml:"udp_send_interval"`  // minimum time between packets
	WSEnabled        bool          `yaml:"ws_enabled"`         // broadcast results as JSON
	WSPort           string        `yaml:"ws_port"`            // websocket listen port
}

// RecordingConfig holds settings for recording the raw capture stream.
type RecordingConfig struct {
	Enabled    bool   `yaml:"enabled"`
	OutputFile string `yaml:"output_file"` // empty for a timestamped name
	BitDepth   int    `yaml:"bit_depth"`   // 16, 24 or 32
}

// SnapshotConfig bounds the in-memory result history.
type SnapshotConfig struct {
	BufferSeconds int `yaml:"buffer_seconds"` // how much history to keep
}

// Load reads configuration from the YAML file at path. An empty path checks
// "config.yaml" in the working directory and falls back to defaults when no
// file exists. Environment overrides apply after the file, then the result
// is validated.
func Load(path string) (*Config, error) {
	cfg := Config{
		Debug:    false,
		LogLevel: "info",
		Audio: AudioConfig{
			InputDevice: -1,
			SampleRate:  48000,
			ChunkFrames: 512,
		},
		Transport: TransportConfig{
			UDPEnabled:       false,
			UDPTargetAddress: "127.0.0.1:11988",
			UDPSendInterval:  20 * time.Millisecond, // SR receivers expect <= 50 FPS
			WSEnabled:        false,
			WSPort:           "8080",
		},
		Recording: RecordingConfig{
			Enabled:  false,
			BitDepth: 16,
		},
		Snapshot: SnapshotConfig{
			BufferSeconds: 30,
		},
	}

	if path == "" {
		if _, err := os.Stat("config.yaml"); err == nil {
			path = "config.yaml"
		}
	}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	cfg.applyEnvOverrides()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

// Validate rejects configurations the engine cannot run with.
func (c *Config) Validate() error {
	if c.Audio.SampleRate < MinSampleRate || c.Audio.SampleRate > MaxSampleRate {
		return fmt.Errorf("audio.sample_rate %d outside [%d, %d]",
			c.Audio.SampleRate, MinSampleRate, MaxSampleRate)
	}
	if c.Audio.InputDevice < MinDeviceID {
		return fmt.Errorf("audio.input_device must be >= %d", MinDeviceID)
	}
	if c.Audio.ChunkFrames <= 0 {
		return fmt.Errorf("audio.chunk_frames must be positive, got %d", c.Audio.ChunkFrames)
	}
	if c.Transport.UDPEnabled {
		if c.Transport.UDPTargetAddress == "" {
			return fmt.Errorf("transport.udp_target_address must be set when UDP is enabled")
		}
		if c.Transport.UDPSendInterval <= 0 {
			return fmt.Errorf("transport.udp_send_interval must be positive when UDP is enabled")
		}
	}
	if c.Analysis.LagMax != 0 && c.Analysis.LagMax <= c.Analysis.LagMin {
		return fmt.Errorf("analysis.lag_max must exceed analysis.lag_min")
	}
	switch c.Recording.BitDepth {
	case 16, 24, 32:
	default:
		return fmt.Errorf("recording.bit_depth must be 16, 24 or 32, got %d", c.Recording.BitDepth)
	}
	return nil
}

// applyEnvOverrides applies MIRA_* environment variables on top of whatever
// the file provided. Only the knobs useful in deployment scripts are
// exposed this way.
func (c *Config) applyEnvOverrides() {
	if val, ok := os.LookupEnv("MIRA_DEBUG"); ok {
		if b, err := strconv.ParseBool(val); err == nil {
			c.Debug = b
		}
	}
	if val, ok := os.LookupEnv("MIRA_UDP_ENABLED"); ok {
		if b, err := strconv.ParseBool(val); err == nil {
			c.Transport.UDPEnabled = b
		}
	}
	if val, ok := os.LookupEnv("MIRA_UDP_TARGET_ADDRESS"); ok {
		c.Transport.UDPTargetAddress = val
	}
	if val, ok := os.LookupEnv("MIRA_UDP_SEND_INTERVAL"); ok {
		if d, err := time.ParseDuration(val); err == nil {
			c.Transport.UDPSendInterval = d
		}
	}
	if val, ok := os.LookupEnv("MIRA_WS_PORT"); ok {
		c.Transport.WSPort = val
	}
}
