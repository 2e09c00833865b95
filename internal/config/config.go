// Package config loads CLI configuration from YAML files and environment
// variables using viper.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/brosander/pcap-async/internal/log"
	"github.com/brosander/pcap-async/pkg/capture"
)

type Config struct {
	Capture CaptureConfig `mapstructure:"capture"`
	Log     log.Config    `mapstructure:"log"`
}

// CaptureConfig holds the stream settings shared by the capture and replay
// commands. Device and File select the source; the rest tune the stream.
type CaptureConfig struct {
	Device             string        `mapstructure:"device"`
	File               string        `mapstructure:"file"`
	SnapshotLength     int           `mapstructure:"snapshot_length"`
	BufferSize         int           `mapstructure:"buffer_size"`
	ReadTimeout        time.Duration `mapstructure:"read_timeout"`
	RetryAfter         time.Duration `mapstructure:"retry_after"`
	MaxPacketsPerBatch int           `mapstructure:"max_packets_per_batch"`
	Filter             string        `mapstructure:"filter"`
	Mode               string        `mapstructure:"mode"`
}

// Load reads the config file at path, applies environment variable overrides
// and defaults, and validates the result. An empty path yields defaults plus
// environment overrides only.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	// Environment variable overrides, e.g. key "capture.device" maps to
	// CAPTURE_DEVICE via the key replacer.
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	defaults := capture.DefaultConfig()
	v.SetDefault("capture.snapshot_length", defaults.SnapshotLength)
	v.SetDefault("capture.buffer_size", defaults.BufferSize)
	v.SetDefault("capture.read_timeout", defaults.ReadTimeout)
	v.SetDefault("capture.retry_after", defaults.RetryAfter)
	v.SetDefault("capture.max_packets_per_batch", defaults.MaxPacketsPerBatch)
	v.SetDefault("capture.mode", "bulk")

	logDefaults := log.DefaultConfig()
	v.SetDefault("log.level", logDefaults.Level)
	v.SetDefault("log.format", logDefaults.Format)
	v.SetDefault("log.file.max_size", logDefaults.File.MaxSize)
	v.SetDefault("log.file.max_backups", logDefaults.File.MaxBackups)
	v.SetDefault("log.file.max_age", logDefaults.File.MaxAge)
}

func (c *Config) Validate() error {
	if c.Capture.SnapshotLength < 0 {
		return fmt.Errorf("snapshot_length must not be negative, got %d", c.Capture.SnapshotLength)
	}
	if c.Capture.MaxPacketsPerBatch < 0 {
		return fmt.Errorf("max_packets_per_batch must not be negative, got %d", c.Capture.MaxPacketsPerBatch)
	}
	if _, err := parseMode(c.Capture.Mode); err != nil {
		return err
	}
	return nil
}

// StreamConfig converts the loaded settings into a stream configuration.
func (c CaptureConfig) StreamConfig() (capture.Config, error) {
	mode, err := parseMode(c.Mode)
	if err != nil {
		return capture.Config{}, err
	}
	return capture.Config{
		MaxPacketsPerBatch: c.MaxPacketsPerBatch,
		SnapshotLength:     c.SnapshotLength,
		BufferSize:         c.BufferSize,
		ReadTimeout:        c.ReadTimeout,
		RetryAfter:         c.RetryAfter,
		CaptureFilter:      c.Filter,
		Mode:               mode,
	}, nil
}

func parseMode(mode string) (capture.DispatchMode, error) {
	switch strings.ToLower(mode) {
	case "", "bulk":
		return capture.DispatchBulk, nil
	case "single":
		return capture.DispatchSingle, nil
	default:
		return 0, fmt.Errorf("unknown dispatch mode %q, want bulk or single", mode)
	}
}
