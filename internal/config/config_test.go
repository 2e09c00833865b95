package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/brosander/pcap-async/pkg/capture"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 65535, cfg.Capture.SnapshotLength)
	assert.Equal(t, 16*1024*1024, cfg.Capture.BufferSize)
	assert.Equal(t, time.Second, cfg.Capture.ReadTimeout)
	assert.Equal(t, 1000, cfg.Capture.MaxPacketsPerBatch)
	assert.Equal(t, "bulk", cfg.Capture.Mode)
	assert.Equal(t, "info", cfg.Log.Level)
}

func TestLoadFile(t *testing.T) {
	path := writeConfig(t, `
capture:
  device: eth0
  snapshot_length: 1500
  read_timeout: 250ms
  max_packets_per_batch: 64
  filter: udp port 5060
  mode: single
log:
  level: debug
  format: json
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "eth0", cfg.Capture.Device)
	assert.Equal(t, 1500, cfg.Capture.SnapshotLength)
	assert.Equal(t, 250*time.Millisecond, cfg.Capture.ReadTimeout)
	assert.Equal(t, 64, cfg.Capture.MaxPacketsPerBatch)
	assert.Equal(t, "udp port 5060", cfg.Capture.Filter)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)

	// Keys absent from the file keep their defaults.
	assert.Equal(t, 16*1024*1024, cfg.Capture.BufferSize)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yml"))
	assert.Error(t, err)
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"negative snaplen", "capture:\n  snapshot_length: -1\n"},
		{"negative batch", "capture:\n  max_packets_per_batch: -5\n"},
		{"unknown mode", "capture:\n  mode: turbo\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.content))
			assert.Error(t, err)
		})
	}
}

func TestStreamConfig(t *testing.T) {
	cc := CaptureConfig{
		SnapshotLength:     1500,
		BufferSize:         1 << 20,
		ReadTimeout:        100 * time.Millisecond,
		RetryAfter:         10 * time.Millisecond,
		MaxPacketsPerBatch: 32,
		Filter:             "tcp",
		Mode:               "single",
	}

	sc, err := cc.StreamConfig()
	require.NoError(t, err)
	assert.Equal(t, capture.DispatchSingle, sc.Mode)
	assert.Equal(t, 1500, sc.SnapshotLength)
	assert.Equal(t, 32, sc.MaxPacketsPerBatch)
	assert.Equal(t, "tcp", sc.CaptureFilter)

	cc.Mode = "warp"
	_, err = cc.StreamConfig()
	assert.Error(t, err)
}
