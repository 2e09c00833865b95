package capture

import "time"

// DispatchMode selects which native retrieval primitive a stream's
// dispatch cycles use. Both modes produce identical results.
type DispatchMode int

const (
	// DispatchBulk drains records through the backend's bulk primitive
	// with a per-call ceiling.
	DispatchBulk DispatchMode = iota
	// DispatchSingle fetches one record per native call.
	DispatchSingle
)

// Config controls a PacketStream. The zero value of any field falls back
// to its default.
type Config struct {
	// MaxPacketsPerBatch caps how many packets one dispatch cycle may
	// accumulate before the batch is emitted.
	MaxPacketsPerBatch int
	// SnapshotLength caps the number of bytes captured per packet.
	SnapshotLength int
	// BufferSize is the native capture buffer size in bytes.
	BufferSize int
	// ReadTimeout bounds how long one native read may block. It also
	// bounds how long an interrupt can go unobserved.
	ReadTimeout time.Duration
	// RetryAfter is the delay before re-dispatching after a live session
	// reported an empty buffer.
	RetryAfter time.Duration
	// CaptureFilter is an optional tcpdump-style filter expression,
	// compiled and applied during stream construction on live sessions.
	CaptureFilter string
	// Mode selects the dispatch strategy.
	Mode DispatchMode
}

// DefaultConfig returns the default stream configuration.
func DefaultConfig() Config {
	return Config{
		MaxPacketsPerBatch: 1000,
		SnapshotLength:     65535,
		BufferSize:         16 * 1024 * 1024,
		ReadTimeout:        time.Second,
		RetryAfter:         100 * time.Millisecond,
		Mode:               DispatchBulk,
	}
}

func (c Config) withDefaults() Config {
	def := DefaultConfig()
	if c.MaxPacketsPerBatch <= 0 {
		c.MaxPacketsPerBatch = def.MaxPacketsPerBatch
	}
	if c.SnapshotLength <= 0 {
		c.SnapshotLength = def.SnapshotLength
	}
	if c.BufferSize <= 0 {
		c.BufferSize = def.BufferSize
	}
	if c.ReadTimeout <= 0 {
		c.ReadTimeout = def.ReadTimeout
	}
	if c.RetryAfter <= 0 {
		c.RetryAfter = def.RetryAfter
	}
	return c
}
