// Package engine defines the capability boundary between the capture core
// and a native packet-capture backend. Each backend (libpcap via cgo,
// AF_PACKET, savefile replay) implements Session exactly once; nothing
// above this package touches backend handles directly.
package engine

import (
	"errors"
	"time"
)

// Sentinel errors translating the native dispatch codes.
var (
	// ErrBreak reports that the capture loop was stopped, either by
	// Breakloop or because a replayed file reached its end. No further
	// records will ever be delivered.
	ErrBreak = errors.New("engine: capture loop stopped")

	// ErrTimeout reports that no record was ready before the session's
	// read timeout expired. The session is still live; retry later.
	ErrTimeout = errors.New("engine: no packets ready")

	// ErrClosed reports use of a session after Close.
	ErrClosed = errors.New("engine: session closed")

	// ErrNotSupported reports an operation the backend cannot provide
	// on this platform or build.
	ErrNotSupported = errors.New("engine: not supported")

	// ErrNotActivated reports a read on a live session before Activate.
	ErrNotActivated = errors.New("engine: session not activated")
)

// Record is one captured frame as delivered by the backend. Data is owned
// by the backend and is only valid until the next call on the session;
// callers needing to retain it must copy.
type Record struct {
	Timestamp      time.Time
	CaptureLength  uint32
	OriginalLength uint32
	Data           []byte
}

// Filter is a compiled capture filter bound to the backend that produced
// it. Applying a Filter compiled by a different backend fails.
type Filter interface {
	// Expression returns the source expression the filter was compiled from.
	Expression() string
}

// Stats are cumulative session counters.
type Stats struct {
	Received  uint64
	Dropped   uint64
	IfDropped uint64
}

// Session is one open capture context. Configuration setters and Activate
// apply to live sessions only; replay sessions are pre-activated and treat
// them as no-ops. Breakloop is safe to call from any goroutine, including
// while another goroutine is blocked in NextRecord or Dispatch; every
// other method must be confined to a single caller at a time.
type Session interface {
	// NextRecord fetches a single record. It returns ErrTimeout when the
	// native buffer is momentarily empty, ErrBreak once the loop has been
	// stopped, or a backend error on hard failure.
	NextRecord() (Record, error)

	// Dispatch delivers up to max records to fn and returns the count
	// delivered. When fewer than max records were delivered the returned
	// error carries the reason: ErrTimeout, ErrBreak or a hard failure.
	// Records already handed to fn before the condition arose are kept.
	Dispatch(max int, fn func(Record)) (int, error)

	SetSnapshotLength(n int) error
	SetNonBlocking() error
	SetPromiscuous() error
	SetTimeout(d time.Duration) error
	SetBufferSize(n int) error
	Activate() error

	// CompileFilter compiles expr against the given snapshot length.
	// Backends whose compiler does not consult the snapshot length
	// ignore it.
	CompileFilter(expr string, snaplen int) (Filter, error)
	ApplyFilter(f Filter) error

	// Breakloop requests that an in-progress blocking call return promptly
	// with ErrBreak. Idempotent.
	Breakloop()

	Stats() (Stats, error)
	Close() error
}
