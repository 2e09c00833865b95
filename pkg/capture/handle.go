package capture

import (
	"fmt"
	"sync/atomic"

	"github.com/brosander/pcap-async/pkg/capture/engine"
)

// Stats are the session's cumulative counters.
type Stats = engine.Stats

// Info describes one capture-capable device.
type Info = engine.DeviceInfo

// Handle owns one native capture session for its entire lifetime and is
// the only type that issues calls against it. A Handle may be shared
// across goroutines; the interrupt flag is the only concurrently mutated
// state, and only through Interrupt.
type Handle struct {
	session     engine.Session
	live        bool
	interrupted atomic.Bool
	closed      atomic.Bool
}

// NewHandle wraps an already-open session. live classifies the session as
// a live interface capture rather than a file replay; it is fixed for the
// Handle's lifetime.
func NewHandle(session engine.Session, live bool) *Handle {
	return &Handle{session: session, live: live}
}

// OpenLive creates a Handle on the named interface. The session stays
// unactivated until a PacketStream is constructed on it.
func OpenLive(device string) (*Handle, error) {
	sess, err := engine.OpenLive(device)
	if err != nil {
		return nil, err
	}
	return NewHandle(sess, true), nil
}

// Lookup creates a live Handle on the default capture device.
func Lookup() (*Handle, error) {
	device, err := engine.DefaultDevice()
	if err != nil {
		return nil, err
	}
	return OpenLive(device)
}

// OpenFile creates a Handle replaying a pcap savefile.
func OpenFile(path string) (*Handle, error) {
	sess, err := engine.OpenFile(path)
	if err != nil {
		return nil, err
	}
	return NewHandle(sess, false), nil
}

// ListDevices lists capture-capable devices.
func ListDevices() ([]Info, error) {
	return engine.Devices()
}

// IsLiveCapture reports whether the Handle captures from a live interface.
func (h *Handle) IsLiveCapture() bool { return h.live }

// Interrupted reports whether Interrupt has been called. Lock-free; the
// dispatch loop polls it around every native call.
func (h *Handle) Interrupted() bool { return h.interrupted.Load() }

// Interrupt requests that capture stop. It sets the interrupt flag and
// asks the native layer to break out of an in-progress blocking call, so
// cancellation is prompt rather than waiting for the next poll. Safe to
// call from any goroutine, repeatedly, and after the stream has already
// ended.
func (h *Handle) Interrupt() {
	h.interrupted.Store(true)
	h.session.Breakloop()
}

// Stats returns the session's counters.
func (h *Handle) Stats() (Stats, error) {
	if h.closed.Load() {
		return Stats{}, engine.ErrClosed
	}
	return h.session.Stats()
}

// Close interrupts and closes the underlying session. Dispatch cycles
// cannot be scheduled afterwards.
func (h *Handle) Close() error {
	if h.closed.Swap(true) {
		return nil
	}
	h.Interrupt()
	return h.session.Close()
}

// configure drives the live activation sequence in the order the native
// layer requires: snapshot length, non-blocking, promiscuous, timeout,
// buffer size, activate. No-op for replay sessions.
func (h *Handle) configure(cfg Config) error {
	if !h.live {
		return nil
	}
	steps := []struct {
		op string
		fn func() error
	}{
		{"snapshot length", func() error { return h.session.SetSnapshotLength(cfg.SnapshotLength) }},
		{"non-blocking mode", h.session.SetNonBlocking},
		{"promiscuous mode", h.session.SetPromiscuous},
		{"read timeout", func() error { return h.session.SetTimeout(cfg.ReadTimeout) }},
		{"buffer size", func() error { return h.session.SetBufferSize(cfg.BufferSize) }},
		{"activation", h.session.Activate},
	}
	for _, step := range steps {
		if err := step.fn(); err != nil {
			return &ConfigError{Op: step.op, Err: err}
		}
	}
	return nil
}

// String identifies the handle kind in logs.
func (h *Handle) String() string {
	if h.live {
		return fmt.Sprintf("live capture handle (interrupted=%v)", h.Interrupted())
	}
	return fmt.Sprintf("file replay handle (interrupted=%v)", h.Interrupted())
}
