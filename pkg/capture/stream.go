package capture

import (
	"context"
	"io"

	"github.com/sirupsen/logrus"

	"github.com/brosander/pcap-async/pkg/capture/engine"
)

// streamState makes the at-most-one-outstanding-dispatch invariant
// explicit: a future exists exactly while the stream is awaiting.
type streamState int

const (
	// stateIdle: no dispatch cycle in flight.
	stateIdle streamState = iota
	// stateAwaiting: exactly one dispatch cycle in flight.
	stateAwaiting
	// stateEnded: terminal; end-of-input or a hard failure was observed.
	stateEnded
)

// PacketStream is the pull interface over one capture session. It is not
// safe for concurrent use; one consumer goroutine drives it.
type PacketStream struct {
	cfg     Config
	handle  *Handle
	state   streamState
	pending *packetFuture
}

// NewPacketStream builds a stream over handle. It compiles the configured
// filter, drives the activation sequence on live sessions and applies the
// filter; any failure is returned here and the stream never starts. The
// filter is compiled before activation so a malformed expression leaves
// the session unactivated.
func NewPacketStream(cfg Config, handle *Handle) (*PacketStream, error) {
	cfg = cfg.withDefaults()

	var compiled engine.Filter
	if cfg.CaptureFilter != "" {
		f, err := handle.session.CompileFilter(cfg.CaptureFilter, cfg.SnapshotLength)
		if err != nil {
			return nil, &FilterError{Op: "compile", Expr: cfg.CaptureFilter, Err: err}
		}
		compiled = f
	}
	if handle.IsLiveCapture() {
		if err := handle.configure(cfg); err != nil {
			return nil, err
		}
	}
	if compiled != nil {
		if err := handle.session.ApplyFilter(compiled); err != nil {
			return nil, &FilterError{Op: "apply", Expr: cfg.CaptureFilter, Err: err}
		}
	}

	return &PacketStream{cfg: cfg, handle: handle, state: stateIdle}, nil
}

// Handle returns the session handle, e.g. to interrupt the stream from
// another goroutine.
func (s *PacketStream) Handle() *Handle { return s.handle }

// Next pulls the next batch. It returns io.EOF once the session has
// ended; after a dispatch failure it returns that error exactly once and
// io.EOF on every later call. Packets are delivered in capture order,
// batches are never empty and never exceed MaxPacketsPerBatch.
//
// Cancelling ctx returns ctx.Err() without losing the in-flight cycle;
// calling Next again resumes waiting on it.
func (s *PacketStream) Next(ctx context.Context) ([]Packet, error) {
	for {
		switch s.state {
		case stateEnded:
			return nil, io.EOF
		case stateIdle:
			f, err := schedule(s.handle, s.cfg)
			if err != nil {
				s.state = stateEnded
				return nil, err
			}
			s.pending = f
			s.state = stateAwaiting
		case stateAwaiting:
		}

		res, err := s.pending.await(ctx)
		if err != nil {
			return nil, err
		}
		s.pending = nil

		switch res.kind {
		case dispatchComplete:
			logrus.Debug("packet stream complete")
			s.state = stateEnded
			return nil, io.EOF
		case dispatchPackets:
			logrus.Debugf("packet stream produced %d packets", len(res.packets))
			s.state = stateIdle
			return res.packets, nil
		case dispatchFailed:
			s.state = stateEnded
			return nil, res.err
		case dispatchNoPackets:
			// runDispatch retries this internally; if it ever surfaces,
			// start another cycle rather than emit an empty batch.
			s.state = stateIdle
		}
	}
}

// Drain pulls until end-of-stream, returning all packets in capture
// order. It stops at the first error.
func (s *PacketStream) Drain(ctx context.Context) ([]Packet, error) {
	var all []Packet
	for {
		batch, err := s.Next(ctx)
		if err == io.EOF {
			return all, nil
		}
		if err != nil {
			return all, err
		}
		all = append(all, batch...)
	}
}
