//go:build linux && !cgo

package engine

import (
	"errors"
	"fmt"
	"net"
	"strings"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/google/gopacket/pcapgo"
	"golang.org/x/net/bpf"

	"github.com/brosander/pcap-async/pkg/capture/filter"
)

// afpacketSession is the cgo-free live session, backed by an AF_PACKET
// socket through the pure-Go pcapgo binding. The configuration setters
// record values that Activate applies to the socket; filters compile in
// pure Go and attach as classic BPF.
type afpacketSession struct {
	device string

	snaplen     int
	promiscuous bool

	handle *pcapgo.EthernetHandle

	stopped  atomic.Bool
	closed   atomic.Bool
	received atomic.Uint64
}

// OpenLive creates an unactivated live session on the named device.
func OpenLive(device string) (Session, error) {
	if _, err := net.InterfaceByName(device); err != nil {
		return nil, fmt.Errorf("engine: no such device %s: %w", device, err)
	}
	return &afpacketSession{device: device, snaplen: 65535}, nil
}

func (s *afpacketSession) NextRecord() (Record, error) {
	if s.closed.Load() {
		return Record{}, ErrClosed
	}
	if s.stopped.Load() {
		return Record{}, ErrBreak
	}
	if s.handle == nil {
		return Record{}, ErrNotActivated
	}
	data, ci, err := s.handle.ZeroCopyReadPacketData()
	switch {
	case err == nil:
		s.received.Add(1)
		return Record{
			Timestamp:      ci.Timestamp,
			CaptureLength:  uint32(ci.CaptureLength),
			OriginalLength: uint32(ci.Length),
			Data:           data,
		}, nil
	case errors.Is(err, syscall.EAGAIN) ||
		strings.Contains(strings.ToLower(err.Error()), "timeout"):
		return Record{}, ErrTimeout
	default:
		return Record{}, fmt.Errorf("engine: afpacket read on %s: %w", s.device, err)
	}
}

func (s *afpacketSession) Dispatch(max int, fn func(Record)) (int, error) {
	return drainRecords(s, max, fn)
}

func (s *afpacketSession) SetSnapshotLength(n int) error {
	s.snaplen = n
	return nil
}

// SetNonBlocking is a no-op; the socket is read synchronously and the
// stop flag is checked around every read.
func (s *afpacketSession) SetNonBlocking() error { return nil }

func (s *afpacketSession) SetPromiscuous() error {
	s.promiscuous = true
	return nil
}

// SetTimeout is accepted and ignored: the socket binding exposes no read
// timeout. A read blocked in the kernel returns at the next inbound
// frame, so stop promptness tracks traffic on this backend.
func (s *afpacketSession) SetTimeout(time.Duration) error { return nil }

// SetBufferSize is accepted and ignored; the socket uses the kernel's
// default receive buffer.
func (s *afpacketSession) SetBufferSize(int) error { return nil }

func (s *afpacketSession) Activate() error {
	if s.handle != nil {
		return nil
	}
	h, err := pcapgo.NewEthernetHandle(s.device)
	if err != nil {
		return fmt.Errorf("engine: activating %s: %w", s.device, err)
	}
	if err := h.SetCaptureLength(s.snaplen); err != nil {
		h.Close()
		return fmt.Errorf("engine: setting capture length on %s: %w", s.device, err)
	}
	if s.promiscuous {
		if err := h.SetPromiscuous(true); err != nil {
			h.Close()
			return fmt.Errorf("engine: enabling promiscuous mode on %s: %w", s.device, err)
		}
	}
	s.handle = h
	return nil
}

type afpacketFilter struct {
	expr string
	raw  []bpf.RawInstruction
}

func (f *afpacketFilter) Expression() string { return f.expr }

func (s *afpacketSession) CompileFilter(expr string, _ int) (Filter, error) {
	raw, err := filter.CompileRaw(expr)
	if err != nil {
		return nil, err
	}
	return &afpacketFilter{expr: expr, raw: raw}, nil
}

func (s *afpacketSession) ApplyFilter(f Filter) error {
	af, ok := f.(*afpacketFilter)
	if !ok {
		return fmt.Errorf("engine: filter %q was not compiled for an afpacket session", f.Expression())
	}
	if s.handle == nil {
		return ErrNotActivated
	}
	return s.handle.SetBPF(af.raw)
}

func (s *afpacketSession) Breakloop() {
	s.stopped.Store(true)
}

// Stats counts records delivered by this session; the socket binding
// does not expose the kernel's drop counters.
func (s *afpacketSession) Stats() (Stats, error) {
	if s.closed.Load() {
		return Stats{}, ErrClosed
	}
	return Stats{Received: s.received.Load()}, nil
}

func (s *afpacketSession) Close() error {
	if s.closed.Swap(true) {
		return nil
	}
	s.stopped.Store(true)
	if s.handle != nil {
		s.handle.Close()
		s.handle = nil
	}
	return nil
}

// Devices lists the host's network interfaces.
func Devices() ([]DeviceInfo, error) {
	ifaces, err := net.Interfaces()
	if err != nil {
		return nil, fmt.Errorf("engine: listing devices: %w", err)
	}
	out := make([]DeviceInfo, 0, len(ifaces))
	for _, iface := range ifaces {
		info := DeviceInfo{Name: iface.Name}
		if addrs, err := iface.Addrs(); err == nil {
			for _, a := range addrs {
				if ipn, ok := a.(*net.IPNet); ok {
					info.Addresses = append(info.Addresses, ipn.IP)
				}
			}
		}
		out = append(out, info)
	}
	return out, nil
}
