//go:build cgo

package engine

import (
	"errors"
	"fmt"
	"io"
	"sync/atomic"
	"time"

	"github.com/google/gopacket/layers"
	"github.com/google/gopacket/pcap"
)

// pcapSession is the libpcap-backed live session. It follows libpcap's
// two-phase lifecycle: the configuration setters act on an inactive
// handle, Activate swaps it for the active one.
//
// libpcap's breakloop is not exposed by the binding, so Breakloop sets a
// flag that the read path checks; the session's read timeout bounds how
// long a blocked call can outlive the flag.
type pcapSession struct {
	device   string
	snaplen  int
	inactive *pcap.InactiveHandle
	active   *pcap.Handle
	stopped  atomic.Bool
	closed   atomic.Bool
}

// OpenLive creates an unactivated live session on the named device.
func OpenLive(device string) (Session, error) {
	ih, err := pcap.NewInactiveHandle(device)
	if err != nil {
		return nil, fmt.Errorf("engine: creating handle for %s: %w", device, err)
	}
	return &pcapSession{device: device, snaplen: 65535, inactive: ih}, nil
}

func (s *pcapSession) NextRecord() (Record, error) {
	if s.closed.Load() {
		return Record{}, ErrClosed
	}
	if s.stopped.Load() {
		return Record{}, ErrBreak
	}
	if s.active == nil {
		return Record{}, ErrNotActivated
	}
	data, ci, err := s.active.ZeroCopyReadPacketData()
	switch {
	case err == nil:
		return Record{
			Timestamp:      ci.Timestamp,
			CaptureLength:  uint32(ci.CaptureLength),
			OriginalLength: uint32(ci.Length),
			Data:           data,
		}, nil
	case errors.Is(err, pcap.NextErrorTimeoutExpired):
		return Record{}, ErrTimeout
	case errors.Is(err, io.EOF) || errors.Is(err, pcap.NextErrorNoMorePackets):
		s.stopped.Store(true)
		return Record{}, ErrBreak
	default:
		return Record{}, fmt.Errorf("engine: pcap read on %s: %w", s.device, err)
	}
}

func (s *pcapSession) Dispatch(max int, fn func(Record)) (int, error) {
	return drainRecords(s, max, fn)
}

func (s *pcapSession) SetSnapshotLength(n int) error {
	if s.inactive == nil {
		return ErrClosed
	}
	if err := s.inactive.SetSnapLen(n); err != nil {
		return err
	}
	s.snaplen = n
	return nil
}

// SetNonBlocking is satisfied by the read timeout: the binding never
// issues an unbounded blocking read, so there is nothing to switch.
func (s *pcapSession) SetNonBlocking() error { return nil }

func (s *pcapSession) SetPromiscuous() error {
	if s.inactive == nil {
		return ErrClosed
	}
	return s.inactive.SetPromisc(true)
}

func (s *pcapSession) SetTimeout(d time.Duration) error {
	if s.inactive == nil {
		return ErrClosed
	}
	return s.inactive.SetTimeout(d)
}

func (s *pcapSession) SetBufferSize(n int) error {
	if s.inactive == nil {
		return ErrClosed
	}
	return s.inactive.SetBufferSize(n)
}

func (s *pcapSession) Activate() error {
	if s.inactive == nil {
		return ErrClosed
	}
	h, err := s.inactive.Activate()
	if err != nil {
		return fmt.Errorf("engine: activating %s: %w", s.device, err)
	}
	s.active = h
	s.inactive = nil
	return nil
}

type pcapFilter struct {
	expr  string
	insts []pcap.BPFInstruction
}

func (f *pcapFilter) Expression() string { return f.expr }

// CompileFilter works before activation: it compiles against the given
// snapshot length assuming an Ethernet link, the same shortcut the
// kernel-attach path takes.
func (s *pcapSession) CompileFilter(expr string, snaplen int) (Filter, error) {
	if snaplen <= 0 {
		snaplen = s.snaplen
	}
	insts, err := pcap.CompileBPFFilter(layers.LinkTypeEthernet, snaplen, expr)
	if err != nil {
		return nil, fmt.Errorf("engine: compiling %q: %w", expr, err)
	}
	return &pcapFilter{expr: expr, insts: insts}, nil
}

func (s *pcapSession) ApplyFilter(f Filter) error {
	pf, ok := f.(*pcapFilter)
	if !ok {
		return fmt.Errorf("engine: filter %q was not compiled for a pcap session", f.Expression())
	}
	if s.active == nil {
		return ErrNotActivated
	}
	return s.active.SetBPFInstructionFilter(pf.insts)
}

func (s *pcapSession) Breakloop() {
	s.stopped.Store(true)
}

func (s *pcapSession) Stats() (Stats, error) {
	if s.active == nil {
		return Stats{}, ErrNotActivated
	}
	st, err := s.active.Stats()
	if err != nil {
		return Stats{}, fmt.Errorf("engine: reading stats: %w", err)
	}
	return Stats{
		Received:  uint64(st.PacketsReceived),
		Dropped:   uint64(st.PacketsDropped),
		IfDropped: uint64(st.PacketsIfDropped),
	}, nil
}

func (s *pcapSession) Close() error {
	if s.closed.Swap(true) {
		return nil
	}
	s.stopped.Store(true)
	if s.active != nil {
		s.active.Close()
		s.active = nil
	}
	if s.inactive != nil {
		s.inactive.CleanUp()
		s.inactive = nil
	}
	return nil
}

// Devices lists capture-capable interfaces known to libpcap.
func Devices() ([]DeviceInfo, error) {
	devs, err := pcap.FindAllDevs()
	if err != nil {
		return nil, fmt.Errorf("engine: listing devices: %w", err)
	}
	out := make([]DeviceInfo, 0, len(devs))
	for _, d := range devs {
		info := DeviceInfo{Name: d.Name, Description: d.Description}
		for _, a := range d.Addresses {
			info.Addresses = append(info.Addresses, a.IP)
		}
		out = append(out, info)
	}
	return out, nil
}
