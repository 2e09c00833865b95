package engine

import (
	"fmt"
	"io"
	"os"
	"sync/atomic"
	"time"

	"github.com/google/gopacket/pcapgo"
	"golang.org/x/net/bpf"

	"github.com/brosander/pcap-async/pkg/capture/filter"
)

// fileSession replays a pcap savefile through the Session contract using
// the pure-Go pcapgo reader. Replay sessions are pre-activated, so the
// configuration setters are accepted and ignored. Filtering, when
// requested, runs in software through a BPF virtual machine.
type fileSession struct {
	f *os.File
	r *pcapgo.Reader

	vm       *bpf.VM
	stopped  atomic.Bool
	closed   atomic.Bool
	received atomic.Uint64
}

// OpenFile opens a pcap savefile for replay.
func OpenFile(path string) (Session, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("engine: opening capture file: %w", err)
	}
	r, err := pcapgo.NewReader(f)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("engine: reading capture file header: %w", err)
	}
	return &fileSession{f: f, r: r}, nil
}

func (s *fileSession) NextRecord() (Record, error) {
	for {
		if s.closed.Load() {
			return Record{}, ErrClosed
		}
		if s.stopped.Load() {
			return Record{}, ErrBreak
		}
		data, ci, err := s.r.ZeroCopyReadPacketData()
		if err == io.EOF {
			s.stopped.Store(true)
			return Record{}, ErrBreak
		}
		if err != nil {
			return Record{}, fmt.Errorf("engine: reading record: %w", err)
		}
		s.received.Add(1)
		if s.vm != nil {
			keep, err := s.vm.Run(data)
			if err != nil {
				return Record{}, fmt.Errorf("engine: running filter: %w", err)
			}
			if keep == 0 {
				continue
			}
		}
		return Record{
			Timestamp:      ci.Timestamp,
			CaptureLength:  uint32(ci.CaptureLength),
			OriginalLength: uint32(ci.Length),
			Data:           data,
		}, nil
	}
}

func (s *fileSession) Dispatch(max int, fn func(Record)) (int, error) {
	return drainRecords(s, max, fn)
}

// Replay sessions are already activated; the live configuration surface
// is a no-op here.
func (s *fileSession) SetSnapshotLength(int) error  { return nil }
func (s *fileSession) SetNonBlocking() error        { return nil }
func (s *fileSession) SetPromiscuous() error        { return nil }
func (s *fileSession) SetTimeout(time.Duration) error { return nil }
func (s *fileSession) SetBufferSize(int) error      { return nil }
func (s *fileSession) Activate() error              { return nil }

type fileFilter struct {
	expr string
	vm   *bpf.VM
}

func (f *fileFilter) Expression() string { return f.expr }

func (s *fileSession) CompileFilter(expr string, _ int) (Filter, error) {
	vm, err := filter.NewVM(expr)
	if err != nil {
		return nil, err
	}
	return &fileFilter{expr: expr, vm: vm}, nil
}

func (s *fileSession) ApplyFilter(f Filter) error {
	ff, ok := f.(*fileFilter)
	if !ok {
		return fmt.Errorf("engine: filter %q was not compiled for a replay session", f.Expression())
	}
	s.vm = ff.vm
	return nil
}

func (s *fileSession) Breakloop() {
	s.stopped.Store(true)
}

func (s *fileSession) Stats() (Stats, error) {
	if s.closed.Load() {
		return Stats{}, ErrClosed
	}
	return Stats{Received: s.received.Load()}, nil
}

func (s *fileSession) Close() error {
	if s.closed.Swap(true) {
		return nil
	}
	s.stopped.Store(true)
	return s.f.Close()
}
