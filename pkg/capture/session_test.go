package capture

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/brosander/pcap-async/pkg/capture/engine"
)

// fakeSession is a scripted engine.Session. Each step yields either a
// record or a sentinel condition, letting tests drive the dispatch loop
// deterministically without a native backend.
type fakeSession struct {
	mu    sync.Mutex
	steps []fakeStep
	idx   int

	stopped atomic.Bool
	closed  atomic.Bool

	gate chan struct{} // when set, NextRecord blocks on it before each step

	configured      []string
	activated       bool
	activateErr     error
	configErr       error
	compileErr      error
	applyErr        error
	applied         string
	compiledSnaplen int
}

type fakeStep struct {
	rec engine.Record
	err error
}

func fakeRecord(i int, length int) engine.Record {
	base := time.Unix(1513735120, 21685000).UTC()
	data := make([]byte, length)
	for j := range data {
		data[j] = byte(i + j)
	}
	return engine.Record{
		Timestamp:      base.Add(time.Duration(i) * time.Millisecond),
		CaptureLength:  uint32(length),
		OriginalLength: uint32(length),
		Data:           data,
	}
}

// scriptedSession yields n records then the terminal err.
func scriptedSession(n int, terminal error) *fakeSession {
	s := &fakeSession{}
	for i := 0; i < n; i++ {
		s.steps = append(s.steps, fakeStep{rec: fakeRecord(i, 54)})
	}
	if terminal != nil {
		s.steps = append(s.steps, fakeStep{err: terminal})
	}
	return s
}

func (s *fakeSession) NextRecord() (engine.Record, error) {
	if s.gate != nil {
		<-s.gate
	}
	if s.closed.Load() {
		return engine.Record{}, engine.ErrClosed
	}
	if s.stopped.Load() {
		return engine.Record{}, engine.ErrBreak
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.idx >= len(s.steps) {
		s.stopped.Store(true)
		return engine.Record{}, engine.ErrBreak
	}
	step := s.steps[s.idx]
	s.idx++
	if step.err != nil {
		return engine.Record{}, step.err
	}
	return step.rec, nil
}

func (s *fakeSession) Dispatch(max int, fn func(engine.Record)) (int, error) {
	n := 0
	for n < max {
		rec, err := s.NextRecord()
		if err != nil {
			return n, err
		}
		fn(rec)
		n++
	}
	return n, nil
}

func (s *fakeSession) record(op string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.configured = append(s.configured, op)
	return s.configErr
}

func (s *fakeSession) SetSnapshotLength(int) error    { return s.record("snaplen") }
func (s *fakeSession) SetNonBlocking() error          { return s.record("nonblock") }
func (s *fakeSession) SetPromiscuous() error          { return s.record("promisc") }
func (s *fakeSession) SetTimeout(time.Duration) error { return s.record("timeout") }
func (s *fakeSession) SetBufferSize(int) error        { return s.record("buffer") }

func (s *fakeSession) Activate() error {
	if err := s.record("activate"); err != nil {
		return err
	}
	if s.activateErr != nil {
		return s.activateErr
	}
	s.activated = true
	return nil
}

type fakeFilter struct{ expr string }

func (f *fakeFilter) Expression() string { return f.expr }

func (s *fakeSession) CompileFilter(expr string, snaplen int) (engine.Filter, error) {
	if s.compileErr != nil {
		return nil, s.compileErr
	}
	s.compiledSnaplen = snaplen
	return &fakeFilter{expr: expr}, nil
}

func (s *fakeSession) ApplyFilter(f engine.Filter) error {
	if s.applyErr != nil {
		return s.applyErr
	}
	s.applied = f.Expression()
	return nil
}

func (s *fakeSession) Breakloop() { s.stopped.Store(true) }

func (s *fakeSession) Stats() (engine.Stats, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return engine.Stats{Received: uint64(s.idx)}, nil
}

func (s *fakeSession) Close() error {
	s.closed.Store(true)
	return nil
}
