package capture

import (
	"errors"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/brosander/pcap-async/pkg/capture/engine"
)

// dispatchKind classifies the outcome of one dispatch cycle. All four
// variants must be handled at every consumption site.
type dispatchKind int

const (
	// dispatchComplete: the session ended; no data now or ever.
	dispatchComplete dispatchKind = iota
	// dispatchNoPackets: the native buffer is momentarily empty; the
	// session is still live and a later cycle may produce data.
	dispatchNoPackets
	// dispatchPackets: a non-empty batch was accumulated.
	dispatchPackets
	// dispatchFailed: the native layer reported a hard failure.
	dispatchFailed
)

type dispatchResult struct {
	kind    dispatchKind
	packets []Packet
	err     error
}

func completeOrPartial(packets []Packet) dispatchResult {
	if len(packets) == 0 {
		return dispatchResult{kind: dispatchComplete}
	}
	return dispatchResult{kind: dispatchPackets, packets: packets}
}

func noneOrPartial(packets []Packet) dispatchResult {
	if len(packets) == 0 {
		return dispatchResult{kind: dispatchNoPackets}
	}
	return dispatchResult{kind: dispatchPackets, packets: packets}
}

// ownedPacket copies the engine-owned record bytes into a Packet the
// consumer may keep.
func ownedPacket(rec engine.Record) Packet {
	data := make([]byte, rec.CaptureLength)
	copy(data, rec.Data)
	return NewPacket(rec.Timestamp, rec.CaptureLength, rec.OriginalLength, data)
}

// dispatchSingle runs one cycle in record-at-a-time mode: fetch single
// records until the interrupt flag is observed, the buffer runs empty,
// the loop stops, a hard failure occurs, or the batch ceiling is reached.
func dispatchSingle(h *Handle, live bool, max int) dispatchResult {
	packets := make([]Packet, 0, 2*max)

	for !h.Interrupted() {
		rec, err := h.session.NextRecord()
		switch {
		case errors.Is(err, engine.ErrBreak):
			logrus.Debug("capture loop stopped")
			return completeOrPartial(packets)
		case errors.Is(err, engine.ErrTimeout):
			if !live {
				// Nothing further will arrive synchronously from a
				// replayed file; stop the loop so the next cycle
				// resolves complete instead of re-entering a dead read.
				logrus.Debug("not live capture, requesting loop stop")
				h.session.Breakloop()
			}
			return noneOrPartial(packets)
		case err != nil:
			logrus.WithError(err).Error("error encountered when fetching record")
			return dispatchResult{kind: dispatchFailed, err: &DispatchError{Err: err}}
		}
		if rec.Data == nil {
			logrus.Warn("invalid record passed from capture engine")
			continue
		}
		packets = append(packets, ownedPacket(rec))
		if len(packets) >= max {
			logrus.Debugf("capture loop accumulated maximum of %d packets", max)
			return dispatchResult{kind: dispatchPackets, packets: packets}
		}
	}

	logrus.Debug("interrupt observed during dispatch")
	return completeOrPartial(packets)
}

// dispatchBulk runs one cycle in callback-batch mode: invoke the
// backend's bulk primitive with the remaining ceiling until interrupted,
// a terminal condition is reached, or the ceiling is hit. Classification
// matches dispatchSingle exactly.
func dispatchBulk(h *Handle, live bool, max int) dispatchResult {
	packets := make([]Packet, 0, 2*max)

	for !h.Interrupted() {
		n, err := h.session.Dispatch(max-len(packets), func(rec engine.Record) {
			if rec.Data == nil {
				logrus.Warn("invalid record passed to dispatch callback")
				return
			}
			packets = append(packets, ownedPacket(rec))
		})
		logrus.Debugf("dispatch returned %d records", n)

		switch {
		case errors.Is(err, engine.ErrBreak):
			logrus.Debug("capture loop stopped")
			return completeOrPartial(packets)
		case errors.Is(err, engine.ErrTimeout):
			if !live {
				logrus.Debug("not live capture, requesting loop stop")
				h.session.Breakloop()
			}
			return noneOrPartial(packets)
		case err != nil:
			logrus.WithError(err).Error("error encountered when calling dispatch")
			return dispatchResult{kind: dispatchFailed, err: &DispatchError{Err: err}}
		}
		if len(packets) >= max {
			logrus.Debugf("capture loop accumulated maximum of %d packets", max)
			return dispatchResult{kind: dispatchPackets, packets: packets}
		}
	}

	logrus.Debug("interrupt observed during dispatch")
	return completeOrPartial(packets)
}

// runDispatch executes dispatch cycles until one produces something the
// stream can act on. The transient no-packets outcome is retried here, on
// the background goroutine, so neither the bridge nor the stream ever
// observes it.
func runDispatch(h *Handle, cfg Config) dispatchResult {
	for {
		var res dispatchResult
		switch cfg.Mode {
		case DispatchBulk:
			res = dispatchBulk(h, h.IsLiveCapture(), cfg.MaxPacketsPerBatch)
		case DispatchSingle:
			res = dispatchSingle(h, h.IsLiveCapture(), cfg.MaxPacketsPerBatch)
		}

		switch res.kind {
		case dispatchComplete, dispatchPackets, dispatchFailed:
			return res
		case dispatchNoPackets:
			if h.Interrupted() {
				return dispatchResult{kind: dispatchComplete}
			}
			if h.IsLiveCapture() {
				time.Sleep(cfg.RetryAfter)
			}
		}
	}
}
