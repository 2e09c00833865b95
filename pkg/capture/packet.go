// Package capture turns a blocking native capture session into a
// cancellable, batch-oriented pull stream. The blocking dispatch work runs
// on a background goroutine with at most one cycle in flight per stream;
// consumers pull ordered packet batches until end-of-input or the first
// hard failure.
package capture

import (
	"encoding/binary"
	"time"

	"github.com/google/gopacket"
)

// Packet is one captured frame. It is immutable after construction and
// owns its data buffer; len(Data()) always equals CaptureLength().
type Packet struct {
	timestamp      time.Time
	captureLength  uint32
	originalLength uint32
	data           []byte
}

// NewPacket builds a Packet taking ownership of data.
func NewPacket(timestamp time.Time, captureLength, originalLength uint32, data []byte) Packet {
	return Packet{
		timestamp:      timestamp,
		captureLength:  captureLength,
		originalLength: originalLength,
		data:           data,
	}
}

// Timestamp is the capture time, microsecond resolution.
func (p Packet) Timestamp() time.Time { return p.timestamp }

// CaptureLength is the number of bytes actually captured.
func (p Packet) CaptureLength() uint32 { return p.captureLength }

// OriginalLength is the on-wire length; it exceeds CaptureLength when the
// frame was truncated at the snapshot length.
func (p Packet) OriginalLength() uint32 { return p.originalLength }

// Data is the captured bytes.
func (p Packet) Data() []byte { return p.data }

// CaptureInfo adapts the packet's metadata for gopacket consumers.
func (p Packet) CaptureInfo() gopacket.CaptureInfo {
	return gopacket.CaptureInfo{
		Timestamp:     p.timestamp,
		CaptureLength: int(p.captureLength),
		Length:        int(p.originalLength),
	}
}

// MarshalRecord encodes the packet as a pcap savefile record
// (ts_sec, ts_usec, incl_len, orig_len, data) in the given byte order.
func (p Packet) MarshalRecord(order binary.ByteOrder) []byte {
	buf := make([]byte, 16+len(p.data))
	us := p.timestamp.UnixMicro()
	order.PutUint32(buf[0:4], uint32(us/1_000_000))
	order.PutUint32(buf[4:8], uint32(us%1_000_000))
	order.PutUint32(buf[8:12], p.captureLength)
	order.PutUint32(buf[12:16], p.originalLength)
	copy(buf[16:], p.data)
	return buf
}
