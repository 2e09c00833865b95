package capture

import (
	"encoding/binary"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPacketAccessors(t *testing.T) {
	ts := time.Unix(1513735120, 21685000).UTC()
	data := []byte{0xde, 0xad, 0xbe, 0xef}
	p := NewPacket(ts, 4, 54, data)

	assert.Equal(t, ts, p.Timestamp())
	assert.Equal(t, uint32(4), p.CaptureLength())
	assert.Equal(t, uint32(54), p.OriginalLength())
	assert.Equal(t, data, p.Data())
	assert.Equal(t, int(p.CaptureLength()), len(p.Data()))
}

func TestPacketCaptureInfo(t *testing.T) {
	ts := time.Unix(100, 250_000_000).UTC()
	p := NewPacket(ts, 3, 9, []byte{1, 2, 3})

	ci := p.CaptureInfo()
	assert.Equal(t, ts, ci.Timestamp)
	assert.Equal(t, 3, ci.CaptureLength)
	assert.Equal(t, 9, ci.Length)
}

func TestPacketMarshalRecord(t *testing.T) {
	ts := time.UnixMicro(1513735120021685).UTC()
	data := make([]byte, 54)
	p := NewPacket(ts, 54, 54, data)

	rec := p.MarshalRecord(binary.BigEndian)
	require.Len(t, rec, 16+54)

	tsSec := binary.BigEndian.Uint32(rec[0:4])
	tsUsec := binary.BigEndian.Uint32(rec[4:8])
	inclLen := binary.BigEndian.Uint32(rec[8:12])
	origLen := binary.BigEndian.Uint32(rec[12:16])

	assert.Equal(t, uint64(1513735120021685), uint64(tsSec)*1_000_000+uint64(tsUsec))
	assert.Equal(t, uint32(54), inclLen)
	assert.Equal(t, uint32(54), origLen)
}

func TestPacketMarshalRecordLittleEndian(t *testing.T) {
	ts := time.UnixMicro(42_000_007)
	p := NewPacket(ts, 2, 5, []byte{0xaa, 0xbb})

	rec := p.MarshalRecord(binary.LittleEndian)
	assert.Equal(t, uint32(42), binary.LittleEndian.Uint32(rec[0:4]))
	assert.Equal(t, uint32(7), binary.LittleEndian.Uint32(rec[4:8]))
	assert.Equal(t, uint32(2), binary.LittleEndian.Uint32(rec[8:12]))
	assert.Equal(t, uint32(5), binary.LittleEndian.Uint32(rec[12:16]))
	assert.Equal(t, []byte{0xaa, 0xbb}, rec[16:])
}
