// Package network receives depth frames from the sensor bridge over UDP,
// from PCAP captures of that traffic, or from ASC recordings on disk.
package network

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"

	"github.com/banshee-data/depthgrid/internal/depth"
)

// Wire layout, little endian:
//
//	offset 0   float64  timestamp (seconds)
//	offset 8   uint32   point count N
//	offset 12  N x {float32 x, float32 y, float32 z}
const (
	HeaderSize = 12
	PointSize  = 12
	// MaxPacketSize is the largest UDP payload the listener reads.
	MaxPacketSize = 65507
	MaxPoints     = (MaxPacketSize - HeaderSize) / PointSize
)

var (
	ErrShortPacket    = errors.New("depth packet truncated")
	ErrTrailingData   = errors.New("depth packet has trailing bytes")
	ErrPacketTooLarge = errors.New("depth frame too large for one packet")
)

// DecodePacket parses one datagram into a validated frame.
func DecodePacket(b []byte) (*depth.Frame, error) {
	if len(b) < HeaderSize {
		return nil, fmt.Errorf("%w: %d bytes, need %d for header", ErrShortPacket, len(b), HeaderSize)
	}
	ts := math.Float64frombits(binary.LittleEndian.Uint64(b[0:8]))
	raw := binary.LittleEndian.Uint32(b[8:12])
	if raw > MaxPoints {
		return nil, fmt.Errorf("%w: header claims %d points", ErrShortPacket, raw)
	}
	count := int(raw)
	want := HeaderSize + count*PointSize
	switch {
	case len(b) < want:
		return nil, fmt.Errorf("%w: %d bytes for %d points, need %d", ErrShortPacket, len(b), count, want)
	case len(b) > want:
		return nil, fmt.Errorf("%w: %d extra", ErrTrailingData, len(b)-want)
	}

	xyz := make([]float32, count*3)
	for i := range xyz {
		off := HeaderSize + i*4
		xyz[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[off : off+4]))
	}
	return depth.NewFrameFromXYZ(ts, xyz)
}

// EncodePacket serializes f in the wire layout. A nil frame encodes as an
// empty frame at timestamp 0.
func EncodePacket(f *depth.Frame) ([]byte, error) {
	n := f.Len()
	if n > MaxPoints {
		return nil, fmt.Errorf("%w: %d points, max %d", ErrPacketTooLarge, n, MaxPoints)
	}
	b := make([]byte, HeaderSize+n*PointSize)
	var ts float64
	if f != nil {
		ts = f.Timestamp
	}
	binary.LittleEndian.PutUint64(b[0:8], math.Float64bits(ts))
	binary.LittleEndian.PutUint32(b[8:12], uint32(n))
	for i, v := range f.XYZ() {
		binary.LittleEndian.PutUint32(b[HeaderSize+i*4:], math.Float32bits(v))
	}
	return b, nil
}
