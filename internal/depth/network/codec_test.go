package network

import (
	"encoding/binary"
	"errors"
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/depthgrid/internal/depth"
)

func TestEncodeDecodePacket(t *testing.T) {
	in, err := depth.NewFrame(42.25, []depth.Point3D{
		{X: 0.1, Y: -0.2, Z: 1.5},
		{X: -0.9, Y: 0.9, Z: 3},
	})
	require.NoError(t, err)

	b, err := EncodePacket(in)
	require.NoError(t, err)
	assert.Len(t, b, HeaderSize+2*PointSize)
	assert.Equal(t, uint32(2), binary.LittleEndian.Uint32(b[8:12]))

	out, err := DecodePacket(b)
	require.NoError(t, err)
	if diff := cmp.Diff(in, out); diff != "" {
		t.Errorf("frame mismatch (-want +got):\n%s", diff)
	}
}

func TestEncodePacket_NilFrame(t *testing.T) {
	b, err := EncodePacket(nil)
	require.NoError(t, err)
	assert.Len(t, b, HeaderSize)

	f, err := DecodePacket(b)
	require.NoError(t, err)
	assert.Equal(t, 0, f.Len())
	assert.Zero(t, f.Timestamp)
}

func TestEncodePacket_TooLarge(t *testing.T) {
	f := &depth.Frame{Points: make([]depth.Point3D, MaxPoints+1)}
	_, err := EncodePacket(f)
	assert.ErrorIs(t, err, ErrPacketTooLarge)
}

func TestDecodePacket_Errors(t *testing.T) {
	valid, err := EncodePacket(&depth.Frame{Timestamp: 1, Points: []depth.Point3D{{X: 1, Y: 1, Z: 1}}})
	require.NoError(t, err)

	hugeCount := make([]byte, HeaderSize)
	binary.LittleEndian.PutUint32(hugeCount[8:], math.MaxUint32)

	// Wraps negative if converted to a 32-bit int before the bound check.
	signBitCount := make([]byte, HeaderSize)
	binary.LittleEndian.PutUint32(signBitCount[8:], 1<<31)

	overMax := make([]byte, HeaderSize)
	binary.LittleEndian.PutUint32(overMax[8:], MaxPoints+1)

	nanPoint := append([]byte(nil), valid...)
	binary.LittleEndian.PutUint32(nanPoint[HeaderSize+4:], math.Float32bits(float32(math.NaN())))

	nanTimestamp := append([]byte(nil), valid...)
	binary.LittleEndian.PutUint64(nanTimestamp[0:], math.Float64bits(math.Inf(1)))

	tests := []struct {
		name string
		data []byte
		want error
	}{
		{"empty", nil, ErrShortPacket},
		{"partial header", valid[:7], ErrShortPacket},
		{"truncated points", valid[:len(valid)-1], ErrShortPacket},
		{"count overflow", hugeCount, ErrShortPacket},
		{"count sign bit", signBitCount, ErrShortPacket},
		{"count over max", overMax, ErrShortPacket},
		{"trailing bytes", append(append([]byte(nil), valid...), 0), ErrTrailingData},
		{"nan coordinate", nanPoint, depth.ErrInvalidFrame},
		{"inf timestamp", nanTimestamp, depth.ErrInvalidFrame},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f, err := DecodePacket(tt.data)
			assert.Nil(t, f)
			assert.True(t, errors.Is(err, tt.want), "got %v, want %v", err, tt.want)
		})
	}
}

func TestDecodePacket_NaNCoordinateIndex(t *testing.T) {
	b, err := EncodePacket(&depth.Frame{Points: make([]depth.Point3D, 3)})
	require.NoError(t, err)
	binary.LittleEndian.PutUint32(b[HeaderSize+2*PointSize+8:], math.Float32bits(float32(math.Inf(-1))))

	_, err = DecodePacket(b)
	var ife *depth.InvalidFrameError
	require.ErrorAs(t, err, &ife)
	assert.Equal(t, 2, ife.Index)
}
