package pipeline

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/depthgrid/internal/depth"
)

func TestFrameBuffer_LatestWins(t *testing.T) {
	b := NewFrameBuffer()
	f, fresh := b.Latest()
	assert.Nil(t, f)
	assert.False(t, fresh)

	require.NoError(t, b.Put(&depth.Frame{Timestamp: 1}))
	require.NoError(t, b.Put(&depth.Frame{Timestamp: 2}))
	require.NoError(t, b.Put(&depth.Frame{Timestamp: 2}), "equal timestamps are accepted")

	f, fresh = b.Latest()
	require.NotNil(t, f)
	assert.Equal(t, 2.0, f.Timestamp)
	assert.True(t, fresh)

	got, ok := b.Take()
	require.True(t, ok)
	assert.Same(t, f, got)

	_, ok = b.Take()
	assert.False(t, ok, "a frame is taken once")
	f, fresh = b.Latest()
	assert.NotNil(t, f)
	assert.False(t, fresh)

	accepted, stale := b.Counts()
	assert.Equal(t, uint64(3), accepted)
	assert.Zero(t, stale)
}

func TestFrameBuffer_RejectsStaleAndNil(t *testing.T) {
	b := NewFrameBuffer()
	require.NoError(t, b.HandleFrame(&depth.Frame{Timestamp: 5}))

	err := b.Put(&depth.Frame{Timestamp: 4.5})
	assert.ErrorIs(t, err, ErrStaleFrame)

	err = b.Put(nil)
	assert.ErrorIs(t, err, depth.ErrInvalidFrame)

	f, _ := b.Latest()
	assert.Equal(t, 5.0, f.Timestamp)
	_, stale := b.Counts()
	assert.Equal(t, uint64(1), stale)
}
