// Package pipeline connects frame sources to the grid builder and the cue
// sinks. Frames arrive asynchronously into a FrameBuffer; a Processor reads
// the newest one on its own cadence.
package pipeline

import (
	"errors"
	"fmt"
	"sync"

	"github.com/banshee-data/depthgrid/internal/depth"
)

// ErrStaleFrame is returned by Put for a frame older than the buffered one.
var ErrStaleFrame = errors.New("frame is older than the buffered frame")

// FrameBuffer holds the most recent frame. Older frames are discarded
// rather than queued.
type FrameBuffer struct {
	mu     sync.Mutex
	latest *depth.Frame
	fresh  bool
	puts   uint64
	stale  uint64
}

func NewFrameBuffer() *FrameBuffer { return &FrameBuffer{} }

// Put replaces the buffered frame with f. Frames with the same timestamp
// as the buffered one are accepted.
func (b *FrameBuffer) Put(f *depth.Frame) error {
	if f == nil {
		return &depth.InvalidFrameError{Reason: "nil frame", Index: -1}
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.latest != nil && f.Timestamp < b.latest.Timestamp {
		b.stale++
		return fmt.Errorf("%w: %.6f < %.6f", ErrStaleFrame, f.Timestamp, b.latest.Timestamp)
	}
	b.latest = f
	b.fresh = true
	b.puts++
	return nil
}

// HandleFrame implements network.FrameHandler.
func (b *FrameBuffer) HandleFrame(f *depth.Frame) error { return b.Put(f) }

// Latest returns the buffered frame and whether it has not been taken yet.
func (b *FrameBuffer) Latest() (*depth.Frame, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.latest, b.fresh
}

// Take returns the buffered frame if it has not been taken before.
func (b *FrameBuffer) Take() (*depth.Frame, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.fresh {
		return nil, false
	}
	b.fresh = false
	return b.latest, true
}

// Counts returns accepted and stale Put calls.
func (b *FrameBuffer) Counts() (accepted, stale uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.puts, b.stale
}
