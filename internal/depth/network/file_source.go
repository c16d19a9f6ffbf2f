package network

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/banshee-data/depthgrid/internal/depth"
	"github.com/banshee-data/depthgrid/internal/monitoring"
	"github.com/banshee-data/depthgrid/internal/timeutil"
)

// FileSource replays recorded frames into a handler at a fixed interval.
type FileSource struct {
	Frames   []*depth.Frame
	Interval time.Duration
	Loop     bool
	Clock    timeutil.Clock
}

// OpenASCSource loads an ASC recording.
func OpenASCSource(path string, interval time.Duration) (*FileSource, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()
	frames, err := depth.ReadASC(f)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	if len(frames) == 0 {
		return nil, fmt.Errorf("%s contains no frames", path)
	}
	return &FileSource{Frames: frames, Interval: interval}, nil
}

// Run delivers one frame per tick until the frames run out (or forever when
// Loop is set) or ctx is cancelled. The first frame is sent immediately.
// Each looped pass is shifted forward by the recording span plus one
// interval, so timestamps keep increasing across passes. Handler errors are
// logged and do not stop the replay.
func (s *FileSource) Run(ctx context.Context, handler FrameHandler) error {
	if len(s.Frames) == 0 {
		return nil
	}
	clock := s.Clock
	if clock == nil {
		clock = timeutil.RealClock{}
	}
	interval := s.Interval
	if interval <= 0 {
		interval = 100 * time.Millisecond
	}
	ticker := clock.NewTicker(interval)
	defer ticker.Stop()

	span := s.Frames[len(s.Frames)-1].Timestamp - s.Frames[0].Timestamp + interval.Seconds()
	var offset float64
	for i := 0; ; {
		f := s.Frames[i]
		if offset != 0 {
			f = &depth.Frame{Timestamp: f.Timestamp + offset, Points: f.Points}
		}
		if err := handler.HandleFrame(f); err != nil {
			monitoring.Debugf("[replay] frame %d: %v", i, err)
		}
		i++
		if i == len(s.Frames) {
			if !s.Loop {
				monitoring.Logf("[replay] finished %d frames", len(s.Frames))
				return nil
			}
			i = 0
			offset += span
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C():
		}
	}
}
