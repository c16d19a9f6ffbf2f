package network

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/depthgrid/internal/depth"
	"github.com/banshee-data/depthgrid/internal/depth/pipeline"
	"github.com/banshee-data/depthgrid/internal/timeutil"
)

func TestReplayPacer_ScalesCaptureGaps(t *testing.T) {
	clock := timeutil.NewMockClock(time.Unix(0, 0))
	p := newReplayPacer(RealtimeReplayConfig{SpeedMultiplier: 2, Clock: clock})
	t0 := time.Unix(1700000000, 0)

	require.NoError(t, p.wait(context.Background(), t0))
	assert.Equal(t, 0, clock.Tickers())

	done := make(chan error, 1)
	go func() { done <- p.wait(context.Background(), t0.Add(time.Second)) }()
	require.Eventually(t, func() bool { return clock.Tickers() == 1 }, time.Second, time.Millisecond)

	clock.Advance(400 * time.Millisecond)
	select {
	case <-done:
		t.Fatal("packet released before its scaled gap elapsed")
	case <-time.After(20 * time.Millisecond):
	}

	clock.Advance(100 * time.Millisecond)
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("packet not released after 500ms at 2x speed")
	}
	assert.Equal(t, 0, clock.Tickers())
}

func TestReplayPacer_OutOfOrderDoesNotWait(t *testing.T) {
	clock := timeutil.NewMockClock(time.Unix(0, 0))
	p := newReplayPacer(RealtimeReplayConfig{Clock: clock})
	t0 := time.Unix(1700000000, 0)

	require.NoError(t, p.wait(context.Background(), t0))
	require.NoError(t, p.wait(context.Background(), t0.Add(-time.Second)))
	require.NoError(t, p.wait(context.Background(), t0))
	assert.Equal(t, 0, clock.Tickers())
}

func TestReplayPacer_Cancelled(t *testing.T) {
	clock := timeutil.NewMockClock(time.Unix(0, 0))
	p := newReplayPacer(RealtimeReplayConfig{Clock: clock})
	t0 := time.Unix(1700000000, 0)
	require.NoError(t, p.wait(context.Background(), t0))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- p.wait(ctx, t0.Add(time.Minute)) }()
	require.Eventually(t, func() bool { return clock.Tickers() == 1 }, time.Second, time.Millisecond)
	cancel()
	assert.ErrorIs(t, <-done, context.Canceled)
}

func TestNewReplayPacer_Defaults(t *testing.T) {
	p := newReplayPacer(RealtimeReplayConfig{SpeedMultiplier: -3})
	assert.Equal(t, 1.0, p.speed)
	assert.IsType(t, timeutil.RealClock{}, p.clock)
}

func TestPacedReplay_EveryFrameReachesTheProcessor(t *testing.T) {
	clock := timeutil.NewMockClock(time.Unix(0, 0))
	proc, err := pipeline.NewProcessor(pipeline.DefaultConfig(), pipeline.WithClock(clock))
	require.NoError(t, err)
	replay := newPacedReplay(proc, RealtimeReplayConfig{SpeedMultiplier: 1, Clock: clock})

	const n = 4
	gap := pipeline.DefaultConfig().RasterizeInterval
	t0 := time.Unix(1700000000, 0)
	payloads := make([][]byte, n)
	for i := range payloads {
		b, err := EncodePacket(&depth.Frame{
			Timestamp: float64(i) * gap.Seconds(),
			Points:    []depth.Point3D{{X: 0.2, Y: 0.2, Z: float32(i + 1)}},
		})
		require.NoError(t, err)
		payloads[i] = b
	}
	payloads = append(payloads, []byte{1, 2, 3})

	done := make(chan error, 1)
	go func() {
		for i, b := range payloads {
			if err := replay.deliver(context.Background(), t0.Add(time.Duration(i)*gap), b); err != nil {
				done <- err
				return
			}
		}
		done <- nil
	}()

	for i := 1; i <= n; i++ {
		want := uint64(i)
		require.Eventually(t, func() bool { return proc.Stats().FramesReceived == want }, time.Second, time.Millisecond)
		res, ok, err := proc.RasterizeOnce()
		require.NoError(t, err)
		require.True(t, ok)
		assert.InDelta(t, float64(i-1)*gap.Seconds(), res.Timestamp, 1e-9)

		require.Eventually(t, func() bool { return clock.Tickers() == 1 }, time.Second, time.Millisecond)
		clock.Advance(gap)
	}
	require.NoError(t, <-done)

	stats := proc.Stats()
	assert.EqualValues(t, n, stats.FramesProcessed)
	assert.Zero(t, stats.FramesStale)
	assert.Equal(t, ListenerStats{Packets: n + 1, Bytes: replay.stats.Bytes, Frames: n, Dropped: 1}, replay.stats)
}
