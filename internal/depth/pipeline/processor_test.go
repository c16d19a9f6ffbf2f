package pipeline

import (
	"context"
	"errors"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/depthgrid/internal/config"
	"github.com/banshee-data/depthgrid/internal/depth"
	"github.com/banshee-data/depthgrid/internal/depth/cue"
	"github.com/banshee-data/depthgrid/internal/depth/grid"
	"github.com/banshee-data/depthgrid/internal/monitoring"
	"github.com/banshee-data/depthgrid/internal/timeutil"
)

func TestMain(m *testing.M) {
	monitoring.SetLogger(nil)
	m.Run()
}

// cellPoint returns a point at the centre of (row, col) on the default grid.
func cellPoint(row, col int, z float32) depth.Point3D {
	return depth.Point3D{
		X: float32((float64(col)+0.5)/10 - 1),
		Y: float32((float64(row)+0.5)/6 - 1),
		Z: z,
	}
}

// obstacleFrame marks four adjacent cells on row 6, left of centre.
func obstacleFrame(ts float64) *depth.Frame {
	return &depth.Frame{Timestamp: ts, Points: []depth.Point3D{
		cellPoint(6, 5, 1), cellPoint(6, 6, 1), cellPoint(6, 7, 1), cellPoint(6, 8, 1),
	}}
}

func clearFrame(ts float64) *depth.Frame {
	return &depth.Frame{Timestamp: ts, Points: []depth.Point3D{cellPoint(0, 0, 1)}}
}

type recordingSink struct {
	mu       sync.Mutex
	tones    [][]cue.Tone
	balances []cue.BalanceCue
	err      error
}

func (r *recordingSink) Tones(t []cue.Tone) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tones = append(r.tones, t)
	return r.err
}

func (r *recordingSink) Balance(c cue.BalanceCue) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.balances = append(r.balances, c)
	return r.err
}

func (r *recordingSink) balanceCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.balances)
}

type memStore struct {
	mu    sync.Mutex
	snaps []*grid.Snapshot
	err   error
}

func (m *memStore) InsertSnapshot(s *grid.Snapshot) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return 0, m.err
	}
	m.snaps = append(m.snaps, s)
	id := int64(len(m.snaps))
	s.SnapshotID = &id
	return id, nil
}

func (m *memStore) reasons() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []string
	for _, s := range m.snaps {
		out = append(out, s.Reason)
	}
	return out
}

func newTestProcessor(t *testing.T, opts ...Option) *Processor {
	t.Helper()
	p, err := NewProcessor(DefaultConfig(), opts...)
	require.NoError(t, err)
	return p
}

func TestNewProcessor_InvalidConfig(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Tolerance = 0
	_, err := NewProcessor(cfg)
	assert.ErrorIs(t, err, grid.ErrInvalidTolerance)

	cfg = DefaultConfig()
	cfg.SweepInterval = 0
	_, err = NewProcessor(cfg)
	assert.Error(t, err)

	cfg = DefaultConfig()
	cfg.Params.Width = 0
	_, err = NewProcessor(cfg)
	assert.Error(t, err)
}

func TestConfigFromTuning(t *testing.T) {
	cfg := ConfigFromTuning(config.DefaultTuningConfig())
	assert.Equal(t, DefaultConfig(), cfg)
}

func TestProcessor_SessionID(t *testing.T) {
	a := newTestProcessor(t)
	b := newTestProcessor(t)
	assert.Len(t, a.SessionID(), 36)
	assert.NotEqual(t, a.SessionID(), b.SessionID())

	c := newTestProcessor(t, WithSessionID("walk-1"))
	assert.Equal(t, "walk-1", c.SessionID())
}

func TestProcessor_RasterizeOnce(t *testing.T) {
	sink := &recordingSink{}
	store := &memStore{}
	p := newTestProcessor(t, WithSink(sink), WithStore(store))

	var observed []float64
	p.Subscribe(func(r grid.Result) { observed = append(observed, r.Timestamp) })

	_, ok, err := p.RasterizeOnce()
	require.NoError(t, err)
	assert.False(t, ok, "nothing buffered")

	require.NoError(t, p.HandleFrame(obstacleFrame(1)))
	res, ok, err := p.RasterizeOnce()
	require.NoError(t, err)
	require.True(t, ok)
	assert.True(t, res.Collision)
	assert.True(t, res.Obstacle)
	assert.Equal(t, 4, res.Grid.OccupiedCount())

	_, ok, _ = p.RasterizeOnce()
	assert.False(t, ok, "the same frame is not processed twice")

	require.Len(t, sink.balances, 1)
	assert.Equal(t, cue.SideRight, sink.balances[0].Side)
	assert.Equal(t, 126, sink.balances[0].LeftEmpty)
	assert.Equal(t, []string{grid.ReasonObstacle}, store.reasons())

	// Obstacle persists: cue again, but no new onset snapshot.
	require.NoError(t, p.HandleFrame(obstacleFrame(2)))
	_, _, err = p.RasterizeOnce()
	require.NoError(t, err)
	assert.Len(t, sink.balances, 2)
	assert.Len(t, store.reasons(), 1)

	// Clear then obstacle again is a new onset.
	require.NoError(t, p.HandleFrame(clearFrame(3)))
	_, _, err = p.RasterizeOnce()
	require.NoError(t, err)
	require.NoError(t, p.HandleFrame(obstacleFrame(4)))
	_, _, err = p.RasterizeOnce()
	require.NoError(t, err)
	assert.Len(t, store.reasons(), 2)

	latest, ok := p.Latest()
	require.True(t, ok)
	assert.Equal(t, 4.0, latest.Timestamp)
	assert.Equal(t, []float64{1, 2, 3, 4}, observed)

	s := p.Stats()
	assert.Equal(t, uint64(4), s.FramesReceived)
	assert.Equal(t, uint64(4), s.FramesProcessed)
	assert.Equal(t, uint64(3), s.Obstacles)
	assert.Equal(t, uint64(2), s.Snapshots)
}

func TestProcessor_FailedFrameKeepsPreviousResult(t *testing.T) {
	p := newTestProcessor(t)
	require.NoError(t, p.HandleFrame(clearFrame(1)))
	_, _, err := p.RasterizeOnce()
	require.NoError(t, err)

	bad := &depth.Frame{Timestamp: 2, Points: []depth.Point3D{{X: float32(math.NaN()), Y: 0, Z: 1}}}
	require.NoError(t, p.HandleFrame(bad))
	_, ok, err := p.RasterizeOnce()
	assert.False(t, ok)
	assert.ErrorIs(t, err, depth.ErrInvalidFrame)

	latest, ok := p.Latest()
	require.True(t, ok)
	assert.Equal(t, 1.0, latest.Timestamp)
	assert.Equal(t, uint64(1), p.Stats().FramesFailed)
}

func TestProcessor_SinkErrorsAreCounted(t *testing.T) {
	sink := &recordingSink{err: errors.New("port gone")}
	p := newTestProcessor(t, WithSink(sink))
	require.NoError(t, p.HandleFrame(obstacleFrame(1)))
	_, ok, err := p.RasterizeOnce()
	require.NoError(t, err)
	require.True(t, ok)
	p.SweepOnce()
	assert.Equal(t, uint64(2), p.Stats().CueErrors)
}

func TestProcessor_SweepOnce(t *testing.T) {
	sink := &recordingSink{}
	p := newTestProcessor(t, WithSink(sink))
	assert.Nil(t, p.SweepOnce(), "no grid yet")

	require.NoError(t, p.HandleFrame(clearFrame(1)))
	_, _, err := p.RasterizeOnce()
	require.NoError(t, err)

	tones := p.SweepOnce()
	require.Len(t, tones, cue.DefaultVoices-1, "row 0 col 0 is occupied")
	assert.Equal(t, 1, tones[0].Voice)
	assert.Len(t, sink.tones, 1)
	assert.Equal(t, uint64(1), p.Stats().SweepTicks)
}

func TestProcessor_Snapshot(t *testing.T) {
	store := &memStore{}
	p := newTestProcessor(t, WithStore(store), WithSessionID("s1"))

	id, err := p.Snapshot(grid.ReasonManual)
	require.NoError(t, err)
	assert.Zero(t, id, "no result yet")

	require.NoError(t, p.HandleFrame(clearFrame(1)))
	_, _, err = p.RasterizeOnce()
	require.NoError(t, err)

	id, err = p.Snapshot(grid.ReasonManual)
	require.NoError(t, err)
	assert.Equal(t, int64(1), id)
	require.Len(t, store.snaps, 1)
	assert.Equal(t, "s1", store.snaps[0].SessionID)
	assert.Equal(t, 1, store.snaps[0].OccupiedCells)

	store.err = errors.New("disk full")
	_, err = p.Snapshot(grid.ReasonManual)
	assert.ErrorContains(t, err, "disk full")
	assert.Equal(t, uint64(1), p.Stats().SnapshotErrors)
}

func TestProcessor_RunDrivesTickers(t *testing.T) {
	clock := timeutil.NewMockClock(time.Unix(1700000000, 0))
	sink := &recordingSink{}
	store := &memStore{}
	p := newTestProcessor(t, WithClock(clock), WithSink(sink), WithStore(store))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- p.Run(ctx) }()

	require.Eventually(t, func() bool { return clock.Tickers() == 3 }, time.Second, time.Millisecond)
	assert.True(t, p.Running())
	assert.Error(t, p.Run(ctx), "second Run is refused")

	require.NoError(t, p.HandleFrame(obstacleFrame(1)))
	clock.Advance(500 * time.Millisecond)
	require.Eventually(t, func() bool { return p.Stats().FramesProcessed == 1 }, time.Second, time.Millisecond)
	require.Eventually(t, func() bool { return sink.balanceCount() == 1 }, time.Second, time.Millisecond)
	require.Eventually(t, func() bool { return len(store.reasons()) == 1 }, time.Second, time.Millisecond)

	clock.Advance(200 * time.Millisecond)
	require.Eventually(t, func() bool { return p.Stats().SweepTicks >= 1 }, time.Second, time.Millisecond)

	clock.Advance(time.Minute)
	require.Eventually(t, func() bool { return len(store.reasons()) == 2 }, time.Second, time.Millisecond)
	assert.Equal(t, []string{grid.ReasonObstacle, grid.ReasonPeriodic}, store.reasons())
	assert.Equal(t, time.Unix(1700000000, 0).Add(500*time.Millisecond).UnixNano(), store.snaps[0].TakenUnixNanos)

	cancel()
	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("Run did not stop")
	}
	assert.False(t, p.Running())
	assert.Equal(t, 0, clock.Tickers())
}

func TestProcessor_RunWithoutStoreSkipsSnapshotTicker(t *testing.T) {
	clock := timeutil.NewMockClock(time.Unix(0, 0))
	p := newTestProcessor(t, WithClock(clock))
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- p.Run(ctx) }()

	require.Eventually(t, func() bool { return clock.Tickers() == 2 }, time.Second, time.Millisecond)
	cancel()
	assert.ErrorIs(t, <-done, context.Canceled)
}
