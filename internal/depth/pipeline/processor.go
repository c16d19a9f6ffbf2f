package pipeline

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/banshee-data/depthgrid/internal/depth"
	"github.com/banshee-data/depthgrid/internal/depth/cue"
	"github.com/banshee-data/depthgrid/internal/depth/grid"
	"github.com/banshee-data/depthgrid/internal/monitoring"
	"github.com/banshee-data/depthgrid/internal/timeutil"
)

// Stats are cumulative Processor counters.
type Stats struct {
	FramesReceived  uint64 `json:"frames_received"`
	FramesStale     uint64 `json:"frames_stale"`
	FramesProcessed uint64 `json:"frames_processed"`
	FramesFailed    uint64 `json:"frames_failed"`
	Obstacles       uint64 `json:"obstacles"`
	SweepTicks      uint64 `json:"sweep_ticks"`
	Snapshots       uint64 `json:"snapshots"`
	SnapshotErrors  uint64 `json:"snapshot_errors"`
	CueErrors       uint64 `json:"cue_errors"`
}

// Option configures a Processor.
type Option func(*Processor)

// WithClock replaces the real clock, for tests.
func WithClock(c timeutil.Clock) Option { return func(p *Processor) { p.clock = c } }

// WithSink sends cues to s. Without a sink cues are dropped.
func WithSink(s cue.Sink) Option { return func(p *Processor) { p.sink = s } }

// WithStore persists snapshots to s.
func WithStore(s grid.SnapshotStore) Option { return func(p *Processor) { p.store = s } }

// WithSessionID overrides the generated session id.
func WithSessionID(id string) Option { return func(p *Processor) { p.sessionID = id } }

// Processor rasterizes the newest buffered frame on a fixed cadence, runs
// the tone sweep over the latest grid and emits balance cues on obstacles.
type Processor struct {
	cfg       Config
	builder   *grid.Builder
	buffer    *FrameBuffer
	sweep     *cue.Sweep
	sink      cue.Sink
	store     grid.SnapshotStore
	clock     timeutil.Clock
	sessionID string

	mu          sync.RWMutex
	latest      *grid.Result
	wasObstacle bool
	observers   []func(grid.Result)

	running                                  atomic.Bool
	processed, failed, obstacles, sweepTicks atomic.Uint64
	snapshots, snapshotErrors, cueErrors     atomic.Uint64
}

func NewProcessor(cfg Config, opts ...Option) (*Processor, error) {
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid pipeline config: %w", err)
	}
	b, err := grid.NewBuilder(cfg.Params)
	if err != nil {
		return nil, err
	}
	p := &Processor{
		cfg:     cfg,
		builder: b,
		buffer:  NewFrameBuffer(),
		sweep:   cue.NewSweep(cfg.SweepVoices),
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.clock == nil {
		p.clock = timeutil.RealClock{}
	}
	if p.sessionID == "" {
		p.sessionID = uuid.NewString()
	}
	return p, nil
}

func (p *Processor) SessionID() string { return p.sessionID }

func (p *Processor) Config() Config { return p.cfg }

// Running reports whether Run is active.
func (p *Processor) Running() bool { return p.running.Load() }

// HandleFrame buffers f for the next rasterize tick.
func (p *Processor) HandleFrame(f *depth.Frame) error { return p.buffer.Put(f) }

// Subscribe registers fn to receive every successful result. fn runs on the
// processing goroutine and must not block.
func (p *Processor) Subscribe(fn func(grid.Result)) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.observers = append(p.observers, fn)
}

// Latest returns the most recent successful result.
func (p *Processor) Latest() (grid.Result, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.latest == nil {
		return grid.Result{}, false
	}
	return *p.latest, true
}

func (p *Processor) Stats() Stats {
	accepted, stale := p.buffer.Counts()
	return Stats{
		FramesReceived:  accepted,
		FramesStale:     stale,
		FramesProcessed: p.processed.Load(),
		FramesFailed:    p.failed.Load(),
		Obstacles:       p.obstacles.Load(),
		SweepTicks:      p.sweepTicks.Load(),
		Snapshots:       p.snapshots.Load(),
		SnapshotErrors:  p.snapshotErrors.Load(),
		CueErrors:       p.cueErrors.Load(),
	}
}

// RasterizeOnce processes the buffered frame if a new one arrived since the
// last call. ok is false when there was nothing new. A failed frame leaves
// the previous result in place.
func (p *Processor) RasterizeOnce() (res grid.Result, ok bool, err error) {
	frame, fresh := p.buffer.Take()
	if !fresh {
		return grid.Result{}, false, nil
	}
	res, err = p.builder.Process(frame, p.cfg.Tolerance)
	if err != nil {
		p.failed.Add(1)
		monitoring.Logf("[pipeline] dropping frame at %.3f: %v", frame.Timestamp, err)
		return grid.Result{}, false, err
	}
	p.processed.Add(1)

	p.mu.Lock()
	p.latest = &res
	onset := res.Obstacle && !p.wasObstacle
	p.wasObstacle = res.Obstacle
	observers := append(([]func(grid.Result))(nil), p.observers...)
	p.mu.Unlock()

	monitoring.Debugf("[pipeline] ts=%.3f marked=%d collision=%t avg=%.2f",
		res.Timestamp, res.Stats.Marked, res.Collision, res.AverageDepth)

	for _, fn := range observers {
		fn(res)
	}

	if res.Obstacle {
		p.obstacles.Add(1)
		if c, ok := cue.NewBalanceCue(res); ok && p.sink != nil {
			if err := p.sink.Balance(c); err != nil {
				p.cueErrors.Add(1)
				monitoring.Logf("[pipeline] balance cue failed: %v", err)
			}
		}
	}
	if onset {
		if _, err := p.persist(res, grid.ReasonObstacle); err != nil {
			monitoring.Logf("[pipeline] obstacle snapshot failed: %v", err)
		}
	}
	return res, true, nil
}

// SweepOnce advances the tone sweep over the latest grid.
func (p *Processor) SweepOnce() []cue.Tone {
	res, ok := p.Latest()
	if !ok {
		return nil
	}
	p.sweepTicks.Add(1)
	tones := p.sweep.Tick(res.Grid)
	if p.sink != nil && len(tones) > 0 {
		if err := p.sink.Tones(tones); err != nil {
			p.cueErrors.Add(1)
			monitoring.Debugf("[pipeline] tone cue failed: %v", err)
		}
	}
	return tones
}

// Snapshot persists the latest result with reason. It returns the snapshot
// id, or 0 when there is no store or no result yet.
func (p *Processor) Snapshot(reason string) (int64, error) {
	res, ok := p.Latest()
	if !ok {
		return 0, nil
	}
	return p.persist(res, reason)
}

func (p *Processor) persist(res grid.Result, reason string) (int64, error) {
	if p.store == nil {
		return 0, nil
	}
	snap, err := grid.NewSnapshot(p.sessionID, res, reason, p.clock.Now())
	if err != nil {
		p.snapshotErrors.Add(1)
		return 0, err
	}
	id, err := p.store.InsertSnapshot(snap)
	if err != nil {
		p.snapshotErrors.Add(1)
		return 0, fmt.Errorf("failed to persist snapshot: %w", err)
	}
	p.snapshots.Add(1)
	return id, nil
}

// Run drives the rasterize, sweep and snapshot tickers until ctx is
// cancelled, then returns ctx.Err().
func (p *Processor) Run(ctx context.Context) error {
	if !p.running.CompareAndSwap(false, true) {
		return fmt.Errorf("processor already running")
	}
	defer p.running.Store(false)

	raster := p.clock.NewTicker(p.cfg.RasterizeInterval)
	defer raster.Stop()
	sweep := p.clock.NewTicker(p.cfg.SweepInterval)
	defer sweep.Stop()

	var snapshotC <-chan time.Time
	if p.cfg.SnapshotInterval > 0 && p.store != nil {
		snap := p.clock.NewTicker(p.cfg.SnapshotInterval)
		defer snap.Stop()
		snapshotC = snap.C()
	}

	monitoring.Logf("[pipeline] session %s: rasterize every %v, sweep every %v, tolerance %.2f",
		p.sessionID, p.cfg.RasterizeInterval, p.cfg.SweepInterval, p.cfg.Tolerance)

	for {
		select {
		case <-ctx.Done():
			s := p.Stats()
			monitoring.Logf("[pipeline] stopping: processed=%d failed=%d obstacles=%d snapshots=%d",
				s.FramesProcessed, s.FramesFailed, s.Obstacles, s.Snapshots)
			return ctx.Err()
		case <-raster.C():
			p.RasterizeOnce()
		case <-sweep.C():
			p.SweepOnce()
		case <-snapshotC:
			if _, err := p.Snapshot(grid.ReasonPeriodic); err != nil {
				monitoring.Logf("[pipeline] periodic snapshot failed: %v", err)
			}
		}
	}
}
