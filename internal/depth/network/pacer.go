package network

import (
	"context"
	"time"

	"github.com/banshee-data/depthgrid/internal/monitoring"
	"github.com/banshee-data/depthgrid/internal/timeutil"
)

// RealtimeReplayConfig configures paced capture replay.
type RealtimeReplayConfig struct {
	// SpeedMultiplier scales replay speed (1.0 = real time, 2.0 = twice as
	// fast). Values <= 0 mean 1.0.
	SpeedMultiplier float64
	Clock           timeutil.Clock
}

// replayPacer sleeps between packets so they are delivered with the gaps
// they were captured with, divided by the speed multiplier.
type replayPacer struct {
	speed float64
	clock timeutil.Clock
	last  time.Time
}

func newReplayPacer(cfg RealtimeReplayConfig) *replayPacer {
	p := &replayPacer{speed: cfg.SpeedMultiplier, clock: cfg.Clock}
	if p.speed <= 0 {
		p.speed = 1
	}
	if p.clock == nil {
		p.clock = timeutil.RealClock{}
	}
	return p
}

// wait blocks until the packet captured at captureTime is due. The first
// packet is due immediately; out-of-order capture times do not wait.
func (p *replayPacer) wait(ctx context.Context, captureTime time.Time) error {
	if p.last.IsZero() {
		p.last = captureTime
		return nil
	}
	delay := time.Duration(float64(captureTime.Sub(p.last)) / p.speed)
	if captureTime.After(p.last) {
		p.last = captureTime
	}
	if delay <= 0 {
		return nil
	}
	// One-shot: the ticker is stopped after its first tick.
	t := p.clock.NewTicker(delay)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C():
		return nil
	}
}

// pacedReplay decodes captured payloads and hands them to a handler on the
// capture schedule.
type pacedReplay struct {
	pacer   *replayPacer
	handler FrameHandler
	stats   ListenerStats
}

func newPacedReplay(handler FrameHandler, cfg RealtimeReplayConfig) *pacedReplay {
	return &pacedReplay{pacer: newReplayPacer(cfg), handler: handler}
}

// deliver waits until payload is due, then decodes and forwards it. Only
// cancellation is returned as an error; bad payloads are counted.
func (r *pacedReplay) deliver(ctx context.Context, captureTime time.Time, payload []byte) error {
	if err := r.pacer.wait(ctx, captureTime); err != nil {
		return err
	}
	r.stats.Packets++
	r.stats.Bytes += uint64(len(payload))
	f, err := DecodePacket(payload)
	if err != nil {
		r.stats.Dropped++
		monitoring.Debugf("[pcap] packet %d: %v", r.stats.Packets, err)
		return nil
	}
	if err := r.handler.HandleFrame(f); err != nil {
		r.stats.Rejected++
		monitoring.Debugf("[pcap] packet %d rejected: %v", r.stats.Packets, err)
		return nil
	}
	r.stats.Frames++
	return nil
}
