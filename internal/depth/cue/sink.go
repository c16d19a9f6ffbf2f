package cue

import (
	"errors"
	"sync"

	"github.com/banshee-data/depthgrid/internal/monitoring"
)

// Sink receives cues for playback.
type Sink interface {
	Tones(tones []Tone) error
	Balance(c BalanceCue) error
}

// LogSink writes cues to the process log. Tones are only logged in verbose
// mode since the sweep fires several times a second.
type LogSink struct{}

func (LogSink) Tones(tones []Tone) error {
	if len(tones) == 0 {
		return nil
	}
	monitoring.Debugf("[cue] col=%d tones=%d bar=%t", tones[0].Col, len(tones), tones[0].Bar)
	return nil
}

func (LogSink) Balance(c BalanceCue) error {
	monitoring.Logf("[cue] obstacle ahead; turn %s (left_empty=%d right_empty=%d)", c.Side, c.LeftEmpty, c.RightEmpty)
	return nil
}

// MultiSink fans cues out to every sink. All sinks are called even if one
// fails; the errors are joined.
type MultiSink struct {
	mu    sync.RWMutex
	sinks []Sink
}

func NewMultiSink(sinks ...Sink) *MultiSink {
	m := &MultiSink{}
	for _, s := range sinks {
		m.Add(s)
	}
	return m
}

// Add registers s. Nil sinks are ignored.
func (m *MultiSink) Add(s Sink) {
	if s == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sinks = append(m.sinks, s)
}

func (m *MultiSink) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sinks)
}

func (m *MultiSink) Tones(tones []Tone) error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var errs []error
	for _, s := range m.sinks {
		if err := s.Tones(tones); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (m *MultiSink) Balance(c BalanceCue) error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var errs []error
	for _, s := range m.sinks {
		if err := s.Balance(c); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
