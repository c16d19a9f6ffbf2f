package cue

import (
	"sync"

	"github.com/banshee-data/depthgrid/internal/depth/grid"
)

// Sweep voice layout.
const (
	DefaultVoices  = 6 // voice i reads grid row i*VoiceRowStride
	VoiceRowStride = 2
	BarVoice       = 4 // voice replayed as the end-of-sweep bar
	BarVolume      = 0.8
	BarRate        = 5
)

// Tone is one sample to trigger. Left and Right are channel volumes in [0,1].
type Tone struct {
	Voice    int     `json:"voice"`
	Row      int     `json:"row"`
	Col      int     `json:"col"`
	Left     float32 `json:"left"`
	Right    float32 `json:"right"`
	Priority int     `json:"priority"`
	Rate     float32 `json:"rate"`
	Bar      bool    `json:"bar,omitempty"`
}

// Sweep walks a cursor across the grid columns, one column per Tick, and
// voices every empty cell under the cursor. After the last column it emits
// a bar tone and wraps.
type Sweep struct {
	mu     sync.Mutex
	voices int
	cursor int
}

// NewSweep returns a sweep with the given voice count. Negative counts are
// treated as zero.
func NewSweep(voices int) *Sweep {
	return &Sweep{voices: max(voices, 0)}
}

// Cursor returns the column the next Tick will read.
func (s *Sweep) Cursor() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cursor
}

// Tick emits the tones for the cursor column of g and advances the cursor.
// A nil grid emits nothing and leaves the cursor in place.
func (s *Sweep) Tick(g *grid.Grid) []Tone {
	if g == nil {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cursor >= g.Width {
		s.cursor = 0
		return []Tone{{
			Voice: BarVoice,
			Row:   -1,
			Col:   g.Width,
			Left:  BarVolume,
			Right: BarVolume,
			Rate:  BarRate,
			Bar:   true,
		}}
	}

	col := s.cursor
	s.cursor++

	var tones []Tone
	for i := 0; i < s.voices; i++ {
		row := i * VoiceRowStride
		if row >= g.Height {
			break
		}
		if g.Occupied(row, col) {
			continue
		}
		t := Tone{Voice: i, Row: row, Col: col, Priority: 1, Rate: float32(i)}
		// Even voices pan hard left. Nothing is routed right.
		if i%2 == 0 {
			t.Left = 1
		}
		tones = append(tones, t)
	}
	return tones
}
