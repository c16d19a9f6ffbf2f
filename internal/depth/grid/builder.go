package grid

import (
	"errors"
	"fmt"
	"math"
	"sync"

	"github.com/banshee-data/depthgrid/internal/depth"
)

// ErrInvalidTolerance is returned when the distance tolerance is not a
// positive finite number.
var ErrInvalidTolerance = errors.New("tolerance must be positive")

// RasterStats counts what happened to each point of a frame.
type RasterStats struct {
	Points      int `json:"points"`
	OutOfWindow int `json:"out_of_window"` // x or y outside the bounding window
	TooFar      int `json:"too_far"`       // distance >= tolerance
	Marked      int `json:"marked"`        // wrote a cell (possibly already set)
	OutOfBounds int `json:"out_of_bounds"` // index rounded onto the grid edge, skipped
}

// Result is one complete rasterize-then-evaluate cycle for a frame.
type Result struct {
	Timestamp    float64     `json:"timestamp"`
	Tolerance    float64     `json:"tolerance"`
	Grid         *Grid       `json:"grid"`
	Stats        RasterStats `json:"stats"`
	Collision    bool        `json:"collision"`
	AverageDepth float64     `json:"average_depth"`
	LeftEmpty    int         `json:"left_empty"`
	RightEmpty   int         `json:"right_empty"`
	// Obstacle is Collision gated by AverageDepth <= Tolerance, the
	// condition that triggers a balance cue.
	Obstacle bool `json:"obstacle"`
}

// Builder rasterizes frames into a grid buffer it owns. Dimensions are
// fixed at construction. Safe for concurrent use; each call holds the
// buffer lock for its whole duration.
type Builder struct {
	mu     sync.Mutex
	params Params
	grid   *Grid
}

// NewBuilder validates p and allocates the grid buffer.
func NewBuilder(p Params) (*Builder, error) {
	if err := p.Validate(); err != nil {
		return nil, fmt.Errorf("invalid grid params: %w", err)
	}
	return &Builder{params: p, grid: New(p.Width, p.Height)}, nil
}

// Params returns the builder's geometry.
func (b *Builder) Params() Params { return b.params }

// Rasterize resets the buffer and marks the cell of every point inside the
// bounding window and closer than tolerance. The returned grid is the
// builder's buffer and is overwritten by the next call.
//
// On error the buffer is left empty and no point is applied.
func (b *Builder) Rasterize(frame *depth.Frame, tolerance float64) (*Grid, RasterStats, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	stats, err := b.rasterizeLocked(frame, tolerance)
	return b.grid, stats, err
}

func (b *Builder) rasterizeLocked(frame *depth.Frame, tolerance float64) (RasterStats, error) {
	b.grid.Reset()

	if !(tolerance > 0) || math.IsInf(tolerance, 0) {
		return RasterStats{}, fmt.Errorf("%w, got %v", ErrInvalidTolerance, tolerance)
	}
	if err := frame.Validate(); err != nil {
		return RasterStats{}, err
	}

	var (
		stats    = RasterStats{Points: len(frame.Points)}
		wMin     = float32(b.params.WindowMin)
		wMax     = float32(b.params.WindowMax)
		rowScale = b.params.RowScale()
		colScale = b.params.ColScale()
	)

	for _, p := range frame.Points {
		if p.X < wMin || p.X >= wMax || p.Y < wMin || p.Y >= wMax {
			stats.OutOfWindow++
			continue
		}
		if p.Distance() >= tolerance {
			stats.TooFar++
			continue
		}
		// float32 arithmetic as on the sensor: x just below the window max
		// can round up to an index equal to the width. Operands are
		// non-negative here, so truncation is floor.
		row := int(float32(p.Y-wMin) * rowScale)
		col := int(float32(p.X-wMin) * colScale)
		if !b.grid.Set(row, col) {
			stats.OutOfBounds++
			continue
		}
		stats.Marked++
	}
	return stats, nil
}

// Process rasterizes frame and evaluates every heuristic against the fresh
// grid as one atomic unit. The returned grid is a copy.
func (b *Builder) Process(frame *depth.Frame, tolerance float64) (Result, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	stats, err := b.rasterizeLocked(frame, tolerance)
	if err != nil {
		return Result{}, err
	}

	res := Result{
		Timestamp:    frame.Timestamp,
		Tolerance:    tolerance,
		Grid:         b.grid.Clone(),
		Stats:        stats,
		Collision:    b.params.HasCollision(b.grid),
		AverageDepth: AverageDepth(frame),
	}
	res.LeftEmpty, res.RightEmpty = b.params.LeftRightBalance(b.grid)
	res.Obstacle = res.Collision && res.AverageDepth <= tolerance
	return res, nil
}

// HasCollision evaluates the collision heuristic with the builder's params.
func (b *Builder) HasCollision(g *Grid) bool { return b.params.HasCollision(g) }

// LeftRightBalance evaluates the balance heuristic with the builder's params.
func (b *Builder) LeftRightBalance(g *Grid) (left, right int) {
	return b.params.LeftRightBalance(g)
}
