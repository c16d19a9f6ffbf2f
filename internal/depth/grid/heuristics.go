package grid

import (
	"github.com/banshee-data/depthgrid/internal/depth"
	"gonum.org/v1/gonum/stat"
)

// AverageDepth returns the mean z of every point except the last one in
// frame order, and 0 when nothing is left to average.
func AverageDepth(frame *depth.Frame) float64 {
	n := frame.Len() - 1
	if n <= 0 {
		return 0
	}
	zs := make([]float64, n)
	for i := 0; i < n; i++ {
		zs[i] = float64(frame.Points[i].Z)
	}
	return stat.Mean(zs, nil)
}

// CollisionPairs counts horizontally adjacent occupied pairs inside the
// collision scan window, clipped to the grid.
func (p Params) CollisionPairs(g *Grid) int {
	if g == nil {
		return 0
	}
	rowMax := min(p.CollisionRowMax, g.Height-1)
	colMax := min(p.CollisionColMax, g.Width-2)

	pairs := 0
	for r := p.CollisionRowMin; r <= rowMax; r++ {
		for c := p.CollisionColMin; c <= colMax; c++ {
			if g.Occupied(r, c) && g.Occupied(r, c+1) {
				pairs++
			}
		}
	}
	return pairs
}

// HasCollision reports whether the scan window holds more adjacent
// occupied pairs than the threshold.
func (p Params) HasCollision(g *Grid) bool {
	return p.CollisionPairs(g) > p.CollisionPairThreshold
}

// LeftRightBalance counts empty cells over all rows, left of the split
// column and from the split column onwards.
func (p Params) LeftRightBalance(g *Grid) (left, right int) {
	if g == nil {
		return 0, 0
	}
	split := min(max(p.BalanceSplitCol, 0), g.Width)
	for r := 0; r < g.Height; r++ {
		for c := 0; c < g.Width; c++ {
			if g.Occupied(r, c) {
				continue
			}
			if c < split {
				left++
			} else {
				right++
			}
		}
	}
	return left, right
}

// HasCollision evaluates the collision heuristic with default bounds.
func HasCollision(g *Grid) bool { return DefaultParams().HasCollision(g) }

// LeftRightBalance evaluates the balance heuristic splitting g down the middle.
func LeftRightBalance(g *Grid) (left, right int) {
	if g == nil {
		return 0, 0
	}
	p := DefaultParams()
	p.BalanceSplitCol = g.Width / 2
	return p.LeftRightBalance(g)
}
