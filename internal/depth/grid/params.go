package grid

import (
	"fmt"

	"github.com/banshee-data/depthgrid/internal/config"
)

// Default grid geometry and heuristic bounds. The scan bounds are tied to
// the default 20x13 grid.
const (
	DefaultWidth     = 20
	DefaultHeight    = 13
	DefaultTolerance = 7.0

	// Bounding window applied to x and y, half-open [WindowMin, WindowMax).
	WindowMin = -1.0
	WindowMax = 1.0

	// Reference dimensions the per-axis scale factors are derived from.
	referenceHeight   = 13
	referenceWidth    = 20
	referenceRowScale = 6
	referenceColScale = 10

	// Collision scan: rows and left-hand columns, both inclusive. A pair is
	// (col, col+1) so the rightmost cell read is CollisionColMax+1.
	CollisionRowMin        = 4
	CollisionRowMax        = 12
	CollisionColMin        = 2
	CollisionColMax        = 17
	CollisionPairThreshold = 1 // collision when pairs > threshold
)

// Params configures grid geometry and heuristic bounds.
type Params struct {
	Width  int
	Height int

	WindowMin float64
	WindowMax float64

	CollisionRowMin        int
	CollisionRowMax        int
	CollisionColMin        int
	CollisionColMax        int
	CollisionPairThreshold int

	// BalanceSplitCol is the first column of the right half.
	BalanceSplitCol int
}

// DefaultParams returns the 20x13 geometry.
func DefaultParams() Params {
	return Params{
		Width:                  DefaultWidth,
		Height:                 DefaultHeight,
		WindowMin:              WindowMin,
		WindowMax:              WindowMax,
		CollisionRowMin:        CollisionRowMin,
		CollisionRowMax:        CollisionRowMax,
		CollisionColMin:        CollisionColMin,
		CollisionColMax:        CollisionColMax,
		CollisionPairThreshold: CollisionPairThreshold,
		BalanceSplitCol:        DefaultWidth / 2,
	}
}

// ParamsFromTuning builds Params from a loaded TuningConfig. Only the grid
// dimensions are tunable; heuristic bounds keep their defaults.
func ParamsFromTuning(cfg *config.TuningConfig) Params {
	p := DefaultParams()
	p.Width = cfg.GetGridWidth()
	p.Height = cfg.GetGridHeight()
	p.BalanceSplitCol = p.Width / 2
	return p
}

// RowScale maps y+1 in [0,2) onto rows: Height/13*6, i.e. 6 for the default grid.
func (p Params) RowScale() float32 {
	return float32(float64(p.Height) / referenceHeight * referenceRowScale)
}

// ColScale maps x+1 in [0,2) onto columns: Width/20*10, i.e. 10 for the default grid.
func (p Params) ColScale() float32 {
	return float32(float64(p.Width) / referenceWidth * referenceColScale)
}

// Validate checks that the geometry is usable.
func (p Params) Validate() error {
	if p.Width <= 0 || p.Height <= 0 {
		return fmt.Errorf("grid dimensions must be positive, got %dx%d", p.Width, p.Height)
	}
	if !(p.WindowMin < p.WindowMax) {
		return fmt.Errorf("window min %f must be below max %f", p.WindowMin, p.WindowMax)
	}
	if p.CollisionRowMin < 0 || p.CollisionRowMin > p.CollisionRowMax {
		return fmt.Errorf("collision rows [%d,%d] are not a valid range", p.CollisionRowMin, p.CollisionRowMax)
	}
	if p.CollisionColMin < 0 || p.CollisionColMin > p.CollisionColMax {
		return fmt.Errorf("collision columns [%d,%d] are not a valid range", p.CollisionColMin, p.CollisionColMax)
	}
	if p.CollisionPairThreshold < 0 {
		return fmt.Errorf("collision pair threshold must be non-negative, got %d", p.CollisionPairThreshold)
	}
	if p.BalanceSplitCol < 0 || p.BalanceSplitCol > p.Width {
		return fmt.Errorf("balance split column %d outside [0,%d]", p.BalanceSplitCol, p.Width)
	}
	return nil
}
