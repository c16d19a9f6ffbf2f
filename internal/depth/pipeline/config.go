package pipeline

import (
	"fmt"
	"time"

	"github.com/banshee-data/depthgrid/internal/config"
	"github.com/banshee-data/depthgrid/internal/depth/cue"
	"github.com/banshee-data/depthgrid/internal/depth/grid"
)

// Config drives a Processor.
type Config struct {
	Params    grid.Params
	Tolerance float64

	RasterizeInterval time.Duration
	SweepInterval     time.Duration
	// SnapshotInterval of zero disables periodic snapshots.
	SnapshotInterval time.Duration
	SweepVoices      int
}

// DefaultConfig matches the sensor app: 2Hz rasterize, 5Hz sweep.
func DefaultConfig() Config {
	return Config{
		Params:            grid.DefaultParams(),
		Tolerance:         grid.DefaultTolerance,
		RasterizeInterval: 500 * time.Millisecond,
		SweepInterval:     200 * time.Millisecond,
		SnapshotInterval:  time.Minute,
		SweepVoices:       cue.DefaultVoices,
	}
}

// ConfigFromTuning maps a tuning file onto a Config.
func ConfigFromTuning(t *config.TuningConfig) Config {
	return Config{
		Params:            grid.ParamsFromTuning(t),
		Tolerance:         t.GetTolerance(),
		RasterizeInterval: t.GetRasterizeInterval(),
		SweepInterval:     t.GetSweepInterval(),
		SnapshotInterval:  t.GetSnapshotInterval(),
		SweepVoices:       t.GetSweepVoices(),
	}
}

func (c Config) validate() error {
	if err := c.Params.Validate(); err != nil {
		return err
	}
	if !(c.Tolerance > 0) {
		return fmt.Errorf("%w, got %v", grid.ErrInvalidTolerance, c.Tolerance)
	}
	if c.RasterizeInterval <= 0 || c.SweepInterval <= 0 {
		return fmt.Errorf("rasterize and sweep intervals must be positive")
	}
	if c.SnapshotInterval < 0 {
		return fmt.Errorf("snapshot interval must not be negative")
	}
	return nil
}
