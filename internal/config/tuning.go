package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// DefaultConfigPath is the path to the canonical tuning defaults file.
const DefaultConfigPath = "config/tuning.defaults.json"

// Fallbacks used by the Get* methods when a field is absent.
const (
	defaultGridWidth         = 20
	defaultGridHeight        = 13
	defaultTolerance         = 7.0
	defaultRasterizeInterval = 500 * time.Millisecond
	defaultSweepInterval     = 200 * time.Millisecond
	defaultSnapshotInterval  = 60 * time.Second
	defaultSweepVoices       = 6
)

// TuningConfig holds the tunable parameters of the occupancy pipeline.
// Every field is optional; omitted fields fall back to the defaults above,
// so partial files are safe.
type TuningConfig struct {
	// Grid params
	GridWidth  *int     `json:"grid_width,omitempty"`
	GridHeight *int     `json:"grid_height,omitempty"`
	Tolerance  *float64 `json:"tolerance,omitempty"` // metres from the sensor origin

	// Loop cadence, as duration strings like "500ms"
	RasterizeInterval *string `json:"rasterize_interval,omitempty"`
	SweepInterval     *string `json:"sweep_interval,omitempty"`
	SnapshotInterval  *string `json:"snapshot_interval,omitempty"` // "0s" disables snapshots

	// Tone sweep
	SweepVoices *int `json:"sweep_voices,omitempty"`
}

func ptrFloat64(v float64) *float64 { return &v }
func ptrString(v string) *string    { return &v }
func ptrInt(v int) *int             { return &v }

// DefaultTuningConfig returns a fully populated config with the built-in defaults.
func DefaultTuningConfig() *TuningConfig {
	return &TuningConfig{
		GridWidth:         ptrInt(defaultGridWidth),
		GridHeight:        ptrInt(defaultGridHeight),
		Tolerance:         ptrFloat64(defaultTolerance),
		RasterizeInterval: ptrString(defaultRasterizeInterval.String()),
		SweepInterval:     ptrString(defaultSweepInterval.String()),
		SnapshotInterval:  ptrString(defaultSnapshotInterval.String()),
		SweepVoices:       ptrInt(defaultSweepVoices),
	}
}

// LoadTuningConfig loads a TuningConfig from a JSON file.
// The file must have a .json extension and be under 1MB.
func LoadTuningConfig(path string) (*TuningConfig, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("config file must have .json extension, got %q", ext)
	}

	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	const maxFileSize = 1 * 1024 * 1024
	if fileInfo.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", fileInfo.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := &TuningConfig{}
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// MustLoadDefaultConfig loads DefaultConfigPath, searching the current
// directory and its parents. Panics if the file cannot be loaded; intended
// for test setup.
func MustLoadDefaultConfig() *TuningConfig {
	candidates := []string{
		DefaultConfigPath,
		"../" + DefaultConfigPath,
		"../../" + DefaultConfigPath,       // from internal/config/
		"../../../" + DefaultConfigPath,    // from internal/depth/grid/
		"../../../../" + DefaultConfigPath, // deeper packages
	}
	for _, path := range candidates {
		if cfg, err := LoadTuningConfig(path); err == nil {
			return cfg
		}
	}
	panic("cannot find " + DefaultConfigPath + " - run tests from repository root")
}

// Validate checks that the configuration values are valid.
func (c *TuningConfig) Validate() error {
	if c.GridWidth != nil && *c.GridWidth <= 0 {
		return fmt.Errorf("grid_width must be positive, got %d", *c.GridWidth)
	}
	if c.GridHeight != nil && *c.GridHeight <= 0 {
		return fmt.Errorf("grid_height must be positive, got %d", *c.GridHeight)
	}
	if c.Tolerance != nil && !(*c.Tolerance > 0) {
		return fmt.Errorf("tolerance must be positive, got %f", *c.Tolerance)
	}
	if c.SweepVoices != nil && *c.SweepVoices < 0 {
		return fmt.Errorf("sweep_voices must be non-negative, got %d", *c.SweepVoices)
	}

	durations := []struct {
		name  string
		value *string
		zero  bool // zero allowed
	}{
		{"rasterize_interval", c.RasterizeInterval, false},
		{"sweep_interval", c.SweepInterval, false},
		{"snapshot_interval", c.SnapshotInterval, true},
	}
	for _, d := range durations {
		if d.value == nil || *d.value == "" {
			continue
		}
		parsed, err := time.ParseDuration(*d.value)
		if err != nil {
			return fmt.Errorf("invalid %s '%s': %w", d.name, *d.value, err)
		}
		if parsed < 0 || (parsed == 0 && !d.zero) {
			return fmt.Errorf("%s must be positive, got %s", d.name, *d.value)
		}
	}

	return nil
}

func parseDurationOr(v *string, fallback time.Duration) time.Duration {
	if v == nil || *v == "" {
		return fallback
	}
	d, err := time.ParseDuration(*v)
	if err != nil {
		return fallback
	}
	return d
}

// GetGridWidth returns the grid_width value or the default.
func (c *TuningConfig) GetGridWidth() int {
	if c.GridWidth == nil {
		return defaultGridWidth
	}
	return *c.GridWidth
}

// GetGridHeight returns the grid_height value or the default.
func (c *TuningConfig) GetGridHeight() int {
	if c.GridHeight == nil {
		return defaultGridHeight
	}
	return *c.GridHeight
}

// GetTolerance returns the tolerance value or the default.
func (c *TuningConfig) GetTolerance() float64 {
	if c.Tolerance == nil {
		return defaultTolerance
	}
	return *c.Tolerance
}

// GetRasterizeInterval parses rasterize_interval, falling back on parse error.
func (c *TuningConfig) GetRasterizeInterval() time.Duration {
	return parseDurationOr(c.RasterizeInterval, defaultRasterizeInterval)
}

// GetSweepInterval parses sweep_interval, falling back on parse error.
func (c *TuningConfig) GetSweepInterval() time.Duration {
	return parseDurationOr(c.SweepInterval, defaultSweepInterval)
}

// GetSnapshotInterval parses snapshot_interval. Zero means disabled.
func (c *TuningConfig) GetSnapshotInterval() time.Duration {
	return parseDurationOr(c.SnapshotInterval, defaultSnapshotInterval)
}

// GetSweepVoices returns the sweep_voices value or the default.
func (c *TuningConfig) GetSweepVoices() int {
	if c.SweepVoices == nil {
		return defaultSweepVoices
	}
	return *c.SweepVoices
}
