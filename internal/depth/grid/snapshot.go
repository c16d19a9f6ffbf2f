package grid

import (
	"bytes"
	"compress/gzip"
	"encoding/gob"
	"fmt"
	"time"
)

// Snapshot reasons.
const (
	ReasonPeriodic = "periodic"
	ReasonObstacle = "obstacle"
	ReasonManual   = "manual"
)

// Snapshot matches the occupancy_snapshots table. GridBlob holds the
// gob+gzip encoded cells.
type Snapshot struct {
	SnapshotID     *int64  // set by the store after insert
	SessionID      string  // process run the snapshot belongs to
	TakenUnixNanos int64   // wall clock at persist time
	FrameTimestamp float64 // sensor timestamp of the rasterized frame
	Width          int
	Height         int
	Tolerance      float64
	GridBlob       []byte
	OccupiedCells  int
	Collision      bool
	Obstacle       bool
	LeftEmpty      int
	RightEmpty     int
	AverageDepth   float64
	Reason         string
}

// SnapshotStore persists occupancy snapshots. Implemented by the sqlite store.
type SnapshotStore interface {
	InsertSnapshot(s *Snapshot) (int64, error)
}

// NewSnapshot captures res for persistence.
func NewSnapshot(sessionID string, res Result, reason string, takenAt time.Time) (*Snapshot, error) {
	if res.Grid == nil {
		return nil, fmt.Errorf("result has no grid")
	}
	blob, err := serializeCells(res.Grid.Cells)
	if err != nil {
		return nil, fmt.Errorf("failed to encode grid: %w", err)
	}
	return &Snapshot{
		SessionID:      sessionID,
		TakenUnixNanos: takenAt.UnixNano(),
		FrameTimestamp: res.Timestamp,
		Width:          res.Grid.Width,
		Height:         res.Grid.Height,
		Tolerance:      res.Tolerance,
		GridBlob:       blob,
		OccupiedCells:  res.Grid.OccupiedCount(),
		Collision:      res.Collision,
		Obstacle:       res.Obstacle,
		LeftEmpty:      res.LeftEmpty,
		RightEmpty:     res.RightEmpty,
		AverageDepth:   res.AverageDepth,
		Reason:         reason,
	}, nil
}

// DecodeGrid rebuilds the grid stored in the snapshot.
func (s *Snapshot) DecodeGrid() (*Grid, error) {
	cells, err := deserializeCells(s.GridBlob)
	if err != nil {
		return nil, err
	}
	if len(cells) != s.Width*s.Height {
		return nil, fmt.Errorf("grid blob has %d cells, want %dx%d", len(cells), s.Width, s.Height)
	}
	return &Grid{Width: s.Width, Height: s.Height, Cells: cells}, nil
}

func serializeCells(cells []uint8) ([]byte, error) {
	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	if err := gob.NewEncoder(gz).Encode(cells); err != nil {
		gz.Close()
		return nil, err
	}
	if err := gz.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func deserializeCells(blob []byte) ([]uint8, error) {
	if len(blob) == 0 {
		return nil, fmt.Errorf("empty grid blob")
	}
	gz, err := gzip.NewReader(bytes.NewReader(blob))
	if err != nil {
		return nil, fmt.Errorf("failed to create gzip reader: %w", err)
	}
	defer gz.Close()

	var cells []uint8
	if err := gob.NewDecoder(gz).Decode(&cells); err != nil {
		return nil, fmt.Errorf("failed to decode grid cells: %w", err)
	}
	return cells, nil
}
