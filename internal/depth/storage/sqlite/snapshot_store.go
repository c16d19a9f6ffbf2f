package sqlite

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/banshee-data/depthgrid/internal/depth/grid"
)

// ErrSnapshotNotFound is returned by GetSnapshot for an unknown id.
var ErrSnapshotNotFound = errors.New("snapshot not found")

// DefaultListLimit caps ListSnapshots when no limit is given.
const DefaultListLimit = 100

const snapshotColumns = `snapshot_id, session_id, taken_unix_nanos, frame_timestamp,
	width, height, tolerance, grid_blob, occupied_cells,
	collision, obstacle, left_empty, right_empty, average_depth, reason`

// InsertSnapshot stores s and sets s.SnapshotID.
func (db *DB) InsertSnapshot(s *grid.Snapshot) (int64, error) {
	if s == nil {
		return 0, fmt.Errorf("nil snapshot")
	}
	var id int64
	err := retryOnBusy(func() error {
		res, err := db.Exec(`
			INSERT INTO occupancy_snapshots (
				session_id, taken_unix_nanos, frame_timestamp, width, height, tolerance,
				grid_blob, occupied_cells, collision, obstacle, left_empty, right_empty,
				average_depth, reason
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			s.SessionID, s.TakenUnixNanos, s.FrameTimestamp, s.Width, s.Height, s.Tolerance,
			s.GridBlob, s.OccupiedCells, s.Collision, s.Obstacle, s.LeftEmpty, s.RightEmpty,
			s.AverageDepth, s.Reason,
		)
		if err != nil {
			return err
		}
		id, err = res.LastInsertId()
		return err
	})
	if err != nil {
		return 0, fmt.Errorf("insert snapshot: %w", err)
	}
	s.SnapshotID = &id
	return id, nil
}

// GetSnapshot returns the snapshot with the given id.
func (db *DB) GetSnapshot(id int64) (*grid.Snapshot, error) {
	row := db.QueryRow(`SELECT `+snapshotColumns+` FROM occupancy_snapshots WHERE snapshot_id = ?`, id)
	s, err := scanSnapshot(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %d", ErrSnapshotNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("scan snapshot: %w", err)
	}
	return s, nil
}

// ListSnapshots returns the most recent snapshots, newest first. An empty
// sessionID lists every session. limit <= 0 uses DefaultListLimit.
func (db *DB) ListSnapshots(sessionID string, limit int) ([]*grid.Snapshot, error) {
	if limit <= 0 {
		limit = DefaultListLimit
	}
	var (
		rows *sql.Rows
		err  error
	)
	if sessionID == "" {
		rows, err = db.Query(`SELECT `+snapshotColumns+` FROM occupancy_snapshots
			ORDER BY taken_unix_nanos DESC, snapshot_id DESC LIMIT ?`, limit)
	} else {
		rows, err = db.Query(`SELECT `+snapshotColumns+` FROM occupancy_snapshots
			WHERE session_id = ?
			ORDER BY taken_unix_nanos DESC, snapshot_id DESC LIMIT ?`, sessionID, limit)
	}
	if err != nil {
		return nil, fmt.Errorf("query snapshots: %w", err)
	}
	defer rows.Close()

	var out []*grid.Snapshot
	for rows.Next() {
		s, err := scanSnapshot(rows)
		if err != nil {
			return nil, fmt.Errorf("scan snapshot: %w", err)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// CountSnapshots returns the number of stored snapshots for sessionID, or
// for all sessions when empty.
func (db *DB) CountSnapshots(sessionID string) (int, error) {
	var n int
	var err error
	if sessionID == "" {
		err = db.QueryRow(`SELECT COUNT(*) FROM occupancy_snapshots`).Scan(&n)
	} else {
		err = db.QueryRow(`SELECT COUNT(*) FROM occupancy_snapshots WHERE session_id = ?`, sessionID).Scan(&n)
	}
	if err != nil {
		return 0, fmt.Errorf("count snapshots: %w", err)
	}
	return n, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSnapshot(r rowScanner) (*grid.Snapshot, error) {
	var (
		s  grid.Snapshot
		id int64
	)
	err := r.Scan(
		&id, &s.SessionID, &s.TakenUnixNanos, &s.FrameTimestamp,
		&s.Width, &s.Height, &s.Tolerance, &s.GridBlob, &s.OccupiedCells,
		&s.Collision, &s.Obstacle, &s.LeftEmpty, &s.RightEmpty, &s.AverageDepth, &s.Reason,
	)
	if err != nil {
		return nil, err
	}
	s.SnapshotID = &id
	return &s, nil
}
