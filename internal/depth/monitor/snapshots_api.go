package monitor

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/banshee-data/depthgrid/internal/depth/grid"
	"github.com/banshee-data/depthgrid/internal/depth/storage/sqlite"
	"github.com/banshee-data/depthgrid/internal/httputil"
)

const defaultSnapshotLimit = 10

type snapshotView struct {
	SnapshotID     int64   `json:"snapshot_id"`
	SessionID      string  `json:"session_id"`
	TakenAt        string  `json:"taken_at"`
	FrameTimestamp float64 `json:"frame_timestamp"`
	Width          int     `json:"width"`
	Height         int     `json:"height"`
	Tolerance      float64 `json:"tolerance"`
	OccupiedCells  int     `json:"occupied_cells"`
	Collision      bool    `json:"collision"`
	Obstacle       bool    `json:"obstacle"`
	LeftEmpty      int     `json:"left_empty"`
	RightEmpty     int     `json:"right_empty"`
	AverageDepth   float64 `json:"average_depth"`
	Reason         string  `json:"reason"`
	Rows           [][]int `json:"rows,omitempty"`
}

func newSnapshotView(s *grid.Snapshot) snapshotView {
	v := snapshotView{
		SessionID:      s.SessionID,
		TakenAt:        time.Unix(0, s.TakenUnixNanos).UTC().Format(time.RFC3339Nano),
		FrameTimestamp: s.FrameTimestamp,
		Width:          s.Width,
		Height:         s.Height,
		Tolerance:      s.Tolerance,
		OccupiedCells:  s.OccupiedCells,
		Collision:      s.Collision,
		Obstacle:       s.Obstacle,
		LeftEmpty:      s.LeftEmpty,
		RightEmpty:     s.RightEmpty,
		AverageDepth:   s.AverageDepth,
		Reason:         s.Reason,
	}
	if s.SnapshotID != nil {
		v.SnapshotID = *s.SnapshotID
	}
	return v
}

// handleSnapshots lists recent snapshots.
// Query params:
//
//	limit   (optional, default 10)
//	session (optional, "all" for every session; default the current one)
func (ws *WebServer) handleSnapshots(w http.ResponseWriter, r *http.Request) {
	if ws.snapshots == nil {
		httputil.ServiceUnavailable(w, "snapshot store not configured")
		return
	}
	limit, err := httputil.QueryInt(r, "limit", defaultSnapshotLimit, 1, 1000)
	if err != nil {
		httputil.BadRequest(w, err.Error())
		return
	}
	session := r.URL.Query().Get("session")
	switch session {
	case "":
		session = ws.source.SessionID()
	case "all":
		session = ""
	}

	snaps, err := ws.snapshots.ListSnapshots(session, limit)
	if err != nil {
		httputil.InternalServerError(w, err)
		return
	}
	out := make([]snapshotView, 0, len(snaps))
	for _, s := range snaps {
		out = append(out, newSnapshotView(s))
	}
	httputil.WriteJSON(w, http.StatusOK, out)
}

func (ws *WebServer) handleSnapshot(w http.ResponseWriter, r *http.Request) {
	if ws.snapshots == nil {
		httputil.ServiceUnavailable(w, "snapshot store not configured")
		return
	}
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		httputil.BadRequest(w, "invalid snapshot id")
		return
	}
	s, err := ws.snapshots.GetSnapshot(id)
	if errors.Is(err, sqlite.ErrSnapshotNotFound) {
		httputil.NotFound(w, err.Error())
		return
	}
	if err != nil {
		httputil.InternalServerError(w, err)
		return
	}
	v := newSnapshotView(s)
	g, err := s.DecodeGrid()
	if err != nil {
		httputil.InternalServerError(w, err)
		return
	}
	v.Rows = g.Rows()
	httputil.WriteJSON(w, http.StatusOK, v)
}

// handleSnapshotNow persists the latest result on demand.
func (ws *WebServer) handleSnapshotNow(w http.ResponseWriter, r *http.Request) {
	if ws.snapshots == nil {
		httputil.ServiceUnavailable(w, "snapshot store not configured")
		return
	}
	id, err := ws.source.Snapshot(grid.ReasonManual)
	if err != nil {
		httputil.InternalServerError(w, err)
		return
	}
	if id == 0 {
		httputil.WriteJSONError(w, http.StatusConflict, "no frame processed yet")
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, map[string]int64{"snapshot_id": id})
}
