package cue

import "github.com/banshee-data/depthgrid/internal/depth/grid"

// Side names a half of the grid.
type Side string

const (
	SideLeft  Side = "left"
	SideRight Side = "right"
)

// BalanceCue reports which half of the view is emptier when an obstacle
// is detected. Ties report SideRight.
type BalanceCue struct {
	Timestamp  float64 `json:"timestamp"`
	LeftEmpty  int     `json:"left_empty"`
	RightEmpty int     `json:"right_empty"`
	Side       Side    `json:"side"`
}

// NewBalanceCue builds the cue for res. ok is false when res is not an
// obstacle, in which case no cue should be sent.
func NewBalanceCue(res grid.Result) (cue BalanceCue, ok bool) {
	if !res.Obstacle {
		return BalanceCue{}, false
	}
	side := SideRight
	if res.LeftEmpty > res.RightEmpty {
		side = SideLeft
	}
	return BalanceCue{
		Timestamp:  res.Timestamp,
		LeftEmpty:  res.LeftEmpty,
		RightEmpty: res.RightEmpty,
		Side:       side,
	}, true
}
