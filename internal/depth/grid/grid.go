package grid

import (
	"encoding/json"
	"strconv"
	"strings"
)

// Grid is a Height x Width binary occupancy grid stored row-major.
// Row 0 is the top of the sensor view (y = -1). Every cell is 0 or 1.
type Grid struct {
	Width  int
	Height int
	Cells  []uint8
}

// New allocates an empty grid.
func New(width, height int) *Grid {
	return &Grid{Width: width, Height: height, Cells: make([]uint8, width*height)}
}

// Idx returns the flat cell index for (row, col).
func (g *Grid) Idx(row, col int) int { return row*g.Width + col }

// InBounds reports whether (row, col) addresses a cell.
func (g *Grid) InBounds(row, col int) bool {
	return row >= 0 && row < g.Height && col >= 0 && col < g.Width
}

// At returns the cell value, 0 for out-of-range coordinates.
func (g *Grid) At(row, col int) uint8 {
	if !g.InBounds(row, col) {
		return 0
	}
	return g.Cells[g.Idx(row, col)]
}

// Occupied reports whether (row, col) is set.
func (g *Grid) Occupied(row, col int) bool { return g.At(row, col) == 1 }

// Set marks (row, col) occupied. It reports false, writing nothing, when the
// coordinates fall outside the grid.
func (g *Grid) Set(row, col int) bool {
	if !g.InBounds(row, col) {
		return false
	}
	g.Cells[g.Idx(row, col)] = 1
	return true
}

// Reset clears every cell in place.
func (g *Grid) Reset() {
	for i := range g.Cells {
		g.Cells[i] = 0
	}
}

// OccupiedCount returns the number of set cells.
func (g *Grid) OccupiedCount() int {
	n := 0
	for _, c := range g.Cells {
		if c != 0 {
			n++
		}
	}
	return n
}

// Clone returns a deep copy.
func (g *Grid) Clone() *Grid {
	if g == nil {
		return nil
	}
	out := &Grid{Width: g.Width, Height: g.Height, Cells: make([]uint8, len(g.Cells))}
	copy(out.Cells, g.Cells)
	return out
}

// Equal reports whether both grids have the same shape and cells.
func (g *Grid) Equal(o *Grid) bool {
	if g == nil || o == nil {
		return g == o
	}
	if g.Width != o.Width || g.Height != o.Height || len(g.Cells) != len(o.Cells) {
		return false
	}
	for i := range g.Cells {
		if g.Cells[i] != o.Cells[i] {
			return false
		}
	}
	return true
}

// Rows returns the grid as a slice of rows.
func (g *Grid) Rows() [][]int {
	rows := make([][]int, g.Height)
	for r := range rows {
		row := make([]int, g.Width)
		for c := range row {
			row[c] = int(g.Cells[g.Idx(r, c)])
		}
		rows[r] = row
	}
	return rows
}

// String renders each row as comma-terminated values, one row per line.
func (g *Grid) String() string {
	var sb strings.Builder
	sb.Grow(g.Height * (g.Width*2 + 1))
	for r := 0; r < g.Height; r++ {
		for c := 0; c < g.Width; c++ {
			sb.WriteString(strconv.Itoa(int(g.Cells[g.Idx(r, c)])))
			sb.WriteByte(',')
		}
		sb.WriteByte('\n')
	}
	return sb.String()
}

type gridJSON struct {
	Width  int     `json:"width"`
	Height int     `json:"height"`
	Rows   [][]int `json:"rows"`
}

// MarshalJSON encodes the grid as rows of integers rather than base64 cells.
func (g *Grid) MarshalJSON() ([]byte, error) {
	return json.Marshal(gridJSON{Width: g.Width, Height: g.Height, Rows: g.Rows()})
}
