package grid

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// gridWith builds a default-sized grid with the given (row, col) cells set.
func gridWith(t *testing.T, cells ...[2]int) *Grid {
	t.Helper()
	g := New(DefaultWidth, DefaultHeight)
	for _, rc := range cells {
		require.True(t, g.Set(rc[0], rc[1]), "cell %v out of bounds", rc)
	}
	return g
}

func TestGrid_SetAndAt(t *testing.T) {
	g := New(4, 3)
	assert.Len(t, g.Cells, 12)

	assert.True(t, g.Set(2, 3))
	assert.Equal(t, uint8(1), g.At(2, 3))
	assert.True(t, g.Occupied(2, 3))
	assert.Equal(t, uint8(1), g.Cells[11])

	// Setting twice never increments.
	assert.True(t, g.Set(2, 3))
	assert.Equal(t, uint8(1), g.At(2, 3))
	assert.Equal(t, 1, g.OccupiedCount())
}

func TestGrid_OutOfBounds(t *testing.T) {
	g := New(4, 3)
	for _, rc := range [][2]int{{-1, 0}, {0, -1}, {3, 0}, {0, 4}} {
		assert.False(t, g.Set(rc[0], rc[1]), "Set(%d,%d)", rc[0], rc[1])
		assert.Equal(t, uint8(0), g.At(rc[0], rc[1]))
	}
	assert.Equal(t, 0, g.OccupiedCount())
}

func TestGrid_ResetKeepsBuffer(t *testing.T) {
	g := gridWith(t, [2]int{0, 0}, [2]int{12, 19})
	buf := &g.Cells[0]

	g.Reset()
	assert.Equal(t, 0, g.OccupiedCount())
	assert.Same(t, buf, &g.Cells[0], "Reset must clear in place")
}

func TestGrid_CloneAndEqual(t *testing.T) {
	g := gridWith(t, [2]int{6, 10})
	c := g.Clone()
	assert.True(t, g.Equal(c))

	c.Set(0, 0)
	assert.False(t, g.Equal(c))
	assert.Equal(t, 1, g.OccupiedCount(), "clone must not share cells")

	assert.False(t, g.Equal(New(DefaultWidth, DefaultHeight+1)))
	assert.False(t, g.Equal(nil))
	var nilGrid *Grid
	assert.True(t, nilGrid.Equal(nil))
	assert.Nil(t, nilGrid.Clone())
}

func TestGrid_String(t *testing.T) {
	g := New(3, 2)
	g.Set(0, 1)
	g.Set(1, 2)
	assert.Equal(t, "0,1,0,\n0,0,1,\n", g.String())
}

func TestGrid_MarshalJSON(t *testing.T) {
	g := New(2, 2)
	g.Set(1, 0)

	b, err := json.Marshal(g)
	require.NoError(t, err)
	assert.JSONEq(t, `{"width":2,"height":2,"rows":[[0,0],[1,0]]}`, string(b))
}

func TestGrid_Rows(t *testing.T) {
	g := gridWith(t, [2]int{6, 10})
	rows := g.Rows()
	require.Len(t, rows, DefaultHeight)
	for r, row := range rows {
		require.Len(t, row, DefaultWidth)
		for c, v := range row {
			want := 0
			if r == 6 && c == 10 {
				want = 1
			}
			assert.Equal(t, want, v, "cell (%d,%d)", r, c)
		}
	}
}
