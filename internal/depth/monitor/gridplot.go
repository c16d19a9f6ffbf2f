package monitor

import (
	"bytes"
	"fmt"
	"io"
	"net/http"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/palette"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/banshee-data/depthgrid/internal/depth/grid"
	"github.com/banshee-data/depthgrid/internal/httputil"
)

// gridXYZ adapts a grid to plotter.GridXYZ. Column c is x, row r is y.
type gridXYZ struct {
	g *grid.Grid
}

func (a gridXYZ) Dims() (c, r int)   { return a.g.Width, a.g.Height }
func (a gridXYZ) Z(c, r int) float64 { return float64(a.g.At(r, c)) }
func (a gridXYZ) X(c int) float64    { return float64(c) }
func (a gridXYZ) Y(r int) float64    { return float64(r) }

// WriteGridPNG renders res.Grid as a PNG heat map of the given size.
func WriteGridPNG(w io.Writer, res grid.Result, width, height vg.Length) error {
	if res.Grid == nil {
		return fmt.Errorf("result has no grid")
	}
	p := plot.New()
	p.Title.Text = fmt.Sprintf("Occupancy ts=%.3f", res.Timestamp)
	p.X.Label.Text = "column"
	p.Y.Label.Text = "row"

	hm := plotter.NewHeatMap(gridXYZ{res.Grid}, palette.Heat(2, 1))
	// Cells are 0 or 1; a fixed range keeps an empty grid plottable.
	hm.Min, hm.Max = 0, 1
	p.Add(hm)

	wt, err := p.WriterTo(width, height, "png")
	if err != nil {
		return fmt.Errorf("failed to create PNG writer: %w", err)
	}
	_, err = wt.WriteTo(w)
	return err
}

func (ws *WebServer) handleGridPlot(w http.ResponseWriter, r *http.Request) {
	res, ok := ws.latest(w)
	if !ok {
		return
	}
	var buf bytes.Buffer
	if err := WriteGridPNG(&buf, res, 8*vg.Inch, 5.2*vg.Inch); err != nil {
		httputil.InternalServerError(w, err)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	_, _ = w.Write(buf.Bytes())
}
