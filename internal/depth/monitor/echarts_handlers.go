package monitor

import (
	"bytes"
	"fmt"
	"net/http"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/banshee-data/depthgrid/internal/depth/grid"
	"github.com/banshee-data/depthgrid/internal/httputil"
)

// handleGridHeatmap renders the latest grid as an HTML page: one square per
// cell, plus a bar chart of empty cells on each side.
func (ws *WebServer) handleGridHeatmap(w http.ResponseWriter, r *http.Request) {
	res, ok := ws.latest(w)
	if !ok {
		return
	}
	page, err := gridPage(res)
	if err != nil {
		httputil.InternalServerError(w, err)
		return
	}
	var buf bytes.Buffer
	if err := page.Render(&buf); err != nil {
		httputil.InternalServerError(w, fmt.Errorf("failed to render chart: %w", err))
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write(buf.Bytes())
}

func gridPage(res grid.Result) (*components.Page, error) {
	g := res.Grid
	if g == nil {
		return nil, fmt.Errorf("result has no grid")
	}

	data := make([]opts.ScatterData, 0, len(g.Cells))
	for row := 0; row < g.Height; row++ {
		for col := 0; col < g.Width; col++ {
			data = append(data, opts.ScatterData{Value: []interface{}{col, row, int(g.At(row, col))}})
		}
	}

	scatter := charts.NewScatter()
	scatter.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{PageTitle: "Occupancy grid", Width: "800px", Height: "560px"}),
		charts.WithTitleOpts(opts.Title{
			Title:    "Occupancy grid",
			Subtitle: fmt.Sprintf("ts=%.3f marked=%d collision=%t obstacle=%t", res.Timestamp, res.Stats.Marked, res.Collision, res.Obstacle),
		}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithXAxisOpts(opts.XAxis{Min: -1, Max: g.Width, Name: "column", NameLocation: "middle", NameGap: 25}),
		// Row 0 is the top of the sensor view.
		charts.WithYAxisOpts(opts.YAxis{Min: -1, Max: g.Height, Name: "row", NameLocation: "middle", NameGap: 30, Inverse: opts.Bool(true)}),
		charts.WithVisualMapOpts(opts.VisualMap{
			Show:      opts.Bool(false),
			Min:       0,
			Max:       1,
			Dimension: "2",
			InRange:   &opts.VisualMapInRange{Color: []string{"#e0f3f8", "#d73027"}},
		}),
	)
	scatter.AddSeries("cells", data, charts.WithScatterChartOpts(opts.ScatterChart{SymbolSize: 24}))

	bar := charts.NewBar()
	bar.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{Width: "800px", Height: "300px"}),
		charts.WithTitleOpts(opts.Title{Title: "Empty cells", Subtitle: fmt.Sprintf("avg depth %.2fm", res.AverageDepth)}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
	)
	bar.SetXAxis([]string{"left", "right"}).
		AddSeries("empty", []opts.BarData{{Value: res.LeftEmpty}, {Value: res.RightEmpty}},
			charts.WithLabelOpts(opts.Label{Show: opts.Bool(true), Position: "top"}),
		)

	page := components.NewPage()
	page.AddCharts(scatter, bar)
	return page, nil
}
