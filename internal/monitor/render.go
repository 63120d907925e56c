// Package monitor renders occupancy grids for humans: PNG heat maps, an
// interactive HTML scatter, and the /debug/ pages that serve them.
package monitor

import (
	"errors"
	"fmt"
	"io"

	"github.com/banshee-data/sensorsim/internal/gridmsg"
	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/palette"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
)

// ErrNoGrid is returned when there is nothing to render.
var ErrNoGrid = errors.New("no grid available")

// gridXYZ adapts a message to plotter.GridXYZ. Plot columns are grid rows
// (forward), plot rows are grid columns (left), both in metres from the
// sensor. Offsets pair x with Height and y with Width, matching
// occgrid.ToPixel.
type gridXYZ struct {
	m *gridmsg.OccupancyGrid
}

func (g gridXYZ) Dims() (c, r int) {
	return int(g.m.Info.Width), int(g.m.Info.Height)
}

func (g gridXYZ) Z(c, r int) float64 {
	v, _ := g.m.At(c, r)
	return float64(v)
}

func (g gridXYZ) X(c int) float64 {
	res := g.m.Info.Resolution
	return (float64(c)+0.5)*res - float64(g.m.Info.Height)*res/2
}

func (g gridXYZ) Y(r int) float64 {
	res := g.m.Info.Resolution
	return (float64(r)+0.5)*res - float64(g.m.Info.Width)*res/2
}

func valueRange(data []int8) (lo, hi float64) {
	if len(data) == 0 {
		return 0, 1
	}
	mn, mx := data[0], data[0]
	for _, v := range data[1:] {
		mn, mx = min(mn, v), max(mx, v)
	}
	lo, hi = float64(mn), float64(mx)
	if hi == lo {
		hi = lo + 1
	}
	return lo, hi
}

// RenderPNG draws msg as a heat map, size inches square.
func RenderPNG(w io.Writer, msg *gridmsg.OccupancyGrid, size vg.Length) error {
	if msg == nil {
		return ErrNoGrid
	}
	c, r := gridXYZ{msg}.Dims()
	if c == 0 || r == 0 || len(msg.Data) < c*r {
		return fmt.Errorf("grid %dx%d has %d cells", c, r, len(msg.Data))
	}

	p := plot.New()
	p.Title.Text = fmt.Sprintf("%s @ %s", msg.Header.FrameID, msg.Header.Stamp.Format("15:04:05.000"))
	p.X.Label.Text = "forward (m)"
	p.Y.Label.Text = "left (m)"

	hm := plotter.NewHeatMap(gridXYZ{msg}, palette.Heat(16, 1))
	hm.Min, hm.Max = valueRange(msg.Data)
	p.Add(hm)

	wt, err := p.WriterTo(size, size, "png")
	if err != nil {
		return fmt.Errorf("failed to create png writer: %w", err)
	}
	if _, err := wt.WriteTo(w); err != nil {
		return fmt.Errorf("failed to write png: %w", err)
	}
	return nil
}

// RenderHTML writes a standalone page with a scatter of every non-free
// cell, coloured by cost.
func RenderHTML(w io.Writer, msg *gridmsg.OccupancyGrid) error {
	if msg == nil {
		return ErrNoGrid
	}
	g := gridXYZ{msg}
	cols, rows := g.Dims()
	data := make([]opts.ScatterData, 0, len(msg.Data)/4)
	for r := 0; r < rows; r++ {
		for c := 0; c < cols; c++ {
			if v := g.Z(c, r); v != 0 {
				data = append(data, opts.ScatterData{Value: []interface{}{g.X(c), g.Y(r), v}})
			}
		}
	}
	lo, hi := valueRange(msg.Data)
	padX := float64(msg.Info.Height) * msg.Info.Resolution / 2
	padY := float64(msg.Info.Width) * msg.Info.Resolution / 2

	scatter := charts.NewScatter()
	scatter.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{PageTitle: "Occupancy Grid", Theme: "dark", Width: "900px", Height: "900px"}),
		charts.WithTitleOpts(opts.Title{Title: "Occupancy Grid", Subtitle: fmt.Sprintf("frame=%s cells=%d res=%gm", msg.Header.FrameID, len(data), msg.Info.Resolution)}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithXAxisOpts(opts.XAxis{Min: -padX, Max: padX, Name: "forward (m)", NameLocation: "middle", NameGap: 25}),
		charts.WithYAxisOpts(opts.YAxis{Min: -padY, Max: padY, Name: "left (m)", NameLocation: "middle", NameGap: 30}),
		charts.WithVisualMapOpts(opts.VisualMap{
			Show:       opts.Bool(true),
			Calculable: opts.Bool(true),
			Min:        float32(lo),
			Max:        float32(hi),
			Dimension:  "2",
			InRange:    &opts.VisualMapInRange{Color: []string{"#31688e", "#fde725"}},
		}),
	)
	scatter.AddSeries("cells", data, charts.WithScatterChartOpts(opts.ScatterChart{SymbolSize: 4}))
	return scatter.Render(w)
}
