package plot

import (
	"fmt"
	"image/color"
	"io"
	"strconv"
	"strings"

	gonumplot "gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"

	"github.com/SomeoneInParticular/sct-timings/internal/results"
)

var (
	pointColor = color.RGBA{R: 31, G: 119, B: 180, A: 255}
	meanColor  = color.RGBA{R: 214, G: 39, B: 40, A: 255}
)

func writeStatic(w io.Writer, format string, recs []results.Record, stats []results.Stats, o Options) error {
	width, height := o.size()

	main, err := newPanel(o.Title, recs, stats)
	if err != nil {
		return err
	}

	if !o.Zoom {
		wt, err := main.WriterTo(width, height, format)
		if err != nil {
			return err
		}
		_, err = wt.WriteTo(w)
		return err
	}

	zoom, err := newZoomPanel(recs, stats)
	if err != nil {
		return err
	}

	// gonum/plot has no inset axes; the zoomed view sits beside the main one.
	c, err := draw.NewFormattedCanvas(width, height, format)
	if err != nil {
		return err
	}
	tiles := draw.Tiles{
		Rows:      1,
		Cols:      2,
		PadX:      vg.Millimeter * 6,
		PadTop:    vg.Millimeter * 2,
		PadBottom: vg.Millimeter * 2,
		PadLeft:   vg.Millimeter * 2,
		PadRight:  vg.Millimeter * 2,
	}
	canvases := gonumplot.Align([][]*gonumplot.Plot{{main, zoom}}, tiles, draw.New(c))
	main.Draw(canvases[0][0])
	zoom.Draw(canvases[0][1])

	_, err = c.WriteTo(w)
	return err
}

func newPanel(title string, recs []results.Record, stats []results.Stats) (*gonumplot.Plot, error) {
	p := gonumplot.New()
	p.Title.Text = title
	p.X.Label.Text = XLabel
	p.Y.Label.Text = YLabel

	pts := make(plotter.XYs, len(recs))
	for i, r := range recs {
		pts[i] = plotter.XY{X: r.Scaling, Y: r.Runtime}
	}
	means := make(plotter.XYs, len(stats))
	for i, s := range stats {
		means[i] = plotter.XY{X: s.Scaling, Y: s.Mean}
	}

	if err := addSeries(p, pts, means); err != nil {
		return nil, err
	}
	p.Legend.Top = true
	p.Legend.Left = true
	return p, nil
}

func newZoomPanel(recs []results.Record, stats []results.Stats) (*gonumplot.Plot, error) {
	lo, hi, ok := lowRange(recs)
	if !ok {
		return nil, ErrNoLowValues
	}

	p := gonumplot.New()
	p.Title.Text = "Scaling <= 1"
	p.X.Label.Text = XLabel
	p.Y.Label.Text = YLabel

	// Glyphs are not clipped, so only points inside the window are added.
	var pts, means plotter.XYs
	for _, r := range recs {
		if inZoom(r.Scaling) {
			pts = append(pts, plotter.XY{X: r.Scaling, Y: r.Runtime})
		}
	}
	for _, s := range stats {
		if inZoom(s.Scaling) {
			means = append(means, plotter.XY{X: s.Scaling, Y: s.Mean})
		}
	}
	if err := addSeries(p, pts, means); err != nil {
		return nil, err
	}

	p.X.Min, p.X.Max = zoomMin, zoomMax
	p.Y.Min, p.Y.Max = lo, hi
	p.X.Tick.Marker = zoomTicks()
	return p, nil
}

func addSeries(p *gonumplot.Plot, pts, means plotter.XYs) error {
	if len(pts) > 0 {
		sc, err := plotter.NewScatter(pts)
		if err != nil {
			return fmt.Errorf("scatter: %w", err)
		}
		sc.GlyphStyle.Shape = draw.CircleGlyph{}
		sc.GlyphStyle.Radius = vg.Points(1)
		sc.GlyphStyle.Color = pointColor
		p.Add(sc)
		p.Legend.Add("runs", sc)
	}
	if len(means) > 0 {
		line, err := plotter.NewLine(means)
		if err != nil {
			return fmt.Errorf("mean line: %w", err)
		}
		line.Color = meanColor
		line.Width = vg.Points(1)
		p.Add(line)
		p.Legend.Add("mean", line)
	}
	return nil
}

func inZoom(x float64) bool {
	return x >= zoomMin && x <= zoomMax
}

// zoomTicks marks .1 through 1.0.
func zoomTicks() gonumplot.ConstantTicks {
	ticks := make(gonumplot.ConstantTicks, 0, 10)
	for i := 1; i <= 10; i++ {
		v := float64(i) / 10
		label := strings.TrimPrefix(strconv.FormatFloat(v, 'f', 1, 64), "0")
		ticks = append(ticks, gonumplot.Tick{Value: v, Label: label})
	}
	return ticks
}
