package plot

import (
	"io"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/SomeoneInParticular/sct-timings/internal/results"
)

func writeHTML(w io.Writer, recs []results.Record, stats []results.Stats, o Options) error {
	pageTitle := o.Title
	if pageTitle == "" {
		pageTitle = "SCT timings"
	}

	data := make([]opts.ScatterData, 0, len(recs))
	xmin, xmax := recs[0].Scaling, recs[0].Scaling
	for _, r := range recs {
		data = append(data, opts.ScatterData{Value: []interface{}{r.Scaling, r.Runtime}})
		xmin = min(xmin, r.Scaling)
		xmax = max(xmax, r.Scaling)
	}
	means := make([]opts.LineData, 0, len(stats))
	for _, s := range stats {
		means = append(means, opts.LineData{Value: []interface{}{s.Scaling, s.Mean}})
	}

	global := []charts.GlobalOpts{
		charts.WithInitializationOpts(opts.Initialization{PageTitle: pageTitle, Width: "900px", Height: "600px"}),
		charts.WithTitleOpts(opts.Title{Title: o.Title}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true), Right: "10%"}),
		charts.WithXAxisOpts(opts.XAxis{Type: "value", Name: XLabel, NameLocation: "middle", NameGap: 25}),
		charts.WithYAxisOpts(opts.YAxis{Type: "value", Name: YLabel, NameLocation: "middle", NameGap: 40}),
	}
	if o.Zoom {
		end := float32(100)
		if xmax > xmin {
			end = float32(min(100, max(0, (zoomMax-xmin)/(xmax-xmin)*100)))
		}
		global = append(global, charts.WithDataZoomOpts(
			opts.DataZoom{Type: "inside", XAxisIndex: []int{0}, Start: 0, End: end},
			opts.DataZoom{Type: "slider", XAxisIndex: []int{0}, Start: 0, End: end},
		))
	}

	scatter := charts.NewScatter()
	scatter.SetGlobalOptions(global...)
	scatter.AddSeries("runs", data, charts.WithScatterChartOpts(opts.ScatterChart{SymbolSize: 4}))

	line := charts.NewLine()
	line.AddSeries("mean", means, charts.WithLineChartOpts(opts.LineChart{ShowSymbol: opts.Bool(true)}))
	scatter.Overlap(line)

	return scatter.Render(w)
}
