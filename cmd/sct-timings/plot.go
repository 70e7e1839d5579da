package main

import (
	"gonum.org/v1/plot/vg"

	"github.com/SomeoneInParticular/sct-timings/internal/fsutil"
	"github.com/SomeoneInParticular/sct-timings/internal/monitoring"
	"github.com/SomeoneInParticular/sct-timings/internal/plot"
)

func cmdPlot(args []string) error {
	fs := newFlagSet("plot")
	in := fs.String("i", "", "Results TSV to plot (required)")
	out := fs.String("o", "", "Output image: .png, .svg, .pdf, .jpg or .html (required)")
	title := fs.String("title", "", "Figure title")
	zoom := fs.Bool("zoom", false, "Add a panel zoomed on scaling <= 1")
	width := fs.Float64("width", 0, "Figure width in inches (0 for default)")
	height := fs.Float64("height", 0, "Figure height in inches (0 for default)")
	verbose := fs.Bool("v", false, "Verbose logging")
	if err := parseFlags(fs, args, false); err != nil {
		return err
	}
	monitoring.SetVerbose(*verbose)

	if *in == "" || *out == "" {
		return usagef("both -i and -o are required")
	}
	if _, err := plot.FormatFor(*out); err != nil {
		return usageError{err}
	}
	if *width < 0 || *height < 0 {
		return usagef("figure size must be non-negative")
	}

	return plot.Render(fsutil.OSFileSystem{}, *in, *out, plot.Options{
		Title:  *title,
		Zoom:   *zoom,
		Width:  vg.Length(*width) * vg.Inch,
		Height: vg.Length(*height) * vg.Inch,
	})
}
