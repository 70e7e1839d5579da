// Package plot draws runtime against scaling factor from a results file.
//
// Static formats (png, svg, pdf, jpg) are rendered with gonum/plot; html
// output is an interactive go-echarts page.
package plot

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"gonum.org/v1/plot/vg"

	"github.com/SomeoneInParticular/sct-timings/internal/fsutil"
	"github.com/SomeoneInParticular/sct-timings/internal/monitoring"
	"github.com/SomeoneInParticular/sct-timings/internal/results"
)

const (
	XLabel = "Sequence Scaling"
	YLabel = "Runtime (in Seconds)"

	// The zoomed panel covers the down-sampled end of the curve.
	zoomMin     = 0.05
	zoomMax     = 1.05
	zoomCeiling = 1.0
)

var (
	ErrNoData            = errors.New("no timing records to plot")
	ErrNoLowValues       = errors.New("no records with scaling <= 1 to zoom on")
	ErrInputNotFile      = errors.New("input is not a regular file")
	ErrUnsupportedFormat = errors.New("unsupported output format")
)

// Options controls the rendered figure. Zero Width or Height picks a
// default size.
type Options struct {
	Title  string
	Zoom   bool
	Width  vg.Length
	Height vg.Length
}

func (o Options) size() (vg.Length, vg.Length) {
	w, h := o.Width, o.Height
	if w <= 0 {
		w = 6 * vg.Inch
		if o.Zoom {
			w = 11 * vg.Inch
		}
	}
	if h <= 0 {
		h = 4.5 * vg.Inch
	}
	return w, h
}

var formats = map[string]string{
	".png":  "png",
	".svg":  "svg",
	".pdf":  "pdf",
	".jpg":  "jpg",
	".jpeg": "jpg",
	".html": "html",
}

// FormatFor returns the output format implied by path's extension.
func FormatFor(path string) (string, error) {
	ext := strings.ToLower(filepath.Ext(path))
	f, ok := formats[ext]
	if !ok {
		return "", fmt.Errorf("%w %q (want .png, .svg, .pdf, .jpg or .html)", ErrUnsupportedFormat, ext)
	}
	return f, nil
}

// Render reads the results file in and writes a figure to out, creating
// out's parent directories.
func Render(fsys fsutil.FileSystem, in, out string, o Options) error {
	if !fsutil.IsRegularFile(fsys, in) {
		return fmt.Errorf("%s: %w", in, ErrInputNotFile)
	}
	format, err := FormatFor(out)
	if err != nil {
		return err
	}
	recs, err := results.ReadFile(fsys, in)
	if err != nil {
		return err
	}
	if len(recs) == 0 {
		return fmt.Errorf("%s: %w", in, ErrNoData)
	}

	// Render fully before touching out so a failed figure leaves nothing behind.
	var buf bytes.Buffer
	if err := Write(&buf, format, recs, o); err != nil {
		return err
	}

	if dir := filepath.Dir(out); dir != "." {
		if err := fsys.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("create output dir: %w", err)
		}
	}
	if err := fsys.WriteFile(out, buf.Bytes(), 0644); err != nil {
		return fmt.Errorf("write %s: %w", out, err)
	}
	monitoring.Logf("wrote %d points from %s to %s", len(recs), in, out)
	return nil
}

// Write renders recs in the given format ("png", "svg", "pdf", "jpg" or
// "html").
func Write(w io.Writer, format string, recs []results.Record, o Options) error {
	if len(recs) == 0 {
		return ErrNoData
	}
	stats := results.Summarise(recs)
	if format == "html" {
		return writeHTML(w, recs, stats, o)
	}
	return writeStatic(w, format, recs, stats, o)
}

// lowRange returns the runtime range among records with scaling <= 1.
func lowRange(recs []results.Record) (lo, hi float64, ok bool) {
	for _, r := range recs {
		if r.Scaling > zoomCeiling {
			continue
		}
		if !ok {
			lo, hi, ok = r.Runtime, r.Runtime, true
			continue
		}
		lo = min(lo, r.Runtime)
		hi = max(hi, r.Runtime)
	}
	if ok && lo == hi {
		pad := 0.05 * lo
		if pad == 0 {
			pad = 0.5
		}
		lo, hi = lo-pad, hi+pad
	}
	return lo, hi, ok
}
