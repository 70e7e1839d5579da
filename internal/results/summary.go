package results

import (
	"fmt"
	"sort"
	"strconv"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/SomeoneInParticular/sct-timings/internal/fsutil"
)

// SummaryHeader is the header of a summary file.
var SummaryHeader = []string{ColScaling, "N", "Mean", "StdDev", "Min", "Max"}

// Stats summarises the runtimes observed at one scaling factor.
type Stats struct {
	Scaling float64
	N       int
	Mean    float64
	StdDev  float64 // sample standard deviation; 0 when N == 1
	Min     float64
	Max     float64
}

// Summarise groups records by scaling, in ascending order of scaling.
func Summarise(records []Record) []Stats {
	groups := make(map[float64][]float64)
	for _, r := range records {
		groups[r.Scaling] = append(groups[r.Scaling], r.Runtime)
	}

	scalings := make([]float64, 0, len(groups))
	for s := range groups {
		scalings = append(scalings, s)
	}
	sort.Float64s(scalings)

	out := make([]Stats, 0, len(scalings))
	for _, s := range scalings {
		xs := groups[s]
		mean, std := stat.MeanStdDev(xs, nil)
		if len(xs) < 2 {
			std = 0
		}
		out = append(out, Stats{
			Scaling: s,
			N:       len(xs),
			Mean:    mean,
			StdDev:  std,
			Min:     floats.Min(xs),
			Max:     floats.Max(xs),
		})
	}
	return out
}

// WriteSummary writes stats as a tab-separated file.
func WriteSummary(fsys fsutil.FileSystem, path string, stats []Stats) error {
	f, err := fsys.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	w, err := NewWriter(f, SummaryHeader)
	if err != nil {
		f.Close()
		return err
	}
	for _, s := range stats {
		row := []string{
			formatFloat(s.Scaling),
			strconv.Itoa(s.N),
			strconv.FormatFloat(s.Mean, 'f', 4, 64),
			strconv.FormatFloat(s.StdDev, 'f', 4, 64),
			strconv.FormatFloat(s.Min, 'f', 4, 64),
			strconv.FormatFloat(s.Max, 'f', 4, 64),
		}
		if err := w.write(row); err != nil {
			w.Close()
			return err
		}
	}
	return w.Close()
}
