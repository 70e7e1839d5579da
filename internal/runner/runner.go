// Package runner times repeated sct_deepseg invocations over a directory of
// scaled volumes and records each observation as soon as it completes.
package runner

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/SomeoneInParticular/sct-timings/internal/db"
	"github.com/SomeoneInParticular/sct-timings/internal/fsutil"
	"github.com/SomeoneInParticular/sct-timings/internal/monitoring"
	"github.com/SomeoneInParticular/sct-timings/internal/resample"
	"github.com/SomeoneInParticular/sct-timings/internal/results"
	"github.com/SomeoneInParticular/sct-timings/internal/sct"
	"github.com/SomeoneInParticular/sct-timings/internal/timeutil"
	"github.com/SomeoneInParticular/sct-timings/internal/timing"
)

// Manifest resolves the exact factor of a generated volume.
type Manifest interface {
	VolumeByName(mode, name string) (db.Volume, error)
}

// Ledger stores runs and every observation made during them.
type Ledger interface {
	StartRun(info db.RunInfo) (string, error)
	RecordTiming(t db.TimingRow) error
	FinishRun(id string, finished time.Time, counts db.RunCounts) error
}

// Volume is a discovered scaled volume.
type Volume struct {
	Name    string
	Path    string
	Scaling float64
}

// ModeRun names the inputs and outputs of one pass over a mode directory.
type ModeRun struct {
	Mode         resample.Mode
	VolumeDir    string
	ResultsPath  string
	FailuresPath string
}

// Summary counts the outcomes of a pass.
type Summary struct {
	RunID     string
	Volumes   int
	Succeeded int
	Failed    int
	Skipped   int // volumes whose factor could not be determined
}

// Runner executes the timing benchmark.
type Runner struct {
	SCT        *sct.Invoker
	FS         fsutil.FileSystem
	Timer      timing.Timer   // nil uses the wall clock
	Clock      timeutil.Clock // nil uses the real clock
	Task       string
	Replicates int
	Workers    int
	// TempDir is the parent of per-invocation scratch directories. Empty
	// uses the system temporary directory.
	TempDir  string
	Manifest Manifest // optional
	Ledger   Ledger   // optional
}

type observation struct {
	volume    Volume
	replicate int
	status    string
	m         timing.Measurement
	err       error
	output    string
}

// Discover lists the volumes in dir in directory order. Files whose factor
// cannot be determined are logged and counted as skipped.
func (r *Runner) Discover(mode resample.Mode, dir string) ([]Volume, int, error) {
	entries, err := r.FS.ReadDir(dir)
	if err != nil {
		return nil, 0, fmt.Errorf("list %s volumes: %w", mode, err)
	}

	var volumes []Volume
	skipped := 0
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasSuffix(name, resample.VolumeExt) {
			continue
		}
		v := Volume{Name: name, Path: filepath.Join(dir, name)}

		if r.Manifest != nil {
			rec, err := r.Manifest.VolumeByName(string(mode), name)
			if err == nil {
				v.Scaling = rec.Factor
				volumes = append(volumes, v)
				continue
			}
			if !errors.Is(err, db.ErrVolumeNotFound) {
				return nil, 0, err
			}
			monitoring.Debugf("%s has no manifest entry, parsing its name", v.Path)
		}

		f, err := resample.ParseFactorFile(name)
		if err != nil {
			monitoring.Logf("skipping %s: %v", v.Path, err)
			skipped++
			continue
		}
		v.Scaling = f
		volumes = append(volumes, v)
	}
	return volumes, skipped, nil
}

// Run times every discovered volume Replicates times. Per-invocation
// failures are recorded and never abort the pass. The results files are
// truncated at the start, so a zero replicate count leaves header-only
// files.
func (r *Runner) Run(ctx context.Context, job ModeRun) (Summary, error) {
	volumes, skipped, err := r.Discover(job.Mode, job.VolumeDir)
	if err != nil {
		return Summary{}, err
	}
	sum := Summary{Volumes: len(volumes), Skipped: skipped}

	clock := r.Clock
	if clock == nil {
		clock = timeutil.RealClock{}
	}
	timer := r.timer()

	rw, err := results.Create(r.FS, job.ResultsPath)
	if err != nil {
		return sum, err
	}
	defer rw.Close()
	fw, err := results.CreateFailures(r.FS, job.FailuresPath)
	if err != nil {
		return sum, err
	}
	defer fw.Close()

	workers := r.Workers
	if workers < 1 {
		workers = 1
	}

	if r.Ledger != nil {
		sum.RunID, err = r.Ledger.StartRun(db.RunInfo{
			Mode:       string(job.Mode),
			Task:       r.Task,
			Timer:      timer.Name(),
			Replicates: r.Replicates,
			Workers:    workers,
			StartedAt:  clock.Now(),
		})
		if err != nil {
			return sum, err
		}
	}

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	obsCh := make(chan observation)
	writerDone := make(chan error, 1)
	go func() {
		writerDone <- r.write(obsCh, rw, fw, &sum, cancel)
	}()

	g := new(errgroup.Group)
	g.SetLimit(workers)
schedule:
	for _, v := range volumes {
		for i := 0; i < r.Replicates; i++ {
			if runCtx.Err() != nil {
				break schedule
			}
			v, i := v, i
			g.Go(func() error {
				obsCh <- r.measure(runCtx, job.Mode, v, i)
				return nil
			})
		}
	}
	_ = g.Wait()
	close(obsCh)
	writeErr := <-writerDone

	if r.Ledger != nil {
		counts := db.RunCounts{Volumes: sum.Volumes, Succeeded: sum.Succeeded, Failed: sum.Failed, Skipped: sum.Skipped}
		if err := r.Ledger.FinishRun(sum.RunID, clock.Now(), counts); err != nil && writeErr == nil {
			writeErr = err
		}
	}

	if writeErr != nil {
		return sum, writeErr
	}
	if err := ctx.Err(); err != nil {
		return sum, fmt.Errorf("%s run interrupted: %w", job.Mode, err)
	}
	return sum, nil
}

// measure runs one replicate in its own scratch directory.
func (r *Runner) measure(ctx context.Context, mode resample.Mode, v Volume, replicate int) observation {
	obs := observation{volume: v, replicate: replicate}

	tmp, err := r.FS.MkdirTemp(r.TempDir, "sct-timings-*")
	if err != nil {
		obs.status, obs.err = db.StatusFailed, fmt.Errorf("create scratch dir: %w", err)
		return obs
	}
	defer r.FS.RemoveAll(tmp)

	monitoring.Logf("running %s analysis on %s (replicate %d)", mode, v.Name, replicate)
	res, err := r.SCT.Invoke(ctx, sct.CmdDeepseg, r.Task, "-i", v.Path, "-o", filepath.Join(tmp, "tmp.nii.gz"))
	obs.output = res.Output()

	switch {
	case ctx.Err() != nil:
		obs.status, obs.err = statusCancelled, ctx.Err()
	case errors.Is(err, sct.ErrTimedOut):
		obs.status, obs.err = db.StatusTimedOut, err
	case err != nil:
		obs.status, obs.err = db.StatusFailed, err
	default:
		obs.m, err = r.timer().Measure(timing.Invocation{Stdout: res.Stdout, Stderr: res.Stderr, Elapsed: res.Elapsed})
		if err != nil {
			obs.status, obs.err = db.StatusParseError, err
		} else {
			obs.status = db.StatusOK
		}
	}
	return obs
}

const statusCancelled = "cancelled"

// timer returns the configured Timer, or the wall clock when none is set.
func (r *Runner) timer() timing.Timer {
	if r.Timer == nil {
		return timing.WallClock{}
	}
	return r.Timer
}

// write is the only goroutine touching the output files and the ledger.
// After the first write error it cancels scheduling and drains the rest.
func (r *Runner) write(obsCh <-chan observation, rw, fw *results.Writer, sum *Summary, cancel context.CancelFunc) error {
	var firstErr error
	fail := func(err error) {
		if firstErr == nil {
			firstErr = err
			cancel()
		}
	}

	for obs := range obsCh {
		if firstErr != nil {
			continue
		}
		if obs.status == statusCancelled {
			monitoring.Debugf("%s replicate %d cancelled", obs.volume.Name, obs.replicate)
			continue
		}

		row := db.TimingRow{
			RunID:     sum.RunID,
			Name:      obs.volume.Name,
			Scaling:   obs.volume.Scaling,
			Replicate: obs.replicate,
			Status:    obs.status,
		}

		if obs.status == db.StatusOK {
			sum.Succeeded++
			row.Seconds, row.LogSeconds, row.HasLog = obs.m.Seconds, obs.m.LogSeconds, obs.m.HasLog
			row.Error = obs.m.Warning
			if err := rw.Append(results.Record{Scaling: obs.volume.Scaling, Replicate: obs.replicate, Runtime: obs.m.Seconds}); err != nil {
				fail(fmt.Errorf("append result: %w", err))
				continue
			}
		} else {
			sum.Failed++
			row.Error, row.Output = obs.err.Error(), obs.output
			monitoring.Logf("%s replicate %d %s: %v\n%s", obs.volume.Path, obs.replicate, obs.status, obs.err, obs.output)
			f := results.Failure{Scaling: obs.volume.Scaling, Replicate: obs.replicate, Status: obs.status, Err: obs.err.Error()}
			if err := fw.AppendFailure(f); err != nil {
				fail(fmt.Errorf("append failure: %w", err))
				continue
			}
		}

		if r.Ledger != nil {
			if err := r.Ledger.RecordTiming(row); err != nil {
				fail(err)
			}
		}
	}
	return firstErr
}
