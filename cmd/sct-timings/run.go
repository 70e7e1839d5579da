package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/SomeoneInParticular/sct-timings/internal/config"
	"github.com/SomeoneInParticular/sct-timings/internal/db"
	"github.com/SomeoneInParticular/sct-timings/internal/fsutil"
	"github.com/SomeoneInParticular/sct-timings/internal/resample"
	"github.com/SomeoneInParticular/sct-timings/internal/results"
	"github.com/SomeoneInParticular/sct-timings/internal/runner"
	"github.com/SomeoneInParticular/sct-timings/internal/sct"
	"github.com/SomeoneInParticular/sct-timings/internal/timeutil"
	"github.com/SomeoneInParticular/sct-timings/internal/timing"
	"github.com/SomeoneInParticular/sct-timings/internal/version"
)

// resultPaths names the files written for one mode.
func resultPaths(resultsDir string, mode resample.Mode) (tsv, failed, summary string) {
	base := filepath.Join(resultsDir, string(mode))
	return base + ".tsv", base + ".failed.tsv", base + "_summary.tsv"
}

func cmdRun(ctx context.Context, args []string) error {
	fs := newFlagSet("run")
	var common commonFlags
	var rf runFlags
	common.register(fs)
	rf.register(fs)
	if err := parseFlags(fs, args, false); err != nil {
		return err
	}

	cfg, err := common.load(fs)
	if err != nil {
		return err
	}
	if err := rf.apply(cfg, flagsSet(fs)); err != nil {
		return err
	}
	if err := cfg.Require("sct_bin", "task"); err != nil {
		return err
	}
	modes, err := parseModes(rf.modes)
	if err != nil {
		return usageError{err}
	}
	timer, err := timing.New(cfg.GetTimer(), cfg.GetLogFormat(), cfg.GetCrossCheckTolerance())
	if err != nil {
		return err
	}

	tools, err := sct.NewToolbox(cfg.GetSCTBin())
	if err != nil {
		return err
	}
	if err := tools.Verify(sct.RunCommands...); err != nil {
		return err
	}

	database, err := db.NewDB(cfg.GetDBPath())
	if err != nil {
		return fmt.Errorf("open manifest: %w", err)
	}
	defer database.Close()

	fsys := fsutil.OSFileSystem{}
	resultsDir := cfg.GetResultsDir()
	if err := fsys.MkdirAll(resultsDir, 0755); err != nil {
		return fmt.Errorf("create results dir: %w", err)
	}

	r := &runner.Runner{
		SCT:        &sct.Invoker{Tools: tools, Runner: sct.NewExecRunner(cfg.GetTimeout(), tools.Env(os.Environ()))},
		FS:         fsys,
		Timer:      timer,
		Clock:      timeutil.RealClock{},
		Task:       cfg.GetTask(),
		Replicates: cfg.GetReplicates(),
		Workers:    cfg.GetWorkers(),
		Manifest:   database,
		Ledger:     database,
	}
	logRunSettings(cfg, timer)

	for _, mode := range modes {
		resultsPath, failuresPath, summaryPath := resultPaths(resultsDir, mode)
		sum, err := r.Run(ctx, runner.ModeRun{
			Mode:         mode,
			VolumeDir:    mode.Dir(cfg.GetDataDir()),
			ResultsPath:  resultsPath,
			FailuresPath: failuresPath,
		})
		log.Printf("%s run %s: %d volumes, %d ok, %d failed, %d skipped -> %s",
			mode, sum.RunID, sum.Volumes, sum.Succeeded, sum.Failed, sum.Skipped, resultsPath)
		if err != nil {
			return err
		}

		recs, err := results.ReadFile(fsys, resultsPath)
		if err != nil {
			return err
		}
		if err := results.WriteSummary(fsys, summaryPath, results.Summarise(recs)); err != nil {
			return err
		}
	}
	return nil
}

func logRunSettings(cfg *config.Config, timer timing.Timer) {
	timeout := "none"
	if d := cfg.GetTimeout(); d > 0 {
		timeout = d.String()
	}
	log.Printf("%s", version.String())
	log.Printf("task=%s replicates=%d workers=%d timer=%s timeout=%s",
		cfg.GetTask(), cfg.GetReplicates(), cfg.GetWorkers(), timer.Name(), timeout)
}
