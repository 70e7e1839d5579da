package main

import (
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"log"
	"strings"

	"github.com/SomeoneInParticular/sct-timings/internal/config"
	"github.com/SomeoneInParticular/sct-timings/internal/monitoring"
	"github.com/SomeoneInParticular/sct-timings/internal/resample"
)

// commonFlags are shared by every command that reads the configuration.
type commonFlags struct {
	configPath string
	sctBin     string
	dataDir    string
	dbPath     string
	verbose    bool
}

func (c *commonFlags) register(fs *flag.FlagSet) {
	fs.StringVar(&c.configPath, "config", config.DefaultConfigPath, "Path to the JSON configuration file")
	fs.StringVar(&c.sctBin, "sct-bin", "", "SCT bin directory (overrides sct_bin)")
	fs.StringVar(&c.dataDir, "data", "", "Data directory (overrides data_dir)")
	fs.StringVar(&c.dbPath, "db", "", "Manifest database path (overrides db_path)")
	fs.BoolVar(&c.verbose, "v", false, "Verbose logging")
}

// load reads the configuration file and applies the common overrides. A
// missing default config file is tolerated so flags alone can drive a run;
// an explicitly named file must exist.
func (c *commonFlags) load(flags *flag.FlagSet) (*config.Config, error) {
	monitoring.SetVerbose(c.verbose)
	set := flagsSet(flags)

	cfg, err := config.LoadConfig(c.configPath)
	if err != nil {
		if !set["config"] && errors.Is(err, fs.ErrNotExist) {
			log.Printf("no %s found, using defaults and flags", c.configPath)
			cfg = config.EmptyConfig()
		} else {
			return nil, err
		}
	}

	if set["sct-bin"] {
		cfg.SCTBin = &c.sctBin
	}
	if set["data"] {
		cfg.DataDir = &c.dataDir
	}
	if set["db"] {
		cfg.DBPath = &c.dbPath
	}
	return cfg, nil
}

// runFlags override the runner settings of the configuration.
type runFlags struct {
	task       string
	replicates int
	workers    int
	timeout    string
	timer      string
	logFormat  string
	resultsDir string
	modes      string
}

func (r *runFlags) register(fs *flag.FlagSet) {
	fs.StringVar(&r.task, "task", "", "sct_deepseg task (overrides task)")
	fs.IntVar(&r.replicates, "replicates", 1, "Replicates per volume (overrides replicates)")
	fs.IntVar(&r.workers, "workers", 1, "Concurrent sct_deepseg invocations (overrides workers)")
	fs.StringVar(&r.timeout, "timeout", "", "Per-invocation timeout such as 30m (overrides timeout)")
	fs.StringVar(&r.timer, "timer", "", "Runtime source: wallclock, log or crosscheck (overrides timer)")
	fs.StringVar(&r.logFormat, "log-format", "", "Runtime log format for log timers: sct-6 or sct-7 (overrides log_format)")
	fs.StringVar(&r.resultsDir, "results", "", "Results directory (overrides results_dir)")
	fs.StringVar(&r.modes, "modes", "z,xy", "Comma-separated modes to run")
}

// apply copies explicitly set flags into cfg and revalidates it.
func (r *runFlags) apply(cfg *config.Config, set map[string]bool) error {
	if set["task"] {
		cfg.Task = &r.task
	}
	if set["replicates"] {
		cfg.Replicates = &r.replicates
	}
	if set["workers"] {
		cfg.Workers = &r.workers
	}
	if set["timeout"] {
		cfg.Timeout = &r.timeout
	}
	if set["timer"] {
		cfg.Timer = &r.timer
	}
	if set["log-format"] {
		cfg.LogFormat = &r.logFormat
	}
	if set["results"] {
		cfg.ResultsDir = &r.resultsDir
	}
	if err := cfg.Validate(); err != nil {
		return usageError{err}
	}
	return nil
}

// parseModes parses a comma-separated mode list, dropping duplicates.
func parseModes(s string) ([]resample.Mode, error) {
	var modes []resample.Mode
	seen := make(map[resample.Mode]bool)
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		m, err := resample.ParseMode(part)
		if err != nil {
			return nil, err
		}
		if !seen[m] {
			seen[m] = true
			modes = append(modes, m)
		}
	}
	if len(modes) == 0 {
		return nil, fmt.Errorf("no modes given")
	}
	return modes, nil
}
