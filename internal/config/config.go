package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"time"

	"github.com/SomeoneInParticular/sct-timings/internal/reference"
	"github.com/SomeoneInParticular/sct-timings/internal/resample"
)

// DefaultConfigPath is where the CLI looks for the benchmark configuration
// when no -config flag is given.
const DefaultConfigPath = "config.json"

// DefaultSourceURL is the SCT tutorial archive holding the reference T2 volume.
const DefaultSourceURL = "https://github.com/spinalcordtoolbox/sct_tutorial_data/releases/download/r20250310/data_spinalcord-segmentation.zip"

// Timer names accepted by the "timer" key.
const (
	TimerWallClock  = "wallclock"
	TimerLog        = "log"
	TimerCrossCheck = "crosscheck"
)

// ErrMissingField is returned by Require for absent mandatory keys.
var ErrMissingField = errors.New("missing required configuration field")

// Config is the benchmark configuration. Only sct_bin and task are
// mandatory; every other key is optional and falls back to the defaults
// returned by the Get* accessors.
type Config struct {
	SCTBin *string `json:"sct_bin,omitempty"`
	Task   *string `json:"task,omitempty"`

	// Runner params
	Replicates          *int     `json:"replicates,omitempty"`
	Workers             *int     `json:"workers,omitempty"`
	Timeout             *string  `json:"timeout,omitempty"` // duration string like "10m"
	Timer               *string  `json:"timer,omitempty"`
	LogFormat           *string  `json:"log_format,omitempty"`
	CrossCheckTolerance *float64 `json:"crosscheck_tolerance,omitempty"`

	// Generator params
	Factors         []float64 `json:"factors,omitempty"`
	FactorPrecision *int      `json:"factor_precision,omitempty"`
	CollisionPolicy *string   `json:"collision_policy,omitempty"`

	// Reference params
	SourceURL *string  `json:"source_url,omitempty"`
	Crop      *CropBox `json:"crop,omitempty"`

	// Paths
	DataDir    *string `json:"data_dir,omitempty"`
	ResultsDir *string `json:"results_dir,omitempty"`
	DBPath     *string `json:"db_path,omitempty"`
}

// CropBox is the voxel bounding box applied to the straightened reference.
type CropBox struct {
	XMin int `json:"xmin"`
	XMax int `json:"xmax"`
	YMin int `json:"ymin"`
	YMax int `json:"ymax"`
	ZMin int `json:"zmin"`
	ZMax int `json:"zmax"`
}

// EmptyConfig returns a Config with all fields unset.
func EmptyConfig() *Config {
	return &Config{}
}

// LoadConfig loads a Config from a JSON file.
// The file must have a .json extension and be under 1MB.
// Fields omitted from the JSON file fall back to their defaults.
func LoadConfig(path string) (*Config, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("config file must have .json extension, got %q", ext)
	}

	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	const maxFileSize = 1 * 1024 * 1024
	if fileInfo.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", fileInfo.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := EmptyConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Validate checks the values that are set. Missing mandatory keys are
// checked separately by Require since CLI flags may still supply them.
func (c *Config) Validate() error {
	if c.Replicates != nil && *c.Replicates < 0 {
		return fmt.Errorf("replicates must be non-negative, got %d", *c.Replicates)
	}
	if c.Workers != nil && *c.Workers < 1 {
		return fmt.Errorf("workers must be at least 1, got %d", *c.Workers)
	}
	if c.Timeout != nil && *c.Timeout != "" {
		d, err := time.ParseDuration(*c.Timeout)
		if err != nil {
			return fmt.Errorf("invalid timeout '%s': %w", *c.Timeout, err)
		}
		if d < 0 {
			return fmt.Errorf("timeout must be non-negative, got %s", *c.Timeout)
		}
	}

	timer := c.GetTimer()
	switch timer {
	case TimerWallClock, TimerLog, TimerCrossCheck:
	default:
		return fmt.Errorf("unknown timer %q (must be %s, %s or %s)", timer, TimerWallClock, TimerLog, TimerCrossCheck)
	}
	if timer != TimerWallClock && c.GetLogFormat() == "" {
		return fmt.Errorf("timer %q needs log_format to be set", timer)
	}
	if c.CrossCheckTolerance != nil && *c.CrossCheckTolerance < 0 {
		return fmt.Errorf("crosscheck_tolerance must be non-negative, got %f", *c.CrossCheckTolerance)
	}

	for _, f := range c.Factors {
		if f <= 0 || math.IsInf(f, 0) || math.IsNaN(f) {
			return fmt.Errorf("factors must be positive and finite, got %v", f)
		}
	}
	if c.FactorPrecision != nil && (*c.FactorPrecision < 1 || *c.FactorPrecision > 17) {
		return fmt.Errorf("factor_precision must be between 1 and 17, got %d", *c.FactorPrecision)
	}
	if _, err := resample.ParseCollisionPolicy(c.GetCollisionPolicy()); err != nil {
		return fmt.Errorf("collision_policy: %w", err)
	}

	if c.Crop != nil {
		b := *c.Crop
		if b.XMin >= b.XMax || b.YMin >= b.YMax || b.ZMin >= b.ZMax {
			return fmt.Errorf("crop box minimums must be below maximums, got %+v", b)
		}
		if b.XMin < 0 || b.YMin < 0 || b.ZMin < 0 {
			return fmt.Errorf("crop box must be non-negative, got %+v", b)
		}
	}

	return nil
}

// Require reports the first of the named mandatory keys that is unset.
// Recognised names are "sct_bin" and "task".
func (c *Config) Require(keys ...string) error {
	for _, key := range keys {
		var v *string
		switch key {
		case "sct_bin":
			v = c.SCTBin
		case "task":
			v = c.Task
		default:
			return fmt.Errorf("unknown configuration key %q", key)
		}
		if v == nil || *v == "" {
			return fmt.Errorf("%w: %s", ErrMissingField, key)
		}
	}
	return nil
}

// GetSCTBin returns the SCT executable directory, or "" when unset.
func (c *Config) GetSCTBin() string {
	if c.SCTBin == nil {
		return ""
	}
	return *c.SCTBin
}

// GetTask returns the sct_deepseg task name, or "" when unset.
func (c *Config) GetTask() string {
	if c.Task == nil {
		return ""
	}
	return *c.Task
}

// GetReplicates returns the replicate count or the default.
func (c *Config) GetReplicates() int {
	if c.Replicates == nil {
		return 1
	}
	return *c.Replicates
}

// GetWorkers returns the worker count or the default (sequential).
func (c *Config) GetWorkers() int {
	if c.Workers == nil || *c.Workers < 1 {
		return 1
	}
	return *c.Workers
}

// GetTimeout parses the per-invocation timeout. Zero means no timeout.
func (c *Config) GetTimeout() time.Duration {
	if c.Timeout == nil || *c.Timeout == "" {
		return 0
	}
	d, err := time.ParseDuration(*c.Timeout)
	if err != nil {
		return 0
	}
	return d
}

// GetTimer returns the timer name or the default.
func (c *Config) GetTimer() string {
	if c.Timer == nil || *c.Timer == "" {
		return TimerWallClock
	}
	return *c.Timer
}

// GetLogFormat returns the runtime log format name, or "" when unset.
func (c *Config) GetLogFormat() string {
	if c.LogFormat == nil {
		return ""
	}
	return *c.LogFormat
}

// GetCrossCheckTolerance returns the allowed wall-clock/log divergence in seconds.
func (c *Config) GetCrossCheckTolerance() float64 {
	if c.CrossCheckTolerance == nil {
		return 1.0
	}
	return *c.CrossCheckTolerance
}

// GetFactors returns the configured scaling factors or the defaults.
func (c *Config) GetFactors() []float64 {
	if len(c.Factors) == 0 {
		return resample.DefaultFactors()
	}
	out := make([]float64, len(c.Factors))
	copy(out, c.Factors)
	return out
}

// GetFactorPrecision returns the significant digits used in factor file names.
func (c *Config) GetFactorPrecision() int {
	if c.FactorPrecision == nil {
		return resample.DefaultPrecision
	}
	return *c.FactorPrecision
}

// GetCollisionPolicy returns the factor file name collision policy.
func (c *Config) GetCollisionPolicy() string {
	if c.CollisionPolicy == nil || *c.CollisionPolicy == "" {
		return string(resample.CollisionFail)
	}
	return *c.CollisionPolicy
}

// GetSourceURL returns the reference archive URL.
func (c *Config) GetSourceURL() string {
	if c.SourceURL == nil || *c.SourceURL == "" {
		return DefaultSourceURL
	}
	return *c.SourceURL
}

// GetCrop returns the crop box or the default.
func (c *Config) GetCrop() CropBox {
	if c.Crop == nil {
		return CropBox(reference.DefaultCropBox)
	}
	return *c.Crop
}

// GetDataDir returns the data directory.
func (c *Config) GetDataDir() string {
	if c.DataDir == nil || *c.DataDir == "" {
		return "data"
	}
	return *c.DataDir
}

// GetResultsDir returns the results directory.
func (c *Config) GetResultsDir() string {
	if c.ResultsDir == nil || *c.ResultsDir == "" {
		return "results"
	}
	return *c.ResultsDir
}

// GetDBPath returns the manifest database path, defaulting to a file in
// the data directory.
func (c *Config) GetDBPath() string {
	if c.DBPath == nil || *c.DBPath == "" {
		return filepath.Join(c.GetDataDir(), "manifest.db")
	}
	return *c.DBPath
}
