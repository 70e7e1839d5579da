package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/SomeoneInParticular/sct-timings/internal/reference"
	"github.com/SomeoneInParticular/sct-timings/internal/resample"
)

func writeConfig(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(body), 0644); err != nil {
		t.Fatalf("Failed to write test config: %v", err)
	}
	return path
}

func TestEmptyConfigDefaults(t *testing.T) {
	cfg := EmptyConfig()

	if cfg.GetReplicates() != 1 {
		t.Errorf("GetReplicates() = %d, want 1", cfg.GetReplicates())
	}
	if cfg.GetWorkers() != 1 {
		t.Errorf("GetWorkers() = %d, want 1", cfg.GetWorkers())
	}
	if cfg.GetTimeout() != 0 {
		t.Errorf("GetTimeout() = %v, want 0", cfg.GetTimeout())
	}
	if cfg.GetTimer() != TimerWallClock {
		t.Errorf("GetTimer() = %q, want %q", cfg.GetTimer(), TimerWallClock)
	}
	if cfg.GetCollisionPolicy() != "error" {
		t.Errorf("GetCollisionPolicy() = %q, want %q", cfg.GetCollisionPolicy(), "error")
	}
	if cfg.GetFactorPrecision() != 6 {
		t.Errorf("GetFactorPrecision() = %d, want 6", cfg.GetFactorPrecision())
	}
	if got := cfg.GetFactors(); len(got) != 5 || got[0] != 0.25 || got[4] != 4 {
		t.Errorf("GetFactors() = %v, want 2^-2..2^2", got)
	}
	if want := (CropBox{XMin: 16, XMax: 48, YMin: 28, YMax: 60, ZMin: 0, ZMax: 256}); cfg.GetCrop() != want {
		t.Errorf("GetCrop() = %+v, want %+v", cfg.GetCrop(), want)
	}
	if cfg.GetSourceURL() != DefaultSourceURL {
		t.Errorf("GetSourceURL() = %q", cfg.GetSourceURL())
	}
	if cfg.GetDataDir() != "data" || cfg.GetResultsDir() != "results" {
		t.Errorf("unexpected dirs %q %q", cfg.GetDataDir(), cfg.GetResultsDir())
	}
	if cfg.GetDBPath() != filepath.Join("data", "manifest.db") {
		t.Errorf("GetDBPath() = %q", cfg.GetDBPath())
	}
	if cfg.GetCrossCheckTolerance() != 1.0 {
		t.Errorf("GetCrossCheckTolerance() = %f, want 1.0", cfg.GetCrossCheckTolerance())
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("empty config should validate, got %v", err)
	}
}

func TestLoadConfig(t *testing.T) {
	path := writeConfig(t, "config.json", `{
  "sct_bin": "/opt/sct/bin",
  "task": "spinalcord",
  "replicates": 5,
  "workers": 2,
  "timeout": "10m",
  "timer": "crosscheck",
  "log_format": "sct-7",
  "factors": [0.5, 1, 2],
  "data_dir": "/scratch/data"
}`)

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}

	if cfg.GetSCTBin() != "/opt/sct/bin" {
		t.Errorf("GetSCTBin() = %q", cfg.GetSCTBin())
	}
	if cfg.GetTask() != "spinalcord" {
		t.Errorf("GetTask() = %q", cfg.GetTask())
	}
	if cfg.GetReplicates() != 5 {
		t.Errorf("GetReplicates() = %d, want 5", cfg.GetReplicates())
	}
	if cfg.GetWorkers() != 2 {
		t.Errorf("GetWorkers() = %d, want 2", cfg.GetWorkers())
	}
	if cfg.GetTimeout() != 10*time.Minute {
		t.Errorf("GetTimeout() = %v, want 10m", cfg.GetTimeout())
	}
	if cfg.GetTimer() != TimerCrossCheck || cfg.GetLogFormat() != "sct-7" {
		t.Errorf("timer = %q, log_format = %q", cfg.GetTimer(), cfg.GetLogFormat())
	}
	if got := cfg.GetFactors(); len(got) != 3 || got[0] != 0.5 {
		t.Errorf("GetFactors() = %v", got)
	}
	if cfg.GetDBPath() != filepath.Join("/scratch/data", "manifest.db") {
		t.Errorf("GetDBPath() = %q", cfg.GetDBPath())
	}
	if err := cfg.Require("sct_bin", "task"); err != nil {
		t.Errorf("Require() = %v", err)
	}
}

func TestLoadConfig_MinimalKeys(t *testing.T) {
	path := writeConfig(t, "config.json", `{"sct_bin": "/opt/sct/bin", "task": "spinalcord"}`)

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}
	if cfg.GetReplicates() != 1 || cfg.GetTimer() != TimerWallClock {
		t.Errorf("defaults not applied: replicates=%d timer=%q", cfg.GetReplicates(), cfg.GetTimer())
	}
}

func TestLoadConfig_Errors(t *testing.T) {
	tests := []struct {
		name    string
		file    string
		body    string
		wantErr string
	}{
		{"wrong extension", "config.yaml", `{}`, ".json extension"},
		{"bad json", "config.json", `{"task": `, "failed to parse"},
		{"negative replicates", "config.json", `{"replicates": -1}`, "replicates"},
		{"zero workers", "config.json", `{"workers": 0}`, "workers"},
		{"bad timeout", "config.json", `{"timeout": "soon"}`, "invalid timeout"},
		{"unknown timer", "config.json", `{"timer": "stopwatch"}`, "unknown timer"},
		{"log timer without format", "config.json", `{"timer": "log"}`, "log_format"},
		{"non-positive factor", "config.json", `{"factors": [0.5, 0]}`, "factors"},
		{"bad precision", "config.json", `{"factor_precision": 0}`, "factor_precision"},
		{"bad policy", "config.json", `{"collision_policy": "last"}`, "collision_policy"},
		{"inverted crop", "config.json", `{"crop": {"xmin": 48, "xmax": 16, "ymin": 0, "ymax": 1, "zmin": 0, "zmax": 1}}`, "crop box"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeConfig(t, tt.file, tt.body)
			_, err := LoadConfig(path)
			if err == nil {
				t.Fatalf("expected error containing %q", tt.wantErr)
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error %q does not contain %q", err, tt.wantErr)
			}
		})
	}
}

func TestLoadConfig_Missing(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "absent.json"))
	if !errors.Is(err, os.ErrNotExist) {
		t.Errorf("expected ErrNotExist, got %v", err)
	}
}

func TestLoadConfig_TooLarge(t *testing.T) {
	big := `{"task": "` + strings.Repeat("a", 1024*1024) + `"}`
	path := writeConfig(t, "config.json", big)
	if _, err := LoadConfig(path); err == nil || !strings.Contains(err.Error(), "too large") {
		t.Errorf("expected size error, got %v", err)
	}
}

func TestRequire(t *testing.T) {
	cfg := EmptyConfig()
	err := cfg.Require("sct_bin")
	if !errors.Is(err, ErrMissingField) {
		t.Fatalf("expected ErrMissingField, got %v", err)
	}
	if !strings.Contains(err.Error(), "sct_bin") {
		t.Errorf("error should name the key: %v", err)
	}

	empty := ""
	cfg.Task = &empty
	if err := cfg.Require("task"); !errors.Is(err, ErrMissingField) {
		t.Errorf("empty task should be missing, got %v", err)
	}

	if err := cfg.Require("colour"); err == nil {
		t.Error("unknown key should be rejected")
	}
}

func TestGetFactorsReturnsCopy(t *testing.T) {
	cfg := &Config{Factors: []float64{1, 2}}
	got := cfg.GetFactors()
	got[0] = 99
	if cfg.Factors[0] != 1 {
		t.Error("GetFactors must not alias the config slice")
	}
}

func TestDefaultsFollowPipelinePackages(t *testing.T) {
	cfg := EmptyConfig()

	if got := reference.CropBox(cfg.GetCrop()); got != reference.DefaultCropBox {
		t.Errorf("GetCrop() = %+v, want %+v", got, reference.DefaultCropBox)
	}
	if cfg.GetFactorPrecision() != resample.DefaultPrecision {
		t.Errorf("GetFactorPrecision() = %d, want %d", cfg.GetFactorPrecision(), resample.DefaultPrecision)
	}
	want := resample.DefaultFactors()
	got := cfg.GetFactors()
	if len(got) != len(want) {
		t.Fatalf("GetFactors() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("GetFactors()[%d] = %v, want %v", i, got[i], want[i])
		}
	}
	policy, err := resample.ParseCollisionPolicy(cfg.GetCollisionPolicy())
	if err != nil || policy != resample.CollisionFail {
		t.Errorf("default collision policy = %q, %v; want %q", policy, err, resample.CollisionFail)
	}
	first := string(resample.CollisionFirst)
	cfg.CollisionPolicy = &first
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate() with %q: %v", first, err)
	}
}
