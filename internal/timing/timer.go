// Package timing turns a captured command invocation into a runtime
// measurement.
package timing

import (
	"fmt"
	"math"
	"time"

	"github.com/SomeoneInParticular/sct-timings/internal/config"
	"github.com/SomeoneInParticular/sct-timings/internal/monitoring"
)

// Invocation is what a timer sees of one finished command.
type Invocation struct {
	Stdout  []byte
	Stderr  []byte
	Elapsed time.Duration
}

// Measurement is the runtime attributed to an invocation. LogSeconds is
// only meaningful when HasLog is set.
type Measurement struct {
	Seconds    float64
	LogSeconds float64
	HasLog     bool
	// Warning is set when a secondary check disagreed with the result.
	Warning string
}

// Timer derives a Measurement from an Invocation.
type Timer interface {
	Name() string
	Measure(inv Invocation) (Measurement, error)
}

// WallClock reports the harness-measured elapsed time.
type WallClock struct{}

func (WallClock) Name() string { return config.TimerWallClock }

func (WallClock) Measure(inv Invocation) (Measurement, error) {
	return Measurement{Seconds: inv.Elapsed.Seconds()}, nil
}

// LogTimer reports the runtime printed by the command itself.
type LogTimer struct {
	Format LogFormat
}

func (t LogTimer) Name() string { return config.TimerLog + ":" + t.Format.Name }

func (t LogTimer) Measure(inv Invocation) (Measurement, error) {
	v, err := t.Format.Parse(inv.Stdout)
	if err != nil {
		return Measurement{}, err
	}
	return Measurement{Seconds: v, LogSeconds: v, HasLog: true}, nil
}

// CrossCheck reports wall-clock time and compares it with the logged
// runtime. Disagreement is logged, never fatal.
type CrossCheck struct {
	Format    LogFormat
	Tolerance float64
}

func (t CrossCheck) Name() string { return config.TimerCrossCheck + ":" + t.Format.Name }

func (t CrossCheck) Measure(inv Invocation) (Measurement, error) {
	m := Measurement{Seconds: inv.Elapsed.Seconds()}

	v, err := t.Format.Parse(inv.Stdout)
	if err != nil {
		m.Warning = err.Error()
		monitoring.Logf("crosscheck: %v", err)
		return m, nil
	}
	m.LogSeconds = v
	m.HasLog = true

	if diff := math.Abs(m.Seconds - v); diff > t.Tolerance {
		m.Warning = fmt.Sprintf("wall clock %.3fs and logged %.3fs differ by %.3fs", m.Seconds, v, diff)
		monitoring.Logf("crosscheck: %s", m.Warning)
	}
	return m, nil
}

// New builds the timer named by kind. Log-based timers need a registered
// format name.
func New(kind, format string, tolerance float64) (Timer, error) {
	switch kind {
	case "", config.TimerWallClock:
		return WallClock{}, nil
	case config.TimerLog, config.TimerCrossCheck:
		f, err := LookupFormat(format)
		if err != nil {
			return nil, fmt.Errorf("timer %s: %w", kind, err)
		}
		if kind == config.TimerLog {
			return LogTimer{Format: f}, nil
		}
		return CrossCheck{Format: f, Tolerance: tolerance}, nil
	default:
		return nil, fmt.Errorf("unknown timer %q", kind)
	}
}
