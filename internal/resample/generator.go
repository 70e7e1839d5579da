package resample

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/SomeoneInParticular/sct-timings/internal/db"
	"github.com/SomeoneInParticular/sct-timings/internal/fsutil"
	"github.com/SomeoneInParticular/sct-timings/internal/monitoring"
	"github.com/SomeoneInParticular/sct-timings/internal/sct"
)

// CollisionPolicy decides what happens when distinct factors share a file name.
type CollisionPolicy string

const (
	// CollisionFail aborts generation before any command runs.
	CollisionFail CollisionPolicy = "error"
	// CollisionFirst keeps the first factor and skips the rest.
	CollisionFirst CollisionPolicy = "first"
)

// ParseCollisionPolicy parses a policy name. Empty selects CollisionFail.
func ParseCollisionPolicy(s string) (CollisionPolicy, error) {
	switch CollisionPolicy(s) {
	case "", CollisionFail:
		return CollisionFail, nil
	case CollisionFirst:
		return CollisionFirst, nil
	}
	return "", fmt.Errorf("unknown collision policy %q", s)
}

// CollisionError reports two factors that map onto the same volume file.
type CollisionError struct {
	Mode   Mode
	Name   string
	First  float64
	Second float64
	// Recorded is set when First came from the manifest of an earlier run.
	Recorded bool
}

func (e *CollisionError) Error() string {
	if e.Recorded {
		return fmt.Sprintf("%s/%s already holds factor %v, cannot reuse it for %v", e.Mode, e.Name, e.First, e.Second)
	}
	return fmt.Sprintf("factors %v and %v both map to %s/%s", e.First, e.Second, e.Mode, e.Name)
}

// Manifest records the exact factor behind each generated volume.
type Manifest interface {
	UpsertVolume(v db.Volume) error
	VolumeByName(mode, name string) (db.Volume, error)
}

// Output describes one scaled volume after a generation pass.
type Output struct {
	Factor    float64
	Name      string
	Path      string
	Generated bool // false when the file already existed
}

// Generator produces scaled volumes with sct_resample.
type Generator struct {
	SCT       *sct.Invoker
	FS        fsutil.FileSystem
	Manifest  Manifest // optional
	Precision int
	Policy    CollisionPolicy
}

type planned struct {
	factor float64
	name   string
}

// Generate creates one volume per factor in outDir, skipping files that
// already exist. Outputs are returned in factor order.
func (g *Generator) Generate(ctx context.Context, ref string, mode Mode, outDir string, factors []float64) ([]Output, error) {
	plan, err := g.plan(mode, factors)
	if err != nil {
		return nil, err
	}

	if err := g.FS.MkdirAll(outDir, 0755); err != nil {
		return nil, fmt.Errorf("create %s: %w", outDir, err)
	}

	outputs := make([]Output, 0, len(plan))
	for _, p := range plan {
		if err := ctx.Err(); err != nil {
			return outputs, err
		}

		out := Output{Factor: p.factor, Name: p.name, Path: filepath.Join(outDir, p.name)}
		if g.FS.Exists(out.Path) {
			monitoring.Logf("%s exists, skipping resample for factor %v", out.Path, p.factor)
		} else {
			if err := g.resample(ctx, ref, mode, out); err != nil {
				return outputs, err
			}
			out.Generated = true
		}

		if g.Manifest != nil {
			if err := g.Manifest.UpsertVolume(db.Volume{Mode: string(mode), Name: p.name, Factor: p.factor}); err != nil {
				return outputs, err
			}
		}
		outputs = append(outputs, out)
	}
	return outputs, nil
}

// plan validates factors and resolves file name collisions. Repeated
// identical factors collapse onto their first occurrence.
func (g *Generator) plan(mode Mode, factors []float64) ([]planned, error) {
	byName := make(map[string]float64, len(factors))
	var plan []planned

	for _, f := range factors {
		if err := ValidateFactor(f); err != nil {
			return nil, err
		}
		name := FileName(f, g.Precision)

		if prev, seen := byName[name]; seen {
			if prev == f {
				monitoring.Debugf("factor %v listed twice for mode %s", f, mode)
				continue
			}
			collision := &CollisionError{Mode: mode, Name: name, First: prev, Second: f}
			if g.Policy == CollisionFirst {
				monitoring.Logf("%v; keeping %v", collision, prev)
				continue
			}
			return nil, collision
		}

		if g.Manifest != nil {
			rec, err := g.Manifest.VolumeByName(string(mode), name)
			switch {
			case err == nil && rec.Factor != f:
				return nil, &CollisionError{Mode: mode, Name: name, First: rec.Factor, Second: f, Recorded: true}
			case err != nil && !errors.Is(err, db.ErrVolumeNotFound):
				return nil, err
			}
		}

		byName[name] = f
		plan = append(plan, planned{factor: f, name: name})
	}
	return plan, nil
}

func (g *Generator) resample(ctx context.Context, ref string, mode Mode, out Output) error {
	spec := mode.ScaleSpec(FormatFactor(out.Factor, g.Precision))
	monitoring.Logf("resampling %s to %s (-f %s)", ref, out.Path, spec)

	res, err := g.SCT.Invoke(ctx, sct.CmdResample, "-i", ref, "-o", out.Path, "-f", spec)
	if err != nil {
		if res != nil {
			monitoring.Logf("sct_resample output:\n%s", res.Output())
		}
		return fmt.Errorf("resample factor %v (%s): %w", out.Factor, mode, err)
	}
	if !fsutil.IsRegularFile(g.FS, out.Path) {
		return fmt.Errorf("resample factor %v (%s): %w: %s", out.Factor, mode, sct.ErrOutputMissing, out.Path)
	}
	return nil
}
