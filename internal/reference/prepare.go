package reference

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/SomeoneInParticular/sct-timings/internal/fsutil"
	"github.com/SomeoneInParticular/sct-timings/internal/monitoring"
	"github.com/SomeoneInParticular/sct-timings/internal/sct"
)

// Step names, reported in Reference.Ran and StepError.
const (
	StepCenterline = "centerline"
	StepStraighten = "straighten"
	StepCrop       = "crop"
)

var ErrSourceMissing = errors.New("source volume not found")

// CropBox is the voxel bounding box kept from the straightened volume.
type CropBox struct {
	XMin, XMax int
	YMin, YMax int
	ZMin, ZMax int
}

// DefaultCropBox yields a 32x32x256 voxel sequence from the tutorial volume.
var DefaultCropBox = CropBox{XMin: 16, XMax: 48, YMin: 28, YMax: 60, ZMin: 0, ZMax: 256}

// Args renders the box as sct_crop_image flags.
func (b CropBox) Args() []string {
	itoa := strconv.Itoa
	return []string{
		"-xmin", itoa(b.XMin), "-xmax", itoa(b.XMax),
		"-ymin", itoa(b.YMin), "-ymax", itoa(b.YMax),
		"-zmin", itoa(b.ZMin), "-zmax", itoa(b.ZMax),
	}
}

// StepError reports a preparation step whose command failed or produced
// no output.
type StepError struct {
	Step    string
	Command string
	Output  string
	Err     error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("%s step (%s): %v", e.Step, e.Command, e.Err)
}

func (e *StepError) Unwrap() error { return e.Err }

// Reference lists the derived files of a source volume.
type Reference struct {
	Source     string
	Centerline string
	Straight   string
	Cropped    string
	// Ran lists the steps that executed; absent steps were already cached.
	Ran []string
}

// Paths derives the file names of every step from the source path. The
// stem is the source base name up to its first '.'.
func Paths(source string) Reference {
	dir := filepath.Dir(source)
	stem, _, _ := strings.Cut(filepath.Base(source), ".")
	base := filepath.Join(dir, stem)
	return Reference{
		Source:     source,
		Centerline: base + "_centerline.nii.gz",
		Straight:   base + "_straight.nii.gz",
		Cropped:    base + "_straight_crop.nii.gz",
	}
}

// Preparer derives the reference volume with SCT. Each step is skipped when
// its output file already exists.
type Preparer struct {
	SCT  *sct.Invoker
	FS   fsutil.FileSystem
	Crop CropBox
}

// Prepare runs centerline extraction, straightening and cropping on source.
func (p *Preparer) Prepare(ctx context.Context, source string) (*Reference, error) {
	if !fsutil.IsRegularFile(p.FS, source) {
		return nil, fmt.Errorf("%w: %s", ErrSourceMissing, source)
	}
	ref := Paths(source)

	steps := []struct {
		name string
		cmd  string
		out  string
		args []string
	}{
		{StepCenterline, sct.CmdGetCenterline, ref.Centerline,
			[]string{"-i", ref.Source, "-c", "t2", "-o", ref.Centerline}},
		{StepStraighten, sct.CmdStraighten, ref.Straight,
			[]string{"-i", ref.Source, "-s", ref.Centerline, "-ofolder", filepath.Dir(ref.Source)}},
		{StepCrop, sct.CmdCrop, ref.Cropped,
			append(append([]string{"-i", ref.Straight}, p.Crop.Args()...), "-o", ref.Cropped)},
	}

	for _, s := range steps {
		if p.FS.Exists(s.out) {
			monitoring.Logf("using existing %s output %s", s.name, s.out)
			continue
		}
		if err := ctx.Err(); err != nil {
			return &ref, err
		}

		monitoring.Logf("running %s step: %s", s.name, s.cmd)
		res, err := p.SCT.Invoke(ctx, s.cmd, s.args...)
		if err != nil {
			return &ref, &StepError{Step: s.name, Command: s.cmd, Output: res.Output(), Err: err}
		}
		if !fsutil.IsRegularFile(p.FS, s.out) {
			return &ref, &StepError{Step: s.name, Command: s.cmd, Output: res.Output(),
				Err: fmt.Errorf("%w: %s", sct.ErrOutputMissing, s.out)}
		}
		ref.Ran = append(ref.Ran, s.name)
	}
	return &ref, nil
}
