package reference

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SomeoneInParticular/sct-timings/internal/fsutil"
	"github.com/SomeoneInParticular/sct-timings/internal/sct"
)

// sctOutputs mimics the files each SCT command leaves behind.
func sctOutputs(fsys fsutil.FileSystem) func(ctx context.Context, name string, args []string) (*sct.Result, error) {
	return func(ctx context.Context, name string, args []string) (*sct.Result, error) {
		rc := sct.RecordedCommand{Name: name, Args: args}
		var out string
		switch rc.Base() {
		case sct.CmdStraighten:
			stem := filepath.Base(rc.Arg("-i"))
			stem = stem[:len(stem)-len(".nii.gz")]
			out = filepath.Join(rc.Arg("-ofolder"), stem+"_straight.nii.gz")
		default:
			out = rc.Arg("-o")
		}
		return &sct.Result{Stdout: []byte("done\n")}, fsys.WriteFile(out, []byte(name), 0644)
	}
}

func newTestPreparer(t *testing.T) (*Preparer, *sct.MockCommandRunner, *fsutil.MemoryFileSystem) {
	t.Helper()
	quietLogs(t)
	fsys := fsutil.NewMemoryFileSystem()
	require.NoError(t, fsys.WriteFile(filepath.Join("data", "source.nii.gz"), []byte("t2"), 0644))

	mock := sct.NewMockCommandRunner()
	mock.Handler = sctOutputs(fsys)
	return &Preparer{SCT: &sct.Invoker{Runner: mock}, FS: fsys, Crop: DefaultCropBox}, mock, fsys
}

func TestPaths(t *testing.T) {
	ref := Paths(filepath.Join("work.d", "data", "source.nii.gz"))
	dir := filepath.Join("work.d", "data")
	assert.Equal(t, filepath.Join(dir, "source_centerline.nii.gz"), ref.Centerline)
	assert.Equal(t, filepath.Join(dir, "source_straight.nii.gz"), ref.Straight)
	assert.Equal(t, filepath.Join(dir, "source_straight_crop.nii.gz"), ref.Cropped)
}

func TestPrepare_RunsAllSteps(t *testing.T) {
	p, mock, fsys := newTestPreparer(t)

	ref, err := p.Prepare(context.Background(), filepath.Join("data", "source.nii.gz"))
	require.NoError(t, err)
	assert.Equal(t, []string{StepCenterline, StepStraighten, StepCrop}, ref.Ran)
	assert.True(t, fsys.Exists(ref.Cropped))

	cmds := mock.Commands()
	require.Len(t, cmds, 3)

	assert.Equal(t, sct.CmdGetCenterline, cmds[0].Base())
	assert.Equal(t, "t2", cmds[0].Arg("-c"))
	assert.Equal(t, ref.Source, cmds[0].Arg("-i"))

	assert.Equal(t, sct.CmdStraighten, cmds[1].Base())
	assert.Equal(t, ref.Centerline, cmds[1].Arg("-s"))
	assert.Equal(t, "data", cmds[1].Arg("-ofolder"))

	assert.Equal(t, sct.CmdCrop, cmds[2].Base())
	assert.Equal(t, ref.Straight, cmds[2].Arg("-i"))
	for flag, want := range map[string]string{"-xmin": "16", "-xmax": "48", "-ymin": "28", "-ymax": "60", "-zmin": "0", "-zmax": "256"} {
		assert.Equal(t, want, cmds[2].Arg(flag), flag)
	}
	assert.Equal(t, ref.Cropped, cmds[2].Arg("-o"))
}

func TestPrepare_Idempotent(t *testing.T) {
	p, mock, _ := newTestPreparer(t)
	source := filepath.Join("data", "source.nii.gz")

	_, err := p.Prepare(context.Background(), source)
	require.NoError(t, err)

	mock.Reset()
	ref, err := p.Prepare(context.Background(), source)
	require.NoError(t, err)
	assert.Equal(t, 0, mock.CallCount())
	assert.Empty(t, ref.Ran)
}

func TestPrepare_SkipsCachedSteps(t *testing.T) {
	p, mock, fsys := newTestPreparer(t)
	source := filepath.Join("data", "source.nii.gz")
	require.NoError(t, fsys.WriteFile(Paths(source).Centerline, []byte("cached"), 0644))

	ref, err := p.Prepare(context.Background(), source)
	require.NoError(t, err)
	assert.Equal(t, []string{StepStraighten, StepCrop}, ref.Ran)
	assert.Equal(t, 2, mock.CallCount())
}

func TestPrepare_StepFailure(t *testing.T) {
	p, mock, _ := newTestPreparer(t)
	mock.Handler = func(ctx context.Context, name string, args []string) (*sct.Result, error) {
		res := &sct.Result{ExitCode: 1, Stderr: []byte("no spinal cord found")}
		return res, &sct.ExitError{Name: name, Args: args, Result: res}
	}

	_, err := p.Prepare(context.Background(), filepath.Join("data", "source.nii.gz"))
	var stepErr *StepError
	require.ErrorAs(t, err, &stepErr)
	assert.Equal(t, StepCenterline, stepErr.Step)
	assert.Contains(t, stepErr.Output, "no spinal cord found")
	var exitErr *sct.ExitError
	assert.True(t, errors.As(err, &exitErr))
	assert.Equal(t, 1, mock.CallCount())
}

func TestPrepare_MissingOutput(t *testing.T) {
	p, mock, _ := newTestPreparer(t)
	mock.Handler = nil

	_, err := p.Prepare(context.Background(), filepath.Join("data", "source.nii.gz"))
	var stepErr *StepError
	require.ErrorAs(t, err, &stepErr)
	assert.ErrorIs(t, err, sct.ErrOutputMissing)
}

func TestPrepare_MissingSource(t *testing.T) {
	p, mock, _ := newTestPreparer(t)
	_, err := p.Prepare(context.Background(), filepath.Join("elsewhere", "source.nii.gz"))
	assert.ErrorIs(t, err, ErrSourceMissing)
	assert.Equal(t, 0, mock.CallCount())
}

func TestCropBoxArgs(t *testing.T) {
	b := CropBox{XMin: 1, XMax: 2, YMin: 3, YMax: 4, ZMin: 5, ZMax: 6}
	assert.Equal(t, []string{"-xmin", "1", "-xmax", "2", "-ymin", "3", "-ymax", "4", "-zmin", "5", "-zmax", "6"}, b.Args())
}
