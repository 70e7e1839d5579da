package sct

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"github.com/SomeoneInParticular/sct-timings/internal/timeutil"
)

// ErrTimedOut is returned when an invocation exceeds the runner timeout.
var ErrTimedOut = errors.New("command timed out")

// waitDelay bounds how long Wait blocks on output pipes after the process
// has been killed. SCT commands spawn python children that may hold them.
const waitDelay = 5 * time.Second

// Result is the captured outcome of one command invocation.
type Result struct {
	Stdout   []byte
	Stderr   []byte
	ExitCode int
	Elapsed  time.Duration
}

// Output returns stdout followed by stderr, for logs.
func (r *Result) Output() string {
	if r == nil {
		return ""
	}
	var b strings.Builder
	b.Write(r.Stdout)
	if len(r.Stderr) > 0 {
		if b.Len() > 0 && !strings.HasSuffix(b.String(), "\n") {
			b.WriteByte('\n')
		}
		b.Write(r.Stderr)
	}
	return b.String()
}

// ExitError reports a command that ran but exited non-zero.
type ExitError struct {
	Name   string
	Args   []string
	Result *Result
	Err    error
}

func (e *ExitError) Error() string {
	return fmt.Sprintf("%s exited with status %d", e.Name, e.Result.ExitCode)
}

func (e *ExitError) Unwrap() error { return e.Err }

// CommandRunner runs an external command and captures its output.
// Implementations return a non-nil Result alongside exit and timeout errors.
type CommandRunner interface {
	Run(ctx context.Context, name string, args ...string) (*Result, error)
}

// ExecRunner runs commands with os/exec.
type ExecRunner struct {
	// Timeout bounds each invocation. Zero disables it.
	Timeout time.Duration
	// Clock measures elapsed time. Defaults to the real clock.
	Clock timeutil.Clock
	// Env is the child environment. Nil inherits the current process.
	Env []string
}

// NewExecRunner creates an ExecRunner with the real clock.
func NewExecRunner(timeout time.Duration, env []string) *ExecRunner {
	return &ExecRunner{Timeout: timeout, Clock: timeutil.RealClock{}, Env: env}
}

// Run executes name with args, capturing stdout and stderr separately.
func (r *ExecRunner) Run(ctx context.Context, name string, args ...string) (*Result, error) {
	clock := r.Clock
	if clock == nil {
		clock = timeutil.RealClock{}
	}

	runCtx := ctx
	if r.Timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, r.Timeout)
		defer cancel()
	}

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(runCtx, name, args...)
	cmd.Env = r.Env
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	cmd.WaitDelay = waitDelay

	start := clock.Now()
	err := cmd.Run()
	res := &Result{
		Stdout:  stdout.Bytes(),
		Stderr:  stderr.Bytes(),
		Elapsed: clock.Since(start),
	}
	if err == nil {
		return res, nil
	}

	res.ExitCode = -1
	if cmd.ProcessState != nil {
		res.ExitCode = cmd.ProcessState.ExitCode()
	}

	// The parent context takes precedence: a cancelled benchmark is not a
	// timed out invocation.
	if ctxErr := ctx.Err(); ctxErr != nil {
		return res, fmt.Errorf("%s: %w", name, ctxErr)
	}
	if errors.Is(runCtx.Err(), context.DeadlineExceeded) {
		return res, fmt.Errorf("%s: %w after %s", name, ErrTimedOut, r.Timeout)
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return res, &ExitError{Name: name, Args: args, Result: res, Err: err}
	}
	return res, fmt.Errorf("start %s: %w", name, err)
}

// Invoker runs SCT commands by name through a CommandRunner.
type Invoker struct {
	// Tools resolves command names to paths. Nil runs bare names.
	Tools  *Toolbox
	Runner CommandRunner
}

// Invoke runs the SCT command cmd with args.
func (i *Invoker) Invoke(ctx context.Context, cmd string, args ...string) (*Result, error) {
	name := cmd
	if i.Tools != nil {
		name = i.Tools.Path(cmd)
	}
	return i.Runner.Run(ctx, name, args...)
}
