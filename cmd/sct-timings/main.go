// Command sct-timings benchmarks sct_deepseg runtime against input
// resolution.
//
//	sct-timings setup   fetch, prepare and resample the reference volume
//	sct-timings run     time sct_deepseg on every scaled volume
//	sct-timings plot    chart a results file
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/SomeoneInParticular/sct-timings/internal/version"
)

// Exit codes.
const (
	exitOK    = 0
	exitError = 1
	exitUsage = 2
)

// usageError marks errors caused by bad command-line input.
type usageError struct {
	err error
}

func (e usageError) Error() string { return e.err.Error() }
func (e usageError) Unwrap() error { return e.err }

func usagef(format string, v ...interface{}) error {
	return usageError{fmt.Errorf(format, v...)}
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdout)
	stop()
	os.Exit(code)
}

func run(ctx context.Context, args []string, stdout io.Writer) int {
	if len(args) < 1 {
		printUsage(stdout)
		return exitUsage
	}

	command, rest := args[0], args[1:]
	var err error
	switch command {
	case "setup":
		err = cmdSetup(ctx, rest)
	case "run":
		err = cmdRun(ctx, rest)
	case "plot":
		err = cmdPlot(rest)
	case "migrate":
		err = cmdMigrate(rest, stdout)
	case "runs":
		err = cmdRuns(rest, stdout)
	case "version":
		fmt.Fprintln(stdout, version.String())
	case "help", "-h", "--help":
		printUsage(stdout)
	default:
		log.Printf("unknown command: %s", command)
		printUsage(stdout)
		return exitUsage
	}

	switch {
	case err == nil, errors.Is(err, flag.ErrHelp):
		return exitOK
	case errors.As(err, new(usageError)):
		log.Printf("%s: %v", command, err)
		return exitUsage
	default:
		log.Printf("%s failed: %v", command, err)
		return exitError
	}
}

func printUsage(w io.Writer) {
	fmt.Fprint(w, `sct-timings - benchmark Spinal Cord Toolbox runtime against input resolution

Usage: sct-timings <command> [options]

Commands:
  setup      Download the reference volume, prepare it and generate scaled copies
  run        Time sct_deepseg on every scaled volume and write results TSVs
  plot       Plot runtime against scaling from a results file
  migrate    Manage the manifest database schema (up, down, status)
  runs       List recorded benchmark runs
  version    Show version information
  help       Show this help message

Run 'sct-timings <command> -h' for command options.
`)
}

// newFlagSet returns a flag set that reports errors instead of exiting.
func newFlagSet(name string) *flag.FlagSet {
	return flag.NewFlagSet(name, flag.ContinueOnError)
}

// parseFlags parses args and rejects stray positional arguments unless
// positional is set.
func parseFlags(fs *flag.FlagSet, args []string, positional bool) error {
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return err
		}
		return usageError{err}
	}
	if !positional && fs.NArg() > 0 {
		return usagef("unexpected arguments: %v", fs.Args())
	}
	return nil
}

// flagsSet returns the names of the flags given explicitly on the command line.
func flagsSet(fs *flag.FlagSet) map[string]bool {
	set := make(map[string]bool)
	fs.Visit(func(f *flag.Flag) { set[f.Name] = true })
	return set
}
