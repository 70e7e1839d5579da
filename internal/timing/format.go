package timing

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// ErrRuntimeNotFound is wrapped by ParseError when the inspected line does
// not carry a runtime report in the expected shape.
var ErrRuntimeNotFound = errors.New("runtime report not found")

// ErrUnknownFormat is returned by LookupFormat for unregistered names.
var ErrUnknownFormat = errors.New("unknown log format")

// LogFormat describes how a toolbox release reports its own runtime on the
// last line of its output: the number sits after the last Delimiter and
// before the first Unit that follows it.
type LogFormat struct {
	Name      string
	Delimiter string
	Unit      string
}

var formats = map[string]LogFormat{
	"sct-6": {Name: "sct-6", Delimiter: "; ", Unit: " s"},
	"sct-7": {Name: "sct-7", Delimiter: "runtime; ", Unit: " seconds"},
}

// LookupFormat returns the registered format called name.
func LookupFormat(name string) (LogFormat, error) {
	f, ok := formats[name]
	if !ok {
		return LogFormat{}, fmt.Errorf("%w %q (known: %s)", ErrUnknownFormat, name, strings.Join(FormatNames(), ", "))
	}
	return f, nil
}

// FormatNames lists the registered format names in sorted order.
func FormatNames() []string {
	names := make([]string, 0, len(formats))
	for name := range formats {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ParseError reports output from which no runtime could be extracted.
type ParseError struct {
	Format string
	Line   string
	Err    error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse runtime (%s) from %q: %v", e.Format, e.Line, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// Parse extracts the reported runtime in seconds from command output.
func (f LogFormat) Parse(output []byte) (float64, error) {
	line := lastLine(string(output))
	if line == "" {
		return 0, &ParseError{Format: f.Name, Err: ErrRuntimeNotFound}
	}

	i := strings.LastIndex(line, f.Delimiter)
	if i < 0 {
		return 0, &ParseError{Format: f.Name, Line: line, Err: ErrRuntimeNotFound}
	}
	rest := line[i+len(f.Delimiter):]
	j := strings.Index(rest, f.Unit)
	if j < 0 {
		return 0, &ParseError{Format: f.Name, Line: line, Err: ErrRuntimeNotFound}
	}

	v, err := strconv.ParseFloat(strings.TrimSpace(rest[:j]), 64)
	if err != nil {
		return 0, &ParseError{Format: f.Name, Line: line, Err: err}
	}
	if v < 0 {
		return 0, &ParseError{Format: f.Name, Line: line, Err: fmt.Errorf("negative runtime %v", v)}
	}
	return v, nil
}

// lastLine returns the last line with non-whitespace content.
func lastLine(s string) string {
	lines := strings.Split(s, "\n")
	for i := len(lines) - 1; i >= 0; i-- {
		if l := strings.TrimRight(lines[i], " \t\r"); strings.TrimSpace(l) != "" {
			return l
		}
	}
	return ""
}
