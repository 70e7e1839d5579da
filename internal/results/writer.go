package results

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"

	"github.com/SomeoneInParticular/sct-timings/internal/fsutil"
)

// Writer appends rows to a tab-separated file, flushing after every row so
// a crash loses at most the observation in flight.
type Writer struct {
	csv    *csv.Writer
	closer io.Closer
}

// NewWriter writes header to w and returns a Writer for the rows.
func NewWriter(w io.Writer, header []string) (*Writer, error) {
	cw := csv.NewWriter(w)
	cw.Comma = '\t'
	out := &Writer{csv: cw}
	if c, ok := w.(io.Closer); ok {
		out.closer = c
	}
	if err := out.write(header); err != nil {
		return nil, fmt.Errorf("write header: %w", err)
	}
	return out, nil
}

// Create truncates path and writes the results header.
func Create(fsys fsutil.FileSystem, path string) (*Writer, error) {
	return create(fsys, path, Header)
}

// CreateFailures truncates path and writes the failure header.
func CreateFailures(fsys fsutil.FileSystem, path string) (*Writer, error) {
	return create(fsys, path, FailureHeader)
}

func create(fsys fsutil.FileSystem, path string, header []string) (*Writer, error) {
	f, err := fsys.Create(path)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", path, err)
	}
	w, err := NewWriter(f, header)
	if err != nil {
		f.Close()
		return nil, err
	}
	return w, nil
}

// Append writes a timing record.
func (w *Writer) Append(r Record) error {
	return w.write(r.fields())
}

// AppendFailure writes a failure record. Line breaks in the error text are
// folded so each failure stays on one line.
func (w *Writer) AppendFailure(f Failure) error {
	f.Err = strings.Join(strings.Fields(f.Err), " ")
	return w.write(f.fields())
}

func (w *Writer) write(fields []string) error {
	if err := w.csv.Write(fields); err != nil {
		return err
	}
	w.csv.Flush()
	return w.csv.Error()
}

// Close flushes and closes the underlying file, if any.
func (w *Writer) Close() error {
	w.csv.Flush()
	err := w.csv.Error()
	if w.closer != nil {
		if cerr := w.closer.Close(); err == nil {
			err = cerr
		}
	}
	return err
}
