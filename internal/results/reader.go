package results

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/SomeoneInParticular/sct-timings/internal/fsutil"
)

// ErrMissingColumn is returned when a required column is absent from the header.
var ErrMissingColumn = errors.New("missing column")

// Read parses a results file. Files without a Replicate column (the older
// two-column layout) get replicates numbered by occurrence within
// each scaling.
func Read(r io.Reader) ([]Record, error) {
	cr := csv.NewReader(r)
	cr.Comma = '\t'
	cr.ReuseRecord = true

	header, err := cr.Read()
	if err == io.EOF {
		return nil, fmt.Errorf("empty results file")
	}
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}

	cols := make(map[string]int, len(header))
	for i, name := range header {
		cols[strings.TrimSpace(name)] = i
	}
	scalingCol, ok := cols[ColScaling]
	if !ok {
		return nil, fmt.Errorf("%w %q", ErrMissingColumn, ColScaling)
	}
	runtimeCol, ok := cols[ColRuntime]
	if !ok {
		return nil, fmt.Errorf("%w %q", ErrMissingColumn, ColRuntime)
	}
	replicateCol, hasReplicate := cols[ColReplicate]

	var out []Record
	seen := make(map[float64]int)
	for {
		row, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		line, _ := cr.FieldPos(0)

		var rec Record
		if rec.Scaling, err = strconv.ParseFloat(strings.TrimSpace(row[scalingCol]), 64); err != nil {
			return nil, fmt.Errorf("line %d: invalid %s: %w", line, ColScaling, err)
		}
		if rec.Runtime, err = strconv.ParseFloat(strings.TrimSpace(row[runtimeCol]), 64); err != nil {
			return nil, fmt.Errorf("line %d: invalid %s: %w", line, ColRuntime, err)
		}
		if hasReplicate {
			if rec.Replicate, err = strconv.Atoi(strings.TrimSpace(row[replicateCol])); err != nil {
				return nil, fmt.Errorf("line %d: invalid %s: %w", line, ColReplicate, err)
			}
		} else {
			rec.Replicate = seen[rec.Scaling]
			seen[rec.Scaling]++
		}
		out = append(out, rec)
	}
	return out, nil
}

// ReadFile reads the results file at path.
func ReadFile(fsys fsutil.FileSystem, path string) ([]Record, error) {
	data, err := fsys.ReadFile(path)
	if err != nil {
		return nil, err
	}
	recs, err := Read(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return recs, nil
}
