// Package results reads and writes the tab-separated timing files and
// summarises them per scaling factor.
package results

import "strconv"

// Column names shared by every results file.
const (
	ColScaling   = "Scaling"
	ColReplicate = "Replicate"
	ColRuntime   = "Runtime"
	ColStatus    = "Status"
	ColError     = "Error"
)

// Header is the results file header.
var Header = []string{ColScaling, ColReplicate, ColRuntime}

// FailureHeader is the failure sidecar header.
var FailureHeader = []string{ColScaling, ColReplicate, ColStatus, ColError}

// Record is one successful timing observation.
type Record struct {
	Scaling   float64
	Replicate int
	Runtime   float64 // seconds
}

func (r Record) fields() []string {
	return []string{formatFloat(r.Scaling), strconv.Itoa(r.Replicate), formatFloat(r.Runtime)}
}

// Failure is an observation that produced no runtime.
type Failure struct {
	Scaling   float64
	Replicate int
	Status    string
	Err       string
}

func (f Failure) fields() []string {
	return []string{formatFloat(f.Scaling), strconv.Itoa(f.Replicate), f.Status, f.Err}
}

// formatFloat uses the shortest representation that parses back exactly.
func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}
