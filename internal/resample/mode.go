// Package resample derives scaled copies of the reference volume, one per
// scaling factor, along the longitudinal (z) or planar (xy) axes.
package resample

import (
	"fmt"
	"path/filepath"
)

// Mode selects which axes a factor scales.
type Mode string

const (
	ModeZ  Mode = "z"
	ModeXY Mode = "xy"
)

// Modes returns every mode in pipeline order.
func Modes() []Mode {
	return []Mode{ModeZ, ModeXY}
}

// ParseMode parses a mode name.
func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case ModeZ, ModeXY:
		return Mode(s), nil
	}
	return "", fmt.Errorf("unknown mode %q (must be z or xy)", s)
}

// Subdir is the directory, relative to the data directory, holding the
// mode's scaled volumes.
func (m Mode) Subdir() string {
	switch m {
	case ModeZ:
		return "z_ratios"
	case ModeXY:
		return "xy_ratios"
	}
	return string(m) + "_ratios"
}

// Dir joins the mode's subdirectory onto dataDir.
func (m Mode) Dir(dataDir string) string {
	return filepath.Join(dataDir, m.Subdir())
}

// ScaleSpec builds the sct_resample -f argument for a formatted factor.
func (m Mode) ScaleSpec(factor string) string {
	if m == ModeXY {
		return factor + "x" + factor + "x1"
	}
	return "1x1x" + factor
}
