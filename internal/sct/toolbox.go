// Package sct locates Spinal Cord Toolbox executables and runs them.
package sct

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// SCT commands used by the benchmark pipeline.
const (
	CmdGetCenterline = "sct_get_centerline"
	CmdStraighten    = "sct_straighten_spinalcord"
	CmdCrop          = "sct_crop_image"
	CmdResample      = "sct_resample"
	CmdDeepseg       = "sct_deepseg"
)

// SetupCommands are the commands the setup stage needs on disk.
var SetupCommands = []string{CmdGetCenterline, CmdStraighten, CmdCrop, CmdResample}

// RunCommands are the commands the timing stage needs on disk.
var RunCommands = []string{CmdDeepseg}

var (
	ErrBinNotFound     = errors.New("sct bin directory not found")
	ErrBinNotDir       = errors.New("sct bin path is not a directory")
	ErrCommandNotFound = errors.New("sct command not found")
	ErrOutputMissing   = errors.New("command finished without producing its output")
)

// Toolbox resolves SCT executables inside a single bin directory.
type Toolbox struct {
	BinDir string
}

// NewToolbox validates binDir and returns a Toolbox rooted at its absolute path.
func NewToolbox(binDir string) (*Toolbox, error) {
	if binDir == "" {
		return nil, fmt.Errorf("%w: empty path", ErrBinNotFound)
	}
	abs, err := filepath.Abs(binDir)
	if err != nil {
		return nil, fmt.Errorf("resolve %s: %w", binDir, err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrBinNotFound, abs)
		}
		return nil, fmt.Errorf("stat %s: %w", abs, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%w: %s", ErrBinNotDir, abs)
	}
	return &Toolbox{BinDir: abs}, nil
}

// Path returns the absolute path of cmd inside the bin directory.
func (t *Toolbox) Path(cmd string) string {
	return filepath.Join(t.BinDir, cmd)
}

// Verify checks that every named command exists as an executable file.
func (t *Toolbox) Verify(cmds ...string) error {
	var missing []string
	for _, cmd := range cmds {
		info, err := os.Stat(t.Path(cmd))
		if err != nil || info.IsDir() || info.Mode().Perm()&0111 == 0 {
			missing = append(missing, cmd)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w in %s: %s", ErrCommandNotFound, t.BinDir, strings.Join(missing, ", "))
	}
	return nil
}

// Env returns a copy of base with the bin directory prepended to PATH.
// SCT scripts invoke each other by name, so children need it on PATH.
// The current process environment is left untouched.
func (t *Toolbox) Env(base []string) []string {
	out := make([]string, 0, len(base)+1)
	found := false
	for _, kv := range base {
		if strings.HasPrefix(kv, "PATH=") {
			existing := strings.TrimPrefix(kv, "PATH=")
			if existing == "" {
				kv = "PATH=" + t.BinDir
			} else {
				kv = "PATH=" + t.BinDir + string(os.PathListSeparator) + existing
			}
			found = true
		}
		out = append(out, kv)
	}
	if !found {
		out = append(out, "PATH="+t.BinDir)
	}
	return out
}
