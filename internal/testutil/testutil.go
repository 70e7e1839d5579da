// Package testutil holds helpers shared by tests that drive real SCT
// command lines through shell stand-ins.
package testutil

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
)

// genericTool touches the file named by -o and prints an sct-6 style
// runtime line.
const genericTool = `#!/bin/sh
echo "$(basename "$0")" >> %q
out=""
while [ $# -gt 0 ]; do
  case "$1" in
    -o) out="$2"; shift ;;
  esac
  shift
done
if [ -n "$out" ]; then : > "$out"; fi
echo "Processing..."
echo "Done; %s s"
`

// straightenTool writes {ofolder}/{stem}_straight.nii.gz.
const straightenTool = `#!/bin/sh
echo "$(basename "$0")" >> %q
in=""
dir=""
while [ $# -gt 0 ]; do
  case "$1" in
    -i) in="$2"; shift ;;
    -ofolder) dir="$2"; shift ;;
  esac
  shift
done
b=$(basename "$in")
: > "$dir/${b%%%%.*}_straight.nii.gz"
`

// FakeToolbox is a directory of shell scripts standing in for SCT.
type FakeToolbox struct {
	BinDir  string
	CallLog string
}

// NewFakeToolbox writes the stand-ins under dir/bin. Every tool reports a
// runtime of seconds. Tests are skipped where /bin/sh is unavailable.
func NewFakeToolbox(t *testing.T, dir, seconds string) *FakeToolbox {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("shell scripts stand in for SCT")
	}
	fb := &FakeToolbox{BinDir: filepath.Join(dir, "bin"), CallLog: filepath.Join(dir, "calls.log")}
	if err := os.MkdirAll(fb.BinDir, 0755); err != nil {
		t.Fatalf("create bin dir: %v", err)
	}

	for _, name := range []string{"sct_get_centerline", "sct_crop_image", "sct_resample", "sct_deepseg"} {
		fb.write(t, name, fmt.Sprintf(genericTool, fb.CallLog, seconds))
	}
	fb.write(t, "sct_straighten_spinalcord", fmt.Sprintf(straightenTool, fb.CallLog))
	return fb
}

func (fb *FakeToolbox) write(t *testing.T, name, script string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(fb.BinDir, name), []byte(script), 0755); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
}

// Calls counts invocations per tool since the last Reset.
func (fb *FakeToolbox) Calls(t *testing.T) map[string]int {
	t.Helper()
	data, err := os.ReadFile(fb.CallLog)
	if os.IsNotExist(err) {
		return map[string]int{}
	}
	if err != nil {
		t.Fatalf("read call log: %v", err)
	}
	counts := map[string]int{}
	for _, name := range strings.Fields(string(data)) {
		counts[name]++
	}
	return counts
}

// Reset clears the call log.
func (fb *FakeToolbox) Reset(t *testing.T) {
	t.Helper()
	if err := os.Remove(fb.CallLog); err != nil && !os.IsNotExist(err) {
		t.Fatalf("reset call log: %v", err)
	}
}

// WriteFile writes content to dir/name, creating parent directories, and
// returns the full path.
func WriteFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatalf("create %s: %v", filepath.Dir(path), err)
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
	return path
}
