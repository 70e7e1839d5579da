package sct

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func fakeBin(t *testing.T, cmds ...string) string {
	t.Helper()
	dir := t.TempDir()
	for _, cmd := range cmds {
		if err := os.WriteFile(filepath.Join(dir, cmd), []byte("#!/bin/sh\n"), 0755); err != nil {
			t.Fatalf("write %s: %v", cmd, err)
		}
	}
	return dir
}

func TestNewToolbox(t *testing.T) {
	dir := fakeBin(t)
	tb, err := NewToolbox(dir)
	if err != nil {
		t.Fatalf("NewToolbox: %v", err)
	}
	if !filepath.IsAbs(tb.BinDir) {
		t.Errorf("BinDir %q is not absolute", tb.BinDir)
	}
	if got := tb.Path(CmdDeepseg); got != filepath.Join(tb.BinDir, "sct_deepseg") {
		t.Errorf("Path() = %q", got)
	}
}

func TestNewToolbox_Errors(t *testing.T) {
	if _, err := NewToolbox(""); !errors.Is(err, ErrBinNotFound) {
		t.Errorf("empty path: got %v", err)
	}
	if _, err := NewToolbox(filepath.Join(t.TempDir(), "nope")); !errors.Is(err, ErrBinNotFound) {
		t.Errorf("missing dir: got %v", err)
	}

	file := filepath.Join(t.TempDir(), "file")
	if err := os.WriteFile(file, nil, 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := NewToolbox(file); !errors.Is(err, ErrBinNotDir) {
		t.Errorf("file path: got %v", err)
	}
}

func TestToolbox_Verify(t *testing.T) {
	dir := fakeBin(t, CmdResample, CmdDeepseg)
	if err := os.WriteFile(filepath.Join(dir, CmdCrop), []byte("not executable"), 0644); err != nil {
		t.Fatal(err)
	}
	tb, err := NewToolbox(dir)
	if err != nil {
		t.Fatal(err)
	}

	if err := tb.Verify(CmdResample, CmdDeepseg); err != nil {
		t.Errorf("Verify present commands: %v", err)
	}

	err = tb.Verify(CmdResample, CmdCrop, CmdStraighten)
	if !errors.Is(err, ErrCommandNotFound) {
		t.Fatalf("expected ErrCommandNotFound, got %v", err)
	}
	if !strings.Contains(err.Error(), CmdCrop) || !strings.Contains(err.Error(), CmdStraighten) {
		t.Errorf("error should list missing commands: %v", err)
	}
	if strings.Contains(err.Error(), CmdResample+",") {
		t.Errorf("present command reported missing: %v", err)
	}
}

func TestToolbox_VerifyStageCommands(t *testing.T) {
	tb, err := NewToolbox(fakeBin(t, SetupCommands...))
	if err != nil {
		t.Fatal(err)
	}
	if err := tb.Verify(SetupCommands...); err != nil {
		t.Errorf("Verify(SetupCommands): %v", err)
	}
	err = tb.Verify(RunCommands...)
	if !errors.Is(err, ErrCommandNotFound) || !strings.Contains(err.Error(), CmdDeepseg) {
		t.Errorf("Verify(RunCommands) = %v, want missing %s", err, CmdDeepseg)
	}
}

func TestToolbox_Env(t *testing.T) {
	tb := &Toolbox{BinDir: "/opt/sct/bin"}
	sep := string(os.PathListSeparator)

	got := tb.Env([]string{"HOME=/root", "PATH=/usr/bin" + sep + "/bin"})
	want := []string{"HOME=/root", "PATH=/opt/sct/bin" + sep + "/usr/bin" + sep + "/bin"}
	if strings.Join(got, "|") != strings.Join(want, "|") {
		t.Errorf("Env() = %v, want %v", got, want)
	}

	got = tb.Env([]string{"HOME=/root"})
	if got[len(got)-1] != "PATH=/opt/sct/bin" {
		t.Errorf("Env() without PATH = %v", got)
	}

	base := []string{"PATH=/usr/bin"}
	_ = tb.Env(base)
	if base[0] != "PATH=/usr/bin" {
		t.Error("Env must not modify its input")
	}
}
