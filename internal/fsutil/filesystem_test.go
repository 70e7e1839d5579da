package fsutil

import (
	"os"
	"path/filepath"
	"testing"
)

func TestOSFileSystem_Exists(t *testing.T) {
	fs := OSFileSystem{}

	if !fs.Exists("filesystem.go") {
		t.Error("expected filesystem.go to exist")
	}

	if fs.Exists("nonexistent_file_xyz.go") {
		t.Error("expected nonexistent file to not exist")
	}
}

func TestOSFileSystem_ReadDirSorted(t *testing.T) {
	fs := OSFileSystem{}
	dir := t.TempDir()

	for _, name := range []string{"2.nii.gz", "0.5.nii.gz", "1.nii.gz"} {
		if err := fs.WriteFile(filepath.Join(dir, name), []byte("x"), 0644); err != nil {
			t.Fatalf("WriteFile failed: %v", err)
		}
	}

	entries, err := fs.ReadDir(dir)
	if err != nil {
		t.Fatalf("ReadDir failed: %v", err)
	}
	want := []string{"0.5.nii.gz", "1.nii.gz", "2.nii.gz"}
	if len(entries) != len(want) {
		t.Fatalf("got %d entries, want %d", len(entries), len(want))
	}
	for i, e := range entries {
		if e.Name() != want[i] {
			t.Errorf("entry %d = %q, want %q", i, e.Name(), want[i])
		}
	}
}

func TestOSFileSystem_MkdirTempAndRename(t *testing.T) {
	fs := OSFileSystem{}
	root := t.TempDir()

	tmp, err := fs.MkdirTemp(root, "scratch-*")
	if err != nil {
		t.Fatalf("MkdirTemp failed: %v", err)
	}
	if !IsDir(fs, tmp) {
		t.Fatalf("expected %s to be a directory", tmp)
	}

	src := filepath.Join(tmp, "a.txt")
	dst := filepath.Join(root, "b.txt")
	if err := fs.WriteFile(src, []byte("moved"), 0644); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}
	if err := fs.Rename(src, dst); err != nil {
		t.Fatalf("Rename failed: %v", err)
	}
	if !IsRegularFile(fs, dst) {
		t.Error("expected renamed file to exist")
	}
	if err := fs.RemoveAll(tmp); err != nil {
		t.Fatalf("RemoveAll failed: %v", err)
	}
	if fs.Exists(tmp) {
		t.Error("expected temp dir to be removed")
	}
}

func TestMemoryFileSystem_WriteAndRead(t *testing.T) {
	mfs := NewMemoryFileSystem()

	testData := []byte("hello, world")
	if err := mfs.WriteFile("/test.txt", testData, 0644); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}

	data, err := mfs.ReadFile("/test.txt")
	if err != nil {
		t.Fatalf("ReadFile failed: %v", err)
	}
	if string(data) != string(testData) {
		t.Errorf("expected %q, got %q", testData, data)
	}

	// Returned slices must not alias internal storage
	data[0] = 'X'
	again, _ := mfs.ReadFile("/test.txt")
	if string(again) != string(testData) {
		t.Errorf("internal data modified through returned slice: %q", again)
	}
}

func TestMemoryFileSystem_CreateVisibleOnClose(t *testing.T) {
	mfs := NewMemoryFileSystem()

	w, err := mfs.Create("/created.txt")
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if _, err := w.Write([]byte("created content")); err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	data, err := mfs.ReadFile("/created.txt")
	if err != nil {
		t.Fatalf("ReadFile failed: %v", err)
	}
	if string(data) != "created content" {
		t.Errorf("expected 'created content', got %q", data)
	}
}

func TestMemoryFileSystem_StatAndKinds(t *testing.T) {
	mfs := NewMemoryFileSystem()
	_ = mfs.MkdirAll("/data/z_ratios", 0755)
	_ = mfs.WriteFile("/data/source.nii.gz", []byte("abc"), 0644)

	info, err := mfs.Stat("/data/source.nii.gz")
	if err != nil {
		t.Fatalf("Stat failed: %v", err)
	}
	if info.Size() != 3 || info.IsDir() {
		t.Errorf("unexpected file info: size=%d dir=%v", info.Size(), info.IsDir())
	}

	if !IsDir(mfs, "/data") || !IsDir(mfs, "/data/z_ratios") {
		t.Error("expected MkdirAll to create the directory and its parent")
	}
	if !IsRegularFile(mfs, "/data/source.nii.gz") {
		t.Error("expected regular file")
	}
	if IsRegularFile(mfs, "/data") {
		t.Error("directory reported as regular file")
	}

	if _, err := mfs.Stat("/missing"); !os.IsNotExist(err) {
		t.Errorf("expected not-exist error, got %v", err)
	}
}

func TestMemoryFileSystem_ReadDir(t *testing.T) {
	mfs := NewMemoryFileSystem()
	_ = mfs.MkdirAll("/data/xy_ratios/nested", 0755)
	_ = mfs.WriteFile("/data/xy_ratios/4.nii.gz", nil, 0644)
	_ = mfs.WriteFile("/data/xy_ratios/0.25.nii.gz", nil, 0644)
	_ = mfs.WriteFile("/data/xy_ratios/nested/deep.nii.gz", nil, 0644)

	entries, err := mfs.ReadDir("/data/xy_ratios")
	if err != nil {
		t.Fatalf("ReadDir failed: %v", err)
	}

	var names []string
	for _, e := range entries {
		names = append(names, e.Name())
	}
	want := []string{"0.25.nii.gz", "4.nii.gz", "nested"}
	if len(names) != len(want) {
		t.Fatalf("names = %v, want %v", names, want)
	}
	for i := range want {
		if names[i] != want[i] {
			t.Errorf("names[%d] = %q, want %q", i, names[i], want[i])
		}
	}
	if !entries[2].IsDir() {
		t.Error("expected nested to be a directory entry")
	}

	if _, err := mfs.ReadDir("/nope"); !os.IsNotExist(err) {
		t.Errorf("expected not-exist error, got %v", err)
	}
}

func TestMemoryFileSystem_MkdirTemp(t *testing.T) {
	mfs := NewMemoryFileSystem()

	a, _ := mfs.MkdirTemp("/scratch", "rep-*")
	b, _ := mfs.MkdirTemp("/scratch", "rep-*")
	if a == b {
		t.Fatalf("MkdirTemp returned the same path twice: %s", a)
	}
	if a != "/scratch/rep-1" {
		t.Errorf("first temp dir = %s, want /scratch/rep-1", a)
	}
	if !mfs.Exists(a) || !mfs.Exists(b) {
		t.Error("temp dirs should exist")
	}
}

func TestMemoryFileSystem_RenameDirectory(t *testing.T) {
	mfs := NewMemoryFileSystem()
	_ = mfs.MkdirAll("/x/sub", 0755)
	_ = mfs.WriteFile("/x/sub/f.txt", []byte("f"), 0644)

	if err := mfs.Rename("/x", "/y"); err != nil {
		t.Fatalf("Rename failed: %v", err)
	}
	if mfs.Exists("/x/sub/f.txt") {
		t.Error("old path still present")
	}
	if !IsRegularFile(mfs, "/y/sub/f.txt") {
		t.Error("file not moved with its directory")
	}
	if err := mfs.Rename("/missing", "/z"); !os.IsNotExist(err) {
		t.Errorf("expected not-exist error, got %v", err)
	}
}

func TestMemoryFileSystem_RemoveAll(t *testing.T) {
	mfs := NewMemoryFileSystem()
	_ = mfs.MkdirAll("/data/zip_data/inner", 0755)
	_ = mfs.WriteFile("/data/zip_data/inner/a.nii.gz", nil, 0644)
	_ = mfs.WriteFile("/data/zip_data_other.txt", nil, 0644)

	if err := mfs.RemoveAll("/data/zip_data"); err != nil {
		t.Fatalf("RemoveAll failed: %v", err)
	}
	if mfs.Exists("/data/zip_data/inner/a.nii.gz") || mfs.Exists("/data/zip_data") {
		t.Error("expected subtree to be removed")
	}
	// Sibling sharing a name prefix survives
	if !mfs.Exists("/data/zip_data_other.txt") {
		t.Error("sibling with shared prefix was removed")
	}

	if got := mfs.Files(); len(got) != 1 || got[0] != "/data/zip_data_other.txt" {
		t.Errorf("Files() = %v", got)
	}
}

func TestMemoryFileSystem_RemoveNonExistent(t *testing.T) {
	mfs := NewMemoryFileSystem()
	if err := mfs.Remove("/nonexistent"); err == nil {
		t.Error("expected error removing nonexistent file")
	}
}
