package security

import (
	"fmt"
	"path/filepath"
	"strings"
)

// JoinWithinDirectory joins an untrusted relative name (for example an
// archive entry) onto dir and rejects results that would land outside dir.
// The check is lexical, so it works before anything is written to disk.
func JoinWithinDirectory(dir, name string) (string, error) {
	if name == "" {
		return "", fmt.Errorf("empty path")
	}
	slashed := filepath.ToSlash(name)
	if filepath.IsAbs(name) || strings.HasPrefix(slashed, "/") || filepath.VolumeName(name) != "" {
		return "", fmt.Errorf("absolute path not allowed: %s", name)
	}

	cleanDir := filepath.Clean(dir)
	joined := filepath.Join(cleanDir, filepath.FromSlash(slashed))

	rel, err := filepath.Rel(cleanDir, joined)
	if err != nil {
		return "", fmt.Errorf("path is outside safe directory: %w", err)
	}
	if rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("path traversal detected: %s attempts to escape %s", name, dir)
	}
	return joined, nil
}
