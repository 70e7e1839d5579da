// Package reference fetches the tutorial T2 volume and derives the cropped,
// straightened reference that every scaled volume is resampled from.
package reference

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/zip"

	"github.com/SomeoneInParticular/sct-timings/internal/fsutil"
	"github.com/SomeoneInParticular/sct-timings/internal/httputil"
	"github.com/SomeoneInParticular/sct-timings/internal/monitoring"
	"github.com/SomeoneInParticular/sct-timings/internal/security"
)

// File names used inside the data directory.
const (
	SourceName  = "source.nii.gz"
	archiveName = "source.zip"
	extractName = "zip_data"
)

// ErrNoVolume is returned when the archive holds no .nii.gz file.
var ErrNoVolume = errors.New("archive contains no .nii.gz volume")

// maxEntrySize caps a single decompressed archive entry.
const maxEntrySize = 2 << 30

// Downloader fetches and unpacks the source volume archive.
type Downloader struct {
	Client httputil.HTTPClient
	FS     fsutil.FileSystem
}

// Fetch ensures {dataDir}/source.nii.gz exists, downloading and extracting
// the archive at url when it does not. It returns the source path.
func (d *Downloader) Fetch(ctx context.Context, url, dataDir string) (string, error) {
	source := filepath.Join(dataDir, SourceName)
	if d.FS.Exists(source) {
		monitoring.Logf("source file %s already exists, skipping download", source)
		return source, nil
	}

	if err := d.FS.MkdirAll(dataDir, 0755); err != nil {
		return "", fmt.Errorf("create %s: %w", dataDir, err)
	}

	archive := filepath.Join(dataDir, archiveName)
	monitoring.Logf("downloading %s", url)
	if err := d.download(ctx, url, archive); err != nil {
		_ = d.FS.Remove(archive)
		return "", err
	}
	defer d.FS.Remove(archive)

	extractDir := filepath.Join(dataDir, extractName)
	defer d.FS.RemoveAll(extractDir)
	if err := d.extract(archive, extractDir); err != nil {
		return "", err
	}

	volume, err := d.firstVolume(extractDir)
	if err != nil {
		return "", err
	}
	if err := d.FS.Rename(volume, source); err != nil {
		return "", fmt.Errorf("move %s to %s: %w", volume, source, err)
	}
	monitoring.Logf("source volume ready at %s", source)
	return source, nil
}

func (d *Downloader) download(ctx context.Context, url, dest string) error {
	w, err := d.FS.Create(dest)
	if err != nil {
		return fmt.Errorf("create %s: %w", dest, err)
	}
	n, err := httputil.Fetch(ctx, d.Client, url, w)
	if cerr := w.Close(); err == nil && cerr != nil {
		err = cerr
	}
	if err != nil {
		return fmt.Errorf("download source archive: %w", err)
	}
	monitoring.Debugf("downloaded %d bytes to %s", n, dest)
	return nil
}

func (d *Downloader) extract(archive, dir string) error {
	data, err := d.FS.ReadFile(archive)
	if err != nil {
		return err
	}
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return fmt.Errorf("open archive %s: %w", archive, err)
	}
	if err := d.FS.MkdirAll(dir, 0755); err != nil {
		return err
	}

	for _, f := range zr.File {
		target, err := security.JoinWithinDirectory(dir, f.Name)
		if err != nil {
			return fmt.Errorf("archive entry %q: %w", f.Name, err)
		}
		if f.FileInfo().IsDir() {
			if err := d.FS.MkdirAll(target, 0755); err != nil {
				return err
			}
			continue
		}
		if err := d.FS.MkdirAll(filepath.Dir(target), 0755); err != nil {
			return err
		}
		if err := d.extractFile(f, target); err != nil {
			return fmt.Errorf("extract %s: %w", f.Name, err)
		}
	}
	return nil
}

func (d *Downloader) extractFile(f *zip.File, target string) error {
	rc, err := f.Open()
	if err != nil {
		return err
	}
	defer rc.Close()

	w, err := d.FS.Create(target)
	if err != nil {
		return err
	}
	n, err := io.Copy(w, io.LimitReader(rc, maxEntrySize+1))
	if cerr := w.Close(); err == nil {
		err = cerr
	}
	if err == nil && n > maxEntrySize {
		err = fmt.Errorf("entry larger than %d bytes", int64(maxEntrySize))
	}
	return err
}

// firstVolume walks dir in lexical order and returns the first .nii.gz file.
func (d *Downloader) firstVolume(dir string) (string, error) {
	entries, err := d.FS.ReadDir(dir)
	if err != nil {
		return "", err
	}
	for _, e := range entries {
		p := filepath.Join(dir, e.Name())
		if e.IsDir() {
			found, err := d.firstVolume(p)
			if errors.Is(err, ErrNoVolume) {
				continue
			}
			return found, err
		}
		if strings.HasSuffix(e.Name(), ".nii.gz") {
			return p, nil
		}
	}
	return "", ErrNoVolume
}
