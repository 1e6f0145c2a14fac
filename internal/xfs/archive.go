package xfs

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/mholt/archiver/v3"
)

// TempZip archives src into a fresh temporary directory. A file is stored under its
// base name; the contents of a directory are stored relative to the directory.
// The returned cleanup removes the archive and its directory; it must be called on every path.
func TempZip(src string) (path string, cleanup func() error, err error) {
	info, err := os.Stat(src)
	if err != nil {
		return "", nil, fmt.Errorf("xfs: cannot archive %s: %w", src, err)
	}

	sources := []string{src}
	if info.IsDir() {
		if sources, err = dirSources(src); err != nil {
			return "", nil, err
		}
	}

	dir, err := os.MkdirTemp("", "ttsapi-zip-*")
	if err != nil {
		return "", nil, fmt.Errorf("xfs: failed to create temp dir: %w", err)
	}
	cleanup = func() error {
		return os.RemoveAll(dir)
	}

	path = filepath.Join(dir, filepath.Base(src)+".zip")
	if err := writeZip(sources, path); err != nil {
		_ = cleanup()
		return "", nil, fmt.Errorf("xfs: failed to zip %s: %w", src, err)
	}

	return path, cleanup, nil
}

func dirSources(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("xfs: cannot read %s: %w", dir, err)
	}

	sources := make([]string, 0, len(entries))
	for _, e := range entries {
		sources = append(sources, filepath.Join(dir, e.Name()))
	}
	return sources, nil
}

// writeZip archives sources into path. No sources yields an empty archive.
func writeZip(sources []string, path string) error {
	z := archiver.NewZip()
	if len(sources) > 0 {
		return z.Archive(sources, path)
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	if err := z.Create(f); err != nil {
		return err
	}
	return z.Close()
}
