package service

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/ekisa-team/ttsapi/internal/xfs"
)

// ModelType selects a subfolder of the model store.
type ModelType string

const (
	ModelTypeBase    ModelType = "base"
	ModelTypeVocoder ModelType = "vocoder"
)

// ModelStore manages model files on disk.
type ModelStore struct {
	layout xfs.Layout
}

// NewModelStore creates a store over layout. The layout must already be initialized.
func NewModelStore(layout xfs.Layout) *ModelStore {
	return &ModelStore{layout: layout}
}

// Dir returns the directory holding models of type t.
func (s *ModelStore) Dir(t ModelType) (string, error) {
	switch t {
	case ModelTypeBase:
		return s.layout.Base(), nil
	case ModelTypeVocoder:
		return s.layout.Vocoder(), nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupportedType, t)
	}
}

// Save writes r to filename under the directory of t, replacing any existing file.
func (s *ModelStore) Save(t ModelType, filename string, r io.Reader) (string, error) {
	dir, err := s.Dir(t)
	if err != nil {
		return "", err
	}
	if err := ValidateFilename(filename); err != nil {
		return "", err
	}

	tmp, err := os.CreateTemp(dir, ".upload-*")
	if err != nil {
		return "", fmt.Errorf("create upload file: %w", err)
	}
	defer func() {
		if _, err := os.Stat(tmp.Name()); err == nil {
			_ = os.Remove(tmp.Name())
		}
	}()

	if _, err := io.Copy(tmp, r); err != nil {
		_ = tmp.Close()
		return "", fmt.Errorf("write upload file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("close upload file: %w", err)
	}

	path := filepath.Join(dir, filename)
	if err := os.Rename(tmp.Name(), path); err != nil {
		return "", fmt.Errorf("store %s: %w", filename, err)
	}

	slog.Info("Model stored", "type", t, "filename", filename)
	return path, nil
}

// List returns the entries stored under the directory of t, sorted by name.
// Leftover partial uploads are skipped.
func (s *ModelStore) List(t ModelType) ([]string, error) {
	dir, err := s.Dir(t)
	if err != nil {
		return nil, err
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("list %s models: %w", t, err)
	}

	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if strings.HasPrefix(e.Name(), ".upload-") {
			continue
		}
		names = append(names, e.Name())
	}
	sort.Strings(names)
	return names, nil
}

// Path returns the location of an existing stored model.
func (s *ModelStore) Path(t ModelType, filename string) (string, error) {
	dir, err := s.Dir(t)
	if err != nil {
		return "", err
	}
	if err := ValidateFilename(filename); err != nil {
		return "", err
	}

	path := filepath.Join(dir, filename)
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", fmt.Errorf("%w: %s/%s", ErrModelNotFound, t, filename)
		}
		return "", fmt.Errorf("stat %s: %w", filename, err)
	}
	return path, nil
}

// Delete removes a stored model file or directory.
func (s *ModelStore) Delete(t ModelType, filename string) error {
	path, err := s.Path(t, filename)
	if err != nil {
		return err
	}

	if err := os.RemoveAll(path); err != nil {
		return fmt.Errorf("delete %s: %w", filename, err)
	}

	slog.Info("Model deleted", "type", t, "filename", filename)
	return nil
}

// Archive zips a stored model into a temporary file. The caller must run cleanup
// once the archive has been consumed.
func (s *ModelStore) Archive(t ModelType, filename string) (path string, cleanup func(), err error) {
	src, err := s.Path(t, filename)
	if err != nil {
		return "", nil, err
	}

	path, remove, err := xfs.TempZip(src)
	if err != nil {
		return "", nil, err
	}

	cleanup = func() {
		if err := remove(); err != nil {
			slog.Warn("Failed to remove archive", "path", path, "error", err)
		}
	}
	return path, cleanup, nil
}

// ValidateFilename rejects names that would escape the store directory.
func ValidateFilename(name string) error {
	if name == "" || name == "." || name == ".." ||
		strings.ContainsAny(name, `/\`) || filepath.Base(name) != name {
		return fmt.Errorf("%w: %q", ErrInvalidFilename, name)
	}
	return nil
}
