package xfs

import (
	"fmt"
	"os"
	"path/filepath"
)

// Directory names of the filesystem store.
const (
	ModelsDir  = "models"
	BaseDir    = "base"
	VocoderDir = "vocoder"
	JobsDir    = "jobs"
)

// Layout resolves the directories of a filesystem store rooted at Root.
type Layout struct {
	Root string
}

// NewLayout returns the layout rooted at root, with a leading tilde expanded.
func NewLayout(root string) Layout {
	return Layout{Root: ExpandTilde(root)}
}

// Base is the directory holding text-to-mel models.
func (l Layout) Base() string {
	return filepath.Join(l.Root, ModelsDir, BaseDir)
}

// Vocoder is the directory holding vocoder models.
func (l Layout) Vocoder() string {
	return filepath.Join(l.Root, ModelsDir, VocoderDir)
}

// Jobs is the scratch directory for per-request files.
func (l Layout) Jobs() string {
	return filepath.Join(l.Root, JobsDir)
}

// Init creates the store directories. Existing directories are left untouched.
func (l Layout) Init() error {
	for _, dir := range []string{l.Base(), l.Vocoder(), l.Jobs()} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("xfs: failed to create %s: %w", dir, err)
		}
	}

	return nil
}
