package storage

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
)

// OutputDir is the directory finished exports are written to.
type OutputDir struct {
	dir string
}

// NewOutputDir returns an OutputDir rooted at dir, creating it if needed.
// An empty dir selects DocumentsDir.
func NewOutputDir(dir string) (*OutputDir, error) {
	if dir == "" {
		d, err := DocumentsDir()
		if err != nil {
			return nil, err
		}
		dir = d
	}

	if err := os.MkdirAll(dir, 0750); err != nil {
		return nil, fmt.Errorf("create output directory: %w", err)
	}

	return &OutputDir{dir: dir}, nil
}

// Dir returns the directory path.
func (o *OutputDir) Dir() string {
	return o.dir
}

// Path returns a fresh output location named export<uuid><ext>.
// ext includes the leading dot.
func (o *OutputDir) Path(ext string) string {
	return filepath.Join(o.dir, "export"+uuid.NewString()+ext)
}

// DocumentsDir returns the user's Documents directory.
func DocumentsDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home directory: %w", err)
	}
	return filepath.Join(home, "Documents"), nil
}
