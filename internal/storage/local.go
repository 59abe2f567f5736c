package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// defaultStagingDir is the staging directory name used under os.TempDir().
const defaultStagingDir = "overlaymerge"

// Compile-time check.
var _ Storage = (*LocalStorage)(nil)

// LocalStorage stages the intermediates of an export, such as the overlay
// PNGs ffmpeg reads, in a directory on local disk. It cannot publish;
// S3Storage adds that.
type LocalStorage struct {
	tempDir string
}

// NewLocalStorage stages files under tempDir, creating it when missing.
// An empty tempDir selects os.TempDir()/overlaymerge.
func NewLocalStorage(tempDir string) (*LocalStorage, error) {
	if tempDir == "" {
		tempDir = filepath.Join(os.TempDir(), defaultStagingDir)
	}
	if err := os.MkdirAll(tempDir, 0750); err != nil {
		return nil, fmt.Errorf("storage: prepare staging directory %s: %w", tempDir, err)
	}
	return &LocalStorage{tempDir: tempDir}, nil
}

// TempDir returns the staging directory.
func (s *LocalStorage) TempDir() string {
	return s.tempDir
}

// SaveTemp writes data to a new staging file named after name and returns
// its path. A random suffix goes before the extension, so "layer-0.png"
// becomes "layer-0_<random>.png"; ffmpeg picks its image demuxer from the
// extension.
func (s *LocalStorage) SaveTemp(ctx context.Context, name string, data io.Reader) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", fmt.Errorf("storage: stage %s: %w", name, err)
	}

	ext := filepath.Ext(name)
	pattern := strings.TrimSuffix(name, ext) + "_*" + ext
	f, err := os.CreateTemp(s.tempDir, pattern)
	if err != nil {
		return "", fmt.Errorf("storage: stage %s: %w", name, err)
	}
	staged := f.Name()

	_, copyErr := io.Copy(f, data)
	closeErr := f.Close()
	if err := errors.Join(copyErr, closeErr); err != nil {
		_ = os.Remove(staged)
		return "", fmt.Errorf("storage: write staged %s: %w", name, err)
	}
	return staged, nil
}

// CleanupTemp removes staged files. Files that are already gone are
// skipped; the first other failure is returned after every path was tried.
func (s *LocalStorage) CleanupTemp(ctx context.Context, paths []string) error {
	var firstErr error
	for _, p := range paths {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("storage: cleanup interrupted: %w", err)
		}
		err := os.Remove(p)
		if err == nil || errors.Is(err, fs.ErrNotExist) || firstErr != nil {
			continue
		}
		firstErr = fmt.Errorf("storage: remove staged %s: %w", p, err)
	}
	return firstErr
}

// Publish always fails with ErrPublishNotConfigured.
func (s *LocalStorage) Publish(context.Context, string) (string, error) {
	return "", ErrPublishNotConfigured
}
