// Package storage manages the files an export touches: staged intermediates
// in a temporary directory, finished exports in the output directory and,
// optionally, a published copy in S3.
package storage

import (
	"context"
	"errors"
	"io"
)

// ErrPublishNotConfigured is returned when publishing is attempted without
// a configured bucket.
var ErrPublishNotConfigured = errors.New("storage: publishing is not configured")

// Storage stages temporary files and publishes finished exports.
type Storage interface {
	// SaveTemp saves data to a temporary file and returns the file path.
	// The name is used as a hint for the filename; its extension is kept.
	SaveTemp(ctx context.Context, name string, data io.Reader) (path string, err error)

	// CleanupTemp removes the specified temporary files.
	// It continues cleanup even if some files fail to delete.
	CleanupTemp(ctx context.Context, paths []string) error

	// Publish uploads a finished export stored at path and returns its URL.
	// Returns ErrPublishNotConfigured when no bucket is configured.
	Publish(ctx context.Context, path string) (url string, err error)
}
