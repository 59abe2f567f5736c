package media

import (
	"context"
	"errors"
	"fmt"
)

// Static errors for export session creation.
var (
	// ErrUnsupportedPreset is returned for presets the engine cannot encode.
	ErrUnsupportedPreset = errors.New("media: unsupported export preset")
	// ErrUnsupportedFileType is returned for unknown output containers.
	ErrUnsupportedFileType = errors.New("media: unsupported output file type")
	// ErrNoVideoTrack is returned when a composition has nothing to render.
	ErrNoVideoTrack = errors.New("media: composition has no video track")
)

// ExportStatus is the state of an export session.
type ExportStatus int

const (
	// StatusUnknown is the state before Start.
	StatusUnknown ExportStatus = iota
	// StatusWaiting means the export is queued but no frame was encoded yet.
	StatusWaiting
	// StatusExporting means frames are being encoded.
	StatusExporting
	// StatusCompleted means the output file was written successfully.
	StatusCompleted
	// StatusFailed means the export stopped with an error.
	StatusFailed
	// StatusCancelled means the export was stopped by its context.
	StatusCancelled
)

func (s ExportStatus) String() string {
	switch s {
	case StatusWaiting:
		return "waiting"
	case StatusExporting:
		return "exporting"
	case StatusCompleted:
		return "completed"
	case StatusFailed:
		return "failed"
	case StatusCancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// IsActive reports whether the export is queued or running.
func (s ExportStatus) IsActive() bool {
	return s == StatusWaiting || s == StatusExporting
}

// IsTerminal reports whether the export has finished.
func (s ExportStatus) IsTerminal() bool {
	return s == StatusCompleted || s == StatusFailed || s == StatusCancelled
}

// Preset names a bundle of encode parameters.
type Preset string

const (
	PresetLowQuality     Preset = "low"
	PresetMediumQuality  Preset = "medium"
	PresetHighestQuality Preset = "highest"
)

// FileType is the output container format.
type FileType string

const (
	// FileTypeQuickTimeMovie writes a .mov container.
	FileTypeQuickTimeMovie FileType = "mov"
	// FileTypeMPEG4 writes an .mp4 container.
	FileTypeMPEG4 FileType = "mp4"
)

// ParseFileType maps a configuration value to a FileType.
func ParseFileType(s string) (FileType, error) {
	switch FileType(s) {
	case FileTypeQuickTimeMovie, FileTypeMPEG4:
		return FileType(s), nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnsupportedFileType, s)
}

// Extension returns the file extension, including the dot.
func (f FileType) Extension() string {
	return "." + string(f)
}

// ExportOptions parameterizes an export session.
type ExportOptions struct {
	Preset           Preset
	OutputPath       string
	FileType         FileType
	VideoComposition *VideoComposition
}

// ExportSession is one asynchronous encode of a composition.
type ExportSession interface {
	// Start begins the export without blocking. The status is Waiting when
	// Start returns. Cancelling ctx stops the export. Calls after the first
	// are ignored.
	Start(ctx context.Context)
	// Done is closed once the session reaches a terminal status.
	Done() <-chan struct{}
	// Status returns the current status.
	Status() ExportStatus
	// Progress returns the completed fraction in [0, 1].
	Progress() float64
	// Err returns the failure cause once the status is Failed or Cancelled.
	Err() error
	// OutputPath returns the file the session writes.
	OutputPath() string
}

// Exporter creates export sessions.
type Exporter interface {
	// NewExportSession prepares an export of comp. It fails when the engine
	// cannot export the composition with the given options.
	NewExportSession(comp *Composition, opts ExportOptions) (ExportSession, error)
}

// Prober opens source assets.
type Prober interface {
	// Open inspects the media at uri and returns its tracks.
	Open(ctx context.Context, uri string) (Asset, error)
}

// Engine is the complete decode/encode collaborator.
type Engine interface {
	Prober
	Exporter
}
