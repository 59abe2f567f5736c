package media

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image/png"
	"io"
	"log/slog"

	"github.com/maauso/overlaymerge/internal/layer"
)

// ErrTempStoreRequired is returned when overlay images must be staged but
// the engine has no temporary store.
var ErrTempStoreRequired = errors.New("media: temporary store required for image layers")

// TempStore stages intermediate files for ffmpeg.
// storage.LocalStorage satisfies it.
type TempStore interface {
	SaveTemp(ctx context.Context, name string, data io.Reader) (string, error)
	CleanupTemp(ctx context.Context, paths []string) error
}

// Compile-time check.
var _ Engine = (*FFmpegEngine)(nil)

// FFmpegEngine implements Engine using the ffmpeg and ffprobe CLIs.
type FFmpegEngine struct {
	// ffmpegPath is the path to the ffmpeg binary. Defaults to "ffmpeg".
	ffmpegPath string
	// ffprobePath is the path to the ffprobe binary. Defaults to "ffprobe".
	ffprobePath string
	temp        TempStore
	logger      *slog.Logger
}

// EngineOption configures an FFmpegEngine.
type EngineOption func(*FFmpegEngine)

// WithEngineLogger sets the logger for export sessions.
func WithEngineLogger(logger *slog.Logger) EngineOption {
	return func(e *FFmpegEngine) {
		e.logger = logger
	}
}

// NewFFmpegEngine creates a new FFmpegEngine. Empty paths default to the
// binaries found via PATH. temp stages overlay images during exports.
func NewFFmpegEngine(ffmpegPath, ffprobePath string, temp TempStore, opts ...EngineOption) *FFmpegEngine {
	if ffmpegPath == "" {
		ffmpegPath = "ffmpeg"
	}
	if ffprobePath == "" {
		ffprobePath = "ffprobe"
	}
	e := &FFmpegEngine{
		ffmpegPath:  ffmpegPath,
		ffprobePath: ffprobePath,
		temp:        temp,
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// NewExportSession validates the export and stages every image layer as a
// PNG file. The returned session owns the staged files and removes them
// when it finishes.
func (e *FFmpegEngine) NewExportSession(comp *Composition, opts ExportOptions) (ExportSession, error) {
	if comp == nil || len(comp.Tracks(KindVideo)) == 0 {
		return nil, ErrNoVideoTrack
	}
	enc, ok := encoderPresets[opts.Preset]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedPreset, opts.Preset)
	}
	if _, err := ParseFileType(string(opts.FileType)); err != nil {
		return nil, err
	}
	if opts.OutputPath == "" {
		return nil, errors.New("media: output path is required")
	}
	if opts.VideoComposition == nil {
		return nil, fmt.Errorf("%w: missing video composition", ErrInvalidVideoComposition)
	}
	if err := opts.VideoComposition.Validate(); err != nil {
		return nil, err
	}

	images, staged, err := e.stageImages(opts.VideoComposition.Layers)
	if err != nil {
		return nil, err
	}

	plan, err := buildExportPlan(comp, opts, images, enc)
	if err != nil {
		e.cleanup(staged)
		return nil, err
	}

	return &ffmpegSession{
		engine:     e,
		plan:       plan,
		outputPath: opts.OutputPath,
		staged:     staged,
		done:       make(chan struct{}),
		status:     StatusUnknown,
	}, nil
}

// stageImages encodes the contents of every image layer to a temporary PNG.
func (e *FFmpegEngine) stageImages(stack *layer.Stack) (map[*layer.Layer]string, []string, error) {
	images := make(map[*layer.Layer]string)
	var staged []string

	for i, l := range stack.ImageLayers() {
		if l.Contents == nil {
			continue
		}
		if e.temp == nil {
			return nil, nil, ErrTempStoreRequired
		}

		var buf bytes.Buffer
		if err := png.Encode(&buf, l.Contents); err != nil {
			e.cleanup(staged)
			return nil, nil, fmt.Errorf("encode layer %q: %w", l.Name, err)
		}
		path, err := e.temp.SaveTemp(context.Background(), fmt.Sprintf("layer-%d.png", i), &buf)
		if err != nil {
			e.cleanup(staged)
			return nil, nil, fmt.Errorf("stage layer %q: %w", l.Name, err)
		}
		images[l] = path
		staged = append(staged, path)
	}

	return images, staged, nil
}

func (e *FFmpegEngine) cleanup(paths []string) {
	if len(paths) == 0 || e.temp == nil {
		return
	}
	if err := e.temp.CleanupTemp(context.Background(), paths); err != nil {
		e.logger.Warn("failed to clean up staged files", "error", err, "count", len(paths))
	}
}

// FFmpegError represents an error from running ffmpeg, including the stderr output.
type FFmpegError struct {
	Args   []string
	Stderr string
	Err    error
}

func (e *FFmpegError) Error() string {
	return fmt.Sprintf("ffmpeg error: %v\nargs: %v\nstderr: %s", e.Err, e.Args, e.Stderr)
}

func (e *FFmpegError) Unwrap() error {
	return e.Err
}
