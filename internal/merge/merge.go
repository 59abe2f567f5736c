// Package merge overlays a still image onto the video track of an asset and
// exports the result to a new file.
package merge

import (
	"context"
	"errors"
	"fmt"
	"image"
	"log/slog"

	"github.com/maauso/overlaymerge/internal/composition"
	"github.com/maauso/overlaymerge/internal/export"
	"github.com/maauso/overlaymerge/internal/geometry"
	"github.com/maauso/overlaymerge/internal/layer"
	"github.com/maauso/overlaymerge/internal/media"
	"github.com/maauso/overlaymerge/internal/storage"
)

// Static errors for merge setup.
var (
	// ErrNoVideoTrack is returned when the asset has no video track.
	ErrNoVideoTrack = errors.New("merge: asset has no video track")
	// ErrNoOverlayImage is returned when no overlay image is given.
	ErrNoOverlayImage = errors.New("merge: overlay image is required")
	// ErrInvalidConfiguration is returned for configurations that fail validation.
	ErrInvalidConfiguration = errors.New("merge: invalid configuration")
)

// OutputLocator hands out unique output paths. storage.OutputDir implements it.
type OutputLocator interface {
	Path(ext string) string
}

// Merger runs overlay merges with a fixed configuration.
type Merger struct {
	cfg        Configuration
	exporter   media.Exporter
	outputs    OutputLocator
	dispatcher export.Dispatcher
	logger     *slog.Logger
}

// Option configures a Merger.
type Option func(*Merger)

// WithOutputs overrides where output paths come from.
func WithOutputs(o OutputLocator) Option {
	return func(m *Merger) {
		m.outputs = o
	}
}

// WithDispatcher sets where completion callbacks run.
func WithDispatcher(d export.Dispatcher) Option {
	return func(m *Merger) {
		m.dispatcher = d
	}
}

// WithLogger sets the logger for the merger.
func WithLogger(logger *slog.Logger) Option {
	return func(m *Merger) {
		m.logger = logger
	}
}

// New validates cfg and returns a Merger exporting through exporter. Unless
// WithOutputs is given, outputs are written to cfg.OutputDir, which is
// created if needed.
func New(cfg Configuration, exporter media.Exporter, opts ...Option) (*Merger, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	m := &Merger{
		cfg:        cfg,
		exporter:   exporter,
		dispatcher: export.Async,
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(m)
	}

	if m.outputs == nil {
		dir, err := storage.NewOutputDir(cfg.OutputDir)
		if err != nil {
			return nil, err
		}
		m.outputs = dir
	}
	return m, nil
}

// Configuration returns the merger's configuration.
func (m *Merger) Configuration() Configuration {
	return m.cfg
}

// OverlayVideo draws overlay over the first video track of asset and
// exports the result, keeping the first audio track if there is one.
//
// Setup problems (no video track, no overlay, source tracks shorter than
// the asset) are returned and no callback fires. Otherwise OverlayVideo
// returns nil and onComplete is called exactly once: synchronously with a
// failed result when the export cannot be created, or after the export
// ends. onProgress receives non-decreasing values in [0, 1] before
// completion. Cancel ctx to stop the export.
func (m *Merger) OverlayVideo(ctx context.Context, asset media.Asset, overlay image.Image, onComplete func(export.Result), onProgress func(float64)) error {
	if asset == nil {
		return ErrNoVideoTrack
	}
	videos := asset.Tracks(media.KindVideo)
	if len(videos) == 0 {
		return fmt.Errorf("%w: %s", ErrNoVideoTrack, asset.URI())
	}
	if overlay == nil {
		return ErrNoOverlayImage
	}

	video := videos[0]
	var audio *media.Track
	if audios := asset.Tracks(media.KindAudio); len(audios) > 0 {
		audio = &audios[0]
	}

	duration := asset.Duration()
	comp, err := composition.Build(duration, video, audio)
	if err != nil {
		return fmt.Errorf("merge: build composition: %w", err)
	}

	portrait := video.PreferredTransform.IsPortrait()
	renderSize := geometry.NaturalRenderSize(video.NaturalSize, portrait)
	overlayRect := m.cfg.Placement.Rect(renderSize)
	stack := layer.Build(overlay, renderSize, overlayRect)

	instruction := composition.NewInstruction(comp.VideoTrack, video.PreferredTransform, duration)
	videoComposition := composition.NewVideoComposition(renderSize, instruction, m.cfg.FrameRate, stack)

	output := m.outputs.Path(m.cfg.FileType.Extension())

	m.logger.Debug("merge prepared",
		slog.String("source", asset.URI()),
		slog.Duration("duration", duration),
		slog.Bool("portrait", portrait),
		slog.String("render_size", renderSize.String()),
		slog.String("overlay_rect", overlayRect.String()),
		slog.Bool("audio", audio != nil),
		slog.String("output", output),
	)

	driver, err := export.NewDriver(m.exporter, export.Request{
		Composition:      comp.Asset,
		VideoComposition: videoComposition,
		OutputPath:       output,
		FileType:         m.cfg.FileType,
		Quality:          m.cfg.Quality,
	},
		export.WithPollInterval(m.cfg.ProgressInterval),
		export.WithDispatcher(m.dispatcher),
		export.WithLogger(m.logger),
	)
	if err != nil {
		m.logger.Error("export unavailable", slog.String("source", asset.URI()), slog.Any("error", err))
		if onComplete != nil {
			onComplete(export.Result{Outcome: export.Failed, Err: err})
		}
		return nil
	}

	driver.Render(ctx, onProgress, onComplete)
	return nil
}
