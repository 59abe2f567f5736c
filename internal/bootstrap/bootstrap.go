// Package bootstrap provides dependency initialization for overlaymerge.
package bootstrap

import (
	"fmt"
	"log/slog"

	"github.com/maauso/overlaymerge/internal/config"
	"github.com/maauso/overlaymerge/internal/export"
	"github.com/maauso/overlaymerge/internal/media"
	"github.com/maauso/overlaymerge/internal/merge"
	"github.com/maauso/overlaymerge/internal/storage"
)

// Dependencies holds all initialized dependencies for the overlay binary.
type Dependencies struct {
	Storage storage.Storage
	Engine  *media.FFmpegEngine
	Merger  *merge.Merger
	// Queue serializes completion callbacks. Close it when done.
	Queue *export.Queue
}

// NewDependencies creates and initializes all dependencies for the application.
func NewDependencies(cfg *config.Config, logger *slog.Logger) (*Dependencies, error) {
	mergeCfg, err := cfg.MergeConfiguration()
	if err != nil {
		return nil, err
	}

	store, temp, err := initStorage(cfg, logger)
	if err != nil {
		return nil, err
	}

	engine := media.NewFFmpegEngine(cfg.FFmpegPath, cfg.FFprobePath, temp, media.WithEngineLogger(logger))

	queue := export.NewQueue()
	merger, err := merge.New(mergeCfg, engine,
		merge.WithDispatcher(queue),
		merge.WithLogger(logger),
	)
	if err != nil {
		queue.Close()
		return nil, fmt.Errorf("create merger: %w", err)
	}

	logger.Info("merger configured",
		slog.Int("frame_rate", mergeCfg.FrameRate),
		slog.String("output_dir", mergeCfg.OutputDir),
		slog.String("quality", string(mergeCfg.Quality)),
		slog.String("container", string(mergeCfg.FileType)),
		slog.String("placement", mergeCfg.Placement.String()),
	)

	return &Dependencies{
		Storage: store,
		Engine:  engine,
		Merger:  merger,
		Queue:   queue,
	}, nil
}

// Close releases the dependencies.
func (d *Dependencies) Close() {
	d.Queue.Close()
}

// initStorage creates the appropriate storage backend based on configuration.
// Both backends stage temporary files locally.
func initStorage(cfg *config.Config, logger *slog.Logger) (storage.Storage, media.TempStore, error) {
	if cfg.S3Enabled() {
		s3Cfg := storage.S3Config{
			Bucket:          cfg.S3Bucket,
			Region:          cfg.S3Region,
			Endpoint:        cfg.S3Endpoint,
			Prefix:          cfg.S3Prefix,
			AccessKeyID:     cfg.AWSAccessKeyID,
			SecretAccessKey: cfg.AWSSecretAccessKey,
		}
		s3Store, err := storage.NewS3Storage(cfg.TempDir, s3Cfg)
		if err != nil {
			return nil, nil, fmt.Errorf("create S3 storage: %w", err)
		}
		logger.Info("S3 publishing configured",
			slog.String("bucket", cfg.S3Bucket),
			slog.String("region", cfg.S3Region),
		)
		return s3Store, s3Store, nil
	}

	localStore, err := storage.NewLocalStorage(cfg.TempDir)
	if err != nil {
		return nil, nil, fmt.Errorf("create local storage: %w", err)
	}
	logger.Info("local storage configured",
		slog.String("temp_dir", cfg.TempDir),
	)
	return localStore, localStore, nil
}
