package merge

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/maauso/overlaymerge/internal/export"
	"github.com/maauso/overlaymerge/internal/media"
	"github.com/maauso/overlaymerge/internal/placement"
	"github.com/maauso/overlaymerge/internal/storage"
)

// Configuration controls how overlays are merged and exported.
type Configuration struct {
	// FrameRate is the output cadence in frames per second.
	FrameRate int `validate:"gte=1,lte=240"`
	// OutputDir receives the exported files.
	OutputDir string         `validate:"required"`
	Quality   export.Quality `validate:"oneof=low medium high"`
	FileType  media.FileType `validate:"oneof=mov mp4"`
	Placement placement.Placement
	// ProgressInterval is how often export progress is sampled.
	ProgressInterval time.Duration `validate:"gt=0"`
}

var validate = validator.New()

// DefaultConfiguration returns 30 fps, high quality QuickTime exports of a
// stretched overlay into the user's Documents directory. When the home
// directory cannot be resolved, exports go to os.TempDir() and a warning
// is logged.
func DefaultConfiguration() Configuration {
	dir, err := storage.DocumentsDir()
	if err != nil {
		dir = os.TempDir()
		slog.Warn("documents directory unavailable, exporting to temp directory",
			slog.String("output_dir", dir),
			slog.Any("error", err),
		)
	}
	return Configuration{
		FrameRate:        30,
		OutputDir:        dir,
		Quality:          export.QualityHigh,
		FileType:         media.FileTypeQuickTimeMovie,
		Placement:        placement.StretchToFit(),
		ProgressInterval: export.DefaultPollInterval,
	}
}

// Validate checks the configuration.
func (c Configuration) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfiguration, err)
	}
	return nil
}
