package merge

import (
	"bytes"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/maauso/overlaymerge/internal/export"
	"github.com/maauso/overlaymerge/internal/media"
	"github.com/maauso/overlaymerge/internal/media/mediatest"
	"github.com/maauso/overlaymerge/internal/placement"
)

func TestDefaultConfiguration(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	cfg := DefaultConfiguration()
	assert.Equal(t, 30, cfg.FrameRate)
	assert.Equal(t, filepath.Join(home, "Documents"), cfg.OutputDir)
	assert.Equal(t, export.QualityHigh, cfg.Quality)
	assert.Equal(t, media.FileTypeQuickTimeMovie, cfg.FileType)
	assert.Equal(t, placement.KindStretchToFit, cfg.Placement.Kind())
	assert.Equal(t, 500*time.Millisecond, cfg.ProgressInterval)
	assert.NoError(t, cfg.Validate())
}

func TestDefaultConfiguration_NoHomeDirectory(t *testing.T) {
	t.Setenv("HOME", "")

	var buf bytes.Buffer
	prev := slog.Default()
	slog.SetDefault(slog.New(slog.NewTextHandler(&buf, nil)))
	t.Cleanup(func() { slog.SetDefault(prev) })

	cfg := DefaultConfiguration()
	assert.Equal(t, os.TempDir(), cfg.OutputDir)
	assert.Contains(t, buf.String(), "documents directory unavailable")
	assert.Contains(t, buf.String(), "output_dir="+os.TempDir())
}

func TestConfiguration_Validate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Configuration)
	}{
		{"zero frame rate", func(c *Configuration) { c.FrameRate = 0 }},
		{"absurd frame rate", func(c *Configuration) { c.FrameRate = 1000 }},
		{"missing output dir", func(c *Configuration) { c.OutputDir = "" }},
		{"unknown quality", func(c *Configuration) { c.Quality = "ultra" }},
		{"unknown container", func(c *Configuration) { c.FileType = "avi" }},
		{"zero interval", func(c *Configuration) { c.ProgressInterval = 0 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfiguration()
			tt.mutate(&cfg)
			assert.ErrorIs(t, cfg.Validate(), ErrInvalidConfiguration)
		})
	}
}

func TestNew_InvalidConfiguration(t *testing.T) {
	cfg := DefaultConfiguration()
	cfg.FrameRate = 0

	_, err := New(cfg, &mediatest.Exporter{})
	assert.ErrorIs(t, err, ErrInvalidConfiguration)
}

func TestNew_CreatesOutputDir(t *testing.T) {
	cfg := DefaultConfiguration()
	cfg.OutputDir = filepath.Join(t.TempDir(), "exports")

	m, err := New(cfg, &mediatest.Exporter{})
	require.NoError(t, err)
	assert.DirExists(t, cfg.OutputDir)
	assert.Equal(t, cfg, m.Configuration())
}
