// Package config provides configuration loading from environment variables.
package config

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/sethvargo/go-envconfig"

	"github.com/maauso/overlaymerge/internal/export"
	"github.com/maauso/overlaymerge/internal/media"
	"github.com/maauso/overlaymerge/internal/merge"
	"github.com/maauso/overlaymerge/internal/placement"
	"github.com/maauso/overlaymerge/internal/storage"
)

// Config holds all configuration for the application.
type Config struct {
	// Merge settings
	FrameRate        int           `env:"FRAME_RATE, default=30" json:"frame_rate"`
	OutputDir        string        `env:"OUTPUT_DIR" json:"output_dir,omitempty"`  // Empty selects ~/Documents
	Quality          string        `env:"QUALITY, default=high" json:"quality"`    // "low", "medium", "high"
	Container        string        `env:"CONTAINER, default=mov" json:"container"` // "mov" or "mp4"
	Placement        string        `env:"PLACEMENT, default=stretch" json:"placement"`
	ProgressInterval time.Duration `env:"PROGRESS_INTERVAL, default=500ms" json:"progress_interval"`

	// Engine settings
	FFmpegPath  string `env:"FFMPEG_PATH, default=ffmpeg" json:"ffmpeg_path"`
	FFprobePath string `env:"FFPROBE_PATH, default=ffprobe" json:"ffprobe_path"`

	// Storage settings
	TempDir string `env:"TEMP_DIR, default=/tmp/overlaymerge" json:"temp_dir"`

	// Optional S3 settings
	S3Bucket           string `env:"S3_BUCKET" json:"s3_bucket,omitempty"`
	S3Region           string `env:"S3_REGION" json:"s3_region,omitempty"`
	S3Endpoint         string `env:"S3_ENDPOINT" json:"s3_endpoint,omitempty"`
	S3Prefix           string `env:"S3_PREFIX" json:"s3_prefix,omitempty"`
	AWSAccessKeyID     string `env:"AWS_ACCESS_KEY_ID" json:"-"`     // Masked in JSON
	AWSSecretAccessKey string `env:"AWS_SECRET_ACCESS_KEY" json:"-"` // Masked in JSON

	// Logging settings
	LogFormat string `env:"LOG_FORMAT, default=text" json:"log_format"` // "json" or "text"
	LogLevel  string `env:"LOG_LEVEL, default=info" json:"log_level"`   // "debug", "info", "warn", "error"
}

// S3Enabled returns true if S3 configuration is provided.
func (c *Config) S3Enabled() bool {
	return c.S3Bucket != "" && c.S3Region != ""
}

// Load reads configuration from environment variables using go-envconfig.
// A .env file in the working directory is loaded first when present;
// variables already set in the environment take precedence.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{}
	if err := envconfig.Process(context.Background(), cfg); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}

	return cfg, nil
}

// MergeConfiguration converts the environment settings into a validated
// merge configuration.
func (c *Config) MergeConfiguration() (merge.Configuration, error) {
	quality, err := export.ParseQuality(strings.ToLower(c.Quality))
	if err != nil {
		return merge.Configuration{}, fmt.Errorf("config: QUALITY: %w", err)
	}
	fileType, err := media.ParseFileType(strings.ToLower(c.Container))
	if err != nil {
		return merge.Configuration{}, fmt.Errorf("config: CONTAINER: %w", err)
	}
	p, err := placement.Parse(c.Placement)
	if err != nil {
		return merge.Configuration{}, fmt.Errorf("config: PLACEMENT: %w", err)
	}

	outputDir := c.OutputDir
	if outputDir == "" {
		if outputDir, err = storage.DocumentsDir(); err != nil {
			return merge.Configuration{}, fmt.Errorf("config: OUTPUT_DIR: %w", err)
		}
	}

	mc := merge.Configuration{
		FrameRate:        c.FrameRate,
		OutputDir:        outputDir,
		Quality:          quality,
		FileType:         fileType,
		Placement:        p,
		ProgressInterval: c.ProgressInterval,
	}
	if err := mc.Validate(); err != nil {
		return merge.Configuration{}, fmt.Errorf("config: %w", err)
	}
	return mc, nil
}

// NewLogger creates a structured logger based on the configuration.
// Logs go to stderr so stdout carries only command output. When LogFormat
// is "json", it outputs JSON logs; otherwise human-readable text.
func (c *Config) NewLogger() *slog.Logger {
	return c.newLogger(os.Stderr)
}

func (c *Config) newLogger(w io.Writer) *slog.Logger {
	opts := &slog.HandlerOptions{Level: parseLogLevel(c.LogLevel)}

	var handler slog.Handler
	if strings.ToLower(c.LogFormat) == "json" {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}

	return slog.New(handler)
}

// String returns a string representation of the config with sensitive values masked.
func (c *Config) String() string {
	return fmt.Sprintf(
		"Config{FrameRate: %d, OutputDir: %s, Quality: %s, Container: %s, Placement: %s, ProgressInterval: %s, TempDir: %s, S3Bucket: %s, S3Region: %s, LogFormat: %s, LogLevel: %s}",
		c.FrameRate,
		c.OutputDir,
		c.Quality,
		c.Container,
		c.Placement,
		c.ProgressInterval,
		c.TempDir,
		c.S3Bucket,
		c.S3Region,
		c.LogFormat,
		c.LogLevel,
	)
}

// parseLogLevel converts a string log level to slog.Level.
func parseLogLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
