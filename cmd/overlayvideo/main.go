// Package main provides the overlayvideo command, which draws a still image
// over a video and exports the result.
//
// Usage:
//
//	overlayvideo <video> <overlay-image>
//
// Settings come from the environment (see internal/config). The exported
// file path is printed on stdout, followed by its URL when S3 publishing
// is configured.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/maauso/overlaymerge/internal/bootstrap"
	"github.com/maauso/overlaymerge/internal/config"
	"github.com/maauso/overlaymerge/internal/export"
	"github.com/maauso/overlaymerge/internal/overlay"
)

var errUsage = errors.New("usage: overlayvideo <video> <overlay-image>")

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	if len(args) != 2 {
		return errUsage
	}
	videoPath, imagePath := args[0], args[1]

	// Load configuration from environment
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger := cfg.NewLogger()
	slog.SetDefault(logger)
	logger.Debug("configuration loaded", slog.String("config", cfg.String()))

	deps, err := bootstrap.NewDependencies(cfg, logger)
	if err != nil {
		return fmt.Errorf("initialize dependencies: %w", err)
	}
	defer deps.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	img, format, err := overlay.Load(imagePath)
	if err != nil {
		return err
	}
	logger.Info("overlay loaded",
		slog.String("path", imagePath),
		slog.String("format", format),
		slog.Int("width", img.Bounds().Dx()),
		slog.Int("height", img.Bounds().Dy()),
	)

	asset, err := deps.Engine.Open(ctx, videoPath)
	if err != nil {
		return fmt.Errorf("open video: %w", err)
	}

	done := make(chan export.Result, 1)
	lastPercent := -1
	onProgress := func(p float64) {
		if percent := int(p * 100); percent != lastPercent {
			lastPercent = percent
			logger.Info("export progress", slog.Int("percent", percent))
		}
	}

	if err := deps.Merger.OverlayVideo(ctx, asset, img, func(r export.Result) { done <- r }, onProgress); err != nil {
		return err
	}

	res := <-done
	switch res.Outcome {
	case export.Succeeded:
	case export.Cancelled:
		return fmt.Errorf("export cancelled: %w", res.Err)
	default:
		return fmt.Errorf("export failed: %w", res.Err)
	}

	logger.Info("export finished", slog.String("location", res.Location))
	fmt.Println(res.Location)

	if !cfg.S3Enabled() {
		return nil
	}
	url, err := deps.Storage.Publish(ctx, res.Location)
	if err != nil {
		return fmt.Errorf("publish export: %w", err)
	}
	logger.Info("export published", slog.String("url", url))
	fmt.Println(url)
	return nil
}
