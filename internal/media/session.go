package media

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"strconv"
	"strings"
	"sync"
	"time"
)

// ffmpegSession runs one export plan as an ffmpeg child process and tracks
// its progress from the -progress key=value stream on stdout.
type ffmpegSession struct {
	engine     *FFmpegEngine
	plan       *exportPlan
	outputPath string
	staged     []string

	startOnce sync.Once
	done      chan struct{}

	mu       sync.RWMutex
	status   ExportStatus
	progress float64
	err      error
}

var _ ExportSession = (*ffmpegSession)(nil)

func (s *ffmpegSession) Start(ctx context.Context) {
	s.startOnce.Do(func() {
		s.setStatus(StatusWaiting)
		go s.run(ctx)
	})
}

func (s *ffmpegSession) Done() <-chan struct{} {
	return s.done
}

func (s *ffmpegSession) Status() ExportStatus {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.status
}

func (s *ffmpegSession) Progress() float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.progress
}

func (s *ffmpegSession) Err() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.err
}

func (s *ffmpegSession) OutputPath() string {
	return s.outputPath
}

func (s *ffmpegSession) run(ctx context.Context) {
	defer close(s.done)
	defer s.engine.cleanup(s.staged)

	logger := s.engine.logger.With("output", s.outputPath)

	// #nosec G204 - ffmpegPath is set by the application, not user input
	cmd := exec.CommandContext(ctx, s.engine.ffmpegPath, s.plan.args...)

	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		s.finish(StatusFailed, fmt.Errorf("ffmpeg stdout: %w", err))
		return
	}

	if err := cmd.Start(); err != nil {
		if ctx.Err() != nil {
			s.finish(StatusCancelled, fmt.Errorf("ffmpeg cancelled: %w", ctx.Err()))
			return
		}
		s.finish(StatusFailed, &FFmpegError{Args: s.plan.args, Stderr: stderr.String(), Err: err})
		return
	}
	s.setStatus(StatusExporting)
	logger.Debug("ffmpeg export started", "duration", s.plan.duration)

	s.readProgress(stdout)

	err = cmd.Wait()
	switch {
	case ctx.Err() != nil:
		logger.Info("export cancelled")
		s.finish(StatusCancelled, fmt.Errorf("ffmpeg cancelled: %w", ctx.Err()))
	case err != nil:
		s.finish(StatusFailed, &FFmpegError{Args: s.plan.args, Stderr: stderr.String(), Err: err})
	default:
		s.advance(1)
		s.finish(StatusCompleted, nil)
	}
}

// readProgress consumes the progress stream until ffmpeg closes stdout.
func (s *ffmpegSession) readProgress(r io.Reader) {
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		key, value, ok := strings.Cut(strings.TrimSpace(scanner.Text()), "=")
		if !ok {
			continue
		}
		switch key {
		case "out_time_us", "out_time_ms":
			// Both keys carry microseconds.
			us, err := strconv.ParseInt(value, 10, 64)
			if err != nil || s.plan.duration <= 0 {
				continue
			}
			s.advance(float64(time.Duration(us)*time.Microsecond) / float64(s.plan.duration))
		case "progress":
			if value == "end" {
				s.advance(1)
			}
		}
	}
	// Keep ffmpeg from blocking on a full pipe if scanning stopped early.
	_, _ = io.Copy(io.Discard, r)
}

// advance raises the progress to p, clamped to [0, 1]. Progress never
// moves backward.
func (s *ffmpegSession) advance(p float64) {
	if p < 0 {
		p = 0
	}
	if p > 1 {
		p = 1
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if p > s.progress {
		s.progress = p
	}
}

func (s *ffmpegSession) setStatus(status ExportStatus) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.status = status
}

func (s *ffmpegSession) finish(status ExportStatus, err error) {
	if err != nil && status == StatusCompleted {
		status = StatusFailed
	}
	if err == nil && status != StatusCompleted {
		err = errors.New("media: export did not complete")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.status = status
	s.err = err
}
