// Package export drives an engine export session to completion. It maps
// the quality tier onto an engine preset, polls the session for progress
// on a background goroutine and delivers exactly one Result.
package export

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/maauso/overlaymerge/internal/media"
)

// DefaultPollInterval is how often progress is sampled during an export.
const DefaultPollInterval = 500 * time.Millisecond

// Static errors for driver construction.
var (
	// ErrUnsupportedPreset is returned when the quality tier maps to no preset.
	ErrUnsupportedPreset = errors.New("export: unsupported quality preset")
	// ErrSessionUnavailable is returned when the engine refuses to create a session.
	ErrSessionUnavailable = errors.New("export: export session unavailable")
)

// Quality is the requested output quality tier.
type Quality string

const (
	QualityLow    Quality = "low"
	QualityMedium Quality = "medium"
	QualityHigh   Quality = "high"
)

// ParseQuality maps a configuration value to a Quality.
func ParseQuality(s string) (Quality, error) {
	q := Quality(s)
	if _, ok := q.Preset(); !ok {
		return "", fmt.Errorf("%w: %q", ErrUnsupportedPreset, s)
	}
	return q, nil
}

// Preset returns the engine preset for the tier.
func (q Quality) Preset() (media.Preset, bool) {
	switch q {
	case QualityLow:
		return media.PresetLowQuality, true
	case QualityMedium:
		return media.PresetMediumQuality, true
	case QualityHigh:
		return media.PresetHighestQuality, true
	}
	return "", false
}

// Outcome is how an export ended.
type Outcome int

const (
	// Succeeded means the output file was written to Location.
	Succeeded Outcome = iota
	// Failed means the export stopped with Err.
	Failed
	// Cancelled means the caller's context stopped the export.
	Cancelled
)

func (o Outcome) String() string {
	switch o {
	case Succeeded:
		return "succeeded"
	case Failed:
		return "failed"
	case Cancelled:
		return "cancelled"
	default:
		return fmt.Sprintf("outcome(%d)", int(o))
	}
}

// Result is delivered once per export.
type Result struct {
	Outcome Outcome
	// Location is the output file; empty unless Outcome is Succeeded.
	Location string
	Err      error
}

// Request describes one export.
type Request struct {
	Composition      *media.Composition
	VideoComposition *media.VideoComposition
	OutputPath       string
	FileType         media.FileType
	Quality          Quality
}

// Driver runs one export session.
type Driver struct {
	session    media.ExportSession
	handle     *Handle
	interval   time.Duration
	dispatcher Dispatcher
	logger     *slog.Logger
}

// Option configures a Driver.
type Option func(*Driver)

// WithPollInterval sets how often progress is sampled. Non-positive
// values keep the default.
func WithPollInterval(d time.Duration) Option {
	return func(dr *Driver) {
		if d > 0 {
			dr.interval = d
		}
	}
}

// WithDispatcher sets where the completion callback runs.
func WithDispatcher(d Dispatcher) Option {
	return func(dr *Driver) {
		if d != nil {
			dr.dispatcher = d
		}
	}
}

// WithLogger sets the logger for the driver.
func WithLogger(logger *slog.Logger) Option {
	return func(dr *Driver) {
		if logger != nil {
			dr.logger = logger
		}
	}
}

// NewDriver maps the request onto an engine session. It fails with
// ErrUnsupportedPreset or ErrSessionUnavailable.
func NewDriver(exporter media.Exporter, req Request, opts ...Option) (*Driver, error) {
	preset, ok := req.Quality.Preset()
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedPreset, req.Quality)
	}

	session, err := exporter.NewExportSession(req.Composition, media.ExportOptions{
		Preset:           preset,
		OutputPath:       req.OutputPath,
		FileType:         req.FileType,
		VideoComposition: req.VideoComposition,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSessionUnavailable, err)
	}

	d := &Driver{
		session:    session,
		handle:     NewHandle(),
		interval:   DefaultPollInterval,
		dispatcher: Async,
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d, nil
}

// Handle returns a snapshot of the export's state.
func (d *Driver) Handle() *Handle {
	return d.handle.Snapshot()
}

// Render starts the export and returns immediately. onProgress is called
// from the polling goroutine with non-decreasing values in [0, 1];
// onComplete is called exactly once through the dispatcher, after the
// last progress report. Either callback may be nil. Cancel ctx to stop
// the export.
func (d *Driver) Render(ctx context.Context, onProgress func(float64), onComplete func(Result)) {
	if err := d.handle.TransitionTo(StatusExporting); err != nil {
		d.logger.Warn("export already started", slog.String("export_id", d.handle.ID))
		return
	}
	d.session.Start(ctx)
	go d.poll(ctx, onProgress, onComplete)
}

func (d *Driver) poll(ctx context.Context, onProgress func(float64), onComplete func(Result)) {
	logger := d.logger.With(slog.String("export_id", d.handle.ID), slog.String("output", d.session.OutputPath()))
	logger.Info("export started", slog.Duration("poll_interval", d.interval))

	report := func() {
		p := d.handle.UpdateProgress(d.session.Progress())
		if onProgress != nil {
			onProgress(p)
		}
	}

	for d.session.Status().IsActive() {
		report()
		select {
		case <-d.session.Done():
		case <-time.After(d.interval):
		}
	}

	if !d.session.Status().IsTerminal() {
		select {
		case <-d.session.Done():
		case <-ctx.Done():
		}
	}

	result := d.result(ctx)
	if result.Outcome == Succeeded {
		report()
	}

	switch result.Outcome {
	case Succeeded:
		_ = d.handle.Complete(result.Location)
		logger.Info("export completed", slog.Float64("progress", d.handle.Snapshot().Progress))
	case Cancelled:
		_ = d.handle.TransitionTo(StatusCancelled)
		logger.Info("export cancelled")
	default:
		_ = d.handle.Fail(result.Err)
		logger.Error("export failed", slog.Any("error", result.Err))
	}

	if onComplete != nil {
		d.dispatcher.Dispatch(func() { onComplete(result) })
	}
}

func (d *Driver) result(ctx context.Context) Result {
	switch d.session.Status() {
	case media.StatusCompleted:
		return Result{Outcome: Succeeded, Location: d.session.OutputPath()}
	case media.StatusCancelled:
		err := d.session.Err()
		if err == nil {
			err = context.Canceled
		}
		return Result{Outcome: Cancelled, Err: err}
	case media.StatusFailed:
		err := d.session.Err()
		if err == nil {
			err = errors.New("export: session failed without an error")
		}
		return Result{Outcome: Failed, Err: err}
	}

	if ctx.Err() != nil {
		return Result{Outcome: Cancelled, Err: ctx.Err()}
	}
	return Result{Outcome: Failed, Err: fmt.Errorf("export: session ended in status %s", d.session.Status())}
}
