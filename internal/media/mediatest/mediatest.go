// Package mediatest provides scripted media engine doubles for tests.
package mediatest

import (
	"context"
	"sync"
	"time"

	"github.com/maauso/overlaymerge/internal/media"
)

// Session is an ExportSession that walks through scripted progress values.
type Session struct {
	// Steps are the progress values reported while exporting.
	Steps []float64
	// StepDelay is the time spent on each step.
	StepDelay time.Duration
	// Final is the terminal status; zero means media.StatusCompleted.
	Final media.ExportStatus
	// FinalErr is reported when Final is failed.
	FinalErr error
	// Hold, when not nil, keeps the session exporting until it is closed
	// or the context is cancelled.
	Hold chan struct{}
	Path string

	once     sync.Once
	done     chan struct{}
	mu       sync.Mutex
	status   media.ExportStatus
	progress float64
	err      error
	started  bool
}

var _ media.ExportSession = (*Session)(nil)

// Start implements media.ExportSession.
func (s *Session) Start(ctx context.Context) {
	s.once.Do(func() {
		s.mu.Lock()
		s.done = make(chan struct{})
		s.status = media.StatusWaiting
		s.started = true
		s.mu.Unlock()
		go s.run(ctx)
	})
}

func (s *Session) run(ctx context.Context) {
	defer close(s.done)

	s.set(media.StatusExporting, 0, nil)
	for _, p := range s.Steps {
		select {
		case <-ctx.Done():
			s.set(media.StatusCancelled, -1, ctx.Err())
			return
		case <-time.After(s.StepDelay):
		}
		s.set(media.StatusExporting, p, nil)
	}

	if s.Hold != nil {
		select {
		case <-ctx.Done():
			s.set(media.StatusCancelled, -1, ctx.Err())
			return
		case <-s.Hold:
		}
	}

	switch s.Final {
	case media.StatusFailed:
		s.set(media.StatusFailed, -1, s.FinalErr)
	case media.StatusCancelled:
		s.set(media.StatusCancelled, -1, context.Canceled)
	default:
		s.set(media.StatusCompleted, 1, nil)
	}
}

func (s *Session) set(status media.ExportStatus, progress float64, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.status = status
	if progress >= 0 {
		s.progress = progress
	}
	s.err = err
}

// Done implements media.ExportSession. It returns nil before Start.
func (s *Session) Done() <-chan struct{} {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.done
}

// Status implements media.ExportSession.
func (s *Session) Status() media.ExportStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

// Progress implements media.ExportSession.
func (s *Session) Progress() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.progress
}

// Err implements media.ExportSession.
func (s *Session) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// OutputPath implements media.ExportSession.
func (s *Session) OutputPath() string {
	return s.Path
}

// Started reports whether Start was called.
func (s *Session) Started() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.started
}

// Exporter hands out a new Session for every export and records the
// requests it receives.
type Exporter struct {
	// NewSession customizes the sessions; it receives the requested options.
	NewSession func(opts media.ExportOptions) *Session
	// Err, when set, is returned instead of a session.
	Err error

	mu       sync.Mutex
	requests []media.ExportOptions
	sessions []*Session
}

var _ media.Exporter = (*Exporter)(nil)

// NewExportSession implements media.Exporter.
func (e *Exporter) NewExportSession(_ *media.Composition, opts media.ExportOptions) (media.ExportSession, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.requests = append(e.requests, opts)
	if e.Err != nil {
		return nil, e.Err
	}

	var s *Session
	if e.NewSession != nil {
		s = e.NewSession(opts)
	} else {
		s = &Session{Steps: []float64{0.25, 0.5, 0.75}, StepDelay: time.Millisecond}
	}
	if s.Path == "" {
		s.Path = opts.OutputPath
	}
	e.sessions = append(e.sessions, s)
	return s, nil
}

// Requests returns the options of every export requested so far.
func (e *Exporter) Requests() []media.ExportOptions {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]media.ExportOptions(nil), e.requests...)
}

// Sessions returns the sessions handed out so far.
func (e *Exporter) Sessions() []*Session {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]*Session(nil), e.sessions...)
}
