package export

import (
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Status is the lifecycle state of an export handle.
type Status string

const (
	// StatusIdle indicates the export has been prepared but not started.
	StatusIdle Status = "IDLE"
	// StatusExporting indicates the engine is encoding.
	StatusExporting Status = "EXPORTING"
	// StatusCompleted indicates the output file was written.
	StatusCompleted Status = "COMPLETED"
	// StatusFailed indicates the export stopped with an error.
	StatusFailed Status = "FAILED"
	// StatusCancelled indicates the caller's context ended the export.
	StatusCancelled Status = "CANCELLED"
)

// ErrInvalidTransition is returned when an invalid state transition is attempted.
var ErrInvalidTransition = errors.New("export: invalid state transition")

var validTransitions = map[Status][]Status{
	StatusIdle:      {StatusExporting, StatusFailed, StatusCancelled},
	StatusExporting: {StatusCompleted, StatusFailed, StatusCancelled},
	StatusCompleted: {},
	StatusFailed:    {},
	StatusCancelled: {},
}

func canTransition(from, to Status) bool {
	for _, s := range validTransitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// Handle tracks one export from preparation to its terminal state.
// It is safe for concurrent use; read fields through Snapshot.
type Handle struct {
	mu sync.RWMutex

	ID       string
	Status   Status
	Progress float64
	// Location is the output file, set once the export completed.
	Location string
	Error    string

	CreatedAt   time.Time
	UpdatedAt   time.Time
	StartedAt   time.Time
	CompletedAt time.Time
}

// NewHandle returns an idle handle with a fresh ID.
func NewHandle() *Handle {
	now := time.Now()
	return &Handle{
		ID:        uuid.NewString(),
		Status:    StatusIdle,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// TransitionTo changes the status, stamping start and completion times.
// Returns ErrInvalidTransition if the transition is not allowed.
func (h *Handle) TransitionTo(status Status) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.transitionLocked(status)
}

// transitionLocked must be called with h.mu held.
func (h *Handle) transitionLocked(status Status) error {
	if !canTransition(h.Status, status) {
		return ErrInvalidTransition
	}

	h.Status = status
	h.UpdatedAt = time.Now()

	switch status {
	case StatusExporting:
		h.StartedAt = h.UpdatedAt
	case StatusCompleted, StatusFailed, StatusCancelled:
		h.CompletedAt = h.UpdatedAt
	}
	return nil
}

// Complete records the output location and moves to COMPLETED.
func (h *Handle) Complete(location string) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if err := h.transitionLocked(StatusCompleted); err != nil {
		return err
	}
	h.Location = location
	h.Progress = 1
	return nil
}

// Fail records the error and moves to FAILED.
func (h *Handle) Fail(err error) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if terr := h.transitionLocked(StatusFailed); terr != nil {
		return terr
	}
	if err != nil {
		h.Error = err.Error()
	}
	return nil
}

// UpdateProgress clamps p to [0, 1] and stores it unless it would move
// progress backward. It returns the stored value.
func (h *Handle) UpdateProgress(p float64) float64 {
	if p < 0 {
		p = 0
	}
	if p > 1 {
		p = 1
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if p > h.Progress {
		h.Progress = p
		h.UpdatedAt = time.Now()
	}
	return h.Progress
}

// GetStatus returns the current status (thread-safe).
func (h *Handle) GetStatus() Status {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.Status
}

// IsTerminal reports whether the export has finished.
func (h *Handle) IsTerminal() bool {
	switch h.GetStatus() {
	case StatusCompleted, StatusFailed, StatusCancelled:
		return true
	}
	return false
}

// Snapshot returns a copy of the handle for safe reads.
func (h *Handle) Snapshot() *Handle {
	h.mu.RLock()
	defer h.mu.RUnlock()

	return &Handle{
		ID:          h.ID,
		Status:      h.Status,
		Progress:    h.Progress,
		Location:    h.Location,
		Error:       h.Error,
		CreatedAt:   h.CreatedAt,
		UpdatedAt:   h.UpdatedAt,
		StartedAt:   h.StartedAt,
		CompletedAt: h.CompletedAt,
	}
}
