package export

import (
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewHandle(t *testing.T) {
	h := NewHandle()

	assert.NotEmpty(t, h.ID)
	assert.Equal(t, StatusIdle, h.Status)
	assert.False(t, h.CreatedAt.IsZero())
	assert.NotEqual(t, h.ID, NewHandle().ID)
}

func TestHandle_Transitions(t *testing.T) {
	tests := []struct {
		name    string
		from    Status
		to      Status
		wantErr bool
	}{
		{"IDLE to EXPORTING", StatusIdle, StatusExporting, false},
		{"IDLE to FAILED", StatusIdle, StatusFailed, false},
		{"IDLE to CANCELLED", StatusIdle, StatusCancelled, false},
		{"EXPORTING to COMPLETED", StatusExporting, StatusCompleted, false},
		{"EXPORTING to FAILED", StatusExporting, StatusFailed, false},
		{"EXPORTING to CANCELLED", StatusExporting, StatusCancelled, false},
		{"IDLE to COMPLETED", StatusIdle, StatusCompleted, true},
		{"EXPORTING to IDLE", StatusExporting, StatusIdle, true},
		{"COMPLETED to EXPORTING", StatusCompleted, StatusExporting, true},
		{"FAILED to COMPLETED", StatusFailed, StatusCompleted, true},
		{"CANCELLED to EXPORTING", StatusCancelled, StatusExporting, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewHandle()
			h.Status = tt.from

			err := h.TransitionTo(tt.to)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidTransition)
				assert.Equal(t, tt.from, h.GetStatus())
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.to, h.GetStatus())
		})
	}
}

func TestHandle_Lifecycle(t *testing.T) {
	h := NewHandle()
	require.NoError(t, h.TransitionTo(StatusExporting))
	assert.False(t, h.StartedAt.IsZero())
	assert.False(t, h.IsTerminal())

	require.NoError(t, h.Complete("/out/export.mov"))
	snap := h.Snapshot()
	assert.Equal(t, StatusCompleted, snap.Status)
	assert.Equal(t, "/out/export.mov", snap.Location)
	assert.Equal(t, 1.0, snap.Progress)
	assert.False(t, snap.CompletedAt.IsZero())
	assert.True(t, h.IsTerminal())

	assert.ErrorIs(t, h.Fail(errors.New("late")), ErrInvalidTransition)
	assert.Empty(t, h.Snapshot().Error)
}

func TestHandle_Fail(t *testing.T) {
	h := NewHandle()
	require.NoError(t, h.Fail(errors.New("no session")))

	snap := h.Snapshot()
	assert.Equal(t, StatusFailed, snap.Status)
	assert.Equal(t, "no session", snap.Error)
}

func TestHandle_UpdateProgress(t *testing.T) {
	h := NewHandle()

	assert.Equal(t, 0.0, h.UpdateProgress(-0.5))
	assert.Equal(t, 0.4, h.UpdateProgress(0.4))
	assert.Equal(t, 0.4, h.UpdateProgress(0.2), "progress never moves backward")
	assert.Equal(t, 1.0, h.UpdateProgress(3))
	assert.Equal(t, 1.0, h.Snapshot().Progress)
}

func TestHandle_SnapshotIsIndependent(t *testing.T) {
	h := NewHandle()
	snap := h.Snapshot()
	snap.Status = StatusFailed

	assert.Equal(t, StatusIdle, h.GetStatus())
}

func TestHandle_TerminalSnapshotsAreConsistent(t *testing.T) {
	for i := 0; i < 200; i++ {
		completed, failed := NewHandle(), NewHandle()
		require.NoError(t, completed.TransitionTo(StatusExporting))
		require.NoError(t, failed.TransitionTo(StatusExporting))

		var wg sync.WaitGroup
		wg.Add(2)
		go func() {
			defer wg.Done()
			_ = completed.Complete("/out/export.mov")
		}()
		go func() {
			defer wg.Done()
			_ = failed.Fail(errors.New("encoder crashed"))
		}()

		for j := 0; j < 50; j++ {
			if s := completed.Snapshot(); s.Status == StatusCompleted {
				assert.Equal(t, "/out/export.mov", s.Location)
				assert.Equal(t, 1.0, s.Progress)
			}
			if s := failed.Snapshot(); s.Status == StatusFailed {
				assert.Equal(t, "encoder crashed", s.Error)
			}
		}
		wg.Wait()
	}
}
