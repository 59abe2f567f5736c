package export

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/maauso/overlaymerge/internal/media"
	"github.com/maauso/overlaymerge/internal/media/mediatest"
)

// mockExporter is a testify mock of media.Exporter.
type mockExporter struct {
	mock.Mock
}

func (m *mockExporter) NewExportSession(comp *media.Composition, opts media.ExportOptions) (media.ExportSession, error) {
	args := m.Called(comp, opts)
	s, _ := args.Get(0).(media.ExportSession)
	return s, args.Error(1)
}

// recorder collects driver callbacks.
type recorder struct {
	mu        sync.Mutex
	progress  []float64
	results   []Result
	completed chan struct{}
	// progressAfterComplete counts progress reports seen after completion.
	progressAfterComplete int
}

func newRecorder() *recorder {
	return &recorder{completed: make(chan struct{}, 1)}
}

func (r *recorder) onProgress(p float64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.results) > 0 {
		r.progressAfterComplete++
	}
	r.progress = append(r.progress, p)
}

func (r *recorder) onComplete(res Result) {
	r.mu.Lock()
	r.results = append(r.results, res)
	r.mu.Unlock()
	r.completed <- struct{}{}
}

func (r *recorder) wait(t *testing.T) Result {
	t.Helper()
	select {
	case <-r.completed:
	case <-time.After(5 * time.Second):
		t.Fatal("completion was not delivered")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.results[len(r.results)-1]
}

func (r *recorder) snapshot() ([]float64, []Result) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]float64(nil), r.progress...), append([]Result(nil), r.results...)
}

func testRequest() Request {
	return Request{
		Composition: media.NewComposition(),
		OutputPath:  "/out/export1.mov",
		FileType:    media.FileTypeQuickTimeMovie,
		Quality:     QualityHigh,
	}
}

func TestParseQuality(t *testing.T) {
	tests := []struct {
		in     string
		want   media.Preset
		hasErr bool
	}{
		{"low", media.PresetLowQuality, false},
		{"medium", media.PresetMediumQuality, false},
		{"high", media.PresetHighestQuality, false},
		{"ultra", "", true},
		{"", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			q, err := ParseQuality(tt.in)
			if tt.hasErr {
				assert.ErrorIs(t, err, ErrUnsupportedPreset)
				return
			}
			require.NoError(t, err)
			preset, ok := q.Preset()
			assert.True(t, ok)
			assert.Equal(t, tt.want, preset)
		})
	}
}

func TestNewDriver_MapsRequest(t *testing.T) {
	exporter := &mockExporter{}
	req := testRequest()
	req.Quality = QualityLow
	session := &mediatest.Session{Path: req.OutputPath}

	exporter.On("NewExportSession", req.Composition, mock.MatchedBy(func(o media.ExportOptions) bool {
		return o.Preset == media.PresetLowQuality &&
			o.OutputPath == req.OutputPath &&
			o.FileType == media.FileTypeQuickTimeMovie
	})).Return(session, nil)

	d, err := NewDriver(exporter, req)
	require.NoError(t, err)

	h := d.Handle()
	assert.Equal(t, StatusIdle, h.Status)
	assert.NotEmpty(t, h.ID)
	assert.False(t, session.Started(), "construction does not start the export")
	exporter.AssertExpectations(t)
}

func TestNewDriver_UnsupportedQuality(t *testing.T) {
	exporter := &mockExporter{}
	req := testRequest()
	req.Quality = "ultra"

	_, err := NewDriver(exporter, req)
	assert.ErrorIs(t, err, ErrUnsupportedPreset)
	exporter.AssertNotCalled(t, "NewExportSession", mock.Anything, mock.Anything)
}

func TestNewDriver_SessionUnavailable(t *testing.T) {
	exporter := &mockExporter{}
	engineErr := errors.New("engine refused")
	exporter.On("NewExportSession", mock.Anything, mock.Anything).Return(nil, engineErr)

	_, err := NewDriver(exporter, testRequest())
	assert.ErrorIs(t, err, ErrSessionUnavailable)
	assert.ErrorIs(t, err, engineErr)
}

func TestDriver_RenderSucceeds(t *testing.T) {
	exporter := &mediatest.Exporter{NewSession: func(media.ExportOptions) *mediatest.Session {
		return &mediatest.Session{Steps: []float64{0.2, 0.1, 0.6, 1.7}, StepDelay: 5 * time.Millisecond}
	}}
	d, err := NewDriver(exporter, testRequest(), WithPollInterval(time.Millisecond))
	require.NoError(t, err)

	rec := newRecorder()
	d.Render(context.Background(), rec.onProgress, rec.onComplete)
	res := rec.wait(t)

	assert.Equal(t, Succeeded, res.Outcome)
	assert.Equal(t, "/out/export1.mov", res.Location)
	assert.NoError(t, res.Err)

	progress, results := rec.snapshot()
	assert.Len(t, results, 1)
	require.NotEmpty(t, progress)
	for i, p := range progress {
		assert.GreaterOrEqual(t, p, 0.0)
		assert.LessOrEqual(t, p, 1.0)
		if i > 0 {
			assert.GreaterOrEqual(t, p, progress[i-1], "progress moved backward at %d", i)
		}
	}
	assert.Equal(t, 1.0, progress[len(progress)-1])
	assert.Zero(t, rec.progressAfterComplete)

	h := d.Handle()
	assert.Equal(t, StatusCompleted, h.Status)
	assert.Equal(t, "/out/export1.mov", h.Location)
	assert.False(t, h.CompletedAt.IsZero())

	// Completion is delivered once even if Render is called again.
	d.Render(context.Background(), rec.onProgress, rec.onComplete)
	time.Sleep(20 * time.Millisecond)
	_, results = rec.snapshot()
	assert.Len(t, results, 1)
}

func TestDriver_RenderFails(t *testing.T) {
	engineErr := errors.New("encoder crashed")
	exporter := &mediatest.Exporter{NewSession: func(media.ExportOptions) *mediatest.Session {
		return &mediatest.Session{Steps: []float64{0.3}, Final: media.StatusFailed, FinalErr: engineErr}
	}}
	d, err := NewDriver(exporter, testRequest(), WithPollInterval(time.Millisecond))
	require.NoError(t, err)

	rec := newRecorder()
	d.Render(context.Background(), rec.onProgress, rec.onComplete)
	res := rec.wait(t)

	assert.Equal(t, Failed, res.Outcome)
	assert.ErrorIs(t, res.Err, engineErr)
	assert.Empty(t, res.Location)

	h := d.Handle()
	assert.Equal(t, StatusFailed, h.Status)
	assert.Equal(t, "encoder crashed", h.Error)
}

func TestDriver_RenderCancelled(t *testing.T) {
	exporter := &mediatest.Exporter{NewSession: func(media.ExportOptions) *mediatest.Session {
		return &mediatest.Session{Hold: make(chan struct{})}
	}}
	d, err := NewDriver(exporter, testRequest(), WithPollInterval(time.Millisecond))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	rec := newRecorder()
	d.Render(ctx, rec.onProgress, rec.onComplete)
	cancel()
	res := rec.wait(t)

	assert.Equal(t, Cancelled, res.Outcome)
	assert.ErrorIs(t, res.Err, context.Canceled)
	assert.Equal(t, StatusCancelled, d.Handle().Status)
}

func TestDriver_RenderDoesNotBlock(t *testing.T) {
	hold := make(chan struct{})
	exporter := &mediatest.Exporter{NewSession: func(media.ExportOptions) *mediatest.Session {
		return &mediatest.Session{Hold: hold}
	}}
	d, err := NewDriver(exporter, testRequest(), WithPollInterval(5*time.Millisecond))
	require.NoError(t, err)

	rec := newRecorder()
	returned := make(chan struct{})
	go func() {
		d.Render(context.Background(), rec.onProgress, rec.onComplete)
		close(returned)
	}()

	select {
	case <-returned:
	case <-time.After(time.Second):
		t.Fatal("Render blocked")
	}
	assert.Equal(t, StatusExporting, d.Handle().Status)

	// Sampling continues at the poll interval while the export runs.
	assert.Eventually(t, func() bool {
		progress, _ := rec.snapshot()
		return len(progress) >= 3
	}, time.Second, 5*time.Millisecond)

	close(hold)
	assert.Equal(t, Succeeded, rec.wait(t).Outcome)
}

func TestDriver_CompletionUsesDispatcher(t *testing.T) {
	exporter := &mediatest.Exporter{}
	queue := NewQueue()
	defer queue.Close()

	var dispatched int
	var mu sync.Mutex
	dispatcher := DispatchFunc(func(fn func()) {
		mu.Lock()
		dispatched++
		mu.Unlock()
		queue.Dispatch(fn)
	})

	d, err := NewDriver(exporter, testRequest(), WithPollInterval(time.Millisecond), WithDispatcher(dispatcher))
	require.NoError(t, err)

	rec := newRecorder()
	d.Render(context.Background(), nil, rec.onComplete)
	assert.Equal(t, Succeeded, rec.wait(t).Outcome)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, 1, dispatched)
}

func TestOutcome_String(t *testing.T) {
	assert.Equal(t, "succeeded", Succeeded.String())
	assert.Equal(t, "failed", Failed.String())
	assert.Equal(t, "cancelled", Cancelled.String())
}
