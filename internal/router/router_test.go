package router

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/lehigh-university-libraries/stitcher/internal/images"
	"github.com/lehigh-university-libraries/stitcher/internal/layout"
	"github.com/lehigh-university-libraries/stitcher/internal/messaging"
	"github.com/lehigh-university-libraries/stitcher/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeExecutor struct {
	mu        sync.Mutex
	err       error
	merges    []models.StitchRequest
	downloads []models.DownloadRequest
	block     chan struct{}
}

func (f *fakeExecutor) MergeAndDownload(ctx context.Context, req models.StitchRequest) error {
	if f.block != nil {
		<-f.block
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.merges = append(f.merges, req)
	return f.err
}

func (f *fakeExecutor) DownloadImages(ctx context.Context, req models.DownloadRequest) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.downloads = append(f.downloads, req)
	return f.err
}

type recorder struct {
	mu       sync.Mutex
	enabled  []bool
	statuses []string
	errs     []bool
	states   []State
}

func (r *recorder) SetEnabled(enabled bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.enabled = append(r.enabled, enabled)
}

func (r *recorder) SetStatus(text string, isError bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.statuses = append(r.statuses, text)
	r.errs = append(r.errs, isError)
}

func (r *recorder) hook(t Transition) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.states = append(r.states, t.To)
}

func (r *recorder) lastStatus() (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.statuses[len(r.statuses)-1], r.errs[len(r.errs)-1]
}

func newRouter(primary, fallback Executor) (*Router, *recorder) {
	rec := &recorder{}
	r := New(primary, fallback, WithControls(rec), WithStatus(rec), WithTransitionHook(rec.hook))
	return r, rec
}

const (
	timeout = time.Second
	tick    = 10 * time.Millisecond
)

var selection = []models.ImageCandidate{{Src: "https://x.com/a.png"}, {Src: "https://x.com/b.png"}}

func TestStitchPrimarySucceeds(t *testing.T) {
	primary, fallback := &fakeExecutor{}, &fakeExecutor{}
	r, rec := newRouter(primary, fallback)

	res, err := r.Stitch(context.Background(), models.StitchRequest{Images: selection, Orientation: models.Vertical})
	require.NoError(t, err)

	assert.Equal(t, Succeeded, res.State)
	assert.False(t, res.UsedFallback)
	assert.Len(t, primary.merges, 1)
	assert.Equal(t, models.Vertical, primary.merges[0].Orientation)
	assert.Empty(t, fallback.merges)
	assert.Equal(t, []State{Requested, PrimaryAttempt, Succeeded, Idle}, rec.states)
	assert.Equal(t, []bool{false, true}, rec.enabled)
	assert.Equal(t, Idle, r.State())

	status, isErr := rec.lastStatus()
	assert.Equal(t, "Stitched, download started", status)
	assert.False(t, isErr)
}

func TestStitchFallsBackOnCommunicationError(t *testing.T) {
	tests := []struct {
		name string
		err  error
	}{
		{"no receiver", &messaging.CommunicationError{Reason: messaging.ReasonNoReceiver}},
		{"context invalidated", &messaging.CommunicationError{Reason: messaging.ReasonContextInvalidated}},
		{"port closed message", errors.New(messaging.MsgPortClosed)},
		{"remote reports invalidated", &messaging.RemoteError{Message: messaging.MsgContextInvalidated}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			primary, fallback := &fakeExecutor{err: tt.err}, &fakeExecutor{}
			r, rec := newRouter(primary, fallback)

			req := models.StitchRequest{Images: selection, Orientation: models.Horizontal, PageTitle: "T"}
			res, err := r.Stitch(context.Background(), req)
			require.NoError(t, err)

			assert.Equal(t, Succeeded, res.State)
			assert.True(t, res.UsedFallback)
			require.Len(t, fallback.merges, 1)
			assert.Equal(t, req, fallback.merges[0])
			assert.Equal(t, []State{Requested, PrimaryAttempt, PrimaryFailed, FallbackAttempt, Succeeded, Idle}, rec.states)
			assert.Equal(t, []bool{false, true}, rec.enabled)

			status, _ := rec.lastStatus()
			assert.Equal(t, "Done, download started (stitched locally)", status)
		})
	}
}

func TestStitchDoesNotRetryPipelineErrors(t *testing.T) {
	tests := []struct {
		name string
		err  error
	}{
		{"remote decode error", &messaging.RemoteError{Type: messaging.MergeAndDownload, Message: "failed to decode https://x.com/a.png: image: unknown format"}},
		{"decode error", &images.DecodeError{Locator: "a", Err: errors.New("bad")}},
		{"fetch error", &images.FetchError{Locator: "a", StatusCode: 403, Status: "Forbidden"}},
		{"timeout", context.DeadlineExceeded},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			primary, fallback := &fakeExecutor{err: tt.err}, &fakeExecutor{}
			r, rec := newRouter(primary, fallback)

			res, err := r.Stitch(context.Background(), models.StitchRequest{Images: selection})
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.err)

			assert.Equal(t, PrimaryFailed, res.State)
			assert.False(t, res.UsedFallback)
			assert.Empty(t, fallback.merges)
			assert.Equal(t, []State{Requested, PrimaryAttempt, PrimaryFailed, Idle}, rec.states)
			assert.Equal(t, []bool{false, true}, rec.enabled)

			_, isErr := rec.lastStatus()
			assert.True(t, isErr)
		})
	}
}

func TestStitchFallbackFails(t *testing.T) {
	primary := &fakeExecutor{err: &messaging.CommunicationError{Reason: messaging.ReasonNoReceiver}}
	fallback := &fakeExecutor{err: &images.FetchError{Locator: "https://x.com/a.png", StatusCode: 404, Status: "Not Found"}}
	r, rec := newRouter(primary, fallback)

	res, err := r.Stitch(context.Background(), models.StitchRequest{Images: selection})
	require.Error(t, err)
	assert.Equal(t, FallbackFailed, res.State)
	assert.True(t, res.UsedFallback)
	assert.Equal(t, []State{Requested, PrimaryAttempt, PrimaryFailed, FallbackAttempt, FallbackFailed, Idle}, rec.states)

	status, isErr := rec.lastStatus()
	assert.Equal(t, "failed to load https://x.com/a.png: 404 Not Found", status)
	assert.True(t, isErr)
	assert.Equal(t, []bool{false, true}, rec.enabled)
}

func TestEmptySelectionContactsNoExecutor(t *testing.T) {
	primary, fallback := &fakeExecutor{}, &fakeExecutor{}
	r, rec := newRouter(primary, fallback)

	_, err := r.Stitch(context.Background(), models.StitchRequest{})
	assert.ErrorIs(t, err, ErrNoSelection)
	_, err = r.Download(context.Background(), models.DownloadRequest{})
	assert.ErrorIs(t, err, ErrNoSelection)

	assert.Empty(t, primary.merges)
	assert.Empty(t, primary.downloads)
	assert.Empty(t, fallback.merges)
	assert.Empty(t, rec.states)
	assert.Empty(t, rec.enabled)

	status, isErr := rec.lastStatus()
	assert.Equal(t, "Please select images first", status)
	assert.True(t, isErr)
}

func TestDownloadFallsBack(t *testing.T) {
	primary := &fakeExecutor{err: &messaging.CommunicationError{Reason: messaging.ReasonContextInvalidated}}
	fallback := &fakeExecutor{}
	r, rec := newRouter(primary, fallback)

	res, err := r.Download(context.Background(), models.DownloadRequest{Images: selection, PageTitle: "T"})
	require.NoError(t, err)
	assert.True(t, res.UsedFallback)
	assert.Len(t, fallback.downloads, 1)

	status, _ := rec.lastStatus()
	assert.Equal(t, "Download started (local)", status)
}

func TestNilFallbackSurfacesCommunicationError(t *testing.T) {
	primary := &fakeExecutor{err: &messaging.CommunicationError{Reason: messaging.ReasonNoReceiver}}
	r, _ := newRouter(primary, nil)

	res, err := r.Download(context.Background(), models.DownloadRequest{Images: selection})
	require.Error(t, err)
	assert.Equal(t, PrimaryFailed, res.State)
}

func TestRejectsReentrantInvocation(t *testing.T) {
	block := make(chan struct{})
	primary := &fakeExecutor{block: block}
	r, _ := newRouter(primary, &fakeExecutor{})

	done := make(chan error, 1)
	go func() {
		_, err := r.Stitch(context.Background(), models.StitchRequest{Images: selection})
		done <- err
	}()

	require.Eventually(t, r.Busy, timeout, tick)
	_, err := r.Stitch(context.Background(), models.StitchRequest{Images: selection})
	assert.ErrorIs(t, err, ErrBusy)

	close(block)
	require.NoError(t, <-done)
	assert.False(t, r.Busy())
	assert.Len(t, primary.merges, 1)
}

func TestDescribe(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected string
	}{
		{"user input", ErrNoSelection, "Please select images first"},
		{"empty input", layout.ErrEmptyInput, "No images selected to stitch"},
		{"remote", &messaging.RemoteError{Message: "no images received"}, "no images received"},
		{"deadline", context.DeadlineExceeded, "Stitching failed: timed out"},
		{"plain", errors.New("boom"), "boom"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, Describe(tt.err, "Stitching failed"))
		})
	}
}

func TestStateTransitions(t *testing.T) {
	assert.True(t, canTransition(PrimaryFailed, FallbackAttempt))
	assert.False(t, canTransition(Idle, PrimaryAttempt))
	assert.False(t, canTransition(Succeeded, FallbackAttempt))
	assert.Equal(t, "fallback-attempt", FallbackAttempt.String())
}
