package executor

import (
	"context"
	"errors"
	"path/filepath"
	"sort"
	"sync"
	"testing"

	"github.com/lehigh-university-libraries/stitcher/internal/compositor"
	"github.com/lehigh-university-libraries/stitcher/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeMerger struct {
	err  error
	got  []models.ImageCandidate
	seen models.Orientation
}

func (f *fakeMerger) Merge(ctx context.Context, items []models.ImageCandidate, orientation models.Orientation) (*compositor.EncodedImage, error) {
	f.got = items
	f.seen = orientation
	if f.err != nil {
		return nil, f.err
	}
	return &compositor.EncodedImage{Data: []byte("png"), ContentType: compositor.ContentType, Width: 1, Height: 1}, nil
}

type fakeTrigger struct {
	mu    sync.Mutex
	blobs map[string][]byte
	urls  map[string]string
	fail  string
}

func newTrigger() *fakeTrigger {
	return &fakeTrigger{blobs: map[string][]byte{}, urls: map[string]string{}}
}

func (f *fakeTrigger) SaveBlob(ctx context.Context, data []byte, name string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.blobs[name] = data
	return filepath.Join("/out", name), nil
}

func (f *fakeTrigger) SaveURL(ctx context.Context, locator, name string) (string, error) {
	if locator == f.fail {
		return "", errors.New("failed to load " + locator)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.urls[name] = locator
	return filepath.Join("/out", name), nil
}

func TestMergeSavesCompositeUnderPageName(t *testing.T) {
	tests := []struct {
		name     string
		opts     []Option
		req      models.StitchRequest
		expected string
	}{
		{
			name:     "privileged naming",
			req:      models.StitchRequest{Images: []models.ImageCandidate{{Src: "a"}}, PageTitle: "My Page", PageHost: "example.com"},
			expected: "stitcher/My Page.png",
		},
		{
			name:     "host folder",
			opts:     []Option{WithHostFolders()},
			req:      models.StitchRequest{Images: []models.ImageCandidate{{Src: "a"}}, PageTitle: "My Page", PageHost: "example.com"},
			expected: "stitcher/example.com/My Page.png",
		},
		{
			name:     "host folder without host",
			opts:     []Option{WithHostFolders()},
			req:      models.StitchRequest{Images: []models.ImageCandidate{{Src: "a"}}, PageTitle: "T"},
			expected: "stitcher/stitcher/T.png",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			merger, trigger := &fakeMerger{}, newTrigger()
			e := New(merger, trigger, tt.opts...)

			path, err := e.Merge(context.Background(), tt.req)
			require.NoError(t, err)
			assert.Contains(t, trigger.blobs, tt.expected)
			assert.Equal(t, filepath.Join("/out", tt.expected), path)
			assert.Equal(t, []string{path}, e.Saved())
		})
	}
}

func TestMergePassesOrientation(t *testing.T) {
	merger := &fakeMerger{}
	e := New(merger, newTrigger())

	items := []models.ImageCandidate{{Src: "a"}, {Src: "b"}}
	require.NoError(t, e.MergeAndDownload(context.Background(), models.StitchRequest{Images: items, Orientation: models.Vertical}))
	assert.Equal(t, items, merger.got)
	assert.Equal(t, models.Vertical, merger.seen)
}

func TestMergeErrors(t *testing.T) {
	e := New(&fakeMerger{}, newTrigger())
	assert.ErrorIs(t, e.MergeAndDownload(context.Background(), models.StitchRequest{}), ErrNoImages)

	boom := errors.New("boom")
	trigger := newTrigger()
	e = New(&fakeMerger{err: boom}, trigger)
	err := e.MergeAndDownload(context.Background(), models.StitchRequest{Images: []models.ImageCandidate{{Src: "a"}}})
	assert.ErrorIs(t, err, boom)
	assert.Empty(t, trigger.blobs)
}

func TestDownloadNamesEveryImage(t *testing.T) {
	trigger := newTrigger()
	e := New(&fakeMerger{}, trigger, WithHostFolders())

	req := models.DownloadRequest{
		Images: []models.ImageCandidate{
			{Src: "https://cdn.example.org/img/cat.jpg"},
			{Src: "data:image/png;base64,AAAA"},
			{Src: "https://cdn.example.org/"},
		},
		PageTitle: "Gallery",
		PageHost:  "example.com",
	}
	paths, err := e.Download(context.Background(), req)
	require.NoError(t, err)
	require.Len(t, paths, 3)

	names := make([]string, 0, len(trigger.urls))
	for name := range trigger.urls {
		names = append(names, name)
	}
	sort.Strings(names)
	assert.Equal(t, []string{
		"stitcher/cdn.example.org/Gallery-3.png",
		"stitcher/cdn.example.org/cat.jpg",
		"stitcher/example.com/Gallery-2.png",
	}, names)
	assert.Len(t, e.Saved(), 3)
}

func TestDownloadFailsOnAnyImage(t *testing.T) {
	trigger := newTrigger()
	trigger.fail = "https://x.com/b.png"
	e := New(&fakeMerger{}, trigger)

	err := e.DownloadImages(context.Background(), models.DownloadRequest{
		Images: []models.ImageCandidate{{Src: "https://x.com/a.png"}, {Src: "https://x.com/b.png"}},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "https://x.com/b.png")

	assert.ErrorIs(t, e.DownloadImages(context.Background(), models.DownloadRequest{}), ErrNoImages)
}
