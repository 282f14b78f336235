package executor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/lehigh-university-libraries/stitcher/internal/compositor"
	"github.com/lehigh-university-libraries/stitcher/internal/download"
	"github.com/lehigh-university-libraries/stitcher/internal/filenames"
	"github.com/lehigh-university-libraries/stitcher/internal/models"
	"golang.org/x/sync/errgroup"
)

// ErrNoImages is returned for requests without images
var ErrNoImages = errors.New("no images received")

// Merger stitches an ordered list of images
type Merger interface {
	Merge(ctx context.Context, items []models.ImageCandidate, orientation models.Orientation) (*compositor.EncodedImage, error)
}

// Executor runs the stitch and download actions in-process and hands
// results straight to the download trigger
type Executor struct {
	merger      Merger
	trigger     download.Trigger
	hostFolders bool

	mu    sync.Mutex
	saved []string
}

// Option configures an Executor
type Option func(*Executor)

// WithHostFolders files every download under a folder named after its host
func WithHostFolders() Option {
	return func(e *Executor) { e.hostFolders = true }
}

// New creates an executor
func New(merger Merger, trigger download.Trigger, opts ...Option) *Executor {
	e := &Executor{merger: merger, trigger: trigger}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// MergeAndDownload stitches the images and saves the composite
func (e *Executor) MergeAndDownload(ctx context.Context, req models.StitchRequest) error {
	_, err := e.Merge(ctx, req)
	return err
}

// Merge stitches the images and returns the saved path
func (e *Executor) Merge(ctx context.Context, req models.StitchRequest) (string, error) {
	if len(req.Images) == 0 {
		return "", ErrNoImages
	}

	enc, err := e.merger.Merge(ctx, req.Images, req.Orientation)
	if err != nil {
		return "", err
	}

	name := filenames.Merged(req.PageTitle, e.host(req.PageHost))
	path, err := e.trigger.SaveBlob(ctx, enc.Data, name)
	if err != nil {
		return "", fmt.Errorf("failed to save stitched image: %w", err)
	}
	e.record(path)
	return path, nil
}

// DownloadImages saves every image
func (e *Executor) DownloadImages(ctx context.Context, req models.DownloadRequest) error {
	_, err := e.Download(ctx, req)
	return err
}

// Download saves every image concurrently. It fails as soon as any image
// fails; saves already under way are not rolled back.
func (e *Executor) Download(ctx context.Context, req models.DownloadRequest) ([]string, error) {
	if len(req.Images) == 0 {
		return nil, ErrNoImages
	}

	host := e.host(req.PageHost)
	paths := make([]string, len(req.Images))
	g, gctx := errgroup.WithContext(ctx)
	for i, img := range req.Images {
		g.Go(func() error {
			name := filenames.Derive(img.Src, req.PageTitle, i, "png", host)
			path, err := e.trigger.SaveURL(gctx, img.Src, name)
			if err != nil {
				return err
			}
			paths[i] = path
			e.record(path)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	slog.Info("Downloaded images", "count", len(paths), "host_folders", e.hostFolders)
	return paths, nil
}

// Saved returns every path written so far
func (e *Executor) Saved() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]string(nil), e.saved...)
}

func (e *Executor) host(pageHost string) string {
	if !e.hostFolders {
		return ""
	}
	if pageHost == "" {
		return models.DefaultBase
	}
	return pageHost
}

func (e *Executor) record(path string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.saved = append(e.saved, path)
}
