package stitch

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/lehigh-university-libraries/stitcher/internal/compositor"
	"github.com/lehigh-university-libraries/stitcher/internal/images"
	"github.com/lehigh-university-libraries/stitcher/internal/layout"
	"github.com/lehigh-university-libraries/stitcher/internal/models"
)

// BitmapFetcher retrieves and decodes one locator
type BitmapFetcher interface {
	Fetch(ctx context.Context, locator string) (*images.Bitmap, error)
}

// Pipeline fetches, lays out and composes a stitch request
type Pipeline struct {
	fetcher    BitmapFetcher
	compositor *compositor.Compositor
}

// NewPipeline creates a pipeline around the given fetcher
func NewPipeline(fetcher BitmapFetcher) *Pipeline {
	return &Pipeline{
		fetcher:    fetcher,
		compositor: compositor.New(),
	}
}

// Merge stitches the images in order into a single encoded image.
// Images are fetched one at a time to bound peak memory.
func (p *Pipeline) Merge(ctx context.Context, items []models.ImageCandidate, orientation models.Orientation) (*compositor.EncodedImage, error) {
	if len(items) == 0 {
		return nil, layout.ErrEmptyInput
	}

	start := time.Now()
	batch := &Batch{}
	defer batch.Close()

	for i, item := range items {
		bmp, err := p.fetcher.Fetch(ctx, item.Src)
		if err != nil {
			return nil, fmt.Errorf("image %d of %d: %w", i+1, len(items), err)
		}
		batch.Add(bmp)
	}

	plan, err := layout.Plan(batch.Sizes(), orientation)
	if err != nil {
		return nil, err
	}
	if plan.Orientation != orientation {
		slog.Info("Canvas limit exceeded, stitching vertically", "requested", orientation, "width", plan.CanvasWidth, "height", plan.CanvasHeight)
	}

	enc, err := p.compositor.Compose(ctx, batch.Take(), plan)
	if err != nil {
		return nil, err
	}

	slog.Info("Stitched images", "count", len(items), "orientation", plan.Orientation, "width", enc.Width, "height", enc.Height, "bytes", len(enc.Data), "elapsed", time.Since(start))
	return enc, nil
}

// Batch holds bitmaps acquired for one stitch. Close releases whatever
// has not been handed off with Take.
type Batch struct {
	bitmaps []*images.Bitmap
}

func (b *Batch) Add(bmp *images.Bitmap) {
	b.bitmaps = append(b.bitmaps, bmp)
}

func (b *Batch) Len() int { return len(b.bitmaps) }

// Sizes returns the natural size of each bitmap in order
func (b *Batch) Sizes() []layout.Size {
	sizes := make([]layout.Size, len(b.bitmaps))
	for i, bmp := range b.bitmaps {
		sizes[i] = layout.Size{Width: bmp.Width(), Height: bmp.Height()}
	}
	return sizes
}

// Take transfers ownership of the bitmaps to the caller
func (b *Batch) Take() []*images.Bitmap {
	out := b.bitmaps
	b.bitmaps = nil
	return out
}

// Close releases every bitmap still owned by the batch
func (b *Batch) Close() {
	for _, bmp := range b.bitmaps {
		if bmp.Released() {
			continue
		}
		if err := bmp.Release(); err != nil {
			slog.Warn("Unable to release bitmap", "err", err)
		}
	}
	b.bitmaps = nil
}
