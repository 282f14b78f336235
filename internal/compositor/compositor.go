package compositor

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/png"
	"log/slog"

	"github.com/lehigh-university-libraries/stitcher/internal/images"
	"github.com/lehigh-university-libraries/stitcher/internal/layout"
	"golang.org/x/image/draw"
)

// ContentType is the single output format of every composite
const ContentType = "image/png"

// EncodeError is returned when the surface could not be serialized
type EncodeError struct {
	Reason string
	Err    error
}

func (e *EncodeError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("failed to encode stitched image: %s: %v", e.Reason, e.Err)
	}
	return "failed to encode stitched image: " + e.Reason
}

func (e *EncodeError) Unwrap() error { return e.Err }

// EncodedImage is a serialized composite
type EncodedImage struct {
	Data        []byte
	ContentType string
	Width       int
	Height      int
}

// Compositor draws bitmaps onto a single surface
type Compositor struct {
	Scaler draw.Scaler
}

// New returns a compositor using Catmull-Rom resampling
func New() *Compositor {
	return &Compositor{Scaler: draw.CatmullRom}
}

// Compose draws every bitmap into its placement in list order and encodes
// the surface. Later items paint over earlier ones where they overlap.
// All bitmaps are released before Compose returns, whatever the outcome.
func (c *Compositor) Compose(ctx context.Context, bitmaps []*images.Bitmap, plan layout.LayoutPlan) (*EncodedImage, error) {
	defer releaseAll(bitmaps)

	if len(bitmaps) == 0 {
		return nil, layout.ErrEmptyInput
	}
	if len(plan.Placements) != len(bitmaps) {
		return nil, fmt.Errorf("plan has %d placements for %d bitmaps", len(plan.Placements), len(bitmaps))
	}
	if plan.CanvasWidth <= 0 || plan.CanvasHeight <= 0 {
		return nil, &EncodeError{Reason: fmt.Sprintf("empty canvas %d x %d", plan.CanvasWidth, plan.CanvasHeight)}
	}
	if layout.Exceeds(plan) {
		return nil, &EncodeError{Reason: fmt.Sprintf("canvas %d x %d exceeds the %d pixel surface limit", plan.CanvasWidth, plan.CanvasHeight, layout.MaxCanvasDimension)}
	}

	scaler := c.Scaler
	if scaler == nil {
		scaler = draw.CatmullRom
	}

	surface := image.NewRGBA(image.Rect(0, 0, plan.CanvasWidth, plan.CanvasHeight))
	for i, bmp := range bitmaps {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		src := bmp.Image()
		if src == nil {
			return nil, fmt.Errorf("bitmap %d: %w", i, images.ErrReleased)
		}

		p := plan.Placements[i]
		dst := image.Rect(p.X, p.Y, p.X+p.DrawWidth, p.Y+p.DrawHeight)
		if dst.Dx() == src.Bounds().Dx() && dst.Dy() == src.Bounds().Dy() {
			draw.Draw(surface, dst, src, src.Bounds().Min, draw.Src)
		} else {
			scaler.Scale(surface, dst, src, src.Bounds(), draw.Src, nil)
		}
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, surface); err != nil {
		return nil, &EncodeError{Reason: "png encoder failed", Err: err}
	}
	if buf.Len() == 0 {
		return nil, &EncodeError{Reason: "encoder produced no data"}
	}

	slog.Debug("Composed image", "width", plan.CanvasWidth, "height", plan.CanvasHeight, "orientation", plan.Orientation, "bytes", buf.Len())
	return &EncodedImage{
		Data:        buf.Bytes(),
		ContentType: ContentType,
		Width:       plan.CanvasWidth,
		Height:      plan.CanvasHeight,
	}, nil
}

func releaseAll(bitmaps []*images.Bitmap) {
	for _, bmp := range bitmaps {
		if bmp == nil || bmp.Released() {
			continue
		}
		if err := bmp.Release(); err != nil {
			slog.Warn("Unable to release bitmap", "err", err)
		}
	}
}
