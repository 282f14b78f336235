package compositor

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"testing"

	"github.com/lehigh-university-libraries/stitcher/internal/images"
	"github.com/lehigh-university-libraries/stitcher/internal/layout"
	"github.com/lehigh-university-libraries/stitcher/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func solid(w, h int, c color.RGBA) image.Image {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetRGBA(x, y, c)
		}
	}
	return img
}

var (
	red   = color.RGBA{R: 255, A: 255}
	green = color.RGBA{G: 255, A: 255}
	blue  = color.RGBA{B: 255, A: 255}
)

func bitmaps(acct *images.Accounting, imgs ...image.Image) ([]*images.Bitmap, []layout.Size) {
	bmps := make([]*images.Bitmap, len(imgs))
	sizes := make([]layout.Size, len(imgs))
	for i, img := range imgs {
		bmps[i] = images.NewBitmap(img, acct)
		sizes[i] = layout.Size{Width: bmps[i].Width(), Height: bmps[i].Height()}
	}
	return bmps, sizes
}

func decode(t *testing.T, enc *EncodedImage) image.Image {
	t.Helper()
	img, err := png.Decode(bytes.NewReader(enc.Data))
	require.NoError(t, err)
	return img
}

func TestComposeHorizontal(t *testing.T) {
	acct := &images.Accounting{}
	bmps, sizes := bitmaps(acct, solid(10, 10, red), solid(20, 10, green), solid(5, 10, blue))

	plan, err := layout.Plan(sizes, models.Horizontal)
	require.NoError(t, err)

	enc, err := New().Compose(context.Background(), bmps, plan)
	require.NoError(t, err)
	assert.Equal(t, ContentType, enc.ContentType)
	assert.Equal(t, 35, enc.Width)
	assert.Equal(t, 10, enc.Height)

	img := decode(t, enc)
	assert.Equal(t, image.Rect(0, 0, 35, 10), img.Bounds())
	assert.Equal(t, red, color.RGBAModel.Convert(img.At(5, 5)))
	assert.Equal(t, green, color.RGBAModel.Convert(img.At(20, 5)))
	assert.Equal(t, blue, color.RGBAModel.Convert(img.At(32, 5)))

	assert.Equal(t, int64(0), acct.Outstanding())
}

func TestComposeScalesToUniformHeight(t *testing.T) {
	acct := &images.Accounting{}
	bmps, sizes := bitmaps(acct, solid(10, 10, red), solid(10, 20, green))

	plan, err := layout.Plan(sizes, models.Horizontal)
	require.NoError(t, err)
	require.Equal(t, 30, plan.CanvasWidth)

	enc, err := New().Compose(context.Background(), bmps, plan)
	require.NoError(t, err)

	img := decode(t, enc)
	assert.Equal(t, red, color.RGBAModel.Convert(img.At(10, 10)))
	assert.Equal(t, red, color.RGBAModel.Convert(img.At(1, 18)))
	assert.Equal(t, green, color.RGBAModel.Convert(img.At(25, 10)))
}

func TestComposeVertical(t *testing.T) {
	acct := &images.Accounting{}
	bmps, sizes := bitmaps(acct, solid(10, 4, red), solid(10, 6, blue))

	plan, err := layout.Plan(sizes, models.Vertical)
	require.NoError(t, err)

	enc, err := New().Compose(context.Background(), bmps, plan)
	require.NoError(t, err)
	img := decode(t, enc)
	assert.Equal(t, image.Rect(0, 0, 10, 10), img.Bounds())
	assert.Equal(t, red, color.RGBAModel.Convert(img.At(5, 1)))
	assert.Equal(t, blue, color.RGBAModel.Convert(img.At(5, 8)))
}

func TestComposeLaterDrawsWin(t *testing.T) {
	acct := &images.Accounting{}
	bmps, _ := bitmaps(acct, solid(10, 10, red), solid(10, 10, blue))
	plan := layout.LayoutPlan{
		CanvasWidth:  10,
		CanvasHeight: 10,
		Orientation:  models.Horizontal,
		Placements: []layout.Placement{
			{X: 0, Y: 0, DrawWidth: 10, DrawHeight: 10},
			{X: 5, Y: 0, DrawWidth: 10, DrawHeight: 10},
		},
	}

	enc, err := New().Compose(context.Background(), bmps, plan)
	require.NoError(t, err)
	img := decode(t, enc)
	assert.Equal(t, red, color.RGBAModel.Convert(img.At(2, 5)))
	assert.Equal(t, blue, color.RGBAModel.Convert(img.At(7, 5)))
}

func TestComposeReleasesOnFailure(t *testing.T) {
	tests := []struct {
		name string
		plan layout.LayoutPlan
		ctx  func() context.Context
	}{
		{
			name: "placement mismatch",
			plan: layout.LayoutPlan{CanvasWidth: 10, CanvasHeight: 10},
			ctx:  context.Background,
		},
		{
			name: "oversized canvas",
			plan: layout.LayoutPlan{
				CanvasWidth:  layout.MaxCanvasDimension + 1,
				CanvasHeight: 10,
				Placements:   []layout.Placement{{DrawWidth: 1, DrawHeight: 1}, {DrawWidth: 1, DrawHeight: 1}},
			},
			ctx: context.Background,
		},
		{
			name: "cancelled",
			plan: layout.LayoutPlan{
				CanvasWidth:  20,
				CanvasHeight: 10,
				Placements:   []layout.Placement{{DrawWidth: 10, DrawHeight: 10}, {X: 10, DrawWidth: 10, DrawHeight: 10}},
			},
			ctx: func() context.Context {
				ctx, cancel := context.WithCancel(context.Background())
				cancel()
				return ctx
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			acct := &images.Accounting{}
			bmps, _ := bitmaps(acct, solid(10, 10, red), solid(10, 10, blue))

			_, err := New().Compose(tt.ctx(), bmps, tt.plan)
			require.Error(t, err)
			assert.Equal(t, int64(2), acct.Released())
			assert.Equal(t, int64(0), acct.Outstanding())
		})
	}
}

func TestComposeOversizedIsEncodeError(t *testing.T) {
	acct := &images.Accounting{}
	bmps, _ := bitmaps(acct, solid(1, 1, red))
	plan := layout.LayoutPlan{
		CanvasWidth:  10,
		CanvasHeight: layout.MaxCanvasDimension + 1,
		Placements:   []layout.Placement{{DrawWidth: 10, DrawHeight: 10}},
	}

	_, err := New().Compose(context.Background(), bmps, plan)
	var encErr *EncodeError
	assert.True(t, errors.As(err, &encErr))
}

func TestComposeSkipsAlreadyReleased(t *testing.T) {
	acct := &images.Accounting{}
	bmps, sizes := bitmaps(acct, solid(4, 4, red), solid(4, 4, blue))
	require.NoError(t, bmps[1].Release())

	plan, err := layout.Plan(sizes, models.Horizontal)
	require.NoError(t, err)

	_, err = New().Compose(context.Background(), bmps, plan)
	assert.ErrorIs(t, err, images.ErrReleased)
	assert.Equal(t, int64(2), acct.Released())
}

func TestComposeEmpty(t *testing.T) {
	_, err := New().Compose(context.Background(), nil, layout.LayoutPlan{})
	assert.ErrorIs(t, err, layout.ErrEmptyInput)
}
