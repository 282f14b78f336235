package images

import (
	"errors"
	"image"
	"sync/atomic"
)

// ErrReleased is returned when a bitmap is released more than once
var ErrReleased = errors.New("bitmap already released")

// Bitmap is a decoded raster owned by a single stitch operation.
// It must be released exactly once after use.
type Bitmap struct {
	img      image.Image
	width    int
	height   int
	released atomic.Bool
	acct     *Accounting
}

// NewBitmap wraps a decoded image. A nil Accounting disables tracking.
func NewBitmap(img image.Image, acct *Accounting) *Bitmap {
	b := img.Bounds()
	bmp := &Bitmap{
		img:    img,
		width:  b.Dx(),
		height: b.Dy(),
		acct:   acct,
	}
	if acct != nil {
		acct.acquired.Add(1)
	}
	return bmp
}

func (b *Bitmap) Width() int  { return b.width }
func (b *Bitmap) Height() int { return b.height }

// Image returns the decoded pixels, or nil once the bitmap is released
func (b *Bitmap) Image() image.Image {
	if b.released.Load() {
		return nil
	}
	return b.img
}

// Released reports whether Release has been called
func (b *Bitmap) Released() bool {
	return b.released.Load()
}

// Release drops the decode buffer. Only the first call has an effect.
func (b *Bitmap) Release() error {
	if !b.released.CompareAndSwap(false, true) {
		return ErrReleased
	}
	b.img = nil
	if b.acct != nil {
		b.acct.released.Add(1)
	}
	return nil
}

// Accounting counts decode buffers handed out and given back
type Accounting struct {
	acquired atomic.Int64
	released atomic.Int64
}

func (a *Accounting) Acquired() int64 { return a.acquired.Load() }
func (a *Accounting) Released() int64 { return a.released.Load() }

// Outstanding is the number of bitmaps not yet released
func (a *Accounting) Outstanding() int64 {
	return a.acquired.Load() - a.released.Load()
}
