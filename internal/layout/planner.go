package layout

import (
	"errors"
	"fmt"
	"math"

	"github.com/lehigh-university-libraries/stitcher/internal/models"
)

// MaxCanvasDimension is the largest width or height a raster surface may have
const MaxCanvasDimension = 32767

// EmptyInputError is returned when there is nothing to lay out
type EmptyInputError struct{}

func (EmptyInputError) Error() string { return "no images to stitch" }

// ErrEmptyInput is the EmptyInputError value callers can match with errors.Is
var ErrEmptyInput error = EmptyInputError{}

// InvalidSizeError reports an item without a usable width or height
type InvalidSizeError struct {
	Index  int
	Width  int
	Height int
}

func (e *InvalidSizeError) Error() string {
	return fmt.Sprintf("image %d has invalid size %d x %d", e.Index, e.Width, e.Height)
}

// Size is the natural size of one item
type Size struct {
	Width  int
	Height int
}

// Placement is where one item is drawn on the canvas
type Placement struct {
	X          int `json:"x"`
	Y          int `json:"y"`
	DrawWidth  int `json:"drawWidth"`
	DrawHeight int `json:"drawHeight"`
}

// LayoutPlan is the canvas geometry for one stitch
type LayoutPlan struct {
	CanvasWidth  int                `json:"canvasWidth"`
	CanvasHeight int                `json:"canvasHeight"`
	Orientation  models.Orientation `json:"orientation"`
	Placements   []Placement        `json:"placements"`
}

// Plan computes placements for items in order. A horizontal request whose
// canvas would exceed MaxCanvasDimension on either axis is laid out
// vertically instead.
func Plan(sizes []Size, requested models.Orientation) (LayoutPlan, error) {
	if len(sizes) == 0 {
		return LayoutPlan{}, ErrEmptyInput
	}
	for i, s := range sizes {
		if s.Width <= 0 || s.Height <= 0 {
			return LayoutPlan{}, &InvalidSizeError{Index: i, Width: s.Width, Height: s.Height}
		}
	}

	if requested != models.Vertical {
		plan := planHorizontal(sizes)
		if !exceedsLimit(plan) {
			return plan, nil
		}
	}
	return planVertical(sizes), nil
}

// Exceeds reports whether a plan violates the raster surface limit
func Exceeds(plan LayoutPlan) bool {
	return exceedsLimit(plan)
}

func exceedsLimit(plan LayoutPlan) bool {
	return plan.CanvasWidth > MaxCanvasDimension || plan.CanvasHeight > MaxCanvasDimension
}

func planHorizontal(sizes []Size) LayoutPlan {
	target := 0
	for _, s := range sizes {
		target = max(target, s.Height)
	}

	plan := LayoutPlan{
		CanvasHeight: target,
		Orientation:  models.Horizontal,
		Placements:   make([]Placement, len(sizes)),
	}
	x := 0
	for i, s := range sizes {
		w := scale(s.Width, target, s.Height)
		plan.Placements[i] = Placement{X: x, Y: 0, DrawWidth: w, DrawHeight: target}
		x += w
	}
	plan.CanvasWidth = x
	return plan
}

func planVertical(sizes []Size) LayoutPlan {
	target := 0
	for _, s := range sizes {
		target = max(target, s.Width)
	}

	plan := LayoutPlan{
		CanvasWidth: target,
		Orientation: models.Vertical,
		Placements:  make([]Placement, len(sizes)),
	}
	y := 0
	for i, s := range sizes {
		h := scale(s.Height, target, s.Width)
		plan.Placements[i] = Placement{X: 0, Y: y, DrawWidth: target, DrawHeight: h}
		y += h
	}
	plan.CanvasHeight = y
	return plan
}

// scale returns round(length * target / base) with halves rounded up
func scale(length, target, base int) int {
	return int(math.Floor(float64(length)*(float64(target)/float64(base)) + 0.5))
}

// IsEmptyInput reports whether err is an EmptyInputError
func IsEmptyInput(err error) bool {
	var e EmptyInputError
	return errors.As(err, &e)
}
