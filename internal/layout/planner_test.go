package layout

import (
	"errors"
	"math/rand"
	"testing"

	"github.com/lehigh-university-libraries/stitcher/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPlanHorizontal(t *testing.T) {
	sizes := []Size{{100, 100}, {100, 200}, {100, 150}}

	plan, err := Plan(sizes, models.Horizontal)
	require.NoError(t, err)

	assert.Equal(t, models.Horizontal, plan.Orientation)
	assert.Equal(t, 433, plan.CanvasWidth)
	assert.Equal(t, 200, plan.CanvasHeight)
	assert.Equal(t, []Placement{
		{X: 0, Y: 0, DrawWidth: 200, DrawHeight: 200},
		{X: 200, Y: 0, DrawWidth: 100, DrawHeight: 200},
		{X: 300, Y: 0, DrawWidth: 133, DrawHeight: 200},
	}, plan.Placements)
}

func TestPlanVertical(t *testing.T) {
	sizes := []Size{{200, 100}, {100, 100}, {300, 50}}

	plan, err := Plan(sizes, models.Vertical)
	require.NoError(t, err)

	assert.Equal(t, models.Vertical, plan.Orientation)
	assert.Equal(t, 300, plan.CanvasWidth)
	// 100*1.5=150, 100*3=300, 50*1=50
	assert.Equal(t, 500, plan.CanvasHeight)
	assert.Equal(t, []Placement{
		{X: 0, Y: 0, DrawWidth: 300, DrawHeight: 150},
		{X: 0, Y: 150, DrawWidth: 300, DrawHeight: 300},
		{X: 0, Y: 450, DrawWidth: 300, DrawHeight: 50},
	}, plan.Placements)
}

func TestPlanFallsBackToVertical(t *testing.T) {
	tests := []struct {
		name  string
		sizes []Size
	}{
		{
			name:  "width over limit",
			sizes: []Size{{20000, 1000}, {20000, 1000}},
		},
		{
			name:  "height over limit",
			sizes: []Size{{100, 40000}},
		},
		{
			name:  "scaled width over limit",
			sizes: []Size{{100, 10}, {100, 4000}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			plan, err := Plan(tt.sizes, models.Horizontal)
			require.NoError(t, err)
			assert.Equal(t, models.Vertical, plan.Orientation)
			assert.Len(t, plan.Placements, len(tt.sizes))
		})
	}
}

func TestPlanAtLimitStaysHorizontal(t *testing.T) {
	plan, err := Plan([]Size{{MaxCanvasDimension, 10}}, models.Horizontal)
	require.NoError(t, err)
	assert.Equal(t, models.Horizontal, plan.Orientation)
	assert.Equal(t, MaxCanvasDimension, plan.CanvasWidth)
}

func TestPlanEmptyInput(t *testing.T) {
	_, err := Plan(nil, models.Horizontal)
	assert.True(t, errors.Is(err, ErrEmptyInput))
	assert.True(t, IsEmptyInput(err))
}

func TestPlanInvalidSize(t *testing.T) {
	_, err := Plan([]Size{{10, 10}, {0, 10}}, models.Horizontal)
	var sizeErr *InvalidSizeError
	require.True(t, errors.As(err, &sizeErr))
	assert.Equal(t, 1, sizeErr.Index)
}

func TestPlanHorizontalProperties(t *testing.T) {
	rng := rand.New(rand.NewSource(7))

	for i := 0; i < 200; i++ {
		n := 1 + rng.Intn(8)
		sizes := make([]Size, n)
		maxHeight := 0
		for j := range sizes {
			sizes[j] = Size{Width: 1 + rng.Intn(800), Height: 1 + rng.Intn(800)}
			maxHeight = max(maxHeight, sizes[j].Height)
		}

		plan, err := Plan(sizes, models.Horizontal)
		require.NoError(t, err)
		require.Len(t, plan.Placements, n)

		if plan.Orientation != models.Horizontal {
			assert.True(t, Exceeds(planHorizontal(sizes)))
			continue
		}
		assert.Equal(t, maxHeight, plan.CanvasHeight)

		sum, x := 0, 0
		for j, p := range plan.Placements {
			assert.Equal(t, scale(sizes[j].Width, maxHeight, sizes[j].Height), p.DrawWidth)
			assert.Equal(t, x, p.X)
			x += p.DrawWidth
			sum += p.DrawWidth
		}
		assert.Equal(t, sum, plan.CanvasWidth)
	}
}

func TestScaleRoundsHalfUp(t *testing.T) {
	assert.Equal(t, 3, scale(5, 1, 2))
	assert.Equal(t, 133, scale(100, 200, 150))
	assert.Equal(t, 167, scale(100, 250, 150))
}
