package raster

import (
	"image"
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scanform/fieldkit/internal/geometry"
	"github.com/scanform/fieldkit/internal/refine"
)

func blankPage(w, h int) *image.Gray {
	img := image.NewGray(image.Rect(0, 0, w, h))
	for i := range img.Pix {
		img.Pix[i] = 255
	}
	return img
}

func fill(img *image.Gray, r image.Rectangle) {
	for y := r.Min.Y; y < r.Max.Y; y++ {
		for x := r.Min.X; x < r.Max.X; x++ {
			img.SetGray(x, y, color.Gray{Y: 0})
		}
	}
}

// outline draws a 1px rectangle border, the shape of a checkbox.
func outline(img *image.Gray, r image.Rectangle) {
	fill(img, image.Rect(r.Min.X, r.Min.Y, r.Max.X, r.Min.Y+1))
	fill(img, image.Rect(r.Min.X, r.Max.Y-1, r.Max.X, r.Max.Y))
	fill(img, image.Rect(r.Min.X, r.Min.Y, r.Min.X+1, r.Max.Y))
	fill(img, image.Rect(r.Max.X-1, r.Min.Y, r.Max.X, r.Max.Y))
}

func TestLongestLineWithin(t *testing.T) {
	img := blankPage(400, 200)
	// An underline 150px wide, 2px thick.
	fill(img, image.Rect(100, 140, 250, 142))

	s := NewScanner(img, 0)
	line, ok := s.LongestLineWithin(geometry.Box{X: 80, Y: 100, Width: 220, Height: 60})

	require.True(t, ok)
	assert.Equal(t, 100.0, line.X)
	assert.Equal(t, 140.0, line.Y)
	assert.Equal(t, 150.0, line.Width)
	assert.Equal(t, 2.0, line.Height)
}

func TestLongestLineIgnoresTextStrokes(t *testing.T) {
	img := blankPage(400, 200)
	// Short marks the width of glyph strokes, no underline.
	fill(img, image.Rect(100, 120, 108, 122))
	fill(img, image.Rect(120, 120, 126, 122))

	s := NewScanner(img, 0)
	_, ok := s.LongestLineWithin(geometry.Box{X: 80, Y: 100, Width: 220, Height: 60})

	assert.False(t, ok)
}

func TestLongestLinePicksWidest(t *testing.T) {
	img := blankPage(400, 200)
	fill(img, image.Rect(100, 120, 180, 122))
	fill(img, image.Rect(100, 160, 280, 162))

	s := NewScanner(img, 0)
	line, ok := s.LongestLineWithin(geometry.Box{X: 90, Y: 100, Width: 300, Height: 80})

	require.True(t, ok)
	assert.Equal(t, 160.0, line.Y)
	assert.Equal(t, 180.0, line.Width)
}

func TestLongestLineEmptyRegion(t *testing.T) {
	s := NewScanner(blankPage(400, 200), 0)

	_, ok := s.LongestLineWithin(geometry.Box{X: 500, Y: 500, Width: 50, Height: 50})

	assert.False(t, ok)
}

func TestShapesWithinFindsCheckboxOutline(t *testing.T) {
	img := blankPage(400, 200)
	outline(img, image.Rect(100, 100, 120, 120))

	s := NewScanner(img, 0)
	shapes := s.ShapesWithin(geometry.Box{X: 90, Y: 90, Width: 50, Height: 50})

	require.Len(t, shapes, 1)
	assert.Equal(t, geometry.Box{X: 100, Y: 100, Width: 20, Height: 20}, shapes[0].Box)
	// A 1px outline fills only the border of its bounding box.
	assert.Greater(t, shapes[0].FillRatio, 0.1)
	assert.Less(t, shapes[0].FillRatio, 0.5)
}

func TestShapesWithinDiscardsNoise(t *testing.T) {
	img := blankPage(400, 200)
	// Specks below the 3x3 minimum.
	fill(img, image.Rect(100, 100, 102, 102))
	fill(img, image.Rect(110, 110, 111, 111))

	s := NewScanner(img, 0)
	shapes := s.ShapesWithin(geometry.Box{X: 90, Y: 90, Width: 50, Height: 50})

	assert.Empty(t, shapes)
}

func TestScannerAsContentSource(t *testing.T) {
	img := blankPage(400, 200)
	var _ refine.ContentSource = NewScanner(img, 0)
}

func TestDownscale(t *testing.T) {
	img := blankPage(800, 400)

	small := Downscale(img, 400)
	assert.Equal(t, 400, small.Bounds().Dx())
	assert.Equal(t, 200, small.Bounds().Dy())

	// Already small enough: returned as-is.
	same := Downscale(img, 1000)
	assert.Equal(t, img.Bounds(), same.Bounds())
}

func TestRasterDimensions(t *testing.T) {
	s := NewScanner(blankPage(640, 480), 0)

	assert.Equal(t, geometry.Raster{Width: 640, Height: 480}, s.Raster())
}
