// Package geometry provides the shared box representation and overlap math
// used throughout the field detection pipeline. All coordinates are
// top-left-origin pixel units of the rasterized page.
package geometry

import (
	"math"
	"sort"
)

// Box represents an axis-aligned rectangle in page-pixel coordinates.
type Box struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// X2 returns the right edge of the box.
func (b Box) X2() float64 { return b.X + b.Width }

// Y2 returns the bottom edge of the box.
func (b Box) Y2() float64 { return b.Y + b.Height }

// Center returns the center point of the box.
func (b Box) Center() (float64, float64) {
	return b.X + b.Width/2, b.Y + b.Height/2
}

// Area returns the area of the box.
func (b Box) Area() float64 { return b.Width * b.Height }

// Valid reports whether the box has positive dimensions and finite
// coordinates. Boxes failing this check are dropped upstream and never
// reach matching or refinement.
func (b Box) Valid() bool {
	for _, v := range []float64{b.X, b.Y, b.Width, b.Height} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return b.Width > 0 && b.Height > 0
}

// Intersect returns the intersection of two boxes and whether it is
// non-empty.
func Intersect(a, b Box) (Box, bool) {
	x1 := math.Max(a.X, b.X)
	y1 := math.Max(a.Y, b.Y)
	x2 := math.Min(a.X2(), b.X2())
	y2 := math.Min(a.Y2(), b.Y2())

	if x1 >= x2 || y1 >= y2 {
		return Box{}, false
	}
	return Box{X: x1, Y: y1, Width: x2 - x1, Height: y2 - y1}, true
}

// OverlapRatio computes intersection-over-union of two boxes. It returns
// 0.0 when the boxes do not intersect or when either box is degenerate,
// so it never divides by a non-positive denominator.
func OverlapRatio(a, b Box) float64 {
	inter, ok := Intersect(a, b)
	if !ok {
		return 0.0
	}

	union := a.Area() + b.Area() - inter.Area()
	if union <= 0 {
		return 0.0
	}
	return inter.Area() / union
}

// VerticalOverlap reports whether two boxes share any vertical extent,
// i.e. neither is strictly above or below the other.
func VerticalOverlap(a, b Box) bool {
	return !(a.Y2() < b.Y || b.Y2() < a.Y)
}

// HorizontalOverlap reports whether two boxes share any horizontal extent.
func HorizontalOverlap(a, b Box) bool {
	return !(a.X2() < b.X || b.X2() < a.X)
}

// CenterDistance returns the Euclidean distance between the centers of
// two boxes.
func CenterDistance(a, b Box) float64 {
	ax, ay := a.Center()
	bx, by := b.Center()
	dx := ax - bx
	dy := ay - by
	return math.Sqrt(dx*dx + dy*dy)
}

// Raster holds the pixel dimensions of the rasterized page, used to
// validate refined boxes against page bounds.
type Raster struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

// Contains reports whether the box lies entirely within the raster.
func (r Raster) Contains(b Box) bool {
	return b.X >= 0 && b.Y >= 0 && b.X2() <= float64(r.Width) && b.Y2() <= float64(r.Height)
}

// SortReadingOrder sorts boxes top-to-bottom, then left-to-right, using
// the provided accessor. The sort is stable so equal positions keep their
// input order.
func SortReadingOrder[T any](items []T, box func(T) Box) {
	sort.SliceStable(items, func(i, j int) bool {
		a, b := box(items[i]), box(items[j])
		if a.Y != b.Y {
			return a.Y < b.Y
		}
		return a.X < b.X
	})
}
