// Package raster scans a binarized page image for the content features
// the boundary refiner snaps to: long thin horizontal runs (underlines)
// and closed filled shapes (checkbox outlines). It is a collaborator of
// the geometric core; the core itself never touches pixels.
package raster

import (
	"image"

	xdraw "golang.org/x/image/draw"

	"github.com/scanform/fieldkit/internal/geometry"
	"github.com/scanform/fieldkit/internal/refine"
)

// DefaultInkThreshold is the gray level below which a pixel counts as
// content. Scanned forms binarize well around the midpoint.
const DefaultInkThreshold = 128

// Scanner finds content features in a binarized page. It implements
// refine.ContentSource. A Scanner is read-only after construction and
// safe for concurrent use.
type Scanner struct {
	gray      *image.Gray
	threshold uint8
}

// NewScanner binarizes img and returns a scanner over it. Threshold 0
// selects DefaultInkThreshold.
func NewScanner(img image.Image, threshold uint8) *Scanner {
	if threshold == 0 {
		threshold = DefaultInkThreshold
	}

	gray, ok := img.(*image.Gray)
	if !ok {
		gray = image.NewGray(img.Bounds())
		xdraw.Copy(gray, img.Bounds().Min, img, img.Bounds(), xdraw.Src, nil)
	}

	return &Scanner{gray: gray, threshold: threshold}
}

// Raster returns the page dimensions of the scanned image.
func (s *Scanner) Raster() geometry.Raster {
	b := s.gray.Bounds()
	return geometry.Raster{Width: b.Dx(), Height: b.Dy()}
}

// Downscale resizes img so its width does not exceed maxWidth, keeping
// the aspect ratio. Callers scanning very large rasters can trade
// precision for speed, scaling their boxes by the same factor.
func Downscale(img image.Image, maxWidth int) image.Image {
	b := img.Bounds()
	if maxWidth <= 0 || b.Dx() <= maxWidth {
		return img
	}

	h := b.Dy() * maxWidth / b.Dx()
	dst := image.NewGray(image.Rect(0, 0, maxWidth, h))
	xdraw.ApproxBiLinear.Scale(dst, dst.Bounds(), img, b, xdraw.Src, nil)
	return dst
}

func (s *Scanner) ink(x, y int) bool {
	return s.gray.GrayAt(x, y).Y < s.threshold
}

// clip converts a region box to integer pixel bounds clipped to the
// image.
func (s *Scanner) clip(region geometry.Box) image.Rectangle {
	r := image.Rect(int(region.X), int(region.Y), int(region.X2()+0.5), int(region.Y2()+0.5))
	return r.Intersect(s.gray.Bounds())
}

// run is a maximal horizontal stretch of ink pixels in one row.
type run struct {
	y, x0, x1 int // x1 exclusive
}

// LongestLineWithin returns the widest line-like content feature inside
// region. Runs shorter than a quarter of the region width are ignored as
// text strokes; surviving runs on adjacent rows with horizontal overlap
// merge into one line. Returns false when the region holds no line.
func (s *Scanner) LongestLineWithin(region geometry.Box) (geometry.Box, bool) {
	bounds := s.clip(region)
	if bounds.Empty() {
		return geometry.Box{}, false
	}

	minRun := bounds.Dx() / 4
	if minRun < 15 {
		minRun = 15
	}

	var runs []run
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		start := -1
		for x := bounds.Min.X; x <= bounds.Max.X; x++ {
			if x < bounds.Max.X && s.ink(x, y) {
				if start < 0 {
					start = x
				}
				continue
			}
			if start >= 0 && x-start >= minRun {
				runs = append(runs, run{y: y, x0: start, x1: x})
			}
			start = -1
		}
	}

	if len(runs) == 0 {
		return geometry.Box{}, false
	}

	lines := groupRuns(runs)

	best := lines[0]
	for _, l := range lines[1:] {
		if l.Dx() > best.Dx() {
			best = l
		}
	}

	return geometry.Box{
		X:      float64(best.Min.X),
		Y:      float64(best.Min.Y),
		Width:  float64(best.Dx()),
		Height: float64(best.Dy()),
	}, true
}

// groupRuns merges runs on adjacent rows that overlap horizontally into
// line bounding boxes.
func groupRuns(runs []run) []image.Rectangle {
	lines := make([]image.Rectangle, 0, len(runs))

	for _, r := range runs {
		rect := image.Rect(r.x0, r.y, r.x1, r.y+1)
		merged := false
		for i, l := range lines {
			if rect.Min.Y <= l.Max.Y && rect.Max.Y >= l.Min.Y &&
				rect.Min.X < l.Max.X && rect.Max.X > l.Min.X {
				lines[i] = l.Union(rect)
				merged = true
				break
			}
		}
		if !merged {
			lines = append(lines, rect)
		}
	}

	return lines
}

// ShapesWithin returns the connected content components inside region as
// shapes with their bounding box and fill ratio. Components smaller than
// 3x3 pixels are discarded as noise.
func (s *Scanner) ShapesWithin(region geometry.Box) []refine.Shape {
	bounds := s.clip(region)
	if bounds.Empty() {
		return nil
	}

	w, h := bounds.Dx(), bounds.Dy()
	visited := make([]bool, w*h)
	idx := func(x, y int) int { return (y-bounds.Min.Y)*w + (x - bounds.Min.X) }

	var shapes []refine.Shape
	var stack []image.Point

	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			if visited[idx(x, y)] || !s.ink(x, y) {
				continue
			}

			// Flood fill one 4-connected component.
			comp := image.Rect(x, y, x+1, y+1)
			count := 0
			stack = append(stack[:0], image.Pt(x, y))
			visited[idx(x, y)] = true

			for len(stack) > 0 {
				p := stack[len(stack)-1]
				stack = stack[:len(stack)-1]
				count++
				comp = comp.Union(image.Rect(p.X, p.Y, p.X+1, p.Y+1))

				for _, n := range [4]image.Point{
					{p.X - 1, p.Y}, {p.X + 1, p.Y}, {p.X, p.Y - 1}, {p.X, p.Y + 1},
				} {
					if !n.In(bounds) || visited[idx(n.X, n.Y)] || !s.ink(n.X, n.Y) {
						continue
					}
					visited[idx(n.X, n.Y)] = true
					stack = append(stack, n)
				}
			}

			if comp.Dx() < 3 || comp.Dy() < 3 {
				continue
			}

			area := comp.Dx() * comp.Dy()
			shapes = append(shapes, refine.Shape{
				Box: geometry.Box{
					X:      float64(comp.Min.X),
					Y:      float64(comp.Min.Y),
					Width:  float64(comp.Dx()),
					Height: float64(comp.Dy()),
				},
				FillRatio: float64(count) / float64(area),
			})
		}
	}

	return shapes
}
