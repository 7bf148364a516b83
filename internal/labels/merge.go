package labels

import (
	"math"
	"strings"

	"github.com/scanform/fieldkit/internal/geometry"
)

// Merge gap defaults in pixels. OCR reports individual words; fragments
// this close on the same line almost always belong to one label.
const (
	DefaultMergeHorizontalGap = 10.0
	DefaultMergeVerticalSlack = 5.0
)

// MergeNearby joins fragments that sit close together on the same line
// into a single label: combined text, union box, mean confidence. The
// input must be in reading order; MergeNearby sorts a copy to make sure.
func MergeNearby(in []Label, horizontalGap, verticalSlack float64) []Label {
	if len(in) == 0 {
		return nil
	}

	sorted := make([]Label, len(in))
	copy(sorted, in)
	geometry.SortReadingOrder(sorted, func(l Label) geometry.Box { return l.Box })

	merged := make([]Label, 0, len(sorted))
	group := []Label{sorted[0]}

	for _, l := range sorted[1:] {
		last := group[len(group)-1]
		gap := l.Box.X - last.Box.X2()
		overlap := math.Min(l.Box.Y2(), last.Box.Y2()) - math.Max(l.Box.Y, last.Box.Y)

		if gap <= horizontalGap && overlap >= -verticalSlack {
			group = append(group, l)
			continue
		}
		merged = append(merged, mergeGroup(group))
		group = []Label{l}
	}
	merged = append(merged, mergeGroup(group))

	return merged
}

func mergeGroup(group []Label) Label {
	if len(group) == 1 {
		return group[0]
	}

	texts := make([]string, 0, len(group))
	minX, minY := math.Inf(1), math.Inf(1)
	maxX, maxY := math.Inf(-1), math.Inf(-1)
	var confSum float64

	for _, l := range group {
		texts = append(texts, l.Text)
		minX = math.Min(minX, l.Box.X)
		minY = math.Min(minY, l.Box.Y)
		maxX = math.Max(maxX, l.Box.X2())
		maxY = math.Max(maxY, l.Box.Y2())
		confSum += l.Confidence
	}

	return Label{
		Text:       strings.Join(texts, " "),
		Box:        geometry.Box{X: minX, Y: minY, Width: maxX - minX, Height: maxY - minY},
		Confidence: confSum / float64(len(group)),
	}
}
