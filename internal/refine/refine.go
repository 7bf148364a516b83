// Package refine snaps approximate field boxes to the detected content
// inside them and validates the result against the page raster. It
// produces the final output records of the pipeline.
package refine

import (
	"sort"

	"github.com/scanform/fieldkit/internal/detect"
	"github.com/scanform/fieldkit/internal/geometry"
	"github.com/scanform/fieldkit/internal/labels"
	"github.com/scanform/fieldkit/internal/match"
)

// Field is a finished, validated form field. BBox is [x1, y1, x2, y2]
// in page-pixel coordinates; Confidence is normalized to [0, 1].
type Field struct {
	Name       string      `json:"name"`
	Type       detect.Kind `json:"type"`
	BBox       [4]float64  `json:"bbox"`
	Confidence float64     `json:"confidence"`
}

// Shape is a closed content region reported by the raster collaborator,
// with the fraction of its bounding box covered by content.
type Shape struct {
	Box       geometry.Box `json:"box"`
	FillRatio float64      `json:"fill_ratio"`
}

// ContentSource supplies the detected content features inside a page
// region. The raster collaborator implements it; tests substitute fakes.
type ContentSource interface {
	// LongestLineWithin returns the most prominent long, thin horizontal
	// content run inside region, or false when none exists.
	LongestLineWithin(region geometry.Box) (geometry.Box, bool)
	// ShapesWithin returns the closed shapes inside region.
	ShapesWithin(region geometry.Box) []Shape
}

// Config tunes refinement and final validation. Zero values take the
// defaults.
type Config struct {
	// MinFieldSize rejects refined boxes narrower or shorter than this.
	MinFieldSize float64 `json:"min_field_size"`
	// MaxWidthRatio rejects refined boxes wider than this fraction of
	// the page.
	MaxWidthRatio float64 `json:"max_width_ratio"`
	// MaxHeightRatio rejects refined boxes taller than this fraction of
	// the page.
	MaxHeightRatio float64 `json:"max_height_ratio"`
	// FinalOverlapThreshold deduplicates finished records whose boxes
	// overlap more than this.
	FinalOverlapThreshold float64 `json:"final_overlap_threshold"`
	// MinLineExpansion is the minimum upward expansion of a snapped text
	// line, making room for the text sitting above the underline.
	MinLineExpansion float64 `json:"min_line_expansion"`
}

// DefaultConfig returns the refinement defaults.
func DefaultConfig() Config {
	return Config{
		MinFieldSize:          5,
		MaxWidthRatio:         0.9,
		MaxHeightRatio:        0.2,
		FinalOverlapThreshold: 0.5,
		MinLineExpansion:      20,
	}
}

// Refiner tightens approximate field boxes against detected content.
type Refiner struct {
	config Config
}

// NewRefiner creates a refiner. Zero config fields take their defaults.
func NewRefiner(config Config) *Refiner {
	def := DefaultConfig()
	if config.MinFieldSize <= 0 {
		config.MinFieldSize = def.MinFieldSize
	}
	if config.MaxWidthRatio <= 0 {
		config.MaxWidthRatio = def.MaxWidthRatio
	}
	if config.MaxHeightRatio <= 0 {
		config.MaxHeightRatio = def.MaxHeightRatio
	}
	if config.FinalOverlapThreshold <= 0 {
		config.FinalOverlapThreshold = def.FinalOverlapThreshold
	}
	if config.MinLineExpansion <= 0 {
		config.MinLineExpansion = def.MinLineExpansion
	}
	return &Refiner{config: config}
}

// Refine turns committed pairs into finished fields. Each pair is
// processed independently: its box is snapped to the content signal for
// its kind, validated against the raster, and dropped entirely when
// validation fails. Finished records are deduplicated on overlap and
// returned in reading order.
func (r *Refiner) Refine(pairs []match.Pair, src ContentSource, raster geometry.Raster) []Field {
	fields := make([]Field, 0, len(pairs))

	for _, pair := range pairs {
		snapped := r.snap(pair.Field, src)
		if !r.validate(snapped, raster) {
			continue
		}

		fields = append(fields, Field{
			Name:       labels.CleanText(pair.Label.Text),
			Type:       pair.Field.Kind,
			BBox:       [4]float64{snapped.X, snapped.Y, snapped.X2(), snapped.Y2()},
			Confidence: confidence(pair),
		})
	}

	fields = r.dedupFinal(fields)

	sort.SliceStable(fields, func(i, j int) bool {
		if fields[i].BBox[1] != fields[j].BBox[1] {
			return fields[i].BBox[1] < fields[j].BBox[1]
		}
		return fields[i].BBox[0] < fields[j].BBox[0]
	})

	return fields
}

// snap recomputes a tighter box from the kind-specific content signal,
// falling back to the approximate box when no feature is found.
func (r *Refiner) snap(field detect.Candidate, src ContentSource) geometry.Box {
	if src == nil {
		return field.Box
	}

	switch field.Kind {
	case detect.KindCheckbox:
		return r.snapCheckbox(field.Box, src)
	default:
		return r.snapText(field.Box, src)
	}
}

// snapText snaps a text field to its underline, then expands upward to
// include the text area sitting above the line. The expansion is
// max(3*lineHeight, MinLineExpansion), clamped to the region top.
func (r *Refiner) snapText(region geometry.Box, src ContentSource) geometry.Box {
	line, ok := src.LongestLineWithin(region)
	if !ok {
		return region
	}

	expansion := 3 * line.Height
	if expansion < r.config.MinLineExpansion {
		expansion = r.config.MinLineExpansion
	}

	top := line.Y2() - expansion
	if top < region.Y {
		top = region.Y
	}

	return geometry.Box{
		X:      line.X,
		Y:      top,
		Width:  line.Width,
		Height: line.Y2() - top,
	}
}

// snapCheckbox snaps to the most square-like, best-filled closed shape
// in the region.
func (r *Refiner) snapCheckbox(region geometry.Box, src ContentSource) geometry.Box {
	shapes := src.ShapesWithin(region)

	best := geometry.Box{}
	bestScore := 0.0
	for _, s := range shapes {
		score := squareness(s.Box) * s.FillRatio
		if score > bestScore {
			bestScore = score
			best = s.Box
		}
	}

	if bestScore <= 0 {
		return region
	}
	return best
}

// validate rejects refined boxes that leave the page raster or have
// implausible dimensions for a form field.
func (r *Refiner) validate(b geometry.Box, raster geometry.Raster) bool {
	if !raster.Contains(b) {
		return false
	}
	if b.Width < r.config.MinFieldSize || b.Height < r.config.MinFieldSize {
		return false
	}
	if b.Width > float64(raster.Width)*r.config.MaxWidthRatio {
		return false
	}
	if b.Height > float64(raster.Height)*r.config.MaxHeightRatio {
		return false
	}
	return true
}

// dedupFinal removes finished records whose boxes overlap beyond the
// threshold, keeping the higher-confidence record.
func (r *Refiner) dedupFinal(fields []Field) []Field {
	if len(fields) == 0 {
		return fields
	}

	sorted := make([]Field, len(fields))
	copy(sorted, fields)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Confidence > sorted[j].Confidence
	})

	unique := make([]Field, 0, len(sorted))
	for _, f := range sorted {
		duplicate := false
		for _, u := range unique {
			if geometry.OverlapRatio(bboxToBox(f.BBox), bboxToBox(u.BBox)) > r.config.FinalOverlapThreshold {
				duplicate = true
				break
			}
		}
		if !duplicate {
			unique = append(unique, f)
		}
	}

	return unique
}

// confidence combines label and field confidence onto a [0, 1] scale.
// Labels report 0-100, candidates 0-1; the weaker signal wins.
func confidence(p match.Pair) float64 {
	c := p.Label.Confidence
	if fc := p.Field.Confidence * 100; fc < c {
		c = fc
	}
	return c / 100
}

func squareness(b geometry.Box) float64 {
	long := b.Width
	short := b.Height
	if short > long {
		long, short = short, long
	}
	if long <= 0 {
		return 0
	}
	return short / long
}

func bboxToBox(bbox [4]float64) geometry.Box {
	return geometry.Box{
		X:      bbox[0],
		Y:      bbox[1],
		Width:  bbox[2] - bbox[0],
		Height: bbox[3] - bbox[1],
	}
}
