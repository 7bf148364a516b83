// Package detect defines field candidate records produced by the detection
// collaborators and the overlap-based deduplication applied to them.
package detect

import (
	"fmt"

	"github.com/scanform/fieldkit/internal/geometry"
)

// Kind identifies the type of a detected form field.
type Kind string

const (
	KindText     Kind = "text"
	KindCheckbox Kind = "checkbox"
)

// Valid reports whether the kind is one of the known field kinds.
func (k Kind) Valid() bool {
	return k == KindText || k == KindCheckbox
}

// Candidate represents a detected form field region before label
// association. Method tags the detection strategy that produced the
// candidate; it is opaque to the pipeline and only used for diagnostics
// and deduplication grouping.
type Candidate struct {
	Box        geometry.Box `json:"box"`
	Kind       Kind         `json:"kind"`
	Confidence float64      `json:"confidence"`
	Method     string       `json:"method,omitempty"`
}

func (c Candidate) String() string {
	return fmt.Sprintf("Candidate(%s, %.0fx%.0f@%.0f,%.0f, conf=%.2f)",
		c.Kind, c.Box.Width, c.Box.Height, c.Box.X, c.Box.Y, c.Confidence)
}

// Limits constrains candidate sizes per field kind during validation.
type Limits struct {
	TextMinWidth       float64 `json:"text_min_width"`
	TextMaxWidthRatio  float64 `json:"text_max_width_ratio"`
	TextMaxHeightRatio float64 `json:"text_max_height_ratio"`
	CheckboxMinSize    float64 `json:"checkbox_min_size"`
	CheckboxMaxSize    float64 `json:"checkbox_max_size"`
}

// DefaultLimits returns the default candidate size constraints.
func DefaultLimits() Limits {
	return Limits{
		TextMinWidth:       30,
		TextMaxWidthRatio:  0.8,
		TextMaxHeightRatio: 0.1,
		CheckboxMinSize:    8,
		CheckboxMaxSize:    60,
	}
}

// ValidateCandidates drops candidates that fall outside the page raster,
// carry a malformed box, or violate the kind-specific size limits. It
// returns the surviving candidates and the number dropped. A bad
// candidate is a data-quality condition, never an error.
func ValidateCandidates(cands []Candidate, raster geometry.Raster, limits Limits) ([]Candidate, int) {
	valid := make([]Candidate, 0, len(cands))
	dropped := 0

	for _, c := range cands {
		if !c.Box.Valid() || !raster.Contains(c.Box) {
			dropped++
			continue
		}

		switch c.Kind {
		case KindText:
			if c.Box.Width < limits.TextMinWidth ||
				c.Box.Width > float64(raster.Width)*limits.TextMaxWidthRatio ||
				c.Box.Height > float64(raster.Height)*limits.TextMaxHeightRatio {
				dropped++
				continue
			}
		case KindCheckbox:
			if c.Box.Width < limits.CheckboxMinSize || c.Box.Height < limits.CheckboxMinSize ||
				c.Box.Width > limits.CheckboxMaxSize || c.Box.Height > limits.CheckboxMaxSize {
				dropped++
				continue
			}
		}

		valid = append(valid, c)
	}

	return valid, dropped
}
