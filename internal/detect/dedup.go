package detect

import (
	"sort"

	"github.com/scanform/fieldkit/internal/geometry"
)

// Overlap thresholds above which two candidates are considered duplicates.
// These values are empirically tuned; override them through config rather
// than editing the defaults.
const (
	DefaultOverlapThreshold       = 0.7
	CheckboxOverlapThreshold      = 0.5
	MultiStrategyOverlapThreshold = 0.3
)

// Deduplicate removes redundant overlapping detections, keeping the
// highest-confidence survivor. Candidates are sorted descending by
// confidence, ties broken by larger area so the output is stable for
// identical confidences, then accepted greedily: a candidate survives
// only if its overlap ratio with every already-accepted candidate stays
// at or below the threshold.
//
// Running Deduplicate on its own output returns the same set.
func Deduplicate(cands []Candidate, threshold float64) []Candidate {
	if len(cands) == 0 {
		return nil
	}

	sorted := make([]Candidate, len(cands))
	copy(sorted, cands)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].Confidence != sorted[j].Confidence {
			return sorted[i].Confidence > sorted[j].Confidence
		}
		return sorted[i].Box.Area() > sorted[j].Box.Area()
	})

	// O(n^2) but n is tens to low hundreds per page.
	accepted := make([]Candidate, 0, len(sorted))
	for _, c := range sorted {
		duplicate := false
		for _, a := range accepted {
			if geometry.OverlapRatio(c.Box, a.Box) > threshold {
				duplicate = true
				break
			}
		}
		if !duplicate {
			accepted = append(accepted, c)
		}
	}

	return accepted
}

// DeduplicateByKind splits candidates by kind and deduplicates each group
// with its kind-specific threshold, then merges the groups with the
// multi-strategy threshold. Several detection strategies can report the
// same physical field, so the union pass uses the loosest threshold.
func DeduplicateByKind(cands []Candidate, textThreshold, checkboxThreshold, unionThreshold float64) []Candidate {
	var text, checkbox []Candidate
	for _, c := range cands {
		switch c.Kind {
		case KindCheckbox:
			checkbox = append(checkbox, c)
		default:
			text = append(text, c)
		}
	}

	merged := append(Deduplicate(text, textThreshold), Deduplicate(checkbox, checkboxThreshold)...)
	return Deduplicate(merged, unionThreshold)
}
