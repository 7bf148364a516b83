// Package match pairs field labels with detected field candidates using
// spatial relationships. This is the central association step: every
// label claims at most one candidate, and every candidate is claimed at
// most once.
package match

import (
	"math"
	"strings"
	"unicode/utf8"

	"github.com/scanform/fieldkit/internal/detect"
	"github.com/scanform/fieldkit/internal/geometry"
	"github.com/scanform/fieldkit/internal/labels"
)

// Distance cutoffs in pixels. MaxPairGate prunes candidates during
// validity checks; MaxCommitDistance is the stricter final cutoff a
// winning candidate must still clear.
const (
	DefaultMaxPairGate       = 300.0
	DefaultMaxCommitDistance = 200.0

	// Labels at most this long may caption a checkbox without a
	// selection keyword (standalone option captions like "Other").
	shortCaptionLength = 20
)

// Pair is a committed association between one label and one field
// candidate. Distance carries the winning score as a diagnostic.
type Pair struct {
	Label    labels.Label     `json:"label"`
	Field    detect.Candidate `json:"field"`
	Distance float64          `json:"distance"`
}

// Config tunes the matcher.Zero values fall back to the defaults, so a
// zero Config behaves like DefaultConfig.
type Config struct {
	// MaxPairGate rejects any label/candidate pairing farther apart than
	// this during validity checking.
	MaxPairGate float64 `json:"max_pair_gate"`
	// MaxCommitDistance is the cutoff the best candidate must beat for a
	// pair to be committed.
	MaxCommitDistance float64 `json:"max_commit_distance"`
	// CheckboxKeywords mark label texts compatible with checkbox fields.
	CheckboxKeywords []string `json:"checkbox_keywords"`
}

// DefaultConfig returns the matcher defaults.
func DefaultConfig() Config {
	return Config{
		MaxPairGate:       DefaultMaxPairGate,
		MaxCommitDistance: DefaultMaxCommitDistance,
		CheckboxKeywords: []string{
			"check", "select", "mark", "yes", "no", "requested", "applicable",
			"premium", "processing", "expedite", "priority",
		},
	}
}

// Stats reports association outcomes for observability. Unmatched labels
// and fields are normal conditions, not errors.
type Stats struct {
	MatchedPairs    int `json:"matched_pairs"`
	UnmatchedLabels int `json:"unmatched_labels"`
	UnmatchedFields int `json:"unmatched_fields"`
	DroppedRecords  int `json:"dropped_records"`
}

// Matcher assigns labels to field candidates greedily in reading order.
type Matcher struct {
	config Config
}

// NewMatcher creates a matcher. Zero config fields take their defaults.
func NewMatcher(config Config) *Matcher {
	def := DefaultConfig()
	if config.MaxPairGate <= 0 {
		config.MaxPairGate = def.MaxPairGate
	}
	if config.MaxCommitDistance <= 0 {
		config.MaxCommitDistance = def.MaxCommitDistance
	}
	if len(config.CheckboxKeywords) == 0 {
		config.CheckboxKeywords = def.CheckboxKeywords
	}
	return &Matcher{config: config}
}

// Match associates each label with its best unused field candidate.
//
// Labels are processed in reading order (ascending y, then x). When two
// labels compete for the same candidate, the earlier label in reading
// order wins. This greedy assignment is a deliberate, documented
// tie-break rather than a global optimum; see the package tests for the
// pinned behavior. Labels with no candidate in range produce no pair.
//
// Malformed records (invalid boxes) are dropped and counted, never
// returned as an error.
func (m *Matcher) Match(lbls []labels.Label, fields []detect.Candidate) ([]Pair, Stats) {
	var stats Stats

	ordered := make([]labels.Label, 0, len(lbls))
	for _, l := range lbls {
		if !l.Box.Valid() {
			stats.DroppedRecords++
			continue
		}
		ordered = append(ordered, l)
	}
	geometry.SortReadingOrder(ordered, func(l labels.Label) geometry.Box { return l.Box })

	pool := make([]detect.Candidate, 0, len(fields))
	for _, f := range fields {
		if !f.Box.Valid() {
			stats.DroppedRecords++
			continue
		}
		pool = append(pool, f)
	}

	used := make([]bool, len(pool))
	pairs := make([]Pair, 0, len(ordered))

	for _, label := range ordered {
		best := -1
		bestDistance := math.Inf(1)

		for i, field := range pool {
			if used[i] {
				continue
			}
			d := Distance(label.Box, field.Box)
			if !m.validPairing(label, field, d) {
				continue
			}
			if d < bestDistance {
				best = i
				bestDistance = d
			}
		}

		if best >= 0 && bestDistance < m.config.MaxCommitDistance {
			pairs = append(pairs, Pair{Label: label, Field: pool[best], Distance: bestDistance})
			used[best] = true
		} else {
			stats.UnmatchedLabels++
		}
	}

	stats.MatchedPairs = len(pairs)
	stats.UnmatchedFields = len(pool) - len(pairs)
	return pairs, stats
}

// validPairing gates a candidate before it can compete for a label. The
// gate distance is looser than the commit cutoff: it only prunes, it
// never accepts.
func (m *Matcher) validPairing(label labels.Label, field detect.Candidate, distance float64) bool {
	if distance > m.config.MaxPairGate {
		return false
	}

	if field.Kind == detect.KindCheckbox {
		text := strings.ToLower(label.Text)
		for _, kw := range m.config.CheckboxKeywords {
			if strings.Contains(text, kw) {
				return true
			}
		}
		// Short labels pass as standalone option captions.
		return utf8.RuneCountInString(label.Text) <= shortCaptionLength
	}

	return true
}

// Distance scores how plausibly a label describes a field; lower is
// better. The two dominant form layouts get an aligned-gap score with a
// half-weight penalty for center misalignment:
//
//   - label entirely left of the field with vertical overlap:
//     horizontal gap + 0.5*|vertical center delta|
//   - label entirely above the field with horizontal overlap:
//     vertical gap + 0.5*|horizontal center delta|
//
// Anything else falls back to the Euclidean distance between centers.
func Distance(label, field geometry.Box) float64 {
	if label.X2() <= field.X && geometry.VerticalOverlap(label, field) {
		_, lcy := label.Center()
		_, fcy := field.Center()
		return (field.X - label.X2()) + 0.5*math.Abs(lcy-fcy)
	}

	if label.Y2() <= field.Y && geometry.HorizontalOverlap(label, field) {
		lcx, _ := label.Center()
		fcx, _ := field.Center()
		return (field.Y - label.Y2()) + 0.5*math.Abs(lcx-fcx)
	}

	return geometry.CenterDistance(label, field)
}
