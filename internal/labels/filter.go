package labels

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// FilterConfig controls which text fragments qualify as field labels.
type FilterConfig struct {
	// MinConfidence rejects fragments the OCR engine was unsure about
	// (0-100 scale).
	MinConfidence float64 `json:"min_confidence"`
	// NoiseTokens are substrings of page furniture and boilerplate that
	// disqualify a fragment outright.
	NoiseTokens []string `json:"noise_tokens"`
	// Keywords are substrings that mark a fragment as a likely label.
	Keywords []string `json:"keywords"`
	// MinAcceptLength accepts any fragment longer than this even without
	// a keyword, colon, or parenthesis pair.
	MinAcceptLength int `json:"min_accept_length"`
}

// DefaultFilterConfig returns the filter defaults tuned for scanned
// government and agency forms.
func DefaultFilterConfig() FilterConfig {
	return FilterConfig{
		MinConfidence: 30,
		NoiseTokens: []string{
			"page", "form", "uscis", "department", "homeland", "security",
		},
		Keywords: []string{
			"name", "address", "date", "number", "phone", "email",
		},
		MinAcceptLength: 10,
	}
}

// Filter decides which raw text fragments are plausible field labels.
type Filter struct {
	config FilterConfig
}

// NewFilter creates a label filter with the given configuration.
func NewFilter(config FilterConfig) *Filter {
	return &Filter{config: config}
}

// Apply returns the fragments plausible as field labels. The rules run
// in order and any rejection short-circuits:
//
//  1. confidence below the minimum
//  2. shorter than 3 characters, or purely numeric
//  3. contains a configured noise token
//
// A surviving fragment is accepted when it contains a label keyword, a
// colon, a balanced parenthesis pair, or is longer than MinAcceptLength.
func (f *Filter) Apply(raw []Label) []Label {
	out := make([]Label, 0, len(raw))
	for _, l := range raw {
		if f.isLabel(l) {
			out = append(out, l)
		}
	}
	return out
}

func (f *Filter) isLabel(l Label) bool {
	if l.Confidence < f.config.MinConfidence {
		return false
	}

	text := strings.TrimSpace(l.Text)
	if utf8.RuneCountInString(text) < 3 || isNumeric(text) {
		return false
	}

	lower := strings.ToLower(text)
	for _, noise := range f.config.NoiseTokens {
		if strings.Contains(lower, noise) {
			return false
		}
	}

	for _, kw := range f.config.Keywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	if strings.Contains(text, ":") {
		return true
	}
	if strings.Contains(text, "(") && strings.Contains(text, ")") {
		return true
	}
	return utf8.RuneCountInString(text) > f.config.MinAcceptLength
}

// MinLength drops labels whose cleaned text is shorter than min. This is
// a presentation knob applied before matching, separate from the
// structural filter rules.
func MinLength(in []Label, min int) []Label {
	out := make([]Label, 0, len(in))
	for _, l := range in {
		if utf8.RuneCountInString(strings.TrimSpace(l.Text)) >= min {
			out = append(out, l)
		}
	}
	return out
}

func isNumeric(s string) bool {
	for _, r := range s {
		if !unicode.IsDigit(r) {
			return false
		}
	}
	return len(s) > 0
}
