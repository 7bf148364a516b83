// Package labels defines the text fragment records produced by the OCR
// and layout collaborators, and the filtering that decides which
// fragments are plausible field labels.
package labels

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/scanform/fieldkit/internal/geometry"
)

// Label is a text fragment with its page-pixel box and the OCR
// confidence on a 0-100 scale. Labels are immutable; every pipeline
// stage reads them and produces new values.
type Label struct {
	Box        geometry.Box `json:"box"`
	Text       string       `json:"text"`
	Confidence float64      `json:"confidence"`
}

func (l Label) String() string {
	return fmt.Sprintf("Label(%q, %.0f,%.0f %gx%g, conf=%.1f)",
		l.Text, l.Box.X, l.Box.Y, l.Box.Width, l.Box.Height, l.Confidence)
}

// CleanText normalizes a label for output: whitespace runs collapse to a
// single space, trailing punctuation is stripped, and the first letter is
// capitalized. Cleaning already-clean text returns it unchanged.
func CleanText(text string) string {
	cleaned := strings.Join(strings.Fields(text), " ")
	cleaned = strings.TrimRight(cleaned, ".:;,-")
	if cleaned == "" {
		return cleaned
	}
	r, size := utf8.DecodeRuneInString(cleaned)
	return string(unicode.ToUpper(r)) + cleaned[size:]
}
