package source

import (
	"fmt"

	"github.com/ledongthuc/pdf"

	"github.com/scanform/fieldkit/internal/geometry"
	"github.com/scanform/fieldkit/internal/labels"
)

// parsedTextConfidence is assigned to labels read from the PDF text
// layer. Parsed text is exact, unlike OCR output.
const parsedTextConfidence = 100.0

// defaultTextHeight approximates glyph height when the font size is
// unknown.
const defaultTextHeight = 12.0

// TextExtractor reads the positioned text layer of a born-digital PDF
// and presents it as raw labels, an alternative to the OCR collaborator
// for documents that never went through a scanner.
type TextExtractor struct {
	dpi float64
}

// NewTextExtractor creates an extractor converting coordinates at the
// given DPI. Zero or negative selects DefaultDPI.
func NewTextExtractor(dpi float64) *TextExtractor {
	if dpi <= 0 {
		dpi = DefaultDPI
	}
	return &TextExtractor{dpi: dpi}
}

// LabelsFromFile extracts the raw labels of one page (1-based). The
// fragments come back word-sized; the pipeline's merge step joins them
// into full labels.
func (te *TextExtractor) LabelsFromFile(path string, pageNum int) ([]labels.Label, error) {
	f, reader, err := pdf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open pdf: %w", err)
	}
	defer f.Close()

	if pageNum < 1 || pageNum > reader.NumPage() {
		return nil, fmt.Errorf("invalid page number %d (document has %d pages)", pageNum, reader.NumPage())
	}

	page := reader.Page(pageNum)
	if page.V.IsNull() {
		return nil, fmt.Errorf("page %d has no content", pageNum)
	}

	pageHeightPts := mediaBoxHeight(page)
	scale := te.dpi / pdfPointsPerInch

	content := page.Content()
	out := make([]labels.Label, 0, len(content.Text))
	for _, t := range content.Text {
		if t.S == "" {
			continue
		}

		height := t.FontSize
		if height <= 0 {
			height = defaultTextHeight
		}

		// ledongthuc reports the baseline origin in bottom-left point
		// coordinates; flip to top-left pixels.
		box := geometry.Box{
			X:      t.X * scale,
			Y:      (pageHeightPts - t.Y - height) * scale,
			Width:  t.W * scale,
			Height: height * scale,
		}
		if !box.Valid() {
			continue
		}

		out = append(out, labels.Label{
			Text:       t.S,
			Box:        box,
			Confidence: parsedTextConfidence,
		})
	}

	return out, nil
}

// mediaBoxHeight reads the page height in points, defaulting to US
// Letter when the media box is missing or malformed.
func mediaBoxHeight(page pdf.Page) float64 {
	const letterHeightPts = 792.0

	mbox := page.V.Key("MediaBox")
	if mbox.IsNull() || mbox.Len() != 4 {
		return letterHeightPts
	}

	lly := mbox.Index(1).Float64()
	ury := mbox.Index(3).Float64()
	if ury <= lly {
		return letterHeightPts
	}
	return ury - lly
}
