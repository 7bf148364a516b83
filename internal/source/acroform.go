// Package source adapts PDF libraries into the collaborator inputs the
// pipeline consumes: existing interactive form fields become field
// candidates, and positioned page text becomes raw labels. Both surfaces
// convert PDF point coordinates (bottom-left origin) into top-left
// page-pixel coordinates at the requested DPI.
package source

import (
	"fmt"
	"io"
	"os"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/types"

	"github.com/scanform/fieldkit/internal/detect"
	"github.com/scanform/fieldkit/internal/geometry"
)

// MethodAcroForm tags candidates imported from an interactive AcroForm
// dictionary. Such fields are authoritative, so they carry full
// confidence.
const MethodAcroForm = "acroform"

// DefaultDPI matches the rasterization density the detection
// collaborators typically use.
const DefaultDPI = 150.0

// pdfPointsPerInch is fixed by the PDF specification.
const pdfPointsPerInch = 72.0

// AcroFormImporter pulls interactive form fields out of a PDF and
// presents them as high-confidence field candidates for the pipeline.
type AcroFormImporter struct {
	dpi float64
}

// NewAcroFormImporter creates an importer converting coordinates at the
// given DPI. Zero or negative selects DefaultDPI.
func NewAcroFormImporter(dpi float64) *AcroFormImporter {
	if dpi <= 0 {
		dpi = DefaultDPI
	}
	return &AcroFormImporter{dpi: dpi}
}

// CandidatesFromFile extracts AcroForm field candidates and the pixel
// raster of the requested 1-based page from a PDF file. Documents
// without an AcroForm yield no candidates and no error.
func (im *AcroFormImporter) CandidatesFromFile(path string, pageNum int) ([]detect.Candidate, geometry.Raster, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, geometry.Raster{}, fmt.Errorf("open pdf: %w", err)
	}
	defer f.Close()

	return im.CandidatesFromReader(f, pageNum)
}

// CandidatesFromReader extracts the requested page's AcroForm field
// candidates from PDF data. Fields whose widgets sit on other pages are
// skipped, and every rectangle is flipped with the requested page's own
// height.
func (im *AcroFormImporter) CandidatesFromReader(r io.ReadSeeker, pageNum int) ([]detect.Candidate, geometry.Raster, error) {
	if pageNum < 1 {
		pageNum = 1
	}

	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed

	ctx, err := api.ReadContext(r, conf)
	if err != nil {
		return nil, geometry.Raster{}, fmt.Errorf("read pdf context: %w", err)
	}
	if err := ctx.EnsurePageCount(); err != nil {
		return nil, geometry.Raster{}, fmt.Errorf("ensure page count: %w", err)
	}

	raster, pageHeightPts, err := im.pageRaster(ctx, pageNum)
	if err != nil {
		return nil, geometry.Raster{}, err
	}

	cands, err := im.collectFields(ctx, pageNum, pageHeightPts)
	if err != nil {
		return nil, geometry.Raster{}, err
	}
	return cands, raster, nil
}

// pageRaster derives the pixel raster from the requested page's
// dimensions.
func (im *AcroFormImporter) pageRaster(ctx *model.Context, pageNum int) (geometry.Raster, float64, error) {
	dims, err := ctx.PageDims()
	if err != nil || len(dims) == 0 {
		return geometry.Raster{}, 0, fmt.Errorf("page dimensions: %w", err)
	}
	if pageNum > len(dims) {
		return geometry.Raster{}, 0, fmt.Errorf("page %d out of range: document has %d page(s)", pageNum, len(dims))
	}

	dim := dims[pageNum-1]
	scale := im.dpi / pdfPointsPerInch
	return geometry.Raster{
		Width:  int(dim.Width * scale),
		Height: int(dim.Height * scale),
	}, dim.Height, nil
}

func (im *AcroFormImporter) collectFields(ctx *model.Context, pageNum int, pageHeightPts float64) ([]detect.Candidate, error) {
	rootDict, err := ctx.Catalog()
	if err != nil {
		return nil, fmt.Errorf("catalog: %w", err)
	}

	acroFormObj, found := rootDict.Find("AcroForm")
	if !found {
		return nil, nil
	}
	acroFormDict, err := ctx.DereferenceDict(acroFormObj)
	if err != nil || acroFormDict == nil {
		return nil, nil
	}

	fieldsObj, found := acroFormDict.Find("Fields")
	if !found {
		return nil, nil
	}
	fieldsArray, err := ctx.DereferenceArray(fieldsObj)
	if err != nil {
		return nil, nil
	}

	idx := indexPages(ctx, rootDict)

	var cands []detect.Candidate
	for _, fieldRef := range fieldsArray {
		fieldDict, err := ctx.DereferenceDict(fieldRef)
		if err != nil || fieldDict == nil {
			continue
		}
		if im.fieldPage(ctx, fieldRef, fieldDict, idx) != pageNum {
			continue
		}
		if c, ok := im.candidateFromField(ctx, fieldDict, pageHeightPts); ok {
			cands = append(cands, c)
		}
	}
	return cands, nil
}

// pageIndex attributes AcroForm widgets to pages. Both maps are keyed
// by indirect-ref object number: pageRefs maps page objects to their
// 1-based page number, annots maps each page's annotation entries to
// the page carrying them.
type pageIndex struct {
	pageRefs map[int]int
	annots   map[int]int
}

// indexPages walks the page tree from the catalog, numbering leaf pages
// in document order and recording their annotation references.
func indexPages(ctx *model.Context, rootDict types.Dict) pageIndex {
	idx := pageIndex{pageRefs: map[int]int{}, annots: map[int]int{}}

	pagesObj, found := rootDict.Find("Pages")
	if !found {
		return idx
	}

	pageNum := 0
	var walk func(obj types.Object)
	walk = func(obj types.Object) {
		d, err := ctx.DereferenceDict(obj)
		if err != nil || d == nil {
			return
		}

		if typ := d.Type(); typ != nil && *typ == "Pages" {
			kidsObj, found := d.Find("Kids")
			if !found {
				return
			}
			kids, err := ctx.DereferenceArray(kidsObj)
			if err != nil {
				return
			}
			for _, kid := range kids {
				walk(kid)
			}
			return
		}

		pageNum++
		if ref, ok := obj.(types.IndirectRef); ok {
			idx.pageRefs[ref.ObjectNumber.Value()] = pageNum
		}

		annotsObj, found := d.Find("Annots")
		if !found {
			return
		}
		annots, err := ctx.DereferenceArray(annotsObj)
		if err != nil {
			return
		}
		for _, a := range annots {
			if ref, ok := a.(types.IndirectRef); ok {
				idx.annots[ref.ObjectNumber.Value()] = pageNum
			}
		}
	}
	walk(pagesObj)
	return idx
}

// fieldPage resolves the page a field's widget sits on: the P entry
// when present, otherwise the page whose Annots array carries the
// widget. Unattributable widgets default to page 1.
func (im *AcroFormImporter) fieldPage(ctx *model.Context, fieldObj types.Object, fieldDict types.Dict, idx pageIndex) int {
	if page, ok := pageOfDict(fieldDict, idx); ok {
		return page
	}
	if ref, ok := fieldObj.(types.IndirectRef); ok {
		if page, ok := idx.annots[ref.ObjectNumber.Value()]; ok {
			return page
		}
	}

	if kidsObj, found := fieldDict.Find("Kids"); found {
		if kidsArray, err := ctx.DereferenceArray(kidsObj); err == nil {
			for _, kid := range kidsArray {
				if ref, ok := kid.(types.IndirectRef); ok {
					if page, ok := idx.annots[ref.ObjectNumber.Value()]; ok {
						return page
					}
				}
				if kidDict, err := ctx.DereferenceDict(kid); err == nil && kidDict != nil {
					if page, ok := pageOfDict(kidDict, idx); ok {
						return page
					}
				}
			}
		}
	}
	return 1
}

// pageOfDict reads a widget dictionary's P entry against the page index.
func pageOfDict(d types.Dict, idx pageIndex) (int, bool) {
	pObj, found := d.Find("P")
	if !found {
		return 0, false
	}
	ref, ok := pObj.(types.IndirectRef)
	if !ok {
		return 0, false
	}
	page, ok := idx.pageRefs[ref.ObjectNumber.Value()]
	return page, ok
}

// candidateFromField converts one AcroForm field dictionary into a
// candidate. Fields without a usable kind or rectangle are skipped.
func (im *AcroFormImporter) candidateFromField(ctx *model.Context, fieldDict types.Dict, pageHeightPts float64) (detect.Candidate, bool) {
	kind, ok := im.fieldKind(ctx, fieldDict)
	if !ok {
		return detect.Candidate{}, false
	}

	box, ok := im.fieldBox(ctx, fieldDict, pageHeightPts)
	if !ok || !box.Valid() {
		return detect.Candidate{}, false
	}

	return detect.Candidate{
		Box:        box,
		Kind:       kind,
		Confidence: 1.0,
		Method:     MethodAcroForm,
	}, true
}

// fieldKind maps the PDF FT entry to a pipeline kind. Radio buttons and
// pushbuttons have no pipeline equivalent and are skipped; the FT entry
// may be inherited from a parent field.
func (im *AcroFormImporter) fieldKind(ctx *model.Context, fieldDict types.Dict) (detect.Kind, bool) {
	ftObj, found := fieldDict.Find("FT")
	if !found {
		if parentObj, found := fieldDict.Find("Parent"); found {
			if parentDict, err := ctx.DereferenceDict(parentObj); err == nil && parentDict != nil {
				return im.fieldKind(ctx, parentDict)
			}
		}
		return "", false
	}

	ftName, err := ctx.DereferenceName(ftObj, model.V10, nil)
	if err != nil {
		return "", false
	}

	switch ftName {
	case "Tx":
		return detect.KindText, true
	case "Btn":
		if flagsObj, found := fieldDict.Find("Ff"); found {
			if flags, err := ctx.DereferenceInteger(flagsObj); err == nil && flags != nil {
				// Bit 16: radio, bit 17: pushbutton.
				if *flags&(1<<15) != 0 || *flags&(1<<16) != 0 {
					return "", false
				}
			}
		}
		return detect.KindCheckbox, true
	default:
		return "", false
	}
}

// fieldBox finds the widget rectangle, either merged into the field
// dictionary or on the first kid annotation, and converts it to a
// top-left pixel box.
func (im *AcroFormImporter) fieldBox(ctx *model.Context, fieldDict types.Dict, pageHeightPts float64) (geometry.Box, bool) {
	if rectObj, found := fieldDict.Find("Rect"); found {
		return im.rectToBox(ctx, rectObj, pageHeightPts)
	}

	if kidsObj, found := fieldDict.Find("Kids"); found {
		if kidsArray, err := ctx.DereferenceArray(kidsObj); err == nil && len(kidsArray) > 0 {
			if widgetDict, err := ctx.DereferenceDict(kidsArray[0]); err == nil && widgetDict != nil {
				if rectObj, found := widgetDict.Find("Rect"); found {
					return im.rectToBox(ctx, rectObj, pageHeightPts)
				}
			}
		}
	}

	return geometry.Box{}, false
}

func (im *AcroFormImporter) rectToBox(ctx *model.Context, rectObj types.Object, pageHeightPts float64) (geometry.Box, bool) {
	rectArray, err := ctx.DereferenceArray(rectObj)
	if err != nil || len(rectArray) != 4 {
		return geometry.Box{}, false
	}

	coords := make([]float64, 4)
	for i, coord := range rectArray {
		f, err := ctx.DereferenceNumber(coord)
		if err != nil {
			return geometry.Box{}, false
		}
		coords[i] = f
	}

	return PointsToPixels(coords[0], coords[1], coords[2], coords[3], pageHeightPts, im.dpi), true
}

// PointsToPixels converts a PDF rectangle (llx, lly, urx, ury in points,
// bottom-left origin) into a top-left pixel box at the given DPI.
func PointsToPixels(llx, lly, urx, ury, pageHeightPts, dpi float64) geometry.Box {
	s := dpi / pdfPointsPerInch
	return geometry.Box{
		X:      llx * s,
		Y:      (pageHeightPts - ury) * s,
		Width:  (urx - llx) * s,
		Height: (ury - lly) * s,
	}
}
