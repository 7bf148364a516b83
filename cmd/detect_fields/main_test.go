//go:build !ocr

package main

import (
	"errors"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/scanform/fieldkit/internal/ocr"
)

func writeBlankScan(t *testing.T, dir string) string {
	t.Helper()

	img := image.NewGray(image.Rect(0, 0, 200, 100))
	for y := 0; y < 100; y++ {
		for x := 0; x < 200; x++ {
			img.SetGray(x, y, color.Gray{Y: 255})
		}
	}

	path := filepath.Join(dir, "scan.png")
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create scan image: %v", err)
	}
	defer f.Close()
	if err := png.Encode(f, img); err != nil {
		t.Fatalf("encode scan image: %v", err)
	}
	return path
}

func TestLabelsFromScanWithoutOCRSupport(t *testing.T) {
	path := writeBlankScan(t, t.TempDir())

	_, err := labelsFromScan(path)

	if !errors.Is(err, ocr.ErrOCRNotEnabled) {
		t.Errorf("labelsFromScan() error = %v, want ErrOCRNotEnabled", err)
	}
}

func TestDetectFieldsScanWithoutTextLayer(t *testing.T) {
	dir := t.TempDir()
	imgPath := writeBlankScan(t, dir)

	// A payload with candidates but no labels, the shape a scanned PDF
	// without a text layer produces.
	payloadPath := filepath.Join(dir, "page.json")
	payload := `{"number":1,"candidates":[{"box":{"x":50,"y":40,"width":100,"height":20},"kind":"text","confidence":0.9}],"raster":{"width":200,"height":100}}`
	if err := os.WriteFile(payloadPath, []byte(payload), 0o644); err != nil {
		t.Fatalf("write payload: %v", err)
	}

	oldImage := *scanImage
	*scanImage = imgPath
	defer func() { *scanImage = oldImage }()

	result, err := detectFields(payloadPath)
	if err != nil {
		t.Fatalf("detectFields() error = %v", err)
	}

	if result.Success {
		t.Errorf("detectFields() succeeded, want OCR availability error in result")
	}
	if !strings.Contains(result.Error, "not enabled") {
		t.Errorf("detectFields() error = %q, want OCR build hint", result.Error)
	}
}
