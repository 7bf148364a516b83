package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"os"
	"path/filepath"
	"strings"

	"github.com/scanform/fieldkit/internal/labels"
	"github.com/scanform/fieldkit/internal/match"
	"github.com/scanform/fieldkit/internal/ocr"
	"github.com/scanform/fieldkit/internal/pipeline"
	"github.com/scanform/fieldkit/internal/raster"
	"github.com/scanform/fieldkit/internal/refine"
	"github.com/scanform/fieldkit/internal/source"
)

var (
	outputFormat = flag.String("format", "text", "Output format: text, json")
	pageNumber   = flag.Int("page", 1, "1-based page number for PDF input")
	dpi          = flag.Float64("dpi", source.DefaultDPI, "Rasterization density for PDF coordinate conversion")
	scanImage    = flag.String("image", "", "Optional page scan (PNG or JPEG) used for boundary refinement and, when the input has no text layer, OCR")
	verbose      = flag.Bool("verbose", false, "Enable verbose output")
	help         = flag.Bool("help", false, "Show help message")
)

func main() {
	flag.Parse()

	if *help {
		printHelp()
		return
	}

	if flag.NArg() == 0 {
		fmt.Fprintf(os.Stderr, "Error: input file path required\n\n")
		printUsage()
		os.Exit(1)
	}

	inputPath := flag.Arg(0)
	if _, err := os.Stat(inputPath); os.IsNotExist(err) {
		fmt.Fprintf(os.Stderr, "Error: File not found: %s\n", inputPath)
		os.Exit(1)
	}

	result, err := detectFields(inputPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error detecting fields: %v\n", err)
		os.Exit(1)
	}

	if err := outputResults(result); err != nil {
		fmt.Fprintf(os.Stderr, "Error outputting results: %v\n", err)
		os.Exit(1)
	}
}

func printHelp() {
	fmt.Println("Detect Fields - locate fillable form fields in scanned and digital documents")
	fmt.Println()
	fmt.Println("The tool pairs text labels with nearby field candidates, refines the field")
	fmt.Println("boundaries against the page image when one is supplied, and reports the")
	fmt.Println("resulting fields in reading order.")
	fmt.Println()
	printUsage()
	fmt.Println()
	fmt.Println("OPTIONS:")
	fmt.Println("  -format        Output format: text (default), json")
	fmt.Println("  -page          1-based page number for PDF input (default 1)")
	fmt.Println("  -dpi           Rasterization density for PDF coordinate conversion")
	fmt.Println("  -image         Page scan (PNG or JPEG) used for boundary refinement;")
	fmt.Println("                 when the input yields no labels the scan is OCRed for them")
	fmt.Println("  -verbose       Enable verbose output")
	fmt.Println("  -help          Show this help message")
	fmt.Println()
	fmt.Println("INPUT:")
	fmt.Println("  A .json file is treated as a page payload: labels, candidates, and raster")
	fmt.Println("  dimensions produced by an OCR or detection collaborator. Any other file is")
	fmt.Println("  treated as a PDF; its AcroForm widgets supply the field candidates and its")
	fmt.Println("  text layer supplies the labels.")
	fmt.Println()
	fmt.Println("EXAMPLES:")
	fmt.Println("  detect_fields application.pdf")
	fmt.Println("  detect_fields -page 2 -format json application.pdf")
	fmt.Println("  detect_fields -image page1.png detections.json")
}

func printUsage() {
	fmt.Println("USAGE:")
	fmt.Println("  detect_fields [OPTIONS] <pdf_or_json_file>")
}

// DetectionResult represents the complete result of field detection
type DetectionResult struct {
	FilePath   string         `json:"file_path"`
	Page       int            `json:"page"`
	Success    bool           `json:"success"`
	FieldCount int            `json:"field_count"`
	Fields     []refine.Field `json:"fields"`
	Stats      match.Stats    `json:"stats"`
	Error      string         `json:"error,omitempty"`
}

func detectFields(inputPath string) (*DetectionResult, error) {
	absPath, err := filepath.Abs(inputPath)
	if err != nil {
		return nil, fmt.Errorf("failed to get absolute path: %w", err)
	}

	result := &DetectionResult{
		FilePath: absPath,
		Page:     *pageNumber,
		Success:  false,
	}

	var page pipeline.Page
	if strings.EqualFold(filepath.Ext(absPath), ".json") {
		page, err = pageFromJSON(absPath)
	} else {
		page, err = pageFromPDF(absPath)
	}
	if err != nil {
		result.Error = err.Error()
		return result, nil // Don't fail, return error in result
	}

	if *scanImage != "" {
		scanner, err := scannerFromImage(*scanImage)
		if err != nil {
			result.Error = err.Error()
			return result, nil
		}
		page.Content = scanner
		// A real scan beats declared dimensions.
		page.Raster = scanner.Raster()

		// Scanned PDFs often carry no text layer, so labels have to be
		// recognized from the scan itself.
		if len(page.Labels) == 0 {
			lbls, err := labelsFromScan(*scanImage)
			if err != nil {
				result.Error = err.Error()
				return result, nil
			}
			page.Labels = lbls
			if *verbose {
				fmt.Printf("📖 Recognized %d label(s) from scan\n", len(lbls))
			}
		}
	}

	if *verbose {
		fmt.Printf("🔍 Analyzing: %s (page %d)\n", absPath, page.Number)
		fmt.Printf("   Labels: %d, Candidates: %d, Raster: %dx%d\n",
			len(page.Labels), len(page.Candidates), page.Raster.Width, page.Raster.Height)
		fmt.Println()
	}

	pipe := pipeline.New(pipeline.DefaultConfig())
	pages, err := pipe.ProcessDocument(context.Background(), []pipeline.Page{page})
	if err != nil {
		result.Error = err.Error()
		return result, nil
	}

	pageResult := pages[0]
	result.Success = true
	result.FieldCount = len(pageResult.Fields)
	result.Fields = pageResult.Fields
	result.Stats = pageResult.Stats

	if *verbose {
		fmt.Printf("✅ Detection completed successfully\n")
		fmt.Printf("📊 Found %d form fields\n", result.FieldCount)
		fmt.Println()
	}

	return result, nil
}

func pageFromJSON(path string) (pipeline.Page, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return pipeline.Page{}, fmt.Errorf("failed to read page payload: %w", err)
	}

	var page pipeline.Page
	if err := json.Unmarshal(data, &page); err != nil {
		return pipeline.Page{}, fmt.Errorf("invalid page payload: %w", err)
	}
	if page.Raster.Width <= 0 || page.Raster.Height <= 0 {
		return pipeline.Page{}, fmt.Errorf("page payload must declare positive raster dimensions")
	}
	if page.Number == 0 {
		page.Number = *pageNumber
	}
	return page, nil
}

func pageFromPDF(path string) (pipeline.Page, error) {
	importer := source.NewAcroFormImporter(*dpi)
	cands, pageRaster, err := importer.CandidatesFromFile(path, *pageNumber)
	if err != nil {
		return pipeline.Page{}, fmt.Errorf("failed to import field candidates: %w", err)
	}

	extractor := source.NewTextExtractor(*dpi)
	lbls, err := extractor.LabelsFromFile(path, *pageNumber)
	if err != nil {
		return pipeline.Page{}, fmt.Errorf("failed to extract labels: %w", err)
	}

	return pipeline.Page{
		Number:     *pageNumber,
		Labels:     lbls,
		Candidates: cands,
		Raster:     pageRaster,
	}, nil
}

// labelsFromScan runs OCR over a page scan and returns the recognized
// word labels. Builds without OCR support report the reason instead of
// silently detecting nothing.
func labelsFromScan(path string) ([]labels.Label, error) {
	client, err := ocr.New()
	if err != nil {
		return nil, fmt.Errorf("recognize labels: %w", err)
	}
	defer client.Close()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scan image: %w", err)
	}
	return client.RecognizeLabels(data)
}

func scannerFromImage(path string) (*raster.Scanner, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open scan image: %w", err)
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("failed to decode scan image: %w", err)
	}
	return raster.NewScanner(img, raster.DefaultInkThreshold), nil
}

func outputResults(result *DetectionResult) error {
	switch *outputFormat {
	case "json":
		return outputJSON(result)
	case "text":
		return outputText(result)
	default:
		return fmt.Errorf("unsupported output format: %s", *outputFormat)
	}
}

func outputJSON(result *DetectionResult) error {
	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	return encoder.Encode(result)
}

func outputText(result *DetectionResult) error {
	if !result.Success {
		fmt.Printf("❌ Field detection failed: %s\n", result.Error)
		return nil
	}

	if result.FieldCount == 0 {
		fmt.Println("⚠️  No form fields detected")
		fmt.Println()
		fmt.Println("TRY:")
		fmt.Println("• Check that labels carry OCR confidence of 30 or more")
		fmt.Println("• Supply the page scan with -image so boundaries can be refined")
		fmt.Println("• Raise -dpi if the PDF coordinates look too coarse")
		return nil
	}

	fmt.Printf("✅ Detected %d form fields\n", result.FieldCount)
	fmt.Println()

	for i, field := range result.Fields {
		fmt.Printf("[%d] %s\n", i+1, field.Name)
		fmt.Printf("    Type: %s\n", field.Type)
		fmt.Printf("    BBox: (%.0f, %.0f) %.0fx%.0f\n",
			field.BBox[0], field.BBox[1],
			field.BBox[2]-field.BBox[0], field.BBox[3]-field.BBox[1])
		fmt.Printf("    Confidence: %.2f\n", field.Confidence)
		if i < result.FieldCount-1 {
			fmt.Println()
		}
	}

	return nil
}
