//go:build !ocr

// Package ocr turns page images into raw label records using the
// Tesseract engine via gosseract.
//
// This is the stub implementation used when the "ocr" build tag is not
// set. All functions return ErrOCRNotEnabled. To enable OCR, rebuild
// with the "ocr" build tag:
//
//	go build -tags ocr
//
// This requires Tesseract to be installed. On Ubuntu/Debian:
//
//	apt-get install tesseract-ocr libtesseract-dev
package ocr

import (
	"errors"

	"github.com/scanform/fieldkit/internal/labels"
)

// ErrOCRNotEnabled is returned when OCR support was not compiled in.
var ErrOCRNotEnabled = errors.New("ocr: not enabled in this build (rebuild with -tags ocr)")

// Client is a placeholder for the Tesseract client.
type Client struct{}

// New returns ErrOCRNotEnabled in builds without the ocr tag.
func New() (*Client, error) {
	return nil, ErrOCRNotEnabled
}

// Close is a no-op in builds without the ocr tag.
func (c *Client) Close() error { return nil }

// SetLanguage returns ErrOCRNotEnabled in builds without the ocr tag.
func (c *Client) SetLanguage(langs ...string) error { return ErrOCRNotEnabled }

// RecognizeLabels returns ErrOCRNotEnabled in builds without the ocr tag.
func (c *Client) RecognizeLabels(imageData []byte) ([]labels.Label, error) {
	return nil, ErrOCRNotEnabled
}
