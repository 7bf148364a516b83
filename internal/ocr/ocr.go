//go:build ocr

// Package ocr turns page images into raw label records using the
// Tesseract engine via gosseract. It requires Tesseract to be installed
// on the system and the "ocr" build tag:
//
//	go build -tags ocr
//
// On Ubuntu/Debian:
//
//	apt-get install tesseract-ocr libtesseract-dev
package ocr

import (
	"fmt"

	"github.com/otiai10/gosseract/v2"

	"github.com/scanform/fieldkit/internal/geometry"
	"github.com/scanform/fieldkit/internal/labels"
)

// Client wraps a Tesseract client configured for form recognition.
type Client struct {
	client *gosseract.Client
}

// New creates an OCR client. Close it when done to release Tesseract
// resources.
func New() (*Client, error) {
	c := gosseract.NewClient()
	if err := c.SetPageSegMode(gosseract.PSM_SINGLE_BLOCK); err != nil {
		c.Close()
		return nil, fmt.Errorf("set page segmentation mode: %w", err)
	}
	return &Client{client: c}, nil
}

// Close releases OCR resources.
func (c *Client) Close() error {
	if c.client != nil {
		return c.client.Close()
	}
	return nil
}

// SetLanguage sets the recognition language(s), e.g. "eng" or "eng+fra".
func (c *Client) SetLanguage(langs ...string) error {
	return c.client.SetLanguage(langs...)
}

// RecognizeLabels runs OCR on an encoded page image (PNG, JPEG, TIFF)
// and returns one raw label per recognized word, with its page-pixel box
// and the engine confidence on the 0-100 scale. The result feeds the
// label filter; no filtering happens here.
func (c *Client) RecognizeLabels(imageData []byte) ([]labels.Label, error) {
	if err := c.client.SetImageFromBytes(imageData); err != nil {
		return nil, fmt.Errorf("set image: %w", err)
	}

	boxes, err := c.client.GetBoundingBoxes(gosseract.RIL_WORD)
	if err != nil {
		return nil, fmt.Errorf("get word boxes: %w", err)
	}

	out := make([]labels.Label, 0, len(boxes))
	for _, b := range boxes {
		if b.Word == "" {
			continue
		}
		out = append(out, labels.Label{
			Text: b.Word,
			Box: geometry.Box{
				X:      float64(b.Box.Min.X),
				Y:      float64(b.Box.Min.Y),
				Width:  float64(b.Box.Dx()),
				Height: float64(b.Box.Dy()),
			},
			Confidence: b.Confidence,
		})
	}

	return out, nil
}
