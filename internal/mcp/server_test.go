package mcp

import (
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/scanform/fieldkit/internal/config"
	"github.com/scanform/fieldkit/internal/detect"
	"github.com/scanform/fieldkit/internal/geometry"
	"github.com/scanform/fieldkit/internal/labels"
	"github.com/scanform/fieldkit/internal/pipeline"
)

func testConfig() *config.Config {
	cfg := config.DefaultConfig()
	cfg.ServerName = "test-server"
	return cfg
}

// samplePagePayload builds the JSON page argument the detect and
// associate tools accept: one clean label, one noise label, one text
// candidate within commit distance of the clean label.
func samplePagePayload(t *testing.T) string {
	t.Helper()

	page := pipeline.Page{
		Number: 1,
		Labels: []labels.Label{
			{Box: geometry.Box{X: 100, Y: 100, Width: 80, Height: 15}, Text: "First Name:", Confidence: 85},
			{Box: geometry.Box{X: 400, Y: 20, Width: 60, Height: 10}, Text: "Page 1 of 4", Confidence: 90},
		},
		Candidates: []detect.Candidate{
			{Box: geometry.Box{X: 190, Y: 95, Width: 200, Height: 25}, Kind: detect.KindText, Confidence: 0.9},
		},
		Raster: geometry.Raster{Width: 1000, Height: 800},
	}

	data, err := json.Marshal(page)
	if err != nil {
		t.Fatalf("failed to marshal page payload: %v", err)
	}
	return string(data)
}

func pageRequest(payload string) mcp.CallToolRequest {
	return mcp.CallToolRequest{
		Params: mcp.CallToolParams{
			Arguments: map[string]interface{}{
				"page": payload,
			},
		},
	}
}

func TestNewServer(t *testing.T) {
	pipe := pipeline.New(pipeline.DefaultConfig())

	tests := []struct {
		name        string
		config      *config.Config
		pipe        *pipeline.Pipeline
		expectError bool
	}{
		{
			name:        "valid stdio mode config",
			config:      testConfig(),
			pipe:        pipe,
			expectError: false,
		},
		{
			name: "valid server mode config",
			config: func() *config.Config {
				cfg := testConfig()
				cfg.Mode = config.ModeServer
				return cfg
			}(),
			pipe:        pipe,
			expectError: false,
		},
		{
			name:        "nil pipeline",
			config:      testConfig(),
			pipe:        nil,
			expectError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server, err := NewServer(tt.config, tt.pipe)

			if tt.expectError && err == nil {
				t.Errorf("expected error but got none")
			}
			if !tt.expectError && err != nil {
				t.Errorf("unexpected error: %v", err)
			}

			if !tt.expectError {
				if server == nil {
					t.Fatal("server should not be nil")
				}
				if server.config != tt.config {
					t.Error("server config not set correctly")
				}
				if server.pipeline != tt.pipe {
					t.Error("server pipeline not set correctly")
				}
				if server.importer == nil || server.extractor == nil {
					t.Error("PDF collaborators should be initialized")
				}
				if server.mcpServer == nil {
					t.Error("mcpServer should be initialized")
				}
			}
		})
	}
}

func TestServer_HandleFormFieldsDetect(t *testing.T) {
	server, err := NewServer(testConfig(), pipeline.New(pipeline.DefaultConfig()))
	if err != nil {
		t.Fatalf("failed to create server: %v", err)
	}

	result, err := server.handleFormFieldsDetect(context.Background(), pageRequest(samplePagePayload(t)))
	if err != nil {
		t.Fatalf("handler failed: %v", err)
	}
	if result == nil {
		t.Fatal("result should not be nil")
	}
	if result.IsError {
		t.Fatalf("handler returned error result: %s", extractTextFromResult(result))
	}

	resultText := extractTextFromResult(result)
	if !strings.Contains(resultText, "1 field(s) detected") {
		t.Errorf("expected one detected field, got: %s", resultText)
	}
	if !strings.Contains(resultText, "First Name") {
		t.Errorf("result should carry the cleaned label text, got: %s", resultText)
	}
	// The page number noise label must not surface as a field name.
	if strings.Contains(resultText, "Page 1 of 4") {
		t.Errorf("noise label leaked into result: %s", resultText)
	}
}

func TestServer_HandleFormFieldsAssociate(t *testing.T) {
	server, err := NewServer(testConfig(), pipeline.New(pipeline.DefaultConfig()))
	if err != nil {
		t.Fatalf("failed to create server: %v", err)
	}

	result, err := server.handleFormFieldsAssociate(context.Background(), pageRequest(samplePagePayload(t)))
	if err != nil {
		t.Fatalf("handler failed: %v", err)
	}
	if result.IsError {
		t.Fatalf("handler returned error result: %s", extractTextFromResult(result))
	}

	resultText := extractTextFromResult(result)
	if !strings.Contains(resultText, "1 pair(s) committed") {
		t.Errorf("expected one committed pair, got: %s", resultText)
	}
	if !strings.Contains(resultText, "First Name:") {
		t.Errorf("pairs should carry the raw label text, got: %s", resultText)
	}
}

func TestServer_HandleFormFieldsDetect_InvalidPayload(t *testing.T) {
	server, err := NewServer(testConfig(), pipeline.New(pipeline.DefaultConfig()))
	if err != nil {
		t.Fatalf("failed to create server: %v", err)
	}

	tests := []struct {
		name    string
		args    map[string]interface{}
		wantMsg string
	}{
		{
			name:    "missing page argument",
			args:    map[string]interface{}{},
			wantMsg: "page",
		},
		{
			name:    "malformed JSON",
			args:    map[string]interface{}{"page": "{not json"},
			wantMsg: "invalid page payload",
		},
		{
			name:    "zero raster dimensions",
			args:    map[string]interface{}{"page": `{"number":1,"labels":[],"candidates":[]}`},
			wantMsg: "raster dimensions",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			request := mcp.CallToolRequest{
				Params: mcp.CallToolParams{Arguments: tt.args},
			}

			result, err := server.handleFormFieldsDetect(context.Background(), request)
			if err != nil {
				t.Fatalf("handler should return error results, not errors: %v", err)
			}
			if !result.IsError {
				t.Fatal("expected an error result")
			}
			if text := extractTextFromResult(result); !strings.Contains(text, tt.wantMsg) {
				t.Errorf("error text = %q, want mention of %q", text, tt.wantMsg)
			}
		})
	}
}

func TestServer_HandleFormFieldsFromPDF_MissingFile(t *testing.T) {
	server, err := NewServer(testConfig(), pipeline.New(pipeline.DefaultConfig()))
	if err != nil {
		t.Fatalf("failed to create server: %v", err)
	}

	request := mcp.CallToolRequest{
		Params: mcp.CallToolParams{
			Arguments: map[string]interface{}{
				"path": "/nonexistent/form.pdf",
			},
		},
	}

	result, err := server.handleFormFieldsFromPDF(context.Background(), request)
	if err != nil {
		t.Fatalf("handler failed: %v", err)
	}
	if !result.IsError {
		t.Error("expected an error result for a missing file")
	}
}

func TestServer_HandleServerInfo(t *testing.T) {
	server, err := NewServer(testConfig(), pipeline.New(pipeline.DefaultConfig()))
	if err != nil {
		t.Fatalf("failed to create server: %v", err)
	}

	result, err := server.handleServerInfo(context.Background(), mcp.CallToolRequest{})
	if err != nil {
		t.Fatalf("handler failed: %v", err)
	}

	resultText := extractTextFromResult(result)
	for _, tool := range []string{
		"form_fields_detect",
		"form_fields_associate",
		"form_fields_from_pdf",
		"fieldkit_server_info",
	} {
		if !strings.Contains(resultText, tool) {
			t.Errorf("server info should mention tool %q", tool)
		}
	}
	if !strings.Contains(resultText, "test-server") {
		t.Error("server info should mention the server name")
	}
}

func TestFormatPageResult(t *testing.T) {
	server, err := NewServer(testConfig(), pipeline.New(pipeline.DefaultConfig()))
	if err != nil {
		t.Fatalf("failed to create server: %v", err)
	}

	page := pipeline.Page{}
	if err := json.Unmarshal([]byte(samplePagePayload(t)), &page); err != nil {
		t.Fatalf("failed to unmarshal payload: %v", err)
	}
	result := server.pipeline.ProcessPage(page)

	formatted, err := server.formatPageResult(result)
	if err != nil {
		t.Fatalf("formatPageResult() error = %v", err)
	}
	if !strings.Contains(formatted, "Page 1:") {
		t.Error("formatted result should carry the page number")
	}
	if !strings.Contains(formatted, "\nFields:\n") {
		t.Error("formatted result should have a Fields section")
	}
	if !strings.Contains(formatted, `"bbox"`) {
		t.Error("formatted result should encode field bounding boxes")
	}
}

// Helper function to extract text from a CallToolResult
func extractTextFromResult(result *mcp.CallToolResult) string {
	if result == nil || len(result.Content) == 0 {
		return ""
	}

	// Try to extract text content
	for _, content := range result.Content {
		if textContent, ok := content.(mcp.TextContent); ok {
			return textContent.Text
		}
		// Handle pointer to TextContent as well
		if textContentPtr, ok := content.(*mcp.TextContent); ok {
			return textContentPtr.Text
		}
	}

	return ""
}
