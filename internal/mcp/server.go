package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/scanform/fieldkit/internal/config"
	"github.com/scanform/fieldkit/internal/descriptions"
	"github.com/scanform/fieldkit/internal/match"
	"github.com/scanform/fieldkit/internal/pipeline"
	"github.com/scanform/fieldkit/internal/source"
)

// Server represents the MCP server instance
type Server struct {
	config    *config.Config
	pipeline  *pipeline.Pipeline
	importer  *source.AcroFormImporter
	extractor *source.TextExtractor
	mcpServer *server.MCPServer
}

// NewServer creates a new MCP server instance
func NewServer(cfg *config.Config, pipe *pipeline.Pipeline) (*Server, error) {
	if pipe == nil {
		return nil, fmt.Errorf("pipeline cannot be nil")
	}

	// Create MCP server
	mcpServer := server.NewMCPServer(
		cfg.ServerName,
		cfg.Version,
		server.WithToolCapabilities(false), // We don't support dynamic tool capabilities
	)

	s := &Server{
		config:    cfg,
		pipeline:  pipe,
		importer:  source.NewAcroFormImporter(cfg.DPI),
		extractor: source.NewTextExtractor(cfg.DPI),
		mcpServer: mcpServer,
	}

	// Register tools
	s.registerTools()

	return s, nil
}

// registerTools registers all available MCP tools
func (s *Server) registerTools() {
	// Register full page detection tool
	detectTool := mcp.NewTool(
		"form_fields_detect",
		mcp.WithDescription(descriptions.GetToolDescription("form_fields_detect")),
		mcp.WithString("page",
			mcp.Required(),
			mcp.Description("JSON page payload with labels, candidates, and raster dimensions"),
		),
	)
	s.mcpServer.AddTool(detectTool, s.handleFormFieldsDetect)

	// Register association-only tool
	associateTool := mcp.NewTool(
		"form_fields_associate",
		mcp.WithDescription(descriptions.GetToolDescription("form_fields_associate")),
		mcp.WithString("page",
			mcp.Required(),
			mcp.Description("JSON page payload with labels, candidates, and raster dimensions"),
		),
	)
	s.mcpServer.AddTool(associateTool, s.handleFormFieldsAssociate)

	// Register PDF import tool
	fromPDFTool := mcp.NewTool(
		"form_fields_from_pdf",
		mcp.WithDescription(descriptions.GetToolDescription("form_fields_from_pdf")),
		mcp.WithString("path",
			mcp.Required(),
			mcp.Description("Full path to the PDF file"),
		),
		mcp.WithNumber("page",
			mcp.Description("1-based page number (defaults to 1)"),
		),
	)
	s.mcpServer.AddTool(fromPDFTool, s.handleFormFieldsFromPDF)

	// Register server info tool
	serverInfoTool := mcp.NewTool(
		"fieldkit_server_info",
		mcp.WithDescription(descriptions.GetToolDescription("fieldkit_server_info")),
	)
	s.mcpServer.AddTool(serverInfoTool, s.handleServerInfo)
}

// Handler functions
func (s *Server) handleFormFieldsDetect(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	page, err := s.pagePayload(request)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	result := s.pipeline.ProcessPage(page)

	responseText, err := s.formatPageResult(result)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(responseText), nil
}

func (s *Server) handleFormFieldsAssociate(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	page, err := s.pagePayload(request)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	pairs, stats := s.pipeline.Associate(page.Labels, page.Candidates, page.Raster)

	responseText, err := s.formatAssociateResult(pairs, stats)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(responseText), nil
}

func (s *Server) handleFormFieldsFromPDF(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := request.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	pageNum := 1
	if p, ok := request.GetArguments()["page"].(float64); ok && p >= 1 {
		pageNum = int(p)
	}

	cands, raster, err := s.importer.CandidatesFromFile(path, pageNum)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	lbls, err := s.extractor.LabelsFromFile(path, pageNum)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	result := s.pipeline.ProcessPage(pipeline.Page{
		Number:     pageNum,
		Labels:     lbls,
		Candidates: cands,
		Raster:     raster,
	})

	responseText := fmt.Sprintf("Detected fields for: %s (page %d)\n", path, pageNum)
	body, err := s.formatPageResult(result)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	responseText += body

	return mcp.NewToolResultText(responseText), nil
}

func (s *Server) handleServerInfo(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(s.formatServerInfo()), nil
}

// pagePayload decodes the JSON page argument shared by the detect and
// associate tools.
func (s *Server) pagePayload(request mcp.CallToolRequest) (pipeline.Page, error) {
	raw, err := request.RequireString("page")
	if err != nil {
		return pipeline.Page{}, err
	}

	var page pipeline.Page
	if err := json.Unmarshal([]byte(raw), &page); err != nil {
		return pipeline.Page{}, fmt.Errorf("invalid page payload: %w", err)
	}
	if page.Raster.Width <= 0 || page.Raster.Height <= 0 {
		return pipeline.Page{}, fmt.Errorf("page payload must declare positive raster dimensions")
	}
	return page, nil
}

// Formatting methods
func (s *Server) formatPageResult(result pipeline.PageResult) (string, error) {
	text := fmt.Sprintf("Page %d: %d field(s) detected\n", result.Number, len(result.Fields))
	text += fmt.Sprintf("Matched: %d, Unmatched labels: %d, Unmatched fields: %d, Dropped: %d\n",
		result.Stats.MatchedPairs, result.Stats.UnmatchedLabels,
		result.Stats.UnmatchedFields, result.Stats.DroppedRecords)

	body, err := json.MarshalIndent(result.Fields, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to encode fields: %w", err)
	}
	text += "\nFields:\n" + string(body)
	return text, nil
}

func (s *Server) formatAssociateResult(pairs []match.Pair, stats match.Stats) (string, error) {
	text := fmt.Sprintf("%d pair(s) committed\n", stats.MatchedPairs)
	text += fmt.Sprintf("Unmatched labels: %d, Unmatched fields: %d, Dropped: %d\n",
		stats.UnmatchedLabels, stats.UnmatchedFields, stats.DroppedRecords)

	body, err := json.MarshalIndent(pairs, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to encode pairs: %w", err)
	}
	text += "\nPairs:\n" + string(body)
	return text, nil
}

func (s *Server) formatServerInfo() string {
	text := fmt.Sprintf("📋 %s v%s - Server Information\n", s.config.ServerName, s.config.Version)
	text += fmt.Sprintf("📐 DPI: %g\n", s.config.DPI)
	text += fmt.Sprintf("🎯 Pair gate: %g px, commit cutoff: %g px\n\n",
		s.config.MaxPairGate, s.config.MaxCommitDistance)

	text += "🛠️  Available Tools:\n"
	text += "\n• form_fields_detect\n"
	text += "  Description: Run the full field detection pipeline over one page\n"
	text += "  Parameters: page (JSON payload: labels, candidates, raster)\n"
	text += "\n• form_fields_associate\n"
	text += "  Description: Pair labels with candidates, skipping boundary refinement\n"
	text += "  Parameters: page (JSON payload: labels, candidates, raster)\n"
	text += "\n• form_fields_from_pdf\n"
	text += "  Description: Detect fields in a PDF via its AcroForm widgets and text layer\n"
	text += "  Parameters: path (PDF file path), page (optional 1-based page number)\n"
	text += "\n• fieldkit_server_info\n"
	text += "  Description: This information\n"

	text += "\nAll coordinates are pixels at the configured DPI with a top-left origin.\n"
	text += "Results are returned in reading order (top to bottom, left to right).\n"
	return text
}

// Run starts the MCP server in the configured mode
func (s *Server) Run(ctx context.Context) error {
	if s.config.IsServerMode() {
		return s.runServerMode(ctx)
	}
	return s.runStdioMode(ctx)
}

// runStdioMode runs the server in stdio mode
func (s *Server) runStdioMode(_ context.Context) error {
	if s.config.IsDebug() {
		log.Printf("Starting fieldkit MCP server in stdio mode")
		log.Printf("DPI: %g, commit cutoff: %g", s.config.DPI, s.config.MaxCommitDistance)
	}

	// Use the mark3labs/mcp-go server.ServeStdio function
	if err := server.ServeStdio(s.mcpServer); err != nil {
		return fmt.Errorf("failed to serve stdio: %w", err)
	}
	return nil
}

// runServerMode runs the server in HTTP server mode
func (s *Server) runServerMode(ctx context.Context) error {
	// For now, we'll just use stdio mode since the mark3labs library
	// handles the transport differently
	log.Printf("Server mode not yet implemented with mark3labs/mcp-go")
	log.Printf("Falling back to stdio mode")
	return s.runStdioMode(ctx)
}
