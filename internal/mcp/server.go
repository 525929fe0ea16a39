package mcp

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"go.uber.org/zap"

	"github.com/a3tai/pdf-collector/internal/config"
	"github.com/a3tai/pdf-collector/internal/descriptions"
	"github.com/a3tai/pdf-collector/internal/pdf"
	"github.com/a3tai/pdf-collector/internal/records"
)

const (
	defaultRecordLimit = 20
	previewChars       = 300
)

// RecordStore is the read side of the collected data.
type RecordStore interface {
	List() ([]records.Record, error)
	Get(id string) (*records.Record, error)
	Stats() (*records.Stats, error)
}

// Server represents the MCP server instance
type Server struct {
	config     *config.Config
	pdfService *pdf.Service
	store      RecordStore
	logger     *zap.Logger
	mcpServer  *server.MCPServer
}

// NewServer creates a new MCP server instance
func NewServer(cfg *config.Config, pdfService *pdf.Service, store RecordStore, logger *zap.Logger) (*Server, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}
	if pdfService == nil {
		return nil, fmt.Errorf("pdfService cannot be nil")
	}
	if store == nil {
		return nil, fmt.Errorf("record store cannot be nil")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	mcpServer := server.NewMCPServer(
		cfg.ServerName,
		cfg.Version,
		server.WithToolCapabilities(false), // We don't support dynamic tool capabilities
	)

	s := &Server{
		config:     cfg,
		pdfService: pdfService,
		store:      store,
		logger:     logger,
		mcpServer:  mcpServer,
	}

	s.registerTools()

	return s, nil
}

// registerTools registers all available MCP tools
func (s *Server) registerTools() {
	s.mcpServer.AddTool(mcp.NewTool(
		"pdf_extract_text",
		mcp.WithDescription(descriptions.GetToolDescription("pdf_extract_text")),
		mcp.WithString("path",
			mcp.Required(),
			mcp.Description("Saved file name or path inside the upload directory"),
		),
		mcp.WithBoolean("all_methods",
			mcp.Description("Run every extraction method and report how each did"),
		),
	), s.handlePDFExtractText)

	s.mcpServer.AddTool(mcp.NewTool(
		"pdf_validate_file",
		mcp.WithDescription(descriptions.GetToolDescription("pdf_validate_file")),
		mcp.WithString("path",
			mcp.Required(),
			mcp.Description("Saved file name or path inside the upload directory"),
		),
	), s.handlePDFValidateFile)

	s.mcpServer.AddTool(mcp.NewTool(
		"pdf_list_records",
		mcp.WithDescription(descriptions.GetToolDescription("pdf_list_records")),
		mcp.WithNumber("limit",
			mcp.Description(fmt.Sprintf("Maximum number of records to return (default %d)", defaultRecordLimit)),
		),
	), s.handlePDFListRecords)

	s.mcpServer.AddTool(mcp.NewTool(
		"pdf_get_record",
		mcp.WithDescription(descriptions.GetToolDescription("pdf_get_record")),
		mcp.WithString("id",
			mcp.Required(),
			mcp.Description("Record id"),
		),
	), s.handlePDFGetRecord)

	s.mcpServer.AddTool(mcp.NewTool(
		"pdf_record_stats",
		mcp.WithDescription(descriptions.GetToolDescription("pdf_record_stats")),
	), s.handlePDFRecordStats)

	s.mcpServer.AddTool(mcp.NewTool(
		"pdf_server_info",
		mcp.WithDescription(descriptions.GetToolDescription("pdf_server_info")),
	), s.handlePDFServerInfo)
}

// Handler functions

func (s *Server) handlePDFExtractText(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := request.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	allMethods, _ := request.GetArguments()["all_methods"].(bool)

	result, err := s.pdfService.PDFExtractText(pdf.PDFExtractTextRequest{Path: path, AllMethods: allMethods})
	if err != nil {
		s.logger.Warn("pdf_extract_text failed", zap.String("path", path), zap.Error(err))
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(s.formatPDFExtractTextResult(result)), nil
}

func (s *Server) handlePDFValidateFile(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := request.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	result, err := s.pdfService.PDFValidateFile(pdf.PDFValidateFileRequest{Path: path})
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var responseText string
	if result.Valid {
		responseText = fmt.Sprintf("PDF file %s is valid and readable (%d pages)", result.Path, result.Pages)
	} else {
		responseText = fmt.Sprintf("PDF validation failed for %s: %s", result.Path, result.Message)
	}

	return mcp.NewToolResultText(responseText), nil
}

func (s *Server) handlePDFListRecords(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	limit := defaultRecordLimit
	if raw, ok := request.GetArguments()["limit"]; ok {
		n, ok := raw.(float64)
		if !ok || n < 1 {
			return mcp.NewToolResultError("limit must be a positive number"), nil
		}
		limit = int(n)
	}

	all, err := s.store.List()
	if err != nil {
		s.logger.Error("list records failed", zap.Error(err))
		return mcp.NewToolResultError(fmt.Sprintf("failed to list records: %v", err)), nil
	}

	return mcp.NewToolResultText(s.formatRecordList(all, limit)), nil
}

func (s *Server) handlePDFGetRecord(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := request.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	rec, err := s.store.Get(id)
	if errors.Is(err, records.ErrNotFound) {
		return mcp.NewToolResultError(fmt.Sprintf("no record with id %s", id)), nil
	}
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to read record: %v", err)), nil
	}

	return mcp.NewToolResultText(s.formatRecord(rec)), nil
}

func (s *Server) handlePDFRecordStats(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	st, err := s.store.Stats()
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to compute stats: %v", err)), nil
	}

	text := "Collected data statistics:\n"
	text += fmt.Sprintf("Total records: %d\n", st.TotalRecords)
	text += fmt.Sprintf("Records with extracted text: %d\n", st.TotalPDFs)
	text += fmt.Sprintf("Server time: %s\n", st.Uptime)
	return mcp.NewToolResultText(text), nil
}

func (s *Server) handlePDFServerInfo(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	result, err := s.pdfService.PDFServerInfo(ctx, pdf.PDFServerInfoRequest{}, s.config.ServerName, s.config.Version)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(s.formatPDFServerInfoResult(result)), nil
}

// Formatting

func (s *Server) formatPDFExtractTextResult(result *pdf.PDFExtractTextResult) string {
	text := fmt.Sprintf("Extracted PDF: %s\n", result.Path)
	text += fmt.Sprintf("Pages: %d\n", result.Pages)
	text += fmt.Sprintf("Size: %d bytes\n", result.Size)
	if result.Success {
		text += fmt.Sprintf("Method: %s\n", strings.Join(result.Methods, ", "))
	} else {
		text += "Method: none produced readable text\n"
	}

	text += "\nAttempts:\n"
	for _, a := range result.Attempts {
		status := "no text"
		switch {
		case a.Success:
			status = "ok"
		case a.Error != "":
			status = "error: " + a.Error
		}
		text += fmt.Sprintf("  • %s: %d pages, %d chars, %s\n", a.Method, a.Pages, a.Chars, status)
	}

	text += "\n" + result.Content
	return text
}

func (s *Server) formatRecordList(all []records.Record, limit int) string {
	if len(all) == 0 {
		return "No records collected yet"
	}

	shown := all
	if len(shown) > limit {
		shown = shown[:limit]
	}

	text := fmt.Sprintf("Records (%d of %d, newest first):\n", len(shown), len(all))
	for i, r := range shown {
		text += fmt.Sprintf("\n%d. %s\n", i+1, r.ID)
		text += fmt.Sprintf("   Created: %s\n", r.CreatedAt)
		text += fmt.Sprintf("   File: %s (saved as %s, %d bytes)\n",
			r.Data.File.OriginalName, r.Data.File.SavedName, r.Data.File.Size)
		text += fmt.Sprintf("   Extracted: %d chars\n", len([]rune(r.Data.PDFContent)))
		text += fmt.Sprintf("   Preview: %s\n", preview(strings.Join(strings.Fields(r.Data.PDFContent), " "), previewChars))
	}
	return text
}

func (s *Server) formatRecord(r *records.Record) string {
	text := fmt.Sprintf("Record %s\n", r.ID)
	text += fmt.Sprintf("Created: %s\n", r.CreatedAt)
	text += fmt.Sprintf("Status: %s\n", r.Data.Status)
	text += fmt.Sprintf("File: %s (saved as %s, %d bytes)\n",
		r.Data.File.OriginalName, r.Data.File.SavedName, r.Data.File.Size)
	if r.Data.IPAddress != "" {
		text += fmt.Sprintf("Uploaded from: %s\n", r.Data.IPAddress)
	}
	text += "\n" + r.Data.PDFContent
	return text
}

func (s *Server) formatPDFServerInfoResult(result *pdf.PDFServerInfoResult) string {
	text := fmt.Sprintf("📋 %s v%s - Server Information\n", result.ServerName, result.Version)
	text += fmt.Sprintf("📁 Upload Directory: %s\n", result.UploadDirectory)
	text += fmt.Sprintf("📏 Limits: %d MB, %d pages\n", result.MaxFileSize/(1024*1024), result.MaxPages)
	text += fmt.Sprintf("🔎 Extraction Methods: %s\n\n", strings.Join(result.ExtractionMethods, " → "))

	if len(result.RecentUploads) > 0 {
		text += fmt.Sprintf("📂 Recent Uploads (%d):\n", len(result.RecentUploads))
		for i, file := range result.RecentUploads {
			if i >= 10 {
				text += fmt.Sprintf("   ... and %d more files\n", len(result.RecentUploads)-10)
				break
			}
			text += fmt.Sprintf("   %d. %s (%d bytes)\n", i+1, file.Name, file.Size)
		}
		text += "\n"
	} else {
		text += "📂 Recent Uploads: none\n\n"
	}

	text += "🛠️  Available Tools:\n"
	for _, tool := range result.AvailableTools {
		text += fmt.Sprintf("\n• %s\n", tool.Name)
		text += fmt.Sprintf("  Description: %s\n", tool.Description)
		text += fmt.Sprintf("  Parameters: %s\n", tool.Parameters)
	}

	text += "\n" + result.UsageGuidance

	return text
}

// preview shortens s to at most n runes.
func preview(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}

// Run serves MCP over standard input and output until ctx is done or the
// input is closed.
func (s *Server) Run(ctx context.Context) error {
	return s.Serve(ctx, os.Stdin, os.Stdout)
}

// Serve speaks MCP over the given streams.
func (s *Server) Serve(ctx context.Context, in io.Reader, out io.Writer) error {
	s.logger.Info("starting MCP server on stdio",
		zap.String("upload_dir", s.config.UploadDir),
		zap.Strings("methods", s.pdfService.Methods()))

	stdio := server.NewStdioServer(s.mcpServer)
	stdio.SetErrorLogger(zap.NewStdLog(s.logger))

	err := stdio.Listen(ctx, in, out)
	if err != nil && !errors.Is(err, context.Canceled) && !errors.Is(err, io.EOF) {
		return fmt.Errorf("failed to serve stdio: %w", err)
	}
	return nil
}
