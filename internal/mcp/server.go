package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"path/filepath"
	"sort"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/certforge/formsync/internal/config"
	"github.com/certforge/formsync/internal/form"
	"github.com/certforge/formsync/internal/template"
)

// Server represents the MCP server instance
type Server struct {
	config    *config.Config
	templates *template.Service
	mcpServer *server.MCPServer
}

// NewServer creates a new MCP server instance
func NewServer(cfg *config.Config, templates *template.Service) (*Server, error) {
	if templates == nil {
		return nil, fmt.Errorf("template service cannot be nil")
	}

	mcpServer := server.NewMCPServer(
		cfg.ServerName,
		cfg.Version,
		server.WithToolCapabilities(false), // We don't support dynamic tool capabilities
	)

	s := &Server{
		config:    cfg,
		templates: templates,
		mcpServer: mcpServer,
	}

	s.registerTools()

	return s, nil
}

// registerTools registers all available MCP tools
func (s *Server) registerTools() {
	extractFieldsTool := mcp.NewTool(
		"template_extract_fields",
		mcp.WithDescription("Extract the form field definitions (names, types, positions) from a PDF template"),
		mcp.WithString("path",
			mcp.Required(),
			mcp.Description("Path to the PDF template"),
		),
	)
	s.mcpServer.AddTool(extractFieldsTool, s.handleExtractFields)

	extractValuesTool := mcp.NewTool(
		"template_extract_values",
		mcp.WithDescription("Extract the current form field values from a PDF template"),
		mcp.WithString("path",
			mcp.Required(),
			mcp.Description("Path to the PDF template"),
		),
	)
	s.mcpServer.AddTool(extractValuesTool, s.handleExtractValues)

	fillTool := mcp.NewTool(
		"template_fill",
		mcp.WithDescription("Fill a PDF template's form fields and write the result to a new file"),
		mcp.WithString("path",
			mcp.Required(),
			mcp.Description("Path to the PDF template"),
		),
		mcp.WithString("output_path",
			mcp.Required(),
			mcp.Description("Path to write the filled copy to"),
		),
		mcp.WithString("values",
			mcp.Required(),
			mcp.Description(`JSON object mapping field names to values, e.g. {"name":"Alice","agree":true,"color":"/Red"}`),
		),
	)
	s.mcpServer.AddTool(fillTool, s.handleFill)

	syncTool := mcp.NewTool(
		"template_sync",
		mcp.WithDescription("Reconcile a submitted PDF's field values against supplied values and prior field metadata"),
		mcp.WithString("path",
			mcp.Required(),
			mcp.Description("Path to the submitted PDF"),
		),
		mcp.WithString("supplied",
			mcp.Description("JSON object of values supplied alongside the document"),
		),
		mcp.WithString("previous",
			mcp.Description("JSON field payload from the last sync, used to detect metadata changes"),
		),
	)
	s.mcpServer.AddTool(syncTool, s.handleSync)

	infoTool := mcp.NewTool(
		"template_info",
		mcp.WithDescription("Get page count, size, and form statistics for a PDF template"),
		mcp.WithString("path",
			mcp.Required(),
			mcp.Description("Path to the PDF template"),
		),
	)
	s.mcpServer.AddTool(infoTool, s.handleInfo)
}

// resolvePath anchors relative paths at the configured template directory.
func (s *Server) resolvePath(path string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(s.config.TemplateDirectory, path)
}

// Handler functions
func (s *Server) handleExtractFields(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := request.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	result, err := s.templates.ExtractFields(template.ExtractFieldsRequest{Path: s.resolvePath(path)})
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(s.formatExtractFieldsResult(result)), nil
}

func (s *Server) handleExtractValues(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := request.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	result, err := s.templates.ExtractValues(template.ExtractValuesRequest{Path: s.resolvePath(path)})
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(s.formatExtractValuesResult(result)), nil
}

func (s *Server) handleFill(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := request.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	outputPath, err := request.RequireString("output_path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	rawValues, err := request.RequireString("values")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var values form.ValueMapping
	if err := json.Unmarshal([]byte(rawValues), &values); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("invalid values JSON: %v", err)), nil
	}

	result, err := s.templates.Fill(template.FillRequest{
		Path:       s.resolvePath(path),
		OutputPath: s.resolvePath(outputPath),
		Values:     values,
	})
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(s.formatFillResult(result)), nil
}

func (s *Server) handleSync(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := request.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	args := request.GetArguments()

	var supplied form.ValueMapping
	if raw, ok := args["supplied"].(string); ok && raw != "" {
		if err := json.Unmarshal([]byte(raw), &supplied); err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("invalid supplied JSON: %v", err)), nil
		}
	}

	var previous *form.Payload
	if raw, ok := args["previous"].(string); ok && raw != "" {
		previous = &form.Payload{}
		if err := json.Unmarshal([]byte(raw), previous); err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("invalid previous JSON: %v", err)), nil
		}
	}

	result, err := s.templates.Sync(template.SyncRequest{
		Path:     s.resolvePath(path),
		Supplied: supplied,
		Previous: previous,
	})
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(s.formatSyncResult(result)), nil
}

func (s *Server) handleInfo(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := request.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	result, err := s.templates.Info(template.InfoRequest{Path: s.resolvePath(path)})
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(s.formatInfoResult(result)), nil
}

// Formatting methods
func (s *Server) formatExtractFieldsResult(result *template.ExtractFieldsResult) string {
	text := fmt.Sprintf("Form fields in %s\n", result.Path)
	text += fmt.Sprintf("Extraction method: %s\n", result.Payload.Extraction.Method)
	text += fmt.Sprintf("Field count: %d\n", result.Payload.Extraction.FieldCount)

	if len(result.Payload.Fields) > 0 {
		text += "\nFields:\n"
		for i, field := range result.Payload.Fields {
			text += fmt.Sprintf("%d. %s (%s)", i+1, field.Name, field.Kind)
			if field.Required {
				text += " [required]"
			}
			if field.PageIndex >= 0 {
				text += fmt.Sprintf(", page %d", field.PageIndex+1)
			}
			if len(field.Options) > 0 {
				text += fmt.Sprintf(", options: %v", field.Options)
			}
			text += "\n"
		}
	}

	payloadJSON, err := json.MarshalIndent(result.Payload, "", "  ")
	if err == nil {
		text += "\nPayload:\n" + string(payloadJSON) + "\n"
	}

	return text
}

func (s *Server) formatExtractValuesResult(result *template.ExtractValuesResult) string {
	text := fmt.Sprintf("Form values in %s\n", result.Path)
	text += fmt.Sprintf("Extraction method: %s\n", result.Report.Strategy)
	text += fmt.Sprintf("Field count: %d\n", result.Report.FieldCount)

	if len(result.Values) > 0 {
		names := make([]string, 0, len(result.Values))
		for name := range result.Values {
			names = append(names, name)
		}
		sort.Strings(names)

		text += "\nValues:\n"
		for _, name := range names {
			text += fmt.Sprintf("  %s = %q\n", name, result.Values[name].String())
		}
	}

	return text
}

func (s *Server) formatFillResult(result *template.FillResult) string {
	if result.FellBack {
		return fmt.Sprintf("Could not serialize a filled copy of %s; wrote the original document to %s instead\n",
			result.Path, result.OutputPath)
	}

	text := fmt.Sprintf("Filled %s -> %s\n", result.Path, result.OutputPath)
	text += fmt.Sprintf("Fields filled: %d\n", result.Report.Filled)

	if len(result.Report.NotFound) > 0 {
		text += fmt.Sprintf("Not found in template: %v\n", result.Report.NotFound)
	}
	if len(result.Report.Failed) > 0 {
		text += "Failed:\n"
		for _, failure := range result.Report.Failed {
			text += fmt.Sprintf("  %s: %s\n", failure.Name, failure.Reason)
		}
	}

	return text
}

func (s *Server) formatSyncResult(result *template.SyncResult) string {
	text := fmt.Sprintf("Synced %s\n", result.Path)
	text += fmt.Sprintf("Metadata changed: %t\n", result.MetadataChanged)

	valuesJSON, err := json.MarshalIndent(result.Values, "", "  ")
	if err == nil {
		text += "\nValues:\n" + string(valuesJSON) + "\n"
	}

	if result.Payload != nil {
		payloadJSON, err := json.MarshalIndent(result.Payload, "", "  ")
		if err == nil {
			text += "\nField payload:\n" + string(payloadJSON) + "\n"
		}
	}

	return text
}

func (s *Server) formatInfoResult(result *template.InfoResult) string {
	text := "Template Information\n"
	text += fmt.Sprintf("File: %s\n", result.Path)
	text += fmt.Sprintf("Size: %d bytes\n", result.SizeBytes)
	text += fmt.Sprintf("Pages: %d\n", result.PageCount)
	text += fmt.Sprintf("Form fields: %d\n", result.FieldCount)
	if result.Strategy != "" {
		text += fmt.Sprintf("Extraction method: %s\n", result.Strategy)
	}

	return text
}

// Run serves MCP over stdio. Server mode differs from stdio mode only in
// logging: it announces startup so a supervisor has something to watch.
func (s *Server) Run(_ context.Context) error {
	if s.config.IsServerMode() {
		log.Printf("Starting form-sync MCP server (foreground, transport stdio)")
		log.Printf("Template directory: %s", s.config.TemplateDirectory)
	} else if s.config.IsDebug() {
		log.Printf("Starting form-sync MCP server in stdio mode")
		log.Printf("Template directory: %s", s.config.TemplateDirectory)
	}

	if err := server.ServeStdio(s.mcpServer); err != nil {
		return fmt.Errorf("failed to serve stdio: %w", err)
	}
	return nil
}
