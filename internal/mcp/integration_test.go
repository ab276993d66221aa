package mcp

import (
	"context"
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"

	"github.com/certforge/formsync/internal/template"
)

// TestServerFillThenSyncFlow exercises the full round trip a client would
// drive: fill a template, re-extract the filled copy, and sync it against
// the payload from the first extraction.
func TestServerFillThenSyncFlow(t *testing.T) {
	tempDir := t.TempDir()
	testFile := writeFormTemplate(t, tempDir)
	server := newTestServer(t, tempDir)
	ctx := context.Background()

	filled := filepath.Join(tempDir, "filled.pdf")
	result, err := server.handleFill(ctx, toolRequest(map[string]interface{}{
		"path":        testFile,
		"output_path": filled,
		"values":      `{"name": "Bob", "agree": true}`,
	}))
	if err != nil {
		t.Fatalf("fill handler failed: %v", err)
	}
	if result.IsError {
		t.Fatalf("fill returned error result: %s", extractTextFromResult(result))
	}

	result, err = server.handleExtractValues(ctx, toolRequest(map[string]interface{}{
		"path": filled,
	}))
	if err != nil {
		t.Fatalf("extract handler failed: %v", err)
	}
	resultText := extractTextFromResult(result)
	if !strings.Contains(resultText, `name = "Bob"`) {
		t.Errorf("filled copy should carry the new value, got: %s", resultText)
	}

	// Capture the field payload of the filled copy, then sync against it:
	// nothing should look changed.
	fields, err := server.templates.ExtractFields(template.ExtractFieldsRequest{Path: filled})
	if err != nil {
		t.Fatalf("extract fields failed: %v", err)
	}
	previousJSON, err := json.Marshal(fields.Payload)
	if err != nil {
		t.Fatalf("marshal payload: %v", err)
	}

	result, err = server.handleSync(ctx, toolRequest(map[string]interface{}{
		"path":     filled,
		"previous": string(previousJSON),
	}))
	if err != nil {
		t.Fatalf("sync handler failed: %v", err)
	}
	resultText = extractTextFromResult(result)
	if !strings.Contains(resultText, "Metadata changed: false") {
		t.Errorf("sync against a current payload should report no change, got: %s", resultText)
	}
}

func TestServerToolsRegistration(t *testing.T) {
	server := newTestServer(t, t.TempDir())

	if server.mcpServer == nil {
		t.Fatal("mcpServer should be initialized after NewServer")
	}
}

func TestServerErrorHandling(t *testing.T) {
	tempDir := t.TempDir()
	server := newTestServer(t, tempDir)
	ctx := context.Background()

	// A path that does not exist surfaces as an error result, never as a
	// handler error.
	result, err := server.handleExtractValues(ctx, toolRequest(map[string]interface{}{
		"path": filepath.Join(tempDir, "missing.pdf"),
	}))
	if err != nil {
		t.Fatalf("handler failed: %v", err)
	}
	if result == nil || !result.IsError {
		t.Error("expected an error result for a missing file")
	}
	if !strings.Contains(extractTextFromResult(result), "does not exist") {
		t.Errorf("error should mention the missing file, got: %s", extractTextFromResult(result))
	}
}
