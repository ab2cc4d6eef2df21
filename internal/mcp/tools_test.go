package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/casefiledev/casefile-mcp/internal/config"
)

type toolHandler = func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error)

func setupTestServer(t *testing.T) *Server {
	t.Helper()

	cfg := &config.Config{
		DBPath:        ":memory:",
		LogLevel:      "info",
		CacheTTL:      time.Minute,
		ImportWorkers: 2,
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	server, err := NewServer(cfg, logger)
	require.NoError(t, err)
	t.Cleanup(func() { server.storage.Close() })

	return server
}

// callTool invokes a handler and decodes its JSON text payload.
func callTool(t *testing.T, handler toolHandler, args map[string]interface{}) map[string]interface{} {
	t.Helper()

	req := mcp.CallToolRequest{}
	req.Params.Arguments = args

	result, err := handler(context.Background(), req)
	require.NoError(t, err)
	require.NotEmpty(t, result.Content)

	text, ok := result.Content[0].(mcp.TextContent)
	require.True(t, ok, "expected text content")

	var payload map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(text.Text), &payload))
	return payload
}

// callToolErr invokes a handler expected to fail and returns the MCP error.
func callToolErr(t *testing.T, handler toolHandler, args map[string]interface{}) *MCPError {
	t.Helper()

	req := mcp.CallToolRequest{}
	req.Params.Arguments = args

	_, err := handler(context.Background(), req)
	require.Error(t, err)

	var mcpErr *MCPError
	require.ErrorAs(t, err, &mcpErr)
	return mcpErr
}

func investigationMap(t *testing.T, id, name, typ, codebase, start string, tags []interface{}) map[string]interface{} {
	t.Helper()

	st, err := time.Parse(time.RFC3339, start)
	require.NoError(t, err)

	m := map[string]interface{}{
		"id":         id,
		"name":       name,
		"type":       typ,
		"codebase":   codebase,
		"startTime":  start,
		"endTime":    st.Add(time.Hour).Format(time.RFC3339),
		"status":     "completed",
		"tokensUsed": 1200,
	}
	if tags != nil {
		m["tags"] = tags
	}
	return m
}

func addViaTool(t *testing.T, server *Server, record map[string]interface{}) {
	t.Helper()

	payload := callTool(t, server.handleAddInvestigation, map[string]interface{}{"record": record})
	require.Equal(t, true, payload["added"])
}

func importLine(id, name string) string {
	return fmt.Sprintf(`{"id":%q,"name":%q,"type":"security-audit","codebase":"github.com/acme/payments","startTime":"2026-03-10T09:00:00Z","endTime":"2026-03-10T10:00:00Z","status":"completed","tokensUsed":1200,"tags":["auth"]}`, id, name)
}

func writeImportFile(t *testing.T, dir, name string, lines ...string) string {
	t.Helper()

	path := filepath.Join(dir, name)
	content := strings.Join(lines, "\n") + "\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestHandleAddInvestigation(t *testing.T) {
	server := setupTestServer(t)

	record := investigationMap(t, "INV-1", "payment audit", "security-audit",
		"github.com/acme/payments", "2026-03-10T09:00:00Z", []interface{}{"auth"})

	payload := callTool(t, server.handleAddInvestigation, map[string]interface{}{"record": record})

	assert.Equal(t, true, payload["added"])
	stored := payload["record"].(map[string]interface{})
	assert.Equal(t, "INV-1", stored["id"])
	assert.EqualValues(t, 3600000, stored["duration"], "duration derives from the timestamps")
	assert.NotEmpty(t, stored["createdAt"])
}

func TestHandleAddInvestigation_AssignsID(t *testing.T) {
	server := setupTestServer(t)

	record := investigationMap(t, "", "payment audit", "security-audit",
		"github.com/acme/payments", "2026-03-10T09:00:00Z", nil)
	delete(record, "id")

	payload := callTool(t, server.handleAddInvestigation, map[string]interface{}{"record": record})

	stored := payload["record"].(map[string]interface{})
	_, err := uuid.Parse(stored["id"].(string))
	assert.NoError(t, err, "omitted id should come back as a UUID")
}

func TestHandleAddInvestigation_MissingRecord(t *testing.T) {
	server := setupTestServer(t)

	mcpErr := callToolErr(t, server.handleAddInvestigation, map[string]interface{}{})
	assert.Equal(t, ErrorCodeInvalidParams, mcpErr.Code)
	assert.Contains(t, mcpErr.Message, "record")
}

func TestHandleAddInvestigation_ValidationError(t *testing.T) {
	server := setupTestServer(t)

	record := investigationMap(t, "INV-1", "payment audit", "security-audit",
		"github.com/acme/payments", "2026-03-10T09:00:00Z", nil)
	delete(record, "name")

	mcpErr := callToolErr(t, server.handleAddInvestigation, map[string]interface{}{"record": record})
	assert.Equal(t, ErrorCodeInvalidParams, mcpErr.Code)
	assert.NotNil(t, mcpErr.Data)
}

func TestHandleAddInvestigation_Duplicate(t *testing.T) {
	server := setupTestServer(t)

	record := investigationMap(t, "INV-1", "payment audit", "security-audit",
		"github.com/acme/payments", "2026-03-10T09:00:00Z", nil)
	addViaTool(t, server, record)

	mcpErr := callToolErr(t, server.handleAddInvestigation, map[string]interface{}{"record": record})
	assert.Equal(t, ErrorCodeDuplicate, mcpErr.Code)
}

func TestHandleUpdateInvestigation(t *testing.T) {
	server := setupTestServer(t)
	addViaTool(t, server, investigationMap(t, "INV-1", "payment audit", "security-audit",
		"github.com/acme/payments", "2026-03-10T09:00:00Z", nil))

	payload := callTool(t, server.handleUpdateInvestigation, map[string]interface{}{
		"id":    "INV-1",
		"patch": map[string]interface{}{"qualityScore": 91.5},
	})

	assert.Equal(t, true, payload["updated"])
	updated := payload["record"].(map[string]interface{})
	assert.EqualValues(t, 91.5, updated["qualityScore"])
}

func TestHandleUpdateInvestigation_NotFound(t *testing.T) {
	server := setupTestServer(t)

	mcpErr := callToolErr(t, server.handleUpdateInvestigation, map[string]interface{}{
		"id":    "missing",
		"patch": map[string]interface{}{"qualityScore": 50.0},
	})
	assert.Equal(t, ErrorCodeNotFound, mcpErr.Code)
}

func TestHandleUpdateInvestigation_MissingPatch(t *testing.T) {
	server := setupTestServer(t)

	mcpErr := callToolErr(t, server.handleUpdateInvestigation, map[string]interface{}{"id": "INV-1"})
	assert.Equal(t, ErrorCodeInvalidParams, mcpErr.Code)
	assert.Contains(t, mcpErr.Message, "patch")
}

func TestHandleGetInvestigation(t *testing.T) {
	server := setupTestServer(t)
	addViaTool(t, server, investigationMap(t, "INV-1", "payment audit", "security-audit",
		"github.com/acme/payments", "2026-03-10T09:00:00Z", nil))

	payload := callTool(t, server.handleGetInvestigation, map[string]interface{}{"id": "INV-1"})

	record := payload["record"].(map[string]interface{})
	assert.Equal(t, "payment audit", record["name"])
}

func TestHandleGetInvestigation_NotFound(t *testing.T) {
	server := setupTestServer(t)

	mcpErr := callToolErr(t, server.handleGetInvestigation, map[string]interface{}{"id": "missing"})
	assert.Equal(t, ErrorCodeNotFound, mcpErr.Code)
}

func TestHandleDeleteInvestigation(t *testing.T) {
	server := setupTestServer(t)
	addViaTool(t, server, investigationMap(t, "INV-1", "payment audit", "security-audit",
		"github.com/acme/payments", "2026-03-10T09:00:00Z", nil))

	payload := callTool(t, server.handleDeleteInvestigation, map[string]interface{}{"id": "INV-1"})
	assert.Equal(t, true, payload["deleted"])

	// Deleting an id that is already gone is not an error.
	payload = callTool(t, server.handleDeleteInvestigation, map[string]interface{}{"id": "INV-1"})
	assert.Equal(t, false, payload["deleted"])
}

func TestHandleSearchInvestigations(t *testing.T) {
	server := setupTestServer(t)
	addViaTool(t, server, investigationMap(t, "INV-1", "payment audit", "security-audit",
		"github.com/acme/payments", "2026-01-10T09:00:00Z", nil))
	addViaTool(t, server, investigationMap(t, "INV-2", "identity audit", "security-audit",
		"github.com/acme/identity", "2026-02-15T09:00:00Z", nil))
	addViaTool(t, server, investigationMap(t, "INV-3", "latency review", "performance-review",
		"github.com/acme/payments", "2026-03-01T09:00:00Z", nil))

	payload := callTool(t, server.handleSearchInvestigations, map[string]interface{}{
		"types": []interface{}{"security-audit"},
	})

	assert.EqualValues(t, 2, payload["total"])
	assert.Len(t, payload["records"], 2)
}

func TestHandleSearchInvestigations_FullText(t *testing.T) {
	server := setupTestServer(t)
	addViaTool(t, server, investigationMap(t, "INV-1", "token rotation audit", "security-audit",
		"github.com/acme/payments", "2026-01-10T09:00:00Z", nil))
	addViaTool(t, server, investigationMap(t, "INV-2", "cache warmup review", "performance-review",
		"github.com/acme/payments", "2026-02-15T09:00:00Z", nil))

	payload := callTool(t, server.handleSearchInvestigations, map[string]interface{}{
		"searchText": "rotation",
	})

	assert.EqualValues(t, 1, payload["total"])
	records := payload["records"].([]interface{})
	require.Len(t, records, 1)
	assert.Equal(t, "INV-1", records[0].(map[string]interface{})["id"])
}

func TestHandleSearchInvestigations_NoArguments(t *testing.T) {
	server := setupTestServer(t)
	addViaTool(t, server, investigationMap(t, "INV-1", "payment audit", "security-audit",
		"github.com/acme/payments", "2026-01-10T09:00:00Z", nil))

	// A bare tools/call without arguments lists everything.
	payload := callTool(t, server.handleSearchInvestigations, nil)

	assert.EqualValues(t, 1, payload["total"])
}

func TestHandleSearchInvestigations_InvalidType(t *testing.T) {
	server := setupTestServer(t)

	mcpErr := callToolErr(t, server.handleSearchInvestigations, map[string]interface{}{
		"types": []interface{}{"phrenology"},
	})
	assert.Equal(t, ErrorCodeInvalidParams, mcpErr.Code)
}

func TestHandleFindSimilar(t *testing.T) {
	server := setupTestServer(t)
	addViaTool(t, server, investigationMap(t, "INV-1", "payment audit", "security-audit",
		"github.com/acme/payments", "2026-01-10T09:00:00Z", []interface{}{"auth"}))
	addViaTool(t, server, investigationMap(t, "INV-2", "token review", "security-audit",
		"github.com/acme/payments", "2026-02-15T09:00:00Z", []interface{}{"auth", "jwt"}))

	payload := callTool(t, server.handleFindSimilar, map[string]interface{}{"id": "INV-1"})

	assert.Equal(t, "INV-1", payload["id"])
	assert.EqualValues(t, 1, payload["count"])

	matches := payload["matches"].([]interface{})
	require.Len(t, matches, 1)
	match := matches[0].(map[string]interface{})
	assert.Equal(t, "INV-2", match["record"].(map[string]interface{})["id"])
	assert.InDelta(t, 85.0, match["score"].(float64), 0.001)
	assert.Equal(t, []interface{}{"same type", "same codebase", "1 shared tag"}, match["reasons"])
}

func TestHandleFindSimilar_NotFound(t *testing.T) {
	server := setupTestServer(t)

	mcpErr := callToolErr(t, server.handleFindSimilar, map[string]interface{}{"id": "missing"})
	assert.Equal(t, ErrorCodeNotFound, mcpErr.Code)
}

func TestHandleRecommendInvestigations(t *testing.T) {
	server := setupTestServer(t)
	addViaTool(t, server, investigationMap(t, "INV-1", "payment audit", "security-audit",
		"github.com/acme/payments", "2026-01-10T09:00:00Z", []interface{}{"auth"}))
	addViaTool(t, server, investigationMap(t, "INV-2", "token review", "security-audit",
		"github.com/acme/payments", "2026-02-15T09:00:00Z", []interface{}{"auth", "jwt"}))

	payload := callTool(t, server.handleRecommendInvestigations, map[string]interface{}{
		"type":     "security-audit",
		"codebase": "github.com/acme/payments",
		"tags":     []interface{}{"auth"},
	})

	assert.EqualValues(t, 2, payload["count"])
	matches := payload["matches"].([]interface{})
	require.Len(t, matches, 2)

	first := matches[0].(map[string]interface{})
	assert.Equal(t, "INV-1", first["record"].(map[string]interface{})["id"])
	assert.InDelta(t, 100.0, first["score"].(float64), 0.001)

	second := matches[1].(map[string]interface{})
	assert.Equal(t, "INV-2", second["record"].(map[string]interface{})["id"])
	assert.InDelta(t, 85.0, second["score"].(float64), 0.001)
}

func TestHandleRecommendInvestigations_MissingType(t *testing.T) {
	server := setupTestServer(t)

	mcpErr := callToolErr(t, server.handleRecommendInvestigations, map[string]interface{}{
		"codebase": "github.com/acme/payments",
	})
	assert.Equal(t, ErrorCodeInvalidParams, mcpErr.Code)
	assert.Contains(t, mcpErr.Message, "type")
}

func TestHandleRecommendInvestigations_UnknownType(t *testing.T) {
	server := setupTestServer(t)

	mcpErr := callToolErr(t, server.handleRecommendInvestigations, map[string]interface{}{
		"type": "phrenology",
	})
	assert.Equal(t, ErrorCodeInvalidParams, mcpErr.Code)
}

func TestHandleGetStatistics(t *testing.T) {
	server := setupTestServer(t)
	addViaTool(t, server, investigationMap(t, "INV-1", "payment audit", "security-audit",
		"github.com/acme/payments", "2026-01-10T09:00:00Z", []interface{}{"auth"}))
	addViaTool(t, server, investigationMap(t, "INV-2", "identity audit", "security-audit",
		"github.com/acme/identity", "2026-02-15T09:00:00Z", nil))

	payload := callTool(t, server.handleGetStatistics, nil)

	statistics := payload["statistics"].(map[string]interface{})
	assert.EqualValues(t, 2, statistics["total"])
	byType := statistics["byType"].(map[string]interface{})
	assert.EqualValues(t, 2, byType["security-audit"])

	status := payload["status"].(map[string]interface{})
	assert.Equal(t, "1.0.0", status["schemaVersion"])
	assert.EqualValues(t, 2, status["investigations"])
	assert.NotEmpty(t, status["buildMode"])
}

func TestHandleImportInvestigations_File(t *testing.T) {
	server := setupTestServer(t)
	path := writeImportFile(t, t.TempDir(), "registry.jsonl",
		importLine("INV-1", "first"),
		importLine("INV-2", "second"))

	payload := callTool(t, server.handleImportInvestigations, map[string]interface{}{"path": path})

	assert.EqualValues(t, 1, payload["filesProcessed"])
	assert.EqualValues(t, 2, payload["recordsImported"])

	records, err := server.storage.GetAll(context.Background(), 0, 0)
	require.NoError(t, err)
	assert.Len(t, records, 2)
}

func TestHandleImportInvestigations_Directory(t *testing.T) {
	server := setupTestServer(t)
	dir := t.TempDir()
	writeImportFile(t, dir, "one.jsonl", importLine("INV-1", "first"))
	writeImportFile(t, dir, "two.jsonl", importLine("INV-2", "second"))
	writeImportFile(t, dir, "notes.txt", "not an import file")

	payload := callTool(t, server.handleImportInvestigations, map[string]interface{}{"path": dir})

	assert.EqualValues(t, 2, payload["filesProcessed"])
	assert.EqualValues(t, 2, payload["recordsImported"])
}

func TestHandleImportInvestigations_DuplicateFail(t *testing.T) {
	server := setupTestServer(t)
	addViaTool(t, server, investigationMap(t, "INV-1", "payment audit", "security-audit",
		"github.com/acme/payments", "2026-03-10T09:00:00Z", nil))
	path := writeImportFile(t, t.TempDir(), "registry.jsonl", importLine("INV-1", "duplicate"))

	mcpErr := callToolErr(t, server.handleImportInvestigations, map[string]interface{}{
		"path":         path,
		"on_duplicate": "fail",
	})
	assert.Equal(t, ErrorCodeDuplicate, mcpErr.Code)
}

func TestHandleImportInvestigations_RelativePath(t *testing.T) {
	server := setupTestServer(t)

	mcpErr := callToolErr(t, server.handleImportInvestigations, map[string]interface{}{
		"path": "exports/registry.jsonl",
	})
	assert.Equal(t, ErrorCodeInvalidParams, mcpErr.Code)
}

func TestHandleImportInvestigations_WrongExtension(t *testing.T) {
	server := setupTestServer(t)
	path := writeImportFile(t, t.TempDir(), "registry.txt", importLine("INV-1", "first"))

	mcpErr := callToolErr(t, server.handleImportInvestigations, map[string]interface{}{"path": path})
	assert.Equal(t, ErrorCodeInvalidParams, mcpErr.Code)
}

func TestHandleImportInvestigations_BadPolicy(t *testing.T) {
	server := setupTestServer(t)
	path := writeImportFile(t, t.TempDir(), "registry.jsonl", importLine("INV-1", "first"))

	mcpErr := callToolErr(t, server.handleImportInvestigations, map[string]interface{}{
		"path":         path,
		"on_duplicate": "merge",
	})
	assert.Equal(t, ErrorCodeInvalidParams, mcpErr.Code)
}

func TestMutationsInvalidateSearchCache(t *testing.T) {
	server := setupTestServer(t)
	addViaTool(t, server, investigationMap(t, "INV-1", "payment audit", "security-audit",
		"github.com/acme/payments", "2026-01-10T09:00:00Z", nil))
	addViaTool(t, server, investigationMap(t, "INV-2", "identity audit", "security-audit",
		"github.com/acme/identity", "2026-02-15T09:00:00Z", nil))

	search := map[string]interface{}{"types": []interface{}{"security-audit"}}

	payload := callTool(t, server.handleSearchInvestigations, search)
	assert.EqualValues(t, 2, payload["total"])

	payload = callTool(t, server.handleSearchInvestigations, search)
	assert.Equal(t, true, payload["fromCache"], "repeated search should hit the cache")

	addViaTool(t, server, investigationMap(t, "INV-3", "third audit", "security-audit",
		"github.com/acme/payments", "2026-03-01T09:00:00Z", nil))

	payload = callTool(t, server.handleSearchInvestigations, search)
	assert.EqualValues(t, 3, payload["total"], "a write should invalidate cached searches")
}
