package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/mark3labs/mcp-go/mcp"

	"github.com/casefiledev/casefile-mcp/internal/importer"
	"github.com/casefiledev/casefile-mcp/internal/recommender"
	"github.com/casefiledev/casefile-mcp/pkg/types"
)

// MCP error codes
const (
	ErrorCodeInvalidParams = -32602 // Invalid method parameters, including validation failures
	ErrorCodeInternalError = -32603 // Internal JSON-RPC error
	ErrorCodeNotFound      = -32001 // Referenced investigation does not exist
	ErrorCodeDuplicate     = -32002 // Investigation id already present
)

// handleAddInvestigation handles the add_investigation tool invocation
func (s *Server) handleAddInvestigation(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := requestArguments(request)
	if !ok {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid arguments", nil)
	}

	rawRecord, ok := args["record"].(map[string]interface{})
	if !ok {
		return nil, newMCPError(ErrorCodeInvalidParams, "record parameter is required", map[string]interface{}{
			"param":  "record",
			"reason": "missing or not an object",
		})
	}

	var record types.InvestigationRecord
	if err := decodeArgument(rawRecord, &record); err != nil {
		return nil, newMCPError(ErrorCodeInvalidParams, "malformed record", map[string]interface{}{
			"param":  "record",
			"reason": err.Error(),
		})
	}

	if record.ID == "" {
		record.ID = uuid.NewString()
	}

	if err := s.storage.Add(ctx, &record); err != nil {
		return nil, mapRegistryError(err, "failed to add investigation")
	}
	s.searcher.InvalidateCache()

	// Read the record back so the response shows the stored form, with
	// derived duration and registry-managed timestamps.
	stored, err := s.storage.Get(ctx, record.ID)
	if err != nil {
		return nil, mapRegistryError(err, "failed to load stored record")
	}

	return mcp.NewToolResultText(formatJSON(map[string]interface{}{
		"added":  true,
		"record": stored,
	})), nil
}

// handleUpdateInvestigation handles the update_investigation tool invocation
func (s *Server) handleUpdateInvestigation(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := requestArguments(request)
	if !ok {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid arguments", nil)
	}

	id, err := requireString(args, "id")
	if err != nil {
		return nil, err
	}

	rawPatch, ok := args["patch"].(map[string]interface{})
	if !ok {
		return nil, newMCPError(ErrorCodeInvalidParams, "patch parameter is required", map[string]interface{}{
			"param":  "patch",
			"reason": "missing or not an object",
		})
	}

	var patch types.RecordPatch
	if err := decodeArgument(rawPatch, &patch); err != nil {
		return nil, newMCPError(ErrorCodeInvalidParams, "malformed patch", map[string]interface{}{
			"param":  "patch",
			"reason": err.Error(),
		})
	}

	updated, err := s.storage.Update(ctx, id, &patch)
	if err != nil {
		return nil, mapRegistryError(err, "failed to update investigation")
	}
	s.searcher.InvalidateCache()

	return mcp.NewToolResultText(formatJSON(map[string]interface{}{
		"updated": true,
		"record":  updated,
	})), nil
}

// handleGetInvestigation handles the get_investigation tool invocation
func (s *Server) handleGetInvestigation(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := requestArguments(request)
	if !ok {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid arguments", nil)
	}

	id, err := requireString(args, "id")
	if err != nil {
		return nil, err
	}

	record, err := s.storage.Get(ctx, id)
	if err != nil {
		return nil, mapRegistryError(err, "failed to get investigation")
	}

	return mcp.NewToolResultText(formatJSON(map[string]interface{}{
		"record": record,
	})), nil
}

// handleDeleteInvestigation handles the delete_investigation tool invocation
func (s *Server) handleDeleteInvestigation(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := requestArguments(request)
	if !ok {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid arguments", nil)
	}

	id, err := requireString(args, "id")
	if err != nil {
		return nil, err
	}

	affected, err := s.storage.Delete(ctx, id)
	if err != nil {
		return nil, mapRegistryError(err, "failed to delete investigation")
	}
	if affected > 0 {
		s.searcher.InvalidateCache()
	}

	return mcp.NewToolResultText(formatJSON(map[string]interface{}{
		"deleted": affected > 0,
		"id":      id,
	})), nil
}

// handleSearchInvestigations handles the search_investigations tool invocation
func (s *Server) handleSearchInvestigations(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := requestArguments(request)
	if !ok {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid arguments", nil)
	}

	var req types.SearchRequest
	if err := decodeArgument(args, &req); err != nil {
		return nil, newMCPError(ErrorCodeInvalidParams, "malformed search request", map[string]interface{}{
			"reason": err.Error(),
		})
	}

	response, err := s.searcher.Search(ctx, &req)
	if err != nil {
		return nil, mapRegistryError(err, "search failed")
	}

	return mcp.NewToolResultText(formatJSON(response)), nil
}

// handleFindSimilar handles the find_similar tool invocation
func (s *Server) handleFindSimilar(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := requestArguments(request)
	if !ok {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid arguments", nil)
	}

	id, err := requireString(args, "id")
	if err != nil {
		return nil, err
	}
	topN := getIntDefault(args, "topN", 0)

	matches, err := s.recommender.FindSimilar(ctx, id, topN)
	if err != nil {
		return nil, mapRegistryError(err, "failed to find similar investigations")
	}

	return mcp.NewToolResultText(formatJSON(map[string]interface{}{
		"id":      id,
		"count":   len(matches),
		"matches": matches,
	})), nil
}

// handleRecommendInvestigations handles the recommend_investigations tool invocation
func (s *Server) handleRecommendInvestigations(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := requestArguments(request)
	if !ok {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid arguments", nil)
	}

	typeName, err := requireString(args, "type")
	if err != nil {
		return nil, err
	}

	spec := recommender.Fingerprint{
		Type:     types.InvestigationType(typeName),
		Codebase: getStringDefault(args, "codebase", ""),
		Tags:     getStringSlice(args, "tags"),
	}
	topN := getIntDefault(args, "topN", 0)

	matches, err := s.recommender.Recommend(ctx, spec, topN)
	if err != nil {
		return nil, mapRegistryError(err, "failed to recommend investigations")
	}

	return mcp.NewToolResultText(formatJSON(map[string]interface{}{
		"count":   len(matches),
		"matches": matches,
	})), nil
}

// handleGetStatistics handles the get_statistics tool invocation
func (s *Server) handleGetStatistics(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if _, ok := requestArguments(request); !ok {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid arguments", nil)
	}

	statistics, err := s.storage.GetStatistics(ctx)
	if err != nil {
		return nil, mapRegistryError(err, "failed to compute statistics")
	}

	status, err := s.storage.GetStatus(ctx)
	if err != nil {
		return nil, mapRegistryError(err, "failed to read registry status")
	}

	return mcp.NewToolResultText(formatJSON(map[string]interface{}{
		"statistics": statistics,
		"status":     status,
	})), nil
}

// handleImportInvestigations handles the import_investigations tool invocation
func (s *Server) handleImportInvestigations(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := requestArguments(request)
	if !ok {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid arguments", nil)
	}

	path, err := requireString(args, "path")
	if err != nil {
		return nil, err
	}

	isDir, err := validateImportPath(path)
	if err != nil {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid path", map[string]interface{}{
			"param":  "path",
			"reason": err.Error(),
		})
	}

	var policy importer.DuplicatePolicy
	switch getStringDefault(args, "on_duplicate", "skip") {
	case "skip":
		policy = importer.DuplicateSkip
	case "fail":
		policy = importer.DuplicateFail
	default:
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid on_duplicate", map[string]interface{}{
			"param":   "on_duplicate",
			"allowed": []string{"skip", "fail"},
		})
	}

	config := &importer.Config{
		Workers:     s.importWorkers,
		OnDuplicate: policy,
	}

	var stats *importer.Statistics
	if isDir {
		stats, err = s.importer.ImportDir(ctx, path, config)
	} else {
		stats, err = s.importer.ImportFiles(ctx, []string{path}, config)
	}
	if err != nil {
		return nil, mapRegistryError(err, "import failed")
	}

	if stats.RecordsImported > 0 {
		s.searcher.InvalidateCache()
	}

	response := map[string]interface{}{
		"filesProcessed":  stats.FilesProcessed,
		"filesFailed":     stats.FilesFailed,
		"recordsImported": stats.RecordsImported,
		"recordsSkipped":  stats.RecordsSkipped,
		"recordsFailed":   stats.RecordsFailed,
		"durationMs":      stats.Duration.Milliseconds(),
		"files":           stats.Files,
	}

	if len(stats.ErrorMessages) > 0 {
		// Include first few errors
		if len(stats.ErrorMessages) > 5 {
			response["errors"] = stats.ErrorMessages[:5]
			response["errorCount"] = len(stats.ErrorMessages)
		} else {
			response["errors"] = stats.ErrorMessages
		}
	}

	return mcp.NewToolResultText(formatJSON(response)), nil
}

// Helper functions

// requestArguments extracts the argument map, treating absent arguments as
// an empty map so tools without required parameters accept bare calls.
func requestArguments(request mcp.CallToolRequest) (map[string]interface{}, bool) {
	if request.Params.Arguments == nil {
		return map[string]interface{}{}, true
	}
	args, ok := request.Params.Arguments.(map[string]interface{})
	return args, ok
}

// requireString extracts a required non-empty string parameter.
func requireString(args map[string]interface{}, key string) (string, error) {
	val, ok := args[key].(string)
	if !ok || val == "" {
		return "", newMCPError(ErrorCodeInvalidParams, key+" parameter is required", map[string]interface{}{
			"param":  key,
			"reason": "missing or empty",
		})
	}
	return val, nil
}

// decodeArgument re-marshals a decoded JSON value into a typed struct.
func decodeArgument(value interface{}, target interface{}) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, target)
}

// mapRegistryError translates the registry's sentinel taxonomy into MCP
// protocol errors.
func mapRegistryError(err error, message string) error {
	data := map[string]interface{}{"error": err.Error()}
	switch {
	case errors.Is(err, types.ErrValidation):
		return newMCPError(ErrorCodeInvalidParams, message, data)
	case errors.Is(err, types.ErrNotFound):
		return newMCPError(ErrorCodeNotFound, message, data)
	case errors.Is(err, types.ErrDuplicate):
		return newMCPError(ErrorCodeDuplicate, message, data)
	default:
		return newMCPError(ErrorCodeInternalError, message, data)
	}
}

// newMCPError creates a properly formatted MCP error
func newMCPError(code int, message string, data interface{}) error {
	// MCP errors are returned as regular errors, the framework handles encoding
	return &MCPError{
		Code:    code,
		Message: message,
		Data:    data,
	}
}

// MCPError represents an MCP protocol error
type MCPError struct {
	Code    int
	Message string
	Data    interface{}
}

func (e *MCPError) Error() string {
	return fmt.Sprintf("MCP error %d: %s", e.Code, e.Message)
}

// validateImportPath checks that path is absolute and points at a .jsonl
// file or a directory. It reports whether the path is a directory.
func validateImportPath(path string) (bool, error) {
	if path == "" {
		return false, ErrPathRequired
	}

	if !filepath.IsAbs(path) {
		return false, ErrPathNotAbsolute
	}

	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		return false, ErrPathNotFound
	}
	if err != nil {
		return false, ErrPathNotReadable
	}

	if info.IsDir() {
		return true, nil
	}
	if !strings.EqualFold(filepath.Ext(path), ".jsonl") {
		return false, ErrNotImportable
	}
	return false, nil
}

// formatJSON formats a response as indented JSON
func formatJSON(data interface{}) string {
	bytes, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return fmt.Sprintf("%v", data)
	}
	return string(bytes)
}

// getIntDefault extracts an integer parameter with a default value
func getIntDefault(args map[string]interface{}, key string, defaultValue int) int {
	if val, ok := args[key].(float64); ok {
		return int(val)
	}
	if val, ok := args[key].(int); ok {
		return val
	}
	return defaultValue
}

// getStringDefault extracts a string parameter with a default value
func getStringDefault(args map[string]interface{}, key string, defaultValue string) string {
	if val, ok := args[key].(string); ok {
		return val
	}
	return defaultValue
}

// getStringSlice extracts a string array parameter
func getStringSlice(args map[string]interface{}, key string) []string {
	raw, ok := args[key].([]interface{})
	if !ok {
		return nil
	}
	out := make([]string, 0, len(raw))
	for _, v := range raw {
		if s, ok := v.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

// Validation helpers

var (
	ErrPathRequired    = errors.New("path is required")
	ErrPathNotAbsolute = errors.New("path must be absolute")
	ErrPathNotFound    = errors.New("path does not exist")
	ErrPathNotReadable = errors.New("path is not readable")
	ErrNotImportable   = errors.New("path is neither a .jsonl file nor a directory")
)
