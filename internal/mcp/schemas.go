package mcp

import (
	"github.com/mark3labs/mcp-go/mcp"

	"github.com/casefiledev/casefile-mcp/pkg/types"
)

func typeEnum() []string {
	all := types.AllInvestigationTypes()
	out := make([]string, len(all))
	for i, t := range all {
		out[i] = string(t)
	}
	return out
}

func statusEnum() []string {
	all := types.AllInvestigationStatuses()
	out := make([]string, len(all))
	for i, s := range all {
		out[i] = string(s)
	}
	return out
}

// recordProperties describes the investigation record shape shared by
// add_investigation and update_investigation.
func recordProperties() map[string]interface{} {
	return map[string]interface{}{
		"id": map[string]interface{}{
			"type":        "string",
			"description": "Unique investigation id; a UUID is assigned when omitted",
		},
		"name": map[string]interface{}{
			"type":        "string",
			"description": "Human-readable investigation name",
		},
		"type": map[string]interface{}{
			"type":        "string",
			"description": "Kind of analysis performed",
			"enum":        typeEnum(),
		},
		"codebase": map[string]interface{}{
			"type":        "string",
			"description": "Repository or service the investigation analyzed",
		},
		"startTime": map[string]interface{}{
			"type":        "string",
			"description": "RFC 3339 timestamp when the run started",
		},
		"endTime": map[string]interface{}{
			"type":        "string",
			"description": "RFC 3339 timestamp when the run finished (omit while running)",
		},
		"duration": map[string]interface{}{
			"type":        "integer",
			"description": "Elapsed milliseconds; derived from the timestamps when omitted",
		},
		"status": map[string]interface{}{
			"type":        "string",
			"description": "Lifecycle state of the run",
			"enum":        statusEnum(),
		},
		"tokensUsed": map[string]interface{}{
			"type":        "integer",
			"description": "Total tokens consumed by the run",
		},
		"qualityScore": map[string]interface{}{
			"type":        "number",
			"description": "Self-assessed quality, 0-100",
			"minimum":     0,
			"maximum":     100,
		},
		"findings": map[string]interface{}{
			"type":        "integer",
			"description": "Number of findings produced",
		},
		"agents": map[string]interface{}{
			"type":        "array",
			"description": "Agents that participated in the run",
			"items":       map[string]interface{}{"type": "string"},
		},
		"tags": map[string]interface{}{
			"type":        "array",
			"description": "Free-form classification tags",
			"items":       map[string]interface{}{"type": "string"},
		},
		"metadata": map[string]interface{}{
			"type":        "object",
			"description": "Opaque caller-defined metadata, stored verbatim",
		},
	}
}

// addInvestigationTool returns the tool definition for add_investigation
func addInvestigationTool() mcp.Tool {
	return mcp.Tool{
		Name:        "add_investigation",
		Description: "Record a completed or running investigation in the registry",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"record": map[string]interface{}{
					"type":        "object",
					"description": "The investigation record to store",
					"properties":  recordProperties(),
					"required":    []string{"name", "type", "codebase", "startTime", "status"},
				},
			},
			Required: []string{"record"},
		},
	}
}

// updateInvestigationTool returns the tool definition for update_investigation
func updateInvestigationTool() mcp.Tool {
	props := recordProperties()
	delete(props, "id")

	return mcp.Tool{
		Name:        "update_investigation",
		Description: "Apply a partial update to a stored investigation; omitted fields are unchanged",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"id": map[string]interface{}{
					"type":        "string",
					"description": "Id of the investigation to update",
				},
				"patch": map[string]interface{}{
					"type":        "object",
					"description": "Fields to replace; tags and agents replace the whole set",
					"properties":  props,
				},
			},
			Required: []string{"id", "patch"},
		},
	}
}

// getInvestigationTool returns the tool definition for get_investigation
func getInvestigationTool() mcp.Tool {
	return mcp.Tool{
		Name:        "get_investigation",
		Description: "Fetch a single investigation record by id",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"id": map[string]interface{}{
					"type":        "string",
					"description": "Id of the investigation to fetch",
				},
			},
			Required: []string{"id"},
		},
	}
}

// deleteInvestigationTool returns the tool definition for delete_investigation
func deleteInvestigationTool() mcp.Tool {
	return mcp.Tool{
		Name:        "delete_investigation",
		Description: "Delete an investigation and its tags and agents; deleting an absent id is not an error",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"id": map[string]interface{}{
					"type":        "string",
					"description": "Id of the investigation to delete",
				},
			},
			Required: []string{"id"},
		},
	}
}

// searchInvestigationsTool returns the tool definition for search_investigations
func searchInvestigationsTool() mcp.Tool {
	return mcp.Tool{
		Name:        "search_investigations",
		Description: "Search the registry; all supplied criteria must match (AND composition)",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"searchText": map[string]interface{}{
					"type":        "string",
					"description": "Full-text query over names, codebases and tags; terms are prefix-matched and ANDed",
				},
				"types": map[string]interface{}{
					"type":        "array",
					"description": "Match any of these investigation types",
					"items":       map[string]interface{}{"type": "string", "enum": typeEnum()},
				},
				"statuses": map[string]interface{}{
					"type":        "array",
					"description": "Match any of these statuses",
					"items":       map[string]interface{}{"type": "string", "enum": statusEnum()},
				},
				"codebase": map[string]interface{}{
					"type":        "string",
					"description": "Exact codebase to match",
				},
				"tags": map[string]interface{}{
					"type":        "array",
					"description": "Records must carry every listed tag",
					"items":       map[string]interface{}{"type": "string"},
				},
				"agents": map[string]interface{}{
					"type":        "array",
					"description": "Records must involve at least one listed agent",
					"items":       map[string]interface{}{"type": "string"},
				},
				"dateRange": map[string]interface{}{
					"type":        "object",
					"description": "Bounds on startTime, inclusive",
					"properties": map[string]interface{}{
						"start": map[string]interface{}{"type": "string", "description": "RFC 3339 lower bound"},
						"end":   map[string]interface{}{"type": "string", "description": "RFC 3339 upper bound"},
					},
				},
				"minQualityScore": map[string]interface{}{
					"type":        "number",
					"description": "Minimum quality score; unscored records never match",
					"minimum":     0,
					"maximum":     100,
				},
				"maxQualityScore": map[string]interface{}{
					"type":        "number",
					"description": "Maximum quality score; unscored records never match",
					"minimum":     0,
					"maximum":     100,
				},
				"sortBy": map[string]interface{}{
					"type":        "string",
					"description": "Sort field",
					"enum":        []string{"startTime", "duration", "qualityScore", "tokensUsed"},
					"default":     "startTime",
				},
				"sortOrder": map[string]interface{}{
					"type":        "string",
					"description": "Sort direction",
					"enum":        []string{"asc", "desc"},
					"default":     "desc",
				},
				"limit": map[string]interface{}{
					"type":        "integer",
					"description": "Page size (default 50)",
					"default":     50,
					"minimum":     1,
				},
				"offset": map[string]interface{}{
					"type":        "integer",
					"description": "Rows to skip before the page",
					"default":     0,
					"minimum":     0,
				},
			},
		},
	}
}

// findSimilarTool returns the tool definition for find_similar
func findSimilarTool() mcp.Tool {
	return mcp.Tool{
		Name:        "find_similar",
		Description: "Rank stored investigations by similarity to a reference record (type 40, codebase 30, tag overlap 30)",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"id": map[string]interface{}{
					"type":        "string",
					"description": "Id of the reference investigation",
				},
				"topN": map[string]interface{}{
					"type":        "integer",
					"description": "Maximum number of matches to return",
					"default":     10,
					"minimum":     1,
				},
			},
			Required: []string{"id"},
		},
	}
}

// recommendInvestigationsTool returns the tool definition for recommend_investigations
func recommendInvestigationsTool() mcp.Tool {
	return mcp.Tool{
		Name:        "recommend_investigations",
		Description: "Rank stored investigations against a planned investigation that has not run yet",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"type": map[string]interface{}{
					"type":        "string",
					"description": "Planned investigation type",
					"enum":        typeEnum(),
				},
				"codebase": map[string]interface{}{
					"type":        "string",
					"description": "Planned target codebase",
				},
				"tags": map[string]interface{}{
					"type":        "array",
					"description": "Planned classification tags",
					"items":       map[string]interface{}{"type": "string"},
				},
				"topN": map[string]interface{}{
					"type":        "integer",
					"description": "Maximum number of matches to return",
					"default":     10,
					"minimum":     1,
				},
			},
			Required: []string{"type"},
		},
	}
}

// getStatisticsTool returns the tool definition for get_statistics
func getStatisticsTool() mcp.Tool {
	return mcp.Tool{
		Name:        "get_statistics",
		Description: "Aggregate statistics and operational status for the registry",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}
}

// importInvestigationsTool returns the tool definition for import_investigations
func importInvestigationsTool() mcp.Tool {
	return mcp.Tool{
		Name:        "import_investigations",
		Description: "Bulk-import investigation records from a JSONL file or a directory of JSONL files",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"path": map[string]interface{}{
					"type":        "string",
					"description": "Absolute path to a .jsonl file or a directory containing .jsonl files",
				},
				"on_duplicate": map[string]interface{}{
					"type":        "string",
					"description": "What to do when an imported id already exists",
					"enum":        []string{"skip", "fail"},
					"default":     "skip",
				},
			},
			Required: []string{"path"},
		},
	}
}
