// Package mcp implements the Model Context Protocol (MCP) server for the
// casefile investigation registry.
//
// The MCP server exposes nine tools to AI coding assistants (Claude Code, Codex CLI):
//   - add_investigation: Record a completed investigation
//   - update_investigation: Patch fields of a stored investigation
//   - get_investigation: Fetch one investigation by id
//   - delete_investigation: Remove an investigation
//   - search_investigations: Filter, full-text search, sort and paginate
//   - find_similar: Rank stored investigations by similarity to one of them
//   - recommend_investigations: Rank stored investigations against a planned one
//   - get_statistics: Aggregate statistics and registry status
//   - import_investigations: Bulk-load records from JSONL files
//
// # Protocol Overview
//
// MCP is a JSON-RPC 2.0 protocol over stdio transport:
//
//	Client → Server: {"method": "tools/call", "params": {...}}
//	Server → Client: {"result": {...}}
//
// The server reads requests on stdin and writes responses to stdout, so all
// logging goes to stderr.
//
// # Basic Usage
//
// The MCP server is typically started via the serve command:
//
//	casefile serve
//
// # Tool: add_investigation
//
// Record a completed investigation:
//
//	Request:
//	{
//	  "name": "add_investigation",
//	  "arguments": {
//	    "record": {
//	      "id": "INV-2026-001",
//	      "name": "Q1 payment service audit",
//	      "type": "security-audit",
//	      "codebase": "github.com/acme/payments",
//	      "startTime": "2026-03-10T09:00:00Z",
//	      "endTime": "2026-03-10T11:30:00Z",
//	      "status": "completed",
//	      "tokensUsed": 48200,
//	      "qualityScore": 87.5,
//	      "tags": ["auth", "pci"]
//	    }
//	  }
//	}
//
//	Response:
//	{
//	  "added": true,
//	  "record": { ... stored record with derived duration ... }
//	}
//
// The id is optional; a UUID is assigned when it is omitted. Duration is
// derived from startTime and endTime when not supplied.
//
// # Tool: update_investigation
//
// Patch a stored investigation. Only the fields present in the patch change:
//
//	Request:
//	{
//	  "name": "update_investigation",
//	  "arguments": {
//	    "id": "INV-2026-001",
//	    "patch": {"status": "completed", "qualityScore": 91.0}
//	  }
//	}
//
//	Response:
//	{
//	  "updated": true,
//	  "record": { ... record after the patch ... }
//	}
//
// # Tool: get_investigation / delete_investigation
//
// Both take a single id argument:
//
//	{"name": "get_investigation", "arguments": {"id": "INV-2026-001"}}
//	→ {"record": { ... }}
//
//	{"name": "delete_investigation", "arguments": {"id": "INV-2026-001"}}
//	→ {"deleted": true, "id": "INV-2026-001"}
//
// Deleting an id that does not exist responds with deleted=false rather
// than an error.
//
// # Tool: search_investigations
//
// All criteria are optional and combine with AND:
//
//	Request:
//	{
//	  "name": "search_investigations",
//	  "arguments": {
//	    "types": ["security-audit"],
//	    "codebase": "github.com/acme/payments",
//	    "tags": ["auth"],
//	    "searchText": "token rotation",
//	    "minQualityScore": 70,
//	    "sortBy": "qualityScore",
//	    "sortOrder": "desc",
//	    "limit": 20,
//	    "offset": 0
//	  }
//	}
//
//	Response:
//	{
//	  "records": [ ... ],
//	  "total": 134,
//	  "limit": 20,
//	  "offset": 0,
//	  "queryTimeMs": 3,
//	  "fromCache": false
//	}
//
// total counts every match, not just the returned page.
//
// # Tool: find_similar
//
// Rank the rest of the registry by similarity to one stored investigation:
//
//	Request:
//	{
//	  "name": "find_similar",
//	  "arguments": {"id": "INV-2026-001", "topN": 5}
//	}
//
//	Response:
//	{
//	  "id": "INV-2026-001",
//	  "count": 2,
//	  "matches": [
//	    {
//	      "record": { ... },
//	      "score": 85,
//	      "reasons": ["same type", "same codebase", "1 shared tag"]
//	    }
//	  ]
//	}
//
// # Tool: recommend_investigations
//
// Rank stored investigations against a planned investigation described by
// type, codebase and tags:
//
//	Request:
//	{
//	  "name": "recommend_investigations",
//	  "arguments": {
//	    "type": "security-audit",
//	    "codebase": "github.com/acme/payments",
//	    "tags": ["auth"],
//	    "topN": 10
//	  }
//	}
//
// The response carries the same matches shape as find_similar.
//
// # Tool: get_statistics
//
// Takes no arguments:
//
//	Response:
//	{
//	  "statistics": {
//	    "total": 134,
//	    "byType": {"security-audit": 61, "performance-review": 40},
//	    "byStatus": {"completed": 120, "failed": 14},
//	    "avgQuality": 81.4,
//	    "avgTokens": 43750.5,
//	    "avgDuration": 5400000
//	  },
//	  "status": {
//	    "dbPath": "/var/lib/casefile/casefile.db",
//	    "dbSizeBytes": 1048576,
//	    "schemaVersion": "1.0.0",
//	    "buildMode": "modernc",
//	    "investigations": 134,
//	    "tagRows": 310,
//	    "agentRows": 122
//	  }
//	}
//
// # Tool: import_investigations
//
// Bulk-load JSONL files, one record per line:
//
//	Request:
//	{
//	  "name": "import_investigations",
//	  "arguments": {
//	    "path": "/var/lib/casefile/exports",
//	    "on_duplicate": "skip"
//	  }
//	}
//
//	Response:
//	{
//	  "filesProcessed": 3,
//	  "filesFailed": 0,
//	  "recordsImported": 2890,
//	  "recordsSkipped": 12,
//	  "recordsFailed": 4,
//	  "durationMs": 1843,
//	  "files": [ ... per-file statistics ... ],
//	  "errors": ["registry-2025.jsonl: line 77: ..."],
//	  "errorCount": 4
//	}
//
// The path must be absolute and point at a .jsonl file or a directory.
// errors holds at most the first five messages; errorCount carries the
// full count when messages were dropped.
//
// # MCP Client Configuration
//
// Configure in Claude Code's MCP settings:
//
//	{
//	  "mcpServers": {
//	    "casefile": {
//	      "command": "/usr/local/bin/casefile",
//	      "args": ["serve"],
//	      "env": {
//	        "CASEFILE_DB_PATH": "/var/lib/casefile/casefile.db"
//	      }
//	    }
//	  }
//	}
//
// # Error Handling
//
// The MCP server returns standard JSON-RPC error responses:
//
//	{
//	  "error": {
//	    "code": -32602,
//	    "message": "invalid path",
//	    "data": {
//	      "param": "path",
//	      "reason": "path must be absolute"
//	    }
//	  }
//	}
//
// Error codes:
//   - -32602: Invalid params (missing or malformed arguments, validation failures)
//   - -32603: Internal error (database, filesystem, etc.)
//   - -32001: Investigation not found
//   - -32002: Duplicate investigation id
//
// # Logging
//
// The MCP server logs to stderr (stdout is reserved for MCP protocol).
// Set the log level via environment:
//
//	CASEFILE_LOG_LEVEL=debug casefile serve
package mcp
