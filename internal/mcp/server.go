package mcp

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/mark3labs/mcp-go/server"

	"github.com/casefiledev/casefile-mcp/internal/config"
	"github.com/casefiledev/casefile-mcp/internal/importer"
	"github.com/casefiledev/casefile-mcp/internal/recommender"
	"github.com/casefiledev/casefile-mcp/internal/searcher"
	"github.com/casefiledev/casefile-mcp/internal/storage"
)

const (
	// ServerName is the MCP server name
	ServerName = "casefile-mcp"
	// ServerVersion is the current server version
	ServerVersion = "1.0.0"
)

// Server wraps the MCP server with the registry components
type Server struct {
	mcp         *server.MCPServer
	storage     storage.Storage
	searcher    *searcher.Searcher
	recommender *recommender.Recommender
	importer    *importer.Importer
	logger      *slog.Logger

	importWorkers int
}

// NewServer creates a new MCP server instance
func NewServer(cfg *config.Config, logger *slog.Logger) (*Server, error) {
	if logger == nil {
		logger = slog.Default()
	}

	dbPath := cfg.DBPath
	if dbPath != ":memory:" {
		if dir := filepath.Dir(dbPath); dir != "." && dir != "" {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("failed to create database directory: %w", err)
			}
		}
	}

	store, err := storage.NewSQLiteStorage(dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}

	mcpServer := server.NewMCPServer(
		ServerName,
		ServerVersion,
	)

	s := &Server{
		mcp:           mcpServer,
		storage:       store,
		searcher:      searcher.NewSearcher(store, cfg.CacheTTL),
		recommender:   recommender.NewRecommender(store),
		importer:      importer.New(store),
		logger:        logger,
		importWorkers: cfg.ImportWorkers,
	}

	s.registerTools()

	return s, nil
}

// Serve starts the MCP server on stdio and blocks until shutdown
func (s *Server) Serve(ctx context.Context) error {
	defer func() { _ = s.storage.Close() }()

	s.logger.Info("serving MCP over stdio",
		"server", ServerName,
		"version", ServerVersion)

	return server.ServeStdio(s.mcp)
}

// registerTools registers all MCP tools
func (s *Server) registerTools() {
	s.mcp.AddTool(addInvestigationTool(), s.handleAddInvestigation)
	s.mcp.AddTool(updateInvestigationTool(), s.handleUpdateInvestigation)
	s.mcp.AddTool(getInvestigationTool(), s.handleGetInvestigation)
	s.mcp.AddTool(deleteInvestigationTool(), s.handleDeleteInvestigation)
	s.mcp.AddTool(searchInvestigationsTool(), s.handleSearchInvestigations)
	s.mcp.AddTool(findSimilarTool(), s.handleFindSimilar)
	s.mcp.AddTool(recommendInvestigationsTool(), s.handleRecommendInvestigations)
	s.mcp.AddTool(getStatisticsTool(), s.handleGetStatistics)
	s.mcp.AddTool(importInvestigationsTool(), s.handleImportInvestigations)
}
