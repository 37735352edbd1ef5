package mcp

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/mark3labs/mcp-go/server"

	"github.com/dshills/cobolcontext-mcp/internal/analysis"
	"github.com/dshills/cobolcontext-mcp/internal/config"
	"github.com/dshills/cobolcontext-mcp/internal/indexer"
	"github.com/dshills/cobolcontext-mcp/internal/parser"
	"github.com/dshills/cobolcontext-mcp/internal/storage"
)

const (
	// ServerName is the MCP server name
	ServerName = "cobolcontext-mcp"
	// ServerVersion is the current server version
	ServerVersion = "1.0.0"
)

// Server wraps the MCP server with application dependencies
type Server struct {
	mcp     *server.MCPServer
	cfg     *config.Config
	storage storage.Storage
	parser  *parser.Parser
	indexer *indexer.Indexer
	cache   *storage.ProgramCache
	lock    indexer.IndexLock
	logger  *slog.Logger
}

// NewServer opens the configured database and creates a server over it
func NewServer(cfg *config.Config, logger *slog.Logger) (*Server, error) {
	dbPath, err := cfg.ResolvedDBPath()
	if err != nil {
		return nil, err
	}

	if dbPath != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	store, err := storage.NewSQLiteStorage(dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}

	s, err := newServer(cfg, store, logger)
	if err != nil {
		_ = store.Close()
		return nil, err
	}
	return s, nil
}

// newServer wires a server around an open store
func newServer(cfg *config.Config, store storage.Storage, logger *slog.Logger) (*Server, error) {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	engines, err := analysis.Select(cfg.AnalysisConfig(), cfg.Analysis.Engines...)
	if err != nil {
		return nil, fmt.Errorf("failed to select analysis engines: %w", err)
	}

	p := parser.New(cfg.ParserConfig())
	s := &Server{
		mcp:     server.NewMCPServer(ServerName, ServerVersion, server.WithToolCapabilities(false)),
		cfg:     cfg,
		storage: store,
		parser:  p,
		indexer: indexer.New(store, p, engines, logger.With("component", "indexer")),
		cache:   storage.NewProgramCache(cfg.CacheSize),
		logger:  logger,
	}

	s.registerTools()
	return s, nil
}

// Serve starts the MCP server on stdio and blocks until shutdown
func (s *Server) Serve(ctx context.Context) error {
	defer func() { _ = s.storage.Close() }()
	s.logger.Info("MCP server ready, listening on stdio",
		"build_mode", storage.BuildMode, "driver", storage.DriverName)

	stdio := server.NewStdioServer(s.mcp)
	return stdio.Listen(ctx, os.Stdin, os.Stdout)
}

// Close releases the store without serving
func (s *Server) Close() error {
	return s.storage.Close()
}

// registerTools registers all MCP tools
func (s *Server) registerTools() {
	s.mcp.AddTool(indexSourcesTool(), s.handleIndexSources)
	s.mcp.AddTool(parseSourceTool(), s.handleParseSource)
	s.mcp.AddTool(getProgramTool(), s.handleGetProgram)
	s.mcp.AddTool(analyzeProgramTool(), s.handleAnalyzeProgram)
	s.mcp.AddTool(getStatusTool(), s.handleGetStatus)
}
