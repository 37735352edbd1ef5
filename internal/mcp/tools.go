package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/dshills/cobolcontext-mcp/internal/analysis"
	"github.com/dshills/cobolcontext-mcp/internal/indexer"
	"github.com/dshills/cobolcontext-mcp/internal/storage"
	"github.com/dshills/cobolcontext-mcp/pkg/types"
)

// MCP error codes
const (
	ErrorCodeInvalidParams      = -32602 // Invalid method parameters
	ErrorCodeInternalError      = -32603 // Internal JSON-RPC error
	ErrorCodeProjectNotFound    = -32001 // Specified path does not contain COBOL sources
	ErrorCodeIndexingInProgress = -32002 // Another indexing operation is already running
	ErrorCodeNotIndexed         = -32003 // Project or source not indexed
	ErrorCodeParseFailed        = -32004 // Source could not be parsed
)

// maxReportedErrors bounds the error list in index responses
const maxReportedErrors = 5

// handleIndexSources handles the index_sources tool invocation
func (s *Server) handleIndexSources(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid arguments", nil)
	}

	path, err := s.requireProjectPath(args)
	if err != nil {
		return nil, err
	}

	if !s.lock.TryAcquire() {
		return nil, newMCPError(ErrorCodeIndexingInProgress, "indexing already in progress", map[string]interface{}{
			"path": path,
		})
	}
	defer s.lock.Release()

	config := &indexer.Config{
		Workers:    s.cfg.Indexer.Workers,
		BatchSize:  s.cfg.Indexer.BatchSize,
		Extensions: s.cfg.Indexer.Extensions,
		Force:      getBoolDefault(args, "force_reindex", false),
	}

	stats, err := s.indexer.IndexProject(ctx, path, config)
	if err != nil {
		return nil, newMCPError(ErrorCodeInternalError, "indexing failed", map[string]interface{}{
			"error": err.Error(),
		})
	}

	response := map[string]interface{}{
		"indexed":         true,
		"sources_indexed": stats.SourcesIndexed,
		"sources_skipped": stats.SourcesSkipped,
		"sources_failed":  stats.SourcesFailed,
		"sources_removed": stats.SourcesRemoved,
		"parse_errors":    stats.ParseErrors,
		"diagnostics":     stats.Diagnostics,
		"duration_ms":     stats.Duration.Milliseconds(),
	}

	if n := len(stats.ErrorMessages); n > 0 {
		if n > maxReportedErrors {
			response["errors"] = stats.ErrorMessages[:maxReportedErrors]
			response["error_count"] = n
		} else {
			response["errors"] = stats.ErrorMessages
		}
	}

	return mcp.NewToolResultText(formatJSON(response)), nil
}

// handleParseSource handles the parse_source tool invocation. It parses
// inline source text, or a file, without touching the store.
func (s *Server) handleParseSource(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid arguments", nil)
	}

	source, err := sourceText(args)
	if err != nil {
		return nil, err
	}

	result, err := s.parser.Parse(source)
	if err != nil {
		return nil, parseFailure(err)
	}

	response := map[string]interface{}{
		"program_id":  result.Program.ProgramID,
		"has_errors":  result.HasErrors(),
		"diagnostics": diagnosticsOrEmpty(result.Diagnostics),
	}
	if getBoolDefault(args, "include_ast", false) {
		response["program"] = result.Program
	}
	return mcp.NewToolResultText(formatJSON(response)), nil
}

// handleGetProgram handles the get_program tool invocation
func (s *Server) handleGetProgram(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid arguments", nil)
	}

	src, err := s.lookupSource(ctx, args)
	if err != nil {
		return nil, err
	}

	stored, err := s.cache.Fetch(ctx, s.storage, src)
	if err != nil {
		return nil, storeFailure("failed to fetch program", err)
	}

	response := map[string]interface{}{
		"artifact_id": stored.ArtifactID,
		"program_id":  stored.ProgramID,
		"path":        src.Path,
		"diagnostics": diagnosticsOrEmpty(stored.Diagnostics),
	}
	if getBoolDefault(args, "include_ast", true) {
		response["program"] = stored.Program
	}
	return mcp.NewToolResultText(formatJSON(response)), nil
}

// handleAnalyzeProgram handles the analyze_program tool invocation. Inline
// source or a file path is parsed and analyzed on the fly. An indexed
// source is analyzed from its stored tree and the results are stored.
func (s *Server) handleAnalyzeProgram(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid arguments", nil)
	}

	names := getStringSlice(args, "engines")
	if len(names) == 0 {
		names = s.cfg.Analysis.Engines
	}
	engines, err := analysis.Select(s.cfg.AnalysisConfig(), names...)
	if err != nil {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid engines", map[string]interface{}{
			"param":     "engines",
			"reason":    err.Error(),
			"available": analysis.EngineNames(),
		})
	}

	var prog *types.Program
	var src *storage.Source
	_, hasSource := args["source"]
	_, hasPath := args["path"]
	if hasSource || hasPath {
		text, err := sourceText(args)
		if err != nil {
			return nil, err
		}
		result, err := s.parser.Parse(text)
		if err != nil {
			return nil, parseFailure(err)
		}
		prog = result.Program
	} else {
		src, err = s.lookupSource(ctx, args)
		if err != nil {
			return nil, err
		}
		stored, err := s.cache.Fetch(ctx, s.storage, src)
		if err != nil {
			return nil, storeFailure("failed to fetch program", err)
		}
		prog = stored.Program
	}

	results, err := analysis.Run(ctx, prog, engines...)
	if err != nil {
		return nil, newMCPError(ErrorCodeInternalError, "analysis failed", map[string]interface{}{
			"error": err.Error(),
		})
	}

	if src != nil {
		for _, r := range results {
			raw, err := json.Marshal(r)
			if err != nil {
				return nil, newMCPError(ErrorCodeInternalError, "failed to encode result", map[string]interface{}{
					"engine": r.Engine,
					"error":  err.Error(),
				})
			}
			if err := s.storage.StoreAnalysis(ctx, src.ID, r.Engine, raw); err != nil {
				s.logger.Warn("failed to store analysis", "path", src.Path, "engine", r.Engine, "error", err)
			}
		}
	}

	response := map[string]interface{}{
		"program_id": prog.ProgramID,
		"results":    results,
	}
	return mcp.NewToolResultText(formatJSON(response)), nil
}

// handleGetStatus handles the get_status tool invocation
func (s *Server) handleGetStatus(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid arguments", nil)
	}

	path, err := requireAbsPath(args, "path")
	if err != nil {
		return nil, err
	}

	project, err := s.storage.GetProject(ctx, path)
	if errors.Is(err, storage.ErrNotFound) {
		response := map[string]interface{}{
			"indexed": false,
			"path":    path,
			"message": "Project not indexed. Use index_sources tool to index this project.",
		}
		return mcp.NewToolResultText(formatJSON(response)), nil
	}
	if err != nil {
		return nil, storeFailure("failed to get project status", err)
	}

	status, err := s.storage.GetStatus(ctx, project.ID)
	if err != nil {
		return nil, storeFailure("failed to get status", err)
	}

	response := map[string]interface{}{
		"indexed": true,
		"project": map[string]interface{}{
			"path":            project.RootPath,
			"index_version":   project.IndexVersion,
			"last_indexed_at": project.LastIndexedAt.Format("2006-01-02T15:04:05Z07:00"),
		},
		"statistics": map[string]interface{}{
			"sources_count":     status.SourcesCount,
			"programs_count":    status.ProgramsCount,
			"failed_count":      status.FailedCount,
			"analyses_count":    status.AnalysesCount,
			"diagnostics_count": status.DiagnosticsCount,
			"index_size_mb":     fmt.Sprintf("%.2f", status.IndexSizeMB),
		},
		"health": map[string]interface{}{
			"database_accessible": true,
			"schema_version":      status.SchemaVersion,
			"build_mode":          status.BuildMode,
			"cached_programs":     s.cache.Len(),
		},
	}

	return mcp.NewToolResultText(formatJSON(response)), nil
}

// requireProjectPath validates the path argument of index_sources
func (s *Server) requireProjectPath(args map[string]interface{}) (string, error) {
	path, err := requireAbsPath(args, "path")
	if err != nil {
		return "", err
	}
	if err := validatePath(path, s.extensions()); err != nil {
		code := ErrorCodeInvalidParams
		if errors.Is(err, ErrNoSources) {
			code = ErrorCodeProjectNotFound
		}
		return "", newMCPError(code, "invalid path", map[string]interface{}{
			"param":  "path",
			"reason": err.Error(),
		})
	}
	return path, nil
}

// lookupSource resolves the project and file arguments to an indexed
// source with a stored program.
func (s *Server) lookupSource(ctx context.Context, args map[string]interface{}) (*storage.Source, error) {
	root, err := requireAbsPath(args, "project")
	if err != nil {
		return nil, err
	}
	file, ok := args["file"].(string)
	if !ok || file == "" {
		return nil, newMCPError(ErrorCodeInvalidParams, "file parameter is required", map[string]interface{}{
			"param":  "file",
			"reason": "missing or empty",
		})
	}
	if filepath.IsAbs(file) {
		rel, err := filepath.Rel(root, file)
		if err != nil || strings.HasPrefix(rel, "..") {
			return nil, newMCPError(ErrorCodeInvalidParams, "file is outside the project", map[string]interface{}{
				"param": "file",
				"value": file,
			})
		}
		file = rel
	}
	file = filepath.ToSlash(filepath.Clean(file))

	project, err := s.storage.GetProject(ctx, root)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, newMCPError(ErrorCodeNotIndexed, "project not indexed", map[string]interface{}{
			"project": root,
		})
	}
	if err != nil {
		return nil, storeFailure("failed to get project", err)
	}

	src, err := s.storage.GetSource(ctx, project.ID, file)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, newMCPError(ErrorCodeNotIndexed, "source not indexed", map[string]interface{}{
			"project": root,
			"file":    file,
		})
	}
	if err != nil {
		return nil, storeFailure("failed to get source", err)
	}
	if src.ParseError != nil {
		return nil, newMCPError(ErrorCodeParseFailed, "source failed to parse", map[string]interface{}{
			"file":  file,
			"error": *src.ParseError,
		})
	}
	return src, nil
}

func (s *Server) extensions() []string {
	if len(s.cfg.Indexer.Extensions) > 0 {
		return s.cfg.Indexer.Extensions
	}
	return indexer.DefaultExtensions
}

// Helper functions

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

// parseFailure maps a fatal parse error onto an MCP error
func parseFailure(err error) error {
	data := map[string]interface{}{"error": err.Error()}
	var pe *types.ParseError
	if errors.As(err, &pe) {
		data["stage"] = pe.Stage
		data["line"] = pe.Line
		data["column"] = pe.Column
		data["message"] = pe.Message
	}
	return newMCPError(ErrorCodeParseFailed, "parse failed", data)
}

// storeFailure maps a storage error onto an MCP error
func storeFailure(message string, err error) error {
	code := ErrorCodeInternalError
	if errors.Is(err, storage.ErrNotFound) {
		code = ErrorCodeNotIndexed
	}
	return newMCPError(code, message, map[string]interface{}{
		"error": err.Error(),
	})
}

// sourceText returns the inline source argument, or the contents of the
// file named by path.
func sourceText(args map[string]interface{}) (string, error) {
	if text, ok := args["source"].(string); ok && text != "" {
		return text, nil
	}
	path, ok := args["path"].(string)
	if !ok || path == "" {
		return "", newMCPError(ErrorCodeInvalidParams, "source or path parameter is required", map[string]interface{}{
			"param":  "source",
			"reason": "missing or empty",
		})
	}
	if !filepath.IsAbs(path) {
		return "", newMCPError(ErrorCodeInvalidParams, "invalid path", map[string]interface{}{
			"param":  "path",
			"reason": ErrPathNotAbsolute.Error(),
		})
	}
	content, err := os.ReadFile(path)
	if err != nil {
		return "", newMCPError(ErrorCodeInvalidParams, "invalid path", map[string]interface{}{
			"param":  "path",
			"reason": err.Error(),
		})
	}
	return string(content), nil
}

// requireAbsPath extracts a required absolute path argument
func requireAbsPath(args map[string]interface{}, key string) (string, error) {
	path, ok := args[key].(string)
	if !ok || path == "" {
		return "", newMCPError(ErrorCodeInvalidParams, key+" parameter is required", map[string]interface{}{
			"param":  key,
			"reason": "missing or empty",
		})
	}
	if !filepath.IsAbs(path) {
		return "", newMCPError(ErrorCodeInvalidParams, "invalid path", map[string]interface{}{
			"param":  key,
			"reason": ErrPathNotAbsolute.Error(),
		})
	}
	return filepath.Clean(path), nil
}

// validatePath checks that a path is a readable directory with sources
func validatePath(path string, extensions []string) error {
	if path == "" {
		return ErrPathRequired
	}
	if !filepath.IsAbs(path) {
		return ErrPathNotAbsolute
	}

	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		return ErrPathNotFound
	}
	if err != nil {
		return ErrPathNotReadable
	}
	if !info.IsDir() {
		return ErrNotDirectory
	}

	f, err := os.Open(path)
	if err != nil {
		return ErrPathNotReadable
	}
	_ = f.Close()

	found := false
	_ = filepath.Walk(path, func(p string, info os.FileInfo, err error) error {
		if err != nil || found {
			return nil
		}
		if info.IsDir() {
			if p != path && strings.HasPrefix(info.Name(), ".") {
				return filepath.SkipDir
			}
			return nil
		}
		ext := filepath.Ext(p)
		for _, e := range extensions {
			if strings.EqualFold(ext, e) {
				found = true
				return filepath.SkipAll
			}
		}
		return nil
	})

	if !found {
		return ErrNoSources
	}
	return nil
}

// formatJSON formats a map as indented JSON
func formatJSON(data map[string]interface{}) string {
	bytes, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return fmt.Sprintf("%v", data)
	}
	return string(bytes)
}

func diagnosticsOrEmpty(diags []types.Diagnostic) []types.Diagnostic {
	if diags == nil {
		return []types.Diagnostic{}
	}
	return diags
}

// getBoolDefault extracts a boolean parameter with a default value
func getBoolDefault(args map[string]interface{}, key string, defaultValue bool) bool {
	if val, ok := args[key].(bool); ok {
		return val
	}
	return defaultValue
}

// getStringSlice extracts a string array parameter, ignoring non-strings
func getStringSlice(args map[string]interface{}, key string) []string {
	switch val := args[key].(type) {
	case []string:
		return val
	case []interface{}:
		out := make([]string, 0, len(val))
		for _, v := range val {
			if s, ok := v.(string); ok {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}

// Validation helpers

var (
	ErrPathRequired    = errors.New("path is required")
	ErrPathNotAbsolute = errors.New("path must be absolute")
	ErrPathNotFound    = errors.New("path does not exist")
	ErrPathNotReadable = errors.New("path is not readable")
	ErrNotDirectory    = errors.New("path is not a directory")
	ErrNoSources       = errors.New("directory does not contain COBOL sources")
)
