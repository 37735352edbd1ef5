package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/dshills/cobolcontext-mcp/internal/analysis"
	"github.com/dshills/cobolcontext-mcp/internal/indexer"
	"github.com/dshills/cobolcontext-mcp/internal/mcp"
	"github.com/dshills/cobolcontext-mcp/internal/parser"
	"github.com/dshills/cobolcontext-mcp/internal/storage"
)

var (
	parseJSON  bool
	parseAST   bool
	forceIndex bool
)

// errHasErrors signals a parse that produced Error diagnostics
var errHasErrors = errors.New("source has errors")

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the MCP server on stdio",
	Args:  cobra.NoArgs,
	RunE:  runServe,
}

var parseCmd = &cobra.Command{
	Use:   "parse FILE",
	Short: "Parse a COBOL source and print its diagnostics",
	Args:  cobra.ExactArgs(1),
	RunE:  runParse,
}

var indexCmd = &cobra.Command{
	Use:   "index DIR",
	Short: "Parse and store every COBOL source under a directory",
	Args:  cobra.ExactArgs(1),
	RunE:  runIndex,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version and build information",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "COBOLContext MCP Server\n")
		fmt.Fprintf(out, "Version: %s\n", version)
		fmt.Fprintf(out, "Build Time: %s\n", buildTime)
		fmt.Fprintf(out, "Build Mode: %s\n", storage.BuildMode)
		fmt.Fprintf(out, "SQLite Driver: %s\n", storage.DriverName)
		fmt.Fprintf(out, "Schema Version: %s\n", storage.CurrentSchemaVersion)
	},
}

func init() {
	parseCmd.Flags().BoolVar(&parseJSON, "json", false, "print the result as JSON")
	parseCmd.Flags().BoolVar(&parseAST, "ast", false, "include the program tree in JSON output")
	indexCmd.Flags().BoolVar(&forceIndex, "force", false, "re-parse sources whose content is unchanged")
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger, err := newLogger(cfg)
	if err != nil {
		return err
	}

	logger.Info("COBOLContext MCP server starting", "version", version,
		"build_mode", storage.BuildMode, "driver", storage.DriverName)

	server, err := mcp.NewServer(cfg, logger)
	if err != nil {
		return fmt.Errorf("failed to create MCP server: %w", err)
	}

	ctx, cancel := signalContext(logger)
	defer cancel()

	if err := server.Serve(ctx); err != nil && ctx.Err() == nil {
		return fmt.Errorf("server error: %w", err)
	}
	logger.Info("server stopped")
	return nil
}

func runParse(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	src, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("failed to read source: %w", err)
	}

	result, err := parser.New(cfg.ParserConfig()).Parse(string(src))
	if err != nil {
		return fmt.Errorf("%s: %w", args[0], err)
	}

	out := cmd.OutOrStdout()
	if parseJSON {
		response := map[string]interface{}{
			"program_id":  result.Program.ProgramID,
			"has_errors":  result.HasErrors(),
			"diagnostics": result.Diagnostics,
		}
		if parseAST {
			response["program"] = result.Program
		}
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		if err := enc.Encode(response); err != nil {
			return err
		}
	} else {
		fmt.Fprintf(out, "%s: program %s, %d diagnostics\n",
			args[0], result.Program.ProgramID, len(result.Diagnostics))
		for _, d := range result.Diagnostics {
			fmt.Fprintf(out, "  %s\n", d)
		}
	}

	if result.HasErrors() {
		return errHasErrors
	}
	return nil
}

func runIndex(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger, err := newLogger(cfg)
	if err != nil {
		return err
	}

	root, err := filepath.Abs(args[0])
	if err != nil {
		return err
	}

	path, err := cfg.ResolvedDBPath()
	if err != nil {
		return err
	}
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return fmt.Errorf("failed to create database directory: %w", err)
		}
	}
	store, err := storage.NewSQLiteStorage(path)
	if err != nil {
		return fmt.Errorf("failed to initialize storage: %w", err)
	}
	defer func() { _ = store.Close() }()

	engines, err := analysis.Select(cfg.AnalysisConfig(), cfg.Analysis.Engines...)
	if err != nil {
		return err
	}

	ctx, cancel := signalContext(logger)
	defer cancel()

	idx := indexer.New(store, parser.New(cfg.ParserConfig()), engines, logger)
	stats, err := idx.IndexProject(ctx, root, &indexer.Config{
		Workers:    cfg.Indexer.Workers,
		BatchSize:  cfg.Indexer.BatchSize,
		Extensions: cfg.Indexer.Extensions,
		Force:      forceIndex,
	})
	if err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(),
		"indexed %d, skipped %d, removed %d, parse errors %d, failed %d, diagnostics %d in %s\n",
		stats.SourcesIndexed, stats.SourcesSkipped, stats.SourcesRemoved,
		stats.ParseErrors, stats.SourcesFailed, stats.Diagnostics, stats.Duration.Round(time.Millisecond))
	for _, msg := range stats.ErrorMessages {
		fmt.Fprintf(cmd.ErrOrStderr(), "  %s\n", msg)
	}
	return nil
}
