package indexer

import (
	"context"
	"crypto/sha256"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/dshills/cobolcontext-mcp/internal/analysis"
	"github.com/dshills/cobolcontext-mcp/internal/parser"
	"github.com/dshills/cobolcontext-mcp/internal/storage"
	"github.com/dshills/cobolcontext-mcp/pkg/types"
)

// DefaultExtensions are the source suffixes indexed when none are configured.
// Copybooks (.cpy) are fragments and are not parsed on their own.
var DefaultExtensions = []string{".cbl", ".cob", ".cobol"}

// Indexer coordinates the indexing pipeline: parse -> analyze -> store
type Indexer struct {
	parser  *parser.Parser
	engines []analysis.Analyzer
	storage storage.Storage
	logger  *slog.Logger
}

// Config contains configuration for the indexer
type Config struct {
	Workers    int      // Number of concurrent parse workers (default: runtime.NumCPU())
	BatchSize  int      // Number of sources to commit per transaction (default: 20)
	Extensions []string // Source suffixes to index, case-insensitive (default: DefaultExtensions)
	Force      bool     // Re-parse sources whose content hash is unchanged
}

// Statistics contains statistics about the indexing operation
type Statistics struct {
	SourcesIndexed int
	SourcesSkipped int
	SourcesFailed  int // I/O or storage failures
	ParseErrors    int // sources stored with a fatal parse error
	SourcesRemoved int // stored sources no longer on disk
	Diagnostics    int
	Duration       time.Duration
	ErrorMessages  []string
}

// New creates a new Indexer instance. A nil parser uses the default
// configuration; a nil logger discards output.
func New(st storage.Storage, p *parser.Parser, engines []analysis.Analyzer, logger *slog.Logger) *Indexer {
	if p == nil {
		p = parser.New(parser.DefaultConfig())
	}
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Indexer{
		parser:  p,
		engines: engines,
		storage: st,
		logger:  logger,
	}
}

// parsedSource is the outcome of reading, parsing and analyzing one file
type parsedSource struct {
	source   *storage.Source
	result   *types.ParseResult
	analyses map[string]json.RawMessage
}

// counters are shared by the parse workers
type counters struct {
	indexed, skipped, failed, parseErrors, diagnostics atomic.Int32
}

// IndexProject indexes every COBOL source under rootPath
func (idx *Indexer) IndexProject(ctx context.Context, rootPath string, config *Config) (*Statistics, error) {
	if config == nil {
		config = &Config{}
	}
	if config.Workers <= 0 {
		config.Workers = runtime.NumCPU()
	}
	if config.BatchSize <= 0 {
		config.BatchSize = 20
	}
	if len(config.Extensions) == 0 {
		config.Extensions = DefaultExtensions
	}

	absRoot, err := filepath.Abs(rootPath)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve %s: %w", rootPath, err)
	}

	startTime := time.Now()
	stats := &Statistics{ErrorMessages: make([]string, 0)}
	idx.logger.Info("indexing started", "root", absRoot, "workers", config.Workers)

	project, err := idx.getOrCreateProject(ctx, absRoot)
	if err != nil {
		return nil, fmt.Errorf("failed to get or create project: %w", err)
	}

	files, err := discoverFiles(absRoot, config.Extensions)
	if err != nil {
		return nil, fmt.Errorf("failed to discover files: %w", err)
	}

	var c counters
	var mu sync.Mutex // Protects stats.ErrorMessages
	recordErr := func(path string, err error) {
		c.failed.Add(1)
		mu.Lock()
		stats.ErrorMessages = append(stats.ErrorMessages, fmt.Sprintf("%s: %v", path, err))
		mu.Unlock()
		idx.logger.Warn("source failed", "path", path, "error", err)
	}

	parsed, err := idx.parseFiles(ctx, project, files, config, &c, recordErr)
	if err != nil {
		return nil, fmt.Errorf("failed to parse files: %w", err)
	}

	if err := idx.storeParsed(ctx, parsed, config.BatchSize, &c, recordErr); err != nil {
		return nil, fmt.Errorf("failed to store files: %w", err)
	}

	removed, err := idx.removeStale(ctx, project, files)
	if err != nil {
		return nil, fmt.Errorf("failed to remove stale sources: %w", err)
	}

	if err := idx.updateProjectStats(ctx, project); err != nil {
		return nil, fmt.Errorf("failed to update project stats: %w", err)
	}

	stats.SourcesIndexed = int(c.indexed.Load())
	stats.SourcesSkipped = int(c.skipped.Load())
	stats.SourcesFailed = int(c.failed.Load())
	stats.ParseErrors = int(c.parseErrors.Load())
	stats.Diagnostics = int(c.diagnostics.Load())
	stats.SourcesRemoved = removed
	stats.Duration = time.Since(startTime)

	idx.logger.Info("indexing finished",
		"indexed", stats.SourcesIndexed,
		"skipped", stats.SourcesSkipped,
		"failed", stats.SourcesFailed,
		"parse_errors", stats.ParseErrors,
		"removed", stats.SourcesRemoved,
		"duration", stats.Duration)
	return stats, nil
}

// getOrCreateProject retrieves an existing project or creates a new one
func (idx *Indexer) getOrCreateProject(ctx context.Context, rootPath string) (*storage.Project, error) {
	project, err := idx.storage.GetProject(ctx, rootPath)
	if err == nil {
		return project, nil
	}
	if !errors.Is(err, storage.ErrNotFound) {
		return nil, err
	}

	project = &storage.Project{
		RootPath:     rootPath,
		IndexVersion: storage.CurrentSchemaVersion,
	}
	if err := idx.storage.CreateProject(ctx, project); err != nil {
		return nil, err
	}
	return project, nil
}

// discoverFiles finds all COBOL sources under rootPath in lexical order
func discoverFiles(rootPath string, extensions []string) ([]string, error) {
	var files []string

	err := filepath.Walk(rootPath, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}

		if info.IsDir() {
			// Skip hidden directories
			if path != rootPath && strings.HasPrefix(info.Name(), ".") {
				return filepath.SkipDir
			}
			return nil
		}

		if hasExtension(path, extensions) {
			files = append(files, path)
		}
		return nil
	})

	return files, err
}

func hasExtension(path string, extensions []string) bool {
	ext := filepath.Ext(path)
	for _, e := range extensions {
		if strings.EqualFold(ext, e) {
			return true
		}
	}
	return false
}

// parseFiles parses changed sources concurrently. Failed files are recorded
// and skipped; only context cancellation aborts the run.
func (idx *Indexer) parseFiles(ctx context.Context, project *storage.Project, files []string,
	config *Config, c *counters, recordErr func(string, error)) ([]*parsedSource, error) {

	semaphore := make(chan struct{}, config.Workers)
	results := make([]*parsedSource, len(files))

	g, gctx := errgroup.WithContext(ctx)
	for i, path := range files {
		g.Go(func() error {
			select {
			case <-gctx.Done():
				return gctx.Err()
			case semaphore <- struct{}{}:
			}
			defer func() { <-semaphore }()

			ps, err := idx.parseFile(gctx, project, path, config.Force, c)
			if err != nil {
				if gctx.Err() != nil {
					return gctx.Err()
				}
				recordErr(path, err)
				return nil
			}
			results[i] = ps
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	parsed := make([]*parsedSource, 0, len(results))
	for _, ps := range results {
		if ps != nil {
			parsed = append(parsed, ps)
		}
	}
	return parsed, nil
}

// parseFile reads one source and, when it changed, parses and analyzes it.
// A nil result means the source is unchanged.
func (idx *Indexer) parseFile(ctx context.Context, project *storage.Project, path string,
	force bool, c *counters) (*parsedSource, error) {

	relPath, err := filepath.Rel(project.RootPath, path)
	if err != nil {
		return nil, err
	}
	relPath = filepath.ToSlash(relPath)

	content, hash, modTime, err := readSource(path)
	if err != nil {
		return nil, err
	}

	if !force {
		unchanged, err := idx.checkSourceChanged(ctx, project.ID, relPath, hash)
		if err != nil {
			return nil, err
		}
		if unchanged {
			c.skipped.Add(1)
			return nil, nil
		}
	}

	ps := &parsedSource{
		source: &storage.Source{
			ProjectID:   project.ID,
			Path:        relPath,
			ContentHash: hash,
			ModTime:     modTime,
			SizeBytes:   int64(len(content)),
		},
	}

	result, err := idx.parser.Parse(string(content))
	if err != nil {
		var pe *types.ParseError
		if !errors.As(err, &pe) {
			return nil, err
		}
		msg := pe.Error()
		ps.source.ParseError = &msg
		c.parseErrors.Add(1)
		idx.logger.Debug("parse failed", "path", relPath, "stage", pe.Stage, "error", msg)
		return ps, nil
	}
	ps.result = result
	c.diagnostics.Add(int32(len(result.Diagnostics)))

	if len(idx.engines) > 0 {
		reports, err := analysis.Run(ctx, result.Program, idx.engines...)
		if err != nil {
			return nil, err
		}
		ps.analyses = make(map[string]json.RawMessage, len(reports))
		for _, r := range reports {
			raw, err := json.Marshal(r)
			if err != nil {
				return nil, fmt.Errorf("failed to encode %s result: %w", r.Engine, err)
			}
			ps.analyses[r.Engine] = raw
		}
	}

	idx.logger.Debug("parsed source", "path", relPath, "program", result.Program.ProgramID,
		"diagnostics", len(result.Diagnostics))
	return ps, nil
}

// checkSourceChanged reports whether a stored source has the same content
// hash, meaning it can be skipped.
func (idx *Indexer) checkSourceChanged(ctx context.Context, projectID int64, relPath string, hash [32]byte) (bool, error) {
	existing, err := idx.storage.GetSource(ctx, projectID, relPath)
	if errors.Is(err, storage.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return existing.ContentHash == hash, nil
}

// storeParsed writes parsed sources in batches, one transaction per batch
func (idx *Indexer) storeParsed(ctx context.Context, parsed []*parsedSource, batchSize int,
	c *counters, recordErr func(string, error)) error {

	for i := 0; i < len(parsed); i += batchSize {
		end := i + batchSize
		if end > len(parsed) {
			end = len(parsed)
		}
		if err := idx.storeBatch(ctx, parsed[i:end], c, recordErr); err != nil {
			return err
		}
	}
	return nil
}

// storeBatch stores a batch of sources within a transaction
func (idx *Indexer) storeBatch(ctx context.Context, batch []*parsedSource, c *counters, recordErr func(string, error)) error {
	tx, err := idx.storage.BeginTx(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stored := 0
	for _, ps := range batch {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := storeSource(ctx, tx, ps); err != nil {
			recordErr(ps.source.Path, err)
			continue
		}
		stored++
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	c.indexed.Add(int32(stored))
	return nil
}

// storeSource replaces everything stored for one source
func storeSource(ctx context.Context, tx storage.Tx, ps *parsedSource) error {
	if err := tx.UpsertSource(ctx, ps.source); err != nil {
		return err
	}
	if err := tx.DeleteAnalysis(ctx, ps.source.ID); err != nil {
		return fmt.Errorf("failed to delete old analysis: %w", err)
	}

	if ps.result == nil {
		return tx.DeleteProgram(ctx, ps.source.ID)
	}

	if _, err := tx.StoreProgram(ctx, ps.source.ID, ps.result.Program, ps.result.Diagnostics); err != nil {
		return err
	}
	engines := make([]string, 0, len(ps.analyses))
	for name := range ps.analyses {
		engines = append(engines, name)
	}
	sort.Strings(engines)
	for _, name := range engines {
		if err := tx.StoreAnalysis(ctx, ps.source.ID, name, ps.analyses[name]); err != nil {
			return err
		}
	}
	return nil
}

// removeStale deletes stored sources whose files were not discovered
func (idx *Indexer) removeStale(ctx context.Context, project *storage.Project, files []string) (int, error) {
	present := make(map[string]bool, len(files))
	for _, f := range files {
		if rel, err := filepath.Rel(project.RootPath, f); err == nil {
			present[filepath.ToSlash(rel)] = true
		}
	}

	sources, err := idx.storage.ListSources(ctx, project.ID)
	if err != nil {
		return 0, err
	}
	removed := 0
	for _, src := range sources {
		if present[src.Path] {
			continue
		}
		if err := idx.storage.DeleteSource(ctx, src.ID); err != nil {
			return removed, err
		}
		idx.logger.Debug("removed stale source", "path", src.Path)
		removed++
	}
	return removed, nil
}

// updateProjectStats updates the project's source and program counts
func (idx *Indexer) updateProjectStats(ctx context.Context, project *storage.Project) error {
	sources, err := idx.storage.ListSources(ctx, project.ID)
	if err != nil {
		return err
	}

	programs := 0
	for _, src := range sources {
		if src.ParseError == nil {
			programs++
		}
	}

	project.TotalSources = len(sources)
	project.TotalPrograms = programs
	project.IndexVersion = storage.CurrentSchemaVersion
	project.LastIndexedAt = time.Now()

	return idx.storage.UpdateProject(ctx, project)
}

// readSource reads a file and computes its SHA-256 hash
func readSource(path string) ([]byte, [32]byte, time.Time, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, [32]byte{}, time.Time{}, err
	}
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, [32]byte{}, time.Time{}, err
	}
	return content, sha256.Sum256(content), info.ModTime(), nil
}
