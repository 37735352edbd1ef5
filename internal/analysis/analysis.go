package analysis

import (
	"context"
	"fmt"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/dshills/cobolcontext-mcp/pkg/types"
)

// Analyzer is an analysis engine over a finished Program. Engines must
// treat the Program as read-only: Run shares one Program between them.
type Analyzer interface {
	Name() string
	Analyze(prog *types.Program) (*Result, error)
}

// Result is the output of one engine
type Result struct {
	Engine      string             `json:"engine"`
	Metrics     map[string]float64 `json:"metrics"`
	Details     interface{}        `json:"details,omitempty"`
	Diagnostics []types.Diagnostic `json:"diagnostics,omitempty"`
	Duration    time.Duration      `json:"duration_ns"`
}

// Config holds engine settings
type Config struct {
	ComplexityThreshold int // Paragraph complexity that triggers a warning (default: 10)
}

// Engines returns every built-in engine in a stable order
func Engines(cfg Config) []Analyzer {
	return []Analyzer{
		NewMetrics(),
		NewComplexity(cfg.ComplexityThreshold),
		NewDependencies(),
	}
}

// Select returns the built-in engines with the given names. An empty list
// selects all of them.
func Select(cfg Config, names ...string) ([]Analyzer, error) {
	all := Engines(cfg)
	if len(names) == 0 {
		return all, nil
	}
	byName := make(map[string]Analyzer, len(all))
	for _, a := range all {
		byName[a.Name()] = a
	}
	selected := make([]Analyzer, 0, len(names))
	for _, name := range names {
		a, ok := byName[name]
		if !ok {
			return nil, fmt.Errorf("unknown analysis engine %q (available: %v)", name, EngineNames())
		}
		selected = append(selected, a)
	}
	return selected, nil
}

// EngineNames lists the names of the built-in engines
func EngineNames() []string {
	var names []string
	for _, a := range Engines(Config{}) {
		names = append(names, a.Name())
	}
	sort.Strings(names)
	return names
}

// Run executes the engines concurrently over prog. Results come back in
// engine order. The first engine error cancels the rest.
func Run(ctx context.Context, prog *types.Program, engines ...Analyzer) ([]*Result, error) {
	if prog == nil {
		return nil, fmt.Errorf("failed to run analysis: %w", types.ErrInvalidSource)
	}

	results := make([]*Result, len(engines))
	g, gctx := errgroup.WithContext(ctx)
	for i, engine := range engines {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			start := time.Now()
			res, err := engine.Analyze(prog)
			if err != nil {
				return fmt.Errorf("engine %s failed: %w", engine.Name(), err)
			}
			res.Engine = engine.Name()
			res.Duration = time.Since(start)
			results[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// paragraphRef names a paragraph within its section
type paragraphRef struct {
	Section   string `json:"section,omitempty"`
	Paragraph string `json:"paragraph,omitempty"`
}

// forEachParagraph visits the declaratives and then the main sections
func forEachParagraph(proc *types.ProcedureDivision, fn func(sec *types.Section, para *types.Paragraph)) {
	if proc == nil {
		return
	}
	visit := func(sections []types.Section) {
		for i := range sections {
			sec := &sections[i]
			for j := range sec.Paragraphs {
				fn(sec, &sec.Paragraphs[j])
			}
		}
	}
	visit(proc.Declaratives)
	visit(proc.Sections)
}
