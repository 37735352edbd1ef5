package analysis

import (
	"github.com/dshills/cobolcontext-mcp/pkg/types"
)

// Metrics counts the structural elements of a program
type Metrics struct{}

// MetricsDetails breaks the counts down by kind
type MetricsDetails struct {
	StatementsByKind map[types.StatementKind]int `json:"statements_by_kind"`
	ItemsBySection   map[types.DataSectionKind]int `json:"items_by_section"`
}

// NewMetrics creates a new metrics engine
func NewMetrics() *Metrics {
	return &Metrics{}
}

// Name implements Analyzer
func (m *Metrics) Name() string {
	return "metrics"
}

// Analyze implements Analyzer
func (m *Metrics) Analyze(prog *types.Program) (*Result, error) {
	details := &MetricsDetails{
		StatementsByKind: make(map[types.StatementKind]int),
		ItemsBySection:   make(map[types.DataSectionKind]int),
	}
	metrics := map[string]float64{
		"divisions": float64(len(prog.Divisions)),
		"copybooks": float64(len(prog.Copybooks)),
	}

	if env := prog.Environment; env != nil {
		metrics["files_selected"] = float64(len(env.FileControl))
	}

	var items, conditions, tables, fds, maxDepth int
	if prog.Data != nil {
		for _, sec := range prog.Data.Sections {
			fds += len(sec.Files)
			roots := append([]*types.DataItem(nil), sec.Items...)
			for _, fd := range sec.Files {
				roots = append(roots, fd.Records...)
			}
			types.WalkDataItems(roots, func(item *types.DataItem, depth int) bool {
				items++
				details.ItemsBySection[sec.Kind]++
				if item.Level == types.LevelCondition {
					conditions++
				}
				if item.Occurs != nil {
					tables++
				}
				if depth+1 > maxDepth {
					maxDepth = depth + 1
				}
				return true
			})
		}
	}
	metrics["data_items"] = float64(items)
	metrics["condition_names"] = float64(conditions)
	metrics["tables"] = float64(tables)
	metrics["file_descriptions"] = float64(fds)
	metrics["max_data_depth"] = float64(maxDepth)

	var sections, paragraphs, statements int
	if proc := prog.Procedure; proc != nil {
		for _, sec := range proc.AllSections() {
			if !sec.Implicit {
				sections++
			}
		}
		metrics["declarative_sections"] = float64(len(proc.Declaratives))
	}
	forEachParagraph(prog.Procedure, func(_ *types.Section, para *types.Paragraph) {
		if !para.Implicit {
			paragraphs++
		}
		types.WalkStatements(para.Statements, func(s *types.Statement, _ int) bool {
			statements++
			details.StatementsByKind[s.Kind]++
			return true
		})
	})
	metrics["sections"] = float64(sections)
	metrics["paragraphs"] = float64(paragraphs)
	metrics["statements"] = float64(statements)

	return &Result{Metrics: metrics, Details: details}, nil
}
