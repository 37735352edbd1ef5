package analysis

import (
	"github.com/dshills/cobolcontext-mcp/pkg/types"
)

// DefaultComplexityThreshold is the paragraph complexity above which a
// warning is reported
const DefaultComplexityThreshold = 10

// Complexity computes per-paragraph cyclomatic complexity and nesting
type Complexity struct {
	threshold int
}

// ParagraphComplexity is the score of one paragraph
type ParagraphComplexity struct {
	paragraphRef
	Complexity int `json:"complexity"`
	MaxNesting int `json:"max_nesting"`
	Statements int `json:"statements"`
	Line       int `json:"line"`
}

// NewComplexity creates a complexity engine. A non-positive threshold
// selects DefaultComplexityThreshold.
func NewComplexity(threshold int) *Complexity {
	if threshold <= 0 {
		threshold = DefaultComplexityThreshold
	}
	return &Complexity{threshold: threshold}
}

// Name implements Analyzer
func (c *Complexity) Name() string {
	return "complexity"
}

// Analyze implements Analyzer
func (c *Complexity) Analyze(prog *types.Program) (*Result, error) {
	var (
		scores []ParagraphComplexity
		diags  types.DiagnosticCollector
		total  int
		peak   int
	)
	forEachParagraph(prog.Procedure, func(sec *types.Section, para *types.Paragraph) {
		score := ParagraphComplexity{
			paragraphRef: paragraphRef{Section: sec.Name, Paragraph: para.Name},
			Complexity:   1,
			Line:         para.Line,
		}
		types.WalkStatements(para.Statements, func(s *types.Statement, depth int) bool {
			score.Statements++
			score.Complexity += decisions(s)
			if depth+1 > score.MaxNesting {
				score.MaxNesting = depth + 1
			}
			return true
		})

		if score.Complexity > c.threshold {
			name := para.Name
			if para.Implicit {
				name = "(implicit)"
			}
			diags.Warnf(types.CodeComplexity, &types.Location{Line: para.Line, Column: para.Column},
				"paragraph %s has cyclomatic complexity %d, above %d", name, score.Complexity, c.threshold)
		}
		total += score.Complexity
		if score.Complexity > peak {
			peak = score.Complexity
		}
		scores = append(scores, score)
	})

	metrics := map[string]float64{
		"total_complexity":   float64(total),
		"max_complexity":     float64(peak),
		"average_complexity": 0,
		"threshold":          float64(c.threshold),
	}
	if len(scores) > 0 {
		metrics["average_complexity"] = float64(total) / float64(len(scores))
	}
	return &Result{Metrics: metrics, Details: scores, Diagnostics: diags.Items()}, nil
}

// decisions counts the branch points a statement adds: one per
// conditional path plus one per AND/OR term.
func decisions(s *types.Statement) int {
	n := 0
	switch s.Kind {
	case types.StmtIf:
		n++
	case types.StmtPerform:
		if s.Condition != nil || s.Times != "" {
			n++
		}
	case types.StmtEvaluate, types.StmtSearch:
		for _, br := range s.Branches {
			if !br.Other {
				n++
			}
			n += extraTerms(br.Condition)
		}
	case types.StmtGoTo:
		if len(s.ProcedureRefs) > 1 {
			n += len(s.ProcedureRefs) - 1
		}
	}
	n += len(s.Handlers)
	n += extraTerms(s.Condition)
	return n
}

func extraTerms(c *types.Condition) int {
	if n := c.Count(); n > 1 {
		return n - 1
	}
	return 0
}
