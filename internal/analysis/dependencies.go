package analysis

import (
	"fmt"
	"sort"
	"strings"

	"github.com/dshills/cobolcontext-mcp/pkg/types"
)

// Dependencies extracts what a program depends on: called programs,
// copybooks, files and the PERFORM/GO TO graph between its paragraphs.
type Dependencies struct{}

// Call is one CALL statement. Dynamic calls name their target through a
// data item rather than a literal.
type Call struct {
	Target  string `json:"target"`
	Dynamic bool   `json:"dynamic,omitempty"`
	Line    int    `json:"line"`
}

// FileDependency is a file the program selects
type FileDependency struct {
	Name         string   `json:"name"`
	AssignTo     string   `json:"assign_to,omitempty"`
	Organization string   `json:"organization"`
	Verbs        []string `json:"verbs,omitempty"`
}

// Edge is a transfer of control between procedures
type Edge struct {
	From string `json:"from"`
	To   string `json:"to"`
	Kind string `json:"kind"`
	Line int    `json:"line"`
}

// DependencyDetails is the Details payload of the dependencies engine
type DependencyDetails struct {
	Calls     []Call           `json:"calls,omitempty"`
	Copybooks []string         `json:"copybooks,omitempty"`
	Files     []FileDependency `json:"files,omitempty"`
	Edges     []Edge           `json:"edges,omitempty"`
	Cycles    [][]string       `json:"cycles,omitempty"`
}

// NewDependencies creates a new dependency engine
func NewDependencies() *Dependencies {
	return &Dependencies{}
}

// Name implements Analyzer
func (d *Dependencies) Name() string {
	return "dependencies"
}

// Analyze implements Analyzer
func (d *Dependencies) Analyze(prog *types.Program) (*Result, error) {
	details := &DependencyDetails{}

	seenCopy := make(map[string]bool)
	for _, cp := range prog.Copybooks {
		if !seenCopy[cp.Name] {
			seenCopy[cp.Name] = true
			details.Copybooks = append(details.Copybooks, cp.Name)
		}
	}

	fileIndex := make(map[string]int)
	if env := prog.Environment; env != nil {
		for _, fc := range env.FileControl {
			fileIndex[fc.FileName] = len(details.Files)
			details.Files = append(details.Files, FileDependency{
				Name:         fc.FileName,
				AssignTo:     fc.AssignTo,
				Organization: fc.Organization,
			})
		}
	}
	verbSeen := make(map[string]bool)

	forEachParagraph(prog.Procedure, func(sec *types.Section, para *types.Paragraph) {
		from := para.Name
		if para.Implicit {
			from = sec.Name
		}
		types.WalkStatements(para.Statements, func(s *types.Statement, _ int) bool {
			switch s.Kind {
			case types.StmtCall:
				if len(s.Operands) > 0 {
					details.Calls = append(details.Calls, callOf(s))
				}
			case types.StmtPerform, types.StmtGoTo:
				kind := "perform"
				if s.Kind == types.StmtGoTo {
					kind = "goto"
				}
				for _, ref := range s.ProcedureRefs {
					details.Edges = append(details.Edges, Edge{From: from, To: ref, Kind: kind, Line: s.Line})
				}
			case types.StmtOpen, types.StmtClose, types.StmtRead, types.StmtWrite,
				types.StmtRewrite, types.StmtDelete, types.StmtStart:
				for _, op := range s.Operands {
					i, ok := fileIndex[op]
					key := op + "/" + string(s.Kind)
					if !ok || verbSeen[key] {
						continue
					}
					verbSeen[key] = true
					details.Files[i].Verbs = append(details.Files[i].Verbs, string(s.Kind))
				}
			}
			return true
		})
	})
	details.Cycles = performCycles(details.Edges)

	dynamic := 0
	for _, c := range details.Calls {
		if c.Dynamic {
			dynamic++
		}
	}
	metrics := map[string]float64{
		"calls":         float64(len(details.Calls)),
		"dynamic_calls": float64(dynamic),
		"copybooks":     float64(len(details.Copybooks)),
		"files":         float64(len(details.Files)),
		"edges":         float64(len(details.Edges)),
		"cycles":        float64(len(details.Cycles)),
	}
	return &Result{Metrics: metrics, Details: details}, nil
}

func callOf(s *types.Statement) Call {
	target := s.Operands[0]
	if target != "" && strings.ContainsAny(target[:1], `"'`) {
		lit := types.Token{Kind: types.TokenLiteral, Text: target}
		return Call{Target: lit.Value(), Line: s.Line}
	}
	return Call{Target: target, Dynamic: true, Line: s.Line}
}

// performCycles reports the PERFORM cycles closed by back edges of a
// depth-first walk, each once and starting from its smallest name. GO TO
// edges are not followed.
func performCycles(edges []Edge) [][]string {
	graph := make(map[string][]string)
	for _, e := range edges {
		if e.Kind == "perform" && e.From != "" {
			graph[e.From] = append(graph[e.From], e.To)
		}
	}
	nodes := make([]string, 0, len(graph))
	for n := range graph {
		nodes = append(nodes, n)
	}
	sort.Strings(nodes)

	const (
		unvisited = iota
		onPath
		done
	)
	state := make(map[string]int)
	seen := make(map[string]bool)
	var cycles [][]string

	type frame struct {
		node string
		next int
	}
	for _, root := range nodes {
		if state[root] != unvisited {
			continue
		}
		stack := []frame{{node: root}}
		state[root] = onPath
		for len(stack) > 0 {
			top := &stack[len(stack)-1]
			succ := graph[top.node]
			if top.next >= len(succ) {
				state[top.node] = done
				stack = stack[:len(stack)-1]
				continue
			}
			to := succ[top.next]
			top.next++
			switch state[to] {
			case unvisited:
				state[to] = onPath
				stack = append(stack, frame{node: to})
			case onPath:
				var cycle []string
				for i := len(stack) - 1; i >= 0; i-- {
					cycle = append([]string{stack[i].node}, cycle...)
					if stack[i].node == to {
						break
					}
				}
				cycle = rotate(cycle)
				key := fmt.Sprint(cycle)
				if !seen[key] {
					seen[key] = true
					cycles = append(cycles, append(cycle, cycle[0]))
				}
			}
		}
	}
	return cycles
}

// rotate starts the cycle at its smallest name
func rotate(cycle []string) []string {
	first := 0
	for i, n := range cycle {
		if n < cycle[first] {
			first = i
		}
	}
	return append(append([]string(nil), cycle[first:]...), cycle[:first]...)
}
