package types

// ProcedureDivision holds declaratives and the executable sections.
// Paragraphs written before any section header live in an implicit section.
type ProcedureDivision struct {
	Using        []Parameter `json:"using,omitempty"`
	Returning    string      `json:"returning,omitempty"`
	Declaratives []Section   `json:"declaratives,omitempty"`
	Sections     []Section   `json:"sections"`
	EndProgram   string      `json:"end_program,omitempty"`
	Line         int         `json:"line"`
	Column       int         `json:"column"`
}

// Parameter is one USING operand of the PROCEDURE DIVISION header
type Parameter struct {
	Name    string `json:"name"`
	ByValue bool   `json:"by_value,omitempty"`
	Line    int    `json:"line"`
	Column  int    `json:"column"`
}

type Section struct {
	Name       string      `json:"name"`
	Priority   string      `json:"priority,omitempty"`
	Implicit   bool        `json:"implicit,omitempty"`
	Paragraphs []Paragraph `json:"paragraphs"`
	Line       int         `json:"line"`
	Column     int         `json:"column"`
}

type Paragraph struct {
	Name       string      `json:"name"`
	Implicit   bool        `json:"implicit,omitempty"`
	Statements []Statement `json:"statements"`
	Line       int         `json:"line"`
	Column     int         `json:"column"`
}

// AllSections returns declarative sections followed by the main sections
func (p *ProcedureDivision) AllSections() []Section {
	if p == nil {
		return nil
	}
	all := make([]Section, 0, len(p.Declaratives)+len(p.Sections))
	all = append(all, p.Declaratives...)
	return append(all, p.Sections...)
}

// StatementKind is the verb of a statement
type StatementKind string

const (
	StmtAccept       StatementKind = "ACCEPT"
	StmtAdd          StatementKind = "ADD"
	StmtAlter        StatementKind = "ALTER"
	StmtCall         StatementKind = "CALL"
	StmtCancel       StatementKind = "CANCEL"
	StmtClose        StatementKind = "CLOSE"
	StmtCompute      StatementKind = "COMPUTE"
	StmtContinue     StatementKind = "CONTINUE"
	StmtDelete       StatementKind = "DELETE"
	StmtDisplay      StatementKind = "DISPLAY"
	StmtDivide       StatementKind = "DIVIDE"
	StmtEntry        StatementKind = "ENTRY"
	StmtEvaluate     StatementKind = "EVALUATE"
	StmtExec         StatementKind = "EXEC"
	StmtExit         StatementKind = "EXIT"
	StmtGoTo         StatementKind = "GO"
	StmtGoback       StatementKind = "GOBACK"
	StmtIf           StatementKind = "IF"
	StmtInitialize   StatementKind = "INITIALIZE"
	StmtInspect      StatementKind = "INSPECT"
	StmtInvoke       StatementKind = "INVOKE"
	StmtMerge        StatementKind = "MERGE"
	StmtMove         StatementKind = "MOVE"
	StmtMultiply     StatementKind = "MULTIPLY"
	StmtNextSentence StatementKind = "NEXT SENTENCE"
	StmtOpen         StatementKind = "OPEN"
	StmtPerform      StatementKind = "PERFORM"
	StmtRead         StatementKind = "READ"
	StmtRelease      StatementKind = "RELEASE"
	StmtReturn       StatementKind = "RETURN"
	StmtRewrite      StatementKind = "REWRITE"
	StmtSearch       StatementKind = "SEARCH"
	StmtSet          StatementKind = "SET"
	StmtSort         StatementKind = "SORT"
	StmtStart        StatementKind = "START"
	StmtStop         StatementKind = "STOP"
	StmtString       StatementKind = "STRING"
	StmtSubtract     StatementKind = "SUBTRACT"
	StmtUnstring     StatementKind = "UNSTRING"
	StmtUse          StatementKind = "USE"
	StmtWrite        StatementKind = "WRITE"
)

// IsFileIO reports whether the verb operates on a file record
func (k StatementKind) IsFileIO() bool {
	switch k {
	case StmtRead, StmtWrite, StmtRewrite, StmtDelete, StmtStart:
		return true
	}
	return false
}

// Statement is a single procedural statement. Which fields are populated
// depends on Kind:
//
//   - IF: Condition, Nested (THEN body), Else
//   - PERFORM: ProcedureRefs (out-of-line) or Nested (inline), Times, Condition (UNTIL)
//   - MOVE, COMPUTE, arithmetic verbs: Operands (sending side), Targets (receiving side)
//   - GO, ALTER: ProcedureRefs
//   - EVALUATE, SEARCH: Branches
//
// Operands always holds the remaining operand tokens in source order.
type Statement struct {
	Kind          StatementKind `json:"kind"`
	Line          int           `json:"line"`
	Column        int           `json:"column"`
	Operands      []string      `json:"operands,omitempty"`
	Targets       []string      `json:"targets,omitempty"`
	ProcedureRefs []string      `json:"procedure_refs,omitempty"`
	Times         string        `json:"times,omitempty"`
	Condition     *Condition    `json:"condition,omitempty"`
	Nested        []Statement   `json:"nested,omitempty"`
	Else          []Statement   `json:"else,omitempty"`
	Branches      []WhenBranch  `json:"branches,omitempty"`
	Handlers      []Handler     `json:"handlers,omitempty"`
}

// Location returns the position of the statement's verb
func (s *Statement) Location() *Location {
	return &Location{Line: s.Line, Column: s.Column}
}

// WhenBranch is one WHEN arm of EVALUATE or SEARCH. Condition is set when
// the objects form a condition (EVALUATE TRUE, SEARCH).
type WhenBranch struct {
	Objects    []string    `json:"objects,omitempty"`
	Condition  *Condition  `json:"condition,omitempty"`
	Other      bool        `json:"other,omitempty"`
	Statements []Statement `json:"statements,omitempty"`
}

// Handler is a conditional phrase such as AT END or ON SIZE ERROR with its
// imperative statements.
type Handler struct {
	Phrase     string      `json:"phrase"`
	Statements []Statement `json:"statements,omitempty"`
}

// Condition is a relation chained left to right. AND/OR siblings hang off
// the node they follow; there is no operator precedence. An empty Operator
// means a condition-name test on Left.
type Condition struct {
	Left          string      `json:"left"`
	Operator      string      `json:"operator,omitempty"`
	Right         string      `json:"right,omitempty"`
	Negated       bool        `json:"negated,omitempty"`
	AndConditions []Condition `json:"and_conditions,omitempty"`
	OrConditions  []Condition `json:"or_conditions,omitempty"`
}

// Count returns the number of simple conditions in the chain
func (c *Condition) Count() int {
	if c == nil {
		return 0
	}
	n := 0
	stack := []*Condition{c}
	for len(stack) > 0 {
		cur := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		n++
		for i := range cur.AndConditions {
			stack = append(stack, &cur.AndConditions[i])
		}
		for i := range cur.OrConditions {
			stack = append(stack, &cur.OrConditions[i])
		}
	}
	return n
}
