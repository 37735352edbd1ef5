package parser

import (
	"github.com/dshills/cobolcontext-mcp/internal/lexer"
	"github.com/dshills/cobolcontext-mcp/internal/validator"
	"github.com/dshills/cobolcontext-mcp/pkg/types"
)

// DefaultMaxNestingDepth bounds nested statement bodies and parenthesised
// conditions.
const DefaultMaxNestingDepth = 256

// Config controls scanning, parsing and validation
type Config struct {
	Lexer           lexer.Config
	Validator       validator.Config
	MaxNestingDepth int
}

// DefaultConfig returns the standard configuration
func DefaultConfig() Config {
	return Config{
		Lexer:           lexer.DefaultConfig(),
		Validator:       validator.DefaultConfig(),
		MaxNestingDepth: DefaultMaxNestingDepth,
	}
}

// Parser turns COBOL source text into a validated program tree. A Parser
// holds only configuration; Parse may be called from many goroutines.
type Parser struct {
	cfg       Config
	scanner   *lexer.Scanner
	validator *validator.Validator
}

// New creates a new Parser instance
func New(cfg Config) *Parser {
	if cfg.MaxNestingDepth <= 0 {
		cfg.MaxNestingDepth = DefaultMaxNestingDepth
	}
	return &Parser{
		cfg:       cfg,
		scanner:   lexer.New(cfg.Lexer),
		validator: validator.New(cfg.Validator),
	}
}

// Parse scans, parses and validates one compilation unit. A non-nil error
// is always a *types.ParseError; everything recoverable is reported in the
// result's diagnostics.
func (p *Parser) Parse(source string) (*types.ParseResult, error) {
	tokens, err := p.scanner.Scan(source)
	if err != nil {
		return nil, err
	}

	pc := &parseContext{
		cfg:   p.cfg,
		cur:   NewCursor(tokens),
		diags: &types.DiagnosticCollector{},
	}
	prog, err := pc.parseProgram()
	if err != nil {
		return nil, err
	}

	diags, err := p.validator.Validate(prog)
	if err != nil {
		return nil, err
	}
	pc.diags.Append(diags...)

	return &types.ParseResult{
		Program:     prog,
		Diagnostics: pc.diags.Items(),
	}, nil
}

// parseContext is the state of a single Parse call
type parseContext struct {
	cfg   Config
	cur   *Cursor
	diags *types.DiagnosticCollector
	depth int
	prog  *types.Program
}

type parseState int

const (
	stateIdentification parseState = iota
	stateDivisions
	stateProcedure
	stateDone
)

// parseProgram drives the division state machine:
// IDENTIFICATION -> {ENVIRONMENT, DATA}* -> PROCEDURE.
func (pc *parseContext) parseProgram() (*types.Program, error) {
	pc.prog = &types.Program{}
	cur := pc.cur
	cur.SetStage(types.StageIdentification)

	if first := cur.Peek(); !pc.atDivisionHeader() && !cur.AtEOF() {
		n := 0
		for !cur.AtEOF() && !pc.atDivisionHeader() {
			cur.Advance()
			n++
		}
		pc.diags.Warnf(types.CodeSkippedTokens, first.Location(),
			"%d tokens before the first division header were ignored", n)
	}

	state := stateIdentification
	for state != stateDone {
		switch state {
		case stateIdentification:
			name, hdr, ok := pc.divisionHeader()
			if !ok || name != types.DivisionIdentification {
				at := cur.Peek()
				if ok {
					at = hdr
				}
				return nil, types.NewParseError(types.StageIdentification, types.ErrMissingDivision,
					at.Line, at.Column, "IDENTIFICATION DIVISION is required")
			}
			if err := pc.parseIdentification(hdr); err != nil {
				return nil, err
			}
			state = stateDivisions

		case stateDivisions:
			if !pc.atDivisionHeader() {
				at := cur.Peek()
				return nil, types.NewParseError(cur.Stage(), types.ErrMissingDivision,
					at.Line, at.Column, "PROCEDURE DIVISION is required")
			}
			if pc.peekDivisionName() == types.DivisionProcedure {
				state = stateProcedure
				continue
			}
			name, hdr, _ := pc.divisionHeader()
			if err := pc.parseOptionalDivision(name, hdr); err != nil {
				return nil, err
			}

		case stateProcedure:
			_, hdr, _ := pc.divisionHeader()
			if err := pc.parseProcedure(hdr); err != nil {
				return nil, err
			}
			if !cur.AtEOF() {
				pc.diags.Warnf(types.CodeTrailingTokens, cur.Peek().Location(),
					"tokens after the end of the program were ignored")
			}
			state = stateDone
		}
	}
	return pc.prog, nil
}

func (pc *parseContext) parseOptionalDivision(name string, hdr types.Token) error {
	switch name {
	case types.DivisionEnvironment:
		if pc.prog.Environment != nil {
			pc.duplicateDivision(name, hdr)
			return nil
		}
		pc.cur.SetStage(types.StageEnvironment)
		return pc.parseEnvironment()
	case types.DivisionData:
		if pc.prog.Data != nil {
			pc.duplicateDivision(name, hdr)
			return nil
		}
		pc.cur.SetStage(types.StageData)
		return pc.parseData()
	default:
		pc.duplicateDivision(name, hdr)
		return nil
	}
}

// duplicateDivision reports a repeated division and discards its body
func (pc *parseContext) duplicateDivision(name string, hdr types.Token) {
	pc.diags.Criticalf(types.CodeDuplicateDivision, hdr.Location(),
		"%s DIVISION appears more than once; the repeated division was ignored", name)
	for !pc.cur.AtEOF() && !pc.atDivisionHeader() {
		pc.cur.Advance()
	}
}

// peekDivisionName returns the normalized name of the division header at
// the cursor, or "" when there is none.
func (pc *parseContext) peekDivisionName() string {
	tok := pc.cur.Peek()
	if !pc.cur.PeekAt(1).IsKeyword("DIVISION") {
		return ""
	}
	switch {
	case tok.IsKeyword("IDENTIFICATION", "ID"):
		return types.DivisionIdentification
	case tok.IsKeyword("ENVIRONMENT"):
		return types.DivisionEnvironment
	case tok.IsKeyword("DATA"):
		return types.DivisionData
	case tok.IsKeyword("PROCEDURE"):
		return types.DivisionProcedure
	}
	return ""
}

func (pc *parseContext) atDivisionHeader() bool {
	return pc.peekDivisionName() != ""
}

// divisionHeader consumes `NAME DIVISION` and records it. The period after
// the header is left for the division parser.
func (pc *parseContext) divisionHeader() (string, types.Token, bool) {
	name := pc.peekDivisionName()
	if name == "" {
		return "", types.Token{}, false
	}
	hdr := pc.cur.Advance()
	pc.cur.Advance()
	pc.prog.Divisions = append(pc.prog.Divisions, types.DivisionHeader{
		Name:   name,
		Line:   hdr.Line,
		Column: hdr.Column,
	})
	return name, hdr, true
}

// atSectionHeader reports whether the cursor is at `word SECTION`
func (pc *parseContext) atSectionHeader() bool {
	tok := pc.cur.Peek()
	if tok.Kind != types.TokenIdentifier && tok.Kind != types.TokenNumber && tok.Kind != types.TokenKeyword {
		return false
	}
	return pc.cur.PeekAt(1).IsKeyword("SECTION")
}

// enter guards recursion into nested bodies and condition groups
func (pc *parseContext) enter(at types.Token) error {
	pc.depth++
	if pc.depth > pc.cfg.MaxNestingDepth {
		return types.NewParseError(pc.cur.Stage(), types.ErrNestingTooDeep, at.Line, at.Column,
			"nesting deeper than %d levels", pc.cfg.MaxNestingDepth)
	}
	return nil
}

func (pc *parseContext) leave() {
	pc.depth--
}

// consumeCopy records a COPY directive and skips to its closing period
func (pc *parseContext) consumeCopy() {
	start := pc.cur.Advance()
	dir := types.CopyDirective{Line: start.Line, Column: start.Column}
	if tok := pc.cur.Peek(); tok.IsWord() || tok.Kind == types.TokenLiteral {
		dir.Name = pc.cur.Advance().Value()
	}
	if pc.cur.AcceptKeyword("OF", "IN") {
		dir.Library = pc.cur.Advance().Value()
	}
	for !pc.cur.AtEOF() && pc.cur.Peek().Kind != types.TokenPeriod {
		pc.cur.Advance()
	}
	pc.cur.Accept(types.TokenPeriod, "")
	pc.prog.Copybooks = append(pc.prog.Copybooks, dir)
}

// skipSentence skips tokens up to and including the next period, stopping
// early at a division header.
func (pc *parseContext) skipSentence() {
	for !pc.cur.AtEOF() && !pc.atDivisionHeader() {
		if pc.cur.Advance().Kind == types.TokenPeriod {
			return
		}
	}
}

// joinTokens renders tokens as source text. Tokens on the same line that
// touch are joined without a space, so 01/15/2024 and A(I) survive.
func joinTokens(toks []types.Token) string {
	var out []byte
	for i, tok := range toks {
		if i > 0 {
			prev := toks[i-1]
			if prev.Line != tok.Line || prev.End() != tok.Column {
				out = append(out, ' ')
			}
		}
		out = append(out, tok.Text...)
	}
	return string(out)
}

func tokenTexts(toks []types.Token) []string {
	if len(toks) == 0 {
		return nil
	}
	out := make([]string, len(toks))
	for i, tok := range toks {
		out[i] = tok.Text
	}
	return out
}
