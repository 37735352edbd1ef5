package validator

import (
	"github.com/dshills/cobolcontext-mcp/pkg/types"
)

// Default procedure size thresholds
const (
	DefaultMaxParagraphStatements = 200
	DefaultMaxSectionParagraphs   = 50
)

// Config holds validation thresholds
type Config struct {
	MaxParagraphStatements int
	MaxSectionParagraphs   int
}

// DefaultConfig returns the standard thresholds
func DefaultConfig() Config {
	return Config{
		MaxParagraphStatements: DefaultMaxParagraphStatements,
		MaxSectionParagraphs:   DefaultMaxSectionParagraphs,
	}
}

// Validator checks a parsed Program for semantic problems. It only reads
// the program and keeps no state between calls.
type Validator struct {
	cfg Config
}

// New creates a Validator. Non-positive thresholds fall back to defaults.
func New(cfg Config) *Validator {
	if cfg.MaxParagraphStatements <= 0 {
		cfg.MaxParagraphStatements = DefaultMaxParagraphStatements
	}
	if cfg.MaxSectionParagraphs <= 0 {
		cfg.MaxSectionParagraphs = DefaultMaxSectionParagraphs
	}
	return &Validator{cfg: cfg}
}

// pass is the state of one Validate call
type pass struct {
	cfg   Config
	prog  *types.Program
	diags types.DiagnosticCollector
}

// Validate runs every check over prog and returns the findings in check
// order. The error is a *types.ParseError when a mandatory division is
// missing, in which case no diagnostics are returned.
func (v *Validator) Validate(prog *types.Program) ([]types.Diagnostic, error) {
	if prog == nil {
		return nil, types.NewParseError(types.StageValidation, types.ErrInvalidSource, 0, 0, "no program to validate")
	}
	if !prog.HasDivision(types.DivisionIdentification) || prog.ProgramID == "" {
		return nil, types.NewParseError(types.StageValidation, types.ErrMissingDivision, 0, 0,
			"IDENTIFICATION DIVISION with PROGRAM-ID is required")
	}
	if prog.Procedure == nil {
		return nil, types.NewParseError(types.StageValidation, types.ErrMissingDivision, 0, 0,
			"PROCEDURE DIVISION is required")
	}

	p := &pass{cfg: v.cfg, prog: prog}
	p.checkDivisionOrder()
	p.checkIdentification()
	p.checkEnvironment()
	p.checkData()
	p.checkRedefines()
	p.checkProcedure()
	return p.diags.Items(), nil
}

// checkDivisionOrder warns when DATA precedes ENVIRONMENT
func (p *pass) checkDivisionOrder() {
	env, data := -1, -1
	for i, d := range p.prog.Divisions {
		switch {
		case d.Name == types.DivisionEnvironment && env < 0:
			env = i
		case d.Name == types.DivisionData && data < 0:
			data = i
		}
	}
	if env >= 0 && data >= 0 && data < env {
		hdr := p.prog.Divisions[env]
		p.diags.Warnf(types.CodeDivisionOrder, &types.Location{Line: hdr.Line, Column: hdr.Column},
			"ENVIRONMENT DIVISION should precede DATA DIVISION")
	}
}
