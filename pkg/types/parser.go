package types

import "fmt"

// ParseResult is the output of a successful parse: the program tree and
// every recoverable diagnostic, parser findings first.
type ParseResult struct {
	Program     *Program     `json:"program"`
	Diagnostics []Diagnostic `json:"diagnostics"`
}

// HasErrors returns true if any diagnostic is Error or worse
func (pr *ParseResult) HasErrors() bool {
	for _, d := range pr.Diagnostics {
		if d.Severity.Rank() >= SeverityError.Rank() {
			return true
		}
	}
	return false
}

// Parse stages, reported on fatal errors
const (
	StageScanning       = "scanning"
	StageIdentification = "identification"
	StageEnvironment    = "environment"
	StageData           = "data"
	StageProcedure      = "procedure"
	StageValidation     = "validation"
)

// ParseError is a fatal error that prevents a program tree from being built
type ParseError struct {
	Stage   string
	Line    int
	Column  int
	Message string
	Err     error
}

// Error implements the error interface
func (pe *ParseError) Error() string {
	if pe.Line > 0 {
		return fmt.Sprintf("%d:%d: %s", pe.Line, pe.Column, pe.Message)
	}
	return pe.Message
}

// Unwrap returns the sentinel error classifying this failure
func (pe *ParseError) Unwrap() error {
	return pe.Err
}

// NewParseError builds a ParseError at the given position
func NewParseError(stage string, err error, line, col int, format string, args ...interface{}) *ParseError {
	return &ParseError{
		Stage:   stage,
		Line:    line,
		Column:  col,
		Message: fmt.Sprintf(format, args...),
		Err:     err,
	}
}
