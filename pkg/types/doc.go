// Package types defines the program tree produced by the COBOL parser and
// the diagnostics reported against it.
//
// A successful parse yields a ParseResult: a *Program with one entry per
// division, and the recoverable Diagnostics found while parsing and
// validating. Conditions that prevent a tree from being built are returned
// as *ParseError, which unwraps to one of the sentinel errors:
//
//	result, err := p.Parse(src)
//	var pe *types.ParseError
//	if errors.As(err, &pe) {
//	    fmt.Printf("%s stage failed at %d:%d\n", pe.Stage, pe.Line, pe.Column)
//	}
//	if errors.Is(err, types.ErrMissingDivision) { ... }
//
// Every type is a plain struct with JSON tags, so a Program can be stored
// and reloaded without loss.
//
// WalkStatements and WalkDataItems traverse nested statements and data
// hierarchies with an explicit stack.
package types
