// Package parser turns fixed-format COBOL source into a *types.Program.
//
// Parsing runs as a small state machine over the division headers:
// IDENTIFICATION, then ENVIRONMENT and DATA in either order, then
// PROCEDURE. Each Parse call scans the source, walks the tokens with its
// own Cursor and finally hands the tree to the validator.
//
// # Basic Usage
//
//	p := parser.New(parser.DefaultConfig())
//	result, err := p.Parse(source)
//	if err != nil {
//	    var pe *types.ParseError
//	    if errors.As(err, &pe) {
//	        fmt.Printf("%s failed at %d:%d\n", pe.Stage, pe.Line, pe.Column)
//	    }
//	    return err
//	}
//
//	for _, d := range result.Diagnostics {
//	    fmt.Println(d)
//	}
//
// # Errors
//
// Only a missing IDENTIFICATION or PROCEDURE division, an unterminated
// literal, a mismatched token where the grammar requires one, or nesting
// deeper than Config.MaxNestingDepth abort a parse. Everything else is
// reported as a diagnostic and parsing continues.
//
// # Data Items
//
// Data description entries are collected flat and arranged into a tree
// with an explicit stack, so deeply nested records never recurse. Levels
// 66, 77 and 88 never receive children. REDEFINES and parent links are
// kept as names.
//
// # Statements
//
// Verbs map onto a closed set of types.StatementKind values. Conditions
// chain AND and OR strictly left to right with no precedence. Unknown
// verbs are skipped with an Info diagnostic.
package parser
