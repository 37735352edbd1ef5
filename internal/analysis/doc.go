// Package analysis runs analysis engines over a parsed COBOL program.
//
// Each engine implements Analyzer and returns a Result with numeric
// metrics, an engine-specific Details payload and optional diagnostics.
// The built-in engines are:
//
//   - metrics: counts of divisions, data items, tables, sections,
//     paragraphs and statements, and the depth of the data hierarchy
//   - complexity: cyclomatic complexity and nesting depth per paragraph,
//     with a warning above a configurable threshold
//   - dependencies: CALL targets, copybooks, selected files with the verbs
//     used on them, and the PERFORM/GO TO graph with its cycles
//
// # Running Engines
//
//	engines, err := analysis.Select(analysis.Config{}, "complexity")
//	results, err := analysis.Run(ctx, prog, engines...)
//
// Run executes the engines concurrently. They share the Program, which
// must not be modified while Run is in progress.
package analysis
