// Package validator checks a parsed COBOL program for problems the parser
// does not reject.
//
// Validate runs once over a completed *types.Program and never modifies
// it. Findings are returned as diagnostics in check order; only a missing
// IDENTIFICATION or PROCEDURE division is fatal.
//
// # Checks
//
//   - division presence and ENVIRONMENT/DATA order
//   - PROGRAM-ID format, DATE-WRITTEN/DATE-COMPILED, SECURITY, END PROGRAM
//   - SELECT organization, access mode and record keys
//   - data level legality, PICTURE/VALUE consistency, OCCURS placement
//   - REDEFINES resolution and cycles
//   - duplicate sections, paragraphs, data names and USING parameters
//   - PERFORM, GO TO, ALTER and SORT procedure references
//   - paragraph and section size
//   - error-handling coverage for file I/O and CALL
package validator
