package types

import "fmt"

// Severity ranks a diagnostic
type Severity string

const (
	SeverityInfo     Severity = "info"
	SeverityWarning  Severity = "warning"
	SeverityError    Severity = "error"
	SeverityCritical Severity = "critical"
)

// Rank orders severities from Info (0) to Critical (3)
func (s Severity) Rank() int {
	switch s {
	case SeverityInfo:
		return 0
	case SeverityWarning:
		return 1
	case SeverityError:
		return 2
	case SeverityCritical:
		return 3
	default:
		return -1
	}
}

// Location is a 1-based line/column position
type Location struct {
	Line   int `json:"line"`
	Column int `json:"column"`
}

// Diagnostic is a recoverable finding about the source. Fatal conditions
// are reported as *ParseError instead.
type Diagnostic struct {
	Severity Severity  `json:"severity"`
	Code     string    `json:"code"`
	Message  string    `json:"message"`
	Location *Location `json:"location,omitempty"`
}

func (d Diagnostic) String() string {
	if d.Location == nil {
		return fmt.Sprintf("%s [%s] %s", d.Severity, d.Code, d.Message)
	}
	return fmt.Sprintf("%d:%d: %s [%s] %s", d.Location.Line, d.Location.Column, d.Severity, d.Code, d.Message)
}

// Diagnostic codes
const (
	CodeSkippedTokens      = "skipped-tokens"
	CodeDuplicateDivision  = "duplicate-division"
	CodeDivisionOrder      = "division-order"
	CodeUnknownStatement   = "unknown-statement"
	CodeUnmatchedEnd       = "unmatched-terminator"
	CodeMissingTerminator  = "missing-terminator"
	CodeUnsupportedSection = "unsupported-section"
	CodeTrailingTokens     = "trailing-tokens"
	CodeInvalidPicture     = "invalid-picture"
	CodeInvalidLevel       = "invalid-level"
	CodeLevelOrder         = "level-order"
	CodeOrphanCondition    = "orphan-condition"
	CodeRedefinesUnknown   = "redefines-unresolved"
	CodeRedefinesForward   = "redefines-forward"
	CodeRedefinesCycle     = "redefines-cycle"
	CodeRedefinesLevel     = "redefines-level"
	CodeUnknownProcedure   = "unknown-procedure"
	CodeDuplicateSection   = "duplicate-section"
	CodeDuplicateParagraph = "duplicate-paragraph"
	CodeDuplicateData      = "duplicate-data-name"
	CodeDuplicateParameter = "duplicate-parameter"
	CodeUndeclaredParam    = "undeclared-parameter"
	CodeUndeclaredData     = "undeclared-data"
	CodeProgramID          = "invalid-program-id"
	CodeEndProgram         = "end-program-mismatch"
	CodeInvalidDate        = "invalid-date"
	CodeSecurityLevel      = "unknown-security"
	CodeGroupPicture       = "group-picture"
	CodeMissingPicture     = "missing-picture"
	CodeOccursLevel        = "occurs-level"
	CodeValueMismatch      = "value-mismatch"
	CodeDataName           = "invalid-data-name"
	CodeOrganization       = "invalid-organization"
	CodeAccessMode         = "invalid-access-mode"
	CodeRecordKey          = "missing-record-key"
	CodeSegmentLimit       = "invalid-segment-limit"
	CodeCurrencySign       = "invalid-currency-sign"
	CodeParagraphSize      = "oversized-paragraph"
	CodeSectionSize        = "oversized-section"
	CodeErrorHandling      = "missing-error-handling"
	CodeComplexity         = "high-complexity"
)

// CountSeverity returns how many diagnostics have the given severity
func CountSeverity(diags []Diagnostic, sev Severity) int {
	n := 0
	for _, d := range diags {
		if d.Severity == sev {
			n++
		}
	}
	return n
}

// DiagnosticCollector accumulates diagnostics in the order they are found
type DiagnosticCollector struct {
	items []Diagnostic
}

// Add records a diagnostic. loc may be nil.
func (c *DiagnosticCollector) Add(sev Severity, code string, loc *Location, format string, args ...interface{}) {
	c.items = append(c.items, Diagnostic{
		Severity: sev,
		Code:     code,
		Message:  fmt.Sprintf(format, args...),
		Location: loc,
	})
}

func (c *DiagnosticCollector) Infof(code string, loc *Location, format string, args ...interface{}) {
	c.Add(SeverityInfo, code, loc, format, args...)
}

func (c *DiagnosticCollector) Warnf(code string, loc *Location, format string, args ...interface{}) {
	c.Add(SeverityWarning, code, loc, format, args...)
}

func (c *DiagnosticCollector) Errorf(code string, loc *Location, format string, args ...interface{}) {
	c.Add(SeverityError, code, loc, format, args...)
}

func (c *DiagnosticCollector) Criticalf(code string, loc *Location, format string, args ...interface{}) {
	c.Add(SeverityCritical, code, loc, format, args...)
}

// Append adds already built diagnostics
func (c *DiagnosticCollector) Append(diags ...Diagnostic) {
	c.items = append(c.items, diags...)
}

// Items returns a copy of the collected diagnostics
func (c *DiagnosticCollector) Items() []Diagnostic {
	if len(c.items) == 0 {
		return nil
	}
	out := make([]Diagnostic, len(c.items))
	copy(out, c.items)
	return out
}

// Count returns the number of diagnostics with the given severity
func (c *DiagnosticCollector) Count(sev Severity) int {
	return CountSeverity(c.items, sev)
}

// HasErrors reports whether any Error or Critical diagnostic was recorded
func (c *DiagnosticCollector) HasErrors() bool {
	for _, d := range c.items {
		if d.Severity.Rank() >= SeverityError.Rank() {
			return true
		}
	}
	return false
}
