package parser

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/cobolcontext-mcp/internal/lexer"
	"github.com/dshills/cobolcontext-mcp/pkg/types"
)

// src builds fixed-format source with an empty sequence area
func src(lines ...string) string {
	out := make([]string, len(lines))
	for i, l := range lines {
		out[i] = "       " + l
	}
	return strings.Join(out, "\n")
}

func parse(t *testing.T, source string) *types.ParseResult {
	t.Helper()
	result, err := New(DefaultConfig()).Parse(source)
	require.NoError(t, err)
	require.NotNil(t, result.Program)
	return result
}

// program wraps procedure lines in a minimal program
func program(procedure ...string) string {
	lines := []string{
		"IDENTIFICATION DIVISION.",
		"PROGRAM-ID. DEMO.",
		"PROCEDURE DIVISION.",
	}
	return src(append(lines, procedure...)...)
}

func withSeverity(diags []types.Diagnostic, sev types.Severity) []types.Diagnostic {
	var out []types.Diagnostic
	for _, d := range diags {
		if d.Severity == sev {
			out = append(out, d)
		}
	}
	return out
}

func firstStatements(t *testing.T, result *types.ParseResult) []types.Statement {
	t.Helper()
	proc := result.Program.Procedure
	require.NotNil(t, proc)
	require.NotEmpty(t, proc.Sections)
	require.NotEmpty(t, proc.Sections[0].Paragraphs)
	return proc.Sections[0].Paragraphs[0].Statements
}

func TestParse_MinimalProgram(t *testing.T) {
	result := parse(t, src(
		"IDENTIFICATION DIVISION.",
		"PROGRAM-ID. FOO.",
		"PROCEDURE DIVISION.",
		"MAIN.",
		`    DISPLAY "HI".`,
	))

	prog := result.Program
	assert.Equal(t, "FOO", prog.ProgramID)
	assert.Nil(t, prog.Environment)
	assert.Nil(t, prog.Data)
	assert.Empty(t, result.Diagnostics)

	require.Len(t, prog.Procedure.Sections, 1)
	sec := prog.Procedure.Sections[0]
	assert.True(t, sec.Implicit)
	require.Len(t, sec.Paragraphs, 1)
	assert.Equal(t, "MAIN", sec.Paragraphs[0].Name)

	stmts := sec.Paragraphs[0].Statements
	require.Len(t, stmts, 1)
	assert.Equal(t, types.StmtDisplay, stmts[0].Kind)
	assert.Equal(t, []string{`"HI"`}, stmts[0].Operands)
	assert.Equal(t, 5, stmts[0].Line)
}

func TestParse_SingleLineSource(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Lexer = lexer.Config{CodeAreaEnd: 0}
	source := `       IDENTIFICATION DIVISION. PROGRAM-ID. FOO. PROCEDURE DIVISION. MAIN. DISPLAY "HI".`

	result, err := New(cfg).Parse(source)
	require.NoError(t, err)
	assert.Equal(t, "FOO", result.Program.ProgramID)
	stmts := firstStatements(t, result)
	require.Len(t, stmts, 1)
	assert.Equal(t, types.StmtDisplay, stmts[0].Kind)
	assert.Equal(t, "MAIN", result.Program.Procedure.Sections[0].Paragraphs[0].Name)
}

func TestParse_Divisions(t *testing.T) {
	result := parse(t, src(
		"ID DIVISION.",
		"PROGRAM-ID. DEMO.",
		"AUTHOR. JANE DOE.",
		"DATE-WRITTEN. 01/15/2024.",
		"ENVIRONMENT DIVISION.",
		"DATA DIVISION.",
		"WORKING-STORAGE SECTION.",
		"01 WS-A PIC X.",
		"PROCEDURE DIVISION.",
		"    STOP RUN.",
	))

	prog := result.Program
	var names []string
	for _, d := range prog.Divisions {
		names = append(names, d.Name)
	}
	assert.Equal(t, []string{
		types.DivisionIdentification, types.DivisionEnvironment, types.DivisionData, types.DivisionProcedure,
	}, names)
	assert.Equal(t, "JANE DOE", prog.Identification.Author)
	assert.Equal(t, "01/15/2024", prog.Identification.DateWritten)
	assert.NotNil(t, prog.Environment)
	require.NotNil(t, prog.Data)
	assert.Empty(t, result.Diagnostics)

	stmts := firstStatements(t, result)
	require.Len(t, stmts, 1)
	assert.Equal(t, types.StmtStop, stmts[0].Kind)
	assert.Equal(t, []string{"RUN"}, stmts[0].Operands)
	assert.True(t, prog.Procedure.Sections[0].Paragraphs[0].Implicit)
}

func TestParse_FatalErrors(t *testing.T) {
	tests := []struct {
		name   string
		source string
		want   error
		stage  string
	}{
		{
			name:   "missing procedure division",
			source: src("IDENTIFICATION DIVISION.", "PROGRAM-ID. DEMO.", "DATA DIVISION."),
			want:   types.ErrMissingDivision,
			stage:  types.StageData,
		},
		{
			name:   "missing identification division",
			source: src("PROCEDURE DIVISION.", "    STOP RUN."),
			want:   types.ErrMissingDivision,
			stage:  types.StageIdentification,
		},
		{
			name:   "missing program-id",
			source: src("IDENTIFICATION DIVISION.", "AUTHOR. ME.", "PROCEDURE DIVISION."),
			want:   types.ErrUnexpectedToken,
			stage:  types.StageIdentification,
		},
		{
			name:   "unterminated literal",
			source: program(`    DISPLAY "HI.`),
			want:   types.ErrUnterminatedLiteral,
			stage:  types.StageScanning,
		},
		{
			name:   "procedure header without period",
			source: src("IDENTIFICATION DIVISION.", "PROGRAM-ID. DEMO.", "PROCEDURE DIVISION USING A", "    B C"),
			want:   types.ErrUnexpectedToken,
			stage:  types.StageProcedure,
		},
		{
			name:   "empty source",
			source: "",
			want:   types.ErrMissingDivision,
			stage:  types.StageIdentification,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := New(DefaultConfig()).Parse(tt.source)
			require.Error(t, err)
			assert.Nil(t, result)
			assert.True(t, errors.Is(err, tt.want), "got %v", err)

			var pe *types.ParseError
			require.True(t, errors.As(err, &pe))
			assert.Equal(t, tt.stage, pe.Stage)
		})
	}
}

func TestParse_MissingProcedureReportsPosition(t *testing.T) {
	_, err := New(DefaultConfig()).Parse(src("IDENTIFICATION DIVISION.", "PROGRAM-ID. DEMO.", "ENVIRONMENT DIVISION."))
	var pe *types.ParseError
	require.True(t, errors.As(err, &pe))
	assert.Equal(t, 3, pe.Line)
	assert.Contains(t, pe.Error(), "PROCEDURE DIVISION is required")
}

func TestParse_DataHierarchy(t *testing.T) {
	result := parse(t, src(
		"IDENTIFICATION DIVISION.",
		"PROGRAM-ID. DEMO.",
		"DATA DIVISION.",
		"WORKING-STORAGE SECTION.",
		"01 A.",
		"   05 B PIC X.",
		"   05 C.",
		"      10 D PIC 9.",
		"01 E PIC X.",
		"PROCEDURE DIVISION.",
		"    STOP RUN.",
	))

	sec := result.Program.Data.Section(types.SectionWorkingStorage)
	require.NotNil(t, sec)
	require.Len(t, sec.Items, 2)

	a, e := sec.Items[0], sec.Items[1]
	assert.Equal(t, "A", a.Name)
	assert.Equal(t, "E", e.Name)
	assert.Empty(t, e.Children)

	require.Len(t, a.Children, 2)
	assert.Equal(t, "B", a.Children[0].Name)
	assert.Equal(t, "C", a.Children[1].Name)
	assert.Equal(t, "A", a.Children[1].Parent)

	c := a.Children[1]
	require.Len(t, c.Children, 1)
	assert.Equal(t, "D", c.Children[0].Name)
	assert.Equal(t, "C", c.Children[0].Parent)
	assert.Equal(t, types.ClassGroup, c.Class())
	assert.Equal(t, types.ClassNumeric, c.Children[0].Class())
	assert.Empty(t, result.Diagnostics)
}

func TestParse_DataClauses(t *testing.T) {
	result := parse(t, src(
		"IDENTIFICATION DIVISION.",
		"PROGRAM-ID. DEMO.",
		"DATA DIVISION.",
		"FILE SECTION.",
		"FD CUST-FILE",
		"    RECORD CONTAINS 80 CHARACTERS",
		"    LABEL RECORDS ARE STANDARD.",
		"01 CUST-REC.",
		"   05 CUST-ID PIC 9(6).",
		"   05 FILLER PIC X(74).",
		"WORKING-STORAGE SECTION.",
		"01 WS-COUNT PIC S9(5)V99 COMP-3 VALUE 0.",
		"01 WS-TABLE.",
		"   05 WS-ENTRY OCCURS 1 TO 10 TIMES DEPENDING ON WS-N",
		"         INDEXED BY WS-IDX PIC X(5).",
		"77 WS-N PIC 99 VALUE 10.",
		"01 WS-FLAG PIC X VALUE 'N'.",
		"   88 FLAG-ON VALUE 'Y'.",
		"PROCEDURE DIVISION.",
		"    STOP RUN.",
	))

	data := result.Program.Data
	file := data.Section(types.SectionFile)
	require.NotNil(t, file)
	require.Len(t, file.Files, 1)
	fd := file.Files[0]
	assert.Equal(t, "FD", fd.Kind)
	assert.Equal(t, "CUST-FILE", fd.Name)
	assert.Equal(t, "80 CHARACTERS", fd.RecordContains)
	assert.Equal(t, "STANDARD", fd.LabelRecords)
	require.Len(t, fd.Records, 1)
	require.Len(t, fd.Records[0].Children, 2)
	assert.True(t, fd.Records[0].Children[1].Filler)
	assert.Equal(t, types.FillerName, fd.Records[0].Children[1].Name)

	ws := data.Section(types.SectionWorkingStorage)
	require.NotNil(t, ws)
	require.Len(t, ws.Items, 4)

	count := ws.Items[0]
	require.NotNil(t, count.Picture)
	assert.Equal(t, types.UsageComp3, count.Usage)
	assert.Equal(t, "0", count.Value)
	assert.Equal(t, 7, count.Picture.Length)
	assert.Equal(t, 2, count.Picture.Decimals)
	assert.True(t, count.Picture.Signed)

	entry := ws.Items[1].Children[0]
	require.NotNil(t, entry.Occurs)
	assert.Equal(t, 1, entry.Occurs.Min)
	assert.Equal(t, 10, entry.Occurs.Max)
	assert.Equal(t, "WS-N", entry.Occurs.DependingOn)
	assert.Equal(t, []string{"WS-IDX"}, entry.Occurs.IndexedBy)
	require.NotNil(t, entry.Picture)
	assert.Equal(t, 5, entry.Picture.Length)

	assert.Equal(t, types.LevelStandard, ws.Items[2].Level)

	flag := ws.Items[3]
	require.Len(t, flag.Children, 1)
	assert.Equal(t, "FLAG-ON", flag.Children[0].Name)
	assert.Equal(t, "'Y'", flag.Children[0].Value)
	assert.False(t, flag.IsGroup())

	assert.Empty(t, result.Diagnostics)
}

func TestParse_RedefinesCycle(t *testing.T) {
	result := parse(t, src(
		"IDENTIFICATION DIVISION.",
		"PROGRAM-ID. DEMO.",
		"DATA DIVISION.",
		"WORKING-STORAGE SECTION.",
		"01 A REDEFINES B PIC X(4).",
		"01 B REDEFINES A PIC X(4).",
		"PROCEDURE DIVISION.",
		"    STOP RUN.",
	))

	errs := withSeverity(result.Diagnostics, types.SeverityError)
	require.Len(t, errs, 1)
	assert.Equal(t, types.CodeRedefinesCycle, errs[0].Code)
	assert.Contains(t, errs[0].Message, "cycle")
}

func TestParse_UnknownPerformTarget(t *testing.T) {
	result := parse(t, program(
		"MAIN-PARA.",
		"    PERFORM UNKNOWN-PARA",
		"    PERFORM UNKNOWN-PARA",
		"    STOP RUN.",
	))

	warnings := withSeverity(result.Diagnostics, types.SeverityWarning)
	require.Len(t, warnings, 1)
	assert.Equal(t, types.CodeUnknownProcedure, warnings[0].Code)
	assert.Contains(t, warnings[0].Message, "UNKNOWN-PARA")
	assert.Len(t, firstStatements(t, result), 3)
}

func TestParse_Idempotent(t *testing.T) {
	source := src(
		"IDENTIFICATION DIVISION.",
		"PROGRAM-ID. DEMO.",
		"DATA DIVISION.",
		"WORKING-STORAGE SECTION.",
		"01 A REDEFINES B PIC X(4).",
		"01 B PIC X(4).",
		"PROCEDURE DIVISION.",
		"MAIN.",
		"    IF A = 1 AND B > 2 PERFORM NOWHERE END-IF",
		"    FROBNICATE A.",
	)
	p := New(DefaultConfig())
	first, err := p.Parse(source)
	require.NoError(t, err)
	second, err := p.Parse(source)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.NotEmpty(t, first.Diagnostics)
}

func TestParse_DuplicateDivision(t *testing.T) {
	result := parse(t, src(
		"IDENTIFICATION DIVISION.",
		"PROGRAM-ID. DEMO.",
		"DATA DIVISION.",
		"DATA DIVISION.",
		"WORKING-STORAGE SECTION.",
		"01 X PIC X.",
		"PROCEDURE DIVISION.",
		"    STOP RUN.",
	))

	critical := withSeverity(result.Diagnostics, types.SeverityCritical)
	require.Len(t, critical, 1)
	assert.Equal(t, types.CodeDuplicateDivision, critical[0].Code)
	assert.Equal(t, 4, critical[0].Location.Line)
}

func TestParse_LeadingAndTrailingTokens(t *testing.T) {
	source := src(
		"JUNK HERE.",
		"IDENTIFICATION DIVISION.",
		"PROGRAM-ID. DEMO.",
		"PROCEDURE DIVISION.",
		"    STOP RUN.",
		"END PROGRAM DEMO.",
		"EXTRA.",
	)
	result := parse(t, source)

	var codes []string
	for _, d := range result.Diagnostics {
		codes = append(codes, d.Code)
	}
	assert.Equal(t, []string{types.CodeSkippedTokens, types.CodeTrailingTokens}, codes)
	assert.Equal(t, "DEMO", result.Program.Procedure.EndProgram)
}

func TestParse_Environment(t *testing.T) {
	result := parse(t, src(
		"IDENTIFICATION DIVISION.",
		"PROGRAM-ID. DEMO.",
		"ENVIRONMENT DIVISION.",
		"CONFIGURATION SECTION.",
		"SOURCE-COMPUTER. IBM-370 WITH DEBUGGING MODE.",
		"OBJECT-COMPUTER. IBM-370 SEGMENT-LIMIT IS 30.",
		"SPECIAL-NAMES.",
		"    C01 IS TOP-PAGE",
		"    CURRENCY SIGN IS '$'",
		"    DECIMAL-POINT IS COMMA.",
		"INPUT-OUTPUT SECTION.",
		"FILE-CONTROL.",
		`    SELECT CUST-FILE ASSIGN TO "CUST.DAT"`,
		"        ORGANIZATION IS INDEXED",
		"        ACCESS MODE IS DYNAMIC",
		"        RECORD KEY IS CUST-ID",
		"        ALTERNATE RECORD KEY IS CUST-NAME WITH DUPLICATES",
		"        FILE STATUS IS WS-STATUS.",
		"    SELECT OPTIONAL REPORT-FILE ASSIGN TO PRINTER",
		"        ORGANIZATION IS LINE SEQUENTIAL.",
		"PROCEDURE DIVISION.",
		"    STOP RUN.",
	))

	env := result.Program.Environment
	require.NotNil(t, env)
	require.NotNil(t, env.SourceComputer)
	assert.Equal(t, "IBM-370", env.SourceComputer.Name)
	assert.True(t, env.SourceComputer.DebuggingMode)
	require.NotNil(t, env.ObjectComputer)
	require.NotNil(t, env.ObjectComputer.SegmentLimit)
	assert.Equal(t, 30, *env.ObjectComputer.SegmentLimit)

	require.NotNil(t, env.SpecialNames)
	assert.Equal(t, "$", env.SpecialNames.CurrencySign)
	assert.True(t, env.SpecialNames.DecimalPointComma)
	assert.Equal(t, []types.Mnemonic{{Implementor: "C01", Name: "TOP-PAGE"}}, env.SpecialNames.Mnemonics)

	require.Len(t, env.FileControl, 2)
	cust := env.FileControlFor("CUST-FILE")
	require.NotNil(t, cust)
	assert.Equal(t, "CUST.DAT", cust.AssignTo)
	assert.Equal(t, types.OrganizationIndexed, cust.Organization)
	assert.Equal(t, types.AccessDynamic, cust.AccessMode)
	assert.Equal(t, "CUST-ID", cust.RecordKey)
	assert.Equal(t, []types.AlternateKey{{Name: "CUST-NAME", Duplicates: true}}, cust.AlternateKeys)
	assert.Equal(t, "WS-STATUS", cust.FileStatus)

	rpt := env.FileControl[1]
	assert.True(t, rpt.Optional)
	assert.Equal(t, "REPORT-FILE", rpt.FileName)
	assert.Equal(t, types.OrganizationLineSequential, rpt.Organization)
	assert.Equal(t, types.AccessSequential, rpt.AccessMode)
}

func TestParse_CopyDirectives(t *testing.T) {
	result := parse(t, src(
		"IDENTIFICATION DIVISION.",
		"PROGRAM-ID. DEMO.",
		"DATA DIVISION.",
		"WORKING-STORAGE SECTION.",
		"COPY CUSTREC.",
		"01 WS-A PIC X.",
		"PROCEDURE DIVISION.",
		"MAIN.",
		"    COPY PROCS OF SHARED.",
		"    STOP RUN.",
	))

	assert.Equal(t, []types.CopyDirective{
		{Name: "CUSTREC", Line: 5, Column: 8},
		{Name: "PROCS", Library: "SHARED", Line: 9, Column: 12},
	}, result.Program.Copybooks)
	assert.Len(t, firstStatements(t, result), 1)
}

func TestParse_Declaratives(t *testing.T) {
	result := parse(t, src(
		"IDENTIFICATION DIVISION.",
		"PROGRAM-ID. DEMO.",
		"PROCEDURE DIVISION USING WS-A BY VALUE WS-B.",
		"DECLARATIVES.",
		"FILE-ERR SECTION.",
		"    USE AFTER STANDARD ERROR PROCEDURE ON CUST-FILE.",
		"END DECLARATIVES.",
		"MAIN SECTION.",
		"FIRST-PARA.",
		"    STOP RUN.",
	))

	proc := result.Program.Procedure
	assert.Equal(t, []types.Parameter{
		{Name: "WS-A", Line: 3, Column: 33},
		{Name: "WS-B", ByValue: true, Line: 3, Column: 47},
	}, proc.Using)

	require.Len(t, proc.Declaratives, 1)
	decl := proc.Declaratives[0]
	assert.Equal(t, "FILE-ERR", decl.Name)
	require.Len(t, decl.Paragraphs, 1)
	require.Len(t, decl.Paragraphs[0].Statements, 1)
	use := decl.Paragraphs[0].Statements[0]
	assert.Equal(t, types.StmtUse, use.Kind)
	assert.Contains(t, use.Operands, "CUST-FILE")

	require.Len(t, proc.Sections, 1)
	assert.Equal(t, "MAIN", proc.Sections[0].Name)
	assert.Equal(t, "FIRST-PARA", proc.Sections[0].Paragraphs[0].Name)
}

func TestParse_NestingLimit(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MaxNestingDepth = 2
	source := program(
		"MAIN.",
		"    IF A = 1",
		"      IF B = 2",
		"        IF C = 3",
		"          DISPLAY C.",
	)

	_, err := New(cfg).Parse(source)
	require.Error(t, err)
	assert.True(t, errors.Is(err, types.ErrNestingTooDeep))

	_, err = New(DefaultConfig()).Parse(source)
	assert.NoError(t, err)
}

func TestParse_ConcurrentUse(t *testing.T) {
	p := New(DefaultConfig())
	source := program("MAIN.", `    DISPLAY "HI".`)

	done := make(chan *types.ParseResult, 8)
	for i := 0; i < cap(done); i++ {
		go func() {
			result, err := p.Parse(source)
			if err != nil {
				done <- nil
				return
			}
			done <- result
		}()
	}
	want := parse(t, source)
	for i := 0; i < cap(done); i++ {
		assert.Equal(t, want, <-done)
	}
}

func TestParse_RemarksList(t *testing.T) {
	result := parse(t, src(
		"IDENTIFICATION DIVISION.",
		"PROGRAM-ID. DEMO.",
		"REMARKS. NIGHTLY BATCH RUN.",
		"REMARKS. READS THE LEDGER.",
		"PROCEDURE DIVISION.",
		"    STOP RUN.",
	))

	assert.Equal(t, []string{"NIGHTLY BATCH RUN", "READS THE LEDGER"},
		result.Program.Identification.Remarks)
}

func TestParse_ConditionAfterLevel77(t *testing.T) {
	result := parse(t, src(
		"IDENTIFICATION DIVISION.",
		"PROGRAM-ID. DEMO.",
		"DATA DIVISION.",
		"WORKING-STORAGE SECTION.",
		"01 REC.",
		"   05 FIELD PIC X.",
		"77 EOF-FLAG PIC X.",
		"   88 AT-EOF VALUE 'Y'.",
		"PROCEDURE DIVISION.",
		"    STOP RUN.",
	))

	sec := result.Program.Data.Section(types.SectionWorkingStorage)
	require.NotNil(t, sec)
	require.Len(t, sec.Items, 2)

	rec, flag := sec.Items[0], sec.Items[1]
	assert.Equal(t, "EOF-FLAG", flag.Name)
	assert.Empty(t, flag.Children)

	require.Len(t, rec.Children, 1)
	field := rec.Children[0]
	require.Len(t, field.Children, 1)
	assert.Equal(t, "AT-EOF", field.Children[0].Name)
	assert.Equal(t, "FIELD", field.Children[0].Parent)
}
