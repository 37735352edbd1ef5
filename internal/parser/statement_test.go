package parser

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/cobolcontext-mcp/pkg/types"
)

func TestStatements_IfElse(t *testing.T) {
	result := parse(t, program(
		"MAIN.",
		"    IF A = 1",
		`        DISPLAY "ONE"`,
		"    ELSE",
		"        IF B > 2",
		`            DISPLAY "TWO"`,
		"        ELSE",
		`            DISPLAY "OTHER"`,
		"        END-IF",
		"    END-IF.",
	))

	stmts := firstStatements(t, result)
	require.Len(t, stmts, 1)
	outer := stmts[0]
	assert.Equal(t, types.StmtIf, outer.Kind)
	assert.Equal(t, &types.Condition{Left: "A", Operator: "=", Right: "1"}, outer.Condition)
	require.Len(t, outer.Nested, 1)
	assert.Equal(t, []string{`"ONE"`}, outer.Nested[0].Operands)

	require.Len(t, outer.Else, 1)
	inner := outer.Else[0]
	assert.Equal(t, types.StmtIf, inner.Kind)
	require.Len(t, inner.Nested, 1)
	require.Len(t, inner.Else, 1)
	assert.Equal(t, []string{`"OTHER"`}, inner.Else[0].Operands)
	assert.Empty(t, result.Diagnostics)
}

func TestStatements_PeriodClosesOpenIfs(t *testing.T) {
	result := parse(t, program(
		"MAIN.",
		"    IF A = 1 IF B = 2 MOVE 1 TO C ELSE MOVE 2 TO C.",
		"    MOVE 3 TO C.",
	))

	stmts := firstStatements(t, result)
	require.Len(t, stmts, 2)
	outer := stmts[0]
	require.Len(t, outer.Nested, 1)
	assert.Empty(t, outer.Else)

	inner := outer.Nested[0]
	require.Len(t, inner.Else, 1, "ELSE binds to the innermost IF")
	assert.Equal(t, []string{"2"}, inner.Else[0].Operands)
	assert.Equal(t, types.StmtMove, stmts[1].Kind)
}

func TestStatements_Perform(t *testing.T) {
	result := parse(t, program(
		"MAIN.",
		"    PERFORM P1",
		"    PERFORM P1 THRU P2",
		"    PERFORM P1 3 TIMES",
		"    PERFORM P2 UNTIL X > 5",
		"    PERFORM P1 VARYING I FROM 1 BY 1 UNTIL I > 10",
		"    PERFORM WITH TEST AFTER UNTIL DONE-FLAG",
		`        DISPLAY "LOOP"`,
		"    END-PERFORM",
		"    PERFORM 5 TIMES",
		"        ADD 1 TO N",
		"    END-PERFORM.",
		"P1.",
		"    EXIT.",
		"P2.",
		"    EXIT.",
	))

	stmts := firstStatements(t, result)
	require.Len(t, stmts, 7)

	assert.Equal(t, []string{"P1"}, stmts[0].ProcedureRefs)
	assert.Empty(t, stmts[0].Nested)

	assert.Equal(t, []string{"P1", "P2"}, stmts[1].ProcedureRefs)

	assert.Equal(t, "3", stmts[2].Times)

	assert.Equal(t, &types.Condition{Left: "X", Operator: ">", Right: "5"}, stmts[3].Condition)

	assert.Equal(t, []string{"VARYING I FROM 1 BY 1"}, stmts[4].Operands)
	assert.Equal(t, &types.Condition{Left: "I", Operator: ">", Right: "10"}, stmts[4].Condition)

	inline := stmts[5]
	assert.Empty(t, inline.ProcedureRefs)
	assert.Equal(t, []string{"TEST AFTER"}, inline.Operands)
	assert.Equal(t, &types.Condition{Left: "DONE-FLAG"}, inline.Condition)
	require.Len(t, inline.Nested, 1)
	assert.Equal(t, types.StmtDisplay, inline.Nested[0].Kind)

	times := stmts[6]
	assert.Equal(t, "5", times.Times)
	require.Len(t, times.Nested, 1)
	assert.Equal(t, types.StmtAdd, times.Nested[0].Kind)

	assert.Empty(t, withSeverity(result.Diagnostics, types.SeverityWarning))
}

func TestStatements_InlinePerformWithoutTerminator(t *testing.T) {
	result := parse(t, program(
		"MAIN.",
		`    PERFORM UNTIL X = 1 DISPLAY "A".`,
	))

	warnings := withSeverity(result.Diagnostics, types.SeverityWarning)
	require.Len(t, warnings, 1)
	assert.Equal(t, types.CodeMissingTerminator, warnings[0].Code)
}

func TestStatements_Targets(t *testing.T) {
	tests := []struct {
		name     string
		line     string
		kind     types.StatementKind
		operands []string
		targets  []string
	}{
		{"move", "MOVE A TO B C", types.StmtMove, []string{"A"}, []string{"B", "C"}},
		{"move subscript", `MOVE "X" TO T(I, 2)`, types.StmtMove, []string{`"X"`}, []string{"T(I, 2)"}},
		{"compute", "COMPUTE X ROUNDED = A + B * 2", types.StmtCompute, []string{"A", "+", "B", "*", "2"}, []string{"X"}},
		{"add to", "ADD 1 TO CNT", types.StmtAdd, []string{"1", "TO", "CNT"}, []string{"CNT"}},
		{"add giving", "ADD A B GIVING C ROUNDED", types.StmtAdd, []string{"A", "B", "GIVING", "C", "ROUNDED"}, []string{"C"}},
		{"subtract", "SUBTRACT 1 FROM CNT", types.StmtSubtract, []string{"1", "FROM", "CNT"}, []string{"CNT"}},
		{"divide remainder", "DIVIDE A INTO B GIVING Q REMAINDER R", types.StmtDivide,
			[]string{"A", "INTO", "B", "GIVING", "Q", "REMAINDER", "R"}, []string{"Q", "R"}},
		{"initialize", "INITIALIZE REC REPLACING NUMERIC BY 0", types.StmtInitialize,
			[]string{"REC", "REPLACING", "NUMERIC", "BY", "0"}, []string{"REC"}},
		{"accept", "ACCEPT WS-DATE FROM DATE", types.StmtAccept, []string{"WS-DATE", "FROM", "DATE"}, []string{"WS-DATE"}},
		{"set", "SET IDX TO 1", types.StmtSet, []string{"IDX", "TO", "1"}, []string{"IDX"}},
		{"string into", `STRING A DELIMITED BY SIZE INTO B`, types.StmtString,
			[]string{"A", "DELIMITED", "BY", "SIZE", "INTO", "B"}, []string{"B"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := parse(t, program("MAIN.", "    "+tt.line+"."))
			stmts := firstStatements(t, result)
			require.Len(t, stmts, 1)
			assert.Equal(t, tt.kind, stmts[0].Kind)
			assert.Equal(t, tt.operands, stmts[0].Operands)
			assert.Equal(t, tt.targets, stmts[0].Targets)
		})
	}
}

func TestStatements_ProcedureRefs(t *testing.T) {
	result := parse(t, program(
		"MAIN.",
		"    GO TO P1 P2 DEPENDING ON X",
		"    ALTER P1 TO PROCEED TO P2",
		"    SORT SORT-FILE ON ASCENDING KEY K",
		"        INPUT PROCEDURE IS P1 THRU P2",
		"        OUTPUT PROCEDURE P2.",
		"P1.",
		"    EXIT.",
		"P2.",
		"    EXIT.",
	))

	stmts := firstStatements(t, result)
	require.Len(t, stmts, 3)
	assert.Equal(t, types.StmtGoTo, stmts[0].Kind)
	assert.Equal(t, []string{"P1", "P2"}, stmts[0].ProcedureRefs)
	assert.Equal(t, []string{"X"}, stmts[0].Operands)
	assert.Equal(t, []string{"P1", "P2"}, stmts[1].ProcedureRefs)
	assert.Equal(t, []string{"P1", "P2", "P2"}, stmts[2].ProcedureRefs)
	assert.Empty(t, withSeverity(result.Diagnostics, types.SeverityWarning))
}

func TestStatements_Handlers(t *testing.T) {
	result := parse(t, program(
		"MAIN.",
		"    READ CUST-FILE INTO WS-REC",
		"        AT END MOVE 1 TO EOF-SW",
		"        NOT AT END ADD 1 TO CNT",
		"    END-READ",
		"    ADD A TO B ON SIZE ERROR DISPLAY 'OVER' END-ADD",
		"    CALL 'SUB1' USING A ON EXCEPTION DISPLAY 'NO SUB1' END-CALL.",
	))

	stmts := firstStatements(t, result)
	require.Len(t, stmts, 3)

	read := stmts[0]
	assert.Equal(t, types.StmtRead, read.Kind)
	assert.Equal(t, []string{"WS-REC"}, read.Targets)
	require.Len(t, read.Handlers, 2)
	assert.Equal(t, "AT END", read.Handlers[0].Phrase)
	require.Len(t, read.Handlers[0].Statements, 1)
	assert.Equal(t, types.StmtMove, read.Handlers[0].Statements[0].Kind)
	assert.Equal(t, "NOT AT END", read.Handlers[1].Phrase)
	require.Len(t, read.Handlers[1].Statements, 1)
	assert.Equal(t, types.StmtAdd, read.Handlers[1].Statements[0].Kind)

	require.Len(t, stmts[1].Handlers, 1)
	assert.Equal(t, "ON SIZE ERROR", stmts[1].Handlers[0].Phrase)

	require.Len(t, stmts[2].Handlers, 1)
	assert.Equal(t, "ON EXCEPTION", stmts[2].Handlers[0].Phrase)
	assert.Equal(t, []string{"'SUB1'", "USING", "A"}, stmts[2].Operands)
}

func TestStatements_Evaluate(t *testing.T) {
	result := parse(t, program(
		"MAIN.",
		"    EVALUATE TRUE",
		"        WHEN A > 1",
		`            DISPLAY "BIG"`,
		"        WHEN OTHER",
		`            DISPLAY "SMALL"`,
		"    END-EVALUATE",
		"    EVALUATE CODE-X ALSO FLAG",
		"        WHEN 1 ALSO 'Y'",
		"        WHEN 2 THRU 5 ALSO ANY",
		"            CONTINUE",
		"    END-EVALUATE.",
	))

	stmts := firstStatements(t, result)
	require.Len(t, stmts, 2)

	ev := stmts[0]
	assert.Equal(t, []string{"TRUE"}, ev.Operands)
	require.Len(t, ev.Branches, 2)
	assert.Equal(t, &types.Condition{Left: "A", Operator: ">", Right: "1"}, ev.Branches[0].Condition)
	require.Len(t, ev.Branches[0].Statements, 1)
	assert.True(t, ev.Branches[1].Other)
	require.Len(t, ev.Branches[1].Statements, 1)

	sel := stmts[1]
	assert.Equal(t, []string{"CODE-X", "ALSO", "FLAG"}, sel.Operands)
	require.Len(t, sel.Branches, 2)
	assert.Equal(t, []string{"1", "ALSO", "'Y'"}, sel.Branches[0].Objects)
	assert.Empty(t, sel.Branches[0].Statements)
	assert.Equal(t, []string{"2", "THRU", "5", "ALSO", "ANY"}, sel.Branches[1].Objects)
	require.Len(t, sel.Branches[1].Statements, 1)
	assert.Equal(t, types.StmtContinue, sel.Branches[1].Statements[0].Kind)
}

func TestStatements_Search(t *testing.T) {
	result := parse(t, program(
		"MAIN.",
		"    SEARCH WS-ENTRY",
		`        AT END DISPLAY "NONE"`,
		"        WHEN WS-KEY(IDX) = 'A'",
		"            SET FOUND TO TRUE",
		"    END-SEARCH.",
	))

	stmts := firstStatements(t, result)
	require.Len(t, stmts, 1)
	search := stmts[0]
	assert.Equal(t, types.StmtSearch, search.Kind)
	require.Len(t, search.Handlers, 1)
	assert.Equal(t, "AT END", search.Handlers[0].Phrase)
	require.Len(t, search.Branches, 1)
	assert.Equal(t, &types.Condition{Left: "WS-KEY(IDX)", Operator: "=", Right: "'A'"}, search.Branches[0].Condition)
	require.Len(t, search.Branches[0].Statements, 1)
	assert.Equal(t, types.StmtSet, search.Branches[0].Statements[0].Kind)
}

func TestStatements_ExecAndExit(t *testing.T) {
	result := parse(t, program(
		"MAIN.",
		"    EXEC SQL SELECT A INTO :B FROM T END-EXEC",
		"    NEXT SENTENCE",
		"    EXIT PROGRAM.",
	))

	stmts := firstStatements(t, result)
	require.Len(t, stmts, 3)
	assert.Equal(t, types.StmtExec, stmts[0].Kind)
	assert.Equal(t, []string{"SQL", "SELECT", "A", "INTO", ":", "B", "FROM", "T"}, stmts[0].Operands)
	assert.Equal(t, types.StmtNextSentence, stmts[1].Kind)
	assert.Equal(t, []string{"PROGRAM"}, stmts[2].Operands)
}

func TestStatements_UnknownAndStray(t *testing.T) {
	result := parse(t, program(
		"MAIN.",
		"    FROBNICATE X Y",
		`    DISPLAY "A"`,
		"    END-IF.",
	))

	stmts := firstStatements(t, result)
	require.Len(t, stmts, 1)
	assert.Equal(t, types.StmtDisplay, stmts[0].Kind)

	require.Len(t, result.Diagnostics, 2)
	assert.Equal(t, types.SeverityInfo, result.Diagnostics[0].Severity)
	assert.Equal(t, types.CodeUnknownStatement, result.Diagnostics[0].Code)
	assert.Equal(t, types.SeverityWarning, result.Diagnostics[1].Severity)
	assert.Equal(t, types.CodeUnmatchedEnd, result.Diagnostics[1].Code)
}

func TestStatements_SectionsAndParagraphs(t *testing.T) {
	result := parse(t, program(
		`    DISPLAY "START".`,
		"100-INIT.",
		"    CONTINUE.",
		"MAIN-LOGIC SECTION.",
		"0100.",
		"    STOP RUN.",
		"CLEANUP SECTION 50.",
		"    EXIT.",
	))

	proc := result.Program.Procedure
	require.Len(t, proc.Sections, 3)

	implicit := proc.Sections[0]
	assert.True(t, implicit.Implicit)
	require.Len(t, implicit.Paragraphs, 2)
	assert.True(t, implicit.Paragraphs[0].Implicit)
	assert.Equal(t, "100-INIT", implicit.Paragraphs[1].Name)

	assert.Equal(t, "MAIN-LOGIC", proc.Sections[1].Name)
	require.Len(t, proc.Sections[1].Paragraphs, 1)
	assert.Equal(t, "0100", proc.Sections[1].Paragraphs[0].Name)

	cleanup := proc.Sections[2]
	assert.Equal(t, "50", cleanup.Priority)
	require.Len(t, cleanup.Paragraphs, 1)
	assert.True(t, cleanup.Paragraphs[0].Implicit)
}
