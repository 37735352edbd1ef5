package lexer

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/cobolcontext-mcp/pkg/types"
)

// src builds fixed-format source, prefixing each line with an empty
// sequence area and indicator column.
func src(lines ...string) string {
	out := make([]string, len(lines))
	for i, l := range lines {
		out[i] = "       " + l
	}
	return strings.Join(out, "\n")
}

func scan(t *testing.T, source string) []types.Token {
	t.Helper()
	tokens, err := New(DefaultConfig()).Scan(source)
	require.NoError(t, err)
	return tokens
}

func texts(tokens []types.Token) []string {
	out := make([]string, len(tokens))
	for i, tok := range tokens {
		out[i] = tok.Text
	}
	return out
}

func kinds(tokens []types.Token) []types.TokenKind {
	out := make([]types.TokenKind, len(tokens))
	for i, tok := range tokens {
		out[i] = tok.Kind
	}
	return out
}

func TestScanBasicStatement(t *testing.T) {
	tokens := scan(t, src("move 1 to ws-total."))

	assert.Equal(t, []string{"MOVE", "1", "TO", "WS-TOTAL", "."}, texts(tokens))
	assert.Equal(t, []types.TokenKind{
		types.TokenKeyword, types.TokenNumber, types.TokenKeyword,
		types.TokenIdentifier, types.TokenPeriod,
	}, kinds(tokens))

	assert.Equal(t, 1, tokens[0].Line)
	assert.Equal(t, 8, tokens[0].Column)
	assert.Equal(t, 13, tokens[1].Column)
}

func TestScanSkipsSequenceAndComments(t *testing.T) {
	source := strings.Join([]string{
		"000100 IDENTIFICATION DIVISION.",
		"000200*THIS IS A COMMENT WITH 'QUOTE",
		"000300/PAGE EJECT",
		"",
		"00040",
		"000500 PROGRAM-ID. DEMO.",
	}, "\n")
	tokens := scan(t, source)

	assert.Equal(t, []string{"IDENTIFICATION", "DIVISION", ".", "PROGRAM-ID", ".", "DEMO", "."}, texts(tokens))
	assert.Equal(t, 6, tokens[3].Line)
}

func TestScanCodeAreaEnd(t *testing.T) {
	line := "       DISPLAY X."
	line += strings.Repeat(" ", 72-len(line)) + "SEQ00010"

	tokens := scan(t, line)
	assert.Equal(t, []string{"DISPLAY", "X", "."}, texts(tokens))

	wide, err := New(Config{CodeAreaEnd: 80}).Scan(line)
	require.NoError(t, err)
	assert.Equal(t, []string{"DISPLAY", "X", ".", "SEQ00010"}, texts(wide))

	unlimited, err := New(Config{}).Scan(line + " EXTRA")
	require.NoError(t, err)
	assert.Equal(t, "EXTRA", unlimited[len(unlimited)-1].Text)
}

func TestScanLiterals(t *testing.T) {
	tokens := scan(t, src(`DISPLAY "HI" 'IT''S' X"FF".`))

	require.Len(t, tokens, 5)
	assert.Equal(t, types.TokenLiteral, tokens[1].Kind)
	assert.Equal(t, `"HI"`, tokens[1].Text)
	assert.Equal(t, "HI", tokens[1].Value())
	assert.Equal(t, `'IT''S'`, tokens[2].Text)
	assert.Equal(t, "IT'S", tokens[2].Value())
	assert.Equal(t, `X"FF"`, tokens[3].Text)
	assert.Equal(t, "FF", tokens[3].Value())
}

func TestScanUnterminatedLiteral(t *testing.T) {
	_, err := New(DefaultConfig()).Scan(src("PROGRAM-ID. A.", "DISPLAY 'ABC"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, types.ErrUnterminatedLiteral))

	var perr *types.ParseError
	require.True(t, errors.As(err, &perr))
	assert.Equal(t, 2, perr.Line)
	assert.Equal(t, 16, perr.Column)
	assert.Equal(t, types.StageScanning, perr.Stage)
}

func TestScanContinuedLiteral(t *testing.T) {
	first := `       DISPLAY "HELLO`
	first += strings.Repeat(" ", 72-len(first))
	source := first + "\n" + `      -    "WORLD".`

	tokens := scan(t, source)
	require.Len(t, tokens, 3)
	assert.Equal(t, types.TokenLiteral, tokens[1].Kind)
	assert.Equal(t, 1, tokens[1].Line)
	assert.Equal(t, "HELLO"+strings.Repeat(" ", 72-len(`       DISPLAY "HELLO`))+"WORLD", tokens[1].Value())
	assert.Equal(t, types.TokenPeriod, tokens[2].Kind)
}

func TestScanContinuationWithoutQuoteFails(t *testing.T) {
	source := `       DISPLAY "HELLO` + "\n" + `      -    WORLD".`
	_, err := New(DefaultConfig()).Scan(source)
	require.Error(t, err)
	assert.True(t, errors.Is(err, types.ErrUnterminatedLiteral))
}

func TestScanContinuedWord(t *testing.T) {
	first := "       MOVE 1 TO WS-TOT"
	first += strings.Repeat(" ", 72-len(first)-3) + "ABC"
	source := first + "\n" + "      -    DEF."

	tokens := scan(t, source)
	assert.Equal(t, []string{"MOVE", "1", "TO", "WS-TOT", "ABCDEF", "."}, texts(tokens))
}

func TestScanNumbersAndOperators(t *testing.T) {
	tests := []struct {
		name   string
		line   string
		texts  []string
		kinds  []types.TokenKind
	}{
		{
			name:  "signed value",
			line:  "VALUE -5.",
			texts: []string{"VALUE", "-5", "."},
			kinds: []types.TokenKind{types.TokenKeyword, types.TokenNumber, types.TokenPeriod},
		},
		{
			name:  "decimal",
			line:  "VALUE 1.25.",
			texts: []string{"VALUE", "1.25", "."},
			kinds: []types.TokenKind{types.TokenKeyword, types.TokenNumber, types.TokenPeriod},
		},
		{
			name:  "subtraction",
			line:  "COMPUTE X = Y - 1",
			texts: []string{"COMPUTE", "X", "=", "Y", "-", "1"},
			kinds: []types.TokenKind{
				types.TokenKeyword, types.TokenIdentifier, types.TokenOperator,
				types.TokenIdentifier, types.TokenOperator, types.TokenNumber,
			},
		},
		{
			name:  "operand then signed",
			line:  "COMPUTE X = Y -1",
			texts: []string{"COMPUTE", "X", "=", "Y", "-", "1"},
		},
		{
			name:  "digit led paragraph name",
			line:  "100-MAIN.",
			texts: []string{"100-MAIN", "."},
			kinds: []types.TokenKind{types.TokenIdentifier, types.TokenPeriod},
		},
		{
			name:  "separators",
			line:  "MOVE A(I, J) TO B; C",
			texts: []string{"MOVE", "A", "(", "I", ",", "J", ")", "TO", "B", ";", "C"},
		},
		{
			name:  "relational",
			line:  "IF A >= B",
			texts: []string{"IF", "A", ">", "=", "B"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tokens := scan(t, src(tt.line))
			assert.Equal(t, tt.texts, texts(tokens))
			if tt.kinds != nil {
				assert.Equal(t, tt.kinds, kinds(tokens))
			}
		})
	}
}

func TestScanPictureStrings(t *testing.T) {
	tokens := scan(t, src(
		"05 WS-AMT PIC S9(5)V99 COMP-3.",
		"05 WS-EDIT PICTURE IS ZZ,ZZ9.99.",
		"05 WS-NAME PIC X(20).",
	))

	assert.Equal(t, []string{
		"05", "WS-AMT", "PIC", "S9(5)V99", "COMP-3", ".",
		"05", "WS-EDIT", "PICTURE", "IS", "ZZ,ZZ9.99", ".",
		"05", "WS-NAME", "PIC", "X(20)", ".",
	}, texts(tokens))
	assert.Equal(t, types.TokenIdentifier, tokens[3].Kind)
	assert.Equal(t, types.TokenIdentifier, tokens[10].Kind)
}

func TestScanDebugLines(t *testing.T) {
	source := "      DDISPLAY 'DEBUG'.\n       DISPLAY 'LIVE'."

	tokens := scan(t, source)
	assert.Equal(t, []string{"DISPLAY", "'LIVE'", "."}, texts(tokens))

	debug, err := New(Config{CodeAreaEnd: 72, DebugLines: true}).Scan(source)
	require.NoError(t, err)
	assert.Len(t, debug, 6)
}

func TestScanIsDeterministic(t *testing.T) {
	source := src("IDENTIFICATION DIVISION.", "PROGRAM-ID. X.", `DISPLAY "A" 1.5 -2.`)
	first := scan(t, source)
	second := scan(t, source)
	assert.Equal(t, first, second)
}
