package lexer

import (
	"strings"

	"github.com/dshills/cobolcontext-mcp/pkg/types"
)

const (
	// DefaultCodeAreaEnd is the last column of Area B in fixed format
	DefaultCodeAreaEnd = 72

	sequenceAreaWidth = 6
	indicatorColumn   = 7
	codeAreaStart     = 8
)

// Config controls fixed-format line handling
type Config struct {
	// CodeAreaEnd is the last column scanned on each line. Columns after
	// it (the identification area) are ignored. Zero disables truncation.
	CodeAreaEnd int

	// DebugLines scans lines with D in the indicator column as code
	// instead of treating them as comments.
	DebugLines bool
}

// DefaultConfig returns the standard fixed-format settings
func DefaultConfig() Config {
	return Config{CodeAreaEnd: DefaultCodeAreaEnd}
}

// Scanner turns fixed-format COBOL source into tokens. A Scanner holds
// only configuration and may be shared between goroutines.
type Scanner struct {
	cfg Config
}

// New creates a Scanner. A negative CodeAreaEnd is treated as the default.
func New(cfg Config) *Scanner {
	if cfg.CodeAreaEnd < 0 {
		cfg.CodeAreaEnd = DefaultCodeAreaEnd
	}
	return &Scanner{cfg: cfg}
}

// Scan tokenizes source. The only fatal condition is a literal that is not
// closed on its line or on a following continuation line.
func (s *Scanner) Scan(source string) ([]types.Token, error) {
	st := &scanState{cfg: s.cfg}
	lines := strings.Split(source, "\n")
	for i, raw := range lines {
		if err := st.line(i+1, strings.TrimRight(raw, "\r")); err != nil {
			return nil, err
		}
	}
	if st.literal != nil {
		return nil, st.literal.unterminated()
	}
	return st.tokens, nil
}

// scanState is the per-call state of a scan
type scanState struct {
	cfg    Config
	tokens []types.Token

	// literal is a literal left open at the end of a code area, waiting
	// for a continuation line.
	literal *openLiteral

	// wordAtEnd is set when the last token is a word that touched the end
	// of its code area and may be continued.
	wordAtEnd bool

	// picture is set after PIC or PICTURE until the character-string has
	// been read. An intervening IS keeps it set.
	picture bool
}

type openLiteral struct {
	text   strings.Builder
	quote  byte
	line   int
	column int
}

func (l *openLiteral) unterminated() error {
	return types.NewParseError(types.StageScanning, types.ErrUnterminatedLiteral, l.line, l.column,
		"unterminated literal starting at line %d, column %d", l.line, l.column)
}

func (st *scanState) line(lineNo int, raw string) error {
	if len(raw) <= sequenceAreaWidth {
		return nil
	}
	indicator := raw[indicatorColumn-1]
	switch indicator {
	case '*', '/':
		return nil
	case 'D', 'd':
		if !st.cfg.DebugLines {
			return nil
		}
	}

	code := ""
	if len(raw) > indicatorColumn {
		end := len(raw)
		if st.cfg.CodeAreaEnd > 0 && end > st.cfg.CodeAreaEnd {
			end = st.cfg.CodeAreaEnd
		}
		if end > indicatorColumn {
			code = raw[indicatorColumn:end]
		}
	}

	i := 0
	if indicator == '-' {
		var err error
		i, err = st.continuation(lineNo, code)
		if err != nil {
			return err
		}
	} else {
		if st.literal != nil {
			return st.literal.unterminated()
		}
		st.wordAtEnd = false
	}
	return st.code(lineNo, code, i)
}

// continuation resumes an open literal or word and returns the offset in
// code where normal scanning continues.
func (st *scanState) continuation(lineNo int, code string) (int, error) {
	i := skipBlanks(code, 0)
	if st.literal != nil {
		if i >= len(code) || (code[i] != '"' && code[i] != '\'') {
			return 0, st.literal.unterminated()
		}
		lit := st.literal
		st.literal = nil
		return st.literalBody(lit, lineNo, code, i+1), nil
	}
	if st.wordAtEnd && i < len(code) && isWordStart(code[i]) {
		j := scanWord(code, i)
		last := &st.tokens[len(st.tokens)-1]
		last.Text += strings.ToUpper(code[i:j])
		last.Kind = classifyWord(last.Text)
		st.wordAtEnd = j == len(code)
		return j, nil
	}
	st.wordAtEnd = false
	return i, nil
}

func (st *scanState) code(lineNo int, code string, i int) error {
	for i < len(code) {
		c := code[i]
		col := codeAreaStart + i
		switch {
		case c == ' ' || c == '\t':
			i++
		case c == '"' || c == '\'':
			i = st.startLiteral(lineNo, code, i, i)
		case st.picture:
			i = st.pictureString(lineNo, code, i)
		case isLiteralPrefix(code, i):
			i = st.startLiteral(lineNo, code, i, i+1)
		case st.signedNumberAt(code, i) || isDigit(c) || (c == '.' && startsFraction(code, i)):
			i = st.number(lineNo, code, i)
		case isWordStart(c):
			j := scanWord(code, i)
			text := strings.ToUpper(code[i:j])
			st.emit(classifyWord(text), text, lineNo, col)
			st.wordAtEnd = j == len(code)
			if text == "PIC" || text == "PICTURE" {
				st.picture = true
			}
			i = j
		case c == '.':
			st.emit(types.TokenPeriod, ".", lineNo, col)
			i++
		case strings.IndexByte("+-*/=<>", c) >= 0:
			st.emit(types.TokenOperator, string(c), lineNo, col)
			i++
		default:
			st.emit(types.TokenSeparator, string(c), lineNo, col)
			i++
		}
	}
	return nil
}

func (st *scanState) emit(kind types.TokenKind, text string, line, col int) {
	st.tokens = append(st.tokens, types.Token{Kind: kind, Text: text, Line: line, Column: col})
	st.wordAtEnd = false
}

// startLiteral scans a literal whose prefix starts at i and whose opening
// quote is at q.
func (st *scanState) startLiteral(lineNo int, code string, i, q int) int {
	lit := &openLiteral{quote: code[q], line: lineNo, column: codeAreaStart + i}
	lit.text.WriteString(strings.ToUpper(code[i:q]))
	lit.text.WriteByte(code[q])
	return st.literalBody(lit, lineNo, code, q+1)
}

// literalBody consumes literal content from j. If the code area ends first
// the literal is left open for a continuation line.
func (st *scanState) literalBody(lit *openLiteral, lineNo int, code string, j int) int {
	for j < len(code) {
		if code[j] != lit.quote {
			lit.text.WriteByte(code[j])
			j++
			continue
		}
		if j+1 < len(code) && code[j+1] == lit.quote {
			lit.text.WriteByte(lit.quote)
			lit.text.WriteByte(lit.quote)
			j += 2
			continue
		}
		lit.text.WriteByte(lit.quote)
		st.emit(types.TokenLiteral, lit.text.String(), lit.line, lit.column)
		return j + 1
	}
	st.literal = lit
	return j
}

// pictureString scans the character-string following PIC/PICTURE. It ends
// at a blank; a final period followed by a blank is a separator period.
func (st *scanState) pictureString(lineNo int, code string, i int) int {
	j := i
	for j < len(code) && code[j] != ' ' && code[j] != '\t' {
		j++
	}
	text := strings.ToUpper(code[i:j])
	if text == "IS" {
		st.emit(types.TokenKeyword, text, lineNo, codeAreaStart+i)
		return j
	}
	st.picture = false
	period := strings.HasSuffix(text, ".")
	if period {
		text = text[:len(text)-1]
	}
	if text != "" {
		st.emit(types.TokenIdentifier, text, lineNo, codeAreaStart+i)
	}
	if period {
		st.emit(types.TokenPeriod, ".", lineNo, codeAreaStart+j-1)
	}
	return j
}

// number scans digits with an optional leading sign and at most one
// decimal point. Digits followed by letters form a word instead, which
// covers paragraph names such as 100-MAIN.
func (st *scanState) number(lineNo int, code string, i int) int {
	j := i
	if code[j] == '+' || code[j] == '-' {
		j++
	}
	if code[j] != '.' {
		end := scanWord(code, j)
		if !allDigits(code[j:end]) {
			if j == i {
				text := strings.ToUpper(code[i:end])
				st.emit(classifyWord(text), text, lineNo, codeAreaStart+i)
				st.wordAtEnd = end == len(code)
				return end
			}
			end = j + countDigits(code[j:])
		}
		j = end
	}
	if j < len(code) && code[j] == '.' && j+1 < len(code) && isDigit(code[j+1]) {
		j++
		j += countDigits(code[j:])
	}
	st.emit(types.TokenNumber, code[i:j], lineNo, codeAreaStart+i)
	st.wordAtEnd = j == len(code)
	return j
}

// signedNumberAt reports whether a +/- at i starts a signed number rather
// than being an arithmetic operator.
func (st *scanState) signedNumberAt(code string, i int) bool {
	c := code[i]
	if c != '+' && c != '-' {
		return false
	}
	if i+1 >= len(code) || !(isDigit(code[i+1]) || (code[i+1] == '.' && i+2 < len(code) && isDigit(code[i+2]))) {
		return false
	}
	if len(st.tokens) == 0 {
		return true
	}
	prev := st.tokens[len(st.tokens)-1]
	switch prev.Kind {
	case types.TokenIdentifier, types.TokenNumber, types.TokenLiteral:
		return false
	case types.TokenSeparator:
		return prev.Text != ")"
	}
	return true
}

func classifyWord(text string) types.TokenKind {
	if allDigits(text) {
		return types.TokenNumber
	}
	if IsReserved(text) {
		return types.TokenKeyword
	}
	return types.TokenIdentifier
}

func scanWord(code string, i int) int {
	for i < len(code) && isWordChar(code[i]) {
		i++
	}
	return i
}

func skipBlanks(code string, i int) int {
	for i < len(code) && (code[i] == ' ' || code[i] == '\t') {
		i++
	}
	return i
}

// isLiteralPrefix matches X"..", N"..", Z"..", G".." and B"..".
func isLiteralPrefix(code string, i int) bool {
	if i+1 >= len(code) || (code[i+1] != '"' && code[i+1] != '\'') {
		return false
	}
	if i > 0 && isWordChar(code[i-1]) {
		return false
	}
	switch code[i] {
	case 'X', 'x', 'N', 'n', 'Z', 'z', 'G', 'g', 'B', 'b':
		return true
	}
	return false
}

func startsFraction(code string, i int) bool {
	if i+1 >= len(code) || !isDigit(code[i+1]) {
		return false
	}
	return i == 0 || code[i-1] == ' ' || code[i-1] == '('
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}

func isWordStart(c byte) bool {
	return isDigit(c) || (c >= 'A' && c <= 'Z') || (c >= 'a' && c <= 'z')
}

func isWordChar(c byte) bool {
	return isDigit(c) || (c >= 'A' && c <= 'Z') || (c >= 'a' && c <= 'z') || c == '-' || c == '_'
}

func allDigits(s string) bool {
	if s == "" {
		return false
	}
	return countDigits(s) == len(s)
}

func countDigits(s string) int {
	n := 0
	for n < len(s) && isDigit(s[n]) {
		n++
	}
	return n
}
