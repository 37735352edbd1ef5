package types

import "strings"

// TokenKind classifies a lexical token
type TokenKind string

const (
	TokenKeyword    TokenKind = "keyword"
	TokenIdentifier TokenKind = "identifier"
	TokenLiteral    TokenKind = "literal"
	TokenNumber     TokenKind = "number"
	TokenPeriod     TokenKind = "period"
	TokenSeparator  TokenKind = "separator"
	TokenOperator   TokenKind = "operator"
	TokenEOF        TokenKind = "eof"
)

// Token is a single lexeme from the code area of a source line.
// Word tokens are upper-cased; literals keep their surrounding quotes.
type Token struct {
	Kind   TokenKind `json:"kind"`
	Text   string    `json:"text"`
	Line   int       `json:"line"`
	Column int       `json:"column"`
}

// Is reports whether the token has the given kind and, when text is
// non-empty, the given text.
func (t Token) Is(kind TokenKind, text string) bool {
	if t.Kind != kind {
		return false
	}
	return text == "" || t.Text == text
}

// IsKeyword reports whether the token is one of the given reserved words.
func (t Token) IsKeyword(words ...string) bool {
	if t.Kind != TokenKeyword {
		return false
	}
	for _, w := range words {
		if t.Text == w {
			return true
		}
	}
	return false
}

// IsWord reports whether the token is a keyword or identifier.
func (t Token) IsWord() bool {
	return t.Kind == TokenKeyword || t.Kind == TokenIdentifier
}

// End returns the column just past the token on its line.
func (t Token) End() int {
	return t.Column + len(t.Text)
}

// Value returns the content of a literal without its prefix and
// delimiting quotes, with doubled quotes collapsed. Other tokens return
// their text.
func (t Token) Value() string {
	if t.Kind != TokenLiteral {
		return t.Text
	}
	open := strings.IndexAny(t.Text, `"'`)
	if open < 0 || len(t.Text)-open < 2 {
		return t.Text
	}
	q := t.Text[open : open+1]
	inner := t.Text[open+1 : len(t.Text)-1]
	return strings.ReplaceAll(inner, q+q, q)
}

// Location returns the token position as a diagnostic location.
func (t Token) Location() *Location {
	return &Location{Line: t.Line, Column: t.Column}
}
