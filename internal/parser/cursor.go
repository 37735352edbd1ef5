package parser

import (
	"fmt"

	"github.com/dshills/cobolcontext-mcp/pkg/types"
)

// Cursor walks a token slice. Parsers read tokens only through a Cursor;
// each parse call owns its own.
type Cursor struct {
	tokens []types.Token
	pos    int
	eof    types.Token
	stage  string
}

// NewCursor creates a cursor positioned at the first token
func NewCursor(tokens []types.Token) *Cursor {
	eof := types.Token{Kind: types.TokenEOF, Line: 1, Column: 1}
	if n := len(tokens); n > 0 {
		last := tokens[n-1]
		eof.Line = last.Line
		eof.Column = last.End()
	}
	return &Cursor{tokens: tokens, eof: eof}
}

// SetStage sets the stage reported by Expect failures
func (c *Cursor) SetStage(stage string) {
	c.stage = stage
}

// Stage returns the current stage
func (c *Cursor) Stage() string {
	return c.stage
}

// Peek returns the current token without consuming it
func (c *Cursor) Peek() types.Token {
	return c.PeekAt(0)
}

// PeekAt returns the token n positions ahead of the current one
func (c *Cursor) PeekAt(n int) types.Token {
	if i := c.pos + n; i >= 0 && i < len(c.tokens) {
		return c.tokens[i]
	}
	return c.eof
}

// Advance consumes and returns the current token. At the end of input it
// keeps returning the EOF token.
func (c *Cursor) Advance() types.Token {
	tok := c.Peek()
	if c.pos < len(c.tokens) {
		c.pos++
	}
	return tok
}

// AtEOF reports whether all tokens have been consumed
func (c *Cursor) AtEOF() bool {
	return c.pos >= len(c.tokens)
}

// Accept consumes the current token if it matches kind and, when non-empty,
// text.
func (c *Cursor) Accept(kind types.TokenKind, text string) bool {
	if c.Peek().Is(kind, text) {
		c.pos++
		return true
	}
	return false
}

// AcceptKeyword consumes the current token if it is one of the keywords
func (c *Cursor) AcceptKeyword(words ...string) bool {
	if c.Peek().IsKeyword(words...) {
		c.pos++
		return true
	}
	return false
}

// Expect consumes a token of the given kind or fails fatally
func (c *Cursor) Expect(kind types.TokenKind) (types.Token, error) {
	tok := c.Peek()
	if tok.Kind != kind {
		return tok, c.unexpected(tok, string(kind))
	}
	return c.Advance(), nil
}

// ExpectKeyword consumes the given keyword or fails fatally
func (c *Cursor) ExpectKeyword(word string) (types.Token, error) {
	tok := c.Peek()
	if !tok.IsKeyword(word) {
		return tok, c.unexpected(tok, word)
	}
	return c.Advance(), nil
}

func (c *Cursor) unexpected(tok types.Token, want string) error {
	return types.NewParseError(c.stage, types.ErrUnexpectedToken, tok.Line, tok.Column,
		"expected %s, found %s", want, describe(tok))
}

func describe(tok types.Token) string {
	if tok.Kind == types.TokenEOF {
		return "end of input"
	}
	return fmt.Sprintf("%s %q", tok.Kind, tok.Text)
}
