package parser

import (
	"github.com/dshills/cobolcontext-mcp/pkg/types"
)

var identificationParagraphs = []string{
	"PROGRAM-ID", "AUTHOR", "INSTALLATION", "DATE-WRITTEN", "DATE-COMPILED", "SECURITY", "REMARKS",
}

// parseIdentification parses the IDENTIFICATION DIVISION body. The header
// tokens have been consumed.
func (pc *parseContext) parseIdentification(hdr types.Token) error {
	cur := pc.cur
	info := &pc.prog.Identification
	info.Line, info.Column = hdr.Line, hdr.Column

	if _, err := cur.Expect(types.TokenPeriod); err != nil {
		return err
	}
	if _, err := cur.ExpectKeyword("PROGRAM-ID"); err != nil {
		return err
	}
	cur.Accept(types.TokenPeriod, "")

	name := cur.Peek()
	switch name.Kind {
	case types.TokenIdentifier, types.TokenKeyword, types.TokenLiteral, types.TokenNumber:
		cur.Advance()
		pc.prog.ProgramID = name.Value()
	default:
		if _, err := cur.Expect(types.TokenIdentifier); err != nil {
			return err
		}
	}

	// [IS] {INITIAL | COMMON | RECURSIVE} [PROGRAM]
	for !cur.AtEOF() && cur.Peek().Kind != types.TokenPeriod && !pc.atIdentificationBoundary() {
		tok := cur.Advance()
		if tok.IsWord() && !tok.IsKeyword("IS", "PROGRAM") {
			info.ProgramAttributes = append(info.ProgramAttributes, tok.Text)
		}
	}
	cur.Accept(types.TokenPeriod, "")

	for !cur.AtEOF() && !pc.atDivisionHeader() {
		tok := cur.Peek()
		if !tok.IsKeyword(identificationParagraphs...) {
			start := tok
			n := 0
			for !cur.AtEOF() && !pc.atIdentificationBoundary() {
				cur.Advance()
				n++
			}
			pc.diags.Warnf(types.CodeSkippedTokens, start.Location(),
				"%d unrecognized tokens in IDENTIFICATION DIVISION were ignored", n)
			continue
		}
		cur.Advance()
		cur.Accept(types.TokenPeriod, "")
		text := pc.commentEntry()
		switch tok.Text {
		case "AUTHOR":
			info.Author = text
		case "INSTALLATION":
			info.Installation = text
		case "DATE-WRITTEN":
			info.DateWritten = text
		case "DATE-COMPILED":
			info.DateCompiled = text
		case "SECURITY":
			info.Security = text
		case "REMARKS":
			info.Remarks = append(info.Remarks, text)
		case "PROGRAM-ID":
			pc.diags.Warnf(types.CodeSkippedTokens, tok.Location(), "repeated PROGRAM-ID paragraph was ignored")
		}
	}
	return nil
}

func (pc *parseContext) atIdentificationBoundary() bool {
	return pc.cur.Peek().IsKeyword(identificationParagraphs...) || pc.atDivisionHeader()
}

// commentEntry collects free text up to the next paragraph or division.
// The closing period is dropped.
func (pc *parseContext) commentEntry() string {
	var toks []types.Token
	for !pc.cur.AtEOF() && !pc.atIdentificationBoundary() {
		toks = append(toks, pc.cur.Advance())
	}
	if n := len(toks); n > 0 && toks[n-1].Kind == types.TokenPeriod {
		toks = toks[:n-1]
	}
	return joinTokens(toks)
}
