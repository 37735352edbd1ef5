package parser

import (
	"github.com/dshills/cobolcontext-mcp/pkg/types"
)

// parseProcedure parses the PROCEDURE DIVISION from its header through
// END PROGRAM or end of input.
func (pc *parseContext) parseProcedure(hdr types.Token) error {
	cur := pc.cur
	cur.SetStage(types.StageProcedure)
	proc := &types.ProcedureDivision{Line: hdr.Line, Column: hdr.Column}
	pc.prog.Procedure = proc

	if cur.AcceptKeyword("USING") {
		proc.Using = pc.usingParameters()
	}
	if cur.AcceptKeyword("RETURNING", "GIVING") {
		proc.Returning = cur.Advance().Text
	}
	if _, err := cur.Expect(types.TokenPeriod); err != nil {
		return err
	}

	if cur.AcceptKeyword("DECLARATIVES") {
		cur.Accept(types.TokenPeriod, "")
		decl, err := pc.parseSections(true)
		if err != nil {
			return err
		}
		proc.Declaratives = decl
		if pc.atEnd("DECLARATIVES") {
			cur.Advance()
			cur.Advance()
			cur.Accept(types.TokenPeriod, "")
		} else {
			pc.diags.Warnf(types.CodeMissingTerminator, hdr.Location(),
				"DECLARATIVES is not closed by END DECLARATIVES")
		}
	}

	sections, err := pc.parseSections(false)
	if err != nil {
		return err
	}
	proc.Sections = sections

	if pc.atEnd("PROGRAM") {
		cur.Advance()
		cur.Advance()
		if tok := cur.Peek(); tok.IsWord() || tok.Kind == types.TokenLiteral {
			proc.EndProgram = cur.Advance().Value()
		}
		cur.Accept(types.TokenPeriod, "")
	}
	return nil
}

// usingParameters reads USING [BY REFERENCE|VALUE|CONTENT] name...
func (pc *parseContext) usingParameters() []types.Parameter {
	cur := pc.cur
	var params []types.Parameter
	byValue := false
	for {
		tok := cur.Peek()
		switch {
		case tok.IsKeyword("BY"), tok.Is(types.TokenSeparator, ","):
			cur.Advance()
		case tok.IsKeyword("REFERENCE", "CONTENT"):
			cur.Advance()
			byValue = false
		case tok.IsKeyword("VALUE"):
			cur.Advance()
			byValue = true
		case tok.Kind == types.TokenIdentifier:
			cur.Advance()
			params = append(params, types.Parameter{
				Name:    tok.Text,
				ByValue: byValue,
				Line:    tok.Line,
				Column:  tok.Column,
			})
		default:
			return params
		}
	}
}

// parseSections reads sections and paragraphs until END PROGRAM, the end
// of the declaratives block, or end of input. Paragraphs before the first
// section header land in an implicit section, and sentences before the
// first paragraph header in an implicit paragraph.
func (pc *parseContext) parseSections(declaratives bool) ([]types.Section, error) {
	cur := pc.cur
	var sections []types.Section

	section := func() *types.Section {
		if len(sections) == 0 {
			at := cur.Peek()
			sections = append(sections, types.Section{Implicit: true, Line: at.Line, Column: at.Column})
		}
		return &sections[len(sections)-1]
	}
	paragraph := func() *types.Paragraph {
		s := section()
		if len(s.Paragraphs) == 0 {
			at := cur.Peek()
			s.Paragraphs = append(s.Paragraphs, types.Paragraph{Implicit: true, Line: at.Line, Column: at.Column})
		}
		return &s.Paragraphs[len(s.Paragraphs)-1]
	}

	for !cur.AtEOF() && !pc.atDivisionHeader() && !pc.atEnd("PROGRAM") {
		tok := cur.Peek()
		switch {
		case pc.atEnd("DECLARATIVES"):
			if declaratives {
				return sections, nil
			}
			pc.diags.Warnf(types.CodeUnmatchedEnd, tok.Location(), "END DECLARATIVES without DECLARATIVES")
			cur.Advance()
			cur.Advance()
			cur.Accept(types.TokenPeriod, "")
		case pc.atSectionHeader():
			cur.Advance()
			cur.Advance()
			s := types.Section{Name: tok.Text, Line: tok.Line, Column: tok.Column}
			if cur.Peek().Kind == types.TokenNumber {
				s.Priority = cur.Advance().Text
			}
			cur.Accept(types.TokenPeriod, "")
			sections = append(sections, s)
		case pc.atParagraphHeader():
			cur.Advance()
			cur.Advance()
			s := section()
			s.Paragraphs = append(s.Paragraphs, types.Paragraph{Name: tok.Text, Line: tok.Line, Column: tok.Column})
		case tok.IsKeyword("COPY"):
			pc.consumeCopy()
		default:
			p := paragraph()
			stmts, err := pc.parseSentence()
			if err != nil {
				return nil, err
			}
			p.Statements = append(p.Statements, stmts...)
		}
	}
	return sections, nil
}

// atEnd reports whether the cursor is at END followed by word
func (pc *parseContext) atEnd(word string) bool {
	return pc.cur.Peek().IsKeyword("END") && pc.cur.PeekAt(1).IsKeyword(word)
}

// atParagraphHeader reports a name followed directly by a period
func (pc *parseContext) atParagraphHeader() bool {
	tok := pc.cur.Peek()
	if tok.Kind != types.TokenIdentifier && tok.Kind != types.TokenNumber {
		return false
	}
	return pc.cur.PeekAt(1).Kind == types.TokenPeriod
}

// atStructuralHeader reports a division or section header or an END
// PROGRAM/DECLARATIVES marker, any of which ends the current sentence.
func (pc *parseContext) atStructuralHeader() bool {
	return pc.atDivisionHeader() || pc.atSectionHeader() || pc.atEnd("PROGRAM") || pc.atEnd("DECLARATIVES")
}

// parseSentence parses statements up to and including the closing period.
// Stray ELSE, WHEN, scope terminators and handler phrases are reported and
// dropped.
func (pc *parseContext) parseSentence() ([]types.Statement, error) {
	cur := pc.cur
	var stmts []types.Statement
	for {
		body, err := pc.parseBody()
		if err != nil {
			return nil, err
		}
		stmts = append(stmts, body...)

		tok := cur.Peek()
		switch {
		case tok.Kind == types.TokenPeriod:
			cur.Advance()
			return stmts, nil
		case tok.Kind == types.TokenEOF, pc.atStructuralHeader():
			return stmts, nil
		case tok.IsKeyword("COPY"):
			pc.consumeCopy()
			return stmts, nil
		default:
			if _, n := pc.peekHandler(); n > 0 {
				pc.diags.Warnf(types.CodeUnmatchedEnd, tok.Location(),
					"handler phrase outside of a statement that accepts it was ignored")
				for i := 0; i < n; i++ {
					cur.Advance()
				}
				continue
			}
			pc.diags.Warnf(types.CodeUnmatchedEnd, tok.Location(), "unmatched %s was ignored", tok.Text)
			cur.Advance()
		}
	}
}
