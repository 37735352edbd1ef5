package parser

import (
	"strconv"

	"github.com/dshills/cobolcontext-mcp/pkg/types"
)

var environmentParagraphs = []string{
	"SOURCE-COMPUTER", "OBJECT-COMPUTER", "SPECIAL-NAMES", "FILE-CONTROL", "I-O-CONTROL",
}

// parseEnvironment parses the ENVIRONMENT DIVISION body. Each paragraph is
// read as a run of tokens and then interpreted clause by clause.
func (pc *parseContext) parseEnvironment() error {
	cur := pc.cur
	if _, err := cur.Expect(types.TokenPeriod); err != nil {
		return err
	}
	env := &types.EnvironmentInfo{}
	pc.prog.Environment = env

	for !cur.AtEOF() && !pc.atDivisionHeader() {
		tok := cur.Peek()
		switch {
		case tok.IsKeyword("CONFIGURATION", "INPUT-OUTPUT") && cur.PeekAt(1).IsKeyword("SECTION"):
			cur.Advance()
			cur.Advance()
			cur.Accept(types.TokenPeriod, "")
		case tok.IsKeyword("COPY"):
			pc.consumeCopy()
		case tok.IsKeyword("SOURCE-COMPUTER"):
			env.SourceComputer = parseSourceComputer(pc.paragraphTokens())
		case tok.IsKeyword("OBJECT-COMPUTER"):
			env.ObjectComputer = parseObjectComputer(pc.paragraphTokens())
		case tok.IsKeyword("SPECIAL-NAMES"):
			env.SpecialNames = parseSpecialNames(pc.paragraphTokens())
		case tok.IsKeyword("FILE-CONTROL"):
			cur.Advance()
			cur.Accept(types.TokenPeriod, "")
			pc.parseFileControl(env)
		case tok.IsKeyword("I-O-CONTROL"):
			env.IOControl = parseIOControl(pc.paragraphTokens())
		default:
			pc.diags.Warnf(types.CodeSkippedTokens, tok.Location(),
				"unrecognized ENVIRONMENT DIVISION entry %q was ignored", tok.Text)
			pc.skipSentence()
		}
	}
	return nil
}

func (pc *parseContext) atEnvironmentBoundary() bool {
	tok := pc.cur.Peek()
	return tok.IsKeyword(environmentParagraphs...) ||
		(tok.IsKeyword("CONFIGURATION", "INPUT-OUTPUT") && pc.cur.PeekAt(1).IsKeyword("SECTION")) ||
		pc.atDivisionHeader()
}

// paragraphTokens consumes a paragraph name and returns the tokens of its
// body, without periods.
func (pc *parseContext) paragraphTokens() []types.Token {
	pc.cur.Advance()
	pc.cur.Accept(types.TokenPeriod, "")
	var toks []types.Token
	for !pc.cur.AtEOF() && !pc.atEnvironmentBoundary() {
		tok := pc.cur.Advance()
		if tok.Kind != types.TokenPeriod {
			toks = append(toks, tok)
		}
	}
	return toks
}

func parseSourceComputer(toks []types.Token) *types.SourceComputer {
	sc := &types.SourceComputer{}
	for i, tok := range toks {
		if i == 0 && !tok.IsKeyword("WITH", "DEBUGGING") {
			sc.Name = tok.Text
		}
		if tok.IsKeyword("DEBUGGING") {
			sc.DebuggingMode = true
		}
	}
	return sc
}

func parseObjectComputer(toks []types.Token) *types.ObjectComputer {
	oc := &types.ObjectComputer{}
	c := clauseReader{toks: toks}
	if !c.done() {
		oc.Name = c.next().Text
	}
	for !c.done() {
		tok := c.next()
		switch {
		case tok.IsKeyword("MEMORY"):
			c.skip("SIZE")
			if !c.done() {
				size := c.next().Text
				if unit := c.peek(); unit.IsKeyword("WORDS", "CHARACTERS") || unit.Text == "MODULES" {
					size += " " + c.next().Text
				}
				oc.MemorySize = size
			}
		case tok.IsKeyword("SEQUENCE"):
			c.skip("IS")
			if !c.done() {
				oc.CollatingSequence = c.next().Text
			}
		case tok.IsKeyword("SEGMENT-LIMIT"):
			c.skip("IS")
			if !c.done() {
				if n, err := strconv.Atoi(c.next().Text); err == nil {
					oc.SegmentLimit = &n
				}
			}
		}
	}
	return oc
}

func parseSpecialNames(toks []types.Token) *types.SpecialNames {
	sn := &types.SpecialNames{}
	c := clauseReader{toks: toks}
	for !c.done() {
		tok := c.next()
		switch {
		case tok.IsKeyword("CURRENCY"):
			c.skip("SIGN", "IS")
			if !c.done() {
				sn.CurrencySign = c.next().Value()
			}
		case tok.IsKeyword("DECIMAL-POINT"):
			c.skip("IS")
			if c.peek().IsKeyword("COMMA") {
				c.next()
				sn.DecimalPointComma = true
			}
		case tok.IsKeyword("CLASS"):
			def := types.ClassDefinition{}
			if !c.done() {
				def.Name = c.next().Text
			}
			c.skip("IS")
			for !c.done() && !atSpecialNamesClause(c) {
				def.Values = append(def.Values, c.next().Text)
			}
			sn.Classes = append(sn.Classes, def)
		case tok.IsKeyword("SYMBOLIC"):
			c.skip("CHARACTERS")
			for !c.done() && !atSpecialNamesClause(c) {
				name := c.next()
				c.skip("IS", "ARE")
				if c.done() {
					break
				}
				sn.SymbolicCharacters = append(sn.SymbolicCharacters, types.SymbolicCharacter{
					Name:     name.Text,
					Position: c.next().Text,
				})
			}
		case tok.IsKeyword("ALPHABET"):
			for !c.done() && !atSpecialNamesClause(c) {
				c.next()
			}
		case tok.IsWord() && c.peek().IsKeyword("IS"):
			c.next()
			if !c.done() {
				sn.Mnemonics = append(sn.Mnemonics, types.Mnemonic{
					Implementor: tok.Text,
					Name:        c.next().Text,
				})
			}
		}
	}
	return sn
}

func atSpecialNamesClause(c clauseReader) bool {
	tok := c.peek()
	return tok.IsKeyword("CURRENCY", "DECIMAL-POINT", "CLASS", "SYMBOLIC", "ALPHABET") ||
		(tok.IsWord() && c.peekAt(1).IsKeyword("IS"))
}

// parseFileControl reads SELECT entries up to the next paragraph
func (pc *parseContext) parseFileControl(env *types.EnvironmentInfo) {
	cur := pc.cur
	for !cur.AtEOF() && !pc.atEnvironmentBoundary() {
		tok := cur.Peek()
		switch {
		case tok.IsKeyword("SELECT"):
			var toks []types.Token
			cur.Advance()
			for !cur.AtEOF() && !pc.atEnvironmentBoundary() && !cur.Peek().IsKeyword("SELECT") {
				t := cur.Advance()
				if t.Kind == types.TokenPeriod {
					break
				}
				toks = append(toks, t)
			}
			env.FileControl = append(env.FileControl, parseSelect(tok, toks))
		case tok.IsKeyword("COPY"):
			pc.consumeCopy()
		default:
			pc.diags.Warnf(types.CodeSkippedTokens, tok.Location(),
				"unrecognized FILE-CONTROL entry %q was ignored", tok.Text)
			pc.skipSentence()
		}
	}
}

func parseSelect(sel types.Token, toks []types.Token) types.FileControlEntry {
	entry := types.FileControlEntry{
		Organization: types.OrganizationSequential,
		AccessMode:   types.AccessSequential,
		Line:         sel.Line,
		Column:       sel.Column,
	}
	c := clauseReader{toks: toks}
	if c.peek().IsKeyword("OPTIONAL") {
		c.next()
		entry.Optional = true
	}
	if !c.done() {
		entry.FileName = c.next().Text
	}
	for !c.done() {
		tok := c.next()
		switch {
		case tok.IsKeyword("ASSIGN"):
			c.skip("TO", "USING")
			if !c.done() {
				entry.AssignTo = c.next().Value()
			}
		case tok.IsKeyword("ORGANIZATION"):
			c.skip("IS")
			if c.peek().IsKeyword("LINE") {
				c.next()
				c.skip("SEQUENTIAL")
				entry.Organization = types.OrganizationLineSequential
			} else if !c.done() {
				entry.Organization = c.next().Text
			}
		case tok.IsKeyword("INDEXED", "RELATIVE") && !c.peek().IsKeyword("KEY"):
			entry.Organization = tok.Text
		case tok.IsKeyword("ACCESS"):
			c.skip("MODE", "IS")
			if !c.done() {
				entry.AccessMode = c.next().Text
			}
		case tok.IsKeyword("RECORD"):
			c.skip("KEY", "IS")
			if !c.done() {
				entry.RecordKey = c.next().Text
			}
		case tok.IsKeyword("ALTERNATE"):
			c.skip("RECORD", "KEY", "IS")
			if c.done() {
				break
			}
			key := types.AlternateKey{Name: c.next().Text}
			if c.peek().IsKeyword("WITH", "DUPLICATES") {
				c.skip("WITH", "DUPLICATES")
				key.Duplicates = true
			}
			entry.AlternateKeys = append(entry.AlternateKeys, key)
		case tok.IsKeyword("RELATIVE"):
			c.skip("KEY", "IS")
			if !c.done() {
				entry.RelativeKey = c.next().Text
			}
		case tok.IsKeyword("STATUS"):
			c.skip("IS")
			if !c.done() {
				entry.FileStatus = c.next().Text
			}
		}
	}
	return entry
}

func parseIOControl(toks []types.Token) *types.IOControl {
	ioc := &types.IOControl{}
	c := clauseReader{toks: toks}
	atClause := func() bool {
		return c.peek().IsKeyword("SAME", "MULTIPLE", "APPLY") || c.peek().Text == "RERUN"
	}
	names := func() []string {
		var out []string
		for !c.done() && !atClause() {
			tok := c.next()
			if tok.Kind == types.TokenIdentifier {
				out = append(out, tok.Text)
			}
		}
		return out
	}
	for !c.done() {
		tok := c.next()
		switch {
		case tok.IsKeyword("SAME"):
			c.skip("RECORD", "SORT", "SORT-MERGE", "AREA", "FOR")
			ioc.SameAreas = append(ioc.SameAreas, names())
		case tok.IsKeyword("MULTIPLE"):
			c.skip("FILE", "TAPE", "CONTAINS")
			ioc.MultipleFileTapes = append(ioc.MultipleFileTapes, names()...)
		case tok.IsKeyword("APPLY"):
			c.skip("WRITE-ONLY", "ON")
			ioc.ApplyWriteOnly = append(ioc.ApplyWriteOnly, names()...)
		default:
			names()
		}
	}
	return ioc
}

// clauseReader walks an already collected token run
type clauseReader struct {
	toks []types.Token
	pos  int
}

func (c *clauseReader) done() bool {
	return c.pos >= len(c.toks)
}

func (c *clauseReader) peek() types.Token {
	return c.peekAt(0)
}

func (c *clauseReader) peekAt(n int) types.Token {
	if i := c.pos + n; i < len(c.toks) {
		return c.toks[i]
	}
	return types.Token{Kind: types.TokenEOF}
}

func (c *clauseReader) next() types.Token {
	tok := c.peek()
	if c.pos < len(c.toks) {
		c.pos++
	}
	return tok
}

// skip consumes any run of the given optional words
func (c *clauseReader) skip(words ...string) {
	for !c.done() && c.peek().IsKeyword(words...) {
		c.pos++
	}
}
