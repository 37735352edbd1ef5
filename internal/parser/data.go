package parser

import (
	"strconv"
	"strings"

	"github.com/dshills/cobolcontext-mcp/pkg/types"
)

var dataSections = map[string]types.DataSectionKind{
	"FILE":            types.SectionFile,
	"WORKING-STORAGE": types.SectionWorkingStorage,
	"LOCAL-STORAGE":   types.SectionLocalStorage,
	"LINKAGE":         types.SectionLinkage,
	"SCREEN":          types.SectionScreen,
}

// clauseWords start a data description clause and end a VALUE list
var clauseWords = []string{
	"REDEFINES", "PIC", "PICTURE", "USAGE", "VALUE", "VALUES", "OCCURS",
	"SYNC", "SYNCHRONIZED", "JUST", "JUSTIFIED", "BLANK", "SIGN",
	"EXTERNAL", "GLOBAL", "RENAMES", "LEADING", "TRAILING",
	"DISPLAY", "BINARY", "COMP", "COMP-1", "COMP-2", "COMP-3", "COMP-4", "COMP-5",
	"COMPUTATIONAL", "COMPUTATIONAL-1", "COMPUTATIONAL-2", "COMPUTATIONAL-3",
	"COMPUTATIONAL-4", "COMPUTATIONAL-5", "PACKED-DECIMAL", "INDEX", "POINTER", "NATIONAL",
}

// parseData parses the DATA DIVISION body
func (pc *parseContext) parseData() error {
	cur := pc.cur
	if _, err := cur.Expect(types.TokenPeriod); err != nil {
		return err
	}
	data := &types.DataDivision{}
	pc.prog.Data = data

	for !cur.AtEOF() && !pc.atDivisionHeader() {
		tok := cur.Peek()
		switch {
		case pc.atDataSectionHeader():
			cur.Advance()
			cur.Advance()
			cur.Accept(types.TokenPeriod, "")
			kind, ok := dataSections[tok.Text]
			if !ok {
				pc.diags.Infof(types.CodeUnsupportedSection, tok.Location(),
					"%s SECTION is not analyzed", tok.Text)
				for !cur.AtEOF() && !pc.atDivisionHeader() && !pc.atDataSectionHeader() {
					cur.Advance()
				}
				continue
			}
			section := types.DataSection{Kind: kind, Line: tok.Line, Column: tok.Column}
			if kind == types.SectionFile {
				pc.parseFileSection(&section)
			} else {
				section.Items = pc.parseEntries(false)
			}
			data.Sections = append(data.Sections, section)
		case tok.IsKeyword("COPY"):
			pc.consumeCopy()
		default:
			pc.diags.Warnf(types.CodeSkippedTokens, tok.Location(),
				"data entry outside of a DATA DIVISION section was ignored")
			pc.skipSentence()
		}
	}
	return nil
}

func (pc *parseContext) atDataSectionHeader() bool {
	tok := pc.cur.Peek()
	if !pc.cur.PeekAt(1).IsKeyword("SECTION") {
		return false
	}
	_, known := dataSections[tok.Text]
	return tok.Kind == types.TokenKeyword && (known || tok.IsKeyword("REPORT", "COMMUNICATION"))
}

func (pc *parseContext) parseFileSection(section *types.DataSection) {
	cur := pc.cur
	for !cur.AtEOF() && !pc.atDivisionHeader() && !pc.atDataSectionHeader() {
		tok := cur.Peek()
		if !tok.IsKeyword("FD", "SD") {
			section.Items = append(section.Items, pc.parseEntries(true)...)
			continue
		}
		cur.Advance()
		var toks []types.Token
		for !cur.AtEOF() && !pc.atDivisionHeader() {
			t := cur.Advance()
			if t.Kind == types.TokenPeriod {
				break
			}
			toks = append(toks, t)
		}
		fd := parseFileDescription(tok, toks)
		fd.Records = pc.parseEntries(true)
		section.Files = append(section.Files, fd)
	}
}

func parseFileDescription(kw types.Token, toks []types.Token) types.FileDescription {
	fd := types.FileDescription{Kind: kw.Text, Line: kw.Line, Column: kw.Column}
	c := clauseReader{toks: toks}
	if !c.done() {
		fd.Name = c.next().Text
	}
	atClause := func() bool {
		return c.peek().IsKeyword("BLOCK", "RECORD", "LABEL", "VALUE", "DATA", "LINAGE",
			"RECORDING", "EXTERNAL", "GLOBAL") || c.peek().Text == "CODE-SET"
	}
	rest := func() string {
		var out []types.Token
		for !c.done() && !atClause() {
			out = append(out, c.next())
		}
		return joinTokens(out)
	}
	for !c.done() {
		tok := c.next()
		switch {
		case tok.IsKeyword("EXTERNAL"):
			fd.External = true
		case tok.IsKeyword("GLOBAL"):
			fd.Global = true
		case tok.IsKeyword("BLOCK"):
			c.skip("CONTAINS")
			fd.BlockContains = rest()
		case tok.IsKeyword("RECORD") && !c.peek().IsKeyword("IS", "ARE"):
			c.skip("CONTAINS")
			fd.RecordContains = rest()
		case tok.IsKeyword("LABEL"):
			c.skip("RECORD", "RECORDS", "IS", "ARE")
			fd.LabelRecords = rest()
		case tok.IsKeyword("VALUE"):
			c.skip("OF")
			for !c.done() && !atClause() {
				fd.ValueOf = append(fd.ValueOf, c.next().Text)
			}
		case tok.IsKeyword("DATA"):
			c.skip("RECORD", "RECORDS", "IS", "ARE")
			for !c.done() && !atClause() {
				fd.DataRecords = append(fd.DataRecords, c.next().Text)
			}
		case tok.IsKeyword("LINAGE"):
			c.skip("IS")
			fd.Linage = rest()
		case tok.IsKeyword("RECORDING"):
			c.skip("MODE", "IS")
			if !c.done() {
				fd.RecordingMode = c.next().Text
			}
		default:
			rest()
		}
	}
	return fd
}

// parseEntries reads data description entries up to the next section or
// division header, or an FD/SD when inFile is set, and arranges them into
// a hierarchy.
func (pc *parseContext) parseEntries(inFile bool) []*types.DataItem {
	cur := pc.cur
	b := &hierarchyBuilder{}
	for !cur.AtEOF() && !pc.atDivisionHeader() && !pc.atDataSectionHeader() {
		tok := cur.Peek()
		switch {
		case inFile && tok.IsKeyword("FD", "SD"):
			return b.Roots()
		case tok.IsKeyword("COPY"):
			pc.consumeCopy()
		case tok.Kind == types.TokenNumber:
			b.Add(pc.parseEntry())
		default:
			pc.diags.Warnf(types.CodeSkippedTokens, tok.Location(),
				"expected a level number, found %q; entry ignored", tok.Text)
			pc.skipSentence()
		}
	}
	return b.Roots()
}

// parseEntry reads one data description entry starting at its level number
func (pc *parseContext) parseEntry() *types.DataItem {
	cur := pc.cur
	levelTok := cur.Advance()
	level, err := strconv.Atoi(levelTok.Text)
	if err != nil {
		level = 0
	}
	item := &types.DataItem{Level: level, Line: levelTok.Line, Column: levelTok.Column}

	switch name := cur.Peek(); {
	case name.IsKeyword("FILLER"):
		cur.Advance()
		item.Name, item.Filler = types.FillerName, true
	case name.Kind == types.TokenIdentifier:
		cur.Advance()
		item.Name = name.Text
	default:
		item.Name, item.Filler = types.FillerName, true
	}

	for !cur.AtEOF() && !pc.atDivisionHeader() && !pc.atDataSectionHeader() {
		tok := cur.Peek()
		if tok.Kind == types.TokenPeriod {
			cur.Advance()
			return item
		}
		if pc.atNextEntry(item) {
			pc.diags.Warnf(types.CodeMissingTerminator, item.Location(),
				"data entry %s is not terminated by a period", item.Name)
			return item
		}
		cur.Advance()
		switch {
		case tok.IsKeyword("REDEFINES"):
			item.Redefines = cur.Advance().Text
		case tok.IsKeyword("PIC", "PICTURE"):
			cur.AcceptKeyword("IS")
			str := cur.Advance()
			pic, problems := analyzePicture(str.Text)
			item.Picture = pic
			for _, p := range problems {
				pc.diags.Warnf(types.CodeInvalidPicture, str.Location(), "PICTURE %s: %s", str.Text, p)
			}
		case tok.IsKeyword("USAGE"):
			cur.AcceptKeyword("IS")
			if u, ok := usageOf(cur.Peek()); ok {
				cur.Advance()
				item.Usage = u
			}
		case tok.IsKeyword("VALUE", "VALUES"):
			cur.AcceptKeyword("IS", "ARE")
			var vals []types.Token
			for !pc.atEntryEnd() && !cur.Peek().IsKeyword(clauseWords...) {
				vals = append(vals, cur.Advance())
			}
			item.Value = strings.Join(tokenTexts(vals), " ")
		case tok.IsKeyword("OCCURS"):
			item.Occurs = pc.parseOccurs()
		case tok.IsKeyword("SYNC", "SYNCHRONIZED"):
			item.Synchronized = true
			cur.AcceptKeyword("LEFT", "RIGHT")
		case tok.IsKeyword("JUST", "JUSTIFIED"):
			item.Justified = true
			cur.AcceptKeyword("RIGHT")
		case tok.IsKeyword("BLANK"):
			cur.AcceptKeyword("WHEN")
			cur.AcceptKeyword("ZERO", "ZEROS", "ZEROES")
			item.BlankWhenZero = true
		case tok.IsKeyword("SIGN", "LEADING", "TRAILING"):
			if tok.IsKeyword("SIGN") {
				cur.AcceptKeyword("IS")
				tok = cur.Advance()
			}
			item.Sign = tok.Text
			if cur.AcceptKeyword("SEPARATE") {
				cur.AcceptKeyword("CHARACTER")
				item.Sign += " SEPARATE"
			}
		case tok.IsKeyword("EXTERNAL"):
			item.External = true
		case tok.IsKeyword("GLOBAL"):
			item.Global = true
		case tok.IsKeyword("RENAMES"):
			item.Renames = cur.Advance().Text
			if cur.AcceptKeyword("THRU", "THROUGH") {
				item.RenamesThru = cur.Advance().Text
			}
		default:
			if u, ok := usageOf(tok); ok {
				item.Usage = u
			}
		}
	}
	return item
}

// atNextEntry detects a level number that starts a new entry on a later
// line, which means the current entry lost its period.
func (pc *parseContext) atNextEntry(item *types.DataItem) bool {
	tok := pc.cur.Peek()
	if tok.Kind != types.TokenNumber || tok.Line == item.Line {
		return false
	}
	next := pc.cur.PeekAt(1)
	return next.Kind == types.TokenIdentifier || next.IsKeyword("FILLER")
}

func (pc *parseContext) atEntryEnd() bool {
	tok := pc.cur.Peek()
	return tok.Kind == types.TokenPeriod || tok.Kind == types.TokenEOF ||
		pc.atDivisionHeader() || pc.atDataSectionHeader()
}

// parseOccurs reads the clause after OCCURS:
// n [TO m] [TIMES] [DEPENDING ON x] [{ASCENDING|DESCENDING} KEY IS k...] [INDEXED BY i...]
func (pc *parseContext) parseOccurs() *types.OccursClause {
	cur := pc.cur
	oc := &types.OccursClause{}
	if n, err := strconv.Atoi(cur.Peek().Text); err == nil {
		cur.Advance()
		oc.Min, oc.Max = n, n
	}
	if cur.AcceptKeyword("TO") {
		if n, err := strconv.Atoi(cur.Peek().Text); err == nil {
			cur.Advance()
			oc.Max = n
		}
	}
	cur.AcceptKeyword("TIMES")
	for !pc.atEntryEnd() {
		tok := cur.Peek()
		switch {
		case tok.IsKeyword("DEPENDING"):
			cur.Advance()
			cur.AcceptKeyword("ON")
			oc.DependingOn = cur.Advance().Text
		case tok.IsKeyword("ASCENDING", "DESCENDING"):
			cur.Advance()
			cur.AcceptKeyword("KEY")
			cur.AcceptKeyword("IS")
			for cur.Peek().Kind == types.TokenIdentifier {
				oc.Keys = append(oc.Keys, types.OccursKey{
					Name:      cur.Advance().Text,
					Ascending: tok.Text == "ASCENDING",
				})
			}
		case tok.IsKeyword("INDEXED"):
			cur.Advance()
			cur.AcceptKeyword("BY")
			for cur.Peek().Kind == types.TokenIdentifier {
				oc.IndexedBy = append(oc.IndexedBy, cur.Advance().Text)
			}
		default:
			return oc
		}
	}
	return oc
}

func usageOf(tok types.Token) (types.Usage, bool) {
	if tok.Kind != types.TokenKeyword {
		return "", false
	}
	switch tok.Text {
	case "DISPLAY":
		return types.UsageDisplay, true
	case "BINARY":
		return types.UsageBinary, true
	case "COMP", "COMPUTATIONAL":
		return types.UsageComp, true
	case "COMP-1", "COMPUTATIONAL-1":
		return types.UsageComp1, true
	case "COMP-2", "COMPUTATIONAL-2":
		return types.UsageComp2, true
	case "COMP-3", "COMPUTATIONAL-3":
		return types.UsageComp3, true
	case "COMP-4", "COMPUTATIONAL-4":
		return types.UsageComp4, true
	case "COMP-5", "COMPUTATIONAL-5":
		return types.UsageComp5, true
	case "PACKED-DECIMAL":
		return types.UsagePackedDecimal, true
	case "INDEX":
		return types.UsageIndex, true
	case "POINTER":
		return types.UsagePointer, true
	case "NATIONAL":
		return types.UsageNational, true
	}
	return "", false
}
