package validator

import (
	"strings"

	"github.com/dshills/cobolcontext-mcp/pkg/types"
)

func (p *pass) checkProcedure() {
	proc := p.prog.Procedure
	p.checkParameters(proc)

	known := make(map[string]bool)
	sectionSeen := make(map[string]bool)
	for _, sec := range proc.AllSections() {
		if !sec.Implicit {
			if sectionSeen[sec.Name] {
				p.diags.Errorf(types.CodeDuplicateSection, &types.Location{Line: sec.Line, Column: sec.Column},
					"section %s is declared more than once", sec.Name)
			}
			sectionSeen[sec.Name] = true
			known[sec.Name] = true
		}
		if len(sec.Paragraphs) > p.cfg.MaxSectionParagraphs {
			p.diags.Warnf(types.CodeSectionSize, &types.Location{Line: sec.Line, Column: sec.Column},
				"section %s has %d paragraphs, more than %d", sectionName(sec), len(sec.Paragraphs), p.cfg.MaxSectionParagraphs)
		}

		paraSeen := make(map[string]bool)
		for _, para := range sec.Paragraphs {
			loc := &types.Location{Line: para.Line, Column: para.Column}
			if !para.Implicit {
				if paraSeen[para.Name] {
					p.diags.Errorf(types.CodeDuplicateParagraph, loc,
						"paragraph %s is declared more than once in section %s", para.Name, sectionName(sec))
				}
				paraSeen[para.Name] = true
				known[para.Name] = true
			}
			if n := types.CountStatements(para.Statements); n > p.cfg.MaxParagraphStatements {
				p.diags.Warnf(types.CodeParagraphSize, loc,
					"paragraph %s has %d statements, more than %d", paragraphName(para), n, p.cfg.MaxParagraphStatements)
			}
		}
	}

	p.checkProcedureRefs(proc, known)
	p.checkErrorHandling(proc)
}

func sectionName(sec types.Section) string {
	if sec.Implicit {
		return "(implicit)"
	}
	return sec.Name
}

func paragraphName(para types.Paragraph) string {
	if para.Implicit {
		return "(implicit)"
	}
	return para.Name
}

// checkParameters reports duplicate USING parameters and parameters not
// described in the LINKAGE SECTION.
func (p *pass) checkParameters(proc *types.ProcedureDivision) {
	linkage := make(map[string]bool)
	if sec := p.prog.Data.Section(types.SectionLinkage); sec != nil {
		types.WalkDataItems(sec.Items, func(item *types.DataItem, _ int) bool {
			linkage[item.Name] = true
			return true
		})
	}
	seen := make(map[string]bool)
	for _, param := range proc.Using {
		loc := &types.Location{Line: param.Line, Column: param.Column}
		if seen[param.Name] {
			p.diags.Errorf(types.CodeDuplicateParameter, loc, "USING parameter %s is listed more than once", param.Name)
			continue
		}
		seen[param.Name] = true
		if !linkage[param.Name] {
			p.diags.Warnf(types.CodeUndeclaredParam, loc, "USING parameter %s is not described in the LINKAGE SECTION", param.Name)
		}
	}
}

// checkProcedureRefs warns once for each distinct procedure name that is
// referenced but never declared.
func (p *pass) checkProcedureRefs(proc *types.ProcedureDivision, known map[string]bool) {
	reported := make(map[string]bool)
	for _, sec := range proc.AllSections() {
		for _, para := range sec.Paragraphs {
			types.WalkStatements(para.Statements, func(s *types.Statement, _ int) bool {
				for _, ref := range s.ProcedureRefs {
					if known[ref] || reported[ref] {
						continue
					}
					reported[ref] = true
					p.diags.Warnf(types.CodeUnknownProcedure, s.Location(),
						"%s refers to %s, which is not a section or paragraph", s.Kind, ref)
				}
				return true
			})
		}
	}
}

// checkErrorHandling reports file I/O and CALL statements that nothing
// guards: no handler phrase, no FILE STATUS and no USE declarative.
func (p *pass) checkErrorHandling(proc *types.ProcedureDivision) {
	covered, coverAll := declarativeFiles(proc)
	recordFiles := make(map[string]string)
	if sec := p.prog.Data.Section(types.SectionFile); sec != nil {
		for _, fd := range sec.Files {
			for _, rec := range fd.Records {
				recordFiles[rec.Name] = fd.Name
			}
		}
	}

	for _, sec := range proc.Sections {
		for _, para := range sec.Paragraphs {
			types.WalkStatements(para.Statements, func(s *types.Statement, _ int) bool {
				switch {
				case s.Kind.IsFileIO() && len(s.Handlers) == 0 && len(s.Operands) > 0:
					file := s.Operands[0]
					if s.Kind == types.StmtWrite || s.Kind == types.StmtRewrite {
						file = recordFiles[file]
					}
					if file == "" || coverAll || covered[file] {
						break
					}
					if fc := p.prog.Environment.FileControlFor(file); fc != nil && fc.FileStatus != "" {
						break
					}
					p.diags.Infof(types.CodeErrorHandling, s.Location(),
						"%s on %s has no exception phrase, FILE STATUS or USE declarative", s.Kind, file)
				case s.Kind == types.StmtCall && !hasHandler(s, "EXCEPTION", "OVERFLOW"):
					target := ""
					if len(s.Operands) > 0 {
						target = " " + s.Operands[0]
					}
					p.diags.Infof(types.CodeErrorHandling, s.Location(),
						"CALL%s has no ON EXCEPTION or ON OVERFLOW phrase", target)
				}
				return true
			})
		}
	}
}

func hasHandler(s *types.Statement, words ...string) bool {
	for _, h := range s.Handlers {
		for _, w := range words {
			if strings.HasSuffix(h.Phrase, w) {
				return true
			}
		}
	}
	return false
}

// declarativeFiles returns the files named by USE statements in the
// declaratives. coverAll is set when a USE names an open mode.
func declarativeFiles(proc *types.ProcedureDivision) (covered map[string]bool, coverAll bool) {
	covered = make(map[string]bool)
	for _, sec := range proc.Declaratives {
		for _, para := range sec.Paragraphs {
			types.WalkStatements(para.Statements, func(s *types.Statement, _ int) bool {
				if s.Kind != types.StmtUse {
					return true
				}
				on := false
				for _, op := range s.Operands {
					switch {
					case op == "ON":
						on = true
					case !on:
					case op == "INPUT" || op == "OUTPUT" || op == "I-O" || op == "EXTEND":
						coverAll = true
					default:
						covered[op] = true
					}
				}
				return true
			})
		}
	}
	return covered, coverAll
}
