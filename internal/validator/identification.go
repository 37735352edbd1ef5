package validator

import (
	"regexp"
	"strings"
	"time"

	"github.com/dshills/cobolcontext-mcp/pkg/types"
)

var programIDPattern = regexp.MustCompile(`^[A-Z][A-Z0-9_-]{0,29}$`)

// dateLayouts are the DATE-WRITTEN and DATE-COMPILED forms accepted
var dateLayouts = []string{
	"01/02/2006",
	"1/2/2006",
	"01/02/06",
	"2006-01-02",
	"2006/01/02",
	"02.01.2006",
	"January 2, 2006",
	"January 2 2006",
	"Jan 2, 2006",
	"Jan 2 2006",
	"2 January 2006",
	"2 Jan 2006",
	"January 2006",
	"Jan 2006",
	"2006",
}

var securityLevels = map[string]bool{
	"UNCLASSIFIED": true,
	"PUBLIC":       true,
	"INTERNAL":     true,
	"RESTRICTED":   true,
	"CONFIDENTIAL": true,
	"SECRET":       true,
	"TOP SECRET":   true,
	"NONE":         true,
}

func (p *pass) checkIdentification() {
	info := &p.prog.Identification
	loc := &types.Location{Line: info.Line, Column: info.Column}

	id := strings.ToUpper(p.prog.ProgramID)
	if !programIDPattern.MatchString(id) {
		p.diags.Warnf(types.CodeProgramID, loc,
			"PROGRAM-ID %q must be 1-30 characters, start with a letter and use only letters, digits, - and _",
			p.prog.ProgramID)
	}

	p.checkDate("DATE-WRITTEN", info.DateWritten, loc)
	p.checkDate("DATE-COMPILED", info.DateCompiled, loc)

	if sec := strings.ToUpper(strings.TrimSpace(info.Security)); sec != "" && !securityLevels[sec] {
		p.diags.Infof(types.CodeSecurityLevel, loc, "unrecognized SECURITY level %q", info.Security)
	}

	proc := p.prog.Procedure
	if proc.EndProgram != "" && !strings.EqualFold(proc.EndProgram, p.prog.ProgramID) {
		p.diags.Errorf(types.CodeEndProgram, &types.Location{Line: proc.Line, Column: proc.Column},
			"END PROGRAM %s does not match PROGRAM-ID %s", proc.EndProgram, p.prog.ProgramID)
	}
}

func (p *pass) checkDate(para, text string, loc *types.Location) {
	text = strings.TrimSpace(text)
	if text == "" {
		return
	}
	t, ok := parseDate(text)
	if !ok {
		p.diags.Warnf(types.CodeInvalidDate, loc, "%s %q is not a recognizable date", para, text)
		return
	}
	if t.Year() < 1900 {
		p.diags.Warnf(types.CodeInvalidDate, loc, "%s %q is before 1900", para, text)
	}
}

func parseDate(text string) (time.Time, bool) {
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, text); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
