package validator

import (
	"unicode/utf8"

	"github.com/dshills/cobolcontext-mcp/pkg/types"
)

func (p *pass) checkEnvironment() {
	env := p.prog.Environment
	if env == nil {
		return
	}
	loc := p.divisionLocation(types.DivisionEnvironment)

	if oc := env.ObjectComputer; oc != nil && oc.SegmentLimit != nil {
		if n := *oc.SegmentLimit; n < 0 || n > 49 {
			p.diags.Warnf(types.CodeSegmentLimit, loc, "SEGMENT-LIMIT %d is outside 0-49", n)
		}
	}
	if sn := env.SpecialNames; sn != nil && utf8.RuneCountInString(sn.CurrencySign) > 1 {
		p.diags.Warnf(types.CodeCurrencySign, loc, "CURRENCY SIGN %q should be a single character", sn.CurrencySign)
	}

	for i := range env.FileControl {
		fc := &env.FileControl[i]
		at := &types.Location{Line: fc.Line, Column: fc.Column}
		switch fc.Organization {
		case types.OrganizationSequential, types.OrganizationLineSequential:
			if fc.AccessMode != types.AccessSequential {
				p.diags.Errorf(types.CodeAccessMode, at,
					"file %s: ACCESS MODE %s is not allowed for %s organization", fc.FileName, fc.AccessMode, fc.Organization)
			}
		case types.OrganizationIndexed, types.OrganizationRelative:
			switch fc.AccessMode {
			case types.AccessSequential, types.AccessRandom, types.AccessDynamic:
			default:
				p.diags.Errorf(types.CodeAccessMode, at, "file %s: unknown ACCESS MODE %s", fc.FileName, fc.AccessMode)
			}
			if fc.Organization == types.OrganizationIndexed && fc.RecordKey == "" {
				p.diags.Errorf(types.CodeRecordKey, at, "indexed file %s has no RECORD KEY", fc.FileName)
			}
		default:
			p.diags.Errorf(types.CodeOrganization, at, "file %s: unknown ORGANIZATION %s", fc.FileName, fc.Organization)
		}
	}
}

// divisionLocation returns the header location of the named division
func (p *pass) divisionLocation(name string) *types.Location {
	for _, d := range p.prog.Divisions {
		if d.Name == name {
			return &types.Location{Line: d.Line, Column: d.Column}
		}
	}
	return nil
}
