package validator

import (
	"strings"

	"github.com/dshills/cobolcontext-mcp/pkg/types"
)

// checkRedefines resolves REDEFINES targets by name and reports cycles.
// Targets are weak references, so a cycle is possible in the tree even
// though no item owns another through REDEFINES.
func (p *pass) checkRedefines() {
	data := p.prog.Data
	if data == nil {
		return
	}
	idx := buildDataIndex(data)
	for i, item := range idx.items {
		if item.Redefines == "" {
			continue
		}
		if item.Level == types.LevelCondition || item.Level == types.LevelRenames {
			p.diags.Errorf(types.CodeRedefinesLevel, item.Location(),
				"level %02d item %s cannot carry REDEFINES", item.Level, item.Name)
			continue
		}
		target, ok := idx.byName[item.Redefines]
		switch {
		case !ok:
			p.diags.Errorf(types.CodeRedefinesUnknown, item.Location(),
				"%s redefines %s, which is not declared", item.Name, item.Redefines)
		case target.index > i:
			p.diags.Warnf(types.CodeRedefinesForward, item.Location(),
				"%s redefines %s, which is declared after it", item.Name, item.Redefines)
		case target.item.Level != item.Level:
			p.diags.Warnf(types.CodeRedefinesLevel, item.Location(),
				"%s is level %02d but redefines level %02d item %s", item.Name, item.Level, target.item.Level, target.item.Name)
		}
	}
	p.checkRedefinesCycles(idx)
}

// checkRedefinesCycles follows each REDEFINES chain with an explicit
// on-path set. Every name can have at most one target, so each chain is a
// simple path that either ends or loops back onto itself. Each cycle is
// reported once, at the item where the walk first entered it.
func (p *pass) checkRedefinesCycles(idx *dataIndex) {
	done := make(map[string]bool)
	for _, item := range idx.items {
		if item.Filler || item.Redefines == "" || done[item.Name] {
			continue
		}
		onPath := make(map[string]int)
		var path []string
		for name := item.Name; !done[name]; {
			if pos, looped := onPath[name]; looped {
				cycle := append(append([]string(nil), path[pos:]...), name)
				start := idx.byName[path[pos]].item
				p.diags.Errorf(types.CodeRedefinesCycle, start.Location(),
					"REDEFINES cycle: %s", strings.Join(cycle, " -> "))
				break
			}
			d, ok := idx.byName[name]
			if !ok || d.item.Redefines == "" {
				break
			}
			onPath[name] = len(path)
			path = append(path, name)
			name = d.item.Redefines
		}
		for _, name := range path {
			done[name] = true
		}
	}
}
