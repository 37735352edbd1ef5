package validator

import (
	"strings"

	"github.com/dshills/cobolcontext-mcp/pkg/types"
)

const maxDataNameLength = 30

// declared is one named data item in declaration order
type declared struct {
	item  *types.DataItem
	index int
}

// dataIndex lists every data item in declaration order and maps each
// non-FILLER name to its first declaration.
type dataIndex struct {
	items  []*types.DataItem
	byName map[string]declared
}

func buildDataIndex(data *types.DataDivision) *dataIndex {
	idx := &dataIndex{byName: make(map[string]declared)}
	types.WalkDataItems(data.Roots(), func(item *types.DataItem, _ int) bool {
		if !item.Filler {
			if _, seen := idx.byName[item.Name]; !seen {
				idx.byName[item.Name] = declared{item: item, index: len(idx.items)}
			}
		}
		idx.items = append(idx.items, item)
		return true
	})
	return idx
}

func validLevel(level int) bool {
	return (level >= 1 && level <= 49) || level == types.LevelRenames ||
		level == types.LevelStandard || level == types.LevelCondition
}

func (p *pass) checkData() {
	data := p.prog.Data
	if data == nil {
		return
	}
	for _, root := range data.Roots() {
		switch {
		case !validLevel(root.Level):
		case root.Level == types.LevelCondition:
			p.diags.Errorf(types.CodeOrphanCondition, root.Location(),
				"condition name %s has no conditional variable", root.Name)
		case root.Level != 1 && root.Level != types.LevelRenames && root.Level != types.LevelStandard:
			p.diags.Errorf(types.CodeLevelOrder, root.Location(),
				"level %02d item %s has no parent group", root.Level, root.Name)
		}
	}

	seen := make(map[string]*types.DataItem)
	var tables []*types.DataItem
	types.WalkDataItems(data.Roots(), func(item *types.DataItem, _ int) bool {
		p.checkLevels(item)
		p.checkItem(item)
		if item.Occurs != nil && item.Occurs.DependingOn != "" {
			tables = append(tables, item)
		}
		if !item.Filler {
			if first, dup := seen[item.Name]; dup {
				p.diags.Warnf(types.CodeDuplicateData, item.Location(),
					"data name %s is also declared at line %d", item.Name, first.Line)
			} else {
				seen[item.Name] = item
			}
		}
		return true
	})

	for _, item := range tables {
		if _, ok := seen[item.Occurs.DependingOn]; !ok {
			p.diags.Warnf(types.CodeUndeclaredData, item.Location(),
				"OCCURS DEPENDING ON object %s of %s is not declared", item.Occurs.DependingOn, item.Name)
		}
	}
}

// checkLevels validates the item's own level and those of its children
func (p *pass) checkLevels(item *types.DataItem) {
	if !validLevel(item.Level) {
		p.diags.Errorf(types.CodeInvalidLevel, item.Location(),
			"level number %d of %s is not 01-49, 66, 77 or 88", item.Level, item.Name)
	}
	var prev *types.DataItem
	for _, child := range item.Children {
		if child.Level == types.LevelCondition || child.Level == types.LevelRenames {
			continue
		}
		if child.Level <= item.Level {
			p.diags.Errorf(types.CodeLevelOrder, child.Location(),
				"level %02d of %s must exceed level %02d of its parent %s", child.Level, child.Name, item.Level, item.Name)
		}
		if prev != nil && prev.Level > child.Level {
			p.diags.Errorf(types.CodeLevelOrder, child.Location(),
				"level %02d of %s is lower than level %02d of its preceding sibling %s",
				child.Level, child.Name, prev.Level, prev.Name)
		}
		prev = child
	}
}

func (p *pass) checkItem(item *types.DataItem) {
	loc := item.Location()
	if len(item.Name) > maxDataNameLength {
		p.diags.Warnf(types.CodeDataName, loc, "data name %s is longer than %d characters", item.Name, maxDataNameLength)
	}

	switch item.Level {
	case 1, types.LevelRenames, types.LevelStandard, types.LevelCondition:
		if item.Occurs != nil {
			p.diags.Errorf(types.CodeOccursLevel, loc, "OCCURS is not allowed on level %02d item %s", item.Level, item.Name)
		}
	}
	if item.Level == types.LevelCondition || item.Level == types.LevelRenames {
		return
	}

	if item.IsGroup() {
		if item.Picture != nil {
			p.diags.Errorf(types.CodeGroupPicture, loc, "group item %s cannot have a PICTURE", item.Name)
		}
		return
	}
	if item.Picture == nil {
		switch item.Usage {
		case types.UsageIndex, types.UsagePointer, types.UsageComp1, types.UsageComp2:
		default:
			p.diags.Warnf(types.CodeMissingPicture, loc, "elementary item %s has no PICTURE", item.Name)
		}
		return
	}
	if item.Picture.Class == types.ClassNumeric && !item.Picture.Edited && item.Value != "" && !numericValue(item.Value) {
		p.diags.Errorf(types.CodeValueMismatch, loc,
			"numeric item %s has non-numeric VALUE %s", item.Name, item.Value)
	}
}

// numericValue reports whether a VALUE clause suits a numeric item
func numericValue(v string) bool {
	switch strings.ToUpper(v) {
	case "SPACE", "SPACES", "QUOTE", "QUOTES":
		return false
	}
	return !strings.ContainsAny(v, `"'`)
}
