package parser

import "github.com/dshills/cobolcontext-mcp/pkg/types"

// hierarchyBuilder arranges a flat run of data entries into a tree using
// an explicit stack of open group items. Level 66, 77 and 88 entries never
// receive children and leave the stack untouched.
type hierarchyBuilder struct {
	roots []*types.DataItem
	stack []*types.DataItem
}

// Add places item under the nearest open entry with a lower level
func (b *hierarchyBuilder) Add(item *types.DataItem) {
	switch item.Level {
	case types.LevelCondition:
		b.attach(b.top(), item)
		return
	case types.LevelRenames:
		var record *types.DataItem
		if len(b.stack) > 0 {
			record = b.stack[0]
		}
		b.attach(record, item)
		return
	case types.LevelStandard:
		b.attach(nil, item)
		return
	}

	for len(b.stack) > 0 && b.top().Level >= item.Level {
		b.stack = b.stack[:len(b.stack)-1]
	}
	b.attach(b.top(), item)
	b.stack = append(b.stack, item)
}

// Roots returns the top-level entries in declaration order
func (b *hierarchyBuilder) Roots() []*types.DataItem {
	return b.roots
}

func (b *hierarchyBuilder) top() *types.DataItem {
	if len(b.stack) == 0 {
		return nil
	}
	return b.stack[len(b.stack)-1]
}

func (b *hierarchyBuilder) attach(parent, item *types.DataItem) {
	if parent == nil {
		b.roots = append(b.roots, item)
		return
	}
	item.Parent = parent.Name
	parent.Children = append(parent.Children, item)
}
