package types

// WalkStatements visits statements depth-first in source order. Returning
// false from fn skips the statement's children. The walk uses an explicit
// stack so deeply nested bodies do not grow the call stack.
func WalkStatements(stmts []Statement, fn func(s *Statement, depth int) bool) {
	type frame struct {
		stmt  *Statement
		depth int
	}
	stack := make([]frame, 0, len(stmts))
	push := func(list []Statement, depth int) {
		for i := len(list) - 1; i >= 0; i-- {
			stack = append(stack, frame{stmt: &list[i], depth: depth})
		}
	}
	push(stmts, 0)
	for len(stack) > 0 {
		f := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if !fn(f.stmt, f.depth) {
			continue
		}
		s := f.stmt
		// Pushed in reverse so they pop in source order.
		for i := len(s.Handlers) - 1; i >= 0; i-- {
			push(s.Handlers[i].Statements, f.depth+1)
		}
		for i := len(s.Branches) - 1; i >= 0; i-- {
			push(s.Branches[i].Statements, f.depth+1)
		}
		push(s.Else, f.depth+1)
		push(s.Nested, f.depth+1)
	}
}

// WalkDataItems visits data items depth-first in declaration order
func WalkDataItems(items []*DataItem, fn func(item *DataItem, depth int) bool) {
	type frame struct {
		item  *DataItem
		depth int
	}
	stack := make([]frame, 0, len(items))
	for i := len(items) - 1; i >= 0; i-- {
		stack = append(stack, frame{item: items[i], depth: 0})
	}
	for len(stack) > 0 {
		f := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if !fn(f.item, f.depth) {
			continue
		}
		for i := len(f.item.Children) - 1; i >= 0; i-- {
			stack = append(stack, frame{item: f.item.Children[i], depth: f.depth + 1})
		}
	}
}

// CountStatements returns the number of statements including nested ones
func CountStatements(stmts []Statement) int {
	n := 0
	WalkStatements(stmts, func(*Statement, int) bool {
		n++
		return true
	})
	return n
}
