package parser

import (
	"github.com/dshills/cobolcontext-mcp/pkg/types"
)

var figurativeConstants = []string{
	"ZERO", "ZEROS", "ZEROES", "SPACE", "SPACES", "HIGH-VALUE", "HIGH-VALUES",
	"LOW-VALUE", "LOW-VALUES", "QUOTE", "QUOTES", "NULL", "NULLS", "ALL", "TRUE", "FALSE",
}

var classConditions = []string{
	"NUMERIC", "ALPHABETIC", "ALPHABETIC-LOWER", "ALPHABETIC-UPPER", "POSITIVE", "NEGATIVE",
	"ZERO", "ZEROS", "ZEROES",
}

// parseCondition parses a condition and chains AND/OR terms strictly left
// to right: each new term hangs off the term parsed before it. There is no
// precedence between AND and OR.
func (pc *parseContext) parseCondition() (*types.Condition, error) {
	root, err := pc.simpleCondition("", "")
	if err != nil {
		return nil, err
	}
	subject, op := root.Left, root.Operator
	tail := root
	for pc.cur.Peek().IsKeyword("AND", "OR") {
		conj := pc.cur.Advance()
		next, err := pc.simpleCondition(subject, op)
		if err != nil {
			return nil, err
		}
		if next.Left != "" && next.Operator != "" {
			subject, op = next.Left, next.Operator
		}
		if conj.Text == "AND" {
			tail.AndConditions = append(tail.AndConditions, *next)
			tail = &tail.AndConditions[len(tail.AndConditions)-1]
		} else {
			tail.OrConditions = append(tail.OrConditions, *next)
			tail = &tail.OrConditions[len(tail.OrConditions)-1]
		}
	}
	return root, nil
}

// simpleCondition parses one relation, class test, condition-name test or
// parenthesised group. subject and op are the left operand and operator of
// the previous relation, used to complete abbreviations like A = 1 OR 2.
func (pc *parseContext) simpleCondition(subject, op string) (*types.Condition, error) {
	cur := pc.cur
	start := cur.Peek()
	negated := cur.AcceptKeyword("NOT")

	if cur.Peek().Is(types.TokenSeparator, "(") && pc.atConditionGroup() {
		open := cur.Advance()
		if err := pc.enter(open); err != nil {
			return nil, err
		}
		inner, err := pc.parseCondition()
		pc.leave()
		if err != nil {
			return nil, err
		}
		if !cur.Accept(types.TokenSeparator, ")") {
			return nil, cur.unexpected(cur.Peek(), `")"`)
		}
		if negated {
			inner.Negated = !inner.Negated
		}
		return inner, nil
	}

	left := pc.conditionOperand()
	operator, notOp, ok := pc.relationalOperator()
	cond := &types.Condition{Negated: negated != notOp}

	switch {
	case len(left) == 0 && !ok:
		return nil, cur.unexpected(cur.Peek(), "condition")
	case len(left) == 0:
		cond.Left = subject
	case !ok && subject != "" && op != "" && len(left) == 1 &&
		(left[0].Kind == types.TokenLiteral || left[0].Kind == types.TokenNumber):
		cond.Left, cond.Operator, cond.Right = subject, op, left[0].Text
		return cond, nil
	default:
		cond.Left = joinTokens(left)
	}
	if !ok {
		return cond, nil
	}

	cond.Operator = operator
	for _, w := range classConditions {
		if operator == w {
			return cond, nil
		}
	}
	right := pc.conditionOperand()
	if len(right) == 0 {
		return nil, types.NewParseError(cur.Stage(), types.ErrUnexpectedToken, start.Line, start.Column,
			"relation %s has no right operand", operator)
	}
	cond.Right = joinTokens(right)
	return cond, nil
}

// atConditionGroup looks past the ( at the cursor to its matching ) and
// reports whether the group holds a relation or a conjunction. Otherwise
// the parentheses belong to an arithmetic operand.
func (pc *parseContext) atConditionGroup() bool {
	depth := 0
	for i := 0; ; i++ {
		tok := pc.cur.PeekAt(i)
		switch {
		case tok.Kind == types.TokenEOF, tok.Kind == types.TokenPeriod:
			return false
		case tok.Is(types.TokenSeparator, "("):
			depth++
		case tok.Is(types.TokenSeparator, ")"):
			depth--
			if depth == 0 {
				return false
			}
		case tok.Kind == types.TokenOperator && (tok.Text == "=" || tok.Text == "<" || tok.Text == ">"):
			return true
		case tok.IsKeyword("AND", "OR", "NOT", "EQUAL", "GREATER", "LESS"), tok.IsKeyword(classConditions...):
			return true
		}
	}
}

// relationalOperator consumes a relational operator or class test. The
// symbolic forms >=, <= and <> arrive as two tokens and are merged.
func (pc *parseContext) relationalOperator() (op string, negated, ok bool) {
	cur := pc.cur
	i := 0
	if cur.PeekAt(i).IsKeyword("IS") {
		i++
	}
	if cur.PeekAt(i).IsKeyword("NOT") {
		negated = true
		i++
	}
	tok := cur.PeekAt(i)
	switch {
	case tok.Kind == types.TokenOperator && (tok.Text == "=" || tok.Text == "<" || tok.Text == ">"):
		op = tok.Text
		i++
		if next := cur.PeekAt(i); next.Kind == types.TokenOperator {
			switch {
			case next.Text == "=" && op != "=":
				op += "="
				i++
			case next.Text == ">" && op == "<":
				op = "<>"
				i++
			}
		}
	case tok.IsKeyword("EQUAL"):
		op = "="
		i++
	case tok.IsKeyword("GREATER", "LESS"):
		op = ">"
		if tok.Text == "LESS" {
			op = "<"
		}
		i++
		if cur.PeekAt(i).IsKeyword("THAN") {
			i++
		}
		if cur.PeekAt(i).IsKeyword("OR") && cur.PeekAt(i+1).IsKeyword("EQUAL") {
			op += "="
			i += 2
		}
	case tok.IsKeyword(classConditions...):
		op = tok.Text
		if tok.IsKeyword("ZEROS", "ZEROES") {
			op = "ZERO"
		}
		i++
	default:
		return "", false, false
	}
	if op == "=" || op == ">=" || op == "<=" {
		if cur.PeekAt(i).IsKeyword("TO") {
			i++
		}
	}
	for ; i > 0; i-- {
		cur.Advance()
	}
	return op, negated, true
}

// conditionOperand reads one arithmetic operand of a relation: atoms
// joined by + - * / with optional subscripts, qualifiers and parentheses.
func (pc *parseContext) conditionOperand() []types.Token {
	cur := pc.cur
	var toks []types.Token
	expectAtom := true
	for {
		tok := cur.Peek()
		if !expectAtom {
			if tok.Kind == types.TokenOperator && isArithmetic(tok.Text) {
				toks = append(toks, cur.Advance())
				expectAtom = true
				continue
			}
			return toks
		}
		switch {
		case tok.Is(types.TokenSeparator, "("):
			toks = append(toks, pc.balancedGroup()...)
			expectAtom = false
		case tok.Kind == types.TokenIdentifier, tok.Kind == types.TokenNumber,
			tok.Kind == types.TokenLiteral, tok.IsKeyword(figurativeConstants...):
			toks = append(toks, cur.Advance())
			if adjacentParen(tok, cur.Peek()) {
				toks = append(toks, pc.balancedGroup()...)
			}
			for cur.Peek().IsKeyword("OF", "IN") && cur.PeekAt(1).Kind == types.TokenIdentifier {
				toks = append(toks, cur.Advance(), cur.Advance())
			}
			expectAtom = false
		case tok.IsKeyword("FUNCTION", "LENGTH", "ADDRESS"):
			toks = append(toks, cur.Advance())
			if cur.Peek().IsKeyword("OF") {
				toks = append(toks, cur.Advance())
			}
		case tok.Kind == types.TokenOperator && (tok.Text == "+" || tok.Text == "-") && len(toks) == 0:
			toks = append(toks, cur.Advance())
		case tok.Is(types.TokenOperator, "*") && len(toks) > 0 && toks[len(toks)-1].Text == "*":
			toks = append(toks, cur.Advance())
		default:
			return toks
		}
	}
}

func isArithmetic(op string) bool {
	return op == "+" || op == "-" || op == "*" || op == "/"
}

// balancedGroup consumes a parenthesised run, stopping early at a period
func (pc *parseContext) balancedGroup() []types.Token {
	cur := pc.cur
	var toks []types.Token
	depth := 0
	for !cur.AtEOF() && cur.Peek().Kind != types.TokenPeriod {
		tok := cur.Advance()
		toks = append(toks, tok)
		switch {
		case tok.Is(types.TokenSeparator, "("):
			depth++
		case tok.Is(types.TokenSeparator, ")"):
			depth--
		}
		if depth == 0 {
			break
		}
	}
	return toks
}
