package parser

import (
	"strings"

	"github.com/dshills/cobolcontext-mcp/pkg/types"
)

// verbAt maps the token at the cursor to a statement kind. NEXT is only a
// verb when followed by SENTENCE.
func (pc *parseContext) verbAt() (types.StatementKind, bool) {
	tok := pc.cur.Peek()
	if tok.Kind != types.TokenKeyword {
		return "", false
	}
	switch tok.Text {
	case "ACCEPT":
		return types.StmtAccept, true
	case "ADD":
		return types.StmtAdd, true
	case "ALTER":
		return types.StmtAlter, true
	case "CALL":
		return types.StmtCall, true
	case "CANCEL":
		return types.StmtCancel, true
	case "CLOSE":
		return types.StmtClose, true
	case "COMPUTE":
		return types.StmtCompute, true
	case "CONTINUE":
		return types.StmtContinue, true
	case "DELETE":
		return types.StmtDelete, true
	case "DISPLAY":
		return types.StmtDisplay, true
	case "DIVIDE":
		return types.StmtDivide, true
	case "ENTRY":
		return types.StmtEntry, true
	case "EVALUATE":
		return types.StmtEvaluate, true
	case "EXEC":
		return types.StmtExec, true
	case "EXIT":
		return types.StmtExit, true
	case "GO":
		return types.StmtGoTo, true
	case "GOBACK":
		return types.StmtGoback, true
	case "IF":
		return types.StmtIf, true
	case "INITIALIZE":
		return types.StmtInitialize, true
	case "INSPECT":
		return types.StmtInspect, true
	case "INVOKE":
		return types.StmtInvoke, true
	case "MERGE":
		return types.StmtMerge, true
	case "MOVE":
		return types.StmtMove, true
	case "MULTIPLY":
		return types.StmtMultiply, true
	case "NEXT":
		if pc.cur.PeekAt(1).IsKeyword("SENTENCE") {
			return types.StmtNextSentence, true
		}
	case "OPEN":
		return types.StmtOpen, true
	case "PERFORM":
		return types.StmtPerform, true
	case "READ":
		return types.StmtRead, true
	case "RELEASE":
		return types.StmtRelease, true
	case "RETURN":
		return types.StmtReturn, true
	case "REWRITE":
		return types.StmtRewrite, true
	case "SEARCH":
		return types.StmtSearch, true
	case "SET":
		return types.StmtSet, true
	case "SORT":
		return types.StmtSort, true
	case "START":
		return types.StmtStart, true
	case "STOP":
		return types.StmtStop, true
	case "STRING":
		return types.StmtString, true
	case "SUBTRACT":
		return types.StmtSubtract, true
	case "UNSTRING":
		return types.StmtUnstring, true
	case "USE":
		return types.StmtUse, true
	case "WRITE":
		return types.StmtWrite, true
	}
	return "", false
}

// acceptsHandlers reports which verbs own AT END, INVALID KEY, SIZE ERROR,
// OVERFLOW and EXCEPTION phrases.
func acceptsHandlers(kind types.StatementKind) bool {
	switch kind {
	case types.StmtRead, types.StmtWrite, types.StmtRewrite, types.StmtDelete, types.StmtStart,
		types.StmtReturn, types.StmtAdd, types.StmtSubtract, types.StmtMultiply, types.StmtDivide,
		types.StmtCompute, types.StmtCall, types.StmtString, types.StmtUnstring,
		types.StmtAccept, types.StmtDisplay, types.StmtInvoke:
		return true
	}
	return false
}

func isTerminator(tok types.Token) bool {
	return tok.Kind == types.TokenKeyword && strings.HasPrefix(tok.Text, "END-") && tok.Text != "END-OF-PAGE"
}

// atBodyEnd reports whether the current statement list ends here
func (pc *parseContext) atBodyEnd() bool {
	tok := pc.cur.Peek()
	switch {
	case tok.Kind == types.TokenPeriod, tok.Kind == types.TokenEOF:
		return true
	case tok.IsKeyword("ELSE", "WHEN", "COPY"), isTerminator(tok):
		return true
	}
	if _, n := pc.peekHandler(); n > 0 {
		return true
	}
	return pc.atStructuralHeader()
}

// peekHandler recognizes a handler phrase at the cursor and returns its
// normalized text and length in tokens.
func (pc *parseContext) peekHandler() (string, int) {
	cur := pc.cur
	i := 0
	not := cur.PeekAt(i).IsKeyword("NOT")
	if not {
		i++
	}
	prefixed := cur.PeekAt(i).IsKeyword("ON", "AT")
	if prefixed {
		i++
	}
	tok := cur.PeekAt(i)
	var phrase string
	switch {
	case tok.IsKeyword("END") && !cur.PeekAt(i+1).IsKeyword("PROGRAM", "DECLARATIVES"):
		phrase = "AT END"
		i++
	case tok.IsKeyword("END-OF-PAGE", "EOP"):
		phrase = "AT END-OF-PAGE"
		i++
	case tok.IsKeyword("INVALID"):
		phrase = "INVALID KEY"
		i++
		if cur.PeekAt(i).IsKeyword("KEY") {
			i++
		}
	case tok.IsKeyword("SIZE") && cur.PeekAt(i+1).IsKeyword("ERROR"):
		phrase = "ON SIZE ERROR"
		i += 2
	case tok.IsKeyword("OVERFLOW") && (prefixed || not):
		phrase = "ON OVERFLOW"
		i++
	case tok.IsKeyword("EXCEPTION") && (prefixed || not):
		phrase = "ON EXCEPTION"
		i++
	default:
		return "", 0
	}
	if not {
		phrase = "NOT " + phrase
	}
	return phrase, i
}

// parseBody parses statements until the body ends. Unknown words are
// skipped with an Info diagnostic.
func (pc *parseContext) parseBody() ([]types.Statement, error) {
	var stmts []types.Statement
	for !pc.atBodyEnd() {
		if _, ok := pc.verbAt(); !ok {
			pc.skipUnknown()
			continue
		}
		stmt, err := pc.parseStatement()
		if err != nil {
			return nil, err
		}
		stmts = append(stmts, stmt)
	}
	return stmts, nil
}

// parseNested parses a statement body one level deeper
func (pc *parseContext) parseNested(at types.Token) ([]types.Statement, error) {
	if err := pc.enter(at); err != nil {
		return nil, err
	}
	defer pc.leave()
	return pc.parseBody()
}

func (pc *parseContext) skipUnknown() {
	start := pc.cur.Advance()
	for !pc.atBodyEnd() {
		if _, ok := pc.verbAt(); ok {
			break
		}
		pc.cur.Advance()
	}
	pc.diags.Infof(types.CodeUnknownStatement, start.Location(), "unrecognized statement %q was skipped", start.Text)
}

// parseStatement parses one statement starting at its verb
func (pc *parseContext) parseStatement() (types.Statement, error) {
	kind, _ := pc.verbAt()
	verb := pc.cur.Advance()
	stmt := types.Statement{Kind: kind, Line: verb.Line, Column: verb.Column}

	var err error
	switch kind {
	case types.StmtIf:
		err = pc.parseIf(&stmt, verb)
	case types.StmtPerform:
		err = pc.parsePerform(&stmt, verb)
	case types.StmtEvaluate:
		err = pc.parseEvaluate(&stmt, verb)
	case types.StmtSearch:
		err = pc.parseSearch(&stmt, verb)
	case types.StmtExec:
		pc.parseExec(&stmt)
	case types.StmtNextSentence:
		pc.cur.Advance()
	case types.StmtExit:
		for pc.cur.Peek().IsKeyword("PROGRAM", "PERFORM", "PARAGRAPH", "SECTION", "CYCLE") {
			stmt.Operands = append(stmt.Operands, pc.cur.Advance().Text)
		}
	default:
		err = pc.parseSimple(&stmt, verb)
	}
	return stmt, err
}

func (pc *parseContext) parseIf(stmt *types.Statement, verb types.Token) error {
	cur := pc.cur
	cond, err := pc.parseCondition()
	if err != nil {
		return err
	}
	stmt.Condition = cond
	cur.AcceptKeyword("THEN")

	if stmt.Nested, err = pc.parseNested(verb); err != nil {
		return err
	}
	if cur.AcceptKeyword("ELSE") {
		if stmt.Else, err = pc.parseNested(verb); err != nil {
			return err
		}
	}
	cur.AcceptKeyword("END-IF")
	return nil
}

// parsePerform handles both forms:
//
//	PERFORM p [THRU q] [phrase]
//	PERFORM [phrase] statements END-PERFORM
func (pc *parseContext) parsePerform(stmt *types.Statement, verb types.Token) error {
	cur := pc.cur
	inline := true
	if tok := cur.Peek(); isProcedureName(tok) && !cur.PeekAt(1).IsKeyword("TIMES") {
		inline = false
		stmt.ProcedureRefs = append(stmt.ProcedureRefs, pc.procedureName())
		if cur.AcceptKeyword("THRU", "THROUGH") && isProcedureName(cur.Peek()) {
			stmt.ProcedureRefs = append(stmt.ProcedureRefs, pc.procedureName())
		}
	}
	if err := pc.performPhrases(stmt); err != nil {
		return err
	}
	if !inline {
		return nil
	}

	body, err := pc.parseNested(verb)
	if err != nil {
		return err
	}
	stmt.Nested = body
	if !cur.AcceptKeyword("END-PERFORM") {
		pc.diags.Warnf(types.CodeMissingTerminator, stmt.Location(), "inline PERFORM is not closed by END-PERFORM")
	}
	return nil
}

func (pc *parseContext) performPhrases(stmt *types.Statement) error {
	cur := pc.cur
	for {
		tok := cur.Peek()
		switch {
		case tok.IsKeyword("WITH", "TEST"):
			cur.AcceptKeyword("WITH")
			cur.AcceptKeyword("TEST")
			if when := cur.Peek(); when.IsKeyword("BEFORE", "AFTER") {
				cur.Advance()
				stmt.Operands = append(stmt.Operands, "TEST "+when.Text)
			}
		case (tok.Kind == types.TokenIdentifier || tok.Kind == types.TokenNumber) && cur.PeekAt(1).IsKeyword("TIMES"):
			cur.Advance()
			cur.Advance()
			stmt.Times = tok.Text
		case tok.IsKeyword("UNTIL"):
			cur.Advance()
			cond, err := pc.parseCondition()
			if err != nil {
				return err
			}
			if stmt.Condition == nil {
				stmt.Condition = cond
			}
		case tok.IsKeyword("VARYING", "AFTER"):
			// VARYING i FROM x BY y; the UNTIL that follows is picked up
			// on the next iteration.
			cur.Advance()
			clause := []string{tok.Text}
			for !pc.atBodyEnd() && !cur.Peek().IsKeyword("UNTIL") {
				if _, ok := pc.verbAt(); ok {
					break
				}
				clause = append(clause, cur.Advance().Text)
			}
			stmt.Operands = append(stmt.Operands, strings.Join(clause, " "))
		default:
			return nil
		}
	}
}

func (pc *parseContext) parseEvaluate(stmt *types.Statement, verb types.Token) error {
	cur := pc.cur
	subject := pc.operandTokens()
	stmt.Operands = operandTexts(subject, false)
	conditional := len(subject) == 1 && subject[0].IsKeyword("TRUE")

	for cur.Peek().IsKeyword("WHEN") {
		cur.Advance()
		var br types.WhenBranch
		switch {
		case cur.AcceptKeyword("OTHER"):
			br.Other = true
		case conditional:
			cond, err := pc.parseCondition()
			if err != nil {
				return err
			}
			br.Condition = cond
		default:
			br.Objects = operandTexts(pc.operandTokens(), false)
		}
		body, err := pc.parseNested(verb)
		if err != nil {
			return err
		}
		br.Statements = body
		stmt.Branches = append(stmt.Branches, br)
	}
	cur.AcceptKeyword("END-EVALUATE")
	return nil
}

func (pc *parseContext) parseSearch(stmt *types.Statement, verb types.Token) error {
	cur := pc.cur
	stmt.Operands = operandTexts(pc.operandTokens(), false)

	if phrase, n := pc.peekHandler(); n > 0 && strings.HasSuffix(phrase, "AT END") {
		for i := 0; i < n; i++ {
			cur.Advance()
		}
		body, err := pc.parseNested(verb)
		if err != nil {
			return err
		}
		stmt.Handlers = append(stmt.Handlers, types.Handler{Phrase: phrase, Statements: body})
	}

	for cur.AcceptKeyword("WHEN") {
		cond, err := pc.parseCondition()
		if err != nil {
			return err
		}
		body, err := pc.parseNested(verb)
		if err != nil {
			return err
		}
		stmt.Branches = append(stmt.Branches, types.WhenBranch{Condition: cond, Statements: body})
	}
	cur.AcceptKeyword("END-SEARCH")
	return nil
}

// parseExec keeps the embedded statement as raw tokens
func (pc *parseContext) parseExec(stmt *types.Statement) {
	cur := pc.cur
	for !cur.AtEOF() && cur.Peek().Kind != types.TokenPeriod && !cur.Peek().IsKeyword("END-EXEC") {
		stmt.Operands = append(stmt.Operands, cur.Advance().Text)
	}
	cur.AcceptKeyword("END-EXEC")
}

// parseSimple handles every verb without a statement body of its own
func (pc *parseContext) parseSimple(stmt *types.Statement, verb types.Token) error {
	cur := pc.cur
	toks := pc.operandTokens()
	stmt.Operands = operandTexts(toks, false)

	switch stmt.Kind {
	case types.StmtMove:
		before, after, _ := splitAt(toks, "TO")
		stmt.Operands = operandTexts(before, false)
		stmt.Targets = operandTexts(after, true)
	case types.StmtCompute:
		before, after, ok := splitAt(toks, "=", "EQUAL")
		if ok {
			stmt.Targets = operandTexts(before, true)
			stmt.Operands = operandTexts(after, false)
		}
	case types.StmtAdd:
		stmt.Targets = receiving(toks, "TO")
	case types.StmtSubtract:
		stmt.Targets = receiving(toks, "FROM")
	case types.StmtMultiply:
		stmt.Targets = receiving(toks, "BY")
	case types.StmtDivide:
		stmt.Targets = receiving(toks, "INTO")
		if _, rem, ok := splitAt(toks, "REMAINDER"); ok {
			stmt.Targets = append(stmt.Targets, operandTexts(rem, true)...)
		}
	case types.StmtInitialize:
		before, _, _ := splitAt(toks, "REPLACING")
		stmt.Targets = operandTexts(before, true)
	case types.StmtAccept:
		if ids := operandTexts(toks, true); len(ids) > 0 {
			stmt.Targets = ids[:1]
		}
	case types.StmtSet:
		before, _, _ := splitAt(toks, "TO", "UP", "DOWN")
		stmt.Targets = operandTexts(before, true)
	case types.StmtString, types.StmtUnstring, types.StmtRead, types.StmtReturn:
		if _, after, ok := splitAt(toks, "INTO"); ok {
			stmt.Targets = operandTexts(leadingOperands(after), true)
		}
	case types.StmtGoTo:
		before, after, _ := splitAt(toks, "DEPENDING")
		stmt.ProcedureRefs = procedureNames(before)
		if len(after) > 0 {
			stmt.Operands = operandTexts(after, true)
		}
	case types.StmtAlter:
		stmt.ProcedureRefs = procedureNames(toks)
	case types.StmtSort, types.StmtMerge:
		stmt.ProcedureRefs = sortProcedures(toks)
	}

	if acceptsHandlers(stmt.Kind) {
		for {
			phrase, n := pc.peekHandler()
			if n == 0 {
				break
			}
			for i := 0; i < n; i++ {
				cur.Advance()
			}
			body, err := pc.parseNested(verb)
			if err != nil {
				return err
			}
			stmt.Handlers = append(stmt.Handlers, types.Handler{Phrase: phrase, Statements: body})
		}
	}
	cur.Accept(types.TokenKeyword, "END-"+verb.Text)
	return nil
}

// operandTokens collects the tokens of a statement up to the next verb or
// the end of the body.
func (pc *parseContext) operandTokens() []types.Token {
	var toks []types.Token
	for !pc.atBodyEnd() {
		if _, ok := pc.verbAt(); ok {
			break
		}
		toks = append(toks, pc.cur.Advance())
	}
	return toks
}

// operandTexts renders tokens as operands. An identifier immediately
// followed by ( absorbs the balanced subscript or reference modification.
// With identsOnly, keywords, literals and numbers are dropped.
func operandTexts(toks []types.Token, identsOnly bool) []string {
	var out []string
	for i := 0; i < len(toks); i++ {
		tok := toks[i]
		if tok.Kind == types.TokenSeparator && (tok.Text == "," || tok.Text == ";") {
			continue
		}
		if tok.Kind == types.TokenIdentifier && i+1 < len(toks) && adjacentParen(tok, toks[i+1]) {
			j := closingParen(toks, i+1)
			out = append(out, joinTokens(toks[i:j+1]))
			i = j
			continue
		}
		if identsOnly && tok.Kind != types.TokenIdentifier {
			continue
		}
		out = append(out, tok.Text)
	}
	return out
}

func adjacentParen(tok, next types.Token) bool {
	return next.Is(types.TokenSeparator, "(") && next.Line == tok.Line && next.Column == tok.End()
}

// closingParen returns the index of the ) matching the ( at open, or the
// last index when it is unbalanced.
func closingParen(toks []types.Token, open int) int {
	depth := 0
	for j := open; j < len(toks); j++ {
		switch {
		case toks[j].Is(types.TokenSeparator, "("):
			depth++
		case toks[j].Is(types.TokenSeparator, ")"):
			depth--
			if depth == 0 {
				return j
			}
		}
	}
	return len(toks) - 1
}

// splitAt splits toks at the first top-level occurrence of one of the
// keywords or operators in words.
func splitAt(toks []types.Token, words ...string) (before, after []types.Token, ok bool) {
	depth := 0
	for i, tok := range toks {
		switch {
		case tok.Is(types.TokenSeparator, "("):
			depth++
		case tok.Is(types.TokenSeparator, ")"):
			depth--
		case depth == 0 && (tok.Kind == types.TokenKeyword || tok.Kind == types.TokenOperator):
			for _, w := range words {
				if tok.Text == w {
					return toks[:i], toks[i+1:], true
				}
			}
		}
	}
	return toks, nil, false
}

// receiving returns the targets of an arithmetic statement: GIVING
// operands when present, otherwise the operands after the given word.
func receiving(toks []types.Token, word string) []string {
	if _, after, ok := splitAt(toks, "GIVING"); ok {
		return operandTexts(leadingOperands(after), true)
	}
	_, after, _ := splitAt(toks, word)
	after, _, _ = splitAt(after, "GIVING", "REMAINDER")
	return operandTexts(after, true)
}

// leadingOperands returns the operand run before the next phrase keyword
func leadingOperands(toks []types.Token) []types.Token {
	for i, tok := range toks {
		if tok.Kind == types.TokenKeyword && !tok.IsKeyword("ROUNDED", "OF", "IN") {
			return toks[:i]
		}
	}
	return toks
}

func isProcedureName(tok types.Token) bool {
	return tok.Kind == types.TokenIdentifier || tok.Kind == types.TokenNumber
}

// procedureName consumes a paragraph or section name, dropping an OF/IN
// qualifier.
func (pc *parseContext) procedureName() string {
	name := pc.cur.Advance().Text
	if pc.cur.AcceptKeyword("OF", "IN") {
		pc.cur.Advance()
	}
	return name
}

// procedureNames extracts procedure names from GO TO and ALTER operands
func procedureNames(toks []types.Token) []string {
	var names []string
	for i := 0; i < len(toks); i++ {
		tok := toks[i]
		if tok.IsKeyword("OF", "IN") {
			i++
			continue
		}
		if isProcedureName(tok) {
			names = append(names, tok.Text)
		}
	}
	return names
}

// sortProcedures extracts INPUT/OUTPUT PROCEDURE [IS] p [THRU q] names
func sortProcedures(toks []types.Token) []string {
	var names []string
	c := clauseReader{toks: toks}
	for !c.done() {
		tok := c.next()
		if !tok.IsKeyword("INPUT", "OUTPUT") || !c.peek().IsKeyword("PROCEDURE") {
			continue
		}
		c.next()
		c.skip("IS")
		if isProcedureName(c.peek()) {
			names = append(names, c.next().Text)
		}
		if c.peek().IsKeyword("THRU", "THROUGH") {
			c.next()
			if isProcedureName(c.peek()) {
				names = append(names, c.next().Text)
			}
		}
	}
	return names
}
