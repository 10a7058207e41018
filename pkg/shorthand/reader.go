package shorthand

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/perrin-dev/sequoia/pkg/expr"
	"github.com/perrin-dev/sequoia/pkg/types"
)

// Read parses source into a raw expression tree against the given
// static context (slot allocation for let/for bindings happens during
// the read). The tree still needs the static analysis passes; callers
// normally hand it straight to program.Compile.
func Read(source string, sc *expr.StaticContext) (expr.Expression, error) {
	if sc == nil {
		sc = expr.NewStaticContext()
	}
	r := &reader{lex: newLexer(source), source: source, sc: sc}
	r.advance()
	e, err := r.parseExpr()
	if err != nil {
		return nil, err
	}
	if r.tok.typ != tokEOF {
		return nil, r.syntaxError("unexpected %q after end of expression", r.tok.val)
	}
	return e, nil
}

type reader struct {
	lex    *lexer
	source string
	sc     *expr.StaticContext
	tok    token
	scopes []map[string]*expr.Binding
}

func (r *reader) advance() {
	r.tok = r.lex.next()
}

func (r *reader) syntaxError(format string, args ...any) error {
	return types.NewStaticError(types.ErrSyntax,
		fmt.Sprintf(format, args...)).WithLocation(r.location(r.tok.pos))
}

// location converts a byte offset into a line/column position.
func (r *reader) location(pos int) types.Location {
	line, col := 1, 1
	for _, ch := range r.source[:pos] {
		if ch == '\n' {
			line++
			col = 1
		} else {
			col++
		}
	}
	return types.Location{Line: line, Column: col}
}

// locate stamps a node with the position of the token that started it.
func (r *reader) locate(e expr.Expression, pos int) expr.Expression {
	if s, ok := e.(interface{ SetLocation(types.Location) }); ok {
		s.SetLocation(r.location(pos))
	}
	return e
}

func (r *reader) expectSymbol(sym string) error {
	if !r.tok.is(sym) {
		return r.syntaxError("expected %q, found %q", sym, r.tok.val)
	}
	r.advance()
	return nil
}

func (r *reader) expectName(name string) error {
	if !r.tok.isName(name) {
		return r.syntaxError("expected %q, found %q", name, r.tok.val)
	}
	r.advance()
	return nil
}

func (r *reader) pushScope() { r.scopes = append(r.scopes, map[string]*expr.Binding{}) }
func (r *reader) popScope() { r.scopes = r.scopes[:len(r.scopes)-1] }

func (r *reader) declare(name string, b *expr.Binding) {
	r.scopes[len(r.scopes)-1][name] = b
}

func (r *reader) resolve(name string) *expr.Binding {
	for i := len(r.scopes) - 1; i >= 0; i-- {
		if b, ok := r.scopes[i][name]; ok {
			return b
		}
	}
	return nil
}

func (r *reader) parseExpr() (expr.Expression, error) {
	return r.parseOr()
}

func (r *reader) parseOr() (expr.Expression, error) {
	lhs, err := r.parseAnd()
	if err != nil {
		return nil, err
	}
	for r.tok.isName("or") {
		pos := r.tok.pos
		r.advance()
		rhs, err := r.parseAnd()
		if err != nil {
			return nil, err
		}
		lhs = r.locate(expr.NewOr(lhs, rhs), pos)
	}
	return lhs, nil
}

func (r *reader) parseAnd() (expr.Expression, error) {
	lhs, err := r.parseComparison()
	if err != nil {
		return nil, err
	}
	for r.tok.isName("and") {
		pos := r.tok.pos
		r.advance()
		rhs, err := r.parseComparison()
		if err != nil {
			return nil, err
		}
		lhs = r.locate(expr.NewAnd(lhs, rhs), pos)
	}
	return lhs, nil
}

var comparisonOps = map[string]expr.CompareOp{
	"=":  expr.OpEq,
	"!=": expr.OpNe,
	"<":  expr.OpLt,
	"<=": expr.OpLe,
	">":  expr.OpGt,
	">=": expr.OpGe,
}

func (r *reader) parseComparison() (expr.Expression, error) {
	lhs, err := r.parseRange()
	if err != nil {
		return nil, err
	}
	if r.tok.typ == tokSymbol {
		if op, ok := comparisonOps[r.tok.val]; ok {
			pos := r.tok.pos
			r.advance()
			rhs, err := r.parseRange()
			if err != nil {
				return nil, err
			}
			return r.locate(expr.NewValueComparison(op, lhs, rhs), pos), nil
		}
	}
	return lhs, nil
}

func (r *reader) parseRange() (expr.Expression, error) {
	lhs, err := r.parseAdditive()
	if err != nil {
		return nil, err
	}
	if r.tok.isName("to") || r.tok.is("..") {
		pos := r.tok.pos
		r.advance()
		rhs, err := r.parseAdditive()
		if err != nil {
			return nil, err
		}
		return r.locate(expr.NewRange(lhs, rhs), pos), nil
	}
	return lhs, nil
}

func (r *reader) parseAdditive() (expr.Expression, error) {
	lhs, err := r.parseMultiplicative()
	if err != nil {
		return nil, err
	}
	for r.tok.is("+") || r.tok.is("-") {
		op := expr.OpPlus
		if r.tok.is("-") {
			op = expr.OpMinus
		}
		pos := r.tok.pos
		r.advance()
		rhs, err := r.parseMultiplicative()
		if err != nil {
			return nil, err
		}
		lhs = r.locate(expr.NewArithmetic(op, lhs, rhs), pos)
	}
	return lhs, nil
}

func (r *reader) parseMultiplicative() (expr.Expression, error) {
	lhs, err := r.parseCast()
	if err != nil {
		return nil, err
	}
	for {
		var op expr.ArithOp
		switch {
		case r.tok.is("*"):
			op = expr.OpTimes
		case r.tok.isName("div"):
			op = expr.OpDiv
		case r.tok.isName("mod"):
			op = expr.OpMod
		default:
			return lhs, nil
		}
		pos := r.tok.pos
		r.advance()
		rhs, err := r.parseCast()
		if err != nil {
			return nil, err
		}
		lhs = r.locate(expr.NewArithmetic(op, lhs, rhs), pos)
	}
}

func (r *reader) parseCast() (expr.Expression, error) {
	operand, err := r.parseUnary()
	if err != nil {
		return nil, err
	}
	castable := false
	switch {
	case r.tok.isName("cast"):
	case r.tok.isName("castable"):
		castable = true
	default:
		return operand, nil
	}
	pos := r.tok.pos
	r.advance()
	if err := r.expectName("as"); err != nil {
		return nil, err
	}
	if r.tok.typ != tokName {
		return nil, r.syntaxError("expected a type name, found %q", r.tok.val)
	}
	target, ok := types.AtomicTypeByName(r.tok.val)
	if !ok {
		return nil, types.NewStaticError(types.ErrUndeclaredVariable,
			fmt.Sprintf("unknown atomic type %q", r.tok.val)).WithLocation(r.location(r.tok.pos))
	}
	r.advance()
	allowEmpty := false
	if r.tok.is("?") {
		allowEmpty = true
		r.advance()
	}
	if castable {
		return r.locate(expr.NewCastable(operand, target, allowEmpty, r.sc.Namespaces), pos), nil
	}
	return r.locate(expr.NewCast(operand, target, allowEmpty, r.sc.Namespaces), pos), nil
}

func (r *reader) parseUnary() (expr.Expression, error) {
	if r.tok.is("-") {
		pos := r.tok.pos
		r.advance()
		operand, err := r.parseUnary()
		if err != nil {
			return nil, err
		}
		zero := expr.NewSingletonLiteral(types.IntegerValue(0))
		return r.locate(expr.NewArithmetic(expr.OpMinus, zero, operand), pos), nil
	}
	return r.parsePath()
}

func (r *reader) parsePath() (expr.Expression, error) {
	lhs, err := r.parseStep()
	if err != nil {
		return nil, err
	}
	for r.tok.is("/") {
		pos := r.tok.pos
		r.advance()
		rhs, err := r.parseStep()
		if err != nil {
			return nil, err
		}
		lhs = r.locate(expr.NewPath(lhs, rhs), pos)
	}
	return lhs, nil
}

func (r *reader) parseStep() (expr.Expression, error) {
	e, err := r.parsePrimary()
	if err != nil {
		return nil, err
	}
	for r.tok.is("[") {
		pos := r.tok.pos
		r.advance()
		pred, err := r.parseExpr()
		if err != nil {
			return nil, err
		}
		if err := r.expectSymbol("]"); err != nil {
			return nil, err
		}
		e = r.locate(expr.NewFilter(e, pred), pos)
	}
	return e, nil
}

var axisByName = map[string]expr.Axis{
	"child":              expr.AxisChild,
	"attribute":          expr.AxisAttribute,
	"self":               expr.AxisSelf,
	"parent":             expr.AxisParent,
	"descendant":         expr.AxisDescendant,
	"descendant-or-self": expr.AxisDescendantOrSelf,
	"ancestor":           expr.AxisAncestor,
	"ancestor-or-self":   expr.AxisAncestorOrSelf,
	"following-sibling":  expr.AxisFollowingSibling,
	"preceding-sibling":  expr.AxisPrecedingSibling,
	"following":          expr.AxisFollowing,
	"preceding":          expr.AxisPreceding,
}

func (r *reader) parsePrimary() (expr.Expression, error) {
	pos := r.tok.pos
	if r.tok.typ == tokError {
		return nil, types.NewStaticError(types.ErrSyntax, r.tok.val).WithLocation(r.location(pos))
	}
	switch {
	case r.tok.typ == tokNumber:
		return r.parseNumber()

	case r.tok.typ == tokString:
		v := types.StringValue(r.tok.val)
		r.advance()
		return r.locate(expr.NewSingletonLiteral(v), pos), nil

	case r.tok.typ == tokVariable:
		name := r.tok.val
		r.advance()
		ref := expr.NewVariableReference(name)
		if b := r.resolve(name); b != nil {
			ref.FixUp(b)
		}
		return r.locate(ref, pos), nil

	case r.tok.is("."):
		r.advance()
		return r.locate(expr.NewContextItem(), pos), nil

	case r.tok.is("("):
		return r.parseParenthesized()

	case r.tok.is("@"):
		r.advance()
		return r.parseNodeTest(expr.AxisAttribute, types.KindAttribute, pos)

	case r.tok.is("*"):
		r.advance()
		return r.locate(expr.NewAxisExpression(expr.AxisChild, expr.KindTest{NodeKind: types.KindElement}), pos), nil

	case r.tok.typ == tokName:
		return r.parseNameLed()
	}
	return nil, r.syntaxError("unexpected %q", r.tok.val)
}

func (r *reader) parseNumber() (expr.Expression, error) {
	pos := r.tok.pos
	text := r.tok.val
	r.advance()
	if strings.ContainsRune(text, '.') {
		f, err := strconv.ParseFloat(text, 64)
		if err != nil {
			return nil, r.syntaxError("invalid number %q", text)
		}
		return r.locate(expr.NewSingletonLiteral(types.DoubleValue(f)), pos), nil
	}
	n, err := strconv.ParseInt(text, 10, 64)
	if err != nil {
		return nil, r.syntaxError("invalid number %q", text)
	}
	return r.locate(expr.NewSingletonLiteral(types.IntegerValue(n)), pos), nil
}

func (r *reader) parseParenthesized() (expr.Expression, error) {
	pos := r.tok.pos
	r.advance()
	if r.tok.is(")") {
		r.advance()
		return r.locate(expr.NewEmptyLiteral(), pos), nil
	}
	var operands []expr.Expression
	for {
		e, err := r.parseExpr()
		if err != nil {
			return nil, err
		}
		operands = append(operands, e)
		if !r.tok.is(",") {
			break
		}
		r.advance()
	}
	if err := r.expectSymbol(")"); err != nil {
		return nil, err
	}
	if len(operands) == 1 {
		return operands[0], nil
	}
	return r.locate(expr.NewBlock(operands), pos), nil
}

// parseNameLed handles every construct introduced by a bare name:
// keywords, axis steps, and function calls.
func (r *reader) parseNameLed() (expr.Expression, error) {
	pos := r.tok.pos
	name := r.tok.val

	switch name {
	case "if":
		return r.parseIf()
	case "let":
		return r.parseLet()
	case "for":
		return r.parseFor()
	}

	r.advance()

	if r.tok.is("::") {
		axis, ok := axisByName[name]
		if !ok {
			return nil, types.NewStaticError(types.ErrSyntax,
				fmt.Sprintf("unknown axis %q", name)).WithLocation(r.location(pos))
		}
		r.advance()
		kind := types.KindElement
		if axis == expr.AxisAttribute {
			kind = types.KindAttribute
		}
		return r.parseNodeTest(axis, kind, pos)
	}

	if r.tok.is("(") {
		return r.parseCall(name, pos)
	}

	// A bare name is a child-axis element step.
	test := expr.NameTest{NodeKind: types.KindElement, Name: types.QNameValue{Local: name}}
	return r.locate(expr.NewAxisExpression(expr.AxisChild, test), pos), nil
}

// parseNodeTest reads the node test after an axis marker. The leading
// name has not been consumed yet.
func (r *reader) parseNodeTest(axis expr.Axis, kind types.NodeKind, pos int) (expr.Expression, error) {
	if r.tok.is("*") {
		r.advance()
		return r.locate(expr.NewAxisExpression(axis, expr.KindTest{NodeKind: kind}), pos), nil
	}
	if r.tok.typ != tokName {
		return nil, r.syntaxError("expected a node test, found %q", r.tok.val)
	}
	name := r.tok.val
	r.advance()
	if r.tok.is("(") {
		// Kind tests: node(), text(), comment().
		r.advance()
		if err := r.expectSymbol(")"); err != nil {
			return nil, err
		}
		switch name {
		case "node":
			return r.locate(expr.NewAxisExpression(axis, expr.AnyNodeTest{}), pos), nil
		case "text":
			return r.locate(expr.NewAxisExpression(axis, expr.KindTest{NodeKind: types.KindText}), pos), nil
		case "comment":
			return r.locate(expr.NewAxisExpression(axis, expr.KindTest{NodeKind: types.KindComment}), pos), nil
		}
		return nil, types.NewStaticError(types.ErrSyntax,
			fmt.Sprintf("unknown kind test %q", name)).WithLocation(r.location(pos))
	}
	test := expr.NameTest{NodeKind: kind, Name: types.QNameValue{Local: name}}
	return r.locate(expr.NewAxisExpression(axis, test), pos), nil
}

func (r *reader) parseCall(name string, pos int) (expr.Expression, error) {
	r.advance()
	var args []expr.Expression
	if !r.tok.is(")") {
		for {
			a, err := r.parseExpr()
			if err != nil {
				return nil, err
			}
			args = append(args, a)
			if !r.tok.is(",") {
				break
			}
			r.advance()
		}
	}
	if err := r.expectSymbol(")"); err != nil {
		return nil, err
	}

	if name == "trace" {
		if len(args) != 2 {
			return nil, types.NewStaticError(types.ErrUnknownFunction,
				"trace() takes an expression and a label").WithLocation(r.location(pos))
		}
		label := ""
		if lit, ok := args[1].(*expr.Literal); ok && len(lit.Value()) == 1 {
			label = lit.Value()[0].StringValue()
		}
		return r.locate(expr.NewTrace(args[0], "trace", label), pos), nil
	}

	fc, err := expr.NewFunctionCall(name, args)
	if err == nil {
		return r.locate(fc, pos), nil
	}
	if _, declared := r.sc.Functions.Lookup(name, len(args)); declared {
		return r.locate(expr.NewUserFunctionCall(name, args), pos), nil
	}
	return nil, types.AsEngineError(err).WithLocation(r.location(pos))
}

func (r *reader) parseIf() (expr.Expression, error) {
	pos := r.tok.pos
	r.advance()
	if err := r.expectSymbol("("); err != nil {
		return nil, err
	}
	cond, err := r.parseExpr()
	if err != nil {
		return nil, err
	}
	if err := r.expectSymbol(")"); err != nil {
		return nil, err
	}
	if err := r.expectName("then"); err != nil {
		return nil, err
	}
	thenE, err := r.parseExpr()
	if err != nil {
		return nil, err
	}
	if err := r.expectName("else"); err != nil {
		return nil, err
	}
	elseE, err := r.parseExpr()
	if err != nil {
		return nil, err
	}
	return r.locate(expr.NewIf(cond, thenE, elseE), pos), nil
}

func (r *reader) parseLet() (expr.Expression, error) {
	pos := r.tok.pos
	r.advance()
	if r.tok.typ != tokVariable {
		return nil, r.syntaxError("expected a variable after let, found %q", r.tok.val)
	}
	name := r.tok.val
	r.advance()
	if err := r.expectSymbol(":="); err != nil {
		return nil, err
	}
	seq, err := r.parseExpr()
	if err != nil {
		return nil, err
	}
	if err := r.expectName("return"); err != nil {
		return nil, err
	}

	let := expr.NewLet(name, seq, nil)
	let.Allocate(r.sc.Slots)
	r.pushScope()
	r.declare(name, let.Binding())
	body, err := r.parseExpr()
	r.popScope()
	if err != nil {
		return nil, err
	}
	let.SetBody(body)
	return r.locate(let, pos), nil
}

func (r *reader) parseFor() (expr.Expression, error) {
	pos := r.tok.pos
	r.advance()
	if r.tok.typ != tokVariable {
		return nil, r.syntaxError("expected a variable after for, found %q", r.tok.val)
	}
	name := r.tok.val
	r.advance()
	if err := r.expectName("in"); err != nil {
		return nil, err
	}
	seq, err := r.parseExpr()
	if err != nil {
		return nil, err
	}
	if err := r.expectName("return"); err != nil {
		return nil, err
	}

	forE := expr.NewFor(name, seq, nil)
	forE.Allocate(r.sc.Slots)
	r.pushScope()
	r.declare(name, forE.Binding())
	body, err := r.parseExpr()
	r.popScope()
	if err != nil {
		return nil, err
	}
	forE.SetBody(body)
	return r.locate(forE, pos), nil
}
