package expr

import (
	"io"
	"math"

	"github.com/perrin-dev/sequoia/pkg/iter"
	"github.com/perrin-dev/sequoia/pkg/types"
)

// ArithOp is an arithmetic operator.
type ArithOp int

const (
	OpPlus ArithOp = iota
	OpMinus
	OpTimes
	OpDiv
	OpMod
)

var arithOpNames = map[ArithOp]string{
	OpPlus:  "+",
	OpMinus: "-",
	OpTimes: "*",
	OpDiv:   "div",
	OpMod:   "mod",
}

func (op ArithOp) String() string { return arithOpNames[op] }

// Arithmetic applies a binary arithmetic operator to two atomized
// singleton operands. An empty operand makes the result empty; untyped
// operands are coerced to double.
type Arithmetic struct {
	baseExpr
	op  ArithOp
	lhs Expression
	rhs Expression
}

// NewArithmetic builds an arithmetic expression.
func NewArithmetic(op ArithOp, lhs, rhs Expression) *Arithmetic {
	return &Arithmetic{op: op, lhs: lhs, rhs: rhs}
}

func (a *Arithmetic) Simplify() (Expression, error) {
	var err error
	if a.lhs, err = a.lhs.Simplify(); err != nil {
		return nil, err
	}
	if a.rhs, err = a.rhs.Simplify(); err != nil {
		return nil, err
	}
	return a, nil
}

func (a *Arithmetic) TypeCheck(sc *StaticContext) (Expression, error) {
	var err error
	if a.lhs, err = a.lhs.TypeCheck(sc); err != nil {
		return nil, err
	}
	if a.rhs, err = a.rhs.TypeCheck(sc); err != nil {
		return nil, err
	}
	// A statically non-numeric, non-untyped operand is a type error
	// regardless of reachability of any particular value.
	for _, side := range []Expression{a.lhs, a.rhs} {
		if at, ok := side.ItemType().AtomicTypeOf(); ok {
			if !at.IsNumeric() && at != types.TypeUntypedAtomic {
				return sc.demote(types.NewTypeError(types.ErrTypeMismatch,
					"operand of "+a.op.String()+" is a "+at.String()), a.loc)
			}
		}
	}
	return a, nil
}

func (a *Arithmetic) Optimize(sc *StaticContext) (Expression, error) {
	var err error
	if a.lhs, err = a.lhs.Optimize(sc); err != nil {
		return nil, err
	}
	if a.rhs, err = a.rhs.Optimize(sc); err != nil {
		return nil, err
	}
	return foldIfConstant(a, sc)
}

func (a *Arithmetic) ItemType() types.ItemType {
	lt, lok := a.lhs.ItemType().AtomicTypeOf()
	rt, rok := a.rhs.ItemType().AtomicTypeOf()
	if lok && rok && lt == types.TypeInteger && rt == types.TypeInteger && a.op != OpDiv {
		return types.AtomicItemType(types.TypeInteger)
	}
	return types.AtomicItemType(types.TypeDouble)
}

func (a *Arithmetic) Cardinality() types.Cardinality {
	// Empty in, empty out; otherwise exactly one.
	card := types.CardExactlyOne
	if a.lhs.Cardinality().AllowsZero() || a.rhs.Cardinality().AllowsZero() {
		card = types.CardZeroOrOne
	}
	return card
}

func (a *Arithmetic) Dependencies() Dependency { return dependenciesOf(a.lhs, a.rhs) }
func (a *Arithmetic) Children() []Expression { return []Expression{a.lhs, a.rhs} }

// operand atomizes one side to an optional numeric value, reporting
// whether it was an integer.
func (a *Arithmetic) operand(e Expression, c *Context) (float64, bool, bool, error) {
	items, err := evaluate(e, c)
	if err != nil {
		return 0, false, false, err
	}
	if len(items) == 0 {
		return 0, false, false, nil
	}
	if len(items) > 1 {
		return 0, false, false, types.NewTypeError(types.ErrTypeMismatch,
			"operand of "+a.op.String()+" is a sequence of more than one item").WithLocation(a.loc)
	}
	av := types.Atomize(items[0])
	if n, ok := av.(types.IntegerValue); ok {
		return float64(n), true, true, nil
	}
	if n, ok := types.NumericValue(av); ok {
		return n, false, true, nil
	}
	conv := types.Converter(av.AtomicType(), types.TypeDouble)
	if conv == nil {
		return 0, false, false, types.NewTypeError(types.ErrTypeMismatch,
			"operand of "+a.op.String()+" is a "+av.AtomicType().String()).WithLocation(a.loc)
	}
	v, cerr := conv(av)
	if cerr != nil {
		return 0, false, false, cerr.WithLocation(a.loc)
	}
	return float64(v.(types.DoubleValue)), false, true, nil
}

func (a *Arithmetic) EvaluateItem(c *Context) (types.Item, error) {
	lv, lint, lok, err := a.operand(a.lhs, c)
	if err != nil {
		return nil, err
	}
	rv, rint, rok, err := a.operand(a.rhs, c)
	if err != nil {
		return nil, err
	}
	if !lok || !rok {
		return nil, nil
	}

	if lint && rint && a.op != OpDiv {
		li, ri := int64(lv), int64(rv)
		switch a.op {
		case OpPlus:
			return types.IntegerValue(li + ri), nil
		case OpMinus:
			return types.IntegerValue(li - ri), nil
		case OpTimes:
			return types.IntegerValue(li * ri), nil
		case OpMod:
			if ri == 0 {
				return nil, types.NewDynamicError(types.ErrDivisionByZero,
					"integer mod by zero").WithLocation(a.loc)
			}
			return types.IntegerValue(li % ri), nil
		}
	}

	switch a.op {
	case OpPlus:
		return types.DoubleValue(lv + rv), nil
	case OpMinus:
		return types.DoubleValue(lv - rv), nil
	case OpTimes:
		return types.DoubleValue(lv * rv), nil
	case OpDiv:
		if rv == 0 && lint && rint {
			return nil, types.NewDynamicError(types.ErrDivisionByZero,
				"integer division by zero").WithLocation(a.loc)
		}
		return types.DoubleValue(lv / rv), nil
	case OpMod:
		return types.DoubleValue(math.Mod(lv, rv)), nil
	}
	return nil, types.NewDynamicError(types.ErrTypeMismatch, "unknown arithmetic operator")
}

func (a *Arithmetic) Iterate(c *Context) (iter.SequenceIterator, error) {
	return iterateViaItem(a, c)
}

func (a *Arithmetic) Process(c *Context) error { return processViaIterate(a, c) }

func (a *Arithmetic) Explain(w io.Writer, depth int) {
	explainf(w, depth, "arithmetic %s", a.op)
	a.lhs.Explain(w, depth+1)
	a.rhs.Explain(w, depth+1)
}
