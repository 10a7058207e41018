package expr

import (
	"io"

	"github.com/perrin-dev/sequoia/pkg/compare"
	"github.com/perrin-dev/sequoia/pkg/iter"
	"github.com/perrin-dev/sequoia/pkg/types"
)

// CompareOp is a value-comparison operator.
type CompareOp int

const (
	OpEq CompareOp = iota
	OpNe
	OpLt
	OpLe
	OpGt
	OpGe
)

var compareOpNames = map[CompareOp]string{
	OpEq: "eq", OpNe: "ne", OpLt: "lt", OpLe: "le", OpGt: "gt", OpGe: "ge",
}

func (op CompareOp) String() string { return compareOpNames[op] }

// ValueComparison compares two atomized singleton operands through a
// pluggable atomic comparer fixed at compile time. An empty operand
// makes the result empty.
type ValueComparison struct {
	baseExpr
	op       CompareOp
	lhs, rhs Expression
	comparer compare.AtomicComparer
}

// NewValueComparison builds a comparison; the comparer is resolved
// during type-checking from the static collation when nil.
func NewValueComparison(op CompareOp, lhs, rhs Expression) *ValueComparison {
	return &ValueComparison{op: op, lhs: lhs, rhs: rhs}
}

func (v *ValueComparison) Simplify() (Expression, error) {
	var err error
	if v.lhs, err = v.lhs.Simplify(); err != nil {
		return nil, err
	}
	if v.rhs, err = v.rhs.Simplify(); err != nil {
		return nil, err
	}
	return v, nil
}

func (v *ValueComparison) TypeCheck(sc *StaticContext) (Expression, error) {
	var err error
	if v.lhs, err = v.lhs.TypeCheck(sc); err != nil {
		return nil, err
	}
	if v.rhs, err = v.rhs.TypeCheck(sc); err != nil {
		return nil, err
	}
	if v.comparer == nil {
		v.comparer = sc.Comparer()
	}
	return v, nil
}

func (v *ValueComparison) Optimize(sc *StaticContext) (Expression, error) {
	var err error
	if v.lhs, err = v.lhs.Optimize(sc); err != nil {
		return nil, err
	}
	if v.rhs, err = v.rhs.Optimize(sc); err != nil {
		return nil, err
	}
	return foldIfConstant(v, sc)
}

func (v *ValueComparison) ItemType() types.ItemType {
	return types.AtomicItemType(types.TypeBoolean)
}

func (v *ValueComparison) Cardinality() types.Cardinality {
	if v.lhs.Cardinality().AllowsZero() || v.rhs.Cardinality().AllowsZero() {
		return types.CardZeroOrOne
	}
	return types.CardExactlyOne
}

func (v *ValueComparison) Dependencies() Dependency { return dependenciesOf(v.lhs, v.rhs) }
func (v *ValueComparison) Children() []Expression { return []Expression{v.lhs, v.rhs} }

func (v *ValueComparison) atomizedSingleton(e Expression, c *Context) (types.AtomicValue, error) {
	items, err := evaluate(e, c)
	if err != nil {
		return nil, err
	}
	switch len(items) {
	case 0:
		return nil, nil
	case 1:
		return types.Atomize(items[0]), nil
	}
	return nil, types.NewTypeError(types.ErrTypeMismatch,
		"operand of "+v.op.String()+" is a sequence of more than one item").WithLocation(v.loc)
}

func (v *ValueComparison) EvaluateItem(c *Context) (types.Item, error) {
	lv, err := v.atomizedSingleton(v.lhs, c)
	if err != nil {
		return nil, err
	}
	rv, err := v.atomizedSingleton(v.rhs, c)
	if err != nil {
		return nil, err
	}
	if lv == nil || rv == nil {
		return nil, nil
	}

	cmp := v.comparer
	if cmp == nil {
		cmp = compare.NewGeneric(nil)
	}
	switch v.op {
	case OpEq, OpNe:
		eq, err := cmp.Equal(lv, rv)
		if err != nil {
			return nil, withLoc(err, v)
		}
		return types.BooleanValue(eq == (v.op == OpEq)), nil
	}
	ord, err := cmp.Compare(lv, rv)
	if err != nil {
		return nil, withLoc(err, v)
	}
	var res bool
	switch v.op {
	case OpLt:
		res = ord < 0
	case OpLe:
		res = ord <= 0
	case OpGt:
		res = ord > 0
	case OpGe:
		res = ord >= 0
	}
	return types.BooleanValue(res), nil
}

func (v *ValueComparison) Iterate(c *Context) (iter.SequenceIterator, error) {
	return iterateViaItem(v, c)
}

func (v *ValueComparison) Process(c *Context) error { return processViaIterate(v, c) }

func (v *ValueComparison) Explain(w io.Writer, depth int) {
	explainf(w, depth, "compare %s", v.op)
	v.lhs.Explain(w, depth+1)
	v.rhs.Explain(w, depth+1)
}
