package expr

import (
	"io"

	"github.com/perrin-dev/sequoia/pkg/iter"
	"github.com/perrin-dev/sequoia/pkg/types"
)

// BooleanExpr is the and/or connective with left-to-right
// short-circuiting over effective boolean values.
type BooleanExpr struct {
	baseExpr
	isAnd    bool
	lhs, rhs Expression
}

// NewAnd builds lhs and rhs.
func NewAnd(lhs, rhs Expression) *BooleanExpr {
	return &BooleanExpr{isAnd: true, lhs: lhs, rhs: rhs}
}

// NewOr builds lhs or rhs.
func NewOr(lhs, rhs Expression) *BooleanExpr {
	return &BooleanExpr{isAnd: false, lhs: lhs, rhs: rhs}
}

func (b *BooleanExpr) opName() string {
	if b.isAnd {
		return "and"
	}
	return "or"
}

func (b *BooleanExpr) Simplify() (Expression, error) {
	var err error
	if b.lhs, err = b.lhs.Simplify(); err != nil {
		return nil, err
	}
	if b.rhs, err = b.rhs.Simplify(); err != nil {
		return nil, err
	}
	return b, nil
}

func (b *BooleanExpr) TypeCheck(sc *StaticContext) (Expression, error) {
	var err error
	if b.lhs, err = b.lhs.TypeCheck(sc); err != nil {
		return nil, err
	}
	if b.rhs, err = b.rhs.TypeCheck(sc); err != nil {
		return nil, err
	}
	return b, nil
}

func (b *BooleanExpr) Optimize(sc *StaticContext) (Expression, error) {
	var err error
	if b.lhs, err = b.lhs.Optimize(sc); err != nil {
		return nil, err
	}
	if b.rhs, err = b.rhs.Optimize(sc); err != nil {
		return nil, err
	}
	// A constant left operand decides the result or delegates to the
	// right side. The right operand must not be hoisted past a dynamic
	// left one: its errors are only observable when lhs is evaluated
	// first.
	if lit, ok := b.lhs.(*Literal); ok {
		if val, isBool := lit.BooleanValue(); isBool {
			if b.isAnd == val {
				// true and X → boolean(X);  false or X → boolean(X)
				return NewEffectiveBoolean(b.rhs), nil
			}
			// false and X → false;  true or X → true
			return NewBooleanLiteral(val), nil
		}
	}
	return foldIfConstant(b, sc)
}

func (b *BooleanExpr) ItemType() types.ItemType {
	return types.AtomicItemType(types.TypeBoolean)
}

func (b *BooleanExpr) Cardinality() types.Cardinality { return types.CardExactlyOne }
func (b *BooleanExpr) Dependencies() Dependency { return dependenciesOf(b.lhs, b.rhs) }
func (b *BooleanExpr) Children() []Expression { return []Expression{b.lhs, b.rhs} }

func (b *BooleanExpr) EvaluateItem(c *Context) (types.Item, error) {
	lv, err := effectiveBool(b.lhs, c)
	if err != nil {
		return nil, err
	}
	if b.isAnd != lv {
		// short-circuit: false and _, true or _
		return types.BooleanValue(lv), nil
	}
	rv, err := effectiveBool(b.rhs, c)
	if err != nil {
		return nil, err
	}
	return types.BooleanValue(rv), nil
}

func (b *BooleanExpr) Iterate(c *Context) (iter.SequenceIterator, error) {
	return iterateViaItem(b, c)
}

func (b *BooleanExpr) Process(c *Context) error { return processViaIterate(b, c) }

func (b *BooleanExpr) Explain(w io.Writer, depth int) {
	explainf(w, depth, "%s", b.opName())
	b.lhs.Explain(w, depth+1)
	b.rhs.Explain(w, depth+1)
}

// EffectiveBoolean reduces its operand to the effective boolean value.
// The optimizer plants one where `if (E) then true() else false()`
// collapses.
type EffectiveBoolean struct {
	baseExpr
	operand Expression
}

// NewEffectiveBoolean wraps an operand. Wrapping an expression that is
// already boolean-single-valued returns the operand unchanged.
func NewEffectiveBoolean(operand Expression) Expression {
	if at, ok := operand.ItemType().AtomicTypeOf(); ok &&
		at == types.TypeBoolean && operand.Cardinality() == types.CardExactlyOne {
		return operand
	}
	if eb, ok := operand.(*EffectiveBoolean); ok {
		// merging nested identical wrappers
		return eb
	}
	return &EffectiveBoolean{operand: operand}
}

func (e *EffectiveBoolean) Simplify() (Expression, error) {
	var err error
	if e.operand, err = e.operand.Simplify(); err != nil {
		return nil, err
	}
	return e, nil
}

func (e *EffectiveBoolean) TypeCheck(sc *StaticContext) (Expression, error) {
	var err error
	if e.operand, err = e.operand.TypeCheck(sc); err != nil {
		return nil, err
	}
	return e, nil
}

func (e *EffectiveBoolean) Optimize(sc *StaticContext) (Expression, error) {
	var err error
	if e.operand, err = e.operand.Optimize(sc); err != nil {
		return nil, err
	}
	return foldIfConstant(e, sc)
}

func (e *EffectiveBoolean) ItemType() types.ItemType {
	return types.AtomicItemType(types.TypeBoolean)
}

func (e *EffectiveBoolean) Cardinality() types.Cardinality { return types.CardExactlyOne }
func (e *EffectiveBoolean) Dependencies() Dependency { return e.operand.Dependencies() }
func (e *EffectiveBoolean) Children() []Expression { return []Expression{e.operand} }

func (e *EffectiveBoolean) EvaluateItem(c *Context) (types.Item, error) {
	v, err := effectiveBool(e.operand, c)
	if err != nil {
		return nil, err
	}
	return types.BooleanValue(v), nil
}

func (e *EffectiveBoolean) Iterate(c *Context) (iter.SequenceIterator, error) {
	return iterateViaItem(e, c)
}

func (e *EffectiveBoolean) Process(c *Context) error { return processViaIterate(e, c) }

func (e *EffectiveBoolean) Explain(w io.Writer, depth int) {
	explainf(w, depth, "boolean")
	e.operand.Explain(w, depth+1)
}
