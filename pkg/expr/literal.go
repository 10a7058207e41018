package expr

import (
	"io"

	"github.com/perrin-dev/sequoia/pkg/iter"
	"github.com/perrin-dev/sequoia/pkg/types"
)

// Literal is a compile-time constant sequence. Constant folding
// replaces pure sub-trees with Literals; the empty Literal doubles as
// the empty-sequence expression.
type Literal struct {
	baseExpr
	value []types.Item
}

// NewLiteral wraps a constant sequence.
func NewLiteral(value []types.Item) *Literal { return &Literal{value: value} }

// NewSingletonLiteral wraps one constant item.
func NewSingletonLiteral(v types.Item) *Literal {
	return &Literal{value: []types.Item{v}}
}

// NewEmptyLiteral returns the empty-sequence expression.
func NewEmptyLiteral() *Literal { return &Literal{} }

// NewBooleanLiteral returns a constant boolean.
func NewBooleanLiteral(b bool) *Literal {
	return NewSingletonLiteral(types.BooleanValue(b))
}

// Value returns the constant sequence.
func (l *Literal) Value() []types.Item { return l.value }

// BooleanValue reports whether the literal is a singleton boolean, and
// its value.
func (l *Literal) BooleanValue() (bool, bool) {
	if len(l.value) == 1 {
		if b, ok := l.value[0].(types.BooleanValue); ok {
			return bool(b), true
		}
	}
	return false, false
}

func (l *Literal) Simplify() (Expression, error) { return l, nil }
func (l *Literal) TypeCheck(sc *StaticContext) (Expression, error) { return l, nil }
func (l *Literal) Optimize(sc *StaticContext) (Expression, error) { return l, nil }

func (l *Literal) ItemType() types.ItemType {
	if len(l.value) == 0 {
		return types.AnyItemType
	}
	t := itemTypeOf(l.value[0])
	for _, v := range l.value[1:] {
		t = t.Union(itemTypeOf(v))
	}
	return t
}

func (l *Literal) Cardinality() types.Cardinality {
	switch len(l.value) {
	case 0:
		return types.CardEmpty
	case 1:
		return types.CardExactlyOne
	}
	return types.CardOneOrMore
}

func (l *Literal) Dependencies() Dependency { return 0 }
func (l *Literal) Children() []Expression { return nil }

func (l *Literal) Iterate(c *Context) (iter.SequenceIterator, error) {
	return iter.FromSlice(l.value), nil
}

func (l *Literal) Process(c *Context) error { return processViaIterate(l, c) }

func (l *Literal) EvaluateItem(c *Context) (types.Item, error) {
	if len(l.value) == 0 {
		return nil, nil
	}
	return l.value[0], nil
}

func (l *Literal) Explain(w io.Writer, depth int) {
	if len(l.value) == 0 {
		explainf(w, depth, "empty()")
		return
	}
	explainf(w, depth, "literal %q", types.SequenceString(l.value))
}

// itemTypeOf derives the most specific static type of one item.
func itemTypeOf(it types.Item) types.ItemType {
	switch v := it.(type) {
	case types.Node:
		return types.NodeKindType(v.NodeKind())
	case types.AtomicValue:
		return types.AtomicItemType(v.AtomicType())
	}
	return types.AnyItemType
}
