package expr

import (
	"io"

	"github.com/perrin-dev/sequoia/pkg/iter"
	"github.com/perrin-dev/sequoia/pkg/types"
)

// ForExpression maps a body over each item of an input sequence, with
// the current item bound to a local variable slot. Results of each
// body evaluation are concatenated in input order. The mapping is
// lazy: body iterators are opened one at a time as the caller pulls.
type ForExpression struct {
	baseExpr
	binding  Binding
	sequence Expression
	body     Expression
}

func NewFor(name string, sequence, body Expression) *ForExpression {
	return &ForExpression{
		binding:  Binding{Name: name, Slot: -1, Required: types.SequenceType{Item: types.AnyItemType, Card: types.CardExactlyOne}},
		sequence: sequence,
		body:     body,
	}
}

func (f *ForExpression) Binding() *Binding { return &f.binding }

func (f *ForExpression) Allocate(slots *SlotManager) {
	slots.Allocate(&f.binding)
}

// SetBody installs the body once its variable references are fixed up.
func (f *ForExpression) SetBody(body Expression) { f.body = body }

func (f *ForExpression) Simplify() (Expression, error) {
	var err error
	if f.sequence, err = f.sequence.Simplify(); err != nil {
		return nil, err
	}
	if f.body, err = f.body.Simplify(); err != nil {
		return nil, err
	}
	return f, nil
}

func (f *ForExpression) TypeCheck(sc *StaticContext) (Expression, error) {
	var err error
	if f.sequence, err = f.sequence.TypeCheck(sc); err != nil {
		return nil, err
	}
	if f.body, err = f.body.TypeCheck(sc); err != nil {
		return nil, err
	}
	return f, nil
}

func (f *ForExpression) Optimize(sc *StaticContext) (Expression, error) {
	var err error
	if f.sequence, err = f.sequence.Optimize(sc); err != nil {
		return nil, err
	}
	if f.body, err = f.body.Optimize(sc); err != nil {
		return nil, err
	}
	// for $x in E return $x is E itself.
	if ref, ok := f.body.(*VariableReference); ok && ref.Binding() == &f.binding {
		return f.sequence, nil
	}
	// An empty input maps to nothing.
	if lit, ok := f.sequence.(*Literal); ok && len(lit.Value()) == 0 {
		return NewEmptyLiteral(), nil
	}
	return f, nil
}

func (f *ForExpression) ItemType() types.ItemType { return f.body.ItemType() }

func (f *ForExpression) Cardinality() types.Cardinality {
	in := f.sequence.Cardinality()
	body := f.body.Cardinality()
	if in == types.CardEmpty || body == types.CardEmpty {
		return types.CardEmpty
	}
	card := body
	if in.AllowsZero() {
		card = card.Union(types.CardEmpty)
	}
	if in.AllowsMany() {
		card = card.Union(types.CardZeroOrMore)
	}
	return card
}

func (f *ForExpression) Dependencies() Dependency {
	return f.sequence.Dependencies() | f.body.Dependencies()
}

func (f *ForExpression) Children() []Expression {
	return []Expression{f.sequence, f.body}
}

func (f *ForExpression) Iterate(c *Context) (iter.SequenceIterator, error) {
	in, err := f.sequence.Iterate(c)
	if err != nil {
		return nil, err
	}
	return iter.NewMapping(in, func(item types.Item) (iter.SequenceIterator, error) {
		c.SetSlot(f.binding.Slot, []types.Item{item})
		return f.body.Iterate(c)
	}), nil
}

func (f *ForExpression) Process(c *Context) error {
	in, err := f.sequence.Iterate(c)
	if err != nil {
		return err
	}
	defer in.Close()
	for {
		item, err := in.Next()
		if err != nil {
			return err
		}
		if item == nil {
			return nil
		}
		c.SetSlot(f.binding.Slot, []types.Item{item})
		if err := f.body.Process(c); err != nil {
			return err
		}
	}
}

func (f *ForExpression) EvaluateItem(c *Context) (types.Item, error) {
	return itemViaIterate(f, c)
}

func (f *ForExpression) Explain(w io.Writer, depth int) {
	explainf(w, depth, "for $%s (slot %d)", f.binding.Name, f.binding.Slot)
	f.sequence.Explain(w, depth+1)
	explainf(w, depth, "return")
	f.body.Explain(w, depth+1)
}
