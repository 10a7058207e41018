package expr

import (
	"io"

	"github.com/perrin-dev/sequoia/pkg/iter"
	"github.com/perrin-dev/sequoia/pkg/types"
)

// LetExpression binds the value of one expression to a local variable
// slot and evaluates its body with that slot populated. The bound
// sequence is materialized once, before the body runs, regardless of
// how many times the body reads it.
type LetExpression struct {
	baseExpr
	binding  Binding
	sequence Expression
	body     Expression
}

func NewLet(name string, sequence, body Expression) *LetExpression {
	return &LetExpression{
		binding:  Binding{Name: name, Slot: -1, Required: types.AnySequence},
		sequence: sequence,
		body:     body,
	}
}

// Binding exposes the variable binding for FixUp by references in the
// body.
func (l *LetExpression) Binding() *Binding { return &l.binding }

// Allocate assigns the slot this binding writes to.
func (l *LetExpression) Allocate(slots *SlotManager) {
	slots.Allocate(&l.binding)
}

// SetBody installs the body after references in it have been fixed up
// against the binding. Readers declare the binding before parsing the
// body, so construction happens in two steps.
func (l *LetExpression) SetBody(body Expression) { l.body = body }

func (l *LetExpression) Simplify() (Expression, error) {
	var err error
	if l.sequence, err = l.sequence.Simplify(); err != nil {
		return nil, err
	}
	if l.body, err = l.body.Simplify(); err != nil {
		return nil, err
	}
	return l, nil
}

func (l *LetExpression) TypeCheck(sc *StaticContext) (Expression, error) {
	var err error
	if l.sequence, err = l.sequence.TypeCheck(sc); err != nil {
		return nil, err
	}
	if l.body, err = l.body.TypeCheck(sc); err != nil {
		return nil, err
	}
	return l, nil
}

func (l *LetExpression) Optimize(sc *StaticContext) (Expression, error) {
	var err error
	if l.sequence, err = l.sequence.Optimize(sc); err != nil {
		return nil, err
	}
	if l.body, err = l.body.Optimize(sc); err != nil {
		return nil, err
	}
	// A body that never reads any local variable cannot see the
	// binding. The bound expression is kept only if evaluating it can
	// have visible effects.
	if l.body.Dependencies()&DepLocalVars == 0 && l.sequence.Dependencies()&DepOutput == 0 {
		return l.body, nil
	}
	return l, nil
}

func (l *LetExpression) ItemType() types.ItemType { return l.body.ItemType() }
func (l *LetExpression) Cardinality() types.Cardinality { return l.body.Cardinality() }

func (l *LetExpression) Dependencies() Dependency {
	// The binding is satisfied internally, but the body may also read
	// outer variables through the same frame.
	return l.sequence.Dependencies() | l.body.Dependencies()
}

func (l *LetExpression) Children() []Expression {
	return []Expression{l.sequence, l.body}
}

func (l *LetExpression) bind(c *Context) error {
	value, err := evaluate(l.sequence, c)
	if err != nil {
		return err
	}
	c.SetSlot(l.binding.Slot, value)
	return nil
}

func (l *LetExpression) Iterate(c *Context) (iter.SequenceIterator, error) {
	if err := l.bind(c); err != nil {
		return nil, err
	}
	return l.body.Iterate(c)
}

func (l *LetExpression) Process(c *Context) error {
	if err := l.bind(c); err != nil {
		return err
	}
	return l.body.Process(c)
}

func (l *LetExpression) EvaluateItem(c *Context) (types.Item, error) {
	if err := l.bind(c); err != nil {
		return nil, err
	}
	return l.body.EvaluateItem(c)
}

func (l *LetExpression) Explain(w io.Writer, depth int) {
	explainf(w, depth, "let $%s (slot %d)", l.binding.Name, l.binding.Slot)
	l.sequence.Explain(w, depth+1)
	explainf(w, depth, "return")
	l.body.Explain(w, depth+1)
}
