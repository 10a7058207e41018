package expr

import (
	"fmt"
	"io"

	"github.com/perrin-dev/sequoia/pkg/iter"
	"github.com/perrin-dev/sequoia/pkg/types"
)

// TypeChecked wraps operand with the dynamic checks needed to satisfy a
// required sequence type, inserting nothing when the static type
// already proves conformance. The role names the operand's position in
// the enclosing construct for error messages.
func TypeChecked(operand Expression, required types.SequenceType, role string) Expression {
	static := types.SequenceType{Item: operand.ItemType(), Card: operand.Cardinality()}
	if required.Subsumes(static) {
		return operand
	}
	return &CheckedExpression{operand: operand, required: required, role: role}
}

// CheckedExpression enforces a required sequence type at evaluation
// time. The check is streaming and lazy: the cardinality error for "too
// many" surfaces exactly when the offending second item is pulled, and
// item-type errors surface on the offending item, so a caller that
// stops early never pays for, or sees, failures beyond what it read.
type CheckedExpression struct {
	baseExpr
	operand  Expression
	required types.SequenceType
	role     string
}

func (ce *CheckedExpression) Simplify() (Expression, error) {
	var err error
	if ce.operand, err = ce.operand.Simplify(); err != nil {
		return nil, err
	}
	return ce, nil
}

func (ce *CheckedExpression) TypeCheck(sc *StaticContext) (Expression, error) {
	var err error
	if ce.operand, err = ce.operand.TypeCheck(sc); err != nil {
		return nil, err
	}
	return ce, nil
}

func (ce *CheckedExpression) Optimize(sc *StaticContext) (Expression, error) {
	var err error
	if ce.operand, err = ce.operand.Optimize(sc); err != nil {
		return nil, err
	}
	// The operand may have narrowed enough to discharge the check.
	static := types.SequenceType{Item: ce.operand.ItemType(), Card: ce.operand.Cardinality()}
	if ce.required.Subsumes(static) {
		return ce.operand, nil
	}
	return ce, nil
}

// ItemType narrows to the intersection view: anything that passes the
// check matches the requirement.
func (ce *CheckedExpression) ItemType() types.ItemType { return ce.required.Item }

func (ce *CheckedExpression) Cardinality() types.Cardinality {
	return ce.required.Card.Intersect(ce.operand.Cardinality())
}

func (ce *CheckedExpression) Dependencies() Dependency { return ce.operand.Dependencies() }
func (ce *CheckedExpression) Children() []Expression { return []Expression{ce.operand} }

func (ce *CheckedExpression) Iterate(c *Context) (iter.SequenceIterator, error) {
	base, err := ce.operand.Iterate(c)
	if err != nil {
		return nil, err
	}
	return &checkingIterator{base: base, check: ce}, nil
}

func (ce *CheckedExpression) Process(c *Context) error { return processViaIterate(ce, c) }

func (ce *CheckedExpression) EvaluateItem(c *Context) (types.Item, error) {
	return itemViaIterate(ce, c)
}

func (ce *CheckedExpression) Explain(w io.Writer, depth int) {
	explainf(w, depth, "check %s as %s", ce.role, ce.required)
	ce.operand.Explain(w, depth+1)
}

func (ce *CheckedExpression) checkItem(item types.Item, position int) error {
	if position == 2 && !ce.required.Card.AllowsMany() {
		return types.NewTypeError(types.ErrBadCardinality,
			fmt.Sprintf("%s must not contain more than one item", ce.role)).WithLocation(ce.loc)
	}
	if !ce.required.Item.Matches(item) {
		return types.NewTypeError(types.ErrTypeMismatch,
			fmt.Sprintf("%s requires %s, found %s", ce.role, ce.required.Item, describeItem(item))).WithLocation(ce.loc)
	}
	return nil
}

func (ce *CheckedExpression) checkEnd(count int) error {
	if count == 0 && !ce.required.Card.AllowsZero() {
		return types.NewTypeError(types.ErrEmptyNotAllowed,
			fmt.Sprintf("%s must not be empty", ce.role)).WithLocation(ce.loc)
	}
	return nil
}

func describeItem(item types.Item) string {
	switch it := item.(type) {
	case types.Node:
		return it.NodeKind().String() + " node"
	case types.AtomicValue:
		return it.AtomicType().String()
	}
	return "item"
}

type checkingIterator struct {
	base  iter.SequenceIterator
	check *CheckedExpression
	count int
	done  bool
}

func (ci *checkingIterator) Next() (types.Item, error) {
	if ci.done {
		return nil, nil
	}
	item, err := ci.base.Next()
	if err != nil {
		ci.done = true
		return nil, err
	}
	if item == nil {
		ci.done = true
		return nil, ci.check.checkEnd(ci.count)
	}
	ci.count++
	if err := ci.check.checkItem(item, ci.count); err != nil {
		ci.done = true
		return nil, err
	}
	return item, nil
}

func (ci *checkingIterator) Current() types.Item { return ci.base.Current() }
func (ci *checkingIterator) Position() int { return ci.base.Position() }
func (ci *checkingIterator) Close() { ci.base.Close() }

func (ci *checkingIterator) Another() (iter.SequenceIterator, error) {
	base, err := ci.base.Another()
	if err != nil {
		return nil, err
	}
	return &checkingIterator{base: base, check: ci.check}, nil
}
