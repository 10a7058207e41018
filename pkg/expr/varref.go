package expr

import (
	"io"

	"github.com/perrin-dev/sequoia/pkg/iter"
	"github.com/perrin-dev/sequoia/pkg/types"
)

// VariableReference reads a local variable slot. The reference is fixed
// up to its Binding by the construct that declares the variable (let,
// for, function parameter); a reference that reaches execution unbound
// is a hard fault, never a silent empty result.
type VariableReference struct {
	baseExpr
	Name    string
	binding *Binding
}

// NewVariableReference creates an unfixed reference; FixUp attaches the
// binding.
func NewVariableReference(name string) *VariableReference {
	return &VariableReference{Name: name}
}

// FixUp attaches the binding the reference resolves to.
func (v *VariableReference) FixUp(b *Binding) { v.binding = b }

// Binding returns the fixed-up binding, or nil.
func (v *VariableReference) Binding() *Binding { return v.binding }

func (v *VariableReference) Simplify() (Expression, error) { return v, nil }

func (v *VariableReference) TypeCheck(sc *StaticContext) (Expression, error) {
	if v.binding == nil {
		return nil, types.NewStaticError(types.ErrUndeclaredVariable,
			"variable $"+v.Name+" is not declared").WithLocation(v.loc)
	}
	return v, nil
}

func (v *VariableReference) Optimize(sc *StaticContext) (Expression, error) { return v, nil }

func (v *VariableReference) ItemType() types.ItemType {
	if v.binding == nil {
		return types.AnyItemType
	}
	return v.binding.Required.Item
}

func (v *VariableReference) Cardinality() types.Cardinality {
	if v.binding == nil {
		return types.CardZeroOrMore
	}
	return v.binding.Required.Card
}

func (v *VariableReference) Dependencies() Dependency { return DepLocalVars }
func (v *VariableReference) Children() []Expression { return nil }

func (v *VariableReference) Iterate(c *Context) (iter.SequenceIterator, error) {
	if v.binding == nil {
		return nil, types.NewDynamicError(types.ErrUnboundReference,
			"variable $"+v.Name+" has no binding").WithLocation(v.loc)
	}
	return iter.FromSlice(c.Slot(v.binding.Slot)), nil
}

func (v *VariableReference) Process(c *Context) error { return processViaIterate(v, c) }

func (v *VariableReference) EvaluateItem(c *Context) (types.Item, error) {
	if v.binding == nil {
		return nil, types.NewDynamicError(types.ErrUnboundReference,
			"variable $"+v.Name+" has no binding").WithLocation(v.loc)
	}
	val := c.Slot(v.binding.Slot)
	if len(val) == 0 {
		return nil, nil
	}
	return val[0], nil
}

func (v *VariableReference) Explain(w io.Writer, depth int) {
	explainf(w, depth, "variable $%s", v.Name)
}
