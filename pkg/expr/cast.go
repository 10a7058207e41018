package expr

import (
	"fmt"
	"io"

	"github.com/perrin-dev/sequoia/pkg/iter"
	"github.com/perrin-dev/sequoia/pkg/types"
)

// CastExpression converts the atomized value of its operand to a target
// atomic type. The operand must yield at most one atomic item; an empty
// operand yields empty when the target carries the optional marker and
// is an error otherwise.
//
// Namespace-sensitive targets capture the lexical namespace context at
// compile time: by evaluation time the scope the expression was written
// in no longer exists.
type CastExpression struct {
	baseExpr
	operand    Expression
	target     types.AtomicType
	allowEmpty bool
	resolver   types.NamespaceResolver

	// conv is pre-resolved when the operand's static type pins a single
	// source type; nil means resolve per value at run time.
	conv types.ConverterFunc
}

func NewCast(operand Expression, target types.AtomicType, allowEmpty bool, resolver types.NamespaceResolver) *CastExpression {
	return &CastExpression{operand: operand, target: target, allowEmpty: allowEmpty, resolver: resolver}
}

func (ce *CastExpression) Simplify() (Expression, error) {
	var err error
	if ce.operand, err = ce.operand.Simplify(); err != nil {
		return nil, err
	}
	return ce, nil
}

func (ce *CastExpression) TypeCheck(sc *StaticContext) (Expression, error) {
	var err error
	if ce.operand, err = ce.operand.TypeCheck(sc); err != nil {
		return nil, err
	}
	if ce.target.NamespaceSensitive() && ce.resolver == nil {
		return nil, types.NewStaticError(types.ErrUnknownPrefix,
			fmt.Sprintf("cast to %s requires a namespace context", ce.target)).WithLocation(ce.loc)
	}
	if src, ok := ce.operand.ItemType().AtomicTypeOf(); ok && src != types.TypeUntypedAtomic {
		if ce.conv = types.Converter(src, ce.target); ce.conv == nil {
			return nil, types.NewTypeError(types.ErrTypeMismatch,
				fmt.Sprintf("cannot cast %s to %s", src, ce.target)).WithLocation(ce.loc)
		}
	}
	return ce, nil
}

func (ce *CastExpression) Optimize(sc *StaticContext) (Expression, error) {
	var err error
	if ce.operand, err = ce.operand.Optimize(sc); err != nil {
		return nil, err
	}
	return ce, nil
}

func (ce *CastExpression) ItemType() types.ItemType {
	return types.AtomicItemType(ce.target)
}

func (ce *CastExpression) Cardinality() types.Cardinality {
	if ce.allowEmpty {
		return types.CardZeroOrOne
	}
	return types.CardExactlyOne
}

func (ce *CastExpression) Dependencies() Dependency { return ce.operand.Dependencies() }
func (ce *CastExpression) Children() []Expression { return []Expression{ce.operand} }

func (ce *CastExpression) EvaluateItem(c *Context) (types.Item, error) {
	in, err := ce.singleAtomic(c)
	if err != nil || in == nil {
		return nil, err
	}
	out, cerr := ce.convert(in)
	if cerr != nil {
		return nil, cerr.WithLocation(ce.loc)
	}
	return out, nil
}

// singleAtomic atomizes the operand and enforces the 0..1 cardinality;
// nil with a nil error means the permitted empty case.
func (ce *CastExpression) singleAtomic(c *Context) (types.AtomicValue, error) {
	items, err := evaluate(ce.operand, c)
	if err != nil {
		return nil, err
	}
	switch len(items) {
	case 0:
		if ce.allowEmpty {
			return nil, nil
		}
		return nil, types.NewTypeError(types.ErrEmptyNotAllowed,
			fmt.Sprintf("cast to %s does not accept an empty sequence", ce.target)).WithLocation(ce.loc)
	case 1:
	default:
		return nil, types.NewTypeError(types.ErrMoreThanOne,
			fmt.Sprintf("cast to %s requires a single value, got %d", ce.target, len(items))).WithLocation(ce.loc)
	}
	return types.Atomize(items[0]), nil
}

func (ce *CastExpression) convert(in types.AtomicValue) (types.AtomicValue, *types.Error) {
	conv := ce.conv
	if conv == nil {
		if conv = types.Converter(in.AtomicType(), ce.target); conv == nil {
			return nil, types.NewTypeError(types.ErrTypeMismatch,
				fmt.Sprintf("cannot cast %s to %s", in.AtomicType(), ce.target))
		}
	}
	out, cerr := conv(in)
	if cerr != nil {
		return nil, cerr
	}
	if qn, ok := out.(types.QNameValue); ok && ce.target == types.TypeQName {
		// The resolver may be absent when only castable reached this
		// point; an unresolvable prefix is then a conversion failure,
		// never a crash.
		var uri string
		var found bool
		if ce.resolver != nil {
			uri, found = ce.resolver.ResolvePrefix(qn.Prefix)
		}
		if !found && qn.Prefix != "" {
			return nil, types.NewDynamicError(types.ErrUnknownPrefix,
				fmt.Sprintf("prefix %q is not bound to a namespace", qn.Prefix))
		}
		qn.URI = uri
		out = qn
	}
	return out, nil
}

func (ce *CastExpression) Iterate(c *Context) (iter.SequenceIterator, error) {
	item, err := ce.EvaluateItem(c)
	if err != nil {
		return nil, err
	}
	return iter.Singleton(item), nil
}

func (ce *CastExpression) Process(c *Context) error { return processViaIterate(ce, c) }

func (ce *CastExpression) Explain(w io.Writer, depth int) {
	suffix := ""
	if ce.allowEmpty {
		suffix = "?"
	}
	explainf(w, depth, "cast as %s%s", ce.target, suffix)
	ce.operand.Explain(w, depth+1)
}

// CastableExpression reports whether a cast of its operand to the
// target type would succeed, without raising the cast's errors.
type CastableExpression struct {
	baseExpr
	cast *CastExpression
}

func NewCastable(operand Expression, target types.AtomicType, allowEmpty bool, resolver types.NamespaceResolver) *CastableExpression {
	return &CastableExpression{cast: NewCast(operand, target, allowEmpty, resolver)}
}

func (ce *CastableExpression) Simplify() (Expression, error) {
	var err error
	if ce.cast.operand, err = ce.cast.operand.Simplify(); err != nil {
		return nil, err
	}
	return ce, nil
}

func (ce *CastableExpression) TypeCheck(sc *StaticContext) (Expression, error) {
	var err error
	// The cast's own static rejections become a false answer here, so
	// only the operand is checked eagerly.
	if ce.cast.operand, err = ce.cast.operand.TypeCheck(sc); err != nil {
		return nil, err
	}
	return ce, nil
}

func (ce *CastableExpression) Optimize(sc *StaticContext) (Expression, error) {
	var err error
	if ce.cast.operand, err = ce.cast.operand.Optimize(sc); err != nil {
		return nil, err
	}
	return ce, nil
}

func (ce *CastableExpression) ItemType() types.ItemType {
	return types.AtomicItemType(types.TypeBoolean)
}

func (ce *CastableExpression) Cardinality() types.Cardinality { return types.CardExactlyOne }
func (ce *CastableExpression) Dependencies() Dependency { return ce.cast.operand.Dependencies() }
func (ce *CastableExpression) Children() []Expression { return []Expression{ce.cast.operand} }

func (ce *CastableExpression) EvaluateItem(c *Context) (types.Item, error) {
	items, err := evaluate(ce.cast.operand, c)
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return types.BooleanValue(ce.cast.allowEmpty), nil
	}
	if len(items) > 1 {
		return types.BooleanValue(false), nil
	}
	if _, cerr := ce.cast.convert(types.Atomize(items[0])); cerr != nil {
		return types.BooleanValue(false), nil
	}
	return types.BooleanValue(true), nil
}

func (ce *CastableExpression) Iterate(c *Context) (iter.SequenceIterator, error) {
	return iterateViaItem(ce, c)
}

func (ce *CastableExpression) Process(c *Context) error { return processViaIterate(ce, c) }

func (ce *CastableExpression) Explain(w io.Writer, depth int) {
	suffix := ""
	if ce.cast.allowEmpty {
		suffix = "?"
	}
	explainf(w, depth, "castable as %s%s", ce.cast.target, suffix)
	ce.cast.operand.Explain(w, depth+1)
}
