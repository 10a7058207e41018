package expr

import (
	"io"

	"github.com/perrin-dev/sequoia/pkg/iter"
	"github.com/perrin-dev/sequoia/pkg/types"
)

// RangeExpression evaluates start..end into a lazy ascending integer
// sequence. An empty operand or start > end yields the empty sequence.
type RangeExpression struct {
	baseExpr
	start Expression
	end   Expression
}

// NewRange builds a range over the two operand expressions.
func NewRange(start, end Expression) *RangeExpression {
	return &RangeExpression{start: start, end: end}
}

func (r *RangeExpression) Simplify() (Expression, error) {
	var err error
	if r.start, err = r.start.Simplify(); err != nil {
		return nil, err
	}
	if r.end, err = r.end.Simplify(); err != nil {
		return nil, err
	}
	return r, nil
}

func (r *RangeExpression) TypeCheck(sc *StaticContext) (Expression, error) {
	var err error
	if r.start, err = r.start.TypeCheck(sc); err != nil {
		return nil, err
	}
	if r.end, err = r.end.TypeCheck(sc); err != nil {
		return nil, err
	}
	return r, nil
}

func (r *RangeExpression) Optimize(sc *StaticContext) (Expression, error) {
	var err error
	if r.start, err = r.start.Optimize(sc); err != nil {
		return nil, err
	}
	if r.end, err = r.end.Optimize(sc); err != nil {
		return nil, err
	}
	// Constant bounds: a provably empty range folds away, and a small
	// constant range materializes into a literal so downstream
	// cardinality rewrites see it. Large ranges stay lazy.
	if s, ok := r.start.(*Literal); ok {
		if e, ok2 := r.end.(*Literal); ok2 {
			sv, sok := literalInt(s)
			ev, eok := literalInt(e)
			if sok && eok {
				if sv > ev {
					return NewEmptyLiteral(), nil
				}
				if n := ev - sv + 1; n <= rangeFoldLimit {
					items := make([]types.Item, n)
					for i := range items {
						items[i] = types.IntegerValue(sv + int64(i))
					}
					return NewLiteral(items), nil
				}
			}
		}
	}
	return r, nil
}

// rangeFoldLimit caps how many items a constant range materializes at
// compile time.
const rangeFoldLimit = 1024

func literalInt(l *Literal) (int64, bool) {
	if len(l.Value()) != 1 {
		return 0, false
	}
	if n, ok := l.Value()[0].(types.IntegerValue); ok {
		return int64(n), true
	}
	return 0, false
}

func (r *RangeExpression) ItemType() types.ItemType {
	return types.AtomicItemType(types.TypeInteger)
}

func (r *RangeExpression) Cardinality() types.Cardinality { return types.CardZeroOrMore }

func (r *RangeExpression) Dependencies() Dependency {
	return dependenciesOf(r.start, r.end)
}

func (r *RangeExpression) Children() []Expression {
	return []Expression{r.start, r.end}
}

// bound evaluates one operand to an optional integer.
func (r *RangeExpression) bound(e Expression, c *Context) (int64, bool, error) {
	item, err := e.EvaluateItem(c)
	if err != nil {
		return 0, false, err
	}
	if item == nil {
		return 0, false, nil
	}
	av := types.Atomize(item)
	if n, ok := av.(types.IntegerValue); ok {
		return int64(n), true, nil
	}
	conv := types.Converter(av.AtomicType(), types.TypeInteger)
	if conv == nil {
		return 0, false, types.NewTypeError(types.ErrTypeMismatch,
			"range bound must be an integer").WithLocation(r.loc)
	}
	v, cerr := conv(av)
	if cerr != nil {
		return 0, false, cerr.WithLocation(r.loc)
	}
	return int64(v.(types.IntegerValue)), true, nil
}

func (r *RangeExpression) Iterate(c *Context) (iter.SequenceIterator, error) {
	start, ok, err := r.bound(r.start, c)
	if err != nil {
		return nil, err
	}
	if !ok {
		return iter.Empty(), nil
	}
	end, ok, err := r.bound(r.end, c)
	if err != nil {
		return nil, err
	}
	if !ok {
		return iter.Empty(), nil
	}
	return iter.NewRange(start, end), nil
}

func (r *RangeExpression) Process(c *Context) error { return processViaIterate(r, c) }

func (r *RangeExpression) EvaluateItem(c *Context) (types.Item, error) {
	return itemViaIterate(r, c)
}

func (r *RangeExpression) Explain(w io.Writer, depth int) {
	explainf(w, depth, "range")
	r.start.Explain(w, depth+1)
	r.end.Explain(w, depth+1)
}
