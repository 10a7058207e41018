package expr

import (
	"io"

	"github.com/perrin-dev/sequoia/pkg/iter"
	"github.com/perrin-dev/sequoia/pkg/types"
)

// FilterExpression selects items of a base sequence by a predicate.
// The predicate runs with the focus set to each candidate item and its
// 1-based position. A predicate whose value is a single numeric item is
// positional: the candidate survives only when its position equals that
// number. Any other value is reduced to its effective boolean.
type FilterExpression struct {
	baseExpr
	base      Expression
	predicate Expression
}

func NewFilter(base, predicate Expression) *FilterExpression {
	return &FilterExpression{base: base, predicate: predicate}
}

func (f *FilterExpression) Simplify() (Expression, error) {
	var err error
	if f.base, err = f.base.Simplify(); err != nil {
		return nil, err
	}
	if f.predicate, err = f.predicate.Simplify(); err != nil {
		return nil, err
	}
	return f, nil
}

func (f *FilterExpression) TypeCheck(sc *StaticContext) (Expression, error) {
	var err error
	if f.base, err = f.base.TypeCheck(sc); err != nil {
		return nil, err
	}
	if f.predicate, err = f.predicate.TypeCheck(sc); err != nil {
		return nil, err
	}
	return f, nil
}

func (f *FilterExpression) Optimize(sc *StaticContext) (Expression, error) {
	var err error
	if f.base, err = f.base.Optimize(sc); err != nil {
		return nil, err
	}
	if f.predicate, err = f.predicate.Optimize(sc); err != nil {
		return nil, err
	}
	if v, ok := literalBool(f.predicate); ok {
		if v {
			return f.base, nil
		}
		return NewEmptyLiteral(), nil
	}
	return f, nil
}

func (f *FilterExpression) ItemType() types.ItemType { return f.base.ItemType() }

func (f *FilterExpression) Cardinality() types.Cardinality {
	// Filtering can only remove items.
	return f.base.Cardinality().Union(types.CardEmpty)
}

func (f *FilterExpression) Dependencies() Dependency {
	// The predicate's focus dependencies are satisfied here; what leaks
	// out is only its non-focus needs plus the base's own.
	return f.base.Dependencies() | (f.predicate.Dependencies() &^ depFocus)
}

func (f *FilterExpression) Children() []Expression {
	return []Expression{f.base, f.predicate}
}

func (f *FilterExpression) Iterate(c *Context) (iter.SequenceIterator, error) {
	in, err := f.base.Iterate(c)
	if err != nil {
		return nil, err
	}
	size := -1
	if f.predicate.Dependencies()&DepLast != 0 {
		// last() inside the predicate needs the input length up front.
		if lp, ok := in.(iter.LastPositionFinder); ok {
			if size, err = lp.Length(); err != nil {
				return nil, withLoc(err, f)
			}
		} else {
			items, err := iter.Drain(in)
			if err != nil {
				return nil, withLoc(err, f)
			}
			size = len(items)
			in = iter.FromSlice(items)
		}
	}
	return &filterIterator{
		in:   in,
		pred: f.predicate,
		ctx:  c.WithFocus(&Focus{Size: size}),
	}, nil
}

func (f *FilterExpression) Process(c *Context) error { return processViaIterate(f, c) }

func (f *FilterExpression) EvaluateItem(c *Context) (types.Item, error) {
	return itemViaIterate(f, c)
}

func (f *FilterExpression) Explain(w io.Writer, depth int) {
	explainf(w, depth, "filter")
	f.base.Explain(w, depth+1)
	explainf(w, depth, "predicate")
	f.predicate.Explain(w, depth+1)
}

// filterIterator owns a derived context whose focus it advances per
// candidate.
type filterIterator struct {
	in       iter.SequenceIterator
	pred     Expression
	ctx      *Context
	current  types.Item
	pos      int
	inputPos int
}

func (f *filterIterator) Next() (types.Item, error) {
	if f.pos == iter.ExhaustedPosition {
		return nil, nil
	}
	for {
		item, err := f.in.Next()
		if err != nil {
			return nil, err
		}
		if item == nil {
			f.current = nil
			f.pos = iter.ExhaustedPosition
			return nil, nil
		}
		f.inputPos++
		f.ctx.focus.Item = item
		f.ctx.focus.Position = f.inputPos
		keep, err := f.matches()
		if err != nil {
			return nil, err
		}
		if keep {
			f.current = item
			f.pos++
			return item, nil
		}
	}
}

func (f *filterIterator) matches() (bool, error) {
	value, err := evaluate(f.pred, f.ctx)
	if err != nil {
		return false, err
	}
	if len(value) == 1 {
		if av, ok := value[0].(types.AtomicValue); ok {
			if n, numeric := types.NumericValue(av); numeric {
				return n == float64(f.inputPos), nil
			}
		}
	}
	return types.EffectiveBoolean(value)
}

func (f *filterIterator) Current() types.Item { return f.current }
func (f *filterIterator) Position() int { return f.pos }

func (f *filterIterator) Close() { f.in.Close() }

func (f *filterIterator) Another() (iter.SequenceIterator, error) {
	another, err := f.in.Another()
	if err != nil {
		return nil, err
	}
	return &filterIterator{
		in:   another,
		pred: f.pred,
		ctx:  f.ctx.WithFocus(&Focus{Size: f.ctx.focus.Size}),
	}, nil
}
