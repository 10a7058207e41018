package expr

import (
	"io"

	"github.com/perrin-dev/sequoia/pkg/iter"
	"github.com/perrin-dev/sequoia/pkg/types"
)

// PathExpression evaluates its step once per item of the start
// sequence, with the focus set to that item, and concatenates the
// results. A node-producing step is wrapped in the document-order
// stage, which sorts, deduplicates by identity, and rejects sequences
// mixing nodes with atomic values. The stage is elided when the step is
// statically known to produce only atomic values, whose order is the
// mapping order.
type PathExpression struct {
	baseExpr
	start Expression
	step  Expression

	// atomicOnly is settled during optimization.
	atomicOnly bool
}

func NewPath(start, step Expression) *PathExpression {
	return &PathExpression{start: start, step: step}
}

func (p *PathExpression) Simplify() (Expression, error) {
	var err error
	if p.start, err = p.start.Simplify(); err != nil {
		return nil, err
	}
	if p.step, err = p.step.Simplify(); err != nil {
		return nil, err
	}
	return p, nil
}

func (p *PathExpression) TypeCheck(sc *StaticContext) (Expression, error) {
	var err error
	if p.start, err = p.start.TypeCheck(sc); err != nil {
		return nil, err
	}
	if p.step, err = p.step.TypeCheck(sc); err != nil {
		return nil, err
	}
	return p, nil
}

func (p *PathExpression) Optimize(sc *StaticContext) (Expression, error) {
	var err error
	if p.start, err = p.start.Optimize(sc); err != nil {
		return nil, err
	}
	if p.step, err = p.step.Optimize(sc); err != nil {
		return nil, err
	}
	if lit, ok := p.start.(*Literal); ok && len(lit.Value()) == 0 {
		return NewEmptyLiteral(), nil
	}
	p.atomicOnly = p.step.ItemType().IsAtomicOnly()
	return p, nil
}

func (p *PathExpression) ItemType() types.ItemType { return p.step.ItemType() }

func (p *PathExpression) Cardinality() types.Cardinality {
	start := p.start.Cardinality()
	step := p.step.Cardinality()
	if start == types.CardEmpty || step == types.CardEmpty {
		return types.CardEmpty
	}
	card := step
	if start.AllowsZero() {
		card = card.Union(types.CardEmpty)
	}
	if start.AllowsMany() {
		card = card.Union(types.CardZeroOrMore)
	}
	return card
}

func (p *PathExpression) Dependencies() Dependency {
	return p.start.Dependencies() | (p.step.Dependencies() &^ depFocus)
}

func (p *PathExpression) Children() []Expression {
	return []Expression{p.start, p.step}
}

func (p *PathExpression) Iterate(c *Context) (iter.SequenceIterator, error) {
	in, err := p.start.Iterate(c)
	if err != nil {
		return nil, err
	}
	size := -1
	if p.step.Dependencies()&DepLast != 0 {
		if lp, ok := in.(iter.LastPositionFinder); ok {
			if size, err = lp.Length(); err != nil {
				return nil, withLoc(err, p)
			}
		} else {
			items, err := iter.Drain(in)
			if err != nil {
				return nil, withLoc(err, p)
			}
			size = len(items)
			in = iter.FromSlice(items)
		}
	}
	// The position counter and focus belong to one cursor; independent
	// cursors from Another must restart both, so each gets its own
	// closure from the factory.
	mapped := iter.NewMappingFresh(in, func() iter.MappingFunc {
		stepCtx := c.WithFocus(&Focus{Size: size})
		pos := 0
		return func(item types.Item) (iter.SequenceIterator, error) {
			pos++
			stepCtx.focus.Item = item
			stepCtx.focus.Position = pos
			return p.step.Iterate(stepCtx)
		}
	})
	if p.atomicOnly {
		return mapped, nil
	}
	return iter.NewDocOrder(mapped), nil
}

func (p *PathExpression) Process(c *Context) error { return processViaIterate(p, c) }

func (p *PathExpression) EvaluateItem(c *Context) (types.Item, error) {
	return itemViaIterate(p, c)
}

func (p *PathExpression) Explain(w io.Writer, depth int) {
	if p.atomicOnly {
		explainf(w, depth, "path (unsorted)")
	} else {
		explainf(w, depth, "path (document order)")
	}
	p.start.Explain(w, depth+1)
	p.step.Explain(w, depth+1)
}
