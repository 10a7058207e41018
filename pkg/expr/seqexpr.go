package expr

import (
	"io"

	"github.com/perrin-dev/sequoia/pkg/iter"
	"github.com/perrin-dev/sequoia/pkg/types"
)

// Block concatenates the values of its operands in order. Nested blocks
// flatten during simplification, and a run of adjacent literals merges
// into one.
type Block struct {
	baseExpr
	operands []Expression
}

func NewBlock(operands []Expression) *Block {
	return &Block{operands: operands}
}

func (b *Block) Simplify() (Expression, error) {
	flat := make([]Expression, 0, len(b.operands))
	for i := range b.operands {
		op, err := b.operands[i].Simplify()
		if err != nil {
			return nil, err
		}
		if inner, ok := op.(*Block); ok {
			flat = append(flat, inner.operands...)
			continue
		}
		flat = append(flat, op)
	}
	b.operands = flat
	switch len(b.operands) {
	case 0:
		return NewEmptyLiteral(), nil
	case 1:
		return b.operands[0], nil
	}
	return b, nil
}

func (b *Block) TypeCheck(sc *StaticContext) (Expression, error) {
	var err error
	for i := range b.operands {
		if b.operands[i], err = b.operands[i].TypeCheck(sc); err != nil {
			return nil, err
		}
	}
	return b, nil
}

func (b *Block) Optimize(sc *StaticContext) (Expression, error) {
	var err error
	for i := range b.operands {
		if b.operands[i], err = b.operands[i].Optimize(sc); err != nil {
			return nil, err
		}
	}
	// Merge adjacent literals; drop empty ones.
	merged := make([]Expression, 0, len(b.operands))
	for _, op := range b.operands {
		lit, ok := op.(*Literal)
		if !ok {
			merged = append(merged, op)
			continue
		}
		if len(lit.Value()) == 0 {
			continue
		}
		if len(merged) > 0 {
			if prev, ok := merged[len(merged)-1].(*Literal); ok {
				joined := append(append([]types.Item{}, prev.Value()...), lit.Value()...)
				merged[len(merged)-1] = NewLiteral(joined)
				continue
			}
		}
		merged = append(merged, op)
	}
	b.operands = merged
	switch len(b.operands) {
	case 0:
		return NewEmptyLiteral(), nil
	case 1:
		return b.operands[0], nil
	}
	return b, nil
}

func (b *Block) ItemType() types.ItemType {
	t := b.operands[0].ItemType()
	for _, op := range b.operands[1:] {
		t = t.Union(op.ItemType())
	}
	return t
}

func (b *Block) Cardinality() types.Cardinality {
	allEmpty := true
	anyRequired := false
	for _, op := range b.operands {
		card := op.Cardinality()
		if card != types.CardEmpty {
			allEmpty = false
		}
		if !card.AllowsZero() {
			anyRequired = true
		}
	}
	switch {
	case allEmpty:
		return types.CardEmpty
	case anyRequired && len(b.operands) > 1:
		return types.CardOneOrMore
	case anyRequired:
		return b.operands[0].Cardinality()
	}
	return types.CardZeroOrMore
}

func (b *Block) Dependencies() Dependency { return dependenciesOf(b.operands...) }
func (b *Block) Children() []Expression { return b.operands }

func (b *Block) Iterate(c *Context) (iter.SequenceIterator, error) {
	src := iter.NewRange(1, int64(len(b.operands)))
	return iter.NewMapping(src, func(it types.Item) (iter.SequenceIterator, error) {
		return b.operands[it.(types.IntegerValue)-1].Iterate(c)
	}), nil
}

func (b *Block) Process(c *Context) error {
	for _, op := range b.operands {
		if err := op.Process(c); err != nil {
			return err
		}
	}
	return nil
}

func (b *Block) EvaluateItem(c *Context) (types.Item, error) {
	return itemViaIterate(b, c)
}

func (b *Block) Explain(w io.Writer, depth int) {
	explainf(w, depth, "sequence")
	for _, op := range b.operands {
		op.Explain(w, depth+1)
	}
}
