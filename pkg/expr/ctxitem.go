package expr

import (
	"io"

	"github.com/perrin-dev/sequoia/pkg/iter"
	"github.com/perrin-dev/sequoia/pkg/types"
)

// ContextItemExpression yields the focus item. Evaluating it with no
// focus is an error, not an empty sequence.
type ContextItemExpression struct {
	baseExpr
}

func NewContextItem() *ContextItemExpression { return &ContextItemExpression{} }

func (ci *ContextItemExpression) Simplify() (Expression, error) { return ci, nil }

func (ci *ContextItemExpression) TypeCheck(sc *StaticContext) (Expression, error) {
	return ci, nil
}

func (ci *ContextItemExpression) Optimize(sc *StaticContext) (Expression, error) {
	return ci, nil
}

func (ci *ContextItemExpression) ItemType() types.ItemType { return types.AnyItemType }
func (ci *ContextItemExpression) Cardinality() types.Cardinality { return types.CardExactlyOne }
func (ci *ContextItemExpression) Dependencies() Dependency { return DepContextItem }
func (ci *ContextItemExpression) Children() []Expression { return nil }

func (ci *ContextItemExpression) EvaluateItem(c *Context) (types.Item, error) {
	item, err := c.ContextItem()
	if err != nil {
		return nil, withLoc(err, ci)
	}
	return item, nil
}

func (ci *ContextItemExpression) Iterate(c *Context) (iter.SequenceIterator, error) {
	return iterateViaItem(ci, c)
}

func (ci *ContextItemExpression) Process(c *Context) error { return processViaIterate(ci, c) }

func (ci *ContextItemExpression) Explain(w io.Writer, depth int) {
	explainf(w, depth, "context item")
}
