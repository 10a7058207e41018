package expr

import (
	"io"

	"github.com/perrin-dev/sequoia/pkg/iter"
	"github.com/perrin-dev/sequoia/pkg/types"
)

// DeferredError raises a pre-computed dynamic error when (and only
// when) it is evaluated. Type-checking plants one in place of a
// conditional branch whose type failure must not surface unless the
// branch is actually reached.
type DeferredError struct {
	baseExpr
	err *types.Error
}

// NewDeferredError wraps an error for deferred raising.
func NewDeferredError(err *types.Error) *DeferredError {
	return &DeferredError{err: err}
}

func (d *DeferredError) Simplify() (Expression, error) { return d, nil }
func (d *DeferredError) TypeCheck(sc *StaticContext) (Expression, error) { return d, nil }
func (d *DeferredError) Optimize(sc *StaticContext) (Expression, error) { return d, nil }

func (d *DeferredError) ItemType() types.ItemType { return types.AnyItemType }
func (d *DeferredError) Cardinality() types.Cardinality { return types.CardZeroOrMore }
func (d *DeferredError) Dependencies() Dependency { return DepOutput }
func (d *DeferredError) Children() []Expression { return nil }

func (d *DeferredError) raise() error {
	// Copy so Reported state never leaks between runs of one program.
	err := *d.err
	return err.WithLocation(d.loc)
}

func (d *DeferredError) Iterate(c *Context) (iter.SequenceIterator, error) {
	return nil, d.raise()
}

func (d *DeferredError) Process(c *Context) error { return d.raise() }

func (d *DeferredError) EvaluateItem(c *Context) (types.Item, error) {
	return nil, d.raise()
}

func (d *DeferredError) Explain(w io.Writer, depth int) {
	explainf(w, depth, "deferred-error %s", d.err.Code)
}
