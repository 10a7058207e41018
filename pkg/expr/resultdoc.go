package expr

import (
	"io"

	"github.com/perrin-dev/sequoia/pkg/iter"
	"github.com/perrin-dev/sequoia/pkg/push"
	"github.com/perrin-dev/sequoia/pkg/types"
)

// ResultDocumentInstruction writes its content as a document to a
// secondary output URI. The run's resource ledger rejects writing a URI
// twice and writing a URI the same run already read, in either order of
// discovery. The instruction's own value is the empty sequence.
type ResultDocumentInstruction struct {
	baseExpr
	href    Expression
	content Expression
}

func NewResultDocument(href, content Expression) *ResultDocumentInstruction {
	return &ResultDocumentInstruction{href: href, content: content}
}

func (rd *ResultDocumentInstruction) Simplify() (Expression, error) {
	var err error
	if rd.href, err = rd.href.Simplify(); err != nil {
		return nil, err
	}
	if rd.content, err = rd.content.Simplify(); err != nil {
		return nil, err
	}
	return rd, nil
}

func (rd *ResultDocumentInstruction) TypeCheck(sc *StaticContext) (Expression, error) {
	var err error
	if rd.href, err = rd.href.TypeCheck(sc); err != nil {
		return nil, err
	}
	if rd.content, err = rd.content.TypeCheck(sc); err != nil {
		return nil, err
	}
	return rd, nil
}

func (rd *ResultDocumentInstruction) Optimize(sc *StaticContext) (Expression, error) {
	var err error
	if rd.href, err = rd.href.Optimize(sc); err != nil {
		return nil, err
	}
	if rd.content, err = rd.content.Optimize(sc); err != nil {
		return nil, err
	}
	return rd, nil
}

func (rd *ResultDocumentInstruction) ItemType() types.ItemType { return types.AnyItemType }
func (rd *ResultDocumentInstruction) Cardinality() types.Cardinality { return types.CardEmpty }

func (rd *ResultDocumentInstruction) Dependencies() Dependency {
	return DepOutput | rd.href.Dependencies() | rd.content.Dependencies()
}

func (rd *ResultDocumentInstruction) Children() []Expression {
	return []Expression{rd.href, rd.content}
}

func (rd *ResultDocumentInstruction) Process(c *Context) error {
	items, err := evaluate(rd.href, c)
	if err != nil {
		return err
	}
	if len(items) != 1 {
		return types.NewDynamicError(types.ErrResultURIConflict,
			"result document requires a single href value").WithLocation(rd.loc)
	}
	uri := types.Atomize(items[0]).StringValue()
	if err := c.Ledger().MarkWritten(uri); err != nil {
		return withLoc(err, rd)
	}
	dest, err := c.resolveResult(uri)
	if err != nil {
		return withLoc(err, rd)
	}
	out := push.NewNamespaceReducer(dest)
	if err := out.Open(); err != nil {
		return withLoc(err, rd)
	}
	if err := out.StartDocument(); err != nil {
		return withLoc(err, rd)
	}
	if err := rd.content.Process(c.WithReceiver(out)); err != nil {
		return err
	}
	if err := out.EndDocument(); err != nil {
		return withLoc(err, rd)
	}
	return withLoc(out.Close(), rd)
}

func (rd *ResultDocumentInstruction) Iterate(c *Context) (iter.SequenceIterator, error) {
	if err := rd.Process(c); err != nil {
		return nil, err
	}
	return iter.Empty(), nil
}

func (rd *ResultDocumentInstruction) EvaluateItem(c *Context) (types.Item, error) {
	if err := rd.Process(c); err != nil {
		return nil, err
	}
	return nil, nil
}

func (rd *ResultDocumentInstruction) Explain(w io.Writer, depth int) {
	explainf(w, depth, "result-document")
	rd.href.Explain(w, depth+1)
	rd.content.Explain(w, depth+1)
}
