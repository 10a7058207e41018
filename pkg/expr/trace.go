package expr

import (
	"io"
	"log/slog"

	"github.com/perrin-dev/sequoia/pkg/iter"
	"github.com/perrin-dev/sequoia/pkg/types"
)

// TraceExpression wraps an operand transparently, notifying the trace
// listener around each evaluation. It delegates static properties to
// the operand so its presence never changes inferred types, and it is
// invisible to optimization rewrites of the operand itself.
type TraceExpression struct {
	baseExpr
	operand   Expression
	Construct string
	Label     string
}

func NewTrace(operand Expression, construct, label string) *TraceExpression {
	return &TraceExpression{operand: operand, Construct: construct, Label: label}
}

func (t *TraceExpression) Simplify() (Expression, error) {
	var err error
	if t.operand, err = t.operand.Simplify(); err != nil {
		return nil, err
	}
	return t, nil
}

func (t *TraceExpression) TypeCheck(sc *StaticContext) (Expression, error) {
	var err error
	if t.operand, err = t.operand.TypeCheck(sc); err != nil {
		return nil, err
	}
	return t, nil
}

func (t *TraceExpression) Optimize(sc *StaticContext) (Expression, error) {
	var err error
	if t.operand, err = t.operand.Optimize(sc); err != nil {
		return nil, err
	}
	return t, nil
}

func (t *TraceExpression) ItemType() types.ItemType { return t.operand.ItemType() }
func (t *TraceExpression) Cardinality() types.Cardinality { return t.operand.Cardinality() }
func (t *TraceExpression) Dependencies() Dependency { return t.operand.Dependencies() }
func (t *TraceExpression) Children() []Expression { return []Expression{t.operand} }

func (t *TraceExpression) info() InstructionInfo {
	return InstructionInfo{Construct: t.Construct, Label: t.Label, Loc: t.loc}
}

func (t *TraceExpression) Iterate(c *Context) (iter.SequenceIterator, error) {
	if !c.Tracing() {
		return t.operand.Iterate(c)
	}
	info := t.info()
	c.Trace().Enter(info, c)
	it, err := t.operand.Iterate(c)
	if err != nil {
		c.Trace().Leave(info)
		return nil, err
	}
	// The listener sees matched enter/leave pairs even when the caller
	// abandons the iterator: Leave fires when the sequence is exhausted
	// or closed, whichever comes first.
	return &traceIterator{base: it, info: info, listener: c.Trace()}, nil
}

func (t *TraceExpression) Process(c *Context) error {
	if !c.Tracing() {
		return t.operand.Process(c)
	}
	info := t.info()
	c.Trace().Enter(info, c)
	defer c.Trace().Leave(info)
	return t.operand.Process(c)
}

func (t *TraceExpression) EvaluateItem(c *Context) (types.Item, error) {
	if !c.Tracing() {
		return t.operand.EvaluateItem(c)
	}
	info := t.info()
	c.Trace().Enter(info, c)
	defer c.Trace().Leave(info)
	return t.operand.EvaluateItem(c)
}

func (t *TraceExpression) Explain(w io.Writer, depth int) {
	explainf(w, depth, "trace %s %q", t.Construct, t.Label)
	t.operand.Explain(w, depth+1)
}

type traceIterator struct {
	base     iter.SequenceIterator
	info     InstructionInfo
	listener TraceListener
	left     bool
}

func (t *traceIterator) leave() {
	if !t.left {
		t.left = true
		t.listener.Leave(t.info)
	}
}

func (t *traceIterator) Next() (types.Item, error) {
	item, err := t.base.Next()
	if err != nil || item == nil {
		t.leave()
	}
	return item, err
}

func (t *traceIterator) Current() types.Item { return t.base.Current() }
func (t *traceIterator) Position() int { return t.base.Position() }

func (t *traceIterator) Close() {
	t.leave()
	t.base.Close()
}

func (t *traceIterator) Another() (iter.SequenceIterator, error) {
	base, err := t.base.Another()
	if err != nil {
		return nil, err
	}
	return &traceIterator{base: base, info: t.info, listener: t.listener}, nil
}

// SlogTraceListener logs enter and leave events through structured
// logging at debug level.
type SlogTraceListener struct {
	Logger *slog.Logger
}

func (l *SlogTraceListener) logger() *slog.Logger {
	if l.Logger != nil {
		return l.Logger
	}
	return slog.Default()
}

func (l *SlogTraceListener) Enter(info InstructionInfo, c *Context) {
	attrs := []any{"construct", info.Construct, "label", info.Label}
	if f := c.Focus(); f != nil && f.Item != nil {
		attrs = append(attrs, "context_item", f.Item.StringValue(), "position", f.Position)
	}
	l.logger().Debug("trace enter", attrs...)
}

func (l *SlogTraceListener) Leave(info InstructionInfo) {
	l.logger().Debug("trace leave", "construct", info.Construct, "label", info.Label)
}
