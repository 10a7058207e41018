package expr

import (
	"fmt"
	"io"
	"strings"

	"github.com/perrin-dev/sequoia/pkg/cache"
	"github.com/perrin-dev/sequoia/pkg/iter"
	"github.com/perrin-dev/sequoia/pkg/types"
)

// UserFunction is a named, user-declared function: parameter bindings,
// a body expression, and the frame size its activation needs.
//
// Calls in tail position of the body do not recurse: they deposit a
// pending invocation in the context and return, and Call loops. Deep
// self- and mutual recursion therefore runs in constant stack.
type UserFunction struct {
	Name      string
	Params    []*Binding
	Body      Expression
	FrameSize int
	Result    types.SequenceType

	// Memoize caches results by argument key. Only pure bodies are
	// eligible; the declaration is ignored for output-writing bodies.
	Memoize bool

	tailCalls bool
	memo      *cache.Cache[[]types.Item]
}

// Analyze runs the static passes over the body, allocates parameter
// slots, and marks tail calls. The surrounding library must already be
// populated so recursive references resolve.
func (f *UserFunction) Analyze(sc *StaticContext) error {
	slots := &SlotManager{}
	for _, p := range f.Params {
		slots.Allocate(p)
	}
	fsc := *sc
	fsc.Slots = slots

	body, err := f.Body.Simplify()
	if err != nil {
		return err
	}
	if body, err = body.TypeCheck(&fsc); err != nil {
		return err
	}
	if body, err = body.Optimize(&fsc); err != nil {
		return err
	}
	f.Body = body
	f.FrameSize = slots.FrameSize()

	f.tailCalls = markTailCalls(f.Body, true)
	if f.Memoize && f.Body.Dependencies()&DepOutput == 0 {
		f.memo = cache.New[[]types.Item](256)
	}
	return nil
}

// markTailCalls marks user-function calls in tail position and reports
// whether any were marked.
func markTailCalls(e Expression, isTail bool) bool {
	marked := false
	switch n := e.(type) {
	case *UserFunctionCall:
		if isTail {
			n.tail = true
			return true
		}
	case *Choose:
		for _, cond := range n.conditions {
			markTailCalls(cond, false)
		}
		for _, act := range n.actions {
			if markTailCalls(act, isTail) {
				marked = true
			}
		}
		return marked
	case *LetExpression:
		markTailCalls(n.sequence, false)
		return markTailCalls(n.body, isTail)
	case *TraceExpression:
		return markTailCalls(n.operand, isTail)
	}
	for _, ch := range e.Children() {
		markTailCalls(ch, false)
	}
	return false
}

// Call activates the function. The loop re-enters when the body left a
// pending tail invocation instead of a result.
func (f *UserFunction) Call(args [][]types.Item, c *Context) ([]types.Item, error) {
	if err := c.enterRecursion(); err != nil {
		return nil, err
	}
	defer c.leaveRecursion()

	if f.memo != nil {
		key := memoKey(args)
		if v, ok := f.memo.Get(key); ok {
			return v, nil
		}
		v, err := f.invoke(args, c)
		if err != nil {
			return nil, err
		}
		f.memo.Set(key, v)
		return v, nil
	}
	return f.invoke(args, c)
}

func (f *UserFunction) invoke(args [][]types.Item, c *Context) ([]types.Item, error) {
	fn := f
	for {
		fc := c.WithFrame(fn.FrameSize)
		for i, p := range fn.Params {
			fc.SetSlot(p.Slot, args[i])
		}
		var pending pendingTail
		if fn.tailCalls {
			fc.tail = &pending
		}
		result, err := evaluate(fn.Body, fc)
		if err != nil {
			return nil, err
		}
		if pending.fn == nil {
			return result, nil
		}
		fn = pending.fn
		args = pending.args
	}
}

// pendingTail carries a deferred tail invocation from a marked call
// site back to the trampoline in Call.
type pendingTail struct {
	fn   *UserFunction
	args [][]types.Item
}

func memoKey(args [][]types.Item) string {
	var sb strings.Builder
	for i, a := range args {
		if i > 0 {
			sb.WriteByte(0x1f)
		}
		sb.WriteString(types.SequenceString(a))
	}
	return sb.String()
}

// UserFunctionCall invokes a user-declared function. The reference is
// resolved by name and arity during type checking.
type UserFunctionCall struct {
	baseExpr
	Name string
	args []Expression
	fn   *UserFunction

	// tail is set when the call is in tail position of the enclosing
	// function's body.
	tail bool
}

func NewUserFunctionCall(name string, args []Expression) *UserFunctionCall {
	return &UserFunctionCall{Name: name, args: args}
}

func (u *UserFunctionCall) Simplify() (Expression, error) {
	var err error
	for i := range u.args {
		if u.args[i], err = u.args[i].Simplify(); err != nil {
			return nil, err
		}
	}
	return u, nil
}

func (u *UserFunctionCall) TypeCheck(sc *StaticContext) (Expression, error) {
	var err error
	for i := range u.args {
		if u.args[i], err = u.args[i].TypeCheck(sc); err != nil {
			return nil, err
		}
	}
	fn, ok := sc.Functions.Lookup(u.Name, len(u.args))
	if !ok {
		return nil, types.NewStaticError(types.ErrUnknownFunction,
			fmt.Sprintf("unknown function %s#%d", u.Name, len(u.args))).WithLocation(u.loc)
	}
	u.fn = fn
	return u, nil
}

func (u *UserFunctionCall) Optimize(sc *StaticContext) (Expression, error) {
	var err error
	for i := range u.args {
		if u.args[i], err = u.args[i].Optimize(sc); err != nil {
			return nil, err
		}
	}
	return u, nil
}

func (u *UserFunctionCall) ItemType() types.ItemType {
	if u.fn == nil {
		return types.AnyItemType
	}
	return u.fn.Result.Item
}

func (u *UserFunctionCall) Cardinality() types.Cardinality {
	if u.fn == nil {
		return types.CardZeroOrMore
	}
	return u.fn.Result.Card
}

func (u *UserFunctionCall) Dependencies() Dependency {
	return DepUserFunctions | dependenciesOf(u.args...)
}

func (u *UserFunctionCall) Children() []Expression { return u.args }

func (u *UserFunctionCall) call(c *Context) ([]types.Item, error) {
	args := make([][]types.Item, len(u.args))
	for i, a := range u.args {
		v, err := evaluate(a, c)
		if err != nil {
			return nil, err
		}
		args[i] = v
	}
	if u.tail && c.tail != nil {
		// Hand the invocation to the trampoline instead of recursing.
		c.tail.fn = u.fn
		c.tail.args = args
		return nil, nil
	}
	result, err := u.fn.Call(args, c)
	if err != nil {
		return nil, withLoc(err, u)
	}
	return result, nil
}

func (u *UserFunctionCall) Iterate(c *Context) (iter.SequenceIterator, error) {
	result, err := u.call(c)
	if err != nil {
		return nil, err
	}
	return iter.FromSlice(result), nil
}

func (u *UserFunctionCall) Process(c *Context) error { return processViaIterate(u, c) }

func (u *UserFunctionCall) EvaluateItem(c *Context) (types.Item, error) {
	result, err := u.call(c)
	if err != nil {
		return nil, err
	}
	if len(result) == 0 {
		return nil, nil
	}
	return result[0], nil
}

func (u *UserFunctionCall) Explain(w io.Writer, depth int) {
	suffix := ""
	if u.tail {
		suffix = " (tail)"
	}
	explainf(w, depth, "call %s#%d%s", u.Name, len(u.args), suffix)
	for _, a := range u.args {
		a.Explain(w, depth+1)
	}
}
