package expr

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/perrin-dev/sequoia/pkg/types"
)

// declareCountdown registers countdown($n) = if ($n = 0) then 'done'
// else countdown($n - 1), whose recursive call is in tail position.
func declareCountdown(t *testing.T, sc *StaticContext) *UserFunction {
	t.Helper()
	fn := &UserFunction{
		Name:   "countdown",
		Params: []*Binding{{Name: "n", Slot: -1, Required: types.AnySequence}},
		Result: types.AnySequence,
	}
	sc.Functions.Declare(fn)

	n := NewVariableReference("n")
	n.FixUp(fn.Params[0])
	recur := NewUserFunctionCall("countdown",
		[]Expression{NewArithmetic(OpMinus, n, intLit(1))})
	cond := NewValueComparison(OpEq, n, intLit(0))
	fn.Body = NewIf(cond, strLit("done"), recur)

	require.NoError(t, fn.Analyze(sc))
	return fn
}

func TestTailRecursionRunsDeep(t *testing.T) {
	sc := NewStaticContext()
	fn := declareCountdown(t, sc)
	require.True(t, fn.tailCalls, "recursive call in tail position must be marked")

	// Far deeper than the recursion-depth guard allows for real
	// recursion; the trampoline keeps the depth flat.
	c := NewContext(0)
	out, err := fn.Call([][]types.Item{{types.IntegerValue(200000)}}, c)
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, "done", out[0].StringValue())
}

func TestNonTailRecursionHitsDepthGuard(t *testing.T) {
	// sumdown($n) = if ($n = 0) then 0 else $n + sumdown($n - 1): the
	// recursive call feeds an addition, so it is not a tail call and
	// each level consumes a recursion slot.
	sc := NewStaticContext()
	fn := &UserFunction{
		Name:   "sumdown",
		Params: []*Binding{{Name: "n", Slot: -1, Required: types.AnySequence}},
		Result: types.AnySequence,
	}
	sc.Functions.Declare(fn)
	n := NewVariableReference("n")
	n.FixUp(fn.Params[0])
	recur := NewUserFunctionCall("sumdown",
		[]Expression{NewArithmetic(OpMinus, n, intLit(1))})
	fn.Body = NewIf(NewValueComparison(OpEq, n, intLit(0)),
		intLit(0), NewArithmetic(OpPlus, n, recur))
	require.NoError(t, fn.Analyze(sc))
	assert.False(t, fn.tailCalls)

	c := NewContext(0)
	out, err := fn.Call([][]types.Item{{types.IntegerValue(100)}}, c)
	require.NoError(t, err)
	assert.Equal(t, ints(5050), out)

	_, err = fn.Call([][]types.Item{{types.IntegerValue(200000)}}, c)
	assert.Equal(t, types.ErrRecursionTooDeep, errCode(t, err))
}

func TestMutualTailRecursion(t *testing.T) {
	// odd($n) and even($n) bounce between each other in tail position.
	sc := NewStaticContext()
	odd := &UserFunction{
		Name:   "is-odd",
		Params: []*Binding{{Name: "n", Slot: -1, Required: types.AnySequence}},
		Result: types.AnySequence,
	}
	even := &UserFunction{
		Name:   "is-even",
		Params: []*Binding{{Name: "n", Slot: -1, Required: types.AnySequence}},
		Result: types.AnySequence,
	}
	sc.Functions.Declare(odd)
	sc.Functions.Declare(even)

	body := func(self *UserFunction, zero bool, other string) Expression {
		n := NewVariableReference("n")
		n.FixUp(self.Params[0])
		recur := NewUserFunctionCall(other,
			[]Expression{NewArithmetic(OpMinus, n, intLit(1))})
		return NewIf(NewValueComparison(OpEq, n, intLit(0)),
			NewBooleanLiteral(zero), recur)
	}
	odd.Body = body(odd, false, "is-even")
	even.Body = body(even, true, "is-odd")
	require.NoError(t, odd.Analyze(sc))
	require.NoError(t, even.Analyze(sc))

	c := NewContext(0)
	out, err := even.Call([][]types.Item{{types.IntegerValue(100001)}}, c)
	require.NoError(t, err)
	assert.Equal(t, []types.Item{types.BooleanValue(false)}, out)
}

func TestMemoization(t *testing.T) {
	// A memoized pure function evaluates its body once per distinct
	// argument list. The body bumps a counter through a side-effecting
	// builtin stand-in: we count via a custom trace listener instead,
	// since pure bodies have no other observable effect.
	sc := NewStaticContext()
	fn := &UserFunction{
		Name:    "double",
		Params:  []*Binding{{Name: "n", Slot: -1, Required: types.AnySequence}},
		Result:  types.AnySequence,
		Memoize: true,
	}
	sc.Functions.Declare(fn)
	n := NewVariableReference("n")
	n.FixUp(fn.Params[0])
	fn.Body = NewTrace(NewArithmetic(OpTimes, n, intLit(2)), "function", "double")
	require.NoError(t, fn.Analyze(sc))
	require.NotNil(t, fn.memo, "pure memoized body gets a cache")

	counting := &countingListener{}
	c := NewContext(0, WithTraceListener(counting))

	args := [][]types.Item{{types.IntegerValue(21)}}
	out, err := fn.Call(args, c)
	require.NoError(t, err)
	assert.Equal(t, ints(42), out)

	out, err = fn.Call(args, c)
	require.NoError(t, err)
	assert.Equal(t, ints(42), out)
	assert.Equal(t, 1, counting.entered, "second call must hit the cache")

	_, err = fn.Call([][]types.Item{{types.IntegerValue(5)}}, c)
	require.NoError(t, err)
	assert.Equal(t, 2, counting.entered, "distinct arguments miss")
}

func TestMemoizationDeclinedForOutputBodies(t *testing.T) {
	sc := NewStaticContext()
	fn := &UserFunction{
		Name:    "emit",
		Params:  nil,
		Result:  types.AnySequence,
		Memoize: true,
	}
	sc.Functions.Declare(fn)
	fn.Body = NewText(strLit("x"))
	require.NoError(t, fn.Analyze(sc))
	assert.Nil(t, fn.memo, "output-writing body must not be memoized")
}

type countingListener struct {
	entered int
	left    int
}

func (l *countingListener) Enter(InstructionInfo, *Context) { l.entered++ }
func (l *countingListener) Leave(InstructionInfo) { l.left++ }
