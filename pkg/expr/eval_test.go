package expr

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/perrin-dev/sequoia/pkg/iter"
	"github.com/perrin-dev/sequoia/pkg/push"
	"github.com/perrin-dev/sequoia/pkg/types"
)

// call builds and analyzes a builtin call over the given arguments.
func call(t *testing.T, name string, args ...Expression) Expression {
	t.Helper()
	fc, err := NewFunctionCall(name, args)
	require.NoError(t, err)
	return analyzed(t, fc)
}

func errCode(t *testing.T, err error) types.ErrorCode {
	t.Helper()
	var ee *types.Error
	require.True(t, errors.As(err, &ee), "want *types.Error, got %v", err)
	return ee.Code
}

func TestArithmeticSemantics(t *testing.T) {
	c := NewContext(0)
	for _, tc := range []struct {
		op   ArithOp
		lhs  types.Item
		rhs  types.Item
		want types.Item
	}{
		{OpPlus, types.IntegerValue(2), types.IntegerValue(3), types.IntegerValue(5)},
		{OpMinus, types.IntegerValue(2), types.IntegerValue(5), types.IntegerValue(-3)},
		{OpTimes, types.IntegerValue(4), types.IntegerValue(5), types.IntegerValue(20)},
		{OpDiv, types.IntegerValue(7), types.IntegerValue(2), types.DoubleValue(3.5)},
		{OpMod, types.IntegerValue(7), types.IntegerValue(4), types.IntegerValue(3)},
		{OpPlus, types.DoubleValue(1.5), types.IntegerValue(1), types.DoubleValue(2.5)},
		{OpPlus, types.UntypedValue("2"), types.IntegerValue(1), types.DoubleValue(3)},
	} {
		e := NewArithmetic(tc.op, NewSingletonLiteral(tc.lhs), NewSingletonLiteral(tc.rhs))
		got, err := e.EvaluateItem(c)
		require.NoError(t, err, "%v %s %v", tc.lhs, tc.op, tc.rhs)
		assert.Equal(t, tc.want, got, "%v %s %v", tc.lhs, tc.op, tc.rhs)
	}
}

func TestArithmeticEmptyOperand(t *testing.T) {
	e := NewArithmetic(OpPlus, NewEmptyLiteral(), intLit(1))
	got, err := e.EvaluateItem(NewContext(0))
	require.NoError(t, err)
	assert.Nil(t, got, "empty operand makes the result empty")
}

func TestDivideByZero(t *testing.T) {
	e := NewArithmetic(OpDiv, intLit(1), intLit(0))
	_, err := e.EvaluateItem(NewContext(0))
	assert.Equal(t, types.ErrDivisionByZero, errCode(t, err))

	e = NewArithmetic(OpMod, intLit(1), intLit(0))
	_, err = e.EvaluateItem(NewContext(0))
	assert.Equal(t, types.ErrDivisionByZero, errCode(t, err))
}

func TestComparisonAcrossNumericTypes(t *testing.T) {
	sc := NewStaticContext()
	e, err := Analyze(NewValueComparison(OpEq,
		NewSingletonLiteral(types.IntegerValue(3)),
		NewSingletonLiteral(types.DoubleValue(3.0))), sc)
	require.NoError(t, err)
	items := run(t, e)
	assert.Equal(t, []types.Item{types.BooleanValue(true)}, items)
}

func TestComparisonEmptyOperandIsEmpty(t *testing.T) {
	sc := NewStaticContext()
	e, err := Analyze(NewValueComparison(OpLt, NewEmptyLiteral(), intLit(1)), sc)
	require.NoError(t, err)
	items := run(t, e)
	assert.Empty(t, items)
}

func TestCountSumAvg(t *testing.T) {
	seq := func() Expression { return NewRange(intLit(1), intLit(4)) }

	assert.Equal(t, ints(4), run(t, call(t, "count", seq())))
	assert.Equal(t, ints(10), run(t, call(t, "sum", seq())))

	items := run(t, call(t, "avg", seq()))
	require.Len(t, items, 1)
	assert.Equal(t, types.DoubleValue(2.5), items[0])

	// sum of empty defaults to integer zero, or the supplied default.
	assert.Equal(t, ints(0), run(t, call(t, "sum", NewEmptyLiteral())))
	assert.Equal(t, []types.Item{types.StringValue("none")},
		run(t, call(t, "sum", NewEmptyLiteral(), strLit("none"))))
	assert.Empty(t, run(t, call(t, "avg", NewEmptyLiteral())))
}

func TestMinMax(t *testing.T) {
	seq := NewLiteral([]types.Item{
		types.IntegerValue(5), types.DoubleValue(2.5), types.IntegerValue(9),
	})
	items := run(t, call(t, "min", seq))
	require.Len(t, items, 1)
	assert.Equal(t, types.DoubleValue(2.5), items[0])

	items = run(t, call(t, "max", NewLiteral(ints(5, 2, 9))))
	require.Len(t, items, 1)
	assert.Equal(t, types.IntegerValue(9), items[0])

	assert.Empty(t, run(t, call(t, "min", NewEmptyLiteral())))
}

func TestStringFunctions(t *testing.T) {
	assert.Equal(t, []types.Item{types.StringValue("a-b")},
		run(t, call(t, "string-join", NewLiteral([]types.Item{
			types.StringValue("a"), types.StringValue("b"),
		}), strLit("-"))))

	assert.Equal(t, []types.Item{types.StringValue("ab")},
		run(t, call(t, "concat", strLit("a"), strLit("b"))))

	assert.Equal(t, ints(5), run(t, call(t, "string-length", strLit("héllo"))))

	assert.Equal(t, []types.Item{types.StringValue("a b c")},
		run(t, call(t, "normalize-space", strLit("  a \t b \n c "))))
}

func TestBooleanFunctions(t *testing.T) {
	assert.Equal(t, []types.Item{types.BooleanValue(true)},
		run(t, call(t, "boolean", strLit("x"))))
	assert.Equal(t, []types.Item{types.BooleanValue(true)},
		run(t, call(t, "not", NewEmptyLiteral())))
	assert.Equal(t, []types.Item{types.BooleanValue(true)},
		run(t, call(t, "empty", NewEmptyLiteral())))

	// A sequence of two booleans has no effective boolean value.
	bad := NewLiteral([]types.Item{types.BooleanValue(true), types.BooleanValue(true)})
	fc, err := NewFunctionCall("boolean", []Expression{bad})
	require.NoError(t, err)
	_, err = evaluate(fc, NewContext(0))
	assert.Equal(t, types.ErrBadEffectiveBoolean, errCode(t, err))
}

func TestReverse(t *testing.T) {
	assert.Equal(t, ints(3, 2, 1),
		run(t, call(t, "reverse", NewLiteral(ints(1, 2, 3)))))
	assert.Empty(t, run(t, call(t, "reverse", NewEmptyLiteral())))
}

func TestFilterPositional(t *testing.T) {
	sc := NewStaticContext()

	// Numeric predicate selects by position.
	two, err := NewFunctionCall("position", nil)
	require.NoError(t, err)
	e, err := Analyze(NewFilter(NewRange(intLit(10), intLit(14)),
		NewValueComparison(OpEq, two, intLit(3))), sc)
	require.NoError(t, err)
	assert.Equal(t, ints(12), run(t, e))

	// Literal number predicate.
	e, err = Analyze(NewFilter(NewRange(intLit(10), intLit(14)), intLit(2)), sc)
	require.NoError(t, err)
	assert.Equal(t, ints(11), run(t, e))

	// last() forces the size to be computed up front.
	lastCall, err := NewFunctionCall("last", nil)
	require.NoError(t, err)
	e, err = Analyze(NewFilter(NewRange(intLit(10), intLit(14)), lastCall), sc)
	require.NoError(t, err)
	assert.Equal(t, ints(14), run(t, e))
}

func TestRangeSemantics(t *testing.T) {
	assert.Equal(t, ints(2, 3, 4), run(t, analyzed(t, NewRange(intLit(2), intLit(4)))))
	assert.Equal(t, ints(7), run(t, analyzed(t, NewRange(intLit(7), intLit(7)))))
	// start > end is empty, not an error.
	assert.Empty(t, run(t, analyzed(t, NewRange(intLit(5), intLit(2)))))
}

func TestCastBasics(t *testing.T) {
	sc := NewStaticContext()

	e, err := Analyze(NewCast(strLit("17"), types.TypeInteger, false, nil), sc)
	require.NoError(t, err)
	assert.Equal(t, ints(17), run(t, e))

	// Empty input: permitted only with the empty-allowed flag.
	e, err = Analyze(NewCast(NewEmptyLiteral(), types.TypeInteger, true, nil), sc)
	require.NoError(t, err)
	assert.Empty(t, run(t, e))

	bad := NewCast(NewEmptyLiteral(), types.TypeInteger, false, nil)
	_, err = evaluate(bad, NewContext(0))
	assert.Equal(t, types.ErrEmptyNotAllowed, errCode(t, err))

	// Failed conversion.
	fail := NewCast(strLit("not a number"), types.TypeInteger, false, nil)
	_, err = evaluate(fail, NewContext(0))
	assert.Equal(t, types.ErrCastFailed, errCode(t, err))
}

func TestCastableNeverRaisesConversionErrors(t *testing.T) {
	for _, tc := range []struct {
		operand Expression
		want    bool
	}{
		{strLit("42"), true},
		{strLit("nope"), false},
		{NewEmptyLiteral(), false},
		{NewLiteral(ints(1, 2)), false},
	} {
		e := NewCastable(tc.operand, types.TypeInteger, false, nil)
		got, err := e.EvaluateItem(NewContext(0))
		require.NoError(t, err)
		assert.Equal(t, types.BooleanValue(tc.want), got)
	}
}

func TestCastableQNameWithoutNamespaces(t *testing.T) {
	// Castable carries no static namespace guard, so a missing
	// resolver must surface as false for prefixed names and never
	// crash.
	for _, tc := range []struct {
		operand string
		want    bool
	}{
		{"a", true},
		{"p:a", false},
	} {
		e, err := Analyze(NewCastable(strLit(tc.operand), types.TypeQName, false, nil), NewStaticContext())
		require.NoError(t, err)
		got, err := e.EvaluateItem(NewContext(0))
		require.NoError(t, err)
		assert.Equal(t, types.BooleanValue(tc.want), got, "operand %q", tc.operand)
	}

	// With the empty-allowed flag an empty operand is castable.
	e := NewCastable(NewEmptyLiteral(), types.TypeInteger, true, nil)
	got, err := e.EvaluateItem(NewContext(0))
	require.NoError(t, err)
	assert.Equal(t, types.BooleanValue(true), got)
}

func TestCheckedExpressionLaziness(t *testing.T) {
	required := types.SequenceType{
		Item: types.AtomicItemType(types.TypeInteger),
		Card: types.CardZeroOrOne,
	}
	ce := TypeChecked(NewLiteral(ints(1, 2, 3)), required, "the result")
	it, err := ce.Iterate(NewContext(0))
	require.NoError(t, err)
	defer it.Close()

	// The first item passes; the error surfaces exactly on the second.
	first, err := it.Next()
	require.NoError(t, err)
	assert.Equal(t, types.IntegerValue(1), first)

	_, err = it.Next()
	assert.Equal(t, types.ErrBadCardinality, errCode(t, err))
}

func TestCheckedExpressionEmptyRejected(t *testing.T) {
	required := types.SequenceType{
		Item: types.AtomicItemType(types.TypeInteger),
		Card: types.CardExactlyOne,
	}
	ce := TypeChecked(NewEmptyLiteral(), required, "the result")
	_, err := evaluate(ce, NewContext(0))
	assert.Equal(t, types.ErrEmptyNotAllowed, errCode(t, err))
}

func TestCheckedExpressionDischargedStatically(t *testing.T) {
	required := types.AnySequence
	lit := intLit(1)
	assert.Same(t, Expression(lit), TypeChecked(lit, required, "x"),
		"a requirement the static type proves must insert nothing")
}

func TestProtocolEquivalence(t *testing.T) {
	// The same tree run through Iterate and Process yields the same
	// sequence.
	sc := NewStaticContext()
	let := NewLet("n", intLit(3), nil)
	let.Allocate(sc.Slots)
	ref := NewVariableReference("n")
	ref.FixUp(let.Binding())
	let.SetBody(NewRange(intLit(1), ref))
	e, err := Analyze(let, sc)
	require.NoError(t, err)

	c := NewContext(sc.Slots.FrameSize())
	pulled, err := evaluate(e, c)
	require.NoError(t, err)

	coll := &push.SequenceCollector{}
	pc := NewContext(sc.Slots.FrameSize(), WithReceiver(coll))
	require.NoError(t, e.Process(pc))

	assert.Equal(t, pulled, coll.Items())
}

func TestForExpressionMapping(t *testing.T) {
	sc := NewStaticContext()
	f := NewFor("i", NewRange(intLit(1), intLit(3)), nil)
	f.Allocate(sc.Slots)
	ref := NewVariableReference("i")
	ref.FixUp(f.Binding())
	f.SetBody(NewArithmetic(OpTimes, ref, intLit(10)))
	e, err := Analyze(f, sc)
	require.NoError(t, err)

	c := NewContext(sc.Slots.FrameSize())
	items, err := evaluate(e, c)
	require.NoError(t, err)
	assert.Equal(t, ints(10, 20, 30), items)
}

func TestContextItemMissing(t *testing.T) {
	_, err := NewContextItem().EvaluateItem(NewContext(0))
	assert.Equal(t, types.ErrNoContextItem, errCode(t, err))
}

func TestRecursionDepthLimit(t *testing.T) {
	c := NewContext(0, WithMaxRecursionDepth(3))
	require.NoError(t, c.enterRecursion())
	require.NoError(t, c.enterRecursion())
	require.NoError(t, c.enterRecursion())
	err := c.enterRecursion()
	assert.Equal(t, types.ErrRecursionTooDeep, errCode(t, err))
}

func TestIterateMatchesDrainCount(t *testing.T) {
	e := analyzed(t, NewBlock([]Expression{
		NewRange(intLit(1), intLit(3)),
		NewRange(intLit(10), intLit(11)),
	}))
	it, err := e.Iterate(NewContext(0))
	require.NoError(t, err)
	n, err := iter.Count(it)
	require.NoError(t, err)
	assert.Equal(t, 5, n)
}
