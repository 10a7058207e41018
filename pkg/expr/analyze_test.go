package expr

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/perrin-dev/sequoia/pkg/types"
)

func intLit(n int64) *Literal { return NewSingletonLiteral(types.IntegerValue(n)) }
func strLit(s string) *Literal { return NewSingletonLiteral(types.StringValue(s)) }

func analyzed(t *testing.T, e Expression) Expression {
	t.Helper()
	out, err := Analyze(e, NewStaticContext())
	require.NoError(t, err)
	return out
}

func run(t *testing.T, e Expression) []types.Item {
	t.Helper()
	items, err := evaluate(e, NewContext(0))
	require.NoError(t, err)
	return items
}

func TestConstantFolding(t *testing.T) {
	e := analyzed(t, NewArithmetic(OpPlus, intLit(1), intLit(2)))
	lit, ok := e.(*Literal)
	require.True(t, ok, "constant arithmetic should fold, got %T", e)
	assert.Equal(t, []types.Item{types.IntegerValue(3)}, lit.Value())

	e = analyzed(t, NewValueComparison(OpLt, intLit(1), intLit(2)))
	lit, ok = e.(*Literal)
	require.True(t, ok)
	assert.Equal(t, []types.Item{types.BooleanValue(true)}, lit.Value())
}

func TestFoldingNeverFoldsErrors(t *testing.T) {
	// 1 div 0 fails during folding; the node must stay in place so the
	// error keeps its dynamic timing.
	e := analyzed(t, NewArithmetic(OpDiv, intLit(1), intLit(0)))
	_, ok := e.(*Arithmetic)
	require.True(t, ok, "failing fold must leave the node, got %T", e)

	_, err := evaluate(e, NewContext(0))
	var ee *types.Error
	require.True(t, errors.As(err, &ee))
	assert.Equal(t, types.ErrDivisionByZero, ee.Code)
}

func TestDeadBranchElimination(t *testing.T) {
	// The untaken branch disappears along with any errors inside it.
	failing := NewArithmetic(OpDiv, intLit(1), intLit(0))
	e := analyzed(t, NewIf(NewBooleanLiteral(false), failing, intLit(42)))
	lit, ok := e.(*Literal)
	require.True(t, ok, "constant-false conditional should collapse, got %T", e)
	assert.Equal(t, []types.Item{types.IntegerValue(42)}, lit.Value())

	e = analyzed(t, NewIf(NewBooleanLiteral(true), intLit(7), failing))
	lit, ok = e.(*Literal)
	require.True(t, ok)
	assert.Equal(t, []types.Item{types.IntegerValue(7)}, lit.Value())
}

func TestBranchTypeErrorDeferred(t *testing.T) {
	// A type error confined to one branch is demoted to a deferred
	// dynamic error and only raised if that branch runs.
	bad := NewArithmetic(OpPlus, strLit("x"), intLit(1))
	e, err := Analyze(NewIf(NewContextItem(), bad, intLit(5)), NewStaticContext())
	require.NoError(t, err, "branch type error must not fail compilation")

	c := NewContext(0, WithContextItem(types.BooleanValue(false)))
	items, err := evaluate(e, c)
	require.NoError(t, err)
	assert.Equal(t, []types.Item{types.IntegerValue(5)}, items)

	c = NewContext(0, WithContextItem(types.BooleanValue(true)))
	_, err = evaluate(e, c)
	var ee *types.Error
	require.True(t, errors.As(err, &ee))
	assert.Equal(t, types.ErrTypeMismatch, ee.Code)
}

func TestIfTrueFalseBecomesEffectiveBoolean(t *testing.T) {
	cond := NewContextItem()
	trueCall, err := NewFunctionCall("true", nil)
	require.NoError(t, err)
	falseCall, err := NewFunctionCall("false", nil)
	require.NoError(t, err)

	e := analyzed(t, NewIf(cond, trueCall, falseCall))
	_, isChoose := e.(*Choose)
	assert.False(t, isChoose, "boolean-valued conditional should collapse, got %T", e)

	c := NewContext(0, WithContextItem(types.StringValue("nonempty")))
	items, err := evaluate(e, c)
	require.NoError(t, err)
	assert.Equal(t, []types.Item{types.BooleanValue(true)}, items)
}

func TestBlockFlattensAndMergesLiterals(t *testing.T) {
	inner := NewBlock([]Expression{intLit(2), intLit(3)})
	e := analyzed(t, NewBlock([]Expression{intLit(1), inner, NewEmptyLiteral()}))
	lit, ok := e.(*Literal)
	require.True(t, ok, "all-literal block should merge, got %T", e)
	assert.Equal(t, ints(1, 2, 3), lit.Value())

	// A single surviving operand replaces the block.
	e = analyzed(t, NewBlock([]Expression{NewContextItem()}))
	_, ok = e.(*ContextItemExpression)
	assert.True(t, ok, "got %T", e)
}

func TestLetElimination(t *testing.T) {
	sc := NewStaticContext()
	let := NewLet("unused", intLit(1), intLit(99))
	let.Allocate(sc.Slots)
	e, err := Analyze(let, sc)
	require.NoError(t, err)
	lit, ok := e.(*Literal)
	require.True(t, ok, "let with unused binding should be eliminated, got %T", e)
	assert.Equal(t, []types.Item{types.IntegerValue(99)}, lit.Value())
}

func TestBooleanShortCircuit(t *testing.T) {
	failing := NewArithmetic(OpDiv, intLit(1), intLit(0))

	// false and <error> never evaluates the right side.
	e := analyzed(t, NewAnd(NewBooleanLiteral(false), failing))
	items := run(t, e)
	assert.Equal(t, []types.Item{types.BooleanValue(false)}, items)

	// true or <error> likewise.
	e = analyzed(t, NewOr(NewBooleanLiteral(true), failing))
	items = run(t, e)
	assert.Equal(t, []types.Item{types.BooleanValue(true)}, items)

	// true and <error> must raise.
	e = analyzed(t, NewAnd(NewBooleanLiteral(true), failing))
	_, err := evaluate(e, NewContext(0))
	require.Error(t, err)
}

func TestExistsAndEmptyDischargedByCardinality(t *testing.T) {
	rng := NewRange(intLit(1), intLit(3))
	ex, err := NewFunctionCall("exists", []Expression{rng})
	require.NoError(t, err)
	e := analyzed(t, ex)
	lit, ok := e.(*Literal)
	require.True(t, ok, "exists over provably non-empty input folds, got %T", e)
	assert.Equal(t, []types.Item{types.BooleanValue(true)}, lit.Value())
}

func TestPureCallsAndRangesFoldToLiterals(t *testing.T) {
	sum, err := NewFunctionCall("sum", []Expression{NewLiteral(ints(1, 2, 3))})
	require.NoError(t, err)
	e := analyzed(t, sum)
	lit, ok := e.(*Literal)
	require.True(t, ok, "sum over literal arguments folds, got %T", e)
	assert.Equal(t, ints(6), lit.Value())

	e = analyzed(t, NewRange(intLit(2), intLit(4)))
	lit, ok = e.(*Literal)
	require.True(t, ok, "constant range folds, got %T", e)
	assert.Equal(t, ints(2, 3, 4), lit.Value())

	// Focus-dependent calls never fold.
	pos, err := NewFunctionCall("position", nil)
	require.NoError(t, err)
	assert.IsType(t, &FunctionCall{}, analyzed(t, pos))

	// A call that would raise keeps its run-time error timing.
	bad, err := NewFunctionCall("sum", []Expression{NewLiteral([]types.Item{types.StringValue("x")})})
	require.NoError(t, err)
	e = analyzed(t, bad)
	assert.IsType(t, &FunctionCall{}, e)
	_, err = evaluate(e, NewContext(0))
	require.Error(t, err)
}

func TestFilterLiteralPredicate(t *testing.T) {
	base := NewRange(intLit(1), intLit(3))

	e := analyzed(t, NewFilter(base, NewBooleanLiteral(true)))
	_, isFilter := e.(*FilterExpression)
	assert.False(t, isFilter, "always-true predicate should vanish, got %T", e)

	e = analyzed(t, NewFilter(NewRange(intLit(1), intLit(3)), NewBooleanLiteral(false)))
	lit, ok := e.(*Literal)
	require.True(t, ok, "got %T", e)
	assert.Empty(t, lit.Value())
}

func TestDeferredErrorRaisesOnEvaluation(t *testing.T) {
	d := NewDeferredError(types.NewTypeError(types.ErrTypeMismatch, "planted"))
	_, err := evaluate(d, NewContext(0))
	var ee *types.Error
	require.True(t, errors.As(err, &ee))
	assert.Equal(t, types.ErrTypeMismatch, ee.Code)

	// Raising copies the error, so the Reported flag from one run does
	// not leak into the next.
	ee.Reported = true
	_, err = evaluate(d, NewContext(0))
	require.True(t, errors.As(err, &ee))
	assert.False(t, ee.Reported)
}

func ints(vs ...int64) []types.Item {
	items := make([]types.Item, len(vs))
	for i, v := range vs {
		items[i] = types.IntegerValue(v)
	}
	return items
}
