package shorthand_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/perrin-dev/sequoia/pkg/expr"
	"github.com/perrin-dev/sequoia/pkg/program"
	"github.com/perrin-dev/sequoia/pkg/shorthand"
	"github.com/perrin-dev/sequoia/pkg/tree"
	"github.com/perrin-dev/sequoia/pkg/types"
)

func eval(t *testing.T, source string, opts ...program.RunOption) []types.Item {
	t.Helper()
	sc := expr.NewStaticContext()
	root, err := shorthand.Read(source, sc)
	require.NoError(t, err, "read %q", source)
	p, err := program.Compile(root, sc)
	require.NoError(t, err, "compile %q", source)
	out, err := p.Evaluate(opts...)
	require.NoError(t, err, "evaluate %q", source)
	return out
}

func evalErr(t *testing.T, source string, opts ...program.RunOption) error {
	t.Helper()
	sc := expr.NewStaticContext()
	root, err := shorthand.Read(source, sc)
	if err != nil {
		return err
	}
	p, err := program.Compile(root, sc)
	if err != nil {
		return err
	}
	_, err = p.Evaluate(opts...)
	return err
}

func TestArithmetic(t *testing.T) {
	for _, tc := range []struct {
		source string
		want   types.Item
	}{
		{"1 + 2", types.IntegerValue(3)},
		{"2 * 3 + 4", types.IntegerValue(10)},
		{"2 + 3 * 4", types.IntegerValue(14)},
		{"7 mod 4", types.IntegerValue(3)},
		{"-5 + 2", types.IntegerValue(-3)},
		{"1.5 + 1.5", types.DoubleValue(3.0)},
	} {
		out := eval(t, tc.source)
		require.Len(t, out, 1, tc.source)
		assert.Equal(t, tc.want, out[0], tc.source)
	}
}

func TestComparisonAndBoolean(t *testing.T) {
	for _, tc := range []struct {
		source string
		want   bool
	}{
		{"1 < 2", true},
		{"2 <= 2", true},
		{"'a' != 'b'", true},
		{"1 = 2 or 3 = 3", true},
		{"1 = 1 and 2 = 3", false},
	} {
		out := eval(t, tc.source)
		require.Len(t, out, 1, tc.source)
		assert.Equal(t, types.BooleanValue(tc.want), out[0], tc.source)
	}
}

func TestRangeAndSequence(t *testing.T) {
	out := eval(t, "1 to 3")
	require.Len(t, out, 3)
	assert.Equal(t, types.IntegerValue(1), out[0])
	assert.Equal(t, types.IntegerValue(3), out[2])

	out = eval(t, "(1, 2, 3)[. > 1]")
	require.Len(t, out, 2)
	assert.Equal(t, types.IntegerValue(2), out[0])

	out = eval(t, "count((1 .. 10)[. mod 2 = 0])")
	require.Len(t, out, 1)
	assert.Equal(t, types.IntegerValue(5), out[0])

	out = eval(t, "()")
	assert.Empty(t, out)
}

func TestPositionalPredicate(t *testing.T) {
	out := eval(t, "('a', 'b', 'c')[2]")
	require.Len(t, out, 1)
	assert.Equal(t, "b", out[0].StringValue())

	out = eval(t, "(10 to 20)[last()]")
	require.Len(t, out, 1)
	assert.Equal(t, types.IntegerValue(20), out[0])
}

func TestIfThenElse(t *testing.T) {
	out := eval(t, "if (1 < 2) then 'yes' else 'no'")
	require.Len(t, out, 1)
	assert.Equal(t, "yes", out[0].StringValue())

	// The untaken branch must not be evaluated.
	out = eval(t, "if (2 < 1) then 1 div 0 else 42")
	require.Len(t, out, 1)
	assert.Equal(t, types.IntegerValue(42), out[0])
}

func TestLetAndFor(t *testing.T) {
	out := eval(t, "let $n := 6 return $n * $n")
	require.Len(t, out, 1)
	assert.Equal(t, types.IntegerValue(36), out[0])

	out = eval(t, "for $i in 1 to 4 return $i * 10")
	require.Len(t, out, 4)
	assert.Equal(t, types.IntegerValue(40), out[3])

	// Nested scopes shadow correctly.
	out = eval(t, "let $x := 1 return let $x := 2 return $x")
	require.Len(t, out, 1)
	assert.Equal(t, types.IntegerValue(2), out[0])
}

func TestUndeclaredVariable(t *testing.T) {
	err := evalErr(t, "$missing + 1")
	require.Error(t, err)
	var ee *types.Error
	require.True(t, errors.As(err, &ee))
	assert.Equal(t, types.ErrUndeclaredVariable, ee.Code)
}

func TestFunctionCalls(t *testing.T) {
	out := eval(t, "string-join(('a', 'b', 'c'), '-')")
	require.Len(t, out, 1)
	assert.Equal(t, "a-b-c", out[0].StringValue())

	out = eval(t, "sum(1 to 10)")
	require.Len(t, out, 1)
	assert.Equal(t, types.IntegerValue(55), out[0])

	err := evalErr(t, "no-such-function(1)")
	require.Error(t, err)
	var ee *types.Error
	require.True(t, errors.As(err, &ee))
	assert.Equal(t, types.ErrUnknownFunction, ee.Code)
}

func TestCastAndCastable(t *testing.T) {
	out := eval(t, "'42' cast as integer")
	require.Len(t, out, 1)
	assert.Equal(t, types.IntegerValue(42), out[0])

	out = eval(t, "'oops' castable as integer")
	require.Len(t, out, 1)
	assert.Equal(t, types.BooleanValue(false), out[0])

	// Castable against a namespace-sensitive target works without any
	// declared namespaces: unprefixed names pass, prefixed names are
	// simply not castable.
	out = eval(t, "'a' castable as QName")
	require.Len(t, out, 1)
	assert.Equal(t, types.BooleanValue(true), out[0])

	out = eval(t, "'p:a' castable as QName")
	require.Len(t, out, 1)
	assert.Equal(t, types.BooleanValue(false), out[0])

	out = eval(t, "() cast as integer?")
	assert.Empty(t, out)

	err := evalErr(t, "() cast as integer")
	require.Error(t, err)
	var ee *types.Error
	require.True(t, errors.As(err, &ee))
	assert.Equal(t, types.ErrEmptyNotAllowed, ee.Code)
}

func TestPathOverDocument(t *testing.T) {
	doc := buildOrderDoc(t)
	out := eval(t, "order/item", program.WithContextItem(doc))
	require.Len(t, out, 2)
	assert.Equal(t, "widget", out[0].StringValue())
	assert.Equal(t, "gadget", out[1].StringValue())

	out = eval(t, "count(order/item)", program.WithContextItem(doc))
	require.Len(t, out, 1)
	assert.Equal(t, types.IntegerValue(2), out[0])

	out = eval(t, "order/item[2]", program.WithContextItem(doc))
	require.Len(t, out, 1)
	assert.Equal(t, "gadget", out[0].StringValue())
}

func buildOrderDoc(t *testing.T) types.Node {
	t.Helper()
	b := tree.NewBuilder()
	require.NoError(t, b.Open())
	require.NoError(t, b.StartDocument())
	el := func(name, text string) {
		require.NoError(t, b.StartElement(types.QNameValue{Local: name}, 0))
		require.NoError(t, b.StartContent())
		if text != "" {
			require.NoError(t, b.Characters(text))
		}
		require.NoError(t, b.EndElement())
	}
	require.NoError(t, b.StartElement(types.QNameValue{Local: "order"}, 0))
	require.NoError(t, b.StartContent())
	el("item", "widget")
	el("item", "gadget")
	require.NoError(t, b.EndElement())
	require.NoError(t, b.EndDocument())
	require.NoError(t, b.Close())
	n, err := b.Result()
	require.NoError(t, err)
	return n.(types.Node)
}

func TestAxisSyntax(t *testing.T) {
	doc := buildOrderDoc(t)
	out := eval(t, "order/child::item", program.WithContextItem(doc))
	require.Len(t, out, 2)

	out = eval(t, "order/item/parent::*", program.WithContextItem(doc))
	require.Len(t, out, 1)

	out = eval(t, "order/descendant::text()", program.WithContextItem(doc))
	require.Len(t, out, 2)
}

func TestSyntaxErrors(t *testing.T) {
	for _, source := range []string{
		"1 +",
		"(1, 2",
		"if (1) then 2",
		"let $x := 1",
		"'unterminated",
	} {
		_, err := shorthand.Read(source, nil)
		require.Error(t, err, source)
		var ee *types.Error
		require.True(t, errors.As(err, &ee), source)
		assert.Equal(t, types.ErrSyntax, ee.Code, source)
	}
}

func TestLocationsAttached(t *testing.T) {
	sc := expr.NewStaticContext()
	root, err := shorthand.Read("1 +\n 'x'", sc)
	require.NoError(t, err)
	loc := root.Location()
	assert.Equal(t, 1, loc.Line)
	assert.Equal(t, 3, loc.Column)
}
