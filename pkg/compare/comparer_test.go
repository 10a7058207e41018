package compare

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/language"

	"github.com/perrin-dev/sequoia/pkg/types"
)

func TestGenericCompareNumeric(t *testing.T) {
	g := NewGeneric(nil)

	c, err := g.Compare(types.IntegerValue(1), types.DoubleValue(2.5))
	require.NoError(t, err)
	assert.Negative(t, c)

	c, err = g.Compare(types.DoubleValue(3), types.IntegerValue(3))
	require.NoError(t, err)
	assert.Zero(t, c)
}

func TestGenericCompareIncompatible(t *testing.T) {
	g := NewGeneric(nil)
	_, err := g.Compare(types.IntegerValue(1), types.StringValue("1"))
	require.Error(t, err)
	assert.Equal(t, types.ErrNotComparable, err.(*types.Error).Code)
}

func TestGenericStringsUseCollator(t *testing.T) {
	g := NewGeneric(Codepoint())
	c, err := g.Compare(types.StringValue("apple"), types.StringValue("banana"))
	require.NoError(t, err)
	assert.Negative(t, c)

	// untyped compares like string
	eq, err := g.Equal(types.UntypedValue("x"), types.StringValue("x"))
	require.NoError(t, err)
	assert.True(t, eq)
}

func TestLanguageCollation(t *testing.T) {
	// Danish sorts å after z; codepoint order puts it before.
	da := NewGeneric(ForLanguage(language.Danish))
	c, err := da.Compare(types.StringValue("å"), types.StringValue("z"))
	require.NoError(t, err)
	assert.Positive(t, c)
}

func TestResolveCollation(t *testing.T) {
	_, err := ResolveCollation(CodepointCollationURI)
	require.NoError(t, err)

	_, err = ResolveCollation(LanguageCollationPrefix + "da")
	require.NoError(t, err)

	_, err = ResolveCollation("urn:no-such-collation")
	require.Error(t, err)
	assert.Equal(t, types.ErrUnknownCollation, err.(*types.Error).Code)
}

func TestComparisonKeyAgreesWithEquality(t *testing.T) {
	g := NewGeneric(nil)
	pairs := []struct {
		a, b types.AtomicValue
	}{
		{types.IntegerValue(3), types.DoubleValue(3)},
		{types.StringValue("abc"), types.UntypedValue("abc")},
		{types.BooleanValue(true), types.BooleanValue(true)},
		{types.DoubleValue(0), types.DoubleValue(math.Copysign(0, -1))},
		{types.IntegerValue(0), types.DoubleValue(math.Copysign(0, -1))},
	}
	for _, p := range pairs {
		eq, err := g.Equal(p.a, p.b)
		require.NoError(t, err)
		require.True(t, eq)

		ka, err := g.ComparisonKey(p.a)
		require.NoError(t, err)
		kb, err := g.ComparisonKey(p.b)
		require.NoError(t, err)
		assert.Equal(t, ka, kb)
	}

	ka, err := g.ComparisonKey(types.IntegerValue(1))
	require.NoError(t, err)
	kb, err := g.ComparisonKey(types.IntegerValue(2))
	require.NoError(t, err)
	assert.NotEqual(t, ka, kb)
}

func TestEqualityComparerRejectsOrdering(t *testing.T) {
	e := NewEquality(NewGeneric(nil))

	_, err := e.Compare(types.IntegerValue(1), types.IntegerValue(2))
	require.Error(t, err)
	assert.Equal(t, types.ErrNotComparable, err.(*types.Error).Code)

	eq, err := e.Equal(types.QNameValue{Local: "a", URI: "u"}, types.QNameValue{Prefix: "p", Local: "a", URI: "u"})
	require.NoError(t, err)
	assert.True(t, eq, "QName equality ignores prefixes")
}

func TestTextComparerCoerces(t *testing.T) {
	tc := NewText(NewGeneric(nil))
	// 10 < 9 as strings
	c, err := tc.Compare(types.IntegerValue(10), types.IntegerValue(9))
	require.NoError(t, err)
	assert.Negative(t, c)
}
