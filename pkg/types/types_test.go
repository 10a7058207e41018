package types

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEffectiveBoolean(t *testing.T) {
	tests := []struct {
		name  string
		items []Item
		want  bool
	}{
		{"empty", nil, false},
		{"true", []Item{BooleanValue(true)}, true},
		{"false", []Item{BooleanValue(false)}, false},
		{"zero", []Item{IntegerValue(0)}, false},
		{"nonzero", []Item{IntegerValue(7)}, true},
		{"nan", []Item{DoubleValue(math.NaN())}, false},
		{"empty string", []Item{StringValue("")}, false},
		{"string", []Item{StringValue("x")}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := EffectiveBoolean(tt.items)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestEffectiveBooleanMultiAtomicFails(t *testing.T) {
	_, err := EffectiveBoolean([]Item{IntegerValue(1), IntegerValue(2)})
	require.Error(t, err)
	assert.Equal(t, ErrBadEffectiveBoolean, err.(*Error).Code)
}

func TestCardinalitySubsumes(t *testing.T) {
	assert.True(t, CardZeroOrMore.Subsumes(CardExactlyOne))
	assert.True(t, CardZeroOrOne.Subsumes(CardEmpty))
	assert.False(t, CardExactlyOne.Subsumes(CardZeroOrOne))
	assert.False(t, CardOneOrMore.Subsumes(CardEmpty))
	assert.Equal(t, CardZeroOrOne, CardEmpty.Union(CardExactlyOne))
}

func TestItemTypeMatches(t *testing.T) {
	assert.True(t, AnyItemType.Matches(StringValue("a")))
	assert.True(t, AtomicItemType(TypeString).Matches(StringValue("a")))
	assert.False(t, AtomicItemType(TypeString).Matches(IntegerValue(1)))
	// integer substitutes for double
	assert.True(t, AtomicItemType(TypeDouble).Matches(IntegerValue(1)))
	assert.False(t, AnyNodeType.Matches(StringValue("a")))
}

func TestItemTypeUnionNarrowing(t *testing.T) {
	num := AtomicItemType(TypeInteger).Union(AtomicItemType(TypeDouble))
	at, ok := num.AtomicTypeOf()
	require.True(t, ok)
	assert.Equal(t, TypeDouble, at)

	mixed := AtomicItemType(TypeString).Union(AnyNodeType)
	assert.Equal(t, AnyItemType, mixed)
}

func TestConverterStringToInteger(t *testing.T) {
	conv := Converter(TypeString, TypeInteger)
	require.NotNil(t, conv)

	v, cerr := conv(StringValue(" 42 "))
	require.Nil(t, cerr)
	assert.Equal(t, IntegerValue(42), v)

	_, cerr = conv(StringValue("forty-two"))
	require.NotNil(t, cerr)
	assert.Equal(t, ErrCastFailed, cerr.Code)
}

func TestConverterUntypedBehavesLikeString(t *testing.T) {
	conv := Converter(TypeUntypedAtomic, TypeDouble)
	require.NotNil(t, conv)
	v, cerr := conv(UntypedValue("1.5"))
	require.Nil(t, cerr)
	assert.Equal(t, DoubleValue(1.5), v)
}

func TestConverterDoubleToIntegerOverflow(t *testing.T) {
	conv := Converter(TypeDouble, TypeInteger)
	require.NotNil(t, conv)
	_, cerr := conv(DoubleValue(1e300))
	require.NotNil(t, cerr)
	assert.Equal(t, ErrNumericOverflow, cerr.Code)
}

func TestErrorLocationInnermostWins(t *testing.T) {
	err := NewDynamicError(ErrDivisionByZero, "divide by zero")
	err.WithLocation(Location{Line: 3, Column: 9})
	err.WithLocation(Location{Line: 99, Column: 1})
	assert.Equal(t, 3, err.Loc.Line)
	assert.Contains(t, err.Error(), "FOAR0001")
}

func TestQNameClark(t *testing.T) {
	q := QNameValue{Prefix: "p", Local: "item", URI: "urn:x"}
	assert.Equal(t, "{urn:x}item", q.ClarkName())
	assert.True(t, q.SameName(QNameValue{Local: "item", URI: "urn:x"}))
	assert.False(t, q.SameName(QNameValue{Local: "item", URI: "urn:y"}))
}

func TestDoubleLexicalForms(t *testing.T) {
	assert.Equal(t, "NaN", DoubleValue(math.NaN()).StringValue())
	assert.Equal(t, "INF", DoubleValue(math.Inf(1)).StringValue())
	assert.Equal(t, "2", DoubleValue(2.0).StringValue())
}
