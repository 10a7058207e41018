package compare

import (
	"fmt"
	"math"
	"strconv"

	"github.com/perrin-dev/sequoia/pkg/types"
)

// AtomicComparer compares two atomic values.
//
// ComparisonKey must agree with Equal: two values equal under the
// comparer produce identical keys and vice versa. Keys carry no ordering
// guarantee.
type AtomicComparer interface {
	// Compare returns <0, 0, >0. Values of incomparable types fail with
	// a "not comparable" error.
	Compare(a, b types.AtomicValue) (int, error)
	// Equal reports equality under the comparer's notion.
	Equal(a, b types.AtomicValue) (bool, error)
	// ComparisonKey reduces a value to an equality-preserving key.
	ComparisonKey(a types.AtomicValue) (string, error)
}

func notComparable(a, b types.AtomicValue) *types.Error {
	return types.NewDynamicError(types.ErrNotComparable,
		fmt.Sprintf("cannot compare %s with %s", a.AtomicType(), b.AtomicType()))
}

// GenericComparer orders and equates atomic values by their dynamic
// type, using a StringCollator for strings. Untyped values are treated
// as strings. It is stateless apart from the collator.
type GenericComparer struct {
	Collator StringCollator
}

// NewGeneric returns a GenericComparer over the given collator; a nil
// collator defaults to codepoint collation.
func NewGeneric(c StringCollator) *GenericComparer {
	if c == nil {
		c = Codepoint()
	}
	return &GenericComparer{Collator: c}
}

func (g *GenericComparer) Compare(a, b types.AtomicValue) (int, error) {
	if na, aok := types.NumericValue(a); aok {
		nb, bok := types.NumericValue(b)
		if !bok {
			return 0, notComparable(a, b)
		}
		return compareFloats(na, nb), nil
	}
	switch av := a.(type) {
	case types.StringValue, types.UntypedValue, types.AnyURIValue:
		switch b.(type) {
		case types.StringValue, types.UntypedValue, types.AnyURIValue:
			return g.Collator.CompareStrings(a.StringValue(), b.StringValue()), nil
		}
		return 0, notComparable(a, b)
	case types.BooleanValue:
		bv, ok := b.(types.BooleanValue)
		if !ok {
			return 0, notComparable(a, b)
		}
		return boolOrd(bool(av)) - boolOrd(bool(bv)), nil
	case types.DateTimeValue:
		bv, ok := b.(types.DateTimeValue)
		if !ok {
			return 0, notComparable(a, b)
		}
		return av.T.Compare(bv.T), nil
	case types.DurationValue:
		bv, ok := b.(types.DurationValue)
		if !ok {
			return 0, notComparable(a, b)
		}
		switch {
		case av.D < bv.D:
			return -1, nil
		case av.D > bv.D:
			return 1, nil
		}
		return 0, nil
	}
	return 0, notComparable(a, b)
}

func (g *GenericComparer) Equal(a, b types.AtomicValue) (bool, error) {
	// QNames have equality but no ordering.
	if qa, ok := a.(types.QNameValue); ok {
		qb, ok := b.(types.QNameValue)
		if !ok {
			return false, notComparable(a, b)
		}
		return qa.SameName(qb), nil
	}
	c, err := g.Compare(a, b)
	if err != nil {
		return false, err
	}
	return c == 0, nil
}

func (g *GenericComparer) ComparisonKey(a types.AtomicValue) (string, error) {
	if n, ok := types.NumericValue(a); ok {
		if math.IsNaN(n) {
			return "num:NaN", nil
		}
		if n == 0 {
			// Negative zero compares equal to zero, so it must share
			// zero's key.
			n = 0
		}
		return "num:" + strconv.FormatFloat(n, 'g', -1, 64), nil
	}
	switch av := a.(type) {
	case types.StringValue, types.UntypedValue, types.AnyURIValue:
		return "str:" + g.Collator.CollationKey(a.StringValue()), nil
	case types.BooleanValue:
		return "bool:" + a.StringValue(), nil
	case types.DateTimeValue:
		return "dt:" + strconv.FormatInt(av.T.UnixNano(), 10), nil
	case types.DurationValue:
		return "dur:" + strconv.FormatInt(int64(av.D), 10), nil
	case types.QNameValue:
		return "qn:" + av.ClarkName(), nil
	}
	return "", types.NewDynamicError(types.ErrNotComparable,
		fmt.Sprintf("no comparison key for %s", a.AtomicType()))
}

func compareFloats(a, b float64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

func boolOrd(b bool) int {
	if b {
		return 1
	}
	return 0
}

// EqualityComparer supports equality only; any ordering attempt fails.
// Used where the semantics define sameness but no order (grouping keys,
// distinct-values).
type EqualityComparer struct {
	base AtomicComparer
}

// NewEquality wraps a base comparer, exposing only its equality notion.
func NewEquality(base AtomicComparer) *EqualityComparer {
	return &EqualityComparer{base: base}
}

func (e *EqualityComparer) Compare(a, b types.AtomicValue) (int, error) {
	return 0, types.NewDynamicError(types.ErrNotComparable,
		"this comparer supports equality only, not ordering")
}

func (e *EqualityComparer) Equal(a, b types.AtomicValue) (bool, error) {
	return e.base.Equal(a, b)
}

func (e *EqualityComparer) ComparisonKey(a types.AtomicValue) (string, error) {
	return e.base.ComparisonKey(a)
}

// TextComparer coerces both operands to their string values before
// delegating to a base comparer. Used by text-valued sort keys.
type TextComparer struct {
	base AtomicComparer
}

// NewText wraps a base comparer with string coercion.
func NewText(base AtomicComparer) *TextComparer {
	return &TextComparer{base: base}
}

func (t *TextComparer) Compare(a, b types.AtomicValue) (int, error) {
	return t.base.Compare(types.StringValue(a.StringValue()), types.StringValue(b.StringValue()))
}

func (t *TextComparer) Equal(a, b types.AtomicValue) (bool, error) {
	return t.base.Equal(types.StringValue(a.StringValue()), types.StringValue(b.StringValue()))
}

func (t *TextComparer) ComparisonKey(a types.AtomicValue) (string, error) {
	return t.base.ComparisonKey(types.StringValue(a.StringValue()))
}
