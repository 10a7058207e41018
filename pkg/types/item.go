// Package types defines the core value model for sequoia.
//
// This package contains type definitions for:
//   - Item: the unit of a sequence, an atomic value or a node
//   - AtomicValue: typed scalar values (string, number, boolean, ...)
//   - Node: the read-only contract the evaluator requires from a tree
//   - ItemType / Cardinality / SequenceType: static type descriptors
//   - Error types: structured errors with codes and kinds
package types

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// Item is the unit of a sequence: either an AtomicValue or a Node.
// An Item is never itself a sequence; sequence flattening happens at
// construction time, never lazily.
type Item interface {
	// StringValue returns the string value of the item (the lexical form
	// of an atomic value, or the concatenated text content of a node).
	StringValue() string
}

// AtomicValue is a typed scalar Item.
type AtomicValue interface {
	Item
	// AtomicType returns the dynamic type of the value.
	AtomicType() AtomicType
}

// AtomicType identifies the dynamic type of an atomic value.
type AtomicType int

const (
	TypeUntypedAtomic AtomicType = iota
	TypeString
	TypeBoolean
	TypeInteger
	TypeDouble
	TypeDateTime
	TypeDuration
	TypeQName
	TypeAnyURI
)

var atomicTypeNames = map[AtomicType]string{
	TypeUntypedAtomic: "untypedAtomic",
	TypeString:        "string",
	TypeBoolean:       "boolean",
	TypeInteger:       "integer",
	TypeDouble:        "double",
	TypeDateTime:      "dateTime",
	TypeDuration:      "duration",
	TypeQName:         "QName",
	TypeAnyURI:        "anyURI",
}

func (t AtomicType) String() string {
	if s, ok := atomicTypeNames[t]; ok {
		return s
	}
	return fmt.Sprintf("atomicType(%d)", int(t))
}

// AtomicTypeByName resolves a type name ("string", "integer", ...) to its
// AtomicType. Used by cast targets resolved from source syntax.
func AtomicTypeByName(name string) (AtomicType, bool) {
	for t, n := range atomicTypeNames {
		if n == name {
			return t, true
		}
	}
	return 0, false
}

// NamespaceSensitive reports whether values of this type carry a lexical
// prefix that must be resolved against an in-scope namespace context.
func (t AtomicType) NamespaceSensitive() bool {
	return t == TypeQName
}

// IsNumeric reports whether the type participates in numeric promotion.
func (t AtomicType) IsNumeric() bool {
	return t == TypeInteger || t == TypeDouble
}

// StringValue is an atomic string.
type StringValue string

func (v StringValue) StringValue() string { return string(v) }
func (v StringValue) AtomicType() AtomicType { return TypeString }

// UntypedValue is an untyped atomic value, typically produced by
// atomizing a node. It behaves like a string until an operation
// coerces it to the type the operation requires.
type UntypedValue string

func (v UntypedValue) StringValue() string { return string(v) }
func (v UntypedValue) AtomicType() AtomicType { return TypeUntypedAtomic }

// BooleanValue is an atomic boolean.
type BooleanValue bool

func (v BooleanValue) StringValue() string {
	if v {
		return "true"
	}
	return "false"
}
func (v BooleanValue) AtomicType() AtomicType { return TypeBoolean }

// IntegerValue is an atomic 64-bit integer.
type IntegerValue int64

func (v IntegerValue) StringValue() string { return strconv.FormatInt(int64(v), 10) }
func (v IntegerValue) AtomicType() AtomicType { return TypeInteger }

// DoubleValue is an atomic double-precision float.
type DoubleValue float64

func (v DoubleValue) StringValue() string {
	f := float64(v)
	switch {
	case math.IsNaN(f):
		return "NaN"
	case math.IsInf(f, 1):
		return "INF"
	case math.IsInf(f, -1):
		return "-INF"
	}
	if f == math.Trunc(f) && math.Abs(f) < 1e15 {
		return strconv.FormatFloat(f, 'f', -1, 64)
	}
	return strconv.FormatFloat(f, 'g', -1, 64)
}
func (v DoubleValue) AtomicType() AtomicType { return TypeDouble }

// DateTimeValue is an atomic dateTime.
type DateTimeValue struct{ T time.Time }

func (v DateTimeValue) StringValue() string { return v.T.Format(time.RFC3339) }
func (v DateTimeValue) AtomicType() AtomicType { return TypeDateTime }

// DurationValue is an atomic duration.
type DurationValue struct{ D time.Duration }

func (v DurationValue) StringValue() string { return v.D.String() }
func (v DurationValue) AtomicType() AtomicType { return TypeDuration }

// AnyURIValue is an atomic URI.
type AnyURIValue string

func (v AnyURIValue) StringValue() string { return string(v) }
func (v AnyURIValue) AtomicType() AtomicType { return TypeAnyURI }

// QNameValue is an expanded qualified name: a (prefix, local, uri) triple.
// Equality considers only local name and URI; the prefix is retained for
// serialization.
type QNameValue struct {
	Prefix string
	Local  string
	URI    string
}

func (v QNameValue) StringValue() string {
	if v.Prefix != "" {
		return v.Prefix + ":" + v.Local
	}
	return v.Local
}
func (v QNameValue) AtomicType() AtomicType { return TypeQName }

// ClarkName returns the name in Clark notation ({uri}local), the
// prefix-independent form used for equality and map keys.
func (v QNameValue) ClarkName() string {
	if v.URI == "" {
		return v.Local
	}
	return "{" + v.URI + "}" + v.Local
}

// SameName reports name equality ignoring the prefix.
func (v QNameValue) SameName(o QNameValue) bool {
	return v.Local == o.Local && v.URI == o.URI
}

// NumericValue returns the float64 view of a numeric atomic value.
func NumericValue(v AtomicValue) (float64, bool) {
	switch n := v.(type) {
	case IntegerValue:
		return float64(n), true
	case DoubleValue:
		return float64(n), true
	}
	return 0, false
}

// Atomize reduces an item to an atomic value: atomic values pass through,
// nodes yield their typed value (untypedAtomic over the string value).
func Atomize(it Item) AtomicValue {
	if av, ok := it.(AtomicValue); ok {
		return av
	}
	return UntypedValue(it.StringValue())
}

// EffectiveBoolean computes the effective boolean value of a sequence per
// the usual tree-query rules: empty is false, a leading node is true, a
// singleton boolean/number/string follows its own truth, anything else is
// a type error.
func EffectiveBoolean(items []Item) (bool, error) {
	if len(items) == 0 {
		return false, nil
	}
	if _, ok := items[0].(Node); ok {
		return true, nil
	}
	if len(items) > 1 {
		return false, NewDynamicError(ErrBadEffectiveBoolean,
			"effective boolean value of a multi-item atomic sequence")
	}
	switch v := items[0].(type) {
	case BooleanValue:
		return bool(v), nil
	case IntegerValue:
		return v != 0, nil
	case DoubleValue:
		f := float64(v)
		return f != 0 && !math.IsNaN(f), nil
	case StringValue:
		return len(v) > 0, nil
	case UntypedValue:
		return len(v) > 0, nil
	}
	return false, NewDynamicError(ErrBadEffectiveBoolean,
		fmt.Sprintf("no effective boolean value for %T", items[0]))
}

// SequenceString joins the string values of items with single spaces,
// the conventional string value of a sequence.
func SequenceString(items []Item) string {
	switch len(items) {
	case 0:
		return ""
	case 1:
		return items[0].StringValue()
	}
	var sb strings.Builder
	for i, it := range items {
		if i > 0 {
			sb.WriteByte(' ')
		}
		sb.WriteString(it.StringValue())
	}
	return sb.String()
}
