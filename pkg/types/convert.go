package types

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// ConverterFunc converts one atomic value to the target type, returning a
// cast error when the value is out of the target's lexical or value space.
type ConverterFunc func(AtomicValue) (AtomicValue, *Error)

// Converter returns the converter for (source → target), or nil when the
// conversion is not permitted. Cast expressions resolve their converter
// at compile time when the operand's static type is known, so the lookup
// cost is not paid per item.
//
// QName targets are namespace-sensitive: the returned converter parses
// the lexical form but leaves the prefix unresolved; CastExpression
// resolves it against its captured NamespaceResolver.
func Converter(source, target AtomicType) ConverterFunc {
	if source == target {
		return identityConverter
	}
	// Untyped values convert like strings everywhere.
	if source == TypeUntypedAtomic {
		source = TypeString
	}
	if fn, ok := converters[convKey{source, target}]; ok {
		return fn
	}
	return nil
}

type convKey struct{ from, to AtomicType }

func identityConverter(v AtomicValue) (AtomicValue, *Error) { return v, nil }

func castErr(v AtomicValue, target AtomicType) *Error {
	return NewDynamicError(ErrCastFailed,
		fmt.Sprintf("cannot cast %s %q to %s", v.AtomicType(), v.StringValue(), target))
}

var converters = map[convKey]ConverterFunc{
	// to string: every atomic type has a lexical form
	{TypeBoolean, TypeString}:  toString,
	{TypeInteger, TypeString}:  toString,
	{TypeDouble, TypeString}:   toString,
	{TypeDateTime, TypeString}: toString,
	{TypeDuration, TypeString}: toString,
	{TypeQName, TypeString}:    toString,
	{TypeAnyURI, TypeString}:   toString,
	{TypeString, TypeUntypedAtomic}:   func(v AtomicValue) (AtomicValue, *Error) { return UntypedValue(v.StringValue()), nil },
	{TypeBoolean, TypeUntypedAtomic}:  func(v AtomicValue) (AtomicValue, *Error) { return UntypedValue(v.StringValue()), nil },
	{TypeInteger, TypeUntypedAtomic}:  func(v AtomicValue) (AtomicValue, *Error) { return UntypedValue(v.StringValue()), nil },
	{TypeDouble, TypeUntypedAtomic}:   func(v AtomicValue) (AtomicValue, *Error) { return UntypedValue(v.StringValue()), nil },
	{TypeDateTime, TypeUntypedAtomic}: func(v AtomicValue) (AtomicValue, *Error) { return UntypedValue(v.StringValue()), nil },

	// from string (lexical parsing)
	{TypeString, TypeBoolean}: func(v AtomicValue) (AtomicValue, *Error) {
		switch strings.TrimSpace(v.StringValue()) {
		case "true", "1":
			return BooleanValue(true), nil
		case "false", "0":
			return BooleanValue(false), nil
		}
		return nil, castErr(v, TypeBoolean)
	},
	{TypeString, TypeInteger}: func(v AtomicValue) (AtomicValue, *Error) {
		n, err := strconv.ParseInt(strings.TrimSpace(v.StringValue()), 10, 64)
		if err != nil {
			return nil, castErr(v, TypeInteger)
		}
		return IntegerValue(n), nil
	},
	{TypeString, TypeDouble}: func(v AtomicValue) (AtomicValue, *Error) {
		s := strings.TrimSpace(v.StringValue())
		switch s {
		case "INF":
			return DoubleValue(math.Inf(1)), nil
		case "-INF":
			return DoubleValue(math.Inf(-1)), nil
		case "NaN":
			return DoubleValue(math.NaN()), nil
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return nil, castErr(v, TypeDouble)
		}
		return DoubleValue(f), nil
	},
	{TypeString, TypeDateTime}: func(v AtomicValue) (AtomicValue, *Error) {
		t, err := time.Parse(time.RFC3339, strings.TrimSpace(v.StringValue()))
		if err != nil {
			return nil, castErr(v, TypeDateTime)
		}
		return DateTimeValue{T: t}, nil
	},
	{TypeString, TypeDuration}: func(v AtomicValue) (AtomicValue, *Error) {
		d, err := time.ParseDuration(strings.TrimSpace(v.StringValue()))
		if err != nil {
			return nil, castErr(v, TypeDuration)
		}
		return DurationValue{D: d}, nil
	},
	{TypeString, TypeAnyURI}: func(v AtomicValue) (AtomicValue, *Error) {
		return AnyURIValue(strings.TrimSpace(v.StringValue())), nil
	},
	{TypeString, TypeQName}: func(v AtomicValue) (AtomicValue, *Error) {
		s := strings.TrimSpace(v.StringValue())
		if s == "" {
			return nil, castErr(v, TypeQName)
		}
		prefix, local := "", s
		if i := strings.IndexByte(s, ':'); i >= 0 {
			prefix, local = s[:i], s[i+1:]
			if prefix == "" || local == "" || strings.ContainsRune(local, ':') {
				return nil, castErr(v, TypeQName)
			}
		}
		// URI resolution happens in CastExpression against the captured
		// namespace context.
		return QNameValue{Prefix: prefix, Local: local}, nil
	},
	// numeric promotion and demotion
	{TypeInteger, TypeDouble}: func(v AtomicValue) (AtomicValue, *Error) {
		return DoubleValue(float64(v.(IntegerValue))), nil
	},
	{TypeDouble, TypeInteger}: func(v AtomicValue) (AtomicValue, *Error) {
		f := float64(v.(DoubleValue))
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return nil, castErr(v, TypeInteger)
		}
		if f > math.MaxInt64 || f < math.MinInt64 {
			return nil, NewDynamicError(ErrNumericOverflow,
				fmt.Sprintf("double %v overflows integer", f))
		}
		return IntegerValue(int64(math.Trunc(f))), nil
	},

	// boolean/numeric
	{TypeBoolean, TypeInteger}: func(v AtomicValue) (AtomicValue, *Error) {
		if v.(BooleanValue) {
			return IntegerValue(1), nil
		}
		return IntegerValue(0), nil
	},
	{TypeBoolean, TypeDouble}: func(v AtomicValue) (AtomicValue, *Error) {
		if v.(BooleanValue) {
			return DoubleValue(1), nil
		}
		return DoubleValue(0), nil
	},
	{TypeInteger, TypeBoolean}: func(v AtomicValue) (AtomicValue, *Error) {
		return BooleanValue(v.(IntegerValue) != 0), nil
	},
	{TypeDouble, TypeBoolean}: func(v AtomicValue) (AtomicValue, *Error) {
		f := float64(v.(DoubleValue))
		return BooleanValue(f != 0 && !math.IsNaN(f)), nil
	},
}

func toString(v AtomicValue) (AtomicValue, *Error) {
	return StringValue(v.StringValue()), nil
}
