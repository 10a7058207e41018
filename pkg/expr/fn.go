package expr

import (
	"fmt"
	"io"
	"math"
	"strings"

	"github.com/perrin-dev/sequoia/pkg/compare"
	"github.com/perrin-dev/sequoia/pkg/iter"
	"github.com/perrin-dev/sequoia/pkg/types"
)

// builtinDef is one entry of the built-in function table.
type builtinDef struct {
	name    string
	minArgs int
	maxArgs int
	result  types.SequenceType
	deps    Dependency
	eval    func(fc *FunctionCall, c *Context) ([]types.Item, error)
}

// FunctionCall invokes a built-in function. Arguments are evaluated
// lazily by the implementations; several consult the focus or the
// static collation rather than any argument.
type FunctionCall struct {
	baseExpr
	def  *builtinDef
	args []Expression

	// comparer backs min and max; captured from the static context.
	comparer compare.AtomicComparer
}

// NewFunctionCall resolves a built-in by name and arity. Unknown names
// or unsupported arities are a static error.
func NewFunctionCall(name string, args []Expression) (*FunctionCall, error) {
	def, ok := builtins[name]
	if !ok {
		return nil, types.NewStaticError(types.ErrUnknownFunction,
			fmt.Sprintf("unknown function %s()", name))
	}
	if len(args) < def.minArgs || len(args) > def.maxArgs {
		return nil, types.NewStaticError(types.ErrUnknownFunction,
			fmt.Sprintf("function %s() takes %d to %d arguments, got %d",
				name, def.minArgs, def.maxArgs, len(args)))
	}
	return &FunctionCall{def: def, args: args}, nil
}

func (fc *FunctionCall) Simplify() (Expression, error) {
	var err error
	for i := range fc.args {
		if fc.args[i], err = fc.args[i].Simplify(); err != nil {
			return nil, err
		}
	}
	return fc, nil
}

func (fc *FunctionCall) TypeCheck(sc *StaticContext) (Expression, error) {
	var err error
	for i := range fc.args {
		if fc.args[i], err = fc.args[i].TypeCheck(sc); err != nil {
			return nil, err
		}
	}
	fc.comparer = sc.Comparer()
	return fc, nil
}

func (fc *FunctionCall) Optimize(sc *StaticContext) (Expression, error) {
	var err error
	for i := range fc.args {
		if fc.args[i], err = fc.args[i].Optimize(sc); err != nil {
			return nil, err
		}
	}
	switch fc.def.name {
	case "boolean":
		return NewEffectiveBoolean(fc.args[0]).Optimize(sc)
	case "exists":
		// exists($x) is boolean count, cheaper as a lookahead probe;
		// keep the call but fold a statically non-empty argument.
		if !fc.args[0].Cardinality().AllowsZero() {
			return NewBooleanLiteral(true), nil
		}
	case "empty":
		if !fc.args[0].Cardinality().AllowsZero() {
			return NewBooleanLiteral(false), nil
		}
	}
	// A focus-free call over literal arguments is a constant; evaluate
	// it now. A call that would raise stays in the tree so the error
	// keeps its run-time timing.
	if fc.def.deps == 0 && allLiteral(fc.args) {
		if items, err := fc.def.eval(fc, NewContext(0)); err == nil {
			return NewLiteral(items), nil
		}
	}
	return fc, nil
}

func allLiteral(args []Expression) bool {
	for _, a := range args {
		if _, ok := a.(*Literal); !ok {
			return false
		}
	}
	return true
}

func (fc *FunctionCall) ItemType() types.ItemType { return fc.def.result.Item }
func (fc *FunctionCall) Cardinality() types.Cardinality { return fc.def.result.Card }

func (fc *FunctionCall) Dependencies() Dependency {
	return fc.def.deps | dependenciesOf(fc.args...)
}

func (fc *FunctionCall) Children() []Expression { return fc.args }

func (fc *FunctionCall) Iterate(c *Context) (iter.SequenceIterator, error) {
	items, err := fc.def.eval(fc, c)
	if err != nil {
		return nil, withLoc(err, fc)
	}
	return iter.FromSlice(items), nil
}

func (fc *FunctionCall) Process(c *Context) error { return processViaIterate(fc, c) }

func (fc *FunctionCall) EvaluateItem(c *Context) (types.Item, error) {
	items, err := fc.def.eval(fc, c)
	if err != nil {
		return nil, withLoc(err, fc)
	}
	if len(items) == 0 {
		return nil, nil
	}
	return items[0], nil
}

func (fc *FunctionCall) Explain(w io.Writer, depth int) {
	explainf(w, depth, "call %s()", fc.def.name)
	for _, a := range fc.args {
		a.Explain(w, depth+1)
	}
}

// arg materializes one argument.
func (fc *FunctionCall) arg(i int, c *Context) ([]types.Item, error) {
	return evaluate(fc.args[i], c)
}

// atomizedArg materializes one argument with every node atomized.
func (fc *FunctionCall) atomizedArg(i int, c *Context) ([]types.AtomicValue, error) {
	items, err := fc.arg(i, c)
	if err != nil {
		return nil, err
	}
	out := make([]types.AtomicValue, len(items))
	for j, it := range items {
		out[j] = types.Atomize(it)
	}
	return out, nil
}

// singleAtomicArg enforces 0..1 on an atomized argument; nil means
// empty.
func (fc *FunctionCall) singleAtomicArg(i int, c *Context) (types.AtomicValue, error) {
	vals, err := fc.atomizedArg(i, c)
	if err != nil {
		return nil, err
	}
	switch len(vals) {
	case 0:
		return nil, nil
	case 1:
		return vals[0], nil
	}
	return nil, types.NewTypeError(types.ErrMoreThanOne,
		fmt.Sprintf("%s() requires at most one item, got %d", fc.def.name, len(vals)))
}

func emptySeq() []types.Item { return nil }
func one(v types.Item) []types.Item { return []types.Item{v} }
func boolSeq(b bool) []types.Item { return one(types.BooleanValue(b)) }
func intSeq(n int64) []types.Item { return one(types.IntegerValue(n)) }
func strSeq(s string) []types.Item { return one(types.StringValue(s)) }
func doubleSeq(f float64) []types.Item { return one(types.DoubleValue(f)) }

var builtins = map[string]*builtinDef{
	"true": {
		name: "true", result: types.SingleItem(types.AtomicItemType(types.TypeBoolean)),
		eval: func(fc *FunctionCall, c *Context) ([]types.Item, error) { return boolSeq(true), nil },
	},
	"false": {
		name: "false", result: types.SingleItem(types.AtomicItemType(types.TypeBoolean)),
		eval: func(fc *FunctionCall, c *Context) ([]types.Item, error) { return boolSeq(false), nil },
	},
	"boolean": {
		name: "boolean", minArgs: 1, maxArgs: 1,
		result: types.SingleItem(types.AtomicItemType(types.TypeBoolean)),
		eval: func(fc *FunctionCall, c *Context) ([]types.Item, error) {
			b, err := effectiveBool(fc.args[0], c)
			if err != nil {
				return nil, err
			}
			return boolSeq(b), nil
		},
	},
	"not": {
		name: "not", minArgs: 1, maxArgs: 1,
		result: types.SingleItem(types.AtomicItemType(types.TypeBoolean)),
		eval: func(fc *FunctionCall, c *Context) ([]types.Item, error) {
			b, err := effectiveBool(fc.args[0], c)
			if err != nil {
				return nil, err
			}
			return boolSeq(!b), nil
		},
	},
	"empty": {
		name: "empty", minArgs: 1, maxArgs: 1,
		result: types.SingleItem(types.AtomicItemType(types.TypeBoolean)),
		eval: func(fc *FunctionCall, c *Context) ([]types.Item, error) {
			has, err := fc.hasItems(c)
			if err != nil {
				return nil, err
			}
			return boolSeq(!has), nil
		},
	},
	"exists": {
		name: "exists", minArgs: 1, maxArgs: 1,
		result: types.SingleItem(types.AtomicItemType(types.TypeBoolean)),
		eval: func(fc *FunctionCall, c *Context) ([]types.Item, error) {
			has, err := fc.hasItems(c)
			if err != nil {
				return nil, err
			}
			return boolSeq(has), nil
		},
	},
	"count": {
		name: "count", minArgs: 1, maxArgs: 1,
		result: types.SingleItem(types.AtomicItemType(types.TypeInteger)),
		eval: func(fc *FunctionCall, c *Context) ([]types.Item, error) {
			it, err := fc.args[0].Iterate(c)
			if err != nil {
				return nil, err
			}
			defer it.Close()
			n, err := iter.Count(it)
			if err != nil {
				return nil, err
			}
			return intSeq(int64(n)), nil
		},
	},
	"sum": {
		name: "sum", minArgs: 1, maxArgs: 2,
		result: types.OptionalItem(types.AtomicItemType(types.TypeDouble)),
		eval:   evalSum,
	},
	"avg": {
		name: "avg", minArgs: 1, maxArgs: 1,
		result: types.OptionalItem(types.AtomicItemType(types.TypeDouble)),
		eval:   evalAvg,
	},
	"min": {
		name: "min", minArgs: 1, maxArgs: 1,
		result: types.OptionalItem(types.AnyAtomicType),
		eval: func(fc *FunctionCall, c *Context) ([]types.Item, error) {
			return fc.extreme(c, -1)
		},
	},
	"max": {
		name: "max", minArgs: 1, maxArgs: 1,
		result: types.OptionalItem(types.AnyAtomicType),
		eval: func(fc *FunctionCall, c *Context) ([]types.Item, error) {
			return fc.extreme(c, 1)
		},
	},
	"string": {
		name: "string", minArgs: 0, maxArgs: 1,
		result: types.SingleItem(types.AtomicItemType(types.TypeString)),
		eval:   evalString,
	},
	"string-length": {
		name: "string-length", minArgs: 1, maxArgs: 1,
		result: types.SingleItem(types.AtomicItemType(types.TypeInteger)),
		eval: func(fc *FunctionCall, c *Context) ([]types.Item, error) {
			v, err := fc.singleAtomicArg(0, c)
			if err != nil {
				return nil, err
			}
			if v == nil {
				return intSeq(0), nil
			}
			return intSeq(int64(len([]rune(v.StringValue())))), nil
		},
	},
	"number": {
		name: "number", minArgs: 0, maxArgs: 1,
		result: types.SingleItem(types.AtomicItemType(types.TypeDouble)),
		eval:   evalNumber,
	},
	"concat": {
		name: "concat", minArgs: 2, maxArgs: 64,
		result: types.SingleItem(types.AtomicItemType(types.TypeString)),
		eval: func(fc *FunctionCall, c *Context) ([]types.Item, error) {
			var sb strings.Builder
			for i := range fc.args {
				v, err := fc.singleAtomicArg(i, c)
				if err != nil {
					return nil, err
				}
				if v != nil {
					sb.WriteString(v.StringValue())
				}
			}
			return strSeq(sb.String()), nil
		},
	},
	"string-join": {
		name: "string-join", minArgs: 1, maxArgs: 2,
		result: types.SingleItem(types.AtomicItemType(types.TypeString)),
		eval: func(fc *FunctionCall, c *Context) ([]types.Item, error) {
			vals, err := fc.atomizedArg(0, c)
			if err != nil {
				return nil, err
			}
			sep := ""
			if len(fc.args) == 2 {
				s, err := fc.singleAtomicArg(1, c)
				if err != nil {
					return nil, err
				}
				if s != nil {
					sep = s.StringValue()
				}
			}
			parts := make([]string, len(vals))
			for i, v := range vals {
				parts[i] = v.StringValue()
			}
			return strSeq(strings.Join(parts, sep)), nil
		},
	},
	"normalize-space": {
		name: "normalize-space", minArgs: 1, maxArgs: 1,
		result: types.SingleItem(types.AtomicItemType(types.TypeString)),
		eval: func(fc *FunctionCall, c *Context) ([]types.Item, error) {
			v, err := fc.singleAtomicArg(0, c)
			if err != nil {
				return nil, err
			}
			if v == nil {
				return strSeq(""), nil
			}
			return strSeq(strings.Join(strings.Fields(v.StringValue()), " ")), nil
		},
	},
	"reverse": {
		name: "reverse", minArgs: 1, maxArgs: 1,
		result: types.AnySequence,
		eval: func(fc *FunctionCall, c *Context) ([]types.Item, error) {
			it, err := fc.args[0].Iterate(c)
			if err != nil {
				return nil, err
			}
			defer it.Close()
			rev, err := iter.Reverse(it)
			if err != nil {
				return nil, err
			}
			return iter.Drain(rev)
		},
	},
	"position": {
		name: "position", result: types.SingleItem(types.AtomicItemType(types.TypeInteger)),
		deps: DepPosition,
		eval: func(fc *FunctionCall, c *Context) ([]types.Item, error) {
			f := c.Focus()
			if f == nil {
				return nil, types.NewDynamicError(types.ErrNoContextItem,
					"position() called with no focus")
			}
			return intSeq(int64(f.Position)), nil
		},
	},
	"last": {
		name: "last", result: types.SingleItem(types.AtomicItemType(types.TypeInteger)),
		deps: DepLast,
		eval: func(fc *FunctionCall, c *Context) ([]types.Item, error) {
			f := c.Focus()
			if f == nil {
				return nil, types.NewDynamicError(types.ErrNoContextItem,
					"last() called with no focus")
			}
			if f.Size < 0 {
				return nil, types.NewDynamicError(types.ErrNoContextItem,
					"last() called where the focus size is unknown")
			}
			return intSeq(int64(f.Size)), nil
		},
	},
	"name": {
		name: "name", minArgs: 0, maxArgs: 1,
		result: types.SingleItem(types.AtomicItemType(types.TypeString)),
		deps:   DepContextItem,
		eval:   evalName,
	},
}

// hasItems probes emptiness without draining, using lookahead when the
// source offers it.
func (fc *FunctionCall) hasItems(c *Context) (bool, error) {
	it, err := fc.args[0].Iterate(c)
	if err != nil {
		return false, err
	}
	defer it.Close()
	if la, ok := it.(iter.Lookahead); ok {
		return la.HasNext(), nil
	}
	item, err := it.Next()
	if err != nil {
		return false, err
	}
	return item != nil, nil
}

func evalSum(fc *FunctionCall, c *Context) ([]types.Item, error) {
	vals, err := fc.atomizedArg(0, c)
	if err != nil {
		return nil, err
	}
	if len(vals) == 0 {
		// The caller-supplied zero, or the conventional integer zero.
		if len(fc.args) == 2 {
			return fc.arg(1, c)
		}
		return intSeq(0), nil
	}
	allIntegers := true
	var isum int64
	var dsum float64
	for _, v := range vals {
		n, ok := types.NumericValue(v)
		if !ok {
			return nil, types.NewTypeError(types.ErrTypeMismatch,
				fmt.Sprintf("sum() requires numeric values, got %s", v.AtomicType()))
		}
		if iv, isInt := v.(types.IntegerValue); isInt && allIntegers {
			isum += int64(iv)
		} else {
			allIntegers = false
		}
		dsum += n
	}
	if allIntegers {
		return intSeq(isum), nil
	}
	return doubleSeq(dsum), nil
}

func evalAvg(fc *FunctionCall, c *Context) ([]types.Item, error) {
	vals, err := fc.atomizedArg(0, c)
	if err != nil {
		return nil, err
	}
	if len(vals) == 0 {
		return emptySeq(), nil
	}
	var sum float64
	for _, v := range vals {
		n, ok := types.NumericValue(v)
		if !ok {
			return nil, types.NewTypeError(types.ErrTypeMismatch,
				fmt.Sprintf("avg() requires numeric values, got %s", v.AtomicType()))
		}
		sum += n
	}
	return doubleSeq(sum / float64(len(vals))), nil
}

// extreme is min (sign -1) and max (sign 1). Untyped values compare as
// doubles, per the collation-backed comparer's numeric rules.
func (fc *FunctionCall) extreme(c *Context, sign int) ([]types.Item, error) {
	vals, err := fc.atomizedArg(0, c)
	if err != nil {
		return nil, err
	}
	if len(vals) == 0 {
		return emptySeq(), nil
	}
	best := vals[0]
	if u, ok := best.(types.UntypedValue); ok {
		if best, err = untypedToDouble(u); err != nil {
			return nil, err
		}
	}
	for _, v := range vals[1:] {
		if u, ok := v.(types.UntypedValue); ok {
			if v, err = untypedToDouble(u); err != nil {
				return nil, err
			}
		}
		cmp, err := fc.comparer.Compare(v, best)
		if err != nil {
			return nil, err
		}
		if cmp*sign > 0 {
			best = v
		}
	}
	return one(best), nil
}

func untypedToDouble(u types.UntypedValue) (types.AtomicValue, error) {
	conv := types.Converter(types.TypeUntypedAtomic, types.TypeDouble)
	v, cerr := conv(u)
	if cerr != nil {
		return nil, cerr
	}
	return v, nil
}

func evalString(fc *FunctionCall, c *Context) ([]types.Item, error) {
	if len(fc.args) == 0 {
		item, err := c.ContextItem()
		if err != nil {
			return nil, err
		}
		return strSeq(item.StringValue()), nil
	}
	v, err := fc.singleAtomicArg(0, c)
	if err != nil {
		return nil, err
	}
	if v == nil {
		return strSeq(""), nil
	}
	return strSeq(v.StringValue()), nil
}

func evalNumber(fc *FunctionCall, c *Context) ([]types.Item, error) {
	var v types.AtomicValue
	if len(fc.args) == 0 {
		item, err := c.ContextItem()
		if err != nil {
			return nil, err
		}
		v = types.Atomize(item)
	} else {
		var err error
		if v, err = fc.singleAtomicArg(0, c); err != nil {
			return nil, err
		}
	}
	if v == nil {
		return doubleSeq(math.NaN()), nil
	}
	if n, ok := types.NumericValue(v); ok {
		return doubleSeq(n), nil
	}
	conv := types.Converter(v.AtomicType(), types.TypeDouble)
	if conv == nil {
		return doubleSeq(math.NaN()), nil
	}
	out, cerr := conv(v)
	if cerr != nil {
		return doubleSeq(math.NaN()), nil
	}
	n, _ := types.NumericValue(out)
	return doubleSeq(n), nil
}

func evalName(fc *FunctionCall, c *Context) ([]types.Item, error) {
	var item types.Item
	if len(fc.args) == 0 {
		var err error
		if item, err = c.ContextItem(); err != nil {
			return nil, err
		}
	} else {
		items, err := fc.arg(0, c)
		if err != nil {
			return nil, err
		}
		if len(items) == 0 {
			return strSeq(""), nil
		}
		if len(items) > 1 {
			return nil, types.NewTypeError(types.ErrMoreThanOne,
				"name() requires at most one node")
		}
		item = items[0]
	}
	n, ok := item.(types.Node)
	if !ok {
		return nil, types.NewTypeError(types.ErrTypeMismatch,
			"name() requires a node")
	}
	name := n.Name()
	if name.Prefix != "" {
		return strSeq(name.Prefix + ":" + name.Local), nil
	}
	return strSeq(name.Local), nil
}
