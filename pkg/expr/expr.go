// Package expr implements the expression tree: one polymorphic node per
// syntactic construct, each supporting static analysis (simplify,
// type-check, optimize) and three equivalent dynamic evaluation
// protocols (pull iteration, push processing, single-item evaluation).
//
// The static analysis passes may replace a node wholesale; parents
// re-link by assigning the returned replacement. After optimization the
// tree is frozen: evaluation never mutates shared expression state, so
// one compiled tree may be evaluated concurrently from many contexts.
package expr

import (
	"fmt"
	"io"
	"strings"

	"github.com/perrin-dev/sequoia/pkg/iter"
	"github.com/perrin-dev/sequoia/pkg/types"
)

// Dependency is a bit-set describing what parts of the dynamic context
// an expression's value depends on. Used by constant folding and by
// focus-setting constructs that pre-compute the focus size only when a
// body actually calls last().
type Dependency uint8

const (
	// DepContextItem marks a dependency on the focus item.
	DepContextItem Dependency = 1 << iota
	// DepPosition marks a dependency on position().
	DepPosition
	// DepLast marks a dependency on last().
	DepLast
	// DepLocalVars marks a dependency on local variable slots.
	DepLocalVars
	// DepOutput marks an instruction that writes to the current output
	// receiver or other run state; such expressions are never folded.
	DepOutput
	// DepUserFunctions marks a call into user code, which may recurse
	// or carry its own dependencies; treated as unfoldable.
	DepUserFunctions
)

const depFocus = DepContextItem | DepPosition | DepLast

// Expression is one node of the compiled expression tree.
//
// The three evaluation protocols must be semantically equivalent for
// every node: Iterate is the lazy pull form, Process pushes items into
// the context's current receiver, and EvaluateItem is valid only for
// expressions whose cardinality forbids more than one item.
type Expression interface {
	// Simplify performs context-free rewrites (constant folding that
	// needs no type information, wrapper merging). Returns the
	// replacement node, often the receiver itself.
	Simplify() (Expression, error)

	// TypeCheck propagates required types, resolves bindings, inserts
	// dynamic check wrappers, and reports static errors.
	TypeCheck(sc *StaticContext) (Expression, error)

	// Optimize performs type- and cardinality-driven rewrites. It runs
	// after TypeCheck and must preserve dynamic semantics, including
	// error timing, with one sanctioned exception: an expression whose
	// value is never used (a dead conditional branch, an unreferenced
	// binding) may be dropped along with any error it would have
	// raised. Static type and cardinality may only narrow.
	Optimize(sc *StaticContext) (Expression, error)

	// ItemType returns the static item type of the result.
	ItemType() types.ItemType

	// Cardinality returns the static cardinality bound of the result.
	Cardinality() types.Cardinality

	// Dependencies returns the dynamic-context dependencies.
	Dependencies() Dependency

	// Children returns the immediate sub-expressions, for generic tree
	// walks that need no knowledge of concrete shapes.
	Children() []Expression

	// Iterate evaluates in pull mode.
	Iterate(c *Context) (iter.SequenceIterator, error)

	// Process evaluates in push mode, writing to c's current receiver.
	Process(c *Context) error

	// EvaluateItem evaluates an expression statically known to return
	// at most one item. Calling it on a many-valued expression is a
	// programming error.
	EvaluateItem(c *Context) (types.Item, error)

	// Explain writes a structured dump of the node at the given depth.
	Explain(w io.Writer, depth int)

	// Location returns the source location for diagnostics.
	Location() types.Location
}

// baseExpr carries the source location shared by every node.
type baseExpr struct {
	loc types.Location
}

func (b *baseExpr) Location() types.Location { return b.loc }

// SetLocation records the source position; the parser calls this when
// building the raw tree.
func (b *baseExpr) SetLocation(loc types.Location) { b.loc = loc }

// processViaIterate is the generic push-mode fallback: pull the value
// and append each item to the current receiver.
func processViaIterate(e Expression, c *Context) error {
	it, err := e.Iterate(c)
	if err != nil {
		return withLoc(err, e)
	}
	defer it.Close()
	for {
		item, err := it.Next()
		if err != nil {
			return withLoc(err, e)
		}
		if item == nil {
			return nil
		}
		if err := c.Receiver().Append(item); err != nil {
			return withLoc(err, e)
		}
	}
}

// itemViaIterate is the generic single-item fallback for expressions
// whose cardinality admits at most one item.
func itemViaIterate(e Expression, c *Context) (types.Item, error) {
	it, err := e.Iterate(c)
	if err != nil {
		return nil, withLoc(err, e)
	}
	defer it.Close()
	item, err := it.Next()
	if err != nil {
		return nil, withLoc(err, e)
	}
	return item, nil
}

// iterateViaItem is the pull-mode fallback for nodes that implement
// EvaluateItem natively.
func iterateViaItem(e Expression, c *Context) (iter.SequenceIterator, error) {
	item, err := e.EvaluateItem(c)
	if err != nil {
		return nil, err
	}
	return iter.Singleton(item), nil
}

// evaluate materializes the full value of an expression.
func evaluate(e Expression, c *Context) ([]types.Item, error) {
	it, err := e.Iterate(c)
	if err != nil {
		return nil, withLoc(err, e)
	}
	defer it.Close()
	items, err := iter.Drain(it)
	if err != nil {
		return nil, withLoc(err, e)
	}
	return items, nil
}

// effectiveBool evaluates an expression and reduces it to its effective
// boolean value.
func effectiveBool(e Expression, c *Context) (bool, error) {
	items, err := evaluate(e, c)
	if err != nil {
		return false, err
	}
	b, err := types.EffectiveBoolean(items)
	if err != nil {
		return false, withLoc(err, e)
	}
	return b, nil
}

// withLoc annotates an engine error with the expression's location when
// no inner location is present, then returns it unchanged otherwise.
func withLoc(err error, e Expression) error {
	if err == nil {
		return nil
	}
	return types.AsEngineError(err).WithLocation(e.Location())
}

// dependenciesOf unions the dependencies of a node's children.
func dependenciesOf(children ...Expression) Dependency {
	var d Dependency
	for _, ch := range children {
		if ch != nil {
			d |= ch.Dependencies()
		}
	}
	return d
}

// explainf writes one indented explain line.
func explainf(w io.Writer, depth int, format string, args ...any) {
	fmt.Fprintf(w, "%s%s\n", strings.Repeat("  ", depth), fmt.Sprintf(format, args...))
}

// ExplainString renders an expression's explain dump to a string.
func ExplainString(e Expression) string {
	var sb strings.Builder
	e.Explain(&sb, 0)
	return sb.String()
}
