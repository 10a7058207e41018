package expr

import (
	"fmt"

	"github.com/perrin-dev/sequoia/pkg/compare"
	"github.com/perrin-dev/sequoia/pkg/types"
)

// Binding associates a variable or parameter name with a declared
// required type and a storage slot. VariableReference nodes are fixed
// up to their Binding before execution; a reference left unbound fails
// fast instead of yielding an empty value.
type Binding struct {
	Name     string
	Slot     int
	Required types.SequenceType
}

// SlotManager allocates local variable slots for one stack frame.
type SlotManager struct {
	next int
}

// Allocate assigns the next free slot to the binding and returns it.
func (s *SlotManager) Allocate(b *Binding) int {
	b.Slot = s.next
	s.next++
	return b.Slot
}

// FrameSize returns the number of slots allocated so far.
func (s *SlotManager) FrameSize() int { return s.next }

// StaticContext is the compile-time environment threaded through the
// static analysis passes: slot allocation, the namespace scope captured
// for namespace-sensitive constructs, the collation in force, and the
// user function library for call fix-up.
type StaticContext struct {
	Slots      *SlotManager
	Namespaces types.NamespaceResolver
	Collator   compare.StringCollator
	Functions  *FunctionLibrary

	// Backwards severity demotion: inside a conditional branch, type
	// failures that depend on reachability are demoted to deferred
	// dynamic errors instead of aborting compilation.
	inBranch bool
}

// NewStaticContext returns a static context with a fresh slot manager,
// codepoint collation and an empty user function library.
func NewStaticContext() *StaticContext {
	return &StaticContext{
		Slots:     &SlotManager{},
		Collator:  compare.Codepoint(),
		Functions: NewFunctionLibrary(),
	}
}

// Comparer returns the generic atomic comparer under the static
// collation.
func (sc *StaticContext) Comparer() compare.AtomicComparer {
	return compare.NewGeneric(sc.Collator)
}

// branch returns a static context for type-checking a conditional
// branch: type failures inside it are demoted to runtime errors unless
// they are static-only.
func (sc *StaticContext) branch() *StaticContext {
	child := *sc
	child.inBranch = true
	return &child
}

// demote converts a branch-local type error into a deferred-error
// expression, preserving the dynamic-semantics rule that an unreachable
// branch's type failure must not surface at compile time. Static-only
// errors pass through.
func (sc *StaticContext) demote(err error, loc types.Location) (Expression, error) {
	ee := types.AsEngineError(err)
	if !sc.inBranch || ee.Kind == types.StaticError {
		return nil, ee.WithLocation(loc)
	}
	deferred := *ee
	deferred.Kind = types.DynamicError
	return NewDeferredError(&deferred), nil
}

// FunctionLibrary registers user-defined functions by name and arity.
type FunctionLibrary struct {
	fns map[string]*UserFunction
}

// NewFunctionLibrary returns an empty library.
func NewFunctionLibrary() *FunctionLibrary {
	return &FunctionLibrary{fns: make(map[string]*UserFunction)}
}

func libKey(name string, arity int) string { return fmt.Sprintf("%s/%d", name, arity) }

// Declare registers a user function.
func (l *FunctionLibrary) Declare(f *UserFunction) {
	l.fns[libKey(f.Name, len(f.Params))] = f
}

// Lookup finds a function by name and arity.
func (l *FunctionLibrary) Lookup(name string, arity int) (*UserFunction, bool) {
	f, ok := l.fns[libKey(name, arity)]
	return f, ok
}

// All returns the declared functions in arbitrary order.
func (l *FunctionLibrary) All() []*UserFunction {
	out := make([]*UserFunction, 0, len(l.fns))
	for _, f := range l.fns {
		out = append(out, f)
	}
	return out
}
