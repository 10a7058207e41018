// Package sequoia is a sequence-oriented expression engine for tree
// shaped data.
//
// Expressions are compiled once into an immutable Program and then
// evaluated any number of times, concurrently, against different
// context items. Compilation runs a static analysis pipeline
// (simplification, type checking, optimization) so that evaluation
// starts from an already rewritten tree.
//
// # Quick Start
//
//	// Compile once, evaluate many times
//	p, err := sequoia.Compile("sum(1 to 10)")
//	items, _ := p.Evaluate()
//
//	// One-shot evaluation against a document
//	doc, _ := tree.LoadYAML(data, "order")
//	items, err := sequoia.Eval("count(child::item)", doc)
//
// # More Information
//
// For detailed documentation, see:
//   - Reader: github.com/perrin-dev/sequoia/pkg/shorthand
//   - Programs: github.com/perrin-dev/sequoia/pkg/program
//   - Expressions: github.com/perrin-dev/sequoia/pkg/expr
//   - Types: github.com/perrin-dev/sequoia/pkg/types
package sequoia

import (
	"fmt"

	"github.com/perrin-dev/sequoia/pkg/cache"
	"github.com/perrin-dev/sequoia/pkg/compare"
	"github.com/perrin-dev/sequoia/pkg/expr"
	"github.com/perrin-dev/sequoia/pkg/program"
	"github.com/perrin-dev/sequoia/pkg/shorthand"
	"github.com/perrin-dev/sequoia/pkg/types"
)

// Version returns the current version of Sequoia.
func Version() string {
	return "v0.1.0-dev"
}

// CompileOption configures compilation of an expression.
type CompileOption func(*compileConfig)

type compileConfig struct {
	sc        *expr.StaticContext
	collation string
	caching   bool
}

// WithStaticContext compiles under a caller-supplied static context,
// typically to pre-declare user functions or variables. Programs
// compiled this way bypass the program cache.
func WithStaticContext(sc *expr.StaticContext) CompileOption {
	return func(cc *compileConfig) { cc.sc = sc }
}

// WithCollation sets the collation URI in force for string comparison.
func WithCollation(uri string) CompileOption {
	return func(cc *compileConfig) { cc.collation = uri }
}

// WithCaching enables the shared compiled-program cache: repeated
// compilations of the same source return the same Program.
func WithCaching(enabled bool) CompileOption {
	return func(cc *compileConfig) { cc.caching = enabled }
}

var programs = cache.New[*program.Program](256)

// Compile reads and compiles an expression for repeated evaluation.
// The returned Program is safe for concurrent use.
//
// Example:
//
//	p, err := sequoia.Compile("child::line[position() = 1]")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	items, _ := p.Evaluate(program.WithContextItem(doc))
func Compile(source string, opts ...CompileOption) (*program.Program, error) {
	cc := &compileConfig{}
	for _, opt := range opts {
		opt(cc)
	}
	if cc.caching && cc.sc == nil {
		key := cc.collation + "\x00" + source
		return programs.GetOrCompute(key, func() (*program.Program, error) {
			return compile(source, cc)
		})
	}
	return compile(source, cc)
}

func compile(source string, cc *compileConfig) (*program.Program, error) {
	sc := cc.sc
	if sc == nil {
		sc = expr.NewStaticContext()
	}
	if cc.collation != "" {
		coll, err := compare.ResolveCollation(cc.collation)
		if err != nil {
			return nil, err
		}
		sc.Collator = coll
	}
	root, err := shorthand.Read(source, sc)
	if err != nil {
		return nil, err
	}
	p, err := program.Compile(root, sc)
	if err != nil {
		return nil, err
	}
	p.SetSource(source)
	return p, nil
}

// Eval compiles and evaluates an expression in a single call, with the
// given node as the context item. A nil doc evaluates with an absent
// context item. Compiled programs are cached, so repeated Eval calls
// with the same source skip recompilation.
//
// Example:
//
//	items, err := sequoia.Eval("sum(child::line)", doc)
func Eval(source string, doc types.Node, opts ...program.RunOption) ([]types.Item, error) {
	p, err := Compile(source, WithCaching(true))
	if err != nil {
		return nil, err
	}
	if doc != nil {
		opts = append([]program.RunOption{program.WithContextItem(doc)}, opts...)
	}
	return p.Evaluate(opts...)
}

// MustCompile is like Compile but panics if the expression cannot be
// compiled. It simplifies safe initialization of global variables.
func MustCompile(source string) *program.Program {
	p, err := Compile(source)
	if err != nil {
		panic(fmt.Sprintf("sequoia: Compile(%q): %v", source, err))
	}
	return p
}
