// Package program wraps a fully analyzed expression tree with the
// run-time machinery needed to evaluate it: frame allocation, the
// output pipeline, and per-run options. A compiled Program is immutable
// and safe for concurrent runs.
package program

import (
	"io"
	"log/slog"

	"github.com/google/uuid"

	"github.com/perrin-dev/sequoia/pkg/expr"
	"github.com/perrin-dev/sequoia/pkg/iter"
	"github.com/perrin-dev/sequoia/pkg/push"
	"github.com/perrin-dev/sequoia/pkg/tree"
	"github.com/perrin-dev/sequoia/pkg/types"
)

// Program is a compiled expression: the optimized root, the local frame
// size its evaluation needs, and the static context it was compiled
// under.
type Program struct {
	root      expr.Expression
	frameSize int
	sc        *expr.StaticContext
	source    string
}

// Compile runs the static analysis pipeline over the root expression
// and every declared user function. Static errors abort compilation;
// branch-demoted type errors survive into the tree as deferred raises.
func Compile(root expr.Expression, sc *expr.StaticContext) (*Program, error) {
	if sc == nil {
		sc = expr.NewStaticContext()
	}
	for _, f := range sc.Functions.All() {
		if err := f.Analyze(sc); err != nil {
			return nil, err
		}
	}
	root, err := expr.Analyze(root, sc)
	if err != nil {
		return nil, err
	}
	return &Program{
		root:      root,
		frameSize: sc.Slots.FrameSize(),
		sc:        sc,
	}, nil
}

// SetSource records the source text the program was read from, for
// diagnostics.
func (p *Program) SetSource(src string) { p.source = src }

// Source returns the recorded source text.
func (p *Program) Source() string { return p.source }

// Root exposes the optimized expression tree.
func (p *Program) Root() expr.Expression { return p.root }

// Explain writes the optimized tree dump.
func (p *Program) Explain(w io.Writer) { p.root.Explain(w, 0) }

// RunOption configures one evaluation of a Program.
type RunOption func(*runConfig)

type runConfig struct {
	ctxOpts   []expr.ContextOption
	bindings  map[int][]types.Item
	required *types.SequenceType
	role     string
	logger   *slog.Logger
}

// WithContextItem seeds the initial focus.
func WithContextItem(item types.Item) RunOption {
	return func(rc *runConfig) {
		rc.ctxOpts = append(rc.ctxOpts, expr.WithContextItem(item))
	}
}

// WithVariable seeds a local variable slot before evaluation starts.
func WithVariable(slot int, value []types.Item) RunOption {
	return func(rc *runConfig) {
		if rc.bindings == nil {
			rc.bindings = make(map[int][]types.Item)
		}
		rc.bindings[slot] = value
	}
}

// WithTraceListener enables tracing for the run.
func WithTraceListener(l expr.TraceListener) RunOption {
	return func(rc *runConfig) {
		rc.ctxOpts = append(rc.ctxOpts, expr.WithTraceListener(l))
	}
}

// WithErrorListener routes warnings and fatal reports for the run.
func WithErrorListener(l expr.ErrorListener) RunOption {
	return func(rc *runConfig) {
		rc.ctxOpts = append(rc.ctxOpts, expr.WithErrorListener(l))
	}
}

// WithResultResolver supplies the destination resolver for secondary
// result documents.
func WithResultResolver(r expr.ResultResolver) RunOption {
	return func(rc *runConfig) {
		rc.ctxOpts = append(rc.ctxOpts, expr.WithResultResolver(r))
	}
}

// WithLogger sets the run's structured logger. Every log line carries
// the run's correlation id.
func WithLogger(l *slog.Logger) RunOption {
	return func(rc *runConfig) { rc.logger = l }
}

// WithRequiredType checks the delivered sequence against a required
// type, inserting the streaming filter into the output pipeline.
func WithRequiredType(required types.SequenceType, role string) RunOption {
	return func(rc *runConfig) {
		rc.required = &required
		rc.role = role
	}
}

func parseOpts(opts []RunOption) *runConfig {
	rc := &runConfig{}
	for _, opt := range opts {
		opt(rc)
	}
	return rc
}

// newContext assembles the per-run context chain.
func (p *Program) newContext(dest push.Receiver, rc *runConfig) *expr.Context {
	logger := rc.logger
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("run_id", uuid.NewString())

	ctxOpts := append([]expr.ContextOption{
		expr.WithLogger(logger),
		expr.WithBuilderFactory(tree.Factory),
	}, rc.ctxOpts...)
	if dest != nil {
		ctxOpts = append(ctxOpts, expr.WithReceiver(dest))
	}
	c := expr.NewContext(p.frameSize, ctxOpts...)
	for slot, value := range rc.bindings {
		c.SetSlot(slot, value)
	}
	return c
}

// pipeline wraps a destination with the standard output stages:
// namespace dedup next to the destination, the type filter outermost
// when a required type was requested.
func pipeline(dest push.Receiver, rc *runConfig) push.Receiver {
	out := push.Receiver(push.NewNamespaceReducer(dest))
	if rc.required != nil {
		out = push.NewTypeCheckFilter(out, *rc.required, rc.role)
	}
	return out
}

// Run evaluates in push mode into the given destination receiver.
func (p *Program) Run(dest push.Receiver, opts ...RunOption) error {
	rc := parseOpts(opts)
	out := pipeline(dest, rc)
	c := p.newContext(out, rc)
	if err := out.Open(); err != nil {
		return err
	}
	if err := p.root.Process(c); err != nil {
		reportFatal(c, err)
		// The destination still gets its Close so caller-held
		// resources are released; the evaluation error wins.
		_ = out.Close()
		return err
	}
	return out.Close()
}

// Iterate evaluates in pull mode. The returned iterator applies the
// required-type check, when one was requested, lazily.
func (p *Program) Iterate(opts ...RunOption) (iter.SequenceIterator, error) {
	rc := parseOpts(opts)
	c := p.newContext(nil, rc)
	root := p.root
	if rc.required != nil {
		root = expr.TypeChecked(root, *rc.required, rc.role)
	}
	it, err := root.Iterate(c)
	if err != nil {
		reportFatal(c, err)
		return nil, err
	}
	return it, nil
}

// Evaluate materializes the program's full value.
func (p *Program) Evaluate(opts ...RunOption) ([]types.Item, error) {
	rc := parseOpts(opts)
	c := p.newContext(nil, rc)
	root := p.root
	if rc.required != nil {
		root = expr.TypeChecked(root, *rc.required, rc.role)
	}
	it, err := root.Iterate(c)
	if err != nil {
		reportFatal(c, err)
		return nil, err
	}
	defer it.Close()
	items, err := iter.Drain(it)
	if err != nil {
		reportFatal(c, err)
		return nil, err
	}
	return items, nil
}

// EvaluateSingle returns the single item of a program whose value has
// at most one item; nil for empty.
func (p *Program) EvaluateSingle(opts ...RunOption) (types.Item, error) {
	rc := parseOpts(opts)
	c := p.newContext(nil, rc)
	root := p.root
	if rc.required != nil {
		root = expr.TypeChecked(root, *rc.required, rc.role)
	}
	item, err := root.EvaluateItem(c)
	if err != nil {
		reportFatal(c, err)
		return nil, err
	}
	return item, nil
}

func reportFatal(c *expr.Context, err error) {
	c.ReportFatal(types.AsEngineError(err))
}
