package expr

import (
	"fmt"
	"log/slog"

	"github.com/perrin-dev/sequoia/pkg/push"
	"github.com/perrin-dev/sequoia/pkg/types"
)

// Focus is the current context item, its 1-based position within the
// sequence being iterated, and that sequence's size. Size is computed
// only when the construct that set the focus saw a last() dependency in
// its body; it is -1 when unknown.
type Focus struct {
	Item     types.Item
	Position int
	Size     int
}

// InstructionInfo describes a traced construct to a TraceListener.
type InstructionInfo struct {
	Construct string
	Label     string
	Loc       types.Location
}

// TraceListener observes enter/leave notifications of traced constructs.
type TraceListener interface {
	Enter(info InstructionInfo, c *Context)
	Leave(info InstructionInfo)
}

// ErrorListener receives warnings and the first report of fatal errors.
// Warnings do not terminate the run; fatal errors do.
type ErrorListener interface {
	Warning(err *types.Error)
	FatalError(err *types.Error)
}

// SlogErrorListener reports through structured logging.
type SlogErrorListener struct {
	Logger *slog.Logger
}

func (l *SlogErrorListener) logger() *slog.Logger {
	if l.Logger != nil {
		return l.Logger
	}
	return slog.Default()
}

func (l *SlogErrorListener) Warning(err *types.Error) {
	l.logger().Warn("recoverable error", "code", err.Code, "message", err.Message)
}

func (l *SlogErrorListener) FatalError(err *types.Error) {
	l.logger().Error("fatal error", "kind", err.Kind.String(), "code", err.Code, "message", err.Message)
}

// ResourceLedger tracks which result URIs a run has read or written, to
// reject read-after-write and double-write races on one logical
// resource. Owned by a single run; not safe for concurrent use.
type ResourceLedger struct {
	read    map[string]bool
	written map[string]bool
}

// NewResourceLedger returns an empty ledger.
func NewResourceLedger() *ResourceLedger {
	return &ResourceLedger{read: make(map[string]bool), written: make(map[string]bool)}
}

// MarkRead records a read of uri, failing if it was already written in
// this run.
func (r *ResourceLedger) MarkRead(uri string) error {
	if r.written[uri] {
		return types.NewUpdateError(types.ErrResultURIRead,
			fmt.Sprintf("uri %q has already been written in this run", uri))
	}
	r.read[uri] = true
	return nil
}

// MarkWritten records a write of uri, failing if it was already read or
// written in this run.
func (r *ResourceLedger) MarkWritten(uri string) error {
	if r.written[uri] {
		return types.NewUpdateError(types.ErrResultURIConflict,
			fmt.Sprintf("uri %q is written twice in this run", uri))
	}
	if r.read[uri] {
		return types.NewUpdateError(types.ErrResultURIConflict,
			fmt.Sprintf("uri %q has already been read in this run", uri))
	}
	r.written[uri] = true
	return nil
}

// ResultResolver opens a push destination for a result-document URI.
type ResultResolver func(uri string) (push.Receiver, error)

// controller holds the per-run state shared by all nested contexts of
// one evaluation: listeners, ledger, builder factory, recursion
// depth. A controller is single-threaded; concurrent evaluations of the
// same program each create their own.
type controller struct {
	trace          TraceListener
	tracingEnabled bool
	errors         ErrorListener
	ledger         *ResourceLedger
	newBuilder     push.BuilderFactory
	resolveResult  ResultResolver
	logger         *slog.Logger
	depth          int
	maxDepth       int
}

// Context is the per-evaluation dynamic state threaded through
// evaluation: the local variable frame, the focus, and the current
// output receiver. Contexts form a chain; nested constructs derive
// children rather than mutating shared fields, so concurrently running
// iterators may keep long-lived references to a captured context.
//
// A Context must not be shared between goroutines.
type Context struct {
	frame [][]types.Item
	focus *Focus
	out   push.Receiver
	ctrl  *controller

	// tail receives a pending tail-call instead of a recursive
	// invocation when the callee is marked for trampolining.
	tail *pendingTail
}

// ContextOption configures a fresh evaluation context.
type ContextOption func(*Context)

// WithTraceListener enables tracing through the given listener.
func WithTraceListener(l TraceListener) ContextOption {
	return func(c *Context) {
		c.ctrl.trace = l
		c.ctrl.tracingEnabled = l != nil
	}
}

// WithErrorListener routes warnings and fatal reports to l.
func WithErrorListener(l ErrorListener) ContextOption {
	return func(c *Context) { c.ctrl.errors = l }
}

// WithReceiver sets the initial push-mode output destination.
func WithReceiver(r push.Receiver) ContextOption {
	return func(c *Context) { c.out = r }
}

// WithBuilderFactory supplies the factory used by node constructors and
// result-document instructions to build trees.
func WithBuilderFactory(f push.BuilderFactory) ContextOption {
	return func(c *Context) { c.ctrl.newBuilder = f }
}

// WithResultResolver supplies the destination resolver for
// result-document instructions.
func WithResultResolver(r ResultResolver) ContextOption {
	return func(c *Context) { c.ctrl.resolveResult = r }
}

// WithLogger sets the structured logger.
func WithLogger(l *slog.Logger) ContextOption {
	return func(c *Context) { c.ctrl.logger = l }
}

// WithMaxRecursionDepth bounds user-function recursion.
func WithMaxRecursionDepth(n int) ContextOption {
	return func(c *Context) { c.ctrl.maxDepth = n }
}

// WithContextItem seeds the initial focus with a singleton sequence.
func WithContextItem(item types.Item) ContextOption {
	return func(c *Context) { c.focus = &Focus{Item: item, Position: 1, Size: 1} }
}

// NewContext creates the root context for one evaluation with a local
// frame of frameSize slots.
func NewContext(frameSize int, opts ...ContextOption) *Context {
	c := &Context{
		frame: make([][]types.Item, frameSize),
		ctrl: &controller{
			errors:   &SlogErrorListener{},
			ledger:   NewResourceLedger(),
			maxDepth: 10000,
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.ctrl.logger == nil {
		c.ctrl.logger = slog.Default()
	}
	return c
}

// WithFocus derives a context with a new focus, sharing frame and run
// state.
func (c *Context) WithFocus(f *Focus) *Context {
	child := *c
	child.focus = &Focus{}
	*child.focus = *f
	return &child
}

// WithFrame derives a context with a fresh local frame, used when
// activating a user function. The frame is heap-allocated: closures and
// lazily-consumed iterators may outlive the activation that created it.
func (c *Context) WithFrame(size int) *Context {
	child := *c
	child.frame = make([][]types.Item, size)
	child.tail = nil
	return &child
}

// WithReceiver derives a context whose push output goes to r; the
// previous receiver is untouched in the parent, restoring itself
// naturally when the caller's context resumes.
func (c *Context) WithReceiver(r push.Receiver) *Context {
	child := *c
	child.out = r
	return &child
}

// Focus returns the current focus, or nil when there is none.
func (c *Context) Focus() *Focus { return c.focus }

// ContextItem returns the focus item or a no-context-item error.
func (c *Context) ContextItem() (types.Item, error) {
	if c.focus == nil || c.focus.Item == nil {
		return nil, types.NewDynamicError(types.ErrNoContextItem, "no context item")
	}
	return c.focus.Item, nil
}

// Receiver returns the current push destination.
func (c *Context) Receiver() push.Receiver { return c.out }

// SetSlot stores a sequence in a local variable slot.
func (c *Context) SetSlot(slot int, value []types.Item) { c.frame[slot] = value }

// Slot reads a local variable slot.
func (c *Context) Slot(slot int) []types.Item { return c.frame[slot] }

// Logger returns the run's structured logger.
func (c *Context) Logger() *slog.Logger { return c.ctrl.logger }

// Ledger returns the run's resource ledger.
func (c *Context) Ledger() *ResourceLedger { return c.ctrl.ledger }

// NewBuilder returns a fresh tree builder, or an error when the run was
// configured without one.
func (c *Context) NewBuilder() (push.Builder, error) {
	if c.ctrl.newBuilder == nil {
		return nil, types.NewDynamicError(types.ErrContentTypeMismatch,
			"no tree builder configured for node construction")
	}
	return c.ctrl.newBuilder(), nil
}

// resolveResult opens the push destination for a secondary result URI.
func (c *Context) resolveResult(uri string) (push.Receiver, error) {
	if c.ctrl.resolveResult == nil {
		return nil, types.NewDynamicError(types.ErrResultURIConflict,
			"no result resolver configured for secondary outputs")
	}
	return c.ctrl.resolveResult(uri)
}

// Tracing reports whether trace notifications are enabled.
func (c *Context) Tracing() bool { return c.ctrl.tracingEnabled }

// Trace returns the trace listener.
func (c *Context) Trace() TraceListener { return c.ctrl.trace }

// Errors returns the error listener.
func (c *Context) Errors() ErrorListener { return c.ctrl.errors }

// ReportFatal delivers a fatal error to the listener exactly once,
// marking it reported.
func (c *Context) ReportFatal(err *types.Error) {
	if err.Reported {
		return
	}
	err.Reported = true
	c.ctrl.errors.FatalError(err)
}

// enterRecursion bounds user-function recursion depth.
func (c *Context) enterRecursion() error {
	c.ctrl.depth++
	if c.ctrl.depth > c.ctrl.maxDepth {
		return types.NewDynamicError(types.ErrRecursionTooDeep,
			fmt.Sprintf("recursion depth exceeds %d", c.ctrl.maxDepth))
	}
	return nil
}

func (c *Context) leaveRecursion() { c.ctrl.depth-- }
