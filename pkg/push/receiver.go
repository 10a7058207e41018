// Package push implements the push-mode output pipeline: a chain of
// Receiver stages, each owning exactly one downstream sink. Expression
// evaluation in push mode writes structural and content events into the
// head of a chain instead of materializing a sequence.
package push

import (
	"fmt"
	"strings"

	"github.com/perrin-dev/sequoia/pkg/types"
)

// ElementProperties carries per-element flags on StartElement.
type ElementProperties uint8

const (
	// DisinheritNamespaces marks an element that does not inherit its
	// parent's namespace context; in-scope bindings are undeclared at
	// the start of its content unless explicitly redeclared.
	DisinheritNamespaces ElementProperties = 1 << iota
)

// Receiver consumes a balanced stream of events. Lifecycle is
// Open → events → Close; StartDocument/EndDocument and
// StartElement/EndElement must balance. Namespace and Attribute events
// are only valid between a StartElement and its StartContent.
//
// Receivers are not safe for concurrent use; a chain belongs to exactly
// one evaluation.
type Receiver interface {
	Open() error
	Close() error

	StartDocument() error
	EndDocument() error

	StartElement(name types.QNameValue, props ElementProperties) error
	Namespace(prefix, uri string) error
	Attribute(name types.QNameValue, value string) error
	// StartContent marks the end of the start tag; namespace and
	// attribute events for the current element must precede it.
	StartContent() error
	EndElement() error

	Characters(text string) error
	Comment(text string) error
	ProcessingInstruction(target, data string) error

	// Append delivers an already-constructed item (atomic value or
	// node) as one unit of the output sequence.
	Append(item types.Item) error
}

// Builder is a Receiver that constructs a result item from the events
// it receives (a tree builder, typically).
type Builder interface {
	Receiver
	// Result returns the constructed item after Close.
	Result() (types.Item, error)
}

// BuilderFactory creates a fresh Builder for a nested construction
// context.
type BuilderFactory func() Builder

// ProxyReceiver forwards every event to one downstream receiver.
// Pipeline stages embed it and override the events they care about.
type ProxyReceiver struct {
	Next Receiver
}

func (p *ProxyReceiver) Open() error { return p.Next.Open() }
func (p *ProxyReceiver) Close() error { return p.Next.Close() }
func (p *ProxyReceiver) StartDocument() error { return p.Next.StartDocument() }
func (p *ProxyReceiver) EndDocument() error { return p.Next.EndDocument() }
func (p *ProxyReceiver) StartElement(name types.QNameValue, props ElementProperties) error {
	return p.Next.StartElement(name, props)
}
func (p *ProxyReceiver) Namespace(prefix, uri string) error { return p.Next.Namespace(prefix, uri) }
func (p *ProxyReceiver) Attribute(name types.QNameValue, value string) error {
	return p.Next.Attribute(name, value)
}
func (p *ProxyReceiver) StartContent() error { return p.Next.StartContent() }
func (p *ProxyReceiver) EndElement() error { return p.Next.EndElement() }
func (p *ProxyReceiver) Characters(text string) error { return p.Next.Characters(text) }
func (p *ProxyReceiver) Comment(text string) error { return p.Next.Comment(text) }
func (p *ProxyReceiver) ProcessingInstruction(target, data string) error {
	return p.Next.ProcessingInstruction(target, data)
}
func (p *ProxyReceiver) Append(item types.Item) error { return p.Next.Append(item) }

// SequenceCollector is a terminal receiver materializing the appended
// items of a flat output sequence. Text written via Characters becomes
// untyped atomic items. Structural events are rejected: callers that
// construct trees route through a Builder instead.
type SequenceCollector struct {
	items  []types.Item
	closed bool
}

// NewSequenceCollector returns an empty collector.
func NewSequenceCollector() *SequenceCollector { return &SequenceCollector{} }

func (s *SequenceCollector) Open() error { return nil }
func (s *SequenceCollector) Close() error { s.closed = true; return nil }

func (s *SequenceCollector) StartDocument() error { return s.structural("startDocument") }
func (s *SequenceCollector) EndDocument() error { return s.structural("endDocument") }
func (s *SequenceCollector) StartElement(types.QNameValue, ElementProperties) error {
	return s.structural("startElement")
}
func (s *SequenceCollector) Namespace(string, string) error { return s.structural("namespace") }
func (s *SequenceCollector) Attribute(types.QNameValue, string) error {
	return s.structural("attribute")
}
func (s *SequenceCollector) StartContent() error { return nil }
func (s *SequenceCollector) EndElement() error { return s.structural("endElement") }

func (s *SequenceCollector) Characters(text string) error {
	s.items = append(s.items, types.UntypedValue(text))
	return nil
}

func (s *SequenceCollector) Comment(string) error { return s.structural("comment") }
func (s *SequenceCollector) ProcessingInstruction(string, string) error {
	return s.structural("processing-instruction")
}

func (s *SequenceCollector) Append(item types.Item) error {
	s.items = append(s.items, item)
	return nil
}

// Items returns the collected sequence.
func (s *SequenceCollector) Items() []types.Item { return s.items }

func (s *SequenceCollector) structural(event string) error {
	return types.NewDynamicError(types.ErrContentTypeMismatch,
		fmt.Sprintf("%s event in a flat sequence destination", event))
}

// EventRecorder is a terminal receiver that records a readable trace of
// the events it receives. Test infrastructure.
type EventRecorder struct {
	Events []string
}

func (r *EventRecorder) record(ev string, args ...any) error {
	if len(args) > 0 {
		ev = ev + "(" + fmt.Sprint(args...) + ")"
	}
	r.Events = append(r.Events, ev)
	return nil
}

func (r *EventRecorder) Open() error { return r.record("open") }
func (r *EventRecorder) Close() error { return r.record("close") }
func (r *EventRecorder) StartDocument() error { return r.record("startDocument") }
func (r *EventRecorder) EndDocument() error { return r.record("endDocument") }
func (r *EventRecorder) StartElement(name types.QNameValue, _ ElementProperties) error {
	return r.record("startElement", name.StringValue())
}
func (r *EventRecorder) Namespace(prefix, uri string) error {
	return r.record("namespace", prefix+"="+uri)
}
func (r *EventRecorder) Attribute(name types.QNameValue, value string) error {
	return r.record("attribute", name.StringValue()+"="+value)
}
func (r *EventRecorder) StartContent() error { return r.record("startContent") }
func (r *EventRecorder) EndElement() error { return r.record("endElement") }
func (r *EventRecorder) Characters(text string) error { return r.record("characters", text) }
func (r *EventRecorder) Comment(text string) error { return r.record("comment", text) }
func (r *EventRecorder) ProcessingInstruction(target, data string) error {
	return r.record("pi", target+" "+data)
}
func (r *EventRecorder) Append(item types.Item) error {
	return r.record("append", item.StringValue())
}

// Trace renders the recorded events one per line.
func (r *EventRecorder) Trace() string { return strings.Join(r.Events, "\n") }
