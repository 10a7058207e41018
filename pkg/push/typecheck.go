package push

import (
	"fmt"

	"github.com/perrin-dev/sequoia/pkg/types"
)

// TypeCheckFilter verifies the items flowing into one output location
// against a required sequence type.
//
// The item-type check applies to every top-level item (an appended item,
// a depth-0 element, a depth-0 text chunk). The cardinality check is
// lazy: a "one item forbidden" violation fires on the first item, a
// "more than one forbidden" violation fires precisely when the second
// item arrives, so the common single-item case costs one counter bump.
//
// Already-validated (kind, name) pairs are cached per nesting level so
// tight loops emitting the same element shape re-validate nothing.
type TypeCheckFilter struct {
	ProxyReceiver
	Required types.SequenceType
	// Role names the checked location in error messages ("result of
	// template x", "value of variable y").
	Role string

	depth int
	count int
	// validated caches names accepted at the top level, keyed by
	// kind and Clark name.
	validated map[string]bool
}

// NewTypeCheckFilter chains a type-checking stage requiring the given
// sequence type in front of next.
func NewTypeCheckFilter(next Receiver, required types.SequenceType, role string) *TypeCheckFilter {
	return &TypeCheckFilter{
		ProxyReceiver: ProxyReceiver{Next: next},
		Required:      required,
		Role:          role,
		validated:     make(map[string]bool),
	}
}

func (t *TypeCheckFilter) StartElement(name types.QNameValue, props ElementProperties) error {
	if t.depth == 0 {
		if err := t.checkElement(name); err != nil {
			return err
		}
	}
	t.depth++
	return t.Next.StartElement(name, props)
}

func (t *TypeCheckFilter) EndElement() error {
	t.depth--
	return t.Next.EndElement()
}

func (t *TypeCheckFilter) StartDocument() error {
	if t.depth == 0 {
		if err := t.itemArrived(); err != nil {
			return err
		}
		if !t.Required.Item.Matches(docProbe{}) {
			return t.typeErr(types.NodeKindType(types.KindDocument).String())
		}
	}
	t.depth++
	return t.Next.StartDocument()
}

func (t *TypeCheckFilter) EndDocument() error {
	t.depth--
	return t.Next.EndDocument()
}

func (t *TypeCheckFilter) Characters(text string) error {
	if t.depth == 0 && len(text) > 0 {
		if err := t.itemArrived(); err != nil {
			return err
		}
		if !t.Required.Item.Matches(textProbe(text)) {
			return t.typeErr("text node")
		}
	}
	return t.Next.Characters(text)
}

func (t *TypeCheckFilter) Append(item types.Item) error {
	if t.depth == 0 {
		if err := t.itemArrived(); err != nil {
			return err
		}
		if !t.Required.Item.Matches(item) {
			return t.typeErr(describeItem(item))
		}
	}
	return t.Next.Append(item)
}

func (t *TypeCheckFilter) Close() error {
	if t.count == 0 && !t.Required.Card.AllowsZero() {
		return types.NewTypeError(types.ErrBadCardinality,
			fmt.Sprintf("%s: empty sequence not allowed, required %s", t.Role, t.Required))
	}
	return t.Next.Close()
}

func (t *TypeCheckFilter) checkElement(name types.QNameValue) error {
	if err := t.itemArrived(); err != nil {
		return err
	}
	key := "e|" + name.ClarkName()
	if t.validated[key] {
		return nil
	}
	if !t.Required.Item.Matches(elemProbe{name: name}) {
		return t.typeErr(fmt.Sprintf("element %s", name.StringValue()))
	}
	t.validated[key] = true
	return nil
}

func (t *TypeCheckFilter) itemArrived() error {
	t.count++
	if t.count == 2 && !t.Required.Card.AllowsMany() {
		return types.NewTypeError(types.ErrBadCardinality,
			fmt.Sprintf("%s: more than one item not allowed, required %s", t.Role, t.Required))
	}
	if t.count == 1 && t.Required.Card == types.CardEmpty {
		return types.NewTypeError(types.ErrBadCardinality,
			fmt.Sprintf("%s: empty sequence required", t.Role))
	}
	return nil
}

func (t *TypeCheckFilter) typeErr(got string) error {
	return types.NewTypeError(types.ErrContentTypeMismatch,
		fmt.Sprintf("%s: supplied %s does not match required type %s", t.Role, got, t.Required))
}

func describeItem(item types.Item) string {
	switch it := item.(type) {
	case types.Node:
		return it.NodeKind().String() + " node"
	case types.AtomicValue:
		return it.AtomicType().String() + " value"
	}
	return fmt.Sprintf("%T", item)
}

// Probe items let the filter reuse ItemType.Matches for events that
// describe a node without materializing one.

type elemProbe struct{ name types.QNameValue }

func (elemProbe) StringValue() string { return "" }
func (elemProbe) NodeKind() types.NodeKind { return types.KindElement }
func (p elemProbe) Name() types.QNameValue { return p.name }
func (elemProbe) Parent() types.Node { return nil }
func (elemProbe) ChildNodes() []types.Node { return nil }
func (elemProbe) AttributeNodes() []types.Node { return nil }
func (elemProbe) BaseURI() string { return "" }
func (elemProbe) DocumentID() string { return "" }
func (elemProbe) Ordinal() int { return 0 }
func (elemProbe) IsSame(o types.Node) bool { return false }

type docProbe struct{}

func (docProbe) StringValue() string { return "" }
func (docProbe) NodeKind() types.NodeKind { return types.KindDocument }
func (docProbe) Name() types.QNameValue { return types.QNameValue{} }
func (docProbe) Parent() types.Node { return nil }
func (docProbe) ChildNodes() []types.Node { return nil }
func (docProbe) AttributeNodes() []types.Node { return nil }
func (docProbe) BaseURI() string { return "" }
func (docProbe) DocumentID() string { return "" }
func (docProbe) Ordinal() int { return 0 }
func (docProbe) IsSame(o types.Node) bool { return false }

type textProbe string

func (p textProbe) StringValue() string { return string(p) }
func (textProbe) NodeKind() types.NodeKind { return types.KindText }
func (textProbe) Name() types.QNameValue { return types.QNameValue{} }
func (textProbe) Parent() types.Node { return nil }
func (textProbe) ChildNodes() []types.Node { return nil }
func (textProbe) AttributeNodes() []types.Node { return nil }
func (textProbe) BaseURI() string { return "" }
func (textProbe) DocumentID() string { return "" }
func (textProbe) Ordinal() int { return 0 }
func (textProbe) IsSame(o types.Node) bool { return false }
