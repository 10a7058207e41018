package tree

import (
	"github.com/google/uuid"

	"github.com/perrin-dev/sequoia/pkg/push"
	"github.com/perrin-dev/sequoia/pkg/types"
)

// Builder constructs a tree from a push event stream. It is the
// terminal stage of a construction pipeline; Result returns the built
// root after Close.
//
// A bare Attribute or Characters event with no open element builds an
// orphan attribute or text node, which is how pull-mode attribute and
// text constructors obtain parentless nodes.
type Builder struct {
	root    *node
	stack   []*node
	orphan  *node
	baseURI string
	closed  bool
}

var _ push.Builder = (*Builder)(nil)

// NewBuilder returns an empty tree builder.
func NewBuilder() *Builder { return &Builder{} }

// Factory adapts NewBuilder to the receiver pipeline's factory shape.
func Factory() push.Builder { return NewBuilder() }

// SetBaseURI sets the base URI recorded on built nodes.
func (b *Builder) SetBaseURI(uri string) { b.baseURI = uri }

func (b *Builder) Open() error { return nil }

func (b *Builder) current() *node {
	if len(b.stack) == 0 {
		return nil
	}
	return b.stack[len(b.stack)-1]
}

func (b *Builder) push(n *node) {
	if parent := b.current(); parent != nil {
		n.parent = parent
		parent.children = append(parent.children, n)
	} else if b.root == nil {
		b.root = n
	}
	b.stack = append(b.stack, n)
}

func (b *Builder) add(n *node) error {
	parent := b.current()
	if parent == nil {
		if b.root == nil && b.orphan == nil {
			b.orphan = n
			return nil
		}
		return types.NewDynamicError(types.ErrContentTypeMismatch,
			"content event outside any open node")
	}
	n.parent = parent
	parent.children = append(parent.children, n)
	return nil
}

func (b *Builder) StartDocument() error {
	b.push(&node{kind: types.KindDocument, baseURI: b.baseURI})
	return nil
}

func (b *Builder) EndDocument() error {
	if len(b.stack) == 0 {
		return types.NewDynamicError(types.ErrContentTypeMismatch,
			"end-document event with no open document")
	}
	b.stack = b.stack[:len(b.stack)-1]
	return nil
}

func (b *Builder) StartElement(name types.QNameValue, _ push.ElementProperties) error {
	b.push(&node{kind: types.KindElement, name: name, baseURI: b.baseURI})
	return nil
}

func (b *Builder) EndElement() error {
	if len(b.stack) == 0 {
		return types.NewDynamicError(types.ErrContentTypeMismatch,
			"end-element event with no open element")
	}
	b.stack = b.stack[:len(b.stack)-1]
	return nil
}

func (b *Builder) Namespace(prefix, uri string) error {
	el := b.current()
	if el == nil || el.kind != types.KindElement {
		return types.NewDynamicError(types.ErrContentTypeMismatch,
			"namespace event with no open element")
	}
	ns := &node{
		kind:   types.KindNamespace,
		name:   types.QNameValue{Local: prefix},
		value:  uri,
		parent: el,
	}
	el.attrs = append(el.attrs, ns)
	return nil
}

func (b *Builder) Attribute(name types.QNameValue, value string) error {
	el := b.current()
	if el == nil {
		if b.root == nil && b.orphan == nil {
			b.orphan = &node{kind: types.KindAttribute, name: name, value: value, baseURI: b.baseURI}
			return nil
		}
		return types.NewDynamicError(types.ErrContentTypeMismatch,
			"attribute event with no open element")
	}
	if el.kind != types.KindElement {
		return types.NewDynamicError(types.ErrContentTypeMismatch,
			"attribute event outside an element start tag")
	}
	at := &node{kind: types.KindAttribute, name: name, value: value, parent: el}
	el.attrs = append(el.attrs, at)
	return nil
}

func (b *Builder) StartContent() error { return nil }

// Characters appends text, merging with an adjacent text node so a
// built tree never carries two text siblings.
func (b *Builder) Characters(text string) error {
	if text == "" {
		return nil
	}
	if parent := b.current(); parent != nil {
		if n := len(parent.children); n > 0 && parent.children[n-1].kind == types.KindText {
			parent.children[n-1].value += text
			return nil
		}
	}
	return b.add(&node{kind: types.KindText, value: text})
}

func (b *Builder) Comment(text string) error {
	return b.add(&node{kind: types.KindComment, value: text})
}

func (b *Builder) ProcessingInstruction(target, data string) error {
	return b.add(&node{
		kind:  types.KindProcessingInstruction,
		name:  types.QNameValue{Local: target},
		value: data,
	})
}

// Append grafts an existing item into the content: nodes are copied
// into the new tree, atomic values become text.
func (b *Builder) Append(item types.Item) error {
	if n, ok := item.(types.Node); ok {
		return b.add(copyNode(n))
	}
	return b.Characters(item.StringValue())
}

// Close freezes the tree: document identity and document-order ordinals
// are assigned once, here.
func (b *Builder) Close() error {
	if b.closed {
		return nil
	}
	b.closed = true
	root := b.result()
	if root == nil {
		return nil
	}
	docID := uuid.NewString()
	ord := 0
	var number func(*node)
	number = func(n *node) {
		n.docID = docID
		n.ordinal = ord
		ord++
		for _, a := range n.attrs {
			a.docID = docID
			a.ordinal = ord
			ord++
		}
		for _, ch := range n.children {
			number(ch)
		}
	}
	number(root)
	return nil
}

func (b *Builder) result() *node {
	if b.root != nil {
		return b.root
	}
	return b.orphan
}

// Result returns the built root node.
func (b *Builder) Result() (types.Item, error) {
	root := b.result()
	if root == nil {
		return nil, types.NewDynamicError(types.ErrContentTypeMismatch,
			"builder closed without receiving any content")
	}
	return root, nil
}

// copyNode deep-copies a node subtree for grafting.
func copyNode(src types.Node) *node {
	dst := &node{
		kind:    src.NodeKind(),
		name:    src.Name(),
		baseURI: src.BaseURI(),
	}
	switch src.NodeKind() {
	case types.KindDocument, types.KindElement:
		for _, a := range src.AttributeNodes() {
			ac := copyNode(a)
			ac.parent = dst
			dst.attrs = append(dst.attrs, ac)
		}
		for _, ch := range src.ChildNodes() {
			cc := copyNode(ch)
			cc.parent = dst
			dst.children = append(dst.children, cc)
		}
	default:
		dst.value = src.StringValue()
	}
	return dst
}
