// Package tree provides a minimal immutable linked tree implementing
// the engine's node contract, a push-mode Builder constructing trees
// from receiver events, and a YAML document loader.
//
// Trees are frozen once their builder closes: document identity and
// document-order ordinals are assigned at that point and never change,
// so nodes may be shared freely between concurrent evaluations.
package tree

import (
	"strings"

	"github.com/perrin-dev/sequoia/pkg/iter"
	"github.com/perrin-dev/sequoia/pkg/types"
)

// node is the single concrete type behind every node kind.
type node struct {
	kind     types.NodeKind
	name     types.QNameValue
	value    string
	parent   *node
	children []*node
	attrs    []*node
	baseURI  string
	docID    string
	ordinal  int
}

var _ types.Node = (*node)(nil)

func (n *node) NodeKind() types.NodeKind { return n.kind }
func (n *node) Name() types.QNameValue { return n.name }
func (n *node) BaseURI() string { return n.baseURI }
func (n *node) DocumentID() string { return n.docID }
func (n *node) Ordinal() int { return n.ordinal }

func (n *node) Parent() types.Node {
	if n.parent == nil {
		return nil
	}
	return n.parent
}

func (n *node) ChildNodes() []types.Node {
	out := make([]types.Node, len(n.children))
	for i, ch := range n.children {
		out[i] = ch
	}
	return out
}

func (n *node) AttributeNodes() []types.Node {
	out := make([]types.Node, len(n.attrs))
	for i, a := range n.attrs {
		out[i] = a
	}
	return out
}

func (n *node) IsSame(o types.Node) bool {
	other, ok := o.(*node)
	return ok && other == n
}

// StringValue is the concatenated text of the subtree for documents and
// elements, and the node's own value otherwise.
func (n *node) StringValue() string {
	switch n.kind {
	case types.KindDocument, types.KindElement:
		var sb strings.Builder
		n.appendText(&sb)
		return sb.String()
	}
	return n.value
}

func (n *node) appendText(sb *strings.Builder) {
	if n.kind == types.KindText {
		sb.WriteString(n.value)
		return
	}
	for _, ch := range n.children {
		ch.appendText(sb)
	}
}

// Children returns the node's children as a sequence.
func Children(n types.Node) iter.SequenceIterator {
	kids := n.ChildNodes()
	items := make([]types.Item, len(kids))
	for i, k := range kids {
		items[i] = k
	}
	return iter.FromSlice(items)
}

// Descendants returns the subtree below n in document order.
func Descendants(n types.Node) iter.SequenceIterator {
	var items []types.Item
	var walk func(types.Node)
	walk = func(cur types.Node) {
		for _, ch := range cur.ChildNodes() {
			items = append(items, ch)
			walk(ch)
		}
	}
	walk(n)
	return iter.FromSlice(items)
}

// Ancestors returns the ancestors of n, nearest first.
func Ancestors(n types.Node) iter.SequenceIterator {
	var items []types.Item
	for p := n.Parent(); p != nil; p = p.Parent() {
		items = append(items, p)
	}
	return iter.FromSlice(items)
}

// FollowingSiblings returns n's later siblings in document order.
func FollowingSiblings(n types.Node) iter.SequenceIterator {
	var items []types.Item
	p := n.Parent()
	if p == nil {
		return iter.Empty()
	}
	seen := false
	for _, sib := range p.ChildNodes() {
		if seen {
			items = append(items, sib)
		} else if sib.IsSame(n) {
			seen = true
		}
	}
	return iter.FromSlice(items)
}
