package types

// NodeKind identifies the kind of a tree node.
type NodeKind int

const (
	KindDocument NodeKind = iota
	KindElement
	KindAttribute
	KindText
	KindComment
	KindProcessingInstruction
	KindNamespace
)

var nodeKindNames = map[NodeKind]string{
	KindDocument:              "document",
	KindElement:               "element",
	KindAttribute:             "attribute",
	KindText:                  "text",
	KindComment:               "comment",
	KindProcessingInstruction: "processing-instruction",
	KindNamespace:             "namespace",
}

func (k NodeKind) String() string {
	if s, ok := nodeKindNames[k]; ok {
		return s
	}
	return "node"
}

// Node is the read-only contract the evaluator requires from a tree
// position. Concrete tree layouts live outside the engine; pkg/tree
// provides a minimal linked implementation.
//
// Nodes are immutable: every method may be called concurrently.
type Node interface {
	Item

	// NodeKind returns the kind of the node.
	NodeKind() NodeKind

	// Name returns the node's expanded name. Text, comment and document
	// nodes return the zero QNameValue.
	Name() QNameValue

	// Parent returns the parent node, or nil for a root.
	Parent() Node

	// ChildNodes returns the children in document order. Only document
	// and element nodes have children.
	ChildNodes() []Node

	// AttributeNodes returns the attribute nodes of an element.
	AttributeNodes() []Node

	// BaseURI returns the base URI of the node.
	BaseURI() string

	// DocumentID identifies the containing document. Two nodes are in
	// the same document iff their DocumentIDs are equal.
	DocumentID() string

	// Ordinal returns the node's position in the depth-first pre-order
	// traversal of its document. Attribute and namespace nodes order
	// after their owner element and before its first child.
	Ordinal() int

	// IsSame reports node identity (same node in the same tree).
	IsSame(Node) bool
}

// NamespaceResolver resolves a lexical prefix to a namespace URI. Cast
// expressions with namespace-sensitive targets capture one at compile
// time, because the lexical scope is gone by evaluation time.
type NamespaceResolver interface {
	// ResolvePrefix returns the URI bound to prefix, and whether any
	// binding exists. The empty prefix resolves the default namespace.
	ResolvePrefix(prefix string) (string, bool)
}

// XMLNamespaceURI is the reserved namespace bound to the "xml" prefix.
// It is implicitly in scope everywhere and is never redeclared.
const XMLNamespaceURI = "http://www.w3.org/XML/1998/namespace"

// DocOrderCompare orders two nodes in global document order: nodes in
// the same document compare by Ordinal; nodes in different documents
// compare by DocumentID, giving an arbitrary but stable interleaving.
func DocOrderCompare(a, b Node) int {
	if da, db := a.DocumentID(), b.DocumentID(); da != db {
		if da < db {
			return -1
		}
		return 1
	}
	switch oa, ob := a.Ordinal(), b.Ordinal(); {
	case oa < ob:
		return -1
	case oa > ob:
		return 1
	}
	return 0
}
