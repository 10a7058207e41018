package push

import "github.com/perrin-dev/sequoia/pkg/types"

// nsBinding is one in-scope (prefix, uri) pair.
type nsBinding struct {
	prefix string
	uri    string
}

// NamespaceReducer drops redundant namespace declarations and manages
// prefix undeclaration for elements that do not inherit their parent's
// namespace context.
//
// It keeps an explicit stack of in-scope bindings plus a parallel stack
// counting how many bindings each open element contributed, so exactly
// those bindings are popped when the element closes.
type NamespaceReducer struct {
	ProxyReceiver
	inScope []nsBinding
	// counts[i] is the number of bindings pushed by the i-th currently
	// open element.
	counts []int
	// pending holds prefixes queued for undeclaration at the start of
	// the current element's content.
	pending []string
}

// NewNamespaceReducer chains a reducer in front of next.
func NewNamespaceReducer(next Receiver) *NamespaceReducer {
	return &NamespaceReducer{ProxyReceiver: ProxyReceiver{Next: next}}
}

func (n *NamespaceReducer) StartElement(name types.QNameValue, props ElementProperties) error {
	if err := n.Next.StartElement(name, props); err != nil {
		return err
	}
	n.counts = append(n.counts, 0)
	n.pending = n.pending[:0]
	if props&DisinheritNamespaces != 0 {
		// Queue every in-scope binding for undeclaration; an explicit
		// redeclaration before StartContent cancels it.
		seen := make(map[string]bool, len(n.inScope))
		for i := len(n.inScope) - 1; i >= 0; i-- {
			b := n.inScope[i]
			if seen[b.prefix] {
				continue
			}
			seen[b.prefix] = true
			if b.uri != "" {
				n.pending = append(n.pending, b.prefix)
			}
		}
	}
	return nil
}

func (n *NamespaceReducer) Namespace(prefix, uri string) error {
	if uri == types.XMLNamespaceURI || prefix == "xml" {
		// The reserved XML namespace is implicit everywhere.
		return nil
	}

	// An explicit declaration cancels a pending undeclaration for the
	// same prefix.
	for i, p := range n.pending {
		if p == prefix {
			n.pending = append(n.pending[:i], n.pending[i+1:]...)
			break
		}
	}

	// Scan most-recently-pushed first: an identical binding in scope is
	// redundant; the same prefix bound elsewhere makes this a needed
	// rebinding.
	needed := true
	for i := len(n.inScope) - 1; i >= 0; i-- {
		b := n.inScope[i]
		if b.prefix != prefix {
			continue
		}
		if b.uri == uri {
			needed = false
		}
		break
	}
	if needed && prefix == "" && uri == "" {
		// xmlns="" with no default namespace in scope is a no-op.
		needed = n.defaultNamespaceInScope()
	}
	if !needed {
		return nil
	}

	n.push(prefix, uri)
	return n.Next.Namespace(prefix, uri)
}

func (n *NamespaceReducer) StartContent() error {
	// Emit the surviving undeclarations before any content.
	for _, prefix := range n.pending {
		n.push(prefix, "")
		if err := n.Next.Namespace(prefix, ""); err != nil {
			return err
		}
	}
	n.pending = n.pending[:0]
	return n.Next.StartContent()
}

func (n *NamespaceReducer) EndElement() error {
	if len(n.counts) > 0 {
		pop := n.counts[len(n.counts)-1]
		n.counts = n.counts[:len(n.counts)-1]
		n.inScope = n.inScope[:len(n.inScope)-pop]
	}
	return n.Next.EndElement()
}

func (n *NamespaceReducer) push(prefix, uri string) {
	n.inScope = append(n.inScope, nsBinding{prefix: prefix, uri: uri})
	if len(n.counts) > 0 {
		n.counts[len(n.counts)-1]++
	}
}

// defaultNamespaceInScope reports whether an unempty default namespace
// is currently bound.
func (n *NamespaceReducer) defaultNamespaceInScope() bool {
	for i := len(n.inScope) - 1; i >= 0; i-- {
		if n.inScope[i].prefix == "" {
			return n.inScope[i].uri != ""
		}
	}
	return false
}
