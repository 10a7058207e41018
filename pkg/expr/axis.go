package expr

import (
	"io"

	"github.com/perrin-dev/sequoia/pkg/iter"
	"github.com/perrin-dev/sequoia/pkg/types"
)

// Axis identifies a tree navigation direction from a context node.
type Axis int

const (
	AxisChild Axis = iota
	AxisAttribute
	AxisSelf
	AxisParent
	AxisDescendant
	AxisDescendantOrSelf
	AxisAncestor
	AxisAncestorOrSelf
	AxisFollowingSibling
	AxisPrecedingSibling
	AxisFollowing
	AxisPreceding
)

var axisNames = map[Axis]string{
	AxisChild:            "child",
	AxisAttribute:        "attribute",
	AxisSelf:             "self",
	AxisParent:           "parent",
	AxisDescendant:       "descendant",
	AxisDescendantOrSelf: "descendant-or-self",
	AxisAncestor:         "ancestor",
	AxisAncestorOrSelf:   "ancestor-or-self",
	AxisFollowingSibling: "following-sibling",
	AxisPrecedingSibling: "preceding-sibling",
	AxisFollowing:        "following",
	AxisPreceding:        "preceding",
}

func (a Axis) String() string { return axisNames[a] }

// IsReverse reports whether the axis delivers nodes in reverse document
// order (nearest origin first).
func (a Axis) IsReverse() bool {
	switch a {
	case AxisParent, AxisAncestor, AxisAncestorOrSelf, AxisPrecedingSibling, AxisPreceding:
		return true
	}
	return false
}

// NodeTest filters the nodes delivered by an axis step.
type NodeTest interface {
	Matches(n types.Node) bool
	// Kind returns the node kind the test is restricted to, or -1 when
	// it admits any kind.
	Kind() types.NodeKind
	String() string
}

// AnyNodeTest matches every node.
type AnyNodeTest struct{}

func (AnyNodeTest) Matches(types.Node) bool { return true }
func (AnyNodeTest) Kind() types.NodeKind { return -1 }
func (AnyNodeTest) String() string { return "node()" }

// KindTest matches nodes of one kind regardless of name.
type KindTest struct{ NodeKind types.NodeKind }

func (t KindTest) Matches(n types.Node) bool { return n.NodeKind() == t.NodeKind }
func (t KindTest) Kind() types.NodeKind { return t.NodeKind }
func (t KindTest) String() string { return t.NodeKind.String() + "()" }

// NameTest matches nodes of one kind with a given expanded name.
// Comparison uses namespace URI and local name; the prefix is lexical
// sugar and does not participate.
type NameTest struct {
	NodeKind types.NodeKind
	Name     types.QNameValue
}

func (t NameTest) Matches(n types.Node) bool {
	if n.NodeKind() != t.NodeKind {
		return false
	}
	name := n.Name()
	return name.URI == t.Name.URI && name.Local == t.Name.Local
}

func (t NameTest) Kind() types.NodeKind { return t.NodeKind }
func (t NameTest) String() string { return t.Name.ClarkName() }

// AxisExpression is one navigation step: all nodes reachable from the
// context item along an axis that satisfy a node test, delivered in
// axis order. Applying a step to an atomic context item is an error,
// not an empty result.
type AxisExpression struct {
	baseExpr
	axis Axis
	test NodeTest
}

func NewAxisExpression(axis Axis, test NodeTest) *AxisExpression {
	if test == nil {
		test = AnyNodeTest{}
	}
	return &AxisExpression{axis: axis, test: test}
}

func (a *AxisExpression) Axis() Axis { return a.axis }

func (a *AxisExpression) Simplify() (Expression, error) { return a, nil }

func (a *AxisExpression) TypeCheck(sc *StaticContext) (Expression, error) { return a, nil }

func (a *AxisExpression) Optimize(sc *StaticContext) (Expression, error) { return a, nil }

func (a *AxisExpression) ItemType() types.ItemType {
	if k := a.test.Kind(); k >= 0 {
		return types.NodeKindType(k)
	}
	return types.AnyNodeType
}

func (a *AxisExpression) Cardinality() types.Cardinality {
	switch a.axis {
	case AxisSelf, AxisParent:
		return types.CardZeroOrOne
	}
	return types.CardZeroOrMore
}

func (a *AxisExpression) Dependencies() Dependency { return DepContextItem }
func (a *AxisExpression) Children() []Expression { return nil }

func (a *AxisExpression) Iterate(c *Context) (iter.SequenceIterator, error) {
	item, err := c.ContextItem()
	if err != nil {
		return nil, withLoc(err, a)
	}
	origin, ok := item.(types.Node)
	if !ok {
		return nil, types.NewTypeError(types.ErrAxisOnAtomic,
			"the "+a.axis.String()+" axis cannot start from an atomic value").WithLocation(a.loc)
	}
	var out []types.Item
	walkAxis(a.axis, origin, func(n types.Node) {
		if a.test.Matches(n) {
			out = append(out, n)
		}
	})
	return iter.FromSlice(out), nil
}

func (a *AxisExpression) Process(c *Context) error { return processViaIterate(a, c) }

func (a *AxisExpression) EvaluateItem(c *Context) (types.Item, error) {
	return itemViaIterate(a, c)
}

func (a *AxisExpression) Explain(w io.Writer, depth int) {
	explainf(w, depth, "step %s::%s", a.axis, a.test)
}

// walkAxis visits each node on the axis from origin, in axis order.
func walkAxis(axis Axis, origin types.Node, visit func(types.Node)) {
	switch axis {
	case AxisChild:
		for _, ch := range origin.ChildNodes() {
			visit(ch)
		}
	case AxisAttribute:
		for _, at := range origin.AttributeNodes() {
			visit(at)
		}
	case AxisSelf:
		visit(origin)
	case AxisParent:
		if p := origin.Parent(); p != nil {
			visit(p)
		}
	case AxisDescendant:
		for _, ch := range origin.ChildNodes() {
			visitSubtree(ch, visit)
		}
	case AxisDescendantOrSelf:
		visitSubtree(origin, visit)
	case AxisAncestor:
		for p := origin.Parent(); p != nil; p = p.Parent() {
			visit(p)
		}
	case AxisAncestorOrSelf:
		for p := origin; p != nil; p = p.Parent() {
			visit(p)
		}
	case AxisFollowingSibling:
		before := true
		for _, sib := range siblings(origin) {
			if before {
				before = !sib.IsSame(origin)
				continue
			}
			visit(sib)
		}
	case AxisPrecedingSibling:
		sibs := siblings(origin)
		idx := indexOfNode(sibs, origin)
		for i := idx - 1; i >= 0; i-- {
			visit(sibs[i])
		}
	case AxisFollowing:
		// Nodes after origin in document order, minus its descendants:
		// the subtrees of the following siblings of origin and of each
		// of its ancestors.
		for p := origin; p != nil; p = p.Parent() {
			sibs := siblings(p)
			idx := indexOfNode(sibs, p)
			if idx < 0 {
				continue
			}
			for i := idx + 1; i < len(sibs); i++ {
				visitSubtree(sibs[i], visit)
			}
		}
	case AxisPreceding:
		// Nodes before origin in document order, minus its ancestors,
		// nearest first.
		for p := origin; p != nil; p = p.Parent() {
			sibs := siblings(p)
			for i := indexOfNode(sibs, p) - 1; i >= 0; i-- {
				visitSubtreeReverse(sibs[i], visit)
			}
		}
	}
}

func visitSubtree(n types.Node, visit func(types.Node)) {
	visit(n)
	for _, ch := range n.ChildNodes() {
		visitSubtree(ch, visit)
	}
}

func visitSubtreeReverse(n types.Node, visit func(types.Node)) {
	children := n.ChildNodes()
	for i := len(children) - 1; i >= 0; i-- {
		visitSubtreeReverse(children[i], visit)
	}
	visit(n)
}

func siblings(n types.Node) []types.Node {
	p := n.Parent()
	if p == nil {
		return []types.Node{n}
	}
	if n.NodeKind() == types.KindAttribute {
		return p.AttributeNodes()
	}
	return p.ChildNodes()
}

func indexOfNode(nodes []types.Node, n types.Node) int {
	for i, cand := range nodes {
		if cand.IsSame(n) {
			return i
		}
	}
	return -1
}
