package expr

import (
	"io"
	"strings"

	"github.com/perrin-dev/sequoia/pkg/iter"
	"github.com/perrin-dev/sequoia/pkg/push"
	"github.com/perrin-dev/sequoia/pkg/types"
)

// ElementConstructor emits a new element: start tag, literal namespace
// bindings, attribute constructors, then its content in push mode.
//
// In pull mode the constructor runs its own push pipeline into a fresh
// tree builder and yields the built node, so both protocols share one
// event stream shape.
type ElementConstructor struct {
	baseExpr
	name       types.QNameValue
	namespaces []NamespaceBinding
	attributes []*AttributeConstructor
	content    Expression
	disinherit bool
}

// NamespaceBinding is one literal prefix binding on a constructed
// element.
type NamespaceBinding struct {
	Prefix string
	URI    string
}

func NewElement(name types.QNameValue, namespaces []NamespaceBinding, attributes []*AttributeConstructor, content Expression) *ElementConstructor {
	if content == nil {
		content = NewEmptyLiteral()
	}
	return &ElementConstructor{name: name, namespaces: namespaces, attributes: attributes, content: content}
}

// SetDisinherit marks the element as not passing its namespace context
// to its children.
func (e *ElementConstructor) SetDisinherit(v bool) { e.disinherit = v }

func (e *ElementConstructor) Simplify() (Expression, error) {
	var err error
	for _, a := range e.attributes {
		if _, err = a.Simplify(); err != nil {
			return nil, err
		}
	}
	if e.content, err = e.content.Simplify(); err != nil {
		return nil, err
	}
	return e, nil
}

func (e *ElementConstructor) TypeCheck(sc *StaticContext) (Expression, error) {
	var err error
	for _, a := range e.attributes {
		if _, err = a.TypeCheck(sc); err != nil {
			return nil, err
		}
	}
	if e.content, err = e.content.TypeCheck(sc); err != nil {
		return nil, err
	}
	return e, nil
}

func (e *ElementConstructor) Optimize(sc *StaticContext) (Expression, error) {
	var err error
	for _, a := range e.attributes {
		if _, err = a.Optimize(sc); err != nil {
			return nil, err
		}
	}
	if e.content, err = e.content.Optimize(sc); err != nil {
		return nil, err
	}
	return e, nil
}

func (e *ElementConstructor) ItemType() types.ItemType {
	return types.NamedNodeType(types.KindElement, e.name)
}

func (e *ElementConstructor) Cardinality() types.Cardinality { return types.CardExactlyOne }

func (e *ElementConstructor) Dependencies() Dependency {
	d := DepOutput | e.content.Dependencies()
	for _, a := range e.attributes {
		d |= a.Dependencies()
	}
	return d
}

func (e *ElementConstructor) Children() []Expression {
	out := make([]Expression, 0, len(e.attributes)+1)
	for _, a := range e.attributes {
		out = append(out, a)
	}
	return append(out, e.content)
}

func (e *ElementConstructor) Process(c *Context) error {
	r := c.Receiver()
	var props push.ElementProperties
	if e.disinherit {
		props |= push.DisinheritNamespaces
	}
	if err := r.StartElement(e.name, props); err != nil {
		return withLoc(err, e)
	}
	if e.name.URI != "" {
		if err := r.Namespace(e.name.Prefix, e.name.URI); err != nil {
			return withLoc(err, e)
		}
	}
	for _, ns := range e.namespaces {
		if err := r.Namespace(ns.Prefix, ns.URI); err != nil {
			return withLoc(err, e)
		}
	}
	for _, a := range e.attributes {
		if err := a.Process(c); err != nil {
			return err
		}
	}
	if err := r.StartContent(); err != nil {
		return withLoc(err, e)
	}
	if err := e.content.Process(c); err != nil {
		return err
	}
	return withLoc(r.EndElement(), e)
}

func (e *ElementConstructor) EvaluateItem(c *Context) (types.Item, error) {
	return buildNode(e, c)
}

func (e *ElementConstructor) Iterate(c *Context) (iter.SequenceIterator, error) {
	return iterateViaItem(e, c)
}

func (e *ElementConstructor) Explain(w io.Writer, depth int) {
	explainf(w, depth, "element %s", e.name.ClarkName())
	for _, a := range e.attributes {
		a.Explain(w, depth+1)
	}
	e.content.Explain(w, depth+1)
}

// buildNode runs a constructor's push protocol into a fresh builder
// behind a namespace dedup stage and returns the built node.
func buildNode(e Expression, c *Context) (types.Item, error) {
	builder, err := c.NewBuilder()
	if err != nil {
		return nil, withLoc(err, e)
	}
	head := push.NewNamespaceReducer(builder)
	if err := head.Open(); err != nil {
		return nil, withLoc(err, e)
	}
	if err := e.Process(c.WithReceiver(head)); err != nil {
		return nil, err
	}
	if err := head.Close(); err != nil {
		return nil, withLoc(err, e)
	}
	item, err := builder.Result()
	if err != nil {
		return nil, withLoc(err, e)
	}
	return item, nil
}

// AttributeConstructor emits one attribute. Its value is the atomized
// content joined with single spaces.
type AttributeConstructor struct {
	baseExpr
	name  types.QNameValue
	value Expression
}

func NewAttribute(name types.QNameValue, value Expression) *AttributeConstructor {
	return &AttributeConstructor{name: name, value: value}
}

func (a *AttributeConstructor) Simplify() (Expression, error) {
	var err error
	if a.value, err = a.value.Simplify(); err != nil {
		return nil, err
	}
	return a, nil
}

func (a *AttributeConstructor) TypeCheck(sc *StaticContext) (Expression, error) {
	var err error
	if a.value, err = a.value.TypeCheck(sc); err != nil {
		return nil, err
	}
	return a, nil
}

func (a *AttributeConstructor) Optimize(sc *StaticContext) (Expression, error) {
	var err error
	if a.value, err = a.value.Optimize(sc); err != nil {
		return nil, err
	}
	return a, nil
}

func (a *AttributeConstructor) ItemType() types.ItemType {
	return types.NamedNodeType(types.KindAttribute, a.name)
}

func (a *AttributeConstructor) Cardinality() types.Cardinality { return types.CardExactlyOne }

func (a *AttributeConstructor) Dependencies() Dependency {
	return DepOutput | a.value.Dependencies()
}

func (a *AttributeConstructor) Children() []Expression { return []Expression{a.value} }

func (a *AttributeConstructor) stringValue(c *Context) (string, error) {
	items, err := evaluate(a.value, c)
	if err != nil {
		return "", err
	}
	parts := make([]string, len(items))
	for i, it := range items {
		parts[i] = types.Atomize(it).StringValue()
	}
	return strings.Join(parts, " "), nil
}

func (a *AttributeConstructor) Process(c *Context) error {
	v, err := a.stringValue(c)
	if err != nil {
		return err
	}
	return withLoc(c.Receiver().Attribute(a.name, v), a)
}

func (a *AttributeConstructor) EvaluateItem(c *Context) (types.Item, error) {
	return buildNode(a, c)
}

func (a *AttributeConstructor) Iterate(c *Context) (iter.SequenceIterator, error) {
	return iterateViaItem(a, c)
}

func (a *AttributeConstructor) Explain(w io.Writer, depth int) {
	explainf(w, depth, "attribute %s", a.name.ClarkName())
	a.value.Explain(w, depth+1)
}

// TextConstructor emits a text node whose value is the string values of
// its content, space-joined.
type TextConstructor struct {
	baseExpr
	value Expression
}

func NewText(value Expression) *TextConstructor {
	return &TextConstructor{value: value}
}

func (t *TextConstructor) Simplify() (Expression, error) {
	var err error
	if t.value, err = t.value.Simplify(); err != nil {
		return nil, err
	}
	return t, nil
}

func (t *TextConstructor) TypeCheck(sc *StaticContext) (Expression, error) {
	var err error
	if t.value, err = t.value.TypeCheck(sc); err != nil {
		return nil, err
	}
	return t, nil
}

func (t *TextConstructor) Optimize(sc *StaticContext) (Expression, error) {
	var err error
	if t.value, err = t.value.Optimize(sc); err != nil {
		return nil, err
	}
	return t, nil
}

func (t *TextConstructor) ItemType() types.ItemType {
	return types.NodeKindType(types.KindText)
}

func (t *TextConstructor) Cardinality() types.Cardinality { return types.CardExactlyOne }

func (t *TextConstructor) Dependencies() Dependency {
	return DepOutput | t.value.Dependencies()
}

func (t *TextConstructor) Children() []Expression { return []Expression{t.value} }

func (t *TextConstructor) Process(c *Context) error {
	items, err := evaluate(t.value, c)
	if err != nil {
		return err
	}
	parts := make([]string, len(items))
	for i, it := range items {
		parts[i] = types.Atomize(it).StringValue()
	}
	return withLoc(c.Receiver().Characters(strings.Join(parts, " ")), t)
}

func (t *TextConstructor) EvaluateItem(c *Context) (types.Item, error) {
	return buildNode(t, c)
}

func (t *TextConstructor) Iterate(c *Context) (iter.SequenceIterator, error) {
	return iterateViaItem(t, c)
}

func (t *TextConstructor) Explain(w io.Writer, depth int) {
	explainf(w, depth, "text")
	t.value.Explain(w, depth+1)
}
