package tree

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/perrin-dev/sequoia/pkg/iter"
	"github.com/perrin-dev/sequoia/pkg/types"
)

func buildDoc(t *testing.T) types.Node {
	t.Helper()
	b := NewBuilder()
	require.NoError(t, b.Open())
	require.NoError(t, b.StartDocument())
	require.NoError(t, b.StartElement(types.QNameValue{Local: "order"}, 0))
	require.NoError(t, b.Attribute(types.QNameValue{Local: "id"}, "42"))
	require.NoError(t, b.StartContent())
	require.NoError(t, b.StartElement(types.QNameValue{Local: "item"}, 0))
	require.NoError(t, b.StartContent())
	require.NoError(t, b.Characters("wid"))
	require.NoError(t, b.Characters("get"))
	require.NoError(t, b.EndElement())
	require.NoError(t, b.StartElement(types.QNameValue{Local: "item"}, 0))
	require.NoError(t, b.StartContent())
	require.NoError(t, b.Characters("gadget"))
	require.NoError(t, b.EndElement())
	require.NoError(t, b.EndElement())
	require.NoError(t, b.EndDocument())
	require.NoError(t, b.Close())
	item, err := b.Result()
	require.NoError(t, err)
	return item.(types.Node)
}

func TestBuilderShape(t *testing.T) {
	doc := buildDoc(t)
	require.Equal(t, types.KindDocument, doc.NodeKind())

	order := doc.ChildNodes()[0]
	assert.Equal(t, "order", order.Name().Local)
	require.Len(t, order.AttributeNodes(), 1)
	assert.Equal(t, "42", order.AttributeNodes()[0].StringValue())

	items := order.ChildNodes()
	require.Len(t, items, 2)
	// Adjacent Characters events merged into one text node.
	require.Len(t, items[0].ChildNodes(), 1)
	assert.Equal(t, "widget", items[0].StringValue())
	assert.Equal(t, "gadget", items[1].StringValue())
	assert.Equal(t, "widgetgadget", doc.StringValue())
}

func TestDocumentOrderNumbering(t *testing.T) {
	doc := buildDoc(t)
	order := doc.ChildNodes()[0]
	attr := order.AttributeNodes()[0]
	first := order.ChildNodes()[0]

	assert.Equal(t, doc.DocumentID(), attr.DocumentID())
	// Attributes order after their element and before its first child.
	assert.Less(t, order.Ordinal(), attr.Ordinal())
	assert.Less(t, attr.Ordinal(), first.Ordinal())
	assert.Negative(t, types.DocOrderCompare(order, first))
}

func TestSeparateDocumentsHaveDistinctIdentity(t *testing.T) {
	a := buildDoc(t)
	b := buildDoc(t)
	assert.NotEqual(t, a.DocumentID(), b.DocumentID())
	assert.False(t, a.IsSame(b))
	assert.True(t, a.IsSame(a))
}

func TestOrphanAttribute(t *testing.T) {
	b := NewBuilder()
	require.NoError(t, b.Attribute(types.QNameValue{Local: "lang"}, "en"))
	require.NoError(t, b.Close())
	item, err := b.Result()
	require.NoError(t, err)
	n := item.(types.Node)
	assert.Equal(t, types.KindAttribute, n.NodeKind())
	assert.Equal(t, "en", n.StringValue())
	assert.Nil(t, n.Parent())
}

func TestAppendGraftCopies(t *testing.T) {
	src := buildDoc(t)
	item0 := src.ChildNodes()[0].ChildNodes()[0]

	b := NewBuilder()
	require.NoError(t, b.StartElement(types.QNameValue{Local: "copy"}, 0))
	require.NoError(t, b.StartContent())
	require.NoError(t, b.Append(item0))
	require.NoError(t, b.Append(types.IntegerValue(7)))
	require.NoError(t, b.EndElement())
	require.NoError(t, b.Close())

	res, err := b.Result()
	require.NoError(t, err)
	root := res.(types.Node)
	grafted := root.ChildNodes()[0]
	assert.Equal(t, "item", grafted.Name().Local)
	assert.False(t, grafted.IsSame(item0))
	assert.NotEqual(t, grafted.DocumentID(), item0.DocumentID())
	assert.Equal(t, "widget7", root.StringValue())
}

func TestUnbalancedEndEvents(t *testing.T) {
	b := NewBuilder()
	err := b.EndElement()
	require.Error(t, err)
	assert.Equal(t, types.ErrContentTypeMismatch, types.AsEngineError(err).Code)

	require.NoError(t, b.StartElement(types.QNameValue{Local: "a"}, 0))
	require.NoError(t, b.StartContent())
	require.NoError(t, b.EndElement())
	err = b.EndDocument()
	require.Error(t, err)
	assert.Equal(t, types.ErrContentTypeMismatch, types.AsEngineError(err).Code)
}

func TestResultWithoutContent(t *testing.T) {
	b := NewBuilder()
	require.NoError(t, b.Close())
	_, err := b.Result()
	require.Error(t, err)
	assert.Equal(t, types.ErrContentTypeMismatch, types.AsEngineError(err).Code)
}

func TestLoadYAML(t *testing.T) {
	data := []byte(`
name: north
items:
  - sku: a1
  - sku: b2
`)
	doc, err := LoadYAML(data, "region")
	require.NoError(t, err)

	region := doc.ChildNodes()[0]
	assert.Equal(t, "region", region.Name().Local)

	kids := region.ChildNodes()
	require.Len(t, kids, 3)
	// Key order of the yaml document is preserved.
	assert.Equal(t, "name", kids[0].Name().Local)
	assert.Equal(t, "north", kids[0].StringValue())
	assert.Equal(t, "items", kids[1].Name().Local)
	assert.Equal(t, "items", kids[2].Name().Local)
	assert.Equal(t, "a1", kids[1].StringValue())
}

func TestLoadYAMLInvalid(t *testing.T) {
	_, err := LoadYAML([]byte(":\n  - ]["), "x")
	require.Error(t, err)
	assert.Equal(t, types.ErrSyntax, types.AsEngineError(err).Code)
}

func TestAxisHelpers(t *testing.T) {
	doc := buildDoc(t)
	order := doc.ChildNodes()[0]
	first := order.ChildNodes()[0]
	second := order.ChildNodes()[1]

	kids, err := iter.Drain(Children(order))
	require.NoError(t, err)
	assert.Len(t, kids, 2)

	desc, err := iter.Drain(Descendants(doc))
	require.NoError(t, err)
	// order, two items, two text nodes.
	assert.Len(t, desc, 5)

	anc, err := iter.Drain(Ancestors(first))
	require.NoError(t, err)
	require.Len(t, anc, 2)
	assert.True(t, anc[0].(types.Node).IsSame(order))

	foll, err := iter.Drain(FollowingSiblings(first))
	require.NoError(t, err)
	require.Len(t, foll, 1)
	assert.True(t, foll[0].(types.Node).IsSame(second))
}
