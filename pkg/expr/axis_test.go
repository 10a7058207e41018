package expr

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/perrin-dev/sequoia/pkg/iter"
	"github.com/perrin-dev/sequoia/pkg/tree"
	"github.com/perrin-dev/sequoia/pkg/types"
)

// invoiceDoc builds
//
//	<invoice id="9">
//	  <line>alpha</line>
//	  <line>beta</line>
//	  <total>12</total>
//	</invoice>
//
// and returns the document node.
func invoiceDoc(t *testing.T) types.Node {
	t.Helper()
	b := tree.NewBuilder()
	require.NoError(t, b.Open())
	require.NoError(t, b.StartDocument())
	require.NoError(t, b.StartElement(types.QNameValue{Local: "invoice"}, 0))
	require.NoError(t, b.Attribute(types.QNameValue{Local: "id"}, "9"))
	require.NoError(t, b.StartContent())
	for _, tc := range []struct{ name, text string }{
		{"line", "alpha"}, {"line", "beta"}, {"total", "12"},
	} {
		require.NoError(t, b.StartElement(types.QNameValue{Local: tc.name}, 0))
		require.NoError(t, b.StartContent())
		require.NoError(t, b.Characters(tc.text))
		require.NoError(t, b.EndElement())
	}
	require.NoError(t, b.EndElement())
	require.NoError(t, b.EndDocument())
	require.NoError(t, b.Close())
	item, err := b.Result()
	require.NoError(t, err)
	return item.(types.Node)
}

func stepFrom(t *testing.T, origin types.Item, axis Axis, test NodeTest) []types.Item {
	t.Helper()
	c := NewContext(0, WithContextItem(origin))
	items, err := evaluate(NewAxisExpression(axis, test), c)
	require.NoError(t, err)
	return items
}

func names(items []types.Item) []string {
	var out []string
	for _, it := range items {
		if n, ok := it.(types.Node); ok && n.Name().Local != "" {
			out = append(out, n.Name().Local)
			continue
		}
		out = append(out, it.StringValue())
	}
	return out
}

func TestChildAxis(t *testing.T) {
	doc := invoiceDoc(t)
	invoice := stepFrom(t, doc, AxisChild, nil)[0].(types.Node)

	all := stepFrom(t, invoice, AxisChild, KindTest{NodeKind: types.KindElement})
	assert.Equal(t, []string{"line", "line", "total"}, names(all))

	lines := stepFrom(t, invoice, AxisChild,
		NameTest{NodeKind: types.KindElement, Name: types.QNameValue{Local: "line"}})
	require.Len(t, lines, 2)
	assert.Equal(t, "alpha", lines[0].StringValue())
}

func TestAttributeAxis(t *testing.T) {
	doc := invoiceDoc(t)
	invoice := stepFrom(t, doc, AxisChild, nil)[0]

	attrs := stepFrom(t, invoice, AxisAttribute, nil)
	require.Len(t, attrs, 1)
	assert.Equal(t, "9", attrs[0].StringValue())

	// The child axis never yields attributes.
	kids := stepFrom(t, invoice, AxisChild, nil)
	for _, k := range kids {
		assert.NotEqual(t, types.KindAttribute, k.(types.Node).NodeKind())
	}
}

func TestAncestorAndSelfAxes(t *testing.T) {
	doc := invoiceDoc(t)
	invoice := stepFrom(t, doc, AxisChild, nil)[0]
	line := stepFrom(t, invoice, AxisChild, nil)[0]

	// Ancestors come nearest-first.
	anc := stepFrom(t, line, AxisAncestor, nil)
	require.Len(t, anc, 2)
	assert.Equal(t, "invoice", anc[0].(types.Node).Name().Local)
	assert.Equal(t, types.KindDocument, anc[1].(types.Node).NodeKind())

	self := stepFrom(t, line, AxisSelf, nil)
	require.Len(t, self, 1)
	assert.True(t, self[0].(types.Node).IsSame(line.(types.Node)))
}

func TestSiblingAxes(t *testing.T) {
	doc := invoiceDoc(t)
	invoice := stepFrom(t, doc, AxisChild, nil)[0]
	kids := stepFrom(t, invoice, AxisChild, nil)
	first, last := kids[0], kids[len(kids)-1]

	foll := stepFrom(t, first, AxisFollowingSibling, KindTest{NodeKind: types.KindElement})
	assert.Equal(t, []string{"line", "total"}, names(foll))

	// Preceding siblings are delivered nearest-first.
	prec := stepFrom(t, last, AxisPrecedingSibling, KindTest{NodeKind: types.KindElement})
	assert.Equal(t, []string{"line", "line"}, names(prec))
	assert.Equal(t, "beta", prec[0].StringValue())
}

func TestDescendantAxis(t *testing.T) {
	doc := invoiceDoc(t)
	texts := stepFrom(t, doc, AxisDescendant, KindTest{NodeKind: types.KindText})
	assert.Equal(t, []string{"alpha", "beta", "12"}, names(texts))
}

func TestAxisFromAtomicFails(t *testing.T) {
	c := NewContext(0, WithContextItem(types.IntegerValue(1)))
	_, err := evaluate(NewAxisExpression(AxisChild, nil), c)
	assert.Equal(t, types.ErrAxisOnAtomic, errCode(t, err))
}

func TestPathDocumentOrderAndDedup(t *testing.T) {
	doc := invoiceDoc(t)
	sc := NewStaticContext()

	// Both line elements map to the same parent; the path must deliver
	// it once, in document order.
	lines := NewPath(
		NewAxisExpression(AxisChild, nil),
		NewAxisExpression(AxisChild,
			NameTest{NodeKind: types.KindElement, Name: types.QNameValue{Local: "line"}}))
	p, err := Analyze(NewPath(lines, NewAxisExpression(AxisParent, nil)), sc)
	require.NoError(t, err)

	c := NewContext(0, WithContextItem(doc))
	items, err := evaluate(p, c)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "invoice", items[0].(types.Node).Name().Local)
}

func TestPathAtomicStepStaysUnsorted(t *testing.T) {
	// A step that provably yields atomic values skips document-order
	// sorting, so mapping order is preserved.
	sc := NewStaticContext()
	step := NewArithmetic(OpTimes, NewContextItem(), intLit(2))
	p, err := Analyze(NewPath(NewRange(intLit(3), intLit(1)), step), sc)
	require.NoError(t, err)
	items, err := evaluate(p, NewContext(0))
	require.NoError(t, err)
	assert.Empty(t, items, "descending range is empty")

	p, err = Analyze(NewPath(NewRange(intLit(1), intLit(3)), step), sc)
	require.NoError(t, err)
	items, err = evaluate(p, NewContext(0))
	require.NoError(t, err)
	assert.Equal(t, ints(2, 4, 6), items)
}

func TestPathRejectsMixedNodesAndAtomics(t *testing.T) {
	doc := invoiceDoc(t)
	sc := NewStaticContext()

	step := NewBlock([]Expression{NewContextItem(), strLit("stray")})
	p, err := Analyze(NewPath(NewAxisExpression(AxisChild, nil), step), sc)
	require.NoError(t, err)

	c := NewContext(0, WithContextItem(doc))
	_, err = evaluate(p, c)
	assert.Equal(t, types.ErrMixedNodesAndAtomic, errCode(t, err))
}

func TestPathPositionWithinStep(t *testing.T) {
	doc := invoiceDoc(t)
	sc := NewStaticContext()
	invoice := stepFrom(t, doc, AxisChild, nil)[0]

	// position() inside a step reflects the mapping position over the
	// start sequence.
	posCall, err := NewFunctionCall("position", nil)
	require.NoError(t, err)
	p, err := Analyze(NewPath(NewAxisExpression(AxisChild, nil), posCall), sc)
	require.NoError(t, err)

	c := NewContext(0, WithContextItem(invoice))
	items, err := evaluate(p, c)
	require.NoError(t, err)
	assert.Equal(t, ints(1, 2, 3), items)
}

func TestPathSecondCursorRestartsPositions(t *testing.T) {
	sc := NewStaticContext()
	posCall, err := NewFunctionCall("position", nil)
	require.NoError(t, err)
	p, err := Analyze(NewPath(NewLiteral(ints(10, 20, 30)), posCall), sc)
	require.NoError(t, err)

	it, err := p.Iterate(NewContext(0))
	require.NoError(t, err)
	first, err := iter.Drain(it)
	require.NoError(t, err)
	assert.Equal(t, ints(1, 2, 3), first)

	// A second cursor restarts the position count instead of
	// continuing the first cursor's.
	fresh, err := it.Another()
	require.NoError(t, err)
	second, err := iter.Drain(fresh)
	require.NoError(t, err)
	assert.Equal(t, ints(1, 2, 3), second)
}
