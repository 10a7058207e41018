package tree

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/perrin-dev/sequoia/pkg/types"
)

func serialized(t *testing.T, n types.Node) string {
	t.Helper()
	var sb strings.Builder
	require.NoError(t, Serialize(&sb, n))
	return sb.String()
}

func TestSerializeDocument(t *testing.T) {
	doc := buildDoc(t)
	assert.Equal(t, `<order id="42"><item>widget</item><item>gadget</item></order>`, serialized(t, doc))
}

func TestSerializeEmptyElement(t *testing.T) {
	b := NewBuilder()
	require.NoError(t, b.StartElement(types.QNameValue{Local: "empty"}, 0))
	require.NoError(t, b.StartContent())
	require.NoError(t, b.EndElement())
	require.NoError(t, b.Close())
	item, err := b.Result()
	require.NoError(t, err)

	assert.Equal(t, "<empty/>", serialized(t, item.(types.Node)))
}

func TestSerializeEscapesText(t *testing.T) {
	b := NewBuilder()
	require.NoError(t, b.StartElement(types.QNameValue{Local: "expr"}, 0))
	require.NoError(t, b.StartContent())
	require.NoError(t, b.Characters("a < b & c"))
	require.NoError(t, b.EndElement())
	require.NoError(t, b.Close())
	item, err := b.Result()
	require.NoError(t, err)

	assert.Equal(t, "<expr>a &lt; b &amp; c</expr>", serialized(t, item.(types.Node)))
}

func TestSerializePrefixedNames(t *testing.T) {
	b := NewBuilder()
	require.NoError(t, b.StartElement(types.QNameValue{Prefix: "x", Local: "root", URI: "http://example.com/x"}, 0))
	require.NoError(t, b.Attribute(types.QNameValue{Local: "kind"}, "demo"))
	require.NoError(t, b.StartContent())
	require.NoError(t, b.Comment("note"))
	require.NoError(t, b.EndElement())
	require.NoError(t, b.Close())
	item, err := b.Result()
	require.NoError(t, err)

	assert.Equal(t, `<x:root kind="demo"><!--note--></x:root>`, serialized(t, item.(types.Node)))
}
