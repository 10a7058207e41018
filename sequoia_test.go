package sequoia_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/perrin-dev/sequoia"
	"github.com/perrin-dev/sequoia/pkg/expr"
	"github.com/perrin-dev/sequoia/pkg/program"
	"github.com/perrin-dev/sequoia/pkg/tree"
	"github.com/perrin-dev/sequoia/pkg/types"
)

func TestCompileAndEvaluate(t *testing.T) {
	p, err := sequoia.Compile("sum(1 to 10)")
	require.NoError(t, err)
	items, err := p.Evaluate()
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, types.IntegerValue(55), items[0])
}

func TestCompileSyntaxError(t *testing.T) {
	_, err := sequoia.Compile("1 +")
	require.Error(t, err)
}

func TestEvalAgainstDocument(t *testing.T) {
	doc, err := tree.LoadYAML([]byte("items:\n  - 2\n  - 3\n  - 4\n"), "order")
	require.NoError(t, err)

	items, err := sequoia.Eval("count(descendant::text())", doc)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, types.IntegerValue(3), items[0])
}

func TestEvalWithoutDocument(t *testing.T) {
	items, err := sequoia.Eval("2 * 3", nil)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, types.IntegerValue(6), items[0])
}

func TestCachingReturnsSameProgram(t *testing.T) {
	p1, err := sequoia.Compile("1 + 1", sequoia.WithCaching(true))
	require.NoError(t, err)
	p2, err := sequoia.Compile("1 + 1", sequoia.WithCaching(true))
	require.NoError(t, err)
	assert.Same(t, p1, p2)

	p3, err := sequoia.Compile("1 + 1")
	require.NoError(t, err)
	assert.NotSame(t, p1, p3)
}

func TestWithStaticContextBypassesCache(t *testing.T) {
	sc := expr.NewStaticContext()
	p1, err := sequoia.Compile("1 + 2", sequoia.WithStaticContext(sc), sequoia.WithCaching(true))
	require.NoError(t, err)
	p2, err := sequoia.Compile("1 + 2", sequoia.WithStaticContext(expr.NewStaticContext()), sequoia.WithCaching(true))
	require.NoError(t, err)
	assert.NotSame(t, p1, p2)
}

func TestWithCollation(t *testing.T) {
	// Under codepoint comparison U+00E4 sorts after 'b'; German
	// collation puts it with 'a'.
	src := "'ä' < 'b'"

	p, err := sequoia.Compile(src)
	require.NoError(t, err)
	items, err := p.Evaluate()
	require.NoError(t, err)
	assert.Equal(t, []types.Item{types.BooleanValue(false)}, items)

	p, err = sequoia.Compile(src,
		sequoia.WithCollation("http://sequoia.perrin.dev/collation/lang/de"))
	require.NoError(t, err)
	items, err = p.Evaluate()
	require.NoError(t, err)
	assert.Equal(t, []types.Item{types.BooleanValue(true)}, items)
}

func TestWithCollationUnknownURI(t *testing.T) {
	_, err := sequoia.Compile("'a' = 'b'", sequoia.WithCollation("http://example.com/no-such-collation"))
	require.Error(t, err)
}

func TestMustCompilePanics(t *testing.T) {
	assert.NotPanics(t, func() { sequoia.MustCompile("1 + 1") })
	assert.Panics(t, func() { sequoia.MustCompile("$undeclared") })
}

func TestProgramReusableAcrossRuns(t *testing.T) {
	p := sequoia.MustCompile(". * 10")
	for i := 1; i <= 3; i++ {
		items, err := p.Evaluate(program.WithContextItem(types.IntegerValue(int64(i))))
		require.NoError(t, err)
		require.Len(t, items, 1)
		assert.Equal(t, types.IntegerValue(int64(i*10)), items[0])
	}
}
