package program

import (
	"errors"
	"testing"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/perrin-dev/sequoia/pkg/expr"
	"github.com/perrin-dev/sequoia/pkg/push"
	"github.com/perrin-dev/sequoia/pkg/shorthand"
	"github.com/perrin-dev/sequoia/pkg/types"
)

func compileSrc(t *testing.T, src string) *Program {
	t.Helper()
	sc := expr.NewStaticContext()
	root, err := shorthand.Read(src, sc)
	require.NoError(t, err)
	p, err := Compile(root, sc)
	require.NoError(t, err)
	p.SetSource(src)
	return p
}

func TestEvaluate(t *testing.T) {
	p := compileSrc(t, "sum(1 to 4) + 1")
	items, err := p.Evaluate()
	require.NoError(t, err)
	assert.Equal(t, []types.Item{types.IntegerValue(11)}, items)
}

func TestEvaluateSingle(t *testing.T) {
	p := compileSrc(t, "string-join(('a', 'b'), '/')")
	item, err := p.EvaluateSingle()
	require.NoError(t, err)
	assert.Equal(t, "a/b", item.StringValue())

	p = compileSrc(t, "()")
	item, err = p.EvaluateSingle()
	require.NoError(t, err)
	assert.Nil(t, item)
}

func TestRunMatchesEvaluate(t *testing.T) {
	p := compileSrc(t, "for $i in 1 to 3 return $i * $i")

	pulled, err := p.Evaluate()
	require.NoError(t, err)

	coll := push.NewSequenceCollector()
	require.NoError(t, p.Run(coll))
	assert.Equal(t, pulled, coll.Items())
}

type closeCounter struct {
	*push.SequenceCollector
	closes int
}

func (c *closeCounter) Close() error {
	c.closes++
	return c.SequenceCollector.Close()
}

func TestRunClosesDestinationOnError(t *testing.T) {
	p := compileSrc(t, "1 div 0")

	dest := &closeCounter{SequenceCollector: push.NewSequenceCollector()}
	err := p.Run(dest)
	require.Error(t, err)
	assert.Equal(t, 1, dest.closes)
}

func TestWithContextItem(t *testing.T) {
	p := compileSrc(t, ". + 1")
	items, err := p.Evaluate(WithContextItem(types.IntegerValue(41)))
	require.NoError(t, err)
	assert.Equal(t, []types.Item{types.IntegerValue(42)}, items)

	_, err = p.Evaluate()
	var ee *types.Error
	require.True(t, errors.As(err, &ee))
	assert.Equal(t, types.ErrNoContextItem, ee.Code)
}

func TestWithVariable(t *testing.T) {
	// An externally supplied parameter: declare the binding, reference
	// it, then seed its slot per run.
	sc := expr.NewStaticContext()
	param := &expr.Binding{Name: "limit", Slot: -1, Required: types.AnySequence}
	sc.Slots.Allocate(param)
	ref := expr.NewVariableReference("limit")
	ref.FixUp(param)

	fc, err := expr.NewFunctionCall("count", []expr.Expression{ref})
	require.NoError(t, err)
	p, err := Compile(fc, sc)
	require.NoError(t, err)

	items, err := p.Evaluate(WithVariable(param.Slot, []types.Item{
		types.IntegerValue(7), types.IntegerValue(8),
	}))
	require.NoError(t, err)
	assert.Equal(t, []types.Item{types.IntegerValue(2)}, items)

	items, err = p.Evaluate(WithVariable(param.Slot, nil))
	require.NoError(t, err)
	assert.Equal(t, []types.Item{types.IntegerValue(0)}, items)
}

func TestRequiredTypeOnEvaluate(t *testing.T) {
	required := types.SequenceType{
		Item: types.AtomicItemType(types.TypeInteger),
		Card: types.CardZeroOrOne,
	}

	p := compileSrc(t, "(1, 2)")
	_, err := p.Evaluate(WithRequiredType(required, "the result"))
	var ee *types.Error
	require.True(t, errors.As(err, &ee))
	assert.Equal(t, types.ErrBadCardinality, ee.Code)

	p = compileSrc(t, "(42)")
	items, err := p.Evaluate(WithRequiredType(required, "the result"))
	require.NoError(t, err)
	assert.Equal(t, []types.Item{types.IntegerValue(42)}, items)
}

type recordingErrors struct {
	fatal []*types.Error
	warns []*types.Error
}

func (r *recordingErrors) Warning(err *types.Error) { r.warns = append(r.warns, err) }
func (r *recordingErrors) FatalError(err *types.Error) { r.fatal = append(r.fatal, err) }

func TestErrorListenerSeesFatalOnce(t *testing.T) {
	p := compileSrc(t, "1 div 0")
	rec := &recordingErrors{}
	_, err := p.Evaluate(WithErrorListener(rec))
	require.Error(t, err)
	require.Len(t, rec.fatal, 1, "a fatal error is reported exactly once")
	assert.Equal(t, types.ErrDivisionByZero, rec.fatal[0].Code)
}

type countingTrace struct {
	entered, left int
}

func (l *countingTrace) Enter(expr.InstructionInfo, *expr.Context) { l.entered++ }
func (l *countingTrace) Leave(expr.InstructionInfo) { l.left++ }

func TestTraceListenerOption(t *testing.T) {
	p := compileSrc(t, "trace(1 to 3, 'rng')")
	l := &countingTrace{}
	items, err := p.Evaluate(WithTraceListener(l))
	require.NoError(t, err)
	assert.Len(t, items, 3)
	assert.Equal(t, 1, l.entered)
	assert.Equal(t, 1, l.left)
}

func TestResultResolverOption(t *testing.T) {
	recs := map[string]*push.EventRecorder{}
	resolver := func(uri string) (push.Receiver, error) {
		r := &push.EventRecorder{}
		recs[uri] = r
		return r, nil
	}
	sc := expr.NewStaticContext()
	instr := expr.NewResultDocument(
		expr.NewSingletonLiteral(types.StringValue("summary.yaml")),
		expr.NewText(expr.NewSingletonLiteral(types.StringValue("done"))))
	p, err := Compile(instr, sc)
	require.NoError(t, err)

	coll := push.NewSequenceCollector()
	require.NoError(t, p.Run(coll, WithResultResolver(resolver)))
	require.Contains(t, recs, "summary.yaml")
	assert.Contains(t, recs["summary.yaml"].Events, "characters(done)")
}

func TestExplainGolden(t *testing.T) {
	p := compileSrc(t, "let $t := 1 to 3 return count($t)")
	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/explain"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, "let-count", []byte(expr.ExplainString(p.Root())))
}

func TestCompileRejectsStaticErrors(t *testing.T) {
	sc := expr.NewStaticContext()
	root, err := shorthand.Read("$nowhere", sc)
	require.NoError(t, err)
	_, err = Compile(root, sc)
	var ee *types.Error
	require.True(t, errors.As(err, &ee))
	assert.Equal(t, types.ErrUndeclaredVariable, ee.Code)
}
