package expr

// Static analysis pipeline: simplify → type-check → optimize, run once
// per compiled tree. Each phase returns a replacement node; the driver
// and every parent re-link accordingly. Rewrites preserve the exact set
// and ordering of observable dynamic errors, except that eliminating a
// provably dead branch legitimately suppresses errors living only in
// that branch.

// Analyze runs the three static phases over a raw tree and returns the
// optimized tree.
func Analyze(e Expression, sc *StaticContext) (Expression, error) {
	e, err := e.Simplify()
	if err != nil {
		return nil, err
	}
	e, err = e.TypeCheck(sc)
	if err != nil {
		return nil, err
	}
	return e.Optimize(sc)
}

// foldIfConstant replaces a pure expression over constant operands with
// the literal it evaluates to. An expression that fails during folding
// is left in place so the error keeps its dynamic timing.
func foldIfConstant(e Expression, sc *StaticContext) (Expression, error) {
	if e.Dependencies() != 0 {
		return e, nil
	}
	for _, ch := range e.Children() {
		if _, ok := ch.(*Literal); !ok {
			return e, nil
		}
	}
	items, err := evaluate(e, NewContext(0))
	if err != nil {
		return e, nil
	}
	lit := NewLiteral(items)
	lit.loc = e.Location()
	return lit, nil
}
