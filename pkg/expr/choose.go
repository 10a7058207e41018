package expr

import (
	"io"

	"github.com/perrin-dev/sequoia/pkg/iter"
	"github.com/perrin-dev/sequoia/pkg/types"
)

// Choose is the conditional: an ordered list of (condition, action)
// pairs evaluated left to right; the first true condition selects its
// action and nothing after it is touched. Falling off the end yields
// the empty sequence. An if/then/else is a Choose whose last condition
// is the constant true.
type Choose struct {
	baseExpr
	conditions []Expression
	actions    []Expression
}

// NewChoose builds a conditional from parallel condition/action lists.
func NewChoose(conditions, actions []Expression) *Choose {
	return &Choose{conditions: conditions, actions: actions}
}

// NewIf builds if (cond) then thenE else elseE.
func NewIf(cond, thenE, elseE Expression) *Choose {
	return NewChoose(
		[]Expression{cond, NewBooleanLiteral(true)},
		[]Expression{thenE, elseE},
	)
}

func (ch *Choose) Simplify() (Expression, error) {
	var err error
	for i := range ch.conditions {
		if ch.conditions[i], err = ch.conditions[i].Simplify(); err != nil {
			return nil, err
		}
		if ch.actions[i], err = ch.actions[i].Simplify(); err != nil {
			return nil, err
		}
	}
	return ch, nil
}

func (ch *Choose) TypeCheck(sc *StaticContext) (Expression, error) {
	var err error
	for i := range ch.conditions {
		if ch.conditions[i], err = ch.conditions[i].TypeCheck(sc); err != nil {
			return nil, err
		}
		// Actions are checked per branch: a type failure that depends
		// on reachability is demoted to a deferred runtime error, it
		// must not abort compilation of branches dynamics may never
		// reach.
		action, err := ch.actions[i].TypeCheck(sc.branch())
		if err != nil {
			action, err = sc.branch().demote(err, ch.actions[i].Location())
			if err != nil {
				return nil, err
			}
		}
		ch.actions[i] = action
	}
	return ch, nil
}

func (ch *Choose) Optimize(sc *StaticContext) (Expression, error) {
	var err error
	for i := range ch.conditions {
		if ch.conditions[i], err = ch.conditions[i].Optimize(sc); err != nil {
			return nil, err
		}
		if ch.actions[i], err = ch.actions[i].Optimize(sc); err != nil {
			return nil, err
		}
	}

	// Drop branches with constant-false conditions; truncate at a
	// constant-true condition. Dead-branch errors are legitimately
	// suppressed; live ordering is untouched.
	conds := make([]Expression, 0, len(ch.conditions))
	acts := make([]Expression, 0, len(ch.actions))
	for i := range ch.conditions {
		if lit, ok := ch.conditions[i].(*Literal); ok {
			if val, isBool := lit.BooleanValue(); isBool {
				if !val {
					continue
				}
				conds = append(conds, ch.conditions[i])
				acts = append(acts, ch.actions[i])
				break
			}
		}
		conds = append(conds, ch.conditions[i])
		acts = append(acts, ch.actions[i])
	}
	ch.conditions, ch.actions = conds, acts

	if len(ch.conditions) == 0 {
		return NewEmptyLiteral(), nil
	}

	// A leading constant-true condition reduces the whole conditional
	// to its action.
	if val, isBool := literalBool(ch.conditions[0]); isBool && val {
		return ch.actions[0], nil
	}

	n := len(ch.conditions)
	if val, isBool := literalBool(ch.conditions[n-1]); isBool && val {
		// Flatten else-if chains: a trailing unconditional Choose is
		// spliced into this one.
		if inner, ok := ch.actions[n-1].(*Choose); ok {
			ch.conditions = append(ch.conditions[:n-1], inner.conditions...)
			ch.actions = append(ch.actions[:n-1], inner.actions...)
			return ch.Optimize(sc)
		}
		// A trailing empty else adds nothing: falling off the end is
		// already the empty sequence.
		if lit, ok := ch.actions[n-1].(*Literal); ok && len(lit.Value()) == 0 {
			ch.conditions = ch.conditions[:n-1]
			ch.actions = ch.actions[:n-1]
			if len(ch.conditions) == 0 {
				return NewEmptyLiteral(), nil
			}
		}
	}

	// if (E) then true() else false()  →  boolean(E)
	if len(ch.conditions) == 2 {
		tv, tok := literalBool(ch.actions[0])
		ev, eok := literalBool(ch.actions[1])
		lv, lok := literalBool(ch.conditions[1])
		if tok && eok && lok && lv && tv && !ev {
			return NewEffectiveBoolean(ch.conditions[0]), nil
		}
	}

	return ch, nil
}

func literalBool(e Expression) (bool, bool) {
	if lit, ok := e.(*Literal); ok {
		return lit.BooleanValue()
	}
	return false, false
}

func (ch *Choose) ItemType() types.ItemType {
	if len(ch.actions) == 0 {
		return types.AnyItemType
	}
	t := ch.actions[0].ItemType()
	for _, a := range ch.actions[1:] {
		t = t.Union(a.ItemType())
	}
	return t
}

func (ch *Choose) Cardinality() types.Cardinality {
	card := types.Cardinality(0)
	for _, a := range ch.actions {
		card = card.Union(a.Cardinality())
	}
	if !ch.exhaustive() {
		card = card.Union(types.CardEmpty)
	}
	if card == 0 {
		card = types.CardEmpty
	}
	return card
}

// exhaustive reports whether some condition is the constant true, so
// fall-through to empty is impossible.
func (ch *Choose) exhaustive() bool {
	for _, cond := range ch.conditions {
		if v, ok := literalBool(cond); ok && v {
			return true
		}
	}
	return false
}

func (ch *Choose) Dependencies() Dependency {
	return dependenciesOf(ch.conditions...) | dependenciesOf(ch.actions...)
}

func (ch *Choose) Children() []Expression {
	out := make([]Expression, 0, len(ch.conditions)*2)
	for i := range ch.conditions {
		out = append(out, ch.conditions[i], ch.actions[i])
	}
	return out
}

// choose returns the selected action, or nil on fall-through.
func (ch *Choose) choose(c *Context) (Expression, error) {
	for i, cond := range ch.conditions {
		v, err := effectiveBool(cond, c)
		if err != nil {
			return nil, err
		}
		if v {
			return ch.actions[i], nil
		}
	}
	return nil, nil
}

func (ch *Choose) Iterate(c *Context) (iter.SequenceIterator, error) {
	action, err := ch.choose(c)
	if err != nil || action == nil {
		return iter.Empty(), err
	}
	return action.Iterate(c)
}

func (ch *Choose) Process(c *Context) error {
	action, err := ch.choose(c)
	if err != nil || action == nil {
		return err
	}
	return action.Process(c)
}

func (ch *Choose) EvaluateItem(c *Context) (types.Item, error) {
	action, err := ch.choose(c)
	if err != nil || action == nil {
		return nil, err
	}
	return action.EvaluateItem(c)
}

func (ch *Choose) Explain(w io.Writer, depth int) {
	explainf(w, depth, "choose")
	for i := range ch.conditions {
		explainf(w, depth+1, "when")
		ch.conditions[i].Explain(w, depth+2)
		explainf(w, depth+1, "then")
		ch.actions[i].Explain(w, depth+2)
	}
}
