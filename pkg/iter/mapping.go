package iter

import "github.com/perrin-dev/sequoia/pkg/types"

// MappingFunc expands one input item to a sub-sequence. Returning a nil
// iterator means the item maps to the empty sequence.
type MappingFunc func(types.Item) (SequenceIterator, error)

// mappingIterator applies a MappingFunc to each item of a base sequence
// and flattens the resulting sub-sequences, lazily.
type mappingIterator struct {
	base  SequenceIterator
	fn    MappingFunc
	fresh func() MappingFunc
	sub   SequenceIterator
	pos   int
	cur   types.Item
}

// NewMapping returns the flattened concatenation of fn applied to each
// item of base. fn must be stateless across cursors: an independent
// cursor from Another reuses it. Stateful closures go through
// NewMappingFresh.
func NewMapping(base SequenceIterator, fn MappingFunc) SequenceIterator {
	return &mappingIterator{base: base, fn: fn}
}

// NewMappingFresh is NewMapping for stateful mapping closures: each
// cursor, including every one obtained through Another, gets its own
// MappingFunc from the factory, so per-cursor state restarts.
func NewMappingFresh(base SequenceIterator, factory func() MappingFunc) SequenceIterator {
	return &mappingIterator{base: base, fn: factory(), fresh: factory}
}

func (m *mappingIterator) Next() (types.Item, error) {
	if m.pos == ExhaustedPosition {
		return nil, nil
	}
	for {
		if m.sub != nil {
			item, err := m.sub.Next()
			if err != nil {
				return nil, err
			}
			if item != nil {
				m.pos++
				m.cur = item
				return item, nil
			}
			m.sub.Close()
			m.sub = nil
		}
		src, err := m.base.Next()
		if err != nil {
			return nil, err
		}
		if src == nil {
			m.pos = ExhaustedPosition
			m.cur = nil
			return nil, nil
		}
		sub, err := m.fn(src)
		if err != nil {
			return nil, err
		}
		m.sub = sub
	}
}

func (m *mappingIterator) Current() types.Item { return m.cur }
func (m *mappingIterator) Position() int { return m.pos }

func (m *mappingIterator) Close() {
	if m.sub != nil {
		m.sub.Close()
		m.sub = nil
	}
	m.base.Close()
}

func (m *mappingIterator) Another() (SequenceIterator, error) {
	base, err := m.base.Another()
	if err != nil {
		return nil, err
	}
	if m.fresh != nil {
		return NewMappingFresh(base, m.fresh), nil
	}
	return NewMapping(base, m.fn), nil
}

// PredicateFunc decides whether an item at a 1-based base position is
// kept.
type PredicateFunc func(item types.Item, basePos int) (bool, error)

// filterIterator keeps the items of base for which pred holds.
type filterIterator struct {
	base SequenceIterator
	pred PredicateFunc
	pos  int
	cur  types.Item
}

// NewFilter returns an iterator over the items of base satisfying pred.
func NewFilter(base SequenceIterator, pred PredicateFunc) SequenceIterator {
	return &filterIterator{base: base, pred: pred}
}

func (f *filterIterator) Next() (types.Item, error) {
	if f.pos == ExhaustedPosition {
		return nil, nil
	}
	for {
		item, err := f.base.Next()
		if err != nil {
			return nil, err
		}
		if item == nil {
			f.pos = ExhaustedPosition
			f.cur = nil
			return nil, nil
		}
		keep, err := f.pred(item, f.base.Position())
		if err != nil {
			return nil, err
		}
		if keep {
			f.pos++
			f.cur = item
			return item, nil
		}
	}
}

func (f *filterIterator) Current() types.Item { return f.cur }
func (f *filterIterator) Position() int { return f.pos }
func (f *filterIterator) Close() { f.base.Close() }

func (f *filterIterator) Another() (SequenceIterator, error) {
	base, err := f.base.Another()
	if err != nil {
		return nil, err
	}
	return NewFilter(base, f.pred), nil
}
