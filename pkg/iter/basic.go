package iter

import "github.com/perrin-dev/sequoia/pkg/types"

// emptyIterator iterates the empty sequence.
type emptyIterator struct {
	started bool
}

// Empty returns an iterator over the empty sequence.
func Empty() SequenceIterator { return &emptyIterator{} }

func (e *emptyIterator) Next() (types.Item, error) {
	e.started = true
	return nil, nil
}
func (e *emptyIterator) Current() types.Item { return nil }
func (e *emptyIterator) Position() int {
	if e.started {
		return ExhaustedPosition
	}
	return 0
}
func (e *emptyIterator) Close() {}
func (e *emptyIterator) Another() (SequenceIterator, error) { return Empty(), nil }
func (e *emptyIterator) HasNext() bool { return false }
func (e *emptyIterator) Length() (int, error) { return 0, nil }
func (e *emptyIterator) Materialize() ([]types.Item, error) { return nil, nil }
func (e *emptyIterator) Reversed() (SequenceIterator, error) { return Empty(), nil }

// singletonIterator iterates a one-item sequence.
type singletonIterator struct {
	item types.Item
	pos  int
}

// Singleton returns an iterator over a single item. A nil item yields
// the empty sequence.
func Singleton(item types.Item) SequenceIterator {
	if item == nil {
		return Empty()
	}
	return &singletonIterator{item: item}
}

func (s *singletonIterator) Next() (types.Item, error) {
	if s.pos == 0 {
		s.pos = 1
		return s.item, nil
	}
	s.pos = ExhaustedPosition
	return nil, nil
}

func (s *singletonIterator) Current() types.Item {
	if s.pos == 1 {
		return s.item
	}
	return nil
}

func (s *singletonIterator) Position() int { return s.pos }
func (s *singletonIterator) Close() {}
func (s *singletonIterator) Another() (SequenceIterator, error) {
	return Singleton(s.item), nil
}
func (s *singletonIterator) HasNext() bool { return s.pos == 0 }
func (s *singletonIterator) Length() (int, error) { return 1, nil }
func (s *singletonIterator) Materialize() ([]types.Item, error) { return []types.Item{s.item}, nil }
func (s *singletonIterator) Reversed() (SequenceIterator, error) {
	return Singleton(s.item), nil
}

// sliceIterator iterates a materialized sequence. It is grounded and
// knows its length.
type sliceIterator struct {
	items []types.Item
	// index of the next item to deliver; ExhaustedPosition once done
	next int
	done bool
}

// FromSlice returns an iterator over the given items. The slice is not
// copied; callers must not mutate it afterwards.
func FromSlice(items []types.Item) SequenceIterator {
	return &sliceIterator{items: items}
}

func (s *sliceIterator) Next() (types.Item, error) {
	if s.done || s.next >= len(s.items) {
		s.done = true
		return nil, nil
	}
	item := s.items[s.next]
	s.next++
	return item, nil
}

func (s *sliceIterator) Current() types.Item {
	if s.done || s.next == 0 {
		return nil
	}
	return s.items[s.next-1]
}

func (s *sliceIterator) Position() int {
	if s.done {
		return ExhaustedPosition
	}
	return s.next
}

func (s *sliceIterator) Close() {}

func (s *sliceIterator) Another() (SequenceIterator, error) {
	return FromSlice(s.items), nil
}

func (s *sliceIterator) HasNext() bool { return !s.done && s.next < len(s.items) }

func (s *sliceIterator) Length() (int, error) { return len(s.items), nil }

func (s *sliceIterator) Materialize() ([]types.Item, error) { return s.items, nil }

func (s *sliceIterator) Reversed() (SequenceIterator, error) {
	rev := make([]types.Item, len(s.items))
	for i, item := range s.items {
		rev[len(s.items)-1-i] = item
	}
	return FromSlice(rev), nil
}

// tailIterator skips the first start-1 items of its base.
type tailIterator struct {
	base  SequenceIterator
	start int
	pos   int
	cur   types.Item
}

// Tail returns an iterator over the items of base from 1-based position
// start onward.
func Tail(base SequenceIterator, start int) SequenceIterator {
	if start <= 1 {
		return base
	}
	return &tailIterator{base: base, start: start}
}

func (t *tailIterator) Next() (types.Item, error) {
	for t.pos == 0 && t.base.Position() < t.start-1 {
		item, err := t.base.Next()
		if err != nil {
			return nil, err
		}
		if item == nil {
			t.pos = ExhaustedPosition
			t.cur = nil
			return nil, nil
		}
	}
	if t.pos == ExhaustedPosition {
		return nil, nil
	}
	item, err := t.base.Next()
	if err != nil {
		return nil, err
	}
	if item == nil {
		t.pos = ExhaustedPosition
		t.cur = nil
		return nil, nil
	}
	t.pos++
	t.cur = item
	return item, nil
}

func (t *tailIterator) Current() types.Item { return t.cur }
func (t *tailIterator) Position() int { return t.pos }
func (t *tailIterator) Close() { t.base.Close() }
func (t *tailIterator) Another() (SequenceIterator, error) {
	base, err := t.base.Another()
	if err != nil {
		return nil, err
	}
	return Tail(base, t.start), nil
}
