// Package iter implements the pull-based sequence iteration protocol.
//
// A SequenceIterator is a single-pass, stateful cursor over a sequence of
// items. Beyond the base protocol, iterators may implement optional
// capability interfaces (Lookahead, LastPositionFinder, Grounded,
// Reversible) that let consumers avoid O(n) fallback scans. Absence of a
// capability is never an error; callers probe with a type assertion and
// fall back to the generic algorithm.
package iter

import (
	"sort"

	"github.com/perrin-dev/sequoia/pkg/types"
)

// ExhaustedPosition is the sentinel reported by Position after the
// iterator has advanced past its last item.
const ExhaustedPosition = -1

// SequenceIterator is a single-pass cursor over a sequence.
//
// The terminal state is sticky: once Next returns (nil, nil), every
// subsequent call also returns (nil, nil). After Next returns an error
// the iterator must not be used again except to Close it.
type SequenceIterator interface {
	// Next returns the next item, or (nil, nil) when the sequence is
	// exhausted.
	Next() (types.Item, error)

	// Current returns the item most recently returned by Next, for
	// re-inspection without consuming. Nil before the first call and
	// after exhaustion.
	Current() types.Item

	// Position returns 0 before the first Next call, the 1-based
	// position of the current item during iteration, and
	// ExhaustedPosition after exhaustion.
	Position() int

	// Close releases any resources held by the iterator. Idempotent.
	Close()

	// Another returns an independent cursor over the same logical
	// sequence, positioned at the start. Implementations may recompute
	// the source; determinism is guaranteed only for pure sources.
	Another() (SequenceIterator, error)
}

// Lookahead is implemented by iterators that can report whether another
// item exists without consuming it.
type Lookahead interface {
	SequenceIterator
	HasNext() bool
}

// LastPositionFinder is implemented by iterators that know their length
// cheaply (O(1) or cached).
type LastPositionFinder interface {
	SequenceIterator
	Length() (int, error)
}

// Grounded is implemented by iterators whose remaining-from-start value
// can be materialized without re-evaluation.
type Grounded interface {
	SequenceIterator
	Materialize() ([]types.Item, error)
}

// Reversible is implemented by iterators that can produce the reversed
// sequence without materializing it first.
type Reversible interface {
	SequenceIterator
	Reversed() (SequenceIterator, error)
}

// Materialize drains a fresh cursor of the iterator into a slice. The
// Grounded fast path is used when available. The given iterator is not
// consumed.
func Materialize(it SequenceIterator) ([]types.Item, error) {
	if g, ok := it.(Grounded); ok {
		return g.Materialize()
	}
	fresh, err := it.Another()
	if err != nil {
		return nil, err
	}
	defer fresh.Close()
	return Drain(fresh)
}

// Drain consumes the iterator from its current position to exhaustion.
func Drain(it SequenceIterator) ([]types.Item, error) {
	var items []types.Item
	for {
		item, err := it.Next()
		if err != nil {
			return nil, err
		}
		if item == nil {
			return items, nil
		}
		items = append(items, item)
	}
}

// Count returns the number of items in the sequence, using
// LastPositionFinder when the iterator offers it.
func Count(it SequenceIterator) (int, error) {
	if lp, ok := it.(LastPositionFinder); ok {
		return lp.Length()
	}
	items, err := Materialize(it)
	if err != nil {
		return 0, err
	}
	return len(items), nil
}

// LastItem returns the final item of the sequence, or nil when empty.
func LastItem(it SequenceIterator) (types.Item, error) {
	fresh, err := it.Another()
	if err != nil {
		return nil, err
	}
	defer fresh.Close()
	var last types.Item
	for {
		item, err := fresh.Next()
		if err != nil {
			return nil, err
		}
		if item == nil {
			return last, nil
		}
		last = item
	}
}

// Reverse returns an iterator over the sequence in reverse order, using
// the Reversible capability when present and a materializing fallback
// otherwise.
func Reverse(it SequenceIterator) (SequenceIterator, error) {
	if r, ok := it.(Reversible); ok {
		return r.Reversed()
	}
	items, err := Materialize(it)
	if err != nil {
		return nil, err
	}
	rev := make([]types.Item, len(items))
	for i, item := range items {
		rev[len(items)-1-i] = item
	}
	return FromSlice(rev), nil
}

// SortFunc returns an iterator over the sequence sorted by the given
// three-way comparison. The input is materialized; the sort is stable.
func SortFunc(it SequenceIterator, cmp func(a, b types.Item) (int, error)) (SequenceIterator, error) {
	items, err := Materialize(it)
	if err != nil {
		return nil, err
	}
	sorted := make([]types.Item, len(items))
	copy(sorted, items)
	var sortErr error
	sort.SliceStable(sorted, func(i, j int) bool {
		if sortErr != nil {
			return false
		}
		c, err := cmp(sorted[i], sorted[j])
		if err != nil {
			sortErr = err
			return false
		}
		return c < 0
	})
	if sortErr != nil {
		return nil, sortErr
	}
	return FromSlice(sorted), nil
}
