package iter

import (
	"sort"

	"github.com/perrin-dev/sequoia/pkg/types"
)

// docOrderIterator wraps a base sequence with homogeneity enforcement,
// document-order sorting, and identity deduplication.
//
// This is the explicit composable stage that path-like constructs insert
// around their result; static analysis elides it when the wrapped
// expression is statically known to never produce nodes, or to already
// be naturally sorted.
type docOrderIterator struct {
	base     SequenceIterator
	delegate SequenceIterator
}

// NewDocOrder wraps base so that:
//   - a sequence mixing nodes and atomic values raises XPTY0018,
//   - an all-atomic sequence passes through in original order,
//   - an all-node sequence is sorted into document order with duplicate
//     nodes (by identity) removed.
//
// The base is materialized on the first Next call, not at construction,
// so errors keep their dynamic timing.
func NewDocOrder(base SequenceIterator) SequenceIterator {
	return &docOrderIterator{base: base}
}

func (d *docOrderIterator) prepare() error {
	if d.delegate != nil {
		return nil
	}
	items, err := Drain(d.base)
	if err != nil {
		return err
	}
	out, err := SortIntoDocumentOrder(items)
	if err != nil {
		return err
	}
	d.delegate = FromSlice(out)
	return nil
}

func (d *docOrderIterator) Next() (types.Item, error) {
	if err := d.prepare(); err != nil {
		return nil, err
	}
	return d.delegate.Next()
}

func (d *docOrderIterator) Current() types.Item {
	if d.delegate == nil {
		return nil
	}
	return d.delegate.Current()
}

func (d *docOrderIterator) Position() int {
	if d.delegate == nil {
		return 0
	}
	return d.delegate.Position()
}

func (d *docOrderIterator) Close() { d.base.Close() }

func (d *docOrderIterator) Another() (SequenceIterator, error) {
	base, err := d.base.Another()
	if err != nil {
		return nil, err
	}
	return NewDocOrder(base), nil
}

// SortIntoDocumentOrder enforces homogeneity on a materialized sequence
// and, for node sequences, sorts by document order and removes duplicate
// node identities. Atomic sequences are returned unchanged.
func SortIntoDocumentOrder(items []types.Item) ([]types.Item, error) {
	if len(items) == 0 {
		return items, nil
	}
	nodes := 0
	for _, it := range items {
		if _, ok := it.(types.Node); ok {
			nodes++
		}
	}
	if nodes == 0 {
		return items, nil
	}
	if nodes != len(items) {
		return nil, types.NewTypeError(types.ErrMixedNodesAndAtomic,
			"sequence mixes nodes and atomic values")
	}

	sorted := make([]types.Node, len(items))
	for i, it := range items {
		sorted[i] = it.(types.Node)
	}
	sort.SliceStable(sorted, func(i, j int) bool {
		return types.DocOrderCompare(sorted[i], sorted[j]) < 0
	})

	out := make([]types.Item, 0, len(sorted))
	for i, n := range sorted {
		if i > 0 && n.IsSame(sorted[i-1]) {
			continue
		}
		out = append(out, n)
	}
	return out, nil
}
