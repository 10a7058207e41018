package iter

import "github.com/perrin-dev/sequoia/pkg/types"

// rangeIterator lazily iterates the integers of start..end inclusive,
// without materializing them. A descending range iterates end..start
// downward (used by Reversed).
type rangeIterator struct {
	start, end int64
	descending bool
	// pos is 0 before the first call, 1.. during, ExhaustedPosition after.
	pos int
	cur types.Item
}

// NewRange returns an iterator over the integer range start..end
// inclusive. When start > end the sequence is empty; start == end yields
// the single value start.
func NewRange(start, end int64) SequenceIterator {
	if start > end {
		return Empty()
	}
	return &rangeIterator{start: start, end: end}
}

func (r *rangeIterator) value(pos int) int64 {
	if r.descending {
		return r.end - int64(pos-1)
	}
	return r.start + int64(pos-1)
}

func (r *rangeIterator) Next() (types.Item, error) {
	if r.pos == ExhaustedPosition {
		return nil, nil
	}
	next := r.pos + 1
	if int64(next) > r.end-r.start+1 {
		r.pos = ExhaustedPosition
		r.cur = nil
		return nil, nil
	}
	r.pos = next
	r.cur = types.IntegerValue(r.value(next))
	return r.cur, nil
}

func (r *rangeIterator) Current() types.Item { return r.cur }
func (r *rangeIterator) Position() int { return r.pos }
func (r *rangeIterator) Close() {}

func (r *rangeIterator) Another() (SequenceIterator, error) {
	return &rangeIterator{start: r.start, end: r.end, descending: r.descending}, nil
}

func (r *rangeIterator) HasNext() bool {
	return r.pos != ExhaustedPosition && int64(r.pos+1) <= r.end-r.start+1
}

func (r *rangeIterator) Length() (int, error) {
	return int(r.end - r.start + 1), nil
}

func (r *rangeIterator) Reversed() (SequenceIterator, error) {
	return &rangeIterator{start: r.start, end: r.end, descending: !r.descending}, nil
}
