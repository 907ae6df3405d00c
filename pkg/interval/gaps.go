package interval

import "sort"

// GapIterator walks the maximal uncovered ranges of a set, clipped to a
// bounding segment, in ascending order. Gaps are produced lazily; Reset
// restarts the walk from the beginning.
//
// The iterator reads the set it was created from. Mutating the set while
// an iterator is outstanding invalidates it.
type GapIterator[T Scalar] struct {
	entries []Segment[T]
	within  Segment[T]
	idx     int
	cursor  T
	done    bool
}

// Gaps returns an iterator over the complement of the set inside the
// given bounding segment.
func (s *Set[T]) Gaps(within Segment[T]) *GapIterator[T] {
	it := &GapIterator[T]{entries: s.entries, within: within}
	it.Reset()
	return it
}

// Reset restarts the iterator.
func (it *GapIterator[T]) Reset() {
	it.cursor = it.within.Start
	it.done = it.within.Empty()
	// Skip entries that end at or before the bound; the first candidate
	// is the leftmost entry that can clip the cursor forward.
	it.idx = sort.Search(len(it.entries), func(i int) bool { return it.entries[i].End > it.within.Start })
}

// Next returns the next gap. The second return value is false once the
// walk is exhausted.
func (it *GapIterator[T]) Next() (Segment[T], bool) {
	for !it.done {
		if it.idx >= len(it.entries) || it.entries[it.idx].Start >= it.within.End {
			// No further entries inside the bound: emit the tail gap.
			it.done = true
			if it.cursor < it.within.End {
				return Segment[T]{Start: it.cursor, End: it.within.End}, true
			}
			return Segment[T]{}, false
		}

		entry := it.entries[it.idx]
		it.idx++

		gap := Segment[T]{Start: it.cursor, End: entry.Start}
		if entry.End > it.cursor {
			it.cursor = entry.End
		}
		if it.cursor >= it.within.End {
			it.done = true
		}
		if gap.Start < gap.End {
			return gap, true
		}
	}
	return Segment[T]{}, false
}

// Collect drains the iterator into a slice.
func (it *GapIterator[T]) Collect() []Segment[T] {
	var out []Segment[T]
	for {
		gap, ok := it.Next()
		if !ok {
			return out
		}
		out = append(out, gap)
	}
}
