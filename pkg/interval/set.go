package interval

import (
	"slices"
	"sort"
	"strings"
)

// Set is a mutable union of ranges, stored as segments sorted by start and
// kept strictly separated: entries[i].End < entries[i+1].Start. Inserting
// a segment that overlaps or touches existing entries coalesces them into
// one, so the stored form is the unique minimal representation of the
// union and value equality of sets is also semantic equality.
//
// A Set is not safe for concurrent use. Callers must serialize mutations;
// queries may run concurrently with each other but not with a mutation.
type Set[T Scalar] struct {
	entries []Segment[T]
}

// NewSet creates a set covering the union of the given segments.
func NewSet[T Scalar](segments ...Segment[T]) *Set[T] {
	s := &Set[T]{}
	for _, seg := range segments {
		s.Add(seg)
	}
	return s
}

// Add inserts [seg.Start, seg.End) into the union. Every stored entry the
// segment touches is folded into a single combined entry in one splice.
// Adding an empty segment is a no-op.
func (s *Set[T]) Add(seg Segment[T]) {
	if seg.Empty() {
		return
	}

	// Entries before lo end strictly before seg starts; entries from hi
	// start strictly after seg ends. Everything in [lo, hi) touches seg.
	lo := sort.Search(len(s.entries), func(i int) bool { return s.entries[i].End >= seg.Start })
	hi := sort.Search(len(s.entries), func(i int) bool { return s.entries[i].Start > seg.End })

	if lo == hi {
		s.entries = slices.Insert(s.entries, lo, seg)
		return
	}

	if s.entries[lo].Start < seg.Start {
		seg.Start = s.entries[lo].Start
	}
	if s.entries[hi-1].End > seg.End {
		seg.End = s.entries[hi-1].End
	}
	s.entries[lo] = seg
	s.entries = append(s.entries[:lo+1], s.entries[hi:]...)
}

// Remove subtracts [seg.Start, seg.End) from the union. Entries strictly
// overlapping the segment are replaced by their residuals outside it;
// entries that merely touch it are untouched. Removing an empty segment
// is a no-op.
func (s *Set[T]) Remove(seg Segment[T]) {
	if seg.Empty() {
		return
	}

	// Strict overlap this time: pure adjacency removes nothing.
	lo := sort.Search(len(s.entries), func(i int) bool { return s.entries[i].End > seg.Start })
	hi := sort.Search(len(s.entries), func(i int) bool { return s.entries[i].Start >= seg.End })
	if lo >= hi {
		return
	}

	// At most two residuals survive: the head of the first overlapped
	// entry and the tail of the last one.
	residuals := make([]Segment[T], 0, 2)
	if s.entries[lo].Start < seg.Start {
		residuals = append(residuals, Segment[T]{Start: s.entries[lo].Start, End: seg.Start})
	}
	if s.entries[hi-1].End > seg.End {
		residuals = append(residuals, Segment[T]{Start: seg.End, End: s.entries[hi-1].End})
	}
	s.entries = slices.Replace(s.entries, lo, hi, residuals...)
}

// Contains reports whether the point lies within a stored segment.
func (s *Set[T]) Contains(point T) bool {
	i := sort.Search(len(s.entries), func(i int) bool { return s.entries[i].End > point })
	return i < len(s.entries) && s.entries[i].Start <= point
}

// Overlapping returns the stored segments whose interiors intersect the
// query, in ascending order. The cost is proportional to the number of
// results, not the set size.
func (s *Set[T]) Overlapping(query Segment[T]) []Segment[T] {
	i := sort.Search(len(s.entries), func(i int) bool { return s.entries[i].End > query.Start })

	var out []Segment[T]
	for ; i < len(s.entries) && s.entries[i].Start < query.End; i++ {
		if s.entries[i].Overlaps(query) {
			out = append(out, s.entries[i])
		}
	}
	return out
}

// CoverageLength returns the total extent covered by the set.
func (s *Set[T]) CoverageLength() T {
	var total T
	for _, e := range s.entries {
		total += e.Length()
	}
	return total
}

// Len returns the number of stored segments.
func (s *Set[T]) Len() int {
	return len(s.entries)
}

// Segments returns a copy of the stored segments in ascending order.
func (s *Set[T]) Segments() []Segment[T] {
	return slices.Clone(s.entries)
}

// Bounds returns the minimal segment covering the whole set.
// The second return value is false when the set is empty.
func (s *Set[T]) Bounds() (Segment[T], bool) {
	if len(s.entries) == 0 {
		return Segment[T]{}, false
	}
	return Segment[T]{Start: s.entries[0].Start, End: s.entries[len(s.entries)-1].End}, true
}

// Equal reports whether both sets cover the same union of ranges.
func (s *Set[T]) Equal(other *Set[T]) bool {
	return slices.Equal(s.entries, other.entries)
}

// Clear removes all segments.
func (s *Set[T]) Clear() {
	s.entries = nil
}

func (s *Set[T]) String() string {
	parts := make([]string, len(s.entries))
	for i, e := range s.entries {
		parts[i] = e.String()
	}
	return "{" + strings.Join(parts, " ") + "}"
}
