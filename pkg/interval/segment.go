// Package interval provides half-open numeric segments and a coalescing
// segment set that maintains the canonical, minimal representation of a
// union of ranges under repeated insertion and removal.
package interval

import (
	"errors"
	"fmt"
)

// ErrInvalidRange is returned when a segment is constructed with
// start greater than end.
var ErrInvalidRange = errors.New("invalid range")

// Scalar is the set of types a segment can range over.
type Scalar interface {
	~int | ~int8 | ~int16 | ~int32 | ~int64 |
		~uint | ~uint8 | ~uint16 | ~uint32 | ~uint64 | ~uintptr |
		~float32 | ~float64
}

// Segment is an immutable half-open range [Start, End).
// A segment with Start == End is empty.
type Segment[T Scalar] struct {
	Start T
	End   T
}

// New creates a segment covering [start, end).
// It fails with ErrInvalidRange when start > end.
func New[T Scalar](start, end T) (Segment[T], error) {
	if start > end {
		return Segment[T]{}, fmt.Errorf("segment start %v greater than end %v: %w", start, end, ErrInvalidRange)
	}
	return Segment[T]{Start: start, End: end}, nil
}

// Empty reports whether the segment covers nothing.
func (s Segment[T]) Empty() bool {
	return s.Start == s.End
}

// Length returns the extent of the segment.
func (s Segment[T]) Length() T {
	return s.End - s.Start
}

// Overlaps reports whether the open interiors of s and other intersect.
// Touching segments such as [0,5) and [5,8) do not overlap.
func (s Segment[T]) Overlaps(other Segment[T]) bool {
	return max(s.Start, other.Start) < min(s.End, other.End)
}

// Touches reports whether s and other overlap or are adjacent.
// This is the relation the set's merge step uses: [0,5) and [5,8) touch.
func (s Segment[T]) Touches(other Segment[T]) bool {
	return max(s.Start, other.Start) <= min(s.End, other.End)
}

// Contains reports whether the point lies within [Start, End).
func (s Segment[T]) Contains(point T) bool {
	return s.Start <= point && point < s.End
}

// Intersect returns the overlap of s and other.
// The second return value is false when the segments do not overlap.
func (s Segment[T]) Intersect(other Segment[T]) (Segment[T], bool) {
	out := Segment[T]{
		Start: max(s.Start, other.Start),
		End:   min(s.End, other.End),
	}
	if out.Start < out.End {
		return out, true
	}
	return Segment[T]{}, false
}

// Compare orders segments by (Start, End). It returns -1 when s sorts
// before other, +1 when it sorts after, and 0 when the segments are equal.
func (s Segment[T]) Compare(other Segment[T]) int {
	switch {
	case s.Start < other.Start:
		return -1
	case s.Start > other.Start:
		return 1
	case s.End < other.End:
		return -1
	case s.End > other.End:
		return 1
	}
	return 0
}

func (s Segment[T]) String() string {
	return fmt.Sprintf("[%v,%v)", s.Start, s.End)
}
