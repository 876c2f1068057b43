// Package sets provides a small generic set type used for taxon and
// orthologous-group membership. Operations never mutate their operands;
// Add is only meant for building a set that has not been shared yet.
package sets

import (
	"cmp"
	"slices"
)

// Set is an unordered collection of distinct values.
type Set[T cmp.Ordered] map[T]struct{}

// Of returns a set holding the given items.
func Of[T cmp.Ordered](items ...T) Set[T] {
	s := make(Set[T], len(items))
	for _, item := range items {
		s[item] = struct{}{}
	}
	return s
}

// Add inserts v.
func (s Set[T]) Add(v T) { s[v] = struct{}{} }

// Has reports whether v is a member.
func (s Set[T]) Has(v T) bool {
	_, ok := s[v]
	return ok
}

// Len returns the number of members. A nil set has zero members.
func (s Set[T]) Len() int { return len(s) }

// Clone returns an independent copy. Cloning nil yields an empty, non-nil set.
func (s Set[T]) Clone() Set[T] {
	out := make(Set[T], len(s))
	for k := range s {
		out[k] = struct{}{}
	}
	return out
}

// Sorted returns the members in ascending order.
func (s Set[T]) Sorted() []T {
	out := make([]T, 0, len(s))
	for k := range s {
		out = append(out, k)
	}
	slices.Sort(out)
	return out
}

// SubsetOf reports whether every member of s is also in o.
func (s Set[T]) SubsetOf(o Set[T]) bool {
	if len(s) > len(o) {
		return false
	}
	for k := range s {
		if !o.Has(k) {
			return false
		}
	}
	return true
}

// Equal reports whether both sets hold exactly the same members.
func (s Set[T]) Equal(o Set[T]) bool {
	return len(s) == len(o) && s.SubsetOf(o)
}

// Union returns a new set holding every member of every input.
func Union[T cmp.Ordered](in ...Set[T]) Set[T] {
	size := 0
	for _, s := range in {
		size = max(size, len(s))
	}
	out := make(Set[T], size)
	for _, s := range in {
		for k := range s {
			out[k] = struct{}{}
		}
	}
	return out
}

// Intersection returns a new set holding the members common to all inputs.
// The intersection of no sets is empty.
func Intersection[T cmp.Ordered](in ...Set[T]) Set[T] {
	if len(in) == 0 {
		return Set[T]{}
	}
	// iterate over the smallest input
	smallest := 0
	for i, s := range in {
		if len(s) < len(in[smallest]) {
			smallest = i
		}
	}
	out := make(Set[T])
	for k := range in[smallest] {
		keep := true
		for i, s := range in {
			if i != smallest && !s.Has(k) {
				keep = false
				break
			}
		}
		if keep {
			out[k] = struct{}{}
		}
	}
	return out
}

// Difference returns a - b as a new set.
func Difference[T cmp.Ordered](a, b Set[T]) Set[T] {
	out := make(Set[T], len(a))
	for k := range a {
		if !b.Has(k) {
			out[k] = struct{}{}
		}
	}
	return out
}
