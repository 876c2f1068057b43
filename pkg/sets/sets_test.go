package sets

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestUnionIntersectionDifference(t *testing.T) {
	a := Of(1, 2, 3)
	b := Of(2, 3, 4)
	c := Of(3, 4, 5)

	if diff := cmp.Diff([]int{1, 2, 3, 4, 5}, Union(a, b, c).Sorted()); diff != "" {
		t.Fatalf("union mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]int{3}, Intersection(a, b, c).Sorted()); diff != "" {
		t.Fatalf("intersection mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]int{1}, Difference(a, b).Sorted()); diff != "" {
		t.Fatalf("difference mismatch (-want +got):\n%s", diff)
	}
	if a.Len() != 3 || b.Len() != 3 {
		t.Fatalf("operands mutated: %v %v", a, b)
	}
}

func TestIntersectionOfNothingIsEmpty(t *testing.T) {
	if got := Intersection[string](); got.Len() != 0 || got == nil {
		t.Fatalf("expected empty non-nil set, got %v", got)
	}
}

func TestIntersectionOrderIndependent(t *testing.T) {
	a, b, c := Of("x", "y"), Of("y", "z"), Of("y", "x", "z")
	if !Intersection(a, b, c).Equal(Intersection(c, a, b)) {
		t.Fatalf("intersection depends on argument order")
	}
}

func TestSubsetAndEqual(t *testing.T) {
	if !Of[int]().SubsetOf(Of(1)) {
		t.Fatalf("empty set must be a subset")
	}
	if Of(1, 2).SubsetOf(Of(1)) {
		t.Fatalf("larger set cannot be a subset")
	}
	if !Of(1, 2).Equal(Of(2, 1)) {
		t.Fatalf("expected equal sets")
	}
	var nilSet Set[int]
	if nilSet.Has(1) || nilSet.Len() != 0 {
		t.Fatalf("nil set should behave as empty")
	}
	clone := nilSet.Clone()
	clone.Add(7)
	if !clone.Has(7) {
		t.Fatalf("clone of nil should be writable")
	}
}
