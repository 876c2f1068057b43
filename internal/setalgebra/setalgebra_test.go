package setalgebra

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	"orthoset/internal/normalize"
	"orthoset/internal/table"
	"orthoset/pkg/orthology"
	"orthoset/pkg/sets"
)

func named(name string, ids ...orthology.OGID) orthology.NamedSet {
	return orthology.NamedSet{Name: name, Set: sets.Of(ids...)}
}

func TestLineageConsistency(t *testing.T) {
	primates := named("primates", "A", "B", "C", "D", "E")
	chicken := named("chicken", "A", "B", "C", "D")
	fish := named("fish", "A", "B", "C", "D", "F")
	mouse := named("mouse", "A", "C")
	rat := named("rat", "A", "B")

	report := Lineage(
		[]orthology.NamedSet{primates, chicken, fish},
		[]orthology.NamedSet{mouse, rat},
	)
	if diff := cmp.Diff([]orthology.OGID{"A", "B", "C", "D"}, report.Core.Sorted()); diff != "" {
		t.Fatalf("core (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]orthology.OGID{"D"}, report.TotalLoss.Sorted()); diff != "" {
		t.Fatalf("total loss (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]orthology.OGID{"B"}, report.Partial["mouse"].Sorted()); diff != "" {
		t.Fatalf("lost only in mouse (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]orthology.OGID{"C"}, report.Partial["rat"].Sorted()); diff != "" {
		t.Fatalf("lost only in rat (-want +got):\n%s", diff)
	}

	if !report.TotalLoss.SubsetOf(report.Core) {
		t.Fatalf("total loss must be a subset of core")
	}
	for name, partial := range report.Partial {
		if !partial.SubsetOf(report.Core) {
			t.Fatalf("partial loss %s must be a subset of core", name)
		}
		if len(sets.Intersection(partial, report.TotalLoss)) != 0 {
			t.Fatalf("partial loss %s overlaps total loss", name)
		}
	}
}

func TestGroupOrderDoesNotMatter(t *testing.T) {
	a := named("a", "1", "2", "3")
	b := named("b", "2", "3", "4")
	c := named("c", "3", "2")
	x := named("x", "2")
	y := named("y", "9")

	first := Lineage([]orthology.NamedSet{a, b, c}, []orthology.NamedSet{x, y})
	second := Lineage([]orthology.NamedSet{c, a, b}, []orthology.NamedSet{y, x})
	if !first.Core.Equal(second.Core) || !first.TotalLoss.Equal(second.TotalLoss) {
		t.Fatalf("group order changed membership")
	}
	for name := range first.Partial {
		if !first.Partial[name].Equal(second.Partial[name]) {
			t.Fatalf("partial loss %s changed with order", name)
		}
	}
}

func TestSingleComparisonGroupHasNoPartialLoss(t *testing.T) {
	core := sets.Of[orthology.OGID]("A", "B")
	got := PartialLoss(core, named("mouse", "A"))
	if got["mouse"].Len() != 0 {
		t.Fatalf("expected empty partial loss, got %v", got["mouse"].Sorted())
	}
}

func TestCoreOfNoGroupsIsEmpty(t *testing.T) {
	if Core().Len() != 0 {
		t.Fatalf("expected empty core")
	}
}

func coverageTable(t *testing.T) table.Table {
	t.Helper()
	raw := table.New([]orthology.Row{
		{OrthologousGroupID: "all", SpeciesTaxa: "1.a,2.a,3.a,4.a"},
		{OrthologousGroupID: "three", SpeciesTaxa: "1.b,2.b,3.b"},
		{OrthologousGroupID: "two", SpeciesTaxa: "1.c,2.c"},
		{OrthologousGroupID: "missing", SpeciesTaxa: "nan"},
	})
	tbl, _, err := table.Normalize(raw, normalize.Options{})
	if err != nil {
		t.Fatalf("normalize: %v", err)
	}
	return tbl
}

func TestUniverseIgnoresAbsentRows(t *testing.T) {
	u, err := Universe(coverageTable(t))
	if err != nil {
		t.Fatalf("Universe: %v", err)
	}
	if diff := cmp.Diff([]orthology.TaxonID{1, 2, 3, 4}, u.Sorted()); diff != "" {
		t.Fatalf("universe (-want +got):\n%s", diff)
	}
}

func TestUniversalInclusiveBoundary(t *testing.T) {
	tbl := coverageTable(t)
	got, err := Universal(tbl, 0.75)
	if err != nil {
		t.Fatalf("Universal: %v", err)
	}
	if got.Threshold != 3 || got.UniverseSize != 4 {
		t.Fatalf("expected threshold 3 of 4, got %d of %d", got.Threshold, got.UniverseSize)
	}
	if diff := cmp.Diff([]orthology.OGID{"all", "three"}, got.IDs()); diff != "" {
		t.Fatalf("universal (-want +got):\n%s", diff)
	}
	full, err := Universal(tbl, 1)
	if err != nil {
		t.Fatalf("Universal: %v", err)
	}
	if diff := cmp.Diff([]orthology.OGID{"all"}, full.IDs()); diff != "" {
		t.Fatalf("universal at 1.0 (-want +got):\n%s", diff)
	}
}

func TestUniversalMonotonic(t *testing.T) {
	tbl := coverageTable(t)
	fractions := []float64{0.1, 0.25, 0.5, 0.6, 0.75, 0.9, 0.99, 1}
	prev := -1
	for _, f := range fractions {
		got, err := Universal(tbl, f)
		if err != nil {
			t.Fatalf("Universal(%v): %v", f, err)
		}
		n := got.Rows.Len()
		if prev >= 0 && n > prev {
			t.Fatalf("raising fraction to %v grew result from %d to %d", f, prev, n)
		}
		prev = n
	}
}

func TestThresholdRounding(t *testing.T) {
	cases := []struct {
		fraction float64
		n, want  int
	}{
		{0.99, 100, 99},
		{0.99, 101, 100},
		{0.5, 3, 2},
		{1, 7, 7},
		{0.01, 1, 1},
	}
	for _, tc := range cases {
		got, err := Threshold(tc.fraction, tc.n)
		if err != nil {
			t.Fatalf("Threshold(%v, %d): %v", tc.fraction, tc.n, err)
		}
		if got != tc.want {
			t.Fatalf("Threshold(%v, %d) = %d, want %d", tc.fraction, tc.n, got, tc.want)
		}
	}
}

func TestUniversalRejectsInvalidFraction(t *testing.T) {
	tbl := coverageTable(t)
	for _, f := range []float64{0, -0.5, 1.01} {
		if _, err := Universal(tbl, f); !errors.Is(err, ErrInvalidThreshold) {
			t.Fatalf("fraction %v: expected ErrInvalidThreshold, got %v", f, err)
		}
	}
}

func TestUniversalRequiresNormalizedTable(t *testing.T) {
	raw := table.New([]orthology.Row{{OrthologousGroupID: "OG1", SpeciesTaxa: "1.a"}})
	if _, err := Universal(raw, 0.5); !errors.Is(err, orthology.ErrMissingNormalizedColumn) {
		t.Fatalf("expected ErrMissingNormalizedColumn, got %v", err)
	}
}
