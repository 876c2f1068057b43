// Package setalgebra composes OG sets of named taxon groups into lineage
// answers: core sets present in every presence group, losses relative to
// comparison groups, and universally conserved groups.
//
// Every function is pure. The order in which groups are supplied never
// changes set membership.
package setalgebra

import (
	"errors"
	"fmt"
	"math"
	"slices"

	"orthoset/internal/table"
	"orthoset/pkg/orthology"
	"orthoset/pkg/sets"
)

// ErrInvalidThreshold is returned when a universal fraction is outside (0, 1].
var ErrInvalidThreshold = errors.New("setalgebra: universal fraction must be in (0, 1]")

// Core returns the OGs present in every presence group. No groups yields
// the empty set.
func Core(presence ...orthology.NamedSet) orthology.OGSet {
	return sets.Intersection(setsOf(presence)...)
}

// TotalLoss returns the core OGs absent from every comparison group.
func TotalLoss(core orthology.OGSet, comparison ...orthology.NamedSet) orthology.OGSet {
	return sets.Difference(core, sets.Union(setsOf(comparison)...))
}

// PartialLoss returns, per comparison group X, the core OGs retained by at
// least one other comparison group but absent from X. With a single
// comparison group the result for it is empty.
func PartialLoss(core orthology.OGSet, comparison ...orthology.NamedSet) map[string]orthology.OGSet {
	out := make(map[string]orthology.OGSet, len(comparison))
	for i, x := range comparison {
		others := make([]orthology.OGSet, 0, len(comparison)-1)
		for j, o := range comparison {
			if j != i {
				others = append(others, o.Set)
			}
		}
		retained := sets.Intersection(core, sets.Union(others...))
		out[x.Name] = sets.Difference(retained, x.Set)
	}
	return out
}

// LossReport is the full lineage answer for one presence/comparison split.
type LossReport struct {
	Presence   []string                   `json:"presence"`
	Comparison []string                   `json:"comparison"`
	Core       orthology.OGSet            `json:"-"`
	TotalLoss  orthology.OGSet            `json:"-"`
	Partial    map[string]orthology.OGSet `json:"-"`
}

// Lineage computes Core, TotalLoss and PartialLoss in one call.
func Lineage(presence, comparison []orthology.NamedSet) LossReport {
	core := Core(presence...)
	return LossReport{
		Presence:   namesOf(presence),
		Comparison: namesOf(comparison),
		Core:       core,
		TotalLoss:  TotalLoss(core, comparison...),
		Partial:    PartialLoss(core, comparison...),
	}
}

// Universe returns every taxon observed in any row of a normalized table.
// Absent and malformed rows contribute nothing.
func Universe(t table.Table) (orthology.TaxonSet, error) {
	if !t.Normalized() {
		return nil, orthology.ErrMissingNormalizedColumn
	}
	out := make(orthology.TaxonSet)
	for i := 0; i < t.Len(); i++ {
		for taxon := range t.Row(i).Taxa {
			out.Add(taxon)
		}
	}
	return out, nil
}

// UniversalResult holds the OGs whose coverage meets the threshold.
type UniversalResult struct {
	Fraction     float64     `json:"fraction"`
	UniverseSize int         `json:"universe_size"`
	Threshold    int         `json:"threshold"`
	Rows         table.Table `json:"-"`
}

// IDs returns the ids of the universal OGs in table order.
func (u UniversalResult) IDs() []orthology.OGID { return u.Rows.IDs() }

// Threshold returns the minimum coverage for fraction of a universe of
// size n: ceil(fraction*n).
func Threshold(fraction float64, n int) (int, error) {
	if math.IsNaN(fraction) || fraction <= 0 || fraction > 1 {
		return 0, fmt.Errorf("%w: got %v", ErrInvalidThreshold, fraction)
	}
	// guards against 0.99*100 landing on 99.00000000000001
	return int(math.Ceil(fraction*float64(n) - 1e-9)), nil
}

// Universal returns the rows of t whose coverage is at least
// ceil(fraction * |Universe(t)|). The universe and threshold are recomputed
// from t on every call.
func Universal(t table.Table, fraction float64) (UniversalResult, error) {
	if _, err := Threshold(fraction, 0); err != nil {
		return UniversalResult{}, err
	}
	universe, err := Universe(t)
	if err != nil {
		return UniversalResult{}, err
	}
	threshold, err := Threshold(fraction, universe.Len())
	if err != nil {
		return UniversalResult{}, err
	}
	rows := t.Where(func(r orthology.Row) bool {
		return r.TaxaStatus == orthology.TaxaOK && r.Coverage >= threshold
	})
	return UniversalResult{
		Fraction:     fraction,
		UniverseSize: universe.Len(),
		Threshold:    threshold,
		Rows:         rows,
	}, nil
}

func setsOf(named []orthology.NamedSet) []orthology.OGSet {
	out := make([]orthology.OGSet, len(named))
	for i, n := range named {
		out[i] = n.Set
	}
	return out
}

func namesOf(named []orthology.NamedSet) []string {
	out := make([]string, len(named))
	for i, n := range named {
		out[i] = n.Name
	}
	slices.Sort(out)
	return out
}
