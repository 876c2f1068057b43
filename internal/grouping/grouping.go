// Package grouping answers "which orthologous groups contain taxon X" over a
// normalized members table and builds the OG sets of named taxon groups.
package grouping

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"orthoset/internal/table"
	"orthoset/pkg/orthology"
	"orthoset/pkg/sets"
)

// GroupIDs scans t and returns the ids of the rows whose normalized taxon
// set contains taxon. t must have been normalized.
func GroupIDs(taxon orthology.TaxonID, t table.Table) (orthology.OGSet, error) {
	if !t.Normalized() {
		return nil, orthology.ErrMissingNormalizedColumn
	}
	out := make(orthology.OGSet)
	for i := 0; i < t.Len(); i++ {
		if r := t.Row(i); r.Taxa.Has(taxon) {
			out.Add(r.ID())
		}
	}
	return out, nil
}

// GroupOGs returns the union of GroupIDs over every taxon of group.
func GroupOGs(group orthology.TaxonGroup, t table.Table) (orthology.OGSet, error) {
	if !t.Normalized() {
		return nil, orthology.ErrMissingNormalizedColumn
	}
	parts := make([]orthology.OGSet, 0, group.Taxa.Len())
	for _, taxon := range group.Taxa.Sorted() {
		ids, err := GroupIDs(taxon, t)
		if err != nil {
			return nil, err
		}
		parts = append(parts, ids)
	}
	return sets.Union(parts...), nil
}

// Index is an inverted taxon -> OG index over one normalized table. It
// answers the same questions as GroupIDs without rescanning the table.
type Index struct {
	byTaxon map[orthology.TaxonID]orthology.OGSet
}

// NewIndex builds the inverted index of t.
func NewIndex(t table.Table) (*Index, error) {
	if !t.Normalized() {
		return nil, orthology.ErrMissingNormalizedColumn
	}
	idx := &Index{byTaxon: make(map[orthology.TaxonID]orthology.OGSet)}
	for i := 0; i < t.Len(); i++ {
		r := t.Row(i)
		for taxon := range r.Taxa {
			ogs, ok := idx.byTaxon[taxon]
			if !ok {
				ogs = make(orthology.OGSet)
				idx.byTaxon[taxon] = ogs
			}
			ogs.Add(r.ID())
		}
	}
	return idx, nil
}

// IDs returns the OGs containing taxon. The result is a copy.
func (x *Index) IDs(taxon orthology.TaxonID) orthology.OGSet {
	return x.byTaxon[taxon].Clone()
}

// Group returns the union of IDs over every taxon of g.
func (x *Index) Group(g orthology.TaxonGroup) orthology.OGSet {
	parts := make([]orthology.OGSet, 0, g.Taxa.Len())
	for taxon := range g.Taxa {
		parts = append(parts, x.byTaxon[taxon])
	}
	return sets.Union(parts...)
}

// Taxa returns every taxon observed in the indexed table.
func (x *Index) Taxa() orthology.TaxonSet {
	out := make(orthology.TaxonSet, len(x.byTaxon))
	for taxon := range x.byTaxon {
		out.Add(taxon)
	}
	return out
}

// BuildGroups computes the OG set of every group with at most workers
// goroutines (workers <= 0 means one per group). Each group is computed
// into its own set; results are returned in input order once every worker
// has finished. Group names must be unique.
func BuildGroups(ctx context.Context, x *Index, groups []orthology.TaxonGroup, workers int) ([]orthology.NamedSet, error) {
	seen := make(sets.Set[string], len(groups))
	for _, g := range groups {
		if seen.Has(g.Name) {
			return nil, fmt.Errorf("duplicate taxon group %q", g.Name)
		}
		seen.Add(g.Name)
	}

	results := make([]orthology.OGSet, len(groups))
	eg, ctx := errgroup.WithContext(ctx)
	if workers > 0 {
		eg.SetLimit(workers)
	}
	for i, g := range groups {
		i, g := i, g
		eg.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			results[i] = x.Group(g)
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, fmt.Errorf("build taxon groups: %w", err)
	}

	out := make([]orthology.NamedSet, len(groups))
	for i, g := range groups {
		out[i] = orthology.NamedSet{Name: g.Name, Set: results[i]}
	}
	return out, nil
}
