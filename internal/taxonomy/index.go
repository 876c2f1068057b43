// Package taxonomy resolves species names to taxon ids and back, and builds
// named taxon groups from species names.
package taxonomy

import (
	"errors"
	"fmt"
	"slices"
	"strconv"
	"strings"

	"golang.org/x/text/unicode/norm"

	"orthoset/pkg/orthology"
)

// Index is a hash index over the species lookup table. It is built once and
// read-only afterwards.
type Index struct {
	byName map[string]orthology.Species
	byID   map[orthology.TaxonID]orthology.Species
}

// NewIndex indexes records by name and by taxon id. Duplicate names or ids
// make every later lookup of that key ambiguous, so they are rejected here
// with one *orthology.LookupError per duplicated key.
func NewIndex(records []orthology.Species) (*Index, error) {
	names := make(map[string]int, len(records))
	ids := make(map[orthology.TaxonID]int, len(records))
	idx := &Index{
		byName: make(map[string]orthology.Species, len(records)),
		byID:   make(map[orthology.TaxonID]orthology.Species, len(records)),
	}
	for _, rec := range records {
		key := nameKey(rec.Name)
		names[key]++
		ids[rec.TaxID]++
		idx.byName[key] = rec
		idx.byID[rec.TaxID] = rec
	}

	var errs []error
	for _, key := range sortedKeys(names) {
		if n := names[key]; n > 1 {
			errs = append(errs, &orthology.LookupError{Key: key, Ambiguous: true, Matches: n})
		}
	}
	dupIDs := make([]orthology.TaxonID, 0)
	for id, n := range ids {
		if n > 1 {
			dupIDs = append(dupIDs, id)
		}
	}
	slices.Sort(dupIDs)
	for _, id := range dupIDs {
		errs = append(errs, &orthology.LookupError{Key: formatID(id), Ambiguous: true, Matches: ids[id]})
	}
	if len(errs) > 0 {
		return nil, fmt.Errorf("build species index: %w", errors.Join(errs...))
	}
	return idx, nil
}

// Len returns the number of indexed species.
func (x *Index) Len() int { return len(x.byID) }

// ID returns the taxon id of the species with the given name.
func (x *Index) ID(name string) (orthology.TaxonID, error) {
	rec, ok := x.byName[nameKey(name)]
	if !ok {
		return 0, &orthology.LookupError{Key: name}
	}
	return rec.TaxID, nil
}

// Name returns the species name of a taxon id.
func (x *Index) Name(id orthology.TaxonID) (string, error) {
	rec, ok := x.byID[id]
	if !ok {
		return "", &orthology.LookupError{Key: formatID(id)}
	}
	return rec.Name, nil
}

// Species returns the full record of a taxon id.
func (x *Index) Species(id orthology.TaxonID) (orthology.Species, bool) {
	rec, ok := x.byID[id]
	return rec, ok
}

// IDs resolves every name, in order. The first unresolved name fails the call.
func (x *Index) IDs(names []string) ([]orthology.TaxonID, error) {
	out := make([]orthology.TaxonID, 0, len(names))
	for _, name := range names {
		id, err := x.ID(name)
		if err != nil {
			return nil, fmt.Errorf("resolve species names: %w", err)
		}
		out = append(out, id)
	}
	return out, nil
}

// Names resolves every id to its species name, in order.
func (x *Index) Names(ids []orthology.TaxonID) ([]string, error) {
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		name, err := x.Name(id)
		if err != nil {
			return nil, fmt.Errorf("resolve species ids: %w", err)
		}
		out = append(out, name)
	}
	return out, nil
}

// ResolveGroup builds a named taxon group from species names.
func (x *Index) ResolveGroup(group string, speciesNames []string) (orthology.TaxonGroup, error) {
	ids, err := x.IDs(speciesNames)
	if err != nil {
		return orthology.TaxonGroup{}, fmt.Errorf("group %s: %w", group, err)
	}
	taxa := make(orthology.TaxonSet, len(ids))
	for _, id := range ids {
		taxa.Add(id)
	}
	return orthology.TaxonGroup{Name: group, Taxa: taxa}, nil
}

func nameKey(name string) string {
	return norm.NFC.String(strings.TrimSpace(name))
}

func formatID(id orthology.TaxonID) string {
	return strconv.FormatInt(int64(id), 10)
}

func sortedKeys(m map[string]int) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}
