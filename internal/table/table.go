// Package table holds the typed members table and the row membership
// filters. A Table is immutable: every operation returns a new Table and
// leaves its input untouched.
package table

import (
	"errors"
	"fmt"
	"slices"
	"strconv"

	"orthoset/internal/normalize"
	"orthoset/pkg/orthology"
)

// Table is an ordered collection of orthologous-group rows.
type Table struct {
	rows       []orthology.Row
	normalized bool
	opts       normalize.Options
}

// Warning records a row that normalization skipped under MalformedSkip.
type Warning struct {
	Row int
	ID  orthology.OGID
	Err error
}

func (w Warning) Error() string {
	return fmt.Sprintf("row %d (%s): %v", w.Row, w.ID, w.Err)
}

// New builds a table from rows. The slice is copied.
func New(rows []orthology.Row) Table {
	return Table{rows: slices.Clone(rows)}
}

// Len returns the number of rows.
func (t Table) Len() int { return len(t.rows) }

// Row returns the i-th row.
func (t Table) Row(i int) orthology.Row { return t.rows[i] }

// Rows returns a copy of the rows. Taxon sets are shared and must be
// treated as read-only.
func (t Table) Rows() []orthology.Row { return slices.Clone(t.rows) }

// Normalized reports whether the normalized taxon columns are available.
func (t Table) Normalized() bool { return t.normalized }

// Options returns the policies the table was normalized with.
func (t Table) Options() normalize.Options { return t.opts }

// IDs returns the orthologous group id of every row, in row order.
func (t Table) IDs() []orthology.OGID {
	out := make([]orthology.OGID, len(t.rows))
	for i, r := range t.rows {
		out[i] = r.ID()
	}
	return out
}

// Columns lists the column names available on this table.
func (t Table) Columns() []string {
	cols := slices.Clone(orthology.SourceColumns)
	if t.normalized {
		cols = append(cols, orthology.DerivedColumns...)
	}
	return cols
}

// Value returns the string form of a column of the i-th row.
func (t Table) Value(i int, column string) (string, error) {
	get, err := t.accessor(column)
	if err != nil {
		return "", err
	}
	return get(t.rows[i]), nil
}

// Where returns the rows for which keep reports true.
func (t Table) Where(keep func(orthology.Row) bool) Table {
	out := t.derive(nil)
	for _, r := range t.rows {
		if keep(r) {
			out.rows = append(out.rows, r)
		}
	}
	return out
}

// WithSpeciesCount keeps the rows whose num_of_species equals n.
func (t Table) WithSpeciesCount(n int) Table {
	return t.Where(func(r orthology.Row) bool { return r.NumSpecies == n })
}

// derive returns an empty table carrying t's normalization state.
func (t Table) derive(rows []orthology.Row) Table {
	return Table{rows: rows, normalized: t.normalized, opts: t.opts}
}

func (t Table) accessor(column string) (func(orthology.Row) string, error) {
	switch column {
	case orthology.ColumnEvolutionaryLevel:
		return func(r orthology.Row) string { return r.EvolutionaryLevel }, nil
	case orthology.ColumnOGID:
		return func(r orthology.Row) string { return string(r.ID()) }, nil
	case orthology.ColumnNumProteins:
		return func(r orthology.Row) string { return strconv.Itoa(r.NumProteins) }, nil
	case orthology.ColumnNumSpecies:
		return func(r orthology.Row) string { return strconv.Itoa(r.NumSpecies) }, nil
	case orthology.ColumnProteinIDs:
		return func(r orthology.Row) string { return r.ProteinIDs }, nil
	case orthology.ColumnSpeciesTaxa:
		return func(r orthology.Row) string { return r.SpeciesTaxa }, nil
	case orthology.ColumnNormalizedTaxa, orthology.ColumnCoverage:
		if !t.normalized {
			return nil, fmt.Errorf("%w: %w", orthology.ErrMissingNormalizedColumn, t.columnNotFound(column))
		}
		if column == orthology.ColumnCoverage {
			return func(r orthology.Row) string { return strconv.Itoa(r.Coverage) }, nil
		}
		return func(r orthology.Row) string { return normalize.CanonicalTaxa(r.Taxa) }, nil
	}
	return nil, t.columnNotFound(column)
}

func (t Table) columnNotFound(column string) error {
	return &orthology.ColumnNotFoundError{Column: column, Available: t.Columns()}
}

// Normalize resolves every row's taxon column into a taxon set and coverage
// count and returns the enriched table. Under MalformedAbort the first
// malformed row fails the whole batch; under MalformedSkip malformed rows get
// an empty set and are reported as warnings.
func Normalize(t Table, opts normalize.Options) (Table, []Warning, error) {
	out := Table{rows: make([]orthology.Row, len(t.rows)), normalized: true, opts: opts}
	var warnings []Warning
	for i, r := range t.rows {
		res, err := opts.Taxa(r.SpeciesTaxa)
		if err != nil {
			var malformed *orthology.MalformedIdentifierError
			if errors.As(err, &malformed) {
				annotated := *malformed
				annotated.Row = i
				return Table{}, nil, &annotated
			}
			return Table{}, nil, fmt.Errorf("row %d: %w", i, err)
		}
		if res.Warning != nil {
			warnings = append(warnings, Warning{Row: i, ID: r.ID(), Err: res.Warning})
		}
		r.Taxa = res.Taxa
		r.TaxaStatus = res.Status
		r.Coverage = res.Taxa.Len()
		out.rows[i] = r
	}
	return out, warnings, nil
}
