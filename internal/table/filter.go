package table

import (
	"strconv"
	"strings"
	"unicode"

	"orthoset/internal/normalize"
	"orthoset/pkg/orthology"
	"orthoset/pkg/sets"
)

// FilterByTokens keeps the rows whose column value contains every include
// token and none of the exclude tokens.
//
// Matching is whole-token and case-sensitive. The value is split on commas
// and whitespace, and each field counts as a token together with its word
// parts. A word is a run of letters, digits and underscores, so "9606"
// matches "9606.ENSP1" and "9606-ENSP1" but never "96060" or "9606_X".
// Empty include and exclude sets impose no constraint.
func FilterByTokens(t Table, column string, include, exclude sets.Set[string]) (Table, error) {
	get, err := t.accessor(column)
	if err != nil {
		return Table{}, err
	}
	if include.Len() == 0 && exclude.Len() == 0 {
		return t.derive(t.Rows()), nil
	}
	out := t.derive(nil)
	for _, r := range t.rows {
		tokens := wordTokens(get(r))
		if include.SubsetOf(tokens) && !intersects(tokens, exclude) {
			out.rows = append(out.rows, r)
		}
	}
	return out, nil
}

// FilterByTaxa is FilterByTokens with taxon ids as criteria.
func FilterByTaxa(t Table, column string, include, exclude []orthology.TaxonID) (Table, error) {
	return FilterByTokens(t, column, taxonTokens(include), taxonTokens(exclude))
}

// FilterSubset keeps the rows whose whole token set, split on commas and
// whitespace, lies inside allowed. A single disallowed token drops the row.
// Missing values follow the table's missing-value policy: absent rows are
// dropped, placeholder rows carry the "nan" token.
func FilterSubset(t Table, column string, allowed sets.Set[string]) (Table, error) {
	get, err := t.accessor(column)
	if err != nil {
		return Table{}, err
	}
	out := t.derive(nil)
	for _, r := range t.rows {
		tokens, present := t.opts.Tokens(get(r), normalize.CommaOrWhitespace)
		if present && tokens.SubsetOf(allowed) {
			out.rows = append(out.rows, r)
		}
	}
	return out, nil
}

// FilterSubsetTaxa is FilterSubset with taxon ids as the allowed set.
func FilterSubsetTaxa(t Table, column string, allowed []orthology.TaxonID) (Table, error) {
	return FilterSubset(t, column, taxonTokens(allowed))
}

// UniqueTokens returns the distinct comma-separated tokens of a column across
// all rows, in first-seen order.
func UniqueTokens(t Table, column string) ([]string, error) {
	get, err := t.accessor(column)
	if err != nil {
		return nil, err
	}
	seen := make(sets.Set[string])
	var out []string
	for _, r := range t.rows {
		for _, tok := range normalize.Fields(get(r), normalize.Comma) {
			if !seen.Has(tok) {
				seen.Add(tok)
				out = append(out, tok)
			}
		}
	}
	return out, nil
}

func wordTokens(value string) sets.Set[string] {
	out := make(sets.Set[string])
	for _, field := range normalize.Fields(value, normalize.CommaOrWhitespace) {
		out.Add(field)
		for _, word := range strings.FieldsFunc(field, notWordRune) {
			out.Add(word)
		}
	}
	return out
}

func notWordRune(r rune) bool {
	return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '_'
}

func intersects(a, b sets.Set[string]) bool {
	for k := range b {
		if a.Has(k) {
			return true
		}
	}
	return false
}

func taxonTokens(ids []orthology.TaxonID) sets.Set[string] {
	out := make(sets.Set[string], len(ids))
	for _, id := range ids {
		out.Add(strconv.FormatInt(int64(id), 10))
	}
	return out
}
