// Package normalize turns raw per-row identifier strings into canonical
// identifier sets.
//
// Two modes exist. Taxon extraction reads "TAXID.PROTEINID, ..." lists and
// keeps the integer taxon prefix of each item. Plain tokens split a value on
// a delimiter class and keep every field verbatim.
//
// Missing values ("", whitespace, "nan", "NA") never parse as taxa. By
// default they resolve to an empty set flagged absent; MissingPlaceholder
// keeps the legacy reading where a missing value is the literal token "nan".
package normalize

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"

	"orthoset/pkg/orthology"
	"orthoset/pkg/sets"
)

// Placeholder is the literal token a missing value becomes under MissingPlaceholder.
const Placeholder = "nan"

// Delimiters selects the separator class used in plain-token mode.
type Delimiters uint8

const (
	Comma Delimiters = 1 << iota
	Whitespace

	CommaOrWhitespace = Comma | Whitespace
)

// MissingPolicy decides what a missing raw value resolves to.
type MissingPolicy uint8

const (
	// MissingAbsent resolves a missing value to an empty set marked absent.
	MissingAbsent MissingPolicy = iota
	// MissingPlaceholder resolves a missing value to the token "nan".
	MissingPlaceholder
)

// MalformedPolicy decides what happens when a taxon prefix is not numeric.
type MalformedPolicy uint8

const (
	// MalformedAbort fails the whole batch on the first malformed row.
	MalformedAbort MalformedPolicy = iota
	// MalformedSkip resolves the row to an empty set and records a warning.
	MalformedSkip
)

func (p MissingPolicy) String() string {
	if p == MissingPlaceholder {
		return "placeholder"
	}
	return "absent"
}

func (p MalformedPolicy) String() string {
	if p == MalformedSkip {
		return "skip"
	}
	return "abort"
}

// ParseMissingPolicy accepts "absent" (or "") and "placeholder".
func ParseMissingPolicy(s string) (MissingPolicy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "absent":
		return MissingAbsent, nil
	case "placeholder":
		return MissingPlaceholder, nil
	}
	return 0, fmt.Errorf("unknown missing-value policy %q", s)
}

// ParseMalformedPolicy accepts "abort" (or "") and "skip".
func ParseMalformedPolicy(s string) (MalformedPolicy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "abort":
		return MalformedAbort, nil
	case "skip":
		return MalformedSkip, nil
	}
	return 0, fmt.Errorf("unknown malformed-identifier policy %q", s)
}

// Options bundles the missing-value and malformed-identifier policies.
type Options struct {
	Missing   MissingPolicy
	Malformed MalformedPolicy
}

// Resolution is the outcome of resolving one raw taxon value under Options.
type Resolution struct {
	Taxa   orthology.TaxonSet
	Status orthology.TaxaStatus
	// Warning holds the parse failure of a row skipped under MalformedSkip.
	Warning error
}

// IsMissing reports whether raw stands for an absent value.
func IsMissing(raw string) bool {
	t := strings.TrimSpace(raw)
	switch {
	case t == "":
		return true
	case strings.EqualFold(t, Placeholder):
		return true
	case t == "NA", t == "<NA>":
		return true
	}
	return false
}

// TaxonIDs extracts the set of integer taxon prefixes from a comma-separated
// TAXID.PROTEINID list. Every item must carry a numeric prefix; otherwise a
// *orthology.MalformedIdentifierError is returned.
//
//	TaxonIDs("9606.ENSP1, 10090.ENSMUSP2") // {9606, 10090}
//	TaxonIDs("562.ECOLI1")                 // {562}
func TaxonIDs(raw string) (orthology.TaxonSet, error) {
	items := strings.Split(raw, ",")
	out := make(orthology.TaxonSet, len(items))
	for _, item := range items {
		prefix, _, _ := strings.Cut(strings.TrimSpace(item), ".")
		prefix = strings.TrimSpace(prefix)
		id, err := strconv.ParseInt(prefix, 10, 64)
		if err != nil {
			return nil, &orthology.MalformedIdentifierError{Raw: raw, Token: prefix, Row: -1, Err: err}
		}
		out.Add(orthology.TaxonID(id))
	}
	return out, nil
}

// Tokens splits raw on the delimiter class and returns the trimmed, non-empty
// fields as a set. No integer parsing or '.' splitting takes place.
func Tokens(raw string, d Delimiters) sets.Set[string] {
	out := make(sets.Set[string])
	for _, f := range Fields(raw, d) {
		out.Add(f)
	}
	return out
}

// Fields is Tokens preserving order and duplicates.
func Fields(raw string, d Delimiters) []string {
	if d == 0 {
		d = CommaOrWhitespace
	}
	parts := strings.FieldsFunc(raw, func(r rune) bool {
		if d&Comma != 0 && r == ',' {
			return true
		}
		return d&Whitespace != 0 && unicode.IsSpace(r)
	})
	out := parts[:0]
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// Taxa resolves a raw taxon column value under the configured policies.
// An error is only returned for malformed input under MalformedAbort.
func (o Options) Taxa(raw string) (Resolution, error) {
	if IsMissing(raw) {
		if o.Missing == MissingAbsent {
			return Resolution{Taxa: orthology.TaxonSet{}, Status: orthology.TaxaAbsent}, nil
		}
		raw = Placeholder
	}
	taxa, err := TaxonIDs(raw)
	if err != nil {
		if o.Malformed == MalformedSkip {
			return Resolution{Taxa: orthology.TaxonSet{}, Status: orthology.TaxaMalformed, Warning: err}, nil
		}
		return Resolution{}, err
	}
	return Resolution{Taxa: taxa, Status: orthology.TaxaOK}, nil
}

// Tokens resolves a raw plain-token value under the missing-value policy.
// The second result is false when the value was missing and resolved absent.
func (o Options) Tokens(raw string, d Delimiters) (sets.Set[string], bool) {
	if IsMissing(raw) {
		if o.Missing == MissingAbsent {
			return sets.Set[string]{}, false
		}
		return sets.Of(Placeholder), true
	}
	return Tokens(raw, d), true
}

// CanonicalTaxa renders a taxon set as ascending comma-joined ids. Parsing
// the result with TaxonIDs reproduces the set.
func CanonicalTaxa(s orthology.TaxonSet) string {
	ids := s.Sorted()
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = strconv.FormatInt(int64(id), 10)
	}
	return strings.Join(parts, ",")
}

// CanonicalTokens renders a token set as ascending comma-joined tokens.
func CanonicalTokens(s sets.Set[string]) string {
	return strings.Join(s.Sorted(), ",")
}
