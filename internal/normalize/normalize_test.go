package normalize

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	"orthoset/pkg/orthology"
	"orthoset/pkg/sets"
)

func TestTaxonIDsExtractsPrefixes(t *testing.T) {
	got, err := TaxonIDs("9606.ENSP1, 10090.ENSMUSP2")
	if err != nil {
		t.Fatalf("TaxonIDs: %v", err)
	}
	if diff := cmp.Diff([]orthology.TaxonID{9606, 10090}, got.Sorted()); diff != "" {
		t.Fatalf("taxa mismatch (-want +got):\n%s", diff)
	}
	got, err = TaxonIDs("562.ECOLI1")
	if err != nil {
		t.Fatalf("TaxonIDs: %v", err)
	}
	if !got.Equal(sets.Of[orthology.TaxonID](562)) {
		t.Fatalf("expected {562}, got %v", got.Sorted())
	}
}

func TestTaxonIDsCollapsesDuplicates(t *testing.T) {
	got, err := TaxonIDs("9606.A,9606.B, 9606.C ,9598.D")
	if err != nil {
		t.Fatalf("TaxonIDs: %v", err)
	}
	if got.Len() != 2 {
		t.Fatalf("expected 2 distinct taxa, got %v", got.Sorted())
	}
}

func TestTaxonIDsRejectsNonNumericPrefix(t *testing.T) {
	_, err := TaxonIDs("9606.ENSP1, human.ENSP2")
	var malformed *orthology.MalformedIdentifierError
	if !errors.As(err, &malformed) {
		t.Fatalf("expected MalformedIdentifierError, got %v", err)
	}
	if malformed.Token != "human" || malformed.Row != -1 {
		t.Fatalf("unexpected error detail %+v", malformed)
	}
}

func TestCanonicalRoundTripIsIdempotent(t *testing.T) {
	inputs := []string{
		"9606.ENSP1, 10090.ENSMUSP2, 10116.ENSRNOP3",
		"562.ECOLI1",
		"7955.a,7955.b,31033.c",
		" 9031.X ",
	}
	for _, in := range inputs {
		first, err := TaxonIDs(in)
		if err != nil {
			t.Fatalf("TaxonIDs(%q): %v", in, err)
		}
		again, err := TaxonIDs(CanonicalTaxa(first))
		if err != nil {
			t.Fatalf("re-parse %q: %v", CanonicalTaxa(first), err)
		}
		if !again.Equal(first) {
			t.Fatalf("round trip changed %q: %v -> %v", in, first.Sorted(), again.Sorted())
		}
	}
	if got := CanonicalTaxa(sets.Of[orthology.TaxonID](10090, 9606)); got != "9606,10090" {
		t.Fatalf("unexpected canonical form %q", got)
	}
}

func TestTokensDelimiterClasses(t *testing.T) {
	if diff := cmp.Diff([]string{"1", "2", "3"}, Tokens("1, 2\t3", CommaOrWhitespace).Sorted()); diff != "" {
		t.Fatalf("comma+whitespace mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"1", "2 3"}, Tokens("1, 2 3", Comma).Sorted()); diff != "" {
		t.Fatalf("comma-only mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"9606.ENSP1"}, Tokens("9606.ENSP1,", CommaOrWhitespace).Sorted()); diff != "" {
		t.Fatalf("tokens must stay verbatim (-want +got):\n%s", diff)
	}
}

func TestMissingValueResolvesAbsentByDefault(t *testing.T) {
	for _, raw := range []string{"", "  ", "nan", "NaN", "NA"} {
		res, err := Options{}.Taxa(raw)
		if err != nil {
			t.Fatalf("Taxa(%q): %v", raw, err)
		}
		if res.Status != orthology.TaxaAbsent || res.Taxa.Len() != 0 {
			t.Fatalf("Taxa(%q) = %+v, want absent empty set", raw, res)
		}
		toks, present := Options{}.Tokens(raw, CommaOrWhitespace)
		if present || toks.Len() != 0 {
			t.Fatalf("Tokens(%q) = %v present=%v, want absent", raw, toks, present)
		}
	}
}

func TestMissingValuePlaceholderPolicy(t *testing.T) {
	opts := Options{Missing: MissingPlaceholder}
	toks, present := opts.Tokens("", CommaOrWhitespace)
	if !present || !toks.Equal(sets.Of(Placeholder)) {
		t.Fatalf("expected {nan}, got %v", toks.Sorted())
	}
	// "nan" is not an integer: abort surfaces it, skip records a warning.
	if _, err := opts.Taxa(""); err == nil {
		t.Fatalf("expected malformed error for placeholder under abort")
	}
	opts.Malformed = MalformedSkip
	res, err := opts.Taxa("nan")
	if err != nil {
		t.Fatalf("Taxa: %v", err)
	}
	if res.Status != orthology.TaxaMalformed || res.Warning == nil {
		t.Fatalf("expected malformed status with warning, got %+v", res)
	}
}
