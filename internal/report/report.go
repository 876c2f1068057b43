// Package report renders the answers of an analysis run into result files
// and publishes them to an artifact store under a run-scoped prefix.
package report

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"path"
	"strconv"
	"strings"

	"orthoset/internal/analysis"
	"orthoset/internal/blob"
	"orthoset/internal/table"
	"orthoset/pkg/orthology"
)

// Artifact names, matching the result files of the reference analysis.
const (
	HomologsFile        = "1_A_homologs.txt"
	ProteinIDsFile      = "1_B_unique_protein_IDs.txt"
	CategoriesFile      = "1_C_functional_category_counts.csv"
	ExclusiveFile       = "1_D_exclusive_ogs.tsv"
	LineageSpecificFile = "1_E_lineage_specific_ogs.tsv"
	LineageFile         = "2_detailed_results.txt"
	UniversalFile       = "3_universal_ogs.tsv"
	SummaryFile         = "COMPLETE_SUMMARY.txt"
	SummaryJSONFile     = "summary.json"
)

// lossExamples caps the OG ids listed under "lost in all".
const lossExamples = 10

const rule = "================================================================================"

// Artifact is one rendered result file.
type Artifact struct {
	Name        string
	ContentType string
	Rows        int
	Payload     []byte
}

// Published is an artifact as stored.
type Published struct {
	Name string    `json:"name"`
	Info blob.Info `json:"info"`
	// URL is a shareable link when the store can sign one.
	URL string `json:"url,omitempty"`
}

// Materialize renders every artifact of res in a stable order.
func Materialize(res analysis.Result) ([]Artifact, error) {
	var out []Artifact
	add := func(name, contentType string, rows int, payload []byte) {
		out = append(out, Artifact{Name: name, ContentType: contentType, Rows: rows, Payload: payload})
	}

	add(HomologsFile, "text/plain", res.Homologs.Rows.Len(), []byte(HomologSentence(res.Homologs)))
	add(ProteinIDsFile, "text/plain", len(res.Homologs.ProteinIDs), []byte(strings.Join(res.Homologs.ProteinIDs, "\n")))

	categories := make([][]string, 0, len(res.Homologs.Categories))
	for _, c := range res.Homologs.Categories {
		categories = append(categories, []string{c.Code, strconv.Itoa(c.Count), c.Description})
	}
	payload, err := delimited(',', []string{"category_code", "count", "description"}, categories)
	if err != nil {
		return nil, fmt.Errorf("render %s: %w", CategoriesFile, err)
	}
	add(CategoriesFile, "text/csv", len(categories), payload)

	for _, tbl := range []struct {
		name string
		rows table.Table
	}{
		{ExclusiveFile, res.Homologs.Exclusive},
		{LineageSpecificFile, res.LineageSpecific.Rows},
	} {
		payload, err := ogTable(tbl.rows, orthology.ColumnSpeciesTaxa)
		if err != nil {
			return nil, fmt.Errorf("render %s: %w", tbl.name, err)
		}
		add(tbl.name, "text/tab-separated-values", tbl.rows.Len(), payload)
	}

	add(LineageFile, "text/plain", res.Lineage.Core.Len(), []byte(lineageText(res)))

	universal := make([][]string, 0, res.Universal.Rows.Len())
	for _, r := range res.Universal.Rows.Rows() {
		universal = append(universal, []string{string(r.ID()), strconv.Itoa(r.Coverage)})
	}
	payload, err = delimited('\t', []string{orthology.ColumnOGID, "actual_sp_count"}, universal)
	if err != nil {
		return nil, fmt.Errorf("render %s: %w", UniversalFile, err)
	}
	add(UniversalFile, "text/tab-separated-values", len(universal), payload)

	add(SummaryFile, "text/plain", 0, []byte(summaryText(res)))

	payload, err = json.MarshalIndent(struct {
		RunID string `json:"run_id"`
		analysis.Summary
	}{res.RunID, res.Summary}, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal summary: %w", err)
	}
	add(SummaryJSONFile, "application/json", 0, payload)
	return out, nil
}

// Publish writes artifacts under prefix. Signed URLs are attached when the
// store supports them; an unsupported store is not an error.
func Publish(ctx context.Context, store blob.Store, prefix string, artifacts []Artifact) ([]Published, error) {
	out := make([]Published, 0, len(artifacts))
	for _, a := range artifacts {
		key := path.Join(prefix, a.Name)
		info, err := store.Put(ctx, key, bytes.NewReader(a.Payload), blob.PutOptions{
			ContentType: a.ContentType,
			Metadata:    map[string]string{"rows": strconv.Itoa(a.Rows)},
		})
		if err != nil {
			return out, fmt.Errorf("store artifact %s: %w", a.Name, err)
		}
		p := Published{Name: a.Name, Info: info}
		url, err := store.SignedURL(ctx, key, blob.SignedURLOptions{})
		switch {
		case err == nil:
			p.URL = url
		case !errors.Is(err, blob.ErrUnsupported):
			return out, fmt.Errorf("sign artifact %s: %w", a.Name, err)
		}
		out = append(out, p)
	}
	return out, nil
}

// HomologSentence is the one-line answer to the shared-homolog query.
func HomologSentence(h analysis.Homologs) string {
	return fmt.Sprintf("We identified %d homologous genes shared by \"%s\" that have diverged or are absent in \"%s\"",
		h.Rows.Len(), speciesNames(h.Include), speciesNames(h.Exclude))
}

func speciesNames(species []orthology.Species) string {
	names := make([]string, len(species))
	for i, s := range species {
		names[i] = s.Name
	}
	return strings.Join(names, ", ")
}

func ogTable(t table.Table, column string) ([]byte, error) {
	rows := make([][]string, t.Len())
	for i := range rows {
		v, err := t.Value(i, column)
		if err != nil {
			return nil, err
		}
		rows[i] = []string{string(t.Row(i).ID()), v}
	}
	return delimited('\t', []string{orthology.ColumnOGID, column}, rows)
}

func delimited(comma rune, header []string, rows [][]string) ([]byte, error) {
	buf := &bytes.Buffer{}
	w := csv.NewWriter(buf)
	w.Comma = comma
	if err := w.Write(header); err != nil {
		return nil, err
	}
	if err := w.WriteAll(rows); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func lineageText(res analysis.Result) string {
	l := res.Lineage
	var b strings.Builder
	fmt.Fprintf(&b, "Evolutionary Analysis: %s vs %s\n", strings.Join(l.Presence, ", "), strings.Join(l.Comparison, ", "))
	b.WriteString(rule[:60] + "\n")
	fmt.Fprintf(&b, "Conserved in %s: %d\n", strings.Join(l.Presence, "+"), l.Core.Len())
	fmt.Fprintf(&b, "Lost in all of %s: %d\n", strings.Join(l.Comparison, ", "), l.TotalLoss.Len())
	for _, name := range l.Comparison {
		fmt.Fprintf(&b, "Lost ONLY in %s: %d\n", name, l.Partial[name].Len())
	}
	examples := l.TotalLoss.Sorted()
	if len(examples) > lossExamples {
		examples = examples[:lossExamples]
	}
	b.WriteString("\nExample OGs lost in all:\n")
	for i, og := range examples {
		if i > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(string(og))
	}
	return b.String()
}

func summaryText(res analysis.Result) string {
	s := res.Summary
	l := res.Lineage
	var b strings.Builder
	line := func(format string, args ...any) { fmt.Fprintf(&b, format+"\n", args...) }
	line(rule)
	line("METAZOAN GENE CONSERVATION AND LOSS ANALYSIS - COMPLETE SUMMARY")
	line("Run %s", res.RunID)
	line(rule)
	line("")
	line("QUESTION 1: LINEAGE-SPECIFIC GENE ANALYSIS")
	line("%s", strings.Repeat("-", len(rule)))
	line("1A) Homologs in %s but NOT in %s: %d OGs", speciesNames(res.Homologs.Include), speciesNames(res.Homologs.Exclude), s.Homologs)
	line("1B) Unique protein IDs: %d", s.ProteinIDs)
	line("1C) Functional categories found: %d", s.Categories)
	line("    Top %d categories:", len(s.TopCategories))
	for _, c := range s.TopCategories {
		line("      - %s: %d genes", c.Code, c.Count)
	}
	line("1D) OGs found ONLY in %s: %d OGs", speciesNames(res.Homologs.Include), s.Exclusive)
	line("1E) %s-specific OGs: %d OGs", res.LineageSpecific.Name, s.LineageSpecific)
	line("")
	line("QUESTION 2: LINEAGE ANALYSIS")
	line("%s", strings.Repeat("-", len(rule)))
	line("Core OGs (%s): %d", strings.Join(l.Presence, " + "), s.Core)
	line("Lost in ALL of %s: %d", strings.Join(l.Comparison, ", "), s.LostInAll)
	for _, name := range l.Comparison {
		line("Lost ONLY in %s: %d", name, s.LostOnlyIn[name])
	}
	line("")
	line("QUESTION 3: UNIVERSAL GENES")
	line("%s", strings.Repeat("-", len(rule)))
	line("Total unique species in dataset: %d", s.Species)
	line("Universal OGs (fraction %g, coverage >= %d): %d", res.Universal.Fraction, s.Threshold, s.Universal)
	if s.SkippedRows > 0 {
		line("")
		line("Rows skipped for malformed taxon identifiers: %d", s.SkippedRows)
	}
	line(rule)
	return b.String()
}
