package report

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"orthoset/internal/analysis"
	"orthoset/internal/blob"
	"orthoset/internal/config"
	"orthoset/pkg/orthology"
)

func runFixture(t *testing.T) analysis.Result {
	t.Helper()
	in := analysis.Inputs{
		Members: []orthology.Row{
			{OrthologousGroupID: "OG1", NumSpecies: 2, ProteinIDs: "9606.P1,9598.P2", SpeciesTaxa: "9606.P1,9598.P2"},
			{OrthologousGroupID: "OG2", NumSpecies: 3, ProteinIDs: "9606.P3,9598.P4,10090.P5", SpeciesTaxa: "9606.P3,9598.P4,10090.P5"},
		},
		Species: []orthology.Species{
			{TaxID: 9606, Name: "Homo sapiens"},
			{TaxID: 9598, Name: "Pan troglodytes"},
			{TaxID: 10090, Name: "Mus musculus"},
		},
		Annotations: []orthology.Annotation{{OrthologousGroupID: "OG1", FunctionalCategory: "K"}},
		Categories:  []orthology.FunctionalCategory{{Code: "K", Description: "Transcription"}},
	}
	primates := config.GroupSpec{Name: "primates", Species: []string{"Homo sapiens", "Pan troglodytes"}}
	q := config.QueriesConfig{
		Homologs:        config.HomologQuery{Include: primates.Species, Exclude: []string{"Mus musculus"}},
		LineageSpecific: primates,
		Lineage: config.LineageQuery{
			Presence:   []config.GroupSpec{primates},
			Comparison: []config.GroupSpec{{Name: "mouse", Species: []string{"Mus musculus"}}},
		},
		UniversalFraction: 1,
	}
	res, err := analysis.Run(context.Background(), in, q, analysis.Options{RunID: "run-42"})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	return res
}

func byName(t *testing.T, artifacts []Artifact) map[string]Artifact {
	t.Helper()
	out := make(map[string]Artifact, len(artifacts))
	for _, a := range artifacts {
		out[a.Name] = a
	}
	return out
}

func TestMaterialize(t *testing.T) {
	artifacts, err := Materialize(runFixture(t))
	if err != nil {
		t.Fatalf("materialize: %v", err)
	}
	var names []string
	for _, a := range artifacts {
		names = append(names, a.Name)
	}
	wantNames := []string{
		HomologsFile, ProteinIDsFile, CategoriesFile, ExclusiveFile, LineageSpecificFile,
		LineageFile, UniversalFile, SummaryFile, SummaryJSONFile,
	}
	if diff := cmp.Diff(wantNames, names); diff != "" {
		t.Fatalf("artifact order (-want +got):\n%s", diff)
	}

	got := byName(t, artifacts)
	wantPayloads := map[string]string{
		HomologsFile:        `We identified 1 homologous genes shared by "Homo sapiens, Pan troglodytes" that have diverged or are absent in "Mus musculus"`,
		ProteinIDsFile:      "9606.P1\n9598.P2",
		CategoriesFile:      "category_code,count,description\nK,1,Transcription\n",
		ExclusiveFile:       "orthologous_group_id\tspecies_taxid_containing_protein\nOG1\t9606.P1,9598.P2\n",
		LineageSpecificFile: "orthologous_group_id\tspecies_taxid_containing_protein\nOG1\t9606.P1,9598.P2\n",
		UniversalFile:       "orthologous_group_id\tactual_sp_count\nOG2\t3\n",
	}
	for name, want := range wantPayloads {
		if diff := cmp.Diff(want, string(got[name].Payload)); diff != "" {
			t.Fatalf("%s (-want +got):\n%s", name, diff)
		}
	}
	if got[UniversalFile].Rows != 1 || got[UniversalFile].ContentType != "text/tab-separated-values" {
		t.Fatalf("unexpected universal artifact %+v", got[UniversalFile])
	}

	lineage := string(got[LineageFile].Payload)
	for _, want := range []string{"Conserved in primates: 2", "Lost in all of mouse: 1", "Lost ONLY in mouse: 0", "Example OGs lost in all:\nOG1"} {
		if !strings.Contains(lineage, want) {
			t.Fatalf("lineage report missing %q:\n%s", want, lineage)
		}
	}
	summary := string(got[SummaryFile].Payload)
	for _, want := range []string{"Run run-42", "1A) Homologs in Homo sapiens, Pan troglodytes but NOT in Mus musculus: 1 OGs", "      - K: 1 genes", "Universal OGs (fraction 1, coverage >= 3): 1"} {
		if !strings.Contains(summary, want) {
			t.Fatalf("summary missing %q:\n%s", want, summary)
		}
	}

	var decoded struct {
		RunID     string `json:"run_id"`
		Homologs  int    `json:"homologs"`
		LostInAll int    `json:"lost_in_all"`
	}
	if err := json.Unmarshal(got[SummaryJSONFile].Payload, &decoded); err != nil {
		t.Fatalf("decode summary json: %v", err)
	}
	if decoded.RunID != "run-42" || decoded.Homologs != 1 || decoded.LostInAll != 1 {
		t.Fatalf("unexpected summary json %+v", decoded)
	}
}

func TestPublishMemory(t *testing.T) {
	ctx := context.Background()
	store, err := blob.Open(ctx, blob.Config{Driver: blob.DriverMemory})
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	artifacts, err := Materialize(runFixture(t))
	if err != nil {
		t.Fatalf("materialize: %v", err)
	}
	published, err := Publish(ctx, store, "runs/run-42", artifacts)
	if err != nil {
		t.Fatalf("publish: %v", err)
	}
	if len(published) != len(artifacts) {
		t.Fatalf("expected %d published artifacts, got %d", len(artifacts), len(published))
	}
	for _, p := range published {
		if p.URL != "" {
			t.Fatalf("memory store should not sign urls, got %q", p.URL)
		}
	}

	infos, err := store.List(ctx, "runs/run-42/")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(infos) != len(artifacts) {
		t.Fatalf("expected %d stored keys, got %d", len(artifacts), len(infos))
	}
	info, rc, err := store.Get(ctx, "runs/run-42/"+UniversalFile)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer rc.Close()
	data, _ := io.ReadAll(rc)
	if string(data) != "orthologous_group_id\tactual_sp_count\nOG2\t3\n" {
		t.Fatalf("unexpected stored payload %q", data)
	}
	if info.Metadata["rows"] != "1" || info.ContentType != "text/tab-separated-values" {
		t.Fatalf("unexpected stored info %+v", info)
	}

	if _, err := Publish(ctx, store, "runs/run-42", artifacts[:1]); !errors.Is(err, blob.ErrExists) {
		t.Fatalf("expected ErrExists on republish, got %v", err)
	}
}

func TestPublishFilesystemSignsURLs(t *testing.T) {
	ctx := context.Background()
	store, err := blob.Open(ctx, blob.Config{Driver: blob.DriverFilesystem, Root: t.TempDir()})
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	published, err := Publish(ctx, store, "runs/a", []Artifact{{Name: SummaryFile, ContentType: "text/plain", Payload: []byte("ok")}})
	if err != nil {
		t.Fatalf("publish: %v", err)
	}
	if len(published) != 1 || !strings.HasPrefix(published[0].URL, "file://") {
		t.Fatalf("expected a file url, got %+v", published)
	}
	if published[0].Info.Size != 2 {
		t.Fatalf("expected size 2, got %d", published[0].Info.Size)
	}
}
