// Package analysis runs the orthology questions of one dataset end to end:
// homologs shared by a species set, their protein ids and functional
// categories, lineage-specific groups, conservation and loss across
// lineages, and universally conserved groups.
package analysis

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"orthoset/internal/config"
	"orthoset/internal/grouping"
	"orthoset/internal/normalize"
	"orthoset/internal/observability"
	"orthoset/internal/setalgebra"
	"orthoset/internal/source"
	"orthoset/internal/table"
	"orthoset/internal/taxonomy"
	"orthoset/pkg/orthology"
	"orthoset/pkg/sets"
)

// Inputs are the loaded source tables of one run.
type Inputs struct {
	Members     []orthology.Row
	Annotations []orthology.Annotation
	Species     []orthology.Species
	Categories  []orthology.FunctionalCategory
}

// Load reads the configured tables concurrently. Annotations and the
// category legend are optional; an empty path leaves them nil.
func Load(ctx context.Context, src config.SourcesConfig) (Inputs, error) {
	var in Inputs
	eg, ctx := errgroup.WithContext(ctx)
	eg.Go(func() (err error) {
		in.Members, err = source.ReadMembers(ctx, src.Members)
		return wrap("load members", err)
	})
	eg.Go(func() (err error) {
		in.Species, err = source.ReadSpecies(ctx, src.TaxidInfo)
		return wrap("load species", err)
	})
	if src.Annotations != "" {
		eg.Go(func() (err error) {
			in.Annotations, err = source.ReadAnnotations(ctx, src.Annotations)
			return wrap("load annotations", err)
		})
	}
	if src.FunctionalCategories != "" {
		eg.Go(func() (err error) {
			in.Categories, err = source.ReadCategories(ctx, src.FunctionalCategories)
			return wrap("load functional categories", err)
		})
	}
	if err := eg.Wait(); err != nil {
		return Inputs{}, err
	}
	return in, nil
}

// Options tune a run. The zero value is usable.
type Options struct {
	Normalize normalize.Options
	Logger    *zap.Logger
	Recorder  *observability.Recorder
	// RunID is generated when empty.
	RunID string
	Now   func() time.Time
}

// Homologs is the answer to the shared-homolog query.
type Homologs struct {
	Include    []orthology.Species
	Exclude    []orthology.Species
	Rows       table.Table
	ProteinIDs []string
	Categories []CategoryCount
	// Exclusive holds the homologs whose num_of_species equals the number
	// of included species.
	Exclusive table.Table
}

// CategoryCount is the number of homolog annotations carrying one
// functional category letter.
type CategoryCount struct {
	Code        string `json:"category_code"`
	Count       int    `json:"count"`
	Description string `json:"description"`
}

// LineageSpecific holds the OGs whose taxa all belong to one named group.
type LineageSpecific struct {
	Name    string
	Species []string
	Rows    table.Table
}

// Result carries every derived table and set of a run.
type Result struct {
	RunID      string
	StartedAt  time.Time
	FinishedAt time.Time
	Members    table.Table
	Warnings   []table.Warning

	Homologs        Homologs
	LineageSpecific LineageSpecific
	Groups          []orthology.NamedSet
	Lineage         setalgebra.LossReport
	Universal       setalgebra.UniversalResult
	Summary         Summary
}

// Run executes every configured question on in.
func Run(ctx context.Context, in Inputs, q config.QueriesConfig, opts Options) (Result, error) {
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	now := opts.Now
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}
	res := Result{RunID: opts.RunID, StartedAt: now()}
	if res.RunID == "" {
		res.RunID = uuid.NewString()
	}
	log = log.With(zap.String("run_id", res.RunID))
	rec := opts.Recorder

	species, err := taxonomy.NewIndex(in.Species)
	if err != nil {
		return Result{}, err
	}

	err = stage(ctx, rec, "normalize", func() error {
		var err error
		res.Members, res.Warnings, err = table.Normalize(table.New(in.Members), opts.Normalize)
		return err
	})
	if err != nil {
		return Result{}, fmt.Errorf("normalize members: %w", err)
	}
	for _, w := range res.Warnings {
		log.Warn("skipped malformed row", zap.Int("row", w.Row), zap.String("og", string(w.ID)), zap.Error(w.Err))
	}
	log.Info("members normalized", zap.Int("rows", res.Members.Len()), zap.Int("skipped", len(res.Warnings)))

	if err := stage(ctx, rec, "homologs", func() error {
		var err error
		res.Homologs, err = homologs(res.Members, species, in, q.Homologs)
		return err
	}); err != nil {
		return Result{}, fmt.Errorf("homolog query: %w", err)
	}
	log.Info("homologs selected",
		zap.Int("homologs", res.Homologs.Rows.Len()),
		zap.Int("protein_ids", len(res.Homologs.ProteinIDs)),
		zap.Int("categories", len(res.Homologs.Categories)),
		zap.Int("exclusive", res.Homologs.Exclusive.Len()))

	if err := stage(ctx, rec, "lineage_specific", func() error {
		var err error
		res.LineageSpecific, err = lineageSpecific(res.Homologs.Rows, species, q.LineageSpecific)
		return err
	}); err != nil {
		return Result{}, fmt.Errorf("lineage-specific query: %w", err)
	}
	log.Info("lineage-specific groups selected",
		zap.String("group", res.LineageSpecific.Name),
		zap.Int("rows", res.LineageSpecific.Rows.Len()))

	if err := stage(ctx, rec, "lineage", func() error {
		var err error
		res.Groups, res.Lineage, err = lineage(ctx, res.Members, species, q.Lineage, q.Workers)
		return err
	}); err != nil {
		return Result{}, fmt.Errorf("lineage query: %w", err)
	}
	for _, g := range res.Groups {
		log.Debug("taxon group built", zap.String("group", g.Name), zap.Int("ogs", g.Set.Len()))
	}
	log.Info("lineage analysed",
		zap.Int("core", res.Lineage.Core.Len()),
		zap.Int("lost_in_all", res.Lineage.TotalLoss.Len()))

	if err := stage(ctx, rec, "universal", func() error {
		var err error
		res.Universal, err = setalgebra.Universal(res.Members, q.UniversalFraction)
		return err
	}); err != nil {
		return Result{}, fmt.Errorf("universal query: %w", err)
	}
	log.Info("universal groups selected",
		zap.Int("species", res.Universal.UniverseSize),
		zap.Int("threshold", res.Universal.Threshold),
		zap.Int("ogs", res.Universal.Rows.Len()))

	res.FinishedAt = now()
	res.Summary = summarize(res)
	for name, n := range res.Summary.Counts() {
		rec.SetSize(name, n)
	}
	return res, nil
}

func homologs(members table.Table, species *taxonomy.Index, in Inputs, q config.HomologQuery) (Homologs, error) {
	include, err := species.IDs(q.Include)
	if err != nil {
		return Homologs{}, err
	}
	exclude, err := species.IDs(q.Exclude)
	if err != nil {
		return Homologs{}, err
	}
	var h Homologs
	h.Include = records(species, include)
	h.Exclude = records(species, exclude)
	h.Rows, err = table.FilterByTaxa(members, orthology.ColumnSpeciesTaxa, include, exclude)
	if err != nil {
		return Homologs{}, err
	}
	h.ProteinIDs, err = table.UniqueTokens(h.Rows, orthology.ColumnProteinIDs)
	if err != nil {
		return Homologs{}, err
	}
	h.Categories = CountCategories(h.Rows.IDs(), in.Annotations, in.Categories)
	h.Exclusive = h.Rows.WithSpeciesCount(len(include))
	return h, nil
}

// CountCategories counts the functional category letters of the annotations
// of ogs. An annotation "KT" counts once for K and once for T. Counts are
// ordered by count descending, then by code; codes missing from the legend
// get an empty description.
func CountCategories(ogs []orthology.OGID, annotations []orthology.Annotation, legend []orthology.FunctionalCategory) []CategoryCount {
	wanted := sets.Of(ogs...)
	counts := make(map[string]int)
	for _, a := range annotations {
		if !wanted.Has(a.OrthologousGroupID) {
			continue
		}
		for _, c := range a.FunctionalCategory {
			counts[string(c)]++
		}
	}
	describe := make(map[string]string, len(legend))
	for _, c := range legend {
		describe[c.Code] = c.Description
	}
	out := make([]CategoryCount, 0, len(counts))
	for code, n := range counts {
		out = append(out, CategoryCount{Code: code, Count: n, Description: describe[code]})
	}
	slices.SortFunc(out, func(a, b CategoryCount) int {
		if c := cmp.Compare(b.Count, a.Count); c != 0 {
			return c
		}
		return cmp.Compare(a.Code, b.Code)
	})
	return out
}

func lineageSpecific(homologs table.Table, species *taxonomy.Index, g config.GroupSpec) (LineageSpecific, error) {
	ids, err := species.IDs(g.Species)
	if err != nil {
		return LineageSpecific{}, fmt.Errorf("group %s: %w", g.Name, err)
	}
	rows, err := table.FilterSubsetTaxa(homologs, orthology.ColumnNormalizedTaxa, ids)
	if err != nil {
		return LineageSpecific{}, err
	}
	return LineageSpecific{Name: g.Name, Species: slices.Clone(g.Species), Rows: rows}, nil
}

func lineage(ctx context.Context, members table.Table, species *taxonomy.Index, q config.LineageQuery, workers int) ([]orthology.NamedSet, setalgebra.LossReport, error) {
	specs := append(slices.Clone(q.Presence), q.Comparison...)
	groups := make([]orthology.TaxonGroup, 0, len(specs))
	for _, g := range specs {
		tg, err := species.ResolveGroup(g.Name, g.Species)
		if err != nil {
			return nil, setalgebra.LossReport{}, err
		}
		groups = append(groups, tg)
	}
	idx, err := grouping.NewIndex(members)
	if err != nil {
		return nil, setalgebra.LossReport{}, err
	}
	built, err := grouping.BuildGroups(ctx, idx, groups, workers)
	if err != nil {
		return nil, setalgebra.LossReport{}, err
	}
	split := len(q.Presence)
	return built, setalgebra.Lineage(built[:split], built[split:]), nil
}

func records(species *taxonomy.Index, ids []orthology.TaxonID) []orthology.Species {
	out := make([]orthology.Species, 0, len(ids))
	for _, id := range ids {
		if rec, ok := species.Species(id); ok {
			out = append(out, rec)
		}
	}
	return out
}

func stage(ctx context.Context, rec *observability.Recorder, name string, fn func() error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	span := rec.Start(ctx, name)
	err := fn()
	span.End(err)
	return err
}

func wrap(msg string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) {
		return err
	}
	return fmt.Errorf("%s: %w", msg, err)
}
