package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"slices"
	"strconv"
	"text/tabwriter"
	"time"

	"github.com/fatih/color"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"orthoset/internal/analysis"
	"orthoset/internal/blob"
	"orthoset/internal/config"
	"orthoset/internal/ledger"
	"orthoset/internal/logging"
	"orthoset/internal/observability"
	"orthoset/internal/report"
	"orthoset/internal/source"
	"orthoset/internal/taxonomy"
	"orthoset/pkg/orthology"
)

func newRunCmd(opts *options) *cobra.Command {
	var runID string
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run every configured question and publish the result files",
		Args:  positional(cobra.NoArgs),
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := opts.load()
			if err != nil {
				return err
			}
			if err := cfg.Validate(); err != nil {
				return fmt.Errorf("invalid config: %w", err)
			}
			if runID == "" {
				runID = uuid.NewString()
			}
			return runAnalysis(cmd.Context(), cfg, runID, opts)
		},
	}
	cmd.Flags().StringVar(&runID, "run-id", "", "run identifier (default: a new UUID)")
	return cmd
}

func runAnalysis(ctx context.Context, cfg config.Config, runID string, opts *options) (err error) {
	log, err := logging.New(cfg.Logging, opts.stderr)
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()
	log = log.With(zap.String("run_id", runID))

	normOpts, err := cfg.Normalize.Options()
	if err != nil {
		return err
	}

	var trace io.Writer
	if cfg.Metrics.Trace != "" {
		f, err := os.OpenFile(cfg.Metrics.Trace, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			return fmt.Errorf("open trace file: %w", err)
		}
		defer func() { _ = f.Close() }()
		trace = f
	}
	rec := observability.NewRecorder(trace)

	runs, err := ledger.Open(ctx, cfg.Ledger)
	if err != nil {
		return fmt.Errorf("open ledger: %w", err)
	}
	defer func() { _ = runs.Close() }()

	store, err := blob.Open(ctx, cfg.Output.Blob)
	if err != nil {
		return fmt.Errorf("open artifact store: %w", err)
	}

	// a recorded run is never replaced, not even by a failed attempt
	switch _, err := runs.Get(ctx, runID); {
	case err == nil:
		return usageError{fmt.Errorf("run %s is already recorded", runID)}
	case !errors.Is(err, ledger.ErrRunNotFound):
		return fmt.Errorf("check ledger: %w", err)
	}

	entry := ledger.Run{
		ID:        runID,
		StartedAt: time.Now().UTC(),
		Dataset:   cfg.Sources.Members,
	}
	defer func() {
		if err == nil {
			return
		}
		entry.Status = ledger.StatusFailed
		entry.Error = err.Error()
		entry.FinishedAt = time.Now().UTC()
		if recErr := runs.Record(context.WithoutCancel(ctx), entry); recErr != nil {
			log.Error("record failed run", zap.Error(recErr))
		}
	}()

	log.Info("loading sources", zap.String("members", cfg.Sources.Members), zap.String("species", cfg.Sources.TaxidInfo))
	span := rec.Start(ctx, "load")
	in, err := analysis.Load(ctx, cfg.Sources)
	span.End(err)
	if err != nil {
		return err
	}
	log.Info("sources loaded",
		zap.Int("members", len(in.Members)),
		zap.Int("species", len(in.Species)),
		zap.Int("annotations", len(in.Annotations)))

	res, err := analysis.Run(ctx, in, cfg.Queries, analysis.Options{
		Normalize: normOpts,
		Logger:    log,
		Recorder:  rec,
		RunID:     runID,
	})
	if err != nil {
		return err
	}

	span = rec.Start(ctx, "publish")
	published, err := publish(ctx, store, path.Join(cfg.Output.Prefix, runID), res)
	span.End(err)
	if err != nil {
		return err
	}
	log.Info("artifacts published", zap.Int("artifacts", len(published)), zap.String("driver", string(store.Driver())))

	entry.Status = ledger.StatusSucceeded
	entry.StartedAt = res.StartedAt
	entry.FinishedAt = res.FinishedAt
	entry.Counts = res.Summary.Counts()
	for _, p := range published {
		entry.Artifacts = append(entry.Artifacts, p.Info.Key)
	}
	if err := runs.Record(ctx, entry); err != nil {
		return fmt.Errorf("record run: %w", err)
	}

	if cfg.Metrics.Textfile != "" {
		if err := rec.WriteTextfile(cfg.Metrics.Textfile); err != nil {
			return err
		}
	}
	return printRun(opts.stdout, entry, published)
}

func publish(ctx context.Context, store blob.Store, prefix string, res analysis.Result) ([]report.Published, error) {
	artifacts, err := report.Materialize(res)
	if err != nil {
		return nil, err
	}
	return report.Publish(ctx, store, prefix, artifacts)
}

func printRun(w io.Writer, run ledger.Run, published []report.Published) error {
	ok := color.New(color.FgGreen, color.Bold)
	label := color.New(color.FgCyan)
	if _, err := ok.Fprintf(w, "run %s %s\n", run.ID, run.Status); err != nil {
		return err
	}
	if err := printCounts(w, run.Counts); err != nil {
		return err
	}
	for _, p := range published {
		where := p.Info.Key
		if p.URL != "" {
			where = p.URL
		}
		if _, err := label.Fprintf(w, "  %-36s", p.Name); err != nil {
			return err
		}
		if _, err := fmt.Fprintln(w, where); err != nil {
			return err
		}
	}
	return nil
}

func printCounts(w io.Writer, counts map[string]int) error {
	names := make([]string, 0, len(counts))
	for name := range counts {
		names = append(names, name)
	}
	slices.Sort(names)
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	for _, name := range names {
		if _, err := fmt.Fprintf(tw, "  %s\t%d\n", name, counts[name]); err != nil {
			return err
		}
	}
	return tw.Flush()
}

func newLookupCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "lookup NAME|TAXID...",
		Short: "Resolve species names to taxon ids and back",
		Args:  positional(cobra.MinimumNArgs(1)),
		RunE: func(cmd *cobra.Command, a []string) error {
			cfg, err := opts.load()
			if err != nil {
				return err
			}
			records, err := source.ReadSpecies(cmd.Context(), cfg.Sources.TaxidInfo)
			if err != nil {
				return err
			}
			idx, err := taxonomy.NewIndex(records)
			if err != nil {
				return err
			}
			var errs []error
			for _, key := range a {
				rec, err := lookup(idx, key)
				if err != nil {
					errs = append(errs, err)
					continue
				}
				if _, err := fmt.Fprintf(opts.stdout, "%d\t%s\n", rec.TaxID, rec.Name); err != nil {
					return err
				}
			}
			return errors.Join(errs...)
		},
	}
}

func lookup(idx *taxonomy.Index, key string) (orthology.Species, error) {
	if n, err := strconv.ParseInt(key, 10, 64); err == nil {
		rec, ok := idx.Species(orthology.TaxonID(n))
		if !ok {
			return orthology.Species{}, &orthology.LookupError{Key: key}
		}
		return rec, nil
	}
	id, err := idx.ID(key)
	if err != nil {
		return orthology.Species{}, err
	}
	rec, _ := idx.Species(id)
	return rec, nil
}

func newRunsCmd(opts *options) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "runs [RUN_ID]",
		Short: "List recorded runs, or show one run's counts and artifacts",
		Args:  positional(cobra.MaximumNArgs(1)),
		RunE: func(cmd *cobra.Command, a []string) error {
			cfg, err := opts.load()
			if err != nil {
				return err
			}
			store, err := ledger.Open(cmd.Context(), cfg.Ledger)
			if err != nil {
				return fmt.Errorf("open ledger: %w", err)
			}
			defer func() { _ = store.Close() }()

			if len(a) == 1 {
				run, err := store.Get(cmd.Context(), a[0])
				if err != nil {
					return err
				}
				return showRun(opts.stdout, run)
			}
			list, err := store.List(cmd.Context(), limit)
			if err != nil {
				return err
			}
			tw := tabwriter.NewWriter(opts.stdout, 0, 0, 2, ' ', 0)
			if _, err := fmt.Fprintln(tw, "ID\tSTARTED\tSTATUS\tHOMOLOGS\tCORE\tUNIVERSAL"); err != nil {
				return err
			}
			for _, r := range list {
				if _, err := fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%d\t%d\n",
					r.ID, r.StartedAt.Format(time.RFC3339), statusText(r.Status),
					r.Counts["homologs"], r.Counts["core"], r.Counts["universal"]); err != nil {
					return err
				}
			}
			return tw.Flush()
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "maximum runs to list (0 for all)")
	return cmd
}

func showRun(w io.Writer, run ledger.Run) error {
	if _, err := fmt.Fprintf(w, "run %s %s\nstarted  %s\nfinished %s\ndataset  %s\n",
		run.ID, statusText(run.Status),
		run.StartedAt.Format(time.RFC3339), run.FinishedAt.Format(time.RFC3339), run.Dataset); err != nil {
		return err
	}
	if run.Error != "" {
		if _, err := fmt.Fprintf(w, "error    %s\n", run.Error); err != nil {
			return err
		}
	}
	if err := printCounts(w, run.Counts); err != nil {
		return err
	}
	for _, key := range run.Artifacts {
		if _, err := fmt.Fprintf(w, "  %s\n", key); err != nil {
			return err
		}
	}
	return nil
}

func statusText(s ledger.Status) string {
	if s == ledger.StatusFailed {
		return color.RedString(string(s))
	}
	return color.GreenString(string(s))
}
