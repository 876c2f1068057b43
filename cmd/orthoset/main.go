// Command orthoset runs the orthologous-group membership analyses over an
// eggNOG dataset, publishes the result files and keeps a ledger of runs.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"orthoset/internal/config"
)

var exitFunc = os.Exit

func main() {
	exitFunc(cli(os.Args[1:], os.Stdout, os.Stderr))
}

// usageError marks a bad invocation, reported with exit code 2.
type usageError struct{ err error }

func (e usageError) Error() string { return e.err.Error() }
func (e usageError) Unwrap() error { return e.err }

type options struct {
	configPath string
	noColor    bool
	stdout     io.Writer
	stderr     io.Writer
}

func (o *options) load() (config.Config, error) { return config.Load(o.configPath) }

func cli(args []string, stdout, stderr io.Writer) int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	root := newRootCmd(stdout, stderr)
	root.SetArgs(args)
	err := root.ExecuteContext(ctx)
	if err == nil {
		return 0
	}
	_, _ = fmt.Fprintf(stderr, "orthoset: %v\n", err)
	var usage usageError
	if errors.As(err, &usage) || strings.HasPrefix(err.Error(), "unknown command") {
		return 2
	}
	return 1
}

func newRootCmd(stdout, stderr io.Writer) *cobra.Command {
	opts := &options{stdout: stdout, stderr: stderr}
	root := &cobra.Command{
		Use:   "orthoset",
		Short: "Orthologous-group membership analysis over eggNOG tables",
		Long: `orthoset answers set questions over an eggNOG members table: homologs
shared by a species set, lineage-specific groups, conservation and loss
across lineages, and universally conserved groups.

Configuration comes from an optional YAML file (--config) overlaid with
ORTHOSET_* environment variables.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(*cobra.Command, []string) {
			if opts.noColor {
				color.NoColor = true
			}
		},
	}
	root.SetOut(stdout)
	root.SetErr(stderr)
	root.SetFlagErrorFunc(func(_ *cobra.Command, err error) error { return usageError{err} })
	root.PersistentFlags().StringVarP(&opts.configPath, "config", "c", "", "path to a YAML config file")
	root.PersistentFlags().BoolVar(&opts.noColor, "no-color", false, "disable coloured output")

	root.AddCommand(
		newRunCmd(opts),
		newLookupCmd(opts),
		newRunsCmd(opts),
		newInitCmd(opts),
	)
	return root
}

// positional wraps a positional-argument check so violations exit with code 2.
func positional(check cobra.PositionalArgs) cobra.PositionalArgs {
	return func(cmd *cobra.Command, a []string) error {
		if err := check(cmd, a); err != nil {
			return usageError{err}
		}
		return nil
	}
}

func newInitCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "init [path]",
		Short: "Write the default configuration as YAML",
		Args:  positional(cobra.MaximumNArgs(1)),
		RunE: func(_ *cobra.Command, a []string) error {
			path := "orthoset.yaml"
			if len(a) == 1 {
				path = a[0]
			}
			if _, err := os.Stat(path); err == nil {
				return fmt.Errorf("%s already exists", path)
			}
			if err := config.Default().Save(path); err != nil {
				return err
			}
			_, err := fmt.Fprintf(opts.stdout, "wrote %s\n", path)
			return err
		},
	}
}
