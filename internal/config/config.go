// Package config loads the orthoset run configuration: input tables,
// normalization policies, the species groups each question compares, and
// where artifacts, the run ledger, logs and metrics go.
//
// Values come from built-in defaults, then an optional YAML file, then
// ORTHOSET_* environment variables.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"

	"gopkg.in/yaml.v3"

	"orthoset/internal/blob"
	"orthoset/internal/ledger"
	"orthoset/internal/logging"
	"orthoset/internal/normalize"
	"orthoset/pkg/sets"
)

// Config holds all orthoset configuration.
type Config struct {
	Sources   SourcesConfig   `yaml:"sources"`
	Normalize NormalizeConfig `yaml:"normalize"`
	Queries   QueriesConfig   `yaml:"queries"`
	Output    OutputConfig    `yaml:"output"`
	Ledger    ledger.Config   `yaml:"ledger"`
	Logging   logging.Config  `yaml:"logging"`
	Metrics   MetricsConfig   `yaml:"metrics"`
}

// SourcesConfig names the input tables. Paths ending in .gz are read
// through a gzip decoder.
type SourcesConfig struct {
	Members              string `yaml:"members"`
	Annotations          string `yaml:"annotations"`
	TaxidInfo            string `yaml:"taxid_info"`
	FunctionalCategories string `yaml:"functional_categories"`
}

// NormalizeConfig holds the policy names understood by the normalize package.
type NormalizeConfig struct {
	Missing   string `yaml:"missing"`   // absent|placeholder
	Malformed string `yaml:"malformed"` // abort|skip
}

// Options converts the policy names.
func (c NormalizeConfig) Options() (normalize.Options, error) {
	missing, err := normalize.ParseMissingPolicy(c.Missing)
	if err != nil {
		return normalize.Options{}, err
	}
	malformed, err := normalize.ParseMalformedPolicy(c.Malformed)
	if err != nil {
		return normalize.Options{}, err
	}
	return normalize.Options{Missing: missing, Malformed: malformed}, nil
}

// GroupSpec is a named group of species, resolved to taxon IDs at run time.
type GroupSpec struct {
	Name    string   `yaml:"name"`
	Species []string `yaml:"species"`
}

// HomologQuery selects OGs containing every Include species and no Exclude
// species.
type HomologQuery struct {
	Include []string `yaml:"include"`
	Exclude []string `yaml:"exclude"`
}

// LineageQuery splits groups into those that must all carry an OG and
// those whose losses are reported.
type LineageQuery struct {
	Presence   []GroupSpec `yaml:"presence"`
	Comparison []GroupSpec `yaml:"comparison"`
}

// QueriesConfig describes the questions a run answers.
type QueriesConfig struct {
	Homologs          HomologQuery `yaml:"homologs"`
	LineageSpecific   GroupSpec    `yaml:"lineage_specific"`
	Lineage           LineageQuery `yaml:"lineage"`
	UniversalFraction float64      `yaml:"universal_fraction"`
	// Workers bounds parallel group construction; 0 means one per group.
	Workers int `yaml:"workers"`
}

// OutputConfig places report artifacts.
type OutputConfig struct {
	Blob   blob.Config `yaml:"blob"`
	Prefix string      `yaml:"prefix"`
}

// MetricsConfig enables the Prometheus textfile and JSON stage trace.
type MetricsConfig struct {
	Textfile string `yaml:"textfile"`
	Trace    string `yaml:"trace"`
}

// Primates lists the species of the default lineage-specific query.
var Primates = []string{
	"Homo sapiens",
	"Tarsius syrichta",
	"Callithrix jacchus",
	"Macaca fascicularis",
	"Papio anubis",
	"Gorilla gorilla",
	"Pan paniscus",
	"Pan troglodytes",
	"Pongo abelii",
	"Saimiri boliviensis",
	"Chlorocebus sabaeus",
	"Rhinopithecus roxellana",
	"Nomascus leucogenys",
	"Otolemur garnettii",
	"Macaca mulatta",
}

// Default returns the configuration of the reference vertebrate analysis:
// human and chimp homologs lost in mouse, primate-specific OGs, OGs shared
// by primates, chicken and fish but lost in rodents, and OGs present in 99 %
// of species.
func Default() Config {
	return Config{
		Sources: SourcesConfig{
			Members:              "data/33208_members.tsv",
			Annotations:          "data/33208_annotations.tsv",
			TaxidInfo:            "data/e5.taxid_info.tsv",
			FunctionalCategories: "data/eggnog4.functional_categories.txt",
		},
		Normalize: NormalizeConfig{Missing: "absent", Malformed: "abort"},
		Queries: QueriesConfig{
			Homologs: HomologQuery{
				Include: []string{"Homo sapiens", "Pan troglodytes"},
				Exclude: []string{"Mus musculus"},
			},
			LineageSpecific: GroupSpec{Name: "primates", Species: append([]string(nil), Primates...)},
			Lineage: LineageQuery{
				Presence: []GroupSpec{
					{Name: "primates", Species: []string{"Homo sapiens", "Pan troglodytes"}},
					{Name: "chicken", Species: []string{"Gallus gallus"}},
					{Name: "fish", Species: []string{"Danio rerio", "Takifugu rubripes"}},
				},
				Comparison: []GroupSpec{
					{Name: "mouse", Species: []string{"Mus musculus"}},
					{Name: "rat", Species: []string{"Rattus norvegicus"}},
				},
			},
			UniversalFraction: 0.99,
		},
		Output: OutputConfig{
			Blob:   blob.Config{Driver: blob.DriverFilesystem, Root: "results"},
			Prefix: "runs",
		},
		Ledger:  ledger.Config{Driver: ledger.DriverSQLite, DSN: "orthoset.db"},
		Logging: logging.Config{Level: "info", Format: logging.FormatJSON},
	}
}

// Load reads path over the defaults (path may be empty) and applies
// environment overrides. Unknown YAML keys are rejected.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
			return Config{}, fmt.Errorf("parse config %s: %w", path, err)
		}
	}
	if err := cfg.ApplyEnv(os.Getenv); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Save writes c as YAML to path.
func (c Config) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

// ApplyEnv overlays ORTHOSET_* variables read through getenv.
func (c *Config) ApplyEnv(getenv func(string) string) error {
	str := func(dst *string, name string) {
		if v := getenv(name); v != "" {
			*dst = v
		}
	}
	str(&c.Sources.Members, "ORTHOSET_MEMBERS")
	str(&c.Sources.Annotations, "ORTHOSET_ANNOTATIONS")
	str(&c.Sources.TaxidInfo, "ORTHOSET_TAXID_INFO")
	str(&c.Sources.FunctionalCategories, "ORTHOSET_FUNCTIONAL_CATEGORIES")
	str(&c.Normalize.Missing, "ORTHOSET_MISSING_POLICY")
	str(&c.Normalize.Malformed, "ORTHOSET_MALFORMED_POLICY")
	str(&c.Output.Prefix, "ORTHOSET_OUTPUT_PREFIX")
	str(&c.Logging.Level, "ORTHOSET_LOG_LEVEL")
	str(&c.Logging.Format, "ORTHOSET_LOG_FORMAT")
	str(&c.Metrics.Textfile, "ORTHOSET_METRICS_TEXTFILE")
	str(&c.Metrics.Trace, "ORTHOSET_TRACE_FILE")
	if v := getenv("ORTHOSET_UNIVERSAL_FRACTION"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("ORTHOSET_UNIVERSAL_FRACTION: %w", err)
		}
		c.Queries.UniversalFraction = f
	}
	if v := getenv("ORTHOSET_WORKERS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("ORTHOSET_WORKERS: %w", err)
		}
		c.Queries.Workers = n
	}
	c.Output.Blob = blob.FromEnv(c.Output.Blob, getenv)
	c.Ledger = ledger.FromEnv(c.Ledger, getenv)
	return nil
}

// Validate checks the configuration before a run starts. Every problem is
// reported, not just the first.
func (c Config) Validate() error {
	var errs []error
	if c.Sources.Members == "" {
		errs = append(errs, errors.New("sources.members is required"))
	}
	if c.Sources.TaxidInfo == "" {
		errs = append(errs, errors.New("sources.taxid_info is required"))
	}
	if _, err := c.Normalize.Options(); err != nil {
		errs = append(errs, fmt.Errorf("normalize: %w", err))
	}
	if len(c.Queries.Homologs.Include) == 0 {
		errs = append(errs, errors.New("queries.homologs.include needs at least one species"))
	}
	if c.Queries.LineageSpecific.Name == "" || len(c.Queries.LineageSpecific.Species) == 0 {
		errs = append(errs, errors.New("queries.lineage_specific needs a name and species"))
	}
	if len(c.Queries.Lineage.Presence) == 0 {
		errs = append(errs, errors.New("queries.lineage.presence needs at least one group"))
	}
	seen := make(sets.Set[string])
	for _, g := range append(append([]GroupSpec(nil), c.Queries.Lineage.Presence...), c.Queries.Lineage.Comparison...) {
		switch {
		case g.Name == "":
			errs = append(errs, errors.New("queries.lineage: group without a name"))
		case seen.Has(g.Name):
			errs = append(errs, fmt.Errorf("queries.lineage: duplicate group %q", g.Name))
		case len(g.Species) == 0:
			errs = append(errs, fmt.Errorf("queries.lineage: group %q has no species", g.Name))
		}
		seen.Add(g.Name)
	}
	if f := c.Queries.UniversalFraction; !(f > 0 && f <= 1) {
		errs = append(errs, fmt.Errorf("queries.universal_fraction must be in (0, 1], got %v", f))
	}
	if c.Queries.Workers < 0 {
		errs = append(errs, fmt.Errorf("queries.workers must not be negative, got %d", c.Queries.Workers))
	}
	return errors.Join(errs...)
}
