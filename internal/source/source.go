// Package source reads the eggNOG tables an analysis runs on: the members
// and annotations tables of one evolutionary level, the species (taxid info)
// table and the functional category legend. Paths ending in .gz are
// decompressed transparently.
package source

import (
	"bufio"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"regexp"
	"strconv"
	"strings"

	"github.com/klauspost/pgzip"

	"orthoset/pkg/orthology"
)

// ctxCheckEvery bounds how many records are read between cancellation checks.
const ctxCheckEvery = 4096

var categoryLine = regexp.MustCompile(`\[([A-Z])\]\s*(.*)`)

type readCloser struct {
	io.Reader
	closers []io.Closer
}

func (r *readCloser) Close() error {
	var errs []error
	for i := len(r.closers) - 1; i >= 0; i-- {
		errs = append(errs, r.closers[i].Close())
	}
	return errors.Join(errs...)
}

// Open opens path for reading, wrapping it in a parallel gzip reader when
// the name ends in .gz. A missing file yields a SourceDataError of kind
// SourceMissing.
func Open(path string) (io.ReadCloser, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, &orthology.SourceDataError{Path: path, Kind: orthology.SourceMissing, Err: err}
		}
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	if !strings.HasSuffix(path, ".gz") {
		return f, nil
	}
	zr, err := pgzip.NewReader(f)
	if err != nil {
		_ = f.Close()
		if errors.Is(err, io.EOF) {
			return nil, &orthology.SourceDataError{Path: path, Kind: orthology.SourceEmpty, Err: err}
		}
		return nil, &orthology.SourceDataError{Path: path, Kind: orthology.SourceMalformed, Err: err}
	}
	return &readCloser{Reader: zr, closers: []io.Closer{f, zr}}, nil
}

// ReadMembers loads a headerless six-column members table.
func ReadMembers(ctx context.Context, path string) ([]orthology.Row, error) {
	return withFile(path, func(r io.Reader) ([]orthology.Row, error) {
		return DecodeMembers(ctx, path, r)
	})
}

// ReadAnnotations loads a headerless four-column annotations table.
func ReadAnnotations(ctx context.Context, path string) ([]orthology.Annotation, error) {
	return withFile(path, func(r io.Reader) ([]orthology.Annotation, error) {
		return DecodeAnnotations(ctx, path, r)
	})
}

// ReadSpecies loads the taxid info table. Its first line is a header.
func ReadSpecies(ctx context.Context, path string) ([]orthology.Species, error) {
	return withFile(path, func(r io.Reader) ([]orthology.Species, error) {
		return DecodeSpecies(ctx, path, r)
	})
}

// ReadCategories loads the functional category legend.
func ReadCategories(ctx context.Context, path string) ([]orthology.FunctionalCategory, error) {
	return withFile(path, func(r io.Reader) ([]orthology.FunctionalCategory, error) {
		return DecodeCategories(ctx, path, r)
	})
}

func withFile[T any](path string, decode func(io.Reader) ([]T, error)) ([]T, error) {
	rc, err := Open(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rc.Close() }()
	return decode(rc)
}

// DecodeMembers parses members records from r. name labels errors.
func DecodeMembers(ctx context.Context, name string, r io.Reader) ([]orthology.Row, error) {
	var rows []orthology.Row
	err := eachRecord(ctx, name, r, len(orthology.SourceColumns), false, func(line int, rec []string) error {
		proteins, err := strconv.Atoi(strings.TrimSpace(rec[2]))
		if err != nil {
			return fmt.Errorf("%s: %w", orthology.ColumnNumProteins, err)
		}
		species, err := strconv.Atoi(strings.TrimSpace(rec[3]))
		if err != nil {
			return fmt.Errorf("%s: %w", orthology.ColumnNumSpecies, err)
		}
		row := orthology.Row{
			EvolutionaryLevel:  rec[0],
			OrthologousGroupID: orthology.OGID(strings.TrimSpace(rec[1])),
			NumProteins:        proteins,
			NumSpecies:         species,
			ProteinIDs:         rec[4],
			SpeciesTaxa:        rec[5],
		}
		if row.OrthologousGroupID == "" {
			row.Key = "row-" + strconv.Itoa(line)
		}
		rows = append(rows, row)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// DecodeAnnotations parses annotation records from r.
func DecodeAnnotations(ctx context.Context, name string, r io.Reader) ([]orthology.Annotation, error) {
	var out []orthology.Annotation
	err := eachRecord(ctx, name, r, 4, false, func(_ int, rec []string) error {
		out = append(out, orthology.Annotation{
			EvolutionaryLevel:     rec[0],
			OrthologousGroupID:    orthology.OGID(strings.TrimSpace(rec[1])),
			FunctionalCategory:    strings.TrimSpace(rec[2]),
			FunctionalDescription: rec[3],
		})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// DecodeSpecies parses taxid info records from r, skipping the header line.
func DecodeSpecies(ctx context.Context, name string, r io.Reader) ([]orthology.Species, error) {
	var out []orthology.Species
	err := eachRecord(ctx, name, r, 5, true, func(_ int, rec []string) error {
		id, err := strconv.ParseInt(strings.TrimSpace(rec[0]), 10, 64)
		if err != nil {
			return fmt.Errorf("species_taxid: %w", err)
		}
		out = append(out, orthology.Species{
			TaxID:        orthology.TaxonID(id),
			Name:         rec[1],
			Rank:         rec[2],
			NamedLineage: rec[3],
			TaxIDLineage: rec[4],
		})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// DecodeCategories parses the functional category legend: every line of
// the form "[X] description" contributes one category, other lines are
// headings and are ignored.
func DecodeCategories(ctx context.Context, name string, r io.Reader) ([]orthology.FunctionalCategory, error) {
	var out []orthology.FunctionalCategory
	sc := bufio.NewScanner(r)
	lines := 0
	for sc.Scan() {
		lines++
		if lines%ctxCheckEvery == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		m := categoryLine.FindStringSubmatch(strings.TrimSpace(sc.Text()))
		if m == nil {
			continue
		}
		out = append(out, orthology.FunctionalCategory{Code: m[1], Description: m[2]})
	}
	if err := sc.Err(); err != nil {
		return nil, &orthology.SourceDataError{Path: name, Kind: orthology.SourceMalformed, Err: err}
	}
	if lines == 0 {
		return nil, &orthology.SourceDataError{Path: name, Kind: orthology.SourceEmpty}
	}
	return out, nil
}

// eachRecord reads tab-separated records with exactly width fields and hands
// each to fn with its one-based line number. An input without data records
// is a SourceEmpty error.
func eachRecord(ctx context.Context, name string, r io.Reader, width int, header bool, fn func(line int, rec []string) error) error {
	cr := csv.NewReader(r)
	cr.Comma = '\t'
	cr.FieldsPerRecord = width
	cr.LazyQuotes = true
	cr.ReuseRecord = true

	records := 0
	skip := header
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			var line int
			var perr *csv.ParseError
			if errors.As(err, &perr) {
				line = perr.StartLine
			}
			return &orthology.SourceDataError{Path: name, Kind: orthology.SourceMalformed, Line: line, Err: err}
		}
		line, _ := cr.FieldPos(0)
		if skip {
			skip = false
			continue
		}
		records++
		if records%ctxCheckEvery == 0 {
			if err := ctx.Err(); err != nil {
				return err
			}
		}
		if err := fn(line, rec); err != nil {
			return &orthology.SourceDataError{Path: name, Kind: orthology.SourceMalformed, Line: line, Err: err}
		}
	}
	if records == 0 {
		return &orthology.SourceDataError{Path: name, Kind: orthology.SourceEmpty}
	}
	return nil
}
