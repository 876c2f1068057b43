package orthology

import (
	"errors"
	"fmt"
	"strings"
)

// ErrMissingNormalizedColumn is returned when a group or filter operation
// needs the normalized taxon sets but the table was never normalized.
var ErrMissingNormalizedColumn = errors.New("orthology: normalized_taxid_set missing; normalize the table first")

// ColumnNotFoundError reports a column name absent from a table.
type ColumnNotFoundError struct {
	Column    string
	Available []string
}

func (e *ColumnNotFoundError) Error() string {
	return fmt.Sprintf("column %q not found; available columns: [%s]", e.Column, strings.Join(e.Available, ", "))
}

// LookupError reports a species lookup that matched zero or several records.
type LookupError struct {
	// Key is the species name or the formatted taxon id that was looked up.
	Key       string
	Ambiguous bool
	Matches   int
}

func (e *LookupError) Error() string {
	if e.Ambiguous {
		return fmt.Sprintf("species %q is ambiguous: %d matching records", e.Key, e.Matches)
	}
	return fmt.Sprintf("species %q not found", e.Key)
}

// MalformedIdentifierError reports a taxon token whose prefix is not an integer.
type MalformedIdentifierError struct {
	Raw   string
	Token string
	// Row is the zero-based row index when the error surfaced while
	// normalizing a table, -1 otherwise.
	Row int
	Err error
}

func (e *MalformedIdentifierError) Error() string {
	where := ""
	if e.Row >= 0 {
		where = fmt.Sprintf("row %d: ", e.Row)
	}
	return fmt.Sprintf("%smalformed taxon identifier %q in %q: expected TAXID.PROTEINID (e.g. 9606.ENSP00000123)", where, e.Token, e.Raw)
}

func (e *MalformedIdentifierError) Unwrap() error { return e.Err }

// SourceErrorKind classifies a failure of the tabular reader.
type SourceErrorKind string

const (
	SourceMissing   SourceErrorKind = "missing"
	SourceEmpty     SourceErrorKind = "empty"
	SourceMalformed SourceErrorKind = "malformed"
)

// SourceDataError reports that an input table could not be loaded.
type SourceDataError struct {
	Path string
	Kind SourceErrorKind
	// Line is the one-based line of a malformed record, 0 when unknown.
	Line int
	Err  error
}

func (e *SourceDataError) Error() string {
	msg := fmt.Sprintf("source %s: %s", e.Path, e.Kind)
	if e.Line > 0 {
		msg += fmt.Sprintf(" (line %d)", e.Line)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *SourceDataError) Unwrap() error { return e.Err }
