// Package orthology defines the typed records shared by the membership
// engine: orthologous-group rows, species records, taxon groups and the
// error taxonomy surfaced to callers.
package orthology

import (
	"orthoset/pkg/sets"
)

// TaxonID identifies a species or taxonomic node (NCBI taxonomy id).
type TaxonID int64

// OGID identifies an orthologous group within one evolutionary level.
type OGID string

// OGSet is a set of orthologous group identifiers.
type OGSet = sets.Set[OGID]

// TaxonSet is a set of taxon identifiers.
type TaxonSet = sets.Set[TaxonID]

// TaxaStatus records how a row's taxon column resolved during normalization.
type TaxaStatus uint8

const (
	// TaxaPending marks a row that has not been normalized yet.
	TaxaPending TaxaStatus = iota
	// TaxaOK marks a row whose taxon column parsed cleanly.
	TaxaOK
	// TaxaAbsent marks a row whose taxon column was missing (empty or "nan").
	TaxaAbsent
	// TaxaMalformed marks a row skipped because a taxon prefix was not numeric.
	TaxaMalformed
)

func (s TaxaStatus) String() string {
	switch s {
	case TaxaOK:
		return "ok"
	case TaxaAbsent:
		return "absent"
	case TaxaMalformed:
		return "malformed"
	default:
		return "pending"
	}
}

// Column names of the members table. The last two only exist once the
// table has been normalized.
const (
	ColumnEvolutionaryLevel = "evolutionary_level"
	ColumnOGID              = "orthologous_group_id"
	ColumnNumProteins       = "num_of_proteins"
	ColumnNumSpecies        = "num_of_species"
	ColumnProteinIDs        = "protein_id"
	ColumnSpeciesTaxa       = "species_taxid_containing_protein"
	ColumnNormalizedTaxa    = "normalized_taxid_set"
	ColumnCoverage          = "coverage_count"
)

// SourceColumns lists the columns every loaded members table carries.
var SourceColumns = []string{
	ColumnEvolutionaryLevel,
	ColumnOGID,
	ColumnNumProteins,
	ColumnNumSpecies,
	ColumnProteinIDs,
	ColumnSpeciesTaxa,
}

// DerivedColumns lists the columns added by normalization.
var DerivedColumns = []string{ColumnNormalizedTaxa, ColumnCoverage}

// Row is one orthologous group at one evolutionary level.
type Row struct {
	EvolutionaryLevel  string `json:"evolutionary_level"`
	OrthologousGroupID OGID   `json:"orthologous_group_id"`
	NumProteins        int    `json:"num_of_proteins"`
	NumSpecies         int    `json:"num_of_species"`
	// ProteinIDs is the raw comma-delimited protein list, parallel to SpeciesTaxa.
	ProteinIDs string `json:"protein_id"`
	// SpeciesTaxa is the raw comma-delimited TAXID.PROTEINID list.
	SpeciesTaxa string `json:"species_taxid_containing_protein"`
	// Key is the row key used when OrthologousGroupID is empty.
	Key string `json:"key,omitempty"`

	Taxa       TaxonSet   `json:"-"`
	TaxaStatus TaxaStatus `json:"-"`
	Coverage   int        `json:"coverage_count"`
}

// ID returns the orthologous group id, falling back to the row key.
func (r Row) ID() OGID {
	if r.OrthologousGroupID != "" {
		return r.OrthologousGroupID
	}
	return OGID(r.Key)
}

// Species is one record of the species lookup table.
type Species struct {
	TaxID        TaxonID `json:"species_taxid"`
	Name         string  `json:"species_name"`
	Rank         string  `json:"rank,omitempty"`
	NamedLineage string  `json:"named_lineage,omitempty"`
	TaxIDLineage string  `json:"tax_id_lineage,omitempty"`
}

// TaxonGroup is a named set of species taxon ids, e.g. "primates".
type TaxonGroup struct {
	Name string
	Taxa TaxonSet
}

// Annotation is one functional annotation record of an orthologous group.
type Annotation struct {
	EvolutionaryLevel     string `json:"evolutionary_level"`
	OrthologousGroupID    OGID   `json:"orthologous_group_id"`
	FunctionalCategory    string `json:"functional_category"`
	FunctionalDescription string `json:"functional_description"`
}

// FunctionalCategory maps a one-letter COG category code to its description.
type FunctionalCategory struct {
	Code        string `json:"category_code"`
	Description string `json:"description"`
}

// NamedSet is an OG set labelled with the group it was derived from.
type NamedSet struct {
	Name string
	Set  OGSet
}
