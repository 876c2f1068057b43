package analysis

// topCategories is how many categories the summary lists.
const topCategories = 3

// Summary is the headline count of every question.
type Summary struct {
	Homologs        int             `json:"homologs"`
	ProteinIDs      int             `json:"protein_ids"`
	Categories      int             `json:"categories"`
	TopCategories   []CategoryCount `json:"top_categories"`
	Exclusive       int             `json:"exclusive"`
	LineageSpecific int             `json:"lineage_specific"`
	GroupSizes      map[string]int  `json:"group_sizes"`
	Core            int             `json:"core"`
	LostInAll       int             `json:"lost_in_all"`
	LostOnlyIn      map[string]int  `json:"lost_only_in"`
	Species         int             `json:"species"`
	Threshold       int             `json:"threshold"`
	Universal       int             `json:"universal"`
	SkippedRows     int             `json:"skipped_rows"`
}

func summarize(r Result) Summary {
	s := Summary{
		Homologs:        r.Homologs.Rows.Len(),
		ProteinIDs:      len(r.Homologs.ProteinIDs),
		Categories:      len(r.Homologs.Categories),
		Exclusive:       r.Homologs.Exclusive.Len(),
		LineageSpecific: r.LineageSpecific.Rows.Len(),
		GroupSizes:      make(map[string]int, len(r.Groups)),
		Core:            r.Lineage.Core.Len(),
		LostInAll:       r.Lineage.TotalLoss.Len(),
		LostOnlyIn:      make(map[string]int, len(r.Lineage.Partial)),
		Species:         r.Universal.UniverseSize,
		Threshold:       r.Universal.Threshold,
		Universal:       r.Universal.Rows.Len(),
		SkippedRows:     len(r.Warnings),
	}
	top := r.Homologs.Categories
	if len(top) > topCategories {
		top = top[:topCategories]
	}
	s.TopCategories = append([]CategoryCount(nil), top...)
	for _, g := range r.Groups {
		s.GroupSizes[g.Name] = g.Set.Len()
	}
	for name, set := range r.Lineage.Partial {
		s.LostOnlyIn[name] = set.Len()
	}
	return s
}

// Counts flattens the summary into named counters, e.g. for the run ledger
// and result-size gauges. Group sizes are keyed "group_<name>" and partial
// losses "lost_only_<name>".
func (s Summary) Counts() map[string]int {
	out := map[string]int{
		"homologs":         s.Homologs,
		"protein_ids":      s.ProteinIDs,
		"categories":       s.Categories,
		"exclusive":        s.Exclusive,
		"lineage_specific": s.LineageSpecific,
		"core":             s.Core,
		"lost_in_all":      s.LostInAll,
		"species":          s.Species,
		"threshold":        s.Threshold,
		"universal":        s.Universal,
		"skipped_rows":     s.SkippedRows,
	}
	for name, n := range s.GroupSizes {
		out["group_"+name] = n
	}
	for name, n := range s.LostOnlyIn {
		out["lost_only_"+name] = n
	}
	return out
}

