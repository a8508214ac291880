// Package filter narrows the master collection to target companies and
// accounts for every record it drops.
package filter

import (
	"strings"

	"golang.org/x/text/cases"

	"github.com/sells-group/formd-cli/internal/model"
)

// Reason names the predicate that rejected a record.
type Reason string

// Rejection reasons in evaluation order.
const (
	ReasonCountry  Reason = "country"
	ReasonFunding  Reason = "funding"
	ReasonLocation Reason = "location"
	ReasonIndustry Reason = "industry"
)

// Reasons lists every rejection reason in evaluation order.
var Reasons = []Reason{ReasonCountry, ReasonFunding, ReasonLocation, ReasonIndustry}

// Criteria configures the predicate chain.
type Criteria struct {
	MinFunding           float64
	States               []string
	ExcludedPlaceholders []string
	ExcludedIndustries   []string
}

// DefaultCriteria returns the stock target profile.
func DefaultCriteria() Criteria {
	return Criteria{
		MinFunding:           1_000_000,
		States:               []string{"MA", "CA", "NY", "WA", "TX", "IL"},
		ExcludedPlaceholders: []string{"X0", "X1", "X2", "X3"},
		ExcludedIndustries: []string{
			"real estate", "realty", "property", "reit", "residential",
			"pooled investment", "hedge fund", "private equity", "investment fund",
			"oil", "gas", "petroleum", "energy exploration",
			"agriculture", "farming", "agribusiness",
			"retail", "store", "shopping",
			"construction", "contractor", "building",
			"commercial",
			"restaurant", "food service", "hospitality",
		},
	}
}

// Filter evaluates records against Criteria. Not safe for concurrent use.
type Filter struct {
	criteria     Criteria
	states       map[string]bool
	placeholders map[string]bool
	keywords     []string
	fold         cases.Caser
}

// New compiles c into a Filter.
func New(c Criteria) *Filter {
	f := &Filter{
		criteria:     c,
		states:       make(map[string]bool, len(c.States)),
		placeholders: make(map[string]bool, len(c.ExcludedPlaceholders)),
		fold:         cases.Fold(),
	}
	for _, s := range c.States {
		f.states[NormalizeState(s)] = true
	}
	for _, s := range c.ExcludedPlaceholders {
		f.placeholders[NormalizeState(s)] = true
	}
	for _, k := range c.ExcludedIndustries {
		if k = strings.TrimSpace(k); k != "" {
			f.keywords = append(f.keywords, f.fold.String(k))
		}
	}
	return f
}

// NormalizeState trims and upper-cases a state or country code.
func NormalizeState(s string) string {
	return strings.ToUpper(strings.TrimSpace(s))
}

func isTwoLetters(s string) bool {
	if len(s) != 2 {
		return false
	}
	for i := 0; i < 2; i++ {
		if c := s[i]; c < 'A' || c > 'Z' {
			return false
		}
	}
	return true
}

// Check returns the first failing predicate for r, or "" and true when r
// passes every one.
func (f *Filter) Check(r *model.Record) (Reason, bool) {
	state := NormalizeState(model.Str(r.Company.Address.State))
	if !isTwoLetters(state) || f.placeholders[state] {
		return ReasonCountry, false
	}
	if r.FundingAmount() < f.criteria.MinFunding {
		return ReasonFunding, false
	}
	if !f.states[state] {
		return ReasonLocation, false
	}
	if f.excludedIndustry(model.Str(r.Company.Industry)) {
		return ReasonIndustry, false
	}
	return "", true
}

func (f *Filter) excludedIndustry(industry string) bool {
	if industry == "" {
		return false
	}
	folded := f.fold.String(industry)
	for _, k := range f.keywords {
		if strings.Contains(folded, k) {
			return true
		}
	}
	return false
}

// Apply keeps the records that pass every predicate, in input order.
// Records are never modified.
func (f *Filter) Apply(records []model.Record) ([]model.Record, *Stats) {
	stats := newStats(len(records))
	kept := make([]model.Record, 0, len(records))

	for i := range records {
		r := &records[i]
		if reason, ok := f.Check(r); !ok {
			stats.Removed[reason]++
			continue
		}
		kept = append(kept, *r)
		stats.record(r)
	}
	stats.Final = len(kept)
	return kept, stats
}

// Metadata builds output metadata from the input document's metadata.
// Prior keys are carried forward.
func (f *Filter) Metadata(prev map[string]any, input string, stats *Stats) map[string]any {
	md := make(map[string]any, len(prev)+6)
	for k, v := range prev {
		md[k] = v
	}
	rejections := make(map[string]int, len(Reasons))
	for _, r := range Reasons {
		rejections[string(r)] = stats.Removed[r]
	}

	md["filtered_from"] = input
	md["original_total"] = stats.Initial
	md["filtered_total"] = stats.Final
	md["total_companies"] = stats.Final
	md["filters_applied"] = map[string]any{
		"min_funding":           f.criteria.MinFunding,
		"target_states":         sortedKeys(f.states),
		"excluded_placeholders": sortedKeys(f.placeholders),
		"excluded_industries":   f.keywords,
	}
	md["rejections"] = rejections
	return md
}
