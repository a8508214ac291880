package combine

import (
	"encoding/csv"
	"fmt"
	"io"
	"sort"

	"github.com/jszwec/csvutil"
	"github.com/rotisserie/eris"

	"github.com/sells-group/formd-cli/internal/document"
	"github.com/sells-group/formd-cli/internal/model"
)

// largeRaise is the amount-sold threshold counted in the statistics.
const largeRaise = 5_000_000

// Statistics categories.
const (
	CategoryOverall  = "OVERALL"
	CategoryState    = "BY STATE"
	CategoryIndustry = "BY INDUSTRY"
)

// StatRow is one line of the statistics CSV.
type StatRow struct {
	Category        string `csv:"category"`
	Subcategory     string `csv:"subcategory"`
	TotalCompanies  int    `csv:"total_companies"`
	CompaniesOver5M int    `csv:"companies_over_5m"`
	PercentOver5M   string `csv:"percent_over_5m"`
}

type tally struct {
	key          string
	total, large int
}

// Statistics summarizes records overall, by state and by industry. Groups
// are ordered by size descending; equal sizes keep first-seen order.
func Statistics(records []model.Record) []StatRow {
	overall := tally{key: "All Companies"}
	var states, industries []*tally
	stateIdx := map[string]*tally{}
	industryIdx := map[string]*tally{}

	for i := range records {
		r := &records[i]
		large := r.Funding.TotalAmountSold != nil && *r.Funding.TotalAmountSold >= largeRaise

		overall.total++
		if large {
			overall.large++
		}
		if s := model.Str(r.Company.Address.State); s != "" {
			states = bump(states, stateIdx, s, large)
		}
		if ind := model.Str(r.Company.Industry); ind != "" {
			industries = bump(industries, industryIdx, ind, large)
		}
	}

	rows := []StatRow{statRow(CategoryOverall, &overall)}
	for _, group := range []struct {
		category string
		tallies  []*tally
	}{
		{CategoryState, states},
		{CategoryIndustry, industries},
	} {
		sort.SliceStable(group.tallies, func(i, j int) bool { return group.tallies[i].total > group.tallies[j].total })
		for _, t := range group.tallies {
			rows = append(rows, statRow(group.category, t))
		}
	}
	return rows
}

func bump(list []*tally, idx map[string]*tally, key string, large bool) []*tally {
	t, ok := idx[key]
	if !ok {
		t = &tally{key: key}
		idx[key] = t
		list = append(list, t)
	}
	t.total++
	if large {
		t.large++
	}
	return list
}

func statRow(category string, t *tally) StatRow {
	pct := "0%"
	if t.total > 0 {
		pct = fmt.Sprintf("%.1f%%", float64(t.large)/float64(t.total)*100)
	}
	return StatRow{
		Category:        category,
		Subcategory:     t.key,
		TotalCompanies:  t.total,
		CompaniesOver5M: t.large,
		PercentOver5M:   pct,
	}
}

// EncodeStats writes rows as CSV with a header line.
func EncodeStats(w io.Writer, rows []StatRow) error {
	cw := csv.NewWriter(w)
	enc := csvutil.NewEncoder(cw)
	if err := enc.EncodeHeader(StatRow{}); err != nil {
		return eris.Wrap(err, "combine: encode stats header")
	}
	for _, row := range rows {
		if err := enc.Encode(row); err != nil {
			return eris.Wrap(err, "combine: encode stats row")
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return eris.Wrap(err, "combine: flush stats")
	}
	return nil
}

// WriteStats writes the statistics CSV to path atomically.
func WriteStats(path string, rows []StatRow) error {
	return document.WriteAtomic(path, func(w io.Writer) error {
		return EncodeStats(w, rows)
	})
}
