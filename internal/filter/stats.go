package filter

import (
	"sort"

	"github.com/sells-group/formd-cli/internal/model"
)

// Funding range labels, smallest first.
var FundingRanges = []string{"$1M-$5M", "$5M-$10M", "$10M-$25M", "$25M-$50M", "$50M+"}

// FundingRange buckets an amount. Amounts under $5M share the first bucket.
func FundingRange(amount float64) string {
	switch {
	case amount < 5_000_000:
		return FundingRanges[0]
	case amount < 10_000_000:
		return FundingRanges[1]
	case amount < 25_000_000:
		return FundingRanges[2]
	case amount < 50_000_000:
		return FundingRanges[3]
	default:
		return FundingRanges[4]
	}
}

// Stats accounts for a filter run. Initial always equals Final plus the
// sum of Removed.
type Stats struct {
	Initial        int
	Removed        map[Reason]int
	Final          int
	ByState        map[string]int
	ByFundingRange map[string]int
	ByIndustry     map[string]int
}

func newStats(initial int) *Stats {
	return &Stats{
		Initial:        initial,
		Removed:        make(map[Reason]int, len(Reasons)),
		ByState:        map[string]int{},
		ByFundingRange: map[string]int{},
		ByIndustry:     map[string]int{},
	}
}

func (s *Stats) record(r *model.Record) {
	s.ByState[NormalizeState(model.Str(r.Company.Address.State))]++
	s.ByFundingRange[FundingRange(r.FundingAmount())]++
	if ind := model.Str(r.Company.Industry); ind != "" {
		s.ByIndustry[ind]++
	}
}

// TotalRemoved sums the rejection counters.
func (s *Stats) TotalRemoved() int {
	n := 0
	for _, v := range s.Removed {
		n += v
	}
	return n
}

// IndustryCount is a (name, count) pair.
type IndustryCount struct {
	Industry string
	Count    int
}

// TopIndustries returns the n most common industries, ties broken by name.
func (s *Stats) TopIndustries(n int) []IndustryCount {
	out := make([]IndustryCount, 0, len(s.ByIndustry))
	for k, v := range s.ByIndustry {
		out = append(out, IndustryCount{k, v})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Industry < out[j].Industry
	})
	if n >= 0 && len(out) > n {
		out = out[:n]
	}
	return out
}

func sortedKeys(m map[string]bool) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
