package formd

import (
	"math"
	"strings"
	"time"

	"github.com/sells-group/formd-cli/internal/model"
)

// stageBound is the lower edge of a half-open [Low, next.Low) bucket.
type stageBound struct {
	Low   float64
	Stage model.Stage
}

// stageTable is ordered by Low. An amount maps to the last bound whose Low
// is <= amount; amounts below zero fall into the first bucket.
var stageTable = []stageBound{
	{0, model.StagePreSeed},
	{2_000_000, model.StageSeed},
	{5_000_000, model.StageSeriesA},
	{15_000_000, model.StageSeriesB},
	{40_000_000, model.StageSeriesC},
	{100_000_000, model.StageSeriesDP},
}

// EstimateStage maps the total amount sold to a round label. Nil in, nil out.
func EstimateStage(amountSold *float64) *model.Stage {
	if amountSold == nil || math.IsNaN(*amountSold) {
		return nil
	}
	stage := stageTable[0].Stage
	for _, b := range stageTable[1:] {
		if *amountSold < b.Low {
			break
		}
		stage = b.Stage
	}
	return &stage
}

// filingDateLayouts are tried in order; the first that parses wins.
// Day-month-year with an abbreviated month (e.g. 15-JAN-2024) is what the
// extracts use. Month names match case-insensitively.
var filingDateLayouts = []string{
	"2-Jan-2006",
	"2006-1-2",
	"1/2/2006",
}

// ParseFilingDate parses s against filingDateLayouts.
func ParseFilingDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range filingDateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// MonthsBetween counts whole elapsed days from filed to ref and divides by
// 30, rounding toward negative infinity.
func MonthsBetween(filed, ref time.Time) int {
	days := math.Floor(ref.Sub(filed).Hours() / 24)
	return int(math.Floor(days / 30))
}

// RecencyFor buckets elapsed months.
func RecencyFor(months int) model.Recency {
	switch {
	case months < 6:
		return model.RecencyVeryRecent
	case months < 12:
		return model.RecencyRecent
	case months < 24:
		return model.RecencyModerate
	default:
		return model.RecencyOlder
	}
}

// deriveAge fills the company_age block against ref.
func deriveAge(yearInc *int, dateFiled *string, ref time.Time) model.CompanyAge {
	var age model.CompanyAge
	if yearInc != nil && *yearInc != 0 {
		age.YearsSinceIncorporation = model.Ptr(ref.Year() - *yearInc)
	}
	if dateFiled == nil {
		return age
	}
	filed, ok := ParseFilingDate(*dateFiled)
	if !ok {
		return age
	}
	months := MonthsBetween(filed, ref)
	age.MonthsSinceFunding = &months
	age.FundingRecency = model.Ptr(RecencyFor(months))
	return age
}
