package model

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFundingAmount(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		offering *float64
		sold     *float64
		want     float64
	}{
		{"offering preferred", Ptr(10_000_000.0), Ptr(4_000_000.0), 10_000_000},
		{"falls back to sold", nil, Ptr(4_000_000.0), 4_000_000},
		{"zero offering falls back", Ptr(0.0), Ptr(3_000_000.0), 3_000_000},
		{"negative offering falls back", Ptr(-1.0), Ptr(3_000_000.0), 3_000_000},
		{"zero offering no sold", Ptr(0.0), nil, 0},
		{"negative sold ignored", nil, Ptr(-5.0), 0},
		{"both missing", nil, nil, 0},
		{"nan ignored", Ptr(math.NaN()), nil, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			r := Record{Funding: Funding{TotalOfferingAmount: tt.offering, TotalAmountSold: tt.sold}}
			assert.Equal(t, tt.want, r.FundingAmount())
		})
	}
}

func TestMonthsOrMax(t *testing.T) {
	t.Parallel()

	r := Record{}
	assert.Equal(t, math.MaxInt, r.MonthsOrMax())

	r.CompanyAge.MonthsSinceFunding = Ptr(7)
	assert.Equal(t, 7, r.MonthsOrMax())
}

func TestStrPtr(t *testing.T) {
	t.Parallel()

	assert.Nil(t, StrPtr("   "))
	require.NotNil(t, StrPtr(" Boston "))
	assert.Equal(t, "Boston", *StrPtr(" Boston "))
	assert.Equal(t, "", Str(nil))
}

func TestRecord_JSONNulls(t *testing.T) {
	t.Parallel()

	r := Record{AccessionNumber: "0001", RelatedPersons: []RelatedPerson{}}
	data, err := json.Marshal(r)
	require.NoError(t, err)

	var raw map[string]any
	require.NoError(t, json.Unmarshal(data, &raw))

	funding := raw["funding"].(map[string]any)
	assert.Contains(t, funding, "total_amount_sold")
	assert.Nil(t, funding["total_amount_sold"])
	assert.Equal(t, []any{}, raw["related_persons"])
	assert.NotContains(t, raw, "inferred_domains")
}

func TestEnrichment_Status(t *testing.T) {
	t.Parallel()

	var nilEnrichment *Enrichment
	assert.Equal(t, VerificationUnknown, nilEnrichment.Status())

	e := &Enrichment{}
	assert.Equal(t, VerificationUnknown, e.Status())

	e.SetStatus(VerificationVerified)
	assert.Equal(t, VerificationVerified, e.Status())
	assert.True(t, e.Checked)

	e.SetStatus(VerificationRejected)
	assert.Equal(t, VerificationRejected, e.Status())

	e.SetStatus(VerificationUnknown)
	assert.Nil(t, e.Verified)
	assert.False(t, e.Checked)
}

func TestTotalExecutives(t *testing.T) {
	t.Parallel()

	records := []Record{
		{RelatedPersons: []RelatedPerson{{}, {}}},
		{RelatedPersons: []RelatedPerson{}},
		{RelatedPersons: []RelatedPerson{{}}},
	}
	assert.Equal(t, 3, TotalExecutives(records))
}

func TestNewDocument_NeverNil(t *testing.T) {
	t.Parallel()

	d := NewDocument(nil)
	assert.NotNil(t, d.Companies)
	assert.NotNil(t, d.Metadata)

	d.Metadata["a"] = 1
	clone := d.CloneMetadata()
	clone["b"] = 2
	assert.NotContains(t, d.Metadata, "b")
}

func TestRunResult_Status(t *testing.T) {
	t.Parallel()

	assert.Equal(t, RunStatusComplete, RunResult{RecordsOut: 3}.Status())
	assert.Equal(t, RunStatusFailed, RunResult{Error: "boom"}.Status())
}
