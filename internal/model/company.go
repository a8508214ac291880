// Package model defines the normalized Form D record and the document envelope
// exchanged between pipeline stages.
package model

import (
	"math"
	"strings"
	"time"
)

// Stage is a heuristic investment-round label derived from total amount sold.
type Stage string

const (
	StagePreSeed  Stage = "Pre-Seed"
	StageSeed     Stage = "Seed"
	StageSeriesA  Stage = "Series A"
	StageSeriesB  Stage = "Series B"
	StageSeriesC  Stage = "Series C"
	StageSeriesDP Stage = "Series D+"
)

// Recency is a coarse bucket for elapsed months since a filing.
type Recency string

const (
	RecencyVeryRecent Recency = "very_recent" // < 6 months
	RecencyRecent     Recency = "recent"      // < 12 months
	RecencyModerate   Recency = "moderate"    // < 24 months
	RecencyOlder      Recency = "older"
)

// Record is one company's filing snapshot for one period.
type Record struct {
	AccessionNumber string          `json:"accession_number"`
	Company         Company         `json:"company"`
	Funding         Funding         `json:"funding"`
	Filing          Filing          `json:"filing"`
	CompanyAge      CompanyAge      `json:"company_age"`
	RelatedPersons  []RelatedPerson `json:"related_persons"`
	Metadata        RecordMetadata  `json:"metadata"`
	InferredDomains *Enrichment     `json:"inferred_domains,omitempty"`
}

// Company holds issuer identity and location.
type Company struct {
	Name             *string `json:"name"`
	Address          Address `json:"address"`
	EntityType       *string `json:"entity_type"`
	YearIncorporated *int    `json:"year_incorporated"`
	Industry         *string `json:"industry"`
}

// Address is the issuer's postal address and phone.
type Address struct {
	Street1 *string `json:"street1"`
	Street2 *string `json:"street2"`
	City    *string `json:"city"`
	State   *string `json:"state"`
	Zip     *string `json:"zip"`
	Phone   *string `json:"phone"`
}

// Funding holds offering amounts. Every numeric field is a number or null.
type Funding struct {
	TotalOfferingAmount *float64 `json:"total_offering_amount"`
	TotalAmountSold     *float64 `json:"total_amount_sold"`
	TotalRemaining      *float64 `json:"total_remaining"`
	NumberOfInvestors   *int     `json:"number_of_investors"`
	DateOfFirstSale     *string  `json:"date_of_first_sale"`
	StageEstimate       *Stage   `json:"stage_estimate"`
}

// Filing holds submission metadata.
type Filing struct {
	DateFiled      *string `json:"date_filed"`
	SubmissionType *string `json:"submission_type"`
	IsAmendment    bool    `json:"is_amendment"`
	Quarter        string  `json:"quarter"`
}

// CompanyAge holds fields derived against the processing reference time.
type CompanyAge struct {
	YearsSinceIncorporation *int     `json:"years_since_incorporation"`
	MonthsSinceFunding      *int     `json:"months_since_funding"`
	FundingRecency          *Recency `json:"funding_recency"`
}

// RelatedPerson is an executive, director or promoter listed on the filing.
type RelatedPerson struct {
	Name          *string  `json:"name"`
	FirstName     *string  `json:"first_name"`
	MiddleName    *string  `json:"middle_name"`
	LastName      *string  `json:"last_name"`
	Relationships []string `json:"relationships"`
	City          *string  `json:"city"`
	State         *string  `json:"state"`
}

// RecordMetadata records where and when a record was built.
type RecordMetadata struct {
	SourceQuarter string    `json:"source_quarter"`
	ProcessedDate time.Time `json:"processed_date"`
}

// FundingAmount returns the amount used for ranking and thresholds: the
// offering amount when positive, else the amount sold when positive, else 0.
func (r *Record) FundingAmount() float64 {
	if v := r.Funding.TotalOfferingAmount; v != nil && *v > 0 && !math.IsNaN(*v) {
		return *v
	}
	if v := r.Funding.TotalAmountSold; v != nil && *v > 0 && !math.IsNaN(*v) {
		return *v
	}
	return 0
}

// MonthsOrMax returns months since funding, or math.MaxInt when unknown so
// that records with no date compare as the oldest.
func (r *Record) MonthsOrMax() int {
	if r.CompanyAge.MonthsSinceFunding == nil {
		return math.MaxInt
	}
	return *r.CompanyAge.MonthsSinceFunding
}

// Str dereferences an optional string, returning "" for nil.
func Str(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// StrPtr returns a pointer to the trimmed value, or nil when it is empty.
func StrPtr(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}

// Ptr returns a pointer to v.
func Ptr[T any](v T) *T {
	return &v
}
