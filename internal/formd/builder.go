package formd

import (
	"strings"
	"time"

	"github.com/sells-group/formd-cli/internal/model"
)

// Builder turns one period's tables into records.
type Builder struct {
	// Quarter is the period label stamped on every record.
	Quarter string
	// Reference is the instant ages and recency are measured against.
	Reference time.Time
	// ProcessedAt is stamped into each record's metadata.
	ProcessedAt time.Time
}

// BuildResult is the output of Builder.Build.
type BuildResult struct {
	Records []model.Record
	// DroppedWithoutIssuer counts offerings with no matching issuer row.
	DroppedWithoutIssuer int
}

// Build emits one record per distinct accession number in the offering
// table, in first-seen order. The issuer is required; the submission is
// optional. Related persons keep their source row order.
func (b *Builder) Build(src *Source) *BuildResult {
	issuers := indexIssuers(src.Issuers)
	submissions := indexFirst(src.Submissions)
	persons := indexAll(src.RelatedPersons)

	res := &BuildResult{Records: []model.Record{}}
	seen := make(map[string]struct{}, len(src.Offerings.rows))

	for _, off := range src.Offerings.rows {
		acc := strings.TrimSpace(src.Offerings.get(off, colAccession))
		if acc == "" {
			continue
		}
		if _, dup := seen[acc]; dup {
			continue
		}
		seen[acc] = struct{}{}

		iss, ok := issuers[acc]
		if !ok {
			res.DroppedWithoutIssuer++
			continue
		}

		var sub []string
		if i, ok := submissions[acc]; ok {
			sub = src.Submissions.rows[i]
		}

		res.Records = append(res.Records, b.record(src, acc, off, src.Issuers.rows[iss], sub, persons[acc]))
	}
	return res
}

func (b *Builder) record(src *Source, acc string, off, iss, sub []string, personRows []int) model.Record {
	yearInc := cleanInt(src.Issuers.get(iss, colYearOfInc))
	amountSold := cleanFloat(src.Offerings.get(off, colAmountSold))

	var dateFiled, submissionType *string
	if sub != nil {
		dateFiled = cleanString(src.Submissions.get(sub, colFilingDate))
		submissionType = cleanString(src.Submissions.get(sub, colSubmissionType))
	}

	related := make([]model.RelatedPerson, 0, len(personRows))
	for _, i := range personRows {
		related = append(related, relatedPerson(src.RelatedPersons, src.RelatedPersons.rows[i]))
	}

	return model.Record{
		AccessionNumber: acc,
		Company: model.Company{
			Name: cleanString(src.Issuers.get(iss, colEntityName)),
			Address: model.Address{
				Street1: cleanString(src.Issuers.get(iss, colStreet1)),
				Street2: cleanString(src.Issuers.get(iss, colStreet2)),
				City:    cleanString(src.Issuers.get(iss, colCity)),
				State:   cleanString(src.Issuers.get(iss, colState)),
				Zip:     cleanString(src.Issuers.get(iss, colZip)),
				Phone:   cleanString(src.Issuers.get(iss, colPhone)),
			},
			EntityType:       cleanString(src.Issuers.get(iss, colEntityType)),
			YearIncorporated: yearInc,
			Industry:         cleanString(src.Offerings.get(off, colIndustry)),
		},
		Funding: model.Funding{
			TotalOfferingAmount: cleanFloat(src.Offerings.get(off, colOfferingAmt)),
			TotalAmountSold:     amountSold,
			TotalRemaining:      cleanFloat(src.Offerings.get(off, colRemaining)),
			NumberOfInvestors:   cleanInt(src.Offerings.get(off, colInvestedCount)),
			DateOfFirstSale:     cleanString(src.Offerings.get(off, colSaleDate)),
			StageEstimate:       EstimateStage(amountSold),
		},
		Filing: model.Filing{
			DateFiled:      dateFiled,
			SubmissionType: submissionType,
			IsAmendment:    parseBoolYN(src.Offerings.get(off, colIsAmendment)),
			Quarter:        b.Quarter,
		},
		CompanyAge:     deriveAge(yearInc, dateFiled, b.Reference),
		RelatedPersons: related,
		Metadata: model.RecordMetadata{
			SourceQuarter: b.Quarter,
			ProcessedDate: b.ProcessedAt,
		},
	}
}

func relatedPerson(t *table, row []string) model.RelatedPerson {
	first := cleanString(t.get(row, colFirstName))
	middle := cleanString(t.get(row, colMiddleName))
	last := cleanString(t.get(row, colLastName))

	rels := []string{}
	for _, col := range relationshipCols {
		if r := cleanString(t.get(row, col)); r != nil && *r != "" {
			rels = append(rels, *r)
		}
	}

	return model.RelatedPerson{
		Name:          joinNonEmpty(first, middle, last),
		FirstName:     first,
		MiddleName:    middle,
		LastName:      last,
		Relationships: rels,
		City:          cleanString(t.get(row, colCity)),
		State:         cleanString(t.get(row, colState)),
	}
}

// indexIssuers maps accession to the issuer row to join: the row flagged
// primary when there is one, else the first row seen.
func indexIssuers(t *table) map[string]int {
	idx := make(map[string]int, len(t.rows))
	primary := make(map[string]bool, len(t.rows))
	for i, row := range t.rows {
		acc := strings.TrimSpace(t.get(row, colAccession))
		if acc == "" {
			continue
		}
		isPrimary := isPrimaryFlag(t.get(row, colPrimaryIssuer))
		if _, ok := idx[acc]; !ok || (isPrimary && !primary[acc]) {
			idx[acc] = i
			primary[acc] = isPrimary
		}
	}
	return idx
}

// indexFirst maps accession to its first row.
func indexFirst(t *table) map[string]int {
	idx := make(map[string]int, len(t.rows))
	for i, row := range t.rows {
		acc := strings.TrimSpace(t.get(row, colAccession))
		if _, ok := idx[acc]; !ok && acc != "" {
			idx[acc] = i
		}
	}
	return idx
}

// indexAll maps accession to all of its rows in source order.
func indexAll(t *table) map[string][]int {
	idx := make(map[string][]int)
	for i, row := range t.rows {
		acc := strings.TrimSpace(t.get(row, colAccession))
		if acc != "" {
			idx[acc] = append(idx[acc], i)
		}
	}
	return idx
}
