package formd

import (
	"bufio"
	"context"
	"os"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/formd-cli/internal/fetcher"
)

// Source file names inside a quarterly Form D data set.
const (
	FileSubmission     = "FORMDSUBMISSION.tsv"
	FileIssuers        = "ISSUERS.tsv"
	FileOffering       = "OFFERING.tsv"
	FileRelatedPersons = "RELATEDPERSONS.tsv"
)

// RequiredFiles lists the tables a period must contain, in load order.
var RequiredFiles = []string{FileSubmission, FileIssuers, FileOffering, FileRelatedPersons}

// Column names used from each table.
const (
	colAccession = "ACCESSIONNUMBER"

	colFilingDate     = "FILING_DATE"
	colSubmissionType = "SUBMISSIONTYPE"

	colPrimaryIssuer = "IS_PRIMARYISSUER_FLAG"
	colEntityName    = "ENTITYNAME"
	colStreet1       = "STREET1"
	colStreet2       = "STREET2"
	colCity          = "CITY"
	colState         = "STATEORCOUNTRY"
	colZip           = "ZIPCODE"
	colPhone         = "ISSUERPHONENUMBER"
	colEntityType    = "ENTITYTYPE"
	colYearOfInc     = "YEAROFINC_VALUE_ENTERED"

	colIndustry      = "INDUSTRYGROUPTYPE"
	colIsAmendment   = "ISAMENDMENT"
	colOfferingAmt   = "TOTALOFFERINGAMOUNT"
	colAmountSold    = "TOTALAMOUNTSOLD"
	colRemaining     = "TOTALREMAINING"
	colInvestedCount = "TOTALNUMBERALREADYINVESTED"
	colSaleDate      = "SALE_DATE"

	colFirstName  = "FIRSTNAME"
	colMiddleName = "MIDDLENAME"
	colLastName   = "LASTNAME"
)

var relationshipCols = []string{"RELATIONSHIP_1", "RELATIONSHIP_2", "RELATIONSHIP_3"}

// table is a fully loaded TSV with a normalized header index.
type table struct {
	name   string
	colIdx map[string]int
	rows   [][]string
}

// normalizeCol upper-cases and trims a header cell so lookups are
// insensitive to case and stray whitespace.
func normalizeCol(s string) string {
	return strings.ToUpper(strings.TrimSpace(s))
}

// get returns the raw cell for a named column, or "" when the column is
// absent or the row is short.
func (t *table) get(row []string, col string) string {
	idx, ok := t.colIdx[normalizeCol(col)]
	if !ok || idx >= len(row) {
		return ""
	}
	return row[idx]
}

func (t *table) has(col string) bool {
	_, ok := t.colIdx[normalizeCol(col)]
	return ok
}

// readTable streams a tab-separated file into memory.
func readTable(ctx context.Context, path, name string) (*table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, eris.Wrapf(err, "formd: open %s", name)
	}
	defer f.Close() //nolint:errcheck

	headerCh := make(chan []string, 1)
	rowCh, errCh := fetcher.StreamCSV(ctx, bufio.NewReaderSize(f, 1<<20), fetcher.TSVOptions(headerCh))

	t := &table{name: name, colIdx: map[string]int{}}
	for row := range rowCh {
		t.rows = append(t.rows, row)
	}
	if err := <-errCh; err != nil {
		return nil, eris.Wrapf(err, "formd: read %s", name)
	}

	select {
	case header := <-headerCh:
		for i, col := range header {
			key := normalizeCol(col)
			if _, dup := t.colIdx[key]; !dup {
				t.colIdx[key] = i
			}
		}
	default:
		// empty file: no header, no rows
	}

	if len(t.rows) > 0 && !t.has(colAccession) {
		return nil, eris.Errorf("formd: %s has no %s column", name, colAccession)
	}
	return t, nil
}
