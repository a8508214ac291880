package flatten

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tealeg/xlsx/v2"

	"github.com/sells-group/formd-cli/internal/model"
)

var wantColumns = []string{
	"Company_Name", "Industry", "Funding_Formatted", "Funding_Amount", "City", "State",
	"Phone", "Street_Address", "Zip", "Entity_Type", "Year_Incorporated", "Amount_Sold",
	"Investors", "Filing_Date", "Primary_Contact", "Accession_Number",
}

func record(acc, name string, offering, sold *float64) model.Record {
	r := model.Record{AccessionNumber: acc, RelatedPersons: []model.RelatedPerson{}}
	r.Company.Name = model.StrPtr(name)
	r.Funding.TotalOfferingAmount = offering
	r.Funding.TotalAmountSold = sold
	return r
}

func TestColumns(t *testing.T) {
	t.Parallel()

	cols, err := Columns()
	require.NoError(t, err)
	assert.Equal(t, wantColumns, cols)
	assert.Len(t, Row{}.values(), len(cols))
}

func TestFlatten(t *testing.T) {
	t.Parallel()

	r := record("0001", "Acme Robotics", model.Ptr(12_000_000.0), model.Ptr(9_500_000.5))
	r.Company.Industry = model.StrPtr("Other Technology")
	r.Company.EntityType = model.StrPtr("Corporation")
	r.Company.YearIncorporated = model.Ptr(2019)
	r.Company.Address = model.Address{
		Street1: model.StrPtr("1 Main St"),
		Street2: model.StrPtr("Suite 2"),
		City:    model.StrPtr("Boston"),
		State:   model.StrPtr("MA"),
		Zip:     model.StrPtr("02110"),
		Phone:   model.StrPtr("617-555-0100"),
	}
	r.Funding.NumberOfInvestors = model.Ptr(4)
	r.Filing.DateFiled = model.StrPtr("15-JAN-2024")
	r.RelatedPersons = []model.RelatedPerson{
		{Name: model.StrPtr("Jane Doe")},
		{Name: model.StrPtr("John Roe")},
	}

	got := Flatten(&r)
	assert.Equal(t, Row{
		CompanyName:      "Acme Robotics",
		Industry:         "Other Technology",
		FundingFormatted: "$12,000,000",
		FundingAmount:    "12000000",
		City:             "Boston",
		State:            "MA",
		Phone:            "617-555-0100",
		StreetAddress:    "1 Main St",
		Zip:              "02110",
		EntityType:       "Corporation",
		YearIncorporated: "2019",
		AmountSold:       "9500000.5",
		Investors:        "4",
		FilingDate:       "15-JAN-2024",
		PrimaryContact:   "Jane Doe",
		AccessionNumber:  "0001",
		amount:           12_000_000,
	}, got)
}

func TestFlatten_Missing(t *testing.T) {
	t.Parallel()

	r := record("0002", "", nil, nil)
	got := Flatten(&r)
	assert.Equal(t, "$0", got.FundingFormatted)
	assert.Equal(t, "0", got.FundingAmount)
	assert.Empty(t, got.AmountSold)
	assert.Empty(t, got.Investors)
	assert.Empty(t, got.YearIncorporated)
	assert.Empty(t, got.PrimaryContact)
}

func TestRank(t *testing.T) {
	t.Parallel()

	records := []model.Record{
		record("a", "Small", model.Ptr(1_000_000.0), nil),
		record("b", "Big", model.Ptr(50_000_000.0), nil),
		record("c", "TieFirst", model.Ptr(5_000_000.0), nil),
		record("d", "SoldOnly", nil, model.Ptr(7_000_000.0)),
		record("e", "TieSecond", model.Ptr(5_000_000.0), nil),
	}

	accessions := func(rows []Row) string {
		var ids []string
		for _, r := range rows {
			ids = append(ids, r.AccessionNumber)
		}
		return strings.Join(ids, ",")
	}

	assert.Equal(t, "b,d,c,e,a", accessions(Rank(records, 0)))
	assert.Equal(t, "b,d", accessions(Rank(records, 2)))
	assert.Equal(t, "b,d,c,e,a", accessions(Rank(records, 50)))
	assert.Empty(t, Rank(nil, 10))
}

func TestFormatFunding(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "$0", FormatFunding(0))
	assert.Equal(t, "$0", FormatFunding(-5))
	assert.Equal(t, "$999", FormatFunding(999))
	assert.Equal(t, "$1,500,000", FormatFunding(1_500_000))
}

func TestEncodeCSV(t *testing.T) {
	t.Parallel()

	rows := Rank([]model.Record{record("0001", "Acme, Inc.", model.Ptr(2_000_000.0), nil)}, 0)

	var buf bytes.Buffer
	require.NoError(t, EncodeCSV(&buf, rows))

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, strings.Join(wantColumns, ","), lines[0])
	assert.Equal(t, `"Acme, Inc.",,"$2,000,000",2000000,,,,,,,,,,,,0001`, lines[1])
}

func TestWriteXLSX(t *testing.T) {
	t.Parallel()

	rows := Rank([]model.Record{
		record("0001", "Acme", model.Ptr(2_000_000.0), nil),
		record("0002", "Beta", model.Ptr(3_000_000.0), nil),
	}, 0)

	path := filepath.Join(t.TempDir(), "top.xlsx")
	require.NoError(t, Write(path, rows, FormatXLSX))

	f, err := xlsx.OpenFile(path)
	require.NoError(t, err)
	require.Len(t, f.Sheets, 1)

	sheet := f.Sheets[0]
	assert.Equal(t, sheetName, sheet.Name)
	require.Len(t, sheet.Rows, 3)
	assert.Equal(t, "Company_Name", sheet.Rows[0].Cells[0].String())
	assert.Equal(t, "Beta", sheet.Rows[1].Cells[0].String())

	amount, err := sheet.Rows[1].Cells[3].Float()
	require.NoError(t, err)
	assert.Equal(t, 3_000_000.0, amount)
	assert.Equal(t, "0002", sheet.Rows[1].Cells[15].String())
}

func TestParseFormat(t *testing.T) {
	t.Parallel()

	f, err := ParseFormat(" XLSX ")
	require.NoError(t, err)
	assert.Equal(t, FormatXLSX, f)

	_, err = ParseFormat("parquet")
	assert.Error(t, err)
}

func TestDistribution(t *testing.T) {
	t.Parallel()

	rows := Rank([]model.Record{
		record("a", "A", model.Ptr(2_000_000.0), nil),
		record("b", "B", model.Ptr(60_000_000.0), nil),
		record("c", "C", model.Ptr(3_000_000.0), nil),
	}, 0)
	assert.Equal(t, map[string]int{"$1M-$5M": 2, "$50M+": 1}, Distribution(rows))
}
