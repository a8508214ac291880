// Package flatten projects records into a ranked, fixed-column table for
// spreadsheet use.
package flatten

import (
	"math"
	"slices"
	"strconv"

	"github.com/jszwec/csvutil"
	"github.com/rotisserie/eris"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/sells-group/formd-cli/internal/model"
)

// DefaultTopN is the default number of rows exported.
const DefaultTopN = 100

// Row is one exported company. Field order is column order.
type Row struct {
	CompanyName      string `csv:"Company_Name"`
	Industry         string `csv:"Industry"`
	FundingFormatted string `csv:"Funding_Formatted"`
	FundingAmount    string `csv:"Funding_Amount"`
	City             string `csv:"City"`
	State            string `csv:"State"`
	Phone            string `csv:"Phone"`
	StreetAddress    string `csv:"Street_Address"`
	Zip              string `csv:"Zip"`
	EntityType       string `csv:"Entity_Type"`
	YearIncorporated string `csv:"Year_Incorporated"`
	AmountSold       string `csv:"Amount_Sold"`
	Investors        string `csv:"Investors"`
	FilingDate       string `csv:"Filing_Date"`
	PrimaryContact   string `csv:"Primary_Contact"`
	AccessionNumber  string `csv:"Accession_Number"`

	amount float64
}

// Amount is the ranking amount behind FundingAmount.
func (r Row) Amount() float64 { return r.amount }

func (r Row) values() []string {
	return []string{
		r.CompanyName, r.Industry, r.FundingFormatted, r.FundingAmount,
		r.City, r.State, r.Phone, r.StreetAddress, r.Zip,
		r.EntityType, r.YearIncorporated, r.AmountSold, r.Investors,
		r.FilingDate, r.PrimaryContact, r.AccessionNumber,
	}
}

// Columns returns the header in export order.
func Columns() ([]string, error) {
	cols, err := csvutil.Header(Row{}, "csv")
	if err != nil {
		return nil, eris.Wrap(err, "flatten: header")
	}
	return cols, nil
}

func formatFloat(v *float64) string {
	if v == nil || math.IsNaN(*v) {
		return ""
	}
	return strconv.FormatFloat(*v, 'f', -1, 64)
}

func formatInt(v *int) string {
	if v == nil {
		return ""
	}
	return strconv.Itoa(*v)
}

// FormatFunding renders an amount as whole dollars with thousands
// separators, or "$0".
func FormatFunding(amount float64) string {
	if amount <= 0 {
		return "$0"
	}
	p := message.NewPrinter(language.English)
	return p.Sprintf("$%d", int64(math.Round(amount)))
}

// Flatten projects r into a row. The primary contact is the first related
// person.
func Flatten(r *model.Record) Row {
	c := &r.Company
	amount := r.FundingAmount()
	row := Row{
		CompanyName:      model.Str(c.Name),
		Industry:         model.Str(c.Industry),
		FundingFormatted: FormatFunding(amount),
		FundingAmount:    strconv.FormatFloat(amount, 'f', -1, 64),
		City:             model.Str(c.Address.City),
		State:            model.Str(c.Address.State),
		Phone:            model.Str(c.Address.Phone),
		StreetAddress:    model.Str(c.Address.Street1),
		Zip:              model.Str(c.Address.Zip),
		EntityType:       model.Str(c.EntityType),
		YearIncorporated: formatInt(c.YearIncorporated),
		AmountSold:       formatFloat(r.Funding.TotalAmountSold),
		Investors:        formatInt(r.Funding.NumberOfInvestors),
		FilingDate:       model.Str(r.Filing.DateFiled),
		AccessionNumber:  r.AccessionNumber,
		amount:           amount,
	}
	if len(r.RelatedPersons) > 0 {
		row.PrimaryContact = model.Str(r.RelatedPersons[0].Name)
	}
	return row
}

// Rank flattens records, orders them by funding amount descending and keeps
// the first topN. topN <= 0 keeps every row. Equal amounts keep input order.
func Rank(records []model.Record, topN int) []Row {
	rows := make([]Row, len(records))
	for i := range records {
		rows[i] = Flatten(&records[i])
	}
	slices.SortStableFunc(rows, func(a, b Row) int {
		switch {
		case a.amount > b.amount:
			return -1
		case a.amount < b.amount:
			return 1
		default:
			return 0
		}
	})
	if topN > 0 && len(rows) > topN {
		rows = rows[:topN]
	}
	return rows
}
