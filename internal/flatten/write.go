package flatten

import (
	"encoding/csv"
	"io"
	"strings"

	"github.com/jszwec/csvutil"
	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"
	"go.uber.org/zap"

	"github.com/sells-group/formd-cli/internal/document"
	"github.com/sells-group/formd-cli/internal/filter"
)

// Format selects the export encoding.
type Format string

const (
	FormatCSV  Format = "csv"
	FormatXLSX Format = "xlsx"
)

// sheetName is the worksheet written by the XLSX encoder.
const sheetName = "Companies"

// ParseFormat validates a format name.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case FormatCSV, FormatXLSX:
		return f, nil
	default:
		return "", eris.Errorf("flatten: unknown format %q", s)
	}
}

// EncodeCSV writes rows with a header line.
func EncodeCSV(w io.Writer, rows []Row) error {
	cw := csv.NewWriter(w)
	enc := csvutil.NewEncoder(cw)
	if err := enc.EncodeHeader(Row{}); err != nil {
		return eris.Wrap(err, "flatten: encode header")
	}
	for _, r := range rows {
		if err := enc.Encode(r); err != nil {
			return eris.Wrap(err, "flatten: encode row")
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return eris.Wrap(err, "flatten: flush csv")
	}
	return nil
}

// EncodeXLSX writes rows to a single-sheet workbook. Funding_Amount is
// stored as a number.
func EncodeXLSX(w io.Writer, rows []Row) error {
	cols, err := Columns()
	if err != nil {
		return err
	}

	f := xlsx.NewFile()
	sheet, err := f.AddSheet(sheetName)
	if err != nil {
		return eris.Wrap(err, "flatten: add sheet")
	}

	header := sheet.AddRow()
	for _, c := range cols {
		header.AddCell().SetString(c)
	}
	for _, r := range rows {
		xr := sheet.AddRow()
		for i, v := range r.values() {
			cell := xr.AddCell()
			if cols[i] == "Funding_Amount" {
				cell.SetFloat(r.amount)
				continue
			}
			cell.SetString(v)
		}
	}

	if err := f.Write(w); err != nil {
		return eris.Wrap(err, "flatten: write xlsx")
	}
	return nil
}

// Write encodes rows to path atomically in the given format.
func Write(path string, rows []Row, format Format) error {
	return document.WriteAtomic(path, func(w io.Writer) error {
		switch format {
		case FormatXLSX:
			return EncodeXLSX(w, rows)
		default:
			return EncodeCSV(w, rows)
		}
	})
}

// Distribution counts rows per funding range.
func Distribution(rows []Row) map[string]int {
	out := make(map[string]int, len(filter.FundingRanges))
	for _, r := range rows {
		out[filter.FundingRange(r.amount)]++
	}
	return out
}

// LogSummary logs the leading rows and the funding distribution.
func LogSummary(rows []Row) {
	log := zap.L()
	for i, r := range rows[:min(5, len(rows))] {
		log.Info("flatten: top company",
			zap.Int("rank", i+1),
			zap.String("name", r.CompanyName),
			zap.String("city", r.City),
			zap.String("state", r.State),
			zap.String("funding", r.FundingFormatted),
			zap.String("industry", r.Industry),
		)
	}

	dist := Distribution(rows)
	for _, label := range filter.FundingRanges {
		n := dist[label]
		if n == 0 {
			continue
		}
		log.Info("flatten: funding range",
			zap.String("range", label),
			zap.Int("count", n),
			zap.Float64("percent", float64(n)/float64(len(rows))*100),
		)
	}
}
