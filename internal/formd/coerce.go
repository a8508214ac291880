package formd

import (
	"math"
	"strconv"
	"strings"
)

// naMarkers are the strings the SEC extracts use (or that spreadsheet tools
// leave behind) for a missing value.
var naMarkers = map[string]struct{}{
	"":         {},
	"#N/A":     {},
	"#N/A N/A": {},
	"#NA":      {},
	"-1.#IND":  {},
	"-1.#QNAN": {},
	"-NaN":     {},
	"-nan":     {},
	"1.#IND":   {},
	"1.#QNAN":  {},
	"<NA>":     {},
	"N/A":      {},
	"NA":       {},
	"NULL":     {},
	"NaN":      {},
	"None":     {},
	"n/a":      {},
	"nan":      {},
	"null":     {},
}

func isNA(s string) bool {
	_, ok := naMarkers[s]
	return ok
}

// cleanString trims s and returns nil for missing values.
func cleanString(s string) *string {
	s = strings.TrimSpace(s)
	if isNA(s) {
		return nil
	}
	return &s
}

// cleanFloat parses s as a float. Unparseable, NaN and infinite values are nil.
// Thousands separators and currency symbols are not stripped.
func cleanFloat(s string) *float64 {
	s = strings.TrimSpace(s)
	if isNA(s) {
		return nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return &v
}

// cleanInt parses s as a float and truncates, so "2015.0" yields 2015.
func cleanInt(s string) *int {
	f := cleanFloat(s)
	if f == nil || *f > math.MaxInt64 || *f < math.MinInt64 {
		return nil
	}
	v := int(*f)
	return &v
}

// parseBoolYN returns true if the string is "Y" (case-insensitive), false otherwise.
func parseBoolYN(s string) bool {
	return strings.EqualFold(strings.TrimSpace(s), "Y")
}

// isPrimaryFlag reports whether an IS_PRIMARYISSUER_FLAG value marks the
// primary issuer. Extracts use YES/NO; older ones use Y/N.
func isPrimaryFlag(s string) bool {
	s = strings.TrimSpace(s)
	return strings.EqualFold(s, "YES") || strings.EqualFold(s, "Y") || strings.EqualFold(s, "TRUE")
}

// joinNonEmpty joins the non-nil parts with a single space.
func joinNonEmpty(parts ...*string) *string {
	var out []string
	for _, p := range parts {
		if p != nil && *p != "" {
			out = append(out, *p)
		}
	}
	if len(out) == 0 {
		return nil
	}
	s := strings.Join(out, " ")
	return &s
}
