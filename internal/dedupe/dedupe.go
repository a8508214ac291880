// Package dedupe removes records that describe the same company under
// different accession numbers.
package dedupe

import (
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/sells-group/formd-cli/internal/model"
)

// maxExamples caps the duplicate examples kept for reporting.
const maxExamples = 5

// Key identifies a company by normalized name, phone and address.
type Key struct {
	Name    string
	Phone   string
	Address string
}

// Example is one reported duplicate: the record at DuplicateIndex repeats
// the one kept at OriginalIndex.
type Example struct {
	Name           string `json:"name"`
	OriginalIndex  int    `json:"original_index"`
	DuplicateIndex int    `json:"duplicate_index"`
}

// Result is the outcome of Unique.
type Result struct {
	Records    []model.Record
	Duplicates int
	UniqueKeys int
	Examples   []Example
}

// keyer lower-cases key fields. A Caser is stateful, so each keyer
// belongs to one goroutine.
type keyer struct {
	lower cases.Caser
}

func newKeyer() *keyer {
	return &keyer{lower: cases.Lower(language.Und)}
}

func (k *keyer) norm(s *string) string {
	if s == nil {
		return ""
	}
	return k.lower.String(strings.TrimSpace(*s))
}

func (k *keyer) key(r *model.Record) Key {
	a := &r.Company.Address
	parts := make([]string, 0, 5)
	for _, p := range []*string{a.Street1, a.Street2, a.City, a.State, a.Zip} {
		if v := k.norm(p); v != "" {
			parts = append(parts, v)
		}
	}
	return Key{
		Name:    k.norm(r.Company.Name),
		Phone:   k.norm(a.Phone),
		Address: strings.Join(parts, " "),
	}
}

// KeyOf builds the coarse identity key for r.
func KeyOf(r *model.Record) Key {
	return newKeyer().key(r)
}

// Unique keeps the first record for every key, preserving input order.
func Unique(records []model.Record) *Result {
	kr := newKeyer()
	seen := make(map[Key]int, len(records))
	res := &Result{Records: make([]model.Record, 0, len(records)), Examples: []Example{}}

	for i := range records {
		k := kr.key(&records[i])
		if orig, ok := seen[k]; ok {
			res.Duplicates++
			if len(res.Examples) < maxExamples {
				res.Examples = append(res.Examples, Example{
					Name:           model.Str(records[i].Company.Name),
					OriginalIndex:  orig,
					DuplicateIndex: i,
				})
			}
			continue
		}
		seen[k] = i
		res.Records = append(res.Records, records[i])
	}
	res.UniqueKeys = len(seen)
	return res
}

// Metadata returns prev with the dedup counters applied.
func (r *Result) Metadata(prev map[string]any, now time.Time) map[string]any {
	md := make(map[string]any, len(prev)+5)
	for k, v := range prev {
		md[k] = v
	}
	examples := r.Examples
	if examples == nil {
		examples = []Example{}
	}
	md["total_companies"] = len(r.Records)
	md["duplicates_removed"] = r.Duplicates
	md["unique_keys"] = r.UniqueKeys
	md["duplicate_examples"] = examples
	md["deduplicated_at"] = now.UTC().Format(time.RFC3339)
	return md
}

// OutputPath inserts "_unique" before the extension of input.
func OutputPath(input string) string {
	ext := filepath.Ext(input)
	return strings.TrimSuffix(input, ext) + "_unique" + ext
}
