// Package combine merges per-period documents into one master collection,
// keeping a single record per accession number.
package combine

import (
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/formd-cli/internal/document"
	"github.com/sells-group/formd-cli/internal/model"
)

const (
	filePrefix = "companies_sec_"
	fileSuffix = ".json"
)

// Source is one period document and the label it is ordered by.
type Source struct {
	Label string
	Doc   *model.Document
}

// Quarter returns the period name from the document metadata, falling back
// to the label with the file name prefix and suffix removed.
func (s Source) Quarter() string {
	if s.Doc != nil {
		if q, ok := s.Doc.Metadata["quarter"].(string); ok && q != "" {
			return q
		}
	}
	return strings.TrimSuffix(strings.TrimPrefix(s.Label, filePrefix), fileSuffix)
}

// LoadDir reads every companies_sec_*.json file in dir.
func LoadDir(dir string) ([]Source, error) {
	matches, err := filepath.Glob(filepath.Join(dir, filePrefix+"*"+fileSuffix))
	if err != nil {
		return nil, eris.Wrap(err, "combine: glob inputs")
	}
	if len(matches) == 0 {
		if _, statErr := os.Stat(dir); statErr != nil {
			return nil, eris.Wrapf(statErr, "combine: input dir %s", dir)
		}
		return nil, eris.Errorf("combine: no %s*%s files in %s", filePrefix, fileSuffix, dir)
	}
	sort.Strings(matches)

	sources := make([]Source, 0, len(matches))
	for _, path := range matches {
		doc, err := document.Read(path)
		if err != nil {
			return nil, eris.Wrap(err, "combine: load period")
		}
		sources = append(sources, Source{Label: filepath.Base(path), Doc: doc})
	}
	return sources, nil
}

// Result is the merged collection.
type Result struct {
	Records []model.Record
	// Quarters lists source periods in label order.
	Quarters []string
	// TotalBefore counts records across all sources before merging.
	TotalBefore int
	// Replaced counts collisions where a later source won.
	Replaced int
}

// Merge collapses records sharing an accession number. The record with the
// strictly lower months_since_funding wins; unknown months count as
// infinitely old and ties keep the first one seen. Sources are visited in
// label order so the caller's ordering has no effect on the result. The
// output is sorted by months ascending (unknown last), then by accession.
func Merge(sources []Source) *Result {
	ordered := make([]Source, len(sources))
	copy(ordered, sources)
	sort.SliceStable(ordered, func(i, j int) bool { return ordered[i].Label < ordered[j].Label })

	res := &Result{Records: []model.Record{}}
	index := make(map[string]int)

	for _, src := range ordered {
		res.Quarters = append(res.Quarters, src.Quarter())
		if src.Doc == nil {
			continue
		}
		for _, rec := range src.Doc.Companies {
			res.TotalBefore++
			i, seen := index[rec.AccessionNumber]
			if !seen {
				index[rec.AccessionNumber] = len(res.Records)
				res.Records = append(res.Records, rec)
				continue
			}
			if rec.MonthsOrMax() < res.Records[i].MonthsOrMax() {
				res.Records[i] = rec
				res.Replaced++
			}
		}
	}

	sort.SliceStable(res.Records, func(i, j int) bool {
		a, b := res.Records[i].MonthsOrMax(), res.Records[j].MonthsOrMax()
		if a != b {
			return a < b
		}
		return res.Records[i].AccessionNumber < res.Records[j].AccessionNumber
	})
	return res
}

// Document wraps the result with master-file metadata.
func (r *Result) Document(now time.Time) *model.Document {
	doc := model.NewDocument(r.Records)

	var earliest, latest any
	if len(r.Quarters) > 0 {
		earliest, latest = r.Quarters[0], r.Quarters[len(r.Quarters)-1]
	}
	quarters := r.Quarters
	if quarters == nil {
		quarters = []string{}
	}

	doc.Metadata = map[string]any{
		"generated_at":       now,
		"quarters_processed": quarters,
		"total_companies":    len(r.Records),
		"total_executives":   model.TotalExecutives(r.Records),
		"total_before_dedup": r.TotalBefore,
		"date_range": map[string]any{
			"earliest_quarter": earliest,
			"latest_quarter":   latest,
		},
	}
	return doc
}
