package formd

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
)

// ErrPeriodSkipped marks a period that could not be processed because one
// or more required files are missing. Other periods continue.
var ErrPeriodSkipped = eris.New("formd: period skipped")

// Source holds the four tables of one period.
type Source struct {
	Dir            string
	Submissions    *table
	Issuers        *table
	Offerings      *table
	RelatedPersons *table
}

// MissingFiles returns the required files absent from dir.
func MissingFiles(dir string) []string {
	var missing []string
	for _, name := range RequiredFiles {
		if st, err := os.Stat(filepath.Join(dir, name)); err != nil || st.IsDir() {
			missing = append(missing, name)
		}
	}
	return missing
}

// ResolveDir returns dir when it holds the required files. Archives often
// nest the tables one folder down, so when dir has exactly one
// subdirectory holding them, that subdirectory is returned instead.
func ResolveDir(dir string) string {
	if len(MissingFiles(dir)) == 0 {
		return dir
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return dir
	}
	var found []string
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		sub := filepath.Join(dir, e.Name())
		if len(MissingFiles(sub)) == 0 {
			found = append(found, sub)
		}
	}
	if len(found) == 1 {
		return found[0]
	}
	return dir
}

// LoadPeriod checks for the required files and reads all four tables.
// Missing files yield an error wrapping ErrPeriodSkipped; nothing is
// parsed in that case.
func LoadPeriod(ctx context.Context, dir string) (*Source, error) {
	dir = ResolveDir(dir)
	if missing := MissingFiles(dir); len(missing) > 0 {
		return nil, eris.Wrapf(ErrPeriodSkipped, "missing files: %s", strings.Join(missing, ", "))
	}

	src := &Source{Dir: dir}
	targets := []struct {
		name string
		dst  **table
	}{
		{FileSubmission, &src.Submissions},
		{FileIssuers, &src.Issuers},
		{FileOffering, &src.Offerings},
		{FileRelatedPersons, &src.RelatedPersons},
	}
	for _, tgt := range targets {
		t, err := readTable(ctx, filepath.Join(dir, tgt.name), tgt.name)
		if err != nil {
			return nil, err
		}
		*tgt.dst = t
	}
	return src, nil
}
