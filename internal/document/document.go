// Package document reads and writes the JSON documents passed between stages.
package document

import (
	"bufio"
	"bytes"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"slices"

	"github.com/rotisserie/eris"

	"github.com/sells-group/formd-cli/internal/model"
)

// ErrMissingCompanies is returned when a JSON object has neither a
// "companies" nor a "startups" array.
var ErrMissingCompanies = eris.New("document: missing companies array")

// envelope mirrors model.Document but keeps the record arrays raw so a
// missing key can be told apart from an empty one.
type envelope struct {
	Metadata  map[string]any  `json:"metadata"`
	Companies json.RawMessage `json:"companies"`
	Startups  json.RawMessage `json:"startups"`
}

// Read loads a document from path.
func Read(path string) (*model.Document, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, eris.Wrapf(err, "document: open %s", path)
	}
	defer f.Close() //nolint:errcheck

	doc, err := Decode(bufio.NewReader(f))
	if err != nil {
		return nil, eris.Wrapf(err, "document: read %s", path)
	}
	return doc, nil
}

// Decode parses a document. A bare top-level array is accepted as a
// document with empty metadata.
func Decode(r io.Reader) (*model.Document, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, eris.Wrap(err, "document: read input")
	}
	data = bytes.TrimSpace(data)

	if len(data) > 0 && data[0] == '[' {
		var records []model.Record
		if err := json.Unmarshal(data, &records); err != nil {
			return nil, eris.Wrap(err, "document: decode record array")
		}
		return model.NewDocument(records), nil
	}

	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, eris.Wrap(err, "document: decode object")
	}

	raw := env.Companies
	if isAbsent(raw) {
		raw = env.Startups
	}
	if isAbsent(raw) {
		return nil, ErrMissingCompanies
	}

	var records []model.Record
	if err := json.Unmarshal(raw, &records); err != nil {
		return nil, eris.Wrap(err, "document: decode companies")
	}

	doc := model.NewDocument(records)
	if env.Metadata != nil {
		doc.Metadata = env.Metadata
	}
	return doc, nil
}

func isAbsent(raw json.RawMessage) bool {
	return len(raw) == 0 || bytes.Equal(raw, []byte("null"))
}

// Encode writes doc as indented JSON with HTML escaping disabled.
func Encode(w io.Writer, doc *model.Document) error {
	out := model.Document{Metadata: doc.Metadata, Companies: normalizeRecords(doc.Companies)}
	if out.Metadata == nil {
		out.Metadata = map[string]any{}
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	if err := enc.Encode(&out); err != nil {
		return eris.Wrap(err, "document: encode")
	}
	return nil
}

// normalizeRecords returns records with nil person lists replaced by empty
// ones. Records needing a change are copied; the input is never modified.
func normalizeRecords(records []model.Record) []model.Record {
	out := make([]model.Record, len(records))
	copy(out, records)
	for i := range out {
		persons := out[i].RelatedPersons
		if persons == nil {
			out[i].RelatedPersons = []model.RelatedPerson{}
			continue
		}
		if !slices.ContainsFunc(persons, func(p model.RelatedPerson) bool { return p.Relationships == nil }) {
			continue
		}
		fixed := slices.Clone(persons)
		for j := range fixed {
			if fixed[j].Relationships == nil {
				fixed[j].Relationships = []string{}
			}
		}
		out[i].RelatedPersons = fixed
	}
	return out
}

// Write stores doc at path. The document is encoded to a temp file in the
// same directory and renamed over path, so a failed write leaves any
// previous file untouched.
func Write(path string, doc *model.Document) error {
	return WriteAtomic(path, func(w io.Writer) error {
		return Encode(w, doc)
	})
}

// WriteAtomic creates parent directories, streams fn's output into a temp
// file and renames it to path.
func WriteAtomic(path string, fn func(w io.Writer) error) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return eris.Wrapf(err, "document: create directory %s", dir)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return eris.Wrap(err, "document: create temp file")
	}
	defer os.Remove(tmp.Name()) //nolint:errcheck

	bw := bufio.NewWriter(tmp)
	if err := fn(bw); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := bw.Flush(); err != nil {
		_ = tmp.Close()
		return eris.Wrap(err, "document: flush")
	}
	if err := tmp.Chmod(0o644); err != nil {
		_ = tmp.Close()
		return eris.Wrap(err, "document: chmod temp file")
	}
	if err := tmp.Close(); err != nil {
		return eris.Wrap(err, "document: close temp file")
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return eris.Wrapf(err, "document: rename to %s", path)
	}
	return nil
}
