package model

// Document is the JSON envelope every stage reads and writes.
// Metadata is open: each stage adds its own keys and carries prior ones forward.
type Document struct {
	Metadata  map[string]any `json:"metadata"`
	Companies []Record       `json:"companies"`
}

// NewDocument returns a document with initialized metadata.
func NewDocument(companies []Record) *Document {
	if companies == nil {
		companies = []Record{}
	}
	return &Document{Metadata: map[string]any{}, Companies: companies}
}

// TotalExecutives counts related persons across all records.
func TotalExecutives(records []Record) int {
	n := 0
	for i := range records {
		n += len(records[i].RelatedPersons)
	}
	return n
}

// CloneMetadata returns a shallow copy of the document metadata.
func (d *Document) CloneMetadata() map[string]any {
	out := make(map[string]any, len(d.Metadata))
	for k, v := range d.Metadata {
		out[k] = v
	}
	return out
}
