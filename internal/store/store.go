// Package store persists Form D records and the stage run log.
package store

import (
	"context"
	"encoding/json"

	"github.com/rotisserie/eris"

	"github.com/sells-group/formd-cli/internal/model"
)

// ErrNotFound is returned when a requested row does not exist.
var ErrNotFound = eris.New("store: not found")

// RunFilter specifies criteria for listing runs.
type RunFilter struct {
	Stage  string          `json:"stage,omitempty"`
	Status model.RunStatus `json:"status,omitempty"`
	Limit  int             `json:"limit,omitempty"`
	Offset int             `json:"offset,omitempty"`
}

// Store defines persistence for loaded records and the run log.
type Store interface {
	// Records
	UpsertRecords(ctx context.Context, records []model.Record) (int64, error)
	GetRecord(ctx context.Context, accession string) (*model.Record, error)
	CountRecords(ctx context.Context) (int64, error)

	// Runs
	CreateRun(ctx context.Context, stage, input string) (*model.Run, error)
	CompleteRun(ctx context.Context, runID string, result model.RunResult) error
	GetRun(ctx context.Context, runID string) (*model.Run, error)
	ListRuns(ctx context.Context, filter RunFilter) ([]model.Run, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}

const (
	recordsTable = "formd_records"
	runsTable    = "formd_runs"
)

// recordColumns is the column order of recordRow.
var recordColumns = []string{
	"accession_number",
	"company_name",
	"state",
	"industry",
	"funding_amount",
	"months_since_funding",
	"quarter",
	"record",
}

// recordRow projects r onto recordColumns. Searchable fields are copied
// out of the record; the full record is kept as JSON.
func recordRow(r *model.Record) ([]any, error) {
	data, err := json.Marshal(r)
	if err != nil {
		return nil, eris.Wrapf(err, "store: marshal record %s", r.AccessionNumber)
	}
	return []any{
		r.AccessionNumber,
		r.Company.Name,
		r.Company.Address.State,
		r.Company.Industry,
		r.FundingAmount(),
		r.CompanyAge.MonthsSinceFunding,
		r.Filing.Quarter,
		data,
	}, nil
}

func listLimit(f RunFilter) int {
	if f.Limit <= 0 {
		return 100
	}
	return f.Limit
}
