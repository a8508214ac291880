package store

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/formd-cli/internal/model"
)

func newTestSQLiteStore(t *testing.T) *SQLiteStore {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	st, err := NewSQLite(dbPath)
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() }) //nolint:errcheck
	require.NoError(t, st.Migrate(context.Background()))
	return st
}

func testRecord(acc, name string, offering float64) model.Record {
	r := model.Record{AccessionNumber: acc, RelatedPersons: []model.RelatedPerson{}}
	r.Company.Name = model.StrPtr(name)
	r.Company.Address.State = model.StrPtr("MA")
	r.Funding.TotalOfferingAmount = model.Ptr(offering)
	r.CompanyAge.MonthsSinceFunding = model.Ptr(4)
	r.Filing.Quarter = "2024Q1"
	return r
}

// --- Records ---

func TestSQLite_UpsertRecords(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	n, err := st.UpsertRecords(ctx, []model.Record{
		testRecord("0001", "Acme", 2_000_000),
		testRecord("0002", "Beta", 3_000_000),
	})
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	// Same key again replaces the stored record.
	_, err = st.UpsertRecords(ctx, []model.Record{testRecord("0001", "Acme Renamed", 9_000_000)})
	require.NoError(t, err)

	count, err := st.CountRecords(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)

	got, err := st.GetRecord(ctx, "0001")
	require.NoError(t, err)
	assert.Equal(t, "Acme Renamed", model.Str(got.Company.Name))
	assert.Equal(t, 9_000_000.0, got.FundingAmount())
	assert.Equal(t, 4, *got.CompanyAge.MonthsSinceFunding)

	var amount float64
	require.NoError(t, st.db.QueryRowContext(ctx,
		`SELECT funding_amount FROM formd_records WHERE accession_number = ?`, "0001").Scan(&amount))
	assert.Equal(t, 9_000_000.0, amount)
}

func TestSQLite_UpsertRecords_Empty(t *testing.T) {
	st := newTestSQLiteStore(t)
	n, err := st.UpsertRecords(context.Background(), nil)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestSQLite_GetRecord_NotFound(t *testing.T) {
	st := newTestSQLiteStore(t)
	_, err := st.GetRecord(context.Background(), "missing")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNotFound))
}

// --- Runs ---

func TestSQLite_RunLifecycle(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	run, err := st.CreateRun(ctx, "filter", "master.json")
	require.NoError(t, err)
	assert.NotEmpty(t, run.ID)
	assert.Equal(t, model.RunStatusRunning, run.Status)

	err = st.CompleteRun(ctx, run.ID, model.RunResult{Output: "targets.json", RecordsIn: 10, RecordsOut: 4})
	require.NoError(t, err)

	got, err := st.GetRun(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, "filter", got.Stage)
	assert.Equal(t, model.RunStatusComplete, got.Status)
	assert.Equal(t, "master.json", got.Input)
	assert.Equal(t, "targets.json", got.Output)
	assert.Equal(t, 10, got.RecordsIn)
	assert.Equal(t, 4, got.RecordsOut)
	assert.Empty(t, got.Error)
}

func TestSQLite_CompleteRun_Failed(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	run, err := st.CreateRun(ctx, "combine", "processed")
	require.NoError(t, err)
	require.NoError(t, st.CompleteRun(ctx, run.ID, model.RunResult{Error: "no period files"}))

	got, err := st.GetRun(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, model.RunStatusFailed, got.Status)
	assert.Equal(t, "no period files", got.Error)
}

func TestSQLite_CompleteRun_NotFound(t *testing.T) {
	st := newTestSQLiteStore(t)
	err := st.CompleteRun(context.Background(), "nope", model.RunResult{})
	assert.True(t, errors.Is(err, ErrNotFound))

	_, err = st.GetRun(context.Background(), "nope")
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestSQLite_ListRuns(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	for _, stage := range []string{"build", "filter", "filter"} {
		run, err := st.CreateRun(ctx, stage, "in")
		require.NoError(t, err)
		require.NoError(t, st.CompleteRun(ctx, run.ID, model.RunResult{}))
	}
	failed, err := st.CreateRun(ctx, "filter", "in")
	require.NoError(t, err)
	require.NoError(t, st.CompleteRun(ctx, failed.ID, model.RunResult{Error: "x"}))

	all, err := st.ListRuns(ctx, RunFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 4)

	filters, err := st.ListRuns(ctx, RunFilter{Stage: "filter"})
	require.NoError(t, err)
	assert.Len(t, filters, 3)

	failedOnly, err := st.ListRuns(ctx, RunFilter{Status: model.RunStatusFailed})
	require.NoError(t, err)
	require.Len(t, failedOnly, 1)
	assert.Equal(t, failed.ID, failedOnly[0].ID)

	page, err := st.ListRuns(ctx, RunFilter{Limit: 2, Offset: 1})
	require.NoError(t, err)
	assert.Len(t, page, 2)
}

func TestSQLiteUpsertSQL(t *testing.T) {
	q := sqliteUpsertSQL()
	assert.Contains(t, q, "VALUES (?, ?, ?, ?, ?, ?, ?, ?)")
	assert.Contains(t, q, "ON CONFLICT(accession_number) DO UPDATE SET company_name = excluded.company_name")
	assert.NotContains(t, q, "accession_number = excluded")
}
