package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/sells-group/formd-cli/internal/db"
	"github.com/sells-group/formd-cli/internal/model"
)

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool      db.Pool
	closeFn   func()
	batchSize int
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns  int32
	MinConns  int32
	BatchSize int // rows per upsert transaction
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string, poolCfg *PoolConfig) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	maxConns := int32(4)
	minConns := int32(1)
	batchSize := 2000
	if poolCfg != nil {
		if poolCfg.MaxConns > 0 {
			maxConns = poolCfg.MaxConns
		}
		if poolCfg.MinConns > 0 {
			minConns = poolCfg.MinConns
		}
		if poolCfg.BatchSize > 0 {
			batchSize = poolCfg.BatchSize
		}
	}
	pgxCfg.MaxConns = maxConns
	pgxCfg.MinConns = minConns
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool, closeFn: pool.Close, batchSize: batchSize}, nil
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS formd_records (
	accession_number     TEXT PRIMARY KEY,
	company_name         TEXT,
	state                TEXT,
	industry             TEXT,
	funding_amount       DOUBLE PRECISION NOT NULL DEFAULT 0,
	months_since_funding INTEGER,
	quarter              TEXT NOT NULL DEFAULT '',
	record               JSONB NOT NULL,
	loaded_at            TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS formd_runs (
	id          TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	stage       TEXT NOT NULL,
	status      TEXT NOT NULL DEFAULT 'running',
	input       TEXT NOT NULL DEFAULT '',
	output      TEXT NOT NULL DEFAULT '',
	records_in  INTEGER NOT NULL DEFAULT 0,
	records_out INTEGER NOT NULL DEFAULT 0,
	error       TEXT,
	created_at  TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at  TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_formd_records_state ON formd_records(state);
CREATE INDEX IF NOT EXISTS idx_formd_records_industry ON formd_records(industry);
CREATE INDEX IF NOT EXISTS idx_formd_runs_stage ON formd_runs(stage);
CREATE INDEX IF NOT EXISTS idx_formd_runs_status ON formd_runs(status);
`

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	if s.closeFn != nil {
		s.closeFn()
	}
	return nil
}

// UpsertRecords bulk-loads records through db.BulkUpsert. loaded_at keeps
// its column default on insert and is not refreshed on update.
func (s *PostgresStore) UpsertRecords(ctx context.Context, records []model.Record) (int64, error) {
	rows := make([][]any, 0, len(records))
	for i := range records {
		row, err := recordRow(&records[i])
		if err != nil {
			return 0, err
		}
		rows = append(rows, row)
	}

	n, err := db.BulkUpsert(ctx, s.pool, db.UpsertConfig{
		Table:        recordsTable,
		Columns:      recordColumns,
		ConflictKeys: []string{"accession_number"},
		BatchSize:    s.batchSize,
	}, rows)
	return n, eris.Wrap(err, "postgres: upsert records")
}

func (s *PostgresStore) GetRecord(ctx context.Context, accession string) (*model.Record, error) {
	var data []byte
	err := s.pool.QueryRow(ctx,
		`SELECT record FROM formd_records WHERE accession_number = $1`, accession,
	).Scan(&data)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, eris.Wrapf(ErrNotFound, "record %s", accession)
	}
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: get record %s", accession)
	}

	var r model.Record
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, eris.Wrap(err, "postgres: unmarshal record")
	}
	return &r, nil
}

func (s *PostgresStore) CountRecords(ctx context.Context) (int64, error) {
	var n int64
	err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM formd_records`).Scan(&n)
	return n, eris.Wrap(err, "postgres: count records")
}

func (s *PostgresStore) CreateRun(ctx context.Context, stage, input string) (*model.Run, error) {
	id := uuid.New().String()
	now := time.Now().UTC()

	_, err := s.pool.Exec(ctx,
		`INSERT INTO formd_runs (id, stage, status, input, created_at, updated_at) VALUES ($1, $2, $3, $4, $5, $6)`,
		id, stage, string(model.RunStatusRunning), input, now, now,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: insert run")
	}

	return &model.Run{
		ID:        id,
		Stage:     stage,
		Status:    model.RunStatusRunning,
		Input:     input,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

func (s *PostgresStore) CompleteRun(ctx context.Context, runID string, result model.RunResult) error {
	var errText *string
	if result.Error != "" {
		errText = &result.Error
	}

	tag, err := s.pool.Exec(ctx,
		`UPDATE formd_runs SET status = $1, output = $2, records_in = $3, records_out = $4, error = $5, updated_at = $6 WHERE id = $7`,
		string(result.Status()), result.Output, result.RecordsIn, result.RecordsOut, errText, time.Now().UTC(), runID,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: complete run %s", runID)
	}
	if tag.RowsAffected() == 0 {
		return eris.Wrapf(ErrNotFound, "run %s", runID)
	}
	return nil
}

const postgresRunColumns = `id, stage, status, input, output, records_in, records_out, error, created_at, updated_at`

func scanPostgresRun(row pgx.Row) (*model.Run, error) {
	var r model.Run
	var errText *string
	if err := row.Scan(&r.ID, &r.Stage, &r.Status, &r.Input, &r.Output,
		&r.RecordsIn, &r.RecordsOut, &errText, &r.CreatedAt, &r.UpdatedAt); err != nil {
		return nil, err
	}
	if errText != nil {
		r.Error = *errText
	}
	return &r, nil
}

func (s *PostgresStore) GetRun(ctx context.Context, runID string) (*model.Run, error) {
	r, err := scanPostgresRun(s.pool.QueryRow(ctx,
		`SELECT `+postgresRunColumns+` FROM formd_runs WHERE id = $1`,
		runID,
	))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, eris.Wrapf(ErrNotFound, "run %s", runID)
	}
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: get run %s", runID)
	}
	return r, nil
}

func (s *PostgresStore) ListRuns(ctx context.Context, filter RunFilter) ([]model.Run, error) {
	query := `SELECT ` + postgresRunColumns + ` FROM formd_runs WHERE true`
	args := []any{}
	argIdx := 1

	if filter.Stage != "" {
		query += fmt.Sprintf(` AND stage = $%d`, argIdx)
		args = append(args, filter.Stage)
		argIdx++
	}
	if filter.Status != "" {
		query += fmt.Sprintf(` AND status = $%d`, argIdx)
		args = append(args, string(filter.Status))
		argIdx++
	}
	query += fmt.Sprintf(` ORDER BY created_at DESC, id LIMIT $%d`, argIdx)
	args = append(args, listLimit(filter))
	argIdx++

	if filter.Offset > 0 {
		query += fmt.Sprintf(` OFFSET $%d`, argIdx)
		args = append(args, filter.Offset)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list runs")
	}
	defer rows.Close()

	var runs []model.Run
	for rows.Next() {
		r, err := scanPostgresRun(rows)
		if err != nil {
			return nil, eris.Wrap(err, "postgres: scan run")
		}
		runs = append(runs, *r)
	}
	return runs, eris.Wrap(rows.Err(), "postgres: list runs iterate")
}
