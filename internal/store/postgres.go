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

	"github.com/sells-group/outreach-cli/internal/db"
	"github.com/sells-group/outreach-cli/internal/model"
)

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool    db.Pool
	closeFn func()
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
}

// preparedStatements are prepared on each new connection.
var preparedStatements = map[string]string{
	"get_run":         `SELECT ` + runColumns + ` FROM runs WHERE id = $1`,
	"get_run_header":  `SELECT header FROM runs WHERE id = $1`,
	"list_run_rows":   `SELECT row_index, company, website, industry, email_body, extra FROM run_rows WHERE run_id = $1 ORDER BY row_index`,
	"save_run_header": `UPDATE runs SET header = $1, updated_at = $2 WHERE id = $3`,
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string, poolCfg *PoolConfig) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	maxConns := int32(4)
	minConns := int32(1)
	if poolCfg != nil {
		if poolCfg.MaxConns > 0 {
			maxConns = poolCfg.MaxConns
		}
		if poolCfg.MinConns > 0 {
			minConns = poolCfg.MinConns
		}
	}
	pgxCfg.MaxConns = maxConns
	pgxCfg.MinConns = minConns
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pgxCfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		for name, sql := range preparedStatements {
			if _, err := conn.Prepare(ctx, name, sql); err != nil {
				return eris.Wrapf(err, "postgres: prepare %s", name)
			}
		}
		return nil
	}

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool, closeFn: pool.Close}, nil
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS runs (
	id          TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	input_path  TEXT NOT NULL,
	output_path TEXT NOT NULL DEFAULT '',
	provider    TEXT NOT NULL DEFAULT '',
	model       TEXT NOT NULL DEFAULT '',
	status      TEXT NOT NULL DEFAULT 'running',
	stats       JSONB NOT NULL DEFAULT '{}',
	error       TEXT NOT NULL DEFAULT '',
	header      JSONB,
	created_at  TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at  TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS run_rows (
	run_id     TEXT NOT NULL REFERENCES runs(id),
	row_index  INTEGER NOT NULL,
	company    TEXT NOT NULL DEFAULT '',
	website    TEXT NOT NULL DEFAULT '',
	industry   TEXT NOT NULL DEFAULT '',
	email_body TEXT NOT NULL DEFAULT '',
	extra      JSONB NOT NULL DEFAULT '{}',
	PRIMARY KEY (run_id, row_index)
);

CREATE INDEX IF NOT EXISTS idx_runs_status ON runs(status);
CREATE INDEX IF NOT EXISTS idx_runs_created_at ON runs(created_at);
`

func (s *PostgresStore) Ping(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, "SELECT 1")
	return eris.Wrap(err, "postgres: ping")
}

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

func (s *PostgresStore) CreateRun(ctx context.Context, run model.Run) (*model.Run, error) {
	if run.ID == "" {
		run.ID = uuid.New().String()
	}
	if run.Status == "" {
		run.Status = model.RunStatusRunning
	}
	now := time.Now().UTC()
	run.CreatedAt, run.UpdatedAt = now, now

	statsJSON, err := json.Marshal(run.Stats)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: marshal stats")
	}

	_, err = s.pool.Exec(ctx,
		`INSERT INTO runs (id, input_path, output_path, provider, model, status, stats, error, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		run.ID, run.InputPath, run.OutputPath, run.Provider, run.Model, string(run.Status),
		statsJSON, run.Error, now, now,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: insert run")
	}
	return &run, nil
}

func (s *PostgresStore) UpdateRun(ctx context.Context, runID string, upd RunUpdate) error {
	statsJSON, err := json.Marshal(upd.Stats)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal stats")
	}

	tag, err := s.pool.Exec(ctx,
		`UPDATE runs SET status = $1, stats = $2, error = $3,
		 output_path = COALESCE(NULLIF($4, ''), output_path),
		 updated_at = $5 WHERE id = $6`,
		string(upd.Status), statsJSON, upd.Error, upd.OutputPath, time.Now().UTC(), runID,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: update run %s", runID)
	}
	if tag.RowsAffected() == 0 {
		return eris.Wrapf(ErrNotFound, "postgres: run %s", runID)
	}
	return nil
}

func (s *PostgresStore) GetRun(ctx context.Context, runID string) (*model.Run, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+runColumns+` FROM runs WHERE id = $1`, runID)
	r, err := scanPgRun(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, eris.Wrapf(ErrNotFound, "postgres: get run %s", runID)
	}
	return r, err
}

func (s *PostgresStore) ListRuns(ctx context.Context, filter RunFilter) ([]model.Run, error) {
	query := `SELECT ` + runColumns + ` FROM runs WHERE 1=1`
	var args []any
	argN := 1

	if filter.Status != "" {
		query += fmt.Sprintf(` AND status = $%d`, argN)
		args = append(args, string(filter.Status))
		argN++
	}
	query += ` ORDER BY created_at DESC`

	limit := filter.Limit
	if limit <= 0 {
		limit = defaultListLimit
	}
	query += fmt.Sprintf(` LIMIT $%d`, argN)
	args = append(args, limit)
	argN++

	if filter.Offset > 0 {
		query += fmt.Sprintf(` OFFSET $%d`, argN)
		args = append(args, filter.Offset)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list runs")
	}
	defer rows.Close()

	var runs []model.Run
	for rows.Next() {
		r, err := scanPgRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, *r)
	}
	return runs, eris.Wrap(rows.Err(), "postgres: list runs iterate")
}

// SaveSnapshot stores the header on the run and bulk upserts every row into
// run_rows.
func (s *PostgresStore) SaveSnapshot(ctx context.Context, runID string, ds *model.Dataset) error {
	headerJSON, err := json.Marshal(ds.Header)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal header")
	}

	tag, err := s.pool.Exec(ctx, `UPDATE runs SET header = $1, updated_at = $2 WHERE id = $3`,
		headerJSON, time.Now().UTC(), runID)
	if err != nil {
		return eris.Wrapf(err, "postgres: save header %s", runID)
	}
	if tag.RowsAffected() == 0 {
		return eris.Wrapf(ErrNotFound, "postgres: run %s", runID)
	}

	_, err = db.BulkUpsert(ctx, s.pool, db.UpsertConfig{
		Table:        "run_rows",
		Columns:      snapshotColumns,
		ConflictKeys: []string{"run_id", "row_index"},
	}, snapshotRows(runID, ds))
	return eris.Wrapf(err, "postgres: save snapshot rows %s", runID)
}

func (s *PostgresStore) LoadSnapshot(ctx context.Context, runID string) (*model.Dataset, error) {
	var headerJSON []byte
	err := s.pool.QueryRow(ctx, `SELECT header FROM runs WHERE id = $1`, runID).Scan(&headerJSON)
	if errors.Is(err, pgx.ErrNoRows) || (err == nil && headerJSON == nil) {
		return nil, eris.Wrapf(ErrNotFound, "postgres: snapshot %s", runID)
	}
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: load header %s", runID)
	}

	ds := &model.Dataset{}
	if err := json.Unmarshal(headerJSON, &ds.Header); err != nil {
		return nil, eris.Wrap(err, "postgres: unmarshal header")
	}

	rows, err := s.pool.Query(ctx,
		`SELECT row_index, company, website, industry, email_body, extra FROM run_rows
		 WHERE run_id = $1 ORDER BY row_index`, runID)
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: load rows %s", runID)
	}
	defer rows.Close()

	for rows.Next() {
		var extraJSON []byte
		r := &model.Row{}
		if err := rows.Scan(&r.Index, &r.Company, &r.Website, &r.Industry, &r.EmailBody, &extraJSON); err != nil {
			return nil, eris.Wrap(err, "postgres: scan row")
		}
		if err := decodeExtra(string(extraJSON), r); err != nil {
			return nil, err
		}
		ds.Rows = append(ds.Rows, r)
	}
	return ds, eris.Wrap(rows.Err(), "postgres: load rows iterate")
}

func scanPgRun(row pgx.Row) (*model.Run, error) {
	var r model.Run
	var status string
	var statsJSON []byte

	err := row.Scan(&r.ID, &r.InputPath, &r.OutputPath, &r.Provider, &r.Model, &status,
		&statsJSON, &r.Error, &r.CreatedAt, &r.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, err
	}
	if err != nil {
		return nil, eris.Wrap(err, "postgres: scan run")
	}
	r.Status = model.RunStatus(status)

	if len(statsJSON) > 0 {
		if err := json.Unmarshal(statsJSON, &r.Stats); err != nil {
			return nil, eris.Wrap(err, "postgres: unmarshal stats")
		}
	}
	return &r, nil
}
