package db

import (
	"context"
	"errors"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func runRowsConfig() UpsertConfig {
	return UpsertConfig{
		Table:        "run_rows",
		Columns:      []string{"run_id", "row_index", "email_body"},
		ConflictKeys: []string{"run_id", "row_index"},
	}
}

func TestBulkUpsert_EmptyRows(t *testing.T) {
	n, err := BulkUpsert(context.TODO(), nil, runRowsConfig(), nil)
	assert.NoError(t, err)
	assert.Equal(t, int64(0), n)
}

func TestBulkUpsert_NoColumns(t *testing.T) {
	_, err := BulkUpsert(context.TODO(), nil, UpsertConfig{
		Table:        "run_rows",
		ConflictKeys: []string{"run_id"},
	}, [][]any{{1, "a"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no columns specified")
}

func TestBulkUpsert_NoConflictKeys(t *testing.T) {
	_, err := BulkUpsert(context.TODO(), nil, UpsertConfig{
		Table:   "run_rows",
		Columns: []string{"run_id", "row_index"},
	}, [][]any{{1, "a"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no conflict keys specified")
}

func TestBulkUpsert_Success(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	cfg := runRowsConfig()
	mock.ExpectBegin()
	mock.ExpectExec(`CREATE TEMP TABLE "_tmp_upsert_run_rows" \(LIKE "run_rows" INCLUDING DEFAULTS\) ON COMMIT DROP`).
		WillReturnResult(pgxmock.NewResult("CREATE TABLE", 0))
	mock.ExpectCopyFrom(pgx.Identifier{"_tmp_upsert_run_rows"}, cfg.Columns).WillReturnResult(2)
	mock.ExpectExec(`INSERT INTO "run_rows" .* ON CONFLICT \("run_id", "row_index"\) DO UPDATE SET "email_body" = EXCLUDED."email_body"`).
		WillReturnResult(pgxmock.NewResult("INSERT", 2))
	mock.ExpectCommit()

	n, err := BulkUpsert(context.Background(), mock, cfg, [][]any{{"r1", 0, "a"}, {"r1", 1, "b"}})
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBulkUpsert_CopyFailureRollsBack(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	cfg := runRowsConfig()
	mock.ExpectBegin()
	mock.ExpectExec(`CREATE TEMP TABLE`).WillReturnResult(pgxmock.NewResult("CREATE TABLE", 0))
	mock.ExpectCopyFrom(pgx.Identifier{"_tmp_upsert_run_rows"}, cfg.Columns).WillReturnError(errors.New("copy failed"))
	mock.ExpectRollback()

	_, err = BulkUpsert(context.Background(), mock, cfg, [][]any{{"r1", 0, "a"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "fill temp table for run_rows")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpsertSQL(t *testing.T) {
	cfg := runRowsConfig()
	assert.Equal(t,
		`INSERT INTO "run_rows" ("run_id", "row_index", "email_body") SELECT "run_id", "row_index", "email_body" FROM "_tmp_upsert_run_rows" ON CONFLICT ("run_id", "row_index") DO UPDATE SET "email_body" = EXCLUDED."email_body"`,
		UpsertSQL(cfg))

	cfg.UpdateCols = []string{}
	assert.Contains(t, UpsertSQL(cfg), "DO NOTHING")
}

func TestSanitizeTable(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"simple", `"simple"`},
		{"outreach.run_rows", `"outreach"."run_rows"`},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.expected, sanitizeTable(tt.input))
		})
	}
}

func TestQuoteAndJoin(t *testing.T) {
	assert.Equal(t, `"id", "name", "value"`, quoteAndJoin([]string{"id", "name", "value"}))
}

func TestTempTableName(t *testing.T) {
	assert.Equal(t, "_tmp_upsert_outreach_run_rows", TempTableName("outreach.run_rows"))
}
