package store

import (
	"context"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leadline-labs/mailscout-cli/internal/model"
)

// newMockPostgresStore creates a PostgresStore backed by pgxmock for unit testing.
func newMockPostgresStore(t *testing.T) (*PostgresStore, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool(pgxmock.QueryMatcherOption(pgxmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { mock.Close() })

	return NewPostgresFromPool(mock), mock
}

func TestPostgresStore_CreateRun(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`INSERT INTO runs`).
		WithArgs(pgxmock.AnyArg(), "contacts.csv", "queued", pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	run, err := s.CreateRun(context.Background(), "contacts.csv")
	require.NoError(t, err)
	assert.NotEmpty(t, run.ID)
	assert.Equal(t, model.RunStatusQueued, run.Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_GetRun_NotFound(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectQuery(`SELECT id, source, status, stats, created_at, updated_at FROM runs WHERE id = \$1`).
		WithArgs("nonexistent-run").
		WillReturnError(pgx.ErrNoRows)

	_, err := s.GetRun(context.Background(), "nonexistent-run")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "get run")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_UpdateRunStatus_NotFound(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`UPDATE runs SET status`).
		WithArgs("failed", pgxmock.AnyArg(), "no-such-run").
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	err := s.UpdateRunStatus(context.Background(), "no-such-run", model.RunStatusFailed)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_CompleteRun(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`UPDATE runs SET stats`).
		WithArgs(pgxmock.AnyArg(), "complete", pgxmock.AnyArg(), "run-1").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	err := s.CompleteRun(context.Background(), "run-1", model.RunStats{Total: 3, Found: 2})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_GetDomain_Miss(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectQuery(`SELECT domain, source, mx_confirmed FROM domain_cache`).
		WithArgs("unknown co").
		WillReturnError(pgx.ErrNoRows)

	got, err := s.GetDomain(context.Background(), "unknown co")
	require.NoError(t, err)
	assert.Nil(t, got)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_GetDomain_Hit(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectQuery(`SELECT domain, source, mx_confirmed FROM domain_cache`).
		WithArgs("acme corp").
		WillReturnRows(pgxmock.NewRows([]string{"domain", "source", "mx_confirmed"}).
			AddRow("acme.com", "known_db", true))

	got, err := s.GetDomain(context.Background(), "acme corp")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "acme.com", got.Domain)
	assert.Equal(t, model.DomainSourceKnown, got.Source)
	assert.True(t, got.MXConfirmed)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_SetDomain(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`INSERT INTO domain_cache`).
		WithArgs("acme corp", "acme.com", "search_fallback", false, pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	err := s.SetDomain(context.Background(), "acme corp",
		model.DomainResult{Domain: "acme.com", Source: model.DomainSourceSearch}, time.Hour)
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_SaveResults_BulkUpsert(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectBegin()
	mock.ExpectExec(`CREATE TEMP TABLE`).
		WillReturnResult(pgxmock.NewResult("CREATE", 0))
	mock.ExpectCopyFrom(pgx.Identifier{"_tmp_upsert_results"},
		[]string{"id", "run_id", "row_index", "email", "status", "confidence", "payload"}).
		WillReturnResult(2)
	mock.ExpectExec(`INSERT INTO "results"`).
		WillReturnResult(pgxmock.NewResult("INSERT", 2))
	mock.ExpectCommit()

	results := []model.ContactResult{
		{
			Contact:     model.Contact{RowIndex: 0, FirstName: "John", LastName: "Smith"},
			ChosenEmail: "john.smith@acme.com",
			Verdict:     model.Verdict{Status: model.StatusValid, Confidence: 0.9},
		},
		{
			Contact: model.Contact{RowIndex: 1, FirstName: "Jane", LastName: "Doe"},
			Verdict: model.Verdict{Status: model.StatusUnknown},
		},
	}
	err := s.SaveResults(context.Background(), "run-1", results)
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_SaveResults_Empty(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	err := s.SaveResults(context.Background(), "run-1", nil)
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_ListResults(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectQuery(`SELECT payload FROM results WHERE run_id = \$1`).
		WithArgs("run-1").
		WillReturnRows(pgxmock.NewRows([]string{"payload"}).
			AddRow([]byte(`{"contact":{"row_index":0,"first_name":"John","last_name":"Smith"},"chosen_email":"john.smith@acme.com","verdict":{"status":"valid","confidence":0.9,"checked_at":"2026-01-01T00:00:00Z"}}`)))

	got, err := s.ListResults(context.Background(), "run-1")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "john.smith@acme.com", got[0].ChosenEmail)
	assert.Equal(t, model.StatusValid, got[0].Verdict.Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_SaveResults_WritesAttemptLog(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectBegin()
	mock.ExpectExec(`CREATE TEMP TABLE`).
		WillReturnResult(pgxmock.NewResult("CREATE", 0))
	mock.ExpectCopyFrom(pgx.Identifier{"_tmp_upsert_results"},
		[]string{"id", "run_id", "row_index", "email", "status", "confidence", "payload"}).
		WillReturnResult(1)
	mock.ExpectExec(`INSERT INTO "results"`).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectCommit()

	mock.ExpectExec(`DELETE FROM attempts`).
		WithArgs("run-1").
		WillReturnResult(pgxmock.NewResult("DELETE", 0))
	mock.ExpectCopyFrom(pgx.Identifier{"attempts"}, attemptColumns).
		WillReturnResult(2)

	results := []model.ContactResult{
		{
			Contact:     model.Contact{RowIndex: 0, FirstName: "John", LastName: "Smith"},
			ChosenEmail: "j.smith@acme.com",
			Verdict:     model.Verdict{Status: model.StatusValid, Confidence: 0.9},
			Attempts: []model.Attempt{
				{
					Candidate: model.Candidate{LocalPart: "john.smith", Domain: "acme.com", PatternRank: 1},
					Verdict:   model.Verdict{Status: model.StatusInvalid, Confidence: 0.85, Message: "user unknown"},
				},
				{
					Candidate: model.Candidate{LocalPart: "j.smith", Domain: "acme.com", PatternRank: 2},
					Verdict:   model.Verdict{Status: model.StatusValid, Confidence: 0.9},
				},
			},
		},
	}
	err := s.SaveResults(context.Background(), "run-1", results)
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}
