package store

import (
	"context"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/datavex/intel-cli/internal/model"
)

// newMockPostgresStore creates a PostgresStore backed by pgxmock for unit testing.
func newMockPostgresStore(t *testing.T) (*PostgresStore, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool(pgxmock.QueryMatcherOption(pgxmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(mock.Close)

	s := &PostgresStore{pool: mock}
	return s, mock
}

func TestPostgresStore_CreateScan(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`INSERT INTO scans`).
		WithArgs(pgxmock.AnyArg(), "acme", string(model.ScanStatusQueued), pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	scan, err := s.CreateScan(context.Background(), "acme")
	require.NoError(t, err)
	assert.NotEmpty(t, scan.ID)
	assert.Equal(t, model.Stages, scan.StagesPending)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_GetScan_NotFound(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectQuery(`SELECT id, company_key, status, progress, stages_completed, error_message, created_at, updated_at`).
		WithArgs("nonexistent-scan").
		WillReturnError(pgx.ErrNoRows)

	_, err := s.GetScan(context.Background(), "nonexistent-scan")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_UpdateScanStatus_NotFound(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`UPDATE scans SET status`).
		WithArgs(string(model.ScanStatusRunning), "", pgxmock.AnyArg(), "missing").
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	err := s.UpdateScanStatus(context.Background(), "missing", model.ScanStatusRunning, "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_UpdateScanStatus_TruncatesError(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	long := make([]byte, 2000)
	for i := range long {
		long[i] = 'e'
	}
	truncated := model.TruncateError(string(long))

	mock.ExpectExec(`UPDATE scans SET status`).
		WithArgs(string(model.ScanStatusFailed), truncated, pgxmock.AnyArg(), "scan-1").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	err := s.UpdateScanStatus(context.Background(), "scan-1", model.ScanStatusFailed, string(long))
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_GetCompany_NotFound(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectQuery(`SELECT key, scan_id, name, descriptor`).
		WithArgs("unknown-co").
		WillReturnError(pgx.ErrNoRows)

	_, err := s.GetCompany(context.Background(), "unknown-co")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_UpsertCompany(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`ON CONFLICT`).
		WithArgs("acme", "scan-1", "Acme Corp", pgxmock.AnyArg(), 81, "HIGH", 70,
			pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	err := s.UpsertCompany(context.Background(), model.CompanyRecord{
		Key:        "acme",
		ScanID:     "scan-1",
		Name:       "Acme Corp",
		Score:      81,
		Confidence: model.PriorityHigh,
		Coverage:   70,
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_ListCompanies_Rows(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	scanID := "scan-1"
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	rows := pgxmock.NewRows([]string{
		"key", "scan_id", "name", "descriptor", "score", "confidence", "coverage", "data", "created_at", "updated_at",
	}).AddRow("alpha", &scanID, "Alpha", "", 81, model.PriorityHigh, 70, []byte(nil), now, now).
		AddRow("beta", (*string)(nil), "Beta", "", 55, model.PriorityMedium, 40, []byte(`{"state":"STABLE"}`), now, now)

	mock.ExpectQuery(`SELECT key, scan_id, name, descriptor`).
		WithArgs(50, 100).
		WillReturnRows(rows)

	companies, err := s.ListCompanies(context.Background(), CompanyFilter{MinScore: 50})
	require.NoError(t, err)
	require.Len(t, companies, 2)
	assert.Equal(t, "scan-1", companies[0].ScanID)
	assert.Empty(t, companies[1].ScanID)
	assert.JSONEq(t, `{"state":"STABLE"}`, string(companies[1].Data))
	assert.NoError(t, mock.ExpectationsWereMet())
}
