package store

import (
	"context"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/datavex/intel-cli/internal/model"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := NewSQLite(filepath.Join(t.TempDir(), "datavex.db"))
	require.NoError(t, err)
	require.NoError(t, s.Migrate(context.Background()))
	t.Cleanup(func() { s.Close() }) //nolint:errcheck
	return s
}

func TestSQLiteStore_ScanLifecycle(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	scan, err := s.CreateScan(ctx, "acme")
	require.NoError(t, err)
	assert.NotEmpty(t, scan.ID)
	assert.Equal(t, model.ScanStatusQueued, scan.Status)
	assert.Equal(t, model.Stages, scan.StagesPending)

	require.NoError(t, s.UpdateScanStatus(ctx, scan.ID, model.ScanStatusRunning, ""))
	require.NoError(t, s.UpdateScanProgress(ctx, scan.ID,
		[]string{model.StageDiscovery, model.StageSignals}, 2.0/6.0))

	got, err := s.GetScan(ctx, scan.ID)
	require.NoError(t, err)
	assert.Equal(t, model.ScanStatusRunning, got.Status)
	assert.InDelta(t, 2.0/6.0, got.Progress, 0.0001)
	assert.Equal(t, []string{model.StageDiscovery, model.StageSignals}, got.StagesCompleted)
	assert.Equal(t, []string{model.StageScoring, model.StageState, model.StageDecision, model.StageNarrative}, got.StagesPending)

	require.NoError(t, s.UpdateScanStatus(ctx, scan.ID, model.ScanStatusCompleted, ""))
	got, err = s.GetScan(ctx, scan.ID)
	require.NoError(t, err)
	assert.True(t, got.Status.Terminal())
}

func TestSQLiteStore_FailedScanTruncatesError(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	scan, err := s.CreateScan(ctx, "acme")
	require.NoError(t, err)

	long := make([]byte, 2000)
	for i := range long {
		long[i] = 'x'
	}
	require.NoError(t, s.UpdateScanStatus(ctx, scan.ID, model.ScanStatusFailed, string(long)))

	got, err := s.GetScan(ctx, scan.ID)
	require.NoError(t, err)
	assert.Equal(t, model.ScanStatusFailed, got.Status)
	assert.Len(t, got.ErrorMessage, model.MaxErrorMessageLen)
}

func TestSQLiteStore_ScanNotFound(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	_, err := s.GetScan(ctx, "missing")
	assert.Error(t, err)

	err = s.UpdateScanStatus(ctx, "missing", model.ScanStatusRunning, "")
	assert.ErrorContains(t, err, "not found")
}

func TestSQLiteStore_ListScansFilter(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	a, err := s.CreateScan(ctx, "acme")
	require.NoError(t, err)
	_, err = s.CreateScan(ctx, "globex")
	require.NoError(t, err)
	require.NoError(t, s.UpdateScanStatus(ctx, a.ID, model.ScanStatusCompleted, ""))

	completed, err := s.ListScans(ctx, ScanFilter{Status: model.ScanStatusCompleted})
	require.NoError(t, err)
	require.Len(t, completed, 1)
	assert.Equal(t, "acme", completed[0].CompanyKey)

	byCompany, err := s.ListScans(ctx, ScanFilter{CompanyKey: "globex"})
	require.NoError(t, err)
	require.Len(t, byCompany, 1)
	assert.Equal(t, model.ScanStatusQueued, byCompany[0].Status)

	all, err := s.ListScans(ctx, ScanFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestSQLiteStore_UpsertCompany(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	rec := model.CompanyRecord{
		Key:        "acme",
		ScanID:     "scan-1",
		Name:       "Acme Corp",
		Descriptor: "Retail · 500 employees · MID · EU",
		Score:      62,
		Confidence: model.PriorityMedium,
		Coverage:   70,
		Data:       json.RawMessage(`{"state":"GROWTH"}`),
	}
	require.NoError(t, s.UpsertCompany(ctx, rec))

	got, err := s.GetCompany(ctx, "acme")
	require.NoError(t, err)
	assert.Equal(t, "Acme Corp", got.Name)
	assert.Equal(t, 62, got.Score)
	assert.Equal(t, model.PriorityMedium, got.Confidence)
	assert.JSONEq(t, `{"state":"GROWTH"}`, string(got.Data))

	// A later scan overwrites the verdict in place.
	rec.ScanID = "scan-2"
	rec.Score = 81
	rec.Confidence = model.PriorityHigh
	require.NoError(t, s.UpsertCompany(ctx, rec))

	got, err = s.GetCompany(ctx, "acme")
	require.NoError(t, err)
	assert.Equal(t, "scan-2", got.ScanID)
	assert.Equal(t, 81, got.Score)
	assert.Equal(t, model.PriorityHigh, got.Confidence)
}

func TestSQLiteStore_ListCompanies(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	for _, rec := range []model.CompanyRecord{
		{Key: "alpha", Name: "Alpha", Score: 81, Confidence: model.PriorityHigh},
		{Key: "beta", Name: "Beta", Score: 55, Confidence: model.PriorityMedium},
		{Key: "gamma", Name: "Gamma", Score: 20, Confidence: model.PriorityLow},
	} {
		require.NoError(t, s.UpsertCompany(ctx, rec))
	}

	// Default sort is score descending.
	all, err := s.ListCompanies(ctx, CompanyFilter{})
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "alpha", all[0].Key)
	assert.Equal(t, "gamma", all[2].Key)

	scored, err := s.ListCompanies(ctx, CompanyFilter{MinScore: 50})
	require.NoError(t, err)
	assert.Len(t, scored, 2)

	high, err := s.ListCompanies(ctx, CompanyFilter{Confidence: model.PriorityHigh})
	require.NoError(t, err)
	require.Len(t, high, 1)
	assert.Equal(t, "alpha", high[0].Key)

	byName, err := s.ListCompanies(ctx, CompanyFilter{Sort: "name", Limit: 2})
	require.NoError(t, err)
	require.Len(t, byName, 2)
	assert.Equal(t, "alpha", byName[0].Key)
	assert.Equal(t, "beta", byName[1].Key)
}
