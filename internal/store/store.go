// Package store persists scans and company verdicts behind a backend-neutral
// interface with SQLite and Postgres implementations.
package store

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/datavex/intel-cli/internal/model"
)

// ErrNotFound reports a missing scan or company. Callers branch on it with
// errors.Is.
var ErrNotFound = eris.New("not found")

// ScanFilter specifies criteria for listing scans.
type ScanFilter struct {
	Status     model.ScanStatus `json:"status,omitempty"`
	CompanyKey string           `json:"company_key,omitempty"`
	Limit      int              `json:"limit,omitempty"`
	Offset     int              `json:"offset,omitempty"`
}

// CompanyFilter specifies criteria for listing company records. Sort accepts
// "score" (default, descending), "name", or "updated".
type CompanyFilter struct {
	MinScore   int            `json:"min_score,omitempty"`
	Confidence model.Priority `json:"confidence,omitempty"`
	Sort       string         `json:"sort,omitempty"`
	Limit      int            `json:"limit,omitempty"`
	Offset     int            `json:"offset,omitempty"`
}

// Store defines the persistence interface for the scan pipeline.
type Store interface {
	// Scans
	CreateScan(ctx context.Context, companyKey string) (*model.ScanRecord, error)
	UpdateScanProgress(ctx context.Context, scanID string, stagesCompleted []string, progress float64) error
	UpdateScanStatus(ctx context.Context, scanID string, status model.ScanStatus, errorMessage string) error
	GetScan(ctx context.Context, scanID string) (*model.ScanRecord, error)
	ListScans(ctx context.Context, filter ScanFilter) ([]model.ScanRecord, error)

	// Companies
	UpsertCompany(ctx context.Context, rec model.CompanyRecord) error
	GetCompany(ctx context.Context, key string) (*model.CompanyRecord, error)
	ListCompanies(ctx context.Context, filter CompanyFilter) ([]model.CompanyRecord, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}

// pendingStages derives the not-yet-run stage list from the completed set,
// preserving pipeline order.
func pendingStages(completed []string) []string {
	done := make(map[string]bool, len(completed))
	for _, s := range completed {
		done[s] = true
	}
	var pending []string
	for _, s := range model.Stages {
		if !done[s] {
			pending = append(pending, s)
		}
	}
	return pending
}
