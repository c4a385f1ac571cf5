package pipeline

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/rotisserie/eris"

	"github.com/datavex/intel-cli/internal/cache"
	"github.com/datavex/intel-cli/internal/evidence"
	"github.com/datavex/intel-cli/internal/model"
	"github.com/datavex/intel-cli/internal/store"
)

// memStore is an in-memory store.Store for pipeline tests.
type memStore struct {
	mu        sync.Mutex
	seq       int
	scans     map[string]*model.ScanRecord
	companies map[string]model.CompanyRecord
	statusLog []model.ScanStatus
}

func newMemStore() *memStore {
	return &memStore{
		scans:     map[string]*model.ScanRecord{},
		companies: map[string]model.CompanyRecord{},
	}
}

func (m *memStore) CreateScan(_ context.Context, companyKey string) (*model.ScanRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.seq++
	scan := &model.ScanRecord{
		ID:         string(rune('a' + m.seq - 1)),
		CompanyKey: companyKey,
		Status:     model.ScanStatusQueued,
	}
	m.scans[scan.ID] = scan
	return scan, nil
}

func (m *memStore) UpdateScanProgress(_ context.Context, scanID string, completed []string, progress float64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	scan, ok := m.scans[scanID]
	if !ok {
		return eris.Errorf("scan not found: %s", scanID)
	}
	scan.StagesCompleted = append([]string(nil), completed...)
	scan.Progress = progress
	return nil
}

func (m *memStore) UpdateScanStatus(_ context.Context, scanID string, status model.ScanStatus, errMsg string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	scan, ok := m.scans[scanID]
	if !ok {
		return eris.Errorf("scan not found: %s", scanID)
	}
	scan.Status = status
	scan.ErrorMessage = model.TruncateError(errMsg)
	m.statusLog = append(m.statusLog, status)
	return nil
}

func (m *memStore) GetScan(_ context.Context, scanID string) (*model.ScanRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	scan, ok := m.scans[scanID]
	if !ok {
		return nil, eris.New("scan not found")
	}
	cp := *scan
	return &cp, nil
}

func (m *memStore) ListScans(_ context.Context, _ store.ScanFilter) ([]model.ScanRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.ScanRecord
	for _, s := range m.scans {
		out = append(out, *s)
	}
	return out, nil
}

func (m *memStore) UpsertCompany(_ context.Context, rec model.CompanyRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.companies[rec.Key] = rec
	return nil
}

func (m *memStore) GetCompany(_ context.Context, key string) (*model.CompanyRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.companies[key]
	if !ok {
		return nil, eris.New("company not found")
	}
	return &rec, nil
}

func (m *memStore) ListCompanies(_ context.Context, _ store.CompanyFilter) ([]model.CompanyRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.CompanyRecord
	for _, rec := range m.companies {
		out = append(out, rec)
	}
	return out, nil
}

func (m *memStore) Migrate(context.Context) error { return nil }
func (m *memStore) Close() error                  { return nil }

// memCache is an in-memory cache.Cache that never goes stale.
type memCache struct {
	mu      sync.Mutex
	entries map[string]map[string]json.RawMessage
	sources map[string]map[string]string
	sets    int
}

func newMemCache() *memCache {
	return &memCache{
		entries: map[string]map[string]json.RawMessage{},
		sources: map[string]map[string]string{},
	}
}

func (c *memCache) Get(_ context.Context, companyKey, stage string) (json.RawMessage, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.entries[companyKey][stage], nil
}

func (c *memCache) Set(_ context.Context, companyKey, stage string, payload any, sources map[string]string) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.entries[companyKey] == nil {
		c.entries[companyKey] = map[string]json.RawMessage{}
		c.sources[companyKey] = map[string]string{}
	}
	c.entries[companyKey][stage] = data
	for field, tag := range sources {
		c.sources[companyKey][stage+"."+field] = tag
	}
	c.sets++
	return nil
}

func (c *memCache) Sources(_ context.Context, companyKey string) (map[string]string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sources[companyKey], nil
}

func (c *memCache) Invalidate(_ context.Context, companyKey string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, companyKey)
	delete(c.sources, companyKey)
	return nil
}

func (c *memCache) InvalidateAll(context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = map[string]map[string]json.RawMessage{}
	c.sources = map[string]map[string]string{}
	return nil
}

func (c *memCache) Summary(context.Context) ([]cache.EntrySummary, error) { return nil, nil }
func (c *memCache) Close() error                                          { return nil }

// stubFetcher serves a fixed bundle or a fixed error.
type stubFetcher struct {
	bundle *evidence.Bundle
	err    error
	calls  int
}

func (f *stubFetcher) Fetch(context.Context, string) (*evidence.Bundle, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.bundle, nil
}
