// Package cache stores per-company pipeline stage results with a TTL and
// source-provenance tags.
package cache

import (
	"context"
	"encoding/json"
	"time"
)

// DefaultTTL is how long a company's cached stages stay fresh. Freshness is
// coarse-grained: writing any stage refreshes the whole entry.
const DefaultTTL = 24 * time.Hour

// EntrySummary describes one cached company for the cache status surface.
type EntrySummary struct {
	CompanyKey string    `json:"company_key"`
	Stages     []string  `json:"stages"`
	WrittenAt  time.Time `json:"written_at"`
	AgeHours   float64   `json:"age_hours"`
	Stale      bool      `json:"stale"`
}

// Cache is the per-company stage result store. Get returns (nil, nil) when
// the entry is absent or stale; staleness is checked on every read, there is
// no background sweeper.
type Cache interface {
	Get(ctx context.Context, companyKey, stage string) (json.RawMessage, error)
	Set(ctx context.Context, companyKey, stage string, payload any, sources map[string]string) error
	Sources(ctx context.Context, companyKey string) (map[string]string, error)
	Invalidate(ctx context.Context, companyKey string) error
	InvalidateAll(ctx context.Context) error
	Summary(ctx context.Context) ([]EntrySummary, error)
	Close() error
}
