package cache

import (
	"context"
	"database/sql"
	"encoding/json"
	"sort"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	_ "modernc.org/sqlite"
)

// SQLiteCache implements Cache on a single SQLite table, one row per company
// key. Merges run inside a transaction so readers never observe a partially
// written entry.
type SQLiteCache struct {
	db  *sql.DB
	ttl time.Duration
	now func() time.Time
}

// NewSQLite opens (creating if needed) the cache database at dsn. A ttl of
// zero selects DefaultTTL.
func NewSQLite(dsn string, ttl time.Duration) (*SQLiteCache, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "cache: open sqlite")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "cache: exec %s", pragma)
		}
	}

	if _, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS stage_cache (
			company_key TEXT PRIMARY KEY,
			stages      TEXT NOT NULL,
			sources     TEXT NOT NULL,
			written_at  DATETIME NOT NULL
		)`); err != nil {
		db.Close()
		return nil, eris.Wrap(err, "cache: migrate")
	}

	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &SQLiteCache{db: db, ttl: ttl, now: func() time.Time { return time.Now().UTC() }}, nil
}

func (c *SQLiteCache) Close() error {
	return c.db.Close()
}

// Get returns the cached payload for one stage, or nil when the company has
// no entry, the entry is older than the TTL, or the stage was never written.
func (c *SQLiteCache) Get(ctx context.Context, companyKey, stage string) (json.RawMessage, error) {
	stages, _, writtenAt, err := c.load(ctx, companyKey)
	if err != nil || stages == nil {
		return nil, err
	}
	if c.now().Sub(writtenAt) > c.ttl {
		zap.L().Debug("cache: stale entry",
			zap.String("company", companyKey),
			zap.String("stage", stage),
			zap.Time("written_at", writtenAt),
		)
		return nil, nil
	}
	payload, ok := stages[stage]
	if !ok {
		return nil, nil
	}
	return payload, nil
}

// Set writes one stage's payload, creating the company entry on first write.
// The entry's written_at is bumped on every write, so one stage write
// refreshes freshness for all of the company's stages. sources entries are
// merged into the provenance map as "stage.field" keys.
func (c *SQLiteCache) Set(ctx context.Context, companyKey, stage string, payload any, sources map[string]string) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return eris.Wrapf(err, "cache: marshal %s/%s", companyKey, stage)
	}

	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return eris.Wrap(err, "cache: begin")
	}
	defer tx.Rollback() //nolint:errcheck

	stages := map[string]json.RawMessage{}
	provenance := map[string]string{}

	var stagesJSON, sourcesJSON string
	err = tx.QueryRowContext(ctx,
		`SELECT stages, sources FROM stage_cache WHERE company_key = ?`, companyKey,
	).Scan(&stagesJSON, &sourcesJSON)
	switch {
	case err == sql.ErrNoRows:
		// first write for this company
	case err != nil:
		return eris.Wrapf(err, "cache: read %s", companyKey)
	default:
		if err := json.Unmarshal([]byte(stagesJSON), &stages); err != nil {
			return eris.Wrapf(err, "cache: unmarshal stages %s", companyKey)
		}
		if err := json.Unmarshal([]byte(sourcesJSON), &provenance); err != nil {
			return eris.Wrapf(err, "cache: unmarshal sources %s", companyKey)
		}
	}

	stages[stage] = data
	for field, tag := range sources {
		provenance[stage+"."+field] = tag
	}

	mergedStages, err := json.Marshal(stages)
	if err != nil {
		return eris.Wrap(err, "cache: marshal stages")
	}
	mergedSources, err := json.Marshal(provenance)
	if err != nil {
		return eris.Wrap(err, "cache: marshal sources")
	}

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO stage_cache (company_key, stages, sources, written_at) VALUES (?, ?, ?, ?)
		 ON CONFLICT(company_key) DO UPDATE SET stages = excluded.stages,
			sources = excluded.sources, written_at = excluded.written_at`,
		companyKey, string(mergedStages), string(mergedSources), c.now(),
	); err != nil {
		return eris.Wrapf(err, "cache: upsert %s", companyKey)
	}

	return eris.Wrap(tx.Commit(), "cache: commit")
}

// Sources returns the provenance map for a company, regardless of freshness
// (provenance is observability, not control flow).
func (c *SQLiteCache) Sources(ctx context.Context, companyKey string) (map[string]string, error) {
	_, sources, _, err := c.load(ctx, companyKey)
	return sources, err
}

// Invalidate removes a company's entry, forcing a full re-run on next scan.
func (c *SQLiteCache) Invalidate(ctx context.Context, companyKey string) error {
	_, err := c.db.ExecContext(ctx, `DELETE FROM stage_cache WHERE company_key = ?`, companyKey)
	if err != nil {
		return eris.Wrapf(err, "cache: invalidate %s", companyKey)
	}
	zap.L().Info("cache: invalidated", zap.String("company", companyKey))
	return nil
}

// InvalidateAll clears the entire cache.
func (c *SQLiteCache) InvalidateAll(ctx context.Context) error {
	_, err := c.db.ExecContext(ctx, `DELETE FROM stage_cache`)
	if err != nil {
		return eris.Wrap(err, "cache: invalidate all")
	}
	zap.L().Info("cache: cleared")
	return nil
}

// Summary lists every cached company with its age and staleness.
func (c *SQLiteCache) Summary(ctx context.Context) ([]EntrySummary, error) {
	rows, err := c.db.QueryContext(ctx,
		`SELECT company_key, stages, written_at FROM stage_cache ORDER BY company_key`)
	if err != nil {
		return nil, eris.Wrap(err, "cache: summary")
	}
	defer rows.Close()

	now := c.now()
	var out []EntrySummary
	for rows.Next() {
		var key, stagesJSON string
		var writtenAt time.Time
		if err := rows.Scan(&key, &stagesJSON, &writtenAt); err != nil {
			return nil, eris.Wrap(err, "cache: summary scan")
		}

		stages := map[string]json.RawMessage{}
		if err := json.Unmarshal([]byte(stagesJSON), &stages); err != nil {
			return nil, eris.Wrapf(err, "cache: summary unmarshal %s", key)
		}
		names := make([]string, 0, len(stages))
		for name := range stages {
			names = append(names, name)
		}
		sort.Strings(names)

		age := now.Sub(writtenAt)
		out = append(out, EntrySummary{
			CompanyKey: key,
			Stages:     names,
			WrittenAt:  writtenAt,
			AgeHours:   age.Hours(),
			Stale:      age > c.ttl,
		})
	}
	return out, eris.Wrap(rows.Err(), "cache: summary iterate")
}

// load fetches a company's full row. Missing rows return all-nil, no error.
func (c *SQLiteCache) load(ctx context.Context, companyKey string) (map[string]json.RawMessage, map[string]string, time.Time, error) {
	var stagesJSON, sourcesJSON string
	var writtenAt time.Time
	err := c.db.QueryRowContext(ctx,
		`SELECT stages, sources, written_at FROM stage_cache WHERE company_key = ?`, companyKey,
	).Scan(&stagesJSON, &sourcesJSON, &writtenAt)
	if err == sql.ErrNoRows {
		return nil, nil, time.Time{}, nil
	}
	if err != nil {
		return nil, nil, time.Time{}, eris.Wrapf(err, "cache: load %s", companyKey)
	}

	stages := map[string]json.RawMessage{}
	if err := json.Unmarshal([]byte(stagesJSON), &stages); err != nil {
		return nil, nil, time.Time{}, eris.Wrapf(err, "cache: unmarshal stages %s", companyKey)
	}
	sources := map[string]string{}
	if err := json.Unmarshal([]byte(sourcesJSON), &sources); err != nil {
		return nil, nil, time.Time{}, eris.Wrapf(err, "cache: unmarshal sources %s", companyKey)
	}
	return stages, sources, writtenAt, nil
}
