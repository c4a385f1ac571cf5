package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/datavex/intel-cli/internal/model"
)

// Pool is the subset of pgxpool.Pool the store uses. pgxmock satisfies it.
type Pool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool    Pool
	closeFn func()
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
}

// preparedStatements lists queries to prepare on each new connection for
// faster execution of the most frequently used store operations.
var preparedStatements = map[string]string{
	"insert_scan":          `INSERT INTO scans (id, company_key, status, progress, stages_completed, created_at, updated_at) VALUES ($1, $2, $3, 0, '[]', $4, $5)`,
	"update_scan_progress": `UPDATE scans SET progress = $1, stages_completed = $2, updated_at = $3 WHERE id = $4`,
	"update_scan_status":   `UPDATE scans SET status = $1, error_message = $2, updated_at = $3 WHERE id = $4`,
	"get_scan":             `SELECT id, company_key, status, progress, stages_completed, error_message, created_at, updated_at FROM scans WHERE id = $1`,
	"get_company":          `SELECT key, scan_id, name, descriptor, score, confidence, coverage, data, created_at, updated_at FROM companies WHERE key = $1`,
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string, poolCfg *PoolConfig) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	maxConns := int32(10)
	minConns := int32(2)
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
CREATE TABLE IF NOT EXISTS scans (
	id               TEXT PRIMARY KEY,
	company_key      TEXT NOT NULL,
	status           TEXT NOT NULL DEFAULT 'queued',
	progress         DOUBLE PRECISION NOT NULL DEFAULT 0,
	stages_completed JSONB NOT NULL DEFAULT '[]',
	error_message    TEXT NOT NULL DEFAULT '',
	created_at       TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at       TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS companies (
	key        TEXT PRIMARY KEY,
	scan_id    TEXT,
	name       TEXT NOT NULL,
	descriptor TEXT NOT NULL DEFAULT '',
	score      INTEGER NOT NULL DEFAULT 0,
	confidence TEXT NOT NULL DEFAULT 'LOW',
	coverage   INTEGER NOT NULL DEFAULT 0,
	data       JSONB,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_scans_status ON scans(status);
CREATE INDEX IF NOT EXISTS idx_scans_company_key ON scans(company_key);
CREATE INDEX IF NOT EXISTS idx_companies_score ON companies(score DESC);
CREATE INDEX IF NOT EXISTS idx_companies_confidence ON companies(confidence);
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

func (s *PostgresStore) CreateScan(ctx context.Context, companyKey string) (*model.ScanRecord, error) {
	id := uuid.New().String()
	now := time.Now().UTC()

	_, err := s.pool.Exec(ctx,
		`INSERT INTO scans (id, company_key, status, progress, stages_completed, created_at, updated_at)
		 VALUES ($1, $2, $3, 0, '[]', $4, $5)`,
		id, companyKey, string(model.ScanStatusQueued), now, now,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: insert scan")
	}

	return &model.ScanRecord{
		ID:            id,
		CompanyKey:    companyKey,
		Status:        model.ScanStatusQueued,
		StagesPending: pendingStages(nil),
		CreatedAt:     now,
		UpdatedAt:     now,
	}, nil
}

func (s *PostgresStore) UpdateScanProgress(ctx context.Context, scanID string, stagesCompleted []string, progress float64) error {
	completedJSON, err := json.Marshal(stagesCompleted)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal stages")
	}

	tag, err := s.pool.Exec(ctx,
		`UPDATE scans SET progress = $1, stages_completed = $2, updated_at = $3 WHERE id = $4`,
		progress, completedJSON, time.Now().UTC(), scanID,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: update scan progress %s", scanID)
	}
	if tag.RowsAffected() == 0 {
		return eris.Wrapf(ErrNotFound, "scan %s", scanID)
	}
	return nil
}

func (s *PostgresStore) UpdateScanStatus(ctx context.Context, scanID string, status model.ScanStatus, errorMessage string) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE scans SET status = $1, error_message = $2, updated_at = $3 WHERE id = $4`,
		string(status), model.TruncateError(errorMessage), time.Now().UTC(), scanID,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: update scan status %s", scanID)
	}
	if tag.RowsAffected() == 0 {
		return eris.Wrapf(ErrNotFound, "scan %s", scanID)
	}
	return nil
}

func (s *PostgresStore) GetScan(ctx context.Context, scanID string) (*model.ScanRecord, error) {
	var r model.ScanRecord
	var completedJSON []byte

	err := s.pool.QueryRow(ctx,
		`SELECT id, company_key, status, progress, stages_completed, error_message, created_at, updated_at
		 FROM scans WHERE id = $1`,
		scanID,
	).Scan(&r.ID, &r.CompanyKey, &r.Status, &r.Progress, &completedJSON,
		&r.ErrorMessage, &r.CreatedAt, &r.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, eris.Wrapf(ErrNotFound, "scan %s", scanID)
	}
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: get scan %s", scanID)
	}

	if err := json.Unmarshal(completedJSON, &r.StagesCompleted); err != nil {
		return nil, eris.Wrap(err, "postgres: unmarshal stages")
	}
	r.StagesPending = pendingStages(r.StagesCompleted)
	return &r, nil
}

func (s *PostgresStore) ListScans(ctx context.Context, filter ScanFilter) ([]model.ScanRecord, error) {
	query := `SELECT id, company_key, status, progress, stages_completed, error_message, created_at, updated_at
	          FROM scans WHERE true`
	args := []any{}
	argIdx := 1

	if filter.Status != "" {
		query += fmt.Sprintf(` AND status = $%d`, argIdx)
		args = append(args, string(filter.Status))
		argIdx++
	}
	if filter.CompanyKey != "" {
		query += fmt.Sprintf(` AND company_key = $%d`, argIdx)
		args = append(args, filter.CompanyKey)
		argIdx++
	}
	query += ` ORDER BY created_at DESC`

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	query += fmt.Sprintf(` LIMIT $%d`, argIdx)
	args = append(args, limit)
	argIdx++

	if filter.Offset > 0 {
		query += fmt.Sprintf(` OFFSET $%d`, argIdx)
		args = append(args, filter.Offset)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list scans")
	}
	defer rows.Close()

	var scans []model.ScanRecord
	for rows.Next() {
		var r model.ScanRecord
		var completedJSON []byte
		if err := rows.Scan(&r.ID, &r.CompanyKey, &r.Status, &r.Progress, &completedJSON,
			&r.ErrorMessage, &r.CreatedAt, &r.UpdatedAt); err != nil {
			return nil, eris.Wrap(err, "postgres: scan row")
		}
		if err := json.Unmarshal(completedJSON, &r.StagesCompleted); err != nil {
			return nil, eris.Wrap(err, "postgres: unmarshal stages")
		}
		r.StagesPending = pendingStages(r.StagesCompleted)
		scans = append(scans, r)
	}
	return scans, eris.Wrap(rows.Err(), "postgres: list scans iterate")
}

func (s *PostgresStore) UpsertCompany(ctx context.Context, rec model.CompanyRecord) error {
	now := time.Now().UTC()

	var data any
	if len(rec.Data) > 0 {
		data = []byte(rec.Data)
	}

	_, err := s.pool.Exec(ctx,
		`INSERT INTO companies (key, scan_id, name, descriptor, score, confidence, coverage, data, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		 ON CONFLICT (key) DO UPDATE SET
		   scan_id = $2, name = $3, descriptor = $4, score = $5, confidence = $6,
		   coverage = $7, data = $8, updated_at = $10`,
		rec.Key, rec.ScanID, rec.Name, rec.Descriptor, rec.Score, string(rec.Confidence),
		rec.Coverage, data, now, now,
	)
	return eris.Wrapf(err, "postgres: upsert company %s", rec.Key)
}

func (s *PostgresStore) GetCompany(ctx context.Context, key string) (*model.CompanyRecord, error) {
	var r model.CompanyRecord
	var scanID *string
	var data []byte

	err := s.pool.QueryRow(ctx,
		`SELECT key, scan_id, name, descriptor, score, confidence, coverage, data, created_at, updated_at
		 FROM companies WHERE key = $1`,
		key,
	).Scan(&r.Key, &scanID, &r.Name, &r.Descriptor, &r.Score, &r.Confidence,
		&r.Coverage, &data, &r.CreatedAt, &r.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, eris.Wrapf(ErrNotFound, "company %s", key)
		}
		return nil, eris.Wrapf(err, "postgres: get company %s", key)
	}

	if scanID != nil {
		r.ScanID = *scanID
	}
	if len(data) > 0 {
		r.Data = json.RawMessage(data)
	}
	return &r, nil
}

func (s *PostgresStore) ListCompanies(ctx context.Context, filter CompanyFilter) ([]model.CompanyRecord, error) {
	query := `SELECT key, scan_id, name, descriptor, score, confidence, coverage, data, created_at, updated_at
	          FROM companies WHERE true`
	args := []any{}
	argIdx := 1

	if filter.MinScore > 0 {
		query += fmt.Sprintf(` AND score >= $%d`, argIdx)
		args = append(args, filter.MinScore)
		argIdx++
	}
	if filter.Confidence != "" {
		query += fmt.Sprintf(` AND confidence = $%d`, argIdx)
		args = append(args, string(filter.Confidence))
		argIdx++
	}
	query += companyOrderClause(filter.Sort)

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	query += fmt.Sprintf(` LIMIT $%d`, argIdx)
	args = append(args, limit)
	argIdx++

	if filter.Offset > 0 {
		query += fmt.Sprintf(` OFFSET $%d`, argIdx)
		args = append(args, filter.Offset)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list companies")
	}
	defer rows.Close()

	var companies []model.CompanyRecord
	for rows.Next() {
		var r model.CompanyRecord
		var scanID *string
		var data []byte
		if err := rows.Scan(&r.Key, &scanID, &r.Name, &r.Descriptor, &r.Score, &r.Confidence,
			&r.Coverage, &data, &r.CreatedAt, &r.UpdatedAt); err != nil {
			return nil, eris.Wrap(err, "postgres: company row")
		}
		if scanID != nil {
			r.ScanID = *scanID
		}
		if len(data) > 0 {
			r.Data = json.RawMessage(data)
		}
		companies = append(companies, r)
	}
	return companies, eris.Wrap(rows.Err(), "postgres: list companies iterate")
}
