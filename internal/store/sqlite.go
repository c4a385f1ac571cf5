package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/datavex/intel-cli/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS scans (
	id               TEXT PRIMARY KEY,
	company_key      TEXT NOT NULL,
	status           TEXT NOT NULL DEFAULT 'queued',
	progress         REAL NOT NULL DEFAULT 0,
	stages_completed TEXT NOT NULL DEFAULT '[]',
	error_message    TEXT NOT NULL DEFAULT '',
	created_at       DATETIME NOT NULL DEFAULT (datetime('now')),
	updated_at       DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS companies (
	key        TEXT PRIMARY KEY,
	scan_id    TEXT,
	name       TEXT NOT NULL,
	descriptor TEXT NOT NULL DEFAULT '',
	score      INTEGER NOT NULL DEFAULT 0,
	confidence TEXT NOT NULL DEFAULT 'LOW',
	coverage   INTEGER NOT NULL DEFAULT 0,
	data       TEXT,
	created_at DATETIME NOT NULL DEFAULT (datetime('now')),
	updated_at DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_scans_status ON scans(status);
CREATE INDEX IF NOT EXISTS idx_scans_company_key ON scans(company_key);
CREATE INDEX IF NOT EXISTS idx_companies_score ON companies(score DESC);
CREATE INDEX IF NOT EXISTS idx_companies_confidence ON companies(confidence);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) CreateScan(ctx context.Context, companyKey string) (*model.ScanRecord, error) {
	id := uuid.New().String()
	now := time.Now().UTC()

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO scans (id, company_key, status, progress, stages_completed, created_at, updated_at)
		 VALUES (?, ?, ?, 0, '[]', ?, ?)`,
		id, companyKey, string(model.ScanStatusQueued), now, now,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: insert scan")
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

func (s *SQLiteStore) UpdateScanProgress(ctx context.Context, scanID string, stagesCompleted []string, progress float64) error {
	completedJSON, err := json.Marshal(stagesCompleted)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal stages")
	}

	res, err := s.db.ExecContext(ctx,
		`UPDATE scans SET progress = ?, stages_completed = ?, updated_at = ? WHERE id = ?`,
		progress, string(completedJSON), time.Now().UTC(), scanID,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: update scan progress %s", scanID)
	}
	return checkRowsAffected(res, "scan", scanID)
}

func (s *SQLiteStore) UpdateScanStatus(ctx context.Context, scanID string, status model.ScanStatus, errorMessage string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE scans SET status = ?, error_message = ?, updated_at = ? WHERE id = ?`,
		string(status), model.TruncateError(errorMessage), time.Now().UTC(), scanID,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: update scan status %s", scanID)
	}
	return checkRowsAffected(res, "scan", scanID)
}

func (s *SQLiteStore) GetScan(ctx context.Context, scanID string) (*model.ScanRecord, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, company_key, status, progress, stages_completed, error_message, created_at, updated_at
		 FROM scans WHERE id = ?`,
		scanID,
	)
	return scanScanRecord(row)
}

func (s *SQLiteStore) ListScans(ctx context.Context, filter ScanFilter) ([]model.ScanRecord, error) {
	query := `SELECT id, company_key, status, progress, stages_completed, error_message, created_at, updated_at
	          FROM scans WHERE 1=1`
	var args []any

	if filter.Status != "" {
		query += ` AND status = ?`
		args = append(args, string(filter.Status))
	}
	if filter.CompanyKey != "" {
		query += ` AND company_key = ?`
		args = append(args, filter.CompanyKey)
	}
	query += ` ORDER BY created_at DESC`

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	query += ` LIMIT ?`
	args = append(args, limit)

	if filter.Offset > 0 {
		query += ` OFFSET ?`
		args = append(args, filter.Offset)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list scans")
	}
	defer rows.Close()

	var scans []model.ScanRecord
	for rows.Next() {
		r, err := scanScanRecord(rows)
		if err != nil {
			return nil, err
		}
		scans = append(scans, *r)
	}
	return scans, eris.Wrap(rows.Err(), "sqlite: list scans iterate")
}

func (s *SQLiteStore) UpsertCompany(ctx context.Context, rec model.CompanyRecord) error {
	now := time.Now().UTC()

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO companies (key, scan_id, name, descriptor, score, confidence, coverage, data, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(key) DO UPDATE SET
		   scan_id = excluded.scan_id, name = excluded.name, descriptor = excluded.descriptor,
		   score = excluded.score, confidence = excluded.confidence, coverage = excluded.coverage,
		   data = excluded.data, updated_at = excluded.updated_at`,
		rec.Key, rec.ScanID, rec.Name, rec.Descriptor, rec.Score, string(rec.Confidence),
		rec.Coverage, nullableJSON(rec.Data), now, now,
	)
	return eris.Wrapf(err, "sqlite: upsert company %s", rec.Key)
}

func (s *SQLiteStore) GetCompany(ctx context.Context, key string) (*model.CompanyRecord, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT key, scan_id, name, descriptor, score, confidence, coverage, data, created_at, updated_at
		 FROM companies WHERE key = ?`,
		key,
	)
	return scanCompanyRecord(row)
}

func (s *SQLiteStore) ListCompanies(ctx context.Context, filter CompanyFilter) ([]model.CompanyRecord, error) {
	query := `SELECT key, scan_id, name, descriptor, score, confidence, coverage, data, created_at, updated_at
	          FROM companies WHERE 1=1`
	var args []any

	if filter.MinScore > 0 {
		query += ` AND score >= ?`
		args = append(args, filter.MinScore)
	}
	if filter.Confidence != "" {
		query += ` AND confidence = ?`
		args = append(args, string(filter.Confidence))
	}
	query += companyOrderClause(filter.Sort)

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	query += ` LIMIT ?`
	args = append(args, limit)

	if filter.Offset > 0 {
		query += ` OFFSET ?`
		args = append(args, filter.Offset)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list companies")
	}
	defer rows.Close()

	var companies []model.CompanyRecord
	for rows.Next() {
		r, err := scanCompanyRecord(rows)
		if err != nil {
			return nil, err
		}
		companies = append(companies, *r)
	}
	return companies, eris.Wrap(rows.Err(), "sqlite: list companies iterate")
}

// helpers

// companyOrderClause maps the filter sort key to an ORDER BY. Unknown keys
// fall back to the score ordering.
func companyOrderClause(sort string) string {
	switch sort {
	case "name":
		return ` ORDER BY name ASC`
	case "updated":
		return ` ORDER BY updated_at DESC`
	default:
		return ` ORDER BY score DESC, name ASC`
	}
}

func nullableJSON(data json.RawMessage) any {
	if len(data) == 0 {
		return nil
	}
	return string(data)
}

func checkRowsAffected(res sql.Result, entity, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return eris.Wrap(err, "rows affected")
	}
	if n == 0 {
		return eris.Wrapf(ErrNotFound, "%s %s", entity, id)
	}
	return nil
}

type scannable interface {
	Scan(dest ...any) error
}

func scanScanRecord(row scannable) (*model.ScanRecord, error) {
	var r model.ScanRecord
	var completedJSON string

	err := row.Scan(&r.ID, &r.CompanyKey, &r.Status, &r.Progress, &completedJSON,
		&r.ErrorMessage, &r.CreatedAt, &r.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, eris.Wrap(ErrNotFound, "scan")
	}
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: scan row")
	}

	if err := json.Unmarshal([]byte(completedJSON), &r.StagesCompleted); err != nil {
		return nil, eris.Wrap(err, "sqlite: unmarshal stages")
	}
	r.StagesPending = pendingStages(r.StagesCompleted)
	return &r, nil
}

func scanCompanyRecord(row scannable) (*model.CompanyRecord, error) {
	var r model.CompanyRecord
	var scanID, data sql.NullString

	err := row.Scan(&r.Key, &scanID, &r.Name, &r.Descriptor, &r.Score, &r.Confidence,
		&r.Coverage, &data, &r.CreatedAt, &r.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, eris.Wrap(ErrNotFound, "company")
	}
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: company row")
	}

	r.ScanID = scanID.String
	if data.Valid {
		r.Data = json.RawMessage(data.String)
	}
	return &r, nil
}
