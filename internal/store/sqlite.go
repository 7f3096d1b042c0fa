package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/sells-group/panowalk/internal/geo"
	"github.com/sells-group/panowalk/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	if dsn == "" {
		dsn = "panowalk.db"
	}
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
			db.Close() //nolint:errcheck
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS runs (
	id         TEXT PRIMARY KEY,
	region     TEXT NOT NULL,
	center_lat REAL NOT NULL,
	center_lng REAL NOT NULL,
	status     TEXT NOT NULL DEFAULT 'routing',
	records    INTEGER NOT NULL DEFAULT 0,
	created_at DATETIME NOT NULL DEFAULT (datetime('now')),
	updated_at DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS records (
	run_id        TEXT NOT NULL REFERENCES runs(id),
	point_id      INTEGER NOT NULL,
	region        TEXT NOT NULL,
	street_id     INTEGER NOT NULL,
	lat           REAL NOT NULL,
	lng           REAL NOT NULL,
	direction     REAL NOT NULL,
	panorama_id   TEXT NOT NULL DEFAULT '',
	panorama_date TEXT NOT NULL DEFAULT '',
	panorama_lat  REAL NOT NULL DEFAULT 0,
	panorama_lng  REAL NOT NULL DEFAULT 0,
	PRIMARY KEY (run_id, point_id)
);

CREATE INDEX IF NOT EXISTS idx_runs_region ON runs(region);
CREATE INDEX IF NOT EXISTS idx_runs_status ON runs(status);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) CreateRun(ctx context.Context, region string, center geo.Coordinate) (*model.Run, error) {
	if err := CheckRegionName(region); err != nil {
		return nil, err
	}
	id := uuid.New().String()
	now := time.Now().UTC()

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO runs (id, region, center_lat, center_lng, status, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		id, region, center.Lat, center.Lng, string(model.RunStatusRouting), now, now,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: insert run")
	}

	return &model.Run{
		ID:        id,
		Region:    region,
		Center:    center,
		Status:    model.RunStatusRouting,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

func (s *SQLiteStore) UpdateRunStatus(ctx context.Context, runID string, status model.RunStatus) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE runs SET status = ?, updated_at = ? WHERE id = ?`,
		string(status), time.Now().UTC(), runID,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: update run status %s", runID)
	}
	return checkRowsAffected(res, "run", runID)
}

func (s *SQLiteStore) CompleteRun(ctx context.Context, runID string, records int) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE runs SET status = ?, records = ?, updated_at = ? WHERE id = ?`,
		string(model.RunStatusComplete), records, time.Now().UTC(), runID,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: complete run %s", runID)
	}
	return checkRowsAffected(res, "run", runID)
}

func (s *SQLiteStore) ListRuns(ctx context.Context, filter RunFilter) ([]model.Run, error) {
	query := `SELECT id, region, center_lat, center_lng, status, records, created_at, updated_at FROM runs WHERE 1=1`
	var args []any

	if filter.Status != "" {
		query += ` AND status = ?`
		args = append(args, string(filter.Status))
	}
	if filter.Region != "" {
		query += ` AND region = ?`
		args = append(args, filter.Region)
	}
	query += ` ORDER BY created_at DESC LIMIT ?`
	args = append(args, limitOrDefault(filter.Limit))

	if filter.Offset > 0 {
		query += ` OFFSET ?`
		args = append(args, filter.Offset)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list runs")
	}
	defer rows.Close() //nolint:errcheck

	var runs []model.Run
	for rows.Next() {
		var r model.Run
		if err := rows.Scan(&r.ID, &r.Region, &r.Center.Lat, &r.Center.Lng, &r.Status, &r.Records, &r.CreatedAt, &r.UpdatedAt); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan run")
		}
		runs = append(runs, r)
	}
	return runs, eris.Wrap(rows.Err(), "sqlite: list runs iterate")
}

// SaveRecords inserts the run's records in a single transaction.
func (s *SQLiteStore) SaveRecords(ctx context.Context, runID string, records []model.Record) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return eris.Wrap(err, "sqlite: begin save records")
	}
	defer tx.Rollback() //nolint:errcheck

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO records (run_id, point_id, region, street_id, lat, lng, direction, panorama_id, panorama_date, panorama_lat, panorama_lng)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return eris.Wrap(err, "sqlite: prepare insert record")
	}
	defer stmt.Close() //nolint:errcheck

	for _, r := range records {
		if _, err := stmt.ExecContext(ctx, recordArgs(runID, r)...); err != nil {
			return eris.Wrapf(err, "sqlite: insert record %d for run %s", r.PointID, runID)
		}
	}
	return eris.Wrap(tx.Commit(), "sqlite: commit records")
}

// ListRecords returns the records of the region's latest completed run.
func (s *SQLiteStore) ListRecords(ctx context.Context, region string) ([]model.Record, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT point_id, region, street_id, lat, lng, direction, panorama_id, panorama_date, panorama_lat, panorama_lng
		FROM records
		WHERE run_id = (
			SELECT id FROM runs WHERE region = ? AND status = ? ORDER BY updated_at DESC LIMIT 1
		)
		ORDER BY point_id`,
		region, string(model.RunStatusComplete),
	)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: list records for %s", region)
	}
	defer rows.Close() //nolint:errcheck

	var records []model.Record
	for rows.Next() {
		r, err := scanRecord(rows)
		if err != nil {
			return nil, eris.Wrap(err, "sqlite: scan record")
		}
		records = append(records, *r)
	}
	return records, eris.Wrap(rows.Err(), "sqlite: list records iterate")
}

func checkRowsAffected(res sql.Result, entity, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return eris.Wrap(err, "rows affected")
	}
	if n == 0 {
		return eris.Errorf("%s not found: %s", entity, id)
	}
	return nil
}

type scannable interface {
	Scan(dest ...any) error
}

func scanRecord(row scannable) (*model.Record, error) {
	var r model.Record
	err := row.Scan(&r.PointID, &r.Region, &r.StreetID, &r.Lat, &r.Lng, &r.Direction,
		&r.PanoramaID, &r.PanoramaDate, &r.PanoramaLat, &r.PanoramaLng)
	if err != nil {
		return nil, err
	}
	return &r, nil
}

func recordArgs(runID string, r model.Record) []any {
	return []any{
		runID, r.PointID, r.Region, r.StreetID, r.Lat, r.Lng, r.Direction,
		r.PanoramaID, r.PanoramaDate, r.PanoramaLat, r.PanoramaLng,
	}
}
