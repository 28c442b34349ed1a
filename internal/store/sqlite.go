package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/pharmalink/pharmalink/internal/model"
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
CREATE TABLE IF NOT EXISTS runs (
	id          TEXT PRIMARY KEY,
	area        TEXT NOT NULL,
	customers   INTEGER NOT NULL,
	succeeded   INTEGER NOT NULL DEFAULT 0,
	failed      INTEGER NOT NULL DEFAULT 0,
	status      TEXT NOT NULL DEFAULT 'running',
	started_at  DATETIME NOT NULL DEFAULT (datetime('now')),
	finished_at DATETIME
);

CREATE TABLE IF NOT EXISTS trips (
	run_id      TEXT NOT NULL REFERENCES runs(id),
	customer_id INTEGER NOT NULL,
	pharmacy_id TEXT NOT NULL,
	locations   TEXT NOT NULL,
	mot         TEXT NOT NULL,
	legs        INTEGER NOT NULL,
	length_km   REAL NOT NULL,
	time_hours  REAL NOT NULL,
	PRIMARY KEY (run_id, customer_id)
);

CREATE TABLE IF NOT EXISTS mode_totals (
	run_id     TEXT NOT NULL REFERENCES runs(id),
	mot        TEXT NOT NULL,
	time_hours REAL NOT NULL,
	length_km  REAL NOT NULL,
	PRIMARY KEY (run_id, mot)
);

CREATE TABLE IF NOT EXISTS failures (
	run_id      TEXT NOT NULL REFERENCES runs(id),
	customer_id INTEGER NOT NULL,
	PRIMARY KEY (run_id, customer_id)
);

CREATE INDEX IF NOT EXISTS idx_runs_status ON runs(status);
CREATE INDEX IF NOT EXISTS idx_trips_run_id ON trips(run_id);
`

// Migrate creates the schema.
func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

// Close releases the database handle.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// CreateRun inserts a new running batch record.
func (s *SQLiteStore) CreateRun(ctx context.Context, area string, customers int) (*model.Run, error) {
	id := uuid.New().String()
	now := time.Now().UTC()

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO runs (id, area, customers, status, started_at) VALUES (?, ?, ?, ?, ?)`,
		id, area, customers, string(model.RunStatusRunning), now,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: insert run")
	}

	return &model.Run{
		ID:        id,
		Area:      area,
		Customers: customers,
		Status:    model.RunStatusRunning,
		StartedAt: now,
	}, nil
}

// CompleteRun marks a run complete with its final counts.
func (s *SQLiteStore) CompleteRun(ctx context.Context, runID string, succeeded, failed int) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE runs SET succeeded = ?, failed = ?, status = ?, finished_at = ? WHERE id = ?`,
		succeeded, failed, string(model.RunStatusComplete), time.Now().UTC(), runID,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: complete run %s", runID)
	}
	return checkRowsAffected(res, runID)
}

// FailRun marks a run failed.
func (s *SQLiteStore) FailRun(ctx context.Context, runID string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE runs SET status = ?, finished_at = ? WHERE id = ?`,
		string(model.RunStatusFailed), time.Now().UTC(), runID,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: fail run %s", runID)
	}
	return checkRowsAffected(res, runID)
}

// GetRun fetches a run by id.
func (s *SQLiteStore) GetRun(ctx context.Context, runID string) (*model.Run, error) {
	var run model.Run
	var status string
	var finishedAt sql.NullTime

	err := s.db.QueryRowContext(ctx,
		`SELECT id, area, customers, succeeded, failed, status, started_at, finished_at FROM runs WHERE id = ?`,
		runID,
	).Scan(&run.ID, &run.Area, &run.Customers, &run.Succeeded, &run.Failed, &status, &run.StartedAt, &finishedAt)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: get run %s", runID)
	}

	run.Status = model.RunStatus(status)
	if finishedAt.Valid {
		run.FinishedAt = &finishedAt.Time
	}
	return &run, nil
}

// SaveTrips inserts the aggregated trip rows for a run in one transaction.
func (s *SQLiteStore) SaveTrips(ctx context.Context, runID string, trips []model.AggregatedTrip) error {
	if len(trips) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return eris.Wrap(err, "sqlite: begin trips tx")
	}
	defer tx.Rollback() //nolint:errcheck

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO trips (run_id, customer_id, pharmacy_id, locations, mot, legs, length_km, time_hours)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
	)
	if err != nil {
		return eris.Wrap(err, "sqlite: prepare trips insert")
	}
	defer stmt.Close() //nolint:errcheck

	for _, t := range trips {
		locs, err := json.Marshal(t.Locations)
		if err != nil {
			return eris.Wrapf(err, "sqlite: marshal locations for customer %d", t.CustomerID)
		}
		if _, err := stmt.ExecContext(ctx,
			runID, t.CustomerID, t.PharmacyID, string(locs), string(t.Mode), t.Legs, t.LengthKM, t.TimeHours,
		); err != nil {
			return eris.Wrapf(err, "sqlite: insert trip for customer %d", t.CustomerID)
		}
	}

	return eris.Wrap(tx.Commit(), "sqlite: commit trips")
}

// SaveModeTotals inserts the per-mode totals for a run.
func (s *SQLiteStore) SaveModeTotals(ctx context.Context, runID string, totals map[model.Mode]model.ModeTotals) error {
	for _, mode := range model.AllModes() {
		t, ok := totals[mode]
		if !ok {
			continue
		}
		if _, err := s.db.ExecContext(ctx,
			`INSERT INTO mode_totals (run_id, mot, time_hours, length_km) VALUES (?, ?, ?, ?)`,
			runID, string(mode), t.TimeHours, t.LengthKM,
		); err != nil {
			return eris.Wrapf(err, "sqlite: insert totals for %s", mode)
		}
	}
	return nil
}

// SaveFailures records the customers without a viable trip.
func (s *SQLiteStore) SaveFailures(ctx context.Context, runID string, customerIDs []int64) error {
	for _, id := range customerIDs {
		if _, err := s.db.ExecContext(ctx,
			`INSERT INTO failures (run_id, customer_id) VALUES (?, ?)`,
			runID, id,
		); err != nil {
			return eris.Wrapf(err, "sqlite: insert failure for customer %d", id)
		}
	}
	return nil
}

func checkRowsAffected(res sql.Result, runID string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return eris.Wrap(err, "sqlite: rows affected")
	}
	if n == 0 {
		return eris.Errorf("sqlite: run %s not found", runID)
	}
	return nil
}
