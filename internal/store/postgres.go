package store

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/pharmalink/pharmalink/internal/model"
)

// PostgresStore implements Store on a pgx connection pool.
type PostgresStore struct {
	pool    Pool
	closeFn func()
}

// NewPostgres connects to the given database URL and pings it.
func NewPostgres(ctx context.Context, databaseURL string) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool, closeFn: pool.Close}, nil
}

// NewPostgresWithPool wraps an existing pool. Used in tests with pgxmock.
func NewPostgresWithPool(pool Pool) *PostgresStore {
	return &PostgresStore{pool: pool, closeFn: func() {}}
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS runs (
	id          TEXT PRIMARY KEY,
	area        TEXT NOT NULL,
	customers   INTEGER NOT NULL,
	succeeded   INTEGER NOT NULL DEFAULT 0,
	failed      INTEGER NOT NULL DEFAULT 0,
	status      TEXT NOT NULL DEFAULT 'running',
	started_at  TIMESTAMPTZ NOT NULL DEFAULT now(),
	finished_at TIMESTAMPTZ
);

CREATE TABLE IF NOT EXISTS trips (
	run_id      TEXT NOT NULL REFERENCES runs(id),
	customer_id BIGINT NOT NULL,
	pharmacy_id TEXT NOT NULL,
	locations   JSONB NOT NULL,
	mot         TEXT NOT NULL,
	legs        INTEGER NOT NULL,
	length_km   DOUBLE PRECISION NOT NULL,
	time_hours  DOUBLE PRECISION NOT NULL,
	PRIMARY KEY (run_id, customer_id)
);

CREATE TABLE IF NOT EXISTS mode_totals (
	run_id     TEXT NOT NULL REFERENCES runs(id),
	mot        TEXT NOT NULL,
	time_hours DOUBLE PRECISION NOT NULL,
	length_km  DOUBLE PRECISION NOT NULL,
	PRIMARY KEY (run_id, mot)
);

CREATE TABLE IF NOT EXISTS failures (
	run_id      TEXT NOT NULL REFERENCES runs(id),
	customer_id BIGINT NOT NULL,
	PRIMARY KEY (run_id, customer_id)
);

CREATE INDEX IF NOT EXISTS idx_runs_status ON runs(status);
CREATE INDEX IF NOT EXISTS idx_trips_run_id ON trips(run_id);
`

// Migrate creates the schema.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

// Close releases the pool.
func (s *PostgresStore) Close() error {
	s.closeFn()
	return nil
}

// CreateRun inserts a new running batch record.
func (s *PostgresStore) CreateRun(ctx context.Context, area string, customers int) (*model.Run, error) {
	id := uuid.New().String()
	now := time.Now().UTC()

	_, err := s.pool.Exec(ctx,
		`INSERT INTO runs (id, area, customers, status, started_at) VALUES ($1, $2, $3, $4, $5)`,
		id, area, customers, string(model.RunStatusRunning), now,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: insert run")
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
func (s *PostgresStore) CompleteRun(ctx context.Context, runID string, succeeded, failed int) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE runs SET succeeded = $1, failed = $2, status = $3, finished_at = $4 WHERE id = $5`,
		succeeded, failed, string(model.RunStatusComplete), time.Now().UTC(), runID,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: complete run %s", runID)
	}
	if tag.RowsAffected() == 0 {
		return eris.Errorf("postgres: run %s not found", runID)
	}
	return nil
}

// FailRun marks a run failed.
func (s *PostgresStore) FailRun(ctx context.Context, runID string) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE runs SET status = $1, finished_at = $2 WHERE id = $3`,
		string(model.RunStatusFailed), time.Now().UTC(), runID,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: fail run %s", runID)
	}
	if tag.RowsAffected() == 0 {
		return eris.Errorf("postgres: run %s not found", runID)
	}
	return nil
}

// GetRun fetches a run by id.
func (s *PostgresStore) GetRun(ctx context.Context, runID string) (*model.Run, error) {
	var run model.Run
	var status string
	var finishedAt *time.Time

	err := s.pool.QueryRow(ctx,
		`SELECT id, area, customers, succeeded, failed, status, started_at, finished_at FROM runs WHERE id = $1`,
		runID,
	).Scan(&run.ID, &run.Area, &run.Customers, &run.Succeeded, &run.Failed, &status, &run.StartedAt, &finishedAt)
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: get run %s", runID)
	}

	run.Status = model.RunStatus(status)
	run.FinishedAt = finishedAt
	return &run, nil
}

// SaveTrips bulk-inserts the aggregated trip rows for a run via COPY.
func (s *PostgresStore) SaveTrips(ctx context.Context, runID string, trips []model.AggregatedTrip) error {
	if len(trips) == 0 {
		return nil
	}

	rows := make([][]any, 0, len(trips))
	for _, t := range trips {
		locs, err := json.Marshal(t.Locations)
		if err != nil {
			return eris.Wrapf(err, "postgres: marshal locations for customer %d", t.CustomerID)
		}
		rows = append(rows, []any{
			runID, t.CustomerID, t.PharmacyID, locs, string(t.Mode), t.Legs, t.LengthKM, t.TimeHours,
		})
	}

	copied, err := s.pool.CopyFrom(ctx,
		pgx.Identifier{"trips"},
		[]string{"run_id", "customer_id", "pharmacy_id", "locations", "mot", "legs", "length_km", "time_hours"},
		pgx.CopyFromRows(rows),
	)
	if err != nil {
		return eris.Wrap(err, "postgres: copy trips")
	}
	if copied != int64(len(rows)) {
		return eris.Errorf("postgres: copied %d of %d trips", copied, len(rows))
	}
	return nil
}

// SaveModeTotals inserts the per-mode totals for a run.
func (s *PostgresStore) SaveModeTotals(ctx context.Context, runID string, totals map[model.Mode]model.ModeTotals) error {
	for _, mode := range model.AllModes() {
		t, ok := totals[mode]
		if !ok {
			continue
		}
		if _, err := s.pool.Exec(ctx,
			`INSERT INTO mode_totals (run_id, mot, time_hours, length_km) VALUES ($1, $2, $3, $4)`,
			runID, string(mode), t.TimeHours, t.LengthKM,
		); err != nil {
			return eris.Wrapf(err, "postgres: insert totals for %s", mode)
		}
	}
	return nil
}

// SaveFailures records the customers without a viable trip.
func (s *PostgresStore) SaveFailures(ctx context.Context, runID string, customerIDs []int64) error {
	if len(customerIDs) == 0 {
		return nil
	}

	rows := make([][]any, 0, len(customerIDs))
	for _, id := range customerIDs {
		rows = append(rows, []any{runID, id})
	}

	copied, err := s.pool.CopyFrom(ctx,
		pgx.Identifier{"failures"},
		[]string{"run_id", "customer_id"},
		pgx.CopyFromRows(rows),
	)
	if err != nil {
		return eris.Wrap(err, "postgres: copy failures")
	}
	if copied != int64(len(rows)) {
		return eris.Errorf("postgres: copied %d of %d failures", copied, len(rows))
	}
	return nil
}
