// Package store persists batch runs, chosen trips, and per-mode totals.
package store

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/pharmalink/pharmalink/internal/model"
)

// Store defines the persistence interface for batch results.
type Store interface {
	// Runs
	CreateRun(ctx context.Context, area string, customers int) (*model.Run, error)
	CompleteRun(ctx context.Context, runID string, succeeded, failed int) error
	FailRun(ctx context.Context, runID string) error
	GetRun(ctx context.Context, runID string) (*model.Run, error)

	// Results
	SaveTrips(ctx context.Context, runID string, trips []model.AggregatedTrip) error
	SaveModeTotals(ctx context.Context, runID string, totals map[model.Mode]model.ModeTotals) error
	SaveFailures(ctx context.Context, runID string, customerIDs []int64) error

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}

// Pool is the subset of pgxpool.Pool the Postgres store uses. pgxmock
// satisfies it in tests.
type Pool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	CopyFrom(ctx context.Context, tableName pgx.Identifier, columnNames []string, rowSrc pgx.CopyFromSource) (int64, error)
	Ping(ctx context.Context) error
}
