// Package engine manages the routing engine container for the duration of a
// batch run: start, readiness gating, and guaranteed teardown.
package engine

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// ErrServiceUnavailable is returned when the engine does not report healthy
// before the readiness deadline. It is fatal to the whole batch.
var ErrServiceUnavailable = eris.New("engine: routing engine did not become healthy before deadline")

// Health states reported by the container runtime.
const (
	HealthHealthy  = "healthy"
	HealthStarting = "starting"
)

// Runner abstracts the container runtime so the manager can be exercised
// without Docker.
type Runner interface {
	// Start launches the engine instance.
	Start(ctx context.Context) error
	// Health reports the instance's current health state.
	Health(ctx context.Context) (string, error)
	// Stop tears the instance down.
	Stop(ctx context.Context) error
}

// Manager owns the engine lifecycle for one batch run.
type Manager struct {
	runner   Runner
	interval time.Duration
	deadline time.Duration
}

// NewManager creates a lifecycle manager polling health at the given interval
// and giving up after the given deadline.
func NewManager(runner Runner, interval, deadline time.Duration) *Manager {
	if interval <= 0 {
		interval = 2 * time.Second
	}
	if deadline <= 0 {
		deadline = 5 * time.Minute
	}
	return &Manager{runner: runner, interval: interval, deadline: deadline}
}

// Start launches the engine instance.
func (m *Manager) Start(ctx context.Context) error {
	zap.L().Info("engine: starting routing engine")
	if err := m.runner.Start(ctx); err != nil {
		return eris.Wrap(err, "engine: start")
	}
	return nil
}

// AwaitReady polls the health indicator until it reports healthy. It fails
// with ErrServiceUnavailable when the deadline passes first.
func (m *Manager) AwaitReady(ctx context.Context) error {
	deadlineCtx, cancel := context.WithTimeout(ctx, m.deadline)
	defer cancel()

	log := zap.L().With(zap.String("component", "engine"))
	log.Info("waiting for routing engine",
		zap.Duration("interval", m.interval),
		zap.Duration("deadline", m.deadline),
	)

	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	start := time.Now()
	for {
		status, err := m.runner.Health(deadlineCtx)
		if err != nil {
			log.Debug("health probe failed", zap.Error(err))
		} else if status == HealthHealthy {
			log.Info("routing engine healthy", zap.Duration("took", time.Since(start)))
			return nil
		} else {
			log.Debug("routing engine not ready", zap.String("status", status))
		}

		select {
		case <-deadlineCtx.Done():
			if ctx.Err() != nil {
				return eris.Wrap(ctx.Err(), "engine: await ready")
			}
			return ErrServiceUnavailable
		case <-ticker.C:
		}
	}
}

// Stop tears the instance down unconditionally. It uses its own context so
// teardown still runs when the batch context is already cancelled.
func (m *Manager) Stop() error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	zap.L().Info("engine: stopping routing engine")
	if err := m.runner.Stop(ctx); err != nil {
		return eris.Wrap(err, "engine: stop")
	}
	return nil
}

// Run executes fn against a started, healthy engine. The engine is stopped on
// every exit path: normal completion, error, and cancellation.
func (m *Manager) Run(ctx context.Context, fn func(context.Context) error) error {
	if err := m.Start(ctx); err != nil {
		return err
	}
	defer func() {
		if err := m.Stop(); err != nil {
			zap.L().Warn("engine: teardown failed", zap.Error(err))
		}
	}()

	if err := m.AwaitReady(ctx); err != nil {
		return err
	}

	return fn(ctx)
}
