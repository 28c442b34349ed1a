package engine

import (
	"context"
	"errors"

	"github.com/pharmalink/pharmalink/internal/resilience"
	"github.com/pharmalink/pharmalink/pkg/valhalla"
)

// RemoteRunner adapts an externally managed engine to the Runner interface.
// Start and Stop are no-ops; its lifecycle belongs to whoever runs it. Health
// probes the engine's status endpoint, so the manager's readiness gate and
// deadline apply the same way they do to a managed container.
type RemoteRunner struct {
	client valhalla.Client
}

// NewRemoteRunner creates a runner probing the given client's engine.
func NewRemoteRunner(client valhalla.Client) *RemoteRunner {
	return &RemoteRunner{client: client}
}

// Start implements Runner.
func (r *RemoteRunner) Start(ctx context.Context) error { return nil }

// Health implements Runner. Connection failures and transient HTTP statuses
// count as still starting; anything else is a real error.
func (r *RemoteRunner) Health(ctx context.Context) (string, error) {
	err := r.client.Status(ctx)
	if err == nil {
		return HealthHealthy, nil
	}

	var statusErr *valhalla.StatusError
	if errors.As(err, &statusErr) && !resilience.IsTransientHTTPStatus(statusErr.StatusCode) {
		return "", err
	}
	return HealthStarting, nil
}

// Stop implements Runner.
func (r *RemoteRunner) Stop(ctx context.Context) error { return nil }
