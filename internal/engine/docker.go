package engine

import (
	"context"
	"fmt"
	"os/exec"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// DockerConfig describes the engine container.
type DockerConfig struct {
	Image         string
	ContainerName string
	DataDir       string
	Port          int
}

// DockerRunner runs the engine as a Docker container via the docker CLI.
type DockerRunner struct {
	cfg DockerConfig
}

// NewDockerRunner creates a runner for the given container configuration.
func NewDockerRunner(cfg DockerConfig) *DockerRunner {
	return &DockerRunner{cfg: cfg}
}

// Start implements Runner. Any stale container with the same name is removed
// first so repeated runs don't collide.
func (r *DockerRunner) Start(ctx context.Context) error {
	// Ignore removal failures: the container usually doesn't exist.
	if out, err := exec.CommandContext(ctx, "docker", "rm", "-f", r.cfg.ContainerName).CombinedOutput(); err != nil {
		zap.L().Debug("engine: stale container removal",
			zap.String("output", strings.TrimSpace(string(out))),
			zap.Error(err),
		)
	}

	args := []string{
		"run", "-d",
		"--name", r.cfg.ContainerName,
		"-p", fmt.Sprintf("%d:8002", r.cfg.Port),
		"-v", fmt.Sprintf("%s:/custom_files", r.cfg.DataDir),
		"--health-cmd", "curl -s -o /dev/null -w '%{http_code}' http://localhost:8002/status | grep -q 200 || exit 1",
		"--health-interval", "5s",
		"--health-timeout", "1s",
		"--health-retries", "10",
		"--health-start-period", "2s",
		r.cfg.Image,
	}

	out, err := exec.CommandContext(ctx, "docker", args...).CombinedOutput()
	if err != nil {
		return eris.Wrapf(err, "engine: docker run: %s", strings.TrimSpace(string(out)))
	}

	zap.L().Debug("engine: container started",
		zap.String("container", r.cfg.ContainerName),
		zap.String("id", strings.TrimSpace(string(out))),
	)
	return nil
}

// Health implements Runner by inspecting the container's health state.
func (r *DockerRunner) Health(ctx context.Context) (string, error) {
	out, err := exec.CommandContext(ctx,
		"docker", "inspect", "-f", "{{.State.Health.Status}}", r.cfg.ContainerName,
	).CombinedOutput()
	if err != nil {
		return "", eris.Wrapf(err, "engine: docker inspect: %s", strings.TrimSpace(string(out)))
	}
	return strings.TrimSpace(string(out)), nil
}

// Stop implements Runner.
func (r *DockerRunner) Stop(ctx context.Context) error {
	out, err := exec.CommandContext(ctx, "docker", "rm", "-f", r.cfg.ContainerName).CombinedOutput()
	if err != nil {
		return eris.Wrapf(err, "engine: docker rm: %s", strings.TrimSpace(string(out)))
	}
	return nil
}
