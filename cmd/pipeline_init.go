package main

import (
	"context"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
	"golang.org/x/time/rate"

	"github.com/pharmalink/pharmalink/internal/config"
	"github.com/pharmalink/pharmalink/internal/dataset"
	"github.com/pharmalink/pharmalink/internal/engine"
	"github.com/pharmalink/pharmalink/internal/model"
	"github.com/pharmalink/pharmalink/internal/mot"
	"github.com/pharmalink/pharmalink/internal/store"
	"github.com/pharmalink/pharmalink/pkg/valhalla"
)

// loadCustomers reads the customer dataset, dispatching on file extension.
func loadCustomers(path string) ([]model.Customer, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		return dataset.LoadCustomersCSV(path)
	case ".shp":
		return dataset.LoadCustomersShapefile(path)
	default:
		return nil, eris.Errorf("unsupported customer dataset format: %s", path)
	}
}

// loadPharmacies reads the pharmacy dataset, dispatching on file extension.
func loadPharmacies(path string) ([]model.Pharmacy, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		return dataset.LoadPharmaciesCSV(path)
	case ".shp":
		return dataset.LoadPharmaciesShapefile(path)
	default:
		return nil, eris.Errorf("unsupported pharmacy dataset format: %s", path)
	}
}

// newStore opens the configured results store and runs migrations.
func newStore(ctx context.Context, cfg config.StoreConfig) (store.Store, error) {
	var st store.Store
	var err error

	switch cfg.Driver {
	case "postgres":
		st, err = store.NewPostgres(ctx, cfg.DatabaseURL)
	case "sqlite", "":
		st, err = store.NewSQLite(cfg.SQLitePath)
	default:
		return nil, eris.Errorf("unknown store driver: %s", cfg.Driver)
	}
	if err != nil {
		return nil, err
	}

	if err := st.Migrate(ctx); err != nil {
		st.Close() //nolint:errcheck
		return nil, err
	}
	return st, nil
}

// newRoutingClient builds the Valhalla client from configuration.
func newRoutingClient(cfg config.ValhallaConfig) valhalla.Client {
	opts := []valhalla.Option{
		valhalla.WithTimeout(cfg.RequestTimeout()),
		valhalla.WithMaxConnections(cfg.MaxConnections),
	}
	if cfg.RequestsPerSec > 0 {
		opts = append(opts, valhalla.WithLimiter(
			rate.NewLimiter(rate.Limit(cfg.RequestsPerSec), cfg.MaxConnections),
		))
	}
	return valhalla.NewClient(cfg.BaseURL, opts...)
}

// newEngineManager builds the lifecycle manager. A managed engine runs as a
// Docker container; an unmanaged one is only health-gated through its status
// endpoint.
func newEngineManager(cfg config.EngineConfig, client valhalla.Client) *engine.Manager {
	var runner engine.Runner
	if cfg.Managed {
		runner = engine.NewDockerRunner(engine.DockerConfig{
			Image:         cfg.Image,
			ContainerName: cfg.ContainerName,
			DataDir:       cfg.DataDir,
			Port:          cfg.Port,
		})
	} else {
		runner = engine.NewRemoteRunner(client)
	}
	return engine.NewManager(runner, cfg.HealthInterval(), cfg.HealthTimeout())
}

// loadMotTable loads the configured probability table, falling back to the
// built-in MiT 2017 table.
func loadMotTable(cfg config.MotConfig) (mot.Table, error) {
	if cfg.TablePath == "" {
		return mot.DefaultTable(), nil
	}
	return mot.LoadTable(cfg.TablePath)
}
