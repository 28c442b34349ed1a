package main

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/pharmalink/pharmalink/internal/assign"
	"github.com/pharmalink/pharmalink/internal/model"
	"github.com/pharmalink/pharmalink/internal/mot"
	"github.com/pharmalink/pharmalink/internal/report"
	"github.com/pharmalink/pharmalink/internal/resilience"
	"github.com/pharmalink/pharmalink/internal/store"
	"github.com/pharmalink/pharmalink/internal/trips"
)

var (
	batchCustomersPath  string
	batchPharmaciesPath string
	batchArea           string
	batchLimit          int
	batchOutput         string
)

var batchCmd = &cobra.Command{
	Use:   "batch",
	Short: "Run the full assignment and trip-estimation pipeline",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		customers, err := loadCustomers(batchCustomersPath)
		if err != nil {
			return eris.Wrap(err, "load customers")
		}
		pharmacies, err := loadPharmacies(batchPharmaciesPath)
		if err != nil {
			return eris.Wrap(err, "load pharmacies")
		}

		limit := batchLimit
		if limit == 0 {
			limit = cfg.Batch.Limit
		}
		if limit > 0 && len(customers) > limit {
			customers = customers[:limit]
		}

		st, err := newStore(ctx, cfg.Store)
		if err != nil {
			return eris.Wrap(err, "open store")
		}
		defer st.Close() //nolint:errcheck

		selector := assign.NewSelector(cfg.Assign.Candidates, cfg.Assign.Seed)
		if err := selector.Assign(customers, pharmacies); err != nil {
			return eris.Wrap(err, "assign pharmacies")
		}

		table, err := loadMotTable(cfg.Mot)
		if err != nil {
			return eris.Wrap(err, "load mode table")
		}
		inference, err := mot.NewEngine(table, cfg.Mot.Seed)
		if err != nil {
			return eris.Wrap(err, "build mode inference")
		}

		client := newRoutingClient(cfg.Valhalla)
		fetcher := trips.NewFetcher(client, int64(cfg.Valhalla.MaxConnections))
		batch := trips.NewBatch(fetcher, inference, cfg.Valhalla.MaxConnections)

		run, err := st.CreateRun(ctx, batchArea, len(customers))
		if err != nil {
			return eris.Wrap(err, "create run")
		}
		zap.L().Info("run created",
			zap.String("run", run.ID),
			zap.String("area", run.Area),
			zap.Int("customers", run.Customers),
		)

		var result *trips.BatchResult
		err = newEngineManager(cfg.Engine, client).Run(ctx, func(ctx context.Context) error {
			var runErr error
			result, runErr = batch.Run(ctx, customers, pharmacies)
			return runErr
		})
		if err != nil {
			if failErr := st.FailRun(context.WithoutCancel(ctx), run.ID); failErr != nil {
				zap.L().Warn("failed to mark run failed", zap.Error(failErr))
			}
			return eris.Wrap(err, "run pipeline")
		}

		rows, totals := report.Aggregate(result.Trips)

		if err := persistResults(ctx, st, run.ID, result, rows, totals); err != nil {
			return err
		}

		if batchOutput != "" {
			if err := report.WriteXLSX(batchOutput, rows, totals); err != nil {
				return eris.Wrap(err, "write report")
			}
			zap.L().Info("report written", zap.String("path", batchOutput))
		}

		printSummary(cmd, run.ID, result, totals)
		return nil
	},
}

func init() {
	batchCmd.Flags().StringVar(&batchCustomersPath, "customers", "", "customer dataset (.csv or .shp)")
	batchCmd.Flags().StringVar(&batchPharmaciesPath, "pharmacies", "", "pharmacy dataset (.csv or .shp)")
	batchCmd.Flags().StringVar(&batchArea, "area", "", "label for the analyzed area")
	batchCmd.Flags().IntVar(&batchLimit, "limit", 0, "max number of customers to process (0 = all)")
	batchCmd.Flags().StringVar(&batchOutput, "output", "", "xlsx report path (empty = skip report)")
	_ = batchCmd.MarkFlagRequired("customers")
	_ = batchCmd.MarkFlagRequired("pharmacies")
	rootCmd.AddCommand(batchCmd)
}

// persistResults writes trips, totals, and failures, then finalizes the run.
// Transient store failures are retried; the batch's work is already done and
// should not be lost to a connection blip.
func persistResults(ctx context.Context, st store.Store, runID string, result *trips.BatchResult, rows []model.AggregatedTrip, totals map[model.Mode]model.ModeTotals) error {
	retry := resilience.DefaultRetryConfig()
	retry.OnRetry = resilience.RetryLogger("persist results")

	steps := []struct {
		name string
		fn   func(ctx context.Context) error
	}{
		{"save trips", func(ctx context.Context) error { return st.SaveTrips(ctx, runID, rows) }},
		{"save mode totals", func(ctx context.Context) error { return st.SaveModeTotals(ctx, runID, totals) }},
		{"save failures", func(ctx context.Context) error { return st.SaveFailures(ctx, runID, result.FailedIDs) }},
		{"complete run", func(ctx context.Context) error {
			return st.CompleteRun(ctx, runID, result.Succeeded(), result.Failed())
		}},
	}
	for _, step := range steps {
		if err := resilience.Do(ctx, retry, step.fn); err != nil {
			return eris.Wrap(err, step.name)
		}
	}
	return nil
}

// printSummary writes the human-readable run summary to the command output.
func printSummary(cmd *cobra.Command, runID string, result *trips.BatchResult, totals map[model.Mode]model.ModeTotals) {
	p := message.NewPrinter(language.English)
	out := cmd.OutOrStdout()

	p.Fprintf(out, "run %s: %d succeeded, %d failed\n", runID, result.Succeeded(), result.Failed())
	for _, mode := range model.AllModes() {
		t, ok := totals[mode]
		if !ok {
			continue
		}
		p.Fprintf(out, "  %-10s %.2f km over %.2f hours\n", mode, t.LengthKM, t.TimeHours)
	}
}
