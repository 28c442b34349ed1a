package main

import (
	"encoding/csv"
	"os"
	"strconv"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/pharmalink/pharmalink/internal/assign"
)

var (
	assignCustomersPath  string
	assignPharmaciesPath string
	assignOutput         string
)

var assignCmd = &cobra.Command{
	Use:   "assign",
	Short: "Assign customers to pharmacies without fetching trips",
	RunE: func(cmd *cobra.Command, args []string) error {
		customers, err := loadCustomers(assignCustomersPath)
		if err != nil {
			return eris.Wrap(err, "load customers")
		}
		pharmacies, err := loadPharmacies(assignPharmaciesPath)
		if err != nil {
			return eris.Wrap(err, "load pharmacies")
		}

		selector := assign.NewSelector(cfg.Assign.Candidates, cfg.Assign.Seed)
		if err := selector.Assign(customers, pharmacies); err != nil {
			return eris.Wrap(err, "assign pharmacies")
		}

		out := cmd.OutOrStdout()
		if assignOutput != "" {
			f, err := os.Create(assignOutput)
			if err != nil {
				return eris.Wrapf(err, "create %s", assignOutput)
			}
			defer f.Close() //nolint:errcheck
			out = f
		}

		w := csv.NewWriter(out)
		if err := w.Write([]string{"customer_id", "pharmacy_id"}); err != nil {
			return eris.Wrap(err, "write header")
		}
		for _, c := range customers {
			if err := w.Write([]string{strconv.FormatInt(c.ID, 10), c.PharmacyID}); err != nil {
				return eris.Wrapf(err, "write customer %d", c.ID)
			}
		}
		w.Flush()
		if err := w.Error(); err != nil {
			return eris.Wrap(err, "flush assignments")
		}

		zap.L().Info("assignment complete",
			zap.Int("customers", len(customers)),
			zap.Int("pharmacies", len(pharmacies)),
		)
		return nil
	},
}

func init() {
	assignCmd.Flags().StringVar(&assignCustomersPath, "customers", "", "customer dataset (.csv or .shp)")
	assignCmd.Flags().StringVar(&assignPharmaciesPath, "pharmacies", "", "pharmacy dataset (.csv or .shp)")
	assignCmd.Flags().StringVar(&assignOutput, "output", "", "assignment csv path (empty = stdout)")
	_ = assignCmd.MarkFlagRequired("customers")
	_ = assignCmd.MarkFlagRequired("pharmacies")
	rootCmd.AddCommand(assignCmd)
}
