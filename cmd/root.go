package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/pharmalink/pharmalink/internal/config"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "pharmalink",
	Short: "Pharmacy accessibility estimation pipeline",
	Long:  "Assigns customers to nearby pharmacies, estimates round trips per costing model against a Valhalla routing engine, and infers the realistic mode of transport from empirical mode-choice probabilities.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		cfg = c

		if err := config.InitLogger(cfg.Log); err != nil {
			return fmt.Errorf("init logger: %w", err)
		}

		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = zap.L().Sync()
	},
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
