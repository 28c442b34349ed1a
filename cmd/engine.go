package main

import (
	"os/signal"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
)

var engineCmd = &cobra.Command{
	Use:   "engine",
	Short: "Manage the routing engine container",
}

var engineUpCmd = &cobra.Command{
	Use:   "up",
	Short: "Start the routing engine and wait until it is healthy",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		mgr := newEngineManager(cfg.Engine, newRoutingClient(cfg.Valhalla))
		if err := mgr.Start(ctx); err != nil {
			return err
		}
		if err := mgr.AwaitReady(ctx); err != nil {
			// Don't leave a half-started container behind.
			if stopErr := mgr.Stop(); stopErr != nil {
				return eris.Wrap(err, stopErr.Error())
			}
			return err
		}

		cmd.Printf("routing engine healthy at %s\n", cfg.Valhalla.BaseURL)
		return nil
	},
}

var engineDownCmd = &cobra.Command{
	Use:   "down",
	Short: "Stop and remove the routing engine container",
	RunE: func(cmd *cobra.Command, args []string) error {
		return newEngineManager(cfg.Engine, newRoutingClient(cfg.Valhalla)).Stop()
	},
}

var engineStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Check the routing engine status endpoint",
	RunE: func(cmd *cobra.Command, args []string) error {
		client := newRoutingClient(cfg.Valhalla)
		if err := client.Status(cmd.Context()); err != nil {
			return eris.Wrap(err, "engine status")
		}
		cmd.Printf("routing engine at %s is up\n", cfg.Valhalla.BaseURL)
		return nil
	},
}

func init() {
	engineCmd.AddCommand(engineUpCmd)
	engineCmd.AddCommand(engineDownCmd)
	engineCmd.AddCommand(engineStatusCmd)
	rootCmd.AddCommand(engineCmd)
}
