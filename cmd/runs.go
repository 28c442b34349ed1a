package main

import (
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var runsCmd = &cobra.Command{
	Use:   "runs <run-id>",
	Short: "Show a stored batch run",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := newStore(ctx, cfg.Store)
		if err != nil {
			return eris.Wrap(err, "open store")
		}
		defer st.Close() //nolint:errcheck

		run, err := st.GetRun(ctx, args[0])
		if err != nil {
			return eris.Wrap(err, "get run")
		}

		p := message.NewPrinter(language.English)
		out := cmd.OutOrStdout()
		p.Fprintf(out, "run %s (%s)\n", run.ID, run.Status)
		p.Fprintf(out, "  area:       %s\n", run.Area)
		p.Fprintf(out, "  customers:  %d\n", run.Customers)
		p.Fprintf(out, "  succeeded:  %d\n", run.Succeeded)
		p.Fprintf(out, "  failed:     %d\n", run.Failed)
		p.Fprintf(out, "  started:    %s\n", run.StartedAt.Format("2006-01-02 15:04:05"))
		if run.FinishedAt != nil {
			p.Fprintf(out, "  finished:   %s\n", run.FinishedAt.Format("2006-01-02 15:04:05"))
			p.Fprintf(out, "  duration:   %s\n", run.FinishedAt.Sub(run.StartedAt).Round(0))
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(runsCmd)
}
