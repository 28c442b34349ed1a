package main

import (
	"math"
	"strconv"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/pharmalink/pharmalink/internal/model"
	"github.com/pharmalink/pharmalink/internal/mot"
)

var motSamples int

var motCmd = &cobra.Command{
	Use:   "mot",
	Short: "Inspect mode-of-transport inference",
}

var motShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the active mode-choice probability table",
	RunE: func(cmd *cobra.Command, args []string) error {
		table, err := loadMotTable(cfg.Mot)
		if err != nil {
			return eris.Wrap(err, "load mode table")
		}
		if err := table.Validate(); err != nil {
			return err
		}

		p := message.NewPrinter(language.English)
		out := cmd.OutOrStdout()

		p.Fprintf(out, "%-14s", "interval (km)")
		for _, mode := range model.AllModes() {
			p.Fprintf(out, "  %10s", mode)
		}
		p.Fprintln(out)

		for i, row := range table.Rows {
			upper := "inf"
			if !math.IsInf(table.Breaks[i+1], 1) {
				upper = strconv.FormatFloat(table.Breaks[i+1], 'g', -1, 64)
			}
			p.Fprintf(out, "[%g, %s)", table.Breaks[i], upper)
			for _, mode := range model.AllModes() {
				p.Fprintf(out, "  %10.4f", row[mode])
			}
			p.Fprintln(out)
		}
		return nil
	},
}

var motSampleCmd = &cobra.Command{
	Use:   "sample <length-km>",
	Short: "Draw modes for a trip length and print the observed shares",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		length, err := strconv.ParseFloat(args[0], 64)
		if err != nil {
			return eris.Wrapf(err, "parse length %q", args[0])
		}

		table, err := loadMotTable(cfg.Mot)
		if err != nil {
			return eris.Wrap(err, "load mode table")
		}
		inference, err := mot.NewEngine(table, cfg.Mot.Seed)
		if err != nil {
			return eris.Wrap(err, "build mode inference")
		}

		counts := make(map[model.Mode]int, len(model.AllModes()))
		for range motSamples {
			mode, err := inference.Infer(length, model.AllModes())
			if err != nil {
				return err
			}
			counts[mode]++
		}

		p := message.NewPrinter(language.English)
		out := cmd.OutOrStdout()
		p.Fprintf(out, "%d draws at %g km:\n", motSamples, length)
		for _, mode := range model.AllModes() {
			p.Fprintf(out, "  %-10s %6.2f%% (%d)\n",
				mode, 100*float64(counts[mode])/float64(motSamples), counts[mode])
		}
		return nil
	},
}

func init() {
	motSampleCmd.Flags().IntVar(&motSamples, "samples", 10000, "number of draws")
	motCmd.AddCommand(motShowCmd)
	motCmd.AddCommand(motSampleCmd)
	rootCmd.AddCommand(motCmd)
}
