// Package report assembles chosen trips into the tabular batch output and
// the per-mode totals consumed by downstream VRP input generation.
package report

import (
	"sort"

	"github.com/pharmalink/pharmalink/internal/model"
)

// secondsPerHour converts engine trip times to hours for the output table.
const secondsPerHour = 3600.0

// Aggregate flattens chosen trips into output rows sorted by ascending
// customer id and computes per-mode totals. The engine's road-attribute
// flags (toll/highway/ferry/time restrictions) are dropped; downstream
// stages don't consume them. Aggregation is a pure function of its input:
// running it twice on the same trips yields identical output.
func Aggregate(trips []model.ChosenTrip) ([]model.AggregatedTrip, map[model.Mode]model.ModeTotals) {
	rows := make([]model.AggregatedTrip, 0, len(trips))
	for _, t := range trips {
		rows = append(rows, model.AggregatedTrip{
			CustomerID: t.CustomerID,
			PharmacyID: t.PharmacyID,
			Locations:  t.Locations,
			Mode:       t.Mode,
			Legs:       t.Legs,
			LengthKM:   t.Summary.LengthKM,
			TimeHours:  t.Summary.TimeSecs / secondsPerHour,
		})
	}

	sort.Slice(rows, func(i, j int) bool {
		return rows[i].CustomerID < rows[j].CustomerID
	})

	totals := make(map[model.Mode]model.ModeTotals)
	for _, r := range rows {
		t := totals[r.Mode]
		t.TimeHours += r.TimeHours
		t.LengthKM += r.LengthKM
		totals[r.Mode] = t
	}

	return rows, totals
}
