package report

import (
	"fmt"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"

	"github.com/pharmalink/pharmalink/internal/model"
)

// WriteXLSX writes the aggregated trips and per-mode totals to a workbook
// with one sheet per table.
func WriteXLSX(path string, rows []model.AggregatedTrip, totals map[model.Mode]model.ModeTotals) error {
	file := xlsx.NewFile()

	tripSheet, err := file.AddSheet("trips")
	if err != nil {
		return eris.Wrap(err, "report: add trips sheet")
	}

	header := tripSheet.AddRow()
	for _, name := range []string{"customer_id", "pharmacy_id", "locations", "mot", "legs", "length", "time"} {
		header.AddCell().SetString(name)
	}

	for _, r := range rows {
		row := tripSheet.AddRow()
		row.AddCell().SetInt64(r.CustomerID)
		row.AddCell().SetString(r.PharmacyID)
		row.AddCell().SetString(formatLocations(r.Locations))
		row.AddCell().SetString(string(r.Mode))
		row.AddCell().SetInt(r.Legs)
		row.AddCell().SetFloat(r.LengthKM)
		row.AddCell().SetFloat(r.TimeHours)
	}

	totalSheet, err := file.AddSheet("mode_totals")
	if err != nil {
		return eris.Wrap(err, "report: add totals sheet")
	}

	totalHeader := totalSheet.AddRow()
	for _, name := range []string{"mot", "time_hours", "length"} {
		totalHeader.AddCell().SetString(name)
	}

	for _, mode := range model.AllModes() {
		t, ok := totals[mode]
		if !ok {
			continue
		}
		row := totalSheet.AddRow()
		row.AddCell().SetString(string(mode))
		row.AddCell().SetFloat(t.TimeHours)
		row.AddCell().SetFloat(t.LengthKM)
	}

	if err := file.Save(path); err != nil {
		return eris.Wrapf(err, "report: save workbook %s", path)
	}
	return nil
}

func formatLocations(locs [3]model.Location) string {
	return fmt.Sprintf("(%g,%g);(%g,%g);(%g,%g)",
		locs[0].Lat, locs[0].Lon,
		locs[1].Lat, locs[1].Lon,
		locs[2].Lat, locs[2].Lon,
	)
}
