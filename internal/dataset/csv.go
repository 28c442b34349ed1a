// Package dataset loads customer and pharmacy input sets from CSV files and
// shapefiles. Producing those datasets (population sampling, registry
// scraping) happens upstream; this package only reads their outputs.
package dataset

import (
	"encoding/csv"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/pharmalink/pharmalink/internal/model"
)

// pointRecord is one parsed id/lat/lon row.
type pointRecord struct {
	id  string
	loc model.Location
}

// LoadCustomersCSV reads customers from a CSV file with columns id,lat,lon.
func LoadCustomersCSV(path string) ([]model.Customer, error) {
	records, err := readPoints(path)
	if err != nil {
		return nil, err
	}

	customers := make([]model.Customer, 0, len(records))
	for i, rec := range records {
		id, err := strconv.ParseInt(rec.id, 10, 64)
		if err != nil {
			return nil, eris.Wrapf(err, "dataset: customer id %q at row %d", rec.id, i+1)
		}
		customers = append(customers, model.Customer{ID: id, Location: rec.loc})
	}
	return customers, nil
}

// LoadPharmaciesCSV reads pharmacies from a CSV file with columns id,lat,lon.
func LoadPharmaciesCSV(path string) ([]model.Pharmacy, error) {
	records, err := readPoints(path)
	if err != nil {
		return nil, err
	}

	pharmacies := make([]model.Pharmacy, 0, len(records))
	for _, rec := range records {
		pharmacies = append(pharmacies, model.Pharmacy{ID: rec.id, Location: rec.loc})
	}
	return pharmacies, nil
}

// readPoints parses id,lat,lon rows, tolerating a header line.
func readPoints(path string) ([]pointRecord, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, eris.Wrapf(err, "dataset: open %s", path)
	}
	defer f.Close() //nolint:errcheck

	reader := csv.NewReader(f)
	reader.TrimLeadingSpace = true

	var records []pointRecord
	line := 0
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, eris.Wrapf(err, "dataset: read %s", path)
		}
		line++

		if len(row) < 3 {
			return nil, eris.Errorf("dataset: %s row %d has %d columns, want 3", path, line, len(row))
		}

		lat, latErr := strconv.ParseFloat(strings.TrimSpace(row[1]), 64)
		lon, lonErr := strconv.ParseFloat(strings.TrimSpace(row[2]), 64)
		if latErr != nil || lonErr != nil {
			if line == 1 {
				continue // header
			}
			return nil, eris.Errorf("dataset: %s row %d has non-numeric coordinates", path, line)
		}

		records = append(records, pointRecord{
			id:  strings.TrimSpace(row[0]),
			loc: model.Location{Lat: lat, Lon: lon},
		})
	}
	return records, nil
}
