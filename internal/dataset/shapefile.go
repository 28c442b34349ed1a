package dataset

import (
	"strconv"
	"strings"

	"github.com/jonas-p/go-shp"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/pharmalink/pharmalink/internal/model"
)

// LoadCustomersShapefile reads customer points from a shapefile. The "id"
// attribute supplies the customer id; records without one get the shape
// index.
func LoadCustomersShapefile(path string) ([]model.Customer, error) {
	records, err := readShapePoints(path)
	if err != nil {
		return nil, err
	}

	customers := make([]model.Customer, 0, len(records))
	for i, rec := range records {
		id := int64(i)
		if rec.id != "" {
			parsed, parseErr := strconv.ParseInt(rec.id, 10, 64)
			if parseErr != nil {
				return nil, eris.Wrapf(parseErr, "dataset: customer id %q in %s", rec.id, path)
			}
			id = parsed
		}
		customers = append(customers, model.Customer{ID: id, Location: rec.loc})
	}
	return customers, nil
}

// LoadPharmaciesShapefile reads pharmacy points from a shapefile.
func LoadPharmaciesShapefile(path string) ([]model.Pharmacy, error) {
	records, err := readShapePoints(path)
	if err != nil {
		return nil, err
	}

	pharmacies := make([]model.Pharmacy, 0, len(records))
	for i, rec := range records {
		id := rec.id
		if id == "" {
			id = strconv.Itoa(i)
		}
		pharmacies = append(pharmacies, model.Pharmacy{ID: id, Location: rec.loc})
	}
	return pharmacies, nil
}

// readShapePoints reads point shapes and their "id" attribute.
func readShapePoints(path string) ([]pointRecord, error) {
	reader, err := shp.Open(path)
	if err != nil {
		return nil, eris.Wrapf(err, "dataset: open shapefile %s", path)
	}
	defer func() { _ = reader.Close() }()

	// Build field name -> index map.
	fields := reader.Fields()
	idIdx := -1
	for i, f := range fields {
		name := strings.TrimRight(f.String(), "\x00")
		if strings.EqualFold(name, "id") {
			idIdx = i
			break
		}
	}

	var records []pointRecord
	var skipped int
	for reader.Next() {
		_, shape := reader.Shape()

		point, ok := shape.(*shp.Point)
		if !ok {
			skipped++
			continue
		}

		var id string
		if idIdx >= 0 {
			id = strings.TrimSpace(strings.TrimRight(reader.Attribute(idIdx), "\x00"))
		}

		records = append(records, pointRecord{
			id:  id,
			loc: model.Location{Lat: point.Y, Lon: point.X},
		})
	}

	if skipped > 0 {
		zap.L().Debug("dataset: skipped non-point shapes",
			zap.String("path", path),
			zap.Int("skipped", skipped),
		)
	}

	return records, nil
}
