package report

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pharmalink/pharmalink/internal/model"
)

func sampleTrips() []model.ChosenTrip {
	return []model.ChosenTrip{
		{
			CustomerID: 3,
			PharmacyID: "p2",
			Mode:       model.ModeAuto,
			Legs:       2,
			Summary:    model.TripSummary{LengthKM: 10.0, TimeSecs: 1800, HasToll: true},
		},
		{
			CustomerID: 1,
			PharmacyID: "p1",
			Mode:       model.ModePedestrian,
			Legs:       2,
			Summary:    model.TripSummary{LengthKM: 1.2, TimeSecs: 900},
		},
		{
			CustomerID: 2,
			PharmacyID: "p1",
			Mode:       model.ModeAuto,
			Legs:       2,
			Summary:    model.TripSummary{LengthKM: 5.0, TimeSecs: 900},
		},
	}
}

func TestAggregate_SortsByCustomerID(t *testing.T) {
	rows, _ := Aggregate(sampleTrips())

	require.Len(t, rows, 3)
	assert.Equal(t, int64(1), rows[0].CustomerID)
	assert.Equal(t, int64(2), rows[1].CustomerID)
	assert.Equal(t, int64(3), rows[2].CustomerID)
}

func TestAggregate_ConvertsSecondsToHours(t *testing.T) {
	rows, _ := Aggregate(sampleTrips())

	assert.InDelta(t, 0.25, rows[0].TimeHours, 1e-12)
	assert.InDelta(t, 0.25, rows[1].TimeHours, 1e-12)
	assert.InDelta(t, 0.5, rows[2].TimeHours, 1e-12)
}

func TestAggregate_ModeTotals(t *testing.T) {
	_, totals := Aggregate(sampleTrips())

	require.Len(t, totals, 2)
	assert.InDelta(t, 15.0, totals[model.ModeAuto].LengthKM, 1e-12)
	assert.InDelta(t, 0.75, totals[model.ModeAuto].TimeHours, 1e-12)
	assert.InDelta(t, 1.2, totals[model.ModePedestrian].LengthKM, 1e-12)
	assert.InDelta(t, 0.25, totals[model.ModePedestrian].TimeHours, 1e-12)

	_, bicycle := totals[model.ModeBicycle]
	assert.False(t, bicycle)
}

func TestAggregate_Idempotent(t *testing.T) {
	trips := sampleTrips()

	rows1, totals1 := Aggregate(trips)
	rows2, totals2 := Aggregate(trips)

	assert.Equal(t, rows1, rows2)
	assert.Equal(t, totals1, totals2)
}

func TestAggregate_Empty(t *testing.T) {
	rows, totals := Aggregate(nil)
	assert.Empty(t, rows)
	assert.Empty(t, totals)
}
