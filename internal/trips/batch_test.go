package trips

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pharmalink/pharmalink/internal/model"
	"github.com/pharmalink/pharmalink/internal/mot"
)

func newTestBatch(t *testing.T, engine *fakeEngine) *Batch {
	t.Helper()
	inference, err := mot.NewEngine(mot.DefaultTable(), 42)
	require.NoError(t, err)
	return NewBatch(NewFetcher(engine, 10), inference, 4)
}

func batchCustomers(n int) []model.Customer {
	customers := make([]model.Customer, n)
	for i := range customers {
		customers[i] = model.Customer{
			ID:         int64(i + 1),
			Location:   model.Location{Lat: 50.0 + float64(i)*0.01, Lon: 8.0},
			PharmacyID: "p1",
		}
	}
	return customers
}

func TestBatch_RunAllSucceed(t *testing.T) {
	engine := &fakeEngine{lengths: map[model.Mode]float64{
		model.ModeAuto:       4.0,
		model.ModeBicycle:    3.0,
		model.ModePedestrian: 2.0,
	}}
	b := newTestBatch(t, engine)

	result, err := b.Run(context.Background(), batchCustomers(5), []model.Pharmacy{testPharmacy})
	require.NoError(t, err)

	assert.Equal(t, 5, result.Succeeded())
	assert.Zero(t, result.Failed())

	// Output is sorted by customer id regardless of completion order.
	for i, trip := range result.Trips {
		assert.Equal(t, int64(i+1), trip.CustomerID)
		assert.Equal(t, "p1", trip.PharmacyID)
		assert.Equal(t, 2, trip.Legs)
		assert.Contains(t, model.AllModes(), trip.Mode)
	}
}

func TestBatch_RunChosenSummaryMatchesMode(t *testing.T) {
	// Only one viable mode, so the chosen trip is fully determined.
	engine := &fakeEngine{lengths: map[model.Mode]float64{model.ModeBicycle: 3.5}}
	b := newTestBatch(t, engine)

	result, err := b.Run(context.Background(), batchCustomers(1), []model.Pharmacy{testPharmacy})
	require.NoError(t, err)

	require.Len(t, result.Trips, 1)
	trip := result.Trips[0]
	assert.Equal(t, model.ModeBicycle, trip.Mode)
	assert.InDelta(t, 3.5, trip.Summary.LengthKM, 1e-12)
	assert.InDelta(t, 350, trip.Summary.TimeSecs, 1e-9)
}

func TestBatch_RunIsolatesNoViableMode(t *testing.T) {
	// No mode ever finds a route, so every customer fails but the batch
	// still completes.
	engine := &fakeEngine{lengths: map[model.Mode]float64{}}
	b := newTestBatch(t, engine)

	result, err := b.Run(context.Background(), batchCustomers(3), []model.Pharmacy{testPharmacy})
	require.NoError(t, err)

	assert.Zero(t, result.Succeeded())
	assert.Equal(t, []int64{1, 2, 3}, result.FailedIDs)
}

func TestBatch_RunMissingAssignmentFailsCustomer(t *testing.T) {
	engine := &fakeEngine{lengths: map[model.Mode]float64{model.ModeAuto: 1.0}}
	b := newTestBatch(t, engine)

	customers := batchCustomers(2)
	customers[1].PharmacyID = "unknown"

	result, err := b.Run(context.Background(), customers, []model.Pharmacy{testPharmacy})
	require.NoError(t, err)

	assert.Equal(t, 1, result.Succeeded())
	assert.Equal(t, []int64{2}, result.FailedIDs)
}

func TestBatch_RunCancelledContext(t *testing.T) {
	engine := &fakeEngine{lengths: map[model.Mode]float64{model.ModeAuto: 1.0}}
	b := newTestBatch(t, engine)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := b.Run(ctx, batchCustomers(3), []model.Pharmacy{testPharmacy})
	require.Error(t, err)
}

func TestBatch_RunEmptyCustomerSet(t *testing.T) {
	engine := &fakeEngine{lengths: map[model.Mode]float64{model.ModeAuto: 1.0}}
	b := newTestBatch(t, engine)

	result, err := b.Run(context.Background(), nil, []model.Pharmacy{testPharmacy})
	require.NoError(t, err)
	assert.Zero(t, result.Succeeded())
	assert.Zero(t, result.Failed())
}
