// Package trips drives the concurrent trip-estimation pipeline: per-customer
// route fetches for every costing model, mode inference over the results, and
// batch orchestration.
package trips

import (
	"context"
	"fmt"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"

	"github.com/pharmalink/pharmalink/internal/model"
	"github.com/pharmalink/pharmalink/pkg/valhalla"
)

// ErrNoViableMode is returned when no costing model yields a route for a
// customer. The customer is recorded as failed; the batch continues.
var ErrNoViableMode = eris.New("trips: no mode returned a viable route")

// CustomerTrips holds the per-mode results for one customer.
type CustomerTrips struct {
	CustomerID   int64
	PharmacyID   string
	Locations    [3]model.Location
	ByMode       map[model.Mode]*valhalla.Trip
	MeanLengthKM float64
}

// Available lists the modes that returned trip data, in the stable mode order.
func (ct *CustomerTrips) Available() []model.Mode {
	modes := make([]model.Mode, 0, len(ct.ByMode))
	for _, mode := range model.AllModes() {
		if _, ok := ct.ByMode[mode]; ok {
			modes = append(modes, mode)
		}
	}
	return modes
}

// Fetcher issues routing requests for customers. All requests across the
// whole batch share one weighted semaphore sized to the engine connection
// pool, which provides backpressure instead of unbounded in-flight calls.
type Fetcher struct {
	client valhalla.Client
	sem    *semaphore.Weighted
	modes  []model.Mode
}

// NewFetcher creates a fetcher bounded to maxInFlight simultaneous requests.
// Route failures are not retried; a failed mode is dropped for that customer.
func NewFetcher(client valhalla.Client, maxInFlight int64) *Fetcher {
	if maxInFlight <= 0 {
		maxInFlight = 100
	}
	return &Fetcher{
		client: client,
		sem:    semaphore.NewWeighted(maxInFlight),
		modes:  model.AllModes(),
	}
}

// modeResult pairs one mode's response with the mode that produced it, so
// results can be consumed in completion order.
type modeResult struct {
	mode model.Mode
	resp *valhalla.RouteResponse
	err  error
}

// fetchTrip issues a single routing request for one costing model.
func (f *Fetcher) fetchTrip(ctx context.Context, customerID int64, locations [3]model.Location, mode model.Mode) modeResult {
	if err := f.sem.Acquire(ctx, 1); err != nil {
		return modeResult{mode: mode, err: eris.Wrap(err, "trips: acquire request slot")}
	}
	defer f.sem.Release(1)

	resp, err := f.client.Route(ctx, valhalla.RouteRequest{
		ID:        fmt.Sprintf("%d-%s", customerID, mode),
		Locations: locations[:],
		Costing:   mode,
	})
	return modeResult{mode: mode, resp: resp, err: err}
}

// ProcessCustomer fetches a round trip (customer, pharmacy, customer) for
// every costing model concurrently and consumes the responses as they
// complete. Modes whose response carries no trip are dropped; if no mode
// returns trip data the customer fails with ErrNoViableMode.
func (f *Fetcher) ProcessCustomer(ctx context.Context, customer model.Customer, pharmacy model.Pharmacy) (*CustomerTrips, error) {
	locations := [3]model.Location{customer.Location, pharmacy.Location, customer.Location}

	results := make(chan modeResult, len(f.modes))
	for _, mode := range f.modes {
		go func() {
			results <- f.fetchTrip(ctx, customer.ID, locations, mode)
		}()
	}

	byMode := make(map[model.Mode]*valhalla.Trip, len(f.modes))
	for range f.modes {
		res := <-results
		switch {
		case res.err != nil:
			if ctx.Err() != nil {
				return nil, eris.Wrap(ctx.Err(), "trips: process customer")
			}
			zap.L().Warn("trips: route request failed, dropping mode",
				zap.Int64("customer", customer.ID),
				zap.String("mode", string(res.mode)),
				zap.Error(res.err),
			)
		case !res.resp.Found():
			zap.L().Debug("trips: no route for mode",
				zap.Int64("customer", customer.ID),
				zap.String("mode", string(res.mode)),
			)
		default:
			byMode[res.mode] = res.resp.Trip
		}
	}

	if len(byMode) == 0 {
		return nil, eris.Wrapf(ErrNoViableMode, "customer %d", customer.ID)
	}

	var sum float64
	for _, trip := range byMode {
		sum += trip.Summary.LengthKM
	}

	return &CustomerTrips{
		CustomerID:   customer.ID,
		PharmacyID:   pharmacy.ID,
		Locations:    locations,
		ByMode:       byMode,
		MeanLengthKM: sum / float64(len(byMode)),
	}, nil
}
