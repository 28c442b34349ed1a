package trips

import (
	"context"
	"sort"
	"sync"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/pharmalink/pharmalink/internal/model"
	"github.com/pharmalink/pharmalink/internal/mot"
)

// BatchResult collects the outcome of one batch run.
type BatchResult struct {
	Trips     []model.ChosenTrip
	FailedIDs []int64
}

// Succeeded returns the number of customers with a chosen trip.
func (r *BatchResult) Succeeded() int { return len(r.Trips) }

// Failed returns the number of customers without a viable trip.
func (r *BatchResult) Failed() int { return len(r.FailedIDs) }

// Batch runs the trip pipeline for a whole customer set.
type Batch struct {
	fetcher     *Fetcher
	inference   *mot.Engine
	concurrency int
}

// NewBatch creates a batch runner. Concurrency bounds the number of customers
// processed at once; the fetcher's semaphore additionally bounds in-flight
// engine requests across all of them.
func NewBatch(fetcher *Fetcher, inference *mot.Engine, concurrency int) *Batch {
	if concurrency <= 0 {
		concurrency = 100
	}
	return &Batch{fetcher: fetcher, inference: inference, concurrency: concurrency}
}

// Run processes every customer concurrently: fetch trips for all modes, infer
// the chosen mode from the mean trip length, and keep that mode's trip.
// Per-customer failures are isolated; only engine-level failures (context
// cancellation) abort the batch.
func (b *Batch) Run(ctx context.Context, customers []model.Customer, pharmacies []model.Pharmacy) (*BatchResult, error) {
	byID := make(map[string]model.Pharmacy, len(pharmacies))
	for _, p := range pharmacies {
		byID[p.ID] = p
	}

	zap.L().Info("trips: processing batch",
		zap.Int("customers", len(customers)),
		zap.Int("concurrency", b.concurrency),
	)

	var mu sync.Mutex
	result := &BatchResult{}

	fail := func(id int64) {
		mu.Lock()
		result.FailedIDs = append(result.FailedIDs, id)
		mu.Unlock()
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(b.concurrency)

	for _, customer := range customers {
		g.Go(func() error {
			trip, err := b.processOne(gctx, customer, byID)
			if err != nil {
				if gctx.Err() != nil {
					return err // engine gone or run cancelled, abort the batch
				}
				zap.L().Warn("trips: customer failed",
					zap.Int64("customer", customer.ID),
					zap.Error(err),
				)
				fail(customer.ID)
				return nil
			}

			mu.Lock()
			result.Trips = append(result.Trips, *trip)
			mu.Unlock()
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, eris.Wrap(err, "trips: batch run")
	}

	// Mode requests finish in arbitrary order; restore a stable order here.
	sort.Slice(result.Trips, func(i, j int) bool {
		return result.Trips[i].CustomerID < result.Trips[j].CustomerID
	})
	sort.Slice(result.FailedIDs, func(i, j int) bool {
		return result.FailedIDs[i] < result.FailedIDs[j]
	})

	zap.L().Info("trips: batch complete",
		zap.Int("succeeded", result.Succeeded()),
		zap.Int("failed", result.Failed()),
	)
	return result, nil
}

// processOne runs the fetch and inference steps for a single customer.
func (b *Batch) processOne(ctx context.Context, customer model.Customer, pharmacies map[string]model.Pharmacy) (*model.ChosenTrip, error) {
	pharmacy, ok := pharmacies[customer.PharmacyID]
	if !ok {
		return nil, eris.Errorf("trips: customer %d has no assigned pharmacy", customer.ID)
	}

	ct, err := b.fetcher.ProcessCustomer(ctx, customer, pharmacy)
	if err != nil {
		return nil, err
	}

	mode, err := b.inference.Infer(ct.MeanLengthKM, ct.Available())
	if err != nil {
		return nil, err
	}

	trip := ct.ByMode[mode]
	return &model.ChosenTrip{
		CustomerID: customer.ID,
		PharmacyID: pharmacy.ID,
		Locations:  ct.Locations,
		Mode:       mode,
		Legs:       len(trip.Legs),
		Summary:    trip.Summary,
	}, nil
}
