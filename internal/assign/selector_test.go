package assign

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pharmalink/pharmalink/internal/model"
)

func testPharmacies() []model.Pharmacy {
	return []model.Pharmacy{
		{ID: "near", Location: model.Location{Lat: 50.0, Lon: 8.001}},
		{ID: "mid", Location: model.Location{Lat: 50.0, Lon: 8.01}},
		{ID: "far", Location: model.Location{Lat: 50.0, Lon: 8.1}},
		{ID: "farther", Location: model.Location{Lat: 50.0, Lon: 8.5}},
		{ID: "farthest", Location: model.Location{Lat: 51.0, Lon: 9.0}},
	}
}

func TestSelector_CandidatesOrderedByDistance(t *testing.T) {
	s := NewSelector(3, 1)
	customer := model.Customer{ID: 1, Location: model.Location{Lat: 50.0, Lon: 8.0}}

	candidates := s.Candidates(customer, testPharmacies())
	require.Len(t, candidates, 3)
	assert.Equal(t, "near", candidates[0].Pharmacy.ID)
	assert.Equal(t, "mid", candidates[1].Pharmacy.ID)
	assert.Equal(t, "far", candidates[2].Pharmacy.ID)

	for i := 1; i < len(candidates); i++ {
		assert.LessOrEqual(t, candidates[i-1].Distance, candidates[i].Distance)
	}
}

func TestSelector_CandidatesFewerPharmaciesThanK(t *testing.T) {
	s := NewSelector(5, 1)
	customer := model.Customer{ID: 1, Location: model.Location{Lat: 50.0, Lon: 8.0}}
	pharmacies := testPharmacies()[:2]

	candidates := s.Candidates(customer, pharmacies)
	assert.Len(t, candidates, 2)
}

func TestSelector_CandidatesTieKeepsInputOrder(t *testing.T) {
	s := NewSelector(2, 1)
	customer := model.Customer{ID: 1, Location: model.Location{Lat: 50.0, Lon: 8.0}}
	pharmacies := []model.Pharmacy{
		{ID: "a", Location: model.Location{Lat: 50.0, Lon: 8.01}},
		{ID: "b", Location: model.Location{Lat: 50.0, Lon: 8.01}},
	}

	candidates := s.Candidates(customer, pharmacies)
	require.Len(t, candidates, 2)
	assert.Equal(t, "a", candidates[0].Pharmacy.ID)
	assert.Equal(t, "b", candidates[1].Pharmacy.ID)
}

func TestSelector_AssignPicksFromNearestK(t *testing.T) {
	s := NewSelector(3, 42)
	pharmacies := testPharmacies()

	customers := make([]model.Customer, 200)
	for i := range customers {
		customers[i] = model.Customer{ID: int64(i), Location: model.Location{Lat: 50.0, Lon: 8.0}}
	}

	require.NoError(t, s.Assign(customers, pharmacies))

	counts := map[string]int{}
	for _, c := range customers {
		require.NotEmpty(t, c.PharmacyID)
		counts[c.PharmacyID]++
	}

	// Only the three nearest pharmacies are ever chosen.
	assert.Zero(t, counts["farther"])
	assert.Zero(t, counts["farthest"])

	// Closer pharmacies win more often under inverse-distance weighting.
	assert.Greater(t, counts["near"], counts["mid"])
	assert.Greater(t, counts["mid"], counts["far"])
}

func TestSelector_AssignZeroDistanceWinsOutright(t *testing.T) {
	s := NewSelector(3, 7)
	loc := model.Location{Lat: 50.0, Lon: 8.0}
	pharmacies := []model.Pharmacy{
		{ID: "elsewhere", Location: model.Location{Lat: 50.0, Lon: 8.01}},
		{ID: "colocated", Location: loc},
	}

	for range 50 {
		customers := []model.Customer{{ID: 1, Location: loc}}
		require.NoError(t, s.Assign(customers, pharmacies))
		assert.Equal(t, "colocated", customers[0].PharmacyID)
	}
}

func TestSelector_AssignNoPharmacies(t *testing.T) {
	s := NewSelector(3, 1)
	customers := []model.Customer{{ID: 1}}

	err := s.Assign(customers, nil)
	require.Error(t, err)
}

func TestSelector_SeededAssignmentIsReproducible(t *testing.T) {
	pharmacies := testPharmacies()
	build := func() []model.Customer {
		customers := make([]model.Customer, 50)
		for i := range customers {
			customers[i] = model.Customer{ID: int64(i), Location: model.Location{Lat: 50.0, Lon: 8.0}}
		}
		return customers
	}

	first := build()
	require.NoError(t, NewSelector(3, 99).Assign(first, pharmacies))
	second := build()
	require.NoError(t, NewSelector(3, 99).Assign(second, pharmacies))

	assert.Equal(t, first, second)
}
