// Package assign maps each customer to a pharmacy using distance-weighted
// random choice among its nearest candidates.
package assign

import (
	"math/rand"
	"sort"

	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/xy"

	"github.com/pharmalink/pharmalink/internal/model"
)

// Candidate is one pharmacy considered for a customer, with its planar
// distance to the customer location.
type Candidate struct {
	Pharmacy model.Pharmacy
	Distance float64
}

// Selector assigns customers to pharmacies.
type Selector struct {
	k   int
	rng *rand.Rand
}

// NewSelector creates a selector choosing among the k nearest pharmacies.
// A non-zero seed makes assignment reproducible.
func NewSelector(k int, seed int64) *Selector {
	if k <= 0 {
		k = 3
	}
	src := rand.NewSource(seed)
	if seed == 0 {
		src = rand.NewSource(rand.Int63())
	}
	return &Selector{k: k, rng: rand.New(src)}
}

// Candidates returns the k nearest pharmacies to the customer, closest first.
// Ties keep the input order of the pharmacy slice.
func (s *Selector) Candidates(customer model.Customer, pharmacies []model.Pharmacy) []Candidate {
	candidates := make([]Candidate, 0, len(pharmacies))
	origin := coord(customer.Location)
	for _, p := range pharmacies {
		candidates = append(candidates, Candidate{
			Pharmacy: p,
			Distance: xy.Distance(origin, coord(p.Location)),
		})
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].Distance < candidates[j].Distance
	})

	if len(candidates) > s.k {
		candidates = candidates[:s.k]
	}
	return candidates
}

// Assign sets the pharmacy for every customer in place. Each customer draws
// one of its k nearest pharmacies with probability proportional to the
// inverse of the distance, so closer pharmacies are favored but the choice
// stays probabilistic.
func (s *Selector) Assign(customers []model.Customer, pharmacies []model.Pharmacy) error {
	if len(pharmacies) == 0 {
		return eris.New("assign: no pharmacies to assign")
	}

	for i := range customers {
		candidates := s.Candidates(customers[i], pharmacies)
		customers[i].PharmacyID = s.draw(candidates).ID
	}
	return nil
}

// draw picks one candidate with inverse-distance weights. A candidate at
// distance zero would have an undefined weight, so it wins outright.
func (s *Selector) draw(candidates []Candidate) model.Pharmacy {
	if len(candidates) == 1 {
		return candidates[0].Pharmacy
	}

	var total float64
	for _, c := range candidates {
		if c.Distance == 0 {
			return c.Pharmacy
		}
		total += 1 / c.Distance
	}

	r := s.rng.Float64() * total
	for _, c := range candidates {
		r -= 1 / c.Distance
		if r <= 0 {
			return c.Pharmacy
		}
	}
	// Floating-point underrun: fall back to the last candidate.
	return candidates[len(candidates)-1].Pharmacy
}

func coord(l model.Location) geom.Coord {
	return geom.Coord{l.Lon, l.Lat}
}
