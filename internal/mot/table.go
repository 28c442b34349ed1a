// Package mot infers the real-world mode of transport for a trip from its
// length, using empirical mode-choice probabilities.
package mot

import (
	"math"
	"os"
	"sort"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"

	"github.com/pharmalink/pharmalink/internal/model"
)

// ErrOutOfRange is returned for a negative trip length reaching inference.
var ErrOutOfRange = eris.New("mot: trip length out of range")

// probTolerance is the floating-point tolerance when validating that a
// bucket's probabilities sum to 1.
const probTolerance = 1e-9

// Table maps left-closed distance intervals to mode-choice probabilities.
// Breaks are ascending with Breaks[0] == 0 and the final break +Inf, so every
// non-negative length falls into exactly one bucket. Rows[i] holds the
// probabilities for the interval [Breaks[i], Breaks[i+1]) and sums to 1.
type Table struct {
	Breaks []float64                `yaml:"breaks"`
	Rows   []map[model.Mode]float64 `yaml:"data"`
}

// DefaultTable returns the table derived from the "Mobilität in Tabellen"
// (MiT 2017) household travel survey.
func DefaultTable() Table {
	return Table{
		Breaks: []float64{0, 0.5, 1, 2, 5, 10, 20, 50, 100, math.Inf(1)},
		Rows: []map[model.Mode]float64{
			{model.ModeAuto: 0.12371134020618557, model.ModeBicycle: 0.09278350515463918, model.ModePedestrian: 0.7835051546391752},
			{model.ModeAuto: 0.3010752688172043, model.ModeBicycle: 0.1827956989247312, model.ModePedestrian: 0.5161290322580645},
			{model.ModeAuto: 0.47727272727272724, model.ModeBicycle: 0.2159090909090909, model.ModePedestrian: 0.3068181818181818},
			{model.ModeAuto: 0.6790123456790124, model.ModeBicycle: 0.16049382716049382, model.ModePedestrian: 0.16049382716049382},
			{model.ModeAuto: 0.8552631578947368, model.ModeBicycle: 0.09210526315789475, model.ModePedestrian: 0.05263157894736842},
			{model.ModeAuto: 0.948051948051948, model.ModeBicycle: 0.03896103896103895, model.ModePedestrian: 0.012987012987012984},
			{model.ModeAuto: 0.961038961038961, model.ModeBicycle: 0.025974025974025972, model.ModePedestrian: 0.012987012987012986},
			{model.ModeAuto: 0.9726027397260274, model.ModeBicycle: 0.027397260273972605, model.ModePedestrian: 0.0},
			{model.ModeAuto: 1.0, model.ModeBicycle: 0.0, model.ModePedestrian: 0.0},
		},
	}
}

// LoadTable reads a probability table from a YAML file and validates it.
func LoadTable(path string) (Table, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Table{}, eris.Wrapf(err, "mot: read table %s", path)
	}

	var t Table
	if err := yaml.Unmarshal(data, &t); err != nil {
		return Table{}, eris.Wrap(err, "mot: parse table")
	}
	if err := t.Validate(); err != nil {
		return Table{}, err
	}
	return t, nil
}

// Validate checks the table invariants: ascending breaks starting at 0 and
// ending at +Inf, one row per interval, and rows summing to 1.
func (t Table) Validate() error {
	if len(t.Breaks) < 2 {
		return eris.New("mot: table needs at least two breaks")
	}
	if t.Breaks[0] != 0 {
		return eris.New("mot: first break must be 0")
	}
	if !math.IsInf(t.Breaks[len(t.Breaks)-1], 1) {
		return eris.New("mot: last break must be +Inf")
	}
	for i := 1; i < len(t.Breaks); i++ {
		if t.Breaks[i] <= t.Breaks[i-1] {
			return eris.Errorf("mot: breaks not ascending at index %d", i)
		}
	}
	if len(t.Rows) != len(t.Breaks)-1 {
		return eris.Errorf("mot: %d rows for %d intervals", len(t.Rows), len(t.Breaks)-1)
	}
	for i, row := range t.Rows {
		var sum float64
		for mode, p := range row {
			if p < 0 {
				return eris.Errorf("mot: negative probability for %s in bucket %d", mode, i)
			}
			sum += p
		}
		if math.Abs(sum-1) > probTolerance {
			return eris.Errorf("mot: bucket %d probabilities sum to %g", i, sum)
		}
	}
	return nil
}

// Bucket returns the index of the left-closed interval containing length.
// Lengths exactly on a boundary fall into the bucket starting there.
func (t Table) Bucket(length float64) (int, error) {
	if length < 0 {
		return 0, eris.Wrapf(ErrOutOfRange, "length %g", length)
	}
	// First break greater than length; the bucket is the interval before it.
	idx := sort.SearchFloat64s(t.Breaks, length)
	if idx < len(t.Breaks) && t.Breaks[idx] == length {
		return idx, nil
	}
	return idx - 1, nil
}

// Weights returns the probability row for the bucket containing length.
func (t Table) Weights(length float64) (map[model.Mode]float64, error) {
	idx, err := t.Bucket(length)
	if err != nil {
		return nil, err
	}
	return t.Rows[idx], nil
}
