package mot

import (
	"math/rand"
	"sync"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/pharmalink/pharmalink/internal/model"
)

// Engine draws a mode of transport for a trip length from a probability
// table. It is safe for concurrent use.
type Engine struct {
	table Table

	mu  sync.Mutex
	rng *rand.Rand
}

// NewEngine creates an inference engine over the given table. A non-zero
// seed makes draws reproducible.
func NewEngine(table Table, seed int64) (*Engine, error) {
	if err := table.Validate(); err != nil {
		return nil, err
	}
	src := rand.NewSource(seed)
	if seed == 0 {
		src = rand.NewSource(rand.Int63())
	}
	return &Engine{table: table, rng: rand.New(src)}, nil
}

// Table returns the engine's probability table.
func (e *Engine) Table() Table {
	return e.table
}

// Infer picks a mode for the given average trip length among the modes that
// actually returned trip data. The bucket's probability row is restricted to
// the available modes and renormalized before the draw. When none of the
// available modes carries probability mass in the bucket, the choice falls
// back to uniform among the available modes.
func (e *Engine) Infer(avgLength float64, available []model.Mode) (model.Mode, error) {
	if len(available) == 0 {
		return "", eris.New("mot: no modes available for inference")
	}

	row, err := e.table.Weights(avgLength)
	if err != nil {
		return "", err
	}

	weights := make([]float64, len(available))
	var total float64
	for i, mode := range available {
		weights[i] = row[mode]
		total += row[mode]
	}

	if total == 0 {
		zap.L().Debug("mot: no probability mass among available modes, choosing uniformly",
			zap.Float64("avg_length", avgLength),
			zap.Int("available", len(available)),
		)
		return available[e.intn(len(available))], nil
	}

	r := e.float64() * total
	for i, w := range weights {
		r -= w
		if r <= 0 && w > 0 {
			return available[i], nil
		}
	}
	// Floating-point underrun: return the last mode with nonzero weight.
	for i := len(weights) - 1; i >= 0; i-- {
		if weights[i] > 0 {
			return available[i], nil
		}
	}
	return available[len(available)-1], nil
}

func (e *Engine) float64() float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.rng.Float64()
}

func (e *Engine) intn(n int) int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.rng.Intn(n)
}
