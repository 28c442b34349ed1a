package mot

import (
	"math"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pharmalink/pharmalink/internal/model"
)

func newTestEngine(t *testing.T, seed int64) *Engine {
	t.Helper()
	e, err := NewEngine(DefaultTable(), seed)
	require.NoError(t, err)
	return e
}

func TestNewEngine_RejectsInvalidTable(t *testing.T) {
	_, err := NewEngine(Table{Breaks: []float64{0}}, 1)
	require.Error(t, err)
}

func TestEngine_InferNoModesAvailable(t *testing.T) {
	e := newTestEngine(t, 1)

	_, err := e.Infer(3.0, nil)
	require.Error(t, err)
}

func TestEngine_InferNegativeLength(t *testing.T) {
	e := newTestEngine(t, 1)

	_, err := e.Infer(-1, model.AllModes())
	require.Error(t, err)
}

func TestEngine_InferSingleAvailableMode(t *testing.T) {
	e := newTestEngine(t, 1)

	for range 20 {
		mode, err := e.Infer(3.0, []model.Mode{model.ModeBicycle})
		require.NoError(t, err)
		assert.Equal(t, model.ModeBicycle, mode)
	}
}

func TestEngine_InferNeverPicksUnavailableMode(t *testing.T) {
	e := newTestEngine(t, 2)
	available := []model.Mode{model.ModeBicycle, model.ModePedestrian}

	for range 500 {
		mode, err := e.Infer(3.0, available)
		require.NoError(t, err)
		assert.NotEqual(t, model.ModeAuto, mode)
	}
}

func TestEngine_InferObservedSharesMatchTable(t *testing.T) {
	e := newTestEngine(t, 3)

	// Bucket [1, 2): auto 0.477, bicycle 0.216, pedestrian 0.307.
	const draws = 20000
	counts := map[model.Mode]int{}
	for range draws {
		mode, err := e.Infer(1.5, model.AllModes())
		require.NoError(t, err)
		counts[mode]++
	}

	row := DefaultTable().Rows[2]
	for _, mode := range model.AllModes() {
		share := float64(counts[mode]) / draws
		assert.InDelta(t, row[mode], share, 0.02, "mode %s", mode)
	}
}

func TestEngine_InferRenormalizesOverAvailable(t *testing.T) {
	e := newTestEngine(t, 4)
	available := []model.Mode{model.ModeBicycle, model.ModePedestrian}

	const draws = 20000
	counts := map[model.Mode]int{}
	for range draws {
		mode, err := e.Infer(1.5, available)
		require.NoError(t, err)
		counts[mode]++
	}

	row := DefaultTable().Rows[2]
	mass := row[model.ModeBicycle] + row[model.ModePedestrian]
	assert.InDelta(t, row[model.ModeBicycle]/mass, float64(counts[model.ModeBicycle])/draws, 0.02)
	assert.InDelta(t, row[model.ModePedestrian]/mass, float64(counts[model.ModePedestrian])/draws, 0.02)
}

func TestEngine_InferZeroMassFallsBackToUniform(t *testing.T) {
	// Above 100 km every trip is by car, so bicycle and pedestrian carry no
	// probability mass there.
	e := newTestEngine(t, 5)
	available := []model.Mode{model.ModeBicycle, model.ModePedestrian}

	const draws = 10000
	counts := map[model.Mode]int{}
	for range draws {
		mode, err := e.Infer(150, available)
		require.NoError(t, err)
		counts[mode]++
	}

	assert.InDelta(t, 0.5, float64(counts[model.ModeBicycle])/draws, 0.03)
	assert.InDelta(t, 0.5, float64(counts[model.ModePedestrian])/draws, 0.03)
}

func TestEngine_InferNeverPicksZeroWeightMode(t *testing.T) {
	// Bucket [50, 100) assigns pedestrian exactly zero.
	e := newTestEngine(t, 6)

	for range 2000 {
		mode, err := e.Infer(75, model.AllModes())
		require.NoError(t, err)
		assert.NotEqual(t, model.ModePedestrian, mode)
	}
}

func TestEngine_SeededDrawsAreReproducible(t *testing.T) {
	first := newTestEngine(t, 42)
	second := newTestEngine(t, 42)

	for range 100 {
		m1, err := first.Infer(3.0, model.AllModes())
		require.NoError(t, err)
		m2, err := second.Infer(3.0, model.AllModes())
		require.NoError(t, err)
		assert.Equal(t, m1, m2)
	}
}

func TestEngine_ConcurrentInfer(t *testing.T) {
	e := newTestEngine(t, 7)

	var wg sync.WaitGroup
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range 500 {
				length := math.Mod(float64(i)*0.37, 30)
				_, err := e.Infer(length, model.AllModes())
				assert.NoError(t, err)
			}
		}()
	}
	wg.Wait()
}
