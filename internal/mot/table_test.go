package mot

import (
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pharmalink/pharmalink/internal/model"
)

func TestDefaultTable_Valid(t *testing.T) {
	require.NoError(t, DefaultTable().Validate())
}

func TestDefaultTable_RowsSumToOne(t *testing.T) {
	table := DefaultTable()
	for i, row := range table.Rows {
		var sum float64
		for _, p := range row {
			sum += p
		}
		assert.InDelta(t, 1.0, sum, probTolerance, "bucket %d", i)
	}
}

func TestTable_Bucket(t *testing.T) {
	table := DefaultTable()

	tests := []struct {
		name   string
		length float64
		want   int
	}{
		{"zero", 0, 0},
		{"inside first", 0.3, 0},
		{"boundary falls into bucket starting there", 2.0, 3},
		{"inside interval", 3.7, 3},
		{"lower boundary", 0.5, 1},
		{"large length", 250, 8},
		{"upper area boundary", 100, 8},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := table.Bucket(tt.length)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestTable_BucketNegativeLength(t *testing.T) {
	_, err := DefaultTable().Bucket(-0.1)
	require.Error(t, err)
	assert.True(t, eris.Is(err, ErrOutOfRange))
}

func TestTable_Weights(t *testing.T) {
	table := DefaultTable()

	row, err := table.Weights(1.5)
	require.NoError(t, err)
	assert.InDelta(t, 0.4772727272, row[model.ModeAuto], 1e-9)
	assert.InDelta(t, 0.2159090909, row[model.ModeBicycle], 1e-9)
	assert.InDelta(t, 0.3068181818, row[model.ModePedestrian], 1e-9)
}

func TestTable_ValidateRejectsBadTables(t *testing.T) {
	tests := []struct {
		name  string
		table Table
	}{
		{"too few breaks", Table{Breaks: []float64{0}}},
		{"first break not zero", Table{
			Breaks: []float64{1, math.Inf(1)},
			Rows:   []map[model.Mode]float64{{model.ModeAuto: 1}},
		}},
		{"last break not inf", Table{
			Breaks: []float64{0, 5},
			Rows:   []map[model.Mode]float64{{model.ModeAuto: 1}},
		}},
		{"breaks not ascending", Table{
			Breaks: []float64{0, 5, 5, math.Inf(1)},
			Rows: []map[model.Mode]float64{
				{model.ModeAuto: 1}, {model.ModeAuto: 1}, {model.ModeAuto: 1},
			},
		}},
		{"row count mismatch", Table{
			Breaks: []float64{0, 5, math.Inf(1)},
			Rows:   []map[model.Mode]float64{{model.ModeAuto: 1}},
		}},
		{"negative probability", Table{
			Breaks: []float64{0, math.Inf(1)},
			Rows:   []map[model.Mode]float64{{model.ModeAuto: 1.5, model.ModeBicycle: -0.5}},
		}},
		{"sum not one", Table{
			Breaks: []float64{0, math.Inf(1)},
			Rows:   []map[model.Mode]float64{{model.ModeAuto: 0.5, model.ModeBicycle: 0.4}},
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Error(t, tt.table.Validate())
		})
	}
}

func TestLoadTable(t *testing.T) {
	path := filepath.Join(t.TempDir(), "table.yaml")
	content := `breaks: [0, 2, .inf]
data:
  - auto: 0.25
    bicycle: 0.25
    pedestrian: 0.5
  - auto: 0.9
    bicycle: 0.1
    pedestrian: 0.0
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	table, err := LoadTable(path)
	require.NoError(t, err)
	require.Len(t, table.Rows, 2)
	assert.Equal(t, 0.25, table.Rows[0][model.ModeAuto])
	assert.Equal(t, 0.9, table.Rows[1][model.ModeAuto])
	assert.True(t, math.IsInf(table.Breaks[2], 1))
}

func TestLoadTable_MissingFile(t *testing.T) {
	_, err := LoadTable(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
}

func TestLoadTable_InvalidTable(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	content := `breaks: [0, .inf]
data:
  - auto: 0.2
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	_, err := LoadTable(path)
	require.Error(t, err)
}
