package discretize

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/go-sod/sod/internal/dataset"
	"github.com/go-sod/sod/internal/table"
)

func TestNearest(t *testing.T) {
	t.Parallel()
	centers := []float64{0, 10, 20}
	tests := []struct {
		v    float64
		want int
	}{
		{v: -5, want: 0},
		{v: 0, want: 0},
		{v: 4.9, want: 0},
		{v: 5, want: 0},
		{v: 5.1, want: 1},
		{v: 16, want: 2},
		{v: 100, want: 2},
		{v: math.Inf(1), want: 2},
	}
	for _, test := range tests {
		assert.Equal(t, test.want, nearest(centers, test.v), "value %v", test.v)
	}
}

func TestTrain1D(t *testing.T) {
	t.Parallel()
	t.Run("few_distinct_values", func(t *testing.T) {
		assert.Equal(t, []float64{1, 2, 3}, train1D([]float64{3, 1, 2, 2, 1}, 10, 100))
	})
	t.Run("empty", func(t *testing.T) {
		assert.Nil(t, train1D(nil, 10, 100))
	})
	t.Run("two_groups", func(t *testing.T) {
		centers := train1D([]float64{0, 1, 2, 100, 101, 102}, 2, 100)
		assert.Equal(t, []float64{1, 101}, centers)
	})
	t.Run("bounded_and_ascending", func(t *testing.T) {
		g := dataset.NewGenerator(9)
		values := make([]float64, 500)
		for i := range values {
			values[i] = g.Normal(0, 1)
		}
		centers := train1D(values, 10, 100)
		assert.LessOrEqual(t, len(centers), 10)
		assert.Greater(t, len(centers), 1)
		for i := 1; i < len(centers); i++ {
			assert.Less(t, centers[i-1], centers[i])
		}
		assert.Equal(t, centers, train1D(values, 10, 100))
	})
}

func TestKMeans_FitAndTransform(t *testing.T) {
	t.Parallel()
	schema := table.NewSchema([]string{"x", "y"}, []string{"kind"})
	batch := table.New(schema)
	batch.AddRow([]float64{0, 5}, []string{"a"})
	batch.AddRow([]float64{1, 5}, []string{"b"})
	batch.AddRow([]float64{100, 5}, []string{"a"})
	batch.AddRow([]float64{101, math.NaN()}, []string{"a"})

	d := NewKMeans(WithMaxLevels(2))
	_, err := d.Transform(batch.Row(0))
	assert.ErrorIs(t, err, ErrNotFitted)

	out, err := d.FitAndTransform(batch)
	require.NoError(t, err)
	require.Equal(t, 4, out.Len())
	assert.Equal(t, []string{"kind", "x", "y"}, out.Schema().CategoricalColumnNames())
	assert.Equal(t, 0, out.Schema().NumericCount())
	assert.Equal(t, []float64{0.5, 100.5}, d.Centers("x"))
	assert.Equal(t, []float64{5}, d.Centers("y"))
	assert.Nil(t, d.Centers("z"))

	want := [][]string{
		{"a", "0", "0"},
		{"b", "0", "0"},
		{"a", "1", "0"},
		{"a", "1", NaNLevel},
	}
	for i, cells := range want {
		row := out.Row(i)
		for c, name := range []string{"kind", "x", "y"} {
			assert.Equal(t, cells[c], row.Categorical(name), "row %d column %s", i, name)
		}
	}
	v, _ := batch.Row(0).Numeric("x")
	assert.Equal(t, 0.0, v, "input must stay untouched")

	rec, err := d.Transform(table.NewRecord(schema, []float64{90, 7}, []string{"c"}))
	require.NoError(t, err)
	assert.Equal(t, "c", rec.Categorical("kind"))
	assert.Equal(t, "1", rec.Categorical("x"))
	assert.Equal(t, "0", rec.Categorical("y"))

	_, err = d.Transform(table.NewRecord(table.NewSchema([]string{"x"}, nil), []float64{1}, nil))
	assert.ErrorIs(t, err, ErrMissingColumn)
}
