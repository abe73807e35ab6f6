// Package discretize converts numeric attributes into categorical levels so
// that categorical detectors can consume mixed tables.
package discretize

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"strconv"

	"gonum.org/v1/gonum/stat"

	"github.com/go-sod/sod/internal/table"
)

var (
	ErrNotFitted     = errors.New("discretizer is not fitted")
	ErrMissingColumn = errors.New("record is missing a fitted numeric column")
)

// NaNLevel is the level assigned to NaN cells.
const NaNLevel = "NaN"

// Discretizer maps numeric cells to categorical levels.
type Discretizer interface {
	// FitAndTransform learns the levels of every numeric column of batch and
	// returns a purely categorical copy of it.
	FitAndTransform(batch *table.Table) (*table.Table, error)
	// Transform maps a single record with the learned levels.
	Transform(rec *table.Record) (*table.Record, error)
}

var _ Discretizer = (*KMeans)(nil)

type Option func(*KMeans)

// WithMaxLevels bounds the number of levels per column.
func WithMaxLevels(n int) Option {
	return func(k *KMeans) {
		k.maxLevels = n
	}
}

func WithMaxIterations(n int) Option {
	return func(k *KMeans) {
		k.maxIter = n
	}
}

// KMeans buckets every numeric column independently with one dimensional
// Lloyd iterations. Level i is the i-th smallest center of the column.
type KMeans struct {
	maxLevels int
	maxIter   int

	numeric     []string
	categorical []string
	centers     [][]float64
	schema      *table.Schema
}

func NewKMeans(opts ...Option) *KMeans {
	k := &KMeans{maxLevels: 10, maxIter: 100}
	for _, f := range opts {
		f(k)
	}
	if k.maxLevels < 1 {
		k.maxLevels = 1
	}
	if k.maxIter < 1 {
		k.maxIter = 1
	}
	return k
}

// Centers returns a copy of the learned centers of a numeric column.
func (k *KMeans) Centers(column string) []float64 {
	for i, name := range k.numeric {
		if name == column {
			return append([]float64(nil), k.centers[i]...)
		}
	}
	return nil
}

// Schema is the output schema: the input categorical columns followed by the
// discretized numeric columns.
func (k *KMeans) Schema() *table.Schema { return k.schema }

func (k *KMeans) FitAndTransform(batch *table.Table) (*table.Table, error) {
	if batch == nil {
		return nil, fmt.Errorf("unable discretize: nil batch")
	}
	in := batch.Schema()
	k.numeric = in.NumericColumnNames()
	k.categorical = in.CategoricalColumnNames()
	k.centers = make([][]float64, len(k.numeric))

	values := make([]float64, 0, batch.Len())
	for c := range k.numeric {
		values = values[:0]
		for i := 0; i < batch.Len(); i++ {
			if v := batch.Row(i).Values()[c]; !math.IsNaN(v) {
				values = append(values, v)
			}
		}
		k.centers[c] = train1D(values, k.maxLevels, k.maxIter)
	}
	k.schema = table.NewSchema(nil, append(append([]string(nil), k.categorical...), k.numeric...))

	out := table.New(k.schema)
	for i := 0; i < batch.Len(); i++ {
		cells, err := k.levels(batch.Row(i))
		if err != nil {
			return nil, fmt.Errorf("unable discretize row %d: %w", i, err)
		}
		out.AddRow(nil, cells)
	}
	return out, nil
}

func (k *KMeans) Transform(rec *table.Record) (*table.Record, error) {
	if k.schema == nil {
		return nil, ErrNotFitted
	}
	cells, err := k.levels(rec)
	if err != nil {
		return nil, err
	}
	return table.NewRecord(k.schema, nil, cells), nil
}

func (k *KMeans) levels(rec *table.Record) ([]string, error) {
	cells := make([]string, 0, len(k.categorical)+len(k.numeric))
	for _, name := range k.categorical {
		cells = append(cells, rec.Categorical(name))
	}
	for c, name := range k.numeric {
		v, ok := rec.Numeric(name)
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrMissingColumn, name)
		}
		cells = append(cells, level(k.centers[c], v))
	}
	return cells, nil
}

func level(centers []float64, v float64) string {
	if math.IsNaN(v) || len(centers) == 0 {
		return NaNLevel
	}
	return strconv.Itoa(nearest(centers, v))
}

// nearest returns the position of the center closest to v in the ascending
// centers. Ties go to the lower center.
func nearest(centers []float64, v float64) int {
	i := sort.SearchFloat64s(centers, v)
	if i == len(centers) {
		return i - 1
	}
	if i > 0 && v-centers[i-1] <= centers[i]-v {
		return i - 1
	}
	return i
}

// train1D returns at most k ascending, distinct centers for values. Centers
// start at evenly spaced quantiles, so the result is deterministic.
func train1D(values []float64, k, maxIter int) []float64 {
	if len(values) == 0 {
		return nil
	}
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)

	distinct := unique(append([]float64(nil), sorted...))
	if len(distinct) <= k {
		return distinct
	}

	centers := make([]float64, k)
	for c := range centers {
		centers[c] = stat.Quantile(float64(2*c+1)/float64(2*k), stat.Empirical, sorted, nil)
	}
	centers = unique(centers)

	assignments := make([]int, len(sorted))
	for i := range assignments {
		assignments[i] = -1
	}
	sums := make([]float64, len(centers))
	counts := make([]int, len(centers))
	for iter := 0; iter < maxIter; iter++ {
		changed := false
		for i, v := range sorted {
			if c := nearest(centers, v); assignments[i] != c {
				assignments[i] = c
				changed = true
			}
		}
		if !changed {
			break
		}

		for c := range sums {
			sums[c], counts[c] = 0, 0
		}
		for i, v := range sorted {
			sums[assignments[i]] += v
			counts[assignments[i]]++
		}
		for c := range centers {
			if counts[c] > 0 {
				centers[c] = sums[c] / float64(counts[c])
			}
		}
		// means of ordered, contiguous groups stay ordered
		sort.Float64s(centers)
	}
	return unique(centers)
}

// unique removes adjacent duplicates of an ascending slice in place.
func unique(values []float64) []float64 {
	out := values[:0]
	for _, v := range values {
		if len(out) == 0 || v != out[len(out)-1] {
			out = append(out, v)
		}
	}
	return out
}
