package geom

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"

	"github.com/go-sod/sod/internal/table"
)

var ErrUnknownMetric = fmt.Errorf("unknown distance function")

// DistanceFn is a pluggable metric between two records. It must return a
// non-negative value.
type DistanceFn func(a, b *table.Record) float64

type MetricType string

const (
	MetricEuclidean MetricType = "EUCLIDEAN"
	MetricChebyshev MetricType = "CHEBYSHEV"
	MetricManhattan MetricType = "MANHATTAN"
)

// Distance evaluates fn on a and b. A nil fn means Euclidean distance over
// the numeric attribute vectors.
func Distance(a, b *table.Record, fn DistanceFn) float64 {
	if fn == nil {
		return EuclideanDistance(a.Values(), b.Values())
	}
	return fn(a, b)
}

// MetricFor returns the record metric for the named vector distance.
func MetricFor(m MetricType) (DistanceFn, error) {
	var vecFn func(vec, vec1 []float64) float64
	switch m {
	case MetricEuclidean, "":
		vecFn = EuclideanDistance
	case MetricChebyshev:
		vecFn = ChebyshevDistance
	case MetricManhattan:
		vecFn = ManhattanDistance
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownMetric, m)
	}
	return func(a, b *table.Record) float64 {
		return vecFn(a.Values(), b.Values())
	}, nil
}

// The vector distances below compare only the common prefix of vec and vec1
// when their lengths differ.

func EuclideanDistance(vec, vec1 []float64) float64 {
	n := dim(vec, vec1)
	return floats.Distance(vec[:n], vec1[:n], 2)
}

func ChebyshevDistance(vec, vec1 []float64) float64 {
	n := dim(vec, vec1)
	return floats.Distance(vec[:n], vec1[:n], math.Inf(1))
}

func ManhattanDistance(vec, vec1 []float64) float64 {
	n := dim(vec, vec1)
	return floats.Distance(vec[:n], vec1[:n], 1)
}

func dim(vec, vec1 []float64) int {
	if len(vec) < len(vec1) {
		return len(vec)
	}
	return len(vec1)
}
