package geom

import (
	"errors"
	"math"
	"testing"

	"github.com/go-sod/sod/internal/table"
)

func TestChebyshevDistance(t *testing.T) {
	tests := []struct {
		name     string
		p        []float64
		p1       []float64
		expected float64
	}{
		{name: "positive", p: []float64{1.2, 2.0}, p1: []float64{2.0, 3.0}, expected: 1},
		{name: "positive", p: []float64{10, 2.0}, p1: []float64{5, 3.0}, expected: 5},
		{name: "shorter_second", p: []float64{5, 2.0}, p1: []float64{3}, expected: 2},
		{name: "shorter_first", p: []float64{2.0}, p1: []float64{3, 4.0}, expected: 1},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			got := ChebyshevDistance(test.p, test.p1)
			if got != test.expected {
				t.Errorf(
					"the distance obtained does not correspond to the expected distance, got %f, expected %f",
					got, test.expected)
			}
		})
	}
}

func TestEuclideanDistance(t *testing.T) {
	tests := []struct {
		name     string
		p        []float64
		p1       []float64
		expected float64
	}{
		{name: "positive", p: []float64{1.2, 2.0}, p1: []float64{2.0, 3.0}, expected: 1.2806248474865698},
		{name: "positive", p: []float64{10, 2.0}, p1: []float64{5, 3.0}, expected: 5.0990195135927845},
		{name: "shorter_second", p: []float64{5, 2.0}, p1: []float64{3}, expected: 2},
		{name: "shorter_first", p: []float64{2.0}, p1: []float64{3, 4.0}, expected: 1},
		{name: "empty", p: nil, p1: []float64{3, 4.0}, expected: 0},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			got := EuclideanDistance(test.p, test.p1)
			if math.Abs(got-test.expected) > 1e-12 {
				t.Errorf(
					"the distance obtained does not correspond to the expected distance, got %f, expected %f",
					got, test.expected)
			}
		})
	}
}

func TestManhattanDistance(t *testing.T) {
	tests := []struct {
		name     string
		p        []float64
		p1       []float64
		expected float64
	}{
		{name: "positive", p: []float64{1.2, 2.0}, p1: []float64{2.0, 3.0}, expected: 1.8},
		{name: "positive", p: []float64{10, 2.0}, p1: []float64{5, 3.0}, expected: 6},
		{name: "shorter_second", p: []float64{5, 2.0}, p1: []float64{3}, expected: 2},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			got := ManhattanDistance(test.p, test.p1)
			if math.Abs(got-test.expected) > 1e-12 {
				t.Errorf(
					"the distance obtained does not correspond to the expected distance, got %f, expected %f",
					got, test.expected)
			}
		})
	}
}

func TestDistance(t *testing.T) {
	schema := table.NewSchema([]string{"x", "y"}, nil)
	a := table.NewRecord(schema, []float64{0, 0}, nil)
	b := table.NewRecord(schema, []float64{3, 4}, nil)

	if got := Distance(a, b, nil); got != 5 {
		t.Errorf("default metric got: %v, expected: %v", got, 5)
	}

	constant := func(_, _ *table.Record) float64 { return 42 }
	if got := Distance(a, b, constant); got != 42 {
		t.Errorf("injected metric got: %v, expected: %v", got, 42)
	}
}

func TestMetricFor(t *testing.T) {
	schema := table.NewSchema([]string{"x", "y"}, nil)
	a := table.NewRecord(schema, []float64{0, 0}, nil)
	b := table.NewRecord(schema, []float64{3, 4}, nil)

	tests := []struct {
		name     string
		metric   MetricType
		expected float64
		err      error
	}{
		{name: "default", metric: "", expected: 5},
		{name: "euclidean", metric: MetricEuclidean, expected: 5},
		{name: "chebyshev", metric: MetricChebyshev, expected: 4},
		{name: "manhattan", metric: MetricManhattan, expected: 7},
		{name: "unknown", metric: "HAMMING", err: ErrUnknownMetric},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			fn, err := MetricFor(test.metric)
			if test.err != nil {
				if !errors.Is(err, test.err) {
					t.Errorf("error got: %v, expected: %v", err, test.err)
				}
				return
			}
			if err != nil {
				t.Fatalf("the error should not be returned: %v", err)
			}
			if got := fn(a, b); got != test.expected {
				t.Errorf("distance got: %v, expected: %v", got, test.expected)
			}
		})
	}
}
