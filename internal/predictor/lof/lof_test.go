package lof

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/go-sod/sod/internal/dataset"
	"github.com/go-sod/sod/internal/geom"
	"github.com/go-sod/sod/internal/predictor"
	"github.com/go-sod/sod/internal/predictor/knn/brute"
	"github.com/go-sod/sod/internal/table"
	"github.com/go-sod/sod/pkg/rworker"
)

func TestNew(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name    string
		opts    []Option
		wantErr bool
	}{
		{name: "defaults", opts: nil},
		{name: "single_k", opts: []Option{WithSearchRange(4, 4)}},
		{name: "zero_lower_bound", opts: []Option{WithSearchRange(0, 4)}, wantErr: true},
		{name: "empty_range", opts: []Option{WithSearchRange(5, 4)}, wantErr: true},
		{name: "negative_threshold", opts: []Option{WithThreshold(-1)}, wantErr: true},
		{name: "bad_ratio", opts: []Option{WithAutomaticThresholdingRatio(1.5)}, wantErr: true},
	}
	for _, test := range tests {
		test := test
		t.Run(test.name, func(t *testing.T) {
			t.Parallel()
			l, err := New(test.opts...)
			if test.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.NotNil(t, l.pool)
		})
	}

	l, err := New()
	require.NoError(t, err)
	lb, ub := l.SearchRange()
	assert.Equal(t, 3, lb)
	assert.Equal(t, 10, ub)
	assert.Equal(t, 0.5, l.Threshold())
	assert.True(t, l.automaticThresholding)
	assert.True(t, l.parallel)
}

func TestLOF_NotFitted(t *testing.T) {
	t.Parallel()
	l, err := New()
	require.NoError(t, err)

	rec := table.NewRecord(table.NewSchema([]string{"x"}, nil), []float64{1}, nil)
	_, err = l.Evaluate(context.Background(), rec)
	assert.ErrorIs(t, err, predictor.ErrNotFitted)
	_, err = l.IsAnomaly(context.Background(), rec)
	assert.ErrorIs(t, err, predictor.ErrNotFitted)
	assert.Nil(t, l.Model())

	_, err = l.Fit(context.Background(), table.FromPoints(nil))
	assert.ErrorIs(t, err, predictor.ErrEmptyBatch)
}

func TestLOF_HandComputed(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	l, err := New(WithSearchRange(1, 1), WithPredictedLabel(true))
	require.NoError(t, err)

	batch := table.FromPoints([][]float64{{0}, {1}, {2}, {10}})
	result, err := l.Fit(ctx, batch)
	require.NoError(t, err)

	assert.Equal(t, 1.0, l.MinScore())
	assert.Equal(t, 8.0, l.MaxScore())
	assert.Equal(t, []float64{0, 0, 0, 1}, result.Scores)
	assert.Equal(t, []int{3}, result.OutlierIndexes())
	assert.Equal(t, 0.0, l.Threshold())
	assert.Equal(t, l.Threshold(), result.Threshold)

	query := table.NewRecord(batch.Schema(), []float64{5}, nil)
	score, err := l.Evaluate(ctx, query)
	require.NoError(t, err)
	assert.InDelta(t, 2.0/7.0, score, 1e-12)

	model := l.Model()
	label, ok := model.Row(3).CategoricalTarget(predictor.LabelPredicted)
	require.True(t, ok)
	assert.Equal(t, predictor.Outlier, label)
	label, _ = model.Row(0).CategoricalTarget(predictor.LabelPredicted)
	assert.Equal(t, predictor.Normal, label)

	_, ok = batch.Row(3).CategoricalTarget(predictor.LabelPredicted)
	assert.False(t, ok, "the caller's table must stay untouched")
}

func TestLOF_Duplicates(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	l, err := New(WithSearchRange(2, 4))
	require.NoError(t, err)

	points := make([][]float64, 8)
	for i := range points {
		points[i] = []float64{1, 1}
	}
	_, err = l.Fit(ctx, table.FromPoints(points))
	require.NoError(t, err)

	score, err := l.Evaluate(ctx, table.NewRecord(table.NewSchema([]string{"x0", "x1"}, nil), []float64{1, 1}, nil))
	require.NoError(t, err)
	assert.Equal(t, 0.0, score)
	anomaly, err := l.IsAnomaly(ctx, table.NewRecord(table.NewSchema([]string{"x0", "x1"}, nil), []float64{1, 1}, nil))
	require.NoError(t, err)
	assert.False(t, anomaly)
}

func TestLOF_SerialMatchesParallel(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	g := dataset.NewGenerator(21)
	batch := table.FromPoints(g.Box(120, 3, -1, 1))

	serial, err := New(WithParallel(false))
	require.NoError(t, err)
	parallel, err := New(WithParallel(true), WithPool(rworker.New(4)))
	require.NoError(t, err)

	rs, err := serial.Fit(ctx, batch)
	require.NoError(t, err)
	rp, err := parallel.Fit(ctx, batch)
	require.NoError(t, err)
	assert.Equal(t, rs.Scores, rp.Scores)
	assert.Equal(t, serial.Threshold(), parallel.Threshold())

	query := table.NewRecord(batch.Schema(), []float64{0.9, -0.9, 0.2}, nil)
	s1, err := serial.Evaluate(ctx, query)
	require.NoError(t, err)
	s2, err := parallel.Evaluate(ctx, query)
	require.NoError(t, err)
	assert.Equal(t, s1, s2)
}

func TestLOF_ScoreBounds(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	g := dataset.NewGenerator(5)
	l, err := New(WithSearchRange(3, 6))
	require.NoError(t, err)
	batch := table.FromPoints(g.Box(150, 2, -3, 3))
	_, err = l.Fit(ctx, batch)
	require.NoError(t, err)

	for _, p := range g.Box(100, 2, -6, 6) {
		rec := table.NewRecord(batch.Schema(), p, nil)
		score, err := l.Evaluate(ctx, rec)
		require.NoError(t, err)
		assert.GreaterOrEqual(t, score, 0.0)
		assert.LessOrEqual(t, score, 1.0)

		anomaly, err := l.IsAnomaly(ctx, rec)
		require.NoError(t, err)
		if score == 0 {
			assert.False(t, anomaly)
		}
	}
}

func TestLOF_GaussianClustersWithNoise(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	g := dataset.NewGenerator(2017)

	gaussian := func(n int) [][]float64 {
		return append(g.Blob(n/2, []float64{-2, -2}, 0.3), g.Blob(n/2, []float64{2, 2}, 0.3)...)
	}
	train := append(gaussian(200), g.Box(200, 2, -4, 4)...)
	g.Shuffle(train)

	l, err := New(
		WithSearchRange(3, 10),
		WithAutomaticThresholding(true),
		WithAutomaticThresholdingRatio(0.05),
	)
	require.NoError(t, err)
	batch := table.FromPoints(train)
	result, err := l.Fit(ctx, batch)
	require.NoError(t, err)
	assert.LessOrEqual(t, len(result.OutlierIndexes()), 20)
	assert.NotEmpty(t, result.OutlierIndexes())

	rate := func(points [][]float64) float64 {
		flagged := 0
		for _, p := range points {
			anomaly, err := l.IsAnomaly(ctx, table.NewRecord(batch.Schema(), p, nil))
			require.NoError(t, err)
			if anomaly {
				flagged++
			}
		}
		return float64(flagged) / float64(len(points))
	}
	gaussianRate := rate(gaussian(200))
	uniformRate := rate(g.Box(200, 2, -4, 4))
	assert.Greater(t, uniformRate, gaussianRate)
	assert.Less(t, gaussianRate, 0.1)
}

func TestLOF_FailingMetric(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	// panics whenever the query is the row at 7
	panicky := func(a, b *table.Record) float64 {
		if a.Values()[0] == 7 {
			panic("metric failure")
		}
		return geom.EuclideanDistance(a.Values(), b.Values())
	}
	points := make([][]float64, 10)
	for i := range points {
		points[i] = []float64{float64(i)}
	}
	batch := table.FromPoints(points)

	l, err := New(
		WithSearchRange(2, 3),
		WithAutomaticThresholding(false),
		WithDistance(panicky),
		WithPool(rworker.New(2)),
	)
	require.NoError(t, err)
	result, err := l.Fit(ctx, batch)
	require.NoError(t, err)

	for k := range l.model.kDist {
		assert.True(t, math.IsNaN(l.model.kDist[k][7]), "k index %d", k)
		assert.True(t, math.IsNaN(l.model.lrd[k][7]), "k index %d", k)
	}
	for i, score := range result.Scores {
		assert.False(t, math.IsNaN(score), "row %d", i)
	}
	assert.Equal(t, 0.0, result.Scores[7])
	assert.False(t, result.Outliers[7])

	_, err = l.Evaluate(ctx, table.NewRecord(batch.Schema(), []float64{7}, nil))
	assert.Error(t, err)
	_, err = l.IsAnomaly(ctx, table.NewRecord(batch.Schema(), []float64{7}, nil))
	assert.Error(t, err)
	_, err = l.Evaluate(ctx, table.NewRecord(batch.Schema(), []float64{4.5}, nil))
	assert.NoError(t, err)
}

func TestModel_SkipsUnknownDensities(t *testing.T) {
	t.Parallel()
	m := &model{
		kDist: [][]float64{{math.NaN(), 1, 2}},
		lrd:   [][]float64{{math.NaN(), 0.5, 0.25}},
	}
	nn := []brute.Neighbor{{Index: 0, Distance: 5}, {Index: 1, Distance: 0.5}, {Index: 2, Distance: 3}}

	// reach distances max(1, 0.5) and max(2, 3)
	assert.Equal(t, 0.5, m.lrdOf(nn, 3, 3))
	// (0.5 + 0.25) / 0.5 / 2
	assert.Equal(t, 0.75, m.localOutlierFactor(nn, 0.5, 3, 3))

	assert.True(t, math.IsNaN(m.lrdOf(nn[:1], 3, 3)))
	assert.True(t, math.IsNaN(m.localOutlierFactor(nn[:1], 0.5, 3, 3)))
}
