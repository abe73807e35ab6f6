// Package ldof implements the local distance-based outlier factor: the mean
// distance from a point to its k nearest neighbors divided by the mean
// distance among those neighbors.
package ldof

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/go-sod/sod/internal/geom"
	"github.com/go-sod/sod/internal/logging"
	"github.com/go-sod/sod/internal/predictor"
	"github.com/go-sod/sod/internal/predictor/knn/brute"
	"github.com/go-sod/sod/internal/table"
	"github.com/go-sod/sod/pkg/rworker"
)

var _ predictor.Predictor = (*ldof)(nil)

// ErrUnsupportedMinPts is returned for neighborhoods with no inner pairs.
var ErrUnsupportedMinPts = errors.New("minPts must be at least 2")

type Option func(*ldof)

func WithMinPts(k int) Option {
	return func(l *ldof) {
		l.minPts = k
	}
}

// WithAnomalyCount sets how many top scoring fitted points are labelled.
func WithAnomalyCount(n int) Option {
	return func(l *ldof) {
		l.anomalyCount = n
	}
}

// WithLowerBound sets the score a point needs to be an outlier candidate.
func WithLowerBound(lb float64) Option {
	return func(l *ldof) {
		l.ldofLB = lb
	}
}

func WithDistance(f geom.DistanceFn) Option {
	return func(l *ldof) {
		l.distFunc = f
	}
}

func WithParallel(parallel bool) Option {
	return func(l *ldof) {
		l.parallel = parallel
	}
}

func WithPool(p *rworker.Pool) Option {
	return func(l *ldof) {
		l.pool = p
	}
}

func New(opts ...Option) (*ldof, error) {
	l := &ldof{minPts: 5, anomalyCount: 10, parallel: true}
	for _, f := range opts {
		f(l)
	}
	if l.minPts < 2 {
		return nil, fmt.Errorf("unable creating ldof instance, %w", ErrUnsupportedMinPts)
	}
	if l.anomalyCount < 0 {
		return nil, fmt.Errorf("unable creating ldof instance, anomaly count must not be negative")
	}
	if l.pool == nil {
		l.pool = rworker.Default()
	}
	return l, nil
}

type ldof struct {
	minPts       int
	anomalyCount int
	ldofLB       float64
	distFunc     geom.DistanceFn
	parallel     bool
	pool         *rworker.Pool

	model *table.Table
}

func (l *ldof) MinPts() int { return l.minPts }

func (l *ldof) LowerBound() float64 { return l.ldofLB }

// Model returns a snapshot of the fitted batch with its anomaly labels.
func (l *ldof) Model() *table.Table {
	if l.model == nil {
		return nil
	}
	return l.model.Snapshot()
}

// Fit scores every point of batch and labels the anomalyCount highest
// scoring candidates (score >= lower bound) as anomalies.
func (l *ldof) Fit(ctx context.Context, batch *table.Table) (*predictor.Result, error) {
	logger := logging.FromContext(ctx)
	if batch == nil || batch.Len() == 0 {
		return nil, predictor.ErrEmptyBatch
	}
	model := batch.Snapshot()
	n := model.Len()

	result := predictor.NewResult(n)
	for i := range result.Scores {
		result.Scores[i] = math.NaN()
	}
	run := rworker.Serial
	if l.parallel {
		run = l.pool.Run
	}
	if err := run(ctx, n, func(_ context.Context, i int) error {
		result.Scores[i] = l.localDistanceOutlierFactor(model, model.Row(i), i)
		return nil
	}); err != nil {
		logger.Errorf("ldof: scoring skipped %d points: %v", len(rworker.Failures(err)), err)
	}

	candidates := make([]float64, n)
	for i, score := range result.Scores {
		candidates[i] = math.NaN()
		if predictor.IsFinite(score) && score >= l.ldofLB {
			candidates[i] = score
		}
	}
	orders := predictor.RankDesc(candidates)
	for i := 0; i < l.anomalyCount && i < len(orders); i++ {
		result.Outliers[orders[i]] = true
	}
	for i := 0; i < n; i++ {
		label := "0"
		if result.Outliers[i] {
			label = "1"
		}
		model.Row(i).SetCategoricalTarget(predictor.LabelAnomaly, label)
	}
	result.Threshold = l.ldofLB

	logger.Debugf("ldof: fitted %d points, %d candidates, %d labelled", n, len(orders), len(result.OutlierIndexes()))
	l.model = model
	return result, nil
}

// Evaluate returns the LDOF of rec against the fitted batch.
func (l *ldof) Evaluate(ctx context.Context, rec *table.Record) (float64, error) {
	model := l.model
	if model == nil {
		return 0, predictor.ErrNotFitted
	}
	var score float64
	if err := rworker.Serial(ctx, 1, func(_ context.Context, _ int) error {
		score = l.localDistanceOutlierFactor(model, rec, brute.NoExclusion)
		return nil
	}); err != nil {
		return 0, fmt.Errorf("unable score record: %w", err)
	}
	return score, nil
}

func (l *ldof) IsAnomaly(ctx context.Context, rec *table.Record) (bool, error) {
	score, err := l.Evaluate(ctx, rec)
	if err != nil {
		return false, err
	}
	return score > l.ldofLB, nil
}

func (l *ldof) localDistanceOutlierFactor(batch *table.Table, p *table.Record, exclude int) float64 {
	nn := brute.KNN(batch, p, exclude, l.minPts, l.distFunc)
	return knnDistance(nn) / l.knnInnerDistance(batch, nn)
}

// knnDistance is the mean distance to the neighbors.
func knnDistance(nn []brute.Neighbor) float64 {
	if len(nn) == 0 {
		return math.NaN()
	}
	var sum float64
	for _, o := range nn {
		sum += o.Distance
	}
	return sum / float64(len(nn))
}

// knnInnerDistance is the mean distance over unordered neighbor pairs. It is
// NaN when fewer than two neighbors exist.
func (l *ldof) knnInnerDistance(batch *table.Table, nn []brute.Neighbor) float64 {
	if len(nn) < 2 {
		return math.NaN()
	}
	var sum float64
	for i := 0; i < len(nn); i++ {
		ti := batch.Row(nn[i].Index)
		for j := i + 1; j < len(nn); j++ {
			sum += geom.Distance(ti, batch.Row(nn[j].Index), l.distFunc)
		}
	}
	pairs := float64(len(nn)*(len(nn)-1)) / 2
	return sum / pairs
}
