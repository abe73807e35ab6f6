package lof

import (
	"context"
	"fmt"
	"math"

	"github.com/go-sod/sod/internal/geom"
	"github.com/go-sod/sod/internal/logging"
	"github.com/go-sod/sod/internal/predictor"
	"github.com/go-sod/sod/internal/predictor/knn/brute"
	"github.com/go-sod/sod/internal/table"
	"github.com/go-sod/sod/pkg/rworker"
)

var _ predictor.Predictor = (*lof)(nil)

const (
	MinKNum = 1

	defaultMinPtsLB = 3
	defaultMinPtsUB = 10
)

type Option func(*lof)

// WithSearchRange sets the inclusive range of neighborhood sizes tried per point.
func WithSearchRange(lb, ub int) Option {
	return func(l *lof) {
		l.minPtsLB = lb
		l.minPtsUB = ub
	}
}

func WithThreshold(t float64) Option {
	return func(l *lof) {
		l.threshold = t
	}
}

func WithAutomaticThresholding(enabled bool) Option {
	return func(l *lof) {
		l.automaticThresholding = enabled
	}
}

// WithAutomaticThresholdingRatio sets the fraction of the fitted population
// expected to score above the calibrated threshold.
func WithAutomaticThresholdingRatio(ratio float64) Option {
	return func(l *lof) {
		l.automaticThresholdingRatio = ratio
	}
}

func WithParallel(parallel bool) Option {
	return func(l *lof) {
		l.parallel = parallel
	}
}

// WithPredictedLabel writes an OUTLIER/NORMAL label on every fitted row.
func WithPredictedLabel(enabled bool) Option {
	return func(l *lof) {
		l.addPredictedLabel = enabled
	}
}

// WithDistance injects the metric. nil means Euclidean.
func WithDistance(f geom.DistanceFn) Option {
	return func(l *lof) {
		l.distFunc = f
	}
}

func WithPool(p *rworker.Pool) Option {
	return func(l *lof) {
		l.pool = p
	}
}

func New(opts ...Option) (*lof, error) {
	l := &lof{
		threshold:                  0.5,
		minPtsLB:                   defaultMinPtsLB,
		minPtsUB:                   defaultMinPtsUB,
		parallel:                   true,
		automaticThresholding:      true,
		automaticThresholdingRatio: 0.05,
	}
	for _, f := range opts {
		f(l)
	}
	if l.pool == nil {
		l.pool = rworker.Default()
	}
	if err := l.validate(); err != nil {
		return nil, fmt.Errorf("unable creating lof instance, %w", err)
	}
	return l, nil
}

// lof scores a point by its worst local density ratio over a range of
// neighborhood sizes.
type lof struct {
	threshold                  float64
	minPtsLB                   int
	minPtsUB                   int
	parallel                   bool
	automaticThresholding      bool
	automaticThresholdingRatio float64
	addPredictedLabel          bool
	distFunc                   geom.DistanceFn
	pool                       *rworker.Pool

	model *model
}

// model is the read-only fitted state. Neighbor lists hold minPtsUB entries;
// a smaller k uses their prefix, which is exactly the k-NN set because
// selection is stable.
type model struct {
	batch     *table.Table
	neighbors [][]brute.Neighbor
	// kDist[k-minPtsLB][row] and lrd[k-minPtsLB][row]
	kDist    [][]float64
	lrd      [][]float64
	minScore float64
	maxScore float64
}

func (l *lof) validate() error {
	if l.minPtsLB < MinKNum {
		return fmt.Errorf("the lower bound of the search range must be at least %d", MinKNum)
	}
	if l.minPtsUB < l.minPtsLB {
		return fmt.Errorf("the search range is empty: [%d, %d]", l.minPtsLB, l.minPtsUB)
	}
	if l.threshold < 0 {
		return fmt.Errorf("the threshold must not be negative")
	}
	if l.automaticThresholdingRatio < 0 || l.automaticThresholdingRatio > 1 {
		return fmt.Errorf("the thresholding ratio must be in [0, 1]")
	}
	return nil
}

func (l *lof) SearchRange() (int, int) { return l.minPtsLB, l.minPtsUB }

func (l *lof) Threshold() float64 { return l.threshold }

func (l *lof) MinScore() float64 {
	if l.model == nil {
		return math.NaN()
	}
	return l.model.minScore
}

func (l *lof) MaxScore() float64 {
	if l.model == nil {
		return math.NaN()
	}
	return l.model.maxScore
}

// Model returns a snapshot of the fitted batch, labels included.
func (l *lof) Model() *table.Table {
	if l.model == nil {
		return nil
	}
	return l.model.batch.Snapshot()
}

func (l *lof) Fit(ctx context.Context, batch *table.Table) (*predictor.Result, error) {
	logger := logging.FromContext(ctx)
	if batch == nil || batch.Len() == 0 {
		return nil, predictor.ErrEmptyBatch
	}

	m := l.buildModel(ctx, batch.Snapshot())
	n := m.batch.Len()

	raw := make([]float64, n)
	for i := range raw {
		raw[i] = math.NaN()
	}
	if err := l.run(ctx, n, func(_ context.Context, i int) error {
		raw[i] = l.composite(func(k int) float64 {
			return m.localOutlierFactor(m.neighbors[i], m.lrd[k-l.minPtsLB][i], k, l.minPtsLB)
		})
		return nil
	}); err != nil {
		logger.Errorf("lof: scoring skipped %d points: %v", len(rworker.Failures(err)), err)
	}

	m.minScore, m.maxScore = math.Inf(1), math.Inf(-1)
	for _, score := range raw {
		if !predictor.IsFinite(score) {
			continue
		}
		m.minScore = math.Min(m.minScore, score)
		m.maxScore = math.Max(m.maxScore, score)
	}

	result := predictor.NewResult(n)
	for i := range raw {
		result.Scores[i] = m.rescale(raw[i])
	}
	if l.automaticThresholding {
		l.threshold = l.calibrate(result.Scores)
		logger.Debugf("lof: calibrated threshold %f", l.threshold)
	}
	result.Threshold = l.threshold
	for i, score := range result.Scores {
		result.Outliers[i] = score > l.threshold
		if l.addPredictedLabel {
			label := predictor.Normal
			if result.Outliers[i] {
				label = predictor.Outlier
			}
			m.batch.Row(i).SetCategoricalTarget(predictor.LabelPredicted, label)
		}
	}

	logger.Debugf("lof: fitted %d points, raw score range [%f, %f]", n, m.minScore, m.maxScore)
	l.model = m
	return result, nil
}

// Evaluate returns the composite score of rec rescaled into [0, 1] by the
// fitted score range.
func (l *lof) Evaluate(ctx context.Context, rec *table.Record) (float64, error) {
	m := l.model
	if m == nil {
		return 0, predictor.ErrNotFitted
	}
	var nn []brute.Neighbor
	if err := rworker.Serial(ctx, 1, func(_ context.Context, _ int) error {
		nn = brute.KNN(m.batch, rec, brute.NoExclusion, l.minPtsUB, l.distFunc)
		return nil
	}); err != nil {
		return 0, fmt.Errorf("unable select neighbors: %w", err)
	}

	width := l.minPtsUB - l.minPtsLB + 1
	factors := make([]float64, width)
	for i := range factors {
		factors[i] = math.NaN()
	}
	if err := l.run(ctx, width, func(_ context.Context, i int) error {
		k := l.minPtsLB + i
		factors[i] = m.localOutlierFactor(nn, m.lrdOf(nn, k, l.minPtsLB), k, l.minPtsLB)
		return nil
	}); err != nil {
		logging.FromContext(ctx).Errorf("lof: evaluate skipped %d neighborhood sizes: %v", len(rworker.Failures(err)), err)
	}

	score := l.composite(func(k int) float64 { return factors[k-l.minPtsLB] })
	return m.rescale(score), nil
}

func (l *lof) IsAnomaly(ctx context.Context, rec *table.Record) (bool, error) {
	score, err := l.Evaluate(ctx, rec)
	if err != nil {
		return false, err
	}
	return score > l.threshold, nil
}

func (l *lof) run(ctx context.Context, n int, fn func(context.Context, int) error) error {
	if l.parallel {
		return l.pool.Run(ctx, n, fn)
	}
	return rworker.Serial(ctx, n, fn)
}

// buildModel selects neighbors, k-distances and densities of every fitted
// row. Each stage runs one task per row and completes before the next starts.
func (l *lof) buildModel(ctx context.Context, batch *table.Table) *model {
	logger := logging.FromContext(ctx)
	n := batch.Len()
	width := l.minPtsUB - l.minPtsLB + 1
	m := &model{
		batch:     batch,
		neighbors: make([][]brute.Neighbor, n),
		kDist:     make([][]float64, width),
		lrd:       make([][]float64, width),
	}
	for i := 0; i < width; i++ {
		m.kDist[i] = make([]float64, n)
		m.lrd[i] = make([]float64, n)
	}

	if err := l.run(ctx, n, func(_ context.Context, i int) error {
		nn := brute.KNN(batch, batch.Row(i), i, l.minPtsUB, l.distFunc)
		m.neighbors[i] = nn
		for k := l.minPtsLB; k <= l.minPtsUB; k++ {
			m.kDist[k-l.minPtsLB][i] = brute.KDistance(prefix(nn, k))
		}
		return nil
	}); err != nil {
		failures := rworker.Failures(err)
		logger.Errorf("lof: neighbor selection failed for %d points: %v", len(failures), err)
		// rows without neighbors have no reach distance
		for _, f := range failures {
			for k := range m.kDist {
				m.kDist[k][f.Index] = math.NaN()
			}
		}
	}

	if err := l.run(ctx, n, func(_ context.Context, i int) error {
		for k := l.minPtsLB; k <= l.minPtsUB; k++ {
			m.lrd[k-l.minPtsLB][i] = m.lrdOf(m.neighbors[i], k, l.minPtsLB)
		}
		return nil
	}); err != nil {
		logger.Errorf("lof: density estimation failed for %d points: %v", len(rworker.Failures(err)), err)
	}
	return m
}

// composite is the maximum factor over the search range. NaN factors are
// skipped; when every factor is NaN the result is -Inf.
func (l *lof) composite(factorFn func(k int) float64) float64 {
	maxLOF := math.Inf(-1)
	for k := l.minPtsLB; k <= l.minPtsUB; k++ {
		factor := factorFn(k)
		if math.IsNaN(factor) {
			continue
		}
		maxLOF = math.Max(maxLOF, factor)
	}
	return maxLOF
}

// calibrate picks the rescaled score ranked max(1, round(ratio*n)) places
// below the top, counting from zero, so that this many points exceed it.
func (l *lof) calibrate(scores []float64) float64 {
	orders := predictor.RankDesc(scores)
	if len(orders) == 0 {
		return l.threshold
	}
	selected := int(math.Round(l.automaticThresholdingRatio * float64(len(orders))))
	if selected < 1 {
		selected = 1
	}
	if selected >= len(orders) {
		selected = len(orders) - 1
	}
	return scores[orders[selected]]
}

// lrdOf is the local reachability density of a point whose neighbors are nn.
// Neighbors with an unknown k-distance are skipped.
func (m *model) lrdOf(nn []brute.Neighbor, k, lb int) float64 {
	kDist := m.kDist[k-lb]
	var (
		sumReachDist float64
		count        int
	)
	for _, o := range prefix(nn, k) {
		if math.IsNaN(kDist[o.Index]) {
			continue
		}
		sumReachDist += math.Max(kDist[o.Index], o.Distance)
		count++
	}
	if count == 0 {
		return math.NaN()
	}
	return 1 / (sumReachDist / float64(count))
}

// localOutlierFactor is the mean density ratio between the neighbors of a
// point and the point itself.
func (m *model) localOutlierFactor(nn []brute.Neighbor, lrdP float64, k, lb int) float64 {
	lrd := m.lrd[k-lb]
	var (
		sumLrd float64
		count  int
	)
	for _, o := range prefix(nn, k) {
		if math.IsNaN(lrd[o.Index]) {
			continue
		}
		sumLrd += lrd[o.Index]
		count++
	}
	if count == 0 {
		return math.NaN()
	}
	// duplicates at zero distance make both densities infinite
	if math.IsInf(sumLrd, 0) && math.IsInf(lrdP, 0) {
		return 1 / float64(count)
	}
	return (sumLrd / lrdP) / float64(count)
}

func (m *model) rescale(score float64) float64 {
	if math.IsNaN(score) || math.IsInf(m.minScore, 0) {
		return 0
	}
	span := m.maxScore - m.minScore
	if span <= 0 {
		if score > m.minScore {
			return 1
		}
		return 0
	}
	score = (score - m.minScore) / span
	if score < 0 {
		return 0
	}
	if score > 1 {
		return 1
	}
	return score
}

func prefix(nn []brute.Neighbor, k int) []brute.Neighbor {
	if k < len(nn) {
		return nn[:k]
	}
	return nn
}
