// Package loci implements the local correlation integral detector. It keeps
// the full pairwise distance matrix of the fitted batch, so its cost grows
// quadratically in memory and cubically in time with the batch size.
package loci

import (
	"context"
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	"github.com/go-sod/sod/internal/geom"
	"github.com/go-sod/sod/internal/logging"
	"github.com/go-sod/sod/internal/predictor"
	"github.com/go-sod/sod/internal/table"
	"github.com/go-sod/sod/pkg/rworker"
)

var _ predictor.Fitter = (*loci)(nil)

type Option func(*loci)

// WithAlpha sets the ratio between the counting and the sampling radius.
func WithAlpha(alpha float64) Option {
	return func(l *loci) {
		l.alpha = alpha
	}
}

// WithKSigma sets how many standard deviations of MDEF flag a point.
func WithKSigma(k float64) Option {
	return func(l *loci) {
		l.kSigma = k
	}
}

func WithDistance(f geom.DistanceFn) Option {
	return func(l *loci) {
		l.distFunc = f
	}
}

func WithParallel(parallel bool) Option {
	return func(l *loci) {
		l.parallel = parallel
	}
}

func WithPool(p *rworker.Pool) Option {
	return func(l *loci) {
		l.pool = p
	}
}

func New(opts ...Option) (*loci, error) {
	l := &loci{alpha: 0.5, kSigma: 3, parallel: true}
	for _, f := range opts {
		f(l)
	}
	if l.alpha <= 0 || l.alpha > 1 {
		return nil, fmt.Errorf("unable creating loci instance, alpha must be in (0, 1]")
	}
	if l.kSigma < 0 {
		return nil, fmt.Errorf("unable creating loci instance, kSigma must not be negative")
	}
	if l.pool == nil {
		l.pool = rworker.Default()
	}
	return l, nil
}

type loci struct {
	alpha    float64
	kSigma   float64
	distFunc geom.DistanceFn
	parallel bool
	pool     *rworker.Pool

	model *model
}

// model is the fitted state. dist has a zero diagonal; sorted[i] holds the
// distances from row i to every other row in ascending order.
type model struct {
	batch  *table.Table
	dist   *mat.SymDense
	sorted [][]float64
	rMax   float64
}

func (l *loci) Alpha() float64 { return l.alpha }

func (l *loci) KSigma() float64 { return l.kSigma }

// RMax is the sampling radius bound of the fitted batch: the largest pairwise
// distance divided by alpha.
func (l *loci) RMax() float64 {
	if l.model == nil {
		return math.NaN()
	}
	return l.model.rMax
}

// Distance returns the fitted distance between rows i and j.
func (l *loci) Distance(i, j int) (float64, error) {
	m := l.model
	if m == nil {
		return 0, predictor.ErrNotFitted
	}
	n := m.dist.SymmetricDim()
	if i < 0 || j < 0 || i >= n || j >= n {
		return 0, fmt.Errorf("row index out of range [0, %d)", n)
	}
	return m.dist.At(i, j), nil
}

// RNeighbors returns the rows other than i closer than r to row i, ordered by
// ascending distance. Equal distances keep row order.
func (l *loci) RNeighbors(i int, r float64) ([]int, error) {
	m := l.model
	if m == nil {
		return nil, predictor.ErrNotFitted
	}
	if n := m.dist.SymmetricDim(); i < 0 || i >= n {
		return nil, fmt.Errorf("row index out of range [0, %d)", n)
	}
	return m.rNeighbors(i, r), nil
}

// Model returns a snapshot of the fitted batch with its anomaly labels.
func (l *loci) Model() *table.Table {
	if l.model == nil {
		return nil
	}
	return l.model.batch.Snapshot()
}

// Fit flags every row whose MDEF exceeds kSigma standard deviations at any
// critical radius of its neighborhood. The score of a row is the largest
// MDEF/sigma ratio seen while scanning radii in ascending order; the scan
// stops at the first flagging radius.
func (l *loci) Fit(ctx context.Context, batch *table.Table) (*predictor.Result, error) {
	logger := logging.FromContext(ctx)
	if batch == nil || batch.Len() == 0 {
		return nil, predictor.ErrEmptyBatch
	}
	m := l.buildModel(ctx, batch.Snapshot())
	n := m.batch.Len()

	result := predictor.NewResult(n)
	result.Threshold = l.kSigma
	if err := l.run(ctx, n, func(_ context.Context, i int) error {
		result.Scores[i], result.Outliers[i] = l.deviation(m, i)
		return nil
	}); err != nil {
		logger.Errorf("loci: scoring skipped %d points: %v", len(rworker.Failures(err)), err)
	}

	for i := 0; i < n; i++ {
		label := "0"
		if result.Outliers[i] {
			label = "1"
		}
		m.batch.Row(i).SetCategoricalTarget(predictor.LabelAnomaly, label)
	}

	logger.Debugf("loci: fitted %d points, r_max %f, %d flagged", n, m.rMax, len(result.OutlierIndexes()))
	l.model = m
	return result, nil
}

func (l *loci) run(ctx context.Context, n int, fn func(context.Context, int) error) error {
	if l.parallel {
		return l.pool.Run(ctx, n, fn)
	}
	return rworker.Serial(ctx, n, fn)
}

func (l *loci) buildModel(ctx context.Context, batch *table.Table) *model {
	logger := logging.FromContext(ctx)
	n := batch.Len()
	m := &model{
		batch:  batch,
		dist:   mat.NewSymDense(n, nil),
		sorted: make([][]float64, n),
	}

	// task i owns the upper triangle cells (i, j) for j > i
	if err := l.run(ctx, n, func(_ context.Context, i int) error {
		ti := batch.Row(i)
		for j := i + 1; j < n; j++ {
			m.dist.SetSym(i, j, geom.Distance(ti, batch.Row(j), l.distFunc))
		}
		return nil
	}); err != nil {
		logger.Errorf("loci: distance matrix is incomplete for %d rows: %v", len(rworker.Failures(err)), err)
	}

	var maxDistance float64
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			maxDistance = math.Max(maxDistance, m.dist.At(i, j))
		}
	}
	m.rMax = maxDistance / l.alpha

	if err := l.run(ctx, n, func(_ context.Context, i int) error {
		row := make([]float64, 0, n-1)
		for j := 0; j < n; j++ {
			if j != i {
				row = append(row, m.dist.At(i, j))
			}
		}
		sort.Float64s(row)
		m.sorted[i] = row
		return nil
	}); err != nil {
		logger.Errorf("loci: sorting distances failed for %d rows: %v", len(rworker.Failures(err)), err)
	}
	return m
}

// deviation scans the critical radii of row i. The sampling neighborhood is
// row i together with every row closer than r_max.
func (l *loci) deviation(m *model, i int) (float64, bool) {
	neighborhood := append(m.rNeighbors(i, m.rMax), i)

	score := 0.0
	for _, r := range m.criticalRadii(i, neighborhood) {
		alphaR := l.alpha * r
		counts := make([]float64, len(neighborhood))
		for x, j := range neighborhood {
			counts[x] = float64(m.count(j, alphaR))
		}
		nHat, sigmaHat := stat.PopMeanStdDev(counts, nil)
		mdef := 1 - float64(m.count(i, alphaR))/nHat
		sigmaMDEF := sigmaHat / nHat

		// row i is in the neighborhood, so a positive MDEF implies sigma > 0
		if mdef > l.kSigma*sigmaMDEF {
			return math.Max(score, mdef/sigmaMDEF), true
		}
		if sigmaMDEF > 0 {
			score = math.Max(score, mdef/sigmaMDEF)
		}
	}
	return score, false
}

// count is the number of rows closer than r to row j, j included.
func (m *model) count(j int, r float64) int {
	return 1 + sort.SearchFloat64s(m.sorted[j], r)
}

func (m *model) rNeighbors(i int, r float64) []int {
	var idx []int
	row := mat.Row(nil, i, m.dist)
	for j, d := range row {
		if j != i && d < r {
			idx = append(idx, j)
		}
	}
	sort.SliceStable(idx, func(a, b int) bool {
		return row[idx[a]] < row[idx[b]]
	})
	return idx
}

// criticalRadii returns the distinct distances from row i to the other
// members of its neighborhood in ascending order.
func (m *model) criticalRadii(i int, neighborhood []int) []float64 {
	radii := make([]float64, 0, len(neighborhood))
	for _, j := range neighborhood {
		if j != i {
			radii = append(radii, m.dist.At(i, j))
		}
	}
	sort.Float64s(radii)
	uniq := radii[:0]
	for _, r := range radii {
		if len(uniq) == 0 || r != uniq[len(uniq)-1] {
			uniq = append(uniq, r)
		}
	}
	return uniq
}
