// Package cblof implements the cluster-based local outlier factor on top of a
// single pass Squeezer clustering of discretized records.
//
// Clustering is greedy and depends on row order: the same rows in another
// order may give other clusters and other scores.
package cblof

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"strconv"

	"github.com/go-sod/sod/internal/discretize"
	"github.com/go-sod/sod/internal/logging"
	"github.com/go-sod/sod/internal/predictor"
	"github.com/go-sod/sod/internal/table"
	"github.com/go-sod/sod/pkg/rworker"
)

var _ predictor.Predictor = (*cblof)(nil)

// ErrNoClusters means the fitted model has no cluster to score against.
var ErrNoClusters = errors.New("fitted model has no clusters")

type Option func(*cblof)

func WithThreshold(t float64) Option {
	return func(c *cblof) {
		c.threshold = t
	}
}

// WithAlpha sets the share of rows the large clusters must cover.
func WithAlpha(alpha float64) Option {
	return func(c *cblof) {
		c.alpha = alpha
	}
}

// WithBeta sets the size ratio between consecutive ranked clusters below which
// the smaller one starts the small clusters.
func WithBeta(beta float64) Option {
	return func(c *cblof) {
		c.beta = beta
	}
}

// WithSimilarityThreshold sets the similarity a row needs to join an existing
// cluster instead of starting a new one.
func WithSimilarityThreshold(s float64) Option {
	return func(c *cblof) {
		c.similarityThreshold = s
	}
}

func WithAutomaticThresholding(enabled bool) Option {
	return func(c *cblof) {
		c.automaticThresholding = enabled
	}
}

func WithAutomaticThresholdingRatio(ratio float64) Option {
	return func(c *cblof) {
		c.anomalyRatio = ratio
	}
}

// WithDiscretizer replaces the default k-means discretizer with ten levels.
func WithDiscretizer(d discretize.Discretizer) Option {
	return func(c *cblof) {
		c.discretizer = d
	}
}

func WithParallel(parallel bool) Option {
	return func(c *cblof) {
		c.parallel = parallel
	}
}

func WithPool(p *rworker.Pool) Option {
	return func(c *cblof) {
		c.pool = p
	}
}

func New(opts ...Option) (*cblof, error) {
	c := &cblof{
		threshold:           0.5,
		alpha:               0.8,
		beta:                0.1,
		similarityThreshold: 0.8,
		anomalyRatio:        0.05,
		parallel:            true,
	}
	for _, f := range opts {
		f(c)
	}
	if c.discretizer == nil {
		c.discretizer = discretize.NewKMeans(discretize.WithMaxLevels(10))
	}
	if c.pool == nil {
		c.pool = rworker.Default()
	}
	if err := c.validate(); err != nil {
		return nil, fmt.Errorf("unable creating cblof instance, %w", err)
	}
	return c, nil
}

type cblof struct {
	threshold             float64
	alpha                 float64
	beta                  float64
	similarityThreshold   float64
	automaticThresholding bool
	anomalyRatio          float64
	parallel              bool
	discretizer           discretize.Discretizer
	pool                  *rworker.Pool

	model *model
}

// model is the fitted state. clusters are ordered by rank; the ones with an
// index up to split are the large clusters.
type model struct {
	batch       *table.Table
	discretizer discretize.Discretizer
	clusters    []*Cluster
	split       int
}

func (c *cblof) validate() error {
	if c.alpha <= 0 || c.alpha > 1 {
		return fmt.Errorf("alpha must be in (0, 1]")
	}
	if c.beta < 0 {
		return fmt.Errorf("beta must not be negative")
	}
	if c.similarityThreshold < 0 || c.similarityThreshold > 1 {
		return fmt.Errorf("the similarity threshold must be in [0, 1]")
	}
	if c.anomalyRatio < 0 || c.anomalyRatio > 1 {
		return fmt.Errorf("the thresholding ratio must be in [0, 1]")
	}
	return nil
}

func (c *cblof) Threshold() float64 { return c.threshold }

// Split returns the rank of the last large cluster, -1 before fit.
func (c *cblof) Split() int {
	if c.model == nil {
		return -1
	}
	return c.model.split
}

// Clusters returns snapshots of the fitted clusters in rank order.
func (c *cblof) Clusters() []*Cluster {
	if c.model == nil {
		return nil
	}
	clusters := make([]*Cluster, len(c.model.clusters))
	for i, cl := range c.model.clusters {
		clusters[i] = cl.Snapshot()
	}
	return clusters
}

// Model returns a snapshot of the discretized batch labelled with cluster
// indexes and scores.
func (c *cblof) Model() *table.Table {
	if c.model == nil {
		return nil
	}
	return c.model.batch.Snapshot()
}

func (c *cblof) Fit(ctx context.Context, batch *table.Table) (*predictor.Result, error) {
	logger := logging.FromContext(ctx)
	if batch == nil || batch.Len() == 0 {
		return nil, predictor.ErrEmptyBatch
	}
	discretized, err := c.discretizer.FitAndTransform(batch)
	if err != nil {
		return nil, fmt.Errorf("unable discretize batch: %w", err)
	}
	n := discretized.Len()

	clusters, assignments := squeeze(discretized, c.similarityThreshold)
	clusters, assignments = rank(clusters, assignments)
	m := &model{
		batch:       discretized,
		discretizer: c.discretizer,
		clusters:    clusters,
		split:       splitIndex(clusters, n, c.alpha, c.beta),
	}
	logger.Debugf("cblof: %d clusters, split at %d", len(clusters), m.split)

	result := predictor.NewResult(n)
	if err := c.run(ctx, n, func(_ context.Context, i int) error {
		result.Scores[i] = m.score(discretized.Row(i), clusters[assignments[i]])
		return nil
	}); err != nil {
		logger.Errorf("cblof: scoring skipped %d points: %v", len(rworker.Failures(err)), err)
	}

	if c.automaticThresholding {
		c.threshold = calibrate(result.Scores, c.anomalyRatio, c.threshold)
		logger.Debugf("cblof: calibrated threshold %f", c.threshold)
	}
	result.Threshold = c.threshold
	for i, score := range result.Scores {
		result.Outliers[i] = score > c.threshold
		row := discretized.Row(i)
		row.SetCategoricalTarget(predictor.LabelCluster, strconv.Itoa(assignments[i]))
		row.SetTarget(predictor.LabelCBLOF, score)
	}

	c.model = m
	return result, nil
}

// Evaluate scores rec against the cluster it is most similar to.
func (c *cblof) Evaluate(_ context.Context, rec *table.Record) (float64, error) {
	m := c.model
	if m == nil {
		return 0, predictor.ErrNotFitted
	}
	row, err := m.discretizer.Transform(rec)
	if err != nil {
		return 0, fmt.Errorf("unable discretize record: %w", err)
	}
	closest := m.closest(row)
	if closest == nil {
		return 0, ErrNoClusters
	}
	return m.score(row, closest), nil
}

func (c *cblof) IsAnomaly(ctx context.Context, rec *table.Record) (bool, error) {
	score, err := c.Evaluate(ctx, rec)
	if err != nil {
		return false, err
	}
	return score > c.threshold, nil
}

func (c *cblof) run(ctx context.Context, n int, fn func(context.Context, int) error) error {
	if c.parallel {
		return c.pool.Run(ctx, n, fn)
	}
	return rworker.Serial(ctx, n, fn)
}

// score weighs the distance of row to its cluster by the cluster size. Rows of
// small clusters use the nearest large cluster instead.
func (m *model) score(row *table.Record, own *Cluster) float64 {
	if own.index <= m.split {
		return float64(own.size) * own.Distance(row)
	}
	minDistance := math.Inf(1)
	for _, large := range m.clusters[:m.split+1] {
		minDistance = math.Min(minDistance, large.Distance(row))
	}
	return float64(own.size) * minDistance
}

// closest returns the most similar cluster, the lower rank on ties.
func (m *model) closest(row *table.Record) *Cluster {
	var best *Cluster
	maxSim := math.Inf(-1)
	for _, cl := range m.clusters {
		if sim := cl.Similarity(row); sim > maxSim {
			maxSim = sim
			best = cl
		}
	}
	return best
}

// squeeze clusters rows in order. A row joins the most similar cluster, the
// earliest one on ties, when the similarity reaches s; otherwise it seeds a
// new cluster. assignments[i] is the position of row i's cluster.
func squeeze(batch *table.Table, s float64) ([]*Cluster, []int) {
	n := batch.Len()
	assignments := make([]int, n)
	if n == 0 {
		return nil, assignments
	}
	clusters := []*Cluster{newCluster(batch.Row(0))}
	for i := 1; i < n; i++ {
		row := batch.Row(i)
		best, maxSim := 0, math.Inf(-1)
		for j, cl := range clusters {
			if sim := cl.Similarity(row); sim > maxSim {
				best, maxSim = j, sim
			}
		}
		if maxSim < s {
			clusters = append(clusters, newCluster(row))
			assignments[i] = len(clusters) - 1
			continue
		}
		clusters[best].Add(row)
		assignments[i] = best
	}
	return clusters, assignments
}

// rank orders clusters by descending size, keeping creation order on ties, and
// fixes their indexes.
func rank(clusters []*Cluster, assignments []int) ([]*Cluster, []int) {
	order := make([]int, len(clusters))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return clusters[order[a]].size > clusters[order[b]].size
	})

	ranked := make([]*Cluster, len(clusters))
	position := make([]int, len(clusters))
	for r, i := range order {
		ranked[r] = clusters[i]
		ranked[r].index = r
		position[i] = r
	}
	remapped := make([]int, len(assignments))
	for i, a := range assignments {
		remapped[i] = position[a]
	}
	return ranked, remapped
}

// splitIndex scans ranked clusters and returns the rank of the last large
// cluster. The scan stops once the accumulated size covers alpha of all n
// rows, or when the next cluster is smaller than beta times the current one.
// Rank 0 never stops the scan.
func splitIndex(clusters []*Cluster, n int, alpha, beta float64) int {
	split := 0
	accumulated := 0
	for ; split < len(clusters)-1; split++ {
		size := clusters[split].size
		accumulated += size
		if split == 0 {
			continue
		}
		if float64(accumulated) >= alpha*float64(n) {
			break
		}
		if float64(clusters[split+1].size)/float64(size) < beta {
			break
		}
	}
	return split
}

// calibrate returns the score ranked round(ratio*n) from the top, counting
// from zero. It walks up the ranking while that score equals the lowest one.
func calibrate(scores []float64, ratio, fallback float64) float64 {
	orders := predictor.RankDesc(scores)
	if len(orders) == 0 {
		return fallback
	}
	position := int(math.Round(ratio * float64(len(orders))))
	if position >= len(orders) {
		position = len(orders) - 1
	}
	lowest := scores[orders[len(orders)-1]]
	for position > 0 && scores[orders[position]] == lowest {
		position--
	}
	return scores[orders[position]]
}
