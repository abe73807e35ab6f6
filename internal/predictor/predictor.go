package predictor

import (
	"context"
	"errors"

	"github.com/go-sod/sod/internal/table"
)

var (
	ErrNotFitted  = errors.New("model is not fitted")
	ErrEmptyBatch = errors.New("batch has no rows")
)

// Target cells written on the rows of a fitted model.
const (
	LabelPredicted = "label"
	LabelAnomaly   = "anomaly"
	LabelCluster   = "cluster"
	LabelCBLOF     = "CBLOF"

	Outlier = "OUTLIER"
	Normal  = "NORMAL"
)

type ProvideFn func() (Fitter, error)

// Fitter scores a whole batch. The batch is never modified; the detector
// keeps its own snapshot as the fitted model.
type Fitter interface {
	Fit(ctx context.Context, batch *table.Table) (*Result, error)
}

// Scorer scores single records against a fitted model. Calls are safe to run
// concurrently with each other but not with Fit.
type Scorer interface {
	Evaluate(ctx context.Context, rec *table.Record) (float64, error)
	IsAnomaly(ctx context.Context, rec *table.Record) (bool, error)
}

type Predictor interface {
	Fitter
	Scorer
}

// Result holds the per-row outcome of a fit, indexed by row position in the
// fitted batch.
type Result struct {
	Scores   []float64
	Outliers []bool
	// Threshold is the cut-off used for Outliers when the detector has one.
	Threshold float64
}

func NewResult(n int) *Result {
	return &Result{Scores: make([]float64, n), Outliers: make([]bool, n)}
}

func (r *Result) Len() int { return len(r.Scores) }

// OutlierIndexes returns the positions flagged as outliers in row order.
func (r *Result) OutlierIndexes() []int {
	var idx []int
	for i, o := range r.Outliers {
		if o {
			idx = append(idx, i)
		}
	}
	return idx
}
