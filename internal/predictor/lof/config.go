package lof

import (
	"fmt"

	"github.com/go-sod/sod/internal/geom"
)

type Config struct {
	MinPtsLB                   int             `envconfig:"SOD_LOF_MIN_PTS_LB" default:"3"`
	MinPtsUB                   int             `envconfig:"SOD_LOF_MIN_PTS_UB" default:"10"`
	Threshold                  float64         `envconfig:"SOD_LOF_THRESHOLD" default:"0.5"`
	AutomaticThresholding      bool            `envconfig:"SOD_LOF_AUTO_THRESHOLD" default:"true"`
	AutomaticThresholdingRatio float64         `envconfig:"SOD_LOF_AUTO_THRESHOLD_RATIO" default:"0.05"`
	Parallel                   bool            `envconfig:"SOD_LOF_PARALLEL" default:"true"`
	AddPredictedLabel          bool            `envconfig:"SOD_LOF_PREDICTED_LABEL" default:"false"`
	MetricFuncType             geom.MetricType `envconfig:"SOD_LOF_DISTANCE_FUNC" default:"EUCLIDEAN"`
}

// Options converts the config into constructor options.
func (c Config) Options() ([]Option, error) {
	distFunc, err := geom.MetricFor(c.MetricFuncType)
	if err != nil {
		return nil, fmt.Errorf("unable provide distance function: %w", err)
	}
	return []Option{
		WithSearchRange(c.MinPtsLB, c.MinPtsUB),
		WithThreshold(c.Threshold),
		WithAutomaticThresholding(c.AutomaticThresholding),
		WithAutomaticThresholdingRatio(c.AutomaticThresholdingRatio),
		WithParallel(c.Parallel),
		WithPredictedLabel(c.AddPredictedLabel),
		WithDistance(distFunc),
	}, nil
}
