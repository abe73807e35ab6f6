package cblof

import (
	"github.com/go-sod/sod/internal/discretize"
)

type Config struct {
	Threshold                  float64 `envconfig:"SOD_CBLOF_THRESHOLD" default:"0.5"`
	Alpha                      float64 `envconfig:"SOD_CBLOF_ALPHA" default:"0.8"`
	Beta                       float64 `envconfig:"SOD_CBLOF_BETA" default:"0.1"`
	SimilarityThreshold        float64 `envconfig:"SOD_CBLOF_SIMILARITY_THRESHOLD" default:"0.8"`
	AutomaticThresholding      bool    `envconfig:"SOD_CBLOF_AUTO_THRESHOLD" default:"false"`
	AutomaticThresholdingRatio float64 `envconfig:"SOD_CBLOF_AUTO_THRESHOLD_RATIO" default:"0.05"`
	MaxLevels                  int     `envconfig:"SOD_CBLOF_MAX_LEVELS" default:"10"`
	Parallel                   bool    `envconfig:"SOD_CBLOF_PARALLEL" default:"true"`
}

func (c Config) Options() ([]Option, error) {
	return []Option{
		WithThreshold(c.Threshold),
		WithAlpha(c.Alpha),
		WithBeta(c.Beta),
		WithSimilarityThreshold(c.SimilarityThreshold),
		WithAutomaticThresholding(c.AutomaticThresholding),
		WithAutomaticThresholdingRatio(c.AutomaticThresholdingRatio),
		WithDiscretizer(discretize.NewKMeans(discretize.WithMaxLevels(c.MaxLevels))),
		WithParallel(c.Parallel),
	}, nil
}
