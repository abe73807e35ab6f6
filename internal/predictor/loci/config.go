package loci

import (
	"fmt"

	"github.com/go-sod/sod/internal/geom"
)

type Config struct {
	Alpha          float64         `envconfig:"SOD_LOCI_ALPHA" default:"0.5"`
	KSigma         float64         `envconfig:"SOD_LOCI_K_SIGMA" default:"3"`
	Parallel       bool            `envconfig:"SOD_LOCI_PARALLEL" default:"true"`
	MetricFuncType geom.MetricType `envconfig:"SOD_LOCI_DISTANCE_FUNC" default:"EUCLIDEAN"`
}

func (c Config) Options() ([]Option, error) {
	distFunc, err := geom.MetricFor(c.MetricFuncType)
	if err != nil {
		return nil, fmt.Errorf("unable provide distance function: %w", err)
	}
	return []Option{
		WithAlpha(c.Alpha),
		WithKSigma(c.KSigma),
		WithParallel(c.Parallel),
		WithDistance(distFunc),
	}, nil
}
