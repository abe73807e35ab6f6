package ldof

import (
	"fmt"

	"github.com/go-sod/sod/internal/geom"
)

type Config struct {
	MinPts         int             `envconfig:"SOD_LDOF_MIN_PTS" default:"5"`
	AnomalyCount   int             `envconfig:"SOD_LDOF_ANOMALY_COUNT" default:"10"`
	LowerBound     float64         `envconfig:"SOD_LDOF_LOWER_BOUND" default:"0"`
	Parallel       bool            `envconfig:"SOD_LDOF_PARALLEL" default:"true"`
	MetricFuncType geom.MetricType `envconfig:"SOD_LDOF_DISTANCE_FUNC" default:"EUCLIDEAN"`
}

func (c Config) Options() ([]Option, error) {
	distFunc, err := geom.MetricFor(c.MetricFuncType)
	if err != nil {
		return nil, fmt.Errorf("unable provide distance function: %w", err)
	}
	return []Option{
		WithMinPts(c.MinPts),
		WithAnomalyCount(c.AnomalyCount),
		WithLowerBound(c.LowerBound),
		WithParallel(c.Parallel),
		WithDistance(distFunc),
	}, nil
}
