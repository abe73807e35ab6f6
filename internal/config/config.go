package sod

import (
	"github.com/go-sod/sod/internal/database"
	"github.com/go-sod/sod/internal/predictor"
	"github.com/go-sod/sod/internal/predictor/cblof"
	"github.com/go-sod/sod/internal/predictor/ldof"
	"github.com/go-sod/sod/internal/predictor/loci"
	"github.com/go-sod/sod/internal/predictor/lof"
	"github.com/go-sod/sod/internal/setup"
)

var (
	_ setup.PredictorConfigProvider = (*Config)(nil)
	_ setup.DatabaseConfigProvider  = (*Config)(nil)
	_ setup.PredictorConfigProvider = (*ScoreConfig)(nil)
	_ setup.DatabaseConfigProvider  = (*StoreConfig)(nil)
)

// ScoreConfig configures fitting detectors without a run store.
type ScoreConfig struct {
	Predictor predictor.Config
	LOF       lof.Config
	LDOF      ldof.Config
	LOCI      loci.Config
	CBLOF     cblof.Config
}

func (c *ScoreConfig) PredictType() predictor.AlgType {
	return c.Predictor.Type
}

func (c *ScoreConfig) PredictConfig() *predictor.Config {
	return &c.Predictor
}

func (c *ScoreConfig) LOFConfig() *lof.Config {
	return &c.LOF
}

func (c *ScoreConfig) LDOFConfig() *ldof.Config {
	return &c.LDOF
}

func (c *ScoreConfig) LOCIConfig() *loci.Config {
	return &c.LOCI
}

func (c *ScoreConfig) CBLOFConfig() *cblof.Config {
	return &c.CBLOF
}

// StoreConfig configures the run store alone.
type StoreConfig struct {
	Database database.Config
}

func (c *StoreConfig) DatabaseConfig() *database.Config {
	return &c.Database
}

// Config configures detectors together with the run store.
type Config struct {
	ScoreConfig
	StoreConfig
}
