package setup

import (
	"context"
	"fmt"

	"github.com/kelseyhightower/envconfig"

	"github.com/go-sod/sod/internal/database"
	"github.com/go-sod/sod/internal/logging"
	"github.com/go-sod/sod/internal/predictor"
	"github.com/go-sod/sod/internal/predictor/cblof"
	"github.com/go-sod/sod/internal/predictor/ldof"
	"github.com/go-sod/sod/internal/predictor/loci"
	"github.com/go-sod/sod/internal/predictor/lof"
	"github.com/go-sod/sod/internal/srvenv"
	"github.com/go-sod/sod/pkg/rworker"
)

type PredictorConfigProvider interface {
	PredictConfig() *predictor.Config
	PredictType() predictor.AlgType
	LOFConfig() *lof.Config
	LDOFConfig() *ldof.Config
	LOCIConfig() *loci.Config
	CBLOFConfig() *cblof.Config
}

type DatabaseConfigProvider interface {
	DatabaseConfig() *database.Config
}

// Setup loads config from the environment and builds the components the
// config asks for.
func Setup(ctx context.Context, config interface{}) (*srvenv.SrvEnv, error) {
	logger := logging.FromContext(ctx)
	var serverEnvOpts []srvenv.Option
	if err := envconfig.Process("", config); err != nil {
		return nil, fmt.Errorf("error loading environment variables: %w", err)
	}

	if dbConfigProvider, ok := config.(DatabaseConfigProvider); ok {
		logger.Info("configuring db")
		db, err := database.NewFromEnv(ctx, dbConfigProvider.DatabaseConfig())
		if err != nil {
			return nil, fmt.Errorf("unable to connect to database: %w", err)
		}
		serverEnvOpts = append(serverEnvOpts, srvenv.WithDatabase(db))
	}

	if predictConfigProvider, ok := config.(PredictorConfigProvider); ok {
		logger.Info("configuring predictor")
		pool := rworker.New(predictConfigProvider.PredictConfig().PoolSize)
		provideFn, err := ProvidePredictorFor(predictConfigProvider, pool)
		if err != nil {
			env := srvenv.New(serverEnvOpts...)
			if closeErr := env.Close(ctx); closeErr != nil {
				logger.Errorf("unable close env: %v", closeErr)
			}
			return nil, fmt.Errorf("unable create predictor provide function: %w", err)
		}
		serverEnvOpts = append(serverEnvOpts, srvenv.WithPool(pool), srvenv.WithPredictor(provideFn))
	}

	return srvenv.New(serverEnvOpts...), nil
}

// ProvidePredictorFor returns a constructor for the configured detector. The
// config is read on every call, so changes made after Setup are honored.
func ProvidePredictorFor(provider PredictorConfigProvider, pool *rworker.Pool) (predictor.ProvideFn, error) {
	if err := checkType(provider.PredictType()); err != nil {
		return nil, err
	}
	return func() (predictor.Fitter, error) {
		switch provider.PredictType() {
		case predictor.AlgTypeLof:
			opts, err := provider.LOFConfig().Options()
			if err != nil {
				return nil, err
			}
			l, err := lof.New(append(opts, lof.WithPool(pool))...)
			if err != nil {
				return nil, fmt.Errorf("unable create lof instance: %w", err)
			}
			return l, nil
		case predictor.AlgTypeLdof:
			opts, err := provider.LDOFConfig().Options()
			if err != nil {
				return nil, err
			}
			l, err := ldof.New(append(opts, ldof.WithPool(pool))...)
			if err != nil {
				return nil, fmt.Errorf("unable create ldof instance: %w", err)
			}
			return l, nil
		case predictor.AlgTypeLoci:
			opts, err := provider.LOCIConfig().Options()
			if err != nil {
				return nil, err
			}
			l, err := loci.New(append(opts, loci.WithPool(pool))...)
			if err != nil {
				return nil, fmt.Errorf("unable create loci instance: %w", err)
			}
			return l, nil
		case predictor.AlgTypeCblof:
			opts, err := provider.CBLOFConfig().Options()
			if err != nil {
				return nil, err
			}
			c, err := cblof.New(append(opts, cblof.WithPool(pool))...)
			if err != nil {
				return nil, fmt.Errorf("unable create cblof instance: %w", err)
			}
			return c, nil
		default:
			return nil, checkType(provider.PredictType())
		}
	}, nil
}

func checkType(t predictor.AlgType) error {
	switch t {
	case predictor.AlgTypeLof, predictor.AlgTypeLdof, predictor.AlgTypeLoci, predictor.AlgTypeCblof:
		return nil
	default:
		return fmt.Errorf("unknown predictor type: %s", t)
	}
}
