package setup

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/go-sod/sod/internal/database"
	"github.com/go-sod/sod/internal/geom"
	"github.com/go-sod/sod/internal/predictor"
	"github.com/go-sod/sod/internal/predictor/cblof"
	"github.com/go-sod/sod/internal/predictor/ldof"
	"github.com/go-sod/sod/internal/predictor/loci"
	"github.com/go-sod/sod/internal/predictor/lof"
)

type testConfig struct {
	Predictor predictor.Config
	LOF       lof.Config
	LDOF      ldof.Config
	LOCI      loci.Config
	CBLOF     cblof.Config
	Database  database.Config
}

func (c *testConfig) PredictConfig() *predictor.Config { return &c.Predictor }
func (c *testConfig) PredictType() predictor.AlgType   { return c.Predictor.Type }
func (c *testConfig) LOFConfig() *lof.Config           { return &c.LOF }
func (c *testConfig) LDOFConfig() *ldof.Config         { return &c.LDOF }
func (c *testConfig) LOCIConfig() *loci.Config         { return &c.LOCI }
func (c *testConfig) CBLOFConfig() *cblof.Config       { return &c.CBLOF }
func (c *testConfig) DatabaseConfig() *database.Config { return &c.Database }

func TestSetup(t *testing.T) {
	ctx := context.Background()
	t.Setenv("SOD_DB_FILE", filepath.Join(t.TempDir(), "sod.db"))
	t.Setenv("SOD_PREDICTOR_TYPE", "LDOF")
	t.Setenv("SOD_LDOF_MIN_PTS", "4")

	config := &testConfig{}
	env, err := Setup(ctx, config)
	require.NoError(t, err)
	defer func() {
		assert.NoError(t, env.Close(ctx))
	}()

	assert.Equal(t, 4, config.LDOF.MinPts)
	assert.Equal(t, 3, config.LOF.MinPtsLB)
	assert.NotNil(t, env.Database())
	assert.NotNil(t, env.Pool())

	fitter, err := env.ProvidePredictor()()
	require.NoError(t, err)
	_, ok := fitter.(predictor.Predictor)
	assert.True(t, ok)

	// the provider reads the config on every call
	config.Predictor.Type = predictor.AlgTypeLoci
	fitter, err = env.ProvidePredictor()()
	require.NoError(t, err)
	_, ok = fitter.(predictor.Scorer)
	assert.False(t, ok)
}

func TestSetup_UnknownType(t *testing.T) {
	t.Setenv("SOD_DB_FILE", filepath.Join(t.TempDir(), "sod.db"))
	t.Setenv("SOD_PREDICTOR_TYPE", "ABOD")
	_, err := Setup(context.Background(), &testConfig{})
	assert.Error(t, err)
}

func TestProvidePredictorFor(t *testing.T) {
	tests := []struct {
		algType predictor.AlgType
		wantErr bool
	}{
		{algType: predictor.AlgTypeLof},
		{algType: predictor.AlgTypeLdof},
		{algType: predictor.AlgTypeLoci},
		{algType: predictor.AlgTypeCblof},
		{algType: "ABOD", wantErr: true},
	}
	for _, test := range tests {
		test := test
		t.Run(string(test.algType), func(t *testing.T) {
			config := &testConfig{}
			config.Predictor.Type = test.algType
			config.LOF = lof.Config{MinPtsLB: 3, MinPtsUB: 5, AutomaticThresholdingRatio: 0.1, MetricFuncType: geom.MetricEuclidean}
			config.LDOF = ldof.Config{MinPts: 5, AnomalyCount: 3, MetricFuncType: geom.MetricEuclidean}
			config.LOCI = loci.Config{Alpha: 0.5, KSigma: 3, MetricFuncType: geom.MetricEuclidean}
			config.CBLOF = cblof.Config{Threshold: 0.5, Alpha: 0.8, Beta: 0.1, SimilarityThreshold: 0.8, MaxLevels: 5}

			provideFn, err := ProvidePredictorFor(config, nil)
			if test.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			fitter, err := provideFn()
			require.NoError(t, err)
			assert.NotNil(t, fitter)
		})
	}

	t.Run("bad_distance", func(t *testing.T) {
		config := &testConfig{}
		config.Predictor.Type = predictor.AlgTypeLof
		config.LOF = lof.Config{MinPtsLB: 3, MinPtsUB: 5, MetricFuncType: "COSINE"}
		provideFn, err := ProvidePredictorFor(config, nil)
		require.NoError(t, err)
		_, err = provideFn()
		assert.Error(t, err)
	})
}
