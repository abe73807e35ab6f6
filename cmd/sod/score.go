package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	sod "github.com/go-sod/sod/internal/config"
	"github.com/go-sod/sod/internal/csvio"
	"github.com/go-sod/sod/internal/geom"
	"github.com/go-sod/sod/internal/logging"
	"github.com/go-sod/sod/internal/predictor"
	reportdb "github.com/go-sod/sod/internal/report/database"
	"github.com/go-sod/sod/internal/report/model"
	"github.com/go-sod/sod/internal/setup"
	"github.com/go-sod/sod/internal/table"
)

func newScoreCmd() *cobra.Command {
	scoreCmd := &cobra.Command{
		Use:   "score",
		Short: "Fit a detector on a CSV file and write the scored rows",
		Long: `Fit a detector on every row of --input and write the rows back with their
score and outlier flag. With --query the fitted model scores the rows of
another file instead; LOCI cannot score single records.`,
		RunE: runScore,
	}
	flags := scoreCmd.Flags()
	flags.StringP("input", "i", "", "CSV file to fit on, with a header row")
	flags.StringP("output", "o", "-", "Output CSV file, - for stdout")
	flags.String("query", "", "CSV file to score against the fitted model")
	flags.StringSlice("categorical", nil, "Columns read as categorical even when numeric")
	flags.Bool("save", false, "Store the run in the run database")

	flags.StringP("algorithm", "a", "", "Detector: LOF, LDOF, LOCI or CBLOF")
	flags.String("distance", "", "Distance: EUCLIDEAN, CHEBYSHEV or MANHATTAN")
	flags.Bool("parallel", true, "Score rows on the shared worker pool")
	flags.Int("k-min", 0, "LOF: smallest neighborhood size")
	flags.Int("k-max", 0, "LOF: largest neighborhood size")
	flags.Int("min-pts", 0, "LDOF: neighborhood size")
	flags.Int("anomaly-count", 0, "LDOF: number of fitted rows to flag")
	flags.Float64("lower-bound", 0, "LDOF: smallest score of a flagged row")
	flags.Float64("threshold", 0, "LOF, CBLOF: score threshold")
	flags.Bool("auto-threshold", false, "LOF, CBLOF: calibrate the threshold on the fitted scores")
	flags.Float64("ratio", 0, "LOF, CBLOF: share of fitted rows above the calibrated threshold")
	flags.Float64("alpha", 0, "LOCI: counting to sampling radius ratio; CBLOF: share of rows in large clusters")
	flags.Float64("k-sigma", 0, "LOCI: flagging deviation in standard deviations")
	flags.Float64("beta", 0, "CBLOF: size ratio that separates large from small clusters")
	flags.Float64("similarity", 0, "CBLOF: similarity needed to join a cluster")
	flags.Int("levels", 0, "CBLOF: discretization levels per numeric column")
	_ = scoreCmd.MarkFlagRequired("input")

	return scoreCmd
}

func runScore(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	logger := logging.FromContext(ctx)
	flags := cmd.Flags()

	save, _ := flags.GetBool("save")
	var (
		config interface{}
		score  *sod.ScoreConfig
	)
	if save {
		cfg := &sod.Config{}
		config, score = cfg, &cfg.ScoreConfig
	} else {
		cfg := &sod.ScoreConfig{}
		config, score = cfg, cfg
	}
	env, err := setup.Setup(ctx, config)
	if err != nil {
		return fmt.Errorf("setup.Setup: %w", err)
	}
	defer func() {
		if err := env.Close(ctx); err != nil {
			logger.Errorf("unable close env: %v", err)
		}
	}()
	applyScoreFlags(flags, score)

	input, _ := flags.GetString("input")
	categorical, _ := flags.GetStringSlice("categorical")
	batch, err := csvio.ReadFile(input, csvio.WithCategorical(categorical...))
	if err != nil {
		return fmt.Errorf("unable read input: %w", err)
	}

	fitter, err := env.ProvidePredictor()()
	if err != nil {
		return fmt.Errorf("predictor provider function error: %w", err)
	}
	result, err := fitter.Fit(ctx, batch)
	if err != nil {
		return fmt.Errorf("unable fit %s: %w", score.PredictType(), err)
	}
	logger.Infof("%s flagged %d of %d rows, threshold %g",
		score.PredictType(), len(result.OutlierIndexes()), result.Len(), result.Threshold)

	if save {
		run := model.NewRun(string(score.PredictType()), input, result)
		if err := reportdb.New(env.Database()).Store(ctx, run); err != nil {
			return fmt.Errorf("unable store run: %w", err)
		}
		_, _ = fmt.Fprintf(cmd.ErrOrStderr(), "stored run %s\n", run.ID)
	}

	out, closeOut, err := openOutput(cmd)
	if err != nil {
		return err
	}
	defer closeOut()

	query, _ := flags.GetString("query")
	if query == "" {
		return csvio.WriteScores(out, batch, result)
	}

	scorer, ok := fitter.(predictor.Scorer)
	if !ok {
		return fmt.Errorf("%s does not score single records", score.PredictType())
	}
	queries, err := csvio.ReadFile(query, csvio.WithCategorical(categorical...))
	if err != nil {
		return fmt.Errorf("unable read query: %w", err)
	}
	scored, err := scoreRecords(cmd, scorer, queries)
	if err != nil {
		return err
	}
	return csvio.WriteScores(out, queries, scored)
}

func scoreRecords(cmd *cobra.Command, scorer predictor.Scorer, queries *table.Table) (*predictor.Result, error) {
	ctx := cmd.Context()
	result := predictor.NewResult(queries.Len())
	for i := 0; i < queries.Len(); i++ {
		score, err := scorer.Evaluate(ctx, queries.Row(i))
		if err != nil {
			return nil, fmt.Errorf("unable score query row %d: %w", i, err)
		}
		anomaly, err := scorer.IsAnomaly(ctx, queries.Row(i))
		if err != nil {
			return nil, fmt.Errorf("unable score query row %d: %w", i, err)
		}
		result.Scores[i], result.Outliers[i] = score, anomaly
	}
	return result, nil
}

func openOutput(cmd *cobra.Command) (io.Writer, func(), error) {
	output, _ := cmd.Flags().GetString("output")
	if output == "" || output == "-" {
		return cmd.OutOrStdout(), func() {}, nil
	}
	f, err := os.Create(output)
	if err != nil {
		return nil, nil, fmt.Errorf("unable create output: %w", err)
	}
	return f, func() {
		if err := f.Close(); err != nil {
			logging.FromContext(cmd.Context()).Errorf("unable close output: %v", err)
		}
	}, nil
}

// applyScoreFlags copies the flags set on the command line over the values
// loaded from the environment.
func applyScoreFlags(flags *pflag.FlagSet, cfg *sod.ScoreConfig) {
	if flags.Changed("algorithm") {
		v, _ := flags.GetString("algorithm")
		cfg.Predictor.Type = predictor.AlgType(strings.ToUpper(v))
	}
	if flags.Changed("distance") {
		v, _ := flags.GetString("distance")
		metric := geom.MetricType(strings.ToUpper(v))
		cfg.LOF.MetricFuncType = metric
		cfg.LDOF.MetricFuncType = metric
		cfg.LOCI.MetricFuncType = metric
	}
	if flags.Changed("parallel") {
		v, _ := flags.GetBool("parallel")
		cfg.LOF.Parallel, cfg.LDOF.Parallel, cfg.LOCI.Parallel, cfg.CBLOF.Parallel = v, v, v, v
	}
	if flags.Changed("k-min") {
		cfg.LOF.MinPtsLB, _ = flags.GetInt("k-min")
	}
	if flags.Changed("k-max") {
		cfg.LOF.MinPtsUB, _ = flags.GetInt("k-max")
	}
	if flags.Changed("min-pts") {
		cfg.LDOF.MinPts, _ = flags.GetInt("min-pts")
	}
	if flags.Changed("anomaly-count") {
		cfg.LDOF.AnomalyCount, _ = flags.GetInt("anomaly-count")
	}
	if flags.Changed("lower-bound") {
		cfg.LDOF.LowerBound, _ = flags.GetFloat64("lower-bound")
	}
	if flags.Changed("threshold") {
		v, _ := flags.GetFloat64("threshold")
		cfg.LOF.Threshold, cfg.CBLOF.Threshold = v, v
	}
	if flags.Changed("auto-threshold") {
		v, _ := flags.GetBool("auto-threshold")
		cfg.LOF.AutomaticThresholding, cfg.CBLOF.AutomaticThresholding = v, v
	}
	if flags.Changed("ratio") {
		v, _ := flags.GetFloat64("ratio")
		cfg.LOF.AutomaticThresholdingRatio, cfg.CBLOF.AutomaticThresholdingRatio = v, v
	}
	if flags.Changed("alpha") {
		v, _ := flags.GetFloat64("alpha")
		cfg.LOCI.Alpha, cfg.CBLOF.Alpha = v, v
	}
	if flags.Changed("k-sigma") {
		cfg.LOCI.KSigma, _ = flags.GetFloat64("k-sigma")
	}
	if flags.Changed("beta") {
		cfg.CBLOF.Beta, _ = flags.GetFloat64("beta")
	}
	if flags.Changed("similarity") {
		cfg.CBLOF.SimilarityThreshold, _ = flags.GetFloat64("similarity")
	}
	if flags.Changed("levels") {
		cfg.CBLOF.MaxLevels, _ = flags.GetInt("levels")
	}
}
