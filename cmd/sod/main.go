package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/go-sod/sod/internal/buildinfo"
	"github.com/go-sod/sod/internal/logging"
	"github.com/go-sod/sod/internal/shutdown"
)

func main() {
	ctx, done := shutdown.New()
	logger := logging.NewLoggerFromEnv()
	ctx = logging.WithLogger(ctx, logger)

	err := newRootCmd().ExecuteContext(ctx)
	done()
	if err != nil {
		logger.Fatal(err)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "sod",
		Short: "Statistical outlier detection for tabular data",
		Long: `sod scores the rows of a CSV file with one of four unsupervised detectors:
LOF, LDOF, LOCI and CBLOF. Detector settings come from SOD_* environment
variables; command line flags override them.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			_, _ = fmt.Fprint(cmd.OutOrStdout(), buildinfo.Graffiti)
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), buildinfo.Info.String())
		},
	})
	rootCmd.AddCommand(newScoreCmd())
	rootCmd.AddCommand(newGenerateCmd())
	rootCmd.AddCommand(newRunsCmd())

	return rootCmd
}
