package main

import (
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	sod "github.com/go-sod/sod/internal/config"
	"github.com/go-sod/sod/internal/logging"
	reportdb "github.com/go-sod/sod/internal/report/database"
	"github.com/go-sod/sod/internal/report/model"
	"github.com/go-sod/sod/internal/setup"
)

func newRunsCmd() *cobra.Command {
	runsCmd := &cobra.Command{
		Use:   "runs",
		Short: "Inspect runs stored with score --save",
	}

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List stored runs, oldest first",
		Args:  cobra.NoArgs,
		RunE:  runRunsList,
	}
	listCmd.Flags().StringP("algorithm", "a", "", "Only list runs of this detector")

	showCmd := &cobra.Command{
		Use:   "show <id>",
		Short: "Print the scores of one run",
		Args:  cobra.ExactArgs(1),
		RunE:  runRunsShow,
	}
	showCmd.Flags().Bool("outliers", false, "Only print flagged rows")

	deleteCmd := &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a stored run",
		Args:  cobra.ExactArgs(1),
		RunE:  runRunsDelete,
	}

	runsCmd.AddCommand(listCmd, showCmd, deleteCmd)
	return runsCmd
}

// withRuns opens the run store for the duration of fn.
func withRuns(cmd *cobra.Command, fn func(runs *reportdb.DB) error) error {
	ctx := cmd.Context()
	env, err := setup.Setup(ctx, &sod.StoreConfig{})
	if err != nil {
		return fmt.Errorf("setup.Setup: %w", err)
	}
	defer func() {
		if err := env.Close(ctx); err != nil {
			logging.FromContext(ctx).Errorf("unable close env: %v", err)
		}
	}()
	return fn(reportdb.New(env.Database()))
}

func runRunsList(cmd *cobra.Command, _ []string) error {
	var filters []reportdb.FilterFn
	if algorithm, _ := cmd.Flags().GetString("algorithm"); algorithm != "" {
		filters = append(filters, reportdb.ByAlgorithm(algorithm))
	}
	return withRuns(cmd, func(runs *reportdb.DB) error {
		found, err := runs.FindAll(cmd.Context(), filters...)
		if err != nil {
			return err
		}
		return printRuns(cmd.OutOrStdout(), found)
	})
}

func runRunsShow(cmd *cobra.Command, args []string) error {
	id, err := uuid.Parse(args[0])
	if err != nil {
		return fmt.Errorf("invalid run id %q: %w", args[0], err)
	}
	onlyOutliers, _ := cmd.Flags().GetBool("outliers")
	return withRuns(cmd, func(runs *reportdb.DB) error {
		run, err := runs.Find(cmd.Context(), id)
		if err != nil {
			return err
		}
		rows := run.Rows
		if onlyOutliers {
			rows = run.Outliers()
		}
		return printRows(cmd.OutOrStdout(), run, rows)
	})
}

func runRunsDelete(cmd *cobra.Command, args []string) error {
	id, err := uuid.Parse(args[0])
	if err != nil {
		return fmt.Errorf("invalid run id %q: %w", args[0], err)
	}
	return withRuns(cmd, func(runs *reportdb.DB) error {
		return runs.Delete(cmd.Context(), id)
	})
}

func printRuns(out io.Writer, runs []model.Run) error {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "ID\tALGORITHM\tSOURCE\tCREATED\tROWS\tOUTLIERS\tTHRESHOLD")
	for _, run := range runs {
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d\t%d\t%g\n",
			run.ID, run.Algorithm, run.Source, run.CreatedAt.Format(time.RFC3339),
			len(run.Rows), len(run.Outliers()), float64(run.Threshold))
	}
	return w.Flush()
}

func printRows(out io.Writer, run model.Run, rows []model.Row) error {
	_, _ = fmt.Fprintf(out, "%s %s on %s, threshold %g\n",
		run.ID, run.Algorithm, run.Source, float64(run.Threshold))
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "ROW\tSCORE\tOUTLIER")
	for _, row := range rows {
		_, _ = fmt.Fprintf(w, "%d\t%g\t%t\n", row.Index, float64(row.Score), row.Outlier)
	}
	return w.Flush()
}
