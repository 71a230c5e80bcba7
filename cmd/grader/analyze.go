package main

import (
	"errors"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/noah-isme/gema-grader/internal/service"
	"github.com/noah-isme/gema-grader/pkg/analytics"
)

// NewAnalyzeCmd creates the analyze command.
func NewAnalyzeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "analyze <scores.csv|->",
		Short: "Summarise class performance from a score export",
		Long: `Read a CSV export with the columns
  Student Name, Score/5, Topic, Student Answer, Reference Answer
and print overall statistics, top students, topic difficulty, topic clusters
and common errors. Use "-" to read from stdin.`,
		Args: cobra.ExactArgs(1),
		RunE: runAnalyzeCmd,
	}

	cmd.Flags().Bool("no-clusters", false, "Skip topic clustering")

	return cmd
}

func runAnalyzeCmd(cmd *cobra.Command, args []string) error {
	var input io.Reader = cmd.InOrStdin()
	if args[0] != "-" {
		file, err := os.Open(args[0])
		if err != nil {
			return fail(cmd, err)
		}
		defer file.Close()
		input = file
	}

	rt, err := newRuntime(cmd)
	if err != nil {
		return fail(cmd, err)
	}

	analyzer := rt.engine.Analyzer
	if skip, _ := cmd.Flags().GetBool("no-clusters"); skip {
		analyzer = analytics.NewAnalyzer(analytics.Options{
			ClusterCount:      rt.cfg.ClusterCount,
			ClusterSeed:       rt.cfg.ClusterSeed,
			MaxFeatures:       rt.cfg.MaxFeatures,
			DisableClustering: true,
		})
	}

	svc := service.NewAnalyticsService(analyzer, nil, newValidator(), rt.logger)
	result, err := svc.AnalyzeCSV(cmd.Context(), input)
	if err != nil {
		if errors.Is(err, analytics.ErrNoData) {
			return fail(cmd, errors.New(analytics.NoDataMessage))
		}
		return fail(cmd, err)
	}
	return writeJSON(cmd.OutOrStdout(), result)
}
