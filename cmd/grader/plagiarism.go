package main

import (
	"github.com/spf13/cobra"

	"github.com/noah-isme/gema-grader/internal/dto"
	"github.com/noah-isme/gema-grader/internal/service"
)

// NewPlagiarismCmd creates the plagiarism command.
func NewPlagiarismCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "plagiarism <file-or-url>...",
		Short: "Compare documents pairwise and flag similar pairs",
		Long: `Compare every pair of the given documents using TF-IDF cosine similarity.

Sources may be local paths or http(s) URLs. PDF and plain text are supported.
Documents that cannot be read are reported under "skipped". With no
arguments a JSON request {"file_urls": [...], "threshold": 75} is read from stdin.

Examples:
  grader plagiarism essay1.pdf essay2.pdf essay3.txt
  grader plagiarism --threshold 60 --all-pairs https://example.com/a.pdf b.pdf
  echo '{"file_urls": ["a.txt", "b.txt"]}' | grader plagiarism`,
		RunE: runPlagiarismCmd,
	}

	cmd.Flags().Float64P("threshold", "t", -1, "Similarity percentage at or above which a pair is flagged (default from config)")
	cmd.Flags().BoolP("all-pairs", "a", false, "Report every pair, not only flagged ones")

	return cmd
}

func runPlagiarismCmd(cmd *cobra.Command, args []string) error {
	rt, err := newRuntime(cmd)
	if err != nil {
		return fail(cmd, err)
	}

	req := dto.PlagiarismCheckRequest{FileURLs: args}
	if len(args) == 0 {
		if err := readRequest(cmd, &req); err != nil {
			return fail(cmd, err)
		}
	}
	if all, _ := cmd.Flags().GetBool("all-pairs"); all {
		req.IncludeAllPairs = true
	}
	if threshold, _ := cmd.Flags().GetFloat64("threshold"); threshold >= 0 {
		req.Threshold = &threshold
	}

	svc := service.NewPlagiarismService(rt.engine.Loader, rt.engine.Normalizer, newValidator(), service.PlagiarismConfig{
		DefaultThreshold:  rt.cfg.DefaultThreshold,
		MinDocumentLength: rt.cfg.MinDocumentLength,
		MaxFeatures:       rt.cfg.MaxFeatures,
	}, rt.logger)

	result, err := svc.Check(cmd.Context(), req)
	if err != nil {
		return fail(cmd, err)
	}
	return writeJSON(cmd.OutOrStdout(), result)
}
