package main

import (
	"errors"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/cobra"

	"github.com/noah-isme/gema-grader/internal/dto"
	"github.com/noah-isme/gema-grader/internal/service"
)

func newValidator() *validator.Validate {
	return dto.NewValidator()
}

// NewEvaluateCmd creates the evaluate command.
func NewEvaluateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "evaluate",
		Short: "Grade an answer sheet against an answer key",
		Long: `Segment both documents into questions, pair them by question number and
score every answer on a 0-5 scale with feedback. Without --student and --key a
JSON request {"student_document": "...", "reference_document": "..."} is read
from stdin.

Examples:
  grader evaluate --student alice.pdf --key key.pdf
  grader evaluate -s alice.txt -k key.txt --name Alice`,
		Args: cobra.NoArgs,
		RunE: runEvaluateCmd,
	}

	cmd.Flags().StringP("student", "s", "", "Student answer sheet path or URL")
	cmd.Flags().StringP("key", "k", "", "Answer key path or URL")
	cmd.Flags().StringP("name", "n", "", "Student name")
	cmd.Flags().StringP("label", "l", "", "Label recorded with the result")

	return cmd
}

func runEvaluateCmd(cmd *cobra.Command, _ []string) error {
	student, _ := cmd.Flags().GetString("student")
	key, _ := cmd.Flags().GetString("key")

	req := dto.GradingRequest{StudentSource: student, ReferenceSource: key}
	switch {
	case student == "" && key == "":
		if err := readRequest(cmd, &req); err != nil {
			return fail(cmd, err)
		}
	case student == "" || key == "":
		return fail(cmd, errors.New("both --student and --key are required"))
	}
	if name, _ := cmd.Flags().GetString("name"); name != "" {
		req.StudentName = name
	}
	if label, _ := cmd.Flags().GetString("label"); label != "" {
		req.Label = label
	}

	rt, err := newRuntime(cmd)
	if err != nil {
		return fail(cmd, err)
	}

	svc := service.NewGradingService(rt.engine.Grader, rt.engine.Loader, nil, nil, newValidator(), service.GradingConfig{
		EmbeddingTimeout: rt.cfg.EmbeddingTimeout,
	}, rt.logger)

	result, err := svc.Evaluate(cmd.Context(), req)
	if err != nil {
		return fail(cmd, err)
	}
	return writeJSON(cmd.OutOrStdout(), result)
}
