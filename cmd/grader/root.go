// Package main provides the offline grading CLI.
package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/noah-isme/gema-grader/internal/config"
	"github.com/noah-isme/gema-grader/internal/database"
	"github.com/noah-isme/gema-grader/internal/engine"
)

// NewRootCmd creates the root command for the grader CLI.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "grader",
		Short: "Score answer sheets, detect plagiarism and analyse class results",
		Long: `grader runs the grading engine locally without the HTTP service.

Every command prints a JSON document on stdout. Failures print {"error": "..."}
and exit with a non-zero status.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().BoolP("verbose", "v", false, "Log progress to stderr")

	cmd.AddCommand(NewPlagiarismCmd())
	cmd.AddCommand(NewEvaluateCmd())
	cmd.AddCommand(NewAnalyzeCmd())

	return cmd
}

// Execute runs the root command.
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

type runtime struct {
	cfg    config.Config
	engine *engine.Engine
	logger zerolog.Logger
}

func newRuntime(cmd *cobra.Command) (*runtime, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	logger := zerolog.Nop()
	if verbose, _ := cmd.Flags().GetBool("verbose"); verbose {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: cmd.ErrOrStderr()}).With().Timestamp().Logger()
	}

	var cache *redis.Client
	if cfg.RedisURL != "" {
		if cache, err = database.ConnectRedis(cfg.RedisURL); err != nil {
			logger.Warn().Err(err).Msg("redis unavailable, embedding cache disabled")
			cache = nil
		}
	}

	eng, err := engine.New(cfg, cache, logger)
	if err != nil {
		return nil, err
	}

	return &runtime{cfg: cfg, engine: eng, logger: logger}, nil
}

func readRequest(cmd *cobra.Command, v interface{}) error {
	if err := json.NewDecoder(cmd.InOrStdin()).Decode(v); err != nil {
		return fmt.Errorf("decode request from stdin: %w", err)
	}
	return nil
}

func writeJSON(w io.Writer, v interface{}) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}

// fail prints the error document and returns err so the process exits non-zero.
func fail(cmd *cobra.Command, err error) error {
	if writeErr := writeJSON(cmd.OutOrStdout(), map[string]string{"error": err.Error()}); writeErr != nil {
		return fmt.Errorf("%w (and failed to write output: %v)", err, writeErr)
	}
	return err
}
