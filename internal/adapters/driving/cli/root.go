// Package cli implements the ragpipe command-line interface.
package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/parchlab/ragpipe/internal/adapters/driven/ai"
	configfile "github.com/parchlab/ragpipe/internal/adapters/driven/config/file"
	"github.com/parchlab/ragpipe/internal/chunker"
	"github.com/parchlab/ragpipe/internal/core/ports/driving"
	"github.com/parchlab/ragpipe/internal/core/services"
	"github.com/parchlab/ragpipe/internal/logger"
)

// version is set at build time via -ldflags.
var version = "dev"

var (
	configPath string
	verbose    bool

	// Wired in PersistentPreRunE, torn down in PersistentPostRun.
	adapters        *ai.InitResult
	pipelineService driving.PipelineService
)

var rootCmd = &cobra.Command{
	Use:   "ragpipe",
	Short: "Ingest documents and answer questions over them",
	Long: `ragpipe is a retrieval-augmented generation pipeline.
Documents are split into overlapping chunks, embedded and stored;
queries retrieve the most similar chunks and generate a sourced answer.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
		logger.SetVerbose(verbose)

		if !commandNeedsServices(cmd) {
			return nil
		}
		// Already wired, e.g. by tests.
		if pipelineService != nil {
			return nil
		}

		cfg, err := configfile.Load(configPath)
		if err != nil {
			return err
		}

		adapters, err = ai.Init(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		for _, w := range adapters.Warnings {
			fmt.Fprintf(cmd.ErrOrStderr(), "warning: %s\n", w)
		}

		policy := chunker.NewPolicy(
			chunker.WithDefaultSize(cfg.Chunking.DefaultSize),
			chunker.WithSizeRange(cfg.Chunking.MinSize, cfg.Chunking.MaxSize),
			chunker.WithMaxOverlap(cfg.Chunking.MaxOverlap),
		)

		pipelineService = services.NewPipelineService(
			adapters.Store,
			adapters.Embedding,
			adapters.LLM,
			adapters.Extractor,
			services.WithChunkingPolicy(policy),
			services.WithMaxTopK(cfg.Query.MaxTopK),
		)
		return nil
	},
	PersistentPostRun: func(_ *cobra.Command, _ []string) {
		if adapters != nil {
			adapters.Close()
			adapters = nil
		}
	},
}

// commandNeedsServices reports whether cmd operates on the pipeline.
// Version and help run without touching config or storage.
func commandNeedsServices(cmd *cobra.Command) bool {
	switch cmd.Name() {
	case "version", "help", "completion":
		return false
	}
	return true
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "config file (default ~/.ragpipe/config.toml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose logging")
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
