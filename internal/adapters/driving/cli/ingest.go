package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/parchlab/ragpipe/internal/core/domain"
)

var (
	ingestTitle     string
	ingestChunkSize int
	ingestJSON      bool
)

var ingestCmd = &cobra.Command{
	Use:   "ingest [file]",
	Short: "Ingest a text document",
	Long: `Reads a text or markdown file (or stdin when no file is given),
splits it into overlapping chunks, embeds them and stores them atomically.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runIngest,
}

var ingestPDFCmd = &cobra.Command{
	Use:   "ingest-pdf <file>",
	Short: "Extract and ingest a PDF document",
	Long: `Extracts text from a PDF using the configured extraction tool,
then chunks, embeds and stores it like a plain-text ingestion.`,
	Args: cobra.ExactArgs(1),
	RunE: runIngestPDF,
}

func init() {
	ingestCmd.Flags().StringVarP(&ingestTitle, "title", "t", "", "document title (defaults to the file name)")
	ingestCmd.Flags().IntVar(&ingestChunkSize, "chunk-size", 0, "chunk window size in characters (0 = default)")
	ingestCmd.Flags().BoolVar(&ingestJSON, "json", false, "output result as JSON")
	rootCmd.AddCommand(ingestCmd)

	ingestPDFCmd.Flags().StringVarP(&ingestTitle, "title", "t", "", "document title (defaults to the file name)")
	ingestPDFCmd.Flags().IntVar(&ingestChunkSize, "chunk-size", 0, "chunk window size in characters (0 = default)")
	ingestPDFCmd.Flags().BoolVar(&ingestJSON, "json", false, "output result as JSON")
	rootCmd.AddCommand(ingestPDFCmd)
}

func runIngest(cmd *cobra.Command, args []string) error {
	if pipelineService == nil {
		return errors.New("pipeline service not configured")
	}

	var (
		text  string
		title = ingestTitle
	)
	if len(args) == 1 {
		data, err := os.ReadFile(args[0])
		if err != nil {
			return fmt.Errorf("reading %s: %w", args[0], err)
		}
		text = string(data)
		if title == "" {
			title = strings.TrimSuffix(filepath.Base(args[0]), filepath.Ext(args[0]))
		}
	} else {
		data, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return fmt.Errorf("reading stdin: %w", err)
		}
		text = string(data)
	}

	result, err := pipelineService.Ingest(cmd.Context(), title, text, ingestChunkSize)
	if err != nil {
		return err
	}
	return outputIngestResult(cmd, result)
}

func runIngestPDF(cmd *cobra.Command, args []string) error {
	if pipelineService == nil {
		return errors.New("pipeline service not configured")
	}

	result, err := pipelineService.IngestPDF(cmd.Context(), ingestTitle, args[0], ingestChunkSize)
	if err != nil {
		return err
	}
	return outputIngestResult(cmd, result)
}

func outputIngestResult(cmd *cobra.Command, result domain.IngestResult) error {
	if ingestJSON {
		data, err := json.MarshalIndent(result, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal result: %w", err)
		}
		cmd.Println(string(data))
		return nil
	}

	cmd.Printf("Ingested %q: %d chunks stored.\n", result.Title, result.Chunks)
	if result.TextPreview != "" {
		cmd.Printf("Extracted %d characters (preview shown on --json).\n", len(result.TextPreview))
	}
	return nil
}
