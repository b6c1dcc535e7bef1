package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
)

var clearYes bool

var clearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Delete every stored chunk",
	Long:  `Removes all stored chunks and resets chunk identifiers.`,
	Args:  cobra.NoArgs,
	RunE:  runClear,
}

var warmupCmd = &cobra.Command{
	Use:   "warmup",
	Short: "Initialise the embedding provider",
	Long: `Forces embedding-provider initialisation so the first real request
does not pay the model load or connectivity cost.`,
	Args: cobra.NoArgs,
	RunE: runWarmup,
}

var healthCmd = &cobra.Command{
	Use:   "health",
	Short: "Check datastore connectivity",
	Args:  cobra.NoArgs,
	RunE:  runHealth,
}

func init() {
	clearCmd.Flags().BoolVarP(&clearYes, "yes", "y", false, "skip the confirmation prompt")
	rootCmd.AddCommand(clearCmd)
	rootCmd.AddCommand(warmupCmd)
	rootCmd.AddCommand(healthCmd)
}

func runClear(cmd *cobra.Command, _ []string) error {
	if pipelineService == nil {
		return errors.New("pipeline service not configured")
	}

	if !clearYes {
		cmd.Print("Delete all stored chunks? [y/N] ")
		var reply string
		fmt.Fscanln(cmd.InOrStdin(), &reply)
		if reply != "y" && reply != "Y" {
			cmd.Println("Aborted.")
			return nil
		}
	}

	if err := pipelineService.Clear(cmd.Context()); err != nil {
		return err
	}
	cmd.Println("All chunks deleted.")
	return nil
}

func runWarmup(cmd *cobra.Command, _ []string) error {
	if pipelineService == nil {
		return errors.New("pipeline service not configured")
	}

	if err := pipelineService.Warmup(cmd.Context()); err != nil {
		return err
	}
	cmd.Println("Embedding provider ready.")
	return nil
}

func runHealth(cmd *cobra.Command, _ []string) error {
	if pipelineService == nil {
		return errors.New("pipeline service not configured")
	}

	if err := pipelineService.Health(cmd.Context()); err != nil {
		return err
	}
	cmd.Println("ok")
	return nil
}
