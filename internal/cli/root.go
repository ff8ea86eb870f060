package cli

import (
	"context"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "coder",
	Short: "Label free-text survey answers with an LLM",
	Long: `coder assigns category labels to free-text survey answers by sending
unlabeled rows to a chat model, pass after pass, until every row has codes.
Progress is checkpointed to the output file, so an interrupted run picks up
where it left off.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(resumeCmd)
	rootCmd.AddCommand(summarizeCmd)
	rootCmd.AddCommand(statusCmd)

	// Global flags
	rootCmd.PersistentFlags().String("log-level", "info", "Log level: debug, info, warn, error")
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

// ExecuteContext runs the root command with ctx, normally cancelled on SIGINT
func ExecuteContext(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}
