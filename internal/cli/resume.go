package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/alvinkoh256/Survey-Response-Coder/internal/runstate"
)

var resumeCmd = &cobra.Command{
	Use:   "resume",
	Short: "Continue an interrupted or failed run",
	Long: `Resume reads the run state saved beside an output file and starts a new
run with the same config, model, provider and cache. The last checkpoint of
the output file is used as input, so only rows that are still blank are sent.`,
	RunE: runResume,
}

func init() {
	resumeCmd.Flags().StringP("output", "o", "", "Output dataset of the run to resume")
	resumeCmd.Flags().Int("max-attempts", 0, "Consecutive failed passes before giving up, 0 for unlimited")
	resumeCmd.Flags().Bool("no-verbose", false, "Print pass summaries only, not every labeled row")
	resumeCmd.MarkFlagRequired("output")
}

func runResume(cmd *cobra.Command, args []string) error {
	logger := newLogger(cmd)

	output, _ := cmd.Flags().GetString("output")
	statePath := runstate.PathFor(output)
	state, err := runstate.LoadRunState(statePath)
	if err != nil {
		return fmt.Errorf("no run to resume for %s: %w", output, err)
	}

	job := runJob{
		RunID:        newRunID(),
		Input:        state.Input,
		Output:       state.Output,
		ConfigPath:   state.Config,
		Sheet:        state.Sheet,
		Model:        state.Model,
		BatchSize:    state.BatchSize,
		Provider:     state.Provider,
		Cache:        state.Cache,
		CacheBackend: state.CacheBackend,
		Events:       state.Events,
	}
	if _, err := os.Stat(state.Output); err == nil {
		// the checkpoint holds every label written so far
		job.Input = state.Output
	}
	if cmd.Flags().Changed("max-attempts") {
		job.MaxAttempts, _ = cmd.Flags().GetInt("max-attempts")
		job.hasMaxAttempts = true
	}
	noVerbose, _ := cmd.Flags().GetBool("no-verbose")
	job.Verbose = !noVerbose

	logger.Info("resuming run", "previous_run_id", state.RunID, "status", state.Status, "input", job.Input)
	return executeJob(cmd, job, logger)
}
