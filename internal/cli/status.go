package cli

import (
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/alvinkoh256/Survey-Response-Coder/internal/eventlog"
	"github.com/alvinkoh256/Survey-Response-Coder/internal/events"
	"github.com/alvinkoh256/Survey-Response-Coder/internal/fsutil"
	"github.com/alvinkoh256/Survey-Response-Coder/internal/runstate"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the progress of a run",
	Long: `Status prints the run state saved beside an output file: overall status,
per-question progress, and whether the last checkpoint still matches the
file on disk.`,
	RunE: runStatus,
}

func init() {
	statusCmd.Flags().StringP("output", "o", "", "Output dataset of the run")
	statusCmd.Flags().String("events", "", "Event log to tally (defaults to the run's own)")
	statusCmd.MarkFlagRequired("output")
}

func runStatus(cmd *cobra.Command, args []string) error {
	output, _ := cmd.Flags().GetString("output")
	eventsPath, _ := cmd.Flags().GetString("events")

	state, err := runstate.LoadRunState(runstate.PathFor(output))
	if err != nil {
		return err
	}
	if eventsPath == "" {
		eventsPath = state.Events
	}

	w := cmd.OutOrStdout()
	printRunState(w, state)

	if state.LastCheckpoint != nil {
		if err := fsutil.VerifyArtifact(*state.LastCheckpoint); err != nil {
			fmt.Fprintf(w, "\nCheckpoint: %s (%v)\n", state.LastCheckpoint.Path, err)
		} else {
			fmt.Fprintf(w, "\nCheckpoint: %s (verified)\n", state.LastCheckpoint.Path)
		}
	}

	if eventsPath != "" {
		evts, err := eventlog.ReadAll(eventsPath)
		if err != nil {
			return err
		}
		printEventCounts(w, eventsPath, evts)
	}
	return nil
}

func printRunState(w io.Writer, s *runstate.RunState) {
	fmt.Fprintf(w, "Run:      %s\n", s.RunID)
	fmt.Fprintf(w, "Status:   %s\n", s.Status)
	fmt.Fprintf(w, "Input:    %s\n", s.Input)
	fmt.Fprintf(w, "Output:   %s\n", s.Output)
	if s.Model != "" {
		fmt.Fprintf(w, "Model:    %s (%s, batch size %d)\n", s.Model, s.Provider, s.BatchSize)
	}
	fmt.Fprintf(w, "Started:  %s\n", s.StartedAt.Format(time.RFC3339))
	if s.CompletedAt != nil {
		fmt.Fprintf(w, "Finished: %s\n", s.CompletedAt.Format(time.RFC3339))
	}

	if len(s.Questions) == 0 {
		return
	}
	fmt.Fprintln(w)
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "QUESTION\tSTATUS\tPASSES\tFAILED\tDEGRADED\tLABELED\tREMAINING")
	for _, q := range s.Questions {
		fmt.Fprintf(tw, "%s\t%s\t%d\t%d\t%d\t%d\t%d\n",
			q.Question, q.Status, q.Passes, q.FailedPasses, q.DegradedBatches, q.RowsLabeled, q.Remaining)
	}
	tw.Flush()

	for _, q := range s.Questions {
		if q.LastError != "" {
			fmt.Fprintf(w, "  %s: %s\n", q.Question, q.LastError)
		}
	}
}

func printEventCounts(w io.Writer, path string, evts []events.Event) {
	counts := map[events.Kind]int{}
	for _, e := range evts {
		counts[e.Kind]++
	}
	fmt.Fprintf(w, "\nEvents (%s): %d\n", path, len(evts))
	for _, k := range []events.Kind{
		events.KindPassStarted,
		events.KindRowLabeled,
		events.KindBatchDegraded,
		events.KindPassFailed,
		events.KindPassCompleted,
		events.KindCheckpoint,
		events.KindQuestionDone,
	} {
		if counts[k] > 0 {
			fmt.Fprintf(w, "  %-16s %d\n", k, counts[k])
		}
	}
}
