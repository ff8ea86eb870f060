package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/alvinkoh256/Survey-Response-Coder/internal/dataset"
	"github.com/alvinkoh256/Survey-Response-Coder/internal/summary"
)

var summarizeCmd = &cobra.Command{
	Use:   "summarize",
	Short: "Count labels in the codes columns of a labeled dataset",
	Long: `Summarize finds every "[Codes]" column in a labeled dataset, normalizes
near-duplicate labels through an alias map, and prints how many rows carry
each category as a count and a percentage of all rows.`,
	RunE: runSummarize,
}

func init() {
	summarizeCmd.Flags().StringP("input", "i", "", "Labeled dataset (.csv or .xlsx)")
	summarizeCmd.Flags().String("sheet", "", "Spreadsheet tab to read (first tab when empty)")
	summarizeCmd.Flags().String("save-csv", "", "Also write the summary to this CSV file")
	summarizeCmd.Flags().String("aliases", "", "JSON or YAML alias map layered over the built-in aliases")
	summarizeCmd.MarkFlagRequired("input")
}

func runSummarize(cmd *cobra.Command, args []string) error {
	logger := newLogger(cmd)

	input, _ := cmd.Flags().GetString("input")
	sheet, _ := cmd.Flags().GetString("sheet")
	csvPath, _ := cmd.Flags().GetString("save-csv")
	aliasPath, _ := cmd.Flags().GetString("aliases")

	aliases := summary.DefaultAliases()
	if aliasPath != "" {
		loaded, err := summary.LoadAliases(aliasPath)
		if err != nil {
			return err
		}
		aliases = loaded
	}

	ds, err := dataset.Load(input, dataset.LoadOptions{Sheet: sheet})
	if err != nil {
		return fmt.Errorf("failed to load input: %w", err)
	}

	reports, err := summary.Summarize(ds, aliases)
	if err != nil {
		return err
	}
	if err := summary.WriteText(cmd.OutOrStdout(), reports); err != nil {
		return err
	}

	if csvPath != "" && len(reports) > 0 {
		artifact, err := summary.SaveCSV(csvPath, reports)
		if err != nil {
			return err
		}
		logger.Debug("summary written", "path", artifact.Path, "sha256", artifact.SHA256)
		fmt.Fprintf(cmd.OutOrStdout(), "\nSaved summary to %s\n", csvPath)
	}
	return nil
}
