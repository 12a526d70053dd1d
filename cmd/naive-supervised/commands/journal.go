package commands

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/nic-ch/naive-supervised/internal/infrastructure/storage"
)

// Journal command flags
var journalPath string

// JournalCmd lists recorded training runs.
var JournalCmd = &cobra.Command{
	Use:   "journal",
	Short: "List recorded training runs",
	Long:  `List the training runs recorded in a SQLite journal database.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		journal, err := storage.OpenJournal(journalPath)
		if err != nil {
			return err
		}
		defer journal.Close()

		runs, err := journal.Runs()
		if err != nil {
			return err
		}
		if len(runs) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "No runs recorded.")
			return nil
		}

		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "STARTED\tSTATE\tCYCLES\tBUDGET\tAGGREGATE\tIMPROVEMENTS\tWEIGHTS FILE\tGROUPS")
		for _, run := range runs {
			fmt.Fprintf(w, "%s\t%s\t%d\t%d\t%d\t%d\t%s\t%s\n",
				run.StartedAt.Format("2006-01-02 15:04:05"), run.State, run.Cycles,
				run.MaxCycles, run.FinalAggregate, run.Improvements, run.WeightsFile, run.Groups)
		}
		return w.Flush()
	},
}

func init() {
	JournalCmd.Flags().StringVarP(&journalPath, "journal", "j", "train-journal.db", "SQLite journal database")
}
