package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/timvw/pane-relay/internal/model"
)

var flagHistoryLimit int

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show recently submitted commands",
	Long: `List the executions recorded in the history database (history_db,
PANE_RELAY_HISTORY_DB), newest first.

The history is an audit log: it shows what was sent and how it ended as
seen by the process that sent it.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if hist == nil {
			return fmt.Errorf("history is disabled (set history_db or PANE_RELAY_HISTORY_DB)")
		}
		recs, err := hist.Recent(cmd.Context(), flagHistoryLimit)
		if err != nil {
			return err
		}

		if flagJSON {
			if recs == nil {
				recs = []model.Execution{}
			}
			return printJSON(recs)
		}
		rows := make([][]string, 0, len(recs))
		for _, r := range recs {
			mode := ""
			if r.RawMode {
				mode = "raw"
			}
			rows = append(rows, []string{
				r.StartTime.Local().Format("2006-01-02 15:04:05"),
				r.PaneID,
				cell(r.Command, 40),
				mode,
				statusText(r.Status),
				exitCodeText(r.ExitCode),
				cell(r.Result, 40),
			})
		}
		printTable([]string{"STARTED", "PANE", "COMMAND", "MODE", "STATUS", "EXIT", "RESULT"}, rows)
		return nil
	},
}

func init() {
	historyCmd.Flags().IntVar(&flagHistoryLimit, "limit", 20, "maximum rows to show (0 for all)")
	rootCmd.AddCommand(historyCmd)
}
