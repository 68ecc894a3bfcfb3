package cmd

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/timvw/pane-relay/internal/execution"
	"github.com/timvw/pane-relay/internal/model"
)

var flagBatchTimeout string

var batchCmd = &cobra.Command{
	Use:   "batch <jobs.yaml>",
	Short: "Run several commands and collect their results",
	Long: `Run every job in a YAML file and poll until all of them finish or the
timeout expires.

  jobs:
    - pane: "%1"
      command: make test
    - pane: "%2"
      command: print(1)
      raw: true

Jobs for the same pane run in file order, each one after the previous one
finishes. Different panes run at the same time. A job that cannot be
submitted (for example because its pane is running an editor) is reported as
an error and the batch continues. Jobs still running at the timeout are
reported as pending, and later jobs on their pane are skipped.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		jobs, err := execution.LoadJobs(args[0])
		if err != nil {
			return err
		}
		if len(jobs) == 0 {
			fmt.Fprintln(os.Stderr, "no jobs found")
			if flagJSON {
				fmt.Println("[]")
			}
			return nil
		}

		timeout := cfg.WaitTimeoutDuration
		if flagBatchTimeout != "" {
			d, err := time.ParseDuration(flagBatchTimeout)
			if err != nil {
				return fmt.Errorf("invalid --timeout %q: %w", flagBatchTimeout, err)
			}
			timeout = d
		}

		d, err := getDispatcher(ctx)
		if err != nil {
			return err
		}
		outcomes, err := execution.RunBatch(ctx, d, jobs, execution.BatchOptions{
			PollInterval: cfg.PollIntervalDuration,
			Timeout:      timeout,
			EvictAfter:   cfg.EvictAfterDuration,
		})
		if err != nil {
			return err
		}

		failed := 0
		for _, o := range outcomes {
			if o.Error != "" {
				fmt.Fprintf(os.Stderr, "warning: %s: %s\n", o.Job.Pane, o.Error)
			}
			if o.Status == model.StatusError {
				failed++
			}
		}

		if flagJSON {
			if err := printJSON(outcomes); err != nil {
				return err
			}
		} else {
			rows := make([][]string, 0, len(outcomes))
			for _, o := range outcomes {
				out := o.Output
				if o.Error != "" {
					out = o.Error
				}
				rows = append(rows, []string{o.Job.Pane, cell(o.Job.Command, 30), statusText(o.Status), exitCodeText(o.ExitCode), cell(out, 60)})
			}
			printTable([]string{"PANE", "COMMAND", "STATUS", "EXIT", "OUTPUT"}, rows)
		}

		if failed > 0 {
			return fmt.Errorf("%d of %d jobs failed", failed, len(outcomes))
		}
		return nil
	},
}

func init() {
	batchCmd.Flags().StringVar(&flagBatchTimeout, "timeout", "", "how long to poll (default from wait_timeout, 0 waits forever)")
	rootCmd.AddCommand(batchCmd)
}
