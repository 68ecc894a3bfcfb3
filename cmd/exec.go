package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/timvw/pane-relay/internal/execution"
	"github.com/timvw/pane-relay/internal/model"
)

var (
	flagExecRaw     bool
	flagExecNoEnter bool
	flagExecWait    bool
	flagExecTimeout string
)

var execCmd = &cobra.Command{
	Use:   "exec <pane-id> -- <command...>",
	Short: "Run a command in a pane",
	Long: `Send a command to a pane and print the execution id.

By default the pane must be running a shell with the pane-relay hook
installed (see "pane-relay hook"). The hook is armed first, then the command
is typed and confirmed with Enter. With --wait the pane is polled until the
end marker appears, and the exit status and output are printed.

--raw types the command and presses Enter without markers, for REPLs and
other interactive programs. --no-enter sends a key name (Up, Escape, C-c, ...)
or types the text one character at a time without pressing Enter. Neither
mode can report an exit status.`,
	Args: cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		req := execution.Request{
			PaneID:  args[0],
			Command: strings.Join(args[1:], " "),
			Raw:     flagExecRaw,
			NoEnter: flagExecNoEnter,
		}

		timeout := cfg.WaitTimeoutDuration
		if flagExecTimeout != "" {
			d, err := time.ParseDuration(flagExecTimeout)
			if err != nil {
				return fmt.Errorf("invalid --timeout %q: %w", flagExecTimeout, err)
			}
			timeout = d
		}

		d, err := getDispatcher(ctx)
		if err != nil {
			return err
		}

		id, err := d.Execute(ctx, req)
		if err != nil {
			return err
		}

		if !flagExecWait {
			if flagJSON {
				return printJSON(map[string]string{"id": id, "mode": req.Mode()})
			}
			fmt.Println(id)
			return nil
		}

		waitCtx := ctx
		if timeout > 0 {
			var cancel context.CancelFunc
			waitCtx, cancel = context.WithTimeout(ctx, timeout)
			defer cancel()
		}
		rec, err := execution.Wait(waitCtx, d.Tracker(), id, cfg.PollIntervalDuration)
		if err != nil && !errors.Is(err, context.DeadlineExceeded) {
			return err
		}
		if perr := printExecution(rec); perr != nil {
			return perr
		}
		if err != nil {
			return fmt.Errorf("timed out after %s waiting for %s", timeout, id)
		}
		if rec.Status == model.StatusError {
			return fmt.Errorf("command exited with status %d", *rec.ExitCode)
		}
		return nil
	},
}

func printExecution(rec model.Execution) error {
	if flagJSON {
		return printJSON(rec)
	}
	fmt.Fprintf(os.Stderr, "%s %s exit=%s\n", rec.ID, statusText(rec.Status), exitCodeText(rec.ExitCode))
	if rec.Result != "" {
		fmt.Println(rec.Result)
	}
	return nil
}

func init() {
	execCmd.Flags().BoolVar(&flagExecRaw, "raw", false, "send without completion markers")
	execCmd.Flags().BoolVar(&flagExecNoEnter, "no-enter", false, "send keystrokes without pressing Enter")
	execCmd.Flags().BoolVar(&flagExecWait, "wait", false, "wait for the command to finish and print its output")
	execCmd.Flags().StringVar(&flagExecTimeout, "timeout", "", "how long --wait polls (default from wait_timeout, 0 waits forever)")
	rootCmd.AddCommand(execCmd)
}
