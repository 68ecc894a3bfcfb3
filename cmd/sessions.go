package cmd

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/timvw/pane-relay/internal/model"
)

var flagSessionName string

var sessionsCmd = &cobra.Command{
	Use:   "sessions",
	Short: "List tmux sessions",
	Long: `List tmux sessions with their id, name, attachment state and window count.

With --name, look up a single session; a missing session prints nothing and
is not an error.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := getClient(cmd.Context())
		if err != nil {
			return err
		}

		var sessions []model.Session
		if flagSessionName != "" {
			s, err := c.FindSessionByName(cmd.Context(), flagSessionName)
			if err != nil {
				return err
			}
			if s != nil {
				sessions = append(sessions, *s)
			}
		} else {
			sessions, err = c.ListSessions(cmd.Context())
			if err != nil {
				return fmt.Errorf("failed to list sessions: %w", err)
			}
		}

		if flagJSON {
			if sessions == nil {
				sessions = []model.Session{}
			}
			return printJSON(sessions)
		}
		rows := make([][]string, 0, len(sessions))
		for _, s := range sessions {
			rows = append(rows, []string{s.ID, s.Name, boolMark(s.Attached), strconv.Itoa(s.Windows)})
		}
		printTable([]string{"ID", "NAME", "ATTACHED", "WINDOWS"}, rows)
		return nil
	},
}

var windowsCmd = &cobra.Command{
	Use:   "windows <session-id>",
	Short: "List the windows of a session",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := getClient(cmd.Context())
		if err != nil {
			return err
		}
		windows, err := c.ListWindows(cmd.Context(), args[0])
		if err != nil {
			return fmt.Errorf("failed to list windows of %s: %w", args[0], err)
		}

		if flagJSON {
			if windows == nil {
				windows = []model.Window{}
			}
			return printJSON(windows)
		}
		rows := make([][]string, 0, len(windows))
		for _, w := range windows {
			rows = append(rows, []string{w.ID, strconv.Itoa(w.Index), w.Name, boolMark(w.Active)})
		}
		printTable([]string{"ID", "INDEX", "NAME", "ACTIVE"}, rows)
		return nil
	},
}

func init() {
	sessionsCmd.Flags().StringVar(&flagSessionName, "name", "", "find a session by exact name")
	rootCmd.AddCommand(sessionsCmd, windowsCmd)
}
