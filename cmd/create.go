package cmd

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/timvw/pane-relay/internal/mux"
)

var (
	flagSplitDirection string
	flagSplitSize      int
)

var newSessionCmd = &cobra.Command{
	Use:   "new-session <name>",
	Short: "Create a detached session",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := getClient(cmd.Context())
		if err != nil {
			return err
		}
		s, err := c.CreateSession(cmd.Context(), args[0])
		if err != nil {
			return fmt.Errorf("failed to create session %q: %w", args[0], err)
		}
		if flagJSON {
			return printJSON(s)
		}
		printTable([]string{"ID", "NAME", "WINDOWS"}, [][]string{{s.ID, s.Name, strconv.Itoa(s.Windows)}})
		return nil
	},
}

var newWindowCmd = &cobra.Command{
	Use:   "new-window <session-id> <name>",
	Short: "Create a window in a session",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := getClient(cmd.Context())
		if err != nil {
			return err
		}
		w, err := c.CreateWindow(cmd.Context(), args[0], args[1])
		if err != nil {
			return fmt.Errorf("failed to create window %q: %w", args[1], err)
		}
		if flagJSON {
			return printJSON(w)
		}
		printTable([]string{"ID", "INDEX", "NAME", "SESSION"}, [][]string{{w.ID, strconv.Itoa(w.Index), w.Name, w.SessionID}})
		return nil
	},
}

var splitCmd = &cobra.Command{
	Use:   "split <pane-id>",
	Short: "Split a pane",
	Long: `Split a pane and print the new pane.

tmux does not report which pane it created, so the last pane of the window
is returned.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := getClient(cmd.Context())
		if err != nil {
			return err
		}
		p, err := c.SplitPane(cmd.Context(), args[0], mux.SplitDirection(flagSplitDirection), flagSplitSize)
		if err != nil {
			return fmt.Errorf("failed to split pane %s: %w", args[0], err)
		}
		if flagJSON {
			return printJSON(p)
		}
		printTable([]string{"ID", "TARGET", "PID", "COMMAND"}, [][]string{{p.ID, p.Target, strconv.Itoa(p.PID), p.Command}})
		return nil
	},
}

var killCmd = &cobra.Command{
	Use:       "kill session|window|pane <id>",
	Short:     "Kill a session, window or pane",
	Args:      cobra.ExactArgs(2),
	ValidArgs: []string{"session", "window", "pane"},
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := getClient(cmd.Context())
		if err != nil {
			return err
		}
		kind, id := args[0], args[1]
		switch kind {
		case "session":
			err = c.KillSession(cmd.Context(), id)
		case "window":
			err = c.KillWindow(cmd.Context(), id)
		case "pane":
			err = c.KillPane(cmd.Context(), id)
		default:
			return fmt.Errorf("unknown kind %q (want session, window or pane)", kind)
		}
		if err != nil {
			return fmt.Errorf("failed to kill %s %s: %w", kind, id, err)
		}
		if flagJSON {
			return printJSON(map[string]string{"killed": kind, "id": id})
		}
		fmt.Printf("killed %s %s\n", kind, id)
		return nil
	},
}

func init() {
	splitCmd.Flags().StringVar(&flagSplitDirection, "direction", "vertical", "horizontal (side by side) or vertical (stacked)")
	splitCmd.Flags().IntVar(&flagSplitSize, "size", 0, "new pane size as a percentage (1-99)")
	rootCmd.AddCommand(newSessionCmd, newWindowCmd, splitCmd, killCmd)
}
