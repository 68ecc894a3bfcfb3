package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/timvw/pane-relay/internal/shell"
)

var hookCmd = &cobra.Command{
	Use:       "hook [bash|zsh|fish]",
	Short:     "Print the shell hook that reports command completion",
	ValidArgs: []string{"bash", "zsh", "fish"},
	Args:      cobra.MaximumNArgs(1),
	Long: `Print the shell snippet that defines the hook command typed before every
tracked command. Load it from your shell rc file:

  bash: eval "$(pane-relay hook bash)"
  zsh:  eval "$(pane-relay hook zsh)"
  fish: pane-relay hook fish | source

Without an argument the configured shell (--shell-type, PANE_RELAY_SHELL)
is used. Unknown shells get the bash hook.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		family := cfg.Family
		if len(args) == 1 {
			family = shell.ParseFamily(args[0])
		}
		script, err := shell.HookScript(family)
		if err != nil {
			return err
		}
		fmt.Print(script)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(hookCmd)
}
