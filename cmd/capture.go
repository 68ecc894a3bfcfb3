package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	flagCaptureLines  int
	flagCaptureColors bool
)

var captureCmd = &cobra.Command{
	Use:   "capture <pane-id>",
	Short: "Capture the trailing content of a pane",
	Long: `Capture the last --lines lines of a pane and print them to stdout.

Wrapped lines are joined. --colors keeps the escape sequences.
This is pure transport: no interpretation of the content.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		target := args[0]

		c, err := getClient(cmd.Context())
		if err != nil {
			return err
		}

		content, err := c.CapturePane(cmd.Context(), target, flagCaptureLines, flagCaptureColors)
		if err != nil {
			return fmt.Errorf("failed to capture pane %q: %w", target, err)
		}

		if flagJSON {
			return printJSON(map[string]string{"pane_id": target, "content": content})
		}
		fmt.Fprintln(os.Stdout, content)
		return nil
	},
}

func init() {
	captureCmd.Flags().IntVar(&flagCaptureLines, "lines", 200, "number of trailing lines to capture")
	captureCmd.Flags().BoolVar(&flagCaptureColors, "colors", false, "keep color escape sequences")
	rootCmd.AddCommand(captureCmd)
}
