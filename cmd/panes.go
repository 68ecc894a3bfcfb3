package cmd

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/tree"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/timvw/pane-relay/internal/model"
	"github.com/timvw/pane-relay/internal/mux"
)

// treeParallel bounds concurrent tmux calls while building the topology tree.
const treeParallel = 8

var (
	flagPanesActive    bool
	flagPanesTree      bool
	flagPanesProcesses bool
	flagPanesFilter    string
)

var panesCmd = &cobra.Command{
	Use:   "panes [window-id]",
	Short: "List panes",
	Long: `List panes of one window, or of every session when no window is given.

--active keeps only the active pane of each window. --tree prints the whole
session/window/pane hierarchy. --processes adds each pane's child process
tree, read from a single ps snapshot.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		c, err := getClient(ctx)
		if err != nil {
			return err
		}

		if flagPanesTree {
			return printTopology(ctx, c)
		}

		var panes []model.Pane
		switch {
		case len(args) == 1:
			panes, err = c.ListPanes(ctx, args[0])
		case flagPanesActive:
			panes, err = c.ListActivePanes(ctx)
		default:
			panes, err = c.ListAllPanes(ctx, flagPanesFilter)
		}
		if err != nil {
			return fmt.Errorf("failed to list panes: %w", err)
		}
		if len(args) == 1 && flagPanesActive {
			panes = activeOnly(panes)
		}
		if flagPanesProcesses {
			attachProcessTrees(ctx, panes)
		}

		if flagJSON {
			if panes == nil {
				panes = []model.Pane{}
			}
			return printJSON(panes)
		}
		headers := []string{"ID", "TARGET", "ACTIVE", "PID", "COMMAND", "TITLE"}
		if flagPanesProcesses {
			headers = append(headers, "PROCESSES")
		}
		rows := make([][]string, 0, len(panes))
		for _, p := range panes {
			row := []string{p.ID, p.Target, boolMark(p.Active), strconv.Itoa(p.PID), p.Command, cell(p.Title, 30)}
			if flagPanesProcesses {
				row = append(row, cell(strings.Join(p.ProcessTree, "; "), 50))
			}
			rows = append(rows, row)
		}
		printTable(headers, rows)
		return nil
	},
}

func activeOnly(panes []model.Pane) []model.Pane {
	var out []model.Pane
	for _, p := range panes {
		if p.Active {
			out = append(out, p)
		}
	}
	return out
}

// attachProcessTrees fills ProcessTree for each pane. Best effort: panes
// whose tree cannot be read keep an empty list.
func attachProcessTrees(ctx context.Context, panes []model.Pane) {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(treeParallel)
	for i := range panes {
		g.Go(func() error {
			panes[i].ProcessTree = mux.ProcessTree(gctx, panes[i].PID)
			return nil
		})
	}
	_ = g.Wait()
}

type windowNode struct {
	Window model.Window `json:"window"`
	Panes  []model.Pane `json:"panes"`
}

type sessionNode struct {
	Session model.Session `json:"session"`
	Windows []windowNode  `json:"windows"`
}

// collectTopology lists every session's windows and panes, fanning out one
// goroutine per session.
func collectTopology(ctx context.Context, c *mux.Client) ([]sessionNode, error) {
	sessions, err := c.ListSessions(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}

	nodes := make([]sessionNode, len(sessions))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(treeParallel)
	for i, s := range sessions {
		g.Go(func() error {
			windows, err := c.ListWindows(gctx, s.ID)
			if err != nil {
				return fmt.Errorf("session %s: %w", s.Name, err)
			}
			node := sessionNode{Session: s, Windows: make([]windowNode, 0, len(windows))}
			for _, w := range windows {
				panes, err := c.ListPanes(gctx, w.ID)
				if err != nil {
					return fmt.Errorf("window %s: %w", w.ID, err)
				}
				if flagPanesActive {
					panes = activeOnly(panes)
				}
				if flagPanesProcesses {
					attachProcessTrees(gctx, panes)
				}
				node.Windows = append(node.Windows, windowNode{Window: w, Panes: panes})
			}
			nodes[i] = node
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return nodes, nil
}

func printTopology(ctx context.Context, c *mux.Client) error {
	nodes, err := collectTopology(ctx, c)
	if err != nil {
		return err
	}
	if flagJSON {
		return printJSON(nodes)
	}

	root := tree.Root(lipgloss.NewStyle().Foreground(colorHeader).Bold(true).Render("tmux")).
		Enumerator(tree.RoundedEnumerator).
		EnumeratorStyle(mutedStyle)
	for _, s := range nodes {
		label := fmt.Sprintf("%s %s", s.Session.ID, s.Session.Name)
		if s.Session.Attached {
			label += " (attached)"
		}
		st := tree.Root(label)
		for _, w := range s.Windows {
			wt := tree.Root(fmt.Sprintf("%s %d:%s%s", w.Window.ID, w.Window.Index, w.Window.Name, activeSuffix(w.Window.Active)))
			for _, p := range w.Panes {
				pt := tree.Root(fmt.Sprintf("%s %s [%s]%s", p.ID, p.Target, p.Command, activeSuffix(p.Active)))
				for _, proc := range p.ProcessTree {
					pt.Child(mutedStyle.Render(strings.TrimSpace(proc)))
				}
				wt.Child(pt)
			}
			st.Child(wt)
		}
		root.Child(st)
	}
	fmt.Println(root.String())
	return nil
}

func activeSuffix(active bool) string {
	if active {
		return " *"
	}
	return ""
}

func init() {
	panesCmd.Flags().BoolVar(&flagPanesActive, "active", false, "only the active pane of each window")
	panesCmd.Flags().BoolVar(&flagPanesTree, "tree", false, "print the session/window/pane hierarchy")
	panesCmd.Flags().BoolVar(&flagPanesProcesses, "processes", false, "include each pane's child processes")
	panesCmd.Flags().StringVar(&flagPanesFilter, "filter", "", "regex pattern to filter by session name")
	rootCmd.AddCommand(panesCmd)
}
