package execution

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/timvw/pane-relay/internal/model"
)

func TestParseJobs(t *testing.T) {
	jobs, err := ParseJobs([]byte(`
jobs:
  - pane: "%1"
    command: make test
  - pane: "%2"
    command: q
    no_enter: true
  - pane: "%3"
    command: print(1)
    raw: true
`))
	require.NoError(t, err)
	require.Equal(t, []Job{
		{Pane: "%1", Command: "make test"},
		{Pane: "%2", Command: "q", NoEnter: true},
		{Pane: "%3", Command: "print(1)", Raw: true},
	}, jobs)
}

func TestParseJobs_Validation(t *testing.T) {
	_, err := ParseJobs([]byte("jobs:\n  - command: ls\n"))
	require.ErrorContains(t, err, "job 1: pane is required")

	_, err = ParseJobs([]byte("jobs:\n  - pane: \"%1\"\n"))
	require.ErrorContains(t, err, "job 1: command is required")

	_, err = ParseJobs([]byte("jobs: [\n"))
	require.Error(t, err)
}

func TestLoadJobs(t *testing.T) {
	path := filepath.Join(t.TempDir(), "jobs.yaml")
	require.NoError(t, os.WriteFile(path, []byte("jobs:\n  - pane: \"%1\"\n    command: ls\n"), 0o644))

	jobs, err := LoadJobs(path)
	require.NoError(t, err)
	require.Len(t, jobs, 1)

	_, err = LoadJobs(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
}

func TestRunBatch(t *testing.T) {
	tm := newFakeTmux()
	tm.process["%1"] = "bash"
	tm.process["%2"] = "zsh"
	tm.process["%3"] = "vim"
	tm.results["make"] = "TMUX_MCP_START\n$ make\nok\nTMUX_MCP_DONE_0\n"
	tm.results["false"] = "TMUX_MCP_START\n$ false\nTMUX_MCP_DONE_1\n"
	d := newTestDispatcher(tm)

	jobs := []Job{
		{Pane: "%1", Command: "make"},
		{Pane: "%2", Command: "false"},
		{Pane: "%3", Command: "ls"},
		{Pane: "%4", Command: "Escape", NoEnter: true},
	}
	out, err := RunBatch(context.Background(), d, jobs, BatchOptions{PollInterval: time.Millisecond, Timeout: time.Second})
	require.NoError(t, err)
	require.Len(t, out, 4)

	require.Equal(t, model.StatusCompleted, out[0].Status)
	require.Equal(t, "ok", out[0].Output)
	require.Equal(t, 0, *out[0].ExitCode)

	require.Equal(t, model.StatusError, out[1].Status)
	require.Equal(t, 1, *out[1].ExitCode)

	require.Equal(t, model.StatusError, out[2].Status)
	require.Empty(t, out[2].ID)
	require.Contains(t, out[2].Error, "vim")

	require.Equal(t, model.StatusPending, out[3].Status)
	require.Equal(t, RawModeAdvisory, out[3].Output)
}

func TestRunBatch_TimeoutLeavesPending(t *testing.T) {
	tm := newFakeTmux()
	tm.process["%1"] = "bash"
	tm.setScreen("%1", "TMUX_MCP_START\n$ sleep 600\n")
	d := newTestDispatcher(tm)

	out, err := RunBatch(context.Background(), d, []Job{{Pane: "%1", Command: "sleep 600"}},
		BatchOptions{PollInterval: 5 * time.Millisecond, Timeout: 40 * time.Millisecond})
	require.NoError(t, err)
	require.Equal(t, model.StatusPending, out[0].Status)
	require.Equal(t, UnresolvedAdvisory, out[0].Output)

	_, ok := d.Tracker().Get(out[0].ID)
	require.True(t, ok, "unresolved jobs stay tracked")
}

func TestRunBatch_EvictsResolved(t *testing.T) {
	tm := newFakeTmux()
	tm.process["%1"] = "bash"
	tm.results["true"] = "TMUX_MCP_START\n$ true\nTMUX_MCP_DONE_0\n"
	c := tm.client()
	clock := &fakeClock{now: time.Unix(0, 0)}
	tr := NewTracker(c, WithClock(clock.Now), WithIDGenerator(sequentialIDs()))
	d := NewDispatcher(c, tr, nil)

	old, err := d.Execute(context.Background(), Request{PaneID: "%1", Command: "true"})
	require.NoError(t, err)
	_, _, err = tr.CheckStatus(context.Background(), old)
	require.NoError(t, err)
	clock.Advance(2 * time.Hour)

	out, err := RunBatch(context.Background(), d, []Job{{Pane: "%1", Command: "true"}},
		BatchOptions{PollInterval: time.Millisecond, Timeout: time.Second, EvictAfter: time.Hour})
	require.NoError(t, err)
	require.Equal(t, model.StatusCompleted, out[0].Status)

	_, ok := tr.Get(old)
	require.False(t, ok, "stale terminal record should be evicted")
	_, ok = tr.Get(out[0].ID)
	require.True(t, ok)
}

func TestRunBatch_SamePaneRunsInOrder(t *testing.T) {
	tm := newFakeTmux()
	tm.process["%1"] = "bash"
	tm.results["echo a"] = "TMUX_MCP_START\n$ echo a\na\nTMUX_MCP_DONE_0\n"
	tm.results["false"] = "TMUX_MCP_START\n$ false\nTMUX_MCP_DONE_1\n"
	d := newTestDispatcher(tm)

	out, err := RunBatch(context.Background(), d, []Job{
		{Pane: "%1", Command: "echo a"},
		{Pane: "%1", Command: "false"},
	}, BatchOptions{PollInterval: time.Millisecond, Timeout: time.Second})
	require.NoError(t, err)

	require.Equal(t, model.StatusCompleted, out[0].Status)
	require.Equal(t, 0, *out[0].ExitCode)
	require.Equal(t, "a", out[0].Output)

	require.Equal(t, model.StatusError, out[1].Status)
	require.Equal(t, 1, *out[1].ExitCode)
	require.Empty(t, out[1].Output)
}

func TestRunBatch_UnfinishedJobSkipsRestOfPane(t *testing.T) {
	tm := newFakeTmux()
	tm.process["%1"] = "bash"
	d := newTestDispatcher(tm)

	out, err := RunBatch(context.Background(), d, []Job{
		{Pane: "%1", Command: "sleep 600"},
		{Pane: "%1", Command: "ls"},
	}, BatchOptions{PollInterval: 5 * time.Millisecond, Timeout: 40 * time.Millisecond})
	require.NoError(t, err)

	require.Equal(t, model.StatusPending, out[0].Status)
	require.Equal(t, model.StatusError, out[1].Status)
	require.Empty(t, out[1].ID)
	require.Contains(t, out[1].Error, "skipped")
	for _, keys := range tm.sent() {
		require.NotEqual(t, "ls", keys[len(keys)-1])
	}
}

func TestRunBatch_PanesRunConcurrently(t *testing.T) {
	tm := newFakeTmux()
	tm.process["%1"] = "bash"
	tm.process["%2"] = "bash"
	tm.results["make"] = "TMUX_MCP_START\n$ make\nok\nTMUX_MCP_DONE_0\n"
	d := newTestDispatcher(tm)

	out, err := RunBatch(context.Background(), d, []Job{
		{Pane: "%1", Command: "sleep 600"},
		{Pane: "%2", Command: "make"},
	}, BatchOptions{PollInterval: 5 * time.Millisecond, Timeout: 100 * time.Millisecond})
	require.NoError(t, err)

	require.Equal(t, model.StatusPending, out[0].Status)
	require.Equal(t, model.StatusCompleted, out[1].Status)
	require.Equal(t, "ok", out[1].Output)
}

func TestGroupByPane(t *testing.T) {
	got := groupByPane([]Job{
		{Pane: "%2"}, {Pane: "%1"}, {Pane: "%2"}, {Pane: "%3"}, {Pane: "%1"},
	})
	require.Equal(t, [][]int{{0, 2}, {1, 4}, {3}}, got)
}

func TestRunBatch_Cancelled(t *testing.T) {
	tm := newFakeTmux()
	tm.process["%1"] = "bash"
	d := newTestDispatcher(tm)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := RunBatch(ctx, d, []Job{{Pane: "%1", Command: "ls"}}, BatchOptions{})
	require.ErrorIs(t, err, context.Canceled)
}
