package execution

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/timvw/pane-relay/internal/model"
	"github.com/timvw/pane-relay/internal/mux"
	"github.com/timvw/pane-relay/internal/shell"
)

func newTestDispatcher(tm *fakeTmux) *Dispatcher {
	c := tm.client()
	return NewDispatcher(c, NewTracker(c, WithIDGenerator(sequentialIDs())), nil)
}

func lit(text string) []string { return []string{"-l", "--", text} }

func TestIsEligibleProcess(t *testing.T) {
	tests := []struct {
		name string
		want bool
	}{
		{"bash", true},
		{"-bash", true},
		{"zsh", true},
		{"-zsh", true},
		{"fish", true},
		{"sh", true},
		{"dash", true},
		{"nu", true},
		{"ssh", true},
		{"mosh-client", true},
		{"et", true},
		{"vim", false},
		{"python3", false},
		{"node", false},
		{"", false},
		{"--bash", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, IsEligibleProcess(tt.name))
		})
	}
}

func TestExecute_Normal(t *testing.T) {
	tm := newFakeTmux()
	tm.process["%1"] = "bash"
	d := newTestDispatcher(tm)

	id, err := d.Execute(context.Background(), Request{PaneID: "%1", Command: "echo 'it''s' | wc -c"})
	require.NoError(t, err)
	require.Equal(t, "exec-1", id)

	require.Equal(t, []string{"display-message", "-p", "-t", "%1", "#{pane_current_command}"}, tm.calls[0])
	require.Equal(t, [][]string{
		lit(shell.HookCommand), {"Enter"},
		lit("echo 'it''s' | wc -c"), {"Enter"},
	}, tm.sent())

	rec, ok := d.Tracker().Get(id)
	require.True(t, ok)
	require.False(t, rec.RawMode)
	require.Equal(t, model.StatusPending, rec.Status)
	require.Equal(t, "echo 'it''s' | wc -c", rec.Command)
}

func TestExecute_LoginShellIsEligible(t *testing.T) {
	tm := newFakeTmux()
	tm.process["%1"] = "-zsh"
	_, err := newTestDispatcher(tm).Execute(context.Background(), Request{PaneID: "%1", Command: "ls"})
	require.NoError(t, err)
}

func TestExecute_IneligiblePane(t *testing.T) {
	tm := newFakeTmux()
	tm.process["%1"] = "vim"
	d := newTestDispatcher(tm)

	_, err := d.Execute(context.Background(), Request{PaneID: "%1", Command: "ls"})
	require.Error(t, err)
	require.True(t, errors.Is(err, ErrIneligiblePane))

	var inel *IneligiblePaneError
	require.True(t, errors.As(err, &inel))
	require.Equal(t, "vim", inel.Process)
	require.Equal(t, "%1", inel.PaneID)
	require.Contains(t, err.Error(), "vim")

	require.Empty(t, tm.sent(), "no keys may be sent to an ineligible pane")
	require.Empty(t, d.Tracker().IDs())
}

func TestExecute_EligibilityGatewayFailure(t *testing.T) {
	tm := newFakeTmux()
	d := newTestDispatcher(tm)

	_, err := d.Execute(context.Background(), Request{PaneID: "%404", Command: "ls"})
	require.True(t, mux.IsGatewayError(err))
	require.False(t, errors.Is(err, ErrIneligiblePane))
	require.Empty(t, tm.sent())
	require.Empty(t, d.Tracker().IDs())
}

func TestExecute_Raw(t *testing.T) {
	tm := newFakeTmux()
	tm.process["%1"] = "python3"
	d := newTestDispatcher(tm)

	id, err := d.Execute(context.Background(), Request{PaneID: "%1", Command: "print('x')", Raw: true})
	require.NoError(t, err)
	require.Zero(t, tm.count("display-message"), "raw mode skips the eligibility check")
	require.Equal(t, [][]string{lit("print('x')"), {"Enter"}}, tm.sent())

	rec, _ := d.Tracker().Get(id)
	require.True(t, rec.RawMode)
}

func TestExecute_NoEnterNamedKey(t *testing.T) {
	tm := newFakeTmux()
	d := newTestDispatcher(tm)

	id, err := d.Execute(context.Background(), Request{PaneID: "%1", Command: "Up", NoEnter: true})
	require.NoError(t, err)
	require.Equal(t, [][]string{{"Up"}}, tm.sent())
	require.Zero(t, tm.count("display-message"))

	rec, _ := d.Tracker().Get(id)
	require.True(t, rec.RawMode)
}

func TestExecute_NoEnterCharacters(t *testing.T) {
	tm := newFakeTmux()
	d := newTestDispatcher(tm)

	_, err := d.Execute(context.Background(), Request{PaneID: "%1", Command: "ab", NoEnter: true})
	require.NoError(t, err)
	require.Equal(t, [][]string{lit("a"), lit("b")}, tm.sent(), "each character is its own key event with no Enter")
}

func TestExecute_NoEnterWinsOverRaw(t *testing.T) {
	tm := newFakeTmux()
	d := newTestDispatcher(tm)

	_, err := d.Execute(context.Background(), Request{PaneID: "%1", Command: "C-c", Raw: true, NoEnter: true})
	require.NoError(t, err)
	require.Equal(t, [][]string{{"C-c"}}, tm.sent())
}

func TestExecute_SendFailureForgetsRecord(t *testing.T) {
	tm := newFakeTmux()
	tm.process["%1"] = "bash"
	tm.sendErr = errors.New("exit status 1")
	d := newTestDispatcher(tm)

	_, err := d.Execute(context.Background(), Request{PaneID: "%1", Command: "ls"})
	require.True(t, mux.IsGatewayError(err))
	require.Empty(t, d.Tracker().IDs())
}

func TestExecute_ThenResolve(t *testing.T) {
	tm := newFakeTmux()
	tm.process["%1"] = "bash"
	d := newTestDispatcher(tm)

	id, err := d.Execute(context.Background(), Request{PaneID: "%1", Command: "echo hi"})
	require.NoError(t, err)

	tm.setScreen("%1", "$ tmux_mcp_arm\nTMUX_MCP_START\necho hi\nhi\nTMUX_MCP_DONE_0\n$ ")
	rec, ok, err := d.Tracker().CheckStatus(context.Background(), id)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, model.StatusCompleted, rec.Status)
	require.Equal(t, 0, *rec.ExitCode)
	require.Equal(t, "hi", rec.Result)
}

func TestRequestMode(t *testing.T) {
	require.Equal(t, ModeNormal, Request{}.Mode())
	require.Equal(t, ModeRaw, Request{Raw: true}.Mode())
	require.Equal(t, ModeKeys, Request{NoEnter: true}.Mode())
	require.Equal(t, ModeKeys, Request{Raw: true, NoEnter: true}.Mode())
}
