package cmd

import (
	"context"
	"errors"
	"testing"

	"github.com/timvw/pane-relay/internal/mux"
)

// topologyGateway answers list-* queries keyed by subcommand and target.
func topologyGateway(replies map[string]string) mux.Gateway {
	return mux.GatewayFunc(func(_ context.Context, args ...string) (string, error) {
		key := args[0]
		for i := 0; i < len(args)-1; i++ {
			if args[i] == "-t" {
				key += " " + args[i+1]
			}
		}
		out, ok := replies[key]
		if !ok {
			return "", &mux.GatewayError{Args: args, Err: errors.New("exit status 1"), Stderr: "no reply for " + key}
		}
		return out, nil
	})
}

func TestCollectTopology(t *testing.T) {
	c := mux.NewClient(topologyGateway(map[string]string{
		"list-sessions":   "$0\tmain\t1\t2\n$1\tscratch\t0\t1",
		"list-windows $0": "@1\teditor\t0\t1\t$0\n@2\tlogs\t1\t0\t$0",
		"list-windows $1": "@3\tzsh\t0\t1\t$1",
		"list-panes @1":   "%1\tmain:0.0\t@1\t1\t10\tvim\t\n%2\tmain:0.1\t@1\t0\t11\tbash\t",
		"list-panes @2":   "%3\tmain:1.0\t@2\t1\t12\ttail\t",
		"list-panes @3":   "%4\tscratch:0.0\t@3\t1\t13\tzsh\t",
	}))

	nodes, err := collectTopology(context.Background(), c)
	if err != nil {
		t.Fatalf("collectTopology: %v", err)
	}
	if len(nodes) != 2 {
		t.Fatalf("expected 2 sessions, got %d", len(nodes))
	}
	if nodes[0].Session.Name != "main" || nodes[1].Session.Name != "scratch" {
		t.Errorf("sessions out of order: %q, %q", nodes[0].Session.Name, nodes[1].Session.Name)
	}
	if len(nodes[0].Windows) != 2 || len(nodes[0].Windows[0].Panes) != 2 {
		t.Fatalf("main topology wrong: %+v", nodes[0])
	}
	if got := nodes[1].Windows[0].Panes[0].ID; got != "%4" {
		t.Errorf("scratch pane: got %q, want %%4", got)
	}
}

func TestCollectTopology_PropagatesFailure(t *testing.T) {
	c := mux.NewClient(topologyGateway(map[string]string{
		"list-sessions":   "$0\tmain\t1\t1",
		"list-windows $0": "@1\teditor\t0\t1\t$0",
	}))
	_, err := collectTopology(context.Background(), c)
	if !mux.IsGatewayError(err) {
		t.Fatalf("expected gateway error, got %v", err)
	}
}

func TestCell(t *testing.T) {
	tests := []struct {
		in   string
		n    int
		want string
	}{
		{"short", 10, "short"},
		{"  padded\n", 10, "padded"},
		{"a\nb", 10, "a ⏎ b"},
		{"abcdefghij", 5, "abcd…"},
	}
	for _, tt := range tests {
		if got := cell(tt.in, tt.n); got != tt.want {
			t.Errorf("cell(%q, %d) = %q, want %q", tt.in, tt.n, got, tt.want)
		}
	}
}
