// Package mux is the thin layer between pane-relay and tmux.
//
// Every tmux interaction goes through a Gateway, which runs one tmux
// subcommand and returns its trimmed stdout. Client builds the topology
// queries, pane capture and key transport on top of it. Nothing here
// interprets pane content.
package mux

import "context"

// Gateway executes multiplexer commands.
type Gateway interface {
	// Name returns the multiplexer name (e.g., "tmux").
	Name() string

	// Run executes one multiplexer subcommand with the given arguments and
	// returns stdout with surrounding whitespace trimmed. Any failure is
	// returned as a *GatewayError.
	Run(ctx context.Context, args ...string) (string, error)
}

// GatewayFunc adapts a plain function to the Gateway interface.
type GatewayFunc func(ctx context.Context, args ...string) (string, error)

// Name returns "func".
func (f GatewayFunc) Name() string { return "func" }

// Run calls f.
func (f GatewayFunc) Run(ctx context.Context, args ...string) (string, error) {
	return f(ctx, args...)
}
