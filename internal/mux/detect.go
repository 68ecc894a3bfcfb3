package mux

import (
	"context"
	"fmt"
	"os"
	"os/exec"
)

// Detect returns a tmux gateway when one is usable: either this process runs
// inside tmux, or a tmux binary is on PATH and its server answers.
func Detect(ctx context.Context, socket string) (*Tmux, error) {
	t := NewTmux()
	t.Socket = socket

	if os.Getenv("TMUX") != "" {
		return t, nil
	}
	if os.Getenv("ZELLIJ") != "" {
		return nil, fmt.Errorf("zellij is not supported: pane-relay needs tmux send-keys and capture-pane")
	}

	if _, err := exec.LookPath(t.binary()); err == nil {
		if NewClient(t).Available(ctx) {
			return t, nil
		}
		return nil, fmt.Errorf("tmux is installed but no server is running (start one with `tmux new -d`)")
	}

	return nil, fmt.Errorf("no supported terminal multiplexer detected (set $TMUX or install tmux)")
}

// FromName creates a gateway by multiplexer name.
func FromName(name, socket string) (*Tmux, error) {
	switch name {
	case "tmux":
		t := NewTmux()
		t.Socket = socket
		return t, nil
	case "zellij":
		return nil, fmt.Errorf("zellij is not supported: pane-relay needs tmux send-keys and capture-pane")
	default:
		return nil, fmt.Errorf("unknown multiplexer: %q (supported: tmux)", name)
	}
}
