package model

import (
	"fmt"
	"strings"
	"time"
)

// Session is a tmux session.
type Session struct {
	// ID is the tmux session id (e.g., "$0").
	ID string `json:"id"`
	// Name is the session name.
	Name string `json:"name"`
	// Attached is true when at least one client is viewing the session.
	Attached bool `json:"attached"`
	// Windows is the number of windows in the session.
	Windows int `json:"windows"`
}

// Window is a tmux window within a session.
type Window struct {
	// ID is the tmux window id (e.g., "@1").
	ID string `json:"id"`
	// Name is the window name.
	Name string `json:"name"`
	// Index is the window index within its session.
	Index int `json:"index"`
	// Active is true for the session's current window.
	Active bool `json:"active"`
	// SessionID is the id of the owning session.
	SessionID string `json:"session_id"`
}

// Pane represents a terminal multiplexer pane.
type Pane struct {
	// ID is the tmux pane id (e.g., "%3"). Stable for the pane's lifetime.
	ID string `json:"id"`
	// Target is the fully qualified pane identifier (e.g., "session:0.0").
	Target string `json:"target"`
	// Session is the session name.
	Session string `json:"session"`
	// Window is the window index.
	Window int `json:"window"`
	// Pane is the pane index.
	Pane int `json:"pane"`
	// WindowID is the id of the owning window.
	WindowID string `json:"window_id"`
	// Title is the pane title.
	Title string `json:"title"`
	// Active is true for the window's current pane.
	Active bool `json:"active"`
	// PID is the pane's shell process ID.
	PID int `json:"pid"`
	// Command is the current foreground command in the pane (e.g., "bash", "vim").
	Command string `json:"command"`
	// ProcessTree is the list of child processes (command lines) running in the pane.
	ProcessTree []string `json:"process_tree,omitempty"`
}

// Status is the lifecycle state of an Execution.
type Status string

const (
	StatusPending   Status = "pending"
	StatusCompleted Status = "completed"
	StatusError     Status = "error"
)

// Terminal reports whether the status can no longer change.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusError
}

// Execution is one command submitted to a pane.
type Execution struct {
	// ID is the opaque lookup key generated at submission.
	ID string `json:"id"`
	// PaneID is the target pane at submission time. Never re-validated.
	PaneID string `json:"pane_id"`
	// Command is the literal text submitted.
	Command string `json:"command"`
	// Status moves from pending to completed or error, never back.
	Status Status `json:"status"`
	// StartTime is when the command was submitted. Used for eviction.
	StartTime time.Time `json:"start_time"`
	// Result is the extracted output for terminal records, or an advisory
	// message for pending ones. Empty when nothing is known yet.
	Result string `json:"result,omitempty"`
	// ExitCode is set only when marker parsing resolved the record.
	ExitCode *int `json:"exit_code,omitempty"`
	// RawMode records are never resolved through markers.
	RawMode bool `json:"raw_mode"`
}

// Age returns how long ago the execution was submitted.
func (e Execution) Age(now time.Time) time.Duration {
	return now.Sub(e.StartTime)
}

// Summary returns a one-line description used in CLI output and logs.
func (e Execution) Summary() string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("%s [%s] %q", e.ID, e.Status, e.Command))
	if e.ExitCode != nil {
		b.WriteString(fmt.Sprintf(" exit=%d", *e.ExitCode))
	}
	if e.RawMode {
		b.WriteString(" raw")
	}
	return b.String()
}
