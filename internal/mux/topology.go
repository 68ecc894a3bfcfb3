package mux

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/timvw/pane-relay/internal/model"
)

// DefaultCaptureLines is the scroll-back window used by CapturePane callers
// that do not choose their own.
const DefaultCaptureLines = 200

const (
	sessionFormat = "#{session_id}\t#{session_name}\t#{session_attached}\t#{session_windows}"
	windowFormat  = "#{window_id}\t#{window_name}\t#{window_index}\t#{window_active}\t#{session_id}"
	// Title goes last: it is free text and may contain tabs.
	paneFormat = "#{pane_id}\t#{session_name}:#{window_index}.#{pane_index}\t#{window_id}\t#{pane_active}\t#{pane_pid}\t#{pane_current_command}\t#{pane_title}"
)

// Client runs topology queries, mutations, pane capture and key transport
// over a Gateway.
type Client struct {
	gw Gateway
}

// NewClient creates a Client on top of gw.
func NewClient(gw Gateway) *Client {
	return &Client{gw: gw}
}

// Gateway returns the underlying gateway.
func (c *Client) Gateway() Gateway {
	return c.gw
}

// Available reports whether a tmux server is reachable. Failure is a
// negative answer, never an error.
func (c *Client) Available(ctx context.Context) bool {
	_, err := c.gw.Run(ctx, "list-sessions", "-F", "#{session_id}")
	return err == nil
}

// ListSessions returns all sessions on the server.
func (c *Client) ListSessions(ctx context.Context) ([]model.Session, error) {
	out, err := c.gw.Run(ctx, "list-sessions", "-F", sessionFormat)
	if err != nil {
		return nil, err
	}
	var sessions []model.Session
	for _, line := range splitLines(out) {
		parts := strings.SplitN(line, "\t", 4)
		if len(parts) != 4 {
			continue
		}
		attached, _ := strconv.Atoi(parts[2])
		windows, _ := strconv.Atoi(parts[3])
		sessions = append(sessions, model.Session{
			ID:       parts[0],
			Name:     parts[1],
			Attached: attached > 0,
			Windows:  windows,
		})
	}
	return sessions, nil
}

// FindSessionByName returns the session with the given name, or nil when it
// does not exist. Gateway failures (including "no server running") are also
// reported as nil: this is an existence check.
func (c *Client) FindSessionByName(ctx context.Context, name string) (*model.Session, error) {
	sessions, err := c.ListSessions(ctx)
	if err != nil {
		return nil, nil
	}
	for _, s := range sessions {
		if s.Name == name {
			return &s, nil
		}
	}
	return nil, nil
}

// ListWindows returns the windows of a session.
func (c *Client) ListWindows(ctx context.Context, sessionID string) ([]model.Window, error) {
	out, err := c.gw.Run(ctx, "list-windows", "-t", sessionID, "-F", windowFormat)
	if err != nil {
		return nil, err
	}
	var windows []model.Window
	for _, line := range splitLines(out) {
		parts := strings.SplitN(line, "\t", 5)
		if len(parts) != 5 {
			continue
		}
		index, _ := strconv.Atoi(parts[2])
		windows = append(windows, model.Window{
			ID:        parts[0],
			Name:      parts[1],
			Index:     index,
			Active:    parts[3] == "1",
			SessionID: parts[4],
		})
	}
	return windows, nil
}

// ListPanes returns the panes of a window.
func (c *Client) ListPanes(ctx context.Context, windowID string) ([]model.Pane, error) {
	out, err := c.gw.Run(ctx, "list-panes", "-t", windowID, "-F", paneFormat)
	if err != nil {
		return nil, err
	}
	return parsePanes(out), nil
}

// ListAllPanes returns every pane on the server, optionally filtered by a
// session name regex pattern. An empty filter returns all panes.
func (c *Client) ListAllPanes(ctx context.Context, filter string) ([]model.Pane, error) {
	var re *regexp.Regexp
	if filter != "" {
		var err error
		re, err = regexp.Compile(filter)
		if err != nil {
			return nil, fmt.Errorf("invalid filter pattern %q: %w", filter, err)
		}
	}

	out, err := c.gw.Run(ctx, "list-panes", "-a", "-F", paneFormat)
	if err != nil {
		return nil, err
	}

	var panes []model.Pane
	for _, p := range parsePanes(out) {
		if re != nil && !re.MatchString(p.Session) {
			continue
		}
		panes = append(panes, p)
	}
	return panes, nil
}

// ListActivePanes returns the active pane of every window on the server.
func (c *Client) ListActivePanes(ctx context.Context) ([]model.Pane, error) {
	all, err := c.ListAllPanes(ctx, "")
	if err != nil {
		return nil, err
	}
	var active []model.Pane
	for _, p := range all {
		if p.Active {
			active = append(active, p)
		}
	}
	return active, nil
}

// CapturePane returns the last `lines` lines of a pane's content, with
// wrapped lines joined. colors keeps escape sequences in the output.
func (c *Client) CapturePane(ctx context.Context, paneID string, lines int, colors bool) (string, error) {
	if lines <= 0 {
		lines = DefaultCaptureLines
	}
	args := []string{"capture-pane", "-p", "-J", "-t", paneID, "-S", "-" + strconv.Itoa(lines)}
	if colors {
		args = append(args, "-e")
	}
	return c.gw.Run(ctx, args...)
}

// PaneCurrentCommand returns the name of the foreground process in a pane.
func (c *Client) PaneCurrentCommand(ctx context.Context, paneID string) (string, error) {
	return c.gw.Run(ctx, "display-message", "-p", "-t", paneID, "#{pane_current_command}")
}

// CreateSession creates a detached session and returns it.
func (c *Client) CreateSession(ctx context.Context, name string) (*model.Session, error) {
	if _, err := c.gw.Run(ctx, "new-session", "-d", "-s", name); err != nil {
		return nil, err
	}
	s, _ := c.FindSessionByName(ctx, name)
	if s == nil {
		return nil, fmt.Errorf("session %q not found after creation", name)
	}
	return s, nil
}

// CreateWindow creates a window in a session and returns it.
func (c *Client) CreateWindow(ctx context.Context, sessionID, name string) (*model.Window, error) {
	if _, err := c.gw.Run(ctx, "new-window", "-t", sessionID, "-n", name); err != nil {
		return nil, err
	}
	windows, err := c.ListWindows(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	for i := len(windows) - 1; i >= 0; i-- {
		if windows[i].Name == name {
			w := windows[i]
			return &w, nil
		}
	}
	return nil, fmt.Errorf("window %q not found in session %s after creation", name, sessionID)
}

// SplitDirection selects how a pane is split.
type SplitDirection string

const (
	SplitHorizontal SplitDirection = "horizontal" // side by side
	SplitVertical   SplitDirection = "vertical"   // stacked
)

// SplitPane splits a pane and returns the new pane. size is a percentage of
// the original pane (0 lets tmux decide).
//
// tmux does not report the id of the pane it created, so the window's pane
// list is re-read and its last entry is returned.
func (c *Client) SplitPane(ctx context.Context, paneID string, direction SplitDirection, size int) (*model.Pane, error) {
	args := []string{"split-window", "-t", paneID}
	switch direction {
	case SplitHorizontal:
		args = append(args, "-h")
	case SplitVertical, "":
		args = append(args, "-v")
	default:
		return nil, fmt.Errorf("invalid split direction %q (want horizontal or vertical)", direction)
	}
	if size != 0 {
		if size < 1 || size > 99 {
			return nil, fmt.Errorf("invalid split size %d (want 1-99)", size)
		}
		args = append(args, "-l", strconv.Itoa(size)+"%")
	}
	if _, err := c.gw.Run(ctx, args...); err != nil {
		return nil, err
	}

	windowID, err := c.gw.Run(ctx, "display-message", "-p", "-t", paneID, "#{window_id}")
	if err != nil {
		return nil, err
	}
	panes, err := c.ListPanes(ctx, windowID)
	if err != nil {
		return nil, err
	}
	if len(panes) == 0 {
		return nil, fmt.Errorf("no panes in window %s after split", windowID)
	}
	p := panes[len(panes)-1]
	return &p, nil
}

// KillSession kills a session by id.
func (c *Client) KillSession(ctx context.Context, sessionID string) error {
	_, err := c.gw.Run(ctx, "kill-session", "-t", sessionID)
	return err
}

// KillWindow kills a window by id.
func (c *Client) KillWindow(ctx context.Context, windowID string) error {
	_, err := c.gw.Run(ctx, "kill-window", "-t", windowID)
	return err
}

// KillPane kills a pane by id.
func (c *Client) KillPane(ctx context.Context, paneID string) error {
	_, err := c.gw.Run(ctx, "kill-pane", "-t", paneID)
	return err
}

func parsePanes(out string) []model.Pane {
	var panes []model.Pane
	for _, line := range splitLines(out) {
		parts := strings.SplitN(line, "\t", 7)
		if len(parts) == 6 {
			// An empty title on the last line loses its tab to output trimming.
			parts = append(parts, "")
		}
		if len(parts) != 7 {
			continue
		}
		pane, err := parseTarget(parts[1])
		if err != nil {
			continue
		}
		pane.ID = parts[0]
		pane.WindowID = parts[2]
		pane.Active = parts[3] == "1"
		pane.PID, _ = strconv.Atoi(parts[4])
		pane.Command = parts[5]
		pane.Title = parts[6]
		panes = append(panes, pane)
	}
	return panes
}

func splitLines(out string) []string {
	var lines []string
	for _, line := range strings.Split(out, "\n") {
		if strings.TrimSpace(line) == "" {
			continue
		}
		lines = append(lines, line)
	}
	return lines
}

// parseTarget parses a tmux target string "session:window.pane" into a Pane.
func parseTarget(target string) (model.Pane, error) {
	colonIdx := strings.LastIndex(target, ":")
	if colonIdx < 0 {
		return model.Pane{}, fmt.Errorf("invalid target %q: missing ':'", target)
	}

	session := target[:colonIdx]
	rest := target[colonIdx+1:]

	dotIdx := strings.LastIndex(rest, ".")
	if dotIdx < 0 {
		return model.Pane{}, fmt.Errorf("invalid target %q: missing '.'", target)
	}

	window, err := strconv.Atoi(rest[:dotIdx])
	if err != nil {
		return model.Pane{}, fmt.Errorf("invalid window index in %q: %w", target, err)
	}

	pane, err := strconv.Atoi(rest[dotIdx+1:])
	if err != nil {
		return model.Pane{}, fmt.Errorf("invalid pane index in %q: %w", target, err)
	}

	return model.Pane{
		Target:  target,
		Session: session,
		Window:  window,
		Pane:    pane,
	}, nil
}
