package mux

import (
	"context"
	"fmt"
)

// namedKeys are tmux key names sent as a single key event rather than typed.
var namedKeys = map[string]bool{
	"Up": true, "Down": true, "Left": true, "Right": true,
	"Home": true, "End": true,
	"PageUp": true, "PageDown": true, "PgUp": true, "PgDn": true, "PPage": true, "NPage": true,
	"Enter": true, "Escape": true, "Tab": true, "BTab": true,
	"Space": true, "BSpace": true, "DC": true, "IC": true,
	"F1": true, "F2": true, "F3": true, "F4": true, "F5": true, "F6": true,
	"F7": true, "F8": true, "F9": true, "F10": true, "F11": true, "F12": true,
}

// IsNamedKey reports whether keys is a tmux key name (e.g. "Up", "F5") or a
// Ctrl/Meta chord ("C-c", "M-x") rather than text to type.
func IsNamedKey(keys string) bool {
	if namedKeys[keys] {
		return true
	}
	if len(keys) == 3 && keys[1] == '-' && (keys[0] == 'C' || keys[0] == 'M') {
		return true
	}
	return false
}

// SendKey sends one named key event to a pane.
func (c *Client) SendKey(ctx context.Context, paneID, key string) error {
	if _, err := c.gw.Run(ctx, "send-keys", "-t", paneID, key); err != nil {
		return fmt.Errorf("send key %s: %w", key, err)
	}
	return nil
}

// SendLiteral types text into a pane verbatim. tmux never interprets it as
// key names or command separators.
func (c *Client) SendLiteral(ctx context.Context, paneID, text string) error {
	if _, err := c.gw.Run(ctx, "send-keys", "-t", paneID, "-l", "--", text); err != nil {
		return fmt.Errorf("send literal keys: %w", err)
	}
	return nil
}

// SendLine types text and confirms it with Enter. The two are separate
// send-keys calls because -l would type "Enter" as literal text.
func (c *Client) SendLine(ctx context.Context, paneID, text string) error {
	if err := c.SendLiteral(ctx, paneID, text); err != nil {
		return err
	}
	return c.SendKey(ctx, paneID, "Enter")
}

// SendEach types text one character at a time, each as its own key event,
// with no trailing Enter.
func (c *Client) SendEach(ctx context.Context, paneID, text string) error {
	for _, r := range text {
		if err := c.SendLiteral(ctx, paneID, string(r)); err != nil {
			return err
		}
	}
	return nil
}
