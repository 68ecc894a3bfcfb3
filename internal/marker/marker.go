// Package marker parses the completion markers that the shell-side hook
// prints around a command's output.
//
// The grammar is deliberately small:
//
//	... StartMarker <echoed command line> <output...> EndMarkerPrefix <digits> ...
//
// The last occurrence of each marker wins, since a pane's scroll-back may
// still hold markers from earlier commands. The first line after the start
// marker is the shell echoing the submitted command and is not output.
package marker

import (
	"strconv"
	"strings"

	"github.com/charmbracelet/x/ansi"
)

const (
	// StartMarker is printed once the hook is armed, before the command runs.
	StartMarker = "TMUX_MCP_START"
	// EndMarkerPrefix is printed after the command, followed by its exit status.
	EndMarkerPrefix = "TMUX_MCP_DONE_"
)

// Result is a successfully parsed marker pair.
type Result struct {
	ExitCode int
	Output   string
}

// Succeeded reports whether the command exited with status 0.
func (r Result) Succeeded() bool {
	return r.ExitCode == 0
}

// Parse locates the last start marker and the last end marker in captured
// pane text and extracts the exit code and output between them. ok is false
// when the pair is incomplete, out of order, or the end marker carries no
// exit status yet.
func Parse(content string) (res Result, ok bool) {
	content = ansi.Strip(content)

	start := strings.LastIndex(content, StartMarker)
	end := strings.LastIndex(content, EndMarkerPrefix)
	if start < 0 || end < 0 || end <= start {
		return Result{}, false
	}

	code, ok := leadingInt(content[end+len(EndMarkerPrefix):])
	if !ok {
		return Result{}, false
	}

	return Result{
		ExitCode: code,
		Output:   extractOutput(content[start+len(StartMarker) : end]),
	}, true
}

// leadingInt parses the run of ASCII digits at the start of s.
func leadingInt(s string) (int, bool) {
	n := 0
	for n < len(s) && s[n] >= '0' && s[n] <= '9' {
		n++
	}
	if n == 0 {
		return 0, false
	}
	v, err := strconv.Atoi(s[:n])
	if err != nil {
		return 0, false
	}
	return v, true
}

// extractOutput trims the span, drops its first line (the echoed command)
// and trims again.
func extractOutput(span string) string {
	span = strings.TrimSpace(span)
	nl := strings.IndexByte(span, '\n')
	if nl < 0 {
		return ""
	}
	return strings.TrimSpace(span[nl+1:])
}
