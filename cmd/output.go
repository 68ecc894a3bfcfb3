package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/charmbracelet/x/ansi"

	"github.com/timvw/pane-relay/internal/model"
)

var (
	colorBorder  = lipgloss.Color("#484848")
	colorHeader  = lipgloss.Color("#fab283")
	colorMuted   = lipgloss.Color("#808080")
	colorSuccess = lipgloss.Color("#7fd88f")
	colorError   = lipgloss.Color("#e06c75")
	colorWarning = lipgloss.Color("#f5a742")

	headerStyle = lipgloss.NewStyle().Foreground(colorHeader).Bold(true).Padding(0, 1)
	cellStyle   = lipgloss.NewStyle().Padding(0, 1)
	mutedStyle  = lipgloss.NewStyle().Foreground(colorMuted)
)

// printJSON writes v to stdout as indented JSON.
func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// printTable renders rows under headers.
func printTable(headers []string, rows [][]string) {
	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(colorBorder)).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			return cellStyle
		}).
		Headers(headers...).
		Rows(rows...)
	fmt.Println(t.Render())
}

// statusText colors an execution status for terminal output.
func statusText(s model.Status) string {
	style := lipgloss.NewStyle()
	switch s {
	case model.StatusCompleted:
		style = style.Foreground(colorSuccess)
	case model.StatusError:
		style = style.Foreground(colorError)
	default:
		style = style.Foreground(colorWarning)
	}
	return style.Render(string(s))
}

func exitCodeText(code *int) string {
	if code == nil {
		return mutedStyle.Render("-")
	}
	return strconv.Itoa(*code)
}

func boolMark(b bool) string {
	if b {
		return "*"
	}
	return ""
}

// cell flattens s onto one line and truncates it to n display cells.
func cell(s string, n int) string {
	return ansi.Truncate(strings.ReplaceAll(strings.TrimSpace(s), "\n", " ⏎ "), n, "…")
}
