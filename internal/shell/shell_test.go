package shell

import (
	"strings"
	"testing"

	"github.com/timvw/pane-relay/internal/marker"
)

func TestParseFamily(t *testing.T) {
	tests := []struct {
		in   string
		want Family
	}{
		{"bash", Bash},
		{"zsh", Zsh},
		{"fish", Fish},
		{" ZSH ", Zsh},
		{"Fish", Fish},
		{"", Bash},
		{"tcsh", Bash},
		{"powershell", Bash},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			if got := ParseFamily(tt.in); got != tt.want {
				t.Errorf("ParseFamily(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestExitStatusExpansion(t *testing.T) {
	tests := []struct {
		family Family
		want   string
	}{
		{Bash, "$?"},
		{Zsh, "$?"},
		{Fish, "$status"},
		{ParseFamily("nushell"), "$?"},
	}
	for _, tt := range tests {
		if got := ExitStatusExpansion(tt.family); got != tt.want {
			t.Errorf("ExitStatusExpansion(%q) = %q, want %q", tt.family, got, tt.want)
		}
	}
}

func TestHookScript(t *testing.T) {
	for _, f := range Families() {
		t.Run(string(f), func(t *testing.T) {
			script, err := HookScript(f)
			if err != nil {
				t.Fatalf("HookScript: %v", err)
			}
			for _, want := range []string{HookCommand, marker.StartMarker, marker.EndMarkerPrefix, ExitStatusExpansion(f)} {
				if !strings.Contains(script, want) {
					t.Errorf("%s hook missing %q:\n%s", f, want, script)
				}
			}
		})
	}
}

func TestHookScript_Mechanism(t *testing.T) {
	tests := []struct {
		family Family
		want   string
	}{
		{Bash, "PROMPT_COMMAND=$__pane_relay_saved_prompt_command"},
		{Zsh, "precmd_functions+=(__pane_relay_hook)"},
		{Fish, "--on-event fish_prompt"},
	}
	for _, tt := range tests {
		script, err := HookScript(tt.family)
		if err != nil {
			t.Fatalf("HookScript(%s): %v", tt.family, err)
		}
		if !strings.Contains(script, tt.want) {
			t.Errorf("%s hook should contain %q", tt.family, tt.want)
		}
	}
}

func TestHookScript_UnknownFamily(t *testing.T) {
	if _, err := HookScript(Family("tcsh")); err == nil {
		t.Fatal("expected error for family without a template")
	}
}
