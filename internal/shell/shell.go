// Package shell knows the per-shell conventions of the completion hook:
// which variable holds the last exit status and how a one-shot prompt hook
// is armed.
package shell

import (
	"bytes"
	"fmt"
	"strings"
	"text/template"

	"github.com/timvw/pane-relay/internal/marker"
)

// Family is a shell family with its own prompt-hook mechanism.
type Family string

const (
	Bash Family = "bash"
	Zsh  Family = "zsh"
	Fish Family = "fish"
)

// HookCommand is typed into the pane before each tracked command. The shell
// runs it, which arms the one-shot completion hook.
const HookCommand = "tmux_mcp_arm"

// Families lists the supported shell families.
func Families() []Family {
	return []Family{Bash, Zsh, Fish}
}

// ParseFamily maps a configured shell name to its family. Anything not
// recognised is treated as bash.
func ParseFamily(s string) Family {
	switch Family(strings.ToLower(strings.TrimSpace(s))) {
	case Zsh:
		return Zsh
	case Fish:
		return Fish
	default:
		return Bash
	}
}

// ExitStatusExpansion returns the shell text that expands to the last exit
// status. The hook appends it to marker.EndMarkerPrefix.
func ExitStatusExpansion(f Family) string {
	if f == Fish {
		return "$status"
	}
	return "$?"
}

var hookTemplates = map[Family]string{
	Bash: `# pane-relay completion hook (bash)
{{.Arm}}() {
  __pane_relay_saved_prompt_command=$PROMPT_COMMAND
  __pane_relay_fired=0
  PROMPT_COMMAND=__pane_relay_hook
}
__pane_relay_hook() {
  local last={{.ExitStatus}}
  if [ "$__pane_relay_fired" = 0 ]; then
    __pane_relay_fired=1
    printf '%s\n' '{{.Start}}'
  else
    printf '%s\n' "{{.EndPrefix}}$last"
    PROMPT_COMMAND=$__pane_relay_saved_prompt_command
    unset __pane_relay_saved_prompt_command __pane_relay_fired
  fi
}
`,
	Zsh: `# pane-relay completion hook (zsh)
{{.Arm}}() {
  typeset -g __pane_relay_fired=0
  precmd_functions+=(__pane_relay_hook)
}
__pane_relay_hook() {
  local last={{.ExitStatus}}
  if (( __pane_relay_fired == 0 )); then
    __pane_relay_fired=1
    print -r -- '{{.Start}}'
  else
    print -r -- "{{.EndPrefix}}${last}"
    precmd_functions=(${precmd_functions:#__pane_relay_hook})
    unset __pane_relay_fired
  fi
}
`,
	Fish: `# pane-relay completion hook (fish)
function {{.Arm}}
    set -g __pane_relay_fired 0
    function __pane_relay_hook --on-event fish_prompt
        set -l last {{.ExitStatus}}
        if test $__pane_relay_fired = 0
            set -g __pane_relay_fired 1
            echo '{{.Start}}'
        else
            echo "{{.EndPrefix}}$last"
            set -e __pane_relay_fired
            functions -e __pane_relay_hook
        end
    end
end
`,
}

type hookData struct {
	Arm        string
	Start      string
	EndPrefix  string
	ExitStatus string
}

// HookScript renders the shell-side hook for f. Source it from the shell's
// rc file; the dispatcher relies on HookCommand being defined in the pane.
func HookScript(f Family) (string, error) {
	text, ok := hookTemplates[f]
	if !ok {
		return "", fmt.Errorf("no hook template for shell %q", f)
	}
	tmpl, err := template.New(string(f)).Parse(text)
	if err != nil {
		return "", fmt.Errorf("parse %s hook template: %w", f, err)
	}
	var buf bytes.Buffer
	err = tmpl.Execute(&buf, hookData{
		Arm:        HookCommand,
		Start:      marker.StartMarker,
		EndPrefix:  marker.EndMarkerPrefix,
		ExitStatus: ExitStatusExpansion(f),
	})
	if err != nil {
		return "", fmt.Errorf("render %s hook: %w", f, err)
	}
	return buf.String(), nil
}
