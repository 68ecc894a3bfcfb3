package execution

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/timvw/pane-relay/internal/mux"
)

// fakeTmux scripts the handful of tmux subcommands the dispatcher and
// tracker use and records every call.
type fakeTmux struct {
	mu         sync.Mutex
	process    map[string]string // pane -> pane_current_command
	screen     map[string]string // pane -> capture-pane output
	results    map[string]string // command line -> text appended to the screen when it is submitted
	typed      map[string]string // pane -> last literal text sent
	sendErr    error
	captureErr error
	calls      [][]string
}

func newFakeTmux() *fakeTmux {
	return &fakeTmux{
		process: map[string]string{},
		screen:  map[string]string{},
		results: map[string]string{},
		typed:   map[string]string{},
	}
}

func (f *fakeTmux) client() *mux.Client {
	return mux.NewClient(mux.GatewayFunc(f.run))
}

func (f *fakeTmux) run(_ context.Context, args ...string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, args)

	pane := targetOf(args)
	switch args[0] {
	case "display-message":
		p, ok := f.process[pane]
		if !ok {
			return "", &mux.GatewayError{Args: args, Stderr: "can't find pane: " + pane, Err: errors.New("exit status 1")}
		}
		return p, nil
	case "capture-pane":
		if f.captureErr != nil {
			return "", &mux.GatewayError{Args: args, Err: f.captureErr}
		}
		return strings.TrimSpace(f.screen[pane]), nil
	case "send-keys":
		if f.sendErr != nil {
			return "", &mux.GatewayError{Args: args, Err: f.sendErr}
		}
		last := args[len(args)-1]
		switch {
		case len(args) > 4 && args[3] == "-l":
			f.typed[pane] = last
		case last == "Enter":
			if out, ok := f.results[f.typed[pane]]; ok {
				f.screen[pane] += out
			}
			f.typed[pane] = ""
		}
		return "", nil
	}
	return "", nil
}

func (f *fakeTmux) setScreen(pane, content string) {
	f.mu.Lock()
	f.screen[pane] = content
	f.mu.Unlock()
}

// sent returns the send-keys calls with the "send-keys -t PANE" prefix removed.
func (f *fakeTmux) sent() [][]string {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out [][]string
	for _, c := range f.calls {
		if c[0] == "send-keys" {
			out = append(out, c[3:])
		}
	}
	return out
}

func (f *fakeTmux) count(sub string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.calls {
		if c[0] == sub {
			n++
		}
	}
	return n
}

func targetOf(args []string) string {
	for i := 0; i < len(args)-1; i++ {
		if args[i] == "-t" {
			return args[i+1]
		}
	}
	return ""
}
