package execution

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/timvw/pane-relay/internal/logging"
	"github.com/timvw/pane-relay/internal/mux"
	ppotel "github.com/timvw/pane-relay/internal/otel"
	"github.com/timvw/pane-relay/internal/shell"
)

// Injection modes, as reported in metrics and logs.
const (
	ModeNormal = "normal"
	ModeRaw    = "raw"
	ModeKeys   = "keys"
)

// eligibleProcesses are foreground programs that read injected text as
// shell input.
var eligibleProcesses = map[string]bool{
	"bash": true, "zsh": true, "fish": true, "sh": true, "dash": true,
	"ksh": true, "mksh": true, "tcsh": true, "csh": true, "nu": true,
	"ssh": true, "mosh": true, "mosh-client": true, "et": true,
}

// IsEligibleProcess reports whether a pane running name can receive
// marker-tracked commands. Login shells ("-bash") count as their shell.
func IsEligibleProcess(name string) bool {
	return eligibleProcesses[strings.TrimPrefix(strings.TrimSpace(name), "-")]
}

// ErrIneligiblePane is matched by every *IneligiblePaneError.
var ErrIneligiblePane = errors.New("pane is not running a shell")

// IneligiblePaneError reports a pane whose foreground process would not
// interpret the injected text as shell input.
type IneligiblePaneError struct {
	PaneID  string
	Process string
}

func (e *IneligiblePaneError) Error() string {
	return fmt.Sprintf("pane %s is running %q, not a shell; use raw mode for interactive programs", e.PaneID, e.Process)
}

func (e *IneligiblePaneError) Is(target error) bool {
	return target == ErrIneligiblePane
}

// PaneIO is the subset of mux.Client the dispatcher drives.
type PaneIO interface {
	PaneCurrentCommand(ctx context.Context, paneID string) (string, error)
	SendKey(ctx context.Context, paneID, key string) error
	SendLine(ctx context.Context, paneID, text string) error
	SendEach(ctx context.Context, paneID, text string) error
}

// Request is one command submission.
type Request struct {
	PaneID  string
	Command string
	// Raw sends the command without completion markers.
	Raw bool
	// NoEnter sends the command as keystrokes with no confirming Enter.
	NoEnter bool
}

// Mode returns the injection mode the request will use.
func (r Request) Mode() string {
	switch {
	case r.NoEnter:
		return ModeKeys
	case r.Raw:
		return ModeRaw
	default:
		return ModeNormal
	}
}

// Dispatcher sends commands to panes and registers them with a Tracker.
type Dispatcher struct {
	pane    PaneIO
	tracker *Tracker
	metrics *ppotel.Metrics
	log     *slog.Logger
}

// NewDispatcher creates a dispatcher. metrics may be nil.
func NewDispatcher(pane PaneIO, tracker *Tracker, metrics *ppotel.Metrics) *Dispatcher {
	return &Dispatcher{
		pane:    pane,
		tracker: tracker,
		metrics: metrics,
		log:     logging.ForComponent(logging.CompDispatch),
	}
}

// Tracker returns the registry the dispatcher writes to.
func (d *Dispatcher) Tracker() *Tracker {
	return d.tracker
}

// Execute sends req to its pane and returns the new execution id. Output is
// never returned here; poll the Tracker for it.
func (d *Dispatcher) Execute(ctx context.Context, req Request) (string, error) {
	mode := req.Mode()
	if mode == ModeNormal {
		proc, err := d.pane.PaneCurrentCommand(ctx, req.PaneID)
		if err != nil {
			return "", err
		}
		if !IsEligibleProcess(proc) {
			d.log.Info("refused ineligible pane", "pane", req.PaneID, "process", proc)
			return "", &IneligiblePaneError{PaneID: req.PaneID, Process: proc}
		}
	}

	rec := d.tracker.Register(ctx, req.PaneID, req.Command, mode != ModeNormal)
	if err := d.send(ctx, req, mode); err != nil {
		d.tracker.Forget(rec.ID)
		d.log.Warn("send failed", "id", rec.ID, "pane", req.PaneID, "mode", mode, "error", err)
		return "", err
	}

	d.metrics.RecordSubmitted(ctx, mode)
	d.log.Info("command submitted", "id", rec.ID, "pane", req.PaneID, "mode", mode)
	return rec.ID, nil
}

func (d *Dispatcher) send(ctx context.Context, req Request, mode string) error {
	switch mode {
	case ModeKeys:
		if mux.IsNamedKey(req.Command) {
			return d.pane.SendKey(ctx, req.PaneID, req.Command)
		}
		return d.pane.SendEach(ctx, req.PaneID, req.Command)
	case ModeRaw:
		return d.pane.SendLine(ctx, req.PaneID, req.Command)
	default:
		if err := d.pane.SendLine(ctx, req.PaneID, shell.HookCommand); err != nil {
			return err
		}
		return d.pane.SendLine(ctx, req.PaneID, req.Command)
	}
}
