package mux

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/timvw/pane-relay/internal/logging"
	ppotel "github.com/timvw/pane-relay/internal/otel"
)

var (
	tracer = otel.Tracer("pane-relay")
	gwLog  = logging.ForComponent(logging.CompGateway)
)

// GatewayError is returned for any failed multiplexer invocation: bad target
// id, server not running, malformed arguments or a missing binary.
type GatewayError struct {
	Args   []string
	Stderr string
	Err    error
}

func (e *GatewayError) Error() string {
	msg := fmt.Sprintf("tmux %s: %v", subcommand(e.Args), e.Err)
	if e.Stderr != "" {
		msg += ": " + e.Stderr
	}
	return msg
}

func (e *GatewayError) Unwrap() error {
	return e.Err
}

// IsGatewayError reports whether err came from a failed tmux invocation.
func IsGatewayError(err error) bool {
	var gwErr *GatewayError
	return errors.As(err, &gwErr)
}

// Tmux implements Gateway by running the tmux binary.
type Tmux struct {
	// Binary is the tmux executable. Defaults to "tmux".
	Binary string
	// Socket selects a tmux server: an absolute path is passed with -S,
	// anything else as a socket name with -L. Empty uses the default server.
	Socket string
	// Metrics counts invocations; nil-safe.
	Metrics *ppotel.Metrics
}

// NewTmux creates a tmux gateway for the default server.
func NewTmux() *Tmux {
	return &Tmux{Binary: "tmux"}
}

// Name returns "tmux".
func (t *Tmux) Name() string {
	return "tmux"
}

// Run executes a tmux command and returns its trimmed stdout.
func (t *Tmux) Run(ctx context.Context, args ...string) (string, error) {
	sub := subcommand(args)
	ctx, span := tracer.Start(ctx, "tmux "+sub,
		trace.WithAttributes(attribute.StringSlice("tmux.args", args)))
	defer span.End()

	cmd := exec.CommandContext(ctx, t.binary(), t.argv(args)...)
	out, err := cmd.Output()
	t.Metrics.RecordTmuxCommand(ctx, sub, err == nil)
	if err != nil {
		gwErr := &GatewayError{Args: args, Err: err}
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			gwErr.Stderr = strings.TrimSpace(string(exitErr.Stderr))
		}
		span.RecordError(gwErr)
		span.SetStatus(codes.Error, gwErr.Error())
		gwLog.Debug("tmux failed", "args", args, "error", gwErr.Error())
		return "", gwErr
	}
	return strings.TrimSpace(string(out)), nil
}

func (t *Tmux) binary() string {
	if t.Binary == "" {
		return "tmux"
	}
	return t.Binary
}

func (t *Tmux) argv(args []string) []string {
	if t.Socket == "" {
		return args
	}
	flag := "-L"
	if strings.HasPrefix(t.Socket, "/") {
		flag = "-S"
	}
	return append([]string{flag, t.Socket}, args...)
}

func subcommand(args []string) string {
	if len(args) == 0 {
		return ""
	}
	return args[0]
}
