package otel

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const meterName = "pane-relay"

// Metrics holds all OTEL metric instruments for pane-relay.
// All counters are cumulative (monotonic) and safe for concurrent use.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	// tmux subprocess invocations (partitioned by subcommand + outcome)
	TmuxCommands metric.Int64Counter

	// Execution lifecycle
	Submitted  metric.Int64Counter // partitioned by mode: normal, raw, keys
	Resolved   metric.Int64Counter // partitioned by status: completed, error
	Unresolved metric.Int64Counter // status checks that found no valid markers
	Evicted    metric.Int64Counter
}

// NewMetrics creates all metric instruments. Returns no-op instruments
// when no MeterProvider is registered (safe to call unconditionally).
func NewMetrics() (*Metrics, error) {
	meter := otel.Meter(meterName)
	m := &Metrics{}
	var err error

	m.TmuxCommands, err = meter.Int64Counter("tmux.commands",
		metric.WithDescription("tmux subprocess invocations partitioned by subcommand and outcome"))
	if err != nil {
		return nil, err
	}

	m.Submitted, err = meter.Int64Counter("executions.submitted",
		metric.WithDescription("Commands submitted to panes partitioned by injection mode"))
	if err != nil {
		return nil, err
	}

	m.Resolved, err = meter.Int64Counter("executions.resolved",
		metric.WithDescription("Executions that reached a terminal status via marker parsing"))
	if err != nil {
		return nil, err
	}

	m.Unresolved, err = meter.Int64Counter("executions.unresolved",
		metric.WithDescription("Status checks that could not locate both markers (left pending)"))
	if err != nil {
		return nil, err
	}

	m.Evicted, err = meter.Int64Counter("executions.evicted",
		metric.WithDescription("Terminal executions removed by age-based eviction"))
	if err != nil {
		return nil, err
	}

	return m, nil
}

// RecordTmuxCommand records one tmux invocation.
func (m *Metrics) RecordTmuxCommand(ctx context.Context, subcommand string, ok bool) {
	if m == nil {
		return
	}
	outcome := "ok"
	if !ok {
		outcome = "error"
	}
	m.TmuxCommands.Add(ctx, 1, metric.WithAttributes(
		attribute.String("tmux.subcommand", subcommand),
		attribute.String("outcome", outcome),
	))
}

// RecordSubmitted records a command submission with its injection mode.
func (m *Metrics) RecordSubmitted(ctx context.Context, mode string) {
	if m == nil {
		return
	}
	m.Submitted.Add(ctx, 1, metric.WithAttributes(attribute.String("execution.mode", mode)))
}

// RecordResolved records a terminal transition.
func (m *Metrics) RecordResolved(ctx context.Context, status string) {
	if m == nil {
		return
	}
	m.Resolved.Add(ctx, 1, metric.WithAttributes(attribute.String("execution.status", status)))
}

// RecordUnresolved records a status check that left the record pending.
func (m *Metrics) RecordUnresolved(ctx context.Context) {
	if m == nil {
		return
	}
	m.Unresolved.Add(ctx, 1)
}

// RecordEvicted records n evicted executions.
func (m *Metrics) RecordEvicted(ctx context.Context, n int) {
	if m == nil || n <= 0 {
		return
	}
	m.Evicted.Add(ctx, int64(n))
}
