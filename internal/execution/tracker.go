// Package execution runs commands in tmux panes and tracks them until the
// shell-side hook reports completion.
package execution

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"

	"github.com/timvw/pane-relay/internal/logging"
	"github.com/timvw/pane-relay/internal/marker"
	"github.com/timvw/pane-relay/internal/model"
	ppotel "github.com/timvw/pane-relay/internal/otel"
)

// DefaultCaptureLines is the trailing window captured when resolving a record.
const DefaultCaptureLines = 1000

// Advisory results stored on records that are still pending.
const (
	RawModeAdvisory    = "Status tracking is unavailable for raw mode commands. Capture the pane to see its output."
	UnresolvedAdvisory = "Command output could not be captured yet. Check the status again later."
)

// Capturer reads a pane's trailing text.
type Capturer interface {
	CapturePane(ctx context.Context, paneID string, lines int, colors bool) (string, error)
}

// Recorder receives every registered record and every terminal transition.
type Recorder interface {
	Record(ctx context.Context, exec model.Execution) error
}

// Tracker is the registry of submitted executions. Resolution is driven by
// the caller through CheckStatus; the tracker never polls on its own.
type Tracker struct {
	capturer     Capturer
	captureLines int
	now          func() time.Time
	newID        func() string
	metrics      *ppotel.Metrics
	log          *slog.Logger
	recorder     Recorder

	// captures collapses concurrent status checks of one id into one capture.
	captures singleflight.Group

	mu      sync.Mutex
	records map[string]*model.Execution
}

// TrackerOption configures a Tracker.
type TrackerOption func(*Tracker)

// WithCaptureLines sets the trailing line window captured per status check.
func WithCaptureLines(n int) TrackerOption {
	return func(t *Tracker) {
		if n > 0 {
			t.captureLines = n
		}
	}
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) TrackerOption {
	return func(t *Tracker) { t.now = now }
}

// WithIDGenerator overrides the UUID generator.
func WithIDGenerator(newID func() string) TrackerOption {
	return func(t *Tracker) { t.newID = newID }
}

// WithMetrics records lifecycle counters.
func WithMetrics(m *ppotel.Metrics) TrackerOption {
	return func(t *Tracker) { t.metrics = m }
}

// WithLogger replaces the component logger.
func WithLogger(l *slog.Logger) TrackerOption {
	return func(t *Tracker) { t.log = l }
}

// WithRecorder mirrors records into an audit store.
func WithRecorder(r Recorder) TrackerOption {
	return func(t *Tracker) { t.recorder = r }
}

// NewTracker creates an empty registry that resolves records by capturing
// panes through c.
func NewTracker(c Capturer, opts ...TrackerOption) *Tracker {
	t := &Tracker{
		capturer:     c,
		captureLines: DefaultCaptureLines,
		now:          time.Now,
		newID:        uuid.NewString,
		log:          logging.ForComponent(logging.CompTracker),
		records:      make(map[string]*model.Execution),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Register adds a pending record and returns a copy of it.
func (t *Tracker) Register(ctx context.Context, paneID, command string, raw bool) model.Execution {
	t.mu.Lock()
	id := t.newID()
	for t.records[id] != nil {
		id = t.newID()
	}
	rec := &model.Execution{
		ID:        id,
		PaneID:    paneID,
		Command:   command,
		Status:    model.StatusPending,
		StartTime: t.now(),
		RawMode:   raw,
	}
	t.records[id] = rec
	out := snapshot(rec)
	t.mu.Unlock()

	t.log.Debug("execution registered", "id", id, "pane", paneID, "raw", raw)
	t.record(ctx, out)
	return out
}

// Forget drops a record. The dispatcher uses it when keys could not be sent.
func (t *Tracker) Forget(id string) {
	t.mu.Lock()
	delete(t.records, id)
	t.mu.Unlock()
}

// Get returns a copy of the record without touching the pane.
func (t *Tracker) Get(id string) (model.Execution, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	rec, ok := t.records[id]
	if !ok {
		return model.Execution{}, false
	}
	return snapshot(rec), true
}

// IDs lists every tracked id, oldest first.
func (t *Tracker) IDs() []string {
	t.mu.Lock()
	recs := make([]*model.Execution, 0, len(t.records))
	for _, rec := range t.records {
		recs = append(recs, rec)
	}
	t.mu.Unlock()

	sort.Slice(recs, func(i, j int) bool {
		if !recs[i].StartTime.Equal(recs[j].StartTime) {
			return recs[i].StartTime.Before(recs[j].StartTime)
		}
		return recs[i].ID < recs[j].ID
	})
	ids := make([]string, len(recs))
	for i, rec := range recs {
		ids[i] = rec.ID
	}
	return ids
}

// CheckStatus tries to resolve a pending record from its pane's content.
//
// Unknown ids return ok == false. Terminal records are returned as they are
// without capturing. Raw mode records get RawModeAdvisory and stay pending.
// Normal records whose markers are not both visible get UnresolvedAdvisory
// and stay pending. A capture failure is returned with the record unchanged.
func (t *Tracker) CheckStatus(ctx context.Context, id string) (model.Execution, bool, error) {
	t.mu.Lock()
	rec, ok := t.records[id]
	if !ok {
		t.mu.Unlock()
		return model.Execution{}, false, nil
	}
	if rec.Status.Terminal() {
		out := snapshot(rec)
		t.mu.Unlock()
		return out, true, nil
	}
	if rec.RawMode {
		rec.Result = RawModeAdvisory
		out := snapshot(rec)
		t.mu.Unlock()
		return out, true, nil
	}
	paneID := rec.PaneID
	before := snapshot(rec)
	t.mu.Unlock()

	v, err, _ := t.captures.Do(id, func() (any, error) {
		return t.capturer.CapturePane(ctx, paneID, t.captureLines, false)
	})
	if err != nil {
		t.log.Warn("capture failed", "id", id, "pane", paneID, "error", err)
		return before, true, fmt.Errorf("check execution %s: %w", id, err)
	}
	res, parsed := marker.Parse(v.(string))

	t.mu.Lock()
	rec, ok = t.records[id]
	if !ok {
		t.mu.Unlock()
		return model.Execution{}, false, nil
	}
	if rec.Status.Terminal() {
		out := snapshot(rec)
		t.mu.Unlock()
		return out, true, nil
	}
	if !parsed {
		rec.Result = UnresolvedAdvisory
		out := snapshot(rec)
		t.mu.Unlock()
		t.metrics.RecordUnresolved(ctx)
		return out, true, nil
	}
	code := res.ExitCode
	rec.ExitCode = &code
	rec.Result = res.Output
	if res.Succeeded() {
		rec.Status = model.StatusCompleted
	} else {
		rec.Status = model.StatusError
	}
	out := snapshot(rec)
	t.mu.Unlock()

	t.metrics.RecordResolved(ctx, string(out.Status))
	t.log.Info("execution resolved", "execution", out.Summary(), "pane", paneID)
	t.record(ctx, out)
	return out, true, nil
}

// EvictStale removes completed and errored records older than maxAge and
// returns how many were removed. Pending records are kept regardless of age.
func (t *Tracker) EvictStale(maxAge time.Duration) int {
	now := t.now()
	removed := 0
	t.mu.Lock()
	for id, rec := range t.records {
		if rec.Status.Terminal() && rec.Age(now) > maxAge {
			delete(t.records, id)
			removed++
		}
	}
	t.mu.Unlock()

	if removed > 0 {
		t.metrics.RecordEvicted(context.Background(), removed)
		t.log.Debug("evicted stale executions", "count", removed, "max_age", maxAge)
	}
	return removed
}

func (t *Tracker) record(ctx context.Context, exec model.Execution) {
	if t.recorder == nil {
		return
	}
	if err := t.recorder.Record(ctx, exec); err != nil {
		t.log.Warn("history record failed", "id", exec.ID, "error", err)
	}
}

// snapshot copies a record so callers never share the exit code pointer.
func snapshot(rec *model.Execution) model.Execution {
	out := *rec
	if rec.ExitCode != nil {
		code := *rec.ExitCode
		out.ExitCode = &code
	}
	return out
}
