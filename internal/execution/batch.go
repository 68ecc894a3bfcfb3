package execution

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"golang.org/x/sync/errgroup"
	"gopkg.in/yaml.v3"

	"github.com/timvw/pane-relay/internal/model"
)

// Job is one entry of a batch file.
type Job struct {
	Pane    string `yaml:"pane" json:"pane"`
	Command string `yaml:"command" json:"command"`
	Raw     bool   `yaml:"raw,omitempty" json:"raw,omitempty"`
	NoEnter bool   `yaml:"no_enter,omitempty" json:"no_enter,omitempty"`
}

func (j Job) request() Request {
	return Request{PaneID: j.Pane, Command: j.Command, Raw: j.Raw, NoEnter: j.NoEnter}
}

type batchFile struct {
	Jobs []Job `yaml:"jobs"`
}

// ParseJobs decodes a batch document:
//
//	jobs:
//	  - pane: "%1"
//	    command: make test
//	  - pane: "%2"
//	    command: q
//	    no_enter: true
func ParseJobs(data []byte) ([]Job, error) {
	var f batchFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parsing jobs: %w", err)
	}
	for i, j := range f.Jobs {
		if j.Pane == "" {
			return nil, fmt.Errorf("job %d: pane is required", i+1)
		}
		if j.Command == "" {
			return nil, fmt.Errorf("job %d: command is required", i+1)
		}
	}
	return f.Jobs, nil
}

// LoadJobs reads and parses a batch file.
func LoadJobs(path string) ([]Job, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading jobs file: %w", err)
	}
	return ParseJobs(data)
}

// BatchOptions controls RunBatch polling.
type BatchOptions struct {
	// PollInterval is the pause between polling rounds.
	PollInterval time.Duration
	// Timeout bounds the polling phase. Zero waits until every job resolves.
	Timeout time.Duration
	// EvictAfter evicts terminal records older than this after each round.
	// Zero disables eviction.
	EvictAfter time.Duration
}

// Outcome is the final state of one job.
type Outcome struct {
	Job      Job          `json:"job"`
	ID       string       `json:"id,omitempty"`
	Status   model.Status `json:"status"`
	ExitCode *int         `json:"exit_code,omitempty"`
	Output   string       `json:"output,omitempty"`
	Error    string       `json:"error,omitempty"`
}

func (o *Outcome) apply(exec model.Execution) {
	o.Status = exec.Status
	o.ExitCode = exec.ExitCode
	o.Output = exec.Result
}

// RunBatch runs jobs and collects their outcomes in job order.
//
// Jobs for the same pane run one after another: a job is submitted only once
// the previous job on that pane has settled, since every record on a pane
// resolves against the pane's last marker pair. Different panes run
// concurrently. opts.Timeout bounds the whole batch. A job still unresolved
// at the timeout is reported as pending, and later jobs on its pane are
// skipped. A failed submission is reported as an error outcome and does not
// stop the pane. The returned error is non-nil only when ctx itself is
// cancelled.
func RunBatch(ctx context.Context, d *Dispatcher, jobs []Job, opts BatchOptions) ([]Outcome, error) {
	outcomes := make([]Outcome, len(jobs))
	for i, job := range jobs {
		outcomes[i].Job = job
	}

	runCtx := ctx
	if opts.Timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, opts.Timeout)
		defer cancel()
	}

	var g errgroup.Group
	for _, idx := range groupByPane(jobs) {
		g.Go(func() error {
			runPane(ctx, runCtx, d, idx, outcomes, opts)
			return nil
		})
	}
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		return outcomes, err
	}
	return outcomes, nil
}

// groupByPane returns job indexes per pane, each list in job order, with
// panes in order of first appearance.
func groupByPane(jobs []Job) [][]int {
	var groups [][]int
	slot := make(map[string]int)
	for i, job := range jobs {
		n, ok := slot[job.Pane]
		if !ok {
			n = len(groups)
			slot[job.Pane] = n
			groups = append(groups, nil)
		}
		groups[n] = append(groups[n], i)
	}
	return groups
}

// runPane runs one pane's jobs in order. Each writes only its own outcomes.
func runPane(ctx, runCtx context.Context, d *Dispatcher, idx []int, outcomes []Outcome, opts BatchOptions) {
	tracker := d.Tracker()
	for n, i := range idx {
		if ctx.Err() != nil {
			return
		}
		if runCtx.Err() != nil {
			skip(outcomes, idx[n:], "skipped: batch timed out before submission")
			return
		}

		o := &outcomes[i]
		id, err := d.Execute(ctx, o.Job.request())
		if err != nil {
			o.Status = model.StatusError
			o.Error = err.Error()
			continue
		}
		o.ID = id
		o.Status = model.StatusPending

		exec, err := Wait(runCtx, tracker, id, opts.PollInterval)
		if exec.ID != "" {
			o.apply(exec)
		}
		if opts.EvictAfter > 0 {
			tracker.EvictStale(opts.EvictAfter)
		}
		if err == nil {
			continue
		}
		if !errors.Is(err, context.DeadlineExceeded) && !errors.Is(err, context.Canceled) {
			o.Error = err.Error()
		}
		skip(outcomes, idx[n+1:], fmt.Sprintf("skipped: job %q on %s did not finish", o.Job.Command, o.Job.Pane))
		return
	}
}

func skip(outcomes []Outcome, idx []int, reason string) {
	for _, i := range idx {
		outcomes[i].Status = model.StatusError
		outcomes[i].Error = reason
	}
}
