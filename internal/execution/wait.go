package execution

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/time/rate"

	"github.com/timvw/pane-relay/internal/model"
)

// DefaultPollInterval paces status checks in Wait and RunBatch.
const DefaultPollInterval = 500 * time.Millisecond

// ErrUnknownExecution is returned by Wait when the id is not tracked.
var ErrUnknownExecution = errors.New("unknown execution")

// newPoller returns a limiter whose first Wait blocks for a full interval.
func newPoller(interval time.Duration) *rate.Limiter {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	l := rate.NewLimiter(rate.Every(interval), 1)
	l.Allow()
	return l
}

// finalCheckTimeout bounds the status check Wait runs after its deadline.
const finalCheckTimeout = 2 * time.Second

// Wait polls CheckStatus until the record is terminal. The first capture
// happens one interval after the call, giving the shell time to print the
// new start marker over any pair left by an earlier command. Raw mode and
// terminal records return at once. When ctx ends first, the last seen
// record is returned together with the context error.
func Wait(ctx context.Context, t *Tracker, id string, interval time.Duration) (model.Execution, error) {
	exec, ok := t.Get(id)
	if !ok {
		return model.Execution{}, fmt.Errorf("%w: %s", ErrUnknownExecution, id)
	}
	if settled(exec) {
		exec, _, err := t.CheckStatus(ctx, id)
		return exec, err
	}

	poll := newPoller(interval)
	for {
		if err := poll.Wait(ctx); err != nil {
			// The limiter refuses at once when the next token lands past the
			// deadline. Sleep out the remaining time instead.
			if ctx.Err() == nil {
				<-ctx.Done()
			}
			return finish(ctx, t, id, exec)
		}

		next, ok, err := t.CheckStatus(ctx, id)
		if err != nil {
			if ctx.Err() != nil {
				return finish(ctx, t, id, next)
			}
			return next, err
		}
		if !ok {
			return model.Execution{}, fmt.Errorf("%w: %s", ErrUnknownExecution, id)
		}
		if settled(next) {
			return next, nil
		}
		exec = next
	}
}

func settled(exec model.Execution) bool {
	return exec.Status.Terminal() || exec.RawMode
}

// finish runs one last status check once ctx has reached its deadline, so a
// command that completed in the final interval is still reported. A
// cancelled ctx returns last unchanged.
func finish(ctx context.Context, t *Tracker, id string, last model.Execution) (model.Execution, error) {
	err := fmt.Errorf("wait for %s: %w", id, ctx.Err())
	if !errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return last, err
	}
	fctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), finalCheckTimeout)
	defer cancel()
	exec, ok, cerr := t.CheckStatus(fctx, id)
	if cerr != nil || !ok {
		return last, err
	}
	if settled(exec) {
		return exec, nil
	}
	return exec, err
}
