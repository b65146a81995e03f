// Package review stages destructive or provisional review actions behind a
// cancellable delay window, and runs bulk operations with per-item failure
// isolation.
package review

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"
)

// DefaultDelay is the undo window granted before a staged action executes.
const DefaultDelay = 5 * time.Second

// Staged action terminal errors.
var (
	// ErrUndone means undo was called before the delay elapsed.
	ErrUndone = errors.New("action undone")
	// ErrSuperseded means a newer action was staged for the same target.
	ErrSuperseded = errors.New("action superseded")
	// ErrClosed means the coordinator was shut down before execution.
	ErrClosed = errors.New("coordinator closed")
)

// Coordinator owns the pending-action timers for one session. At most one
// action may be pending per target; staging another supersedes the first.
// Timers are cancelled on undo, supersede, and Close, never left to the
// garbage collector.
type Coordinator struct {
	pending map[string]*StagedAction
	delay   time.Duration
	mu      sync.Mutex
	closed  bool
}

// StagedAction is the handle for one staged action.
type StagedAction struct {
	timer    *time.Timer
	done     chan struct{}
	execute  func(context.Context) error
	rollback func()
	err      error
	Target   string
	Label    string
}

// NewCoordinator creates a coordinator with the given undo delay.
// A non-positive delay falls back to DefaultDelay.
func NewCoordinator(delay time.Duration) *Coordinator {
	if delay <= 0 {
		delay = DefaultDelay
	}
	return &Coordinator{
		pending: make(map[string]*StagedAction),
		delay:   delay,
	}
}

// Stage schedules execute to run after the undo delay. rollback (optional)
// reverts any optimistic local-state change; it is invoked when the action
// is undone, superseded, or fails during execution.
func (c *Coordinator) Stage(target, label string, execute func(context.Context) error, rollback func()) *StagedAction {
	c.mu.Lock()
	defer c.mu.Unlock()

	action := &StagedAction{
		Target:   target,
		Label:    label,
		execute:  execute,
		rollback: rollback,
		done:     make(chan struct{}),
	}

	if c.closed {
		action.finish(ErrClosed, true)
		return action
	}

	if prior, ok := c.pending[target]; ok {
		prior.timer.Stop()
		prior.finish(ErrSuperseded, true)
		slog.Debug("Superseded pending action", "target", target, "label", prior.Label)
	}

	action.timer = time.AfterFunc(c.delay, func() {
		c.run(action)
	})
	c.pending[target] = action

	slog.Info("Staged action", "target", target, "label", label, "delay", c.delay)

	return action
}

// Undo cancels the pending action for target, if any. Returns true when an
// action was cancelled before executing.
func (c *Coordinator) Undo(target string) bool {
	c.mu.Lock()
	action, ok := c.pending[target]
	if ok {
		delete(c.pending, target)
	}
	c.mu.Unlock()

	if !ok || !action.timer.Stop() {
		return false
	}

	action.finish(ErrUndone, true)
	slog.Info("Undid staged action", "target", target, "label", action.Label)
	return true
}

// Close cancels every pending action. Staged functions that have not fired
// never run.
func (c *Coordinator) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.closed = true
	for target, action := range c.pending {
		action.timer.Stop()
		action.finish(ErrClosed, true)
		delete(c.pending, target)
	}
}

// run executes a staged action once its delay elapses.
func (c *Coordinator) run(action *StagedAction) {
	c.mu.Lock()
	if c.pending[action.Target] == action {
		delete(c.pending, action.Target)
	}
	c.mu.Unlock()

	err := action.execute(context.Background())
	if err != nil {
		slog.Error("Staged action failed",
			"target", action.Target,
			"label", action.Label,
			"error", err)
	}
	// Execution failure rolls optimistic local state back too.
	action.finish(err, err != nil)
}

// Done is closed once the action reaches a terminal state.
func (a *StagedAction) Done() <-chan struct{} {
	return a.done
}

// Err reports the terminal outcome: nil on successful execution, ErrUndone /
// ErrSuperseded / ErrClosed when the action never ran, or the execution
// error. Only valid after Done is closed.
func (a *StagedAction) Err() error {
	return a.err
}

// Wait blocks until the action reaches a terminal state or ctx is done.
func (a *StagedAction) Wait(ctx context.Context) error {
	select {
	case <-a.done:
		return a.err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (a *StagedAction) finish(err error, rollback bool) {
	a.err = err
	if rollback && a.rollback != nil {
		a.rollback()
	}
	close(a.done)
}
