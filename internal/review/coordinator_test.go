package review

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStageExecutesAfterDelay(t *testing.T) {
	c := NewCoordinator(10 * time.Millisecond)
	defer c.Close()

	var executed atomic.Bool
	action := c.Stage("t1", "delete", func(context.Context) error {
		executed.Store(true)
		return nil
	}, nil)

	require.NoError(t, action.Wait(context.Background()))
	assert.True(t, executed.Load())
}

func TestUndoBeforeDelayCancelsExecution(t *testing.T) {
	c := NewCoordinator(time.Hour)
	defer c.Close()

	var executed atomic.Bool
	var rolledBack atomic.Bool
	action := c.Stage("t1", "delete", func(context.Context) error {
		executed.Store(true)
		return nil
	}, func() {
		rolledBack.Store(true)
	})

	assert.True(t, c.Undo("t1"))

	err := action.Wait(context.Background())
	assert.ErrorIs(t, err, ErrUndone)
	assert.False(t, executed.Load(), "undone action must never execute")
	assert.True(t, rolledBack.Load(), "undo reverts optimistic state")
}

func TestUndoUnknownTargetReturnsFalse(t *testing.T) {
	c := NewCoordinator(time.Hour)
	defer c.Close()

	assert.False(t, c.Undo("missing"))
}

func TestStagingSupersedesPriorAction(t *testing.T) {
	c := NewCoordinator(50 * time.Millisecond)
	defer c.Close()

	var firstRan atomic.Bool
	var secondRan atomic.Bool

	first := c.Stage("t1", "reject", func(context.Context) error {
		firstRan.Store(true)
		return nil
	}, nil)
	second := c.Stage("t1", "delete", func(context.Context) error {
		secondRan.Store(true)
		return nil
	}, nil)

	assert.ErrorIs(t, first.Wait(context.Background()), ErrSuperseded)
	require.NoError(t, second.Wait(context.Background()))
	assert.False(t, firstRan.Load())
	assert.True(t, secondRan.Load())
}

func TestIndependentTargetsDoNotSupersede(t *testing.T) {
	c := NewCoordinator(10 * time.Millisecond)
	defer c.Close()

	a := c.Stage("t1", "delete", func(context.Context) error { return nil }, nil)
	b := c.Stage("t2", "delete", func(context.Context) error { return nil }, nil)

	require.NoError(t, a.Wait(context.Background()))
	require.NoError(t, b.Wait(context.Background()))
}

func TestExecutionFailureTriggersRollback(t *testing.T) {
	c := NewCoordinator(10 * time.Millisecond)
	defer c.Close()

	var rolledBack atomic.Bool
	boom := errors.New("storage failure")

	action := c.Stage("t1", "delete", func(context.Context) error {
		return boom
	}, func() {
		rolledBack.Store(true)
	})

	err := action.Wait(context.Background())
	assert.ErrorIs(t, err, boom)
	assert.True(t, rolledBack.Load(), "failed execution rolls optimistic state back")
}

func TestSuccessfulExecutionSkipsRollback(t *testing.T) {
	c := NewCoordinator(10 * time.Millisecond)
	defer c.Close()

	var rolledBack atomic.Bool
	action := c.Stage("t1", "delete", func(context.Context) error { return nil },
		func() { rolledBack.Store(true) })

	require.NoError(t, action.Wait(context.Background()))
	assert.False(t, rolledBack.Load())
}

func TestCloseCancelsAllPending(t *testing.T) {
	c := NewCoordinator(time.Hour)

	var executed atomic.Bool
	a := c.Stage("t1", "delete", func(context.Context) error {
		executed.Store(true)
		return nil
	}, nil)
	b := c.Stage("t2", "reject", func(context.Context) error {
		executed.Store(true)
		return nil
	}, nil)

	c.Close()

	assert.ErrorIs(t, a.Wait(context.Background()), ErrClosed)
	assert.ErrorIs(t, b.Wait(context.Background()), ErrClosed)
	assert.False(t, executed.Load())

	late := c.Stage("t3", "delete", func(context.Context) error { return nil }, nil)
	assert.ErrorIs(t, late.Wait(context.Background()), ErrClosed)
}

func TestWaitHonorsContext(t *testing.T) {
	c := NewCoordinator(time.Hour)
	defer c.Close()

	action := c.Stage("t1", "delete", func(context.Context) error { return nil }, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	assert.ErrorIs(t, action.Wait(ctx), context.DeadlineExceeded)
}
