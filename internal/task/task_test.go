package task

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestFactory(t *testing.T, workers int) *Factory {
	t.Helper()
	f := NewFactory(context.Background(), workers)
	t.Cleanup(f.Close)
	return f
}

func waitDone(t *testing.T, tk *Task) {
	t.Helper()
	require.True(t, tk.Wait(5*time.Second), "task did not complete")
}

func TestStatusString(t *testing.T) {
	assert.Equal(t, "Pending", Pending.String())
	assert.Equal(t, "Completed", Completed.String())
	assert.Equal(t, "Faulted", Faulted.String())
	assert.Equal(t, "Canceled", Canceled.String())
	assert.Equal(t, "Unknown", Status(42).String())
}

func TestStartNew_Result(t *testing.T) {
	f := newTestFactory(t, 2)

	tk := f.StartNew(func(context.Context) (any, error) { return 42, nil })
	waitDone(t, tk)

	assert.Equal(t, Completed, tk.Status())
	assert.Equal(t, 42, tk.Value())
	assert.NoError(t, tk.Err())
}

func TestStartNew_Fault(t *testing.T) {
	f := newTestFactory(t, 2)
	boom := errors.New("boom")

	tk := f.StartNew(func(context.Context) (any, error) { return nil, boom })
	waitDone(t, tk)

	assert.Equal(t, Faulted, tk.Status())
	assert.ErrorIs(t, tk.Err(), boom)
}

func TestStartNew_PanicFaultsOnlyThatTask(t *testing.T) {
	f := newTestFactory(t, 1)

	bad := f.StartNew(func(context.Context) (any, error) { panic("kaboom") })
	good := f.StartNew(func(context.Context) (any, error) { return "ok", nil })
	waitDone(t, bad)
	waitDone(t, good)

	assert.Equal(t, Faulted, bad.Status())
	assert.Contains(t, bad.Err().Error(), "kaboom")
	assert.Equal(t, "ok", good.Value())
}

func TestContinueWith_RunsAfterFault(t *testing.T) {
	f := newTestFactory(t, 2)
	boom := errors.New("boom")

	var sawStatus atomic.Int32
	next := f.StartNew(func(context.Context) (any, error) { return nil, boom }).
		ContinueWith(func(_ context.Context, prev *Task) (any, error) {
			sawStatus.Store(int32(prev.Status()))
			return "recovered", nil
		})
	waitDone(t, next)

	assert.Equal(t, Faulted, Status(sawStatus.Load()))
	assert.Equal(t, "recovered", next.Value())
}

func TestContinueWith_OnCompletedTaskRunsImmediately(t *testing.T) {
	f := newTestFactory(t, 1)

	done := f.FromResult("seed")
	require.Equal(t, Completed, done.Status())

	next := done.ContinueWith(func(_ context.Context, prev *Task) (any, error) {
		return prev.Value().(string) + "!", nil
	})
	waitDone(t, next)
	assert.Equal(t, "seed!", next.Value())
}

func TestThen_FlattensInnerTask(t *testing.T) {
	f := newTestFactory(t, 2)

	release := make(chan struct{})
	outer := f.StartNew(func(context.Context) (any, error) { return 1, nil }).
		Then(func(_ context.Context, v any) *Task {
			return f.StartNew(func(context.Context) (any, error) {
				<-release
				return v.(int) + 1, nil
			})
		})

	assert.False(t, outer.Wait(50*time.Millisecond), "outer must wait for the inner task")
	close(release)
	waitDone(t, outer)
	assert.Equal(t, 2, outer.Value())
}

func TestThen_PropagatesFaultWithoutRunning(t *testing.T) {
	f := newTestFactory(t, 2)
	boom := errors.New("boom")

	var ran atomic.Bool
	outer := f.StartNew(func(context.Context) (any, error) { return nil, boom }).
		Then(func(context.Context, any) *Task {
			ran.Store(true)
			return nil
		})
	waitDone(t, outer)

	assert.Equal(t, Faulted, outer.Status())
	assert.ErrorIs(t, outer.Err(), boom)
	assert.False(t, ran.Load())
}

func TestThen_NilInnerCompletes(t *testing.T) {
	f := newTestFactory(t, 1)

	outer := f.FromResult(nil).Then(func(context.Context, any) *Task { return nil })
	waitDone(t, outer)
	assert.Equal(t, Completed, outer.Status())
}

func TestStartNested_FollowsInner(t *testing.T) {
	f := newTestFactory(t, 1)

	// A single worker schedules more work from inside a body without
	// deadlocking because scheduling never blocks.
	outer := f.StartNested(func(context.Context) *Task {
		c := f.NewCollection()
		for i := range 10 {
			c.Add(f.StartNew(func(context.Context) (any, error) { return i, nil }))
		}
		return c.ContinueWith(func(context.Context, *Task) (any, error) { return "joined", nil })
	})
	waitDone(t, outer)
	assert.Equal(t, "joined", outer.Value())
}

func TestCollection_WhenAllWaitsForEveryMember(t *testing.T) {
	f := newTestFactory(t, 4)

	var finished atomic.Int32
	c := f.NewCollection()
	for range 20 {
		c.Add(f.StartNew(func(context.Context) (any, error) {
			time.Sleep(time.Millisecond)
			finished.Add(1)
			return nil, nil
		}))
	}
	c.Add(nil)
	assert.Equal(t, 20, c.Len())

	join := c.ContinueWith(func(context.Context, *Task) (any, error) {
		return finished.Load(), nil
	})
	waitDone(t, join)
	assert.Equal(t, int32(20), join.Value())
}

func TestCollection_EmptyCompletesImmediately(t *testing.T) {
	f := newTestFactory(t, 1)
	join := f.NewCollection().WhenAll()
	assert.Equal(t, Completed, join.Status())
}

func TestCollection_FaultsAreJoined(t *testing.T) {
	f := newTestFactory(t, 2)
	errA := errors.New("a")
	errB := errors.New("b")

	c := f.NewCollection(
		f.StartNew(func(context.Context) (any, error) { return nil, errA }),
		f.StartNew(func(context.Context) (any, error) { return nil, nil }),
		f.StartNew(func(context.Context) (any, error) { return nil, errB }),
	)
	join := c.WhenAll()
	waitDone(t, join)

	assert.Equal(t, Faulted, join.Status())
	assert.ErrorIs(t, join.Err(), errA)
	assert.ErrorIs(t, join.Err(), errB)
}

func TestCancellation_SkipsQueuedBodies(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	f := NewFactory(ctx, 1)
	t.Cleanup(f.Close)

	block := make(chan struct{})
	started := make(chan struct{})
	first := f.StartNew(func(context.Context) (any, error) {
		close(started)
		<-block
		return nil, nil
	})
	<-started

	var ran atomic.Bool
	second := f.StartNew(func(context.Context) (any, error) {
		ran.Store(true)
		return nil, nil
	})
	dependent := second.Then(func(context.Context, any) *Task {
		ran.Store(true)
		return nil
	})

	cancel()
	close(block)
	waitDone(t, first)
	waitDone(t, second)
	waitDone(t, dependent)

	assert.Equal(t, Completed, first.Status())
	assert.Equal(t, Canceled, second.Status())
	assert.Equal(t, Canceled, dependent.Status())
	assert.False(t, ran.Load())
}

func TestClose_CancelsLateWork(t *testing.T) {
	f := NewFactory(context.Background(), 1)
	f.Close()

	tk := f.StartNew(func(context.Context) (any, error) { return nil, nil })
	assert.Equal(t, Canceled, tk.Status())
	assert.ErrorIs(t, tk.Err(), ErrClosed)
}

func TestConcurrencyBound(t *testing.T) {
	const workers = 3
	f := newTestFactory(t, workers)

	var current, maxSeen atomic.Int32
	c := f.NewCollection()
	for range 64 {
		c.Add(f.StartNew(func(context.Context) (any, error) {
			n := current.Add(1)
			for {
				m := maxSeen.Load()
				if n <= m || maxSeen.CompareAndSwap(m, n) {
					break
				}
			}
			time.Sleep(2 * time.Millisecond)
			current.Add(-1)
			return nil, nil
		}))
	}
	waitDone(t, c.WhenAll())

	assert.LessOrEqual(t, int(maxSeen.Load()), workers)
	assert.LessOrEqual(t, f.Peak(), workers)
	assert.Positive(t, f.Peak())
	assert.Equal(t, workers, f.Workers())
}

func TestWait_Timeout(t *testing.T) {
	f := newTestFactory(t, 1)
	release := make(chan struct{})
	tk := f.StartNew(func(context.Context) (any, error) {
		<-release
		return nil, nil
	})
	assert.False(t, tk.Wait(10*time.Millisecond))
	close(release)
	assert.True(t, tk.Wait(-1))
}
